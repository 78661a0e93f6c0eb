package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	config "github.com/vendora/socialpulse/configs"
	"github.com/vendora/socialpulse/internal/lifecycle"
	"github.com/vendora/socialpulse/internal/models"
	"github.com/vendora/socialpulse/internal/platform"
	"github.com/vendora/socialpulse/internal/queue"
)

// Lifecycle is the slice of post state transitions the orchestrator
// drives. Satisfied by lifecycle.Manager.
type Lifecycle interface {
	BeginPublishing(ctx context.Context, postID int64) (bool, error)
	MarkPublished(ctx context.Context, postID int64, platformPostID, platformURL string, publishedAt time.Time) error
	MarkFailed(ctx context.Context, postID int64, message string) (int, error)
	RescheduleForRetry(ctx context.Context, postID int64, retryAt time.Time) error
}

// AccountHealth is the slice of the account registry the orchestrator
// needs. Satisfied by registry.Registry.
type AccountHealth interface {
	Get(ctx context.Context, accountID int64) (*models.Account, error)
	MarkFailure(ctx context.Context, accountID int64, message string) error
	MarkSuccess(ctx context.Context, accountID int64) error
}

type PostStore interface {
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]*models.Post, error)
}

type MediaStore interface {
	ListByPostID(ctx context.Context, postID int64) ([]*models.MediaAsset, error)
}

// Orchestrator runs the publish pipeline: claim, dispatch, record.
type Orchestrator struct {
	posts     PostStore
	media     MediaStore
	lifecycle Lifecycle
	accounts  AccountHealth
	platforms *platform.Registry
	scheduler queue.Scheduler
	cfg       config.Publishing
	now       func() time.Time
}

func NewOrchestrator(posts PostStore, media MediaStore, lc Lifecycle, accounts AccountHealth,
	platforms *platform.Registry, scheduler queue.Scheduler, cfg config.Publishing) *Orchestrator {
	return &Orchestrator{
		posts:     posts,
		media:     media,
		lifecycle: lc,
		accounts:  accounts,
		platforms: platforms,
		scheduler: scheduler,
		cfg:       cfg,
		now:       time.Now,
	}
}

// PublishPost runs one publish attempt. Stale tasks (the post moved,
// was cancelled, or another worker claimed it) are dropped silently.
func (o *Orchestrator) PublishPost(ctx context.Context, postID int64, scheduledAt time.Time) error {
	post, err := o.posts.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post == nil {
		slog.Info("publish task for deleted post, skipping", "post_id", postID)
		return nil
	}

	if post.Status != models.PostStatusScheduled {
		slog.Info("publish task for post no longer scheduled, skipping",
			"post_id", postID, "status", post.Status)
		return nil
	}
	if !scheduledAt.IsZero() && post.ScheduledAt != nil && !post.ScheduledAt.Equal(scheduledAt) {
		slog.Info("publish task superseded by reschedule, skipping",
			"post_id", postID, "task_at", scheduledAt, "post_at", *post.ScheduledAt)
		return nil
	}

	claimed, err := o.lifecycle.BeginPublishing(ctx, postID)
	if err != nil {
		return err
	}
	if !claimed {
		slog.Info("publish claim lost to another worker", "post_id", postID)
		return nil
	}

	return o.dispatch(ctx, post)
}

func (o *Orchestrator) dispatch(ctx context.Context, post *models.Post) error {
	account, err := o.accounts.Get(ctx, post.AccountID)
	if err != nil {
		return err
	}

	if account == nil || account.Status != models.AccountStatusActive {
		return o.fail(ctx, post, account, platform.NewPublishError(
			platform.KindAccountInvalid, "", "account missing or not active", nil))
	}
	if !account.TokenValid() {
		return o.fail(ctx, post, account, platform.NewPublishError(
			platform.KindAccountInvalid, account.Platform, "access token expired", nil))
	}

	client, ok := o.platforms.Get(account.Platform)
	if !ok {
		return o.fail(ctx, post, account, platform.NewPublishError(
			platform.KindUnknown, account.Platform, "no client for platform", nil))
	}

	media, err := o.media.ListByPostID(ctx, post.ID)
	if err != nil {
		return err
	}

	result, err := client.Publish(ctx, &platform.PublishRequest{
		Post:    post,
		Account: account,
		Media:   media,
	})
	if err != nil {
		return o.fail(ctx, post, account, err)
	}

	publishedAt := o.now()
	if err := o.lifecycle.MarkPublished(ctx, post.ID, result.PlatformPostID, result.PlatformURL, publishedAt); err != nil {
		return err
	}

	if err := o.accounts.MarkSuccess(ctx, account.ID); err != nil {
		slog.Error("error resetting account failures", "account_id", account.ID, "error", err)
	}

	o.scheduleAnalytics(ctx, post)

	slog.Info("post published",
		"post_id", post.ID, "platform", account.Platform, "platform_post_id", result.PlatformPostID)
	return nil
}

// analyticsDelays returns the sync offsets after publish. Reels get a
// denser schedule because their engagement decays fastest.
func analyticsDelays(contentType string) []time.Duration {
	if contentType == models.ContentTypeReel {
		return []time.Duration{2 * time.Hour, 6 * time.Hour, 24 * time.Hour, 72 * time.Hour}
	}
	return []time.Duration{time.Hour}
}

func (o *Orchestrator) scheduleAnalytics(ctx context.Context, post *models.Post) {
	for _, delay := range analyticsDelays(post.ContentType) {
		if err := o.scheduler.EnqueuePostAnalytics(ctx, post.ID, delay); err != nil {
			slog.Error("error enqueueing analytics sync", "post_id", post.ID, "error", err)
		}
	}
}

func (o *Orchestrator) fail(ctx context.Context, post *models.Post, account *models.Account, cause error) error {
	kind := platform.Classify(cause)

	count, err := o.lifecycle.MarkFailed(ctx, post.ID, cause.Error())
	retryable := !errors.Is(err, lifecycle.ErrRetryExhausted)
	if err != nil && retryable {
		return err
	}

	if account != nil {
		if err := o.accounts.MarkFailure(ctx, account.ID, cause.Error()); err != nil {
			slog.Error("error recording account failure", "account_id", account.ID, "error", err)
		}
	}

	var pe *platform.PublishError
	if errors.As(cause, &pe) && !pe.Retryable() {
		retryable = false
	}

	if !retryable {
		slog.Warn("post failed permanently",
			"post_id", post.ID, "kind", kind, "retries", count, "error", cause)
		return nil
	}

	// Postgres keeps microsecond precision, so truncate before storing.
	// Otherwise the task payload never matches the round-tripped
	// scheduled_at and the retry is dropped as stale.
	retryAt := o.now().Add(o.backoff(kind, count)).Truncate(time.Microsecond)
	if err := o.lifecycle.RescheduleForRetry(ctx, post.ID, retryAt); err != nil {
		return err
	}
	if err := o.scheduler.EnqueuePublish(ctx, post.ID, retryAt); err != nil {
		return fmt.Errorf("error enqueueing retry: %w", err)
	}

	slog.Warn("post publish failed, retry scheduled",
		"post_id", post.ID, "kind", kind, "attempt", count, "retry_at", retryAt)
	return nil
}

// backoff doubles per attempt. Rate limited failures start from a longer
// base so the next attempt lands outside the platform's window.
func (o *Orchestrator) backoff(kind platform.FailureKind, attempt int) time.Duration {
	base := o.cfg.RetryBaseDelay
	if kind == platform.KindRateLimited {
		base = o.cfg.RateLimitedBaseDelay
	}
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(float64(base) * math.Pow(2, float64(attempt-1)))
}

// ProcessDue is the catch-up path for posts whose queue task was lost.
// It re-enqueues anything scheduled in the past that is still sitting
// in scheduled state.
func (o *Orchestrator) ProcessDue(ctx context.Context, limit int) error {
	due, err := o.posts.ListDue(ctx, o.now(), limit)
	if err != nil {
		return err
	}
	if len(due) == 0 {
		return nil
	}

	slog.Info("re-enqueueing overdue posts", "count", len(due))

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, 10)

	for _, post := range due {
		wg.Add(1)
		semaphore <- struct{}{}
		go func(p *models.Post) {
			defer wg.Done()
			defer func() { <-semaphore }()

			at := o.now()
			if p.ScheduledAt != nil {
				at = *p.ScheduledAt
			}
			if err := o.scheduler.EnqueuePublish(ctx, p.ID, at); err != nil {
				slog.Error("error re-enqueueing post", "post_id", p.ID, "error", err)
			}
		}(post)
	}

	wg.Wait()
	return nil
}
