package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vendora/socialpulse/internal/advisor"
	"github.com/vendora/socialpulse/internal/models"
)

// PostStore is the slice of post storage the lifecycle needs. It is
// satisfied by repository.PostRepository.
type PostStore interface {
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	CasStatus(ctx context.Context, id int64, from, to string) (bool, error)
	MarkScheduled(ctx context.Context, id int64, from string, scheduledAt time.Time) (bool, error)
	MarkUnscheduled(ctx context.Context, id int64) (bool, error)
	MarkPublished(ctx context.Context, id int64, platformPostID, platformURL string, publishedAt time.Time) (bool, error)
	MarkFailed(ctx context.Context, id int64, errorMessage string) (int, bool, error)
	MarkCancelled(ctx context.Context, id int64, from string) (bool, error)
}

type MediaStore interface {
	ListByPostID(ctx context.Context, postID int64) ([]*models.MediaAsset, error)
}

type AccountStore interface {
	GetByID(ctx context.Context, id int64) (*models.Account, error)
}

// ErrInvalidTransition is returned when a post is not in a state the
// requested operation accepts. Callers racing a worker see this rather
// than a double transition.
var ErrInvalidTransition = errors.New("invalid post state transition")

var ErrNotFound = errors.New("post not found")

// ErrRetryExhausted marks a publish failure past the retry ceiling. The
// post stays failed and no further attempt is enqueued.
var ErrRetryExhausted = errors.New("publish retries exhausted")

// ValidationError blocks the draft -> scheduled transition with the full
// problem list so the caller can surface every issue at once.
type ValidationError struct {
	Problems []advisor.Problem
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		msgs = append(msgs, p.Message)
	}
	return "post validation failed: " + strings.Join(msgs, "; ")
}

type mediaLimits struct {
	min int
	max int
}

var mediaCardinality = map[string]mediaLimits{
	models.ContentTypeFeed:     {min: 1, max: 10},
	models.ContentTypeStory:    {min: 1, max: 1},
	models.ContentTypeReel:     {min: 1, max: 1},
	models.ContentTypeCarousel: {min: 2, max: 10},
}

// Manager owns every post status transition. All writes go through
// conditional updates so concurrent workers cannot double-transition.
type Manager struct {
	posts      PostStore
	media      MediaStore
	accounts   AccountStore
	advisor    advisor.Advisor
	maxRetries int
}

func NewManager(posts PostStore, media MediaStore, accounts AccountStore, adv advisor.Advisor, maxRetries int) *Manager {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Manager{
		posts:      posts,
		media:      media,
		accounts:   accounts,
		advisor:    adv,
		maxRetries: maxRetries,
	}
}

// Schedule moves a draft (or failed) post to scheduled after validating
// content rules and media cardinality for the target platform.
func (m *Manager) Schedule(ctx context.Context, postID int64, scheduledAt time.Time, platformNative bool) error {
	post, err := m.posts.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post == nil {
		return ErrNotFound
	}

	if post.Status != models.PostStatusDraft && post.Status != models.PostStatusFailed {
		return fmt.Errorf("%w: cannot schedule post in status %s", ErrInvalidTransition, post.Status)
	}
	if post.Status == models.PostStatusFailed && post.RetryCount >= m.maxRetries {
		return fmt.Errorf("%w: %d publish attempts used", ErrRetryExhausted, post.RetryCount)
	}

	account, err := m.accounts.GetByID(ctx, post.AccountID)
	if err != nil {
		return err
	}
	if account == nil {
		return errors.New("account not found")
	}

	media, err := m.media.ListByPostID(ctx, postID)
	if err != nil {
		return err
	}

	if problems := m.validate(post, media, account.Platform, platformNative); len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}

	ok, err := m.posts.MarkScheduled(ctx, postID, post.Status, scheduledAt)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidTransition
	}

	slog.Info("post scheduled", "post_id", postID, "scheduled_at", scheduledAt)
	return nil
}

func (m *Manager) validate(post *models.Post, media []*models.MediaAsset, platform string, platformNative bool) []advisor.Problem {
	var problems []advisor.Problem

	limits, ok := mediaCardinality[post.ContentType]
	if !ok {
		problems = append(problems, advisor.Problem{
			Code:    "unknown_content_type",
			Message: fmt.Sprintf("unknown content type %q", post.ContentType),
		})
		return problems
	}

	if len(media) < limits.min || len(media) > limits.max {
		problems = append(problems, advisor.Problem{
			Code:    "media_count",
			Message: fmt.Sprintf("%s posts need between %d and %d media items, got %d", post.ContentType, limits.min, limits.max, len(media)),
		})
	}

	if post.ContentType == models.ContentTypeCarousel && mixedMediaTypes(media) {
		problems = append(problems, advisor.Problem{
			Code:    "mixed_carousel",
			Message: "carousel posts cannot mix images and videos",
		})
	}

	// Stories only exist as platform-rendered content, so there is no
	// native crosspost variant to produce.
	if post.ContentType == models.ContentTypeStory && platformNative {
		problems = append(problems, advisor.Problem{
			Code:    "story_native",
			Message: "stories cannot be published as platform-native crossposts",
		})
	}

	review := m.advisor.Review(post, media, platform)
	for _, w := range review.Warnings {
		slog.Info("content advisory", "post_id", post.ID, "code", w.Code, "message", w.Message)
	}
	problems = append(problems, review.Errors...)
	return problems
}

func mixedMediaTypes(media []*models.MediaAsset) bool {
	videos := 0
	for _, m := range media {
		if m.IsVideo() {
			videos++
		}
	}
	return videos > 0 && videos < len(media)
}

// Unschedule returns a scheduled post to draft, clearing its slot.
func (m *Manager) Unschedule(ctx context.Context, postID int64) error {
	ok, err := m.posts.MarkUnscheduled(ctx, postID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidTransition
	}
	slog.Info("post unscheduled", "post_id", postID)
	return nil
}

// Cancel is terminal. Only draft, scheduled and failed posts can be
// cancelled; anything mid-flight or already published cannot.
func (m *Manager) Cancel(ctx context.Context, postID int64) error {
	post, err := m.posts.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post == nil {
		return ErrNotFound
	}

	switch post.Status {
	case models.PostStatusDraft, models.PostStatusScheduled, models.PostStatusFailed:
	default:
		return fmt.Errorf("%w: cannot cancel post in status %s", ErrInvalidTransition, post.Status)
	}

	ok, err := m.posts.MarkCancelled(ctx, postID, post.Status)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidTransition
	}

	slog.Info("post cancelled", "post_id", postID)
	return nil
}

// BeginPublishing claims a scheduled post for a worker. The conditional
// update means exactly one of any concurrent claimants wins.
func (m *Manager) BeginPublishing(ctx context.Context, postID int64) (bool, error) {
	return m.posts.CasStatus(ctx, postID, models.PostStatusScheduled, models.PostStatusPublishing)
}

func (m *Manager) MarkPublished(ctx context.Context, postID int64, platformPostID, platformURL string, publishedAt time.Time) error {
	ok, err := m.posts.MarkPublished(ctx, postID, platformPostID, platformURL, publishedAt)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidTransition
	}
	return nil
}

// MarkFailed records a publish failure. It returns the retry count after
// the failure; the wrapped ErrRetryExhausted signals the ceiling was hit.
func (m *Manager) MarkFailed(ctx context.Context, postID int64, message string) (int, error) {
	count, ok, err := m.posts.MarkFailed(ctx, postID, message)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrInvalidTransition
	}
	if count >= m.maxRetries {
		return count, fmt.Errorf("%w: post %d failed %d times", ErrRetryExhausted, postID, count)
	}
	return count, nil
}

// RescheduleForRetry moves a failed post back to scheduled at the given
// retry time. The failed -> scheduled edge keeps retry_count intact.
func (m *Manager) RescheduleForRetry(ctx context.Context, postID int64, retryAt time.Time) error {
	ok, err := m.posts.MarkScheduled(ctx, postID, models.PostStatusFailed, retryAt)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidTransition
	}
	slog.Info("post rescheduled for retry", "post_id", postID, "retry_at", retryAt)
	return nil
}

func (m *Manager) MaxRetries() int {
	return m.maxRetries
}
