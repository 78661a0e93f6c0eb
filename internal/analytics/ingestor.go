package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	config "github.com/vendora/socialpulse/configs"
	"github.com/vendora/socialpulse/internal/models"
	"github.com/vendora/socialpulse/internal/platform"
)

var postMetrics = []string{"impressions", "reach", "likes", "comments", "shares", "saved"}

var accountMetrics = []string{"impressions", "reach", "profile_views", "website_clicks"}

type PostStore interface {
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	SetEngagement(ctx context.Context, id int64, rate float64, syncedAt time.Time) error
}

// AccountSource resolves accounts and records sync health. Satisfied by
// registry.Registry; analytics failures never feed the publish failure
// counter.
type AccountSource interface {
	Get(ctx context.Context, accountID int64) (*models.Account, error)
	UpdateStats(ctx context.Context, accountID, followerCount, postCount int64, syncedAt time.Time) error
	TouchSynced(ctx context.Context, accountID int64, syncedAt time.Time) error
}

type MetricsStore interface {
	Upsert(ctx context.Context, rec *models.AnalyticsRecord) error
	TotalsForPost(ctx context.Context, postID int64) (*models.AnalyticsRecord, error)
}

type MilestoneStore interface {
	Create(ctx context.Context, m *models.PostMilestone) (bool, error)
}

type EventStore interface {
	CreateEngagementEvent(ctx context.Context, ev *models.EngagementEvent) (int64, error)
}

// Ingestor pulls platform insights, normalizes them and persists daily
// metric rows, milestone crossings and the post's engagement rate.
type Ingestor struct {
	posts      PostStore
	accounts   AccountSource
	metrics    MetricsStore
	milestones MilestoneStore
	events     EventStore
	platforms  *platform.Registry
	cfg        config.Analytics
	now        func() time.Time
}

func NewIngestor(posts PostStore, accounts AccountSource, metrics MetricsStore,
	milestones MilestoneStore, events EventStore, platforms *platform.Registry, cfg config.Analytics) *Ingestor {
	return &Ingestor{
		posts:      posts,
		accounts:   accounts,
		metrics:    metrics,
		milestones: milestones,
		events:     events,
		platforms:  platforms,
		cfg:        cfg,
		now:        time.Now,
	}
}

// SyncPost refreshes metrics for one published post. Posts without a
// platform id (deleted, never published) are skipped without error.
func (i *Ingestor) SyncPost(ctx context.Context, postID int64) error {
	post, err := i.posts.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post == nil || post.Status != models.PostStatusPublished || post.PlatformPostID == "" {
		slog.Info("analytics sync skipped", "post_id", postID)
		return nil
	}

	account, err := i.accounts.Get(ctx, post.AccountID)
	if err != nil {
		return err
	}
	if account == nil || !account.AnalyticsEnabled {
		return nil
	}

	client, ok := i.platforms.Get(account.Platform)
	if !ok {
		return fmt.Errorf("no client for platform %s", account.Platform)
	}

	raw, err := client.GetPostInsights(ctx, account, post.PlatformPostID, postMetrics)
	if err != nil {
		return fmt.Errorf("error fetching post insights: %w", err)
	}

	rec := Normalize(raw)
	rec.AccountID = account.ID
	rec.PostID = post.ID
	rec.Date = dateOf(i.now())

	if err := i.metrics.Upsert(ctx, rec); err != nil {
		return err
	}

	rate := EngagementRate(rec.Engagement, rec.Reach)
	if err := i.posts.SetEngagement(ctx, post.ID, rate, i.now()); err != nil {
		return err
	}

	if err := i.checkMilestones(ctx, post, account); err != nil {
		slog.Error("error checking milestones", "post_id", post.ID, "error", err)
	}

	slog.Info("post analytics synced",
		"post_id", post.ID, "reach", rec.Reach, "engagement", rec.Engagement, "rate", rate)
	return nil
}

// SyncAccount refreshes account-level metrics. The row is stored with
// post_id zero.
func (i *Ingestor) SyncAccount(ctx context.Context, accountID int64) error {
	account, err := i.accounts.Get(ctx, accountID)
	if err != nil {
		return err
	}
	if account == nil || account.Status != models.AccountStatusActive || !account.AnalyticsEnabled {
		return nil
	}

	client, ok := i.platforms.Get(account.Platform)
	if !ok {
		return fmt.Errorf("no client for platform %s", account.Platform)
	}

	now := i.now()
	raw, err := client.GetAccountInsights(ctx, account, now.AddDate(0, 0, -1), now, accountMetrics)
	if err != nil {
		return fmt.Errorf("error fetching account insights: %w", err)
	}

	rec := Normalize(raw)
	rec.AccountID = account.ID
	rec.Date = dateOf(now)

	if err := i.metrics.Upsert(ctx, rec); err != nil {
		return err
	}

	if followers, ok := raw.Totals["follower_count"]; ok {
		if err := i.accounts.UpdateStats(ctx, account.ID, int64(followers), account.PostCount, now); err != nil {
			slog.Error("error updating account stats", "account_id", account.ID, "error", err)
		}
	} else if err := i.accounts.TouchSynced(ctx, account.ID, now); err != nil {
		slog.Error("error touching account sync time", "account_id", account.ID, "error", err)
	}

	slog.Info("account analytics synced", "account_id", account.ID, "reach", rec.Reach)
	return nil
}

// checkMilestones compares lifetime totals against the configured
// thresholds and records each crossing once, emitting an engagement
// event alongside the first insert.
func (i *Ingestor) checkMilestones(ctx context.Context, post *models.Post, account *models.Account) error {
	totals, err := i.metrics.TotalsForPost(ctx, post.ID)
	if err != nil {
		return err
	}
	if totals == nil {
		return nil
	}

	for _, threshold := range i.cfg.MilestoneLikesLadder {
		if totals.Likes >= threshold {
			if err := i.recordMilestone(ctx, post, account, "likes_"+strconv.FormatInt(threshold, 10), totals.Likes); err != nil {
				return err
			}
		}
	}

	if i.cfg.MilestoneReachThreshold > 0 && totals.Reach >= i.cfg.MilestoneReachThreshold {
		key := "reach_" + strconv.FormatInt(i.cfg.MilestoneReachThreshold, 10)
		if err := i.recordMilestone(ctx, post, account, key, totals.Reach); err != nil {
			return err
		}
	}

	return nil
}

func (i *Ingestor) recordMilestone(ctx context.Context, post *models.Post, account *models.Account, key string, value int64) error {
	created, err := i.milestones.Create(ctx, &models.PostMilestone{
		PostID:       post.ID,
		ThresholdKey: key,
		Value:        value,
	})
	if err != nil {
		return err
	}
	if !created {
		return nil
	}

	payload, _ := json.Marshal(map[string]any{
		"threshold": key,
		"value":     value,
	})
	if _, err := i.events.CreateEngagementEvent(ctx, &models.EngagementEvent{
		PostID:    post.ID,
		AccountID: account.ID,
		EventType: "milestone",
		Payload:   payload,
	}); err != nil {
		return err
	}

	slog.Info("milestone reached", "post_id", post.ID, "threshold", key, "value", value)
	return nil
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
