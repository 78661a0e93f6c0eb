package job

import (
	"context"
	"log/slog"
	"sync"
	"time"

	config "github.com/vendora/socialpulse/configs"
	"github.com/vendora/socialpulse/internal/models"
	"github.com/vendora/socialpulse/internal/queue"
)

// SyncableAccounts is the slice of the account registry the sweep uses.
// Satisfied by registry.Registry.
type SyncableAccounts interface {
	ListSyncable(ctx context.Context) ([]*models.Account, error)
}

type DuePublisher interface {
	ProcessDue(ctx context.Context, limit int) error
}

type StalePostSource interface {
	ListPublishedNeedingSync(ctx context.Context, publishedSince, syncedBefore time.Time) ([]*models.Post, error)
}

type VendorSettingsSource interface {
	GetByVendorID(ctx context.Context, vendorID int64) (*models.VendorSettings, error)
}

type MetricsPurger interface {
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type EventPurger interface {
	PurgeEngagementOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	PurgeWebhookOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// SyncSweepJob runs on a cron schedule. It enqueues account analytics
// syncs for accounts that are due per their vendor's frequency, refreshes
// recently published posts, re-enqueues overdue publishes and purges
// expired analytics rows.
type SyncSweepJob struct {
	accounts  SyncableAccounts
	posts     StalePostSource
	settings  VendorSettingsSource
	analytics MetricsPurger
	events    EventPurger
	scheduler queue.Scheduler
	publisher DuePublisher
	cfg       config.Sync
	retention config.Analytics
	now       func() time.Time
}

func NewSyncSweepJob(accounts SyncableAccounts, posts StalePostSource,
	settings VendorSettingsSource, analytics MetricsPurger,
	events EventPurger, scheduler queue.Scheduler, publisher DuePublisher,
	cfg config.Sync, retention config.Analytics) *SyncSweepJob {
	return &SyncSweepJob{
		accounts:  accounts,
		posts:     posts,
		settings:  settings,
		analytics: analytics,
		events:    events,
		scheduler: scheduler,
		publisher: publisher,
		cfg:       cfg,
		retention: retention,
		now:       time.Now,
	}
}

// Run is the cron entrypoint. Each phase logs and continues on failure so
// one broken account never stalls the whole sweep.
func (j *SyncSweepJob) Run() {
	ctx := context.Background()

	if err := j.publisher.ProcessDue(ctx, 500); err != nil {
		slog.Error("error re-enqueueing due posts", "error", err)
	}

	j.sweepAccounts(ctx)
	j.sweepRecentPosts(ctx)
	j.cleanup(ctx)
}

func (j *SyncSweepJob) sweepAccounts(ctx context.Context) {
	accounts, err := j.accounts.ListSyncable(ctx)
	if err != nil {
		slog.Error("error listing syncable accounts", "error", err)
		return
	}

	frequencies := make(map[int64]time.Duration)
	now := j.now()
	delay := time.Duration(0)
	enqueued := 0

	for _, acc := range accounts {
		freq, ok := frequencies[acc.VendorID]
		if !ok {
			freq = j.vendorFrequency(ctx, acc.VendorID)
			frequencies[acc.VendorID] = freq
		}

		if acc.LastSyncedAt != nil && now.Sub(*acc.LastSyncedAt) < freq {
			continue
		}

		// Stagger enqueues so one sweep does not burst every platform API
		// at the same instant.
		if err := j.scheduler.EnqueueAccountAnalytics(ctx, acc.ID, delay); err != nil {
			slog.Error("error enqueueing account sync", "account_id", acc.ID, "error", err)
			continue
		}
		delay += j.cfg.AccountStagger
		enqueued++
	}

	slog.Info("account sweep complete", "candidates", len(accounts), "enqueued", enqueued)
}

func (j *SyncSweepJob) vendorFrequency(ctx context.Context, vendorID int64) time.Duration {
	fallback := time.Duration(j.cfg.DefaultFrequencyHours) * time.Hour

	settings, err := j.settings.GetByVendorID(ctx, vendorID)
	if err != nil {
		slog.Error("error loading vendor settings", "vendor_id", vendorID, "error", err)
		return fallback
	}
	if settings == nil || settings.SyncFrequencyHours <= 0 {
		return fallback
	}
	return time.Duration(settings.SyncFrequencyHours) * time.Hour
}

// sweepRecentPosts re-enqueues analytics for posts published inside the
// recent window whose metrics have gone stale.
func (j *SyncSweepJob) sweepRecentPosts(ctx context.Context) {
	now := j.now()
	since := now.AddDate(0, 0, -j.cfg.RecentPostWindowDays)
	staleBefore := now.Add(-j.cfg.PostRefreshInterval)

	posts, err := j.posts.ListPublishedNeedingSync(ctx, since, staleBefore)
	if err != nil {
		slog.Error("error listing posts needing sync", "error", err)
		return
	}
	if len(posts) == 0 {
		return
	}

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, j.concurrency())

	for _, post := range posts {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(p *models.Post) {
			defer wg.Done()
			defer func() { <-semaphore }()

			if err := j.scheduler.EnqueuePostAnalytics(ctx, p.ID, 0); err != nil {
				slog.Error("error enqueueing post sync", "post_id", p.ID, "error", err)
			}
		}(post)
	}

	wg.Wait()
	slog.Info("post sweep complete", "enqueued", len(posts))
}

func (j *SyncSweepJob) concurrency() int {
	if j.cfg.WorkerConcurrency > 0 {
		return j.cfg.WorkerConcurrency
	}
	return 10
}

func (j *SyncSweepJob) cleanup(ctx context.Context) {
	now := j.now()

	if n, err := j.analytics.PurgeOlderThan(ctx, now.AddDate(0, 0, -j.retention.RetentionDays)); err != nil {
		slog.Error("error purging analytics records", "error", err)
	} else if n > 0 {
		slog.Info("purged analytics records", "count", n)
	}

	if n, err := j.events.PurgeEngagementOlderThan(ctx, now.AddDate(0, 0, -j.retention.EngagementEventDays)); err != nil {
		slog.Error("error purging engagement events", "error", err)
	} else if n > 0 {
		slog.Info("purged engagement events", "count", n)
	}

	if n, err := j.events.PurgeWebhookOlderThan(ctx, now.AddDate(0, 0, -j.retention.WebhookEventDays)); err != nil {
		slog.Error("error purging webhook events", "error", err)
	} else if n > 0 {
		slog.Info("purged webhook events", "count", n)
	}
}
