package job

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	config "github.com/vendora/socialpulse/configs"
	"github.com/vendora/socialpulse/internal/models"
)

type fakeSyncable struct {
	accounts []*models.Account
}

func (f *fakeSyncable) ListSyncable(ctx context.Context) ([]*models.Account, error) {
	return f.accounts, nil
}

type fakeStalePosts struct {
	posts []*models.Post
}

func (f *fakeStalePosts) ListPublishedNeedingSync(ctx context.Context, publishedSince, syncedBefore time.Time) ([]*models.Post, error) {
	return f.posts, nil
}

type fakeSettings struct {
	settings map[int64]*models.VendorSettings
}

func (f *fakeSettings) GetByVendorID(ctx context.Context, vendorID int64) (*models.VendorSettings, error) {
	return f.settings[vendorID], nil
}

type fakePurger struct {
	analyticsCutoff  time.Time
	engagementCutoff time.Time
	webhookCutoff    time.Time
}

func (f *fakePurger) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	f.analyticsCutoff = cutoff
	return 3, nil
}

func (f *fakePurger) PurgeEngagementOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	f.engagementCutoff = cutoff
	return 0, nil
}

func (f *fakePurger) PurgeWebhookOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	f.webhookCutoff = cutoff
	return 0, nil
}

type failingMetricsPurger struct {
	called bool
}

func (f *failingMetricsPurger) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	f.called = true
	return 0, errors.New("connection reset by peer")
}

type recordingScheduler struct {
	mu           sync.Mutex
	accountSyncs []int64
	postSyncs    []int64
	publishes    []int64
}

func (f *recordingScheduler) EnqueuePublish(ctx context.Context, postID int64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.publishes = append(f.publishes, postID)
	return nil
}

func (f *recordingScheduler) EnqueuePostAnalytics(ctx context.Context, postID int64, delay time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.postSyncs = append(f.postSyncs, postID)
	return nil
}

func (f *recordingScheduler) EnqueueAccountAnalytics(ctx context.Context, accountID int64, delay time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accountSyncs = append(f.accountSyncs, accountID)
	return nil
}

type fakeDuePublisher struct {
	called bool
}

func (f *fakeDuePublisher) ProcessDue(ctx context.Context, limit int) error {
	f.called = true
	return nil
}

func syncConfig() config.Sync {
	return config.Sync{
		DefaultFrequencyHours: 6,
		AccountStagger:        time.Second,
		RecentPostWindowDays:  7,
		PostRefreshInterval:   24 * time.Hour,
		WorkerConcurrency:     4,
	}
}

func retentionConfig() config.Analytics {
	return config.Analytics{
		RetentionDays:       365,
		EngagementEventDays: 180,
		WebhookEventDays:    90,
	}
}

func TestSweepEnqueuesDueAccounts(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	recent := now.Add(-time.Hour)
	stale := now.Add(-10 * time.Hour)

	accounts := &fakeSyncable{accounts: []*models.Account{
		{ID: 1, VendorID: 100, LastSyncedAt: &stale},
		{ID: 2, VendorID: 100, LastSyncedAt: &recent},
		{ID: 3, VendorID: 100},
	}}
	scheduler := &recordingScheduler{}
	publisher := &fakeDuePublisher{}

	j := NewSyncSweepJob(accounts, &fakeStalePosts{}, &fakeSettings{}, &fakePurger{}, &fakePurger{},
		scheduler, publisher, syncConfig(), retentionConfig())
	j.now = func() time.Time { return now }

	j.Run()

	// Account 2 synced an hour ago, inside the 6h default frequency.
	assert.ElementsMatch(t, []int64{1, 3}, scheduler.accountSyncs)
	assert.True(t, publisher.called)
}

func TestSweepHonorsVendorFrequency(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	twoHoursAgo := now.Add(-2 * time.Hour)

	accounts := &fakeSyncable{accounts: []*models.Account{
		{ID: 1, VendorID: 100, LastSyncedAt: &twoHoursAgo},
	}}
	settings := &fakeSettings{settings: map[int64]*models.VendorSettings{
		100: {VendorID: 100, SyncFrequencyHours: 1},
	}}
	scheduler := &recordingScheduler{}

	j := NewSyncSweepJob(accounts, &fakeStalePosts{}, settings, &fakePurger{}, &fakePurger{},
		scheduler, &fakeDuePublisher{}, syncConfig(), retentionConfig())
	j.now = func() time.Time { return now }

	j.Run()

	assert.Equal(t, []int64{1}, scheduler.accountSyncs)
}

func TestSweepEnqueuesStalePosts(t *testing.T) {
	posts := &fakeStalePosts{posts: []*models.Post{{ID: 7}, {ID: 8}}}
	scheduler := &recordingScheduler{}

	j := NewSyncSweepJob(&fakeSyncable{}, posts, &fakeSettings{}, &fakePurger{}, &fakePurger{},
		scheduler, &fakeDuePublisher{}, syncConfig(), retentionConfig())

	j.Run()

	assert.ElementsMatch(t, []int64{7, 8}, scheduler.postSyncs)
}

func TestSweepCleanupCutoffs(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	metrics := &fakePurger{}
	events := &fakePurger{}

	j := NewSyncSweepJob(&fakeSyncable{}, &fakeStalePosts{}, &fakeSettings{}, metrics, events,
		&recordingScheduler{}, &fakeDuePublisher{}, syncConfig(), retentionConfig())
	j.now = func() time.Time { return now }

	j.Run()

	assert.Equal(t, now.AddDate(0, 0, -365), metrics.analyticsCutoff)
	assert.Equal(t, now.AddDate(0, 0, -180), events.engagementCutoff)
	assert.Equal(t, now.AddDate(0, 0, -90), events.webhookCutoff)
}

func TestSweepCleanupFailureDoesNotStopRemainingPurges(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	metrics := &failingMetricsPurger{}
	events := &fakePurger{}

	j := NewSyncSweepJob(&fakeSyncable{}, &fakeStalePosts{}, &fakeSettings{}, metrics, events,
		&recordingScheduler{}, &fakeDuePublisher{}, syncConfig(), retentionConfig())
	j.now = func() time.Time { return now }

	j.Run()

	assert.True(t, metrics.called)
	assert.Equal(t, now.AddDate(0, 0, -180), events.engagementCutoff)
	assert.Equal(t, now.AddDate(0, 0, -90), events.webhookCutoff)
}
