package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "github.com/vendora/socialpulse/configs"
	"github.com/vendora/socialpulse/internal/models"
	"github.com/vendora/socialpulse/internal/platform"
)

type fakePostStore struct {
	posts map[int64]*models.Post
	rates map[int64]float64
}

func (f *fakePostStore) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	return f.posts[id], nil
}

func (f *fakePostStore) SetEngagement(ctx context.Context, id int64, rate float64, syncedAt time.Time) error {
	f.rates[id] = rate
	return nil
}

type fakeAccountSource struct {
	accounts map[int64]*models.Account
	stats    map[int64]int64
	synced   map[int64]time.Time
}

func (f *fakeAccountSource) Get(ctx context.Context, accountID int64) (*models.Account, error) {
	return f.accounts[accountID], nil
}

func (f *fakeAccountSource) UpdateStats(ctx context.Context, accountID, followerCount, postCount int64, syncedAt time.Time) error {
	f.stats[accountID] = followerCount
	return nil
}

func (f *fakeAccountSource) TouchSynced(ctx context.Context, accountID int64, syncedAt time.Time) error {
	f.synced[accountID] = syncedAt
	return nil
}

type fakeMetricsStore struct {
	upserts []*models.AnalyticsRecord
}

func (f *fakeMetricsStore) Upsert(ctx context.Context, rec *models.AnalyticsRecord) error {
	f.upserts = append(f.upserts, rec)
	return nil
}

// TotalsForPost mirrors the repository fold: rows are cumulative
// snapshots, so each metric takes the highest value seen.
func (f *fakeMetricsStore) TotalsForPost(ctx context.Context, postID int64) (*models.AnalyticsRecord, error) {
	var totals *models.AnalyticsRecord
	for _, rec := range f.upserts {
		if rec.PostID != postID {
			continue
		}
		if totals == nil {
			totals = &models.AnalyticsRecord{PostID: postID}
		}
		totals.Impressions = max(totals.Impressions, rec.Impressions)
		totals.Reach = max(totals.Reach, rec.Reach)
		totals.Likes = max(totals.Likes, rec.Likes)
		totals.Comments = max(totals.Comments, rec.Comments)
		totals.Shares = max(totals.Shares, rec.Shares)
		totals.Saves = max(totals.Saves, rec.Saves)
		totals.Engagement = max(totals.Engagement, rec.Engagement)
	}
	return totals, nil
}

type fakeMilestoneStore struct {
	existing map[string]bool
	created  []string
}

func (f *fakeMilestoneStore) Create(ctx context.Context, m *models.PostMilestone) (bool, error) {
	if f.existing[m.ThresholdKey] {
		return false, nil
	}
	f.existing[m.ThresholdKey] = true
	f.created = append(f.created, m.ThresholdKey)
	return true, nil
}

type fakeEventStore struct {
	events []*models.EngagementEvent
}

func (f *fakeEventStore) CreateEngagementEvent(ctx context.Context, ev *models.EngagementEvent) (int64, error) {
	f.events = append(f.events, ev)
	return int64(len(f.events)), nil
}

type insightsClient struct {
	post    *platform.RawInsightPayload
	account *platform.RawInsightPayload
}

func (c *insightsClient) TestConnection(ctx context.Context, account *models.Account) (bool, error) {
	return true, nil
}

func (c *insightsClient) Publish(ctx context.Context, req *platform.PublishRequest) (*platform.PublishResult, error) {
	return nil, nil
}

func (c *insightsClient) GetPostInsights(ctx context.Context, account *models.Account, platformPostID string, metrics []string) (*platform.RawInsightPayload, error) {
	return c.post, nil
}

func (c *insightsClient) GetAccountInsights(ctx context.Context, account *models.Account, from, to time.Time, metrics []string) (*platform.RawInsightPayload, error) {
	return c.account, nil
}

func (c *insightsClient) RefreshToken(ctx context.Context, account *models.Account) (*platform.TokenResult, error) {
	return nil, nil
}

type ingestorFixture struct {
	ingestor   *Ingestor
	posts      *fakePostStore
	accounts   *fakeAccountSource
	metrics    *fakeMetricsStore
	milestones *fakeMilestoneStore
	events     *fakeEventStore
}

func analyticsConfig() config.Analytics {
	return config.Analytics{
		MilestoneLikesLadder:    []int64{100, 500, 1000},
		MilestoneReachThreshold: 10000,
	}
}

func setupIngestor(t *testing.T, post *models.Post, account *models.Account, client platform.Client) *ingestorFixture {
	t.Helper()

	posts := &fakePostStore{posts: map[int64]*models.Post{post.ID: post}, rates: make(map[int64]float64)}
	accounts := &fakeAccountSource{
		accounts: map[int64]*models.Account{account.ID: account},
		stats:    make(map[int64]int64),
		synced:   make(map[int64]time.Time),
	}
	metrics := &fakeMetricsStore{}
	milestones := &fakeMilestoneStore{existing: make(map[string]bool)}
	events := &fakeEventStore{}

	registry := platform.NewRegistry(map[string]platform.Client{account.Platform: client})

	ing := NewIngestor(posts, accounts, metrics, milestones, events, registry, analyticsConfig())
	ing.now = func() time.Time { return time.Date(2026, 8, 31, 15, 30, 0, 0, time.UTC) }

	return &ingestorFixture{ingestor: ing, posts: posts, accounts: accounts, metrics: metrics, milestones: milestones, events: events}
}

func publishedPost() *models.Post {
	return &models.Post{
		ID:             1,
		AccountID:      10,
		Status:         models.PostStatusPublished,
		PlatformPostID: "ig_1",
		ContentType:    models.ContentTypeFeed,
	}
}

func analyticsAccount() *models.Account {
	return &models.Account{
		ID:               10,
		Platform:         models.PlatformInstagram,
		Status:           models.AccountStatusActive,
		AnalyticsEnabled: true,
	}
}

func TestSyncPostStoresNormalizedRecord(t *testing.T) {
	raw := &platform.RawInsightPayload{
		Series: []platform.MetricSeries{
			{Name: "reach", Values: []platform.MetricValue{{Value: 800}}},
			{Name: "likes", Values: []platform.MetricValue{{Value: 150}}},
			{Name: "comments", Values: []platform.MetricValue{{Value: 50}}},
		},
	}
	f := setupIngestor(t, publishedPost(), analyticsAccount(), &insightsClient{post: raw})

	require.NoError(t, f.ingestor.SyncPost(context.Background(), 1))

	require.Len(t, f.metrics.upserts, 1)
	rec := f.metrics.upserts[0]
	assert.Equal(t, int64(10), rec.AccountID)
	assert.Equal(t, int64(1), rec.PostID)
	assert.Equal(t, int64(800), rec.Reach)
	assert.Equal(t, time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC), rec.Date)

	// 200 engagement over 800 reach.
	assert.Equal(t, 25.0, f.posts.rates[1])
}

func TestSyncPostMilestonesExactlyOnce(t *testing.T) {
	raw := &platform.RawInsightPayload{
		Series: []platform.MetricSeries{{Name: "likes", Values: []platform.MetricValue{{Value: 600}}}},
	}
	f := setupIngestor(t, publishedPost(), analyticsAccount(), &insightsClient{post: raw})

	require.NoError(t, f.ingestor.SyncPost(context.Background(), 1))

	assert.Equal(t, []string{"likes_100", "likes_500"}, f.milestones.created)
	assert.Len(t, f.events.events, 2)

	// A second sync with the same totals records nothing new.
	require.NoError(t, f.ingestor.SyncPost(context.Background(), 1))
	assert.Equal(t, []string{"likes_100", "likes_500"}, f.milestones.created)
	assert.Len(t, f.events.events, 2)
}

func TestSyncPostSnapshotsAcrossDaysDoNotAccumulate(t *testing.T) {
	client := &insightsClient{post: &platform.RawInsightPayload{
		Series: []platform.MetricSeries{{Name: "likes", Values: []platform.MetricValue{{Value: 60}}}},
	}}
	f := setupIngestor(t, publishedPost(), analyticsAccount(), client)

	require.NoError(t, f.ingestor.SyncPost(context.Background(), 1))

	// The next day's sync reports the lifetime count again. Totals must
	// read 70, not 130, so no likes milestone fires.
	client.post = &platform.RawInsightPayload{
		Series: []platform.MetricSeries{{Name: "likes", Values: []platform.MetricValue{{Value: 70}}}},
	}
	f.ingestor.now = func() time.Time { return time.Date(2026, 9, 1, 15, 30, 0, 0, time.UTC) }
	require.NoError(t, f.ingestor.SyncPost(context.Background(), 1))

	require.Len(t, f.metrics.upserts, 2)
	assert.Empty(t, f.milestones.created)
}

func TestSyncPostReachMilestone(t *testing.T) {
	raw := &platform.RawInsightPayload{
		Series: []platform.MetricSeries{{Name: "reach", Values: []platform.MetricValue{{Value: 12000}}}},
	}
	f := setupIngestor(t, publishedPost(), analyticsAccount(), &insightsClient{post: raw})

	require.NoError(t, f.ingestor.SyncPost(context.Background(), 1))
	assert.Contains(t, f.milestones.created, "reach_10000")
}

func TestSyncPostSkipsUnpublished(t *testing.T) {
	post := publishedPost()
	post.Status = models.PostStatusDraft
	f := setupIngestor(t, post, analyticsAccount(), &insightsClient{})

	require.NoError(t, f.ingestor.SyncPost(context.Background(), 1))
	assert.Empty(t, f.metrics.upserts)
}

func TestSyncPostSkipsAnalyticsDisabled(t *testing.T) {
	account := analyticsAccount()
	account.AnalyticsEnabled = false
	f := setupIngestor(t, publishedPost(), account, &insightsClient{})

	require.NoError(t, f.ingestor.SyncPost(context.Background(), 1))
	assert.Empty(t, f.metrics.upserts)
}

func TestSyncAccountStoresAccountLevelRecord(t *testing.T) {
	raw := &platform.RawInsightPayload{
		Series: []platform.MetricSeries{
			{Name: "reach", Values: []platform.MetricValue{{Value: 4000}}},
			{Name: "profile_views", Values: []platform.MetricValue{{Value: 120}}},
		},
		Totals: map[string]float64{"follower_count": 9001},
	}
	f := setupIngestor(t, publishedPost(), analyticsAccount(), &insightsClient{account: raw})

	require.NoError(t, f.ingestor.SyncAccount(context.Background(), 10))

	require.Len(t, f.metrics.upserts, 1)
	rec := f.metrics.upserts[0]
	assert.Equal(t, int64(0), rec.PostID)
	assert.Equal(t, int64(4000), rec.Reach)
	assert.Equal(t, int64(120), rec.ProfileVisits)

	assert.Equal(t, int64(9001), f.accounts.stats[10])
}

func TestSyncAccountSkipsInactive(t *testing.T) {
	account := analyticsAccount()
	account.Status = models.AccountStatusError
	f := setupIngestor(t, publishedPost(), account, &insightsClient{})

	require.NoError(t, f.ingestor.SyncAccount(context.Background(), 10))
	assert.Empty(t, f.metrics.upserts)
}
