package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendora/socialpulse/internal/models"
	"github.com/vendora/socialpulse/internal/repository"
)

type fakeStore struct {
	times []time.Time
	posts []*repository.ScheduledPost
}

func (f *fakeStore) ListScheduledTimes(ctx context.Context, platform string, from, to time.Time) ([]time.Time, error) {
	return f.times, nil
}

func (f *fakeStore) ListScheduledByVendorRange(ctx context.Context, vendorID int64, from, to time.Time) ([]*repository.ScheduledPost, error) {
	return f.posts, nil
}

func scheduledPost(id int64, platform string, at time.Time) *repository.ScheduledPost {
	return &repository.ScheduledPost{
		Post:     models.Post{ID: id, Status: models.PostStatusScheduled, ScheduledAt: &at},
		Platform: platform,
	}
}

func TestProposeOptimalTimePicksCanonicalHour(t *testing.T) {
	engine := NewEngine(&fakeStore{})

	// Monday 06:00 UTC.
	from := time.Date(2026, 8, 31, 6, 0, 0, 0, time.UTC)

	at, err := engine.ProposeOptimalTime(context.Background(), models.PlatformInstagram, models.ContentTypeFeed, "UTC", from)
	require.NoError(t, err)

	assert.Equal(t, 9, at.Hour())
	assert.Equal(t, from.Day(), at.Day())
	assert.True(t, at.Sub(from) >= minLeadTime)
}

func TestProposeOptimalTimeSkipsNearTermSlots(t *testing.T) {
	engine := NewEngine(&fakeStore{})

	// Monday 08:30: the 09:00 slot is inside the one hour lead window.
	from := time.Date(2026, 8, 31, 8, 30, 0, 0, time.UTC)

	at, err := engine.ProposeOptimalTime(context.Background(), models.PlatformInstagram, models.ContentTypeFeed, "UTC", from)
	require.NoError(t, err)

	assert.Equal(t, 11, at.Hour())
}

func TestProposeOptimalTimeSkipsCrowdedSlots(t *testing.T) {
	nine := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)
	store := &fakeStore{times: []time.Time{nine, nine.Add(10 * time.Minute)}}
	engine := NewEngine(store)

	from := time.Date(2026, 8, 31, 6, 0, 0, 0, time.UTC)

	at, err := engine.ProposeOptimalTime(context.Background(), models.PlatformInstagram, models.ContentTypeFeed, "UTC", from)
	require.NoError(t, err)

	assert.Equal(t, 11, at.Hour())
}

func TestProposeOptimalTimeWeekendHours(t *testing.T) {
	engine := NewEngine(&fakeStore{})

	// Saturday morning.
	from := time.Date(2026, 9, 5, 6, 0, 0, 0, time.UTC)

	at, err := engine.ProposeOptimalTime(context.Background(), models.PlatformInstagram, models.ContentTypeFeed, "UTC", from)
	require.NoError(t, err)

	assert.Equal(t, 10, at.Hour())
}

func TestProposeOptimalTimeBadTimezoneFallsBackToUTC(t *testing.T) {
	engine := NewEngine(&fakeStore{})

	from := time.Date(2026, 8, 31, 6, 0, 0, 0, time.UTC)

	at, err := engine.ProposeOptimalTime(context.Background(), models.PlatformInstagram, models.ContentTypeFeed, "Mars/Olympus", from)
	require.NoError(t, err)
	assert.Equal(t, time.UTC, at.Location())
}

func TestScoreSlot(t *testing.T) {
	engine := NewEngine(&fakeStore{})

	// Tuesday 09:00 is a canonical instagram hour on a strong weekday.
	canonical := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, 90, engine.ScoreSlot(models.PlatformInstagram, canonical, models.ContentTypeFeed))

	// One hour off a canonical slot.
	near := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, 75, engine.ScoreSlot(models.PlatformInstagram, near, models.ContentTypeFeed))

	// Saturday 03:00, nowhere near anything.
	dead := time.Date(2026, 9, 5, 3, 0, 0, 0, time.UTC)
	assert.Equal(t, 45, engine.ScoreSlot(models.PlatformInstagram, dead, models.ContentTypeFeed))

	// Reel in the peak evening window, Tuesday 19:00 is also canonical.
	reel := time.Date(2026, 9, 1, 19, 0, 0, 0, time.UTC)
	assert.Equal(t, 100, engine.ScoreSlot(models.PlatformInstagram, reel, models.ContentTypeReel))
}

func TestScoreSlotClamped(t *testing.T) {
	engine := NewEngine(&fakeStore{})

	for hour := 0; hour < 24; hour++ {
		at := time.Date(2026, 9, 1, hour, 0, 0, 0, time.UTC)
		score := engine.ScoreSlot(models.PlatformTiktok, at, models.ContentTypeReel)
		assert.GreaterOrEqual(t, score, 0)
		assert.LessOrEqual(t, score, 100)
	}
}

func TestValidateTime(t *testing.T) {
	engine := NewEngine(&fakeStore{})
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	assert.Error(t, engine.ValidateTime(time.Time{}, now))
	assert.Error(t, engine.ValidateTime(now.Add(-time.Minute), now))
	assert.Error(t, engine.ValidateTime(now, now))
	assert.NoError(t, engine.ValidateTime(now.Add(time.Minute), now))
}

func TestDetectConflictsDailyLimit(t *testing.T) {
	day := time.Date(2026, 9, 2, 8, 0, 0, 0, time.UTC)
	var posts []*repository.ScheduledPost
	for i := 0; i < 6; i++ {
		posts = append(posts, scheduledPost(int64(i+1), models.PlatformInstagram, day.Add(time.Duration(i)*2*time.Hour)))
	}
	engine := NewEngine(&fakeStore{posts: posts})

	conflicts, err := engine.DetectConflicts(context.Background(), 1, day, day.AddDate(0, 0, 7))
	require.NoError(t, err)

	var limit *Conflict
	for _, c := range conflicts {
		if c.Kind == ConflictDailyLimitExceeded {
			limit = c
		}
	}
	require.NotNil(t, limit)
	assert.Equal(t, models.PlatformInstagram, limit.Platform)
	assert.Len(t, limit.PostIDs, 6)
}

func TestDetectConflictsPostsTooClose(t *testing.T) {
	base := time.Date(2026, 9, 2, 10, 0, 0, 0, time.UTC)
	posts := []*repository.ScheduledPost{
		scheduledPost(1, models.PlatformFacebook, base),
		scheduledPost(2, models.PlatformFacebook, base.Add(20*time.Minute)),
		scheduledPost(3, models.PlatformInstagram, base.Add(30*time.Minute)),
	}
	engine := NewEngine(&fakeStore{posts: posts})

	conflicts, err := engine.DetectConflicts(context.Background(), 1, base.Add(-time.Hour), base.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, conflicts, 1)

	assert.Equal(t, ConflictPostsTooClose, conflicts[0].Kind)
	assert.Equal(t, models.PlatformFacebook, conflicts[0].Platform)
	assert.Equal(t, []int64{1, 2}, conflicts[0].PostIDs)
}

func TestDetectConflictsCleanSchedule(t *testing.T) {
	base := time.Date(2026, 9, 2, 10, 0, 0, 0, time.UTC)
	posts := []*repository.ScheduledPost{
		scheduledPost(1, models.PlatformFacebook, base),
		scheduledPost(2, models.PlatformFacebook, base.Add(3*time.Hour)),
	}
	engine := NewEngine(&fakeStore{posts: posts})

	conflicts, err := engine.DetectConflicts(context.Background(), 1, base.Add(-time.Hour), base.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Empty(t, conflicts)
}

func TestBulkAssignOptimalSpreadsAcrossSlots(t *testing.T) {
	engine := NewEngine(&fakeStore{})

	from := time.Date(2026, 8, 31, 6, 0, 0, 0, time.UTC)
	items := []*BulkItem{
		{PostID: 1, Platform: models.PlatformInstagram, ContentType: models.ContentTypeFeed, Timezone: "UTC"},
		{PostID: 2, Platform: models.PlatformInstagram, ContentType: models.ContentTypeFeed, Timezone: "UTC"},
		{PostID: 3, Platform: models.PlatformInstagram, ContentType: models.ContentTypeFeed, Timezone: "UTC"},
	}

	assignments := engine.BulkAssign(context.Background(), items, StrategyOptimal, from)
	require.Len(t, assignments, 3)

	for _, a := range assignments {
		require.NoError(t, a.Err)
	}
	// Slot capacity is two, so the third post must move to the next slot.
	assert.Equal(t, assignments[0].ScheduledAt, assignments[1].ScheduledAt)
	assert.True(t, assignments[2].ScheduledAt.After(assignments[1].ScheduledAt))
}

func TestBulkAssignImmediate(t *testing.T) {
	engine := NewEngine(&fakeStore{})

	from := time.Date(2026, 8, 31, 6, 0, 0, 0, time.UTC)
	items := []*BulkItem{
		{PostID: 1, Platform: models.PlatformInstagram, Timezone: "UTC"},
		{PostID: 2, Platform: models.PlatformInstagram, Timezone: "UTC"},
	}

	assignments := engine.BulkAssign(context.Background(), items, StrategyImmediate, from)
	require.Len(t, assignments, 2)
	assert.Equal(t, from.Add(5*time.Minute), assignments[0].ScheduledAt)
	assert.Equal(t, from.Add(10*time.Minute), assignments[1].ScheduledAt)
}

func TestBulkAssignUnknownStrategy(t *testing.T) {
	engine := NewEngine(&fakeStore{})

	assignments := engine.BulkAssign(context.Background(), []*BulkItem{{PostID: 1, Platform: models.PlatformInstagram}}, "chaotic", time.Now())
	require.Len(t, assignments, 1)
	assert.Error(t, assignments[0].Err)
}

func TestSuggestSlotsSortedByScore(t *testing.T) {
	engine := NewEngine(&fakeStore{})

	from := time.Date(2026, 8, 31, 6, 0, 0, 0, time.UTC)
	slots, err := engine.SuggestSlots(context.Background(), models.PlatformInstagram, models.ContentTypeFeed, "UTC", from, 5)
	require.NoError(t, err)
	require.Len(t, slots, 5)

	for i := 1; i < len(slots); i++ {
		assert.GreaterOrEqual(t, slots[i-1].Score, slots[i].Score)
	}
}
