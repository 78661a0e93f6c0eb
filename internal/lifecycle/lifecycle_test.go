package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendora/socialpulse/internal/advisor"
	"github.com/vendora/socialpulse/internal/models"
)

type fakePostStore struct {
	posts map[int64]*models.Post
}

func newFakePostStore(posts ...*models.Post) *fakePostStore {
	s := &fakePostStore{posts: make(map[int64]*models.Post)}
	for _, p := range posts {
		s.posts[p.ID] = p
	}
	return s
}

func (s *fakePostStore) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	return s.posts[id], nil
}

func (s *fakePostStore) CasStatus(ctx context.Context, id int64, from, to string) (bool, error) {
	p, ok := s.posts[id]
	if !ok || p.Status != from {
		return false, nil
	}
	p.Status = to
	return true, nil
}

func (s *fakePostStore) MarkScheduled(ctx context.Context, id int64, from string, at time.Time) (bool, error) {
	p, ok := s.posts[id]
	if !ok || p.Status != from {
		return false, nil
	}
	p.Status = models.PostStatusScheduled
	p.ScheduledAt = &at
	return true, nil
}

func (s *fakePostStore) MarkUnscheduled(ctx context.Context, id int64) (bool, error) {
	p, ok := s.posts[id]
	if !ok || p.Status != models.PostStatusScheduled {
		return false, nil
	}
	p.Status = models.PostStatusDraft
	p.ScheduledAt = nil
	return true, nil
}

func (s *fakePostStore) MarkPublished(ctx context.Context, id int64, platformPostID, platformURL string, at time.Time) (bool, error) {
	p, ok := s.posts[id]
	if !ok || p.Status != models.PostStatusPublishing {
		return false, nil
	}
	p.Status = models.PostStatusPublished
	p.PlatformPostID = platformPostID
	p.PlatformURL = platformURL
	p.PublishedAt = &at
	return true, nil
}

func (s *fakePostStore) MarkFailed(ctx context.Context, id int64, msg string) (int, bool, error) {
	p, ok := s.posts[id]
	if !ok || p.Status != models.PostStatusPublishing {
		return 0, false, nil
	}
	p.Status = models.PostStatusFailed
	p.ErrorMessage = msg
	p.RetryCount++
	return p.RetryCount, true, nil
}

func (s *fakePostStore) MarkCancelled(ctx context.Context, id int64, from string) (bool, error) {
	p, ok := s.posts[id]
	if !ok || p.Status != from {
		return false, nil
	}
	p.Status = models.PostStatusCancelled
	p.ScheduledAt = nil
	return true, nil
}

type fakeMediaStore struct {
	media map[int64][]*models.MediaAsset
}

func (s *fakeMediaStore) ListByPostID(ctx context.Context, postID int64) ([]*models.MediaAsset, error) {
	return s.media[postID], nil
}

type fakeAccountStore struct {
	accounts map[int64]*models.Account
}

func (s *fakeAccountStore) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	return s.accounts[id], nil
}

func image() *models.MediaAsset {
	return &models.MediaAsset{FileType: "image/jpeg"}
}

func video(durationSec float64) *models.MediaAsset {
	return &models.MediaAsset{FileType: "video/mp4", DurationSec: durationSec}
}

func newManager(post *models.Post, media []*models.MediaAsset) (*Manager, *fakePostStore) {
	posts := newFakePostStore(post)
	m := NewManager(
		posts,
		&fakeMediaStore{media: map[int64][]*models.MediaAsset{post.ID: media}},
		&fakeAccountStore{accounts: map[int64]*models.Account{
			post.AccountID: {ID: post.AccountID, Platform: models.PlatformInstagram, Status: models.AccountStatusActive},
		}},
		advisor.NewRuleAdvisor(),
		3,
	)
	return m, posts
}

func TestScheduleDraft(t *testing.T) {
	post := &models.Post{ID: 1, AccountID: 10, ContentType: models.ContentTypeFeed, Status: models.PostStatusDraft}
	m, posts := newManager(post, []*models.MediaAsset{image()})

	at := time.Now().Add(2 * time.Hour)
	require.NoError(t, m.Schedule(context.Background(), 1, at, false))

	assert.Equal(t, models.PostStatusScheduled, posts.posts[1].Status)
	require.NotNil(t, posts.posts[1].ScheduledAt)
	assert.Equal(t, at, *posts.posts[1].ScheduledAt)
}

func TestScheduleFailedPostBelowCeilingAllowed(t *testing.T) {
	post := &models.Post{ID: 1, AccountID: 10, ContentType: models.ContentTypeFeed, Status: models.PostStatusFailed, RetryCount: 1}
	m, posts := newManager(post, []*models.MediaAsset{image()})

	require.NoError(t, m.Schedule(context.Background(), 1, time.Now().Add(time.Hour), false))
	assert.Equal(t, models.PostStatusScheduled, posts.posts[1].Status)
}

func TestScheduleRetryExhaustedPostRejected(t *testing.T) {
	post := &models.Post{ID: 1, AccountID: 10, ContentType: models.ContentTypeFeed, Status: models.PostStatusFailed, RetryCount: 3}
	m, posts := newManager(post, []*models.MediaAsset{image()})

	err := m.Schedule(context.Background(), 1, time.Now().Add(time.Hour), false)

	assert.ErrorIs(t, err, ErrRetryExhausted)
	assert.Equal(t, models.PostStatusFailed, posts.posts[1].Status)
}

func TestSchedulePublishedPostRejected(t *testing.T) {
	post := &models.Post{ID: 1, AccountID: 10, ContentType: models.ContentTypeFeed, Status: models.PostStatusPublished}
	m, _ := newManager(post, []*models.MediaAsset{image()})

	err := m.Schedule(context.Background(), 1, time.Now().Add(time.Hour), false)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestScheduleMissingPost(t *testing.T) {
	m, _ := newManager(&models.Post{ID: 1, AccountID: 10}, nil)
	err := m.Schedule(context.Background(), 99, time.Now().Add(time.Hour), false)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestScheduleStoryWithMultipleMedia(t *testing.T) {
	post := &models.Post{ID: 1, AccountID: 10, ContentType: models.ContentTypeStory, Status: models.PostStatusDraft}
	m, _ := newManager(post, []*models.MediaAsset{image(), image()})

	err := m.Schedule(context.Background(), 1, time.Now().Add(time.Hour), false)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "media_count", verr.Problems[0].Code)
}

func TestScheduleStoryPlatformNativeRejected(t *testing.T) {
	post := &models.Post{ID: 1, AccountID: 10, ContentType: models.ContentTypeStory, Status: models.PostStatusDraft}
	m, _ := newManager(post, []*models.MediaAsset{image()})

	err := m.Schedule(context.Background(), 1, time.Now().Add(time.Hour), true)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "story_native", verr.Problems[0].Code)
}

func TestScheduleMixedCarouselRejected(t *testing.T) {
	post := &models.Post{ID: 1, AccountID: 10, ContentType: models.ContentTypeCarousel, Status: models.PostStatusDraft}
	m, _ := newManager(post, []*models.MediaAsset{image(), video(10)})

	err := m.Schedule(context.Background(), 1, time.Now().Add(time.Hour), false)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "mixed_carousel", verr.Problems[0].Code)
}

func TestScheduleReelRequiresVideo(t *testing.T) {
	post := &models.Post{ID: 1, AccountID: 10, ContentType: models.ContentTypeReel, Status: models.PostStatusDraft}
	m, _ := newManager(post, []*models.MediaAsset{image()})

	err := m.Schedule(context.Background(), 1, time.Now().Add(time.Hour), false)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, advisor.ProblemUnsupportedMedia, verr.Problems[0].Code)
}

func TestUnschedule(t *testing.T) {
	at := time.Now().Add(time.Hour)
	post := &models.Post{ID: 1, Status: models.PostStatusScheduled, ScheduledAt: &at}
	m, posts := newManager(post, nil)

	require.NoError(t, m.Unschedule(context.Background(), 1))
	assert.Equal(t, models.PostStatusDraft, posts.posts[1].Status)
	assert.Nil(t, posts.posts[1].ScheduledAt)
}

func TestUnscheduleDraftRejected(t *testing.T) {
	post := &models.Post{ID: 1, Status: models.PostStatusDraft}
	m, _ := newManager(post, nil)

	assert.ErrorIs(t, m.Unschedule(context.Background(), 1), ErrInvalidTransition)
}

func TestCancelScheduled(t *testing.T) {
	post := &models.Post{ID: 1, Status: models.PostStatusScheduled}
	m, posts := newManager(post, nil)

	require.NoError(t, m.Cancel(context.Background(), 1))
	assert.Equal(t, models.PostStatusCancelled, posts.posts[1].Status)
}

func TestCancelPublishingRejected(t *testing.T) {
	post := &models.Post{ID: 1, Status: models.PostStatusPublishing}
	m, _ := newManager(post, nil)

	assert.ErrorIs(t, m.Cancel(context.Background(), 1), ErrInvalidTransition)
}

func TestBeginPublishingSingleWinner(t *testing.T) {
	post := &models.Post{ID: 1, Status: models.PostStatusScheduled}
	m, _ := newManager(post, nil)

	won, err := m.BeginPublishing(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, won)

	won, err = m.BeginPublishing(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, won)
}

func TestMarkFailedBelowCeiling(t *testing.T) {
	post := &models.Post{ID: 1, Status: models.PostStatusPublishing}
	m, posts := newManager(post, nil)

	count, err := m.MarkFailed(context.Background(), 1, "network timeout")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, models.PostStatusFailed, posts.posts[1].Status)
	assert.Equal(t, "network timeout", posts.posts[1].ErrorMessage)
}

func TestMarkFailedExhaustsRetries(t *testing.T) {
	post := &models.Post{ID: 1, Status: models.PostStatusPublishing, RetryCount: 2}
	m, _ := newManager(post, nil)

	count, err := m.MarkFailed(context.Background(), 1, "still broken")
	assert.ErrorIs(t, err, ErrRetryExhausted)
	assert.Equal(t, 3, count)
}

func TestRescheduleForRetry(t *testing.T) {
	post := &models.Post{ID: 1, Status: models.PostStatusFailed, RetryCount: 1}
	m, posts := newManager(post, nil)

	retryAt := time.Now().Add(2 * time.Minute)
	require.NoError(t, m.RescheduleForRetry(context.Background(), 1, retryAt))
	assert.Equal(t, models.PostStatusScheduled, posts.posts[1].Status)
}

func TestMarkPublished(t *testing.T) {
	post := &models.Post{ID: 1, Status: models.PostStatusPublishing}
	m, posts := newManager(post, nil)

	now := time.Now()
	require.NoError(t, m.MarkPublished(context.Background(), 1, "ig_123", "https://instagram.com/p/abc", now))

	assert.Equal(t, models.PostStatusPublished, posts.posts[1].Status)
	assert.Equal(t, "ig_123", posts.posts[1].PlatformPostID)

	// A second completion attempt is a no-op conflict.
	assert.ErrorIs(t, m.MarkPublished(context.Background(), 1, "ig_456", "", now), ErrInvalidTransition)
}
