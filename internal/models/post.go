package models

import "time"

type Post struct {
	ID                int64      `db:"id" json:"id"`
	AccountID         int64      `db:"account_id" json:"account_id"`
	VendorID          int64      `db:"vendor_id" json:"vendor_id"`
	ContentType       string     `db:"content_type" json:"content_type"`
	Caption           string     `db:"caption" json:"caption"`
	Hashtags          []string   `db:"hashtags" json:"hashtags"`
	ScheduledAt       *time.Time `db:"scheduled_at" json:"scheduled_at"`
	PublishedAt       *time.Time `db:"published_at" json:"published_at"`
	Status            string     `db:"status" json:"status"`
	PlatformPostID    string     `db:"platform_post_id" json:"platform_post_id"`
	PlatformURL       string     `db:"platform_url" json:"platform_url"`
	ErrorMessage      string     `db:"error_message" json:"error_message"`
	RetryCount        int        `db:"retry_count" json:"retry_count"`
	EngagementRate    *float64   `db:"engagement_rate" json:"engagement_rate"`
	AnalyticsSyncedAt *time.Time `db:"analytics_synced_at" json:"analytics_synced_at"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

type MediaAsset struct {
	ID           int64     `db:"id" json:"id"`
	VendorID     int64     `db:"vendor_id" json:"vendor_id"`
	FileName     string    `db:"file_name" json:"file_name"`
	FileType     string    `db:"file_type" json:"file_type"`
	FileSize     int64     `db:"file_size" json:"file_size"`
	FileURL      string    `db:"file_url" json:"file_url"`
	ThumbnailURL string    `db:"thumbnail_url" json:"thumbnail_url"`
	Width        int       `db:"width" json:"width"`
	Height       int       `db:"height" json:"height"`
	DurationSec  float64   `db:"duration_sec" json:"duration_sec"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

type PostMedia struct {
	PostID       int64     `db:"post_id" json:"post_id"`
	AssetID      int64     `db:"asset_id" json:"asset_id"`
	DisplayOrder int       `db:"display_order" json:"display_order"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

const (
	PostStatusDraft      = "draft"
	PostStatusScheduled  = "scheduled"
	PostStatusPublishing = "publishing"
	PostStatusPublished  = "published"
	PostStatusFailed     = "failed"
	PostStatusCancelled  = "cancelled"
)

const (
	ContentTypeFeed     = "feed"
	ContentTypeStory    = "story"
	ContentTypeReel     = "reel"
	ContentTypeCarousel = "carousel"
)

// IsVideo reports whether the asset holds video content, based on the
// sniffed MIME type stored at upload time.
func (m *MediaAsset) IsVideo() bool {
	return len(m.FileType) >= 5 && m.FileType[:5] == "video"
}

func PostStatusTerminal(status string) bool {
	return status == PostStatusPublished || status == PostStatusCancelled
}
