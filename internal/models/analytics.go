package models

import "time"

// AnalyticsRecord is one normalized metrics row per (account, post, date).
// PostID is zero for account-level records.
type AnalyticsRecord struct {
	ID            int64     `db:"id" json:"id"`
	AccountID     int64     `db:"account_id" json:"account_id"`
	PostID        int64     `db:"post_id" json:"post_id"`
	Date          time.Time `db:"date" json:"date"`
	Impressions   int64     `db:"impressions" json:"impressions"`
	Reach         int64     `db:"reach" json:"reach"`
	Likes         int64     `db:"likes" json:"likes"`
	Comments      int64     `db:"comments" json:"comments"`
	Shares        int64     `db:"shares" json:"shares"`
	Saves         int64     `db:"saves" json:"saves"`
	ProfileVisits int64     `db:"profile_visits" json:"profile_visits"`
	WebsiteClicks int64     `db:"website_clicks" json:"website_clicks"`
	Engagement    int64     `db:"engagement" json:"engagement"`
	RawPayload    []byte    `db:"raw_payload" json:"-"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

type PostMilestone struct {
	ID           int64     `db:"id" json:"id"`
	PostID       int64     `db:"post_id" json:"post_id"`
	ThresholdKey string    `db:"threshold_key" json:"threshold_key"`
	Value        int64     `db:"value" json:"value"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

type EngagementEvent struct {
	ID        int64     `db:"id" json:"id"`
	PostID    int64     `db:"post_id" json:"post_id"`
	AccountID int64     `db:"account_id" json:"account_id"`
	EventType string    `db:"event_type" json:"event_type"`
	Payload   []byte    `db:"payload" json:"payload"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type WebhookEvent struct {
	ID        int64     `db:"id" json:"id"`
	Platform  string    `db:"platform" json:"platform"`
	Topic     string    `db:"topic" json:"topic"`
	Payload   []byte    `db:"payload" json:"payload"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
