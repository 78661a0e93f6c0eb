package transfer

import "github.com/golang-jwt/jwt/v5"

type CustomClaims struct {
	VendorID string `json:"vendor_id"`
	jwt.RegisteredClaims
}

// PostCreation is the multipart form shape for creating a post.
type PostCreation struct {
	AccountID   string `json:"account_id"`
	ContentType string `json:"content_type"`
	Caption     string `json:"caption"`
	Hashtags    string `json:"hashtags"`
}

// ScheduleRequest is the body for scheduling an existing draft.
type ScheduleRequest struct {
	PostID         int64  `json:"post_id"`
	ScheduledAt    string `json:"scheduled_at"`
	Timezone       string `json:"timezone"`
	PlatformNative bool   `json:"platform_native"`
	UseOptimalTime bool   `json:"use_optimal_time"`
}

// BulkScheduleRequest assigns slots to a batch of drafts in one call.
// Strategy is optimal (default), spread or immediate.
type BulkScheduleRequest struct {
	PostIDs        []int64 `json:"post_ids"`
	Strategy       string  `json:"strategy"`
	Timezone       string  `json:"timezone"`
	PlatformNative bool    `json:"platform_native"`
}
