package models

import (
	"time"
)

type Account struct {
	ID                int64      `db:"id" json:"id"`
	VendorID          int64      `db:"vendor_id" json:"vendor_id"`
	Platform          string     `db:"platform" json:"platform"`
	ExternalAccountID string     `db:"external_account_id" json:"external_account_id"`
	AccountName       string     `db:"account_name" json:"account_name"`
	AccountUsername   string     `db:"account_username" json:"account_username"`
	ProfilePicture    string     `db:"profile_picture_url" json:"profile_picture"`
	AccessToken       string     `db:"access_token" json:"-"`
	RefreshToken      string     `db:"refresh_token" json:"-"`
	TokenExpiresAt    time.Time  `db:"token_expires_at" json:"token_expires_at"`
	Status            string     `db:"status" json:"status"`
	AnalyticsEnabled  bool       `db:"analytics_enabled" json:"analytics_enabled"`
	FailureCount      int        `db:"failure_count" json:"failure_count"`
	LastError         string     `db:"last_error" json:"last_error"`
	LastSyncedAt      *time.Time `db:"last_synced_at" json:"last_synced_at"`
	FollowerCount     int64      `db:"follower_count" json:"follower_count"`
	PostCount         int64      `db:"post_count" json:"post_count"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

const (
	AccountStatusActive       = "active"
	AccountStatusError        = "error"
	AccountStatusDisconnected = "disconnected"
)

const (
	PlatformInstagram = "instagram"
	PlatformFacebook  = "facebook"
	PlatformYoutube   = "youtube"
	PlatformTiktok    = "tiktok"
	PlatformWhatsapp  = "whatsapp"
)

func (a *Account) TokenValid() bool {
	return a.AccessToken != "" && a.TokenExpiresAt.After(time.Now())
}
