package models

import "time"

type VendorSettings struct {
	ID                 int64     `db:"id" json:"id"`
	VendorID           int64     `db:"vendor_id" json:"vendor_id"`
	SyncFrequencyHours int       `db:"sync_frequency_hours" json:"sync_frequency_hours"`
	Timezone           string    `db:"timezone" json:"timezone"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

type ApiKey struct {
	ID        int64     `db:"id" json:"id"`
	VendorID  int64     `db:"vendor_id" json:"vendor_id"`
	ApiKey    string    `db:"api_key" json:"api_key"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
