package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/vendora/socialpulse/internal/models"
)

type SettingsRepository interface {
	GetByVendorID(ctx context.Context, vendorID int64) (*models.VendorSettings, error)
	Upsert(ctx context.Context, s *models.VendorSettings) error
}

type settingsRepository struct {
	db *sql.DB
}

func NewSettingsRepository(db *sql.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

func (r *settingsRepository) GetByVendorID(ctx context.Context, vendorID int64) (*models.VendorSettings, error) {
	query := `SELECT id, vendor_id, sync_frequency_hours, timezone, created_at, updated_at
		FROM vendor_settings WHERE vendor_id = $1`
	row := r.db.QueryRowContext(ctx, query, vendorID)

	var s models.VendorSettings
	err := row.Scan(&s.ID, &s.VendorID, &s.SyncFrequencyHours, &s.Timezone, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &s, nil
}

func (r *settingsRepository) Upsert(ctx context.Context, s *models.VendorSettings) error {
	query := `
		INSERT INTO vendor_settings (vendor_id, sync_frequency_hours, timezone)
		VALUES ($1, $2, $3)
		ON CONFLICT (vendor_id) DO UPDATE
		SET sync_frequency_hours = EXCLUDED.sync_frequency_hours,
			timezone = EXCLUDED.timezone,
			updated_at = CURRENT_TIMESTAMP
	`
	_, err := r.db.ExecContext(ctx, query, s.VendorID, s.SyncFrequencyHours, s.Timezone)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
