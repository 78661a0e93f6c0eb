package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/vendora/socialpulse/internal/models"
	"github.com/vendora/socialpulse/internal/repository"
)

type SettingsService interface {
	GetSettingsInfo(ctx context.Context, vendorID int64) (*models.VendorSettings, error)
	UpdateSettings(ctx context.Context, vendorID int64, syncFrequencyHours int, timezone string) error
}

type settingsService struct {
	sr repository.SettingsRepository
}

func NewSettingsService(sr repository.SettingsRepository) SettingsService {
	return &settingsService{
		sr: sr,
	}
}

func (s *settingsService) GetSettingsInfo(ctx context.Context, vendorID int64) (*models.VendorSettings, error) {
	settings, err := s.sr.GetByVendorID(ctx, vendorID)
	if err != nil {
		return nil, err
	}

	if settings == nil {
		// Vendors without a row run on defaults.
		return &models.VendorSettings{
			VendorID:           vendorID,
			SyncFrequencyHours: 6,
			Timezone:           "UTC",
		}, nil
	}

	return settings, nil
}

func (s *settingsService) UpdateSettings(ctx context.Context, vendorID int64, syncFrequencyHours int, timezone string) error {
	if syncFrequencyHours < 1 || syncFrequencyHours > 168 {
		err := errors.New("sync frequency must be between 1 and 168 hours")
		slog.Info(err.Error())
		return err
	}

	if timezone == "" {
		timezone = "UTC"
	}
	if _, err := time.LoadLocation(timezone); err != nil {
		slog.Info(err.Error())
		return errors.New("unknown timezone")
	}

	settings := models.VendorSettings{
		VendorID:           vendorID,
		SyncFrequencyHours: syncFrequencyHours,
		Timezone:           timezone,
	}
	return s.sr.Upsert(ctx, &settings)
}
