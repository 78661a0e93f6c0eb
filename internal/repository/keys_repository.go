package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/vendora/socialpulse/internal/models"
)

type ApiKeyRepository interface {
	Create(ctx context.Context, key *models.ApiKey) (int64, error)
	GetVendorID(ctx context.Context, apiKey string) (int64, error)
	ListByVendorID(ctx context.Context, vendorID int64) ([]*models.ApiKey, error)
	Remove(ctx context.Context, vendorID, id int64) error
}

type apiKeyRepository struct {
	db *sql.DB
}

func NewApiKeyRepository(db *sql.DB) ApiKeyRepository {
	return &apiKeyRepository{db: db}
}

func (r *apiKeyRepository) Create(ctx context.Context, key *models.ApiKey) (int64, error) {
	query := `INSERT INTO api_keys (vendor_id, api_key) VALUES ($1, $2) RETURNING id`

	var id int64
	err := r.db.QueryRowContext(ctx, query, key.VendorID, key.ApiKey).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

func (r *apiKeyRepository) GetVendorID(ctx context.Context, apiKey string) (int64, error) {
	query := `SELECT vendor_id FROM api_keys WHERE api_key = $1`

	var vendorID int64
	err := r.db.QueryRowContext(ctx, query, apiKey).Scan(&vendorID)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		slog.Info(err.Error())
		return 0, err
	}
	return vendorID, nil
}

func (r *apiKeyRepository) ListByVendorID(ctx context.Context, vendorID int64) ([]*models.ApiKey, error) {
	query := `SELECT id, vendor_id, api_key, created_at FROM api_keys WHERE vendor_id = $1`
	rows, err := r.db.QueryContext(ctx, query, vendorID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var keys []*models.ApiKey
	for rows.Next() {
		var k models.ApiKey
		if err := rows.Scan(&k.ID, &k.VendorID, &k.ApiKey, &k.CreatedAt); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		keys = append(keys, &k)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return keys, nil
}

func (r *apiKeyRepository) Remove(ctx context.Context, vendorID, id int64) error {
	query := `DELETE FROM api_keys WHERE id = $1 AND vendor_id = $2`
	_, err := r.db.ExecContext(ctx, query, id, vendorID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
