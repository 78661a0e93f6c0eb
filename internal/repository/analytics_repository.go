package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/vendora/socialpulse/internal/models"
)

type AnalyticsRepository interface {
	Upsert(ctx context.Context, rec *models.AnalyticsRecord) error
	GetByKey(ctx context.Context, accountID, postID int64, date time.Time) (*models.AnalyticsRecord, error)
	ListByPost(ctx context.Context, postID int64) ([]*models.AnalyticsRecord, error)
	ListByAccountRange(ctx context.Context, accountID int64, from, to time.Time) ([]*models.AnalyticsRecord, error)
	TotalsForPost(ctx context.Context, postID int64) (*models.AnalyticsRecord, error)
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type analyticsRepository struct {
	db *sql.DB
}

func NewAnalyticsRepository(db *sql.DB) AnalyticsRepository {
	return &analyticsRepository{db: db}
}

const analyticsColumns = `id, account_id, post_id, date, impressions, reach, likes, comments,
	shares, saves, profile_visits, website_clicks, engagement, raw_payload, created_at, updated_at`

func scanAnalyticsRecord(row interface{ Scan(...any) error }) (*models.AnalyticsRecord, error) {
	var rec models.AnalyticsRecord
	err := row.Scan(&rec.ID, &rec.AccountID, &rec.PostID, &rec.Date, &rec.Impressions, &rec.Reach,
		&rec.Likes, &rec.Comments, &rec.Shares, &rec.Saves, &rec.ProfileVisits, &rec.WebsiteClicks,
		&rec.Engagement, &rec.RawPayload, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Upsert writes one metrics row keyed on (account_id, post_id, date).
// Re-syncing the same day overwrites in place, never accumulates.
func (r *analyticsRepository) Upsert(ctx context.Context, rec *models.AnalyticsRecord) error {
	query := `
		INSERT INTO analytics_records (
			account_id, post_id, date, impressions, reach, likes, comments, shares, saves,
			profile_visits, website_clicks, engagement, raw_payload
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (account_id, post_id, date) DO UPDATE
		SET impressions = EXCLUDED.impressions,
			reach = EXCLUDED.reach,
			likes = EXCLUDED.likes,
			comments = EXCLUDED.comments,
			shares = EXCLUDED.shares,
			saves = EXCLUDED.saves,
			profile_visits = EXCLUDED.profile_visits,
			website_clicks = EXCLUDED.website_clicks,
			engagement = EXCLUDED.engagement,
			raw_payload = EXCLUDED.raw_payload,
			updated_at = CURRENT_TIMESTAMP
	`
	_, err := r.db.ExecContext(ctx, query,
		rec.AccountID, rec.PostID, rec.Date, rec.Impressions, rec.Reach, rec.Likes, rec.Comments,
		rec.Shares, rec.Saves, rec.ProfileVisits, rec.WebsiteClicks, rec.Engagement, rec.RawPayload)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *analyticsRepository) GetByKey(ctx context.Context, accountID, postID int64, date time.Time) (*models.AnalyticsRecord, error) {
	query := `SELECT ` + analyticsColumns + ` FROM analytics_records WHERE account_id = $1 AND post_id = $2 AND date = $3`

	rec, err := scanAnalyticsRecord(r.db.QueryRowContext(ctx, query, accountID, postID, date))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return rec, nil
}

func (r *analyticsRepository) ListByPost(ctx context.Context, postID int64) ([]*models.AnalyticsRecord, error) {
	query := `SELECT ` + analyticsColumns + ` FROM analytics_records WHERE post_id = $1 ORDER BY date`
	return r.list(ctx, query, postID)
}

func (r *analyticsRepository) ListByAccountRange(ctx context.Context, accountID int64, from, to time.Time) ([]*models.AnalyticsRecord, error) {
	query := `SELECT ` + analyticsColumns + ` FROM analytics_records WHERE account_id = $1 AND date BETWEEN $2 AND $3 ORDER BY date`
	return r.list(ctx, query, accountID, from, to)
}

// TotalsForPost folds the per-date rows for a post into lifetime totals,
// used for milestone checks. Each row stores a cumulative platform
// snapshot, so every metric takes the highest value seen rather than a
// sum across dates.
func (r *analyticsRepository) TotalsForPost(ctx context.Context, postID int64) (*models.AnalyticsRecord, error) {
	query := `
		SELECT post_id,
			COALESCE(MAX(impressions), 0),
			COALESCE(MAX(reach), 0),
			COALESCE(MAX(likes), 0),
			COALESCE(MAX(comments), 0),
			COALESCE(MAX(shares), 0),
			COALESCE(MAX(saves), 0),
			COALESCE(MAX(engagement), 0)
		FROM analytics_records
		WHERE post_id = $1
		GROUP BY post_id
	`

	var rec models.AnalyticsRecord
	err := r.db.QueryRowContext(ctx, query, postID).Scan(&rec.PostID, &rec.Impressions, &rec.Reach,
		&rec.Likes, &rec.Comments, &rec.Shares, &rec.Saves, &rec.Engagement)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return &rec, nil
}

func (r *analyticsRepository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM analytics_records WHERE date < $1`
	result, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return result.RowsAffected()
}

func (r *analyticsRepository) list(ctx context.Context, query string, args ...any) ([]*models.AnalyticsRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var records []*models.AnalyticsRecord
	for rows.Next() {
		rec, err := scanAnalyticsRecord(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return records, nil
}
