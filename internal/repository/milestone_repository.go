package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/vendora/socialpulse/internal/models"
)

type MilestoneRepository interface {
	Create(ctx context.Context, m *models.PostMilestone) (bool, error)
	Exists(ctx context.Context, postID int64, thresholdKey string) (bool, error)
	ListByPost(ctx context.Context, postID int64) ([]*models.PostMilestone, error)
}

type milestoneRepository struct {
	db *sql.DB
}

func NewMilestoneRepository(db *sql.DB) MilestoneRepository {
	return &milestoneRepository{db: db}
}

// Create inserts the milestone if it does not exist yet. The unique index
// on (post_id, threshold_key) makes crossings exactly-once even under
// concurrent syncs; false means another sync already recorded it.
func (r *milestoneRepository) Create(ctx context.Context, m *models.PostMilestone) (bool, error) {
	query := `
		INSERT INTO post_milestones (post_id, threshold_key, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (post_id, threshold_key) DO NOTHING
	`
	result, err := r.db.ExecContext(ctx, query, m.PostID, m.ThresholdKey, m.Value)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected == 1, nil
}

func (r *milestoneRepository) Exists(ctx context.Context, postID int64, thresholdKey string) (bool, error) {
	query := `SELECT 1 FROM post_milestones WHERE post_id = $1 AND threshold_key = $2`

	var result int
	err := r.db.QueryRowContext(ctx, query, postID, thresholdKey).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}
	return result == 1, nil
}

func (r *milestoneRepository) ListByPost(ctx context.Context, postID int64) ([]*models.PostMilestone, error) {
	query := `SELECT id, post_id, threshold_key, value, created_at FROM post_milestones WHERE post_id = $1 ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var milestones []*models.PostMilestone
	for rows.Next() {
		var m models.PostMilestone
		if err := rows.Scan(&m.ID, &m.PostID, &m.ThresholdKey, &m.Value, &m.CreatedAt); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		milestones = append(milestones, &m)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return milestones, nil
}
