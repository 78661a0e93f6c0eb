package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/vendora/socialpulse/internal/models"
)

type EventRepository interface {
	CreateEngagementEvent(ctx context.Context, ev *models.EngagementEvent) (int64, error)
	CreateWebhookEvent(ctx context.Context, ev *models.WebhookEvent) (int64, error)
	PurgeEngagementOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	PurgeWebhookOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type eventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) CreateEngagementEvent(ctx context.Context, ev *models.EngagementEvent) (int64, error) {
	query := `
		INSERT INTO engagement_events (post_id, account_id, event_type, payload)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query, ev.PostID, ev.AccountID, ev.EventType, ev.Payload).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

func (r *eventRepository) CreateWebhookEvent(ctx context.Context, ev *models.WebhookEvent) (int64, error) {
	query := `
		INSERT INTO webhook_events (platform, topic, payload)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query, ev.Platform, ev.Topic, ev.Payload).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

func (r *eventRepository) PurgeEngagementOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM engagement_events WHERE created_at < $1`, cutoff)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return result.RowsAffected()
}

func (r *eventRepository) PurgeWebhookOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM webhook_events WHERE created_at < $1`, cutoff)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return result.RowsAffected()
}
