package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/vendora/socialpulse/internal/models"
)

// ScheduledPost pairs a post with the platform of its target account,
// for queries that need both without a second round trip.
type ScheduledPost struct {
	models.Post
	Platform string
}

type PostRepository interface {
	Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	ListByVendorID(ctx context.Context, vendorID int64) ([]*models.Post, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]*models.Post, error)
	ListScheduledByVendorRange(ctx context.Context, vendorID int64, from, to time.Time) ([]*ScheduledPost, error)
	ListScheduledTimes(ctx context.Context, platform string, from, to time.Time) ([]time.Time, error)
	ListPublishedNeedingSync(ctx context.Context, publishedSince time.Time, syncedBefore time.Time) ([]*models.Post, error)
	CheckByVendorID(ctx context.Context, postID, vendorID int64) (bool, error)
	CasStatus(ctx context.Context, id int64, from, to string) (bool, error)
	MarkScheduled(ctx context.Context, id int64, from string, scheduledAt time.Time) (bool, error)
	MarkUnscheduled(ctx context.Context, id int64) (bool, error)
	MarkPublished(ctx context.Context, id int64, platformPostID, platformURL string, publishedAt time.Time) (bool, error)
	MarkFailed(ctx context.Context, id int64, errorMessage string) (int, bool, error)
	MarkCancelled(ctx context.Context, id int64, from string) (bool, error)
	SetEngagement(ctx context.Context, id int64, rate float64, syncedAt time.Time) error
	Remove(ctx context.Context, id int64) error
}

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

const postColumns = `id, account_id, vendor_id, content_type, caption, hashtags, scheduled_at,
	published_at, status, platform_post_id, platform_url, error_message, retry_count,
	engagement_rate, analytics_synced_at, created_at, updated_at`

func scanPost(row interface{ Scan(...any) error }) (*models.Post, error) {
	var p models.Post
	err := row.Scan(&p.ID, &p.AccountID, &p.VendorID, &p.ContentType, &p.Caption,
		pq.Array(&p.Hashtags), &p.ScheduledAt, &p.PublishedAt, &p.Status, &p.PlatformPostID,
		&p.PlatformURL, &p.ErrorMessage, &p.RetryCount, &p.EngagementRate, &p.AnalyticsSyncedAt,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *postRepository) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
	query := `
		INSERT INTO posts (account_id, vendor_id, content_type, caption, hashtags, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	status := post.Status
	if status == "" {
		status = models.PostStatusDraft
	}

	var id int64
	var err error
	args := []any{post.AccountID, post.VendorID, post.ContentType, post.Caption, pq.Array(post.Hashtags), status}

	if tx != nil {
		err = tx.QueryRowContext(ctx, query, args...).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, args...).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *postRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`

	post, err := scanPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return post, nil
}

func (r *postRepository) ListByVendorID(ctx context.Context, vendorID int64) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE vendor_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, vendorID)
}

func (r *postRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.Post, error) {
	query := `
		SELECT ` + postColumns + `
		FROM posts
		WHERE status = $1 AND scheduled_at IS NOT NULL AND scheduled_at <= $2
		ORDER BY scheduled_at
		LIMIT $3
	`
	return r.list(ctx, query, models.PostStatusScheduled, now, limit)
}

func (r *postRepository) ListScheduledByVendorRange(ctx context.Context, vendorID int64, from, to time.Time) ([]*ScheduledPost, error) {
	query := `
		SELECT ` + prefixedPostColumns + `, a.platform
		FROM posts p
		JOIN accounts a ON a.id = p.account_id
		WHERE p.vendor_id = $1 AND p.status = $2 AND p.scheduled_at BETWEEN $3 AND $4
		ORDER BY p.scheduled_at
	`
	rows, err := r.db.QueryContext(ctx, query, vendorID, models.PostStatusScheduled, from, to)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*ScheduledPost
	for rows.Next() {
		var sp ScheduledPost
		err := rows.Scan(&sp.ID, &sp.AccountID, &sp.VendorID, &sp.ContentType, &sp.Caption,
			pq.Array(&sp.Hashtags), &sp.ScheduledAt, &sp.PublishedAt, &sp.Status, &sp.PlatformPostID,
			&sp.PlatformURL, &sp.ErrorMessage, &sp.RetryCount, &sp.EngagementRate, &sp.AnalyticsSyncedAt,
			&sp.CreatedAt, &sp.UpdatedAt, &sp.Platform)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, &sp)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return posts, nil
}

const prefixedPostColumns = `p.id, p.account_id, p.vendor_id, p.content_type, p.caption, p.hashtags,
	p.scheduled_at, p.published_at, p.status, p.platform_post_id, p.platform_url, p.error_message,
	p.retry_count, p.engagement_rate, p.analytics_synced_at, p.created_at, p.updated_at`

func (r *postRepository) ListScheduledTimes(ctx context.Context, platform string, from, to time.Time) ([]time.Time, error) {
	query := `
		SELECT p.scheduled_at
		FROM posts p
		JOIN accounts a ON a.id = p.account_id
		WHERE a.platform = $1 AND p.status = $2 AND p.scheduled_at BETWEEN $3 AND $4
	`
	rows, err := r.db.QueryContext(ctx, query, platform, models.PostStatusScheduled, from, to)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var times []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		times = append(times, t)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return times, nil
}

func (r *postRepository) ListPublishedNeedingSync(ctx context.Context, publishedSince time.Time, syncedBefore time.Time) ([]*models.Post, error) {
	query := `
		SELECT ` + postColumns + `
		FROM posts
		WHERE status = $1
		AND published_at >= $2
		AND (analytics_synced_at IS NULL OR analytics_synced_at < $3)
	`
	return r.list(ctx, query, models.PostStatusPublished, publishedSince, syncedBefore)
}

func (r *postRepository) list(ctx context.Context, query string, args ...any) ([]*models.Post, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return posts, nil
}

func (r *postRepository) CheckByVendorID(ctx context.Context, postID, vendorID int64) (bool, error) {
	query := `SELECT 1 FROM posts WHERE id = $1 AND vendor_id = $2`

	var result int
	err := r.db.QueryRowContext(ctx, query, postID, vendorID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}

// CasStatus flips status from -> to only when the row still holds the
// expected status. A false return means another worker won the race.
func (r *postRepository) CasStatus(ctx context.Context, id int64, from, to string) (bool, error) {
	query := `
		UPDATE posts
		SET status = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = $2
	`
	return r.execCond(ctx, query, id, from, to)
}

func (r *postRepository) MarkScheduled(ctx context.Context, id int64, from string, scheduledAt time.Time) (bool, error) {
	query := `
		UPDATE posts
		SET status = $3,
			scheduled_at = $4,
			error_message = '',
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = $2
	`
	return r.execCond(ctx, query, id, from, models.PostStatusScheduled, scheduledAt)
}

func (r *postRepository) MarkUnscheduled(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE posts
		SET status = $3,
			scheduled_at = NULL,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = $2
	`
	return r.execCond(ctx, query, id, models.PostStatusScheduled, models.PostStatusDraft)
}

func (r *postRepository) MarkPublished(ctx context.Context, id int64, platformPostID, platformURL string, publishedAt time.Time) (bool, error) {
	query := `
		UPDATE posts
		SET status = $3,
			platform_post_id = $4,
			platform_url = $5,
			published_at = $6,
			error_message = '',
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = $2
	`
	return r.execCond(ctx, query, id, models.PostStatusPublishing, models.PostStatusPublished,
		platformPostID, platformURL, publishedAt)
}

// MarkFailed records the error and bumps the retry counter. Returns the new
// retry count and whether the row was actually in publishing state.
func (r *postRepository) MarkFailed(ctx context.Context, id int64, errorMessage string) (int, bool, error) {
	query := `
		UPDATE posts
		SET status = $3,
			error_message = $4,
			retry_count = retry_count + 1,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = $2
		RETURNING retry_count
	`

	var count int
	err := r.db.QueryRowContext(ctx, query, id, models.PostStatusPublishing, models.PostStatusFailed, errorMessage).Scan(&count)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, false, nil
		}
		slog.Info(err.Error())
		return 0, false, err
	}
	return count, true, nil
}

func (r *postRepository) MarkCancelled(ctx context.Context, id int64, from string) (bool, error) {
	query := `
		UPDATE posts
		SET status = $3,
			scheduled_at = NULL,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = $2
	`
	return r.execCond(ctx, query, id, from, models.PostStatusCancelled)
}

func (r *postRepository) SetEngagement(ctx context.Context, id int64, rate float64, syncedAt time.Time) error {
	query := `
		UPDATE posts
		SET engagement_rate = $2,
			analytics_synced_at = $3,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id, rate, syncedAt)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) Remove(ctx context.Context, id int64) error {
	query := `DELETE FROM posts WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) execCond(ctx context.Context, query string, args ...any) (bool, error) {
	result, err := r.db.ExecContext(ctx, query, args...)
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
