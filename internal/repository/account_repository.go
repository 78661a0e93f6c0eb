package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/vendora/socialpulse/internal/models"
)

type AccountRepository interface {
	Create(ctx context.Context, tx *sql.Tx, a *models.Account) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Account, error)
	ListActive(ctx context.Context, vendorID int64, platform string) ([]*models.Account, error)
	ListActiveWithTokens(ctx context.Context) ([]*models.Account, error)
	ListByExpiringTokens(ctx context.Context, initialTime, finalTime time.Time) ([]*models.Account, error)
	CheckByVendorID(ctx context.Context, accountID, vendorID int64) (bool, error)
	IncrementFailure(ctx context.Context, id int64, message string) (int, error)
	ResetFailures(ctx context.Context, id int64) error
	SetStatus(ctx context.Context, id int64, status string) error
	UpdateStats(ctx context.Context, id int64, followerCount, postCount int64, lastSyncedAt time.Time) error
	SetLastSyncedAt(ctx context.Context, id int64, syncedAt time.Time) error
	UpdateTokenIf(ctx context.Context, id int64, oldAccessToken, accessToken, refreshToken string, expiresAt time.Time) (bool, error)
	Disconnect(ctx context.Context, id int64) error
}

type accountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) AccountRepository {
	return &accountRepository{db: db}
}

const accountColumns = `id, vendor_id, platform, external_account_id, account_name, account_username,
	profile_picture_url, access_token, refresh_token, token_expires_at, status, analytics_enabled,
	failure_count, last_error, last_synced_at, follower_count, post_count, created_at, updated_at`

func scanAccount(row interface{ Scan(...any) error }) (*models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.VendorID, &a.Platform, &a.ExternalAccountID, &a.AccountName,
		&a.AccountUsername, &a.ProfilePicture, &a.AccessToken, &a.RefreshToken, &a.TokenExpiresAt,
		&a.Status, &a.AnalyticsEnabled, &a.FailureCount, &a.LastError, &a.LastSyncedAt,
		&a.FollowerCount, &a.PostCount, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *accountRepository) Create(ctx context.Context, tx *sql.Tx, a *models.Account) (int64, error) {
	// The partial unique index on (vendor_id, platform, external_account_id)
	// WHERE status != 'disconnected' keeps reconnects from duplicating rows.
	query := `
		INSERT INTO accounts (
			vendor_id, platform, external_account_id, account_name, account_username,
			profile_picture_url, access_token, refresh_token, token_expires_at, analytics_enabled
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`

	var id int64
	var err error

	args := []any{a.VendorID, a.Platform, a.ExternalAccountID, a.AccountName, a.AccountUsername,
		a.ProfilePicture, a.AccessToken, a.RefreshToken, a.TokenExpiresAt, a.AnalyticsEnabled}

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

func (r *accountRepository) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	a, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return a, nil
}

func (r *accountRepository) ListActive(ctx context.Context, vendorID int64, platform string) ([]*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE status = $1`
	args := []any{models.AccountStatusActive}

	if vendorID != 0 {
		query += ` AND vendor_id = $2`
		args = append(args, vendorID)
	}
	if platform != "" {
		if vendorID != 0 {
			query += ` AND platform = $3`
		} else {
			query += ` AND platform = $2`
		}
		args = append(args, platform)
	}

	return r.list(ctx, query, args...)
}

func (r *accountRepository) ListActiveWithTokens(ctx context.Context) ([]*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE status = $1 AND access_token != ''`
	return r.list(ctx, query, models.AccountStatusActive)
}

func (r *accountRepository) ListByExpiringTokens(ctx context.Context, initialTime, finalTime time.Time) ([]*models.Account, error) {
	query := `SELECT ` + accountColumns + `
		FROM accounts
		WHERE status != $1
		AND ((token_expires_at BETWEEN $2 AND $3) OR token_expires_at < $2)`
	return r.list(ctx, query, models.AccountStatusDisconnected, initialTime, finalTime)
}

func (r *accountRepository) list(ctx context.Context, query string, args ...any) ([]*models.Account, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		accounts = append(accounts, a)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return accounts, nil
}

func (r *accountRepository) CheckByVendorID(ctx context.Context, accountID, vendorID int64) (bool, error) {
	query := `SELECT 1 FROM accounts WHERE id = $1 AND vendor_id = $2`

	var result int
	err := r.db.QueryRowContext(ctx, query, accountID, vendorID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}

func (r *accountRepository) IncrementFailure(ctx context.Context, id int64, message string) (int, error) {
	query := `
		UPDATE accounts
		SET failure_count = failure_count + 1,
			last_error = $2,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING failure_count
	`

	var count int
	err := r.db.QueryRowContext(ctx, query, id, message).Scan(&count)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return count, nil
}

func (r *accountRepository) ResetFailures(ctx context.Context, id int64) error {
	query := `
		UPDATE accounts
		SET failure_count = 0,
			last_error = '',
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND failure_count > 0
	`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *accountRepository) SetStatus(ctx context.Context, id int64, status string) error {
	query := `UPDATE accounts SET status = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *accountRepository) UpdateStats(ctx context.Context, id int64, followerCount, postCount int64, lastSyncedAt time.Time) error {
	query := `
		UPDATE accounts
		SET follower_count = $2,
			post_count = $3,
			last_synced_at = $4,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id, followerCount, postCount, lastSyncedAt)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *accountRepository) SetLastSyncedAt(ctx context.Context, id int64, syncedAt time.Time) error {
	query := `UPDATE accounts SET last_synced_at = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, syncedAt)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// UpdateTokenIf swaps the stored tokens only when the current access token
// still matches oldAccessToken, so a concurrent refresh is never clobbered.
func (r *accountRepository) UpdateTokenIf(ctx context.Context, id int64, oldAccessToken, accessToken, refreshToken string, expiresAt time.Time) (bool, error) {
	query := `
		UPDATE accounts
		SET access_token = COALESCE(NULLIF($3, ''), access_token),
			refresh_token = COALESCE(NULLIF($4, ''), refresh_token),
			token_expires_at = $5,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND access_token = $2
	`
	result, err := r.db.ExecContext(ctx, query, id, oldAccessToken, accessToken, refreshToken, expiresAt)
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

func (r *accountRepository) Disconnect(ctx context.Context, id int64) error {
	query := `
		UPDATE accounts
		SET status = $2,
			access_token = '',
			refresh_token = '',
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id, models.AccountStatusDisconnected)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
