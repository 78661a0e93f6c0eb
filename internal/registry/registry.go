package registry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vendora/socialpulse/internal/models"
	"github.com/vendora/socialpulse/internal/platform"
	"github.com/vendora/socialpulse/internal/repository"
)

// Registry tracks connected platform accounts and their health. Publish
// failures feed the consecutive-failure counter; analytics failures do not.
type Registry struct {
	accounts         repository.AccountRepository
	failureThreshold int
}

func New(accounts repository.AccountRepository, failureThreshold int) *Registry {
	if failureThreshold <= 0 {
		failureThreshold = 3
	}
	return &Registry{
		accounts:         accounts,
		failureThreshold: failureThreshold,
	}
}

func (r *Registry) Get(ctx context.Context, accountID int64) (*models.Account, error) {
	return r.accounts.GetByID(ctx, accountID)
}

// GetActive lists active accounts, optionally narrowed to one vendor
// and/or one platform (zero values mean no filter).
func (r *Registry) GetActive(ctx context.Context, vendorID int64, platformName string) ([]*models.Account, error) {
	return r.accounts.ListActive(ctx, vendorID, platformName)
}

func (r *Registry) ListSyncable(ctx context.Context) ([]*models.Account, error) {
	return r.accounts.ListActiveWithTokens(ctx)
}

// MarkFailure records one publish failure. The account is only flipped to
// error status once the consecutive-failure threshold is reached, so a
// single transient outage never disables an account.
func (r *Registry) MarkFailure(ctx context.Context, accountID int64, message string) error {
	count, err := r.accounts.IncrementFailure(ctx, accountID, message)
	if err != nil {
		return fmt.Errorf("error recording account failure: %w", err)
	}

	if count >= r.failureThreshold {
		if err := r.accounts.SetStatus(ctx, accountID, models.AccountStatusError); err != nil {
			return fmt.Errorf("error disabling account: %w", err)
		}
		slog.Warn("account disabled after repeated failures",
			"account_id", accountID, "failures", count)
	}
	return nil
}

// MarkSuccess clears the failure counter after any successful operation.
func (r *Registry) MarkSuccess(ctx context.Context, accountID int64) error {
	return r.accounts.ResetFailures(ctx, accountID)
}

func (r *Registry) IsTokenValid(ctx context.Context, accountID int64) (bool, error) {
	account, err := r.accounts.GetByID(ctx, accountID)
	if err != nil {
		return false, err
	}
	if account == nil {
		return false, nil
	}
	return account.TokenValid(), nil
}

func (r *Registry) UpdateStats(ctx context.Context, accountID, followerCount, postCount int64, syncedAt time.Time) error {
	return r.accounts.UpdateStats(ctx, accountID, followerCount, postCount, syncedAt)
}

func (r *Registry) TouchSynced(ctx context.Context, accountID int64, syncedAt time.Time) error {
	return r.accounts.SetLastSyncedAt(ctx, accountID, syncedAt)
}

// StoreToken writes a refreshed token conditionally: if the stored access
// token changed since account was loaded, the update is dropped so a
// concurrent refresh is not clobbered.
func (r *Registry) StoreToken(ctx context.Context, account *models.Account, token *platform.TokenResult) error {
	updated, err := r.accounts.UpdateTokenIf(ctx, account.ID, account.AccessToken,
		token.AccessToken, token.RefreshToken, token.ExpiresAt)
	if err != nil {
		return err
	}
	if !updated {
		slog.Info("token already refreshed elsewhere, skipping", "account_id", account.ID)
	}
	return nil
}

func (r *Registry) Disconnect(ctx context.Context, accountID int64) error {
	return r.accounts.Disconnect(ctx, accountID)
}
