package job

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/vendora/socialpulse/internal/models"
	"github.com/vendora/socialpulse/internal/platform"
	"github.com/vendora/socialpulse/internal/repository"
)

// TokenStore persists refreshed credentials. Satisfied by
// registry.Registry.
type TokenStore interface {
	StoreToken(ctx context.Context, account *models.Account, token *platform.TokenResult) error
}

// TokenRefreshJob renews access tokens expiring inside the lookahead
// window before a publish attempt can hit an expired credential.
type TokenRefreshJob struct {
	accounts  repository.AccountRepository
	store     TokenStore
	platforms *platform.Registry
	lookahead time.Duration
}

func NewTokenRefreshJob(accounts repository.AccountRepository, store TokenStore,
	platforms *platform.Registry, lookahead time.Duration) *TokenRefreshJob {
	if lookahead <= 0 {
		lookahead = 30 * time.Minute
	}
	return &TokenRefreshJob{
		accounts:  accounts,
		store:     store,
		platforms: platforms,
		lookahead: lookahead,
	}
}

func (j *TokenRefreshJob) RefreshTokens() {
	ctx := context.Background()

	now := time.Now()
	accounts, err := j.accounts.ListByExpiringTokens(ctx, now, now.Add(j.lookahead))
	if err != nil {
		slog.Info(err.Error())
		return
	}

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, 10)

	for _, acc := range accounts {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(acc *models.Account) {
			defer wg.Done()
			defer func() { <-semaphore }()

			client, ok := j.platforms.Get(acc.Platform)
			if !ok {
				return
			}

			token, err := client.RefreshToken(ctx, acc)
			if err != nil {
				slog.Warn("unable to refresh token",
					"account_id", acc.ID, "platform", acc.Platform, "error", err)
				return
			}
			if token == nil {
				return
			}

			if err := j.store.StoreToken(ctx, acc, token); err != nil {
				slog.Error("error storing refreshed token", "account_id", acc.ID, "error", err)
			}
		}(acc)
	}

	wg.Wait()
}
