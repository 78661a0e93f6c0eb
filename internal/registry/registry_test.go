package registry

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendora/socialpulse/internal/models"
	"github.com/vendora/socialpulse/internal/platform"
)

type fakeAccountRepo struct {
	accounts map[int64]*models.Account
}

func newFakeAccountRepo(accounts ...*models.Account) *fakeAccountRepo {
	f := &fakeAccountRepo{accounts: make(map[int64]*models.Account)}
	for _, a := range accounts {
		f.accounts[a.ID] = a
	}
	return f
}

func (f *fakeAccountRepo) Create(ctx context.Context, tx *sql.Tx, a *models.Account) (int64, error) {
	f.accounts[a.ID] = a
	return a.ID, nil
}

func (f *fakeAccountRepo) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	return f.accounts[id], nil
}

func (f *fakeAccountRepo) ListActive(ctx context.Context, vendorID int64, platform string) ([]*models.Account, error) {
	var out []*models.Account
	for _, a := range f.accounts {
		if a.Status == models.AccountStatusActive {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAccountRepo) ListActiveWithTokens(ctx context.Context) ([]*models.Account, error) {
	return f.ListActive(ctx, 0, "")
}

func (f *fakeAccountRepo) ListByExpiringTokens(ctx context.Context, initialTime, finalTime time.Time) ([]*models.Account, error) {
	return nil, nil
}

func (f *fakeAccountRepo) CheckByVendorID(ctx context.Context, accountID, vendorID int64) (bool, error) {
	a, ok := f.accounts[accountID]
	return ok && a.VendorID == vendorID, nil
}

func (f *fakeAccountRepo) IncrementFailure(ctx context.Context, id int64, message string) (int, error) {
	a := f.accounts[id]
	a.FailureCount++
	a.LastError = message
	return a.FailureCount, nil
}

func (f *fakeAccountRepo) ResetFailures(ctx context.Context, id int64) error {
	f.accounts[id].FailureCount = 0
	return nil
}

func (f *fakeAccountRepo) SetStatus(ctx context.Context, id int64, status string) error {
	f.accounts[id].Status = status
	return nil
}

func (f *fakeAccountRepo) UpdateStats(ctx context.Context, id, followerCount, postCount int64, lastSyncedAt time.Time) error {
	a := f.accounts[id]
	a.FollowerCount = followerCount
	a.PostCount = postCount
	a.LastSyncedAt = &lastSyncedAt
	return nil
}

func (f *fakeAccountRepo) SetLastSyncedAt(ctx context.Context, id int64, syncedAt time.Time) error {
	f.accounts[id].LastSyncedAt = &syncedAt
	return nil
}

func (f *fakeAccountRepo) UpdateTokenIf(ctx context.Context, id int64, oldAccessToken, accessToken, refreshToken string, expiresAt time.Time) (bool, error) {
	a := f.accounts[id]
	if a.AccessToken != oldAccessToken {
		return false, nil
	}
	a.AccessToken = accessToken
	a.RefreshToken = refreshToken
	a.TokenExpiresAt = expiresAt
	return true, nil
}

func (f *fakeAccountRepo) Disconnect(ctx context.Context, id int64) error {
	f.accounts[id].Status = models.AccountStatusDisconnected
	return nil
}

func TestMarkFailureBelowThreshold(t *testing.T) {
	account := &models.Account{ID: 1, Status: models.AccountStatusActive}
	repo := newFakeAccountRepo(account)
	reg := New(repo, 3)

	require.NoError(t, reg.MarkFailure(context.Background(), 1, "timeout"))
	require.NoError(t, reg.MarkFailure(context.Background(), 1, "timeout"))

	assert.Equal(t, models.AccountStatusActive, account.Status)
	assert.Equal(t, 2, account.FailureCount)
}

func TestMarkFailureAtThresholdDisablesAccount(t *testing.T) {
	account := &models.Account{ID: 1, Status: models.AccountStatusActive, FailureCount: 2}
	repo := newFakeAccountRepo(account)
	reg := New(repo, 3)

	require.NoError(t, reg.MarkFailure(context.Background(), 1, "token revoked"))

	assert.Equal(t, models.AccountStatusError, account.Status)
	assert.Equal(t, "token revoked", account.LastError)
}

func TestMarkSuccessResetsCounter(t *testing.T) {
	account := &models.Account{ID: 1, Status: models.AccountStatusActive, FailureCount: 2}
	repo := newFakeAccountRepo(account)
	reg := New(repo, 3)

	require.NoError(t, reg.MarkSuccess(context.Background(), 1))
	assert.Equal(t, 0, account.FailureCount)
}

func TestIsTokenValid(t *testing.T) {
	valid := &models.Account{ID: 1, AccessToken: "tok", TokenExpiresAt: time.Now().Add(time.Hour)}
	expired := &models.Account{ID: 2, AccessToken: "tok", TokenExpiresAt: time.Now().Add(-time.Hour)}
	repo := newFakeAccountRepo(valid, expired)
	reg := New(repo, 3)

	ok, err := reg.IsTokenValid(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = reg.IsTokenValid(context.Background(), 2)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = reg.IsTokenValid(context.Background(), 99)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreTokenConditional(t *testing.T) {
	account := &models.Account{ID: 1, AccessToken: "old"}
	repo := newFakeAccountRepo(account)
	reg := New(repo, 3)

	token := &platform.TokenResult{AccessToken: "new", RefreshToken: "r", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, reg.StoreToken(context.Background(), &models.Account{ID: 1, AccessToken: "old"}, token))
	assert.Equal(t, "new", account.AccessToken)

	// A caller holding a stale snapshot loses the race and nothing changes.
	stale := &platform.TokenResult{AccessToken: "other"}
	require.NoError(t, reg.StoreToken(context.Background(), &models.Account{ID: 1, AccessToken: "old"}, stale))
	assert.Equal(t, "new", account.AccessToken)
}
