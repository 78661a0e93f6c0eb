package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	cfg "github.com/vendora/socialpulse/configs"
	"github.com/vendora/socialpulse/internal/models"
	"github.com/vendora/socialpulse/internal/platform"
	"github.com/vendora/socialpulse/internal/registry"
	"github.com/vendora/socialpulse/internal/repository"
	"github.com/vendora/socialpulse/pkg/utils"
)

// ConnectRequest carries the credentials handed back by a platform's
// OAuth flow.
type ConnectRequest struct {
	Platform          string    `json:"platform"`
	ExternalAccountID string    `json:"external_account_id"`
	AccountName       string    `json:"account_name"`
	AccountUsername   string    `json:"account_username"`
	ProfilePicture    string    `json:"profile_picture"`
	AccessToken       string    `json:"access_token"`
	RefreshToken      string    `json:"refresh_token"`
	TokenExpiresAt    time.Time `json:"token_expires_at"`
	AnalyticsEnabled  bool      `json:"analytics_enabled"`
}

type AccountService interface {
	Connect(ctx context.Context, vendorID int64, req *ConnectRequest) (int64, error)
	List(ctx context.Context, vendorID int64, platformName string) ([]*models.Account, error)
	AccountInfo(ctx context.Context, accountID, vendorID int64) (*models.Account, error)
	TestConnection(ctx context.Context, vendorID, accountID int64) (bool, error)
	Disconnect(ctx context.Context, vendorID, accountID int64) error
}

type accountService struct {
	config    cfg.Config
	ar        repository.AccountRepository
	reg       *registry.Registry
	platforms *platform.Registry
}

func NewAccountService(config cfg.Config, ar repository.AccountRepository,
	reg *registry.Registry, platforms *platform.Registry) AccountService {
	return &accountService{
		config:    config,
		ar:        ar,
		reg:       reg,
		platforms: platforms,
	}
}

// Connect stores a new platform connection. Tokens are encrypted at rest.
func (s *accountService) Connect(ctx context.Context, vendorID int64, req *ConnectRequest) (int64, error) {
	if req == nil || req.Platform == "" || req.ExternalAccountID == "" || req.AccessToken == "" {
		err := errors.New("platform, external account id and access token are required")
		slog.Info(err.Error())
		return 0, err
	}

	if _, ok := s.platforms.Get(req.Platform); !ok {
		return 0, fmt.Errorf("unsupported platform %s", req.Platform)
	}

	accessToken, err := utils.Encrypt([]byte(req.AccessToken), []byte(s.config.SecretKey))
	if err != nil {
		slog.Info(err.Error())
		return 0, fmt.Errorf("error securing credentials")
	}

	refreshToken := ""
	if req.RefreshToken != "" {
		refreshToken, err = utils.Encrypt([]byte(req.RefreshToken), []byte(s.config.SecretKey))
		if err != nil {
			slog.Info(err.Error())
			return 0, fmt.Errorf("error securing credentials")
		}
	}

	account := &models.Account{
		VendorID:          vendorID,
		Platform:          req.Platform,
		ExternalAccountID: req.ExternalAccountID,
		AccountName:       req.AccountName,
		AccountUsername:   req.AccountUsername,
		ProfilePicture:    req.ProfilePicture,
		AccessToken:       accessToken,
		RefreshToken:      refreshToken,
		TokenExpiresAt:    req.TokenExpiresAt,
		Status:            models.AccountStatusActive,
		AnalyticsEnabled:  req.AnalyticsEnabled,
	}

	id, err := s.ar.Create(ctx, nil, account)
	if err != nil {
		return 0, fmt.Errorf("error saving account: %w", err)
	}

	slog.Info("account connected", "account_id", id, "platform", req.Platform)
	return id, nil
}

func (s *accountService) List(ctx context.Context, vendorID int64, platformName string) ([]*models.Account, error) {
	return s.reg.GetActive(ctx, vendorID, platformName)
}

func (s *accountService) AccountInfo(ctx context.Context, accountID, vendorID int64) (*models.Account, error) {
	if err := s.checkOwnership(ctx, accountID, vendorID); err != nil {
		return nil, err
	}
	return s.reg.Get(ctx, accountID)
}

// TestConnection makes a live call against the platform API. Success
// resets the account's failure counter.
func (s *accountService) TestConnection(ctx context.Context, vendorID, accountID int64) (bool, error) {
	if err := s.checkOwnership(ctx, accountID, vendorID); err != nil {
		return false, err
	}

	account, err := s.reg.Get(ctx, accountID)
	if err != nil {
		return false, err
	}
	if account == nil {
		return false, errors.New("account doesn't exist")
	}

	client, ok := s.platforms.Get(account.Platform)
	if !ok {
		return false, fmt.Errorf("unsupported platform %s", account.Platform)
	}

	ok, err = client.TestConnection(ctx, account)
	if err != nil {
		return false, err
	}

	if ok {
		if err := s.reg.MarkSuccess(ctx, accountID); err != nil {
			slog.Error("error resetting account failures", "account_id", accountID, "error", err)
		}
	}
	return ok, nil
}

func (s *accountService) Disconnect(ctx context.Context, vendorID, accountID int64) error {
	if err := s.checkOwnership(ctx, accountID, vendorID); err != nil {
		return err
	}
	return s.reg.Disconnect(ctx, accountID)
}

func (s *accountService) checkOwnership(ctx context.Context, accountID, vendorID int64) error {
	if vendorID == 0 || accountID == 0 {
		err := errors.New("account_id is not valid")
		slog.Info(err.Error())
		return err
	}

	isValid, err := s.ar.CheckByVendorID(ctx, accountID, vendorID)
	if err != nil {
		return err
	}
	if !isValid {
		err = errors.New("account doesn't exist")
		slog.Info(err.Error())
		return err
	}
	return nil
}
