package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vendora/socialpulse/internal/models"
	"github.com/vendora/socialpulse/internal/repository"
	"github.com/vendora/socialpulse/pkg/utils"
)

type ApiKeyService interface {
	Create(ctx context.Context, vendorID int64) error
	List(ctx context.Context, vendorID int64) ([]*models.ApiKey, error)
	GetVendorID(ctx context.Context, apiKey string) (int64, error)
	RemoveAPIKey(ctx context.Context, vendorID, keyID int64) error
}

type apiKeyService struct {
	k repository.ApiKeyRepository
}

func NewApiKeyService(k repository.ApiKeyRepository) ApiKeyService {
	return &apiKeyService{
		k: k,
	}
}

func (s *apiKeyService) Create(ctx context.Context, vendorID int64) error {
	keys, err := s.k.ListByVendorID(ctx, vendorID)
	if err != nil {
		return err
	}

	if len(keys) > 4 {
		err = errors.New("only 5 API keys can be created")
		slog.Info(err.Error())
		return err
	}

	key, err := utils.GenerateRandomKey(16)
	if err != nil {
		slog.Info(err.Error())
		return fmt.Errorf("error generating API key")
	}

	apiKey := &models.ApiKey{
		VendorID: vendorID,
		ApiKey:   key,
	}

	_, err = s.k.Create(ctx, apiKey)
	if err != nil {
		return fmt.Errorf("error saving API key")
	}
	return nil
}

func (s *apiKeyService) GetVendorID(ctx context.Context, apiKey string) (int64, error) {
	vendorID, err := s.k.GetVendorID(ctx, apiKey)
	if err != nil {
		return 0, err
	}

	if vendorID == 0 {
		return 0, errors.New("key doesn't exist")
	}

	return vendorID, nil
}

func (s *apiKeyService) List(ctx context.Context, vendorID int64) ([]*models.ApiKey, error) {
	apiKeys, err := s.k.ListByVendorID(ctx, vendorID)
	if err != nil {
		return nil, fmt.Errorf("error getting API keys")
	}
	return apiKeys, nil
}

func (s *apiKeyService) RemoveAPIKey(ctx context.Context, vendorID, keyID int64) error {
	if vendorID == 0 {
		err := errors.New("vendor is not valid")
		slog.Info(err.Error())
		return err
	}
	if keyID == 0 {
		err := errors.New("key id is not valid")
		slog.Info(err.Error())
		return err
	}

	return s.k.Remove(ctx, vendorID, keyID)
}
