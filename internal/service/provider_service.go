package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/slotline/slotline-api/internal/models"
	appErrors "github.com/slotline/slotline-api/pkg/errors"
)

// ProviderService reads the provider directory. Providers are managed by
// the upstream platform; this service only exposes them.
type ProviderService struct {
	repo   providerRepository
	logger *zap.Logger
}

// NewProviderService builds the service.
func NewProviderService(repo providerRepository, logger *zap.Logger) *ProviderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProviderService{repo: repo, logger: logger}
}

// Get returns a provider by id.
func (s *ProviderService) Get(ctx context.Context, id string) (*models.Provider, error) {
	provider, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "provider not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load provider")
	}
	return provider, nil
}

// ListActive returns all active providers.
func (s *ProviderService) ListActive(ctx context.Context) ([]models.Provider, error) {
	providers, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list providers")
	}
	return providers, nil
}
