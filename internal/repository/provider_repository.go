package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/slotline/slotline-api/internal/models"
)

// ProviderRepository reads provider rows. Providers are managed by the
// platform API; this service only consumes them.
type ProviderRepository struct {
	db *sqlx.DB
}

// NewProviderRepository constructs the repository.
func NewProviderRepository(db *sqlx.DB) *ProviderRepository {
	return &ProviderRepository{db: db}
}

// FindByID returns a single provider.
func (r *ProviderRepository) FindByID(ctx context.Context, id string) (*models.Provider, error) {
	const query = `SELECT id, organization_id, business_name, timezone, active, created_at, updated_at
FROM providers WHERE id = $1`
	var provider models.Provider
	if err := r.db.GetContext(ctx, &provider, query, id); err != nil {
		return nil, err
	}
	return &provider, nil
}

// ListActive returns every active provider, ordered for stable sweeps.
func (r *ProviderRepository) ListActive(ctx context.Context) ([]models.Provider, error) {
	const query = `SELECT id, organization_id, business_name, timezone, active, created_at, updated_at
FROM providers WHERE active = TRUE ORDER BY created_at ASC, id ASC`
	var providers []models.Provider
	if err := r.db.SelectContext(ctx, &providers, query); err != nil {
		return nil, fmt.Errorf("list active providers: %w", err)
	}
	return providers, nil
}
