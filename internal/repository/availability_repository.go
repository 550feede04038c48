package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/slotline/slotline-api/internal/models"
)

const availabilityRuleColumns = `id, provider_id, kind, day_of_week, start_time, end_time, specific_date,
is_available, breaks, max_bookings, buffer_minutes, priority, active, notes, created_at, updated_at`

const availabilityExceptionColumns = `id, provider_id, start_date, end_date, exception_type, is_available,
custom_hours, title, description, active, created_at, updated_at`

// AvailabilityRepository persists availability rules and exceptions.
type AvailabilityRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRepository constructs the repository.
func NewAvailabilityRepository(db *sqlx.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

// GetRuleByID returns a single rule.
func (r *AvailabilityRepository) GetRuleByID(ctx context.Context, id string) (*models.AvailabilityRule, error) {
	query := fmt.Sprintf(`SELECT %s FROM availability_rules WHERE id = $1`, availabilityRuleColumns)
	var rule models.AvailabilityRule
	if err := r.db.GetContext(ctx, &rule, query, id); err != nil {
		return nil, err
	}
	return &rule, nil
}

// ListRulesByProvider returns every active rule for a provider, recurring
// ones first, ordered by weekday and start time.
func (r *AvailabilityRepository) ListRulesByProvider(ctx context.Context, providerID string) ([]models.AvailabilityRule, error) {
	query := fmt.Sprintf(`SELECT %s FROM availability_rules
WHERE provider_id = $1 AND active = TRUE
ORDER BY kind ASC, day_of_week ASC, start_time ASC`, availabilityRuleColumns)
	var rules []models.AvailabilityRule
	if err := r.db.SelectContext(ctx, &rules, query, providerID); err != nil {
		return nil, fmt.Errorf("list availability rules: %w", err)
	}
	return rules, nil
}

// ListRecurringForWeekday returns active recurring rules for one weekday,
// highest priority first.
func (r *AvailabilityRepository) ListRecurringForWeekday(ctx context.Context, providerID string, day models.Weekday) ([]models.AvailabilityRule, error) {
	query := fmt.Sprintf(`SELECT %s FROM availability_rules
WHERE provider_id = $1 AND kind = 'recurring' AND day_of_week = $2 AND active = TRUE
ORDER BY priority DESC, start_time ASC`, availabilityRuleColumns)
	var rules []models.AvailabilityRule
	if err := r.db.SelectContext(ctx, &rules, query, providerID, day); err != nil {
		return nil, fmt.Errorf("list recurring rules: %w", err)
	}
	return rules, nil
}

// ListDateRulesFor returns active exception/special rules pinned to a date.
func (r *AvailabilityRepository) ListDateRulesFor(ctx context.Context, providerID string, date time.Time) ([]models.AvailabilityRule, error) {
	query := fmt.Sprintf(`SELECT %s FROM availability_rules
WHERE provider_id = $1 AND kind IN ('exception', 'special') AND specific_date = $2 AND active = TRUE
ORDER BY priority DESC, start_time ASC`, availabilityRuleColumns)
	var rules []models.AvailabilityRule
	if err := r.db.SelectContext(ctx, &rules, query, providerID, date); err != nil {
		return nil, fmt.Errorf("list date rules: %w", err)
	}
	return rules, nil
}

// CreateRule inserts a new availability rule.
func (r *AvailabilityRepository) CreateRule(ctx context.Context, rule *models.AvailabilityRule) error {
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}
	rule.UpdatedAt = now
	if len(rule.Breaks) == 0 {
		rule.Breaks = []byte("[]")
	}

	const query = `INSERT INTO availability_rules
(id, provider_id, kind, day_of_week, start_time, end_time, specific_date, is_available, breaks,
 max_bookings, buffer_minutes, priority, active, notes, created_at, updated_at)
VALUES (:id, :provider_id, :kind, :day_of_week, :start_time, :end_time, :specific_date, :is_available, :breaks,
 :max_bookings, :buffer_minutes, :priority, :active, :notes, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, rule); err != nil {
		return fmt.Errorf("insert availability rule: %w", err)
	}
	return nil
}

// UpdateRule rewrites a rule's mutable fields.
func (r *AvailabilityRepository) UpdateRule(ctx context.Context, rule *models.AvailabilityRule) error {
	rule.UpdatedAt = time.Now().UTC()
	if len(rule.Breaks) == 0 {
		rule.Breaks = []byte("[]")
	}

	const query = `UPDATE availability_rules
SET kind = :kind, day_of_week = :day_of_week, start_time = :start_time, end_time = :end_time,
    specific_date = :specific_date, is_available = :is_available, breaks = :breaks,
    max_bookings = :max_bookings, buffer_minutes = :buffer_minutes, priority = :priority,
    active = :active, notes = :notes, updated_at = :updated_at
WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, rule)
	if err != nil {
		return fmt.Errorf("update availability rule: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return fmt.Errorf("availability rule %s not found", rule.ID)
	}
	return nil
}

// DeleteRule removes a rule.
func (r *AvailabilityRepository) DeleteRule(ctx context.Context, id string) (bool, error) {
	const query = `DELETE FROM availability_rules WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("delete availability rule: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete availability rule: %w", err)
	}
	return rows > 0, nil
}

// ListExceptionsCovering returns active exceptions whose range contains date.
func (r *AvailabilityRepository) ListExceptionsCovering(ctx context.Context, providerID string, date time.Time) ([]models.AvailabilityException, error) {
	query := fmt.Sprintf(`SELECT %s FROM availability_exceptions
WHERE provider_id = $1 AND start_date <= $2 AND end_date >= $2 AND active = TRUE
ORDER BY start_date ASC, created_at ASC`, availabilityExceptionColumns)
	var exceptions []models.AvailabilityException
	if err := r.db.SelectContext(ctx, &exceptions, query, providerID, date); err != nil {
		return nil, fmt.Errorf("list exceptions covering date: %w", err)
	}
	return exceptions, nil
}

// ListExceptionsByProvider returns all active exceptions for a provider.
func (r *AvailabilityRepository) ListExceptionsByProvider(ctx context.Context, providerID string) ([]models.AvailabilityException, error) {
	query := fmt.Sprintf(`SELECT %s FROM availability_exceptions
WHERE provider_id = $1 AND active = TRUE ORDER BY start_date ASC`, availabilityExceptionColumns)
	var exceptions []models.AvailabilityException
	if err := r.db.SelectContext(ctx, &exceptions, query, providerID); err != nil {
		return nil, fmt.Errorf("list exceptions: %w", err)
	}
	return exceptions, nil
}

// CreateException inserts a new availability exception.
func (r *AvailabilityRepository) CreateException(ctx context.Context, exc *models.AvailabilityException) error {
	if exc.ID == "" {
		exc.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if exc.CreatedAt.IsZero() {
		exc.CreatedAt = now
	}
	exc.UpdatedAt = now

	const query = `INSERT INTO availability_exceptions
(id, provider_id, start_date, end_date, exception_type, is_available, custom_hours, title, description,
 active, created_at, updated_at)
VALUES (:id, :provider_id, :start_date, :end_date, :exception_type, :is_available, :custom_hours, :title,
 :description, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, exc); err != nil {
		return fmt.Errorf("insert availability exception: %w", err)
	}
	return nil
}
