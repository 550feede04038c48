package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/slotline/slotline-api/internal/models"
	appErrors "github.com/slotline/slotline-api/pkg/errors"
)

type availabilityRepository interface {
	GetRuleByID(ctx context.Context, id string) (*models.AvailabilityRule, error)
	ListRulesByProvider(ctx context.Context, providerID string) ([]models.AvailabilityRule, error)
	ListRecurringForWeekday(ctx context.Context, providerID string, day models.Weekday) ([]models.AvailabilityRule, error)
	ListDateRulesFor(ctx context.Context, providerID string, date time.Time) ([]models.AvailabilityRule, error)
	CreateRule(ctx context.Context, rule *models.AvailabilityRule) error
	UpdateRule(ctx context.Context, rule *models.AvailabilityRule) error
	DeleteRule(ctx context.Context, id string) (bool, error)
	ListExceptionsCovering(ctx context.Context, providerID string, date time.Time) ([]models.AvailabilityException, error)
	ListExceptionsByProvider(ctx context.Context, providerID string) ([]models.AvailabilityException, error)
	CreateException(ctx context.Context, exc *models.AvailabilityException) error
}

type providerRepository interface {
	FindByID(ctx context.Context, id string) (*models.Provider, error)
	ListActive(ctx context.Context) ([]models.Provider, error)
}

// WeeklySchedule is the provider-facing view of all rules and exceptions.
type WeeklySchedule struct {
	ProviderID string                                      `json:"provider_id"`
	Days       map[models.Weekday][]models.AvailabilityRule `json:"days"`
	DateRules  []models.AvailabilityRule                    `json:"date_rules"`
	Exceptions []models.AvailabilityException               `json:"exceptions"`
}

// AvailabilityService resolves providers' recurring rules and date-ranged
// exceptions into concrete bookable windows, and owns rule/exception
// writes so break invariants are enforced on the way in.
type AvailabilityService struct {
	repo      availabilityRepository
	providers providerRepository
	cache     *CacheService
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAvailabilityService builds the service.
func NewAvailabilityService(repo availabilityRepository, providers providerRepository, cache *CacheService, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *AvailabilityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{
		repo:      repo,
		providers: providers,
		cache:     cache,
		cacheTTL:  cacheTTL,
		validator: validate,
		logger:    logger,
	}
}

func availabilityCacheKey(providerID string, date time.Time) string {
	return fmt.Sprintf("availability:provider:%s:date:%s", providerID, date.Format("2006-01-02"))
}

func availabilityCachePattern(providerID string) string {
	return fmt.Sprintf("availability:provider:%s:*", providerID)
}

// Resolve computes the bookable windows for a provider on a date. An
// empty result means the provider is fully unavailable that day.
func (s *AvailabilityService) Resolve(ctx context.Context, providerID string, date time.Time) ([]models.TimeWindow, error) {
	if _, err := s.providers.FindByID(ctx, providerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "provider not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load provider")
	}

	key := availabilityCacheKey(providerID, date)
	var cached []models.TimeWindow
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}

	windows, err := s.resolveDay(ctx, providerID, date)
	if err != nil {
		return nil, err
	}

	result := windowsToModel(windows)
	if err := s.cache.Set(ctx, key, result, s.cacheTTL); err != nil {
		s.logger.Warn("availability cache store failed", zap.String("provider_id", providerID), zap.Error(err))
	}
	return result, nil
}

// resolveDay applies the layering rules: recurring windows for the
// weekday, replaced by any date-pinned rules, then overridden by
// exceptions covering the date.
func (s *AvailabilityService) resolveDay(ctx context.Context, providerID string, date time.Time) ([]window, error) {
	weekday := models.WeekdayOf(date)

	recurring, err := s.repo.ListRecurringForWeekday(ctx, providerID, weekday)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recurring rules")
	}
	// No recurring rule for the weekday means unavailable by default.
	windows, err := resolveRuleSet(recurring)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "malformed recurring rule")
	}

	dateRules, err := s.repo.ListDateRulesFor(ctx, providerID, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load date rules")
	}
	if len(dateRules) > 0 {
		blocked := false
		specials := make([]models.AvailabilityRule, 0, len(dateRules))
		for _, rule := range dateRules {
			if rule.Kind == models.RuleKindException && !rule.IsAvailable {
				blocked = true
				continue
			}
			if rule.Kind == models.RuleKindSpecial {
				specials = append(specials, rule)
			}
		}
		switch {
		case len(specials) > 0:
			// Special hours replace the weekly pattern for this date.
			windows, err = resolveRuleSet(specials)
			if err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "malformed special rule")
			}
		case blocked:
			windows = nil
		}
	}

	exceptions, err := s.repo.ListExceptionsCovering(ctx, providerID, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exceptions")
	}
	for i := range exceptions {
		exc := &exceptions[i]
		hours, err := exc.DecodeCustomHours()
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "malformed custom hours")
		}
		if rng, ok := hours[weekday]; ok {
			start, err := models.ParseClock(rng.Start)
			if err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "malformed custom hours")
			}
			end, err := models.ParseClock(rng.End)
			if err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "malformed custom hours")
			}
			windows = []window{{span: span{start: start, end: end}}}
			continue
		}
		if !exc.IsAvailable {
			windows = nil
		}
	}

	return windows, nil
}

// RulePayload is the write shape shared by rule creation and update.
type RulePayload struct {
	Kind          models.RuleKind      `json:"kind" validate:"required"`
	DayOfWeek     *models.Weekday      `json:"day_of_week,omitempty"`
	StartTime     *string              `json:"start_time,omitempty"`
	EndTime       *string              `json:"end_time,omitempty"`
	SpecificDate  *string              `json:"specific_date,omitempty"`
	IsAvailable   *bool                `json:"is_available,omitempty"`
	Breaks        []models.BreakPeriod `json:"breaks,omitempty"`
	MaxBookings   *int                 `json:"max_bookings,omitempty"`
	BufferMinutes int                  `json:"buffer_minutes" validate:"min=0"`
	Priority      int                  `json:"priority"`
	Notes         *string              `json:"notes,omitempty"`
}

func (s *AvailabilityService) ruleFromPayload(providerID string, req RulePayload) (*models.AvailabilityRule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid rule payload")
	}

	rule := &models.AvailabilityRule{
		ProviderID:    providerID,
		Kind:          req.Kind,
		DayOfWeek:     req.DayOfWeek,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		IsAvailable:   true,
		MaxBookings:   req.MaxBookings,
		BufferMinutes: req.BufferMinutes,
		Priority:      req.Priority,
		Active:        true,
		Notes:         req.Notes,
	}
	if req.IsAvailable != nil {
		rule.IsAvailable = *req.IsAvailable
	}
	if req.SpecificDate != nil {
		date, err := time.Parse("2006-01-02", *req.SpecificDate)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid specific_date")
		}
		rule.SpecificDate = &date
	}
	if len(req.Breaks) > 0 {
		raw, err := json.Marshal(req.Breaks)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid breaks payload")
		}
		rule.Breaks = raw
	}

	if err := rule.Validate(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	return rule, nil
}

// CreateRule validates and stores a new availability rule.
func (s *AvailabilityService) CreateRule(ctx context.Context, providerID string, req RulePayload) (*models.AvailabilityRule, error) {
	if _, err := s.providers.FindByID(ctx, providerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "provider not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load provider")
	}

	rule, err := s.ruleFromPayload(providerID, req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateRule(ctx, rule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store rule")
	}

	if err := s.cache.Invalidate(ctx, availabilityCachePattern(providerID)); err != nil {
		s.logger.Warn("availability cache invalidation failed", zap.String("provider_id", providerID), zap.Error(err))
	}
	return rule, nil
}

// UpdateRule replaces a rule's definition.
func (s *AvailabilityService) UpdateRule(ctx context.Context, ruleID string, req RulePayload) (*models.AvailabilityRule, error) {
	existing, err := s.repo.GetRuleByID(ctx, ruleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "availability rule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rule")
	}

	rule, err := s.ruleFromPayload(existing.ProviderID, req)
	if err != nil {
		return nil, err
	}
	rule.ID = existing.ID
	rule.CreatedAt = existing.CreatedAt

	if err := s.repo.UpdateRule(ctx, rule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update rule")
	}

	if err := s.cache.Invalidate(ctx, availabilityCachePattern(existing.ProviderID)); err != nil {
		s.logger.Warn("availability cache invalidation failed", zap.String("provider_id", existing.ProviderID), zap.Error(err))
	}
	return rule, nil
}

// DeleteRule removes a rule.
func (s *AvailabilityService) DeleteRule(ctx context.Context, ruleID string) error {
	existing, err := s.repo.GetRuleByID(ctx, ruleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "availability rule not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rule")
	}

	deleted, err := s.repo.DeleteRule(ctx, ruleID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete rule")
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrNotFound, "availability rule not found")
	}

	if err := s.cache.Invalidate(ctx, availabilityCachePattern(existing.ProviderID)); err != nil {
		s.logger.Warn("availability cache invalidation failed", zap.String("provider_id", existing.ProviderID), zap.Error(err))
	}
	return nil
}

// ExceptionPayload is the write shape for availability exceptions.
type ExceptionPayload struct {
	StartDate     string                               `json:"start_date" validate:"required"`
	EndDate       string                               `json:"end_date" validate:"required"`
	ExceptionType string                               `json:"exception_type" validate:"required"`
	IsAvailable   bool                                 `json:"is_available"`
	CustomHours   map[models.Weekday]models.ClockRange `json:"custom_hours,omitempty"`
	Title         string                               `json:"title" validate:"required"`
	Description   *string                              `json:"description,omitempty"`
}

// CreateException validates and stores a date-ranged exception.
func (s *AvailabilityService) CreateException(ctx context.Context, providerID string, req ExceptionPayload) (*models.AvailabilityException, error) {
	if _, err := s.providers.FindByID(ctx, providerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "provider not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load provider")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exception payload")
	}

	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid start_date")
	}
	endDate, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid end_date")
	}

	exc := &models.AvailabilityException{
		ProviderID:    providerID,
		StartDate:     startDate,
		EndDate:       endDate,
		ExceptionType: req.ExceptionType,
		IsAvailable:   req.IsAvailable,
		Title:         req.Title,
		Description:   req.Description,
		Active:        true,
	}
	if len(req.CustomHours) > 0 {
		raw, err := json.Marshal(req.CustomHours)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid custom hours payload")
		}
		exc.CustomHours = raw
	}
	if err := exc.Validate(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}

	if err := s.repo.CreateException(ctx, exc); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store exception")
	}

	if err := s.cache.Invalidate(ctx, availabilityCachePattern(providerID)); err != nil {
		s.logger.Warn("availability cache invalidation failed", zap.String("provider_id", providerID), zap.Error(err))
	}
	return exc, nil
}

// WeeklySchedule assembles the full rule/exception view for a provider.
func (s *AvailabilityService) WeeklySchedule(ctx context.Context, providerID string) (*WeeklySchedule, error) {
	if _, err := s.providers.FindByID(ctx, providerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "provider not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load provider")
	}

	rules, err := s.repo.ListRulesByProvider(ctx, providerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rules")
	}
	exceptions, err := s.repo.ListExceptionsByProvider(ctx, providerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exceptions")
	}

	schedule := &WeeklySchedule{
		ProviderID: providerID,
		Days:       make(map[models.Weekday][]models.AvailabilityRule),
		Exceptions: exceptions,
	}
	for _, rule := range rules {
		if rule.Kind == models.RuleKindRecurring && rule.DayOfWeek != nil {
			schedule.Days[*rule.DayOfWeek] = append(schedule.Days[*rule.DayOfWeek], rule)
			continue
		}
		schedule.DateRules = append(schedule.DateRules, rule)
	}
	return schedule, nil
}
