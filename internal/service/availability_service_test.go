package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/slotline/slotline-api/internal/models"
	appErrors "github.com/slotline/slotline-api/pkg/errors"
)

type providerRepoStub struct {
	providers map[string]*models.Provider
	err       error
}

func (s *providerRepoStub) FindByID(ctx context.Context, id string) (*models.Provider, error) {
	if s.err != nil {
		return nil, s.err
	}
	if p, ok := s.providers[id]; ok {
		return p, nil
	}
	return nil, sql.ErrNoRows
}

func (s *providerRepoStub) ListActive(ctx context.Context) ([]models.Provider, error) {
	if s.err != nil {
		return nil, s.err
	}
	var result []models.Provider
	for _, p := range s.providers {
		if p.Active {
			result = append(result, *p)
		}
	}
	return result, nil
}

type availabilityRepoStub struct {
	rules      map[string]*models.AvailabilityRule
	recurring  []models.AvailabilityRule
	dateRules  []models.AvailabilityRule
	exceptions []models.AvailabilityException
	created    []*models.AvailabilityRule
	updated    []*models.AvailabilityRule
	deleted    []string
}

func (s *availabilityRepoStub) GetRuleByID(ctx context.Context, id string) (*models.AvailabilityRule, error) {
	if rule, ok := s.rules[id]; ok {
		return rule, nil
	}
	return nil, sql.ErrNoRows
}

func (s *availabilityRepoStub) ListRulesByProvider(ctx context.Context, providerID string) ([]models.AvailabilityRule, error) {
	return append(append([]models.AvailabilityRule{}, s.recurring...), s.dateRules...), nil
}

func (s *availabilityRepoStub) ListRecurringForWeekday(ctx context.Context, providerID string, day models.Weekday) ([]models.AvailabilityRule, error) {
	var result []models.AvailabilityRule
	for _, rule := range s.recurring {
		if rule.DayOfWeek != nil && *rule.DayOfWeek == day {
			result = append(result, rule)
		}
	}
	return result, nil
}

func (s *availabilityRepoStub) ListDateRulesFor(ctx context.Context, providerID string, date time.Time) ([]models.AvailabilityRule, error) {
	var result []models.AvailabilityRule
	for _, rule := range s.dateRules {
		if rule.SpecificDate != nil && rule.SpecificDate.Equal(date) {
			result = append(result, rule)
		}
	}
	return result, nil
}

func (s *availabilityRepoStub) CreateRule(ctx context.Context, rule *models.AvailabilityRule) error {
	s.created = append(s.created, rule)
	return nil
}

func (s *availabilityRepoStub) UpdateRule(ctx context.Context, rule *models.AvailabilityRule) error {
	s.updated = append(s.updated, rule)
	return nil
}

func (s *availabilityRepoStub) DeleteRule(ctx context.Context, id string) (bool, error) {
	s.deleted = append(s.deleted, id)
	_, ok := s.rules[id]
	return ok, nil
}

func (s *availabilityRepoStub) ListExceptionsCovering(ctx context.Context, providerID string, date time.Time) ([]models.AvailabilityException, error) {
	var result []models.AvailabilityException
	for _, exc := range s.exceptions {
		if exc.Covers(date) {
			result = append(result, exc)
		}
	}
	return result, nil
}

func (s *availabilityRepoStub) ListExceptionsByProvider(ctx context.Context, providerID string) ([]models.AvailabilityException, error) {
	return s.exceptions, nil
}

func (s *availabilityRepoStub) CreateException(ctx context.Context, exc *models.AvailabilityException) error {
	return nil
}

func knownProviders(ids ...string) *providerRepoStub {
	stub := &providerRepoStub{providers: map[string]*models.Provider{}}
	for _, id := range ids {
		stub.providers[id] = &models.Provider{ID: id, Active: true}
	}
	return stub
}

func newAvailabilityService(repo *availabilityRepoStub, providers *providerRepoStub) *AvailabilityService {
	cache := NewCacheService(nil, nil, time.Minute, zap.NewNop(), false)
	return NewAvailabilityService(repo, providers, cache, time.Minute, nil, zap.NewNop())
}

// 2024-01-08 is a Monday.
var monday = time.Date(2024, time.January, 8, 0, 0, 0, 0, time.UTC)

func TestResolveRecurringMonday(t *testing.T) {
	repo := &availabilityRepoStub{
		recurring: []models.AvailabilityRule{recurringRule(models.WeekdayMonday, "09:00", "17:00", 0)},
	}
	svc := newAvailabilityService(repo, knownProviders("prov-1"))

	windows, err := svc.Resolve(context.Background(), "prov-1", monday)
	require.NoError(t, err)
	require.Len(t, windows, 1)
	assert.Equal(t, "09:00", windows[0].Start)
	assert.Equal(t, "17:00", windows[0].End)
}

func TestResolveNoRuleForWeekday(t *testing.T) {
	repo := &availabilityRepoStub{
		recurring: []models.AvailabilityRule{recurringRule(models.WeekdayTuesday, "09:00", "17:00", 0)},
	}
	svc := newAvailabilityService(repo, knownProviders("prov-1"))

	windows, err := svc.Resolve(context.Background(), "prov-1", monday)
	require.NoError(t, err)
	assert.Empty(t, windows)
}

func TestResolveUnknownProvider(t *testing.T) {
	svc := newAvailabilityService(&availabilityRepoStub{}, knownProviders())

	_, err := svc.Resolve(context.Background(), "ghost", monday)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestResolveVacationExceptionBlocksDay(t *testing.T) {
	repo := &availabilityRepoStub{
		recurring: []models.AvailabilityRule{recurringRule(models.WeekdayMonday, "09:00", "17:00", 0)},
		exceptions: []models.AvailabilityException{{
			StartDate:     monday.AddDate(0, 0, -2),
			EndDate:       monday.AddDate(0, 0, 5),
			ExceptionType: "vacation",
			IsAvailable:   false,
			Active:        true,
		}},
	}
	svc := newAvailabilityService(repo, knownProviders("prov-1"))

	windows, err := svc.Resolve(context.Background(), "prov-1", monday)
	require.NoError(t, err)
	assert.Empty(t, windows)
}

func TestResolveCustomHoursReplaceWindows(t *testing.T) {
	repo := &availabilityRepoStub{
		recurring: []models.AvailabilityRule{recurringRule(models.WeekdayMonday, "09:00", "17:00", 0)},
		exceptions: []models.AvailabilityException{{
			StartDate:     monday,
			EndDate:       monday,
			ExceptionType: "modified_hours",
			IsAvailable:   true,
			CustomHours:   []byte(`{"monday":{"start":"12:00","end":"15:00"}}`),
			Active:        true,
		}},
	}
	svc := newAvailabilityService(repo, knownProviders("prov-1"))

	windows, err := svc.Resolve(context.Background(), "prov-1", monday)
	require.NoError(t, err)
	require.Len(t, windows, 1)
	assert.Equal(t, "12:00", windows[0].Start)
	assert.Equal(t, "15:00", windows[0].End)
	assert.Zero(t, windows[0].BufferMinutes)
	assert.Nil(t, windows[0].MaxBookings)
}

func TestResolveSpecialRuleReplacesRecurring(t *testing.T) {
	date := monday
	repo := &availabilityRepoStub{
		recurring: []models.AvailabilityRule{recurringRule(models.WeekdayMonday, "09:00", "17:00", 0)},
		dateRules: []models.AvailabilityRule{{
			Kind:         models.RuleKindSpecial,
			SpecificDate: &date,
			StartTime:    strPtr("13:00"),
			EndTime:      strPtr("16:00"),
			IsAvailable:  true,
			Active:       true,
		}},
	}
	svc := newAvailabilityService(repo, knownProviders("prov-1"))

	windows, err := svc.Resolve(context.Background(), "prov-1", monday)
	require.NoError(t, err)
	require.Len(t, windows, 1)
	assert.Equal(t, "13:00", windows[0].Start)
	assert.Equal(t, "16:00", windows[0].End)
}

func TestResolveBlockedDateRule(t *testing.T) {
	date := monday
	repo := &availabilityRepoStub{
		recurring: []models.AvailabilityRule{recurringRule(models.WeekdayMonday, "09:00", "17:00", 0)},
		dateRules: []models.AvailabilityRule{{
			Kind:         models.RuleKindException,
			SpecificDate: &date,
			IsAvailable:  false,
			Active:       true,
		}},
	}
	svc := newAvailabilityService(repo, knownProviders("prov-1"))

	windows, err := svc.Resolve(context.Background(), "prov-1", monday)
	require.NoError(t, err)
	assert.Empty(t, windows)
}

func TestCreateRuleRejectsBreakOutsideWindow(t *testing.T) {
	svc := newAvailabilityService(&availabilityRepoStub{}, knownProviders("prov-1"))

	day := models.WeekdayMonday
	_, err := svc.CreateRule(context.Background(), "prov-1", RulePayload{
		Kind:      models.RuleKindRecurring,
		DayOfWeek: &day,
		StartTime: strPtr("09:00"),
		EndTime:   strPtr("12:00"),
		Breaks:    []models.BreakPeriod{{Start: "13:00", End: "14:00"}},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCreateRuleStoresValidRule(t *testing.T) {
	repo := &availabilityRepoStub{}
	svc := newAvailabilityService(repo, knownProviders("prov-1"))

	day := models.WeekdayFriday
	rule, err := svc.CreateRule(context.Background(), "prov-1", RulePayload{
		Kind:      models.RuleKindRecurring,
		DayOfWeek: &day,
		StartTime: strPtr("08:00"),
		EndTime:   strPtr("16:00"),
		Breaks:    []models.BreakPeriod{{Start: "12:00", End: "12:30", Label: "lunch"}},
	})
	require.NoError(t, err)
	require.Len(t, repo.created, 1)
	assert.True(t, rule.IsAvailable)
	assert.True(t, rule.Active)
	assert.Equal(t, "prov-1", rule.ProviderID)
}

func TestDeleteRuleUnknown(t *testing.T) {
	svc := newAvailabilityService(&availabilityRepoStub{rules: map[string]*models.AvailabilityRule{}}, knownProviders("prov-1"))

	err := svc.DeleteRule(context.Background(), "rule-404")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestWeeklyScheduleSplitsRules(t *testing.T) {
	date := monday
	repo := &availabilityRepoStub{
		recurring: []models.AvailabilityRule{recurringRule(models.WeekdayMonday, "09:00", "17:00", 0)},
		dateRules: []models.AvailabilityRule{{
			Kind:         models.RuleKindSpecial,
			SpecificDate: &date,
			StartTime:    strPtr("10:00"),
			EndTime:      strPtr("12:00"),
			IsAvailable:  true,
			Active:       true,
		}},
	}
	svc := newAvailabilityService(repo, knownProviders("prov-1"))

	schedule, err := svc.WeeklySchedule(context.Background(), "prov-1")
	require.NoError(t, err)
	assert.Len(t, schedule.Days[models.WeekdayMonday], 1)
	assert.Len(t, schedule.DateRules, 1)
}
