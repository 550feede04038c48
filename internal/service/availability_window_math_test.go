package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slotline/slotline-api/internal/models"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func recurringRule(day models.Weekday, start, end string, priority int) models.AvailabilityRule {
	return models.AvailabilityRule{
		Kind:        models.RuleKindRecurring,
		DayOfWeek:   &day,
		StartTime:   strPtr(start),
		EndTime:     strPtr(end),
		IsAvailable: true,
		Priority:    priority,
		Active:      true,
	}
}

func TestMergeWindowsUnionsOverlapAndTouch(t *testing.T) {
	merged := mergeWindows([]window{
		{span: span{start: 540, end: 720}},  // 09:00-12:00
		{span: span{start: 720, end: 900}},  // 12:00-15:00 touches
		{span: span{start: 960, end: 1020}}, // 16:00-17:00 separate
	})
	require.Len(t, merged, 2)
	assert.Equal(t, span{start: 540, end: 900}, merged[0].span)
	assert.Equal(t, span{start: 960, end: 1020}, merged[1].span)
}

func TestMergeWindowsKeepsEarliestAttributes(t *testing.T) {
	merged := mergeWindows([]window{
		{span: span{start: 600, end: 780}, bufferMinutes: 10},
		{span: span{start: 540, end: 660}, bufferMinutes: 5, maxBookings: intPtr(3)},
	})
	require.Len(t, merged, 1)
	assert.Equal(t, span{start: 540, end: 780}, merged[0].span)
	assert.Equal(t, 5, merged[0].bufferMinutes)
	require.NotNil(t, merged[0].maxBookings)
	assert.Equal(t, 3, *merged[0].maxBookings)
}

func TestSubtractSpans(t *testing.T) {
	pieces := subtractSpans(span{start: 540, end: 1020}, []span{
		{start: 600, end: 615},
		{start: 720, end: 780},
	})
	require.Len(t, pieces, 3)
	assert.Equal(t, span{start: 540, end: 600}, pieces[0])
	assert.Equal(t, span{start: 615, end: 720}, pieces[1])
	assert.Equal(t, span{start: 780, end: 1020}, pieces[2])
}

func TestSubtractSpansCutCoversBase(t *testing.T) {
	pieces := subtractSpans(span{start: 540, end: 600}, []span{{start: 500, end: 700}})
	assert.Empty(t, pieces)
}

func TestResolveRuleSetSingleRule(t *testing.T) {
	windows, err := resolveRuleSet([]models.AvailabilityRule{
		recurringRule(models.WeekdayMonday, "09:00", "17:00", 0),
	})
	require.NoError(t, err)
	require.Len(t, windows, 1)
	assert.Equal(t, span{start: 540, end: 1020}, windows[0].span)
}

func TestResolveRuleSetHigherPriorityReplaces(t *testing.T) {
	windows, err := resolveRuleSet([]models.AvailabilityRule{
		recurringRule(models.WeekdayMonday, "09:00", "17:00", 0),
		recurringRule(models.WeekdayMonday, "10:00", "14:00", 5),
	})
	require.NoError(t, err)
	require.Len(t, windows, 1)
	assert.Equal(t, span{start: 600, end: 840}, windows[0].span)
}

func TestResolveRuleSetEqualPriorityUnions(t *testing.T) {
	windows, err := resolveRuleSet([]models.AvailabilityRule{
		recurringRule(models.WeekdayMonday, "09:00", "12:00", 1),
		recurringRule(models.WeekdayMonday, "11:00", "15:00", 1),
	})
	require.NoError(t, err)
	require.Len(t, windows, 1)
	assert.Equal(t, span{start: 540, end: 900}, windows[0].span)
}

func TestResolveRuleSetSubtractsBreaks(t *testing.T) {
	rule := recurringRule(models.WeekdayMonday, "09:00", "17:00", 0)
	rule.Breaks = []byte(`[{"start":"10:00","end":"10:15"}]`)

	windows, err := resolveRuleSet([]models.AvailabilityRule{rule})
	require.NoError(t, err)
	require.Len(t, windows, 2)
	assert.Equal(t, span{start: 540, end: 600}, windows[0].span)
	assert.Equal(t, span{start: 615, end: 1020}, windows[1].span)
}

func TestResolveRuleSetIgnoresUnavailableRules(t *testing.T) {
	unavailable := recurringRule(models.WeekdayMonday, "09:00", "17:00", 9)
	unavailable.IsAvailable = false

	windows, err := resolveRuleSet([]models.AvailabilityRule{
		unavailable,
		recurringRule(models.WeekdayMonday, "10:00", "12:00", 1),
	})
	require.NoError(t, err)
	require.Len(t, windows, 1)
	assert.Equal(t, span{start: 600, end: 720}, windows[0].span)
}

func TestResolveRuleSetEmpty(t *testing.T) {
	windows, err := resolveRuleSet(nil)
	require.NoError(t, err)
	assert.Empty(t, windows)
}

func TestWindowsToModelFormatsClocks(t *testing.T) {
	result := windowsToModel([]window{
		{span: span{start: 540, end: 1020}, bufferMinutes: 15, maxBookings: intPtr(8)},
	})
	require.Len(t, result, 1)
	assert.Equal(t, "09:00", result[0].Start)
	assert.Equal(t, "17:00", result[0].End)
	assert.Equal(t, 15, result[0].BufferMinutes)
	require.NotNil(t, result[0].MaxBookings)
	assert.Equal(t, 8, *result[0].MaxBookings)
}
