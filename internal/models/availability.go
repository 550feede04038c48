package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Weekday names match the lowercase values stored on recurring rules.
type Weekday string

const (
	WeekdayMonday    Weekday = "monday"
	WeekdayTuesday   Weekday = "tuesday"
	WeekdayWednesday Weekday = "wednesday"
	WeekdayThursday  Weekday = "thursday"
	WeekdayFriday    Weekday = "friday"
	WeekdaySaturday  Weekday = "saturday"
	WeekdaySunday    Weekday = "sunday"
)

// Valid returns true when the weekday is a supported value.
func (d Weekday) Valid() bool {
	switch d {
	case WeekdayMonday, WeekdayTuesday, WeekdayWednesday, WeekdayThursday,
		WeekdayFriday, WeekdaySaturday, WeekdaySunday:
		return true
	default:
		return false
	}
}

var weekdayByTime = map[time.Weekday]Weekday{
	time.Monday:    WeekdayMonday,
	time.Tuesday:   WeekdayTuesday,
	time.Wednesday: WeekdayWednesday,
	time.Thursday:  WeekdayThursday,
	time.Friday:    WeekdayFriday,
	time.Saturday:  WeekdaySaturday,
	time.Sunday:    WeekdaySunday,
}

// WeekdayOf maps a calendar date onto its rule weekday.
func WeekdayOf(t time.Time) Weekday {
	return weekdayByTime[t.Weekday()]
}

// RuleKind discriminates availability rule variants.
type RuleKind string

const (
	RuleKindRecurring RuleKind = "recurring"
	RuleKindException RuleKind = "exception"
	RuleKindSpecial   RuleKind = "special"
)

// Valid returns true when the kind is a supported value.
func (k RuleKind) Valid() bool {
	switch k {
	case RuleKindRecurring, RuleKindException, RuleKindSpecial:
		return true
	default:
		return false
	}
}

// ParseClock converts an "HH:MM" clock value into minutes from midnight.
func ParseClock(raw string) (int, error) {
	var hh, mm int
	if _, err := fmt.Sscanf(raw, "%2d:%2d", &hh, &mm); err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", raw, err)
	}
	if hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return 0, fmt.Errorf("parse clock %q: out of range", raw)
	}
	return hh*60 + mm, nil
}

// FormatClock renders minutes from midnight as "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// BreakPeriod is a pause inside an availability window.
type BreakPeriod struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Label string `json:"label,omitempty"`
}

// ClockRange is a start/end pair of "HH:MM" clock values.
type ClockRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// AvailabilityRule defines when a provider can take bookings. Recurring
// rules repeat weekly; exception and special rules target one date.
type AvailabilityRule struct {
	ID            string         `db:"id" json:"id"`
	ProviderID    string         `db:"provider_id" json:"provider_id"`
	Kind          RuleKind       `db:"kind" json:"kind"`
	DayOfWeek     *Weekday       `db:"day_of_week" json:"day_of_week,omitempty"`
	StartTime     *string        `db:"start_time" json:"start_time,omitempty"`
	EndTime       *string        `db:"end_time" json:"end_time,omitempty"`
	SpecificDate  *time.Time     `db:"specific_date" json:"specific_date,omitempty"`
	IsAvailable   bool           `db:"is_available" json:"is_available"`
	Breaks        types.JSONText `db:"breaks" json:"breaks"`
	MaxBookings   *int           `db:"max_bookings" json:"max_bookings,omitempty"`
	BufferMinutes int            `db:"buffer_minutes" json:"buffer_minutes"`
	Priority      int            `db:"priority" json:"priority"`
	Active        bool           `db:"active" json:"active"`
	Notes         *string        `db:"notes" json:"notes,omitempty"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// DecodeBreaks unmarshals the stored break list.
func (r *AvailabilityRule) DecodeBreaks() ([]BreakPeriod, error) {
	if len(r.Breaks) == 0 {
		return nil, nil
	}
	var breaks []BreakPeriod
	if err := json.Unmarshal(r.Breaks, &breaks); err != nil {
		return nil, fmt.Errorf("decode breaks for rule %s: %w", r.ID, err)
	}
	return breaks, nil
}

// Validate enforces the rule's construction invariants: the kind
// discriminator fields, end after start, and breaks that are contained in
// the window and mutually non-overlapping.
func (r *AvailabilityRule) Validate() error {
	if !r.Kind.Valid() {
		return fmt.Errorf("unknown rule kind %q", r.Kind)
	}

	switch r.Kind {
	case RuleKindRecurring:
		if r.DayOfWeek == nil || !r.DayOfWeek.Valid() {
			return fmt.Errorf("recurring rule requires a valid day_of_week")
		}
		if r.SpecificDate != nil {
			return fmt.Errorf("recurring rule must not carry specific_date")
		}
	case RuleKindException, RuleKindSpecial:
		if r.SpecificDate == nil {
			return fmt.Errorf("%s rule requires specific_date", r.Kind)
		}
		if r.DayOfWeek != nil {
			return fmt.Errorf("%s rule must not carry day_of_week", r.Kind)
		}
	}

	needsWindow := r.Kind == RuleKindRecurring || r.Kind == RuleKindSpecial
	if !needsWindow {
		return nil
	}

	if r.StartTime == nil || r.EndTime == nil {
		return fmt.Errorf("%s rule requires start_time and end_time", r.Kind)
	}
	start, err := ParseClock(*r.StartTime)
	if err != nil {
		return err
	}
	end, err := ParseClock(*r.EndTime)
	if err != nil {
		return err
	}
	if end <= start {
		return fmt.Errorf("end_time %s must be after start_time %s", *r.EndTime, *r.StartTime)
	}

	breaks, err := r.DecodeBreaks()
	if err != nil {
		return err
	}
	prevEnd := -1
	lastStart := -1
	for _, b := range breaks {
		bs, err := ParseClock(b.Start)
		if err != nil {
			return err
		}
		be, err := ParseClock(b.End)
		if err != nil {
			return err
		}
		if be <= bs {
			return fmt.Errorf("break %s-%s is empty or inverted", b.Start, b.End)
		}
		if bs < start || be > end {
			return fmt.Errorf("break %s-%s falls outside window %s-%s", b.Start, b.End, *r.StartTime, *r.EndTime)
		}
		if bs < lastStart {
			return fmt.Errorf("breaks must be ordered by start time")
		}
		if bs < prevEnd {
			return fmt.Errorf("break %s-%s overlaps the previous break", b.Start, b.End)
		}
		lastStart = bs
		prevEnd = be
	}
	return nil
}

// AvailabilityException blocks or rewrites availability for an inclusive
// date range (vacation, holiday, custom opening hours).
type AvailabilityException struct {
	ID            string         `db:"id" json:"id"`
	ProviderID    string         `db:"provider_id" json:"provider_id"`
	StartDate     time.Time      `db:"start_date" json:"start_date"`
	EndDate       time.Time      `db:"end_date" json:"end_date"`
	ExceptionType string         `db:"exception_type" json:"exception_type"`
	IsAvailable   bool           `db:"is_available" json:"is_available"`
	CustomHours   types.JSONText `db:"custom_hours" json:"custom_hours,omitempty"`
	Title         string         `db:"title" json:"title"`
	Description   *string        `db:"description" json:"description,omitempty"`
	Active        bool           `db:"active" json:"active"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// Covers reports whether the exception's inclusive date range contains day.
func (e *AvailabilityException) Covers(day time.Time) bool {
	d := day.Truncate(24 * time.Hour)
	return !d.Before(e.StartDate.Truncate(24*time.Hour)) && !d.After(e.EndDate.Truncate(24*time.Hour))
}

// DecodeCustomHours unmarshals the optional per-weekday hour overrides.
func (e *AvailabilityException) DecodeCustomHours() (map[Weekday]ClockRange, error) {
	if len(e.CustomHours) == 0 {
		return nil, nil
	}
	var hours map[Weekday]ClockRange
	if err := json.Unmarshal(e.CustomHours, &hours); err != nil {
		return nil, fmt.Errorf("decode custom hours for exception %s: %w", e.ID, err)
	}
	return hours, nil
}

// Validate enforces the exception's construction invariants.
func (e *AvailabilityException) Validate() error {
	if e.EndDate.Before(e.StartDate) {
		return fmt.Errorf("end_date must not precede start_date")
	}
	if e.ExceptionType == "" {
		return fmt.Errorf("exception_type is required")
	}
	hours, err := e.DecodeCustomHours()
	if err != nil {
		return err
	}
	for day, rng := range hours {
		if !day.Valid() {
			return fmt.Errorf("unknown weekday %q in custom hours", day)
		}
		start, err := ParseClock(rng.Start)
		if err != nil {
			return err
		}
		end, err := ParseClock(rng.End)
		if err != nil {
			return err
		}
		if end <= start {
			return fmt.Errorf("custom hours for %s are empty or inverted", day)
		}
	}
	return nil
}

// TimeWindow is one bookable interval produced by availability resolution.
type TimeWindow struct {
	Start         string `json:"start"`
	End           string `json:"end"`
	BufferMinutes int    `json:"buffer_minutes"`
	MaxBookings   *int   `json:"max_bookings,omitempty"`
}
