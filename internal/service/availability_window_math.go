package service

import (
	"sort"

	"github.com/slotline/slotline-api/internal/models"
)

// span is a half-open-free minute interval [start, end) measured from
// midnight. All resolution math happens on spans; "HH:MM" strings only
// appear at the model boundary.
type span struct {
	start int
	end   int
}

func (s span) empty() bool { return s.end <= s.start }

// window is a span annotated with the booking attributes of the rule that
// contributed it.
type window struct {
	span
	bufferMinutes int
	maxBookings   *int
	breaks        []span
}

// mergeWindows unions windows that overlap or touch. The merged window
// keeps the attributes of its earliest contributor and the union of all
// contributors' breaks.
func mergeWindows(windows []window) []window {
	if len(windows) == 0 {
		return nil
	}
	sorted := make([]window, len(windows))
	copy(sorted, windows)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].start < sorted[j].start })

	merged := []window{sorted[0]}
	for _, w := range sorted[1:] {
		last := &merged[len(merged)-1]
		if w.start <= last.end {
			if w.end > last.end {
				last.end = w.end
			}
			last.breaks = append(last.breaks, w.breaks...)
			continue
		}
		merged = append(merged, w)
	}
	return merged
}

// subtractBreaks splits each window around its breaks. Sub-intervals keep
// the window's buffer and booking cap.
func subtractBreaks(windows []window) []window {
	var result []window
	for _, w := range windows {
		for _, piece := range subtractSpans(w.span, w.breaks) {
			result = append(result, window{
				span:          piece,
				bufferMinutes: w.bufferMinutes,
				maxBookings:   w.maxBookings,
			})
		}
	}
	return result
}

// subtractSpans removes every cut from base, returning the remaining
// pieces in order. Cuts may overlap each other and extend past base.
func subtractSpans(base span, cuts []span) []span {
	if base.empty() {
		return nil
	}
	sorted := make([]span, 0, len(cuts))
	for _, c := range cuts {
		if !c.empty() {
			sorted = append(sorted, c)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].start < sorted[j].start })

	var pieces []span
	cursor := base.start
	for _, c := range sorted {
		if c.end <= cursor || c.start >= base.end {
			continue
		}
		if c.start > cursor {
			pieces = append(pieces, span{start: cursor, end: c.start})
		}
		if c.end > cursor {
			cursor = c.end
		}
	}
	if cursor < base.end {
		pieces = append(pieces, span{start: cursor, end: base.end})
	}
	return pieces
}

// ruleWindow converts a rule's clock strings and breaks into a window.
// Rules reach this point already validated, so parse errors are reported
// as-is rather than re-validated.
func ruleWindow(rule *models.AvailabilityRule) (window, error) {
	start, err := models.ParseClock(*rule.StartTime)
	if err != nil {
		return window{}, err
	}
	end, err := models.ParseClock(*rule.EndTime)
	if err != nil {
		return window{}, err
	}

	breaks, err := rule.DecodeBreaks()
	if err != nil {
		return window{}, err
	}
	spans := make([]span, 0, len(breaks))
	for _, b := range breaks {
		bs, err := models.ParseClock(b.Start)
		if err != nil {
			return window{}, err
		}
		be, err := models.ParseClock(b.End)
		if err != nil {
			return window{}, err
		}
		spans = append(spans, span{start: bs, end: be})
	}

	return window{
		span:          span{start: start, end: end},
		bufferMinutes: rule.BufferMinutes,
		maxBookings:   rule.MaxBookings,
		breaks:        spans,
	}, nil
}

// resolveRuleSet turns a set of same-day rules into bookable windows:
// only the highest priority layer survives, equal-priority windows that
// overlap or touch are unioned, then breaks are carved out.
func resolveRuleSet(rules []models.AvailabilityRule) ([]window, error) {
	available := make([]models.AvailabilityRule, 0, len(rules))
	for _, rule := range rules {
		if rule.IsAvailable {
			available = append(available, rule)
		}
	}
	if len(available) == 0 {
		return nil, nil
	}

	top := available[0].Priority
	for _, rule := range available[1:] {
		if rule.Priority > top {
			top = rule.Priority
		}
	}

	var windows []window
	for i := range available {
		if available[i].Priority != top {
			continue
		}
		w, err := ruleWindow(&available[i])
		if err != nil {
			return nil, err
		}
		windows = append(windows, w)
	}

	return subtractBreaks(mergeWindows(windows)), nil
}

// windowsToModel renders windows as the public TimeWindow shape.
func windowsToModel(windows []window) []models.TimeWindow {
	result := make([]models.TimeWindow, 0, len(windows))
	for _, w := range windows {
		result = append(result, models.TimeWindow{
			Start:         models.FormatClock(w.start),
			End:           models.FormatClock(w.end),
			BufferMinutes: w.bufferMinutes,
			MaxBookings:   w.maxBookings,
		})
	}
	return result
}
