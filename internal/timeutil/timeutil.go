package timeutil

import (
	"errors"
	"strings"
	"time"
)

var ErrInvalidPeriod = errors.New("invalid period")

// Period selects a calendar reporting granularity.
type Period string

const (
	PeriodYear  Period = "year"
	PeriodMonth Period = "month"
	PeriodDay   Period = "day"
)

const dateLayout = "2006-01-02"

// Window represents a normalized [start, end) reporting range anchored to a
// location.
type Window struct {
	label string
	start time.Time
	end   time.Time
	loc   *time.Location
}

// EnsureLocation returns UTC when loc is nil.
func EnsureLocation(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}

// ParsePeriod normalizes a period string.
func ParsePeriod(raw string) (Period, error) {
	switch Period(strings.ToLower(strings.TrimSpace(raw))) {
	case PeriodYear:
		return PeriodYear, nil
	case PeriodMonth:
		return PeriodMonth, nil
	case PeriodDay:
		return PeriodDay, nil
	default:
		return "", ErrInvalidPeriod
	}
}

// PeriodWindow builds the calendar window the period/date pair describes:
// "year" + "2026", "month" + "2026-03", or "day" + "2026-03-15".
func PeriodWindow(period Period, date string, loc *time.Location) (Window, error) {
	loc = EnsureLocation(loc)
	date = strings.TrimSpace(date)
	var start, end time.Time
	switch period {
	case PeriodYear:
		t, err := time.ParseInLocation("2006", date, loc)
		if err != nil {
			return Window{}, ErrInvalidPeriod
		}
		start = t
		end = start.AddDate(1, 0, 0)
	case PeriodMonth:
		t, err := time.ParseInLocation("2006-01", date, loc)
		if err != nil {
			return Window{}, ErrInvalidPeriod
		}
		start = t
		end = start.AddDate(0, 1, 0)
	case PeriodDay:
		t, err := time.ParseInLocation(dateLayout, date, loc)
		if err != nil {
			return Window{}, ErrInvalidPeriod
		}
		start = t
		end = start.AddDate(0, 0, 1)
	default:
		return Window{}, ErrInvalidPeriod
	}
	return Window{label: string(period) + ":" + date, start: start, end: end, loc: loc}, nil
}

// ParseDateRange builds a window from inclusive YYYY-MM-DD bounds. The end
// date is widened to the start of the following day so the range covers it
// fully.
func ParseDateRange(startDate, endDate string, loc *time.Location) (Window, error) {
	loc = EnsureLocation(loc)
	start, err := time.ParseInLocation(dateLayout, strings.TrimSpace(startDate), loc)
	if err != nil {
		return Window{}, ErrInvalidPeriod
	}
	endDay, err := time.ParseInLocation(dateLayout, strings.TrimSpace(endDate), loc)
	if err != nil {
		return Window{}, ErrInvalidPeriod
	}
	end := endDay.AddDate(0, 0, 1)
	if !end.After(start) {
		return Window{}, ErrInvalidPeriod
	}
	return Window{label: startDate + ".." + endDate, start: start, end: end, loc: loc}, nil
}

// Label returns the normalized range label (used in cache keys).
func (w Window) Label() string { return w.label }

// Start returns the inclusive start of the window.
func (w Window) Start() time.Time { return w.start }

// End returns the exclusive end of the window.
func (w Window) End() time.Time { return w.end }

// Bounds returns the start/end timestamps.
func (w Window) Bounds() (time.Time, time.Time) { return w.start, w.end }

// Location returns the reporting timezone for the window.
func (w Window) Location() *time.Location { return EnsureLocation(w.loc) }

// Timezone returns the location name for JSON responses.
func (w Window) Timezone() string { return w.Location().String() }

// StartString returns the start timestamp formatted as RFC3339 in the window's zone.
func (w Window) StartString() string { return w.start.In(w.Location()).Format(time.RFC3339) }

// EndString returns the end timestamp formatted as RFC3339 in the window's zone.
func (w Window) EndString() string { return w.end.In(w.Location()).Format(time.RFC3339) }

// Contains reports whether the timestamp falls within [start, end).
func (w Window) Contains(ts time.Time) bool {
	return !ts.Before(w.start) && ts.Before(w.end)
}

// TruncateToDay normalizes the timestamp to midnight in the provided zone.
func TruncateToDay(t time.Time, loc *time.Location) time.Time {
	loc = EnsureLocation(loc)
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// DayLabel formats the timestamp's calendar date in the provided zone.
func DayLabel(t time.Time, loc *time.Location) string {
	return t.In(EnsureLocation(loc)).Format(dateLayout)
}

// BucketLabel returns the series bucket a timestamp falls into for the given
// period: months of a year, days of a month, or hours of a day.
func BucketLabel(t time.Time, period Period, loc *time.Location) string {
	t = t.In(EnsureLocation(loc))
	switch period {
	case PeriodYear:
		return t.Format("2006-01")
	case PeriodMonth:
		return t.Format(dateLayout)
	default:
		return t.Format("15")
	}
}
