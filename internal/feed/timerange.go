package feed

import (
	"time"

	"github.com/provant-erp/be-prs-dashboard/internal/apperrors"
)

// Window is a half-open time interval [Start, End). Every document the feed
// returns satisfies Start <= updatedAt < End, which lets the store exclude
// chunks entirely outside the window.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Covers reports whether w fully contains other.
func (w Window) Covers(other Window) bool {
	return !other.Start.Before(w.Start) && !other.End.After(w.End)
}

var namedRanges = map[string]func(now time.Time) time.Time{
	"1_week":   func(now time.Time) time.Time { return now.AddDate(0, 0, -7) },
	"1_month":  func(now time.Time) time.Time { return now.AddDate(0, -1, 0) },
	"3_months": func(now time.Time) time.Time { return now.AddDate(0, -3, 0) },
	"6_months": func(now time.Time) time.Time { return now.AddDate(0, -6, 0) },
	"1_year":   func(now time.Time) time.Time { return now.AddDate(-1, 0, 0) },
}

// ResolveWindow turns the request's timeRange token into concrete bounds.
//
//   - "" applies defaultRange
//   - a named range ("1_week", "1_month", "3_months", "6_months", "1_year")
//     resolves to [now-range, now)
//   - an explicit date ("2006-01-02") collapses to that day in loc
//
// Anything else is a validation error.
func ResolveWindow(timeRange string, now time.Time, loc *time.Location, defaultRange string) (Window, error) {
	if timeRange == "" {
		timeRange = defaultRange
	}

	if lower, ok := namedRanges[timeRange]; ok {
		return Window{Start: lower(now), End: now}, nil
	}

	if day, err := time.ParseInLocation("2006-01-02", timeRange, loc); err == nil {
		return Window{Start: day, End: day.AddDate(0, 0, 1)}, nil
	}

	return Window{}, apperrors.InvalidInput("timeRange",
		"must be a named range (1_week, 1_month, 3_months, 6_months, 1_year) or a YYYY-MM-DD date")
}
