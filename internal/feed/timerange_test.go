package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/provant-erp/be-prs-dashboard/internal/apperrors"
)

func TestResolveWindowNamedRanges(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		timeRange string
		wantStart time.Time
	}{
		{"1_week", now.AddDate(0, 0, -7)},
		{"1_month", now.AddDate(0, -1, 0)},
		{"3_months", now.AddDate(0, -3, 0)},
		{"6_months", now.AddDate(0, -6, 0)},
		{"1_year", now.AddDate(-1, 0, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.timeRange, func(t *testing.T) {
			w, err := ResolveWindow(tt.timeRange, now, time.UTC, "6_months")
			require.NoError(t, err)
			assert.Equal(t, tt.wantStart, w.Start)
			assert.Equal(t, now, w.End)
		})
	}
}

func TestResolveWindowDefault(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)
	w, err := ResolveWindow("", now, time.UTC, "6_months")
	require.NoError(t, err)
	assert.Equal(t, now.AddDate(0, -6, 0), w.Start)
	assert.Equal(t, now, w.End)
}

func TestResolveWindowExplicitDate(t *testing.T) {
	t.Parallel()

	loc, err := time.LoadLocation("Asia/Manila")
	require.NoError(t, err)

	now := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)
	w, err := ResolveWindow("2026-02-10", now, loc, "6_months")
	require.NoError(t, err)

	assert.Equal(t, time.Date(2026, 2, 10, 0, 0, 0, 0, loc), w.Start)
	assert.Equal(t, time.Date(2026, 2, 11, 0, 0, 0, 0, loc), w.End)

	// Half-open: midnight of the day is in, midnight of the next day is out.
	assert.True(t, w.Contains(w.Start))
	assert.False(t, w.Contains(w.End))
}

func TestResolveWindowInvalid(t *testing.T) {
	t.Parallel()

	now := time.Now()
	for _, bad := range []string{"2_weeks", "yesterday", "2026-13-40", "1 month"} {
		_, err := ResolveWindow(bad, now, time.UTC, "6_months")
		require.Error(t, err, bad)
		assert.True(t, apperrors.IsValidation(err), bad)
	}
}

func TestWindowCovers(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	outer := Window{Start: base, End: base.AddDate(0, 6, 0)}

	assert.True(t, outer.Covers(outer))
	assert.True(t, outer.Covers(Window{Start: base.AddDate(0, 1, 0), End: base.AddDate(0, 2, 0)}))
	assert.False(t, outer.Covers(Window{Start: base.AddDate(0, -1, 0), End: base.AddDate(0, 1, 0)}))
	assert.False(t, outer.Covers(Window{Start: base, End: base.AddDate(0, 7, 0)}))
}
