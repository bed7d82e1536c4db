package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNextOccurrence(t *testing.T) {
	tests := []struct {
		name    string
		current time.Time
		freq    Frequency
		want    *time.Time
	}{
		{"once is terminal", date(2024, time.March, 15), FrequencyOnce, nil},
		{"daily", date(2024, time.March, 15), FrequencyDaily, ptr(date(2024, time.March, 16))},
		{"daily across month end", date(2024, time.January, 31), FrequencyDaily, ptr(date(2024, time.February, 1))},
		{"weekly", date(2024, time.January, 1), FrequencyWeekly, ptr(date(2024, time.January, 8))},
		{"biweekly", date(2024, time.January, 1), FrequencyBiweekly, ptr(date(2024, time.January, 15))},
		{"monthly plain", date(2024, time.April, 10), FrequencyMonthly, ptr(date(2024, time.May, 10))},
		{"monthly clamps to leap february", date(2024, time.January, 31), FrequencyMonthly, ptr(date(2024, time.February, 29))},
		{"monthly clamps to non-leap february", date(2023, time.January, 31), FrequencyMonthly, ptr(date(2023, time.February, 28))},
		{"monthly across year boundary", date(2023, time.December, 15), FrequencyMonthly, ptr(date(2024, time.January, 15))},
		{"quarterly plain", date(2024, time.January, 15), FrequencyQuarterly, ptr(date(2024, time.April, 15))},
		{"quarterly clamps day 31 to april 30", date(2024, time.January, 31), FrequencyQuarterly, ptr(date(2024, time.April, 30))},
		{"quarterly across year boundary", date(2024, time.November, 30), FrequencyQuarterly, ptr(date(2025, time.February, 28))},
		{"yearly", date(2024, time.June, 1), FrequencyYearly, ptr(date(2025, time.June, 1))},
		{"yearly clamps feb 29 to feb 28", date(2024, time.February, 29), FrequencyYearly, ptr(date(2025, time.February, 28))},
		{"unknown frequency", date(2024, time.June, 1), Frequency("fortnightly-ish"), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextOccurrence(tt.current, tt.freq)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}

// The monthly clamp is non-restoring: once a schedule lands on the 28th it
// stays there, even after February is behind it.
func TestNextOccurrence_NonRestoringClamp(t *testing.T) {
	current := date(2023, time.January, 31)

	next := NextOccurrence(current, FrequencyMonthly)
	require.NotNil(t, next)
	assert.Equal(t, date(2023, time.February, 28), *next)

	next = NextOccurrence(*next, FrequencyMonthly)
	require.NotNil(t, next)
	assert.Equal(t, date(2023, time.March, 28), *next, "the original day 31 is not restored")
}

func TestNextOccurrence_Deterministic(t *testing.T) {
	current := date(2024, time.January, 31)
	first := NextOccurrence(current, FrequencyMonthly)
	second := NextOccurrence(current, FrequencyMonthly)
	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.Equal(t, *first, *second)
}

func TestNextOccurrence_TruncatesTimeOfDay(t *testing.T) {
	noon := time.Date(2024, time.January, 1, 12, 30, 0, 0, time.UTC)
	next := NextOccurrence(noon, FrequencyDaily)
	require.NotNil(t, next)
	assert.Equal(t, date(2024, time.January, 2), *next)
}

func TestFrequencyValid(t *testing.T) {
	for _, f := range []Frequency{
		FrequencyOnce, FrequencyDaily, FrequencyWeekly, FrequencyBiweekly,
		FrequencyMonthly, FrequencyQuarterly, FrequencyYearly,
	} {
		assert.True(t, f.Valid(), f)
	}
	assert.False(t, Frequency("hourly").Valid())
	assert.False(t, Frequency("").Valid())
}

func ptr[T any](v T) *T { return &v }
