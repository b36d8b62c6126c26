package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveOrdinalWeekday(t *testing.T) {
	cases := []struct {
		name    string
		year    int
		month   time.Month
		weekday time.Weekday
		ordinal int
		want    string
	}{
		{"second friday jan 2025", 2025, time.January, time.Friday, 2, "2025-01-10"},
		{"second friday feb 2025", 2025, time.February, time.Friday, 2, "2025-02-14"},
		{"first monday when month starts on monday", 2024, time.January, time.Monday, 1, "2024-01-01"},
		{"fifth friday exists", 2025, time.January, time.Friday, 5, "2025-01-31"},
		{"fifth saturday in leap february", 2020, time.February, time.Saturday, 5, "2020-02-29"},
		{"last slot of a 31 day month", 2025, time.March, time.Monday, 5, "2025-03-31"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ResolveOrdinalWeekday(tc.year, tc.month, tc.weekday, tc.ordinal, time.UTC).Get()
			require.True(t, ok)
			assert.Equal(t, tc.want, got.Format("2006-01-02"))
			assert.Equal(t, tc.weekday, got.Weekday())
		})
	}
}

func TestResolveOrdinalWeekdayNotFound(t *testing.T) {
	// February 2025 has four Fridays.
	assert.True(t, ResolveOrdinalWeekday(2025, time.February, time.Friday, 5, time.UTC).IsAbsent())
	// Non-leap February never has a fifth anything.
	assert.True(t, ResolveOrdinalWeekday(2026, time.February, time.Sunday, 5, time.UTC).IsAbsent())
	assert.True(t, ResolveOrdinalWeekday(2025, time.January, time.Friday, 0, time.UTC).IsAbsent())
	assert.True(t, ResolveOrdinalWeekday(2025, time.January, time.Friday, 6, time.UTC).IsAbsent())
}

func TestResolveOrdinalWeekdayKeepsLocation(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*60*60)
	got, ok := ResolveOrdinalWeekday(2025, time.March, time.Tuesday, 3, loc).Get()
	require.True(t, ok)
	assert.Equal(t, loc, got.Location())
	assert.Equal(t, "2025-03-18", got.Format("2006-01-02"))
}
