package recurrence

import (
	"time"

	"github.com/samber/mo"
)

// MaxOrdinal is the highest "Nth weekday" a month can contain.
const MaxOrdinal = 5

// ResolveOrdinalWeekday finds the ordinal-th (1-indexed) weekday of the given
// month. It returns None when the month has fewer matching days, e.g. a fifth
// Friday in a month with four. None is a normal outcome, not an error.
func ResolveOrdinalWeekday(year int, month time.Month, weekday time.Weekday, ordinal int, loc *time.Location) mo.Option[time.Time] {
	if ordinal < 1 || ordinal > MaxOrdinal {
		return mo.None[time.Time]()
	}
	if loc == nil {
		loc = time.UTC
	}

	matches := make([]time.Time, 0, MaxOrdinal)
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	offset := (int(weekday) - int(first.Weekday()) + 7) % 7
	for day := 1 + offset; day <= daysIn(year, month); day += 7 {
		matches = append(matches, time.Date(year, month, day, 0, 0, 0, 0, loc))
	}

	if ordinal > len(matches) {
		return mo.None[time.Time]()
	}
	return mo.Some(matches[ordinal-1])
}
