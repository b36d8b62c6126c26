package recurrence

import "time"

const secondsPerDay = 24 * 60 * 60

// dayNumber counts civil days since the Unix epoch for the calendar date of t
// in t's own location. It is independent of clock time and DST shifts.
func dayNumber(t time.Time) int64 {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / secondsPerDay
}

func dateFromDayNumber(n int64, loc *time.Location) time.Time {
	y, m, d := time.Unix(n*secondsPerDay, 0).UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func monthIndex(t time.Time) int {
	return t.Year()*12 + int(t.Month()) - 1
}

func monthFromIndex(idx int) (int, time.Month) {
	return idx / 12, time.Month(idx%12 + 1)
}

// clampedDate builds year/month/day, pulling day back to the last day of the
// month when the month is shorter (Jan 31 -> Feb 28, Feb 29 -> Feb 28).
func clampedDate(year int, month time.Month, day int, loc *time.Location) time.Time {
	if last := daysIn(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, loc)
}

// addMonthsClamped adds n calendar months to the date of t without rolling
// into the following month.
func addMonthsClamped(t time.Time, n int) time.Time {
	y, m := monthFromIndex(monthIndex(t) + n)
	return clampedDate(y, m, t.Day(), t.Location())
}

// weekStart returns the Monday on or before the date of t.
func weekStart(t time.Time) time.Time {
	d := dateOf(t)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

func withAnchorClock(date time.Time, anchor time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, anchor.Hour(), anchor.Minute(), anchor.Second(), anchor.Nanosecond(), anchor.Location())
}
