package recurrence

import "time"

// ExpandWeekdaySet returns the dates in the Monday-based week containing
// weekAnchor that fall on one of weekdays and are not before weekAnchor.
// Passing a week's Monday yields the full set for that week. Dates come back
// in ascending order whatever the order of weekdays.
func ExpandWeekdaySet(weekAnchor time.Time, weekdays []time.Weekday) []time.Time {
	if len(weekdays) == 0 {
		return nil
	}
	wanted := make(map[time.Weekday]bool, len(weekdays))
	for _, d := range weekdays {
		wanted[d] = true
	}

	floor := dateOf(weekAnchor)
	monday := weekStart(weekAnchor)
	out := make([]time.Time, 0, len(wanted))
	for i := 0; i < 7; i++ {
		d := monday.AddDate(0, 0, i)
		if d.Before(floor) || !wanted[d.Weekday()] {
			continue
		}
		out = append(out, d)
	}
	return out
}
