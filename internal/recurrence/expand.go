package recurrence

import (
	"errors"
	"fmt"
	"time"

	"github.com/sandeepkv93/eventd/internal/model"
)

var (
	// ErrInvariantViolation reports input that validation should have made
	// impossible. It is an internal failure, never a user-facing message.
	ErrInvariantViolation = errors.New("recurrence: invariant violation")
	ErrInvalidWindow      = errors.New("recurrence: window end is before window start")
)

// Anchor is the stored event a rule is attached to. Every occurrence takes its
// time of day, location and duration.
type Anchor struct {
	Start time.Time
	End   time.Time
}

func (a Anchor) Duration() time.Duration {
	return a.End.Sub(a.Start)
}

// Window is an inclusive range of calendar dates.
type Window struct {
	From time.Time
	To   time.Time
}

func NewWindow(from, to time.Time) (Window, error) {
	if dayNumber(to) < dayNumber(from) {
		return Window{}, fmt.Errorf("%w: %s > %s", ErrInvalidWindow, from.Format("2006-01-02"), to.Format("2006-01-02"))
	}
	return Window{From: from, To: to}, nil
}

type Occurrence struct {
	Start time.Time
	End   time.Time
}

// Expand produces the occurrences of rule whose dates lie in the window and on
// or before the rule's end date, in ascending start order. It keeps no state
// between calls. An error is only returned for an invariant violation.
func Expand(rule ValidatedRule, anchor Anchor, window Window) ([]Occurrence, error) {
	if !rule.valid {
		return nil, fmt.Errorf("%w: rule did not come from the validator", ErrInvariantViolation)
	}
	if !anchor.End.After(anchor.Start) {
		return nil, fmt.Errorf("%w: anchor end %s is not after start %s", ErrInvariantViolation,
			anchor.End.Format(time.RFC3339), anchor.Start.Format(time.RFC3339))
	}
	if dayNumber(window.To) < dayNumber(window.From) {
		return nil, fmt.Errorf("%w: %w", ErrInvariantViolation, ErrInvalidWindow)
	}

	e := expansion{
		anchor:     anchor,
		anchorDate: dateOf(anchor.Start),
		lower:      max(dayNumber(window.From), dayNumber(anchor.Start)),
		upper:      dayNumber(window.To),
		out:        make([]Occurrence, 0),
	}
	if end, ok := rule.endDate.Get(); ok {
		e.upper = min(e.upper, dayNumber(end))
	}
	if e.upper < e.lower {
		return []Occurrence{}, nil
	}

	switch rule.frequency {
	case model.FrequencyDaily:
		e.everyNDays(rule.interval)
	case model.FrequencyWeekly:
		if len(rule.weekdays) > 0 {
			e.weeklySubset(rule.interval, rule.weekdays)
		} else {
			e.everyNDays(7 * rule.interval)
		}
	case model.FrequencyMonthly:
		if rel, ok := rule.relative.Get(); ok {
			e.monthlyRelative(rule.interval, rel)
		} else {
			e.monthlyByDay(rule.interval)
		}
	case model.FrequencyYearly:
		e.yearly(rule.interval)
	default:
		return nil, fmt.Errorf("%w: unknown frequency %q", ErrInvariantViolation, rule.frequency)
	}
	return e.out, nil
}

type expansion struct {
	anchor     Anchor
	anchorDate time.Time
	// lower and upper are inclusive day numbers.
	lower int64
	upper int64
	out   []Occurrence
}

func (e *expansion) emit(date time.Time) {
	n := dayNumber(date)
	if n < e.lower || n > e.upper {
		return
	}
	start := withAnchorClock(date, e.anchor.Start)
	e.out = append(e.out, Occurrence{Start: start, End: start.Add(e.anchor.Duration())})
}

func (e *expansion) everyNDays(step int) {
	origin := dayNumber(e.anchorDate)
	k := int64(0)
	if e.lower > origin {
		k = (e.lower - origin + int64(step) - 1) / int64(step)
	}
	for ; ; k++ {
		day := origin + k*int64(step)
		if day > e.upper {
			return
		}
		e.emit(dateFromDayNumber(day, e.anchorDate.Location()))
	}
}

func (e *expansion) weeklySubset(interval int, weekdays []time.Weekday) {
	monday := weekStart(e.anchorDate)
	origin := dayNumber(monday)
	step := int64(7 * interval)
	bucket := int64(0)
	if e.lower > origin {
		bucket = (e.lower - origin) / step
	}
	for ; ; bucket++ {
		bucketStart := origin + bucket*step
		if bucketStart > e.upper {
			return
		}
		weekAnchor := dateFromDayNumber(bucketStart, e.anchorDate.Location())
		if bucket == 0 {
			weekAnchor = e.anchorDate
		}
		for _, d := range ExpandWeekdaySet(weekAnchor, weekdays) {
			e.emit(d)
		}
	}
}

// firstPeriod returns the first k whose period, counted in units of size
// step from origin, can still reach the lower bound.
func firstPeriod(origin, target, step int) int {
	if target <= origin {
		return 0
	}
	return (target - origin) / step
}

func (e *expansion) monthlyByDay(interval int) {
	loc := e.anchorDate.Location()
	origin := monthIndex(e.anchorDate)
	lowerDate := dateFromDayNumber(e.lower, loc)
	for k := firstPeriod(origin, monthIndex(lowerDate), interval); ; k++ {
		y, m := monthFromIndex(origin + k*interval)
		if dayNumber(time.Date(y, m, 1, 0, 0, 0, 0, loc)) > e.upper {
			return
		}
		e.emit(clampedDate(y, m, e.anchorDate.Day(), loc))
	}
}

func (e *expansion) monthlyRelative(interval int, rel RelativeDate) {
	loc := e.anchorDate.Location()
	origin := monthIndex(e.anchorDate)
	lowerDate := dateFromDayNumber(e.lower, loc)
	for k := firstPeriod(origin, monthIndex(lowerDate), interval); ; k++ {
		y, m := monthFromIndex(origin + k*interval)
		if dayNumber(time.Date(y, m, 1, 0, 0, 0, 0, loc)) > e.upper {
			return
		}
		if d, ok := ResolveOrdinalWeekday(y, m, rel.Weekday, rel.Ordinal, loc).Get(); ok {
			e.emit(d)
		}
	}
}

func (e *expansion) yearly(interval int) {
	loc := e.anchorDate.Location()
	origin := e.anchorDate.Year()
	lowerYear := dateFromDayNumber(e.lower, loc).Year()
	for k := firstPeriod(origin, lowerYear, interval); ; k++ {
		y := origin + k*interval
		if dayNumber(time.Date(y, time.January, 1, 0, 0, 0, 0, loc)) > e.upper {
			return
		}
		e.emit(clampedDate(y, e.anchorDate.Month(), e.anchorDate.Day(), loc))
	}
}
