package ics

import (
	"fmt"
	"io"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"github.com/sandeepkv93/eventd/internal/model"
)

const localLayout = "20060102T150405"

type Options struct {
	ProductID    string
	CalendarName string
	// Now stamps DTSTAMP; time.Now when nil.
	Now func() time.Time
}

var weekdays = map[model.WeekdayCode]rrule.Weekday{
	model.WeekdayMon: rrule.MO,
	model.WeekdayTue: rrule.TU,
	model.WeekdayWed: rrule.WE,
	model.WeekdayThu: rrule.TH,
	model.WeekdayFri: rrule.FR,
	model.WeekdaySat: rrule.SA,
	model.WeekdaySun: rrule.SU,
}

var frequencies = map[model.Frequency]rrule.Frequency{
	model.FrequencyDaily:   rrule.DAILY,
	model.FrequencyWeekly:  rrule.WEEKLY,
	model.FrequencyMonthly: rrule.MONTHLY,
	model.FrequencyYearly:  rrule.YEARLY,
}

// Export writes events as a VCALENDAR. Recurring events carry one RRULE;
// their occurrences are left to the reader to expand.
func Export(w io.Writer, events []model.Event, opts Options) error {
	if opts.ProductID == "" {
		opts.ProductID = "-//eventd//eventd//EN"
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(opts.ProductID)
	if opts.CalendarName != "" {
		cal.SetXWRCalName(opts.CalendarName)
	}

	stamp := now()
	for _, ev := range events {
		vevent := cal.AddEvent(ev.ID + "@eventd")
		vevent.SetDtStampTime(stamp)
		if !ev.CreatedAt.IsZero() {
			vevent.SetCreatedTime(ev.CreatedAt)
		}
		if !ev.UpdatedAt.IsZero() {
			vevent.SetModifiedAt(ev.UpdatedAt)
		}
		setTime(vevent, ical.ComponentPropertyDtStart, ev.Start)
		setTime(vevent, ical.ComponentPropertyDtEnd, ev.End)
		vevent.SetSummary(ev.Title)
		if ev.Description != "" {
			vevent.SetDescription(ev.Description)
		}
		if ev.Location != "" {
			vevent.SetLocation(ev.Location)
		}
		if ev.IsRecurring && ev.Recurrence != nil {
			rule, err := RRule(*ev.Recurrence, ev.Start)
			if err != nil {
				return fmt.Errorf("ics: event %s: %w", ev.ID, err)
			}
			vevent.AddProperty(ical.ComponentPropertyRrule, rule)
		}
	}

	if _, err := io.WriteString(w, cal.Serialize()); err != nil {
		return fmt.Errorf("ics: write calendar: %w", err)
	}
	return nil
}

// setTime writes t as a UTC timestamp, or as local time with TZID when t
// carries a named zone, so weekday rules stay in the event's own zone.
func setTime(vevent *ical.VEvent, prop ical.ComponentProperty, t time.Time) {
	name := t.Location().String()
	if t.Location() == time.UTC || name == "" || name == "Local" {
		vevent.SetProperty(prop, t.UTC().Format(localLayout+"Z"))
		return
	}
	vevent.SetProperty(prop, t.Format(localLayout), &ical.KeyValues{
		Key:   string(ical.ParameterTzid),
		Value: []string{name},
	})
}

// RRule renders spec as RFC 5545 RRULE text for an event starting at start.
// Month-day anchors past the 28th are written as "last of 28..day" so readers
// clamp to short months the same way the engine does.
func RRule(spec model.RecurrenceSpec, start time.Time) (string, error) {
	freq, ok := frequencies[spec.Frequency]
	if !ok {
		return "", fmt.Errorf("unknown frequency %q", spec.Frequency)
	}
	opt := rrule.ROption{
		Freq:     freq,
		Interval: spec.Interval,
		Wkst:     rrule.MO,
	}
	if spec.EndDate != nil {
		end := *spec.EndDate
		opt.Until = time.Date(end.Year(), end.Month(), end.Day(), 23, 59, 59, 0, start.Location())
	}

	switch {
	case len(spec.Weekdays) > 0:
		for _, code := range spec.Weekdays {
			wd, ok := weekdays[code]
			if !ok {
				return "", fmt.Errorf("unknown weekday %q", code)
			}
			opt.Byweekday = append(opt.Byweekday, wd)
		}
	case spec.Weekday != nil && spec.Ordinal != nil:
		wd, ok := weekdays[*spec.Weekday]
		if !ok {
			return "", fmt.Errorf("unknown weekday %q", *spec.Weekday)
		}
		opt.Byweekday = []rrule.Weekday{wd.Nth(*spec.Ordinal)}
	case spec.Frequency == model.FrequencyMonthly && start.Day() > 28:
		opt.Bymonthday = daysFrom28(start.Day())
		opt.Bysetpos = []int{-1}
	case spec.Frequency == model.FrequencyYearly && start.Month() == time.February && start.Day() == 29:
		opt.Bymonth = []int{2}
		opt.Bymonthday = []int{28, 29}
		opt.Bysetpos = []int{-1}
	}
	return opt.RRuleString(), nil
}

func daysFrom28(day int) []int {
	out := make([]int, 0, day-27)
	for d := 28; d <= day; d++ {
		out = append(out, d)
	}
	return out
}
