package model

import (
	"fmt"
	"strings"
	"time"
)

type Frequency string

const (
	FrequencyDaily   Frequency = "DAILY"
	FrequencyWeekly  Frequency = "WEEKLY"
	FrequencyMonthly Frequency = "MONTHLY"
	FrequencyYearly  Frequency = "YEARLY"
)

func (f Frequency) IsValid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly:
		return true
	default:
		return false
	}
}

// ParseFrequency accepts the stored upper-case code in any letter case.
func ParseFrequency(raw string) (Frequency, error) {
	f := Frequency(strings.ToUpper(strings.TrimSpace(raw)))
	if !f.IsValid() {
		return "", fmt.Errorf("model: invalid frequency %q", raw)
	}
	return f, nil
}

// WeekdayCode is the three-letter weekday code used on the wire and in storage.
type WeekdayCode string

const (
	WeekdayMon WeekdayCode = "MON"
	WeekdayTue WeekdayCode = "TUE"
	WeekdayWed WeekdayCode = "WED"
	WeekdayThu WeekdayCode = "THU"
	WeekdayFri WeekdayCode = "FRI"
	WeekdaySat WeekdayCode = "SAT"
	WeekdaySun WeekdayCode = "SUN"
)

var weekdayCodes = map[WeekdayCode]time.Weekday{
	WeekdayMon: time.Monday,
	WeekdayTue: time.Tuesday,
	WeekdayWed: time.Wednesday,
	WeekdayThu: time.Thursday,
	WeekdayFri: time.Friday,
	WeekdaySat: time.Saturday,
	WeekdaySun: time.Sunday,
}

func (c WeekdayCode) IsValid() bool {
	_, ok := weekdayCodes[c]
	return ok
}

// Weekday maps the code onto time.Weekday. ok is false for unknown codes.
func (c WeekdayCode) Weekday() (time.Weekday, bool) {
	d, ok := weekdayCodes[c]
	return d, ok
}

func CodeForWeekday(d time.Weekday) WeekdayCode {
	for code, wd := range weekdayCodes {
		if wd == d {
			return code
		}
	}
	return ""
}

// RecurrenceSpec is a recurrence rule as submitted by a caller. Nothing about it
// is trusted until it has been validated against its anchor event.
type RecurrenceSpec struct {
	Frequency Frequency
	Interval  int
	// EndDate is a calendar date; only its year/month/day are meaningful.
	EndDate  *time.Time
	Weekdays []WeekdayCode
	// Weekday and Ordinal together form the "Nth weekday of the month" pattern.
	Weekday *WeekdayCode
	Ordinal *int
}

func (s RecurrenceSpec) HasRelative() bool {
	return s.Weekday != nil || s.Ordinal != nil
}

func (s RecurrenceSpec) String() string {
	end := "never"
	if s.EndDate != nil {
		end = s.EndDate.Format("2006-01-02")
	}
	return fmt.Sprintf("%s every %d period(s), ends %s", s.Frequency, s.Interval, end)
}
