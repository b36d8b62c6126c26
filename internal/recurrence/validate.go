package recurrence

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/samber/mo"
	"github.com/sandeepkv93/eventd/internal/model"
)

const (
	MinInterval = 1
	MaxInterval = 100
)

// ErrInvalidRule matches any ValidationErrors value through errors.Is.
var ErrInvalidRule = errors.New("recurrence: invalid rule")

type ErrorCode string

const (
	CodeInvalidFrequency                  ErrorCode = "InvalidFrequency"
	CodeIntervalOutOfRange                ErrorCode = "IntervalOutOfRange"
	CodeWeekdaysRequireWeekly             ErrorCode = "WeekdaysRequireWeekly"
	CodeInvalidWeekdayCode                ErrorCode = "InvalidWeekdayCode"
	CodeDuplicateWeekday                  ErrorCode = "DuplicateWeekday"
	CodeRelativeDateRequiresMonthly       ErrorCode = "RelativeDateRequiresMonthly"
	CodeIncompleteRelativeDatePair        ErrorCode = "IncompleteRelativeDatePair"
	CodeInvalidOrdinal                    ErrorCode = "InvalidOrdinal"
	CodeConflictingPatternSpecification   ErrorCode = "ConflictingPatternSpecification"
	CodeEndDateInPast                     ErrorCode = "EndDateInPast"
	CodeEndDateBeforeAnchor               ErrorCode = "EndDateBeforeAnchor"
	CodeInsufficientDurationForRecurrence ErrorCode = "InsufficientDurationForRecurrence"
)

// Field paths used as keys in ValidationErrors.Fields.
const (
	FieldFrequency = "frequency"
	FieldInterval  = "interval"
	FieldEndDate   = "end_date"
	FieldWeekdays  = "weekdays"
	FieldWeekday   = "weekday"
	FieldOrdinal   = "ordinal"
	FieldNonField  = "non_field_errors"
)

type FieldError struct {
	Field   string
	Code    ErrorCode
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors carries every violation found in one validation pass.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, fe := range v {
		parts = append(parts, fe.Error())
	}
	return "recurrence: " + strings.Join(parts, "; ")
}

func (v ValidationErrors) Is(target error) bool {
	return target == ErrInvalidRule
}

// Fields groups messages by field path, keeping discovery order per field.
func (v ValidationErrors) Fields() map[string][]string {
	out := make(map[string][]string, len(v))
	for _, fe := range v {
		out[fe.Field] = append(out[fe.Field], fe.Message)
	}
	return out
}

func (v ValidationErrors) Has(code ErrorCode) bool {
	for _, fe := range v {
		if fe.Code == code {
			return true
		}
	}
	return false
}

// RelativeDate is the "ordinal-th weekday of the month" pattern.
type RelativeDate struct {
	Weekday time.Weekday
	Ordinal int
}

// ValidatedRule is a recurrence rule that passed every check against its
// anchor. It can only be built by a Validator; the zero value is rejected by
// Expand.
type ValidatedRule struct {
	valid     bool
	frequency model.Frequency
	interval  int
	endDate   mo.Option[time.Time]
	weekdays  []time.Weekday
	relative  mo.Option[RelativeDate]
}

func (r ValidatedRule) Frequency() model.Frequency { return r.frequency }

func (r ValidatedRule) Interval() int { return r.interval }

func (r ValidatedRule) EndDate() mo.Option[time.Time] { return r.endDate }

func (r ValidatedRule) Weekdays() []time.Weekday {
	out := make([]time.Weekday, len(r.weekdays))
	copy(out, r.weekdays)
	return out
}

func (r ValidatedRule) Relative() mo.Option[RelativeDate] { return r.relative }

// Spec converts the rule back into its submitted form for persistence.
func (r ValidatedRule) Spec() model.RecurrenceSpec {
	spec := model.RecurrenceSpec{Frequency: r.frequency, Interval: r.interval}
	if end, ok := r.endDate.Get(); ok {
		spec.EndDate = &end
	}
	for _, d := range r.weekdays {
		spec.Weekdays = append(spec.Weekdays, model.CodeForWeekday(d))
	}
	if rel, ok := r.relative.Get(); ok {
		code := model.CodeForWeekday(rel.Weekday)
		ordinal := rel.Ordinal
		spec.Weekday = &code
		spec.Ordinal = &ordinal
	}
	return spec
}

type Validator struct {
	// Now supplies the reference time for EndDateInPast; time.Now when nil.
	Now func() time.Time

	skipPastCheck bool
}

// Validate checks spec against the anchor event's start with the wall clock.
func Validate(spec model.RecurrenceSpec, anchorStart time.Time) (ValidatedRule, error) {
	return Validator{}.Validate(spec, anchorStart)
}

// Restore rebuilds a rule that was validated when it was stored. Every
// structural check runs, but an end date that has since passed is accepted.
func Restore(spec model.RecurrenceSpec, anchorStart time.Time) (ValidatedRule, error) {
	return Validator{skipPastCheck: true}.Validate(spec, anchorStart)
}

// Validate runs all checks without stopping at the first failure. On failure
// the error is a ValidationErrors listing each violation.
func (v Validator) Validate(spec model.RecurrenceSpec, anchorStart time.Time) (ValidatedRule, error) {
	var errs ValidationErrors
	add := func(field string, code ErrorCode, msg string) {
		errs = append(errs, FieldError{Field: field, Code: code, Message: msg})
	}

	freqOK := spec.Frequency.IsValid()
	if !freqOK {
		add(FieldFrequency, CodeInvalidFrequency, fmt.Sprintf("%q is not a valid choice.", spec.Frequency))
	}

	intervalOK := spec.Interval >= MinInterval && spec.Interval <= MaxInterval
	if !intervalOK {
		add(FieldInterval, CodeIntervalOutOfRange, fmt.Sprintf("Interval must be between %d and %d.", MinInterval, MaxInterval))
	}

	weekdays := make([]time.Weekday, 0, len(spec.Weekdays))
	if len(spec.Weekdays) > 0 {
		if spec.Frequency != model.FrequencyWeekly {
			add(FieldWeekdays, CodeWeekdaysRequireWeekly, "Weekdays can only be set for weekly recurrence.")
		}
		seen := make(map[time.Weekday]bool, len(spec.Weekdays))
		for _, code := range spec.Weekdays {
			d, ok := code.Weekday()
			if !ok {
				add(FieldWeekdays, CodeInvalidWeekdayCode, fmt.Sprintf("%q is not a valid weekday.", code))
				continue
			}
			if seen[d] {
				add(FieldWeekdays, CodeDuplicateWeekday, fmt.Sprintf("Weekday %q is listed more than once.", code))
				continue
			}
			seen[d] = true
			weekdays = append(weekdays, d)
		}
		sort.Slice(weekdays, func(i, j int) bool {
			return (weekdays[i]+6)%7 < (weekdays[j]+6)%7
		})
	}

	relative := mo.None[RelativeDate]()
	if spec.HasRelative() {
		if spec.Frequency != model.FrequencyMonthly {
			field := FieldWeekday
			if spec.Weekday == nil {
				field = FieldOrdinal
			}
			add(field, CodeRelativeDateRequiresMonthly, "Relative dates can only be set for monthly recurrence.")
		}
		switch {
		case spec.Weekday == nil:
			add(FieldWeekday, CodeIncompleteRelativeDatePair, "Weekday is required when ordinal is set.")
		case spec.Ordinal == nil:
			add(FieldOrdinal, CodeIncompleteRelativeDatePair, "Ordinal is required when weekday is set.")
		}
		var rel RelativeDate
		relOK := spec.Weekday != nil && spec.Ordinal != nil
		if spec.Weekday != nil {
			d, ok := spec.Weekday.Weekday()
			if !ok {
				add(FieldWeekday, CodeInvalidWeekdayCode, fmt.Sprintf("%q is not a valid weekday.", *spec.Weekday))
				relOK = false
			}
			rel.Weekday = d
		}
		if spec.Ordinal != nil {
			if *spec.Ordinal < 1 || *spec.Ordinal > MaxOrdinal {
				add(FieldOrdinal, CodeInvalidOrdinal, fmt.Sprintf("Ordinal must be between 1 and %d.", MaxOrdinal))
				relOK = false
			}
			rel.Ordinal = *spec.Ordinal
		}
		if relOK {
			relative = mo.Some(rel)
		}
	}

	if len(spec.Weekdays) > 0 && spec.HasRelative() {
		add(FieldNonField, CodeConflictingPatternSpecification, "Weekdays and a relative date cannot be combined.")
	}

	endDate := mo.None[time.Time]()
	if spec.EndDate != nil {
		end := *spec.EndDate
		endDay := dayNumber(end)
		endDate = mo.Some(time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, anchorStart.Location()))

		if !v.skipPastCheck && endDay < dayNumber(v.now().In(anchorStart.Location())) {
			add(FieldEndDate, CodeEndDateInPast, "End date cannot be in the past.")
		}
		if endDay < dayNumber(anchorStart) {
			add(FieldEndDate, CodeEndDateBeforeAnchor, "End date cannot be before the event's start date.")
		} else if freqOK && intervalOK {
			minimum := MinimumEndDate(spec.Frequency, spec.Interval, anchorStart, len(spec.Weekdays) > 0, spec.HasRelative())
			if endDay < dayNumber(minimum) {
				add(FieldEndDate, CodeInsufficientDurationForRecurrence,
					fmt.Sprintf("End date must be on or after %s for the recurrence to produce an occurrence.", minimum.Format("2006-01-02")))
			}
		}
	}

	if len(errs) > 0 {
		return ValidatedRule{}, errs
	}
	return ValidatedRule{
		valid:     true,
		frequency: spec.Frequency,
		interval:  spec.Interval,
		endDate:   endDate,
		weekdays:  weekdays,
		relative:  relative,
	}, nil
}

func (v Validator) now() time.Time {
	if v.Now != nil {
		return v.Now()
	}
	return time.Now()
}

// MinimumEndDate is the earliest end date that leaves room for the rule to
// produce an occurrence after the anchor. Weekday subsets always need a full
// week; relative monthly patterns always need one month.
func MinimumEndDate(freq model.Frequency, interval int, anchorStart time.Time, hasWeekdays, hasRelative bool) time.Time {
	anchor := dateOf(anchorStart)
	switch freq {
	case model.FrequencyDaily:
		return anchor.AddDate(0, 0, interval)
	case model.FrequencyWeekly:
		if hasWeekdays {
			return anchor.AddDate(0, 0, 7)
		}
		return anchor.AddDate(0, 0, 7*interval)
	case model.FrequencyMonthly:
		if hasRelative {
			return addMonthsClamped(anchor, 1)
		}
		return addMonthsClamped(anchor, interval)
	case model.FrequencyYearly:
		return addMonthsClamped(anchor, 12*interval)
	default:
		return anchor
	}
}
