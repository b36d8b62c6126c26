package service

import (
	"time"

	"github.com/sandeepkv93/eventd/internal/model"
	"github.com/sandeepkv93/eventd/internal/storage"
)

func toRow(ev model.Event, ruleID string) storage.Event {
	row := storage.Event{
		ID:          ev.ID,
		Title:       ev.Title,
		Description: ev.Description,
		Location:    ev.Location,
		StartAt:     ev.Start,
		EndAt:       ev.End,
		IsRecurring: ev.IsRecurring,
		CreatedAt:   ev.CreatedAt,
		UpdatedAt:   ev.UpdatedAt,
	}
	if spec := ev.Recurrence; spec != nil {
		rule := &storage.RecurrenceRule{
			ID:            ruleID,
			EventID:       ev.ID,
			Frequency:     string(spec.Frequency),
			IntervalValue: spec.Interval,
			EndDate:       spec.EndDate,
			Ordinal:       spec.Ordinal,
			CreatedAt:     ev.UpdatedAt,
		}
		for _, code := range spec.Weekdays {
			rule.Weekdays = append(rule.Weekdays, string(code))
		}
		if spec.Weekday != nil {
			rule.Weekday = string(*spec.Weekday)
		}
		row.Rule = rule
	}
	return row
}

// fromRow converts a stored row, presenting its instants in loc.
func fromRow(row storage.Event, loc *time.Location) model.Event {
	ev := model.Event{
		ID:          row.ID,
		Title:       row.Title,
		Description: row.Description,
		Location:    row.Location,
		Start:       row.StartAt.In(loc),
		End:         row.EndAt.In(loc),
		IsRecurring: row.IsRecurring,
		CreatedAt:   row.CreatedAt.In(loc),
		UpdatedAt:   row.UpdatedAt.In(loc),
	}
	if r := row.Rule; r != nil {
		spec := &model.RecurrenceSpec{
			Frequency: model.Frequency(r.Frequency),
			Interval:  r.IntervalValue,
			EndDate:   r.EndDate,
			Ordinal:   r.Ordinal,
		}
		for _, code := range r.Weekdays {
			spec.Weekdays = append(spec.Weekdays, model.WeekdayCode(code))
		}
		if r.Weekday != "" {
			code := model.WeekdayCode(r.Weekday)
			spec.Weekday = &code
		}
		ev.Recurrence = spec
	}
	return ev
}
