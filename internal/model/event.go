package model

import (
	"errors"
	"strings"
	"time"
)

var ErrInvalidEventTime = errors.New("model: event end_time must be after start_time")

type Event struct {
	ID          string
	Title       string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	IsRecurring bool
	Recurrence  *RecurrenceSpec
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (e Event) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

func (e Event) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return errors.New("model: event id is required")
	}
	if strings.TrimSpace(e.Title) == "" {
		return errors.New("model: event title is required")
	}
	if e.Start.IsZero() || e.End.IsZero() {
		return errors.New("model: event start_time and end_time are required")
	}
	if !e.End.After(e.Start) {
		return ErrInvalidEventTime
	}
	if e.IsRecurring && e.Recurrence == nil {
		return errors.New("model: recurrence rule is required for recurring events")
	}
	if !e.IsRecurring && e.Recurrence != nil {
		return errors.New("model: recurrence rule is not allowed for non-recurring events")
	}
	return nil
}

// Instance is one concrete time range of an event: either the stored event
// itself or a transient occurrence expanded from its recurrence rule.
type Instance struct {
	// EventID is the stored event the instance came from.
	EventID     string
	Title       string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	// Expanded marks transient occurrences; they have no identifier of their own.
	Expanded bool
}
