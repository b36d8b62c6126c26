package storage

import "time"

type Event struct {
	ID          string
	Title       string
	Description string
	Location    string
	StartAt     time.Time
	EndAt       time.Time
	IsRecurring bool
	Rule        *RecurrenceRule
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RecurrenceRule is the single rule row attached to a recurring event.
// EndDate is a calendar date stored without a time of day.
type RecurrenceRule struct {
	ID            string
	EventID       string
	Frequency     string
	IntervalValue int
	EndDate       *time.Time
	Weekdays      []string
	Weekday       string
	Ordinal       *int
	CreatedAt     time.Time
}

type EventListFilter struct {
	Recurring   *bool
	StartFrom   *time.Time
	StartBefore *time.Time
	Limit       int
	Offset      int
}
