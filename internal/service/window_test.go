package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sandeepkv93/eventd/internal/model"
	"github.com/sandeepkv93/eventd/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func instanceStarts(items []model.Instance) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Start.Format("2006-01-02 15:04"))
	}
	return out
}

func seedWindowEvents(t *testing.T, svc *EventService) {
	t.Helper()
	ctx := context.Background()
	_, err := svc.Create(ctx, EventInput{
		Title: "Standup", Start: at(t, "2025-01-06T09:00:00Z"), End: at(t, "2025-01-06T09:15:00Z"),
		IsRecurring: true,
		Recurrence: &model.RecurrenceSpec{
			Frequency: model.FrequencyWeekly, Interval: 1,
			Weekdays: []model.WeekdayCode{model.WeekdayMon, model.WeekdayWed},
		},
	})
	require.NoError(t, err)
	_, err = svc.Create(ctx, EventInput{Title: "Dentist", Start: at(t, "2025-01-07T10:00:00Z"), End: at(t, "2025-01-07T11:00:00Z")})
	require.NoError(t, err)
	_, err = svc.Create(ctx, EventInput{Title: "Offsite", Start: at(t, "2025-01-20T08:00:00Z"), End: at(t, "2025-01-20T17:00:00Z")})
	require.NoError(t, err)
}

func TestListWindowMergesExpandedAndSingleEvents(t *testing.T) {
	clock := &testClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	svc := newTestService(t, clock, time.UTC)
	seedWindowEvents(t, svc)

	items, err := svc.ListWindow(context.Background(), date(t, "2025-01-06"), date(t, "2025-01-15"))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"2025-01-06 09:00",
		"2025-01-07 10:00",
		"2025-01-08 09:00",
		"2025-01-13 09:00",
		"2025-01-15 09:00",
	}, instanceStarts(items))

	assert.True(t, items[0].Expanded)
	assert.False(t, items[1].Expanded)
	assert.Equal(t, "Dentist", items[1].Title)
	for _, it := range items {
		assert.NotEmpty(t, it.EventID)
		if it.Expanded {
			assert.Equal(t, 15*time.Minute, it.End.Sub(it.Start))
		}
	}
}

func TestListWindowRejectsBadRanges(t *testing.T) {
	clock := &testClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	svc := newTestService(t, clock, time.UTC)
	ctx := context.Background()

	_, err := svc.ListWindow(ctx, date(t, "2025-01-10"), date(t, "2025-01-09"))
	assert.Contains(t, validationFields(t, err), "end_date")

	_, err = svc.ListWindow(ctx, date(t, "2025-01-01"), date(t, "2026-01-02"))
	assert.Equal(t, []string{"Date range cannot exceed 366 days."}, validationFields(t, err)["end_date"])

	items, err := svc.ListWindow(ctx, date(t, "2025-01-01"), date(t, "2026-01-01"))
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestListWindowExpandsRuleWhoseEndDateHasPassed(t *testing.T) {
	clock := &testClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	svc := newTestService(t, clock, time.UTC)
	ctx := context.Background()

	end := date(t, "2025-01-10")
	_, err := svc.Create(ctx, EventInput{
		Title: "Sprint", Start: at(t, "2025-01-02T08:00:00Z"), End: at(t, "2025-01-02T08:30:00Z"),
		IsRecurring: true,
		Recurrence:  &model.RecurrenceSpec{Frequency: model.FrequencyDaily, Interval: 4, EndDate: &end},
	})
	require.NoError(t, err)

	clock.now = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	items, err := svc.ListWindow(ctx, date(t, "2025-01-01"), date(t, "2025-01-31"))
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-01-02 08:00", "2025-01-06 08:00", "2025-01-10 08:00"}, instanceStarts(items))
}

func TestListWindowUsesServiceLocation(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}
	clock := &testClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	svc := newTestService(t, clock, loc)
	ctx := context.Background()

	// 23:30 in New York is already the next day in UTC.
	_, err = svc.Create(ctx, EventInput{Title: "Late call", Start: at(t, "2025-01-07T04:30:00Z"), End: at(t, "2025-01-07T05:00:00Z")})
	require.NoError(t, err)
	_, err = svc.Create(ctx, EventInput{
		Title: "Nightly", Start: at(t, "2025-01-07T04:00:00Z"), End: at(t, "2025-01-07T04:10:00Z"),
		IsRecurring: true,
		Recurrence:  &model.RecurrenceSpec{Frequency: model.FrequencyDaily, Interval: 1},
	})
	require.NoError(t, err)

	items, err := svc.ListWindow(ctx, date(t, "2025-01-06"), date(t, "2025-01-07"))
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-01-06 23:00", "2025-01-06 23:30", "2025-01-07 23:00"}, instanceStarts(items))
}

func TestListWindowPage(t *testing.T) {
	clock := &testClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	svc := newTestService(t, clock, time.UTC)
	seedWindowEvents(t, svc)
	ctx := context.Background()

	page, err := svc.ListWindowPage(ctx, date(t, "2025-01-06"), date(t, "2025-01-15"), PageRequest{Page: 2, Size: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, page.Count)
	assert.Equal(t, []string{"2025-01-08 09:00", "2025-01-13 09:00"}, instanceStarts(page.Results))

	last, err := svc.ListWindowPage(ctx, date(t, "2025-01-06"), date(t, "2025-01-15"), PageRequest{Page: 3, Size: 2})
	require.NoError(t, err)
	assert.Len(t, last.Results, 1)
	assert.False(t, last.HasNext())

	_, err = svc.ListWindowPage(ctx, date(t, "2025-01-06"), date(t, "2025-01-15"), PageRequest{Page: 4, Size: 2})
	assert.ErrorIs(t, err, ErrInvalidPage)

	capped, err := svc.ListWindowPage(ctx, date(t, "2025-01-06"), date(t, "2025-01-15"), PageRequest{Size: 1000})
	require.NoError(t, err)
	assert.Equal(t, MaxPageSize, capped.PageSize)
}

func storeRaw(t *testing.T, repo storage.Repository, row storage.Event) {
	t.Helper()
	row.CreatedAt = row.StartAt
	row.UpdatedAt = row.StartAt
	if row.Rule != nil {
		row.Rule.CreatedAt = row.StartAt
	}
	require.NoError(t, repo.CreateEvent(context.Background(), row))
}

func TestListWindowFailsOnCorruptStoredEvents(t *testing.T) {
	start := time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)
	cases := []struct {
		name string
		row  storage.Event
	}{
		{
			name: "recurring without rule",
			row:  storage.Event{ID: "no-rule", Title: "Broken", StartAt: start, EndAt: start.Add(time.Hour), IsRecurring: true},
		},
		{
			name: "daily rule with weekdays",
			row: storage.Event{
				ID: "bad-rule", Title: "Broken", StartAt: start, EndAt: start.Add(time.Hour), IsRecurring: true,
				Rule: &storage.RecurrenceRule{ID: "rule-1", EventID: "bad-rule", Frequency: "DAILY", IntervalValue: 1, Weekdays: []string{"MON"}},
			},
		},
		{
			name: "anchor end equals start",
			row: storage.Event{
				ID: "bad-anchor", Title: "Broken", StartAt: start, EndAt: start, IsRecurring: true,
				Rule: &storage.RecurrenceRule{ID: "rule-2", EventID: "bad-anchor", Frequency: "DAILY", IntervalValue: 1},
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clock := &testClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
			svc, repo := newTestServiceWithRepo(t, clock, time.UTC)
			seedWindowEvents(t, svc)
			storeRaw(t, repo, tc.row)

			items, err := svc.ListWindow(context.Background(), date(t, "2025-01-01"), date(t, "2025-01-31"))
			require.Error(t, err)
			assert.Nil(t, items)
			assert.ErrorIs(t, err, ErrInternal)
			assert.Contains(t, err.Error(), tc.row.ID)
			var verr *ValidationError
			assert.False(t, errors.As(err, &verr), "stored data errors must not read as input errors")
		})
	}
}
