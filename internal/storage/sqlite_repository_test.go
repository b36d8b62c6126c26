package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := OpenSQLite(filepath.Join(t.TempDir(), "eventd-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	require.NoError(t, MigrateUp(repo.DB()))
	return repo
}

func parseRFC3339(t *testing.T, value string) time.Time {
	t.Helper()
	out, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return out
}

func intRef(v int) *int { return &v }

func plainEvent(t *testing.T, id, start string) Event {
	t.Helper()
	startAt := parseRFC3339(t, start)
	created := parseRFC3339(t, "2025-01-01T08:00:00Z")
	return Event{
		ID:        id,
		Title:     "Event " + id,
		StartAt:   startAt,
		EndAt:     startAt.Add(time.Hour),
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func eventIDs(events []Event) []string {
	out := make([]string, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.ID)
	}
	return out
}

func TestEventCRUDWithoutRule(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	ev := plainEvent(t, "evt-1", "2025-01-06T09:00:00Z")
	ev.Description = "Planning session"
	ev.Location = "Room 4"
	require.NoError(t, repo.CreateEvent(ctx, ev))

	got, err := repo.GetEvent(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, ev.Title, got.Title)
	assert.Equal(t, "Room 4", got.Location)
	assert.Nil(t, got.Rule)
	assert.False(t, got.IsRecurring)
	assert.True(t, got.StartAt.Equal(ev.StartAt), "start %v", got.StartAt)
	assert.True(t, got.EndAt.Equal(ev.EndAt), "end %v", got.EndAt)

	ev.Title = "Planning v2"
	ev.UpdatedAt = ev.UpdatedAt.Add(time.Minute)
	require.NoError(t, repo.UpdateEvent(ctx, ev))
	got, err = repo.GetEvent(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, "Planning v2", got.Title)
	assert.True(t, got.UpdatedAt.Equal(ev.UpdatedAt))

	require.NoError(t, repo.DeleteEvent(ctx, ev.ID))
	_, err = repo.GetEvent(ctx, ev.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.DeleteEvent(ctx, ev.ID), ErrNotFound, "second delete")
	assert.ErrorIs(t, repo.UpdateEvent(ctx, ev), ErrNotFound, "update of missing event")
}

func TestEventRuleRoundTrip(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	end := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	ev := plainEvent(t, "evt-rule", "2025-01-06T09:00:00Z")
	ev.IsRecurring = true
	ev.Rule = &RecurrenceRule{
		ID:            "rule-1",
		Frequency:     "WEEKLY",
		IntervalValue: 2,
		EndDate:       &end,
		Weekdays:      []string{"MON", "WED"},
		CreatedAt:     ev.CreatedAt,
	}
	require.NoError(t, repo.CreateEvent(ctx, ev))

	got, err := repo.GetEvent(ctx, ev.ID)
	require.NoError(t, err)
	assert.True(t, got.IsRecurring)
	require.NotNil(t, got.Rule)
	rule := got.Rule
	assert.Equal(t, ev.ID, rule.EventID)
	assert.Equal(t, "WEEKLY", rule.Frequency)
	assert.Equal(t, 2, rule.IntervalValue)
	assert.Equal(t, []string{"MON", "WED"}, rule.Weekdays)
	require.NotNil(t, rule.EndDate)
	assert.Equal(t, "2025-06-30", rule.EndDate.Format(time.DateOnly))
	assert.Empty(t, rule.Weekday)
	assert.Nil(t, rule.Ordinal)

	// Replace with a relative monthly rule.
	ev.Rule = &RecurrenceRule{
		ID:            "rule-2",
		Frequency:     "MONTHLY",
		IntervalValue: 1,
		Weekday:       "FRI",
		Ordinal:       intRef(2),
		CreatedAt:     ev.CreatedAt,
	}
	require.NoError(t, repo.UpdateEvent(ctx, ev))
	got, err = repo.GetEvent(ctx, ev.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Rule)
	assert.Equal(t, "rule-2", got.Rule.ID)
	assert.Equal(t, "FRI", got.Rule.Weekday)
	assert.Equal(t, intRef(2), got.Rule.Ordinal)
	assert.Nil(t, got.Rule.EndDate, "stale end date")
	assert.Empty(t, got.Rule.Weekdays, "stale weekdays")

	// Turning recurrence off removes the rule.
	ev.IsRecurring = false
	ev.Rule = nil
	require.NoError(t, repo.UpdateEvent(ctx, ev))
	got, err = repo.GetEvent(ctx, ev.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Rule)
	assert.False(t, got.IsRecurring)
}

func TestDeleteEventRemovesRule(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	ev := plainEvent(t, "evt-del", "2025-01-06T09:00:00Z")
	ev.IsRecurring = true
	ev.Rule = &RecurrenceRule{ID: "rule-del", Frequency: "DAILY", IntervalValue: 1, CreatedAt: ev.CreatedAt}
	require.NoError(t, repo.CreateEvent(ctx, ev))
	require.NoError(t, repo.DeleteEvent(ctx, ev.ID))

	var n int
	require.NoError(t, repo.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM recurrence_rules`).Scan(&n))
	assert.Zero(t, n, "rules are deleted with the event")
}

func TestCreateEventRollsBackOnBadRule(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	ev := plainEvent(t, "evt-bad", "2025-01-06T09:00:00Z")
	ev.IsRecurring = true
	ev.Rule = &RecurrenceRule{ID: "rule-bad", Frequency: "HOURLY", IntervalValue: 1, CreatedAt: ev.CreatedAt}
	require.Error(t, repo.CreateEvent(ctx, ev), "check constraint")

	_, err := repo.GetEvent(ctx, ev.ID)
	assert.ErrorIs(t, err, ErrNotFound, "event must not persist after rollback")
}

func TestListEventsFilterAndPagination(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	starts := []string{
		"2025-01-08T09:00:00Z",
		"2025-01-06T09:00:00Z",
		"2025-01-06T09:00:00.5Z",
		"2025-02-01T10:00:00Z",
	}
	for i, s := range starts {
		ev := plainEvent(t, "evt-"+string(rune('a'+i)), s)
		if i == 3 {
			ev.IsRecurring = true
			ev.Rule = &RecurrenceRule{ID: "rule-list", Frequency: "YEARLY", IntervalValue: 1, CreatedAt: ev.CreatedAt}
		}
		require.NoError(t, repo.CreateEvent(ctx, ev), "create event %d", i)
	}

	all, err := repo.ListEvents(ctx, EventListFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"evt-b", "evt-c", "evt-a", "evt-d"}, eventIDs(all))

	page, err := repo.ListEvents(ctx, EventListFilter{Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"evt-c", "evt-a"}, eventIDs(page))

	tail, err := repo.ListEvents(ctx, EventListFilter{Offset: 3})
	require.NoError(t, err)
	assert.Equal(t, []string{"evt-d"}, eventIDs(tail))

	recurring := true
	only, err := repo.ListEvents(ctx, EventListFilter{Recurring: &recurring})
	require.NoError(t, err)
	require.Len(t, only, 1)
	require.NotNil(t, only[0].Rule)
	assert.Equal(t, "YEARLY", only[0].Rule.Frequency)

	from := parseRFC3339(t, "2025-01-06T09:00:00Z")
	before := parseRFC3339(t, "2025-01-08T09:00:00Z")
	notRecurring := false
	filter := EventListFilter{Recurring: &notRecurring, StartFrom: &from, StartBefore: &before}
	windowed, err := repo.ListEvents(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, []string{"evt-b", "evt-c"}, eventIDs(windowed))

	count, err := repo.CountEvents(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
