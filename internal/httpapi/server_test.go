package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sandeepkv93/eventd/internal/service"
	"github.com/sandeepkv93/eventd/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, opts Options) *httptest.Server {
	t.Helper()
	ts, _ := newTestServerWithRepo(t, opts)
	return ts
}

func newTestServerWithRepo(t *testing.T, opts Options) (*httptest.Server, storage.Repository) {
	t.Helper()
	repo, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	require.NoError(t, storage.MigrateUp(repo.DB()))

	svc := service.New(repo, service.Options{
		Now: func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) },
	})
	ts := httptest.NewServer(NewServer(svc, opts).Handler())
	t.Cleanup(ts.Close)
	return ts, repo
}

func do(t *testing.T, method, url, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

const standupBody = `{
	"title": "Standup",
	"start_time": "2025-01-06T09:00:00Z",
	"end_time": "2025-01-06T09:15:00Z",
	"is_recurring": true,
	"recurrence_rule": {"frequency": "WEEKLY", "interval": 1, "weekdays": ["WED", "MON"]}
}`

func TestHealthSkipsAuth(t *testing.T) {
	ts := newTestServer(t, Options{BasicAuth: &BasicAuth{Username: "admin", Password: "secret"}})

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	status, _ := do(t, http.MethodGet, ts.URL+"/api/events", "")
	assert.Equal(t, http.StatusUnauthorized, status)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/events", nil)
	require.NoError(t, err)
	req.SetBasicAuth("admin", "secret")
	authed, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer authed.Body.Close()
	assert.Equal(t, http.StatusOK, authed.StatusCode)
}

func TestCreateGetUpdateDelete(t *testing.T) {
	ts := newTestServer(t, Options{})

	status, created := do(t, http.MethodPost, ts.URL+"/api/events", standupBody)
	require.Equal(t, http.StatusCreated, status, created)
	id, _ := created["id"].(string)
	require.NotEmpty(t, id)
	rule, ok := created["recurrence_rule"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{"MON", "WED"}, rule["weekdays"])
	assert.Nil(t, rule["end_date"])

	status, got := do(t, http.MethodGet, ts.URL+"/api/events/"+id, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Standup", got["title"])
	assert.Equal(t, "2025-01-06T09:00:00Z", got["start_time"])

	status, updated := do(t, http.MethodPut, ts.URL+"/api/events/"+id, `{
		"title": "Standup (moved)",
		"start_time": "2025-01-07T09:00:00Z",
		"end_time": "2025-01-07T09:15:00Z",
		"is_recurring": false
	}`)
	require.Equal(t, http.StatusOK, status, updated)
	assert.Equal(t, "Standup (moved)", updated["title"])
	assert.Nil(t, updated["recurrence_rule"])

	status, deleted := do(t, http.MethodDelete, ts.URL+"/api/events/"+id, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Event deleted successfully", deleted["message"])

	status, missing := do(t, http.MethodGet, ts.URL+"/api/events/"+id, "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Not found.", missing["detail"])
}

func TestCreateReturnsFieldErrors(t *testing.T) {
	ts := newTestServer(t, Options{})

	status, body := do(t, http.MethodPost, ts.URL+"/api/events", `{
		"title": "Planning",
		"start_time": "2025-01-06T09:00:00Z",
		"end_time": "2025-01-06T10:00:00Z",
		"is_recurring": true,
		"recurrence_rule": {"frequency": "MONTHLY", "interval": 1, "weekday": "FRI", "weekdays": ["MON"]}
	}`)
	require.Equal(t, http.StatusBadRequest, status)
	rule, ok := body["recurrence_rule"].(map[string]any)
	require.True(t, ok, body)
	assert.Contains(t, rule, "weekdays")
	assert.Contains(t, rule, "ordinal")
	assert.Contains(t, rule, "non_field_errors")

	status, body = do(t, http.MethodPost, ts.URL+"/api/events", `{
		"title": "Bad dates",
		"start_time": "tomorrow",
		"end_time": "2025-01-06T10:00:00Z",
		"is_recurring": true,
		"recurrence_rule": {"frequency": "DAILY", "end_date": "06/01/2025"}
	}`)
	require.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body, "start_time")
	nested, ok := body["recurrence_rule"].(map[string]any)
	require.True(t, ok, body)
	assert.Contains(t, nested, "end_date")

	status, body = do(t, http.MethodPost, ts.URL+"/api/events", `{"title": `)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body, "detail")
}

func TestListWindowExpandsOccurrences(t *testing.T) {
	ts := newTestServer(t, Options{})

	status, created := do(t, http.MethodPost, ts.URL+"/api/events", standupBody)
	require.Equal(t, http.StatusCreated, status, created)

	status, body := do(t, http.MethodGet, ts.URL+"/api/events?start_date=2025-01-06&end_date=2025-01-15&page_size=3", "")
	require.Equal(t, http.StatusOK, status, body)
	assert.EqualValues(t, 4, body["count"])
	assert.Nil(t, body["previous"])
	assert.Equal(t, "/api/events?end_date=2025-01-15&page=2&page_size=3&start_date=2025-01-06", body["next"])

	results, ok := body["results"].([]any)
	require.True(t, ok)
	require.Len(t, results, 3)
	first := results[0].(map[string]any)
	assert.Equal(t, "2025-01-06T09:00:00Z", first["start_time"])
	assert.Equal(t, false, first["is_recurring"])
	assert.NotContains(t, first, "id")

	status, body = do(t, http.MethodGet, ts.URL+"/api/events?start_date=2025-01-06&end_date=2025-01-15&page_size=3&page=2", "")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["results"], 1)
	assert.Equal(t, "/api/events?end_date=2025-01-15&page_size=3&start_date=2025-01-06", body["previous"])

	status, body = do(t, http.MethodGet, ts.URL+"/api/events?start_date=2025-01-06&end_date=2025-01-15&page=9", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Invalid page.", body["detail"])

	status, body = do(t, http.MethodGet, ts.URL+"/api/events?start_date=2025-13-01&end_date=2025-01-15", "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body, "start_date")
}

func TestListWithoutWindowReturnsStoredEvents(t *testing.T) {
	ts := newTestServer(t, Options{})

	status, _ := do(t, http.MethodPost, ts.URL+"/api/events", standupBody)
	require.Equal(t, http.StatusCreated, status)

	status, body := do(t, http.MethodGet, ts.URL+"/api/events", "")
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["count"])
	results := body["results"].([]any)
	require.Len(t, results, 1)
	first := results[0].(map[string]any)
	assert.Equal(t, true, first["is_recurring"])
	assert.NotEmpty(t, first["id"])
}

func TestCorruptStoredRuleIsServerError(t *testing.T) {
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
			name: "rule rejected on restore",
			row: storage.Event{
				ID: "bad-rule", Title: "Broken", StartAt: start, EndAt: start.Add(time.Hour), IsRecurring: true,
				Rule: &storage.RecurrenceRule{ID: "rule-1", EventID: "bad-rule", Frequency: "DAILY", IntervalValue: 1, Weekdays: []string{"MON"}, CreatedAt: start},
			},
		},
		{
			name: "anchor end equals start",
			row: storage.Event{
				ID: "bad-anchor", Title: "Broken", StartAt: start, EndAt: start, IsRecurring: true,
				Rule: &storage.RecurrenceRule{ID: "rule-2", EventID: "bad-anchor", Frequency: "DAILY", IntervalValue: 1, CreatedAt: start},
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts, repo := newTestServerWithRepo(t, Options{})
			row := tc.row
			row.CreatedAt, row.UpdatedAt = start, start
			require.NoError(t, repo.CreateEvent(context.Background(), row))

			status, body := do(t, http.MethodGet, ts.URL+"/api/events?start_date=2025-01-01&end_date=2025-01-31", "")
			assert.Equal(t, http.StatusInternalServerError, status)
			assert.Equal(t, map[string]any{"error": "internal server error"}, body)
		})
	}
}
