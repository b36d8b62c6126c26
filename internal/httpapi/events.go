package httpapi

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sandeepkv93/eventd/internal/model"
	"github.com/sandeepkv93/eventd/internal/service"
)

const dateLayout = "2006-01-02"

type ruleJSON struct {
	Frequency string   `json:"frequency"`
	Interval  int      `json:"interval"`
	EndDate   *string  `json:"end_date"`
	Weekdays  []string `json:"weekdays,omitempty"`
	Weekday   *string  `json:"weekday"`
	Ordinal   *int     `json:"ordinal"`
}

type eventJSON struct {
	ID             string    `json:"id,omitempty"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Location       string    `json:"location"`
	StartTime      string    `json:"start_time"`
	EndTime        string    `json:"end_time"`
	IsRecurring    bool      `json:"is_recurring"`
	RecurrenceRule *ruleJSON `json:"recurrence_rule"`
}

type ruleRequest struct {
	Frequency string   `json:"frequency"`
	Interval  *int     `json:"interval"`
	EndDate   *string  `json:"end_date"`
	Weekdays  []string `json:"weekdays"`
	Weekday   *string  `json:"weekday"`
	Ordinal   *int     `json:"ordinal"`
}

type eventRequest struct {
	Title          string       `json:"title"`
	Description    *string      `json:"description"`
	Location       *string      `json:"location"`
	StartTime      *string      `json:"start_time"`
	EndTime        *string      `json:"end_time"`
	IsRecurring    bool         `json:"is_recurring"`
	RecurrenceRule *ruleRequest `json:"recurrence_rule"`
}

type pageJSON[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req, ok := pageRequest(q)
	if !ok {
		writeDetail(w, http.StatusNotFound, "Invalid page.")
		return
	}

	rawFrom, rawTo := q.Get("start_date"), q.Get("end_date")
	if rawFrom == "" || rawTo == "" {
		page, err := s.events.List(r.Context(), req)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		out := make([]eventJSON, 0, len(page.Results))
		for _, ev := range page.Results {
			out = append(out, encodeEvent(ev))
		}
		writeJSON(w, http.StatusOK, buildPage(r.URL, page.Count, page.Page, page.HasNext(), page.HasPrevious(), out))
		return
	}

	fields := map[string][]string{}
	from, err := time.ParseInLocation(dateLayout, rawFrom, s.events.Location())
	if err != nil {
		fields["start_date"] = []string{"Date has wrong format. Use one of these formats instead: YYYY-MM-DD."}
	}
	to, err := time.ParseInLocation(dateLayout, rawTo, s.events.Location())
	if err != nil {
		fields["end_date"] = []string{"Date has wrong format. Use one of these formats instead: YYYY-MM-DD."}
	}
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, fields)
		return
	}

	page, err := s.events.ListWindowPage(r.Context(), from, to, req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	out := make([]eventJSON, 0, len(page.Results))
	for _, it := range page.Results {
		out = append(out, encodeInstance(it))
	}
	writeJSON(w, http.StatusOK, buildPage(r.URL, page.Count, page.Page, page.HasNext(), page.HasPrevious(), out))
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	in, fields, ok := decodeEvent(w, r)
	if !ok {
		return
	}
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, fields)
		return
	}
	ev, err := s.events.Create(r.Context(), in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, encodeEvent(ev))
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := s.events.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, encodeEvent(ev))
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	in, fields, ok := decodeEvent(w, r)
	if !ok {
		return
	}
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, fields)
		return
	}
	ev, err := s.events.Update(r.Context(), r.PathValue("id"), in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, encodeEvent(ev))
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := s.events.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Event deleted successfully"})
}

// decodeEvent parses the request body. Format problems are returned as a
// field map; ok is false once a response has already been written.
func decodeEvent(w http.ResponseWriter, r *http.Request) (service.EventInput, map[string]any, bool) {
	var body eventRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(&body); err != nil {
		writeDetail(w, http.StatusBadRequest, "JSON parse error - "+err.Error())
		return service.EventInput{}, nil, false
	}

	fields := map[string]any{}
	in := service.EventInput{Title: body.Title, IsRecurring: body.IsRecurring}
	if body.Description != nil {
		in.Description = *body.Description
	}
	if body.Location != nil {
		in.Location = *body.Location
	}
	if body.StartTime != nil {
		t, err := time.Parse(time.RFC3339, *body.StartTime)
		if err != nil {
			fields["start_time"] = []string{"Datetime has wrong format. Use one of these formats instead: YYYY-MM-DDThh:mm[:ss[.uuuuuu]][+HH:MM|-HH:MM|Z]."}
		} else {
			in.Start = &t
		}
	}
	if body.EndTime != nil {
		t, err := time.Parse(time.RFC3339, *body.EndTime)
		if err != nil {
			fields["end_time"] = []string{"Datetime has wrong format. Use one of these formats instead: YYYY-MM-DDThh:mm[:ss[.uuuuuu]][+HH:MM|-HH:MM|Z]."}
		} else {
			in.End = &t
		}
	}
	if rule := body.RecurrenceRule; rule != nil {
		spec, ruleFields := decodeRule(*rule)
		if len(ruleFields) > 0 {
			fields["recurrence_rule"] = ruleFields
		} else {
			in.Recurrence = &spec
		}
	}
	return in, fields, true
}

func decodeRule(in ruleRequest) (model.RecurrenceSpec, map[string][]string) {
	fields := map[string][]string{}
	freq, err := model.ParseFrequency(in.Frequency)
	if err != nil {
		// Left for the validator to report as an invalid choice.
		freq = model.Frequency(in.Frequency)
	}
	spec := model.RecurrenceSpec{Frequency: freq, Interval: 1}
	if in.Interval != nil {
		spec.Interval = *in.Interval
	}
	if in.EndDate != nil && *in.EndDate != "" {
		d, err := time.Parse(dateLayout, *in.EndDate)
		if err != nil {
			fields["end_date"] = []string{"Date has wrong format. Use one of these formats instead: YYYY-MM-DD."}
		} else {
			spec.EndDate = &d
		}
	}
	for _, code := range in.Weekdays {
		spec.Weekdays = append(spec.Weekdays, model.WeekdayCode(strings.ToUpper(code)))
	}
	if in.Weekday != nil {
		code := model.WeekdayCode(strings.ToUpper(*in.Weekday))
		spec.Weekday = &code
	}
	spec.Ordinal = in.Ordinal
	return spec, fields
}

func encodeEvent(ev model.Event) eventJSON {
	out := eventJSON{
		ID:          ev.ID,
		Title:       ev.Title,
		Description: ev.Description,
		Location:    ev.Location,
		StartTime:   ev.Start.Format(time.RFC3339),
		EndTime:     ev.End.Format(time.RFC3339),
		IsRecurring: ev.IsRecurring,
	}
	if spec := ev.Recurrence; spec != nil {
		rule := &ruleJSON{
			Frequency: string(spec.Frequency),
			Interval:  spec.Interval,
			Ordinal:   spec.Ordinal,
		}
		if spec.EndDate != nil {
			d := spec.EndDate.Format(dateLayout)
			rule.EndDate = &d
		}
		for _, code := range spec.Weekdays {
			rule.Weekdays = append(rule.Weekdays, string(code))
		}
		if spec.Weekday != nil {
			code := string(*spec.Weekday)
			rule.Weekday = &code
		}
		out.RecurrenceRule = rule
	}
	return out
}

// encodeInstance renders a window result. Expanded occurrences carry no id
// and are never recurring themselves.
func encodeInstance(it model.Instance) eventJSON {
	out := eventJSON{
		Title:       it.Title,
		Description: it.Description,
		Location:    it.Location,
		StartTime:   it.Start.Format(time.RFC3339),
		EndTime:     it.End.Format(time.RFC3339),
	}
	if !it.Expanded {
		out.ID = it.EventID
	}
	return out
}

// pageRequest reads page and page_size. ok is false for a malformed page.
func pageRequest(q url.Values) (service.PageRequest, bool) {
	var req service.PageRequest
	if raw := q.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return req, false
		}
		req.Page = n
	}
	if raw := q.Get("page_size"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			req.Size = n
		}
	}
	return req, true
}

func buildPage[T any](u *url.URL, count, page int, hasNext, hasPrev bool, results []T) pageJSON[T] {
	out := pageJSON[T]{Count: count, Results: results}
	if hasNext {
		out.Next = pageLink(u, page+1)
	}
	if hasPrev {
		out.Previous = pageLink(u, page-1)
	}
	return out
}

func pageLink(u *url.URL, page int) *string {
	q := u.Query()
	if page <= 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(page))
	}
	next := url.URL{Path: u.Path, RawQuery: q.Encode()}
	link := next.String()
	return &link
}
