package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sandeepkv93/eventd/internal/model"
	"github.com/sandeepkv93/eventd/internal/recurrence"
	"github.com/sandeepkv93/eventd/internal/storage"
)

// ListWindow returns every instance whose start date lies in [from, to],
// both read as calendar dates in the service location. Recurring events are
// expanded; the rest are included when their own start date is in range.
func (s *EventService) ListWindow(ctx context.Context, from, to time.Time) ([]model.Instance, error) {
	fromDate := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, s.loc)
	toDate := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, s.loc)
	window, err := recurrence.NewWindow(fromDate, toDate)
	if err != nil {
		verr := &ValidationError{}
		verr.add("end_date", "End date must be on or after start date.")
		return nil, verr
	}
	if toDate.After(fromDate.AddDate(0, 0, s.maxWindowDays-1)) {
		verr := &ValidationError{}
		verr.add("end_date", fmt.Sprintf("Date range cannot exceed %d days.", s.maxWindowDays))
		return nil, verr
	}

	out := make([]model.Instance, 0)

	recurring := true
	rows, err := s.repo.ListEvents(ctx, storage.EventListFilter{Recurring: &recurring})
	if err != nil {
		return nil, fmt.Errorf("list recurring events: %w", err)
	}
	for _, row := range rows {
		ev := fromRow(row, s.loc)
		if ev.Recurrence == nil {
			s.logger.Error("recurring event has no rule", "event_id", ev.ID)
			return nil, fmt.Errorf("%w: recurring event %s has no rule", ErrInternal, ev.ID)
		}
		rule, err := recurrence.Restore(*ev.Recurrence, ev.Start)
		if err != nil {
			s.logger.Error("stored rule failed validation", "event_id", ev.ID, "err", err)
			return nil, fmt.Errorf("%w: restore rule of event %s: %w", ErrInternal, ev.ID, err)
		}
		occurrences, err := recurrence.Expand(rule, recurrence.Anchor{Start: ev.Start, End: ev.End}, window)
		if err != nil {
			s.logger.Error("expand recurrence", "event_id", ev.ID, "err", err)
			return nil, fmt.Errorf("%w: expand event %s: %w", ErrInternal, ev.ID, err)
		}
		for _, occ := range occurrences {
			out = append(out, model.Instance{
				EventID:     ev.ID,
				Title:       ev.Title,
				Description: ev.Description,
				Location:    ev.Location,
				Start:       occ.Start,
				End:         occ.End,
				Expanded:    true,
			})
		}
	}

	single := false
	before := toDate.AddDate(0, 0, 1)
	rows, err = s.repo.ListEvents(ctx, storage.EventListFilter{Recurring: &single, StartFrom: &fromDate, StartBefore: &before})
	if err != nil {
		return nil, fmt.Errorf("list events in window: %w", err)
	}
	for _, row := range rows {
		ev := fromRow(row, s.loc)
		out = append(out, model.Instance{
			EventID:     ev.ID,
			Title:       ev.Title,
			Description: ev.Description,
			Location:    ev.Location,
			Start:       ev.Start,
			End:         ev.End,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start.Before(out[j].Start)
	})
	s.logger.Debug("window listed", "from", fromDate.Format(time.DateOnly), "to", toDate.Format(time.DateOnly), "instances", len(out))
	return out, nil
}

func (s *EventService) ListWindowPage(ctx context.Context, from, to time.Time, req PageRequest) (Page[model.Instance], error) {
	items, err := s.ListWindow(ctx, from, to)
	if err != nil {
		return Page[model.Instance]{}, err
	}
	return paginate(items, req.normalize(s.pageSize))
}
