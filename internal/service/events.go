package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sandeepkv93/eventd/internal/model"
	"github.com/sandeepkv93/eventd/internal/recurrence"
	"github.com/sandeepkv93/eventd/internal/storage"
)

const (
	maxTitleLength    = 255
	maxLocationLength = 200

	DefaultMaxWindowDays = 366
)

// EventInput is a create or update request. Start and End are pointers so a
// missing value can be told apart from the zero time.
type EventInput struct {
	Title       string
	Description string
	Location    string
	Start       *time.Time
	End         *time.Time
	IsRecurring bool
	Recurrence  *model.RecurrenceSpec
}

type Options struct {
	// Location is the timezone used to interpret window dates and to
	// present stored instants. UTC when nil.
	Location      *time.Location
	MaxWindowDays int
	PageSize      int
	Now           func() time.Time
	NewID         func() string
	Logger        *slog.Logger
}

type EventService struct {
	repo          storage.Repository
	loc           *time.Location
	maxWindowDays int
	pageSize      int
	now           func() time.Time
	newID         func() string
	logger        *slog.Logger
}

func New(repo storage.Repository, opts Options) *EventService {
	s := &EventService{
		repo:          repo,
		loc:           opts.Location,
		maxWindowDays: opts.MaxWindowDays,
		pageSize:      opts.PageSize,
		now:           opts.Now,
		newID:         opts.NewID,
		logger:        opts.Logger,
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.maxWindowDays <= 0 {
		s.maxWindowDays = DefaultMaxWindowDays
	}
	if s.pageSize <= 0 {
		s.pageSize = DefaultPageSize
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = func() string { return uuid.NewString() }
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

func (s *EventService) Location() *time.Location {
	return s.loc
}

func (s *EventService) Create(ctx context.Context, in EventInput) (model.Event, error) {
	ev, err := s.check(in)
	if err != nil {
		return model.Event{}, err
	}
	now := s.now().In(s.loc)
	ev.ID = s.newID()
	ev.CreatedAt = now
	ev.UpdatedAt = now
	if err := ev.Validate(); err != nil {
		return model.Event{}, fmt.Errorf("%w: %w", ErrInternal, err)
	}

	if err := s.repo.CreateEvent(ctx, toRow(ev, s.newID())); err != nil {
		return model.Event{}, fmt.Errorf("create event: %w", err)
	}
	s.logger.Info("event created", "event_id", ev.ID, "recurring", ev.IsRecurring)
	return ev, nil
}

// Update replaces every field of an existing event, running the same checks
// as Create.
func (s *EventService) Update(ctx context.Context, id string, in EventInput) (model.Event, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return model.Event{}, err
	}
	ev, err := s.check(in)
	if err != nil {
		return model.Event{}, err
	}
	ev.ID = current.ID
	ev.CreatedAt = current.CreatedAt
	ev.UpdatedAt = s.now().In(s.loc)
	if err := ev.Validate(); err != nil {
		return model.Event{}, fmt.Errorf("%w: %w", ErrInternal, err)
	}

	if err := s.repo.UpdateEvent(ctx, toRow(ev, s.newID())); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return model.Event{}, ErrNotFound
		}
		return model.Event{}, fmt.Errorf("update event: %w", err)
	}
	s.logger.Info("event updated", "event_id", ev.ID, "recurring", ev.IsRecurring)
	return ev, nil
}

func (s *EventService) Get(ctx context.Context, id string) (model.Event, error) {
	row, err := s.repo.GetEvent(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return model.Event{}, ErrNotFound
		}
		return model.Event{}, fmt.Errorf("get event: %w", err)
	}
	return fromRow(row, s.loc), nil
}

func (s *EventService) Delete(ctx context.Context, id string) error {
	if err := s.repo.DeleteEvent(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete event: %w", err)
	}
	s.logger.Info("event deleted", "event_id", id)
	return nil
}

// List returns stored events ordered by start, without expansion.
func (s *EventService) List(ctx context.Context, req PageRequest) (Page[model.Event], error) {
	req = req.normalize(s.pageSize)
	count, err := s.repo.CountEvents(ctx, storage.EventListFilter{})
	if err != nil {
		return Page[model.Event]{}, fmt.Errorf("count events: %w", err)
	}
	if req.offset() > 0 && req.offset() >= count {
		return Page[model.Event]{}, ErrInvalidPage
	}
	rows, err := s.repo.ListEvents(ctx, storage.EventListFilter{Limit: req.Size, Offset: req.offset()})
	if err != nil {
		return Page[model.Event]{}, fmt.Errorf("list events: %w", err)
	}
	out := make([]model.Event, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromRow(row, s.loc))
	}
	return Page[model.Event]{Count: count, Page: req.Page, PageSize: req.Size, Results: out}, nil
}

// All returns every stored event in start order.
func (s *EventService) All(ctx context.Context) ([]model.Event, error) {
	rows, err := s.repo.ListEvents(ctx, storage.EventListFilter{})
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	out := make([]model.Event, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromRow(row, s.loc))
	}
	return out, nil
}

// check runs the event-level rules and the recurrence validator, and
// returns the event with its rule in normalised form.
func (s *EventService) check(in EventInput) (model.Event, error) {
	verr := &ValidationError{}
	title := strings.TrimSpace(in.Title)
	switch {
	case title == "":
		verr.add("title", "This field may not be blank.")
	case utf8.RuneCountInString(title) > maxTitleLength:
		verr.add("title", fmt.Sprintf("Ensure this field has no more than %d characters.", maxTitleLength))
	}
	if utf8.RuneCountInString(in.Location) > maxLocationLength {
		verr.add("location", fmt.Sprintf("Ensure this field has no more than %d characters.", maxLocationLength))
	}
	if in.Start == nil {
		verr.add("start_time", "This field is required.")
	}
	if in.End == nil {
		verr.add("end_time", "This field is required.")
	}

	ev := model.Event{
		Title:       title,
		Description: in.Description,
		Location:    in.Location,
		IsRecurring: in.IsRecurring,
	}
	if in.Start != nil && in.End != nil {
		ev.Start = in.Start.In(s.loc)
		ev.End = in.End.In(s.loc)
		if ev.Start.Before(s.now()) {
			verr.add("start_time", "Start time cannot be in the past.")
		}
		if !ev.End.After(ev.Start) {
			verr.add("end_time", "End time must be after start time.")
		}
	}

	switch {
	case in.IsRecurring && in.Recurrence == nil:
		verr.add("recurrence_rule", "Required for recurring events.")
	case !in.IsRecurring && in.Recurrence != nil:
		verr.add("recurrence_rule", "Not allowed for non-recurring events.")
	case in.Recurrence != nil && in.Start != nil:
		validator := recurrence.Validator{Now: s.now}
		rule, err := validator.Validate(*in.Recurrence, ev.Start)
		var ruleErrs recurrence.ValidationErrors
		switch {
		case errors.As(err, &ruleErrs):
			verr.nest("recurrence_rule", ruleErrs.Fields())
		case err != nil:
			return model.Event{}, fmt.Errorf("%w: %w", ErrInternal, err)
		default:
			spec := rule.Spec()
			ev.Recurrence = &spec
		}
	}

	if !verr.empty() {
		return model.Event{}, verr
	}
	return ev, nil
}
