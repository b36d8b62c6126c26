package agenda

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"

	"github.com/sandeepkv93/eventd/internal/commands"
	"github.com/sandeepkv93/eventd/internal/model"
	"github.com/sandeepkv93/eventd/internal/scheduler"
)

// Lister is satisfied by service.EventService.
type Lister interface {
	ListWindow(ctx context.Context, from, to time.Time) ([]model.Instance, error)
	Get(ctx context.Context, id string) (model.Event, error)
}

type StatusBar struct {
	Text    string
	IsError bool
}

type Options struct {
	Location *time.Location
	Today    func() time.Time
	Span     commands.Span
	// Reminders, when set, is drained into the notification line.
	Reminders <-chan scheduler.Reminder
}

type Model struct {
	Span      commands.Span
	FocusDate time.Time
	From      time.Time
	To        time.Time
	Items     []model.Instance
	Cursor    int
	Loading   bool
	// Detail is the full event behind the selected row, when loaded.
	Detail         *model.Event
	CommandActive  bool
	HelpVisible    bool
	Status         StatusBar
	LastReminder   *scheduler.Reminder
	Quitting       bool
	LastError      error
	Width          int
	ctx            context.Context
	lister         Lister
	loc            *time.Location
	today          func() time.Time
	reminders      <-chan scheduler.Reminder
	agendaTable    table.Model
	commandInput   textinput.Model
	helpModel      help.Model
	detailViewport viewport.Model
	keys           keyMap
}

// ItemsLoadedMsg carries one window load. Stale loads for a window that is no
// longer shown are dropped.
type ItemsLoadedMsg struct {
	From  time.Time
	To    time.Time
	Items []model.Instance
	Err   error
}

type DetailLoadedMsg struct {
	Event model.Event
	Err   error
}

type ReminderMsg struct {
	Reminder scheduler.Reminder
}

type SetStatusMsg struct {
	Text    string
	IsError bool
}

func New(ctx context.Context, lister Lister, opts Options) Model {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Today == nil {
		opts.Today = time.Now
	}
	if !opts.Span.IsValid() {
		opts.Span = commands.SpanWeek
	}
	m := Model{
		Span:      opts.Span,
		ctx:       ctx,
		lister:    lister,
		loc:       opts.Location,
		today:     opts.Today,
		reminders: opts.Reminders,
		keys:      defaultKeyMap(),
	}
	m.FocusDate = m.todayDate()
	m.From, m.To = spanBounds(m.Span, m.FocusDate)
	m.initBubbleComponents()
	m.syncBubbleData()
	return m
}

func (m *Model) initBubbleComponents() {
	cols := []table.Column{
		{Title: "Date", Width: 12},
		{Title: "Time", Width: 13},
		{Title: "Title", Width: 28},
	}
	m.agendaTable = table.New(table.WithColumns(cols), table.WithRows([]table.Row{}), table.WithFocused(true), table.WithHeight(12))

	m.commandInput = textinput.New()
	m.commandInput.Prompt = ":"
	m.commandInput.Placeholder = "goto 2025-01-31 | span week | today | next | prev"
	m.commandInput.CharLimit = 128
	m.commandInput.Width = 48

	m.helpModel = help.New()
	m.detailViewport = viewport.New(54, 14)
}

func (m *Model) syncBubbleData() {
	rows := make([]table.Row, 0, len(m.Items))
	for _, item := range m.Items {
		rows = append(rows, table.Row{
			item.Start.Format(time.DateOnly),
			fmt.Sprintf("%s-%s", item.Start.Format("15:04"), item.End.Format("15:04")),
			item.Title,
		})
	}
	m.agendaTable.SetRows(rows)
	if len(rows) > 0 && m.Cursor < len(rows) {
		m.agendaTable.SetCursor(m.Cursor)
	}
	m.detailViewport.SetContent(m.renderDetail())
}

func (m Model) todayDate() time.Time {
	now := m.today().In(m.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, m.loc)
}

func (m Model) selected() (model.Instance, bool) {
	if m.Cursor < 0 || m.Cursor >= len(m.Items) {
		return model.Instance{}, false
	}
	return m.Items[m.Cursor], true
}

// spanBounds returns the inclusive dates shown for span around focus. Weeks
// start on Monday.
func spanBounds(span commands.Span, focus time.Time) (time.Time, time.Time) {
	switch span {
	case commands.SpanDay:
		return focus, focus
	case commands.SpanMonth:
		first := time.Date(focus.Year(), focus.Month(), 1, 0, 0, 0, 0, focus.Location())
		return first, first.AddDate(0, 1, -1)
	default:
		offset := (int(focus.Weekday()) + 6) % 7
		monday := focus.AddDate(0, 0, -offset)
		return monday, monday.AddDate(0, 0, 6)
	}
}

// shift moves focus by steps whole spans. Month moves land on the first of
// the month so short months are never skipped.
func shift(span commands.Span, focus time.Time, steps int) time.Time {
	switch span {
	case commands.SpanDay:
		return focus.AddDate(0, 0, steps)
	case commands.SpanMonth:
		return time.Date(focus.Year(), focus.Month()+time.Month(steps), 1, 0, 0, 0, 0, focus.Location())
	default:
		return focus.AddDate(0, 0, 7*steps)
	}
}
