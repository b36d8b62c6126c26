package agenda

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/eventd/internal/commands"
	"github.com/sandeepkv93/eventd/internal/scheduler"
	"github.com/sandeepkv93/eventd/internal/views"
)

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.load(), waitForReminderCmd(m.reminders))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd := m.update(msg)
	next.syncBubbleData()
	return next, cmd
}

func (m Model) update(msg tea.Msg) (Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = typed.Width
		m.helpModel.Width = typed.Width
		return m, nil
	case tea.KeyMsg:
		if m.CommandActive {
			return m.handleCommandKey(typed)
		}
		return m.handleKey(typed)
	case ItemsLoadedMsg:
		if !typed.From.Equal(m.From) || !typed.To.Equal(m.To) {
			return m, nil
		}
		m.Loading = false
		if typed.Err != nil {
			m.LastError = typed.Err
			m.Status = StatusBar{Text: typed.Err.Error(), IsError: true}
			return m, nil
		}
		m.Items = typed.Items
		m.Cursor = min(m.Cursor, max(len(m.Items)-1, 0))
		m.Detail = nil
		m.Status = StatusBar{Text: fmt.Sprintf("%d occurrence(s)", len(m.Items))}
		return m, m.loadDetail()
	case DetailLoadedMsg:
		if typed.Err != nil {
			m.LastError = typed.Err
			return m, nil
		}
		if sel, ok := m.selected(); ok && sel.EventID == typed.Event.ID {
			ev := typed.Event
			m.Detail = &ev
		}
		return m, nil
	case ReminderMsg:
		r := typed.Reminder
		m.LastReminder = &r
		m.Status = StatusBar{Text: fmt.Sprintf("reminder: %s at %s", r.Title, r.StartsAt.In(m.loc).Format("15:04"))}
		return m, waitForReminderCmd(m.reminders)
	case SetStatusMsg:
		m.Status = StatusBar{Text: typed.Text, IsError: typed.IsError}
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.Quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.HelpVisible = !m.HelpVisible
		m.helpModel.ShowAll = m.HelpVisible
		return m, nil
	case key.Matches(msg, m.keys.Command):
		m.CommandActive = true
		m.commandInput.SetValue("")
		m.commandInput.Focus()
		m.Status = StatusBar{Text: "command line active"}
		return m, nil
	case key.Matches(msg, m.keys.Prev):
		return m.setWindow(m.Span, shift(m.Span, m.FocusDate, -1))
	case key.Matches(msg, m.keys.Next):
		return m.setWindow(m.Span, shift(m.Span, m.FocusDate, 1))
	case key.Matches(msg, m.keys.Today):
		return m.setWindow(m.Span, m.todayDate())
	case key.Matches(msg, m.keys.Day):
		return m.setWindow(commands.SpanDay, m.FocusDate)
	case key.Matches(msg, m.keys.Week):
		return m.setWindow(commands.SpanWeek, m.FocusDate)
	case key.Matches(msg, m.keys.Month):
		return m.setWindow(commands.SpanMonth, m.FocusDate)
	case key.Matches(msg, m.keys.Reload):
		m.Loading = true
		return m, m.load()
	case key.Matches(msg, m.keys.Up):
		if m.Cursor > 0 {
			m.Cursor--
			return m, m.loadDetail()
		}
	case key.Matches(msg, m.keys.Down):
		if m.Cursor < len(m.Items)-1 {
			m.Cursor++
			return m, m.loadDetail()
		}
	}
	return m, nil
}

func (m Model) handleCommandKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.closeCommandLine()
		m.Status = StatusBar{Text: "command line closed"}
		return m, nil
	case tea.KeyEnter:
		raw := m.commandInput.Value()
		m.closeCommandLine()
		return m.executeCommand(raw)
	case tea.KeyRunes, tea.KeySpace:
		m.commandInput.SetValue(m.commandInput.Value() + string(msg.Runes))
		return m, nil
	}
	var cmd tea.Cmd
	m.commandInput, cmd = m.commandInput.Update(msg)
	return m, cmd
}

func (m *Model) closeCommandLine() {
	m.CommandActive = false
	m.commandInput.SetValue("")
	m.commandInput.Blur()
}

func (m Model) executeCommand(raw string) (Model, tea.Cmd) {
	cmd, err := commands.Parse(raw)
	if err != nil {
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		return m, nil
	}

	span, focus := m.Span, m.FocusDate
	res, err := commands.Execute(cmd, commands.Handlers{
		Goto: func(a commands.GotoArgs) (commands.Result, error) {
			focus = time.Date(a.Date.Year(), a.Date.Month(), a.Date.Day(), 0, 0, 0, 0, m.loc)
			return commands.Result{Message: "focus: " + focus.Format(time.DateOnly)}, nil
		},
		Span: func(a commands.SpanArgs) (commands.Result, error) {
			span = a.Span
			return commands.Result{Message: "span: " + string(span)}, nil
		},
		Today: func() (commands.Result, error) {
			focus = m.todayDate()
			return commands.Result{Message: "focus: today"}, nil
		},
		Move: func(a commands.MoveArgs) (commands.Result, error) {
			focus = shift(span, focus, a.Steps)
			return commands.Result{Message: "focus: " + focus.Format(time.DateOnly)}, nil
		},
	})
	if err != nil {
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		return m, nil
	}
	next, load := m.setWindow(span, focus)
	next.Status = StatusBar{Text: res.Message}
	return next, load
}

// setWindow refocuses the agenda and starts loading the new window.
func (m Model) setWindow(span commands.Span, focus time.Time) (Model, tea.Cmd) {
	m.Span = span
	m.FocusDate = focus
	m.From, m.To = spanBounds(span, focus)
	m.Cursor = 0
	m.Detail = nil
	m.Loading = true
	m.Status = StatusBar{Text: fmt.Sprintf("%s: %s", span, m.rangeLabel())}
	return m, m.load()
}

func (m Model) load() tea.Cmd {
	ctx, lister, from, to := m.ctx, m.lister, m.From, m.To
	return func() tea.Msg {
		items, err := lister.ListWindow(ctx, from, to)
		return ItemsLoadedMsg{From: from, To: to, Items: items, Err: err}
	}
}

func (m Model) loadDetail() tea.Cmd {
	sel, ok := m.selected()
	if !ok {
		return nil
	}
	ctx, lister := m.ctx, m.lister
	return func() tea.Msg {
		ev, err := lister.Get(ctx, sel.EventID)
		return DetailLoadedMsg{Event: ev, Err: err}
	}
}

func waitForReminderCmd(ch <-chan scheduler.Reminder) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		r, ok := <-ch
		if !ok {
			return nil
		}
		return ReminderMsg{Reminder: r}
	}
}

func (m Model) rangeLabel() string {
	if m.From.Equal(m.To) {
		return m.From.Format(time.DateOnly)
	}
	return m.From.Format(time.DateOnly) + " .. " + m.To.Format(time.DateOnly)
}

func (m Model) renderDetail() string {
	sel, ok := m.selected()
	if !ok {
		return views.RenderEventDetail(views.EventDetailData{})
	}
	data := views.EventDetailData{
		Title:       sel.Title,
		When:        fmt.Sprintf("%s %s-%s", sel.Start.Format(time.DateOnly), sel.Start.Format("15:04"), sel.End.Format("15:04")),
		Location:    sel.Location,
		Description: sel.Description,
		EventID:     sel.EventID,
	}
	if m.Detail != nil && m.Detail.ID == sel.EventID && m.Detail.Recurrence != nil {
		data.Recurrence = m.Detail.Recurrence.String()
	}
	return views.RenderEventDetail(data)
}

func (m Model) View() string {
	if m.Quitting {
		return ""
	}
	items := make([]views.AgendaItemData, 0, len(m.Items))
	selectedKey := ""
	for i, item := range m.Items {
		k := scheduler.ReminderKey(item.EventID, item.Start)
		if i == m.Cursor {
			selectedKey = k
		}
		items = append(items, views.AgendaItemData{
			Key:       k,
			Title:     item.Title,
			Date:      item.Start.Format(time.DateOnly),
			Time:      item.Start.Format("15:04"),
			Recurring: item.Expanded,
		})
	}
	left := views.RenderAgendaPanel(views.AgendaPanelData{
		Span:        string(m.Span),
		Range:       m.rangeLabel(),
		TableView:   m.agendaTable.View(),
		Items:       items,
		SelectedKey: selectedKey,
		Loading:     m.Loading,
	})

	right := []string{m.detailViewport.View()}
	if line := views.RenderCommandLine(m.CommandActive, m.commandInput.View()); line != "" {
		right = append(right, line)
	}
	if m.HelpVisible {
		right = append(right, m.renderHelpView())
	}

	notification := ""
	if m.LastReminder != nil {
		notification = views.RenderReminder(m.LastReminder.Title, m.LastReminder.StartsAt.In(m.loc).Format("2006-01-02 15:04"))
	}

	return views.RenderFrame(views.Frame{
		Span:     string(m.Span),
		Zone:     m.loc.String(),
		Agenda:   left,
		Sidebar:  right,
		Status:   m.Status.Text,
		IsError:  m.Status.IsError,
		Reminder: notification,
		Help:     m.helpModel.ShortHelpView(m.keys.ShortHelp()),
		Width:    m.Width,
	})
}
