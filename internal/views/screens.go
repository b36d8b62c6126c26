package views

import (
	"fmt"
	"strings"
)

type AgendaItemData struct {
	Key       string
	Title     string
	Date      string
	Time      string
	Recurring bool
}

type AgendaPanelData struct {
	Span      string
	Range     string
	TableView string
	Items     []AgendaItemData
	// SelectedKey marks the row under the cursor.
	SelectedKey string
	Loading     bool
}

type EventDetailData struct {
	Title       string
	When        string
	Location    string
	Recurrence  string
	Description string
	EventID     string
}

type HelpPanelData struct {
	Bindings []string
	HelpView string
}

func RenderAgendaPanel(data AgendaPanelData) string {
	var b strings.Builder
	b.WriteString("agenda:\n")
	b.WriteString(fmt.Sprintf("span: %s | %s\n", data.Span, data.Range))
	b.WriteString(data.TableView + "\n")
	if data.Loading {
		b.WriteString("(loading)")
		return b.String()
	}
	if len(data.Items) == 0 {
		b.WriteString("(agenda empty)")
		return b.String()
	}

	day := ""
	for _, item := range data.Items {
		if item.Date != day {
			day = item.Date
			b.WriteString("\n" + dayStyle.Render(day) + "\n")
		}
		cursor := " "
		if item.Key == data.SelectedKey {
			cursor = cursorStyle.Render(">")
		}
		badge := ""
		if item.Recurring {
			badge = " " + badgeStyle.Render("[R]")
		}
		b.WriteString(fmt.Sprintf("%s %s %s%s\n", cursor, item.Time, item.Title, badge))
	}
	return strings.TrimSpace(b.String())
}

// EventMarkdown lays an event out as markdown so it can go through glamour.
func EventMarkdown(data EventDetailData) string {
	var b strings.Builder
	b.WriteString("# " + data.Title + "\n\n")
	b.WriteString("- **When:** " + data.When + "\n")
	if data.Location != "" {
		b.WriteString("- **Where:** " + data.Location + "\n")
	}
	if data.Recurrence != "" {
		b.WriteString("- **Repeats:** " + data.Recurrence + "\n")
	}
	if data.EventID != "" {
		b.WriteString("- **Event:** `" + data.EventID + "`\n")
	}
	if strings.TrimSpace(data.Description) != "" {
		b.WriteString("\n" + data.Description + "\n")
	}
	return b.String()
}

func RenderEventDetail(data EventDetailData) string {
	if strings.TrimSpace(data.Title) == "" {
		return "details:\n(no selection)"
	}
	return "details:\n" + RenderMarkdown(EventMarkdown(data))
}

func RenderCommandLine(active bool, view string) string {
	if !active {
		return ""
	}
	return "command: " + view
}

func RenderReminder(title, when string) string {
	if strings.TrimSpace(title) == "" {
		return ""
	}
	return fmt.Sprintf("reminder: %s at %s", title, when)
}

func RenderHelpPanel(data HelpPanelData) string {
	return fmt.Sprintf("help:\n%s\n%s", strings.Join(data.Bindings, "\n"), data.HelpView)
}
