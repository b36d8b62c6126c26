package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// narrowWidth is the terminal width below which panels stack vertically.
const narrowWidth = 90

// Frame is one full agenda screen.
type Frame struct {
	Span     string
	Zone     string
	Agenda   string
	Sidebar  []string
	Status   string
	IsError  bool
	Reminder string
	Help     string
	// Width is the terminal width; zero keeps the fixed two-column layout.
	Width int
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	okStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	boxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	reminderStyle = boxStyle.BorderForeground(lipgloss.Color("13"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	dayStyle      = lipgloss.NewStyle().Bold(true).Underline(true)
	cursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	badgeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))
)

func RenderFrame(f Frame) string {
	sidebar := strings.Join(f.Sidebar, "\n\n")

	var body string
	switch {
	case f.Width == 0:
		body = lipgloss.JoinHorizontal(lipgloss.Top,
			boxStyle.Width(58).Render(f.Agenda),
			boxStyle.Width(58).Render(sidebar))
	case f.Width < narrowWidth:
		// border plus padding takes four columns
		w := max(f.Width-4, 20)
		body = lipgloss.JoinVertical(lipgloss.Left,
			boxStyle.Width(w).Render(f.Agenda),
			boxStyle.Width(w).Render(sidebar))
	default:
		agendaWidth := f.Width*3/5 - 4
		body = lipgloss.JoinHorizontal(lipgloss.Top,
			boxStyle.Width(agendaWidth).Render(f.Agenda),
			boxStyle.Width(f.Width-agendaWidth-8).Render(sidebar))
	}

	out := []string{
		titleStyle.Render(fmt.Sprintf("eventd | %s | %s", f.Span, f.Zone)),
		body,
	}
	if f.Status != "" {
		if f.IsError {
			out = append(out, errorStyle.Render("status: error: "+f.Status))
		} else {
			out = append(out, okStyle.Render("status: "+f.Status))
		}
	}
	if f.Reminder != "" {
		out = append(out, reminderStyle.Render(f.Reminder))
	}
	if f.Help != "" {
		out = append(out, mutedStyle.Render(f.Help))
	}
	return strings.Join(out, "\n")
}

// RenderMarkdown renders md for the terminal and falls back to the raw text.
func RenderMarkdown(md string) string {
	if strings.TrimSpace(md) == "" {
		return ""
	}
	out, err := glamour.Render(md, "dark")
	if err != nil {
		return md
	}
	return strings.TrimSpace(out)
}
