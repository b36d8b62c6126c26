package views

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderAgendaPanelGroupsByDay(t *testing.T) {
	out := RenderAgendaPanel(AgendaPanelData{
		Span:  "week",
		Range: "2025-01-06 .. 2025-01-12",
		Items: []AgendaItemData{
			{Key: "a", Title: "Standup", Date: "2025-01-06", Time: "09:00", Recurring: true},
			{Key: "b", Title: "Lunch", Date: "2025-01-06", Time: "12:00"},
			{Key: "c", Title: "Review", Date: "2025-01-07", Time: "15:00"},
		},
		SelectedKey: "b",
	})

	assert.Equal(t, 2, strings.Count(out, "2025-01-06"), "day header once plus the range:\n%s", out)
	for _, want := range []string{"Standup", "Lunch", "Review", "[R]", "span: week"} {
		assert.Contains(t, out, want)
	}
	assert.Less(t, strings.Index(out, "Standup"), strings.Index(out, "Review"), "items out of order")
}

func TestRenderAgendaPanelEmptyAndLoading(t *testing.T) {
	assert.Contains(t, RenderAgendaPanel(AgendaPanelData{Span: "day"}), "(agenda empty)")
	assert.Contains(t, RenderAgendaPanel(AgendaPanelData{Span: "day", Loading: true}), "(loading)")
}

func TestEventMarkdown(t *testing.T) {
	md := EventMarkdown(EventDetailData{
		Title:       "Standup",
		When:        "2025-01-06 09:00-09:15",
		Recurrence:  "WEEKLY every 1 period(s), ends never",
		Description: "Share blockers.",
		EventID:     "evt-1",
	})
	for _, want := range []string{"# Standup", "**When:** 2025-01-06 09:00-09:15", "**Repeats:**", "`evt-1`", "Share blockers."} {
		assert.Contains(t, md, want)
	}
	assert.NotContains(t, md, "**Where:**", "empty location is omitted")
}

func TestRenderEventDetailWithoutSelection(t *testing.T) {
	assert.Equal(t, "details:\n(no selection)", RenderEventDetail(EventDetailData{}))
}

func TestRenderFrameLayout(t *testing.T) {
	frame := Frame{
		Span:     "week",
		Zone:     "UTC",
		Agenda:   "AGENDA",
		Sidebar:  []string{"SIDEBAR"},
		Status:   "boom",
		IsError:  true,
		Reminder: "reminder: Standup at 09:00",
	}
	sameLine := func(out string) bool {
		for _, line := range strings.Split(out, "\n") {
			if strings.Contains(line, "AGENDA") && strings.Contains(line, "SIDEBAR") {
				return true
			}
		}
		return false
	}

	out := RenderFrame(frame)
	for _, want := range []string{"eventd | week | UTC", "status: error: boom", "reminder: Standup"} {
		assert.Contains(t, out, want)
	}
	assert.True(t, sameLine(out), "expected side-by-side panels:\n%s", out)

	frame.Width = 60
	frame.Status = ""
	out = RenderFrame(frame)
	assert.False(t, sameLine(out), "expected stacked panels on a narrow terminal:\n%s", out)
	assert.NotContains(t, out, "status:")
}
