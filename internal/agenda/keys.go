package agenda

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/sandeepkv93/eventd/internal/views"
)

type keyMap struct {
	Prev    key.Binding
	Next    key.Binding
	Up      key.Binding
	Down    key.Binding
	Today   key.Binding
	Day     key.Binding
	Week    key.Binding
	Month   key.Binding
	Reload  key.Binding
	Command key.Binding
	Help    key.Binding
	Quit    key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Prev:    key.NewBinding(key.WithKeys("h", "left"), key.WithHelp("h", "previous span")),
		Next:    key.NewBinding(key.WithKeys("l", "right"), key.WithHelp("l", "next span")),
		Up:      key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k", "cursor up")),
		Down:    key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j", "cursor down")),
		Today:   key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "today")),
		Day:     key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "day span")),
		Week:    key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "week span")),
		Month:   key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "month span")),
		Reload:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Command: key.NewBinding(key.WithKeys(":"), key.WithHelp(":", "command line")),
		Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Prev, k.Next, k.Today, k.Command, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Prev, k.Next, k.Up, k.Down},
		{k.Today, k.Day, k.Week, k.Month},
		{k.Reload, k.Command, k.Help, k.Quit},
	}
}

func (m Model) renderHelpView() string {
	var plain []string
	for _, group := range m.keys.FullHelp() {
		for _, b := range group {
			plain = append(plain, fmt.Sprintf("- %s: %s", b.Help().Key, b.Help().Desc))
		}
	}
	return views.RenderHelpPanel(views.HelpPanelData{
		Bindings: plain,
		HelpView: m.helpModel.View(m.keys),
	})
}
