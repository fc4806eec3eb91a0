package tui

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// PickerItem is one row of a commit picker. Headers are shown but cannot be
// chosen.
type PickerItem struct {
	Label  string
	Header bool
}

type pickerKeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Confirm key.Binding
	Cancel  key.Binding
}

func (k pickerKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Confirm, k.Cancel}
}

func (k pickerKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down},
		{k.Confirm, k.Cancel},
	}
}

var defaultPickerKeys = pickerKeyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Confirm: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "choose"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("ctrl+c", "q", "esc"),
		key.WithHelp("q/esc", "cancel"),
	),
}

type pickerStyles struct {
	title    lipgloss.Style
	cursor   lipgloss.Style
	selected lipgloss.Style
	header   lipgloss.Style
	item     lipgloss.Style
}

func newPickerStyles() pickerStyles {
	return pickerStyles{
		title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")).MarginBottom(1),
		cursor:   lipgloss.NewStyle().Foreground(lipgloss.Color("205")),
		selected: lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true),
		header:   lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		item:     lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
	}
}

// pickerModel is the bubbletea model for choosing a commit
type pickerModel struct {
	title    string
	items    []PickerItem
	cursor   int
	chosen   bool
	canceled bool
	styles   pickerStyles
	keys     pickerKeyMap
	help     help.Model
}

func newPickerModel(title string, items []PickerItem) pickerModel {
	m := pickerModel{
		title:  title,
		items:  items,
		cursor: -1,
		styles: newPickerStyles(),
		keys:   defaultPickerKeys,
		help:   help.New(),
	}
	m.cursor = m.next(-1, 1)
	return m
}

// next returns the first selectable row after from in direction dir, or
// from itself when there is none.
func (m pickerModel) next(from, dir int) int {
	for i := from + dir; i >= 0 && i < len(m.items); i += dir {
		if !m.items[i].Header {
			return i
		}
	}
	return from
}

func (m pickerModel) Init() tea.Cmd {
	return nil
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Cancel):
			m.canceled = true
			return m, tea.Quit

		case key.Matches(msg, m.keys.Up):
			m.cursor = m.next(m.cursor, -1)

		case key.Matches(msg, m.keys.Down):
			m.cursor = m.next(m.cursor, 1)

		case key.Matches(msg, m.keys.Confirm):
			if m.cursor >= 0 {
				m.chosen = true
				return m, tea.Quit
			}
		}
	}
	return m, nil
}

func (m pickerModel) View() string {
	var b strings.Builder

	b.WriteString(m.styles.title.Render(m.title))
	b.WriteString("\n")

	for i, item := range m.items {
		switch {
		case item.Header:
			b.WriteString(m.styles.header.Render(item.Label))
		case i == m.cursor:
			b.WriteString(m.styles.cursor.Render("▸ "))
			b.WriteString(m.styles.selected.Render(item.Label))
		default:
			b.WriteString("  ")
			b.WriteString(m.styles.item.Render(item.Label))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	b.WriteString("\n")
	return b.String()
}

// RunPicker shows items and returns the index of the chosen row
func RunPicker(title string, items []PickerItem) (int, error) {
	if err := checkInteractiveAllowed(); err != nil {
		return 0, err
	}

	m := newPickerModel(title, items)
	if m.cursor < 0 {
		return 0, fmt.Errorf("nothing to choose from")
	}
	p := tea.NewProgram(m, tea.WithInput(os.Stdin), tea.WithOutput(os.Stdout))
	finalModel, err := p.Run()
	if err != nil {
		return 0, err
	}

	res := finalModel.(pickerModel)
	if res.canceled || !res.chosen {
		return 0, ErrCanceled
	}
	return res.cursor, nil
}
