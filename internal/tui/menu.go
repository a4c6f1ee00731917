package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// Action identifies what the user picked from the menu.
type Action int

const (
	ActionNone Action = iota
	ActionYears
	ActionWeeks
	ActionWeek
	ActionDays
	ActionDay
	ActionExportDay
	ActionExportWeek
	ActionQuit
)

type menuItem struct {
	action Action
	label  string
	prompt string // empty when the action needs no parameter
}

var menuItems = []menuItem{
	{ActionYears, "Show yearly totals", ""},
	{ActionWeeks, "Show weekly totals", ""},
	{ActionWeek, "Show one week", "Year and week, e.g. 2024 10"},
	{ActionDays, "Show all days", ""},
	{ActionDay, "Show one day", "Date, e.g. 2024-03-04 or 'yesterday'"},
	{ActionExportDay, "Export a day", "Date, e.g. 2024-03-04 or 'yesterday'"},
	{ActionExportWeek, "Export a week", "Year and week, e.g. 2024 10"},
	{ActionQuit, "Quit", ""},
}

type menuState int

const (
	pickView menuState = iota
	paramView
)

// MenuResult holds the action the user chose and its raw parameter input.
type MenuResult struct {
	Action Action
	Param  string
}

// Menu is a bubbletea model that presents the action menu once and quits
// with the chosen action. The caller loops around tea.NewProgram runs.
type Menu struct {
	state  menuState
	cursor int
	input  textinput.Model
	result MenuResult
}

func NewMenu() *Menu {
	ti := textinput.New()
	ti.CharLimit = 64
	return &Menu{input: ti}
}

func (m *Menu) Init() tea.Cmd {
	return nil
}

func (m *Menu) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		if m.state == paramView {
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	if keyMsg.String() == "ctrl+c" {
		m.result = MenuResult{Action: ActionQuit}
		return m, tea.Quit
	}

	switch m.state {
	case pickView:
		return m.updatePick(keyMsg)
	case paramView:
		return m.updateParam(keyMsg)
	}
	return m, nil
}

func (m *Menu) updatePick(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		m.result = MenuResult{Action: ActionQuit}
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(menuItems)-1 {
			m.cursor++
		}
	case "enter":
		item := menuItems[m.cursor]
		if item.prompt == "" {
			m.result = MenuResult{Action: item.action}
			return m, tea.Quit
		}
		m.state = paramView
		m.input.SetValue("")
		m.input.Placeholder = item.prompt
		m.input.Focus()
		return m, textinput.Blink
	}
	return m, nil
}

func (m *Menu) updateParam(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.state = pickView
		m.input.Blur()
		return m, nil
	case "enter":
		value := strings.TrimSpace(m.input.Value())
		if value == "" {
			return m, nil
		}
		m.result = MenuResult{Action: menuItems[m.cursor].action, Param: value}
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Menu) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("weeklog"))
	b.WriteString("\n")

	if m.state == paramView {
		b.WriteString(menuItems[m.cursor].label)
		b.WriteString("\n\n")
		b.WriteString(m.input.View())
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("Enter: confirm — Esc: back"))
		return b.String()
	}

	for i, item := range menuItems {
		line := fmt.Sprintf("  %s", item.label)
		if i == m.cursor {
			line = highlightStyle.Render("> " + item.label)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("Up/Down: move — Enter: select — q: quit"))
	return b.String()
}

// Result returns the user's choice after the program has finished.
func (m *Menu) Result() MenuResult {
	return m.result
}
