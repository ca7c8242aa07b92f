// Package tui implements the interactive page review screen: an ordered
// list of the session's pages with keyboard-driven reorder and delete.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/scanforge/scanforge/internal/cli"
	"github.com/scanforge/scanforge/internal/model"
	"github.com/scanforge/scanforge/internal/session"
)

// KeyMap defines the review screen's keyboard shortcuts.
type KeyMap struct {
	Up       key.Binding
	Down     key.Binding
	MoveUp   key.Binding
	MoveDown key.Binding
	Delete   key.Binding
	Help     key.Binding
	Quit     key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("↓/j", "down"),
		),
		MoveUp: key.NewBinding(
			key.WithKeys("K", "shift+up"),
			key.WithHelp("K", "move page up"),
		),
		MoveDown: key.NewBinding(
			key.WithKeys("J", "shift+down"),
			key.WithHelp("J", "move page down"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d", "delete"),
			key.WithHelp("d", "delete page"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "done"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.MoveUp, k.MoveDown, k.Delete, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down},
		{k.MoveUp, k.MoveDown, k.Delete},
		{k.Help, k.Quit},
	}
}

var (
	cursorStyle   = lipgloss.NewStyle().Bold(true).Foreground(cli.PrimaryColor)
	rowStyle      = lipgloss.NewStyle().PaddingLeft(2)
	statusStyle   = lipgloss.NewStyle().Foreground(cli.SubtleColor).MarginTop(1)
	titleBarStyle = lipgloss.NewStyle().Bold(true).Foreground(cli.PrimaryColor).MarginBottom(1)
)

// reviewModel is the bubbletea model for the page review screen.
type reviewModel struct {
	manager *session.Manager
	keys    KeyMap
	help    help.Model
	pages   []model.Page
	cursor  int
	status  string
	err     error
}

// NewReview builds the review model over the live session manager.
func NewReview(manager *session.Manager) tea.Model {
	return reviewModel{
		manager: manager,
		keys:    DefaultKeyMap(),
		help:    help.New(),
		pages:   manager.Snapshot(),
	}
}

// Init implements tea.Model.
func (m reviewModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m reviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(keyMsg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(keyMsg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(keyMsg, m.keys.Down):
		if m.cursor < len(m.pages)-1 {
			m.cursor++
		}

	case key.Matches(keyMsg, m.keys.MoveUp):
		m = m.movePage(-1)

	case key.Matches(keyMsg, m.keys.MoveDown):
		m = m.movePage(1)

	case key.Matches(keyMsg, m.keys.Delete):
		m = m.deletePage()
	}
	return m, nil
}

func (m reviewModel) movePage(delta int) reviewModel {
	if len(m.pages) == 0 {
		return m
	}
	target := m.cursor + delta
	if target < 0 || target >= len(m.pages) {
		return m
	}
	page := m.pages[m.cursor]
	if err := m.manager.Reorder(page.ID, target); err != nil {
		m.err = err
		return m
	}
	m.pages = m.manager.Snapshot()
	m.cursor = target
	m.status = fmt.Sprintf("moved page %d to position %d", page.ID, target+1)
	m.err = nil
	return m
}

func (m reviewModel) deletePage() reviewModel {
	if len(m.pages) == 0 {
		return m
	}
	page := m.pages[m.cursor]
	if err := m.manager.Delete(page.ID); err != nil {
		m.err = err
		return m
	}
	m.pages = m.manager.Snapshot()
	if m.cursor >= len(m.pages) && m.cursor > 0 {
		m.cursor--
	}
	m.status = fmt.Sprintf("deleted page %d", page.ID)
	m.err = nil
	return m
}

// View implements tea.Model.
func (m reviewModel) View() string {
	var b strings.Builder
	b.WriteString(titleBarStyle.Render(fmt.Sprintf("Session pages (%d)", len(m.pages))))
	b.WriteString("\n")

	if len(m.pages) == 0 {
		b.WriteString(rowStyle.Render("no pages left — q to finish"))
		b.WriteString("\n")
	}
	for i, page := range m.pages {
		line := fmt.Sprintf("%2d. page %-3d profile=%-6s captured %s",
			page.Ordinal+1, page.ID, page.Profile, page.CapturedAt.Format("15:04:05"))
		if i == m.cursor {
			b.WriteString(cursorStyle.Render("> " + line))
		} else {
			b.WriteString(rowStyle.Render(line))
		}
		b.WriteString("\n")
	}

	if m.err != nil {
		b.WriteString(statusStyle.Render(cli.FormatError(m.err.Error())))
		b.WriteString("\n")
	} else if m.status != "" {
		b.WriteString(statusStyle.Render(m.status))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

// RunReview drives the review screen until the user quits.
func RunReview(manager *session.Manager) error {
	p := tea.NewProgram(NewReview(manager))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("page review UI failed: %w", err)
	}
	return nil
}
