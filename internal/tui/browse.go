// Package tui implements a read-only Bubble Tea browser over one
// ThreadBox session, grounded on gert's pkg/ecosystem/tui.Model (the
// same Init/Update/View shape, lipgloss status-line styling, q-to-quit
// and arrow-key navigation) but driven by storage.Engine.ListDirectory
// instead of a runbook's trace events, and using bubbles/list for the
// entry list and glamour for Markdown file previews where gert's TUI
// renders plain trace text.
package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/simbo1905/threadbox-mcp/internal/pathvfs"
	"github.com/simbo1905/threadbox-mcp/internal/storage"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

type entryItem struct {
	name  string
	path  string
	isDir bool
}

func (e entryItem) Title() string {
	if e.isDir {
		return e.name + "/"
	}
	return e.name
}
func (e entryItem) Description() string { return e.path }
func (e entryItem) FilterValue() string { return e.name }

type model struct {
	ctx     context.Context
	eng     *storage.Engine
	session string

	path    string
	list    list.Model
	preview string
	err     error
	width   int
	height  int
}

// Browse runs a full-screen, read-only browser over session starting at
// the root directory. It blocks until the user quits.
func Browse(ctx context.Context, eng *storage.Engine, session string) error {
	m, err := newModel(ctx, eng, session, "/")
	if err != nil {
		return err
	}
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}

func newModel(ctx context.Context, eng *storage.Engine, session, path string) (*model, error) {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = "threadbox: " + session
	l.SetShowHelp(false)

	m := &model{ctx: ctx, eng: eng, session: session, path: path, list: l}
	if err := m.reload(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *model) reload() error {
	listing, err := m.eng.ListDirectory(m.ctx, m.path, m.session)
	if err != nil {
		return err
	}

	items := make([]list.Item, 0, len(listing.Directories)+len(listing.Files))
	for _, d := range listing.Directories {
		items = append(items, entryItem{name: d.Name, path: d.Path, isDir: true})
	}
	for _, f := range listing.Files {
		items = append(items, entryItem{name: f.Name, path: f.Path})
	}
	m.list.SetItems(items)
	m.list.Title = "threadbox: " + m.session + "  " + m.path
	m.preview = ""
	return nil
}

func (m *model) Init() tea.Cmd { return nil }

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.list.SetSize(msg.Width, msg.Height-4)

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "backspace", "left":
			if parent, ok := pathvfs.Parent(m.path); ok {
				m.path = parent
				m.err = m.reload()
			}
			return m, nil
		case "enter", "right":
			if item, ok := m.list.SelectedItem().(entryItem); ok {
				if item.isDir {
					m.path = item.path
					m.err = m.reload()
				} else {
					m.loadPreview(item.path)
				}
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *model) loadPreview(path string) {
	entry, ok, err := m.eng.ReadFile(m.ctx, path, m.session)
	if err != nil {
		m.preview = errStyle.Render(err.Error())
		return
	}
	if !ok {
		m.preview = errStyle.Render("file not found: " + path)
		return
	}

	text := string(entry.Content)
	if strings.HasSuffix(path, ".md") {
		rendered, err := glamour.Render(text, "dark")
		if err == nil {
			text = rendered
		}
	}
	m.preview = text
}

func (m *model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.list.Title))
	b.WriteString("\n")
	b.WriteString(m.list.View())

	if m.preview != "" {
		b.WriteString("\n\n")
		b.WriteString(m.preview)
	}
	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(errStyle.Render(m.err.Error()))
	}

	b.WriteString("\n")
	b.WriteString(statusStyle.Render("  q: quit  enter/→: open  backspace/←: up"))
	return b.String()
}
