// Package tui is a terminal inspector for the session's current file: an
// outline of the syntax tree beside the highlighted source.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tliron/commonlog"

	"github.com/dhamidi/sclview/format"
	"github.com/dhamidi/sclview/highlight"
	"github.com/dhamidi/sclview/session"
	"github.com/dhamidi/sclview/tree"
)

var log = commonlog.GetLogger("sclview.tui")

// Model is the root Bubble Tea model of the inspector.
type Model struct {
	session *session.Session
	theme   highlight.Theme

	file  *session.File
	rows  []*tree.Node
	rowOf map[tree.Ref]int
	lines []string

	cursor     int
	outlineTop int
	sourceTop  int

	status string
	width  int
	height int
}

// New builds a model over the session's current file.
func New(s *session.Session, theme highlight.Theme) Model {
	m := Model{session: s, theme: theme}
	if f, ok := s.Current(); ok {
		m.setFile(f)
	} else {
		m.status = "no file loaded"
	}
	return m
}

// setFile lists the named and error nodes as outline rows and paints the
// source. The cursor starts on the root again.
func (m *Model) setFile(f *session.File) {
	m.file = f
	m.rows = nil
	m.rowOf = make(map[tree.Ref]int)
	for n := range f.Index.All() {
		if n.Named || n.IsError() {
			m.rowOf[n.Ref] = len(m.rows)
			m.rows = append(m.rows, n)
		}
	}
	m.lines = paintLines(f, m.theme)
	m.cursor, m.outlineTop, m.sourceTop = 0, 0, 0
	_, total := f.Navigator.Position()
	m.status = fmt.Sprintf("%s: %d nodes, %d errors", f.Path, f.Index.Len(), total)
}

func (m Model) Init() tea.Cmd {
	if m.file == nil {
		return tea.SetWindowTitle("sclview")
	}
	return tea.SetWindowTitle("sclview " + m.file.Path)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.keepCursorVisible()
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, defaultKeys.Quit) {
			return m, tea.Quit
		}
		if m.file == nil {
			return m, nil
		}
		switch {
		case key.Matches(msg, defaultKeys.Down):
			m.moveCursor(1)
		case key.Matches(msg, defaultKeys.Up):
			m.moveCursor(-1)
		case key.Matches(msg, defaultKeys.PageDown):
			m.scrollSource(m.paneHeight() / 2)
		case key.Matches(msg, defaultKeys.PageUp):
			m.scrollSource(-m.paneHeight() / 2)
		case key.Matches(msg, defaultKeys.Jump):
			m.jump()
		case key.Matches(msg, defaultKeys.NextError):
			m.stepError(m.session.NextError)
		case key.Matches(msg, defaultKeys.PrevError):
			m.stepError(m.session.PrevError)
		case key.Matches(msg, defaultKeys.Reload):
			m.reload()
		}
	}
	return m, nil
}

func (m *Model) moveCursor(delta int) {
	m.cursor = max(0, min(m.cursor+delta, len(m.rows)-1))
	m.keepCursorVisible()
}

func (m *Model) keepCursorVisible() {
	h := m.paneHeight()
	if m.cursor < m.outlineTop {
		m.outlineTop = m.cursor
	}
	if h > 0 && m.cursor >= m.outlineTop+h {
		m.outlineTop = m.cursor - h + 1
	}
}

func (m *Model) scrollSource(delta int) {
	m.sourceTop = max(0, min(m.sourceTop+delta, len(m.lines)-1))
}

// jump scrolls the source so the selected node's first row sits a third of
// the way down the pane.
func (m *Model) jump() {
	n := m.selected()
	if n == nil {
		return
	}
	m.sourceTop = max(0, n.Span.Start.Row-m.paneHeight()/3)
	m.status = format.Describe(n)
}

func (m *Model) stepError(move func() (*tree.Node, bool)) {
	n, ok := move()
	if !ok {
		m.status = "no errors"
		return
	}
	if row, ok := m.rowOf[n.Ref]; ok {
		m.cursor = row
		m.keepCursorVisible()
	}
	m.jump()
	index, total := m.session.ErrorPosition()
	m.status = fmt.Sprintf("error %d of %d: %s at %s", index+1, total, format.ErrorMessage(n), n.Span.Start)
}

func (m *Model) reload() {
	f, err := m.session.Load(m.file.Path)
	if err != nil {
		log.Warningf("reload %s: %v", m.file.Path, err)
		m.status = "reload failed: " + err.Error()
		return
	}
	m.setFile(f)
}

func (m Model) selected() *tree.Node {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return nil
	}
	return m.rows[m.cursor]
}

// paneHeight is the number of content rows inside a pane border.
func (m Model) paneHeight() int {
	return max(0, m.height-3)
}

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}
	if m.file == nil {
		return m.status + "\n"
	}

	outlineWidth := min(m.width*40/100, 60)
	sourceWidth := m.width - outlineWidth
	h := m.paneHeight()

	outline := paneStyle.Width(outlineWidth - 2).Height(h).Render(m.renderOutline(outlineWidth-2, h))
	source := paneStyle.Width(sourceWidth - 2).Height(h).Render(m.renderSource(sourceWidth-2, h))
	main := lipgloss.JoinHorizontal(lipgloss.Top, outline, source)
	return lipgloss.JoinVertical(lipgloss.Left, main, m.renderStatus())
}

func (m Model) renderOutline(width, height int) string {
	clip := lipgloss.NewStyle().MaxWidth(width)
	var b strings.Builder
	for i := m.outlineTop; i < len(m.rows) && i < m.outlineTop+height; i++ {
		n := m.rows[i]
		line := strings.Repeat(" ", n.Depth) + format.Describe(n)
		switch {
		case i == m.cursor:
			line = selectedRowStyle.Render(clip.Render(line))
		case n.IsError():
			line = errorRowStyle.Render(clip.Render(line))
		default:
			line = clip.Render(line)
		}
		if i > m.outlineTop {
			b.WriteByte('\n')
		}
		b.WriteString(line)
	}
	return b.String()
}

func (m Model) renderSource(width, height int) string {
	digits := len(fmt.Sprint(len(m.lines)))
	clip := lipgloss.NewStyle().MaxWidth(max(1, width-digits-1))
	marked := m.selected()

	var b strings.Builder
	for row := m.sourceTop; row < len(m.lines) && row < m.sourceTop+height; row++ {
		gutter := gutterStyle
		if marked != nil && row >= marked.Span.Start.Row && row <= marked.Span.End.Row {
			gutter = markedGutterStyle
		}
		if row > m.sourceTop {
			b.WriteByte('\n')
		}
		b.WriteString(gutter.Render(fmt.Sprintf("%*d ", digits, row+1)))
		b.WriteString(clip.Render(m.lines[row]))
	}
	return b.String()
}

func (m Model) renderStatus() string {
	var keys []string
	for _, binding := range defaultKeys.help() {
		h := binding.Help()
		keys = append(keys, h.Key+" "+h.Desc)
	}
	return statusStyle.Render(m.status + "  ·  " + strings.Join(keys, "  "))
}
