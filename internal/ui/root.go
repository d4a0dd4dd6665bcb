package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/okvist/skein/internal/app"
	"github.com/okvist/skein/internal/ui/theme"
	"github.com/okvist/skein/internal/ui/views"
)

// RootModel is the main application model that manages views
type RootModel struct {
	app    *app.App
	keys   KeyMap
	help   help.Model
	width  int
	height int

	currentView View
	listView    views.ListView
	boardView   views.BoardView
	focusView   views.FocusView
	statsView   views.StatsView
	helpVisible bool

	// Status message
	statusMsg string
	errorMsg  string
}

// NewRootModel creates a new root model
func NewRootModel(application *app.App) RootModel {
	h := help.New()
	h.ShowAll = false

	return RootModel{
		app:         application,
		keys:        DefaultKeyMap(),
		help:        h,
		currentView: ViewList,
		listView:    views.NewListView(application),
		boardView:   views.NewBoardView(application),
		focusView:   views.NewFocusView(application),
		statsView:   views.NewStatsView(application),
	}
}

// Init initializes the model
func (m RootModel) Init() tea.Cmd {
	return m.listView.Init()
}

// Update handles messages
func (m RootModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

		// Update child views with new size.
		// Reserve space for header (2 lines) and footer (2 lines).
		contentHeight := m.height - 4
		m.listView = m.listView.SetSize(m.width, contentHeight)
		m.boardView = m.boardView.SetSize(m.width, contentHeight)
		m.focusView = m.focusView.SetSize(m.width, contentHeight)
		m.statsView = m.statsView.SetSize(m.width, contentHeight)

	case tea.KeyMsg:
		// Clear status/error on any keypress
		m.statusMsg = ""
		m.errorMsg = ""

		// Check if current view is in input mode
		isInputMode := false
		switch m.currentView {
		case ViewList:
			isInputMode = m.listView.IsInputMode()
		case ViewBoard:
			isInputMode = m.boardView.IsInputMode()
		case ViewFocus:
			isInputMode = m.focusView.IsInputMode()
		case ViewStats:
			isInputMode = m.statsView.IsInputMode()
		}

		// Global keybindings
		switch {
		case key.Matches(msg, m.keys.Quit):
			// ctrl+c always quits, but 'q' only quits when not in input mode
			if msg.String() == "ctrl+c" || !isInputMode {
				return m, tea.Quit
			}
			// Otherwise, let the view handle 'q' as a character

		case key.Matches(msg, m.keys.ThemeCycle):
			// ctrl+t always works (unlikely to type)
			m.cycleTheme()
			return m, nil
		}

		// Skip other global keys when in input mode
		if isInputMode {
			break // Fall through to view delegation
		}

		// These only work when NOT in input mode
		if m.helpVisible && key.Matches(msg, m.keys.Back) {
			m.helpVisible = false
			m.help.ShowAll = false
			return m, nil
		}

		switch {
		case key.Matches(msg, m.keys.Help):
			m.helpVisible = !m.helpVisible
			m.help.ShowAll = m.helpVisible
			return m, nil
		}

		// Other keys are ignored while the help overlay is open
		if m.helpVisible {
			return m, nil
		}

		switch {
		// View switching (1-4 keys)
		case key.Matches(msg, m.keys.ListView):
			m.currentView = ViewList
			return m, m.listView.Init() // Reload the graph when switching to list
		case key.Matches(msg, m.keys.BoardView):
			m.currentView = ViewBoard
			return m, m.boardView.Init()
		case key.Matches(msg, m.keys.FocusView):
			m.currentView = ViewFocus
			return m, m.focusView.Init()
		case key.Matches(msg, m.keys.StatsView):
			m.currentView = ViewStats
			return m, m.statsView.Init()
		}

	case ErrorMsg:
		m.errorMsg = msg.Err.Error()
		return m, nil

	case StatusMsg:
		m.statusMsg = msg.Message
		return m, nil

	case ThemeChangedMsg:
		m.statusMsg = fmt.Sprintf("Theme: %s", msg.ThemeName)
		return m, nil

	case views.ErrorNotice:
		m.errorMsg = msg.Err.Error()
		return m, nil

	case views.Notice:
		m.statusMsg = msg.Message
		return m, nil

	case views.FocusTaskRequest:
		m.focusView = m.focusView.SetTask(msg.TaskID)
		m.currentView = ViewFocus
		return m, m.focusView.Init()

	case views.BackToListMsg:
		m.currentView = ViewList
		return m, m.listView.Init()
	}

	// Delegate to current view
	switch m.currentView {
	case ViewList:
		newListView, cmd := m.listView.Update(msg)
		m.listView = newListView.(views.ListView)
		cmds = append(cmds, cmd)
	case ViewBoard:
		newBoardView, cmd := m.boardView.Update(msg)
		m.boardView = newBoardView.(views.BoardView)
		cmds = append(cmds, cmd)
	case ViewFocus:
		newFocusView, cmd := m.focusView.Update(msg)
		m.focusView = newFocusView.(views.FocusView)
		cmds = append(cmds, cmd)
	case ViewStats:
		newStatsView, cmd := m.statsView.Update(msg)
		m.statsView = newStatsView.(views.StatsView)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// View renders the UI
func (m RootModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	styles := theme.Current.Styles
	var sections []string

	// Header
	header := m.renderHeader()
	sections = append(sections, header)

	// Content area
	// Reserve: 1 line for header + 3 lines for footer (status + 2 hint lines)
	contentHeight := m.height - 4
	if m.errorMsg != "" || m.statusMsg != "" {
		contentHeight-- // Extra line for status message
	}
	var content string

	if m.helpVisible {
		content = m.renderHelp(contentHeight)
	} else {
		switch m.currentView {
		case ViewList:
			content = m.listView.View()
		case ViewBoard:
			content = m.boardView.View()
		case ViewFocus:
			content = m.focusView.View()
		case ViewStats:
			content = m.statsView.View()
		default:
			content = styles.Panel.Render("View not implemented")
		}
	}

	// Ensure content fills available space
	contentLines := strings.Count(content, "\n") + 1
	if contentLines < contentHeight {
		content += strings.Repeat("\n", contentHeight-contentLines)
	}
	sections = append(sections, content)

	// Footer
	footer := m.renderFooter()
	sections = append(sections, footer)

	return strings.Join(sections, "\n")
}

// renderHeader renders the header bar
func (m RootModel) renderHeader() string {
	styles := theme.Current.Styles
	t := theme.Current.Theme

	title := styles.Header.Render("skein")

	// View indicator
	viewStyle := lipgloss.NewStyle().
		Foreground(t.Subtle).
		Padding(0, 1)
	viewIndicator := viewStyle.Render(fmt.Sprintf("[%s]", m.currentView.String()))

	// Theme indicator
	themeIndicator := viewStyle.Render(fmt.Sprintf("theme: %s", t.Name))

	// Combine header elements
	leftSide := lipgloss.JoinHorizontal(lipgloss.Center, title, viewIndicator)
	rightSide := themeIndicator

	gap := m.width - lipgloss.Width(leftSide) - lipgloss.Width(rightSide)
	if gap < 0 {
		gap = 0
	}

	header := leftSide + strings.Repeat(" ", gap) + rightSide
	return header
}

// renderFooter renders the footer/status bar
func (m RootModel) renderFooter() string {
	styles := theme.Current.Styles
	t := theme.Current.Theme

	// Helper to format key hints
	key := func(k, desc string) string {
		return styles.HelpKey.Render(k) + styles.HelpDesc.Render(" "+desc)
	}
	sep := styles.HelpSeparator.Render(" │ ")

	// Show error or status message on first line if present
	var statusLine string
	if m.errorMsg != "" {
		statusLine = lipgloss.NewStyle().Foreground(t.Error).Render(m.errorMsg)
	} else if m.statusMsg != "" {
		statusLine = lipgloss.NewStyle().Foreground(t.Info).Render(m.statusMsg)
	}

	// Build context-aware hint lines
	var line1, line2 string

	switch m.currentView {
	case ViewList:
		if m.listView.IsInputMode() {
			line1 = key("enter", "confirm") + sep + key("esc", "cancel")
			line2 = ""
		} else {
			// Primary actions
			line1 = key("a", "add") + sep +
				key("A", "subtask") + sep +
				key("enter", "edit") + sep +
				key("tab", "done") + sep +
				key("b", "dep") + sep +
				key("m", "move") + sep +
				key("d", "del")
			// Secondary actions
			line2 = key("s", "timer") + sep +
				key("p", "priority") + sep +
				key("t", "tag") + sep +
				key("f", "focus") + sep +
				key("/", "search") + sep +
				key("1-4", "views") + sep +
				key("?", "help")
		}

	case ViewBoard:
		line1 = key("h/l", "columns") + sep +
			key("j/k", "navigate") + sep +
			key("L", "advance") + sep +
			key("H", "step back") + sep +
			key("tab", "done")
		line2 = key("f", "focus") + sep +
			key("/", "search") + sep +
			key("1-4", "views") + sep +
			key("ctrl+t", "theme") + sep +
			key("?", "help")

	case ViewFocus:
		if m.focusView.IsTimerRunning() {
			line1 = key("s/space", "stop timer") + sep +
				key("tab", "subtask done") + sep +
				key("D", "task done")
		} else {
			line1 = key("s/space", "start timer") + sep +
				key("tab", "subtask done") + sep +
				key("D", "task done")
		}
		line2 = key("j/k", "subtasks") + sep +
			key("p", "priority") + sep +
			key("esc", "back") + sep +
			key("1-4", "views")

	case ViewStats:
		line1 = key("w", "week") + sep +
			key("m", "month") + sep +
			key("y", "year") + sep +
			key("r", "refresh")
		line2 = key("1-4", "views") + sep +
			key("ctrl+t", "theme") + sep +
			key("?", "help")

	default:
		line1 = key("1-4", "views") + sep + key("?", "help")
	}

	// Build footer
	var lines []string

	// Status/error line (if present)
	if statusLine != "" {
		lines = append(lines, statusLine)
	}

	// Hint lines
	if line1 != "" {
		lines = append(lines, line1)
	}
	if line2 != "" {
		lines = append(lines, line2)
	}

	return strings.Join(lines, "\n")
}

// renderHelp renders the help overlay
func (m RootModel) renderHelp(height int) string {
	t := theme.Current.Theme

	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(t.Primary).
		MarginBottom(1)

	sectionStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(t.Secondary).
		MarginTop(1)

	keyStyle := lipgloss.NewStyle().
		Foreground(t.Foreground).
		Bold(true).
		Width(12)

	descStyle := lipgloss.NewStyle().
		Foreground(t.Subtle)

	glyphStyle := lipgloss.NewStyle().
		Foreground(t.Info).
		Bold(true).
		Width(12)

	var b strings.Builder

	// Title
	b.WriteString(titleStyle.Render("Skein Help"))
	b.WriteString("\n\n")

	// Navigation section
	b.WriteString(sectionStyle.Render("Navigation"))
	b.WriteString("\n")
	navKeys := [][]string{
		{"↑/k ↓/j", "Navigate up/down"},
		{"g / G", "Go to top/bottom"},
		{"h / l", "Collapse/expand subtasks"},
		{"PgUp/PgDn", "Page up/down"},
	}
	for _, kv := range navKeys {
		b.WriteString(keyStyle.Render(kv[0]))
		b.WriteString(descStyle.Render(kv[1]))
		b.WriteString("\n")
	}

	// Task Actions section
	b.WriteString(sectionStyle.Render("Task Actions"))
	b.WriteString("\n")
	actionKeys := [][]string{
		{"a / A", "Add task / add subtask"},
		{"enter", "Edit title"},
		{"tab", "Complete or reopen"},
		{"d", "Delete (with its subtree)"},
		{"s", "Start/stop timer"},
		{"p", "Cycle priority"},
		{"t", "Toggle tags"},
	}
	for _, kv := range actionKeys {
		b.WriteString(keyStyle.Render(kv[0]))
		b.WriteString(descStyle.Render(kv[1]))
		b.WriteString("\n")
	}

	// Dependencies section
	b.WriteString(sectionStyle.Render("Dependencies & Structure"))
	b.WriteString("\n")
	depKeys := [][]string{
		{"b", "Make the task wait on another"},
		{"B", "Drop a dependency"},
		{"m", "Move under a parent (or to top level)"},
		{"M", "Move to project"},
		{"P", "Filter by project"},
	}
	for _, kv := range depKeys {
		b.WriteString(keyStyle.Render(kv[0]))
		b.WriteString(descStyle.Render(kv[1]))
		b.WriteString("\n")
	}

	// Views section
	b.WriteString(sectionStyle.Render("Views"))
	b.WriteString("\n")
	viewKeys := [][]string{
		{"1-4", "List, board, focus, stats"},
		{"f", "Focus on the selected task"},
		{"/", "Search/filter tasks"},
		{"v", "Show/hide finished tasks"},
		{"?", "Toggle this help"},
	}
	for _, kv := range viewKeys {
		b.WriteString(keyStyle.Render(kv[0]))
		b.WriteString(descStyle.Render(kv[1]))
		b.WriteString("\n")
	}

	// Status glyph legend
	b.WriteString(sectionStyle.Render("Status Glyphs"))
	b.WriteString("\n")
	glyphs := [][]string{
		{"○ ready", "Nothing stands in the way"},
		{"⊘ blocked", "Waits on at least one unfinished task"},
		{"▶ active", "Timer is running"},
		{"✓ done", "Completed"},
	}
	for _, kv := range glyphs {
		b.WriteString(glyphStyle.Render(kv[0]))
		b.WriteString(descStyle.Render(kv[1]))
		b.WriteString("\n")
	}

	// System section
	b.WriteString(sectionStyle.Render("System"))
	b.WriteString("\n")
	sysKeys := [][]string{
		{"ctrl+t", "Cycle theme"},
		{"q / ctrl+c", "Quit"},
	}
	for _, kv := range sysKeys {
		b.WriteString(keyStyle.Render(kv[0]))
		b.WriteString(descStyle.Render(kv[1]))
		b.WriteString("\n")
	}

	// Footer
	b.WriteString("\n")
	b.WriteString(descStyle.Render("Press ? or esc to close"))

	return b.String()
}

// cycleTheme cycles through available themes
func (m *RootModel) cycleTheme() {
	themes := theme.Available()
	current := theme.Current.Theme.Name

	for i, t := range themes {
		if t.Name == current {
			next := themes[(i+1)%len(themes)]
			theme.SetTheme(next)
			m.statusMsg = fmt.Sprintf("Theme: %s", next.Name)
			return
		}
	}
}
