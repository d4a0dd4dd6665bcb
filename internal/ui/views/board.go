package views

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/okvist/skein/internal/app"
	"github.com/okvist/skein/internal/graph"
	"github.com/okvist/skein/internal/model"
	"github.com/okvist/skein/internal/ui/theme"
)

// boardColumns is the left-to-right column order. Columns hold derived
// status, so a task is in exactly one and moves on recompute, never by
// drag: advancing or stepping back changes the underlying facts.
var boardColumns = []model.Status{
	model.StatusBlocked,
	model.StatusReady,
	model.StatusInProgress,
	model.StatusDone,
}

// BoardView displays tasks on a kanban board keyed by derived status
type BoardView struct {
	app    *app.App
	width  int
	height int

	eng     *graph.Engine
	columns [4][]*model.Task

	currentColumn int
	cursorRow     int
	columnScroll  [4]int

	searching   bool
	searchQuery string
	input       textinput.Model

	err     error
	loading bool
}

type boardLoadedMsg struct {
	eng *graph.Engine
	err error
}

// NewBoardView creates a new board view
func NewBoardView(application *app.App) BoardView {
	ti := textinput.New()
	ti.Placeholder = "Search..."
	ti.CharLimit = 100

	return BoardView{
		app:           application,
		currentColumn: 1, // Ready
		input:         ti,
		loading:       true,
	}
}

// Init initializes the view
func (v BoardView) Init() tea.Cmd {
	return v.loadBoard()
}

// loadBoard rebuilds the graph and sorts every task into its status
// column. Subtasks appear as cards of their own.
func (v BoardView) loadBoard() tea.Cmd {
	application := v.app
	return func() tea.Msg {
		eng, err := application.LoadEngine()
		if err != nil {
			return boardLoadedMsg{err: err}
		}
		return boardLoadedMsg{eng: eng}
	}
}

// SetSize sets the view dimensions
func (v BoardView) SetSize(width, height int) BoardView {
	v.width = width
	v.height = height
	return v
}

// IsInputMode returns whether the view is capturing keyboard input
func (v BoardView) IsInputMode() bool {
	return v.searching
}

// Update handles messages
func (v BoardView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case boardLoadedMsg:
		v.loading = false
		if msg.err != nil {
			v.err = msg.err
			return v, nil
		}
		v.err = nil
		v.eng = msg.eng
		v.rebuildColumns()
		v.clampCursor()
		return v, nil

	case taskMutatedMsg:
		if msg.err != nil {
			return v, tea.Batch(v.loadBoard(), notifyErr(msg.err))
		}
		if msg.status != "" {
			return v, tea.Batch(v.loadBoard(), notify(msg.status))
		}
		return v, v.loadBoard()

	case tea.KeyMsg:
		if v.searching {
			return v.handleSearchMode(msg)
		}
		return v.handleNormalMode(msg)
	}

	// Cursor blink for the search input
	if v.searching {
		var cmd tea.Cmd
		v.input, cmd = v.input.Update(msg)
		return v, cmd
	}

	return v, nil
}

// handleNormalMode handles keybindings in normal mode
func (v BoardView) handleNormalMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "h", "left":
		if v.currentColumn > 0 {
			v.currentColumn--
			v.cursorRow = 0
			v.columnScroll[v.currentColumn] = 0
		}

	case "l", "right":
		if v.currentColumn < len(boardColumns)-1 {
			v.currentColumn++
			v.cursorRow = 0
			v.columnScroll[v.currentColumn] = 0
		}

	case "j", "down":
		if v.cursorRow < len(v.column(v.currentColumn))-1 {
			v.cursorRow++
			v.ensureCursorVisible()
		}

	case "k", "up":
		if v.cursorRow > 0 {
			v.cursorRow--
			v.ensureCursorVisible()
		}

	case "g":
		v.cursorRow = 0
		v.ensureCursorVisible()

	case "G":
		v.cursorRow = len(v.column(v.currentColumn)) - 1
		if v.cursorRow < 0 {
			v.cursorRow = 0
		}
		v.ensureCursorVisible()

	case "L":
		if t := v.current(); t != nil {
			return v, v.advance(t)
		}

	case "H":
		if t := v.current(); t != nil {
			return v, v.stepBack(t)
		}

	case "tab", "enter":
		if t := v.current(); t != nil {
			return v, v.toggleDone(t)
		}

	case "f":
		if t := v.current(); t != nil {
			id := t.ID
			return v, func() tea.Msg { return FocusTaskRequest{TaskID: id} }
		}

	case "/":
		v.searching = true
		v.input.SetValue(v.searchQuery)
		v.input.CursorEnd()
		v.input.Focus()
		return v, textinput.Blink

	case "r":
		return v, v.loadBoard()

	case "esc":
		if v.searchQuery != "" {
			v.searchQuery = ""
			v.clampCursor()
		}
	}

	return v, nil
}

// handleSearchMode filters cards live while typing
func (v BoardView) handleSearchMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		v.searching = false
		v.searchQuery = ""
		v.input.Blur()
		v.clampCursor()
		return v, nil

	case "enter":
		v.searching = false
		v.input.Blur()
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	v.searchQuery = v.input.Value()
	v.clampCursor()
	return v, cmd
}

// advance moves a card toward done by changing the facts behind its
// status: a ready task gets a running timer, a working one finishes.
// Blocked cards cannot advance; the first blocker is named instead.
func (v BoardView) advance(t *model.Task) tea.Cmd {
	switch v.eng.Status(t.ID) {
	case model.StatusBlocked:
		blockers := v.eng.BlockingDependencies(t.ID)
		if len(blockers) > 0 {
			return notify(fmt.Sprintf("Blocked: finish %q first", blockers[0].Title))
		}
		return nil

	case model.StatusReady:
		return v.startTimer(t)

	case model.StatusInProgress:
		return v.stopTimerAndComplete(t)

	default:
		return notify("Already done")
	}
}

// stepBack is the reverse walk: done reopens, working pauses.
func (v BoardView) stepBack(t *model.Task) tea.Cmd {
	switch v.eng.Status(t.ID) {
	case model.StatusDone:
		eng := v.eng
		id := t.ID
		title := t.Title
		return func() tea.Msg {
			if err := eng.Reopen(id); err != nil {
				return taskMutatedMsg{err: err}
			}
			return taskMutatedMsg{status: fmt.Sprintf("Reopened: %s", title)}
		}

	case model.StatusInProgress:
		database := v.app.DB
		title := t.Title
		return func() tea.Msg {
			if _, err := database.StopRunningEntries(); err != nil {
				return taskMutatedMsg{err: err}
			}
			return taskMutatedMsg{status: fmt.Sprintf("Timer stopped: %s", title)}
		}

	case model.StatusBlocked:
		return notify("Blocked tasks leave the column when a dependency is removed")

	default:
		return nil
	}
}

func (v BoardView) startTimer(t *model.Task) tea.Cmd {
	database := v.app.DB
	id := t.ID
	title := t.Title
	return func() tea.Msg {
		if _, err := database.StartTimeEntry(id, 1, ""); err != nil {
			return taskMutatedMsg{err: err}
		}
		return taskMutatedMsg{status: fmt.Sprintf("Timer started: %s", title)}
	}
}

func (v BoardView) stopTimerAndComplete(t *model.Task) tea.Cmd {
	database := v.app.DB
	eng := v.eng
	notifier := v.app.Notifier
	id := t.ID
	title := t.Title
	return func() tea.Msg {
		if _, err := database.StopRunningEntries(); err != nil {
			return taskMutatedMsg{err: err}
		}
		unblocked, err := eng.Complete(id)
		if err != nil {
			return taskMutatedMsg{err: err}
		}
		status := fmt.Sprintf("Done: %s", title)
		if len(unblocked) > 0 {
			names := make([]string, 0, len(unblocked))
			for _, u := range unblocked {
				names = append(names, u.Title)
			}
			status += fmt.Sprintf(" (unblocked: %s)", strings.Join(names, ", "))
			notifier.SendUnblocked(unblocked)
		}
		return taskMutatedMsg{status: status}
	}
}

func (v BoardView) toggleDone(t *model.Task) tea.Cmd {
	eng := v.eng
	notifier := v.app.Notifier
	id := t.ID
	title := t.Title
	done := t.Done
	return func() tea.Msg {
		if done {
			if err := eng.Reopen(id); err != nil {
				return taskMutatedMsg{err: err}
			}
			return taskMutatedMsg{status: fmt.Sprintf("Reopened: %s", title)}
		}
		unblocked, err := eng.Complete(id)
		if err != nil {
			return taskMutatedMsg{err: err}
		}
		status := fmt.Sprintf("Done: %s", title)
		if len(unblocked) > 0 {
			names := make([]string, 0, len(unblocked))
			for _, u := range unblocked {
				names = append(names, u.Title)
			}
			status += fmt.Sprintf(" (unblocked: %s)", strings.Join(names, ", "))
			notifier.SendUnblocked(unblocked)
		}
		return taskMutatedMsg{status: status}
	}
}

// rebuildColumns sorts every task into the column its derived status
// picks. Nothing here is stored; a reload recomputes it all.
func (v *BoardView) rebuildColumns() {
	for i := range v.columns {
		v.columns[i] = nil
	}
	if v.eng == nil {
		return
	}
	for _, t := range v.eng.Tasks() {
		status := v.eng.Status(t.ID)
		for i, s := range boardColumns {
			if s == status {
				v.columns[i] = append(v.columns[i], t)
				break
			}
		}
	}
	// Urgent work floats to the top of each column; ties keep load order.
	for i := range v.columns {
		sort.SliceStable(v.columns[i], func(a, b int) bool {
			return v.columns[i][a].PriorityWeight() > v.columns[i][b].PriorityWeight()
		})
	}
}

// column returns the tasks in a column after the search filter.
func (v BoardView) column(i int) []*model.Task {
	if v.searchQuery == "" {
		return v.columns[i]
	}
	q := strings.ToLower(v.searchQuery)
	var out []*model.Task
	for _, t := range v.columns[i] {
		if strings.Contains(strings.ToLower(t.Title), q) {
			out = append(out, t)
		}
	}
	return out
}

func (v BoardView) current() *model.Task {
	col := v.column(v.currentColumn)
	if len(col) == 0 || v.cursorRow < 0 || v.cursorRow >= len(col) {
		return nil
	}
	return col[v.cursorRow]
}

func (v *BoardView) clampCursor() {
	col := v.column(v.currentColumn)
	if v.cursorRow >= len(col) {
		v.cursorRow = len(col) - 1
	}
	if v.cursorRow < 0 {
		v.cursorRow = 0
	}
	v.ensureCursorVisible()
}

func (v *BoardView) ensureCursorVisible() {
	visible := v.visibleItemCount()
	scroll := v.columnScroll[v.currentColumn]

	if v.cursorRow < scroll {
		scroll = v.cursorRow
	}
	if v.cursorRow >= scroll+visible {
		scroll = v.cursorRow - visible + 1
	}
	if scroll < 0 {
		scroll = 0
	}
	v.columnScroll[v.currentColumn] = scroll
}

func (v BoardView) visibleItemCount() int {
	// Header row, borders, and scroll indicators eat into the height.
	n := v.height - 6
	if n < 1 {
		n = 1
	}
	return n
}

// View renders the board
func (v BoardView) View() string {
	if v.width == 0 || v.height == 0 {
		return "Loading..."
	}

	styles := theme.Current.Styles
	t := theme.Current.Theme

	if v.loading {
		return styles.Placeholder.Render("Loading...")
	}
	if v.err != nil {
		return lipgloss.NewStyle().Foreground(t.Error).Render(fmt.Sprintf("Error: %v", v.err))
	}

	var b strings.Builder

	if v.searching {
		b.WriteString(styles.Label.Render("Search: ") + v.input.View() + "\n")
	} else if v.searchQuery != "" {
		b.WriteString(styles.Subtitle.Render(fmt.Sprintf("search: %s (esc clears)", v.searchQuery)) + "\n")
	}

	// Responsive layout: pairs of columns when narrow.
	numVisible := 4
	if v.width < 120 {
		numVisible = 2
	}
	startCol := 0
	if numVisible == 2 && v.currentColumn >= 2 {
		startCol = 2
	}
	endCol := startCol + numVisible

	colWidth := (v.width - 4) / numVisible
	if colWidth < 25 {
		colWidth = 25
	}

	headerStyle := func(status model.Status, active bool) lipgloss.Style {
		s := lipgloss.NewStyle().
			Bold(true).
			Foreground(statusColor(status)).
			Width(colWidth).
			Align(lipgloss.Center)
		if active {
			s = s.Background(t.Highlight)
		}
		return s
	}

	columnStyle := lipgloss.NewStyle().
		Width(colWidth).
		Height(v.height - 3).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(t.Border)

	var headers []string
	for i := startCol; i < endCol; i++ {
		status := boardColumns[i]
		tasks := v.column(i)
		header := fmt.Sprintf("%s %s (%d)", statusGlyph(status), statusLabel(status), len(tasks))
		headers = append(headers, headerStyle(status, i == v.currentColumn).Render(header))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, headers...))
	b.WriteString("\n")

	visible := v.visibleItemCount()
	var cols []string
	for i := startCol; i < endCol; i++ {
		tasks := v.column(i)
		active := i == v.currentColumn
		scroll := v.columnScroll[i]

		start := scroll
		end := scroll + visible
		if start > len(tasks) {
			start = len(tasks)
		}
		if end > len(tasks) {
			end = len(tasks)
		}

		var items []string
		if scroll > 0 {
			items = append(items, lipgloss.NewStyle().
				Foreground(t.Subtle).
				Width(colWidth-4).
				Align(lipgloss.Center).
				Render(fmt.Sprintf("↑ %d more", scroll)))
		}

		for j := start; j < end; j++ {
			items = append(items, v.renderCard(tasks[j], colWidth, active && j == v.cursorRow))
		}

		if end < len(tasks) {
			items = append(items, lipgloss.NewStyle().
				Foreground(t.Subtle).
				Width(colWidth-4).
				Align(lipgloss.Center).
				Render(fmt.Sprintf("↓ %d more", len(tasks)-end)))
		}

		if len(tasks) == 0 {
			items = append(items, lipgloss.NewStyle().
				Foreground(t.Subtle).
				Width(colWidth-4).
				Align(lipgloss.Center).
				Render("empty"))
		}

		cols = append(cols, columnStyle.Render(strings.Join(items, "\n")))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cols...))

	return b.String()
}

// renderCard renders one task card as a single line
func (v BoardView) renderCard(task *model.Task, colWidth int, selected bool) string {
	t := theme.Current.Theme

	cardStyle := lipgloss.NewStyle().
		Width(colWidth - 4).
		Padding(0, 1).
		Foreground(t.Foreground)
	if selected {
		cardStyle = cardStyle.Background(t.Highlight)
	}

	prio := lipgloss.NewStyle().
		Foreground(priorityColor(task.Priority)).
		Render(priorityChar(task.Priority))

	// Column-specific hint on the right
	var hint string
	hintLen := 0
	switch v.eng.Status(task.ID) {
	case model.StatusBlocked:
		n := len(v.eng.BlockingDependencies(task.ID))
		hint = lipgloss.NewStyle().Foreground(t.StatusBlocked).Render(fmt.Sprintf(" ⊘%d", n))
		hintLen = 3
	case model.StatusReady:
		if n := len(v.eng.Dependents(task.ID)); n > 0 {
			hint = lipgloss.NewStyle().Foreground(t.Subtle).Render(fmt.Sprintf(" »%d", n))
			hintLen = 3
		}
	}

	maxTitle := colWidth - 8 - hintLen
	if maxTitle < 10 {
		maxTitle = 10
	}
	title := truncate(task.Title, maxTitle)
	if task.Done {
		title = lipgloss.NewStyle().Foreground(t.Subtle).Strikethrough(true).Render(title)
	}

	return cardStyle.Render(fmt.Sprintf("%s %s%s", prio, title, hint))
}
