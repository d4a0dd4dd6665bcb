package views

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/okvist/skein/internal/app"
	"github.com/okvist/skein/internal/graph"
	"github.com/okvist/skein/internal/model"
	"github.com/okvist/skein/internal/schedule"
	"github.com/okvist/skein/internal/ui/theme"
)

// FocusView shows a single task with everything the graph knows about
// it: dependencies in both directions, subtask holdups, schedule
// projections, notes, and the timer.
type FocusView struct {
	app    *app.App
	width  int
	height int

	taskID string

	eng           *graph.Engine
	task          *model.Task
	project       *model.Project
	notesRendered string
	deps          []*model.Task
	dependents    []*model.Task
	holdups       []graph.SubtaskDependency
	subtasks      []*model.Task
	loggedSeconds int
	entry         *model.TimeEntry
	workweek      schedule.Workweek

	subtaskCursor int

	err     error
	loading bool
}

type focusLoadedMsg struct {
	eng           *graph.Engine
	task          *model.Task
	project       *model.Project
	notesRendered string
	deps          []*model.Task
	dependents    []*model.Task
	holdups       []graph.SubtaskDependency
	subtasks      []*model.Task
	loggedSeconds int
	entry         *model.TimeEntry
	workweek      schedule.Workweek
	err           error
}

type focusTickMsg time.Time

// NewFocusView creates a new focus view
func NewFocusView(application *app.App) FocusView {
	return FocusView{app: application}
}

// SetTask points the view at a task. Details load on the next Init.
func (m FocusView) SetTask(id string) FocusView {
	m.taskID = id
	m.loading = true
	m.subtaskCursor = 0
	return m
}

// Init initializes the view
func (m FocusView) Init() tea.Cmd {
	if m.taskID == "" {
		return nil
	}
	return m.loadDetails()
}

// loadDetails rebuilds the graph and gathers everything the view shows.
func (m FocusView) loadDetails() tea.Cmd {
	application := m.app
	id := m.taskID
	return func() tea.Msg {
		eng, err := application.LoadEngine()
		if err != nil {
			return focusLoadedMsg{err: err}
		}

		task, ok := eng.Task(id)
		if !ok {
			return focusLoadedMsg{err: fmt.Errorf("task no longer exists")}
		}

		tags, err := application.DB.GetTaskTags(id)
		if err != nil {
			return focusLoadedMsg{err: err}
		}
		task.Tags = tags

		var project *model.Project
		if task.ProjectID != nil {
			project, _ = application.DB.GetProject(*task.ProjectID)
		}

		var notes string
		if task.Notes != "" {
			notes = renderNotes(task.Notes)
		}

		logged := 0
		if entries, err := application.DB.GetTaskTimeEntries(id); err == nil {
			for i := range entries {
				logged += entries[i].PersonSeconds()
			}
		}

		var active *model.TimeEntry
		if entry, err := application.DB.ActiveTimeEntry(); err == nil && entry != nil && entry.TaskID == id {
			active = entry
		}

		ww, err := application.Config.Workweek.Schedule()
		if err != nil {
			ww = schedule.Default()
		}

		return focusLoadedMsg{
			eng:           eng,
			task:          task,
			project:       project,
			notesRendered: notes,
			deps:          eng.Dependencies(id),
			dependents:    eng.Dependents(id),
			holdups:       eng.BlockingSubtaskDependencies(id),
			subtasks:      eng.Children(id),
			loggedSeconds: logged,
			entry:         active,
			workweek:      ww,
		}
	}
}

// SetSize sets the view dimensions
func (m FocusView) SetSize(width, height int) FocusView {
	m.width = width
	m.height = height
	return m
}

// IsInputMode keeps every key here, including q; leaving goes through
// esc and BackToListMsg.
func (m FocusView) IsInputMode() bool {
	return true
}

// IsTimerRunning reports whether the focused task has the active timer.
func (m FocusView) IsTimerRunning() bool {
	return m.entry != nil
}

// Update handles messages
func (m FocusView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case focusLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.eng = msg.eng
		m.task = msg.task
		m.project = msg.project
		m.notesRendered = msg.notesRendered
		m.deps = msg.deps
		m.dependents = msg.dependents
		m.holdups = msg.holdups
		m.subtasks = msg.subtasks
		m.loggedSeconds = msg.loggedSeconds
		m.entry = msg.entry
		m.workweek = msg.workweek
		if m.subtaskCursor >= len(m.subtasks) {
			m.subtaskCursor = 0
		}
		if m.entry != nil {
			return m, focusTickCmd()
		}
		return m, nil

	case focusTickMsg:
		// Keep the elapsed clock moving while the timer runs.
		if m.entry != nil {
			return m, focusTickCmd()
		}
		return m, nil

	case taskMutatedMsg:
		if msg.err != nil {
			return m, tea.Batch(m.loadDetails(), notifyErr(msg.err))
		}
		if msg.status != "" {
			return m, tea.Batch(m.loadDetails(), notify(msg.status))
		}
		return m, m.loadDetails()

	case tea.KeyMsg:
		return m.handleKeys(msg)
	}

	return m, nil
}

func focusTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return focusTickMsg(t)
	})
}

// handleKeys handles keybindings
func (m FocusView) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q":
		return m, func() tea.Msg { return BackToListMsg{} }

	case "s", " ":
		if m.task == nil {
			break
		}
		if m.task.Done {
			return m, notify("Task is already done")
		}
		return m, m.toggleTimer()

	case "j", "down":
		if m.subtaskCursor < len(m.subtasks)-1 {
			m.subtaskCursor++
		}

	case "k", "up":
		if m.subtaskCursor > 0 {
			m.subtaskCursor--
		}

	case "tab":
		if len(m.subtasks) == 0 {
			break
		}
		return m, m.toggleSubtaskDone(m.subtasks[m.subtaskCursor])

	case "D":
		if m.task == nil {
			break
		}
		return m, m.toggleTaskDone()

	case "p":
		if m.task == nil {
			break
		}
		return m, m.cycleTaskPriority()

	case "r":
		return m, m.loadDetails()
	}

	return m, nil
}

// toggleTimer starts or stops the persistent timer on this task. The
// timer lives in the store, so the CLI sees the same clock.
func (m FocusView) toggleTimer() tea.Cmd {
	database := m.app.DB
	id := m.taskID
	running := m.entry != nil
	return func() tea.Msg {
		if running {
			if _, err := database.StopRunningEntries(); err != nil {
				return taskMutatedMsg{err: err}
			}
			return taskMutatedMsg{status: "Timer stopped"}
		}
		if _, err := database.StartTimeEntry(id, 1, ""); err != nil {
			return taskMutatedMsg{err: err}
		}
		return taskMutatedMsg{status: "Timer started"}
	}
}

func (m FocusView) toggleTaskDone() tea.Cmd {
	eng := m.eng
	notifier := m.app.Notifier
	id := m.taskID
	done := m.task.Done
	return func() tea.Msg {
		if done {
			if err := eng.Reopen(id); err != nil {
				return taskMutatedMsg{err: err}
			}
			return taskMutatedMsg{status: "Reopened"}
		}
		unblocked, err := eng.Complete(id)
		if err != nil {
			return taskMutatedMsg{err: err}
		}
		status := "Done"
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

func (m FocusView) toggleSubtaskDone(sub *model.Task) tea.Cmd {
	eng := m.eng
	notifier := m.app.Notifier
	id := sub.ID
	title := sub.Title
	done := sub.Done
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
		if len(unblocked) > 0 {
			notifier.SendUnblocked(unblocked)
		}
		return taskMutatedMsg{status: fmt.Sprintf("Done: %s", title)}
	}
}

func (m FocusView) cycleTaskPriority() tea.Cmd {
	database := m.app.DB
	id := m.taskID
	var next model.Priority
	switch m.task.Priority {
	case model.PriorityLow:
		next = model.PriorityMedium
	case model.PriorityMedium:
		next = model.PriorityHigh
	case model.PriorityHigh:
		next = model.PriorityUrgent
	default:
		next = model.PriorityLow
	}
	return func() tea.Msg {
		if err := database.UpdateTaskPriority(id, next); err != nil {
			return taskMutatedMsg{err: err}
		}
		return taskMutatedMsg{status: fmt.Sprintf("Priority: %s", next)}
	}
}

// View renders the focus view
func (m FocusView) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	styles := theme.Current.Styles
	t := theme.Current.Theme

	if m.taskID == "" {
		return styles.Placeholder.Render("Nothing focused. Press 'f' on a task in the list view.")
	}
	if m.loading {
		return styles.Placeholder.Render("Loading...")
	}
	if m.err != nil {
		return lipgloss.NewStyle().Foreground(t.Error).Render(fmt.Sprintf("Error: %v", m.err))
	}
	if m.task == nil {
		return styles.Placeholder.Render("Task not found.")
	}

	contentWidth := m.width - 8
	if contentWidth > 76 {
		contentWidth = 76
	}
	if contentWidth < 30 {
		contentWidth = 30
	}

	var sections []string

	// Title
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(t.Primary).
		Width(contentWidth).
		Align(lipgloss.Center)
	sections = append(sections, titleStyle.Render(m.task.Title))

	sections = append(sections, m.renderBadges(contentWidth))

	if timer := m.renderTimer(contentWidth); timer != "" {
		sections = append(sections, timer)
	}

	if deps := m.renderRelations(contentWidth); deps != "" {
		sections = append(sections, deps)
	}

	if subs := m.renderSubtasks(contentWidth); subs != "" {
		sections = append(sections, subs)
	}

	if sched := m.renderSchedule(); sched != "" {
		sections = append(sections, sched)
	}

	if m.notesRendered != "" {
		notes := styles.PanelTitle.Render("Notes") + "\n" +
			strings.TrimRight(m.notesRendered, "\n")
		sections = append(sections, notes)
	}

	sections = append(sections, m.renderMetadata())

	content := strings.Join(sections, "\n\n")
	return lipgloss.PlaceHorizontal(m.width, lipgloss.Center,
		lipgloss.NewStyle().Width(contentWidth).Render(content))
}

// renderBadges renders the status line under the title
func (m FocusView) renderBadges(width int) string {
	t := theme.Current.Theme

	status := m.eng.Status(m.task.ID)
	badge := lipgloss.NewStyle().
		Foreground(t.Background).
		Background(statusColor(status)).
		Bold(true).
		Padding(0, 1).
		Render(fmt.Sprintf("%s %s", statusGlyph(status), statusLabel(status)))

	prio := lipgloss.NewStyle().
		Foreground(priorityColor(m.task.Priority)).
		Bold(true).
		Render(string(m.task.Priority))

	parts := []string{badge, prio}

	if m.project != nil && !m.project.IsInbox() {
		style := lipgloss.NewStyle().Foreground(t.Secondary)
		if m.project.Color != "" {
			style = lipgloss.NewStyle().Foreground(lipgloss.Color(m.project.Color))
		}
		parts = append(parts, style.Render("["+m.project.Name+"]"))
	}
	for _, tg := range m.task.Tags {
		parts = append(parts, lipgloss.NewStyle().Foreground(t.Info).Render(tg.DisplayName()))
	}

	return lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Render(strings.Join(parts, "  "))
}

// renderTimer renders the running clock and the total logged time
func (m FocusView) renderTimer(width int) string {
	t := theme.Current.Theme

	var lines []string
	if m.entry != nil {
		elapsed := int(time.Since(m.entry.StartedAt).Seconds())
		clock := lipgloss.NewStyle().
			Foreground(t.StatusInProgress).
			Bold(true).
			Render(fmt.Sprintf("▶ %s", formatClock(elapsed)))
		since := lipgloss.NewStyle().
			Foreground(t.Subtle).
			Render(fmt.Sprintf("since %s", m.entry.StartedAt.Format("15:04")))
		lines = append(lines, clock+"  "+since)
	}
	if m.loggedSeconds > 0 {
		lines = append(lines, lipgloss.NewStyle().
			Foreground(t.Subtle).
			Render(fmt.Sprintf("logged %s total", formatDuration(m.loggedSeconds))))
	}
	if len(lines) == 0 {
		return ""
	}

	return lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Render(strings.Join(lines, "\n"))
}

// renderRelations renders both directions of the dependency graph plus
// the one-level subtask holdups.
func (m FocusView) renderRelations(width int) string {
	styles := theme.Current.Styles
	t := theme.Current.Theme

	var b strings.Builder

	line := func(task *model.Task) string {
		status := m.eng.Status(task.ID)
		glyph := lipgloss.NewStyle().Foreground(statusColor(status)).Render(statusGlyph(status))
		title := truncate(task.Title, width-6)
		if status == model.StatusDone {
			return fmt.Sprintf("  %s %s", glyph, lipgloss.NewStyle().Foreground(t.Subtle).Render(title))
		}
		return fmt.Sprintf("  %s %s", glyph, title)
	}

	if len(m.deps) > 0 {
		b.WriteString(styles.PanelTitle.Render("Waits on") + "\n")
		for _, dep := range m.deps {
			b.WriteString(line(dep) + "\n")
		}
	}

	if len(m.dependents) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(styles.PanelTitle.Render("Blocks") + "\n")
		for _, d := range m.dependents {
			b.WriteString(line(d) + "\n")
		}
	}

	if len(m.holdups) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(styles.PanelTitle.Render("Subtask holdups") + "\n")
		for _, p := range m.holdups {
			b.WriteString(fmt.Sprintf("  %s %s %s %s\n",
				lipgloss.NewStyle().Foreground(t.StatusBlocked).Render("⊘"),
				truncate(p.Subtask.Title, width/2-4),
				lipgloss.NewStyle().Foreground(t.Subtle).Render("waits on"),
				truncate(p.DependsOn.Title, width/2-8)))
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

// renderSubtasks renders the direct subtasks with the selection cursor
func (m FocusView) renderSubtasks(width int) string {
	if len(m.subtasks) == 0 {
		return ""
	}

	styles := theme.Current.Styles
	t := theme.Current.Theme

	done := 0
	for _, s := range m.subtasks {
		if s.Done {
			done++
		}
	}

	var b strings.Builder
	b.WriteString(styles.PanelTitle.Render(fmt.Sprintf("Subtasks (%d/%d)", done, len(m.subtasks))) + "\n")
	for i, s := range m.subtasks {
		status := m.eng.Status(s.ID)
		glyph := lipgloss.NewStyle().Foreground(statusColor(status)).Render(statusGlyph(status))
		title := truncate(s.Title, width-8)
		if s.Done {
			title = lipgloss.NewStyle().Foreground(t.Subtle).Strikethrough(true).Render(title)
		}
		cursor := "  "
		if i == m.subtaskCursor {
			cursor = lipgloss.NewStyle().Foreground(t.Primary).Render("> ")
		}
		b.WriteString(fmt.Sprintf("%s%s %s\n", cursor, glyph, title))
	}

	return strings.TrimRight(b.String(), "\n")
}

// renderSchedule projects effort, crew, and finish date from whatever
// effort fields the task carries.
func (m FocusView) renderSchedule() string {
	effort := effortHours(m.task)
	if effort <= 0 {
		return ""
	}

	styles := theme.Current.Styles
	t := theme.Current.Theme
	label := lipgloss.NewStyle().Foreground(t.Subtle).Width(9)

	var b strings.Builder
	b.WriteString(styles.PanelTitle.Render("Schedule") + "\n")

	if m.task.Quantity != nil && m.task.Productivity != nil {
		unit := m.task.Unit
		if unit == "" {
			unit = "units"
		}
		b.WriteString(fmtLine(label, "Effort", fmt.Sprintf("%s (%g %s at %g/h)",
			formatHours(effort), *m.task.Quantity, unit, *m.task.Productivity)))
	} else {
		b.WriteString(fmtLine(label, "Effort", fmt.Sprintf("%s (estimate)", formatHours(effort))))
	}

	crew := 1
	from, to, bound := planningWindow(m.task, time.Now())
	if bound != "" && !m.task.Done {
		window := m.workweek.Hours(from, to)
		crew = schedule.Personnel(effort, window)
		if crew == 0 {
			b.WriteString(fmtLine(label, "Window", fmt.Sprintf("%s before %s, no full work hour left", formatHours(window), bound)))
			crew = 1
		} else {
			b.WriteString(fmtLine(label, "Window", fmt.Sprintf("%s of work time before %s", formatHours(window), bound)))
			b.WriteString(fmtLine(label, "Crew", fmt.Sprintf("%d to make the date", crew)))
		}
	}

	if !m.task.Done {
		finish := m.workweek.Finish(from, effort, crew)
		b.WriteString(fmtLine(label, "Finish", finish.Format("Mon, Jan 2")))
	}

	return strings.TrimRight(b.String(), "\n")
}

// planningWindow picks the schedule window: from the task's start date
// (when still ahead) until its end date, falling back to the due date.
// An empty bound means the task has no closing edge to plan against.
func planningWindow(t *model.Task, now time.Time) (from, to time.Time, bound string) {
	from = now
	if t.StartDate != nil && t.StartDate.After(now) {
		from = *t.StartDate
	}
	switch {
	case t.EndDate != nil:
		return from, *t.EndDate, "planned end"
	case t.DueDate != nil:
		return from, *t.DueDate, "due"
	}
	return from, to, ""
}

// renderMetadata renders the fine print at the bottom
func (m FocusView) renderMetadata() string {
	t := theme.Current.Theme

	var parts []string
	if m.task.DueDate != nil {
		due := "due " + formatDate(*m.task.DueDate)
		if m.task.IsOverdue() {
			due += " (overdue)"
		}
		parts = append(parts, due)
	}
	parts = append(parts, "created "+m.task.CreatedAt.Format("Jan 2"))
	if m.task.CompletedAt != nil {
		parts = append(parts, "completed "+m.task.CompletedAt.Format("Jan 2"))
	}
	parts = append(parts, shortID(m.task.ID))

	return lipgloss.NewStyle().
		Foreground(t.Subtle).
		Render(strings.Join(parts, " • "))
}

// renderNotes pretty-prints markdown, falling back to the raw text when
// the terminal renderer cannot be built.
func renderNotes(text string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(72),
	)
	if err != nil {
		return text
	}
	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return out
}

// effortHours derives the remaining effort in hours: quantity over
// productivity when both are set, otherwise the manual estimate.
func effortHours(t *model.Task) float64 {
	if t.Quantity != nil && t.Productivity != nil {
		return schedule.EffortHours(*t.Quantity, *t.Productivity)
	}
	if t.Estimate != nil {
		return float64(*t.Estimate) / 3600
	}
	return 0
}

func fmtLine(label lipgloss.Style, name, value string) string {
	return fmt.Sprintf("  %s %s\n", label.Render(name), value)
}

// formatClock renders elapsed seconds as h:mm:ss.
func formatClock(seconds int) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// formatDuration renders seconds as a compact "2h 15m".
func formatDuration(seconds int) string {
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	if m == 0 {
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}

// formatHours renders fractional hours the way the schedule math deals
// them out.
func formatHours(h float64) string {
	if h == float64(int(h)) {
		return fmt.Sprintf("%dh", int(h))
	}
	return fmt.Sprintf("%.1fh", h)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
