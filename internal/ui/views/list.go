package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/okvist/skein/internal/app"
	"github.com/okvist/skein/internal/graph"
	"github.com/okvist/skein/internal/model"
	"github.com/okvist/skein/internal/ui/theme"
)

// ListMode represents the current input mode of the list view
type ListMode int

const (
	ListModeNormal ListMode = iota
	ListModeAdd
	ListModeAddSubtask
	ListModeEdit
	ListModeSearch
	ListModeConfirmDelete
)

// pickerKind says what confirming a row in the chooser means.
type pickerKind int

const (
	pickerNone pickerKind = iota
	pickerDepAdd
	pickerDepRemove
	pickerParent
	pickerProject
	pickerProjectFilter
	pickerTag
)

// pickerItem is one selectable row in the chooser.
type pickerItem struct {
	id     string
	label  string
	detail string
}

// picker is a filterable chooser rendered in place of the task list.
// One picker serves dependencies, parents, projects, and tags; the kind
// decides what happens on confirm.
type picker struct {
	kind     pickerKind
	title    string
	items    []pickerItem
	cursor   int
	query    string
	targetID string
}

// filtered returns the items whose label contains the typed query.
func (p *picker) filtered() []pickerItem {
	if p.query == "" {
		return p.items
	}
	q := strings.ToLower(p.query)
	var out []pickerItem
	for _, it := range p.items {
		if strings.Contains(strings.ToLower(it.label), q) {
			out = append(out, it)
		}
	}
	return out
}

// listRow is one rendered line: a task at its depth in the subtask tree.
type listRow struct {
	task  *model.Task
	depth int
}

// confirmDelete holds what the delete confirmation shows: how much of
// the tree goes away and how many waiting tasks lose an edge.
type confirmDelete struct {
	task       *model.Task
	subtree    int
	dependents int
}

// ListView displays tasks as an expandable tree with derived status
type ListView struct {
	app    *app.App
	width  int
	height int

	mode ListMode
	eng  *graph.Engine

	rows      []listRow
	cursor    int
	collapsed map[string]bool

	projects []model.Project
	tags     []model.Tag

	showDone        bool
	searchQuery     string
	filterProjectID string

	input      textinput.Model
	editTaskID string
	parentID   string

	confirm confirmDelete
	pick    picker

	// Cursor lands on this task after the next reload.
	focusAfterLoad string

	err     error
	loading bool
}

// Messages used internally by the list view
type graphLoadedMsg struct {
	eng      *graph.Engine
	projects []model.Project
	tags     []model.Tag
	err      error
}

type taskCreatedMsg struct {
	task *model.Task
	err  error
}

type taskMutatedMsg struct {
	status string
	err    error
}

// NewListView creates a new list view
func NewListView(application *app.App) ListView {
	ti := textinput.New()
	ti.Placeholder = "Task title..."
	ti.CharLimit = 200

	return ListView{
		app:       application,
		collapsed: make(map[string]bool),
		input:     ti,
		loading:   true,
	}
}

// Init initializes the view
func (m ListView) Init() tea.Cmd {
	return m.loadGraph()
}

// loadGraph rebuilds the dependency graph and fetches everything the
// rows render from it.
func (m ListView) loadGraph() tea.Cmd {
	application := m.app
	return func() tea.Msg {
		eng, err := application.LoadEngine()
		if err != nil {
			return graphLoadedMsg{err: err}
		}

		projects, err := application.DB.GetProjects()
		if err != nil {
			return graphLoadedMsg{err: err}
		}

		tags, err := application.DB.GetTags()
		if err != nil {
			return graphLoadedMsg{err: err}
		}

		// Second pass: attach tags so rendering needs no extra queries.
		for _, t := range eng.Tasks() {
			taskTags, err := application.DB.GetTaskTags(t.ID)
			if err != nil {
				return graphLoadedMsg{err: err}
			}
			t.Tags = taskTags
		}

		return graphLoadedMsg{eng: eng, projects: projects, tags: tags}
	}
}

// SetSize sets the view dimensions
func (m ListView) SetSize(width, height int) ListView {
	m.width = width
	m.height = height
	return m
}

// IsInputMode returns whether the view is capturing keyboard input
func (m ListView) IsInputMode() bool {
	return m.mode != ListModeNormal || m.pick.kind != pickerNone
}

// Update handles messages
func (m ListView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case graphLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.eng = msg.eng
		m.projects = msg.projects
		m.tags = msg.tags
		m.rebuildRows()
		if m.focusAfterLoad != "" {
			for i, row := range m.rows {
				if row.task.ID == m.focusAfterLoad {
					m.cursor = i
					break
				}
			}
			m.focusAfterLoad = ""
		}
		m.clampCursor()
		return m, nil

	case taskCreatedMsg:
		if msg.err != nil {
			return m, notifyErr(msg.err)
		}
		m.focusAfterLoad = msg.task.ID
		return m, m.loadGraph()

	case taskMutatedMsg:
		// Reload either way: a persistence failure leaves the in-memory
		// graph ahead of the store, and the screen shows store truth.
		if msg.err != nil {
			return m, tea.Batch(m.loadGraph(), notifyErr(msg.err))
		}
		if msg.status != "" {
			return m, tea.Batch(m.loadGraph(), notify(msg.status))
		}
		return m, m.loadGraph()

	case tea.KeyMsg:
		if m.pick.kind != pickerNone {
			return m.handlePickerMode(msg)
		}
		switch m.mode {
		case ListModeAdd, ListModeAddSubtask, ListModeEdit:
			return m.handleInputMode(msg)
		case ListModeSearch:
			return m.handleSearchMode(msg)
		case ListModeConfirmDelete:
			return m.handleConfirmMode(msg)
		default:
			return m.handleNormalMode(msg)
		}
	}

	// Cursor blink and other text input internals
	if m.input.Focused() {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	return m, nil
}

// handleNormalMode handles keybindings in normal mode
func (m ListView) handleNormalMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "j", "down":
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}

	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}

	case "g":
		m.cursor = 0

	case "G":
		m.cursor = len(m.rows) - 1
		m.clampCursor()

	case "pgdown", "ctrl+d":
		m.cursor += m.pageSize()
		m.clampCursor()

	case "pgup", "ctrl+u":
		m.cursor -= m.pageSize()
		m.clampCursor()

	case "h", "left":
		t := m.current()
		if t == nil {
			break
		}
		if len(m.eng.Children(t.ID)) > 0 && !m.collapsed[t.ID] {
			m.collapsed[t.ID] = true
			m.rebuildRows()
			m.clampCursor()
		} else if t.ParentID != nil {
			for i, row := range m.rows {
				if row.task.ID == *t.ParentID {
					m.cursor = i
					break
				}
			}
		}

	case "l", "right":
		if t := m.current(); t != nil && m.collapsed[t.ID] {
			delete(m.collapsed, t.ID)
			m.rebuildRows()
		}

	case "a":
		m.mode = ListModeAdd
		m.input.Placeholder = "New task..."
		m.input.SetValue("")
		m.input.Focus()
		return m, textinput.Blink

	case "A":
		t := m.current()
		if t == nil {
			break
		}
		m.mode = ListModeAddSubtask
		m.parentID = t.ID
		delete(m.collapsed, t.ID)
		m.input.Placeholder = fmt.Sprintf("Subtask of %q...", truncate(t.Title, 30))
		m.input.SetValue("")
		m.input.Focus()
		return m, textinput.Blink

	case "enter":
		t := m.current()
		if t == nil {
			break
		}
		m.mode = ListModeEdit
		m.editTaskID = t.ID
		m.input.Placeholder = "Task title..."
		m.input.SetValue(t.Title)
		m.input.CursorEnd()
		m.input.Focus()
		return m, textinput.Blink

	case "tab":
		if t := m.current(); t != nil {
			return m, m.toggleDone(t)
		}

	case "d":
		t := m.current()
		if t == nil {
			break
		}
		m.confirm = m.deleteImpact(t)
		m.mode = ListModeConfirmDelete

	case "b":
		if t := m.current(); t != nil {
			m.openDepAddPicker(t)
		}

	case "B":
		t := m.current()
		if t == nil {
			break
		}
		deps := m.eng.Dependencies(t.ID)
		if len(deps) == 0 {
			return m, notify("No dependencies to remove")
		}
		m.openDepRemovePicker(t, deps)

	case "m":
		if t := m.current(); t != nil {
			m.openParentPicker(t)
		}

	case "M":
		if t := m.current(); t != nil {
			m.openProjectPicker(t)
		}

	case "P":
		m.openProjectFilterPicker()

	case "t":
		t := m.current()
		if t == nil {
			break
		}
		m.openTagPicker(t)
		return m, nil

	case "p":
		if t := m.current(); t != nil {
			return m, m.cyclePriority(t)
		}

	case "s":
		t := m.current()
		if t == nil {
			break
		}
		if t.Done {
			return m, notify("Task is already done")
		}
		return m, m.toggleTimer(t)

	case "f":
		if t := m.current(); t != nil {
			id := t.ID
			return m, func() tea.Msg { return FocusTaskRequest{TaskID: id} }
		}

	case "/":
		m.mode = ListModeSearch
		m.input.Placeholder = "Search..."
		m.input.SetValue(m.searchQuery)
		m.input.CursorEnd()
		m.input.Focus()
		return m, textinput.Blink

	case "v":
		m.showDone = !m.showDone
		m.rebuildRows()
		m.clampCursor()

	case "r":
		return m, m.loadGraph()

	case "esc":
		if m.searchQuery != "" || m.filterProjectID != "" {
			m.searchQuery = ""
			m.filterProjectID = ""
			m.rebuildRows()
			m.clampCursor()
		}
	}

	return m, nil
}

// handleInputMode handles the add/edit text prompt
func (m ListView) handleInputMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = ListModeNormal
		m.input.Blur()
		return m, nil

	case "enter":
		value := strings.TrimSpace(m.input.Value())
		mode := m.mode
		m.mode = ListModeNormal
		m.input.Blur()
		if value == "" {
			return m, nil
		}
		switch mode {
		case ListModeAdd:
			return m, m.createTask(value)
		case ListModeAddSubtask:
			return m, m.createSubtask(value, m.parentID)
		case ListModeEdit:
			return m, m.renameTask(m.editTaskID, value)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleSearchMode filters the tree live while typing
func (m ListView) handleSearchMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = ListModeNormal
		m.searchQuery = ""
		m.input.Blur()
		m.rebuildRows()
		m.clampCursor()
		return m, nil

	case "enter":
		m.mode = ListModeNormal
		m.input.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.searchQuery = m.input.Value()
	m.rebuildRows()
	m.clampCursor()
	return m, cmd
}

// handleConfirmMode handles the delete confirmation
func (m ListView) handleConfirmMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "enter":
		m.mode = ListModeNormal
		if m.confirm.task != nil {
			t := m.confirm.task
			m.confirm = confirmDelete{}
			return m, m.deleteTask(t.ID, t.Title)
		}
	case "n", "esc":
		m.mode = ListModeNormal
		m.confirm = confirmDelete{}
	}
	return m, nil
}

// handlePickerMode drives the chooser: type to filter, arrows to move
func (m ListView) handlePickerMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	items := m.pick.filtered()

	switch msg.String() {
	case "esc":
		m.pick = picker{}
		return m, nil

	case "up", "ctrl+k":
		if m.pick.cursor > 0 {
			m.pick.cursor--
		}
		return m, nil

	case "down", "ctrl+j":
		if m.pick.cursor < len(items)-1 {
			m.pick.cursor++
		}
		return m, nil

	case "enter":
		return m.confirmPicker(items)

	case "backspace":
		if len(m.pick.query) > 0 {
			runes := []rune(m.pick.query)
			m.pick.query = string(runes[:len(runes)-1])
			m.pick.cursor = 0
		}
		return m, nil
	}

	if msg.Type == tea.KeyRunes {
		m.pick.query += string(msg.Runes)
		m.pick.cursor = 0
	}
	return m, nil
}

// confirmPicker applies the selected row according to the picker kind
func (m ListView) confirmPicker(items []pickerItem) (tea.Model, tea.Cmd) {
	p := m.pick

	// An unmatched query in the tag picker creates the tag.
	if p.kind == pickerTag && len(items) == 0 && strings.TrimSpace(p.query) != "" {
		m.pick = picker{}
		return m, m.addNewTag(p.targetID, p.query)
	}
	if len(items) == 0 {
		return m, nil
	}
	if p.cursor >= len(items) {
		p.cursor = len(items) - 1
	}
	choice := items[p.cursor]
	m.pick = picker{}

	switch p.kind {
	case pickerDepAdd:
		return m, m.addDependency(p.targetID, choice.id)
	case pickerDepRemove:
		return m, m.removeDependency(p.targetID, choice.id)
	case pickerParent:
		if choice.id == "" {
			return m, m.promoteTask(p.targetID)
		}
		return m, m.moveTask(p.targetID, choice.id)
	case pickerProject:
		return m, m.assignProject(p.targetID, choice.id)
	case pickerProjectFilter:
		m.filterProjectID = choice.id
		m.rebuildRows()
		m.clampCursor()
		return m, nil
	case pickerTag:
		return m, m.toggleTag(p.targetID, choice.id)
	}
	return m, nil
}

// Picker constructors

func (m *ListView) openDepAddPicker(t *model.Task) {
	candidates := m.eng.DependencyCandidates(t.ID)
	items := make([]pickerItem, 0, len(candidates))
	for _, c := range candidates {
		items = append(items, pickerItem{
			id:     c.ID,
			label:  fmt.Sprintf("%s %s", statusGlyph(m.eng.Status(c.ID)), c.Title),
			detail: m.projectName(c.ProjectID),
		})
	}
	m.pick = picker{
		kind:     pickerDepAdd,
		title:    fmt.Sprintf("%q waits on...", truncate(t.Title, 40)),
		items:    items,
		targetID: t.ID,
	}
}

func (m *ListView) openDepRemovePicker(t *model.Task, deps []*model.Task) {
	items := make([]pickerItem, 0, len(deps))
	for _, d := range deps {
		items = append(items, pickerItem{
			id:     d.ID,
			label:  fmt.Sprintf("%s %s", statusGlyph(m.eng.Status(d.ID)), d.Title),
			detail: m.projectName(d.ProjectID),
		})
	}
	m.pick = picker{
		kind:     pickerDepRemove,
		title:    fmt.Sprintf("%q stops waiting on...", truncate(t.Title, 40)),
		items:    items,
		targetID: t.ID,
	}
}

func (m *ListView) openParentPicker(t *model.Task) {
	// A task cannot move under itself or anything below it.
	exclude := make(map[string]bool)
	for _, id := range m.subtreeIDs(t.ID) {
		exclude[id] = true
	}

	var items []pickerItem
	if t.ParentID != nil {
		items = append(items, pickerItem{id: "", label: "(top level)"})
	}
	for _, c := range m.eng.Tasks() {
		if exclude[c.ID] {
			continue
		}
		if t.ParentID != nil && *t.ParentID == c.ID {
			continue
		}
		items = append(items, pickerItem{
			id:     c.ID,
			label:  c.Title,
			detail: m.projectName(c.ProjectID),
		})
	}
	m.pick = picker{
		kind:     pickerParent,
		title:    fmt.Sprintf("Move %q under...", truncate(t.Title, 40)),
		items:    items,
		targetID: t.ID,
	}
}

func (m *ListView) openProjectPicker(t *model.Task) {
	items := []pickerItem{{id: "", label: "(no project)"}}
	for _, p := range m.projects {
		items = append(items, pickerItem{id: p.ID, label: p.Name})
	}
	m.pick = picker{
		kind:     pickerProject,
		title:    fmt.Sprintf("Move %q to project...", truncate(t.Title, 40)),
		items:    items,
		targetID: t.ID,
	}
}

func (m *ListView) openProjectFilterPicker() {
	items := []pickerItem{{id: "", label: "(all projects)"}}
	for _, p := range m.projects {
		items = append(items, pickerItem{id: p.ID, label: p.Name})
	}
	m.pick = picker{
		kind:  pickerProjectFilter,
		title: "Filter by project...",
		items: items,
	}
}

func (m *ListView) openTagPicker(t *model.Task) {
	onTask := make(map[string]bool, len(t.Tags))
	for _, tg := range t.Tags {
		onTask[tg.ID] = true
	}
	items := make([]pickerItem, 0, len(m.tags))
	for _, tg := range m.tags {
		mark := " "
		if onTask[tg.ID] {
			mark = "✓"
		}
		items = append(items, pickerItem{
			id:    tg.ID,
			label: fmt.Sprintf("%s %s", mark, tg.DisplayName()),
		})
	}
	m.pick = picker{
		kind:     pickerTag,
		title:    fmt.Sprintf("Tags for %q...", truncate(t.Title, 40)),
		items:    items,
		targetID: t.ID,
	}
}

// Commands

func (m ListView) createTask(title string) tea.Cmd {
	database := m.app.DB
	projectID := m.filterProjectID
	return func() tea.Msg {
		var pid *string
		if projectID != "" {
			pid = &projectID
		}
		task, err := database.CreateTask(title, pid)
		if err != nil {
			return taskCreatedMsg{err: err}
		}
		return taskCreatedMsg{task: task}
	}
}

func (m ListView) createSubtask(title, parentID string) tea.Cmd {
	database := m.app.DB
	return func() tea.Msg {
		task, err := database.CreateSubtask(title, parentID)
		if err != nil {
			return taskCreatedMsg{err: err}
		}
		return taskCreatedMsg{task: task}
	}
}

func (m ListView) renameTask(id, title string) tea.Cmd {
	database := m.app.DB
	return func() tea.Msg {
		if err := database.UpdateTaskTitle(id, title); err != nil {
			return taskMutatedMsg{err: err}
		}
		return taskMutatedMsg{}
	}
}

// toggleDone completes or reopens a task. Completing reports which
// dependents stopped being blocked and pings the desktop about them.
func (m ListView) toggleDone(t *model.Task) tea.Cmd {
	eng := m.eng
	notifier := m.app.Notifier
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

func (m ListView) deleteTask(id, title string) tea.Cmd {
	eng := m.eng
	return func() tea.Msg {
		removed, err := eng.DeleteTask(id)
		if err != nil {
			return taskMutatedMsg{err: err}
		}
		if len(removed) > 1 {
			return taskMutatedMsg{status: fmt.Sprintf("Deleted %q and %d subtasks", title, len(removed)-1)}
		}
		return taskMutatedMsg{status: fmt.Sprintf("Deleted %q", title)}
	}
}

// addDependency can still hit a cycle: the candidate list hides tree
// relations but not tasks that already depend on this one.
func (m ListView) addDependency(taskID, dependsOnID string) tea.Cmd {
	eng := m.eng
	return func() tea.Msg {
		if err := eng.AddDependency(taskID, dependsOnID); err != nil {
			return taskMutatedMsg{err: err}
		}
		return taskMutatedMsg{status: "Dependency added"}
	}
}

func (m ListView) removeDependency(taskID, dependsOnID string) tea.Cmd {
	eng := m.eng
	return func() tea.Msg {
		if err := eng.RemoveDependency(taskID, dependsOnID); err != nil {
			return taskMutatedMsg{err: err}
		}
		return taskMutatedMsg{status: "Dependency removed"}
	}
}

func (m ListView) moveTask(taskID, parentID string) tea.Cmd {
	eng := m.eng
	return func() tea.Msg {
		if err := eng.MoveSubtask(taskID, parentID); err != nil {
			return taskMutatedMsg{err: err}
		}
		return taskMutatedMsg{status: "Moved"}
	}
}

func (m ListView) promoteTask(taskID string) tea.Cmd {
	eng := m.eng
	return func() tea.Msg {
		if err := eng.PromoteSubtask(taskID); err != nil {
			return taskMutatedMsg{err: err}
		}
		return taskMutatedMsg{status: "Moved to top level"}
	}
}

// assignProject moves the task with its whole subtree so subtasks never
// end up in a different project than their parent.
func (m ListView) assignProject(taskID, projectID string) tea.Cmd {
	database := m.app.DB
	ids := m.subtreeIDs(taskID)
	return func() tea.Msg {
		var pid *string
		if projectID != "" {
			pid = &projectID
		}
		if err := database.SetTasksProject(ids, pid); err != nil {
			return taskMutatedMsg{err: err}
		}
		return taskMutatedMsg{status: "Project updated"}
	}
}

func (m ListView) toggleTag(taskID, tagID string) tea.Cmd {
	database := m.app.DB
	has := false
	if t, ok := m.eng.Task(taskID); ok {
		for _, tg := range t.Tags {
			if tg.ID == tagID {
				has = true
				break
			}
		}
	}
	return func() tea.Msg {
		if has {
			if err := database.RemoveTagFromTask(taskID, tagID); err != nil {
				return taskMutatedMsg{err: err}
			}
			return taskMutatedMsg{status: "Tag removed"}
		}
		if err := database.AddTagToTask(taskID, tagID); err != nil {
			return taskMutatedMsg{err: err}
		}
		return taskMutatedMsg{status: "Tag added"}
	}
}

func (m ListView) addNewTag(taskID, name string) tea.Cmd {
	database := m.app.DB
	return func() tea.Msg {
		tag, err := database.GetOrCreateTag(model.NormalizeTag(name), "")
		if err != nil {
			return taskMutatedMsg{err: err}
		}
		if err := database.AddTagToTask(taskID, tag.ID); err != nil {
			return taskMutatedMsg{err: err}
		}
		return taskMutatedMsg{status: fmt.Sprintf("Tagged %s", tag.DisplayName())}
	}
}

func (m ListView) cyclePriority(t *model.Task) tea.Cmd {
	database := m.app.DB
	id := t.ID
	var next model.Priority
	switch t.Priority {
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

// toggleTimer starts a timer on the task, or stops it if it is the one
// running. Starting elsewhere moves the timer here; only one runs at a
// time.
func (m ListView) toggleTimer(t *model.Task) tea.Cmd {
	database := m.app.DB
	id := t.ID
	title := t.Title
	return func() tea.Msg {
		entry, err := database.ActiveTimeEntry()
		if err != nil {
			return taskMutatedMsg{err: err}
		}
		if entry != nil && entry.TaskID == id {
			if _, err := database.StopRunningEntries(); err != nil {
				return taskMutatedMsg{err: err}
			}
			return taskMutatedMsg{status: fmt.Sprintf("Timer stopped: %s", title)}
		}
		if _, err := database.StartTimeEntry(id, 1, ""); err != nil {
			return taskMutatedMsg{err: err}
		}
		return taskMutatedMsg{status: fmt.Sprintf("Timer started: %s", title)}
	}
}

// Row building

// rebuildRows flattens the tree into visible rows, honoring collapse
// state and the active filters. Searching ignores collapse so matches
// inside folded branches stay reachable.
func (m *ListView) rebuildRows() {
	m.rows = nil
	if m.eng == nil {
		return
	}
	for _, t := range m.eng.Roots() {
		m.appendRows(t, 0)
	}
}

func (m *ListView) appendRows(t *model.Task, depth int) {
	if !m.subtreeVisible(t) {
		return
	}
	m.rows = append(m.rows, listRow{task: t, depth: depth})
	if m.collapsed[t.ID] && m.searchQuery == "" {
		return
	}
	for _, c := range m.eng.Children(t.ID) {
		m.appendRows(c, depth+1)
	}
}

// subtreeVisible reports whether the task or anything below it passes
// the filters. A parent with a matching descendant stays listed so the
// match keeps its place in the tree.
func (m *ListView) subtreeVisible(t *model.Task) bool {
	if m.taskMatches(t) {
		return true
	}
	for _, c := range m.eng.Children(t.ID) {
		if m.subtreeVisible(c) {
			return true
		}
	}
	return false
}

func (m *ListView) taskMatches(t *model.Task) bool {
	if t.Done && !m.showDone {
		return false
	}
	if m.filterProjectID != "" {
		if t.ProjectID == nil || *t.ProjectID != m.filterProjectID {
			return false
		}
	}
	if m.searchQuery != "" {
		q := strings.ToLower(m.searchQuery)
		if strings.Contains(strings.ToLower(t.Title), q) {
			return true
		}
		for _, tg := range t.Tags {
			if strings.Contains(strings.ToLower(tg.Name), q) {
				return true
			}
		}
		return false
	}
	return true
}

func (m ListView) current() *model.Task {
	if len(m.rows) == 0 || m.cursor < 0 || m.cursor >= len(m.rows) {
		return nil
	}
	return m.rows[m.cursor].task
}

func (m *ListView) clampCursor() {
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m ListView) pageSize() int {
	n := m.height - 6
	if n < 1 {
		n = 1
	}
	return n
}

// subtreeIDs returns id plus every descendant, depth first.
func (m ListView) subtreeIDs(id string) []string {
	out := []string{id}
	for _, c := range m.eng.Children(id) {
		out = append(out, m.subtreeIDs(c.ID)...)
	}
	return out
}

// deleteImpact sums up what deleting t takes with it: the subtree size
// and how many unfinished tasks outside the subtree lose a dependency.
func (m ListView) deleteImpact(t *model.Task) confirmDelete {
	ids := m.subtreeIDs(t.ID)
	inSubtree := make(map[string]bool, len(ids))
	for _, id := range ids {
		inSubtree[id] = true
	}
	seen := make(map[string]bool)
	for _, id := range ids {
		for _, d := range m.eng.Dependents(id) {
			if !inSubtree[d.ID] {
				seen[d.ID] = true
			}
		}
	}
	return confirmDelete{task: t, subtree: len(ids), dependents: len(seen)}
}

func (m ListView) project(id *string) *model.Project {
	if id == nil {
		return nil
	}
	for i := range m.projects {
		if m.projects[i].ID == *id {
			return &m.projects[i]
		}
	}
	return nil
}

func (m ListView) projectName(id *string) string {
	if p := m.project(id); p != nil {
		return p.Name
	}
	return ""
}

// View renders the list view
func (m ListView) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	styles := theme.Current.Styles
	t := theme.Current.Theme

	if m.loading {
		return styles.Placeholder.Render("Loading...")
	}
	if m.err != nil {
		return lipgloss.NewStyle().Foreground(t.Error).Render(fmt.Sprintf("Error: %v", m.err))
	}

	// The chooser takes over the whole view.
	if m.pick.kind != pickerNone {
		return m.renderPicker()
	}

	var b strings.Builder
	linesUsed := 0

	// Input bar
	switch m.mode {
	case ListModeAdd:
		b.WriteString(styles.Label.Render("Add: ") + m.input.View() + "\n")
		linesUsed++
	case ListModeAddSubtask:
		b.WriteString(styles.Label.Render("Add subtask: ") + m.input.View() + "\n")
		linesUsed++
	case ListModeEdit:
		b.WriteString(styles.Label.Render("Edit: ") + m.input.View() + "\n")
		linesUsed++
	case ListModeSearch:
		b.WriteString(styles.Label.Render("Search: ") + m.input.View() + "\n")
		linesUsed++
	}

	// Active filters
	if filters := m.renderFilters(); filters != "" {
		b.WriteString(filters + "\n")
		linesUsed++
	}

	// Delete confirmation
	if m.mode == ListModeConfirmDelete && m.confirm.task != nil {
		b.WriteString(m.renderConfirm() + "\n")
		linesUsed++
	}

	if len(m.rows) == 0 {
		if m.searchQuery != "" || m.filterProjectID != "" {
			b.WriteString(styles.Placeholder.Render("No tasks match."))
		} else {
			b.WriteString(styles.Placeholder.Render("No tasks yet. Press 'a' to add one."))
		}
		return b.String()
	}

	// Visible window around the cursor
	maxVisible := m.height - linesUsed - 2
	if maxVisible < 1 {
		maxVisible = 1
	}
	start := 0
	if m.cursor >= maxVisible {
		start = m.cursor - maxVisible + 1
	}
	end := start + maxVisible
	if end > len(m.rows) {
		end = len(m.rows)
	}

	if start > 0 {
		b.WriteString(styles.Label.Render(fmt.Sprintf("  ↑ %d more above", start)) + "\n")
	}
	for i := start; i < end; i++ {
		b.WriteString(m.renderRow(m.rows[i], i == m.cursor) + "\n")
	}
	if end < len(m.rows) {
		b.WriteString(styles.Label.Render(fmt.Sprintf("  ↓ %d more below", len(m.rows)-end)) + "\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

// renderFilters shows what is narrowing the list, if anything
func (m ListView) renderFilters() string {
	styles := theme.Current.Styles

	var parts []string
	if m.filterProjectID != "" {
		name := m.filterProjectID
		if p := m.project(&m.filterProjectID); p != nil {
			name = p.Name
		}
		parts = append(parts, fmt.Sprintf("project: %s", name))
	}
	if m.searchQuery != "" && m.mode != ListModeSearch {
		parts = append(parts, fmt.Sprintf("search: %s", m.searchQuery))
	}
	if m.showDone {
		parts = append(parts, "showing done")
	}
	if len(parts) == 0 {
		return ""
	}
	return styles.Subtitle.Render(strings.Join(parts, " • ") + " (esc clears)")
}

func (m ListView) renderConfirm() string {
	t := theme.Current.Theme
	styles := theme.Current.Styles
	c := m.confirm

	msg := fmt.Sprintf("Delete %q", truncate(c.task.Title, 40))
	if c.subtree > 1 {
		msg += fmt.Sprintf(" and %d subtasks", c.subtree-1)
	}
	msg += "?"
	if c.dependents > 0 {
		msg += fmt.Sprintf(" %d tasks stop waiting on it.", c.dependents)
	}
	question := lipgloss.NewStyle().Foreground(t.Warning).Bold(true).Render(msg)
	return question + " " + styles.HelpDesc.Render("y confirm • esc cancel")
}

// renderRow renders a single task line
func (m ListView) renderRow(row listRow, selected bool) string {
	task := row.task
	styles := theme.Current.Styles
	t := theme.Current.Theme

	indent := strings.Repeat("  ", row.depth)

	// Expansion indicator for tasks with subtasks
	expand := " "
	if len(m.eng.Children(task.ID)) > 0 {
		if m.collapsed[task.ID] {
			expand = "▸"
		} else {
			expand = "▾"
		}
	}

	status := m.eng.Status(task.ID)
	glyph := lipgloss.NewStyle().Foreground(statusColor(status)).Render(statusGlyph(status))

	prio := lipgloss.NewStyle().Foreground(priorityColor(task.Priority)).Render(priorityChar(task.Priority))

	// Title style by state; selection wins
	var titleStyle lipgloss.Style
	switch {
	case selected:
		titleStyle = styles.TaskSelected
	case status == model.StatusDone:
		titleStyle = styles.TaskDone
	case task.IsOverdue():
		titleStyle = styles.TaskOverdue
	case status == model.StatusBlocked:
		titleStyle = styles.TaskBlocked
	default:
		titleStyle = styles.TaskNormal
	}

	maxTitle := m.width - len(indent) - 40
	if maxTitle < 10 {
		maxTitle = 10
	}
	title := titleStyle.Render(truncate(task.Title, maxTitle))

	// Metadata trail
	var meta []string
	if m.filterProjectID == "" {
		if p := m.project(task.ProjectID); p != nil && !p.IsInbox() {
			style := lipgloss.NewStyle().Foreground(lipgloss.Color(p.Color))
			meta = append(meta, style.Render("["+p.Name+"]"))
		}
	}
	for _, tg := range task.Tags {
		meta = append(meta, lipgloss.NewStyle().Foreground(t.Info).Render(tg.DisplayName()))
	}
	if task.DueDate != nil && !task.Done {
		style := styles.DueDate
		switch {
		case task.IsOverdue():
			style = lipgloss.NewStyle().Foreground(t.Error).Bold(true)
		case task.IsDueToday():
			style = styles.DueDate.Bold(true)
		}
		meta = append(meta, style.Render("due "+formatDate(*task.DueDate)))
	}
	if status == model.StatusBlocked {
		blockers := m.eng.BlockingDependencies(task.ID)
		if len(blockers) > 0 {
			wait := fmt.Sprintf("waits on %s", truncate(blockers[0].Title, 20))
			if len(blockers) > 1 {
				wait += fmt.Sprintf(" (+%d)", len(blockers)-1)
			}
			meta = append(meta, lipgloss.NewStyle().Foreground(t.StatusBlocked).Render(wait))
		}
	}
	if status != model.StatusDone {
		if n := len(m.eng.Dependents(task.ID)); n > 0 {
			meta = append(meta, styles.Label.Render(fmt.Sprintf("blocks %d", n)))
		}
	}

	line := fmt.Sprintf("%s%s %s %s %s", indent, expand, glyph, prio, title)
	if len(meta) > 0 {
		line += " " + strings.Join(meta, " ")
	}
	return line
}

// renderPicker renders the chooser in place of the task list
func (m ListView) renderPicker() string {
	styles := theme.Current.Styles
	t := theme.Current.Theme

	var b strings.Builder
	b.WriteString(styles.Title.Render(m.pick.title))
	b.WriteString("\n")

	query := m.pick.query
	if query == "" {
		b.WriteString(styles.Placeholder.Render("type to filter") + "\n\n")
	} else {
		b.WriteString(styles.Label.Render("filter: ") + query + "\n\n")
	}

	items := m.pick.filtered()
	if len(items) == 0 {
		if m.pick.kind == pickerTag && strings.TrimSpace(m.pick.query) != "" {
			b.WriteString(styles.Placeholder.Render(
				fmt.Sprintf("No such tag. enter creates @%s", model.NormalizeTag(m.pick.query))))
		} else {
			b.WriteString(styles.Placeholder.Render("Nothing to choose."))
		}
		b.WriteString("\n\n" + styles.HelpDesc.Render("esc cancel"))
		return b.String()
	}

	cursor := m.pick.cursor
	if cursor >= len(items) {
		cursor = len(items) - 1
	}

	maxVisible := m.height - 6
	if maxVisible < 1 {
		maxVisible = 1
	}
	start := 0
	if cursor >= maxVisible {
		start = cursor - maxVisible + 1
	}
	end := start + maxVisible
	if end > len(items) {
		end = len(items)
	}

	if start > 0 {
		b.WriteString(styles.Label.Render(fmt.Sprintf("  ↑ %d more above", start)) + "\n")
	}
	for i := start; i < end; i++ {
		it := items[i]
		line := it.label
		if it.detail != "" {
			line += " " + styles.Label.Render(it.detail)
		}
		if i == cursor {
			b.WriteString(styles.TaskSelected.Render("> "+line) + "\n")
		} else {
			b.WriteString("  " + lipgloss.NewStyle().Foreground(t.Foreground).Render(line) + "\n")
		}
	}
	if end < len(items) {
		b.WriteString(styles.Label.Render(fmt.Sprintf("  ↓ %d more below", len(items)-end)) + "\n")
	}

	b.WriteString("\n" + styles.HelpDesc.Render("↑/↓ choose • enter confirm • esc cancel"))
	return b.String()
}

// Shared render helpers used by the other views as well.

// statusGlyph maps a derived status to its one-cell marker.
func statusGlyph(s model.Status) string {
	switch s {
	case model.StatusDone:
		return "✓"
	case model.StatusBlocked:
		return "⊘"
	case model.StatusInProgress:
		return "▶"
	default:
		return "○"
	}
}

func statusColor(s model.Status) lipgloss.Color {
	t := theme.Current.Theme
	switch s {
	case model.StatusDone:
		return t.StatusDone
	case model.StatusBlocked:
		return t.StatusBlocked
	case model.StatusInProgress:
		return t.StatusInProgress
	default:
		return t.StatusReady
	}
}

func statusLabel(s model.Status) string {
	switch s {
	case model.StatusDone:
		return "Done"
	case model.StatusBlocked:
		return "Blocked"
	case model.StatusInProgress:
		return "In Progress"
	default:
		return "Ready"
	}
}

func priorityChar(p model.Priority) string {
	switch p {
	case model.PriorityUrgent:
		return "‼"
	case model.PriorityHigh:
		return "!"
	case model.PriorityLow:
		return "."
	default:
		return "-"
	}
}

func priorityColor(p model.Priority) lipgloss.Color {
	t := theme.Current.Theme
	switch p {
	case model.PriorityUrgent:
		return t.PriorityUrgent
	case model.PriorityHigh:
		return t.PriorityHigh
	case model.PriorityLow:
		return t.PriorityLow
	default:
		return t.PriorityMedium
	}
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max < 1 {
		return ""
	}
	return string(runes[:max-1]) + "…"
}

// formatDate renders a date relative to today where that reads better.
func formatDate(d time.Time) string {
	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location())

	switch days := int(day.Sub(today).Hours() / 24); {
	case days == 0:
		return "today"
	case days == 1:
		return "tomorrow"
	case days == -1:
		return "yesterday"
	case days > 1 && days < 7:
		return day.Format("Mon")
	default:
		return day.Format("Jan 2")
	}
}
