package graph

import (
	"fmt"
	"time"

	"github.com/okvist/skein/internal/model"
)

// Store is the commit side of the engine. Every mutation validates and
// applies in memory first, then commits through the store. Implemented
// by the db package.
type Store interface {
	InsertDependency(taskID, dependsOnID string, position int) error
	DeleteDependency(taskID, dependsOnID string) error
	UpdateTaskParent(taskID string, parentID *string, position int, projectID *string) error
	SetTaskDone(id string, done bool, completedAt *time.Time) error
	DeleteTasks(ids []string) error
}

// Engine is an indexed snapshot of the task universe: every task by ID,
// the subtask tree as parent -> ordered child IDs, and the dependency
// graph as ordered adjacency in both directions. It is rebuilt from the
// store on load; nothing derived is ever persisted.
type Engine struct {
	store Store

	tasks      map[string]*model.Task
	order      []string            // load order, stable iteration
	children   map[string][]string // parent ID -> child IDs, position order
	deps       map[string][]string // task ID -> depends-on IDs, insertion order
	dependents map[string][]string // task ID -> IDs of tasks that depend on it
	running    map[string]bool     // task IDs with an active timer
}

// SubtaskDependency is one (subtask, unfinished dependency) pair
// contributed by a direct subtask.
type SubtaskDependency struct {
	Subtask   *model.Task
	DependsOn *model.Task
}

// New builds an Engine over the given tasks and dependency edges.
// Edges whose endpoints are not both present are dropped, as are
// duplicates and self-edges; a database edited outside the app can
// contain any of those.
func New(store Store, tasks []model.Task, edges []model.Dependency) *Engine {
	e := &Engine{
		store:      store,
		tasks:      make(map[string]*model.Task, len(tasks)),
		children:   make(map[string][]string),
		deps:       make(map[string][]string),
		dependents: make(map[string][]string),
		running:    make(map[string]bool),
	}

	for i := range tasks {
		t := &tasks[i]
		if _, ok := e.tasks[t.ID]; ok {
			continue
		}
		e.tasks[t.ID] = t
		e.order = append(e.order, t.ID)
	}

	// Children in load order; callers load tasks ordered by position.
	for _, id := range e.order {
		t := e.tasks[id]
		if t.ParentID == nil {
			continue
		}
		if _, ok := e.tasks[*t.ParentID]; !ok {
			continue
		}
		e.children[*t.ParentID] = append(e.children[*t.ParentID], id)
	}

	edgeSeen := make(map[[2]string]bool)
	for _, d := range edges {
		if d.TaskID == d.DependsOnID {
			continue
		}
		if _, ok := e.tasks[d.TaskID]; !ok {
			continue
		}
		if _, ok := e.tasks[d.DependsOnID]; !ok {
			continue
		}
		key := [2]string{d.TaskID, d.DependsOnID}
		if edgeSeen[key] {
			continue
		}
		edgeSeen[key] = true
		e.deps[d.TaskID] = append(e.deps[d.TaskID], d.DependsOnID)
		e.dependents[d.DependsOnID] = append(e.dependents[d.DependsOnID], d.TaskID)
	}

	// Tasks mirror their own dependency list so views holding a *Task
	// see what the graph sees.
	for id, t := range e.tasks {
		t.DependsOn = e.deps[id]
	}

	return e
}

// Task returns the task with the given ID.
func (e *Engine) Task(id string) (*model.Task, bool) {
	t, ok := e.tasks[id]
	return t, ok
}

// Tasks returns every task in load order.
func (e *Engine) Tasks() []*model.Task {
	out := make([]*model.Task, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, e.tasks[id])
	}
	return out
}

// Roots returns tasks with no parent in the graph, in load order.
func (e *Engine) Roots() []*model.Task {
	var out []*model.Task
	for _, id := range e.order {
		t := e.tasks[id]
		if t.ParentID == nil {
			out = append(out, t)
			continue
		}
		if _, ok := e.tasks[*t.ParentID]; !ok {
			out = append(out, t)
		}
	}
	return out
}

// Children returns the direct subtasks of id in position order.
func (e *Engine) Children(id string) []*model.Task {
	ids := e.children[id]
	out := make([]*model.Task, 0, len(ids))
	for _, cid := range ids {
		out = append(out, e.tasks[cid])
	}
	return out
}

// Len returns the number of tasks in the graph.
func (e *Engine) Len() int {
	return len(e.order)
}

// SetRunning marks or clears an active timer on a task. Timer state
// only feeds status derivation; time entries live in the store.
func (e *Engine) SetRunning(id string, running bool) {
	if _, ok := e.tasks[id]; !ok {
		return
	}
	if running {
		e.running[id] = true
	} else {
		delete(e.running, id)
	}
}

// Status derives the state of a task. The rules apply in order:
// done wins, then blocked (any unfinished dependency), then in
// progress (active timer), then ready. Pure; nothing is cached or
// stored.
func (e *Engine) Status(id string) model.Status {
	t, ok := e.tasks[id]
	if !ok {
		return ""
	}
	if t.Done {
		return model.StatusDone
	}
	for _, dep := range e.deps[id] {
		if d, ok := e.tasks[dep]; ok && !d.Done {
			return model.StatusBlocked
		}
	}
	if e.running[id] {
		return model.StatusInProgress
	}
	return model.StatusReady
}

// Dependencies returns the tasks id depends on, in insertion order.
func (e *Engine) Dependencies(id string) []*model.Task {
	ids := e.deps[id]
	out := make([]*model.Task, 0, len(ids))
	for _, did := range ids {
		out = append(out, e.tasks[did])
	}
	return out
}

// BlockingDependencies returns the unfinished tasks id depends on, in
// insertion order. Empty for a done or unblocked task.
func (e *Engine) BlockingDependencies(id string) []*model.Task {
	var out []*model.Task
	for _, did := range e.deps[id] {
		if d, ok := e.tasks[did]; ok && !d.Done {
			out = append(out, d)
		}
	}
	return out
}

// BlockingSubtaskDependencies returns, for each direct subtask of id,
// that subtask's unfinished dependencies as (subtask, dependency)
// pairs. Only one level is inspected: a nested subtask's blockers show
// up when viewing the subtask itself.
func (e *Engine) BlockingSubtaskDependencies(id string) []SubtaskDependency {
	var out []SubtaskDependency
	for _, cid := range e.children[id] {
		child := e.tasks[cid]
		for _, did := range e.deps[cid] {
			if d, ok := e.tasks[did]; ok && !d.Done {
				out = append(out, SubtaskDependency{Subtask: child, DependsOn: d})
			}
		}
	}
	return out
}

// Dependents returns the unfinished tasks whose dependency list
// contains id: the tasks this one is holding up.
func (e *Engine) Dependents(id string) []*model.Task {
	var out []*model.Task
	for _, did := range e.dependents[id] {
		if d, ok := e.tasks[did]; ok && !d.Done {
			out = append(out, d)
		}
	}
	return out
}

// DependencyCandidates returns every task id could depend on: the
// whole universe minus itself, its existing dependencies, its
// ancestors, and its descendants. Recomputed on every call.
func (e *Engine) DependencyCandidates(id string) []*model.Task {
	if _, ok := e.tasks[id]; !ok {
		return nil
	}
	excluded := make(map[string]bool)
	excluded[id] = true
	for _, did := range e.deps[id] {
		excluded[did] = true
	}
	for _, aid := range e.ancestors(id) {
		excluded[aid] = true
	}
	e.walkDescendants(id, func(did string) {
		excluded[did] = true
	})

	var out []*model.Task
	for _, tid := range e.order {
		if !excluded[tid] {
			out = append(out, e.tasks[tid])
		}
	}
	return out
}

// AddDependency records that fromID cannot finish before toID. The
// edge is validated against self-dependency, duplication, the subtask
// chain, and transitive cycles before anything changes; a store
// failure after the in-memory append is reported as *PersistenceError
// with the graph still holding the new edge.
func (e *Engine) AddDependency(fromID, toID string) error {
	if _, ok := e.tasks[fromID]; !ok {
		return fmt.Errorf("task %q: %w", fromID, ErrNotFound)
	}
	if _, ok := e.tasks[toID]; !ok {
		return fmt.Errorf("task %q: %w", toID, ErrNotFound)
	}
	if fromID == toID {
		return fmt.Errorf("task cannot depend on itself: %w", ErrCycle)
	}
	for _, did := range e.deps[fromID] {
		if did == toID {
			return ErrDuplicateEdge
		}
	}
	for _, aid := range e.ancestors(fromID) {
		if aid == toID {
			return fmt.Errorf("task cannot depend on its own parent chain: %w", ErrCycle)
		}
	}
	if e.isDescendant(fromID, toID) {
		return fmt.Errorf("task cannot depend on its own subtask: %w", ErrCycle)
	}
	// The edge from -> to closes a loop exactly when from is already
	// reachable from to through existing dependencies.
	if e.reaches(toID, fromID) {
		return fmt.Errorf("%q already depends on %q: %w", toID, fromID, ErrCycle)
	}

	e.deps[fromID] = append(e.deps[fromID], toID)
	e.dependents[toID] = append(e.dependents[toID], fromID)
	e.tasks[fromID].DependsOn = e.deps[fromID]

	pos := len(e.deps[fromID]) - 1
	if err := e.store.InsertDependency(fromID, toID, pos); err != nil {
		return &PersistenceError{Op: "add dependency", Err: err}
	}
	return nil
}

// RemoveDependency deletes the edge from -> to. A missing edge or an
// unknown task is a no-op, not an error.
func (e *Engine) RemoveDependency(fromID, toID string) error {
	found := false
	for _, did := range e.deps[fromID] {
		if did == toID {
			found = true
			break
		}
	}
	if !found {
		return nil
	}

	e.deps[fromID] = removeString(e.deps[fromID], toID)
	e.dependents[toID] = removeString(e.dependents[toID], fromID)
	e.tasks[fromID].DependsOn = e.deps[fromID]

	if err := e.store.DeleteDependency(fromID, toID); err != nil {
		return &PersistenceError{Op: "remove dependency", Err: err}
	}
	return nil
}

// MoveSubtask reparents a task under newParentID. The task keeps its
// subtree, lands after the new parent's existing subtasks, and takes
// on the new parent's project. Moving a task under itself or under any
// of its descendants fails with ErrCircularMove before anything
// changes.
func (e *Engine) MoveSubtask(id, newParentID string) error {
	t, ok := e.tasks[id]
	if !ok {
		return fmt.Errorf("task %q: %w", id, ErrNotFound)
	}
	parent, ok := e.tasks[newParentID]
	if !ok {
		return fmt.Errorf("task %q: %w", newParentID, ErrNotFound)
	}
	if id == newParentID {
		return ErrCircularMove
	}
	if e.isDescendant(id, newParentID) {
		return ErrCircularMove
	}
	if t.ParentID != nil && *t.ParentID == newParentID {
		return nil
	}

	e.detach(id)

	pos := 0
	for _, cid := range e.children[newParentID] {
		if p := e.tasks[cid].Position; p >= pos {
			pos = p + 1
		}
	}
	pid := newParentID
	t.ParentID = &pid
	t.Position = pos
	t.ProjectID = parent.ProjectID
	e.children[newParentID] = append(e.children[newParentID], id)

	if err := e.store.UpdateTaskParent(id, t.ParentID, pos, t.ProjectID); err != nil {
		return &PersistenceError{Op: "move subtask", Err: err}
	}
	return nil
}

// PromoteSubtask detaches a task from its parent and appends it to the
// top level. The task keeps its project.
func (e *Engine) PromoteSubtask(id string) error {
	t, ok := e.tasks[id]
	if !ok {
		return fmt.Errorf("task %q: %w", id, ErrNotFound)
	}
	if t.ParentID == nil {
		return nil
	}

	e.detach(id)

	pos := 0
	for _, oid := range e.order {
		o := e.tasks[oid]
		if o.ParentID == nil && o.ID != id && o.Position >= pos {
			pos = o.Position + 1
		}
	}
	t.ParentID = nil
	t.Position = pos

	if err := e.store.UpdateTaskParent(id, nil, pos, t.ProjectID); err != nil {
		return &PersistenceError{Op: "promote subtask", Err: err}
	}
	return nil
}

// Complete marks a task done and returns the dependents that stopped
// being blocked because of it, in edge order. Completing a done task
// is a no-op.
func (e *Engine) Complete(id string) ([]*model.Task, error) {
	t, ok := e.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %q: %w", id, ErrNotFound)
	}
	if t.Done {
		return nil, nil
	}

	var wasBlocked []string
	for _, did := range e.dependents[id] {
		if e.Status(did) == model.StatusBlocked {
			wasBlocked = append(wasBlocked, did)
		}
	}

	now := time.Now()
	t.Done = true
	t.CompletedAt = &now
	delete(e.running, id)

	var unblocked []*model.Task
	for _, did := range wasBlocked {
		if e.Status(did) != model.StatusBlocked {
			unblocked = append(unblocked, e.tasks[did])
		}
	}

	if err := e.store.SetTaskDone(id, true, &now); err != nil {
		return unblocked, &PersistenceError{Op: "complete task", Err: err}
	}
	return unblocked, nil
}

// Reopen clears the completion flag. Reopening an unfinished task is a
// no-op.
func (e *Engine) Reopen(id string) error {
	t, ok := e.tasks[id]
	if !ok {
		return fmt.Errorf("task %q: %w", id, ErrNotFound)
	}
	if !t.Done {
		return nil
	}

	t.Done = false
	t.CompletedAt = nil

	if err := e.store.SetTaskDone(id, false, nil); err != nil {
		return &PersistenceError{Op: "reopen task", Err: err}
	}
	return nil
}

// DeleteTask removes a task, its whole subtree, and every dependency
// edge touching any removed task, in one pass. Returns the removed
// IDs. Edges from surviving tasks to removed ones disappear with the
// removal; nothing is left dangling.
func (e *Engine) DeleteTask(id string) ([]string, error) {
	if _, ok := e.tasks[id]; !ok {
		return nil, fmt.Errorf("task %q: %w", id, ErrNotFound)
	}

	removed := []string{id}
	e.walkDescendants(id, func(did string) {
		removed = append(removed, did)
	})
	gone := make(map[string]bool, len(removed))
	for _, rid := range removed {
		gone[rid] = true
	}

	for _, rid := range removed {
		t := e.tasks[rid]

		// Unhook the dependency graph from both directions.
		for _, did := range e.deps[rid] {
			if !gone[did] {
				e.dependents[did] = removeString(e.dependents[did], rid)
			}
		}
		for _, did := range e.dependents[rid] {
			if !gone[did] {
				e.deps[did] = removeString(e.deps[did], rid)
				e.tasks[did].DependsOn = e.deps[did]
			}
		}

		if t.ParentID != nil && !gone[*t.ParentID] {
			e.children[*t.ParentID] = removeString(e.children[*t.ParentID], rid)
		}

		delete(e.deps, rid)
		delete(e.dependents, rid)
		delete(e.children, rid)
		delete(e.running, rid)
		delete(e.tasks, rid)
	}

	kept := e.order[:0]
	for _, oid := range e.order {
		if !gone[oid] {
			kept = append(kept, oid)
		}
	}
	e.order = kept

	if err := e.store.DeleteTasks(removed); err != nil {
		return removed, &PersistenceError{Op: "delete task", Err: err}
	}
	return removed, nil
}

// ancestors walks the parent chain upward. The visited guard keeps a
// corrupted parent loop from hanging the walk.
func (e *Engine) ancestors(id string) []string {
	var out []string
	seen := map[string]bool{id: true}
	cur := e.tasks[id]
	for cur != nil && cur.ParentID != nil {
		pid := *cur.ParentID
		if seen[pid] {
			break
		}
		seen[pid] = true
		p, ok := e.tasks[pid]
		if !ok {
			break
		}
		out = append(out, pid)
		cur = p
	}
	return out
}

// isDescendant reports whether other is inside id's subtree.
func (e *Engine) isDescendant(id, other string) bool {
	found := false
	e.walkDescendants(id, func(did string) {
		if did == other {
			found = true
		}
	})
	return found
}

// walkDescendants visits every task below id, depth first, position
// order within each level.
func (e *Engine) walkDescendants(id string, visit func(string)) {
	for _, cid := range e.children[id] {
		visit(cid)
		e.walkDescendants(cid, visit)
	}
}

// reaches reports whether to is reachable from from following
// dependency edges.
func (e *Engine) reaches(from, to string) bool {
	seen := make(map[string]bool)
	var dfs func(string) bool
	dfs = func(cur string) bool {
		if cur == to {
			return true
		}
		seen[cur] = true
		for _, next := range e.deps[cur] {
			if !seen[next] && dfs(next) {
				return true
			}
		}
		return false
	}
	return dfs(from)
}

// detach removes id from its parent's child list without touching
// anything else.
func (e *Engine) detach(id string) {
	t := e.tasks[id]
	if t.ParentID == nil {
		return
	}
	e.children[*t.ParentID] = removeString(e.children[*t.ParentID], id)
}

func removeString(s []string, v string) []string {
	out := s[:0]
	for _, x := range s {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}
