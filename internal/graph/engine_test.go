package graph

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/okvist/skein/internal/model"
)

// memStore records commits so tests can assert what reached the store.
// Setting failErr makes every write fail, for the persistence-failure
// paths.
type memStore struct {
	failErr error
	calls   []string
}

func (s *memStore) do(call string) error {
	if s.failErr != nil {
		return s.failErr
	}
	s.calls = append(s.calls, call)
	return nil
}

func (s *memStore) InsertDependency(taskID, dependsOnID string, position int) error {
	return s.do(fmt.Sprintf("insert-dep %s->%s @%d", taskID, dependsOnID, position))
}

func (s *memStore) DeleteDependency(taskID, dependsOnID string) error {
	return s.do(fmt.Sprintf("delete-dep %s->%s", taskID, dependsOnID))
}

func (s *memStore) UpdateTaskParent(taskID string, parentID *string, position int, projectID *string) error {
	p := "nil"
	if parentID != nil {
		p = *parentID
	}
	return s.do(fmt.Sprintf("reparent %s under %s @%d", taskID, p, position))
}

func (s *memStore) SetTaskDone(id string, done bool, completedAt *time.Time) error {
	return s.do(fmt.Sprintf("set-done %s %v", id, done))
}

func (s *memStore) DeleteTasks(ids []string) error {
	return s.do(fmt.Sprintf("delete %v", ids))
}

func task(id string, opts ...func(*model.Task)) model.Task {
	t := model.Task{ID: id, Title: "Task " + id, Priority: model.PriorityMedium}
	for _, opt := range opts {
		opt(&t)
	}
	return t
}

func withParent(pid string) func(*model.Task) {
	return func(t *model.Task) { t.ParentID = &pid }
}

func withProject(pid string) func(*model.Task) {
	return func(t *model.Task) { t.ProjectID = &pid }
}

func withPosition(p int) func(*model.Task) {
	return func(t *model.Task) { t.Position = p }
}

func done() func(*model.Task) {
	now := time.Now()
	return func(t *model.Task) {
		t.Done = true
		t.CompletedAt = &now
	}
}

func edge(from, to string) model.Dependency {
	return model.Dependency{TaskID: from, DependsOnID: to}
}

func ids(tasks []*model.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.ID)
	}
	return out
}

func TestAddDependency_RejectsSelf(t *testing.T) {
	store := &memStore{}
	e := New(store, []model.Task{task("a")}, nil)

	err := e.AddDependency("a", "a")
	if !errors.Is(err, ErrCycle) {
		t.Fatalf("expected ErrCycle for self-dependency, got %v", err)
	}
	if len(store.calls) != 0 {
		t.Errorf("rejected edge must not reach the store, got %v", store.calls)
	}
}

func TestAddDependency_RejectsDuplicate(t *testing.T) {
	store := &memStore{}
	e := New(store, []model.Task{task("a"), task("b")}, nil)

	if err := e.AddDependency("a", "b"); err != nil {
		t.Fatalf("first edge: %v", err)
	}
	err := e.AddDependency("a", "b")
	if !errors.Is(err, ErrDuplicateEdge) {
		t.Fatalf("expected ErrDuplicateEdge, got %v", err)
	}
	if got := len(e.Dependencies("a")); got != 1 {
		t.Errorf("expected 1 dependency after duplicate rejection, got %d", got)
	}
}

func TestAddDependency_RejectsDirectCycle(t *testing.T) {
	// a -> b exists; b -> a would close the loop
	store := &memStore{}
	e := New(store, []model.Task{task("a"), task("b")}, []model.Dependency{edge("a", "b")})

	err := e.AddDependency("b", "a")
	if !errors.Is(err, ErrCycle) {
		t.Fatalf("expected ErrCycle, got %v", err)
	}
}

func TestAddDependency_RejectsTransitiveCycle(t *testing.T) {
	// a -> b -> c; c -> a must be rejected no matter the distance
	store := &memStore{}
	e := New(store, []model.Task{task("a"), task("b"), task("c")},
		[]model.Dependency{edge("a", "b"), edge("b", "c")})

	err := e.AddDependency("c", "a")
	if !errors.Is(err, ErrCycle) {
		t.Fatalf("expected ErrCycle for transitive cycle, got %v", err)
	}

	// The long way around still works: c -> d is fine
	e2 := New(store, []model.Task{task("a"), task("b"), task("c"), task("d")},
		[]model.Dependency{edge("a", "b"), edge("b", "c")})
	if err := e2.AddDependency("c", "d"); err != nil {
		t.Fatalf("acyclic edge rejected: %v", err)
	}
}

func TestAddDependency_RejectsParentChain(t *testing.T) {
	// root
	//  └─ mid
	//      └─ leaf
	store := &memStore{}
	e := New(store, []model.Task{
		task("root"),
		task("mid", withParent("root")),
		task("leaf", withParent("mid")),
	}, nil)

	if err := e.AddDependency("leaf", "mid"); !errors.Is(err, ErrCycle) {
		t.Errorf("dependency on parent: expected ErrCycle, got %v", err)
	}
	if err := e.AddDependency("leaf", "root"); !errors.Is(err, ErrCycle) {
		t.Errorf("dependency on grandparent: expected ErrCycle, got %v", err)
	}
}

func TestAddDependency_RejectsOwnSubtask(t *testing.T) {
	store := &memStore{}
	e := New(store, []model.Task{
		task("root"),
		task("mid", withParent("root")),
		task("leaf", withParent("mid")),
	}, nil)

	if err := e.AddDependency("root", "leaf"); !errors.Is(err, ErrCycle) {
		t.Errorf("dependency on descendant: expected ErrCycle, got %v", err)
	}
}

func TestAddDependency_UnknownTask(t *testing.T) {
	store := &memStore{}
	e := New(store, []model.Task{task("a")}, nil)

	if err := e.AddDependency("a", "ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := e.AddDependency("ghost", "a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStatus_RuleOrder(t *testing.T) {
	// blocked depends on open; it also has a running timer, but
	// blocked wins over in-progress. done wins over everything.
	store := &memStore{}
	e := New(store, []model.Task{
		task("open"),
		task("blocked"),
		task("finished", done()),
		task("timing"),
	}, []model.Dependency{edge("blocked", "open"), edge("finished", "open")})

	e.SetRunning("blocked", true)
	e.SetRunning("timing", true)

	if got := e.Status("finished"); got != model.StatusDone {
		t.Errorf("done task: expected %q, got %q", model.StatusDone, got)
	}
	if got := e.Status("blocked"); got != model.StatusBlocked {
		t.Errorf("blocked task with timer: expected %q, got %q", model.StatusBlocked, got)
	}
	if got := e.Status("timing"); got != model.StatusInProgress {
		t.Errorf("timing task: expected %q, got %q", model.StatusInProgress, got)
	}
	if got := e.Status("open"); got != model.StatusReady {
		t.Errorf("open task: expected %q, got %q", model.StatusReady, got)
	}
}

func TestStatus_UnblocksWhenDependencyCompletes(t *testing.T) {
	store := &memStore{}
	e := New(store, []model.Task{task("a"), task("b")},
		[]model.Dependency{edge("b", "a")})

	if got := e.Status("b"); got != model.StatusBlocked {
		t.Fatalf("expected blocked before completion, got %q", got)
	}

	if _, err := e.Complete("a"); err != nil {
		t.Fatalf("complete: %v", err)
	}

	if got := e.Status("b"); got != model.StatusReady {
		t.Errorf("expected ready after dependency completed, got %q", got)
	}

	// Reopening the dependency blocks b again.
	if err := e.Reopen("a"); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got := e.Status("b"); got != model.StatusBlocked {
		t.Errorf("expected blocked after dependency reopened, got %q", got)
	}
}

func TestBlockingDependencies_InsertionOrder(t *testing.T) {
	store := &memStore{}
	e := New(store, []model.Task{task("t"), task("x", done()), task("y"), task("z")}, nil)

	for _, dep := range []string{"y", "x", "z"} {
		if err := e.AddDependency("t", dep); err != nil {
			t.Fatalf("add %s: %v", dep, err)
		}
	}

	got := ids(e.BlockingDependencies("t"))
	want := []string{"y", "z"} // x is done, order of the rest preserved
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestBlockingSubtaskDependencies_OneLevel(t *testing.T) {
	// parent
	//  └─ child      (depends on dep)
	//      └─ grand  (depends on dep too, but two levels down)
	store := &memStore{}
	e := New(store, []model.Task{
		task("parent"),
		task("child", withParent("parent")),
		task("grand", withParent("child")),
		task("dep"),
	}, []model.Dependency{edge("child", "dep"), edge("grand", "dep")})

	pairs := e.BlockingSubtaskDependencies("parent")
	if len(pairs) != 1 {
		t.Fatalf("expected 1 pair (direct subtasks only), got %d", len(pairs))
	}
	if pairs[0].Subtask.ID != "child" || pairs[0].DependsOn.ID != "dep" {
		t.Errorf("expected (child, dep), got (%s, %s)", pairs[0].Subtask.ID, pairs[0].DependsOn.ID)
	}

	// The grandchild's blocker shows up on the child instead.
	pairs = e.BlockingSubtaskDependencies("child")
	if len(pairs) != 1 || pairs[0].Subtask.ID != "grand" {
		t.Fatalf("expected grand's blocker on child, got %v", pairs)
	}

	// Completing the dependency clears every pair.
	if _, err := e.Complete("dep"); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if pairs := e.BlockingSubtaskDependencies("parent"); len(pairs) != 0 {
		t.Errorf("expected no pairs after completion, got %d", len(pairs))
	}
}

func TestDependents_ReverseView(t *testing.T) {
	store := &memStore{}
	e := New(store, []model.Task{task("a"), task("b"), task("c"), task("d", done())},
		[]model.Dependency{edge("b", "a"), edge("c", "a"), edge("d", "a")})

	got := ids(e.Dependents("a"))
	if len(got) != 2 || got[0] != "b" || got[1] != "c" {
		t.Fatalf("expected unfinished dependents [b c], got %v", got)
	}

	// Removing the edge drops the dependent from the reverse view.
	if err := e.RemoveDependency("b", "a"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	got = ids(e.Dependents("a"))
	if len(got) != 1 || got[0] != "c" {
		t.Errorf("expected [c] after removal, got %v", got)
	}

	// And adding it back restores both directions.
	if err := e.AddDependency("b", "a"); err != nil {
		t.Fatalf("re-add: %v", err)
	}
	if got := ids(e.Dependents("a")); len(got) != 2 {
		t.Errorf("expected 2 dependents after re-add, got %v", got)
	}
	if got := ids(e.Dependencies("b")); len(got) != 1 || got[0] != "a" {
		t.Errorf("expected b to depend on [a], got %v", got)
	}
}

func TestDependencyCandidates_Exclusions(t *testing.T) {
	// root
	//  └─ self
	//      └─ child
	// Plus: dep (already depended on), other (free), finished (done).
	store := &memStore{}
	e := New(store, []model.Task{
		task("root"),
		task("self", withParent("root")),
		task("child", withParent("self")),
		task("dep"),
		task("other"),
		task("finished", done()),
	}, []model.Dependency{edge("self", "dep")})

	got := ids(e.DependencyCandidates("self"))
	want := map[string]bool{"other": true, "finished": true}
	if len(got) != len(want) {
		t.Fatalf("expected candidates [other finished], got %v", got)
	}
	for _, id := range got {
		if !want[id] {
			t.Errorf("unexpected candidate %s", id)
		}
	}
}

func TestMoveSubtask_RejectsSelfAndDescendant(t *testing.T) {
	// a
	//  └─ b
	//      └─ c
	store := &memStore{}
	e := New(store, []model.Task{
		task("a"),
		task("b", withParent("a")),
		task("c", withParent("b")),
	}, nil)

	if err := e.MoveSubtask("a", "a"); !errors.Is(err, ErrCircularMove) {
		t.Errorf("move under self: expected ErrCircularMove, got %v", err)
	}
	if err := e.MoveSubtask("a", "c"); !errors.Is(err, ErrCircularMove) {
		t.Errorf("move under grandchild: expected ErrCircularMove, got %v", err)
	}
	if len(store.calls) != 0 {
		t.Errorf("rejected moves must not reach the store, got %v", store.calls)
	}

	// Upward moves stay legal: c directly under a.
	if err := e.MoveSubtask("c", "a"); err != nil {
		t.Fatalf("legal move rejected: %v", err)
	}
}

func TestMoveSubtask_AppendsAndInheritsProject(t *testing.T) {
	store := &memStore{}
	e := New(store, []model.Task{
		task("dst", withProject("work")),
		task("kid1", withParent("dst"), withPosition(0)),
		task("kid2", withParent("dst"), withPosition(5)),
		task("src", withProject("home")),
		task("moved", withParent("src"), withProject("home")),
	}, nil)

	if err := e.MoveSubtask("moved", "dst"); err != nil {
		t.Fatalf("move: %v", err)
	}

	moved, _ := e.Task("moved")
	if moved.ParentID == nil || *moved.ParentID != "dst" {
		t.Fatalf("expected parent dst, got %v", moved.ParentID)
	}
	if moved.Position != 6 {
		t.Errorf("expected position 6 (max+1), got %d", moved.Position)
	}
	if moved.ProjectID == nil || *moved.ProjectID != "work" {
		t.Errorf("expected inherited project work, got %v", moved.ProjectID)
	}

	// Both sides of the tree updated together.
	if kids := ids(e.Children("src")); len(kids) != 0 {
		t.Errorf("expected src to have no children, got %v", kids)
	}
	kids := ids(e.Children("dst"))
	if len(kids) != 3 || kids[2] != "moved" {
		t.Errorf("expected moved appended to dst children, got %v", kids)
	}
}

func TestPromoteSubtask(t *testing.T) {
	store := &memStore{}
	e := New(store, []model.Task{
		task("top", withPosition(3)),
		task("parent"),
		task("sub", withParent("parent")),
	}, nil)

	if err := e.PromoteSubtask("sub"); err != nil {
		t.Fatalf("promote: %v", err)
	}

	sub, _ := e.Task("sub")
	if sub.ParentID != nil {
		t.Fatalf("expected nil parent after promote, got %v", *sub.ParentID)
	}
	if sub.Position != 4 {
		t.Errorf("expected position 4 after existing top-level tasks, got %d", sub.Position)
	}
	if kids := e.Children("parent"); len(kids) != 0 {
		t.Errorf("expected parent to have no children, got %v", ids(kids))
	}

	// Promoting a top-level task is a no-op.
	calls := len(store.calls)
	if err := e.PromoteSubtask("top"); err != nil {
		t.Fatalf("promote top-level: %v", err)
	}
	if len(store.calls) != calls {
		t.Errorf("no-op promote must not write, got %v", store.calls[calls:])
	}
}

func TestComplete_ReturnsNewlyUnblocked(t *testing.T) {
	// b -> a          b unblocks when a completes
	// c -> a, c -> d  c stays blocked on d
	store := &memStore{}
	e := New(store, []model.Task{task("a"), task("b"), task("c"), task("d")},
		[]model.Dependency{edge("b", "a"), edge("c", "a"), edge("c", "d")})

	unblocked, err := e.Complete("a")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if len(unblocked) != 1 || unblocked[0].ID != "b" {
		t.Fatalf("expected [b] unblocked, got %v", ids(unblocked))
	}
	if got := e.Status("c"); got != model.StatusBlocked {
		t.Errorf("expected c still blocked on d, got %q", got)
	}

	// Completing a done task is a no-op.
	unblocked, err = e.Complete("a")
	if err != nil || unblocked != nil {
		t.Errorf("expected no-op, got %v, %v", ids(unblocked), err)
	}
}

func TestComplete_ClearsRunningTimer(t *testing.T) {
	store := &memStore{}
	e := New(store, []model.Task{task("a")}, nil)
	e.SetRunning("a", true)

	if _, err := e.Complete("a"); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := e.Reopen("a"); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got := e.Status("a"); got != model.StatusReady {
		t.Errorf("expected ready after reopen (timer cleared), got %q", got)
	}
}

func TestPersistenceFailure_KeepsMutation(t *testing.T) {
	store := &memStore{failErr: errors.New("disk full")}
	e := New(store, []model.Task{task("a"), task("b")}, nil)

	err := e.AddDependency("a", "b")

	var perr *PersistenceError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *PersistenceError, got %v", err)
	}
	if !errors.Is(err, store.failErr) {
		t.Errorf("expected wrapped store error, got %v", perr.Err)
	}

	// The in-memory edge survives the failed commit.
	if got := ids(e.Dependencies("a")); len(got) != 1 || got[0] != "b" {
		t.Errorf("expected edge kept in memory, got %v", got)
	}
	if got := e.Status("a"); got != model.StatusBlocked {
		t.Errorf("expected derived state to see the kept edge, got %q", got)
	}
}

func TestPersistenceFailure_DistinctFromValidation(t *testing.T) {
	store := &memStore{failErr: errors.New("disk full")}
	e := New(store, []model.Task{task("a")}, nil)

	// A validation failure must not be a PersistenceError even when
	// the store is broken.
	err := e.AddDependency("a", "a")
	var perr *PersistenceError
	if errors.As(err, &perr) {
		t.Fatalf("validation error reported as persistence error: %v", err)
	}
	if !errors.Is(err, ErrCycle) {
		t.Errorf("expected ErrCycle, got %v", err)
	}
}

func TestDeleteTask_CascadesSubtreeAndEdges(t *testing.T) {
	// doomed
	//  └─ sub
	// outside -> sub     (edge into the subtree)
	// doomed -> other    (edge out of the subtree)
	store := &memStore{}
	e := New(store, []model.Task{
		task("doomed"),
		task("sub", withParent("doomed")),
		task("outside"),
		task("other"),
	}, []model.Dependency{edge("outside", "sub"), edge("doomed", "other")})

	removed, err := e.DeleteTask("doomed")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(removed) != 2 {
		t.Fatalf("expected 2 removed tasks, got %v", removed)
	}

	if _, ok := e.Task("doomed"); ok {
		t.Error("doomed still present")
	}
	if _, ok := e.Task("sub"); ok {
		t.Error("subtree not removed")
	}

	// No dangling edges in either direction.
	if got := ids(e.Dependencies("outside")); len(got) != 0 {
		t.Errorf("expected outside's edge into subtree gone, got %v", got)
	}
	if got := e.Status("outside"); got != model.StatusReady {
		t.Errorf("expected outside unblocked after cascade, got %q", got)
	}
	if got := ids(e.Dependents("other")); len(got) != 0 {
		t.Errorf("expected other to have no dependents, got %v", got)
	}

	if e.Len() != 2 {
		t.Errorf("expected 2 tasks left, got %d", e.Len())
	}
}

func TestRemoveDependency_AbsentIsNoop(t *testing.T) {
	store := &memStore{}
	e := New(store, []model.Task{task("a"), task("b")}, nil)

	if err := e.RemoveDependency("a", "b"); err != nil {
		t.Errorf("absent edge: expected nil, got %v", err)
	}
	if err := e.RemoveDependency("ghost", "b"); err != nil {
		t.Errorf("unknown task: expected nil, got %v", err)
	}
	if len(store.calls) != 0 {
		t.Errorf("no-op removal must not write, got %v", store.calls)
	}
}

func TestNew_FiltersBadEdges(t *testing.T) {
	// Self-edges, duplicates, and edges with missing endpoints can all
	// appear in a database edited outside the app.
	store := &memStore{}
	e := New(store, []model.Task{task("a"), task("b")}, []model.Dependency{
		edge("a", "b"),
		edge("a", "b"), // duplicate
		edge("a", "a"), // self
		edge("a", "z"), // missing endpoint
		edge("z", "b"), // missing endpoint
	})

	if got := ids(e.Dependencies("a")); len(got) != 1 || got[0] != "b" {
		t.Errorf("expected deps [b], got %v", got)
	}
	if got := ids(e.Dependents("b")); len(got) != 1 || got[0] != "a" {
		t.Errorf("expected dependents [a], got %v", got)
	}
}

func TestAcyclicity_UnderMutationSequence(t *testing.T) {
	// Grow a diamond, then try every edge that would close a loop.
	//   a -> b -> d
	//   a -> c -> d
	store := &memStore{}
	e := New(store, []model.Task{task("a"), task("b"), task("c"), task("d")}, nil)

	valid := [][2]string{{"a", "b"}, {"a", "c"}, {"b", "d"}, {"c", "d"}}
	for _, ed := range valid {
		if err := e.AddDependency(ed[0], ed[1]); err != nil {
			t.Fatalf("add %s->%s: %v", ed[0], ed[1], err)
		}
	}

	closing := [][2]string{{"d", "a"}, {"d", "b"}, {"d", "c"}, {"b", "a"}, {"c", "a"}}
	for _, ed := range closing {
		if err := e.AddDependency(ed[0], ed[1]); !errors.Is(err, ErrCycle) {
			t.Errorf("add %s->%s: expected ErrCycle, got %v", ed[0], ed[1], err)
		}
	}

	if cycle := e.DetectCycle(); cycle != nil {
		t.Fatalf("graph holds a cycle after rejections: %v", cycle)
	}

	// Removing an edge reopens the path it was guarding.
	if err := e.RemoveDependency("a", "b"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := e.AddDependency("b", "a"); err != nil {
		t.Fatalf("edge legal after removal: %v", err)
	}
	if cycle := e.DetectCycle(); cycle != nil {
		t.Fatalf("unexpected cycle: %v", cycle)
	}
}
