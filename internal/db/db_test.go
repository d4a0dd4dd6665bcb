package db

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/okvist/skein/internal/model"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestInsertTask_Defaults(t *testing.T) {
	db := openTestDB(t)

	task, err := db.CreateTask("First", nil)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if task.ID == "" {
		t.Error("expected generated ID")
	}
	if task.Priority != model.PriorityMedium {
		t.Errorf("expected medium priority, got %s", task.Priority)
	}
	if task.ProjectID == nil || *task.ProjectID != "inbox" {
		t.Errorf("expected inbox project, got %v", task.ProjectID)
	}

	// Siblings land after each other.
	second, err := db.CreateTask("Second", nil)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if second.Position != task.Position+1 {
		t.Errorf("expected position %d, got %d", task.Position+1, second.Position)
	}
}

func TestCreateSubtask_InheritsProject(t *testing.T) {
	db := openTestDB(t)

	proj, err := db.CreateProject("Build", "#aadd88")
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	parent, err := db.CreateTask("Parent", &proj.ID)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	sub, err := db.CreateSubtask("Child", parent.ID)
	if err != nil {
		t.Fatalf("CreateSubtask: %v", err)
	}
	if sub.ProjectID == nil || *sub.ProjectID != proj.ID {
		t.Errorf("expected subtask in project %s, got %v", proj.ID, sub.ProjectID)
	}
	if sub.ParentID == nil || *sub.ParentID != parent.ID {
		t.Errorf("expected parent %s, got %v", parent.ID, sub.ParentID)
	}
}

func TestSetTaskDone_RoundTrip(t *testing.T) {
	// completed_at is stored as RFC3339 text; the readback must parse
	// it, not drop it.
	db := openTestDB(t)

	task, err := db.CreateTask("Finish me", nil)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	now := time.Now()
	if err := db.SetTaskDone(task.ID, true, &now); err != nil {
		t.Fatalf("SetTaskDone: %v", err)
	}

	got, err := db.GetTask(task.ID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if !got.Done {
		t.Error("expected done flag set")
	}
	if got.CompletedAt == nil {
		t.Fatal("expected completed_at to round-trip")
	}
	if got.CompletedAt.Unix() != now.Unix() {
		t.Errorf("expected completed_at %v, got %v", now, got.CompletedAt)
	}

	if err := db.SetTaskDone(task.ID, false, nil); err != nil {
		t.Fatalf("SetTaskDone reopen: %v", err)
	}
	got, _ = db.GetTask(task.ID)
	if got.Done || got.CompletedAt != nil {
		t.Error("expected reopen to clear flag and timestamp")
	}
}

func TestDependencies_InsertionOrderSurvivesReload(t *testing.T) {
	db := openTestDB(t)

	a, _ := db.CreateTask("a", nil)
	b, _ := db.CreateTask("b", nil)
	c, _ := db.CreateTask("c", nil)

	// a depends on c then b; the readback must keep that order.
	if err := db.InsertDependency(a.ID, c.ID, 0); err != nil {
		t.Fatalf("InsertDependency: %v", err)
	}
	if err := db.InsertDependency(a.ID, b.ID, 1); err != nil {
		t.Fatalf("InsertDependency: %v", err)
	}

	deps, err := db.GetTaskDependencies(a.ID)
	if err != nil {
		t.Fatalf("GetTaskDependencies: %v", err)
	}
	if len(deps) != 2 || deps[0].ID != c.ID || deps[1].ID != b.ID {
		t.Fatalf("expected [c b], got %d deps", len(deps))
	}

	edges, err := db.ListDependencies()
	if err != nil {
		t.Fatalf("ListDependencies: %v", err)
	}
	if len(edges) != 2 || edges[0].DependsOnID != c.ID {
		t.Errorf("expected edge order preserved, got %v", edges)
	}

	// Duplicate insert violates the primary key; the engine relies on
	// that to notice divergence.
	if err := db.InsertDependency(a.ID, c.ID, 2); err == nil {
		t.Error("expected primary-key violation for duplicate edge")
	}

	if err := db.DeleteDependency(a.ID, c.ID); err != nil {
		t.Fatalf("DeleteDependency: %v", err)
	}
	deps, _ = db.GetTaskDependencies(a.ID)
	if len(deps) != 1 || deps[0].ID != b.ID {
		t.Errorf("expected [b] after delete, got %d deps", len(deps))
	}
}

func TestDeleteTasks_CascadesEverywhere(t *testing.T) {
	// parent <- sub; outside -> sub; timer on sub.
	// Deleting parent+sub must leave no edge or entry behind.
	db := openTestDB(t)

	parent, _ := db.CreateTask("parent", nil)
	sub, _ := db.CreateSubtask("sub", parent.ID)
	outside, _ := db.CreateTask("outside", nil)

	if err := db.InsertDependency(outside.ID, sub.ID, 0); err != nil {
		t.Fatalf("InsertDependency: %v", err)
	}
	if _, err := db.StartTimeEntry(sub.ID, 1, ""); err != nil {
		t.Fatalf("StartTimeEntry: %v", err)
	}

	if err := db.DeleteTasks([]string{parent.ID, sub.ID}); err != nil {
		t.Fatalf("DeleteTasks: %v", err)
	}

	tasks, err := db.ListTasks()
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != outside.ID {
		t.Fatalf("expected only outside left, got %d tasks", len(tasks))
	}

	edges, _ := db.ListDependencies()
	if len(edges) != 0 {
		t.Errorf("expected dependency rows cascaded away, got %v", edges)
	}

	entries, _ := db.GetTaskTimeEntries(sub.ID)
	if len(entries) != 0 {
		t.Errorf("expected time entries cascaded away, got %d", len(entries))
	}
}

func TestTimeEntries_StartStop(t *testing.T) {
	db := openTestDB(t)

	task, _ := db.CreateTask("timed", nil)

	entry, err := db.StartTimeEntry(task.ID, 3, "first pass")
	if err != nil {
		t.Fatalf("StartTimeEntry: %v", err)
	}
	if entry.Personnel != 3 {
		t.Errorf("expected personnel 3, got %d", entry.Personnel)
	}

	active, err := db.ActiveTimeEntry()
	if err != nil {
		t.Fatalf("ActiveTimeEntry: %v", err)
	}
	if active == nil || active.ID != entry.ID {
		t.Fatal("expected the started entry to be active")
	}

	// Starting a second timer closes the first.
	other, _ := db.CreateTask("other", nil)
	if _, err := db.StartTimeEntry(other.ID, 1, ""); err != nil {
		t.Fatalf("second StartTimeEntry: %v", err)
	}
	entries, _ := db.GetTaskTimeEntries(task.ID)
	if len(entries) != 1 || entries[0].IsRunning() {
		t.Error("expected first entry closed when second started")
	}

	closed, err := db.StopRunningEntries()
	if err != nil {
		t.Fatalf("StopRunningEntries: %v", err)
	}
	if len(closed) != 1 || closed[0].TaskID != other.ID {
		t.Fatalf("expected to close other's entry, got %d", len(closed))
	}
	if closed[0].Duration == nil {
		t.Error("expected duration filled on close")
	}

	active, _ = db.ActiveTimeEntry()
	if active != nil {
		t.Errorf("expected no active entry, got %v", active.ID)
	}
}

func TestFindTask_PrefixAndAmbiguity(t *testing.T) {
	db := openTestDB(t)

	a, _ := db.CreateTask("Pour foundation", nil)
	db.CreateTask("Frame walls", nil)

	got, err := db.FindTask(a.ID[:8])
	if err != nil {
		t.Fatalf("FindTask by prefix: %v", err)
	}
	if got.ID != a.ID {
		t.Errorf("expected %s, got %s", a.ID, got.ID)
	}

	got, err = db.FindTask("Frame walls")
	if err != nil {
		t.Fatalf("FindTask by title: %v", err)
	}
	if got.Title != "Frame walls" {
		t.Errorf("expected title match, got %s", got.Title)
	}

	if _, err := db.FindTask("no such task"); err == nil {
		t.Error("expected error for unknown reference")
	}

	// Two tasks with the same title cannot be resolved by title.
	db.CreateTask("Pour foundation", nil)
	if _, err := db.FindTask("Pour foundation"); err == nil {
		t.Error("expected error for ambiguous reference")
	}
}

func TestProjects_CountsUseDoneFlag(t *testing.T) {
	db := openTestDB(t)

	proj, _ := db.CreateProject("Site", "#88aadd")
	t1, _ := db.CreateTask("one", &proj.ID)
	db.CreateTask("two", &proj.ID)

	now := time.Now()
	db.SetTaskDone(t1.ID, true, &now)

	projects, err := db.GetProjects()
	if err != nil {
		t.Fatalf("GetProjects: %v", err)
	}
	for _, p := range projects {
		if p.ID != proj.ID {
			continue
		}
		if p.TaskCount != 2 || p.CompletedCount != 1 {
			t.Errorf("expected 2 tasks / 1 done, got %d / %d", p.TaskCount, p.CompletedCount)
		}
		return
	}
	t.Fatal("project not listed")
}

// TestNestedQueriesNoDeadlock guards the SetMaxOpenConns(1) constraint:
// iterating rows while issuing nested queries deadlocks SQLite on a
// single connection. Loaders must drain and close the outer rows before
// fanning out, which is what ListTasks + per-task lookups do.
func TestNestedQueriesNoDeadlock(t *testing.T) {
	db := openTestDB(t)

	for _, title := range []string{"a", "b", "c", "d", "e"} {
		task, err := db.CreateTask(title, nil)
		if err != nil {
			t.Fatalf("CreateTask: %v", err)
		}
		tag, err := db.GetOrCreateTag("site-"+title, "")
		if err != nil {
			t.Fatalf("GetOrCreateTag: %v", err)
		}
		if err := db.AddTagToTask(task.ID, tag.ID); err != nil {
			t.Fatalf("AddTagToTask: %v", err)
		}
	}

	done := make(chan bool, 1)
	go func() {
		tasks, err := db.ListTasks()
		if err != nil {
			t.Errorf("ListTasks failed: %v", err)
			done <- false
			return
		}

		// Rows are fully drained by ListTasks; nested lookups are safe.
		for _, task := range tasks {
			if _, err := db.GetTaskTags(task.ID); err != nil {
				t.Errorf("GetTaskTags failed: %v", err)
				done <- false
				return
			}
			if _, err := db.GetTaskDependencies(task.ID); err != nil {
				t.Errorf("GetTaskDependencies failed: %v", err)
				done <- false
				return
			}
		}
		done <- true
	}()

	select {
	case success := <-done:
		if !success {
			t.Fatal("Test failed during execution")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Test timed out - possible deadlock detected")
	}
}
