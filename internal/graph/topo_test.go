package graph

import (
	"testing"

	"github.com/okvist/skein/internal/model"
)

func TestTopoOrder_DependenciesFirst(t *testing.T) {
	// d -> b -> a
	// d -> c -> a
	store := &memStore{}
	e := New(store, []model.Task{task("a"), task("b"), task("c"), task("d")},
		[]model.Dependency{edge("d", "b"), edge("d", "c"), edge("b", "a"), edge("c", "a")})

	order, err := e.TopoOrder()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(order) != 4 {
		t.Fatalf("expected 4 tasks in order, got %v", order)
	}

	pos := make(map[string]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	for _, ed := range [][2]string{{"d", "b"}, {"d", "c"}, {"b", "a"}, {"c", "a"}} {
		if pos[ed[0]] < pos[ed[1]] {
			t.Errorf("%s depends on %s but sorts before it: %v", ed[0], ed[1], order)
		}
	}
}

func TestTopoOrder_FailsOnCycle(t *testing.T) {
	// New keeps what the store hands it; a cycle written by another
	// tool shows up here and in DetectCycle.
	store := &memStore{}
	e := New(store, []model.Task{task("a"), task("b")},
		[]model.Dependency{edge("a", "b"), edge("b", "a")})

	if _, err := e.TopoOrder(); err == nil {
		t.Fatal("expected error for cyclic graph, got nil")
	}
}

func TestDetectCycle(t *testing.T) {
	store := &memStore{}
	e := New(store, []model.Task{task("a"), task("b"), task("c")},
		[]model.Dependency{edge("a", "b"), edge("b", "c")})

	if cycle := e.DetectCycle(); cycle != nil {
		t.Fatalf("expected no cycle, got %v", cycle)
	}

	// a -> b -> c -> a, as written by a foreign tool.
	e2 := New(store, []model.Task{task("a"), task("b"), task("c")},
		[]model.Dependency{edge("a", "b"), edge("b", "c"), edge("c", "a")})

	cycle := e2.DetectCycle()
	if cycle == nil {
		t.Fatal("expected cycle, got nil")
	}
	if len(cycle) < 3 {
		t.Errorf("expected full cycle path, got %v", cycle)
	}
	t.Logf("cycle path: %v", cycle)
}
