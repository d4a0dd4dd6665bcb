package graph

import (
	"errors"
	"fmt"
)

// Validation errors. All of them are detected before any state changes,
// so a failed call leaves both the graph and the store untouched.
var (
	// ErrNotFound means a task ID is not in the graph.
	ErrNotFound = errors.New("task not found")

	// ErrCycle means the edge would make a task depend on itself,
	// directly or through other dependencies, or through its own
	// parent/subtask chain.
	ErrCycle = errors.New("dependency would create a cycle")

	// ErrDuplicateEdge means the dependency already exists.
	ErrDuplicateEdge = errors.New("dependency already exists")

	// ErrCircularMove means a task was asked to become a subtask of
	// itself or of one of its own descendants.
	ErrCircularMove = errors.New("cannot move a task under its own subtask")
)

// PersistenceError reports a store write that failed after a valid
// in-memory mutation. The graph keeps the mutation; the durable copy
// does not have it. Callers decide whether to retry the write or
// rebuild the graph from the store.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
