package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrInvalidShape indicates shape parameters no body can be built from.
	ErrInvalidShape = errors.New("dynamo: invalid shape parameters")

	// ErrInvalidSettings indicates body or character settings out of range.
	ErrInvalidSettings = errors.New("dynamo: invalid settings")

	// ErrBodyNotFound indicates a handle that does not name a live body.
	ErrBodyNotFound = errors.New("dynamo: body not found")

	// ErrBodyCapacity indicates the solver's maximum body count was reached.
	ErrBodyCapacity = errors.New("dynamo: maximum body count reached")

	// ErrNotInitialized indicates use of the simulation before Initialize.
	ErrNotInitialized = errors.New("dynamo: simulation not initialized")

	// ErrAlreadyRunning indicates StartSimulation on a running simulation.
	ErrAlreadyRunning = errors.New("dynamo: simulation already running")

	// ErrContextActive indicates a second simulation context in one process.
	ErrContextActive = errors.New("dynamo: another simulation context is active")

	// ErrSolverClosed indicates use of a solver after Close.
	ErrSolverClosed = errors.New("dynamo: solver closed")
)

// BodyError wraps an error with the body and operation it came from.
type BodyError struct {
	ID      BodyID
	Op      string
	Wrapped error
}

func (e *BodyError) Error() string {
	return fmt.Sprintf("%s body %d: %v", e.Op, e.ID, e.Wrapped)
}

func (e *BodyError) Unwrap() error {
	return e.Wrapped
}
