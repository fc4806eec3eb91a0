// Package errors provides sentinel errors and custom error types for stackgraph.
// Use errors.Is() and errors.As() to check for specific error types.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions
var (
	// ErrObjectNotFound indicates that an object is missing from the object store
	ErrObjectNotFound = errors.New("object not found")

	// ErrCycle indicates that a parent chain loops back on itself
	ErrCycle = errors.New("cyclic parent chain")

	// ErrLimitExceeded indicates that a traversal hit its hard limit without a boundary
	ErrLimitExceeded = errors.New("traversal limit exceeded")

	// ErrStaleRef indicates that a reference changed between read and update
	ErrStaleRef = errors.New("stale reference")

	// ErrStaleSelector indicates that a selector refers to a removed editor node
	ErrStaleSelector = errors.New("stale selector")

	// ErrEditorConsumed indicates that an editor was used after it was rebased
	ErrEditorConsumed = errors.New("editor already consumed by rebase")

	// ErrNotFound indicates that a lookup found nothing
	ErrNotFound = errors.New("not found")
)

// TraversalKind classifies a graph traversal failure
type TraversalKind int

const (
	// TraversalMissingObject means a commit reachable from a tip could not be read
	TraversalMissingObject TraversalKind = iota
	// TraversalCycle means a parent chain is cyclic
	TraversalCycle
	// TraversalLimitExceeded means the hard limit was hit before a boundary was found
	TraversalLimitExceeded
)

func (k TraversalKind) String() string {
	switch k {
	case TraversalMissingObject:
		return "missing object"
	case TraversalCycle:
		return "cycle detected"
	case TraversalLimitExceeded:
		return "limit exceeded"
	default:
		return "unknown"
	}
}

// TraversalError is returned by the graph builder
type TraversalError struct {
	Kind   TraversalKind
	Commit string
	Err    error
}

func (e *TraversalError) Error() string {
	msg := fmt.Sprintf("graph traversal failed: %s", e.Kind)
	if e.Commit != "" {
		msg += fmt.Sprintf(" at %s", e.Commit)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *TraversalError) Unwrap() error {
	return e.Err
}

// Is maps the traversal kind onto the matching sentinel
func (e *TraversalError) Is(target error) bool {
	switch e.Kind {
	case TraversalMissingObject:
		return target == ErrObjectNotFound
	case TraversalCycle:
		return target == ErrCycle
	case TraversalLimitExceeded:
		return target == ErrLimitExceeded
	}
	return false
}

// NewTraversalError creates a new TraversalError
func NewTraversalError(kind TraversalKind, commit string, err error) *TraversalError {
	return &TraversalError{Kind: kind, Commit: commit, Err: err}
}

// ObjectNotFoundError represents a missing object in the store
type ObjectNotFoundError struct {
	ID   string
	Type string
}

func (e *ObjectNotFoundError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("%s %s not found", e.Type, e.ID)
	}
	return fmt.Sprintf("object %s not found", e.ID)
}

// Is returns true if the target error is ErrObjectNotFound
func (e *ObjectNotFoundError) Is(target error) bool {
	return target == ErrObjectNotFound
}

// NewObjectNotFoundError creates a new ObjectNotFoundError
func NewObjectNotFoundError(id, typ string) *ObjectNotFoundError {
	return &ObjectNotFoundError{ID: id, Type: typ}
}

// StaleRefError represents a compare-and-swap failure on a reference
type StaleRefError struct {
	RefName  string
	Expected string
	Actual   string
}

func (e *StaleRefError) Error() string {
	return fmt.Sprintf("reference %s changed: expected %s, found %s", e.RefName, e.Expected, e.Actual)
}

// Is returns true if the target error is ErrStaleRef
func (e *StaleRefError) Is(target error) bool {
	return target == ErrStaleRef
}

// NewStaleRefError creates a new StaleRefError
func NewStaleRefError(refName, expected, actual string) *StaleRefError {
	return &StaleRefError{RefName: refName, Expected: expected, Actual: actual}
}
