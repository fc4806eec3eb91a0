package rebase

import (
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"

	"stackit.dev/stackgraph/internal/git"
)

// StepKind tags a Step.
type StepKind int

const (
	// KindNone is a placeholder that passes its parents through
	KindNone StepKind = iota
	// KindPick re-applies a commit onto its new parents
	KindPick
	// KindReference anchors a reference; it resolves to its parent's output
	KindReference
)

func (k StepKind) String() string {
	switch k {
	case KindPick:
		return "pick"
	case KindReference:
		return "reference"
	default:
		return "none"
	}
}

// Step is one node of the rebase graph.
type Step struct {
	Kind StepKind
	// Commit is the commit to pick.
	Commit plumbing.Hash
	// NewMessage replaces the picked commit's message when set.
	NewMessage *string
	// Ref is the reference a Reference step anchors.
	Ref plumbing.ReferenceName
}

// Pick returns a step picking id unchanged
func Pick(id plumbing.Hash) Step {
	return Step{Kind: KindPick, Commit: id}
}

// Reword returns a step picking id with a new message
func Reword(id plumbing.Hash, message string) Step {
	return Step{Kind: KindPick, Commit: id, NewMessage: &message}
}

// Reference returns a step anchoring name
func Reference(name plumbing.ReferenceName) Step {
	return Step{Kind: KindReference, Ref: name}
}

// None returns a placeholder step
func None() Step {
	return Step{Kind: KindNone}
}

func (s Step) String() string {
	switch s.Kind {
	case KindPick:
		if s.NewMessage != nil {
			return fmt.Sprintf("pick %s (reworded)", git.ShortHash(s.Commit))
		}
		return "pick " + git.ShortHash(s.Commit)
	case KindReference:
		return "reference " + s.Ref.Short()
	default:
		return "none"
	}
}

// Predicate matches steps for Editor.Select.
type Predicate func(Step) bool

// ByCommit matches the Pick step of id
func ByCommit(id plumbing.Hash) Predicate {
	return func(s Step) bool {
		return s.Kind == KindPick && s.Commit == id
	}
}

// ByReference matches the Reference step of name
func ByReference(name plumbing.ReferenceName) Predicate {
	return func(s Step) bool {
		return s.Kind == KindReference && s.Ref == name
	}
}
