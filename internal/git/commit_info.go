package git

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-git/go-git/v5/plumbing"

	stackerrors "stackit.dev/stackgraph/internal/errors"
)

// CommitNode is the reduced view of a commit used for graph traversal.
type CommitNode struct {
	ID      plumbing.Hash
	Parents []plumbing.Hash
	// Generation is only meaningful when HasGeneration is set; it comes from
	// the commit-graph file.
	Generation    uint64
	HasGeneration bool
	CommitTime    time.Time
}

const infiniteGeneration = ^uint64(0)

// FindCommitNode reads the traversal view of a commit, preferring the
// commit-graph file when one is loaded.
func (r *Repository) FindCommitNode(id plumbing.Hash) (CommitNode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	node, err := r.nodes.Get(id)
	if err != nil {
		if errors.Is(err, plumbing.ErrObjectNotFound) {
			return CommitNode{}, stackerrors.NewObjectNotFoundError(id.String(), "commit")
		}
		return CommitNode{}, fmt.Errorf("failed to read commit %s: %w", id, err)
	}

	gen := node.Generation()
	parents := append([]plumbing.Hash(nil), node.ParentHashes()...)
	return CommitNode{
		ID:      id,
		Parents: parents,
		// Old commit-graph files write zero for every commit; objects outside
		// the file report the maximum value. Neither is a usable generation.
		Generation:    gen,
		HasGeneration: gen != 0 && gen != infiniteGeneration,
		CommitTime:    node.CommitTime(),
	}, nil
}

// CommitKey returns the ordering pair of a commit: its generation number, if
// the commit-graph file knows it, and its committer time.
func (r *Repository) CommitKey(id plumbing.Hash) (generation uint64, hasGeneration bool, when time.Time, err error) {
	node, err := r.FindCommitNode(id)
	if err != nil {
		return 0, false, time.Time{}, err
	}
	return node.Generation, node.HasGeneration, node.CommitTime, nil
}

// CommitSubject returns the first line of a commit message
func CommitSubject(message string) string {
	subject, _, _ := strings.Cut(strings.TrimSpace(message), "\n")
	return strings.TrimSpace(subject)
}

// ShortHash returns the abbreviated form of a commit id
func ShortHash(id plumbing.Hash) string {
	return id.String()[:7]
}
