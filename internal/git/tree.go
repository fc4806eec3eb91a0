package git

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// EmptyTreeID is the id of the tree with no entries
var EmptyTreeID = plumbing.NewHash("4b825dc642cb6eb9a060e54bf8d69288fbee4904")

// Entry is a leaf of a flattened tree: a blob, symlink or submodule
type Entry struct {
	Mode filemode.FileMode
	Hash plumbing.Hash
}

// IsTreeEmpty reports whether id denotes the empty tree
func IsTreeEmpty(id plumbing.Hash) bool {
	return id.IsZero() || id == EmptyTreeID
}

// FlattenTree recursively flattens a tree into a map of full paths to entries.
func (r *Repository) FlattenTree(id plumbing.Hash) (map[string]Entry, error) {
	entries := make(map[string]Entry)
	if IsTreeEmpty(id) {
		return entries, nil
	}
	tree, err := r.FindTree(id)
	if err != nil {
		return nil, err
	}
	if err := r.flattenInto(tree, "", entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *Repository) flattenInto(tree *object.Tree, prefix string, entries map[string]Entry) error {
	for _, entry := range tree.Entries {
		fullPath := entry.Name
		if prefix != "" {
			fullPath = prefix + "/" + entry.Name
		}

		if entry.Mode == filemode.Dir {
			subtree, err := r.FindTree(entry.Hash)
			if err != nil {
				return fmt.Errorf("failed to get subtree %s: %w", fullPath, err)
			}
			if err := r.flattenInto(subtree, fullPath, entries); err != nil {
				return err
			}
			continue
		}
		entries[fullPath] = Entry{Mode: entry.Mode, Hash: entry.Hash}
	}
	return nil
}

// treeNode represents a directory while a tree is being assembled.
type treeNode struct {
	dirs  map[string]*treeNode
	files []object.TreeEntry
}

func newTreeNode() *treeNode {
	return &treeNode{dirs: make(map[string]*treeNode)}
}

// BuildTree writes nested tree objects for a flattened path map and returns
// the root tree id. An empty map produces the empty tree.
func (r *Repository) BuildTree(entries map[string]Entry) (plumbing.Hash, error) {
	root := newTreeNode()
	for fullPath, entry := range entries {
		parts := strings.Split(fullPath, "/")
		if err := insertIntoTree(root, parts, entry); err != nil {
			return plumbing.ZeroHash, fmt.Errorf("invalid path %q: %w", fullPath, err)
		}
	}
	return r.writeTreeNode(root)
}

func insertIntoTree(node *treeNode, parts []string, entry Entry) error {
	name := parts[0]
	if name == "" || name == "." || name == ".." {
		return fmt.Errorf("bad path component %q", name)
	}
	if len(parts) == 1 {
		node.files = append(node.files, object.TreeEntry{Name: name, Mode: entry.Mode, Hash: entry.Hash})
		return nil
	}
	sub := node.dirs[name]
	if sub == nil {
		sub = newTreeNode()
		node.dirs[name] = sub
	}
	return insertIntoTree(sub, parts[1:], entry)
}

func (r *Repository) writeTreeNode(node *treeNode) (plumbing.Hash, error) {
	treeEntries := append([]object.TreeEntry(nil), node.files...)
	for name, sub := range node.dirs {
		subHash, err := r.writeTreeNode(sub)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		treeEntries = append(treeEntries, object.TreeEntry{Name: name, Mode: filemode.Dir, Hash: subHash})
	}
	SortTreeEntries(treeEntries)
	return r.WriteTree(&object.Tree{Entries: treeEntries})
}

// SortTreeEntries sorts tree entries in git's required order.
// Git sorts tree entries by name, with directories having a trailing /
func SortTreeEntries(entries []object.TreeEntry) {
	sort.Slice(entries, func(i, j int) bool {
		nameI := entries[i].Name
		nameJ := entries[j].Name
		if entries[i].Mode == filemode.Dir {
			nameI += "/"
		}
		if entries[j].Mode == filemode.Dir {
			nameJ += "/"
		}
		return nameI < nameJ
	})
}

// CommitTree returns the root tree id of a commit
func (r *Repository) CommitTree(id plumbing.Hash) (plumbing.Hash, error) {
	commit, err := r.FindCommit(id)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	return commit.TreeHash, nil
}

// EnsureTree returns id, writing the empty tree object when id is zero or
// EmptyTreeID so it can be referenced from commits and other trees.
func (r *Repository) EnsureTree(id plumbing.Hash) (plumbing.Hash, error) {
	if !IsTreeEmpty(id) {
		return id, nil
	}
	return r.BuildTree(nil)
}
