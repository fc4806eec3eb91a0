package git

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/filemode"
)

// ErrNoWorktree is returned for bare and in-memory repositories
var ErrNoWorktree = errors.New("repository has no worktree")

// WorktreeFile is a path whose worktree or index state differs from HEAD.
type WorktreeFile struct {
	Path string
	// Exists is false when the path was deleted from the worktree.
	Exists bool
	// Tracked is false for untracked paths.
	Tracked bool
	Mode    filemode.FileMode
}

func (r *Repository) worktreeFS() (*git.Worktree, billy.Filesystem, error) {
	wt, err := r.repo.Worktree()
	if errors.Is(err, git.ErrIsBareRepository) {
		return nil, nil, ErrNoWorktree
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open worktree: %w", err)
	}
	return wt, wt.Filesystem, nil
}

// ChangedFiles lists paths that differ between HEAD and the worktree, sorted.
// Untracked paths are included only when untracked is set.
func (r *Repository) ChangedFiles(untracked bool) ([]WorktreeFile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	wt, fs, err := r.worktreeFS()
	if err != nil {
		return nil, err
	}
	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("failed to read worktree status: %w", err)
	}

	var files []WorktreeFile
	for path, s := range status {
		isUntracked := s.Worktree == git.Untracked
		if isUntracked && !untracked {
			continue
		}
		if !isUntracked && s.Worktree == git.Unmodified && s.Staging == git.Unmodified {
			continue
		}
		f := WorktreeFile{Path: path, Tracked: !isUntracked}
		info, err := fs.Lstat(path)
		switch {
		case err == nil:
			f.Exists = true
			if f.Mode, err = filemode.NewFromOSFileMode(info.Mode()); err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("failed to stat %s: %w", path, err)
		}
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// ReadWorktreeFile reads a path from the worktree; symlinks yield their
// target.
func (r *Repository) ReadWorktreeFile(path string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, fs, err := r.worktreeFS()
	if err != nil {
		return nil, err
	}
	info, err := fs.Lstat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		target, err := fs.Readlink(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read link %s: %w", path, err)
		}
		return []byte(target), nil
	}
	data, err := util.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}
