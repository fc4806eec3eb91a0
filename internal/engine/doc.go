// Package engine turns path-scoped changes into commits.
//
// Changes are expressed against a base tree, usually the worktree's HEAD.
// CreateCommit applies them to that tree, then cherry-picks the result onto
// a destination: a new commit on some parent, or an existing commit that is
// amended in place. Changes that cannot be expressed are reported instead
// of failing the whole commit.
//
// Moving descendants onto an amended commit is left to the rebase package.
package engine
