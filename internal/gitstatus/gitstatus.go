// internal/gitstatus/gitstatus.go
package gitstatus

import (
	"fmt"

	"github.com/go-git/go-git/v5"
)

// Repo reads branch and per-file worktree status for tree adornment
type Repo struct {
	path string
	repo *git.Repository
}

// Open opens the git repository at path. A workspace without one returns
// an error and the tree simply renders unadorned.
func Open(path string) (*Repo, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("open git repository: %w", err)
	}
	return &Repo{path: path, repo: repo}, nil
}

// Branch returns the current branch name, or "" when HEAD is unborn or
// detached
func (r *Repo) Branch() string {
	head, err := r.repo.Head()
	if err != nil {
		return ""
	}
	if !head.Name().IsBranch() {
		return ""
	}
	return head.Name().Short()
}

// StatusByPath returns a map of repo-relative path to a short status tag
// ("modified", "added", "deleted", "untracked", ...). Clean files are
// absent from the map.
func (r *Repo) StatusByPath() (map[string]string, error) {
	worktree, err := r.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("get worktree: %w", err)
	}

	status, err := worktree.Status()
	if err != nil {
		return nil, fmt.Errorf("get status: %w", err)
	}

	result := make(map[string]string)
	for path, fileStatus := range status {
		switch {
		case fileStatus.Worktree == git.Untracked:
			result[path] = "untracked"
		case fileStatus.Worktree != git.Unmodified:
			result[path] = mapStatusCode(fileStatus.Worktree)
		case fileStatus.Staging != git.Unmodified:
			result[path] = mapStatusCode(fileStatus.Staging)
		}
	}
	return result, nil
}

// mapStatusCode converts go-git status codes to short tags
func mapStatusCode(code git.StatusCode) string {
	switch code {
	case git.Modified:
		return "modified"
	case git.Added:
		return "added"
	case git.Deleted:
		return "deleted"
	case git.Renamed:
		return "renamed"
	case git.Copied:
		return "copied"
	case git.UpdatedButUnmerged:
		return "conflict"
	default:
		return "unknown"
	}
}
