// Package git reads source-control metadata for directories being archived.
//
// A project ingested from a Git working tree records the branch and commit it
// was taken from. Directories outside a repository simply carry no metadata.
package git

import (
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// ErrNotGitRepo indicates the directory is not inside a Git repository.
var ErrNotGitRepo = errors.New("not a git repository")

// Detached is reported as the branch when HEAD does not point at a branch.
const Detached = "detached"

// Info describes the HEAD of the repository containing a directory.
type Info struct {
	Branch string
	Commit string
}

// Describe opens the repository containing dir and reports its HEAD.
//
// Parent directories are searched for .git, so a project nested inside a
// larger checkout is described by that checkout. A freshly initialised
// repository with no commits yields the configured branch and an empty commit.
func Describe(dir string) (Info, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return Info{}, fmt.Errorf("%w: %s", ErrNotGitRepo, dir)
		}
		return Info{}, fmt.Errorf("opening repository: %w", err)
	}

	head, err := repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			// Unborn branch: HEAD is symbolic but has no target yet.
			ref, rerr := repo.Storer.Reference(plumbing.HEAD)
			if rerr == nil && ref.Type() == plumbing.SymbolicReference {
				return Info{Branch: ref.Target().Short()}, nil
			}
			return Info{}, nil
		}
		return Info{}, fmt.Errorf("reading HEAD: %w", err)
	}

	info := Info{Commit: head.Hash().String(), Branch: Detached}
	if head.Name().IsBranch() {
		info.Branch = head.Name().Short()
	}
	return info, nil
}

// IsMainBranch reports whether branch is "main" or "master".
func IsMainBranch(branch string) bool {
	return branch == "main" || branch == "master"
}
