package git

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// ErrNotRepository is returned when the path is not inside a git work tree.
var ErrNotRepository = errors.New("not a git repository")

// Revision identifies the checked-out sources.
type Revision struct {
	Hash   string
	Branch string
	Dirty  bool
}

// String renders the hash, suffixed with "-dirty" for uncommitted changes.
func (r Revision) String() string {
	if r.Hash == "" {
		return ""
	}
	if r.Dirty {
		return r.Hash + "-dirty"
	}
	return r.Hash
}

// ReadRevision resolves HEAD of the repository containing path. Parent
// directories are searched for .git. Changes under the ignore directories,
// relative to path, do not mark the revision dirty.
func ReadRevision(path string, ignore ...string) (Revision, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return Revision{}, ErrNotRepository
	}
	if err != nil {
		return Revision{}, fmt.Errorf("open repository: %w", err)
	}

	head, err := repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		// Fresh repository without commits.
		return Revision{}, nil
	}
	if err != nil {
		return Revision{}, fmt.Errorf("resolve HEAD: %w", err)
	}

	rev := Revision{Hash: head.Hash().String()}
	if head.Name().IsBranch() {
		rev.Branch = head.Name().Short()
	}

	wt, err := repo.Worktree()
	if err != nil {
		return rev, nil
	}
	status, err := wt.Status()
	if err != nil {
		return rev, fmt.Errorf("worktree status: %w", err)
	}
	rev.Dirty = dirtyOutside(status, ignoredPrefixes(wt.Filesystem.Root(), path, ignore))
	return rev, nil
}

// ignoredPrefixes converts ignore dirs under path into slash-separated
// worktree-relative prefixes, the form status keys use.
func ignoredPrefixes(worktreeRoot, path string, ignore []string) []string {
	if len(ignore) == 0 {
		return nil
	}
	rel, err := filepath.Rel(resolve(worktreeRoot), resolve(path))
	if err != nil {
		return nil
	}
	prefixes := make([]string, 0, len(ignore))
	for _, dir := range ignore {
		prefixes = append(prefixes, filepath.ToSlash(filepath.Join(rel, dir))+"/")
	}
	return prefixes
}

func resolve(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	if target, err := filepath.EvalSymlinks(path); err == nil {
		return target
	}
	return path
}

func dirtyOutside(status git.Status, ignored []string) bool {
	for file, fs := range status {
		if fs.Worktree == git.Unmodified && fs.Staging == git.Unmodified {
			continue
		}
		if hasAnyPrefix(file, ignored) {
			continue
		}
		return true
	}
	return false
}

func hasAnyPrefix(file string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(file, p) {
			return true
		}
	}
	return false
}
