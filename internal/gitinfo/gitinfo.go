// Package gitinfo looks up the last commit touching a file.
package gitinfo

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// ErrNotTracked reports that a path has no commit history.
var ErrNotTracked = errors.New("path has no commit history")

// Resolver answers last-modified queries for files inside one repository.
// It is safe for concurrent use.
type Resolver struct {
	mu   sync.Mutex
	repo *git.Repository
	root string
	err  error
	once sync.Once
	dir  string
}

// NewResolver returns a resolver for the repository containing dir.
// The repository is opened lazily on first use.
func NewResolver(dir string) *Resolver {
	return &Resolver{dir: dir}
}

func (r *Resolver) open() error {
	r.once.Do(func() {
		repo, err := git.PlainOpenWithOptions(r.dir, &git.PlainOpenOptions{DetectDotGit: true})
		if err != nil {
			r.err = fmt.Errorf("open repository: %w", err)
			return
		}
		wt, err := repo.Worktree()
		if err != nil {
			r.err = fmt.Errorf("open worktree: %w", err)
			return
		}
		r.repo = repo
		r.root = wt.Filesystem.Root()
	})
	return r.err
}

// Available reports whether dir is inside a git repository.
func (r *Resolver) Available() bool {
	return r.open() == nil
}

// LastModified returns the committer time of the most recent commit that
// touched path.
func (r *Resolver) LastModified(path string) (time.Time, error) {
	if err := r.open(); err != nil {
		return time.Time{}, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return time.Time{}, err
	}
	rel, err := filepath.Rel(r.root, abs)
	if err != nil {
		return time.Time{}, err
	}
	rel = filepath.ToSlash(rel)

	// go-git repositories are not documented as safe for concurrent log walks.
	r.mu.Lock()
	defer r.mu.Unlock()

	iter, err := r.repo.Log(&git.LogOptions{FileName: &rel})
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return time.Time{}, ErrNotTracked
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("git log %s: %w", rel, err)
	}
	defer iter.Close()

	c, err := iter.Next()
	if errors.Is(err, io.EOF) {
		return time.Time{}, ErrNotTracked
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("git log %s: %w", rel, err)
	}
	return c.Committer.When.UTC(), nil
}
