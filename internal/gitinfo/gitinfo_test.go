package gitinfo

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
)

func TestResolver_LastModified(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	path := filepath.Join(dir, "peps", "pep-0008.md")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("PEP: 8\n"), 0o644))

	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("peps/pep-0008.md")
	require.NoError(t, err)

	when := time.Date(2023, 5, 17, 10, 30, 0, 0, time.UTC)
	_, err = wt.Commit("add pep 8", &git.CommitOptions{
		Author: &object.Signature{Name: "Guido", Email: "guido@example.org", When: when},
	})
	require.NoError(t, err)

	r := NewResolver(filepath.Join(dir, "peps"))
	require.True(t, r.Available())

	got, err := r.LastModified(path)
	require.NoError(t, err)
	require.True(t, got.Equal(when), "got %s", got)

	untracked := filepath.Join(dir, "peps", "pep-0009.md")
	require.NoError(t, os.WriteFile(untracked, []byte("PEP: 9\n"), 0o644))
	_, err = r.LastModified(untracked)
	require.ErrorIs(t, err, ErrNotTracked)
}

func TestResolver_NotARepository(t *testing.T) {
	r := NewResolver(t.TempDir())
	require.False(t, r.Available())

	_, err := r.LastModified("x")
	require.Error(t, err)
}
