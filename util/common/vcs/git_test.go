package vcs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harness/cpi-sync/util/common/errors"
)

const gitConfig = `[core]
	repositoryformatversion = 0
[remote "origin"]
	url = git@example.com:team/cpi-packages.git
	fetch = +refs/heads/*:refs/remotes/origin/*
`

func initRepo(t *testing.T, head string) string {
	t.Helper()
	root := t.TempDir()
	gitDir := filepath.Join(root, ".git")
	require.NoError(t, os.MkdirAll(gitDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(gitDir, "HEAD"), []byte(head), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(gitDir, "config"), []byte(gitConfig), 0644))
	return root
}

func TestDiscover(t *testing.T) {
	root := initRepo(t, "ref: refs/heads/main\n")
	nested := filepath.Join(root, "packages", "Acme")
	require.NoError(t, os.MkdirAll(nested, 0755))

	info, err := Discover(nested)
	require.NoError(t, err)
	assert.Equal(t, root, info.Root)
	assert.Equal(t, "main", info.Branch)
	assert.Equal(t, "git@example.com:team/cpi-packages.git", info.URL)
}

func TestDiscover_DetachedHead(t *testing.T) {
	root := initRepo(t, "0123456789abcdef0123456789abcdef01234567\n")
	info, err := Discover(root)
	require.NoError(t, err)
	assert.Empty(t, info.Branch)
}

func TestDiscover_Worktree(t *testing.T) {
	mainRepo := initRepo(t, "ref: refs/heads/main\n")
	wtGitDir := filepath.Join(mainRepo, ".git", "worktrees", "wt")
	require.NoError(t, os.MkdirAll(wtGitDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(wtGitDir, "HEAD"), []byte("ref: refs/heads/feature\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(wtGitDir, "commondir"), []byte("../..\n"), 0644))

	wt := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(wt, ".git"), []byte("gitdir: "+wtGitDir+"\n"), 0644))

	info, err := Discover(wt)
	require.NoError(t, err)
	assert.Equal(t, "feature", info.Branch)
	assert.Equal(t, "git@example.com:team/cpi-packages.git", info.URL)
}

func TestDiscover_NotARepository(t *testing.T) {
	_, err := Discover(t.TempDir())
	if err == nil {
		t.Skip("temp dir is inside a git checkout")
	}
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}
