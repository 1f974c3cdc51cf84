// Package vcs inspects the git checkout an output directory belongs to.
package vcs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/harness/cpi-sync/util/common/errors"
	"github.com/harness/cpi-sync/util/common/fileutil"
)

// GitInfo describes the checkout enclosing a directory
type GitInfo struct {
	Root   string
	Branch string
	URL    string
}

// Discover walks up from dir to the closest git checkout. It returns
// ErrNotFound when dir is not inside one.
func Discover(dir string) (*GitInfo, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.NewFileError(dir, "abs", err)
	}

	for current := abs; ; {
		gitDir, err := resolveGitDir(current)
		if err != nil {
			return nil, err
		}
		if gitDir != "" {
			return readInfo(current, gitDir)
		}
		parent := filepath.Dir(current)
		if parent == current {
			return nil, fmt.Errorf("%s is not inside a git checkout: %w", abs, errors.ErrNotFound)
		}
		current = parent
	}
}

// resolveGitDir returns the git directory of a checkout rooted at root, or ""
// if root has no .git entry. Worktrees and submodules use a .git file
// pointing to the real directory.
func resolveGitDir(root string) (string, error) {
	dotGit := filepath.Join(root, ".git")
	info, err := os.Stat(dotGit)
	if err != nil {
		return "", nil
	}
	if info.IsDir() {
		return dotGit, nil
	}

	data, err := fileutil.ReadFile(dotGit)
	if err != nil {
		return "", err
	}
	line := strings.TrimSpace(string(data))
	if !strings.HasPrefix(line, "gitdir:") {
		return "", errors.NewValidationError(dotGit, "unexpected .git file content")
	}
	gitDir := strings.TrimSpace(strings.TrimPrefix(line, "gitdir:"))
	if !filepath.IsAbs(gitDir) {
		gitDir = filepath.Join(root, gitDir)
	}
	return gitDir, nil
}

func readInfo(root, gitDir string) (*GitInfo, error) {
	info := &GitInfo{Root: root}

	head, err := fileutil.ReadFile(filepath.Join(gitDir, "HEAD"))
	if err != nil {
		return nil, err
	}
	if ref := strings.TrimSpace(string(head)); strings.HasPrefix(ref, "ref: refs/heads/") {
		info.Branch = strings.TrimPrefix(ref, "ref: refs/heads/")
	}

	// worktrees keep the shared config in the common directory
	configDir := gitDir
	if common, err := fileutil.ReadFile(filepath.Join(gitDir, "commondir")); err == nil {
		configDir = filepath.Join(gitDir, strings.TrimSpace(string(common)))
	}
	configPath := filepath.Join(configDir, "config")
	if fileutil.Exists(configPath) {
		cfg, err := ini.Load(configPath)
		if err != nil {
			return nil, errors.NewFileError(configPath, "parse", err)
		}
		if cfg.HasSection(`remote "origin"`) {
			info.URL = cfg.Section(`remote "origin"`).Key("url").String()
		}
	}
	return info, nil
}
