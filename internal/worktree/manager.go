package worktree

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/shinji-kodama/envvibe/internal/model"
)

// detachedHead is what `git rev-parse --abbrev-ref HEAD` prints when no
// branch is checked out.
const detachedHead = "HEAD"

// WorktreeInfo holds one entry of `git worktree list --porcelain`:
//
//	worktree /path/to/feature-branch
//	HEAD abc123def456
//	branch refs/heads/feature-branch
type WorktreeInfo struct {
	// Path is the absolute filesystem path to the worktree directory.
	Path string

	// Branch is the full branch reference (e.g., "refs/heads/main").
	// Empty if the worktree is in a detached HEAD state.
	Branch string

	// HEAD is the commit SHA that the worktree currently points to.
	HEAD string

	// IsBare marks the bare repository entry.
	IsBare bool
}

// ShortBranch returns Branch without the refs/heads/ prefix.
func (w WorktreeInfo) ShortBranch() string {
	return strings.TrimPrefix(w.Branch, "refs/heads/")
}

// Manager answers the repository questions envvibe needs by invoking the
// git CLI. It is stateless; every method takes the path to operate on.
type Manager struct{}

// NewManager creates a new worktree Manager.
func NewManager() *Manager {
	return &Manager{}
}

// GetRepoRoot returns the top-level directory of the working tree that
// contains path. Inside a linked worktree this is the worktree root, not
// the main checkout.
func (m *Manager) GetRepoRoot(ctx context.Context, path string) (string, error) {
	out, err := runGit(ctx, path, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// GetCommonDir returns the absolute path of the git directory shared by the
// main checkout and all of its linked worktrees.
func (m *Manager) GetCommonDir(ctx context.Context, path string) (string, error) {
	out, err := runGit(ctx, path, "rev-parse", "--git-common-dir")
	if err != nil {
		return "", err
	}

	dir := strings.TrimSpace(out)
	if !filepath.IsAbs(dir) {
		// Older git versions print the path relative to the -C directory.
		dir = filepath.Join(path, dir)
	}
	return filepath.Clean(dir), nil
}

// GetCurrentBranch returns the short name of the branch checked out at
// path, or "" when HEAD is detached.
func (m *Manager) GetCurrentBranch(ctx context.Context, path string) (string, error) {
	out, err := runGit(ctx, path, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}

	branch := strings.TrimSpace(out)
	if branch == detachedHead {
		return "", nil
	}
	return branch, nil
}

// List returns all worktrees of the repository containing repoPath,
// the main checkout included.
func (m *Manager) List(ctx context.Context, repoPath string) ([]WorktreeInfo, error) {
	out, err := runGit(ctx, repoPath, "worktree", "list", "--porcelain")
	if err != nil {
		return nil, err
	}
	return parsePorcelainOutput(out), nil
}

// runGit runs `git -C repoPath args...` and returns stdout. Failures are
// wrapped in a model.CLIError with ExitGitError that includes git's stderr.
func runGit(ctx context.Context, repoPath string, args ...string) (string, error) {
	fullArgs := append([]string{"-C", repoPath}, args...)

	// #nosec G204 -- args are constructed internally
	cmd := exec.CommandContext(ctx, "git", fullArgs...)

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		message := fmt.Sprintf("git %s failed", strings.Join(args, " "))
		if s := strings.TrimSpace(stderr.String()); s != "" {
			message = fmt.Sprintf("%s: %s", message, s)
		}
		return "", model.WrapCLIError(model.ExitGitError, message, err)
	}
	return stdout.String(), nil
}

// parsePorcelainOutput parses `git worktree list --porcelain`. Blocks are
// separated by blank lines; each line is "key value" or a bare keyword such
// as "bare" or "detached".
func parsePorcelainOutput(output string) []WorktreeInfo {
	var worktrees []WorktreeInfo
	var current *WorktreeInfo

	flush := func() {
		if current != nil {
			worktrees = append(worktrees, *current)
			current = nil
		}
	}

	for _, line := range strings.Split(strings.TrimRight(output, "\n"), "\n") {
		if line == "" {
			flush()
			continue
		}

		key, value, _ := strings.Cut(line, " ")
		if key == "worktree" {
			flush()
			current = &WorktreeInfo{Path: value}
			continue
		}
		if current == nil {
			continue
		}

		switch key {
		case "HEAD":
			current.HEAD = value
		case "branch":
			current.Branch = value
		case "bare":
			current.IsBare = true
		}
	}
	flush()

	return worktrees
}
