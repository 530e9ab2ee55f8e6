// Package worktree provides the Git queries used by envvibe: the worktree
// root, the git directory shared by all worktrees, the current branch and
// the list of worktrees.
//
// All Git operations are performed via os/exec calls to the git binary,
// rather than using a Git library like go-git. This approach:
//   - Avoids CGO dependencies (libgit2)
//   - Uses the exact same Git behavior the user sees in their terminal
//   - Requires Git >= 2.15 (when worktree support matured)
package worktree
