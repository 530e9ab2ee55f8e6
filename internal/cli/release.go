// The release command removes worktree records from the port registry so
// their ports can be handed out again. Without arguments it releases the
// current worktree; --stale releases every record whose path Git no longer
// lists as a worktree (for example after `git worktree remove`).

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/envvibe/internal/model"
	"github.com/shinji-kodama/envvibe/internal/worktree"
)

// releaseFlags holds the flag values for the release command.
type releaseFlags struct {
	// stale releases every record whose worktree no longer exists.
	stale bool
}

// NewReleaseCommand creates the "release" cobra command.
func NewReleaseCommand() *cobra.Command {
	flags := &releaseFlags{}

	cmd := &cobra.Command{
		Use:   "release [path]",
		Short: "Release the ports recorded for a worktree",
		Long: `Remove a worktree's record from the port registry so its ports become
available to other worktrees. The rendered env file is left in place.

Examples:
  envvibe release
  envvibe release ../app-feature-auth
  envvibe release --stale`,

		Args: cobra.MaximumNArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.stale && len(args) > 0 {
				return model.NewCLIError(model.ExitGeneralError, "--stale cannot be combined with a path")
			}
			return runRelease(cmd.Context(), args, flags)
		},
	}

	cmd.Flags().BoolVar(&flags.stale, "stale", false, "Release every worktree Git no longer knows about")

	return cmd
}

// runRelease is the main logic function for the release command.
func runRelease(ctx context.Context, args []string, flags *releaseFlags) error {
	repo, err := openRepo(ctx)
	if err != nil {
		return err
	}

	var live map[string]bool
	target := repo.root
	if flags.stale {
		worktrees, err := repo.git.List(ctx, repo.root)
		if err != nil {
			return err
		}
		live = livePaths(worktrees)
	} else if len(args) == 1 {
		target = resolveReleaseTarget(ctx, repo.git, args[0])
	}

	var released []string
	err = repo.registry.Update(ctx, func(reg *model.PortRegistry) error {
		if flags.stale {
			released = releaseStale(reg, live)
			return nil
		}
		if reg.Remove(target) {
			released = []string{target}
		}
		return nil
	})
	if err != nil {
		return registryError(err)
	}

	if IsJSONOutput() {
		if released == nil {
			released = []string{}
		}
		data, _ := json.MarshalIndent(map[string]any{"released": released}, "", "  ")
		fmt.Println(string(data))
		return nil
	}

	if len(released) == 0 {
		if flags.stale {
			fmt.Println("No stale worktrees found.")
		} else {
			fmt.Printf("No ports recorded for %s.\n", target)
		}
		return nil
	}
	for _, path := range released {
		fmt.Printf("Released %s\n", path)
	}
	return nil
}

// resolveReleaseTarget maps a user-supplied path to its registry key. A
// path inside an existing worktree resolves to that worktree's root; a
// path that no longer exists is used as an absolute path.
func resolveReleaseTarget(ctx context.Context, git *worktree.Manager, arg string) string {
	if _, err := os.Stat(arg); err == nil {
		if root, err := git.GetRepoRoot(ctx, arg); err == nil {
			return root
		}
	}
	abs, err := filepath.Abs(arg)
	if err != nil {
		return filepath.Clean(arg)
	}
	VerboseLog("%s is not a worktree, releasing by path", abs)
	return abs
}

// livePaths returns the set of paths of the given worktrees.
func livePaths(worktrees []worktree.WorktreeInfo) map[string]bool {
	live := make(map[string]bool, len(worktrees))
	for _, w := range worktrees {
		live[filepath.Clean(w.Path)] = true
	}
	return live
}

// releaseStale removes every record whose path is not in live and returns
// the removed paths in sorted order.
func releaseStale(reg *model.PortRegistry, live map[string]bool) []string {
	var released []string
	for _, path := range reg.Paths() {
		if live[filepath.Clean(path)] {
			continue
		}
		reg.Remove(path)
		released = append(released, path)
	}
	return released
}
