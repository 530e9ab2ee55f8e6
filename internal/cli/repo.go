package cli

import (
	"context"
	"errors"
	"os"

	"github.com/shinji-kodama/envvibe/internal/model"
	"github.com/shinji-kodama/envvibe/internal/registry"
	"github.com/shinji-kodama/envvibe/internal/worktree"
)

// repoContext locates the worktree a command runs in and the registry
// shared with its sibling worktrees.
type repoContext struct {
	git *worktree.Manager

	// root is the absolute path of the current worktree. It is also the
	// worktree's key in the registry.
	root string

	registry *registry.Registry
}

// openRepo resolves the repository containing the working directory.
func openRepo(ctx context.Context) (*repoContext, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, model.WrapCLIError(model.ExitGeneralError, "failed to get current directory", err)
	}

	git := worktree.NewManager()
	root, err := git.GetRepoRoot(ctx, cwd)
	if err != nil {
		return nil, err
	}
	commonDir, err := git.GetCommonDir(ctx, root)
	if err != nil {
		return nil, err
	}

	reg := registry.ForCommonDir(commonDir)
	VerboseLog("Worktree root: %s", root)
	VerboseLog("Port registry: %s", reg.Path())

	return &repoContext{git: git, root: root, registry: reg}, nil
}

// registryError wraps a registry failure with ExitRegistryError unless it
// already carries an exit code.
func registryError(err error) error {
	var cliErr *model.CLIError
	if errors.As(err, &cliErr) {
		return err
	}
	return model.WrapCLIError(model.ExitRegistryError, "port registry error", err)
}
