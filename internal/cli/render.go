// The render command turns the env template of the current worktree into a
// concrete env file:
//  1. Locate the worktree and load .envvibe.jsonc, then apply flag overrides
//  2. Detect the branch and the host ports published by Docker concurrently
//  3. Under the registry lock, render the template while avoiding every
//     port claimed by sibling worktrees, write the output file and record
//     the ports claimed by this worktree
//  4. Print the assigned ports
//
// With --dry-run the rendered content is printed instead of written and the
// registry is left untouched.

package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/shinji-kodama/envvibe/internal/config"
	"github.com/shinji-kodama/envvibe/internal/docker"
	"github.com/shinji-kodama/envvibe/internal/envfile"
	"github.com/shinji-kodama/envvibe/internal/envvibe"
	"github.com/shinji-kodama/envvibe/internal/model"
)

// renderFlags holds the flag values for the render command.
type renderFlags struct {
	template  string
	output    string
	branch    string
	portRange string
	noDocker  bool
	dryRun    bool
}

// NewRenderCommand creates the "render" cobra command.
func NewRenderCommand() *cobra.Command {
	flags := &renderFlags{}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the env template for the current worktree",
		Long: `Render the env template of the current worktree into an env file.

Every {{ auto_port() }} placeholder receives a port that is free on this
machine, not published by a running Docker container and not claimed by
another worktree of the repository. {{ branch() }} placeholders receive the
current branch name.

Examples:
  envvibe render
  envvibe render --port-range 20000-29999
  envvibe render --template config/.env.vibe --output config/.env
  envvibe render --dry-run --json`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd.Context(), cmd, flags)
		},
	}

	bindRenderFlags(cmd, flags)

	return cmd
}

// bindRenderFlags registers the render flags on cmd.
func bindRenderFlags(cmd *cobra.Command, flags *renderFlags) {
	cmd.Flags().StringVarP(&flags.template, "template", "t", "", "Template path (default from config, .env.vibe)")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Output path (default from config, .env)")
	cmd.Flags().StringVarP(&flags.branch, "branch", "b", "", "Branch name to substitute instead of the detected one")
	cmd.Flags().StringVar(&flags.portRange, "port-range", "", "Inclusive port range, e.g. 20000-29999")
	cmd.Flags().BoolVar(&flags.noDocker, "no-docker", false, "Do not exclude ports published by Docker containers")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Print the rendered content without writing or recording ports")
}

// runRender is the main logic function for the render command.
func runRender(ctx context.Context, cmd *cobra.Command, flags *renderFlags) error {
	repo, err := openRepo(ctx)
	if err != nil {
		return err
	}

	cfg, err := config.Load(repo.root)
	if err != nil {
		return err
	}
	if cfg.Path != "" {
		VerboseLog("Loaded configuration from %s", cfg.Path)
	}
	if err := applyRenderFlags(cfg, cmd, flags); err != nil {
		return err
	}

	templatePath := config.ResolvePath(repo.root, cfg.Template)
	outputPath := config.ResolvePath(repo.root, cfg.Output)
	if templatePath == outputPath {
		return model.NewCLIError(model.ExitInvalidConfig,
			fmt.Sprintf("output %s would overwrite the template", cfg.Output))
	}

	content, err := envfile.ReadTemplate(templatePath)
	if err != nil {
		return err
	}
	VerboseLog("Read template %s", templatePath)

	// Branch detection and the Docker query are independent and the Docker
	// query may wait on a slow daemon, so they run concurrently.
	branch := flags.branch
	var dockerPorts model.PortSet
	g, gctx := errgroup.WithContext(ctx)
	if !cmd.Flags().Changed("branch") {
		g.Go(func() error {
			b, err := repo.git.GetCurrentBranch(gctx, repo.root)
			if err != nil {
				return err
			}
			branch = b
			return nil
		})
	}
	if cfg.Docker {
		g.Go(func() error {
			dockerPorts = discoverDockerPorts(gctx)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if branch == "" {
		VerboseLog("HEAD is detached; branch() placeholders use their defaults")
	} else {
		VerboseLog("Branch: %s", branch)
	}

	var result *model.RenderResult
	renderWith := func(reg *model.PortRegistry) error {
		used := reg.UsedPorts(repo.root)
		VerboseLog("Ports claimed by other worktrees: %d", len(used))
		used.Union(dockerPorts)
		used.Union(cfg.ExcludePorts)

		res, err := envvibe.Render(content, branch, used, cfg.PortRange)
		if err != nil {
			return renderError(err)
		}
		result = res
		return nil
	}

	if flags.dryRun {
		reg, err := repo.registry.Load(ctx)
		if err != nil {
			return registryError(err)
		}
		if err := renderWith(reg); err != nil {
			return err
		}
		return printRenderResult(os.Stdout, outputPath, branch, true, result)
	}

	// The lock is held from reading the claimed ports until this
	// worktree's claim is recorded, so concurrent renders in sibling
	// worktrees cannot pick the same port.
	err = repo.registry.Update(ctx, func(reg *model.PortRegistry) error {
		if err := renderWith(reg); err != nil {
			return err
		}
		if err := envfile.WriteRendered(outputPath, result.ProcessedContent); err != nil {
			return model.WrapCLIError(model.ExitGeneralError, "failed to write env file", err)
		}
		VerboseLog("Wrote %s", outputPath)

		reg.Set(repo.root, model.WorktreePorts{
			Branch:    branch,
			UpdatedAt: time.Now().UTC().Truncate(time.Second),
			Ports:     result.AssignedPorts,
			Allocated: result.AllocatedPorts,
		})
		return nil
	})
	if err != nil {
		return registryError(err)
	}

	return printRenderResult(os.Stdout, outputPath, branch, false, result)
}

// applyRenderFlags overrides configuration values with explicitly set flags.
func applyRenderFlags(cfg *config.Config, cmd *cobra.Command, flags *renderFlags) error {
	if cmd.Flags().Changed("template") {
		cfg.Template = flags.template
	}
	if cmd.Flags().Changed("output") {
		cfg.Output = flags.output
	}
	if cfg.Template == "" || cfg.Output == "" {
		return model.NewCLIError(model.ExitInvalidConfig, "template and output paths must not be empty")
	}
	if cmd.Flags().Changed("port-range") {
		r, err := model.ParsePortRange(flags.portRange)
		if err != nil {
			return model.WrapCLIError(model.ExitInvalidConfig, "invalid --port-range", err)
		}
		cfg.PortRange = r
	}
	if flags.noDocker {
		cfg.Docker = false
	}
	return nil
}

// discoverDockerPorts returns the host ports published by running
// containers. Docker is optional: when the daemon cannot be reached the
// failure is logged and no ports are excluded.
func discoverDockerPorts(ctx context.Context) model.PortSet {
	cli, err := docker.NewClient()
	if err != nil {
		VerboseLog("Skipping Docker port discovery: %v", err)
		return nil
	}
	defer func() { _ = cli.Close() }()

	if err := cli.Ping(ctx); err != nil {
		VerboseLog("Skipping Docker port discovery: %v", err)
		return nil
	}

	ports, err := docker.PublishedPorts(ctx, cli)
	if err != nil {
		VerboseLog("Skipping Docker port discovery: %v", err)
		return nil
	}
	VerboseLog("Ports published by Docker containers: %d", len(ports))
	return ports
}

// renderError maps a render failure to its exit code.
func renderError(err error) error {
	switch {
	case errors.Is(err, model.ErrNoAvailablePort):
		return model.WrapCLIError(model.ExitPortAllocationFailed, "port allocation failed", err)
	case errors.Is(err, model.ErrInvalidPortRange):
		return model.WrapCLIError(model.ExitInvalidConfig, "invalid port range", err)
	default:
		return model.WrapCLIError(model.ExitGeneralError, "failed to render template", err)
	}
}

// renderResultJSON is the JSON output structure of the render command.
type renderResultJSON struct {
	Output         string            `json:"output"`
	Branch         string            `json:"branch"`
	DryRun         bool              `json:"dryRun"`
	AssignedPorts  map[string]uint16 `json:"assignedPorts"`
	AllocatedPorts []uint16          `json:"allocatedPorts"`
	Content        string            `json:"content,omitempty"`
}

// printRenderResult writes the outcome of a render in text or JSON format.
// On a dry run the rendered content is included.
func printRenderResult(w io.Writer, outputPath, branch string, dryRun bool, result *model.RenderResult) error {
	if IsJSONOutput() {
		out := renderResultJSON{
			Output:         outputPath,
			Branch:         branch,
			DryRun:         dryRun,
			AssignedPorts:  result.AssignedPorts,
			AllocatedPorts: result.AllocatedPorts,
		}
		if out.AllocatedPorts == nil {
			out.AllocatedPorts = []uint16{}
		}
		if dryRun {
			out.Content = result.ProcessedContent
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	if dryRun {
		_, err := io.WriteString(w, result.ProcessedContent)
		return err
	}

	fmt.Fprintf(w, "Rendered %s (%d ports allocated)\n", filepath.Base(outputPath), len(result.AllocatedPorts))
	for _, line := range formatAssignments(result.AssignedPorts) {
		fmt.Fprintln(w, line)
	}
	return nil
}

// formatAssignments renders variable-to-port mappings as an aligned table
// sorted by variable name. It returns nil when there are no mappings.
//
//	VARIABLE   PORT
//	API_PORT   20417
//	DB_PORT    23105
func formatAssignments(assigned map[string]uint16) []string {
	if len(assigned) == 0 {
		return nil
	}

	names := make([]string, 0, len(assigned))
	width := len("VARIABLE")
	for name := range assigned {
		names = append(names, name)
		width = max(width, len(name))
	}
	sort.Strings(names)

	lines := make([]string, 0, len(names)+1)
	lines = append(lines, fmt.Sprintf("%-*s  %s", width, "VARIABLE", "PORT"))
	for _, name := range names {
		lines = append(lines, fmt.Sprintf("%-*s  %d", width, name, assigned[name]))
	}
	return lines
}
