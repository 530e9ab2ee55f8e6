// The ports command lists the ports recorded in the registry shared by all
// worktrees of the repository. By default only the current worktree is
// shown; --all shows every registered worktree.

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/envvibe/internal/model"
)

// portsFlags holds the flag values for the ports command.
type portsFlags struct {
	// all lists every registered worktree instead of only the current one.
	all bool
}

// NewPortsCommand creates the "ports" cobra command.
func NewPortsCommand() *cobra.Command {
	flags := &portsFlags{}

	cmd := &cobra.Command{
		Use:   "ports",
		Short: "Show the ports claimed by worktrees",
		Long: `Show the ports recorded for the current worktree, or for every worktree
of the repository with --all.

Examples:
  envvibe ports
  envvibe ports --all
  envvibe ports --all --json`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runPorts(cmd.Context(), flags)
		},
	}

	cmd.Flags().BoolVarP(&flags.all, "all", "a", false, "Show every worktree of the repository")

	return cmd
}

// portsEntry is one row of the ports command output.
type portsEntry struct {
	Path      string            `json:"path"`
	Branch    string            `json:"branch"`
	UpdatedAt time.Time         `json:"updatedAt"`
	Ports     map[string]uint16 `json:"ports"`
	Allocated []uint16          `json:"allocated"`
}

// runPorts is the main logic function for the ports command.
func runPorts(ctx context.Context, flags *portsFlags) error {
	repo, err := openRepo(ctx)
	if err != nil {
		return err
	}

	reg, err := repo.registry.Load(ctx)
	if err != nil {
		return registryError(err)
	}

	entries := collectPortsEntries(reg, repo.root, flags.all)
	VerboseLog("Registry holds %d worktrees, showing %d", len(reg.Worktrees), len(entries))

	return printPortsResult(os.Stdout, entries)
}

// collectPortsEntries returns the registry records to display, sorted by
// path. Unless all is set only the record for current is returned.
func collectPortsEntries(reg *model.PortRegistry, current string, all bool) []portsEntry {
	entries := make([]portsEntry, 0, len(reg.Worktrees))
	for _, path := range reg.Paths() {
		if !all && path != current {
			continue
		}
		wp := reg.Worktrees[path]
		entry := portsEntry{
			Path:      path,
			Branch:    wp.Branch,
			UpdatedAt: wp.UpdatedAt,
			Ports:     wp.Ports,
			Allocated: wp.Claimed().Sorted(),
		}
		if entry.Ports == nil {
			entry.Ports = map[string]uint16{}
		}
		entries = append(entries, entry)
	}
	return entries
}

// printPortsResult writes the entries in text or JSON format.
func printPortsResult(w io.Writer, entries []portsEntry) error {
	if IsJSONOutput() {
		data, err := json.MarshalIndent(map[string]any{"worktrees": entries}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	if len(entries) == 0 {
		fmt.Fprintln(w, "No ports recorded. Run `envvibe render` first.")
		return nil
	}

	// Table format:
	//
	//	PATH                   BRANCH          PORTS
	//	/src/app               main            20417,23105
	//	/src/app-feature-auth  feature/auth    24001
	fmt.Fprintf(w, "%-40s %-20s %s\n", "PATH", "BRANCH", "PORTS")
	for _, e := range entries {
		branch := e.Branch
		if branch == "" {
			branch = "-"
		}
		fmt.Fprintf(w, "%-40s %-20s %s\n", e.Path, branch, FormatPortsList(e.Allocated))
		for _, name := range sortedNames(e.Ports) {
			fmt.Fprintf(w, "  %s=%d\n", name, e.Ports[name])
		}
	}
	return nil
}

// FormatPortsList converts ports into a comma-separated string in numeric
// order. Returns "-" if there are none.
//
//	[23105, 20417] → "20417,23105"
//	[]             → "-"
func FormatPortsList(ports []uint16) string {
	if len(ports) == 0 {
		return "-"
	}

	sorted := make([]int, 0, len(ports))
	for _, p := range ports {
		sorted = append(sorted, int(p))
	}
	// Numeric, not lexicographic: 3000 sorts before 15432.
	sort.Ints(sorted)

	parts := make([]string, 0, len(sorted))
	for _, p := range sorted {
		parts = append(parts, strconv.Itoa(p))
	}
	return strings.Join(parts, ",")
}

func sortedNames(m map[string]uint16) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
