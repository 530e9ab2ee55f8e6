package model

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultPortRangeStart is the lowest port handed out when the caller
	// does not configure a range. Ports below 1024 are privileged on most
	// systems and are never a good fit for development servers.
	DefaultPortRangeStart uint16 = 1024

	// DefaultPortRangeEnd is the highest valid TCP/UDP port number (2^16 - 1).
	DefaultPortRangeEnd uint16 = 65535
)

// PortRange holds inclusive bounds on allocatable port numbers.
// The invariant Low <= High is checked by Validate.
type PortRange struct {
	Low  uint16 `json:"start" yaml:"start"`
	High uint16 `json:"end" yaml:"end"`
}

// DefaultPortRange returns [1024, 65535].
func DefaultPortRange() PortRange {
	return PortRange{Low: DefaultPortRangeStart, High: DefaultPortRangeEnd}
}

// Validate reports a PortRangeError when the bounds are inverted.
func (r PortRange) Validate() error {
	if r.Low > r.High {
		return &PortRangeError{Low: r.Low, High: r.High}
	}
	return nil
}

// Contains reports whether port lies within the inclusive bounds.
func (r PortRange) Contains(port uint16) bool {
	return port >= r.Low && port <= r.High
}

// Size returns the number of ports in the range.
func (r PortRange) Size() int {
	if r.Low > r.High {
		return 0
	}
	return int(r.High) - int(r.Low) + 1
}

// String formats the range as "low-high", the same syntax ParsePortRange accepts.
func (r PortRange) String() string {
	return fmt.Sprintf("%d-%d", r.Low, r.High)
}

// ParsePortRange parses a "low-high" string such as "20000-29999".
// Both bounds must be valid 16-bit port numbers and low must not exceed high.
func ParsePortRange(s string) (PortRange, error) {
	lowStr, highStr, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return PortRange{}, fmt.Errorf("invalid port range %q: expected <low>-<high>", s)
	}

	low, err := strconv.ParseUint(strings.TrimSpace(lowStr), 10, 16)
	if err != nil {
		return PortRange{}, fmt.Errorf("invalid port range %q: bad lower bound: %w", s, err)
	}
	high, err := strconv.ParseUint(strings.TrimSpace(highStr), 10, 16)
	if err != nil {
		return PortRange{}, fmt.Errorf("invalid port range %q: bad upper bound: %w", s, err)
	}

	r := PortRange{Low: uint16(low), High: uint16(high)}
	if err := r.Validate(); err != nil {
		return PortRange{}, err
	}
	return r, nil
}

// PortSet is a set of port numbers. The zero value (nil) is a valid,
// empty, read-only set; use NewPortSet or make before calling Add.
type PortSet map[uint16]struct{}

// NewPortSet builds a set from the given ports.
func NewPortSet(ports ...uint16) PortSet {
	s := make(PortSet, len(ports))
	for _, p := range ports {
		s[p] = struct{}{}
	}
	return s
}

// Add inserts port into the set.
func (s PortSet) Add(port uint16) {
	s[port] = struct{}{}
}

// Contains reports whether port is a member of the set. Safe on a nil set.
func (s PortSet) Contains(port uint16) bool {
	_, ok := s[port]
	return ok
}

// Union adds every member of other to s.
func (s PortSet) Union(other PortSet) {
	for p := range other {
		s[p] = struct{}{}
	}
}

// Sorted returns the members in ascending order.
func (s PortSet) Sorted() []uint16 {
	out := make([]uint16, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// RenderResult is the output of one render pass over an env template.
// It is immutable once returned and owned by the caller.
type RenderResult struct {
	// ProcessedContent is the template with every resolvable placeholder
	// substituted. It has exactly as many lines as the input.
	ProcessedContent string `json:"processedContent"`

	// AssignedPorts maps the variable name on a NAME=value line to the port
	// allocated for it. When a line holds several port placeholders, the
	// name maps to the last port allocated on that line.
	AssignedPorts map[string]uint16 `json:"assignedPorts"`

	// AllocatedPorts lists every port allocated during the pass in
	// allocation order, including ports on lines without a NAME= prefix.
	AllocatedPorts []uint16 `json:"allocatedPorts"`
}

// WorktreePorts is the registry record for a single worktree: the ports
// its last successful render claimed.
type WorktreePorts struct {
	// Branch is the branch name the worktree was rendered for.
	// Empty when the worktree was on a detached HEAD.
	Branch string `yaml:"branch,omitempty" json:"branch,omitempty"`

	// UpdatedAt is the time of the render that produced this record.
	UpdatedAt time.Time `yaml:"updatedAt" json:"updatedAt"`

	// Ports maps variable names to their assigned ports.
	Ports map[string]uint16 `yaml:"ports,omitempty" json:"ports,omitempty"`

	// Allocated lists every port claimed by the render, named or not.
	Allocated []uint16 `yaml:"allocated,omitempty" json:"allocated,omitempty"`
}

// Claimed returns every port held by the record.
func (w WorktreePorts) Claimed() PortSet {
	s := make(PortSet, len(w.Allocated)+len(w.Ports))
	for _, p := range w.Allocated {
		s.Add(p)
	}
	for _, p := range w.Ports {
		s.Add(p)
	}
	return s
}

// PortRegistry is the shared record of ports claimed by all worktrees of
// one repository, keyed by absolute worktree path.
type PortRegistry struct {
	Worktrees map[string]WorktreePorts `yaml:"worktrees"`
}

// NewPortRegistry returns an empty registry.
func NewPortRegistry() *PortRegistry {
	return &PortRegistry{Worktrees: make(map[string]WorktreePorts)}
}

// UsedPorts returns the ports claimed by every worktree except exclude.
// Passing the current worktree as exclude lets a re-render reuse the
// ports it is about to replace.
func (r *PortRegistry) UsedPorts(exclude string) PortSet {
	used := make(PortSet)
	for path, wp := range r.Worktrees {
		if path == exclude {
			continue
		}
		used.Union(wp.Claimed())
	}
	return used
}

// Set stores the record for path, replacing any previous one.
func (r *PortRegistry) Set(path string, wp WorktreePorts) {
	if r.Worktrees == nil {
		r.Worktrees = make(map[string]WorktreePorts)
	}
	r.Worktrees[path] = wp
}

// Remove deletes the record for path and reports whether one existed.
func (r *PortRegistry) Remove(path string) bool {
	if _, ok := r.Worktrees[path]; !ok {
		return false
	}
	delete(r.Worktrees, path)
	return true
}

// Paths returns the registered worktree paths in sorted order.
func (r *PortRegistry) Paths() []string {
	paths := make([]string, 0, len(r.Worktrees))
	for p := range r.Worktrees {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
