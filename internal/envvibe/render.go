package envvibe

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shinji-kodama/envvibe/internal/model"
	"github.com/shinji-kodama/envvibe/internal/port"
)

// Allocator yields one port per call. *port.Allocator is the production
// implementation.
type Allocator interface {
	Allocate(used, filePorts model.PortSet, r model.PortRange) (uint16, error)
}

// Renderer resolves the placeholders of an env template.
// A Renderer holds no per-render state and may be reused.
type Renderer struct {
	allocator Allocator
}

// NewRenderer creates a Renderer that draws ports from allocator.
func NewRenderer(allocator Allocator) *Renderer {
	return &Renderer{allocator: allocator}
}

// Render processes content with a Renderer backed by the loopback Scanner.
// See Renderer.Render.
func Render(content, branchName string, usedPorts model.PortSet, portRange model.PortRange) (*model.RenderResult, error) {
	return NewRenderer(port.NewAllocator(port.NewScanner())).Render(content, branchName, usedPorts, portRange)
}

// Render replaces the placeholders in content and returns the rendered text
// together with the ports it assigned.
//
// Lines are processed independently and in order:
//  1. While the line contains an auto_port() placeholder, a fresh port is
//     allocated (avoiding usedPorts and every port already assigned in this
//     pass) and substituted for the leftmost placeholder. If the line reads
//     NAME=..., the port is recorded under NAME; a later assignment to the
//     same NAME overwrites the earlier one.
//  2. Every branch() placeholder on the line is then resolved in one pass.
//
// The output has the same number of lines as content, joined with "\n".
// usedPorts is only read. Any error aborts the render and no partial result
// is returned: a *model.NoAvailablePortError when a placeholder cannot be
// satisfied, a *model.PatternError if the built-in patterns fail to compile,
// or a *model.PortRangeError for inverted bounds.
func (r *Renderer) Render(content, branchName string, usedPorts model.PortSet, portRange model.PortRange) (*model.RenderResult, error) {
	pats, err := loadPatterns()
	if err != nil {
		return nil, err
	}
	if err := portRange.Validate(); err != nil {
		return nil, err
	}

	filePorts := make(model.PortSet)
	assigned := make(map[string]uint16)
	var allocated []uint16

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		for pats.hasPortPlaceholder(line) {
			p, err := r.allocator.Allocate(usedPorts, filePorts, portRange)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", i+1, err)
			}
			filePorts.Add(p)
			allocated = append(allocated, p)

			if name := pats.variableName(line); name != "" {
				assigned[name] = p
			}

			line = pats.replaceFirstPort(line, strconv.FormatUint(uint64(p), 10))
		}

		lines[i] = pats.replaceBranches(line, branchName)
	}

	return &model.RenderResult{
		ProcessedContent: strings.Join(lines, "\n"),
		AssignedPorts:    assigned,
		AllocatedPorts:   allocated,
	}, nil
}
