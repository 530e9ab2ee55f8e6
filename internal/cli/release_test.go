package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shinji-kodama/envvibe/internal/model"
	"github.com/shinji-kodama/envvibe/internal/worktree"
)

func TestReleaseStale(t *testing.T) {
	reg := model.NewPortRegistry()
	reg.Set("/src/app", model.WorktreePorts{Allocated: []uint16{20000}})
	reg.Set("/src/app-old", model.WorktreePorts{Allocated: []uint16{20001}})
	reg.Set("/src/app-gone", model.WorktreePorts{Allocated: []uint16{20002}})

	live := livePaths([]worktree.WorktreeInfo{
		{Path: "/src/app", Branch: "refs/heads/main"},
		{Path: "/src/app-feature/", Branch: "refs/heads/feature"},
	})

	released := releaseStale(reg, live)

	assert.Equal(t, []string{"/src/app-gone", "/src/app-old"}, released)
	assert.Equal(t, []string{"/src/app"}, reg.Paths())
}

func TestReleaseStale_NothingStale(t *testing.T) {
	reg := model.NewPortRegistry()
	reg.Set("/src/app", model.WorktreePorts{})

	released := releaseStale(reg, livePaths([]worktree.WorktreeInfo{{Path: "/src/app"}}))

	assert.Empty(t, released)
	assert.Equal(t, []string{"/src/app"}, reg.Paths())
}
