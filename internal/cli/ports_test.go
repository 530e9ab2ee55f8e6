package cli

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/envvibe/internal/model"
)

// TestFormatPortsList verifies that FormatPortsList converts ports into a
// comma-separated string in numeric order.
func TestFormatPortsList(t *testing.T) {
	tests := []struct {
		name  string
		ports []uint16
		want  string
	}{
		{
			name:  "empty ports returns dash",
			ports: []uint16{},
			want:  "-",
		},
		{
			name:  "nil ports returns dash",
			ports: nil,
			want:  "-",
		},
		{
			name:  "single port",
			ports: []uint16{20417},
			want:  "20417",
		},
		{
			name:  "ports are sorted",
			ports: []uint16{23105, 20417, 21000},
			want:  "20417,21000,23105",
		},
		{
			name:  "ports are sorted numerically not lexicographically",
			ports: []uint16{15432, 3000},
			want:  "3000,15432",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatPortsList(tt.ports))
		})
	}
}

func testRegistry() *model.PortRegistry {
	reg := model.NewPortRegistry()
	reg.Set("/src/app", model.WorktreePorts{
		Branch:    "main",
		UpdatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Ports:     map[string]uint16{"API_PORT": 20417},
		Allocated: []uint16{20417, 20999},
	})
	reg.Set("/src/app-feature", model.WorktreePorts{
		Branch:    "feature/auth",
		Allocated: []uint16{24001},
	})
	return reg
}

func TestCollectPortsEntries_Current(t *testing.T) {
	entries := collectPortsEntries(testRegistry(), "/src/app", false)

	require.Len(t, entries, 1)
	assert.Equal(t, "/src/app", entries[0].Path)
	assert.Equal(t, "main", entries[0].Branch)
	assert.Equal(t, []uint16{20417, 20999}, entries[0].Allocated)
	assert.Equal(t, map[string]uint16{"API_PORT": 20417}, entries[0].Ports)
}

func TestCollectPortsEntries_All(t *testing.T) {
	entries := collectPortsEntries(testRegistry(), "/src/app", true)

	require.Len(t, entries, 2)
	assert.Equal(t, "/src/app", entries[0].Path)
	assert.Equal(t, "/src/app-feature", entries[1].Path)
	assert.NotNil(t, entries[1].Ports)
}

func TestCollectPortsEntries_Unregistered(t *testing.T) {
	assert.Empty(t, collectPortsEntries(testRegistry(), "/src/other", false))
}

func TestPrintPortsResult_Text(t *testing.T) {
	withJSONOutput(t, false)
	var buf bytes.Buffer

	require.NoError(t, printPortsResult(&buf, collectPortsEntries(testRegistry(), "", true)))

	out := buf.String()
	assert.Contains(t, out, "PATH")
	assert.Contains(t, out, "20417,20999")
	assert.Contains(t, out, "  API_PORT=20417\n")
	assert.Contains(t, out, "feature/auth")
}

func TestPrintPortsResult_Empty(t *testing.T) {
	withJSONOutput(t, false)
	var buf bytes.Buffer

	require.NoError(t, printPortsResult(&buf, nil))
	assert.Contains(t, buf.String(), "No ports recorded")
}

func TestPrintPortsResult_JSON(t *testing.T) {
	withJSONOutput(t, true)
	var buf bytes.Buffer

	require.NoError(t, printPortsResult(&buf, collectPortsEntries(testRegistry(), "/src/app", false)))

	var got struct {
		Worktrees []portsEntry `json:"worktrees"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got.Worktrees, 1)
	assert.Equal(t, "/src/app", got.Worktrees[0].Path)
	assert.Equal(t, uint16(20417), got.Worktrees[0].Ports["API_PORT"])
}
