package docker

import (
	"testing"

	"github.com/docker/docker/api/types/container"
	"github.com/stretchr/testify/assert"
)

// TestHostPorts verifies that only published host ports are collected and
// that a port bound on both IPv4 and IPv6 appears once.
func TestHostPorts(t *testing.T) {
	containers := []container.Summary{
		{
			ID: "abc123",
			Ports: []container.Port{
				{IP: "0.0.0.0", PrivatePort: 3000, PublicPort: 13000, Type: "tcp"},
				{IP: "::", PrivatePort: 3000, PublicPort: 13000, Type: "tcp"},
				{PrivatePort: 9229, Type: "tcp"}, // exposed, not published
			},
		},
		{
			ID: "def456",
			Ports: []container.Port{
				{IP: "127.0.0.1", PrivatePort: 5432, PublicPort: 15432, Type: "tcp"},
				{IP: "0.0.0.0", PrivatePort: 53, PublicPort: 10053, Type: "udp"},
			},
		},
		{ID: "no-ports"},
	}

	got := hostPorts(containers)
	assert.Equal(t, []uint16{10053, 13000, 15432}, got.Sorted())
}

// TestHostPorts_Empty verifies that no containers yields an empty set.
func TestHostPorts_Empty(t *testing.T) {
	assert.Empty(t, hostPorts(nil))
}

// TestFirstUnixSocket verifies socket path probing order and the error
// returned when nothing exists.
func TestFirstUnixSocket(t *testing.T) {
	dir := t.TempDir()

	_, err := firstUnixSocket(dir+"/missing.sock", dir+"/also-missing.sock")
	assert.Error(t, err)

	host, err := firstUnixSocket(dir+"/missing.sock", dir)
	assert.NoError(t, err)
	assert.Equal(t, "unix://"+dir, host)
}
