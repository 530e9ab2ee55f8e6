package port

import (
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/envvibe/internal/model"
)

// fakeProber reports every port in busy as unavailable and records the
// candidates it was asked about.
type fakeProber struct {
	busy  model.PortSet
	calls []uint16
}

func (f *fakeProber) IsPortAvailable(port uint16, _ string) bool {
	f.calls = append(f.calls, port)
	return !f.busy.Contains(port)
}

// sequence returns an intN replacement that yields the given offsets in
// order (wrapping around), each reduced modulo n.
func sequence(offsets ...int) func(int) int {
	i := 0
	return func(n int) int {
		v := offsets[i%len(offsets)]
		i++
		return v % n
	}
}

// TestAllocate_WithinRange verifies that a real allocation lands inside the
// requested inclusive range and is bindable.
func TestAllocate_WithinRange(t *testing.T) {
	allocator := NewAllocator(NewScanner())
	r := model.PortRange{Low: 20000, High: 29999}

	p, err := allocator.Allocate(nil, nil, r)
	require.NoError(t, err)
	assert.True(t, r.Contains(p), "port %d outside %s", p, r)
}

// TestAllocate_RejectionOrder drives the allocator with a fixed candidate
// sequence: the first candidate is excluded by usedPorts, the second by
// filePorts, and only the third reaches the liveness probe.
func TestAllocate_RejectionOrder(t *testing.T) {
	prober := &fakeProber{}
	allocator := NewAllocator(prober)
	allocator.intN = sequence(0, 1, 2)

	r := model.PortRange{Low: 100, High: 200}
	p, err := allocator.Allocate(model.NewPortSet(100), model.NewPortSet(101), r)
	require.NoError(t, err)

	assert.Equal(t, uint16(102), p)
	assert.Equal(t, []uint16{102}, prober.calls, "excluded candidates must not be probed")
}

// TestAllocate_SkipsBusyPort verifies that a candidate failing the liveness
// probe is discarded and drawing continues.
func TestAllocate_SkipsBusyPort(t *testing.T) {
	prober := &fakeProber{busy: model.NewPortSet(40000)}
	allocator := NewAllocator(prober)
	allocator.intN = sequence(0, 0, 1)

	p, err := allocator.Allocate(nil, nil, model.PortRange{Low: 40000, High: 40001})
	require.NoError(t, err)

	assert.Equal(t, uint16(40001), p)
	assert.Equal(t, []uint16{40000, 40000, 40001}, prober.calls)
}

// TestAllocate_InclusiveUpperBound verifies that the highest port of the
// range can be drawn, including 65535 itself.
func TestAllocate_InclusiveUpperBound(t *testing.T) {
	allocator := NewAllocator(&fakeProber{})
	allocator.intN = func(n int) int { return n - 1 }

	p, err := allocator.Allocate(nil, nil, model.PortRange{Low: 65530, High: 65535})
	require.NoError(t, err)
	assert.Equal(t, uint16(65535), p)
}

// TestAllocate_AvoidsUsedPorts mirrors a crowded registry: all but the top
// of the range is claimed by other worktrees.
func TestAllocate_AvoidsUsedPorts(t *testing.T) {
	used := make(model.PortSet)
	for p := 30000; p < 30010; p++ {
		used.Add(uint16(p))
	}

	allocator := NewAllocator(&fakeProber{})
	p, err := allocator.Allocate(used, nil, model.PortRange{Low: 30000, High: 30010})
	require.NoError(t, err)
	assert.Equal(t, uint16(30010), p)
}

// TestAllocate_ExhaustedByExclusions verifies the bounded-retry failure
// mode when the whole range is excluded.
func TestAllocate_ExhaustedByExclusions(t *testing.T) {
	prober := &fakeProber{}
	allocator := NewAllocator(prober)

	_, err := allocator.Allocate(model.NewPortSet(50000), nil, model.PortRange{Low: 50000, High: 50000})
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrNoAvailablePort))

	var npe *model.NoAvailablePortError
	require.True(t, errors.As(err, &npe))
	assert.Equal(t, MaxAttempts, npe.Attempts)
	assert.Empty(t, prober.calls)
}

// TestAllocate_ExhaustedByProbe verifies that every attempt is counted when
// the OS rejects all candidates.
func TestAllocate_ExhaustedByProbe(t *testing.T) {
	prober := &fakeProber{busy: model.NewPortSet(50000, 50001)}
	allocator := NewAllocator(prober)

	_, err := allocator.Allocate(nil, nil, model.PortRange{Low: 50000, High: 50001})
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrNoAvailablePort))
	assert.Len(t, prober.calls, MaxAttempts)
}

// TestAllocate_LiveListener uses the real Scanner: a single-port range
// whose only port is held by a listener cannot be allocated.
func TestAllocate_LiveListener(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = listener.Close() }()

	tcpAddr, ok := listener.Addr().(*net.TCPAddr)
	require.True(t, ok)
	held := uint16(tcpAddr.Port)

	allocator := NewAllocator(NewScanner())
	_, err = allocator.Allocate(nil, nil, model.PortRange{Low: held, High: held})
	assert.True(t, errors.Is(err, model.ErrNoAvailablePort))
}

// TestAllocate_InvalidRange verifies that inverted bounds are rejected
// before any candidate is drawn.
func TestAllocate_InvalidRange(t *testing.T) {
	prober := &fakeProber{}
	allocator := NewAllocator(prober)

	_, err := allocator.Allocate(nil, nil, model.PortRange{Low: 9000, High: 8000})
	assert.True(t, errors.Is(err, model.ErrInvalidPortRange))
	assert.Empty(t, prober.calls)
}
