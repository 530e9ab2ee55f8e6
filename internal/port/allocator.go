package port

import (
	"math/rand/v2"

	"github.com/shinji-kodama/envvibe/internal/model"
)

// MaxAttempts is the number of random candidates the allocator draws for a
// single placeholder before giving up with a NoAvailablePortError.
const MaxAttempts = 1000

// Prober reports whether a port is currently bindable. *Scanner is the
// production implementation; tests substitute a fake to control the
// liveness outcome.
type Prober interface {
	IsPortAvailable(port uint16, protocol string) bool
}

// Allocator hands out ports for port placeholders by random probing.
//
// Each call draws uniformly random candidates from the configured range and
// returns the first one that is not in the caller's exclusion set, not
// already handed out in the current render pass, and bindable on the
// loopback interface. Random selection spreads worktrees over the whole
// range instead of piling them up at its low end.
//
// The Allocator holds no state between calls. Within-render uniqueness is
// tracked by the caller through the filePorts set.
type Allocator struct {
	// prober performs the liveness check on each candidate.
	prober Prober

	// intN returns a uniform random integer in [0, n). It defaults to
	// math/rand/v2's global generator.
	intN func(n int) int

	// maxAttempts bounds the number of candidates drawn per call.
	maxAttempts int
}

// NewAllocator creates an Allocator that verifies candidates with prober.
// The prober must not be nil.
func NewAllocator(prober Prober) *Allocator {
	return &Allocator{
		prober:      prober,
		intN:        rand.IntN,
		maxAttempts: MaxAttempts,
	}
}

// Allocate returns a port within r that is neither in used nor in
// filePorts and that passed the liveness probe.
//
// Algorithm, repeated up to MaxAttempts times:
//  1. Draw a uniformly random candidate in [r.Low, r.High].
//  2. Reject it if it is in used (claimed by other worktrees/processes).
//  3. Reject it if it is in filePorts (already assigned in this render).
//  4. Reject it if a TCP bind on 127.0.0.1 fails.
//  5. Otherwise return it.
//
// Allocate does not add the result to filePorts; the render driver owns
// that set. When every attempt is rejected, a *model.NoAvailablePortError
// is returned.
func (a *Allocator) Allocate(used, filePorts model.PortSet, r model.PortRange) (uint16, error) {
	if err := r.Validate(); err != nil {
		return 0, err
	}

	span := r.Size()
	for attempt := 0; attempt < a.maxAttempts; attempt++ {
		candidate := uint16(int(r.Low) + a.intN(span))

		if used.Contains(candidate) {
			continue
		}
		if filePorts.Contains(candidate) {
			continue
		}
		if a.prober.IsPortAvailable(candidate, "tcp") {
			return candidate, nil
		}
	}

	return 0, &model.NoAvailablePortError{Attempts: a.maxAttempts}
}
