// Package port implements port liveness probing and random port allocation
// for env template rendering.
//
// The Scanner verifies OS-level availability by binding to 127.0.0.1 and
// releasing the socket immediately. The Allocator draws random candidates
// from a PortRange, skips ports excluded by the caller or already assigned
// in the current render, and confirms the survivor with the Scanner. After
// MaxAttempts rejected candidates it fails with model.NoAvailablePortError.
//
// The probe is not a reservation: a port reported free can be taken by
// another process before the rendered configuration is used.
package port
