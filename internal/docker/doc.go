// Package docker reads host port usage from the Docker Engine API.
//
// Rendering consults it as an extra exclusion source: host ports published
// by running containers are added to the set of ports a template may not
// receive. The package uses github.com/docker/docker/client with API
// version negotiation and detects the daemon socket on Linux, macOS and
// Windows.
package docker
