// Package model defines the domain types and value objects for the
// envvibe CLI.
//
// This package contains pure data structures with no external dependencies.
// The render types (PortRange, PortSet, RenderResult) are created for a
// single render pass and discarded afterwards. PortRegistry is the only
// entity that outlives a command: it is the in-memory form of the shared
// ports.yml file managed by the registry package.
//
// The package also defines the render error kinds (NoAvailablePortError,
// PatternError), exit codes (ExitCode) and a custom error type (CLIError)
// that carries exit codes for proper OS process exit handling.
package model
