// Package envvibe renders .env.vibe templates for Git worktrees.
//
// Two placeholders are recognized, each written between `{{` and `}}` with
// any amount of interior whitespace:
//
//	{{ auto_port() }}            a fresh, currently bindable port
//	{{ auto_port() | 8080 }}     same; the default is accepted but ignored
//	{{ branch() }}               the worktree's branch name
//	{{ branch() | production }}  the branch name, or "production" without one
//
// A branch() placeholder without a default is left as-is when no branch name
// is available. Placeholders cannot nest or span lines, and there is no
// expression syntax beyond the optional default.
//
// Rendering is line-oriented and synchronous. Ports come from an Allocator
// (see package port) and are unique within one render; the render keeps no
// state between calls and never mutates the caller's exclusion set.
package envvibe
