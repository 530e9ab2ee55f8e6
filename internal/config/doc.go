// Package config loads the optional per-project envvibe configuration.
//
// The file is named .envvibe.jsonc (or .envvibe.json) and lives at the
// worktree root. JSONC (JSON with comments and trailing commas) is
// supported via github.com/tidwall/jsonc, so teams can annotate why a
// range or exclusion exists. Every field is optional; missing fields fall
// back to Default.
package config
