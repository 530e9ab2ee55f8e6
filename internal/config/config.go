package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/jsonc"

	"github.com/shinji-kodama/envvibe/internal/model"
)

const (
	// DefaultTemplate is the template file name looked up at the worktree root.
	DefaultTemplate = ".env.vibe"

	// DefaultOutput is the rendered file name written next to the template.
	DefaultOutput = ".env"
)

// candidateNames lists the config file names in lookup order.
var candidateNames = []string{".envvibe.jsonc", ".envvibe.json"}

// RawConfig mirrors the project config file. Pointer and int fields keep
// "absent" distinguishable from zero and let Validate report out-of-range
// port numbers instead of silently truncating them.
//
//	{
//	  // rendered by `envvibe render`
//	  "template": ".env.vibe",
//	  "output": ".env",
//	  "portRange": { "start": 20000, "end": 29999 },
//	  "excludePorts": [5432, 6379],
//	  "docker": true,
//	}
type RawConfig struct {
	Template     string        `json:"template,omitempty"`
	Output       string        `json:"output,omitempty"`
	PortRange    *RawPortRange `json:"portRange,omitempty"`
	ExcludePorts []int         `json:"excludePorts,omitempty"`
	Docker       *bool         `json:"docker,omitempty"`
}

// RawPortRange is the "portRange" object of the config file.
type RawPortRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Config is the validated configuration used by the render command.
type Config struct {
	// Path is the file the configuration was loaded from, or "" for defaults.
	Path string

	// Template and Output are relative to the worktree root unless absolute.
	Template string
	Output   string

	// PortRange bounds every auto_port() allocation.
	PortRange model.PortRange

	// ExcludePorts are never handed out, in addition to the registry.
	ExcludePorts model.PortSet

	// Docker enables excluding host ports published by running containers.
	Docker bool
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	return &Config{
		Template:     DefaultTemplate,
		Output:       DefaultOutput,
		PortRange:    model.DefaultPortRange(),
		ExcludePorts: make(model.PortSet),
		Docker:       true,
	}
}

// FindConfig returns the first config file present in root, or "" when
// the project has none.
func FindConfig(root string) string {
	for _, name := range candidateNames {
		path := filepath.Join(root, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// LoadRaw reads a config file, strips JSONC comments and trailing commas
// with github.com/tidwall/jsonc, and decodes it.
func LoadRaw(path string) (*RawConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var raw RawConfig
	if err := json.Unmarshal(jsonc.ToJSON(data), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config at %s: %w", path, err)
	}
	return &raw, nil
}

// Load returns the configuration for the worktree at root: the defaults
// overlaid with the project's config file, if any. Parse and validation
// failures are reported as model.CLIError with ExitInvalidConfig.
func Load(root string) (*Config, error) {
	path := FindConfig(root)
	if path == "" {
		return Default(), nil
	}

	raw, err := LoadRaw(path)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitInvalidConfig, "invalid configuration", err)
	}

	if verrs := Validate(raw); len(verrs) > 0 {
		errs := make([]error, 0, len(verrs))
		for i := range verrs {
			errs = append(errs, &verrs[i])
		}
		return nil, model.WrapCLIError(
			model.ExitInvalidConfig,
			fmt.Sprintf("invalid configuration in %s", path),
			errors.Join(errs...),
		)
	}

	cfg := raw.Resolve()
	cfg.Path = path
	return cfg, nil
}

// Resolve applies raw on top of Default. raw must have passed Validate.
func (raw *RawConfig) Resolve() *Config {
	cfg := Default()
	if raw.Template != "" {
		cfg.Template = raw.Template
	}
	if raw.Output != "" {
		cfg.Output = raw.Output
	}
	if raw.PortRange != nil {
		cfg.PortRange = model.PortRange{Low: uint16(raw.PortRange.Start), High: uint16(raw.PortRange.End)}
	}
	for _, p := range raw.ExcludePorts {
		cfg.ExcludePorts.Add(uint16(p))
	}
	if raw.Docker != nil {
		cfg.Docker = *raw.Docker
	}
	return cfg
}

// ResolvePath makes p absolute relative to root.
func ResolvePath(root, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(root, p)
}
