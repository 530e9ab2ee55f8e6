package config

import (
	"fmt"
	"path/filepath"
)

// ValidationError represents a specific validation failure in the config file.
type ValidationError struct {
	// Field is the JSON field path that failed validation (e.g., "portRange.start").
	Field string

	// Message describes what's wrong with the field value.
	Message string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation error: %s: %s", e.Field, e.Message)
}

// Validate checks a decoded config file and returns every problem found
// (empty list = valid configuration).
//
// Checks performed:
//   - template and output must not name the same file
//   - portRange bounds must be valid ports with start <= end
//   - excludePorts entries must be valid ports
func Validate(raw *RawConfig) []ValidationError {
	var errs []ValidationError

	template := raw.Template
	if template == "" {
		template = DefaultTemplate
	}
	output := raw.Output
	if output == "" {
		output = DefaultOutput
	}
	if filepath.Clean(template) == filepath.Clean(output) {
		errs = append(errs, ValidationError{
			Field:   "output",
			Message: fmt.Sprintf("output %q must differ from template", output),
		})
	}

	if r := raw.PortRange; r != nil {
		if !validPort(r.Start) {
			errs = append(errs, ValidationError{
				Field:   "portRange.start",
				Message: fmt.Sprintf("%d is not a valid port (1-65535)", r.Start),
			})
		}
		if !validPort(r.End) {
			errs = append(errs, ValidationError{
				Field:   "portRange.end",
				Message: fmt.Sprintf("%d is not a valid port (1-65535)", r.End),
			})
		}
		if r.Start > r.End {
			errs = append(errs, ValidationError{
				Field:   "portRange",
				Message: fmt.Sprintf("start %d must not exceed end %d", r.Start, r.End),
			})
		}
	}

	for i, p := range raw.ExcludePorts {
		if !validPort(p) {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("excludePorts[%d]", i),
				Message: fmt.Sprintf("%d is not a valid port (1-65535)", p),
			})
		}
	}

	return errs
}

func validPort(p int) bool {
	return p >= 1 && p <= 65535
}
