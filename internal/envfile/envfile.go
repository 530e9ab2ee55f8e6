// Package envfile reads env templates and writes rendered env files.
package envfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shinji-kodama/envvibe/internal/model"
)

// renderedMode is the permission of a newly written env file.
const renderedMode os.FileMode = 0o644

// ReadTemplate returns the content of the template at path. A missing
// template is reported as a model.CLIError with ExitTemplateNotFound.
func ReadTemplate(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", model.NewCLIError(
				model.ExitTemplateNotFound,
				fmt.Sprintf("template not found at %s", path),
			)
		}
		return "", model.WrapCLIError(model.ExitGeneralError, "failed to read template", err)
	}
	return string(data), nil
}

// WriteRendered replaces the file at path with content. The data goes to
// a temporary file in the same directory first and is renamed into place,
// so readers never observe a half-written env file. Parent directories
// are created as needed.
func WriteRendered(path, content string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.WriteString(content); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	// CreateTemp uses 0600.
	if err := os.Chmod(tmpName, renderedMode); err != nil {
		return fmt.Errorf("failed to set permissions on %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
