// Package registry persists the ports claimed by each worktree of a
// repository so that renders in sibling worktrees can exclude them.
//
// The registry is a single YAML file stored in the repository's common git
// directory (shared by all worktrees). Every access holds an exclusive
// advisory lock on a sibling ".lock" file via github.com/gofrs/flock, so
// concurrent envvibe processes read and write it one at a time.
package registry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"

	"github.com/shinji-kodama/envvibe/internal/model"
)

const (
	// DirName is the directory created inside the git common dir.
	DirName = "envvibe"

	// FileName is the registry file inside DirName.
	FileName = "ports.yml"

	// lockRetryInterval is the delay between lock acquisition attempts.
	lockRetryInterval = 50 * time.Millisecond
)

// Registry is a handle on one registry file. It keeps no cached state:
// every Load and Update reads the file under the lock.
type Registry struct {
	path     string
	lockPath string
}

// New returns a Registry backed by the file at path.
func New(path string) *Registry {
	return &Registry{path: path, lockPath: path + ".lock"}
}

// ForCommonDir returns the Registry stored under gitCommonDir, the
// directory reported by `git rev-parse --git-common-dir`.
func ForCommonDir(gitCommonDir string) *Registry {
	return New(filepath.Join(gitCommonDir, DirName, FileName))
}

// Path returns the registry file path.
func (r *Registry) Path() string {
	return r.path
}

// Load returns the current registry contents. A missing file yields an
// empty registry.
func (r *Registry) Load(ctx context.Context) (*model.PortRegistry, error) {
	fl, err := r.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = fl.Close() }()

	return r.read()
}

// Update runs fn on the current registry contents while holding the lock
// and writes the result back. If fn returns an error the file is left
// untouched and the error is returned as-is.
func (r *Registry) Update(ctx context.Context, fn func(reg *model.PortRegistry) error) error {
	fl, err := r.lock(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = fl.Close() }()

	reg, err := r.read()
	if err != nil {
		return err
	}
	if err := fn(reg); err != nil {
		return err
	}
	return r.write(reg)
}

// lock acquires the exclusive file lock, retrying until ctx is done.
// The lock file is left on disk after release: removing it could
// invalidate a lock concurrently acquired by another process.
func (r *Registry) lock(ctx context.Context) (*flock.Flock, error) {
	if err := os.MkdirAll(filepath.Dir(r.lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create registry directory: %w", err)
	}

	fl := flock.New(r.lockPath)
	locked, err := fl.TryLockContext(ctx, lockRetryInterval)
	if err != nil {
		return nil, fmt.Errorf("acquiring registry lock %s: %w", r.lockPath, err)
	}
	if !locked {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("acquiring registry lock %s: %w", r.lockPath, ctx.Err())
		}
		return nil, fmt.Errorf("acquiring registry lock %s: lock not acquired", r.lockPath)
	}
	return fl, nil
}

// read parses the registry file. The caller must hold the lock.
func (r *Registry) read() (*model.PortRegistry, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return model.NewPortRegistry(), nil
		}
		return nil, fmt.Errorf("failed to read registry %s: %w", r.path, err)
	}

	reg := model.NewPortRegistry()
	if err := yaml.Unmarshal(data, reg); err != nil {
		return nil, fmt.Errorf("failed to parse registry %s: %w", r.path, err)
	}
	if reg.Worktrees == nil {
		reg.Worktrees = make(map[string]model.WorktreePorts)
	}
	return reg, nil
}

// write replaces the registry file atomically: the YAML is written to a
// temporary file in the same directory and renamed over the original.
// The caller must hold the lock.
func (r *Registry) write(reg *model.PortRegistry) error {
	data, err := yaml.Marshal(reg)
	if err != nil {
		return fmt.Errorf("failed to encode registry: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), "."+FileName+".*")
	if err != nil {
		return fmt.Errorf("failed to create temporary registry file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write registry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write registry: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		return fmt.Errorf("failed to replace registry %s: %w", r.path, err)
	}
	return nil
}
