package envfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/envvibe/internal/model"
)

func TestReadTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env.vibe")
	require.NoError(t, os.WriteFile(path, []byte("PORT={{ auto_port() }}\n"), 0o644))

	content, err := ReadTemplate(path)
	require.NoError(t, err)
	assert.Equal(t, "PORT={{ auto_port() }}\n", content)
}

func TestReadTemplate_Missing(t *testing.T) {
	_, err := ReadTemplate(filepath.Join(t.TempDir(), ".env.vibe"))
	require.Error(t, err)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitTemplateNotFound, cliErr.Code)
}

func TestWriteRendered_CreatesParents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config", "local", ".env")

	require.NoError(t, WriteRendered(path, "PORT=20000\n"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "PORT=20000\n", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, renderedMode, info.Mode().Perm())
}

// TestWriteRendered_Replaces verifies an existing file is overwritten and
// no temporary files are left behind.
func TestWriteRendered_Replaces(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("OLD=1\n"), 0o644))

	require.NoError(t, WriteRendered(path, "NEW=2\n"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "NEW=2\n", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ".env", entries[0].Name())
}
