package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.hcl", "b.yaml", "c.txt", "nested/d.yml"} {
		p := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, nil, 0o600))
	}

	files, err := FindFiles([]string{
		dir,
		filepath.Join(dir, "a.hcl"),
		filepath.Join(dir, "missing"),
	}, ".hcl", ".yaml", ".yml")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.hcl"),
		filepath.Join(dir, "b.yaml"),
		filepath.Join(dir, "nested", "d.yml"),
	}, files)
}

func TestFindFiles_DirectFileMustMatch(t *testing.T) {
	p := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(p, nil, 0o600))
	files, err := FindFiles([]string{p}, ".hcl")
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestFindFiles_PanicsWithoutExtensions(t *testing.T) {
	assert.Panics(t, func() { _, _ = FindFiles(nil) })
}
