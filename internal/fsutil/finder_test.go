package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindFiles(t *testing.T) {
	root := t.TempDir()
	for _, p := range []string{"a.hcl", "nested/b.yml", "nested/deep/c.yaml", "notes.txt", "nested/d.hcl.bak"} {
		full := filepath.Join(root, filepath.FromSlash(p))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte("x"), 0o644))
	}

	files, err := FindFiles(root, ".hcl", ".yml", ".yaml")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.hcl", "nested/b.yml", "nested/deep/c.yaml"}, files)
}

func TestFindFiles_MissingRoot(t *testing.T) {
	_, err := FindFiles(filepath.Join(t.TempDir(), "nope"), ".hcl")
	assert.Error(t, err)
}

func TestFindFiles_PanicsWithoutExtensions(t *testing.T) {
	assert.Panics(t, func() { _, _ = FindFiles(".") })
}
