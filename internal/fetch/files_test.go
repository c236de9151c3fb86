package fetch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemove_Idempotent(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "media.mp3")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	assert.NoError(t, Remove(path))
	assert.NoFileExists(t, path)
	// Second removal races with the sweep in production; it must stay
	// silent.
	assert.NoError(t, Remove(path))
	assert.NoError(t, Remove(""))
}

func TestReadPrefix(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "media.bin")
	require.NoError(t, os.WriteFile(path, []byte("0123456789"), 0o644))

	full, err := ReadPrefix(path, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte("0123456789"), full)

	prefix, err := ReadPrefix(path, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte("0123"), prefix)

	over, err := ReadPrefix(path, 100)
	require.NoError(t, err)
	assert.Equal(t, []byte("0123456789"), over)

	_, err = ReadPrefix(filepath.Join(t.TempDir(), "missing"), 4)
	assert.Error(t, err)
}
