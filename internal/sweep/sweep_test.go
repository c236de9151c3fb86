package sweep_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipbotio/clipbot/internal/sweep"
)

func writeAged(t *testing.T, dir, name string, age time.Duration) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	mtime := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(path, mtime, mtime))
	return path
}

func TestSweepOnce_RemovesOnlyStaleFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	stale := writeAged(t, dir, "video_old.mp4", 25*time.Hour)
	fresh := writeAged(t, dir, "audio_new.mp3", time.Hour)

	s := sweep.New(nil, []string{dir}, 24*time.Hour, "@hourly")
	removed := s.SweepOnce(time.Now())

	assert.Equal(t, 1, removed)
	assert.NoFileExists(t, stale)
	assert.FileExists(t, fresh)
}

func TestSweepOnce_SkipsDirectories(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.Mkdir(sub, 0o755))
	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(sub, old, old))

	s := sweep.New(nil, []string{dir}, 24*time.Hour, "@hourly")
	assert.Equal(t, 0, s.SweepOnce(time.Now()))
	assert.DirExists(t, sub)
}

func TestSweepOnce_MissingDirectoryTolerated(t *testing.T) {
	t.Parallel()
	s := sweep.New(nil, []string{filepath.Join(t.TempDir(), "absent")}, 24*time.Hour, "@hourly")
	assert.Equal(t, 0, s.SweepOnce(time.Now()))
}

func TestSweepOnce_MultipleDirs(t *testing.T) {
	t.Parallel()
	downloads := t.TempDir()
	temp := t.TempDir()
	writeAged(t, downloads, "a.mp3", 30*time.Hour)
	writeAged(t, temp, "b.mp4", 30*time.Hour)

	s := sweep.New(nil, []string{downloads, temp}, 24*time.Hour, "@hourly")
	assert.Equal(t, 2, s.SweepOnce(time.Now()))
}

func TestStartStop(t *testing.T) {
	t.Parallel()
	s := sweep.New(nil, []string{t.TempDir()}, 24*time.Hour, "@hourly")
	require.NoError(t, s.Start())
	s.Stop()
}

func TestStart_BadSpec(t *testing.T) {
	t.Parallel()
	s := sweep.New(nil, []string{t.TempDir()}, 24*time.Hour, "not a cron spec")
	assert.Error(t, s.Start())
}
