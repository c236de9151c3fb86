package format_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/clipbotio/clipbot/internal/format"
)

func TestSize(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "0.0 B", format.Size(0))
	assert.Equal(t, "512.0 B", format.Size(512))
	assert.Equal(t, "1.0 KB", format.Size(1024))
	assert.Equal(t, "1.5 MB", format.Size(3*1024*1024/2))
	assert.Equal(t, "2.0 GB", format.Size(2*1024*1024*1024))
}

func TestDuration(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "Unknown", format.Duration(0))
	assert.Equal(t, "Unknown", format.Duration(-5))
	assert.Equal(t, "45s", format.Duration(45))
	assert.Equal(t, "2m 5s", format.Duration(125))
	assert.Equal(t, "1h 1m", format.Duration(3690))
}

func TestCount(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "0", format.Count(0))
	assert.Equal(t, "999", format.Count(999))
	assert.Equal(t, "1.5K", format.Count(1500))
	assert.Equal(t, "2.3M", format.Count(2_300_000))
}

func TestTruncate(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "abc", format.Truncate("abc", 10))
	assert.Equal(t, "abc", format.Truncate("abcdef", 3))
	assert.Equal(t, "", format.Truncate("abc", 0))

	// Rune-safe: multi-byte characters are never split.
	multi := strings.Repeat("é", 10)
	assert.Equal(t, strings.Repeat("é", 4), format.Truncate(multi, 4))
}
