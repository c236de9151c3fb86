package fetch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, run runner) *Service {
	t.Helper()
	svc := NewService(nil, Config{
		Binary:      "yt-dlp",
		DownloadDir: t.TempDir(),
		Timeout:     time.Minute,
	})
	svc.run = run
	svc.now = func() time.Time {
		return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	}
	return svc
}

func TestGetInfo_FirstValidLineWins(t *testing.T) {
	t.Parallel()
	stdout := strings.Join([]string{
		"not json at all",
		`{"title":"First","uploader":"Alice","duration":90.7,"view_count":1500,"description":"d","webpage_url":"https://youtube.com/watch?v=1"}`,
		`{"title":"Second"}`,
	}, "\n")
	svc := newTestService(t, func(_ context.Context, _ string, _ ...string) (runResult, error) {
		return runResult{stdout: []byte(stdout)}, nil
	})

	info, err := svc.GetInfo(context.Background(), "https://youtube.com/watch?v=1")
	require.NoError(t, err)
	assert.Equal(t, "First", info.Title)
	assert.Equal(t, "Alice", info.Uploader)
	assert.Equal(t, int64(90), info.DurationSeconds)
	assert.Equal(t, int64(1500), info.ViewCount)
	assert.Equal(t, "YouTube", info.Platform)
}

func TestGetInfo_TruncatesLongFields(t *testing.T) {
	t.Parallel()
	record := fmt.Sprintf(`{"title":%q,"uploader":%q,"description":%q}`,
		strings.Repeat("t", 200), strings.Repeat("u", 100), strings.Repeat("d", 300))
	svc := newTestService(t, func(_ context.Context, _ string, _ ...string) (runResult, error) {
		return runResult{stdout: []byte(record)}, nil
	})

	info, err := svc.GetInfo(context.Background(), "https://example.com/x")
	require.NoError(t, err)
	assert.Len(t, info.Title, MaxTitleChars)
	assert.Len(t, info.Uploader, MaxUploaderChars)
	assert.Len(t, info.Description, MaxDescriptionChars)
}

func TestGetInfo_DefaultsForMissingFields(t *testing.T) {
	t.Parallel()
	svc := newTestService(t, func(_ context.Context, _ string, _ ...string) (runResult, error) {
		return runResult{stdout: []byte(`{}`)}, nil
	})

	info, err := svc.GetInfo(context.Background(), "https://example.com/x")
	require.NoError(t, err)
	assert.Equal(t, "Unknown Title", info.Title)
	assert.Equal(t, "Unknown", info.Uploader)
	assert.Equal(t, "https://example.com/x", info.CanonicalURL)
}

func TestGetInfo_EmptyOutput(t *testing.T) {
	t.Parallel()
	svc := newTestService(t, func(_ context.Context, _ string, _ ...string) (runResult, error) {
		return runResult{}, nil
	})

	_, err := svc.GetInfo(context.Background(), "https://example.com/x")
	assert.ErrorIs(t, err, ErrParse)
}

func TestGetInfo_NoParseableLine(t *testing.T) {
	t.Parallel()
	svc := newTestService(t, func(_ context.Context, _ string, _ ...string) (runResult, error) {
		return runResult{stdout: []byte("garbage\nmore garbage")}, nil
	})

	_, err := svc.GetInfo(context.Background(), "https://example.com/x")
	assert.ErrorIs(t, err, ErrParse)
}

func TestDownload_AudioHappyPath(t *testing.T) {
	t.Parallel()
	var gotArgs []string
	svc := newTestService(t, func(_ context.Context, _ string, args ...string) (runResult, error) {
		gotArgs = args
		// Recreate the file the tool would leave behind.
		template := args[len(args)-2]
		path := strings.Replace(template, ".%(ext)s", ".mp3", 1)
		require.NoError(t, os.WriteFile(path, []byte("audio-bytes"), 0o644))
		return runResult{}, nil
	})

	result, err := svc.Download(context.Background(), DownloadRequest{
		URL:       "https://youtube.com/watch?v=1",
		Kind:      KindAudio,
		Quality:   "best",
		ChatID:    "12345",
		RequestID: "abcd1234",
	})
	require.NoError(t, err)
	assert.Equal(t, KindAudio, result.Kind)
	assert.Equal(t, "mp3", result.Format)
	assert.Equal(t, int64(len("audio-bytes")), result.SizeBytes)
	assert.FileExists(t, result.FilePath)

	assert.Contains(t, gotArgs, "-x")
	assert.Contains(t, gotArgs, "--audio-format")
	assert.Contains(t, gotArgs, "--embed-metadata")
}

func TestDownload_VideoProbesExtensions(t *testing.T) {
	t.Parallel()
	svc := newTestService(t, func(_ context.Context, _ string, args ...string) (runResult, error) {
		template := args[len(args)-2]
		// The tool chose webm, not mp4.
		path := strings.Replace(template, ".%(ext)s", ".webm", 1)
		require.NoError(t, os.WriteFile(path, []byte("video"), 0o644))
		return runResult{}, nil
	})

	result, err := svc.Download(context.Background(), DownloadRequest{
		URL:       "https://example.com/v",
		Kind:      KindVideo,
		Quality:   "720p",
		ChatID:    "c1",
		RequestID: "r1",
	})
	require.NoError(t, err)
	assert.Equal(t, "webm", result.Format)
}

func TestDownload_MissingOutputFile(t *testing.T) {
	t.Parallel()
	svc := newTestService(t, func(_ context.Context, _ string, _ ...string) (runResult, error) {
		return runResult{}, nil
	})

	_, err := svc.Download(context.Background(), DownloadRequest{
		URL: "https://example.com/v", Kind: KindVideo, ChatID: "c", RequestID: "r",
	})
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, 0, toolErr.ExitCode)
}

func TestDownload_QualitySelector(t *testing.T) {
	t.Parallel()
	tests := []struct {
		quality string
		want    string
	}{
		{"worst", "worst"},
		{"480p", "best[height<=480]"},
		{"720p", "best[height<=720]"},
		{"1080p", "best[height<=1080]"},
		{"best", "best"},
		{"4k", "best[height<=720]"},
		{"", "best[height<=720]"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, qualitySelector(tt.quality), "quality %q", tt.quality)
	}
}

func TestInvoke_StderrClassification(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		stderr string
		want   error
	}{
		{"unsupported", "ERROR: Unsupported URL: https://x", ErrUnsupportedURL},
		{"unavailable", "ERROR: Video unavailable", ErrUnavailable},
		{"private", "ERROR: This video is private", ErrUnavailable},
		{"network", "ERROR: network is unreachable", ErrNetwork},
		{"connection", "ERROR: connection reset by peer", ErrNetwork},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, func(_ context.Context, _ string, _ ...string) (runResult, error) {
				return runResult{stderr: []byte(tt.stderr), exitCode: 1}, nil
			})
			_, err := svc.GetInfo(context.Background(), "https://example.com/x")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestInvoke_UnclassifiedStderrIsToolError(t *testing.T) {
	t.Parallel()
	svc := newTestService(t, func(_ context.Context, _ string, _ ...string) (runResult, error) {
		return runResult{stderr: []byte("ERROR: something else"), exitCode: 3}, nil
	})
	_, err := svc.GetInfo(context.Background(), "https://example.com/x")
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, 3, toolErr.ExitCode)
}

func TestInvoke_Timeout(t *testing.T) {
	t.Parallel()
	svc := NewService(nil, Config{
		Binary:      "yt-dlp",
		DownloadDir: t.TempDir(),
		Timeout:     time.Millisecond,
	})
	svc.run = func(ctx context.Context, _ string, _ ...string) (runResult, error) {
		<-ctx.Done()
		// CommandContext kills the process; the library reports a plain
		// non-zero exit, not a context error.
		return runResult{exitCode: -1}, nil
	}

	_, err := svc.GetInfo(context.Background(), "https://example.com/x")
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestSanitizeChatID(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "12345", sanitizeChatID("12345"))
	assert.Equal(t, "user_name-1", sanitizeChatID("user_name-1"))
	assert.Equal(t, "123456", sanitizeChatID("123@456"))
	assert.Equal(t, "unknown", sanitizeChatID(""))
	assert.Equal(t, "unknown", sanitizeChatID("@@@"))
}

func TestOutputTemplate_Composition(t *testing.T) {
	t.Parallel()
	svc := newTestService(t, nil)
	template := svc.outputTemplate(DownloadRequest{
		Kind:      KindAudio,
		ChatID:    "123@456",
		RequestID: "req1",
	})
	assert.Equal(t,
		filepath.Join(svc.cfg.DownloadDir, "audio_123456_20250601_120000_req1.%(ext)s"),
		template)
}

func TestExecRun_MissingBinary(t *testing.T) {
	t.Parallel()
	_, err := execRun(context.Background(), "definitely-not-a-real-binary-xyz")
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrTimeout))
}
