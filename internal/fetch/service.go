// Package fetch resolves URLs to media metadata and files by driving
// an external download tool (yt-dlp). Exit code 0 plus a locatable
// output file is the only success signal.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/clipbotio/clipbot/internal/format"
)

// Config carries the tool invocation settings.
type Config struct {
	Binary      string
	DownloadDir string
	Timeout     time.Duration
}

// runResult is the captured outcome of one tool invocation.
type runResult struct {
	stdout   []byte
	stderr   []byte
	exitCode int
}

// runner abstracts subprocess execution for tests.
type runner func(ctx context.Context, binary string, args ...string) (runResult, error)

// Service invokes the download tool. Safe for concurrent use: every
// request writes to a unique output path and no state is shared.
type Service struct {
	logger *slog.Logger
	cfg    Config
	run    runner
	now    func() time.Time
}

// NewService creates a fetch service for the given tool config.
func NewService(log *slog.Logger, cfg Config) *Service {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Binary == "" {
		cfg.Binary = "yt-dlp"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Minute
	}
	return &Service{
		logger: log.With(slog.String("service", "fetch")),
		cfg:    cfg,
		run:    execRun,
		now:    time.Now,
	}
}

// ToolAvailable reports whether the download tool binary is on PATH.
func (s *Service) ToolAvailable() bool {
	_, err := exec.LookPath(s.cfg.Binary)
	return err == nil
}

// GetInfo fetches metadata for url in dump-json mode. Some tool
// versions emit one JSON record per playlist entry even with
// --no-playlist; the first parseable line wins and the rest are
// ignored.
func (s *Service) GetInfo(ctx context.Context, url string) (MediaInfo, error) {
	s.logger.Info("getting media info", slog.String("url", url))

	res, err := s.invoke(ctx, "--dump-json", "--no-warnings", "--no-playlist", url)
	if err != nil {
		return MediaInfo{}, err
	}

	stdout := strings.TrimSpace(string(res.stdout))
	if stdout == "" {
		return MediaInfo{}, fmt.Errorf("%w: tool returned empty output", ErrParse)
	}

	var record infoRecord
	parsed := false
	for _, line := range strings.Split(stdout, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			s.logger.Warn("skipping malformed metadata line", slog.Any("error", err))
			continue
		}
		parsed = true
		break
	}
	if !parsed {
		return MediaInfo{}, fmt.Errorf("%w: no parseable record in tool output", ErrParse)
	}

	return record.toMediaInfo(url), nil
}

// Download extracts audio or video for req.URL into the download
// directory and returns the located output file.
func (s *Service) Download(ctx context.Context, req DownloadRequest) (DownloadResult, error) {
	s.logger.Info("downloading media",
		slog.String("url", req.URL),
		slog.String("kind", string(req.Kind)),
		slog.String("quality", req.Quality),
		slog.String("request_id", req.RequestID))

	template := s.outputTemplate(req)
	var args []string
	if req.Kind == KindAudio {
		args = []string{
			"-x",
			"--audio-format", "mp3",
			"--audio-quality", "0",
			"--no-warnings",
			"--no-playlist",
			"--embed-metadata",
			"-o", template,
			req.URL,
		}
	} else {
		args = []string{
			"-f", qualitySelector(req.Quality),
			"--no-warnings",
			"--no-playlist",
			"--embed-metadata",
			"-o", template,
			req.URL,
		}
	}

	if _, err := s.invoke(ctx, args...); err != nil {
		return DownloadResult{}, err
	}

	// The tool picks the final container, so probe the plausible
	// extensions instead of trusting the template.
	path, ok := probeOutput(template, req.Kind)
	if !ok {
		return DownloadResult{}, &ToolError{ExitCode: 0, Stderr: "downloaded file not found"}
	}

	stat, err := os.Stat(path)
	if err != nil {
		return DownloadResult{}, &ToolError{ExitCode: 0, Stderr: fmt.Sprintf("stat output file: %v", err)}
	}

	result := DownloadResult{
		FilePath:  path,
		SizeBytes: stat.Size(),
		Format:    strings.TrimPrefix(filepath.Ext(path), "."),
		Kind:      req.Kind,
	}
	s.logger.Info("download complete",
		slog.String("path", result.FilePath),
		slog.Int64("size_bytes", result.SizeBytes))
	return result, nil
}

func (s *Service) outputTemplate(req DownloadRequest) string {
	name := fmt.Sprintf("%s_%s_%s_%s.%%(ext)s",
		req.Kind,
		sanitizeChatID(req.ChatID),
		s.now().Format("20060102_150405"),
		req.RequestID)
	return filepath.Join(s.cfg.DownloadDir, name)
}

func (s *Service) invoke(ctx context.Context, args ...string) (runResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	res, err := s.run(ctx, s.cfg.Binary, args...)
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return res, fmt.Errorf("%w after %s", ErrTimeout, s.cfg.Timeout)
	}
	if err != nil {
		return res, &ToolError{ExitCode: -1, Stderr: err.Error()}
	}
	if res.exitCode != 0 {
		return res, classifyStderr(res)
	}
	return res, nil
}

// classifyStderr maps the tool's error output to a distinguishable
// error kind for user messaging.
func classifyStderr(res runResult) error {
	stderr := string(res.stderr)
	lower := strings.ToLower(stderr)
	switch {
	case strings.Contains(lower, "unsupported url"):
		return fmt.Errorf("%w: %s", ErrUnsupportedURL, format.Truncate(stderr, 200))
	case strings.Contains(lower, "video unavailable"), strings.Contains(lower, "private"):
		return fmt.Errorf("%w: %s", ErrUnavailable, format.Truncate(stderr, 200))
	case strings.Contains(lower, "network"), strings.Contains(lower, "connection"):
		return fmt.Errorf("%w: %s", ErrNetwork, format.Truncate(stderr, 200))
	default:
		return &ToolError{ExitCode: res.exitCode, Stderr: format.Truncate(stderr, 500)}
	}
}

// qualityFormats is the fixed selector table; unrecognized selectors
// fall back to 720p.
var qualityFormats = map[string]string{
	"worst": "worst",
	"480p":  "best[height<=480]",
	"720p":  "best[height<=720]",
	"1080p": "best[height<=1080]",
	"best":  "best",
}

func qualitySelector(quality string) string {
	if selector, ok := qualityFormats[quality]; ok {
		return selector
	}
	return qualityFormats["720p"]
}

var videoExtensions = []string{".mp4", ".webm", ".mkv", ".avi", ".mov"}

func probeOutput(template string, kind MediaKind) (string, bool) {
	exts := videoExtensions
	if kind == KindAudio {
		exts = []string{".mp3"}
	}
	for _, ext := range exts {
		candidate := strings.Replace(template, ".%(ext)s", ext, 1)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
	}
	return "", false
}

func sanitizeChatID(chatID string) string {
	if chatID == "" {
		return "unknown"
	}
	var b strings.Builder
	for _, r := range chatID {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "unknown"
	}
	return b.String()
}

type infoRecord struct {
	Title       string  `json:"title"`
	Uploader    string  `json:"uploader"`
	Duration    float64 `json:"duration"`
	ViewCount   int64   `json:"view_count"`
	Thumbnail   string  `json:"thumbnail"`
	Description string  `json:"description"`
	WebpageURL  string  `json:"webpage_url"`
}

func (r infoRecord) toMediaInfo(url string) MediaInfo {
	info := MediaInfo{
		Title:           format.Truncate(r.Title, MaxTitleChars),
		Uploader:        format.Truncate(r.Uploader, MaxUploaderChars),
		DurationSeconds: int64(r.Duration),
		ViewCount:       r.ViewCount,
		Platform:        PlatformName(url),
		ThumbnailURL:    r.Thumbnail,
		Description:     format.Truncate(r.Description, MaxDescriptionChars),
		CanonicalURL:    r.WebpageURL,
	}
	if info.Title == "" {
		info.Title = "Unknown Title"
	}
	if info.Uploader == "" {
		info.Uploader = "Unknown"
	}
	if info.CanonicalURL == "" {
		info.CanonicalURL = url
	}
	return info
}

func execRun(ctx context.Context, binary string, args ...string) (runResult, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := runResult{stdout: stdout.Bytes(), stderr: stderr.Bytes()}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.exitCode = exitErr.ExitCode()
			return res, nil
		}
		return res, err
	}
	return res, nil
}
