package fetch

// MediaKind selects the extraction mode of a download.
type MediaKind string

const (
	KindAudio MediaKind = "audio"
	KindVideo MediaKind = "video"
)

// Display truncation lengths for metadata fields.
const (
	MaxTitleChars       = 80
	MaxUploaderChars    = 30
	MaxDescriptionChars = 150
)

// MediaInfo is the parsed metadata for a URL. String fields are
// already truncated to their display lengths; numeric fields are zero
// when the tool did not report them.
type MediaInfo struct {
	Title           string
	Uploader        string
	DurationSeconds int64
	ViewCount       int64
	Platform        string
	ThumbnailURL    string
	Description     string
	CanonicalURL    string
}

// DownloadRequest describes one extraction run.
type DownloadRequest struct {
	URL     string
	Kind    MediaKind
	Quality string
	// ChatID scopes the output filename; it is sanitized before use.
	ChatID string
	// RequestID makes the filename unique across concurrent requests
	// in the same chat.
	RequestID string
}

// DownloadResult points at a file that exists on disk at return time.
// The caller owns the file and must delete it after use; the age-based
// sweep may still reclaim it if processing stalls past the retention
// window.
type DownloadResult struct {
	FilePath  string
	SizeBytes int64
	Format    string
	Kind      MediaKind
}
