package fetch

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedURL indicates the download tool does not recognize the URL.
	ErrUnsupportedURL = errors.New("url not supported by the download tool")
	// ErrUnavailable indicates the media is private, removed, or otherwise gone.
	ErrUnavailable = errors.New("media unavailable or private")
	// ErrNetwork indicates a network-level failure reported by the tool.
	ErrNetwork = errors.New("network connection error")
	// ErrParse indicates the tool's metadata output could not be parsed.
	ErrParse = errors.New("cannot parse media information")
	// ErrTimeout indicates the tool invocation exceeded its deadline.
	ErrTimeout = errors.New("download tool timed out")
)

// ToolError carries raw exit information from a failed tool run, or
// from a zero-exit run whose expected output file never appeared.
type ToolError struct {
	ExitCode int
	Stderr   string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("download tool failed (exit %d): %s", e.ExitCode, e.Stderr)
}
