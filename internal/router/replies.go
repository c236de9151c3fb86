package router

import (
	"errors"
	"fmt"
	"strings"

	"github.com/clipbotio/clipbot/internal/classify"
	"github.com/clipbotio/clipbot/internal/fetch"
	"github.com/clipbotio/clipbot/internal/format"
	"github.com/clipbotio/clipbot/internal/gemini"
)

const smartTranscriptionDisplayChars = 500

const helpText = `*Universal Media Downloader + AI*

*Download Commands:*
- mp3 <URL> - Download audio (MP3)
- video <URL> [quality] - Download video
- info <URL> - Get media information

*AI-Powered Commands:*
- transcribe <URL> - Audio transcription
- summary <URL> - AI content summary
- analyze <URL> - Full AI analysis
- smart <URL> - Download + transcribe + summary

*YouTube Content Commands:*
- ytvideo <URL> - Analyze video for YouTube
- ytaudio <URL> - Analyze audio for YouTube

*Media Analysis (reply to media):*
- analyze - Analyze quoted media with AI
- transcribe - Transcribe quoted audio/video

*Freeform:*
- ai <question> - Chat with the AI

Qualities: worst, 480p, 720p, 1080p, best (default 720p).
Supported: YouTube, TikTok, Instagram, Facebook, Twitter,
SoundCloud, Vimeo, Twitch, and 1000+ other platforms.`

func infoReply(info fetch.MediaInfo) string {
	return fmt.Sprintf(`*%s*

Creator: %s
Platform: %s
Duration: %s
Views: %s

Description:
%s`,
		info.Title,
		info.Uploader,
		info.Platform,
		format.Duration(info.DurationSeconds),
		format.Count(info.ViewCount),
		info.Description)
}

// smartReply aggregates every completed step. Failed or skipped steps
// are simply absent; the independent branches report what they have.
func smartReply(outcome PipelineOutcome) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s*\n%s | %s\nDuration: %s\nViews: %s\n",
		outcome.Info.Title,
		outcome.Info.Uploader,
		outcome.Info.Platform,
		format.Duration(outcome.Info.DurationSeconds),
		format.Count(outcome.Info.ViewCount))

	if outcome.Transcription.succeeded() {
		text := outcome.Transcription.Text
		if len([]rune(text)) > smartTranscriptionDisplayChars {
			text = format.Truncate(text, smartTranscriptionDisplayChars) + "...\n\n[transcription truncated]"
		}
		fmt.Fprintf(&b, "\n*Transcription:*\n%s\n", text)
	}
	if outcome.Summary.succeeded() {
		fmt.Fprintf(&b, "\n*AI Summary:*\n%s\n", outcome.Summary.Text)
	}
	if outcome.Analysis.succeeded() {
		fmt.Fprintf(&b, "\n*Video Analysis:*\n%s\n", outcome.Analysis.Text)
	}
	return b.String()
}

func quotedAnalysisPrompt(kind classify.Kind) string {
	switch kind {
	case classify.KindAudio:
		return "Analyze this audio content. Describe what you hear, identify the type of content (music, speech, etc.), and provide insights."
	case classify.KindVideo:
		return "Analyze this video content. Describe what you see and hear, identify the type of content, and provide insights."
	case classify.KindImage:
		return "Analyze this image in detail. Describe what you see, identify objects, people, text, and provide insights."
	default:
		return "Analyze this media content and provide insights."
	}
}

func titleKind(kind classify.Kind) string {
	s := string(kind)
	if s == "" {
		return "Media"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// userMessage maps an error to the plain-language line shown in chat.
func userMessage(err error) string {
	if err == nil {
		return "unknown error"
	}

	var toolErr *fetch.ToolError
	var statusErr *gemini.StatusError
	switch {
	case errors.Is(err, fetch.ErrUnsupportedURL):
		return "URL not supported by the downloader"
	case errors.Is(err, fetch.ErrUnavailable):
		return "media is unavailable or private"
	case errors.Is(err, fetch.ErrNetwork):
		return "network connection error"
	case errors.Is(err, fetch.ErrParse):
		return "could not read media information"
	case errors.Is(err, fetch.ErrTimeout):
		return "the download took too long and was aborted"
	case errors.As(err, &toolErr):
		return fmt.Sprintf("the downloader failed (exit %d)", toolErr.ExitCode)
	case errors.As(err, &statusErr):
		return fmt.Sprintf("AI error: status %d", statusErr.Code)
	case errors.Is(err, gemini.ErrResponseShape):
		return "failed to parse AI response"
	case errors.Is(err, gemini.ErrTimeout):
		return "the AI call took too long and was aborted"
	case errors.Is(err, gemini.ErrTransport):
		return "AI endpoint unreachable"
	default:
		return err.Error()
	}
}
