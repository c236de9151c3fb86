// Package router maps inbound messages to fetch/AI pipelines and
// formats the results for the reply channel. The router is stateless
// per request: a pure function from (command, arguments, quoted-media
// kind) to one pipeline, plus the replies around it.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clipbotio/clipbot/internal/classify"
	"github.com/clipbotio/clipbot/internal/fetch"
	"github.com/clipbotio/clipbot/internal/format"
	"github.com/clipbotio/clipbot/internal/gemini"
	"github.com/clipbotio/clipbot/internal/transport"
)

// Fetcher is the slice of the fetch service the router consumes.
type Fetcher interface {
	GetInfo(ctx context.Context, url string) (fetch.MediaInfo, error)
	Download(ctx context.Context, req fetch.DownloadRequest) (fetch.DownloadResult, error)
}

// AI is the slice of the AI gateway the router consumes.
type AI interface {
	Transcribe(ctx context.Context, data []byte, mimeType string) (string, error)
	Summarize(ctx context.Context, content string, purpose gemini.SummaryPurpose) (string, error)
	Describe(ctx context.Context, data []byte, mimeType, prompt string) (string, error)
	AnalyzeForYouTube(ctx context.Context, data []byte, mimeType, mediaKind string) (string, error)
	FreeformChat(ctx context.Context, query string) (string, error)
}

// Classifier resolves the media kind of a quoted payload. The detector
// argument carries the connection's native detection capability when
// the sender offers one, nil otherwise.
type Classifier interface {
	ClassifyWith(detector transport.QuotedKindDetector, payload *transport.QuotedPayload) classify.QuotedMediaInfo
}

// Config carries the router's policy knobs.
type Config struct {
	MaxAudioSendBytes int64
	MaxVideoSendBytes int64
	DefaultQuality    string
	// SendGrace is the pause between sending a media file and deleting
	// it, a scoped hold that lets the transport finish streaming. It
	// narrows but does not close the race with slow transports.
	SendGrace time.Duration
}

// Router dispatches commands. One Router serves all connections; it
// holds no per-request state.
type Router struct {
	logger     *slog.Logger
	fetcher    Fetcher
	ai         AI
	classifier Classifier
	cfg        Config

	sleep func(time.Duration)
	newID func() string
}

// New creates a Router over the given collaborators.
func New(log *slog.Logger, fetcher Fetcher, ai AI, classifier Classifier, cfg Config) *Router {
	if log == nil {
		log = slog.Default()
	}
	if cfg.DefaultQuality == "" {
		cfg.DefaultQuality = "720p"
	}
	return &Router{
		logger:     log.With(slog.String("service", "router")),
		fetcher:    fetcher,
		ai:         ai,
		classifier: classifier,
		cfg:        cfg,
		sleep:      time.Sleep,
		newID:      func() string { return uuid.NewString()[:8] },
	}
}

// urlCommands maps every URL-taking command token and alias to its
// canonical command.
var urlCommands = map[string]string{
	"info": "info", "i": "info",
	"mp3": "mp3", "audio": "mp3", "music": "mp3", "a": "mp3",
	"video": "video", "vid": "video", "v": "video", "mp4": "video",
	"transcribe": "transcribe",
	"analyze":    "analyze",
	"summary":    "summary",
	"smart":      "smart",
	"ytvideo":    "ytvideo",
	"ytaudio":    "ytaudio",
}

// Handle processes one inbound message end to end. No failure may
// terminate the handling task silently: the catch-all below still
// attempts to notify the chat, and tolerates that notification
// failing.
func (r *Router) Handle(ctx context.Context, sender transport.Sender, msg transport.IncomingMessage) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("message handler panicked",
				slog.String("chat_id", msg.ChatID),
				slog.Any("panic", rec))
			r.notifyBestEffort(ctx, sender, msg.ChatID, "Error: something went wrong handling that message.")
		}
	}()

	text := strings.TrimSpace(msg.Text)
	lower := strings.ToLower(text)

	switch lower {
	case "ping":
		r.reply(ctx, sender, msg, "Pong! AI features ready!")
		return
	case "help", "/help", "menu":
		r.send(ctx, sender, msg.ChatID, helpText)
		return
	}

	parts := strings.Fields(text)
	if len(parts) == 0 {
		return
	}
	command := strings.ToLower(parts[0])

	detector, _ := sender.(transport.QuotedKindDetector)
	quoted := r.classifier.ClassifyWith(detector, msg.Quoted)

	// Quoted-media commands take priority over URL parsing whenever a
	// quote is present.
	if quoted.Present && (command == "analyze" || command == "transcribe") {
		r.handleQuoted(ctx, sender, msg, command, quoted)
		return
	}

	if command == "ai" {
		if len(parts) < 2 {
			return
		}
		r.handleFreeformChat(ctx, sender, msg.ChatID, strings.Join(parts[1:], " "))
		return
	}

	canonical, known := urlCommands[command]
	if !known {
		return
	}

	if len(parts) < 2 {
		// analyze/transcribe with neither quote nor URL are dropped;
		// other URL commands get a usage hint instead of the silent
		// no-op the old behavior had.
		if canonical != "analyze" && canonical != "transcribe" {
			r.send(ctx, sender, msg.ChatID, fmt.Sprintf("Usage: %s <URL>", command))
		}
		return
	}

	url := parts[1]
	quality := r.cfg.DefaultQuality
	if len(parts) > 2 {
		quality = parts[2]
	}

	if !fetch.ValidURL(url) {
		r.send(ctx, sender, msg.ChatID, "Invalid URL! Use: https://...")
		return
	}

	requestID := r.newID()
	log := r.logger.With(
		slog.String("command", canonical),
		slog.String("chat_id", msg.ChatID),
		slog.String("request_id", requestID))
	log.Info("dispatching command", slog.String("url", url))

	switch canonical {
	case "info":
		r.handleInfo(ctx, sender, msg.ChatID, url)
	case "mp3":
		r.handleAudioDownload(ctx, sender, msg.ChatID, url, requestID)
	case "video":
		r.handleVideoDownload(ctx, sender, msg.ChatID, url, quality, requestID)
	case "transcribe":
		r.handleTranscribeURL(ctx, sender, msg.ChatID, url, requestID)
	case "analyze":
		r.handleAnalyzeURL(ctx, sender, msg.ChatID, url, quality, requestID)
	case "summary":
		r.handleSummary(ctx, sender, msg.ChatID, url, requestID)
	case "smart":
		r.handleSmart(ctx, sender, msg.ChatID, url, quality, requestID)
	case "ytvideo":
		r.handleYouTubeAnalysis(ctx, sender, msg.ChatID, url, fetch.KindVideo, requestID)
	case "ytaudio":
		r.handleYouTubeAnalysis(ctx, sender, msg.ChatID, url, fetch.KindAudio, requestID)
	}
}

// --- reply plumbing ---

func (r *Router) send(ctx context.Context, sender transport.Sender, chatID, text string) {
	if err := sender.SendText(ctx, chatID, text); err != nil {
		r.logger.Warn("send text failed",
			slog.String("chat_id", chatID),
			slog.Any("error", err))
	}
}

func (r *Router) reply(ctx context.Context, sender transport.Sender, msg transport.IncomingMessage, text string) {
	if err := sender.ReplyText(ctx, msg, text); err != nil {
		r.logger.Warn("reply failed",
			slog.String("chat_id", msg.ChatID),
			slog.Any("error", err))
	}
}

// notifyBestEffort tells the chat something went wrong. It must never
// crash the process, even when the chat identifier is unresolvable.
func (r *Router) notifyBestEffort(ctx context.Context, sender transport.Sender, chatID, text string) {
	defer func() {
		_ = recover()
	}()
	if sender == nil || chatID == "" {
		return
	}
	_ = sender.SendText(ctx, chatID, text)
}

// --- simple commands ---

func (r *Router) handleInfo(ctx context.Context, sender transport.Sender, chatID, url string) {
	r.send(ctx, sender, chatID, fmt.Sprintf("Getting info from %s...", fetch.PlatformName(url)))

	info, err := r.fetcher.GetInfo(ctx, url)
	if err != nil {
		r.send(ctx, sender, chatID, "Error: "+userMessage(err))
		return
	}
	r.send(ctx, sender, chatID, infoReply(info))
}

func (r *Router) handleFreeformChat(ctx context.Context, sender transport.Sender, chatID, query string) {
	r.send(ctx, sender, chatID, "Processing with AI...")

	answer, err := r.ai.FreeformChat(ctx, query)
	if err != nil {
		r.send(ctx, sender, chatID, "AI error: "+userMessage(err))
		return
	}
	r.send(ctx, sender, chatID, "*AI:*\n\n"+answer)
}

// --- media download commands ---

func (r *Router) handleAudioDownload(ctx context.Context, sender transport.Sender, chatID, url, requestID string) {
	r.send(ctx, sender, chatID, fmt.Sprintf("Downloading audio from %s...", fetch.PlatformName(url)))

	if info, err := r.fetcher.GetInfo(ctx, url); err == nil {
		r.send(ctx, sender, chatID, info.Title)
	}

	result, err := r.fetcher.Download(ctx, fetch.DownloadRequest{
		URL:       url,
		Kind:      fetch.KindAudio,
		Quality:   "best",
		ChatID:    chatID,
		RequestID: requestID,
	})
	if err != nil {
		r.send(ctx, sender, chatID, "Download failed: "+userMessage(err))
		return
	}

	r.sendMediaFile(ctx, sender, chatID, result, r.cfg.MaxAudioSendBytes)
}

func (r *Router) handleVideoDownload(ctx context.Context, sender transport.Sender, chatID, url, quality, requestID string) {
	r.send(ctx, sender, chatID, fmt.Sprintf("Downloading video from %s (%s)...", fetch.PlatformName(url), quality))

	if info, err := r.fetcher.GetInfo(ctx, url); err == nil {
		r.send(ctx, sender, chatID, info.Title)
	}

	result, err := r.fetcher.Download(ctx, fetch.DownloadRequest{
		URL:       url,
		Kind:      fetch.KindVideo,
		Quality:   quality,
		ChatID:    chatID,
		RequestID: requestID,
	})
	if err != nil {
		r.send(ctx, sender, chatID, "Download failed: "+userMessage(err))
		return
	}

	r.sendMediaFile(ctx, sender, chatID, result, r.cfg.MaxVideoSendBytes)
}

// sendMediaFile applies the size gate, sends the file, and removes it
// in every path. Only the sweep's age-based catch-all may outlive a
// failure here.
func (r *Router) sendMediaFile(ctx context.Context, sender transport.Sender, chatID string, result fetch.DownloadResult, maxBytes int64) {
	if result.SizeBytes > maxBytes {
		r.send(ctx, sender, chatID, fmt.Sprintf(
			"File too large (%s). Limit: %s",
			format.Size(result.SizeBytes), format.Size(maxBytes)))
		r.removeFile(result.FilePath)
		return
	}

	kindWord := "video"
	sendFn := sender.SendVideo
	if result.Kind == fetch.KindAudio {
		kindWord = "audio"
		sendFn = sender.SendAudio
	}

	r.send(ctx, sender, chatID, fmt.Sprintf("Sending %s (%s)...", kindWord, format.Size(result.SizeBytes)))
	if err := sendFn(ctx, chatID, result.FilePath); err != nil {
		r.send(ctx, sender, chatID, "Send failed: "+userMessage(err))
		r.removeFile(result.FilePath)
		return
	}
	r.send(ctx, sender, chatID, fmt.Sprintf("Sent! Size: %s", format.Size(result.SizeBytes)))

	r.sleep(r.cfg.SendGrace)
	r.removeFile(result.FilePath)
}

func (r *Router) removeFile(path string) {
	if err := fetch.Remove(path); err != nil {
		r.logger.Warn("cleanup failed", slog.String("path", path), slog.Any("error", err))
	}
}
