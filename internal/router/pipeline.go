package router

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/clipbotio/clipbot/internal/classify"
	"github.com/clipbotio/clipbot/internal/fetch"
	"github.com/clipbotio/clipbot/internal/format"
	"github.com/clipbotio/clipbot/internal/gemini"
	"github.com/clipbotio/clipbot/internal/transport"
)

// Bounded prefixes read from downloaded files before inlining them
// into an AI request.
const (
	analysisVideoPrefixBytes = 5 * 1024 * 1024
	youtubeVideoPrefixBytes  = 10 * 1024 * 1024
)

// AIResult is the outcome of one AI step.
type AIResult struct {
	OK   bool
	Text string
	Err  error
}

func aiOK(text string) *AIResult { return &AIResult{OK: true, Text: text} }

func aiErr(err error) *AIResult { return &AIResult{Err: err} }

func (a *AIResult) failed() bool { return a != nil && !a.OK }

func (a *AIResult) succeeded() bool { return a != nil && a.OK }

// PipelineOutcome aggregates the metadata and the per-step AI results
// of one multi-step pipeline. It lives for a single request.
type PipelineOutcome struct {
	Info          fetch.MediaInfo
	Transcription *AIResult
	Summary       *AIResult
	Analysis      *AIResult
	// VideoFile is the analysis download, kept on disk so `smart` can
	// try to send it. The caller owns the file.
	VideoFile *fetch.DownloadResult
}

type aiFeatures struct {
	transcribe bool
	summarize  bool
	analyze    bool
}

// runWithAI mirrors the download-then-AI pipeline: metadata first,
// then an audio branch (transcription, optionally chained summary) and
// an independent video-analysis branch. A later step runs only when
// its direct predecessor succeeded, but completed results are always
// kept for the aggregated reply.
func (r *Router) runWithAI(ctx context.Context, chatID, url, quality, requestID string, features aiFeatures) (PipelineOutcome, error) {
	info, err := r.fetcher.GetInfo(ctx, url)
	if err != nil {
		return PipelineOutcome{}, fmt.Errorf("get media info: %w", err)
	}
	outcome := PipelineOutcome{Info: info}

	if features.transcribe || features.summarize {
		r.runAudioBranch(ctx, chatID, url, requestID, features, &outcome)
	}
	if features.analyze {
		r.runVideoBranch(ctx, chatID, url, quality, requestID, &outcome)
	}
	return outcome, nil
}

func (r *Router) runAudioBranch(ctx context.Context, chatID, url, requestID string, features aiFeatures, outcome *PipelineOutcome) {
	audio, err := r.fetcher.Download(ctx, fetch.DownloadRequest{
		URL:       url,
		Kind:      fetch.KindAudio,
		Quality:   "best",
		ChatID:    chatID,
		RequestID: requestID,
	})
	if err != nil {
		outcome.Transcription = aiErr(fmt.Errorf("download audio: %w", err))
		return
	}
	defer r.removeFile(audio.FilePath)

	data, err := fetch.ReadPrefix(audio.FilePath, 0)
	if err != nil {
		outcome.Transcription = aiErr(fmt.Errorf("read audio file: %w", err))
		return
	}

	transcription, err := r.ai.Transcribe(ctx, data, "audio/mp3")
	if err != nil {
		outcome.Transcription = aiErr(err)
		return
	}
	outcome.Transcription = aiOK(transcription)

	// Summary is chained: only attempted on a successful transcription.
	if features.summarize {
		summary, err := r.ai.Summarize(ctx, transcription, gemini.PurposeTranscription)
		if err != nil {
			outcome.Summary = aiErr(err)
			return
		}
		outcome.Summary = aiOK(summary)
	}
}

func (r *Router) runVideoBranch(ctx context.Context, chatID, url, quality, requestID string, outcome *PipelineOutcome) {
	video, err := r.fetcher.Download(ctx, fetch.DownloadRequest{
		URL:       url,
		Kind:      fetch.KindVideo,
		Quality:   quality,
		ChatID:    chatID,
		RequestID: requestID,
	})
	if err != nil {
		outcome.Analysis = aiErr(fmt.Errorf("download video: %w", err))
		return
	}

	data, err := fetch.ReadPrefix(video.FilePath, analysisVideoPrefixBytes)
	if err != nil {
		outcome.Analysis = aiErr(fmt.Errorf("read video file: %w", err))
		r.removeFile(video.FilePath)
		return
	}

	analysis, err := r.ai.Describe(ctx, data, "video/mp4", "Analyze this video content")
	if err != nil {
		outcome.Analysis = aiErr(err)
		r.removeFile(video.FilePath)
		return
	}
	outcome.Analysis = aiOK(analysis)
	outcome.VideoFile = &video
}

// --- URL pipeline commands ---

func (r *Router) handleTranscribeURL(ctx context.Context, sender transport.Sender, chatID, url, requestID string) {
	r.send(ctx, sender, chatID, fmt.Sprintf("Downloading and transcribing from %s...", fetch.PlatformName(url)))

	outcome, err := r.runWithAI(ctx, chatID, url, "", requestID, aiFeatures{transcribe: true})
	if err != nil {
		r.send(ctx, sender, chatID, "Download failed: "+userMessage(err))
		return
	}
	if outcome.Transcription.failed() {
		r.send(ctx, sender, chatID, "Transcription failed: "+userMessage(outcome.Transcription.Err))
		return
	}
	r.send(ctx, sender, chatID, fmt.Sprintf("*%s*\n%s | %s\n\n*Transcription:*\n%s",
		outcome.Info.Title, outcome.Info.Uploader, outcome.Info.Platform,
		outcome.Transcription.Text))
}

func (r *Router) handleSummary(ctx context.Context, sender transport.Sender, chatID, url, requestID string) {
	r.send(ctx, sender, chatID, fmt.Sprintf("Downloading and summarizing from %s...", fetch.PlatformName(url)))

	outcome, err := r.runWithAI(ctx, chatID, url, "", requestID, aiFeatures{transcribe: true, summarize: true})
	if err != nil {
		r.send(ctx, sender, chatID, "Download failed: "+userMessage(err))
		return
	}
	// Surface the step that actually failed, not a generic failure.
	if outcome.Transcription.failed() {
		r.send(ctx, sender, chatID, "Transcription failed: "+userMessage(outcome.Transcription.Err))
		return
	}
	if outcome.Summary.failed() {
		r.send(ctx, sender, chatID, "Summary failed: "+userMessage(outcome.Summary.Err))
		return
	}
	if outcome.Summary == nil {
		r.send(ctx, sender, chatID, "Summary failed: no summary produced")
		return
	}
	r.send(ctx, sender, chatID, fmt.Sprintf("*%s*\n%s | %s\n\n*AI Summary:*\n%s",
		outcome.Info.Title, outcome.Info.Uploader, outcome.Info.Platform,
		outcome.Summary.Text))
}

func (r *Router) handleAnalyzeURL(ctx context.Context, sender transport.Sender, chatID, url, quality, requestID string) {
	r.send(ctx, sender, chatID, fmt.Sprintf("Analyzing content from %s...", fetch.PlatformName(url)))

	outcome, err := r.runWithAI(ctx, chatID, url, quality, requestID, aiFeatures{analyze: true})
	if err != nil {
		r.send(ctx, sender, chatID, "Download failed: "+userMessage(err))
		return
	}
	if outcome.VideoFile != nil {
		defer r.removeFile(outcome.VideoFile.FilePath)
	}
	if outcome.Analysis.failed() {
		r.send(ctx, sender, chatID, "Analysis failed: "+userMessage(outcome.Analysis.Err))
		return
	}
	r.send(ctx, sender, chatID, fmt.Sprintf("*%s*\n%s | %s\n\n*AI Analysis:*\n%s",
		outcome.Info.Title, outcome.Info.Uploader, outcome.Info.Platform,
		outcome.Analysis.Text))
}

func (r *Router) handleSmart(ctx context.Context, sender transport.Sender, chatID, url, quality, requestID string) {
	r.send(ctx, sender, chatID, fmt.Sprintf("Full AI processing from %s...", fetch.PlatformName(url)))

	outcome, err := r.runWithAI(ctx, chatID, url, quality, requestID,
		aiFeatures{transcribe: true, summarize: true, analyze: true})
	if err != nil {
		r.send(ctx, sender, chatID, "Smart processing failed: "+userMessage(err))
		return
	}

	r.send(ctx, sender, chatID, smartReply(outcome))

	if outcome.VideoFile != nil {
		r.sendMediaFile(ctx, sender, chatID, *outcome.VideoFile, r.cfg.MaxVideoSendBytes)
	}
}

func (r *Router) handleYouTubeAnalysis(ctx context.Context, sender transport.Sender, chatID, url string, kind fetch.MediaKind, requestID string) {
	word := "video"
	if kind == fetch.KindAudio {
		word = "audio"
	}
	r.send(ctx, sender, chatID, fmt.Sprintf("Analyzing %s for YouTube content from %s...", word, fetch.PlatformName(url)))

	info, err := r.fetcher.GetInfo(ctx, url)
	if err != nil {
		r.send(ctx, sender, chatID, fmt.Sprintf("YouTube %s analysis failed: %s", word, userMessage(err)))
		return
	}

	// The file exists only to be sampled by the AI, so worst quality
	// suffices.
	result, err := r.fetcher.Download(ctx, fetch.DownloadRequest{
		URL:       url,
		Kind:      kind,
		Quality:   "worst",
		ChatID:    chatID,
		RequestID: requestID,
	})
	if err != nil {
		r.send(ctx, sender, chatID, fmt.Sprintf("YouTube %s analysis failed: %s", word, userMessage(err)))
		return
	}
	defer r.removeFile(result.FilePath)

	var prefix int64
	mimeType := "audio/mp3"
	if kind == fetch.KindVideo {
		prefix = youtubeVideoPrefixBytes
		mimeType = "video/mp4"
	}
	data, err := fetch.ReadPrefix(result.FilePath, prefix)
	if err != nil {
		r.send(ctx, sender, chatID, fmt.Sprintf("YouTube %s analysis failed: %s", word, userMessage(err)))
		return
	}

	analysis, err := r.ai.AnalyzeForYouTube(ctx, data, mimeType, word)
	if err != nil {
		r.send(ctx, sender, chatID, fmt.Sprintf("YouTube %s analysis failed: %s", word, userMessage(err)))
		return
	}

	r.send(ctx, sender, chatID, fmt.Sprintf(
		"*Original: %s*\n%s | %s\nDuration: %s\n\n*YOUTUBE CONTENT ANALYSIS:*\n\n%s",
		info.Title, info.Uploader, info.Platform,
		format.Duration(info.DurationSeconds),
		analysis))
}

// --- quoted-media commands ---

func (r *Router) handleQuoted(ctx context.Context, sender transport.Sender, msg transport.IncomingMessage, command string, quoted classify.QuotedMediaInfo) {
	kind := quoted.Kind
	r.logger.Info("processing quoted media",
		slog.String("command", command),
		slog.String("kind", string(kind)),
		slog.String("chat_id", msg.ChatID))

	switch command {
	case "transcribe":
		if kind != classify.KindAudio && kind != classify.KindVideo {
			r.send(ctx, sender, msg.ChatID, fmt.Sprintf(
				"Transcription only supports audio and video. Detected: %s", kind))
			return
		}
		r.send(ctx, sender, msg.ChatID, fmt.Sprintf("Transcribing %s...", kind))
	case "analyze":
		if kind != classify.KindAudio && kind != classify.KindVideo && kind != classify.KindImage {
			r.send(ctx, sender, msg.ChatID, fmt.Sprintf(
				"Analysis supports audio, video, and image. Detected: %s", kind))
			return
		}
		r.send(ctx, sender, msg.ChatID, fmt.Sprintf("Analyzing %s...", kind))
	}

	resolver, ok := sender.(transport.QuotedMediaResolver)
	if !ok {
		r.send(ctx, sender, msg.ChatID, "This transport cannot fetch quoted media.")
		return
	}

	data, mimeType, err := resolver.ResolveQuotedMedia(ctx, quoted.Section)
	if err != nil || len(data) == 0 {
		r.logger.Warn("quoted media resolution failed",
			slog.String("kind", string(kind)),
			slog.Any("error", err))
		// An image whose full bytes are gone may still carry an inline
		// preview JPEG worth analyzing.
		if kind == classify.KindImage && quoted.Section != nil && len(quoted.Section.Thumbnail) > 0 {
			data, mimeType = quoted.Section.Thumbnail, "image/jpeg"
		} else {
			r.send(ctx, sender, msg.ChatID, fmt.Sprintf(
				"Cannot download the quoted %s. It may be too old or no longer available.", kind))
			return
		}
	}
	if mimeType == "" {
		mimeType = defaultMime(kind)
	}

	switch command {
	case "transcribe":
		if kind == classify.KindVideo {
			r.send(ctx, sender, msg.ChatID, "Extracting audio from video for transcription...")
		}
		text, err := r.ai.Transcribe(ctx, data, mimeType)
		if err != nil {
			r.send(ctx, sender, msg.ChatID, "Transcription failed: "+userMessage(err))
			return
		}
		r.send(ctx, sender, msg.ChatID, fmt.Sprintf("*%s Transcription:*\n\n%s", titleKind(kind), text))

	case "analyze":
		text, err := r.ai.Describe(ctx, data, mimeType, quotedAnalysisPrompt(kind))
		if err != nil {
			r.send(ctx, sender, msg.ChatID, "Analysis failed: "+userMessage(err))
			return
		}
		r.send(ctx, sender, msg.ChatID, fmt.Sprintf("*%s Analysis:*\n\n%s", titleKind(kind), text))
	}
}

func defaultMime(kind classify.Kind) string {
	switch kind {
	case classify.KindAudio:
		return "audio/ogg"
	case classify.KindVideo:
		return "video/mp4"
	case classify.KindImage:
		return "image/jpeg"
	case classify.KindDocument:
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}
