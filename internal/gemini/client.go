// Package gemini adapts the generative-AI HTTP endpoint: one POST per
// call, binary payloads inlined as base64, no batching, no streaming,
// no retries. Every call is independent and stateless.
package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// Config carries the endpoint settings. The API key is a deployment
// secret passed as a query parameter, per the provider's contract.
type Config struct {
	APIKey        string
	Model         string
	BaseURL       string
	Timeout       time.Duration
	ReplyLanguage string
}

// Client talks to the generative-AI endpoint.
type Client struct {
	logger     *slog.Logger
	cfg        Config
	httpClient *http.Client
}

// NewClient creates a Gemini client for the given config.
func NewClient(log *slog.Logger, cfg Config) *Client {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	if cfg.ReplyLanguage == "" {
		cfg.ReplyLanguage = "Indonesian"
	}
	return &Client{
		logger:     log.With(slog.String("service", "gemini")),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// Transcribe asks for a verbatim transcription of audio or video
// bytes, in the source language.
func (c *Client) Transcribe(ctx context.Context, data []byte, mimeType string) (string, error) {
	c.logger.Info("transcribing media",
		slog.String("mime", mimeType),
		slog.Int("size_bytes", len(data)))
	return c.generate(ctx, []part{
		inlinePart(data, mimeType),
		textPart(transcribePrompt()),
	})
}

// Summarize condenses text. The transcription purpose requests the
// structured three-part output.
func (c *Client) Summarize(ctx context.Context, content string, purpose SummaryPurpose) (string, error) {
	c.logger.Info("summarizing content",
		slog.String("purpose", string(purpose)),
		slog.Int("chars", len(content)))
	return c.generate(ctx, []part{
		textPart(summarizePrompt(content, purpose, c.cfg.ReplyLanguage)),
	})
}

// Describe analyzes media bytes. When prompt is empty a default is
// chosen by coarse mime category.
func (c *Client) Describe(ctx context.Context, data []byte, mimeType, prompt string) (string, error) {
	c.logger.Info("describing media",
		slog.String("mime", mimeType),
		slog.Int("size_bytes", len(data)))
	if prompt == "" {
		prompt = describePrompt(mimeType, c.cfg.ReplyLanguage)
	}
	return c.generate(ctx, []part{
		inlinePart(data, mimeType),
		textPart(prompt),
	})
}

// AnalyzeForYouTube runs the YouTube content-generation prompt variant
// over media bytes: titles, description, hashtags, audience and timing
// suggestions.
func (c *Client) AnalyzeForYouTube(ctx context.Context, data []byte, mimeType, mediaKind string) (string, error) {
	c.logger.Info("analyzing media for youtube content",
		slog.String("mime", mimeType),
		slog.String("kind", mediaKind),
		slog.Int("size_bytes", len(data)))
	return c.generate(ctx, []part{
		inlinePart(data, mimeType),
		textPart(youtubePrompt(mediaKind, c.cfg.ReplyLanguage)),
	})
}

// FreeformChat passes the text through with the language-preference
// instruction prepended. No conversation context is carried.
func (c *Client) FreeformChat(ctx context.Context, query string) (string, error) {
	c.logger.Info("freeform chat", slog.Int("chars", len(query)))
	return c.generate(ctx, []part{
		textPart(freeformPrompt(query, c.cfg.ReplyLanguage)),
	})
}

// --- wire types ---

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func textPart(text string) part {
	return part{Text: text}
}

func inlinePart(data []byte, mimeType string) part {
	return part{InlineData: &inlineData{
		MimeType: mimeType,
		Data:     base64.StdEncoding.EncodeToString(data),
	}}
}

// generate issues one POST and extracts the first candidate's first
// text part.
func (c *Client) generate(ctx context.Context, parts []part) (string, error) {
	body, err := json.Marshal(generateRequest{Contents: []content{{Parts: parts}}})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		c.cfg.BaseURL, c.cfg.Model, url.QueryEscape(c.cfg.APIKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w after %s", ErrTimeout, c.cfg.Timeout)
		}
		return "", fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrTransport, err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("AI endpoint error",
			slog.Int("status", resp.StatusCode),
			slog.Int("body_bytes", len(respBody)))
		return "", &StatusError{Code: resp.StatusCode, Body: string(respBody)}
	}

	var parsed generateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("%w: %v", ErrResponseShape, err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", ErrResponseShape
	}
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}
