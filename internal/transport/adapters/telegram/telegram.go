// Package telegram implements the Telegram transport adapter over the
// Bot API long-polling channel.
package telegram

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/clipbotio/clipbot/internal/transport"
)

const updateTimeoutSeconds = 30

// Adapter implements transport.Adapter for Telegram.
type Adapter struct {
	logger *slog.Logger
	token  string
}

// New creates a Telegram adapter for the given bot token.
func New(log *slog.Logger, token string) *Adapter {
	if log == nil {
		log = slog.Default()
	}
	return &Adapter{
		logger: log.With(slog.String("adapter", "telegram")),
		token:  token,
	}
}

func (a *Adapter) Name() string { return "telegram" }

// Connect starts long-polling for updates and forwards each message to
// the handler on its own goroutine.
func (a *Adapter) Connect(ctx context.Context, handler transport.InboundHandler) (transport.Connection, error) {
	bot, err := tgbotapi.NewBotAPI(a.token)
	if err != nil {
		a.logger.Error("create bot failed", slog.Any("error", err))
		return nil, fmt.Errorf("telegram connect: %w", err)
	}
	a.logger.Info("connected", slog.String("bot", bot.Self.UserName))

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = updateTimeoutSeconds
	updates := bot.GetUpdatesChan(updateConfig)
	connCtx, cancel := context.WithCancel(ctx)

	conn := &connection{bot: bot, cancel: cancel, updates: updates}
	conn.running.Store(true)
	sender := &botSender{logger: a.logger, bot: bot}

	go func() {
		defer conn.running.Store(false)
		for {
			select {
			case <-connCtx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					a.logger.Info("updates channel closed")
					return
				}
				if update.Message == nil {
					continue
				}
				msg := buildIncoming(update.Message)
				if msg.Text == "" {
					continue
				}
				go handler(connCtx, sender, msg)
			}
		}
	}()

	return conn, nil
}

type connection struct {
	bot     *tgbotapi.BotAPI
	cancel  context.CancelFunc
	updates tgbotapi.UpdatesChannel
	running atomic.Bool
}

func (c *connection) Adapter() string { return "telegram" }

func (c *connection) Running() bool { return c.running.Load() }

func (c *connection) Stop(_ context.Context) error {
	c.bot.StopReceivingUpdates()
	c.cancel()
	// Drain remaining updates so the library's polling goroutine can
	// finish writing and exit. Without this the in-flight long-poll
	// keeps the old getUpdates session alive and a reconnect with the
	// same token fails with a Conflict error.
	for range c.updates {
	}
	return nil
}

func buildIncoming(msg *tgbotapi.Message) transport.IncomingMessage {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		text = strings.TrimSpace(msg.Caption)
	}
	chatID := ""
	if msg.Chat != nil {
		chatID = strconv.FormatInt(msg.Chat.ID, 10)
	}
	return transport.IncomingMessage{
		Adapter:   "telegram",
		ChatID:    chatID,
		MessageID: strconv.Itoa(msg.MessageID),
		Text:      text,
		Quoted:    buildQuoted(msg.ReplyToMessage),
	}
}

// buildQuoted maps the typed media fields of a replied-to message into
// the transport payload. Voice notes and video notes fold into the
// audio and video sections.
func buildQuoted(quoted *tgbotapi.Message) *transport.QuotedPayload {
	if quoted == nil {
		return nil
	}
	payload := &transport.QuotedPayload{}
	populated := false

	if quoted.Audio != nil {
		payload.Audio = &transport.MediaSection{
			Ref:     quoted.Audio.FileID,
			Mime:    quoted.Audio.MimeType,
			Size:    int64(quoted.Audio.FileSize),
			Seconds: quoted.Audio.Duration,
		}
		populated = true
	}
	if quoted.Voice != nil {
		payload.Audio = &transport.MediaSection{
			Ref:     quoted.Voice.FileID,
			Mime:    quoted.Voice.MimeType,
			Size:    int64(quoted.Voice.FileSize),
			Seconds: quoted.Voice.Duration,
			Voice:   true,
		}
		populated = true
	}
	if quoted.Video != nil {
		payload.Video = &transport.MediaSection{
			Ref:     quoted.Video.FileID,
			Mime:    quoted.Video.MimeType,
			Size:    int64(quoted.Video.FileSize),
			Seconds: quoted.Video.Duration,
		}
		populated = true
	}
	if quoted.VideoNote != nil {
		payload.Video = &transport.MediaSection{
			Ref:     quoted.VideoNote.FileID,
			Mime:    "video/mp4",
			Size:    int64(quoted.VideoNote.FileSize),
			Seconds: quoted.VideoNote.Duration,
		}
		populated = true
	}
	if len(quoted.Photo) > 0 {
		photo := pickPhoto(quoted.Photo)
		payload.Image = &transport.MediaSection{
			Ref:  photo.FileID,
			Mime: "image/jpeg",
			Size: int64(photo.FileSize),
		}
		populated = true
	}
	if quoted.Document != nil {
		payload.Document = &transport.MediaSection{
			Ref:  quoted.Document.FileID,
			Mime: quoted.Document.MimeType,
			Size: int64(quoted.Document.FileSize),
		}
		populated = true
	}
	if quoted.Sticker != nil {
		payload.Sticker = &transport.MediaSection{
			Ref:  quoted.Sticker.FileID,
			Mime: "image/webp",
			Size: int64(quoted.Sticker.FileSize),
		}
		populated = true
	}

	if !populated {
		return nil
	}
	return payload
}

func pickPhoto(items []tgbotapi.PhotoSize) tgbotapi.PhotoSize {
	best := items[0]
	for _, item := range items[1:] {
		if item.FileSize > best.FileSize {
			best = item
			continue
		}
		if item.Width*item.Height > best.Width*best.Height {
			best = item
		}
	}
	return best
}

// botSender is the per-connection sender. It also implements the
// quoted-media resolver capability using the Bot API file endpoint.
type botSender struct {
	logger *slog.Logger
	bot    *tgbotapi.BotAPI
}

func (s *botSender) SendText(_ context.Context, chatID, text string) error {
	id, err := parseChatID(chatID)
	if err != nil {
		return err
	}
	message := tgbotapi.NewMessage(id, text)
	message.ParseMode = tgbotapi.ModeMarkdown
	if _, err := s.bot.Send(message); err != nil {
		// Markdown parse failures come back as 400; retry plain so the
		// user still gets the content.
		message.ParseMode = ""
		if _, retryErr := s.bot.Send(message); retryErr != nil {
			return fmt.Errorf("telegram send text: %w", retryErr)
		}
	}
	return nil
}

func (s *botSender) ReplyText(_ context.Context, msg transport.IncomingMessage, text string) error {
	id, err := parseChatID(msg.ChatID)
	if err != nil {
		return err
	}
	message := tgbotapi.NewMessage(id, text)
	message.ParseMode = tgbotapi.ModeMarkdown
	if replyTo, err := strconv.Atoi(msg.MessageID); err == nil && replyTo > 0 {
		message.ReplyToMessageID = replyTo
	}
	if _, err := s.bot.Send(message); err != nil {
		return fmt.Errorf("telegram reply: %w", err)
	}
	return nil
}

func (s *botSender) SendAudio(_ context.Context, chatID, path string) error {
	id, err := parseChatID(chatID)
	if err != nil {
		return err
	}
	audio := tgbotapi.NewAudio(id, tgbotapi.FilePath(path))
	if _, err := s.bot.Send(audio); err != nil {
		return fmt.Errorf("telegram send audio: %w", err)
	}
	return nil
}

func (s *botSender) SendVideo(_ context.Context, chatID, path string) error {
	id, err := parseChatID(chatID)
	if err != nil {
		return err
	}
	video := tgbotapi.NewVideo(id, tgbotapi.FilePath(path))
	if _, err := s.bot.Send(video); err != nil {
		return fmt.Errorf("telegram send video: %w", err)
	}
	return nil
}

// ResolveQuotedMedia downloads the referenced file through the Bot API
// file endpoint.
func (s *botSender) ResolveQuotedMedia(ctx context.Context, section *transport.MediaSection) ([]byte, string, error) {
	if section == nil || section.Ref == "" {
		return nil, "", transport.ErrMediaUnavailable
	}
	downloadURL, err := s.bot.GetFileDirectURL(section.Ref)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", transport.ErrMediaUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build download request: %w", err)
	}
	client := &http.Client{Timeout: 60 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download quoted media: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, "", fmt.Errorf("%w: status %d", transport.ErrMediaUnavailable, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read quoted media: %w", err)
	}
	mime := section.Mime
	if mime == "" {
		mime = strings.TrimSpace(resp.Header.Get("Content-Type"))
		if idx := strings.Index(mime, ";"); idx >= 0 {
			mime = strings.TrimSpace(mime[:idx])
		}
	}
	return data, mime, nil
}

// DetectQuotedKind reports the platform-native media type. Telegram
// fields are mutually exclusive per message, so the first populated
// section is authoritative.
func (s *botSender) DetectQuotedKind(payload *transport.QuotedPayload) (string, bool) {
	if payload == nil {
		return "", false
	}
	switch {
	case payload.Audio.Populated():
		return "audio", true
	case payload.Video.Populated():
		return "video", true
	case payload.Image.Populated():
		return "image", true
	case payload.Document.Populated():
		return "document", true
	case payload.Sticker.Populated():
		return "sticker", true
	}
	return "", false
}

func parseChatID(chatID string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(chatID), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("telegram chat id must be numeric: %q", chatID)
	}
	return id, nil
}
