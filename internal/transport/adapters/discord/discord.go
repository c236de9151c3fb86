// Package discord implements the Discord transport adapter over a
// gateway session.
package discord

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/clipbotio/clipbot/internal/transport"
)

// Adapter implements transport.Adapter for Discord.
type Adapter struct {
	logger *slog.Logger
	token  string
}

// New creates a Discord adapter for the given bot token.
func New(log *slog.Logger, token string) *Adapter {
	if log == nil {
		log = slog.Default()
	}
	return &Adapter{
		logger: log.With(slog.String("adapter", "discord")),
		token:  token,
	}
}

func (a *Adapter) Name() string { return "discord" }

// Connect opens the gateway session and forwards message-create events
// to the handler on their own goroutines.
func (a *Adapter) Connect(ctx context.Context, handler transport.InboundHandler) (transport.Connection, error) {
	session, err := discordgo.New("Bot " + a.token)
	if err != nil {
		a.logger.Error("create session failed", slog.Any("error", err))
		return nil, fmt.Errorf("discord connect: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages | discordgo.IntentMessageContent

	sender := &sessionSender{logger: a.logger, session: session}

	remove := session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Author != nil && m.Author.Bot {
			return
		}
		if ctx.Err() != nil {
			return
		}
		text := strings.TrimSpace(m.Content)
		if text == "" {
			return
		}
		msg := transport.IncomingMessage{
			Adapter:   "discord",
			ChatID:    m.ChannelID,
			MessageID: m.ID,
			Text:      text,
			Quoted:    buildQuoted(m.ReferencedMessage),
		}
		go handler(ctx, sender, msg)
	})

	if err := session.Open(); err != nil {
		remove()
		return nil, fmt.Errorf("discord open connection: %w", err)
	}
	a.logger.Info("connected")

	conn := &connection{session: session, remove: remove}
	conn.running.Store(true)
	return conn, nil
}

type connection struct {
	session *discordgo.Session
	remove  func()
	running atomic.Bool
}

func (c *connection) Adapter() string { return "discord" }

func (c *connection) Running() bool { return c.running.Load() }

func (c *connection) Stop(_ context.Context) error {
	c.running.Store(false)
	c.remove()
	return c.session.Close()
}

// buildQuoted maps the referenced message's attachments into typed
// sections using the declared content type. Discord carries media as a
// flat attachment list, so the category comes from the mime prefix.
func buildQuoted(quoted *discordgo.Message) *transport.QuotedPayload {
	if quoted == nil || len(quoted.Attachments) == 0 {
		return nil
	}
	payload := &transport.QuotedPayload{}
	populated := false

	for _, att := range quoted.Attachments {
		if att == nil || att.URL == "" {
			continue
		}
		section := &transport.MediaSection{
			Ref:  att.URL,
			Mime: att.ContentType,
			Size: int64(att.Size),
		}
		switch {
		case strings.HasPrefix(att.ContentType, "audio/"):
			if payload.Audio == nil {
				payload.Audio = section
				populated = true
			}
		case strings.HasPrefix(att.ContentType, "video/"):
			if payload.Video == nil {
				payload.Video = section
				populated = true
			}
		case strings.HasPrefix(att.ContentType, "image/"):
			if payload.Image == nil {
				payload.Image = section
				populated = true
			}
		default:
			if payload.Document == nil {
				payload.Document = section
				populated = true
			}
		}
	}

	if !populated {
		return nil
	}
	return payload
}

// sessionSender is the per-connection sender. Quoted media resolves
// over plain HTTP since attachment refs are CDN URLs.
type sessionSender struct {
	logger  *slog.Logger
	session *discordgo.Session
}

func (s *sessionSender) SendText(_ context.Context, chatID, text string) error {
	if _, err := s.session.ChannelMessageSend(chatID, text); err != nil {
		return fmt.Errorf("discord send text: %w", err)
	}
	return nil
}

func (s *sessionSender) ReplyText(_ context.Context, msg transport.IncomingMessage, text string) error {
	_, err := s.session.ChannelMessageSendReply(msg.ChatID, text, &discordgo.MessageReference{
		ChannelID: msg.ChatID,
		MessageID: msg.MessageID,
	})
	if err != nil {
		return fmt.Errorf("discord reply: %w", err)
	}
	return nil
}

func (s *sessionSender) SendAudio(ctx context.Context, chatID, path string) error {
	return s.sendFile(ctx, chatID, path)
}

func (s *sessionSender) SendVideo(ctx context.Context, chatID, path string) error {
	return s.sendFile(ctx, chatID, path)
}

func (s *sessionSender) sendFile(_ context.Context, chatID, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("discord open media file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()
	if _, err := s.session.ChannelFileSend(chatID, filepath.Base(path), file); err != nil {
		return fmt.Errorf("discord send file: %w", err)
	}
	return nil
}

// ResolveQuotedMedia fetches the attachment bytes from the CDN URL the
// gateway delivered with the referenced message.
func (s *sessionSender) ResolveQuotedMedia(ctx context.Context, section *transport.MediaSection) ([]byte, string, error) {
	if section == nil || section.Ref == "" {
		return nil, "", transport.ErrMediaUnavailable
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, section.Ref, nil)
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
