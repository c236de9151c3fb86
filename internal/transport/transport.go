// Package transport defines the narrow surface the command router
// needs from a messaging platform, plus the optional capability
// interfaces an adapter may implement. Behavior beyond plain sending
// is always discovered by interface probe, never assumed.
package transport

import (
	"context"
	"errors"
)

// ErrStopNotSupported is returned when a connection does not support graceful shutdown.
var ErrStopNotSupported = errors.New("transport connection stop not supported")

// ErrMediaUnavailable is returned when a quoted media reference cannot
// be resolved into bytes (expired file, revoked attachment, ...).
var ErrMediaUnavailable = errors.New("quoted media unavailable")

// InboundHandler is invoked once per inbound message. The Sender is
// bound to the delivering connection and must be used for all replies.
type InboundHandler func(ctx context.Context, sender Sender, msg IncomingMessage)

// Sender sends outbound actions on a connection.
type Sender interface {
	SendText(ctx context.Context, chatID, text string) error
	SendAudio(ctx context.Context, chatID, path string) error
	SendVideo(ctx context.Context, chatID, path string) error
	ReplyText(ctx context.Context, msg IncomingMessage, text string) error
}

// Adapter is the base interface every transport adapter implements.
type Adapter interface {
	Name() string
	Connect(ctx context.Context, handler InboundHandler) (Connection, error)
}

// Connection is an active long-lived link to a messaging platform.
type Connection interface {
	Adapter() string
	Stop(ctx context.Context) error
	Running() bool
}

// QuotedMediaResolver resolves a quoted media section into raw bytes.
// Adapters that can fetch replied-to media implement this on their
// Sender; the router probes for it before running quoted pipelines.
type QuotedMediaResolver interface {
	ResolveQuotedMedia(ctx context.Context, section *MediaSection) (data []byte, mime string, err error)
}

// QuotedKindDetector is an optional enhanced detection capability. An
// adapter with platform-native type information may implement it; the
// classifier cross-validates the result against its own field scan and
// keeps its own answer on mismatch.
type QuotedKindDetector interface {
	DetectQuotedKind(payload *QuotedPayload) (kind string, ok bool)
}
