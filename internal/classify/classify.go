// Package classify resolves the media kind of a quoted message. The
// decision is made once per inbound message; everything downstream
// consumes the typed result instead of re-probing the payload.
package classify

import (
	"log/slog"

	"github.com/clipbotio/clipbot/internal/transport"
)

// Kind is the coarse media category of a quoted message's payload.
type Kind string

const (
	KindNone     Kind = "none"
	KindAudio    Kind = "audio"
	KindVideo    Kind = "video"
	KindImage    Kind = "image"
	KindDocument Kind = "document"
	KindSticker  Kind = "sticker"
)

// scanOrder is the fixed tie-break order for malformed payloads that
// carry more than one populated sub-field.
var scanOrder = []Kind{KindAudio, KindVideo, KindImage, KindDocument, KindSticker}

// QuotedMediaInfo is the classifier's verdict for one message.
type QuotedMediaInfo struct {
	// Present reports whether the message quoted anything at all.
	Present bool
	// Kind is the resolved media category. KindNone with Present=true
	// means a quote exists but carries no recognized media.
	Kind Kind
	// Section is the winning sub-field, nil for KindNone.
	Section *transport.MediaSection
}

// Classifier inspects quoted payloads. An optional platform-native
// detector can be attached; its answer is cross-validated against the
// fixed field scan and the scan wins on disagreement.
type Classifier struct {
	logger   *slog.Logger
	detector transport.QuotedKindDetector
}

// New creates a Classifier. detector may be nil.
func New(log *slog.Logger, detector transport.QuotedKindDetector) *Classifier {
	if log == nil {
		log = slog.Default()
	}
	return &Classifier{
		logger:   log.With(slog.String("service", "classify")),
		detector: detector,
	}
}

// Classify determines the media kind of a quoted payload. Absence of
// recognizable media is a normal outcome, never an error.
func (c *Classifier) Classify(payload *transport.QuotedPayload) QuotedMediaInfo {
	return c.ClassifyWith(c.detector, payload)
}

// ClassifyWith classifies using a caller-supplied detector. Used when
// the detection capability is discovered per connection rather than
// fixed at construction.
func (c *Classifier) ClassifyWith(detector transport.QuotedKindDetector, payload *transport.QuotedPayload) QuotedMediaInfo {
	if detector == nil {
		detector = c.detector
	}
	if payload == nil {
		return QuotedMediaInfo{Present: false, Kind: KindNone}
	}

	matches := c.scan(payload)
	if len(matches) == 0 {
		c.logger.Debug("quote carries no recognized media")
		return QuotedMediaInfo{Present: true, Kind: KindNone}
	}

	kind := matches[0]
	if len(matches) > 1 {
		// Doubly-tagged payloads should not occur; keep the first in
		// scan order and surface the anomaly.
		c.logger.Warn("multiple media sub-fields populated in quoted payload",
			slog.Any("detected", matches),
			slog.String("chosen", string(kind)))
	}

	if detector != nil {
		if detected, ok := detector.DetectQuotedKind(payload); ok && Kind(detected) != kind {
			c.logger.Warn("detector disagrees with field scan",
				slog.String("detector", detected),
				slog.String("scan", string(kind)))
		}
	}

	return QuotedMediaInfo{Present: true, Kind: kind, Section: section(payload, kind)}
}

func (c *Classifier) scan(payload *transport.QuotedPayload) []Kind {
	var matches []Kind
	for _, kind := range scanOrder {
		if section(payload, kind).Populated() {
			matches = append(matches, kind)
		}
	}
	return matches
}

func section(payload *transport.QuotedPayload, kind Kind) *transport.MediaSection {
	switch kind {
	case KindAudio:
		return payload.Audio
	case KindVideo:
		return payload.Video
	case KindImage:
		return payload.Image
	case KindDocument:
		return payload.Document
	case KindSticker:
		return payload.Sticker
	default:
		return nil
	}
}
