package transport

// IncomingMessage is one inbound chat event. It is constructed per
// event by the adapter and discarded after handling.
type IncomingMessage struct {
	// Adapter names the transport that delivered the message.
	Adapter string
	// ChatID identifies the conversation on the platform.
	ChatID string
	// MessageID identifies this message for reply threading.
	MessageID string
	// Text is the raw message body, trimmed by the adapter.
	Text string
	// Quoted carries the replied-to message's media sub-fields, when
	// the platform delivered one. Nil when the message quotes nothing.
	Quoted *QuotedPayload
}

// QuotedPayload is the schema-checked view over a quoted message's
// typed media sub-fields. Each section is nil when the platform did
// not populate that field; a populated section with a zero Size is
// treated as absent by the classifier.
type QuotedPayload struct {
	Audio    *MediaSection
	Video    *MediaSection
	Image    *MediaSection
	Document *MediaSection
	Sticker  *MediaSection
}

// MediaSection is one typed media sub-field of a quoted message.
type MediaSection struct {
	// Ref is the adapter-native handle used to resolve the bytes
	// (a Telegram file ID, a Discord attachment URL, ...).
	Ref string
	// Mime is the declared content type, possibly empty.
	Mime string
	// Size is the declared payload size in bytes. Zero means the
	// platform did not populate the field.
	Size int64
	// Seconds is the declared duration for audio and video.
	Seconds int
	// Voice marks push-to-talk voice notes.
	Voice bool
	// Thumbnail holds an inline preview JPEG when the platform ships
	// one with the message. Used as a fallback for images whose full
	// bytes are no longer resolvable.
	Thumbnail []byte
}

// Populated reports whether the section carries a real payload.
func (s *MediaSection) Populated() bool {
	return s != nil && s.Size > 0
}
