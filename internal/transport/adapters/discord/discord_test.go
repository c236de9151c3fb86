package discord

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func attachment(url, contentType string, size int) *discordgo.MessageAttachment {
	return &discordgo.MessageAttachment{URL: url, ContentType: contentType, Size: size}
}

func TestBuildQuoted_NoReference(t *testing.T) {
	t.Parallel()
	assert.Nil(t, buildQuoted(nil))
	assert.Nil(t, buildQuoted(&discordgo.Message{Content: "plain reply"}))
}

func TestBuildQuoted_MapsByContentType(t *testing.T) {
	t.Parallel()
	payload := buildQuoted(&discordgo.Message{
		Attachments: []*discordgo.MessageAttachment{
			attachment("https://cdn/audio.ogg", "audio/ogg", 100),
			attachment("https://cdn/clip.mp4", "video/mp4", 200),
			attachment("https://cdn/pic.png", "image/png", 300),
			attachment("https://cdn/doc.pdf", "application/pdf", 400),
		},
	})
	require.NotNil(t, payload)
	assert.Equal(t, "https://cdn/audio.ogg", payload.Audio.Ref)
	assert.Equal(t, "video/mp4", payload.Video.Mime)
	assert.Equal(t, int64(300), payload.Image.Size)
	assert.Equal(t, "https://cdn/doc.pdf", payload.Document.Ref)
	assert.Nil(t, payload.Sticker)
}

func TestBuildQuoted_FirstAttachmentPerKindWins(t *testing.T) {
	t.Parallel()
	payload := buildQuoted(&discordgo.Message{
		Attachments: []*discordgo.MessageAttachment{
			attachment("https://cdn/first.png", "image/png", 100),
			attachment("https://cdn/second.png", "image/png", 200),
		},
	})
	require.NotNil(t, payload)
	assert.Equal(t, "https://cdn/first.png", payload.Image.Ref)
}

func TestBuildQuoted_SkipsAttachmentsWithoutURL(t *testing.T) {
	t.Parallel()
	payload := buildQuoted(&discordgo.Message{
		Attachments: []*discordgo.MessageAttachment{
			attachment("", "image/png", 100),
		},
	})
	assert.Nil(t, payload)
}
