package gemini

import (
	"fmt"
	"strings"
)

// SummaryPurpose selects the summarize prompt template.
type SummaryPurpose string

const (
	// PurposeTranscription requests the structured three-part summary.
	PurposeTranscription SummaryPurpose = "transcription"
	// PurposeGeneric requests a freeform summary.
	PurposeGeneric SummaryPurpose = "generic"
)

func transcribePrompt() string {
	return "Please transcribe this audio to text. Provide the transcription " +
		"in the same language as the audio. Just provide the transcription " +
		"without additional commentary."
}

func summarizePrompt(content string, purpose SummaryPurpose, language string) string {
	if purpose == PurposeTranscription {
		return fmt.Sprintf(`Please provide a concise summary of this audio transcription in %s.

Transcription:
%s

Please provide:
1. **Short Summary** (2-3 main sentences)
2. **Key Points** (bullet points)
3. **Category** (music, tutorial, news, podcast, ...)

Format your response in %s.`, language, content, language)
	}
	return fmt.Sprintf(`Please provide a summary of this content in %s:

%s

Please make it concise and informative.`, language, content)
}

// describePrompt picks the default analysis instruction by coarse mime
// category when the caller supplied no explicit prompt.
func describePrompt(mimeType, language string) string {
	switch {
	case strings.Contains(mimeType, "image"):
		return fmt.Sprintf("Describe this image in detail. What do you see? Respond in %s.", language)
	case strings.Contains(mimeType, "video"):
		return fmt.Sprintf("Describe this video. What's happening? Respond in %s.", language)
	case strings.Contains(mimeType, "audio"):
		return fmt.Sprintf("Transcribe and summarize this audio content. Respond in %s.", language)
	default:
		return fmt.Sprintf("Analyze this media content and provide insights. Respond in %s.", language)
	}
}

func youtubePrompt(mediaKind, language string) string {
	return fmt.Sprintf(`Analyze this %[1]s and produce:

YOUTUBE TITLES (3 best options):
- Max 60 characters, catchy, SEO-friendly
- [give 3 title variations]

DESCRIPTION:
- Hook opening paragraph (2-3 sentences)
- Summary of the %[1]s content
- Call-to-action
- Timestamps if relevant

HASHTAGS (15 hashtags):
- Mix of viral, niche, and long-tail
- Ordered from broad to specific

BONUS:
- Primary target audience
- Best upload time
- Thumbnail idea

Focus on content that is actually in the %[1]s. Make it viral but relevant!

Respond in %[2]s with clean, readable formatting.`, mediaKind, language)
}

func freeformPrompt(query, language string) string {
	return fmt.Sprintf("Respond in %s. %s", language, query)
}
