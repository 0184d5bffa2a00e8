package title

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/bigsoczeq/ai-chatbot2/internal/domain/llm"
)

const (
	// MaxLength caps a generated title. Longer model output is trimmed on a
	// word boundary where possible.
	MaxLength = 80

	// Fallback is used when title generation fails; the conversation is
	// created regardless.
	Fallback = "New conversation"
)

const systemPrompt = `You will generate a short title based on the first message a user begins a conversation with.
Ensure it is not more than 80 characters long.
The title should be a summary of the user's message.
Do not use quotes or colons.`

// Generator produces a conversation title from the first user message with a
// one-shot, non-streaming model call.
type Generator struct {
	provider llm.Provider
	model    string
	log      zerolog.Logger
}

// NewGenerator builds a title generator bound to a model.
func NewGenerator(provider llm.Provider, model string, log zerolog.Logger) *Generator {
	return &Generator{
		provider: provider,
		model:    model,
		log:      log.With().Str("component", "title-generator").Logger(),
	}
}

// Generate returns a title for the given first message. A model failure is
// logged and degrades to the fallback title; it never fails the turn.
func (g *Generator) Generate(ctx context.Context, firstMessage string) string {
	resp, err := g.provider.CreateChatCompletion(ctx, llm.ChatCompletionRequest{
		Model: g.model,
		Messages: []llm.ChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: firstMessage},
		},
	})
	if err != nil {
		g.log.Warn().Err(err).Msg("title generation failed; using fallback")
		return Fallback
	}
	if len(resp.Choices) == 0 {
		return Fallback
	}

	title := Sanitize(resp.Choices[0].Message.Content)
	if title == "" {
		return Fallback
	}
	return title
}

// Sanitize normalizes whitespace, strips wrapping quotes, and trims the
// title to MaxLength runes, preferring a word boundary.
func Sanitize(raw string) string {
	title := strings.Join(strings.Fields(raw), " ")
	title = strings.Trim(title, `"'`)
	if utf8.RuneCountInString(title) <= MaxLength {
		return title
	}

	runes := []rune(title)
	cut := string(runes[:MaxLength])
	if idx := strings.LastIndex(cut, " "); idx > MaxLength/2 {
		cut = cut[:idx]
	}
	return strings.TrimRight(cut, " ")
}
