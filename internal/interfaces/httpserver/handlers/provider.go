package handlers

import (
	"github.com/rs/zerolog"
)

// Provider wires all HTTP handlers for dependency injection.
type Provider struct {
	Chat *ChatHandler
}

// NewProvider constructs the handler provider with domain services.
func NewProvider(turns TurnService, conversations ConversationService, log zerolog.Logger) *Provider {
	return &Provider{
		Chat: NewChatHandler(turns, conversations, log),
	}
}
