package chat

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/bigsoczeq/ai-chatbot2/internal/apperrors"
)

// Service covers the conversation read and delete operations that live
// outside the turn lifecycle.
type Service struct {
	conversations ConversationRepository
	messages      MessageRepository
	log           zerolog.Logger
}

// NewService wires the conversation service.
func NewService(conversations ConversationRepository, messages MessageRepository, log zerolog.Logger) *Service {
	return &Service{
		conversations: conversations,
		messages:      messages,
		log:           log.With().Str("component", "chat-service").Logger(),
	}
}

// ConversationWithMessages is the read-model returned by Get.
type ConversationWithMessages struct {
	Conversation *Conversation
	Messages     []Message
}

// Get returns a conversation and its messages. Private conversations are
// readable only by their owner; public ones by anyone.
func (s *Service) Get(ctx context.Context, publicID, userID string) (*ConversationWithMessages, error) {
	conv, err := s.conversations.FindByPublicID(ctx, publicID)
	if err != nil {
		return nil, err
	}
	if conv.Visibility == VisibilityPrivate && conv.UserID != userID {
		return nil, apperrors.New(apperrors.LayerDomain, apperrors.TypeForbidden,
			"you do not have access to this conversation")
	}

	messages, err := s.messages.ListByConversationID(ctx, conv.ID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.LayerDomain, apperrors.TypeInternal,
			"failed to load conversation messages", err)
	}
	return &ConversationWithMessages{Conversation: conv, Messages: messages}, nil
}

// Delete removes a conversation and everything hanging off it. Only the
// owner may delete, regardless of visibility.
func (s *Service) Delete(ctx context.Context, publicID, userID string) (*Conversation, error) {
	conv, err := s.conversations.FindByPublicID(ctx, publicID)
	if err != nil {
		return nil, err
	}
	if conv.UserID != userID {
		return nil, apperrors.New(apperrors.LayerDomain, apperrors.TypeForbidden,
			"only the owner can delete this conversation")
	}

	deleted, err := s.conversations.Delete(ctx, publicID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.LayerDomain, apperrors.TypeInternal,
			"failed to delete the conversation", err)
	}
	s.log.Info().Str("conversation_id", publicID).Msg("conversation deleted")
	return deleted, nil
}
