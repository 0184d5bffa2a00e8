package chat

import (
	"context"
	"time"
)

// ConversationRepository persists conversation metadata.
type ConversationRepository interface {
	Create(ctx context.Context, conv *Conversation) error
	FindByPublicID(ctx context.Context, publicID string) (*Conversation, error)
	// Delete removes the conversation together with its messages and stream
	// handles and returns the deleted record.
	Delete(ctx context.Context, publicID string) (*Conversation, error)
}

// MessageRepository persists the append-only message sequence.
type MessageRepository interface {
	// Append inserts the given messages in order as a single operation.
	Append(ctx context.Context, messages []Message) error
	ListByConversationID(ctx context.Context, conversationID uint) ([]Message, error)
	// Latest returns the most recent message of the conversation, or nil when
	// the conversation is empty.
	Latest(ctx context.Context, conversationID uint) (*Message, error)
	// CountUserMessagesSince counts user-role messages authored by the user
	// across all of their conversations since the given time.
	CountUserMessagesSince(ctx context.Context, userID string, since time.Time) (int64, error)
}

// StreamHandleRepository tracks resumable stream handles per conversation.
type StreamHandleRepository interface {
	Create(ctx context.Context, handle *StreamHandle) error
	// LatestByConversationID returns the most recent handle, or nil when the
	// conversation never streamed.
	LatestByConversationID(ctx context.Context, conversationID uint) (*StreamHandle, error)
	UpdateState(ctx context.Context, publicID string, state StreamHandleState) error
}
