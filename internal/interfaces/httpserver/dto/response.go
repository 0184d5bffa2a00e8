package dto

import (
	"time"

	"github.com/bigsoczeq/ai-chatbot2/internal/domain/chat"
)

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ConversationResponse is the serialized conversation.
type ConversationResponse struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Visibility string    `json:"visibility"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ConversationWithMessagesResponse is the GET /v1/chat payload.
type ConversationWithMessagesResponse struct {
	Conversation ConversationResponse `json:"conversation"`
	Messages     []chat.Message       `json:"messages"`
}

// NewConversationResponse maps the domain model.
func NewConversationResponse(conv *chat.Conversation) ConversationResponse {
	return ConversationResponse{
		ID:         conv.PublicID,
		Title:      conv.Title,
		Visibility: string(conv.Visibility),
		CreatedAt:  conv.CreatedAt,
		UpdatedAt:  conv.UpdatedAt,
	}
}
