package entities

import (
	"time"

	"github.com/bigsoczeq/ai-chatbot2/internal/domain/chat"
)

// StreamHandle represents the database schema for resumable stream handles.
type StreamHandle struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime;index:idx_stream_handle_conversation_created,priority:2"`

	PublicID       string `gorm:"type:varchar(50);uniqueIndex;not null"`
	ConversationID uint   `gorm:"index:idx_stream_handle_conversation_created,priority:1;not null"`
	State          string `gorm:"type:varchar(20);not null;default:'active'"`
}

// TableName specifies the table name for StreamHandle.
func (StreamHandle) TableName() string {
	return "stream_handles"
}

// EtoD converts the database entity to the domain model.
func (h *StreamHandle) EtoD() *chat.StreamHandle {
	return &chat.StreamHandle{
		ID:             h.ID,
		PublicID:       h.PublicID,
		ConversationID: h.ConversationID,
		State:          chat.StreamHandleState(h.State),
		CreatedAt:      h.CreatedAt,
	}
}

// NewSchemaStreamHandle creates a database entity from the domain model.
func NewSchemaStreamHandle(h *chat.StreamHandle) *StreamHandle {
	return &StreamHandle{
		ID:             h.ID,
		PublicID:       h.PublicID,
		ConversationID: h.ConversationID,
		State:          string(h.State),
		CreatedAt:      h.CreatedAt,
	}
}
