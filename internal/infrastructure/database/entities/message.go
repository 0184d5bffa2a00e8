package entities

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/bigsoczeq/ai-chatbot2/internal/domain/chat"
)

// Message represents the database schema for the append-only message log.
// Parts and attachments are stored as JSONB documents.
type Message struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime;index:idx_message_conversation_created,priority:2"`

	PublicID       string         `gorm:"type:varchar(50);uniqueIndex;not null"`
	ConversationID uint           `gorm:"index:idx_message_conversation_created,priority:1;not null"`
	Role           string         `gorm:"type:varchar(20);not null"`
	Parts          datatypes.JSON `gorm:"type:jsonb;not null"`
	Attachments    datatypes.JSON `gorm:"type:jsonb"`
}

// TableName specifies the table name for Message.
func (Message) TableName() string {
	return "messages"
}

// EtoD converts the database entity to the domain model.
func (m *Message) EtoD() (*chat.Message, error) {
	msg := &chat.Message{
		ID:             m.ID,
		PublicID:       m.PublicID,
		ConversationID: m.ConversationID,
		Role:           chat.Role(m.Role),
		CreatedAt:      m.CreatedAt,
	}

	if len(m.Parts) > 0 {
		if err := json.Unmarshal(m.Parts, &msg.Parts); err != nil {
			return nil, fmt.Errorf("decode message parts: %w", err)
		}
	}
	if len(m.Attachments) > 0 {
		if err := json.Unmarshal(m.Attachments, &msg.Attachments); err != nil {
			return nil, fmt.Errorf("decode message attachments: %w", err)
		}
	}
	return msg, nil
}

// NewSchemaMessage creates a database entity from the domain model.
func NewSchemaMessage(m *chat.Message) (*Message, error) {
	parts, err := json.Marshal(m.Parts)
	if err != nil {
		return nil, fmt.Errorf("encode message parts: %w", err)
	}

	entity := &Message{
		ID:             m.ID,
		PublicID:       m.PublicID,
		ConversationID: m.ConversationID,
		Role:           string(m.Role),
		Parts:          datatypes.JSON(parts),
		CreatedAt:      m.CreatedAt,
	}

	if len(m.Attachments) > 0 {
		attachments, err := json.Marshal(m.Attachments)
		if err != nil {
			return nil, fmt.Errorf("encode message attachments: %w", err)
		}
		entity.Attachments = datatypes.JSON(attachments)
	}
	return entity, nil
}
