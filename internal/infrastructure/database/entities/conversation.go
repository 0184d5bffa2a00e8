package entities

import (
	"time"

	"github.com/bigsoczeq/ai-chatbot2/internal/domain/chat"
)

// Conversation represents the database schema for conversations.
type Conversation struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	PublicID   string `gorm:"type:varchar(50);uniqueIndex;not null"`
	UserID     string `gorm:"type:varchar(64);index:idx_conversation_user;not null"`
	Title      string `gorm:"type:varchar(256);not null"`
	Visibility string `gorm:"type:varchar(20);not null;default:'private'"`

	Messages      []Message      `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE"`
	StreamHandles []StreamHandle `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for Conversation.
func (Conversation) TableName() string {
	return "conversations"
}

// EtoD converts the database entity to the domain model.
func (c *Conversation) EtoD() *chat.Conversation {
	return &chat.Conversation{
		ID:         c.ID,
		PublicID:   c.PublicID,
		UserID:     c.UserID,
		Title:      c.Title,
		Visibility: chat.Visibility(c.Visibility),
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}

// NewSchemaConversation creates a database entity from the domain model.
func NewSchemaConversation(c *chat.Conversation) *Conversation {
	return &Conversation{
		ID:         c.ID,
		PublicID:   c.PublicID,
		UserID:     c.UserID,
		Title:      c.Title,
		Visibility: string(c.Visibility),
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}
