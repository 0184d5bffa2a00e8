package chat

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/bigsoczeq/ai-chatbot2/internal/apperrors"
	domain "github.com/bigsoczeq/ai-chatbot2/internal/domain/chat"
	"github.com/bigsoczeq/ai-chatbot2/internal/infrastructure/database/entities"
)

// MessageRepository persists the append-only message log in PostgreSQL.
type MessageRepository struct {
	db *gorm.DB
}

// NewMessageRepository builds a message repository.
func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Append inserts the given messages in order as a single transaction.
func (r *MessageRepository) Append(ctx context.Context, messages []domain.Message) error {
	if len(messages) == 0 {
		return nil
	}

	rows := make([]*entities.Message, 0, len(messages))
	for i := range messages {
		entity, err := entities.NewSchemaMessage(&messages[i])
		if err != nil {
			return apperrors.Wrap(apperrors.LayerRepository, apperrors.TypeInternal,
				"failed to encode message", err)
		}
		rows = append(rows, entity)
	}

	if err := r.db.WithContext(ctx).Create(rows).Error; err != nil {
		return apperrors.Wrap(apperrors.LayerRepository, apperrors.TypeInternal,
			"failed to append messages", err)
	}

	for i, row := range rows {
		messages[i].ID = row.ID
		messages[i].CreatedAt = row.CreatedAt
	}
	return nil
}

// ListByConversationID returns the conversation's messages in creation order.
func (r *MessageRepository) ListByConversationID(ctx context.Context, conversationID uint) ([]domain.Message, error) {
	var rows []entities.Message
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.LayerRepository, apperrors.TypeInternal,
			"failed to list messages", err)
	}

	out := make([]domain.Message, 0, len(rows))
	for i := range rows {
		msg, err := rows[i].EtoD()
		if err != nil {
			return nil, apperrors.Wrap(apperrors.LayerRepository, apperrors.TypeInternal,
				"failed to decode message", err)
		}
		out = append(out, *msg)
	}
	return out, nil
}

// Latest returns the most recent message, or nil for an empty conversation.
func (r *MessageRepository) Latest(ctx context.Context, conversationID uint) (*domain.Message, error) {
	var row entities.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC, id DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperrors.Wrap(apperrors.LayerRepository, apperrors.TypeInternal,
			"failed to fetch latest message", err)
	}

	msg, err := row.EtoD()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.LayerRepository, apperrors.TypeInternal,
			"failed to decode message", err)
	}
	return msg, nil
}

// CountUserMessagesSince counts user-role messages authored by the user
// across all of their conversations since the given time.
func (r *MessageRepository) CountUserMessagesSince(ctx context.Context, userID string, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entities.Message{}).
		Joins("JOIN conversations ON conversations.id = messages.conversation_id").
		Where("conversations.user_id = ?", userID).
		Where("messages.role = ?", string(domain.RoleUser)).
		Where("messages.created_at >= ?", since).
		Count(&count).Error
	if err != nil {
		return 0, apperrors.Wrap(apperrors.LayerRepository, apperrors.TypeInternal,
			"failed to count user messages", err)
	}
	return count, nil
}

var _ domain.MessageRepository = (*MessageRepository)(nil)
