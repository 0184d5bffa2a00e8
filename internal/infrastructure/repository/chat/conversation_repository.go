package chat

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/bigsoczeq/ai-chatbot2/internal/apperrors"
	domain "github.com/bigsoczeq/ai-chatbot2/internal/domain/chat"
	"github.com/bigsoczeq/ai-chatbot2/internal/infrastructure/database/entities"
)

// ConversationRepository persists conversation metadata in PostgreSQL.
type ConversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository builds a conversation repository.
func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// Create inserts the conversation record.
func (r *ConversationRepository) Create(ctx context.Context, conv *domain.Conversation) error {
	entity := entities.NewSchemaConversation(conv)

	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		return apperrors.Wrap(apperrors.LayerRepository, apperrors.TypeInternal,
			"failed to create conversation", err)
	}

	conv.ID = entity.ID
	conv.CreatedAt = entity.CreatedAt
	conv.UpdatedAt = entity.UpdatedAt
	return nil
}

// FindByPublicID fetches a conversation by its public ID.
func (r *ConversationRepository) FindByPublicID(ctx context.Context, publicID string) (*domain.Conversation, error) {
	var entity entities.Conversation
	if err := r.db.WithContext(ctx).
		Where("public_id = ?", publicID).
		First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.LayerRepository, apperrors.TypeNotFound,
				fmt.Sprintf("conversation not found: %s", publicID))
		}
		return nil, apperrors.Wrap(apperrors.LayerRepository, apperrors.TypeInternal,
			"failed to fetch conversation", err)
	}

	return entity.EtoD(), nil
}

// Delete removes the conversation and, through the schema's cascade rules,
// its messages and stream handles. Returns the deleted record.
func (r *ConversationRepository) Delete(ctx context.Context, publicID string) (*domain.Conversation, error) {
	var entity entities.Conversation

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("public_id = ?", publicID).First(&entity).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.New(apperrors.LayerRepository, apperrors.TypeNotFound,
					fmt.Sprintf("conversation not found: %s", publicID))
			}
			return apperrors.Wrap(apperrors.LayerRepository, apperrors.TypeInternal,
				"failed to fetch conversation", err)
		}

		if err := tx.Where("conversation_id = ?", entity.ID).Delete(&entities.Message{}).Error; err != nil {
			return apperrors.Wrap(apperrors.LayerRepository, apperrors.TypeInternal,
				"failed to delete conversation messages", err)
		}
		if err := tx.Where("conversation_id = ?", entity.ID).Delete(&entities.StreamHandle{}).Error; err != nil {
			return apperrors.Wrap(apperrors.LayerRepository, apperrors.TypeInternal,
				"failed to delete conversation stream handles", err)
		}
		if err := tx.Delete(&entity).Error; err != nil {
			return apperrors.Wrap(apperrors.LayerRepository, apperrors.TypeInternal,
				"failed to delete conversation", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return entity.EtoD(), nil
}

var _ domain.ConversationRepository = (*ConversationRepository)(nil)
