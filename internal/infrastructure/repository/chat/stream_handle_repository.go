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

// StreamHandleRepository persists resumable stream handles in PostgreSQL.
type StreamHandleRepository struct {
	db *gorm.DB
}

// NewStreamHandleRepository builds a stream handle repository.
func NewStreamHandleRepository(db *gorm.DB) *StreamHandleRepository {
	return &StreamHandleRepository{db: db}
}

// Create inserts the stream handle record.
func (r *StreamHandleRepository) Create(ctx context.Context, handle *domain.StreamHandle) error {
	entity := entities.NewSchemaStreamHandle(handle)

	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		return apperrors.Wrap(apperrors.LayerRepository, apperrors.TypeInternal,
			"failed to create stream handle", err)
	}

	handle.ID = entity.ID
	handle.CreatedAt = entity.CreatedAt
	return nil
}

// LatestByConversationID returns the most recent handle, or nil when the
// conversation never streamed.
func (r *StreamHandleRepository) LatestByConversationID(ctx context.Context, conversationID uint) (*domain.StreamHandle, error) {
	var entity entities.StreamHandle
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC, id DESC").
		First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperrors.Wrap(apperrors.LayerRepository, apperrors.TypeInternal,
			"failed to fetch stream handle", err)
	}

	return entity.EtoD(), nil
}

// UpdateState transitions a handle's lifecycle state.
func (r *StreamHandleRepository) UpdateState(ctx context.Context, publicID string, state domain.StreamHandleState) error {
	result := r.db.WithContext(ctx).
		Model(&entities.StreamHandle{}).
		Where("public_id = ?", publicID).
		Update("state", string(state))
	if result.Error != nil {
		return apperrors.Wrap(apperrors.LayerRepository, apperrors.TypeInternal,
			"failed to update stream handle state", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.New(apperrors.LayerRepository, apperrors.TypeNotFound,
			fmt.Sprintf("stream handle not found: %s", publicID))
	}
	return nil
}

var _ domain.StreamHandleRepository = (*StreamHandleRepository)(nil)
