package repository

import (
	"context"
	"errors"
	"time"

	"campusrate/internal/app/reviews/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type auditRepository struct {
	db *gorm.DB
}

// NewAuditRepository создает репозиторий журнала модерации.
// Журнал append-only: здесь нет и не должно быть Update/Delete.
func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

// ListByReview получает полный журнал по отзыву в хронологическом порядке
func (r *auditRepository) ListByReview(ctx context.Context, reviewID uuid.UUID) ([]entity.ModerationAction, error) {
	var actions []entity.ModerationAction
	result := r.db.WithContext(ctx).
		Where("review_id = ?", reviewID).
		Order("created_at ASC").
		Find(&actions)

	if result.Error != nil {
		return nil, result.Error
	}

	return actions, nil
}

// FindRecent ищет идентичную запись не старше since для идемпотентных повторов
func (r *auditRepository) FindRecent(ctx context.Context, reviewID uuid.UUID, action entity.ModerationActionKind, actorID string, since time.Time) (*entity.ModerationAction, error) {
	var record entity.ModerationAction
	result := r.db.WithContext(ctx).
		Where("review_id = ? AND action = ? AND actor_id = ? AND created_at >= ?", reviewID, action, actorID, since).
		Order("created_at DESC").
		First(&record)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}

	return &record, nil
}
