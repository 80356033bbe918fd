package repository

import (
	"context"
	"errors"
	"time"

	"campusrate/internal/app/reviews/entity"
	"campusrate/pkg/metrics"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	// Стандартные ошибки репозитория для обработки в service layer
	ErrReviewNotFound = errors.New("review not found")
	// ErrStaleStatus - compare-and-set не совпал: статус уже изменён другим вызовом
	ErrStaleStatus = errors.New("review status changed concurrently")
)

type reviewRepository struct {
	db *gorm.DB
}

// NewReviewRepository создает новый репозиторий отзывов
func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

// Create создает новый отзыв в PostgreSQL
func (r *reviewRepository) Create(ctx context.Context, review *entity.Review) error {
	if review.ID == uuid.Nil {
		review.ID = uuid.New()
	}
	review.CreatedAt = time.Now()
	review.UpdatedAt = review.CreatedAt

	result := r.db.WithContext(ctx).Create(review)
	return result.Error
}

// GetByID получает отзыв по ID
func (r *reviewRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Review, error) {
	var review entity.Review
	result := r.db.WithContext(ctx).First(&review, "id = ?", id)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, result.Error
	}

	return &review, nil
}

// GetVisibleByTarget получает опубликованные отзывы по цели.
// Фильтр по статусу достаточен: строки без mapping не переживают сагу ingestion.
func (r *reviewRepository) GetVisibleByTarget(ctx context.Context, targetID uuid.UUID, kind entity.TargetKind) ([]entity.Review, error) {
	var reviews []entity.Review
	result := r.db.WithContext(ctx).
		Where("target_id = ? AND target_kind = ?", targetID, kind).
		Where("status IN ?", []entity.ReviewStatus{entity.StatusPublished, entity.StatusApproved, entity.StatusReinstated}).
		Order("created_at DESC").
		Find(&reviews)

	if result.Error != nil {
		return nil, result.Error
	}

	return reviews, nil
}

// UpdateContent заменяет содержимое отзыва (edit path при повторной отправке)
func (r *reviewRepository) UpdateContent(ctx context.Context, review *entity.Review) error {
	review.UpdatedAt = time.Now()

	result := r.db.WithContext(ctx).Model(review).
		Where("id = ?", review.ID).
		Updates(map[string]interface{}{
			"body_text":    review.BodyText,
			"ratings":      review.Ratings,
			"display_mode": review.DisplayMode,
			"status":       review.Status,
			"updated_at":   review.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrReviewNotFound
	}

	return nil
}

// Delete удаляет отзыв. Используется только компенсирующим откатом саги.
func (r *reviewRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&entity.Review{}, "id = ?", id)

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrReviewNotFound
	}

	return nil
}

// ListByStatus получает отзывы в заданном статусе (очередь модерации)
func (r *reviewRepository) ListByStatus(ctx context.Context, status entity.ReviewStatus) ([]entity.Review, error) {
	var reviews []entity.Review
	result := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("updated_at ASC").
		Find(&reviews)

	if result.Error != nil {
		return nil, result.Error
	}

	return reviews, nil
}

// Transition атомарно переводит отзыв из from в to и пишет строку аудита.
// UPDATE с условием по текущему статусу гарантирует, что из двух конкурентных
// вызовов ровно один выполнит переход, второй получит ErrStaleStatus.
func (r *reviewRepository) Transition(ctx context.Context, reviewID uuid.UUID, from, to entity.ReviewStatus, action *entity.ModerationAction) error {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpUpdate, "reviews")
	defer timer.ObserveDuration()

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&entity.Review{}).
			Where("id = ? AND status = ?", reviewID, from).
			Updates(map[string]interface{}{
				"status":     to,
				"updated_at": time.Now(),
			})

		if result.Error != nil {
			metrics.RecordDbError(serviceName, metrics.DbOpUpdate)
			return result.Error
		}

		if result.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&entity.Review{}).Where("id = ?", reviewID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return ErrReviewNotFound
			}
			return ErrStaleStatus
		}

		if action.ID == uuid.Nil {
			action.ID = uuid.New()
		}
		action.ReviewID = reviewID
		action.FromStatus = from
		action.ToStatus = to
		action.CreatedAt = time.Now()

		return tx.Create(action).Error
	})
}
