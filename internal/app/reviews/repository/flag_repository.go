package repository

import (
	"context"
	"errors"
	"time"

	"campusrate/internal/app/reviews/entity"
	"campusrate/pkg/metrics"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type flagRepository struct {
	db *gorm.DB
}

// NewFlagRepository создает новый репозиторий жалоб
func NewFlagRepository(db *gorm.DB) FlagRepository {
	return &flagRepository{db: db}
}

// CreateWithIncrement обрабатывает жалобу одной транзакцией.
// Блокировка строки отзыва (FOR UPDATE) сериализует конкурентные жалобы
// на один отзыв: дедупликация и инкремент happens-before для следующего
// вызова, пост-инкрементное значение flag_count возвращается из UPDATE.
func (r *flagRepository) CreateWithIncrement(ctx context.Context, flag *entity.Flag) (*entity.Flag, int, bool, error) {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpInsert, "flags")
	defer timer.ObserveDuration()

	var (
		resultFlag *entity.Flag
		newCount   int
		duplicate  bool
	)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var review entity.Review
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&review, "id = ?", flag.ReviewID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrReviewNotFound
			}
			return err
		}

		// Дедупликация: одна пользовательская жалоба на (reporter, review),
		// системные авто-флаги схлопываются по (review, reason)
		var existing entity.Flag
		query := tx.Where("review_id = ?", flag.ReviewID)
		if flag.Source == entity.FlagSourceUser {
			query = query.Where("source = ? AND reporter_id = ?", entity.FlagSourceUser, flag.ReporterID)
		} else {
			query = query.Where("source = ? AND reason = ?", entity.FlagSourceAuto, flag.Reason)
		}

		err := query.First(&existing).Error
		if err == nil {
			resultFlag = &existing
			newCount = review.FlagCount
			duplicate = true
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if flag.ID == uuid.Nil {
			flag.ID = uuid.New()
		}
		flag.CreatedAt = time.Now()

		if err := tx.Create(flag).Error; err != nil {
			return err
		}

		if err := tx.Raw(
			"UPDATE reviews SET flag_count = flag_count + 1, updated_at = ? WHERE id = ? RETURNING flag_count",
			time.Now(), flag.ReviewID,
		).Scan(&newCount).Error; err != nil {
			return err
		}

		resultFlag = flag
		return nil
	})

	if err != nil {
		return nil, 0, false, err
	}

	return resultFlag, newCount, duplicate, nil
}

// ListByReview получает все жалобы по отзыву
func (r *flagRepository) ListByReview(ctx context.Context, reviewID uuid.UUID) ([]entity.Flag, error) {
	var flags []entity.Flag
	result := r.db.WithContext(ctx).
		Where("review_id = ?", reviewID).
		Order("created_at ASC").
		Find(&flags)

	if result.Error != nil {
		return nil, result.Error
	}

	return flags, nil
}
