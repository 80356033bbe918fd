package repository

import (
	"context"
	"errors"
	"time"

	"campusrate/internal/app/reviews/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type voteRepository struct {
	db *gorm.DB
}

// NewVoteRepository создает новый репозиторий голосов
func NewVoteRepository(db *gorm.DB) VoteRepository {
	return &voteRepository{db: db}
}

// Upsert применяет голос пользователя. Повтор того же значения - no-op,
// смена значения переносит голос между счётчиками. Счётчики на строке
// отзыва корректируются в той же транзакции под блокировкой строки.
func (r *voteRepository) Upsert(ctx context.Context, reviewID, userID uuid.UUID, helpful bool) (*entity.Vote, bool, int, int, error) {
	var (
		vote       entity.Vote
		changed    bool
		helpfulN   int
		unhelpfulN int
	)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var review entity.Review
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&review, "id = ?", reviewID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrReviewNotFound
			}
			return err
		}

		deltaHelpful, deltaUnhelpful := 0, 0

		err := tx.Where("review_id = ? AND user_id = ?", reviewID, userID).First(&vote).Error
		switch {
		case err == nil:
			if vote.Helpful == helpful {
				// Идемпотентный повтор
				helpfulN = review.HelpfulVotes
				unhelpfulN = review.UnhelpfulVotes
				return nil
			}
			vote.Helpful = helpful
			vote.UpdatedAt = time.Now()
			if err := tx.Model(&vote).Updates(map[string]interface{}{
				"helpful":    vote.Helpful,
				"updated_at": vote.UpdatedAt,
			}).Error; err != nil {
				return err
			}
			if helpful {
				deltaHelpful, deltaUnhelpful = 1, -1
			} else {
				deltaHelpful, deltaUnhelpful = -1, 1
			}
			changed = true

		case errors.Is(err, gorm.ErrRecordNotFound):
			vote = entity.Vote{
				ID:        uuid.New(),
				ReviewID:  reviewID,
				UserID:    userID,
				Helpful:   helpful,
				CreatedAt: time.Now(),
				UpdatedAt: time.Now(),
			}
			if err := tx.Create(&vote).Error; err != nil {
				return err
			}
			if helpful {
				deltaHelpful = 1
			} else {
				deltaUnhelpful = 1
			}
			changed = true

		default:
			return err
		}

		row := struct {
			HelpfulVotes   int
			UnhelpfulVotes int
		}{}
		if err := tx.Raw(
			"UPDATE reviews SET helpful_votes = helpful_votes + ?, unhelpful_votes = unhelpful_votes + ?, updated_at = ? WHERE id = ? RETURNING helpful_votes, unhelpful_votes",
			deltaHelpful, deltaUnhelpful, time.Now(), reviewID,
		).Scan(&row).Error; err != nil {
			return err
		}

		helpfulN = row.HelpfulVotes
		unhelpfulN = row.UnhelpfulVotes
		return nil
	})

	if err != nil {
		return nil, false, 0, 0, err
	}

	return &vote, changed, helpfulN, unhelpfulN, nil
}
