package service

import (
	"context"

	"campusrate/internal/app/reviews/entity"
	"campusrate/internal/app/reviews/risk"

	"github.com/google/uuid"
)

// RiskScorer оценивает текст отзыва перед приёмом
type RiskScorer interface {
	Score(text string) risk.Assessment
}

type IngestionServiceInterface interface {
	SubmitReview(ctx context.Context, authorID string, req *entity.SubmitReviewRequest) (*entity.Review, error)
	GetPublicReview(ctx context.Context, reviewID uuid.UUID) (*entity.Review, error)
	GetTargetReviews(ctx context.Context, targetID uuid.UUID, kind entity.TargetKind) ([]entity.Review, error)
}

type FlagServiceInterface interface {
	FlagReview(ctx context.Context, reviewID uuid.UUID, reporterID *uuid.UUID, source entity.FlagSource, reason entity.FlagReason) (*entity.FlagOutcome, error)
	CastVote(ctx context.Context, reviewID, userID uuid.UUID, helpful bool) (*entity.VoteOutcome, error)
}

type ModerationServiceInterface interface {
	Apply(ctx context.Context, actorID string, reviewID uuid.UUID, action entity.ModerationActionKind, reason string) (*entity.Review, error)
	Appeal(ctx context.Context, authorID string, reviewID uuid.UUID, reason string) (*entity.Review, error)
	Queue(ctx context.Context, status entity.ReviewStatus) ([]entity.Review, error)
	AuditTrail(ctx context.Context, reviewID uuid.UUID) ([]entity.ModerationAction, error)
	AuthorOf(ctx context.Context, reviewID uuid.UUID) (*entity.AuthorMapping, error)
}
