package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"campusrate/internal/app/reviews/config"
	"campusrate/internal/app/reviews/entity"
	"campusrate/internal/app/reviews/infrastructure"
	"campusrate/internal/app/reviews/repository"
	"campusrate/pkg/logger"
	"campusrate/pkg/metrics"

	"github.com/google/uuid"
)

const (
	actionKindFlag = "review_flag"
	actionKindVote = "review_vote"
)

// FlagService обрабатывает жалобы сообщества, системные авто-флаги
// и голоса helpful/not-helpful.
type FlagService struct {
	reviewRepo repository.ReviewRepository
	flagRepo   repository.FlagRepository
	voteRepo   repository.VoteRepository
	rateRepo   repository.RateLimitRepository
	publisher  infrastructure.MessagePublisher
	modCfg     config.ModerationConfig
	rateCfg    config.RateLimitConfig
}

// NewFlagService создает flagging engine с внедрением зависимостей
func NewFlagService(
	reviewRepo repository.ReviewRepository,
	flagRepo repository.FlagRepository,
	voteRepo repository.VoteRepository,
	rateRepo repository.RateLimitRepository,
	publisher infrastructure.MessagePublisher,
	modCfg config.ModerationConfig,
	rateCfg config.RateLimitConfig,
) *FlagService {
	return &FlagService{
		reviewRepo: reviewRepo,
		flagRepo:   flagRepo,
		voteRepo:   voteRepo,
		rateRepo:   rateRepo,
		publisher:  publisher,
		modCfg:     modCfg,
		rateCfg:    rateCfg,
	}
}

// FlagReview принимает жалобу. Повторная жалоба того же пользователя -
// идемпотентный no-op с возвратом существующей записи (двойной клик
// по кнопке "пожаловаться" - штатная клиентская гонка, не ошибка).
func (s *FlagService) FlagReview(ctx context.Context, reviewID uuid.UUID, reporterID *uuid.UUID, source entity.FlagSource, reason entity.FlagReason) (*entity.FlagOutcome, error) {
	if source == entity.FlagSourceUser {
		if reporterID == nil {
			return nil, fmt.Errorf("%w: user flag requires a reporter", ErrValidation)
		}

		decision, err := s.rateRepo.CheckAndIncrement(ctx, reporterID.String(), actionKindFlag, s.rateCfg.FlagLimit, s.rateCfg.FlagWindow)
		if err != nil {
			logger.Error().Err(err).Msg("Rate limiter unavailable, failing open")
		} else if !decision.Allowed {
			metrics.RateLimitDenials.WithLabelValues(actionKindFlag).Inc()
			return nil, &RateLimitedError{RetryAfter: decision.RetryAfter}
		}
	}

	flag := &entity.Flag{
		ReviewID:   reviewID,
		ReporterID: reporterID,
		Source:     source,
		Reason:     reason,
	}

	stored, newCount, duplicate, err := s.flagRepo.CreateWithIncrement(ctx, flag)
	if err != nil {
		if errors.Is(err, repository.ErrReviewNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, fmt.Errorf("failed to store flag: %w", err)
	}

	outcome := &entity.FlagOutcome{
		Flag:      stored,
		Duplicate: duplicate,
		FlagCount: newCount,
	}

	if duplicate {
		metrics.FlagsDuplicate.Inc()
		return outcome, nil
	}

	metrics.FlagsAccepted.WithLabelValues(string(source), string(reason)).Inc()

	// Порог: авто-флаг ставит отзыв в очередь сразу, пользовательские
	// жалобы копятся до настроенного порога
	threshold := s.modCfg.UserFlagThreshold
	if source == entity.FlagSourceAuto {
		threshold = 1
	}

	if newCount >= threshold {
		transitioned, err := s.enqueue(ctx, reviewID, source, reason, newCount)
		if err != nil {
			return nil, err
		}
		outcome.Transitioned = transitioned
	}

	return outcome, nil
}

// enqueue переводит отзыв в flagged. Compare-and-set в Transition
// гарантирует, что из конкурентных вызовов переход выполнит ровно один:
// остальные получают ErrStaleStatus и трактуют его как "уже в очереди".
func (s *FlagService) enqueue(ctx context.Context, reviewID uuid.UUID, source entity.FlagSource, reason entity.FlagReason, flagCount int) (bool, error) {
	review, err := s.reviewRepo.GetByID(ctx, reviewID)
	if err != nil {
		return false, fmt.Errorf("failed to load review for enqueue: %w", err)
	}

	// В очередь попадают только pending и published
	if review.Status != entity.StatusPending && review.Status != entity.StatusPublished {
		return false, nil
	}

	reasonText := fmt.Sprintf("flag threshold reached (%d flags)", flagCount)
	if source == entity.FlagSourceAuto {
		reasonText = fmt.Sprintf("auto flag: %s", reason)
	}

	action := &entity.ModerationAction{
		ActorID:    entity.SystemActorID,
		Action:     entity.ActionFlagThreshold,
		ReasonText: reasonText,
	}

	err = s.reviewRepo.Transition(ctx, reviewID, review.Status, entity.StatusFlagged, action)
	if err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			// Конкурент успел раньше - no-op
			return false, nil
		}
		return false, fmt.Errorf("failed to enqueue review: %w", err)
	}

	metrics.ModerationTransitions.WithLabelValues(string(entity.ActionFlagThreshold), "system").Inc()
	s.publishFlaggedEvent(ctx, review)

	return true, nil
}

// CastVote применяет голос helpful/not-helpful: один голос на
// (user, review), значение можно менять, повтор - no-op.
func (s *FlagService) CastVote(ctx context.Context, reviewID, userID uuid.UUID, helpful bool) (*entity.VoteOutcome, error) {
	decision, err := s.rateRepo.CheckAndIncrement(ctx, userID.String(), actionKindVote, s.rateCfg.VoteLimit, s.rateCfg.VoteWindow)
	if err != nil {
		logger.Error().Err(err).Msg("Rate limiter unavailable, failing open")
	} else if !decision.Allowed {
		metrics.RateLimitDenials.WithLabelValues(actionKindVote).Inc()
		return nil, &RateLimitedError{RetryAfter: decision.RetryAfter}
	}

	vote, changed, helpfulVotes, unhelpfulVotes, err := s.voteRepo.Upsert(ctx, reviewID, userID, helpful)
	if err != nil {
		if errors.Is(err, repository.ErrReviewNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, fmt.Errorf("failed to cast vote: %w", err)
	}

	return &entity.VoteOutcome{
		Vote:           vote,
		Changed:        changed,
		HelpfulVotes:   helpfulVotes,
		UnhelpfulVotes: unhelpfulVotes,
	}, nil
}

func (s *FlagService) publishFlaggedEvent(ctx context.Context, review *entity.Review) {
	event := entity.ReviewEvent{
		EventType:  entity.EventReviewFlagged,
		ReviewID:   review.ID.String(),
		TargetID:   review.TargetID.String(),
		TargetKind: string(review.TargetKind),
		Status:     string(entity.StatusFlagged),
		Timestamp:  time.Now(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to marshal flagged event")
		return
	}

	if err := s.publisher.PublishMessage(ctx, event.ReviewID, data); err != nil {
		logger.Warn().Err(err).Msg("Failed to publish flagged event")
	}
}
