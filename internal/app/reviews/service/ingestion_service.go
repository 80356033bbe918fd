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
	"campusrate/internal/app/reviews/risk"
	"campusrate/pkg/logger"
	"campusrate/pkg/metrics"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const actionKindSubmit = "review_submit"

// Допустимые под-оценки по типу цели
var allowedRatingKeys = map[entity.TargetKind]map[string]struct{}{
	entity.TargetProfessor: {
		"clarity": {}, "helpfulness": {}, "difficulty": {}, "grading": {},
	},
	entity.TargetCollege: {
		"academics": {}, "facilities": {}, "housing": {}, "social": {},
	},
}

// IngestionService принимает отзывы: валидация, скоринг, сага записи
// в контент-хранилище и mapping store, авто-флаг или публикация.
type IngestionService struct {
	reviewRepo  repository.ReviewRepository
	mappingRepo repository.AuthorMappingRepository
	targetRepo  repository.TargetRepository
	rateRepo    repository.RateLimitRepository
	flagService FlagServiceInterface
	scorer      RiskScorer
	publisher   infrastructure.MessagePublisher
	modCfg      config.ModerationConfig
	rateCfg     config.RateLimitConfig
}

// NewIngestionService создает сервис приёма отзывов с внедрением зависимостей
func NewIngestionService(
	reviewRepo repository.ReviewRepository,
	mappingRepo repository.AuthorMappingRepository,
	targetRepo repository.TargetRepository,
	rateRepo repository.RateLimitRepository,
	flagService FlagServiceInterface,
	scorer RiskScorer,
	publisher infrastructure.MessagePublisher,
	modCfg config.ModerationConfig,
	rateCfg config.RateLimitConfig,
) *IngestionService {
	return &IngestionService{
		reviewRepo:  reviewRepo,
		mappingRepo: mappingRepo,
		targetRepo:  targetRepo,
		rateRepo:    rateRepo,
		flagService: flagService,
		scorer:      scorer,
		publisher:   publisher,
		modCfg:      modCfg,
		rateCfg:     rateCfg,
	}
}

// SubmitReview проводит отзыв через весь конвейер приёма.
// Повторная отправка на ту же цель - редактирование существующего отзыва,
// определяется через mapping store: контент-хранилище автора не знает.
func (s *IngestionService) SubmitReview(ctx context.Context, authorID string, req *entity.SubmitReviewRequest) (*entity.Review, error) {
	kind := entity.TargetKind(req.TargetKind)

	if err := validateRatings(kind, req.Ratings); err != nil {
		metrics.ReviewsRejected.WithLabelValues("validation").Inc()
		return nil, err
	}

	targetID, err := uuid.Parse(req.TargetID)
	if err != nil {
		metrics.ReviewsRejected.WithLabelValues("validation").Inc()
		return nil, fmt.Errorf("%w: target_id is not a valid UUID", ErrValidation)
	}

	// Rate limiter спрашиваем до любых записей
	decision, err := s.rateRepo.CheckAndIncrement(ctx, authorID, actionKindSubmit, s.rateCfg.SubmitLimit, s.rateCfg.SubmitWindow)
	if err != nil {
		// Недоступный Redis не блокирует отправку, но фиксируется
		logger.Error().Err(err).Msg("Rate limiter unavailable, failing open")
	} else if !decision.Allowed {
		metrics.ReviewsRejected.WithLabelValues("rate_limited").Inc()
		metrics.RateLimitDenials.WithLabelValues(actionKindSubmit).Inc()
		return nil, &RateLimitedError{RetryAfter: decision.RetryAfter}
	}

	exists, err := s.targetRepo.Exists(ctx, targetID, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to check target existence: %w", err)
	}
	if !exists {
		metrics.ReviewsRejected.WithLabelValues("target_not_found").Inc()
		return nil, ErrTargetNotFound
	}

	// Уникальность (author, target) проверяется через mapping store
	existing, err := s.mappingRepo.FindByAuthorAndTarget(ctx, authorID, targetID.String())
	if err != nil && !errors.Is(err, repository.ErrMappingNotFound) {
		return nil, fmt.Errorf("failed to check existing review: %w", err)
	}

	assessment := s.scoreBounded(ctx, req.BodyText)
	metrics.RiskScoreDistribution.Observe(assessment.Composite)

	if existing != nil {
		return s.editExisting(ctx, existing, req, assessment)
	}

	return s.createNew(ctx, authorID, targetID, kind, req, assessment)
}

// createNew - сага из двух записей по изолированным хранилищам.
// Отказ записи mapping компенсируется удалением только что созданного отзыва:
// отзыв без записи об авторе не наблюдаем ни в какой момент после возврата.
func (s *IngestionService) createNew(ctx context.Context, authorID string, targetID uuid.UUID, kind entity.TargetKind, req *entity.SubmitReviewRequest, assessment risk.Assessment) (*entity.Review, error) {
	review := &entity.Review{
		ID:          uuid.New(),
		TargetID:    targetID,
		TargetKind:  kind,
		BodyText:    req.BodyText,
		Ratings:     toJSONMap(req.Ratings),
		DisplayMode: entity.DisplayMode(req.DisplayMode),
		Status:      entity.StatusPending,
	}

	if err := s.reviewRepo.Create(ctx, review); err != nil {
		return nil, fmt.Errorf("failed to create review: %w", err)
	}

	mapping := &entity.AuthorMapping{
		ReviewID: review.ID.String(),
		AuthorID: authorID,
		TargetID: targetID.String(),
	}

	if err := s.mappingRepo.Create(ctx, mapping); err != nil {
		// Компенсирующий откат: второй шаг саги не прошёл
		metrics.IngestionRollbacks.Inc()
		if delErr := s.reviewRepo.Delete(context.WithoutCancel(ctx), review.ID); delErr != nil {
			// Осиротевший отзыв - нарушение инварианта, требует вмешательства
			logger.Error().
				Err(delErr).
				Str("review_id", review.ID.String()).
				Msg("CRITICAL: compensating review delete failed, orphaned review left behind")
		}
		logger.Error().Err(err).Str("review_id", review.ID.String()).Msg("Author mapping write failed, review rolled back")
		metrics.ReviewsRejected.WithLabelValues("ingestion_failed").Inc()
		return nil, ErrIngestionFailed
	}

	return s.routeScored(ctx, review, assessment)
}

// editExisting заменяет содержимое ранее отправленного отзыва
func (s *IngestionService) editExisting(ctx context.Context, mapping *entity.AuthorMapping, req *entity.SubmitReviewRequest, assessment risk.Assessment) (*entity.Review, error) {
	reviewID, err := uuid.Parse(mapping.ReviewID)
	if err != nil {
		return nil, fmt.Errorf("corrupt mapping review_id: %w", err)
	}

	review, err := s.reviewRepo.GetByID(ctx, reviewID)
	if err != nil {
		if errors.Is(err, repository.ErrReviewNotFound) {
			// Mapping без отзыва: сага такого не допускает, но сообщаем внятно
			logger.Error().Str("review_id", mapping.ReviewID).Msg("Author mapping points to missing review")
			return nil, ErrIngestionFailed
		}
		return nil, fmt.Errorf("failed to load existing review: %w", err)
	}

	// Редактируются только pending и published. После решения модератора
	// содержимое зафиксировано; путь автора после удаления - апелляция.
	switch review.Status {
	case entity.StatusPending, entity.StatusPublished:
	default:
		return nil, fmt.Errorf("%w: review in status %s can no longer be edited", ErrValidation, review.Status)
	}

	review.BodyText = req.BodyText
	review.Ratings = toJSONMap(req.Ratings)
	review.DisplayMode = entity.DisplayMode(req.DisplayMode)

	if err := s.reviewRepo.UpdateContent(ctx, review); err != nil {
		return nil, fmt.Errorf("failed to update review: %w", err)
	}

	return s.routeScored(ctx, review, assessment)
}

// routeScored решает судьбу отзыва по оценке риска:
// жёсткое правило профанации или composite >= порога - авто-флаг,
// иначе pending-отзыв публикуется (auto-clear).
func (s *IngestionService) routeScored(ctx context.Context, review *entity.Review, assessment risk.Assessment) (*entity.Review, error) {
	autoFlag := assessment.Profanity || assessment.Composite >= s.modCfg.AutoFlagThreshold

	if autoFlag {
		reason := entity.ReasonSpam
		if assessment.Profanity {
			reason = entity.ReasonProfanity
		}

		// Синхронно, внутри запроса-триггера: отложенных джобов здесь нет
		if _, err := s.flagService.FlagReview(ctx, review.ID, nil, entity.FlagSourceAuto, reason); err != nil {
			return nil, fmt.Errorf("failed to auto-flag review: %w", err)
		}

		flagged, err := s.reviewRepo.GetByID(ctx, review.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to reload flagged review: %w", err)
		}
		metrics.ReviewsSubmitted.WithLabelValues(string(review.TargetKind), string(flagged.Status)).Inc()
		return flagged, nil
	}

	if review.Status == entity.StatusPending {
		action := &entity.ModerationAction{
			ActorID:    entity.SystemActorID,
			Action:     entity.ActionAutoClear,
			ReasonText: "risk score below auto-flag threshold",
		}
		if err := s.reviewRepo.Transition(ctx, review.ID, entity.StatusPending, entity.StatusPublished, action); err != nil {
			return nil, fmt.Errorf("failed to publish review: %w", err)
		}
		review.Status = entity.StatusPublished
		metrics.ModerationTransitions.WithLabelValues(string(entity.ActionAutoClear), "system").Inc()
	}

	s.publishEvent(ctx, review, entity.EventReviewPublished)
	metrics.ReviewsSubmitted.WithLabelValues(string(review.TargetKind), string(review.Status)).Inc()

	return review, nil
}

// GetPublicReview - единственный непривилегированный read path отзыва.
// Модель Review не содержит автора по построению, отдаётся целиком.
func (s *IngestionService) GetPublicReview(ctx context.Context, reviewID uuid.UUID) (*entity.Review, error) {
	review, err := s.reviewRepo.GetByID(ctx, reviewID)
	if err != nil {
		if errors.Is(err, repository.ErrReviewNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, fmt.Errorf("failed to get review: %w", err)
	}

	return review, nil
}

// GetTargetReviews - опубликованные отзывы по цели
func (s *IngestionService) GetTargetReviews(ctx context.Context, targetID uuid.UUID, kind entity.TargetKind) ([]entity.Review, error) {
	reviews, err := s.reviewRepo.GetVisibleByTarget(ctx, targetID, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to get reviews: %w", err)
	}

	return reviews, nil
}

// scoreBounded выполняет скоринг с бюджетом времени.
// Таймаут и падение скорера трактуются как максимальный риск (fail closed):
// сломанный классификатор не должен молча пропускать контент мимо модерации.
func (s *IngestionService) scoreBounded(ctx context.Context, text string) risk.Assessment {
	scoreCtx, cancel := context.WithTimeout(ctx, s.modCfg.ScorerTimeout)
	defer cancel()

	done := make(chan risk.Assessment, 1)
	go func() {
		done <- s.scorer.Score(text)
	}()

	select {
	case assessment := <-done:
		return assessment
	case <-scoreCtx.Done():
		metrics.ScorerTimeouts.Inc()
		logger.Warn().Msg("Risk scorer timed out, treating submission as maximum risk")
		return risk.Assessment{Composite: 1.0, Signals: []string{"scorer_timeout"}}
	}
}

func (s *IngestionService) publishEvent(ctx context.Context, review *entity.Review, eventType string) {
	event := entity.ReviewEvent{
		EventType:  eventType,
		ReviewID:   review.ID.String(),
		TargetID:   review.TargetID.String(),
		TargetKind: string(review.TargetKind),
		Status:     string(review.Status),
		Timestamp:  time.Now(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to marshal review event")
		return
	}

	// Событие не критично: отзыв уже записан, потребители догонят
	if err := s.publisher.PublishMessage(ctx, event.ReviewID, data); err != nil {
		logger.Warn().Err(err).Str("event", eventType).Msg("Failed to publish review event")
	}
}

func validateRatings(kind entity.TargetKind, ratings map[string]int) error {
	allowed, ok := allowedRatingKeys[kind]
	if !ok {
		return fmt.Errorf("%w: unknown target kind", ErrValidation)
	}

	for key, value := range ratings {
		if _, ok := allowed[key]; !ok {
			return fmt.Errorf("%w: rating %q is not defined for %s", ErrValidation, key, kind)
		}
		if value < 1 || value > 5 {
			return fmt.Errorf("%w: rating %q must be between 1 and 5", ErrValidation, key)
		}
	}

	return nil
}

func toJSONMap(ratings map[string]int) datatypes.JSONMap {
	m := make(datatypes.JSONMap, len(ratings))
	for k, v := range ratings {
		m[k] = v
	}
	return m
}
