package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"campusrate/internal/app/reviews/config"
	"campusrate/internal/app/reviews/entity"
	"campusrate/internal/app/reviews/infrastructure"
	"campusrate/internal/app/reviews/repository"
	"campusrate/pkg/logger"
	"campusrate/pkg/metrics"

	"github.com/google/uuid"
)

// transition описывает одно ребро state machine
type transition struct {
	from []entity.ReviewStatus
	to   entity.ReviewStatus
}

// Таблица переходов. Действия вне таблицы или из чужого статуса
// отклоняются без побочных эффектов.
var transitions = map[entity.ModerationActionKind]transition{
	entity.ActionAutoClear:     {from: []entity.ReviewStatus{entity.StatusPending}, to: entity.StatusPublished},
	entity.ActionFlagThreshold: {from: []entity.ReviewStatus{entity.StatusPending, entity.StatusPublished}, to: entity.StatusFlagged},
	entity.ActionBeginReview:   {from: []entity.ReviewStatus{entity.StatusFlagged}, to: entity.StatusUnderReview},
	entity.ActionApprove:       {from: []entity.ReviewStatus{entity.StatusUnderReview}, to: entity.StatusApproved},
	entity.ActionRemove:        {from: []entity.ReviewStatus{entity.StatusUnderReview}, to: entity.StatusRemoved},
	entity.ActionAppeal:        {from: []entity.ReviewStatus{entity.StatusRemoved}, to: entity.StatusAppealed},
	entity.ActionReinstate:     {from: []entity.ReviewStatus{entity.StatusAppealed}, to: entity.StatusReinstated},
	entity.ActionDeny:          {from: []entity.ReviewStatus{entity.StatusAppealed}, to: entity.StatusRemoved},
}

// ModerationService - авторитетный владелец жизненного цикла отзыва.
// Каждый успешный переход пишет ровно одну строку аудита.
type ModerationService struct {
	reviewRepo  repository.ReviewRepository
	auditRepo   repository.AuditRepository
	mappingRepo repository.AuthorMappingRepository
	publisher   infrastructure.MessagePublisher
	modCfg      config.ModerationConfig
}

// NewModerationService создает сервис модерации с внедрением зависимостей
func NewModerationService(
	reviewRepo repository.ReviewRepository,
	auditRepo repository.AuditRepository,
	mappingRepo repository.AuthorMappingRepository,
	publisher infrastructure.MessagePublisher,
	modCfg config.ModerationConfig,
) *ModerationService {
	return &ModerationService{
		reviewRepo:  reviewRepo,
		auditRepo:   auditRepo,
		mappingRepo: mappingRepo,
		publisher:   publisher,
		modCfg:      modCfg,
	}
}

// Apply выполняет действие модератора над отзывом.
// Идемпотентно при повторе идентичного (review, action, actor) внутри
// IdempotencyWindow: клиентский retry не пишет второй аудит.
func (s *ModerationService) Apply(ctx context.Context, actorID string, reviewID uuid.UUID, action entity.ModerationActionKind, reason string) (*entity.Review, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, ErrReasonRequired
	}

	edge, ok := transitions[action]
	if !ok {
		return nil, &InvalidTransitionError{Current: "unknown", Requested: string(action)}
	}

	review, err := s.reviewRepo.GetByID(ctx, reviewID)
	if err != nil {
		if errors.Is(err, repository.ErrReviewNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, fmt.Errorf("failed to load review: %w", err)
	}

	// Повтор идентичного запроса в коротком окне - вернуть прежний исход
	prior, err := s.auditRepo.FindRecent(ctx, reviewID, action, actorID, time.Now().Add(-s.modCfg.IdempotencyWindow))
	if err != nil {
		return nil, fmt.Errorf("failed idempotency lookup: %w", err)
	}
	if prior != nil {
		logger.Debug().
			Str("review_id", reviewID.String()).
			Str("action", string(action)).
			Msg("Duplicate moderation request within idempotency window")
		return review, nil
	}

	if !statusIn(review.Status, edge.from) {
		// Отклонено без записей; попытка фиксируется в логе для разбора
		metrics.ModerationRejected.WithLabelValues(string(action)).Inc()
		logger.Warn().
			Str("review_id", reviewID.String()).
			Str("actor_id", actorID).
			Str("action", string(action)).
			Str("current_status", string(review.Status)).
			Msg("Rejected moderation transition")
		return nil, &InvalidTransitionError{Current: string(review.Status), Requested: string(action)}
	}

	record := &entity.ModerationAction{
		ActorID:    actorID,
		Action:     action,
		ReasonText: reason,
	}

	if err := s.reviewRepo.Transition(ctx, reviewID, review.Status, edge.to, record); err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			// Статус изменился между чтением и CAS
			current, loadErr := s.reviewRepo.GetByID(ctx, reviewID)
			if loadErr == nil {
				return nil, &InvalidTransitionError{Current: string(current.Status), Requested: string(action)}
			}
			return nil, &InvalidTransitionError{Current: "unknown", Requested: string(action)}
		}
		return nil, fmt.Errorf("failed to apply transition: %w", err)
	}

	review.Status = edge.to
	metrics.ModerationTransitions.WithLabelValues(string(action), actorKind(actorID, action)).Inc()
	s.publishOutcomeEvent(ctx, review, action)

	return review, nil
}

// Appeal - апелляция автора на удаление. Авторство проверяется через
// mapping store; отклонённая апелляция терминальна - повторной нет.
func (s *ModerationService) Appeal(ctx context.Context, authorID string, reviewID uuid.UUID, reason string) (*entity.Review, error) {
	mapping, err := s.mappingRepo.FindByReviewID(ctx, reviewID.String())
	if err != nil {
		if errors.Is(err, repository.ErrMappingNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, fmt.Errorf("failed to verify authorship: %w", err)
	}
	if mapping.AuthorID != authorID {
		return nil, ErrNotAuthor
	}

	// Отзыв, чью апелляцию уже отклонили, больше не апеллируется
	actions, err := s.auditRepo.ListByReview(ctx, reviewID)
	if err != nil {
		return nil, fmt.Errorf("failed to load audit trail: %w", err)
	}
	for _, a := range actions {
		if a.Action == entity.ActionDeny {
			return nil, &InvalidTransitionError{Current: string(entity.StatusRemoved), Requested: string(entity.ActionAppeal)}
		}
	}

	return s.Apply(ctx, authorID, reviewID, entity.ActionAppeal, reason)
}

// Queue возвращает очередь модерации по статусу
func (s *ModerationService) Queue(ctx context.Context, status entity.ReviewStatus) ([]entity.Review, error) {
	if status != entity.StatusFlagged && status != entity.StatusUnderReview {
		return nil, fmt.Errorf("%w: queue holds only flagged and under_review", ErrValidation)
	}

	reviews, err := s.reviewRepo.ListByStatus(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list moderation queue: %w", err)
	}

	return reviews, nil
}

// AuditTrail возвращает полный журнал модерации по отзыву
func (s *ModerationService) AuditTrail(ctx context.Context, reviewID uuid.UUID) ([]entity.ModerationAction, error) {
	actions, err := s.auditRepo.ListByReview(ctx, reviewID)
	if err != nil {
		return nil, fmt.Errorf("failed to load audit trail: %w", err)
	}

	return actions, nil
}

// AuthorOf - единственное чтение mapping store вне ingestion.
// Handler допускает сюда только elevated service credential.
func (s *ModerationService) AuthorOf(ctx context.Context, reviewID uuid.UUID) (*entity.AuthorMapping, error) {
	mapping, err := s.mappingRepo.FindByReviewID(ctx, reviewID.String())
	if err != nil {
		if errors.Is(err, repository.ErrMappingNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, fmt.Errorf("failed to look up author: %w", err)
	}

	return mapping, nil
}

func (s *ModerationService) publishOutcomeEvent(ctx context.Context, review *entity.Review, action entity.ModerationActionKind) {
	var eventType string
	switch action {
	case entity.ActionApprove:
		eventType = entity.EventReviewPublished
	case entity.ActionRemove, entity.ActionDeny:
		eventType = entity.EventReviewRemoved
	case entity.ActionReinstate:
		eventType = entity.EventReviewReinstated
	default:
		return
	}

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
		logger.Error().Err(err).Msg("Failed to marshal moderation event")
		return
	}

	if err := s.publisher.PublishMessage(ctx, event.ReviewID, data); err != nil {
		logger.Warn().Err(err).Str("event", eventType).Msg("Failed to publish moderation event")
	}
}

func statusIn(status entity.ReviewStatus, set []entity.ReviewStatus) bool {
	for _, s := range set {
		if s == status {
			return true
		}
	}
	return false
}

func actorKind(actorID string, action entity.ModerationActionKind) string {
	if actorID == entity.SystemActorID {
		return "system"
	}
	if action == entity.ActionAppeal {
		return "author"
	}
	return "moderator"
}
