package service

import (
	"context"
	"testing"
	"time"

	"campusrate/internal/app/reviews/entity"
	"campusrate/internal/app/reviews/repository"
	"campusrate/internal/app/reviews/repository/mocks"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type moderationMocks struct {
	reviewRepo  *mocks.MockReviewRepository
	auditRepo   *mocks.MockAuditRepository
	mappingRepo *mocks.MockAuthorMappingRepository
	publisher   *mocks.MockMessagePublisher
}

func newModerationService() (*ModerationService, *moderationMocks) {
	m := &moderationMocks{
		reviewRepo:  new(mocks.MockReviewRepository),
		auditRepo:   new(mocks.MockAuditRepository),
		mappingRepo: new(mocks.MockAuthorMappingRepository),
		publisher:   &mocks.MockMessagePublisher{Messages: make([][]byte, 0)},
	}

	svc := NewModerationService(m.reviewRepo, m.auditRepo, m.mappingRepo, m.publisher, defaultModCfg())
	return svc, m
}

func reviewInStatus(status entity.ReviewStatus) *entity.Review {
	return &entity.Review{
		ID:         uuid.New(),
		TargetID:   uuid.New(),
		TargetKind: entity.TargetProfessor,
		Status:     status,
	}
}

func TestApply_BeginReview(t *testing.T) {
	svc, m := newModerationService()
	ctx := context.Background()
	review := reviewInStatus(entity.StatusFlagged)

	m.reviewRepo.On("GetByID", ctx, review.ID).Return(review, nil)
	m.auditRepo.On("FindRecent", ctx, review.ID, entity.ActionBeginReview, "mod-1", mock.AnythingOfType("time.Time")).Return(nil, nil)

	var audit *entity.ModerationAction
	m.reviewRepo.On("Transition", ctx, review.ID, entity.StatusFlagged, entity.StatusUnderReview, mock.Anything).
		Run(func(args mock.Arguments) {
			audit = args.Get(4).(*entity.ModerationAction)
		}).
		Return(nil)

	result, err := svc.Apply(ctx, "mod-1", review.ID, entity.ActionBeginReview, "taking this case")

	assert.NoError(t, err)
	assert.Equal(t, entity.StatusUnderReview, result.Status)
	assert.Equal(t, "mod-1", audit.ActorID)
	assert.Equal(t, "taking this case", audit.ReasonText)
}

func TestApply_TransitionTable(t *testing.T) {
	cases := []struct {
		name    string
		action  entity.ModerationActionKind
		current entity.ReviewStatus
		next    entity.ReviewStatus
	}{
		{"approve from under_review", entity.ActionApprove, entity.StatusUnderReview, entity.StatusApproved},
		{"remove from under_review", entity.ActionRemove, entity.StatusUnderReview, entity.StatusRemoved},
		{"reinstate from appealed", entity.ActionReinstate, entity.StatusAppealed, entity.StatusReinstated},
		{"deny from appealed", entity.ActionDeny, entity.StatusAppealed, entity.StatusRemoved},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, m := newModerationService()
			ctx := context.Background()
			review := reviewInStatus(tc.current)

			m.reviewRepo.On("GetByID", ctx, review.ID).Return(review, nil)
			m.auditRepo.On("FindRecent", ctx, review.ID, tc.action, "mod-1", mock.AnythingOfType("time.Time")).Return(nil, nil)
			m.reviewRepo.On("Transition", ctx, review.ID, tc.current, tc.next, mock.Anything).Return(nil)
			m.publisher.On("PublishMessage", ctx, mock.Anything, mock.Anything).Return(nil)

			result, err := svc.Apply(ctx, "mod-1", review.ID, tc.action, "moderation decision")

			assert.NoError(t, err)
			assert.Equal(t, tc.next, result.Status)
		})
	}
}

func TestApply_IllegalTransitionRejected(t *testing.T) {
	cases := []struct {
		name    string
		action  entity.ModerationActionKind
		current entity.ReviewStatus
	}{
		{"approve without review", entity.ActionApprove, entity.StatusPublished},
		{"remove from pending", entity.ActionRemove, entity.StatusPending},
		{"begin review on approved", entity.ActionBeginReview, entity.StatusApproved},
		{"reinstate without appeal", entity.ActionReinstate, entity.StatusRemoved},
		{"appeal a published review", entity.ActionAppeal, entity.StatusPublished},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, m := newModerationService()
			ctx := context.Background()
			review := reviewInStatus(tc.current)

			m.reviewRepo.On("GetByID", ctx, review.ID).Return(review, nil)
			m.auditRepo.On("FindRecent", ctx, review.ID, tc.action, "mod-1", mock.AnythingOfType("time.Time")).Return(nil, nil)

			result, err := svc.Apply(ctx, "mod-1", review.ID, tc.action, "should not happen")

			assert.Nil(t, result)
			assert.ErrorIs(t, err, ErrInvalidTransition)

			var ite *InvalidTransitionError
			assert.ErrorAs(t, err, &ite)
			assert.Equal(t, string(tc.current), ite.Current)

			// Отклонённая попытка не оставляет следов в состоянии и аудите
			m.reviewRepo.AssertNotCalled(t, "Transition", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestApply_ReasonRequired(t *testing.T) {
	svc, m := newModerationService()
	ctx := context.Background()

	result, err := svc.Apply(ctx, "mod-1", uuid.New(), entity.ActionRemove, "   ")

	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrReasonRequired)
	m.reviewRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestApply_IdempotentRetryWritesNoSecondAudit(t *testing.T) {
	svc, m := newModerationService()
	ctx := context.Background()
	review := reviewInStatus(entity.StatusUnderReview)

	prior := &entity.ModerationAction{
		ID:       uuid.New(),
		ReviewID: review.ID,
		ActorID:  "mod-1",
		Action:   entity.ActionApprove,
	}

	m.reviewRepo.On("GetByID", ctx, review.ID).Return(review, nil)
	m.auditRepo.On("FindRecent", ctx, review.ID, entity.ActionApprove, "mod-1", mock.AnythingOfType("time.Time")).Return(prior, nil)

	result, err := svc.Apply(ctx, "mod-1", review.ID, entity.ActionApprove, "looks fine")

	assert.NoError(t, err)
	assert.NotNil(t, result)
	m.reviewRepo.AssertNotCalled(t, "Transition", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestApply_StaleStatusReportsCurrent(t *testing.T) {
	svc, m := newModerationService()
	ctx := context.Background()
	review := reviewInStatus(entity.StatusUnderReview)

	m.reviewRepo.On("GetByID", ctx, review.ID).Return(review, nil).Once()
	m.auditRepo.On("FindRecent", ctx, review.ID, entity.ActionApprove, "mod-1", mock.AnythingOfType("time.Time")).Return(nil, nil)
	m.reviewRepo.On("Transition", ctx, review.ID, entity.StatusUnderReview, entity.StatusApproved, mock.Anything).
		Return(repository.ErrStaleStatus)
	// Конкурент успел раньше: повторное чтение отдаёт свежий статус
	m.reviewRepo.On("GetByID", ctx, review.ID).
		Return(reviewInStatus(entity.StatusRemoved), nil).Once()

	result, err := svc.Apply(ctx, "mod-1", review.ID, entity.ActionApprove, "looks fine")

	assert.Nil(t, result)

	var ite *InvalidTransitionError
	assert.ErrorAs(t, err, &ite)
	assert.Equal(t, string(entity.StatusRemoved), ite.Current)
}

func TestApply_ReviewNotFound(t *testing.T) {
	svc, m := newModerationService()
	ctx := context.Background()
	reviewID := uuid.New()

	m.reviewRepo.On("GetByID", ctx, reviewID).Return(nil, repository.ErrReviewNotFound)

	result, err := svc.Apply(ctx, "mod-1", reviewID, entity.ActionRemove, "spam content")

	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrReviewNotFound)
}

// ===================== Appeal Tests =====================

func TestAppeal_AuthorCanAppealRemoval(t *testing.T) {
	svc, m := newModerationService()
	ctx := context.Background()
	review := reviewInStatus(entity.StatusRemoved)
	authorID := "user-123"

	mapping := &entity.AuthorMapping{ReviewID: review.ID.String(), AuthorID: authorID}

	m.mappingRepo.On("FindByReviewID", ctx, review.ID.String()).Return(mapping, nil)
	m.auditRepo.On("ListByReview", ctx, review.ID).Return([]entity.ModerationAction{
		{Action: entity.ActionFlagThreshold}, {Action: entity.ActionBeginReview}, {Action: entity.ActionRemove},
	}, nil)
	m.reviewRepo.On("GetByID", ctx, review.ID).Return(review, nil)
	m.auditRepo.On("FindRecent", ctx, review.ID, entity.ActionAppeal, authorID, mock.AnythingOfType("time.Time")).Return(nil, nil)
	m.reviewRepo.On("Transition", ctx, review.ID, entity.StatusRemoved, entity.StatusAppealed, mock.Anything).Return(nil)

	result, err := svc.Appeal(ctx, authorID, review.ID, "the review states verifiable facts")

	assert.NoError(t, err)
	assert.Equal(t, entity.StatusAppealed, result.Status)
}

func TestAppeal_NonAuthorRejected(t *testing.T) {
	svc, m := newModerationService()
	ctx := context.Background()
	reviewID := uuid.New()

	mapping := &entity.AuthorMapping{ReviewID: reviewID.String(), AuthorID: "user-123"}
	m.mappingRepo.On("FindByReviewID", ctx, reviewID.String()).Return(mapping, nil)

	result, err := svc.Appeal(ctx, "user-999", reviewID, "this is not even my review")

	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrNotAuthor)
	m.reviewRepo.AssertNotCalled(t, "Transition", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAppeal_DeniedAppealIsTerminal(t *testing.T) {
	svc, m := newModerationService()
	ctx := context.Background()
	reviewID := uuid.New()
	authorID := "user-123"

	mapping := &entity.AuthorMapping{ReviewID: reviewID.String(), AuthorID: authorID}
	m.mappingRepo.On("FindByReviewID", ctx, reviewID.String()).Return(mapping, nil)
	// В журнале уже есть отклонённая апелляция
	m.auditRepo.On("ListByReview", ctx, reviewID).Return([]entity.ModerationAction{
		{Action: entity.ActionRemove}, {Action: entity.ActionAppeal}, {Action: entity.ActionDeny},
	}, nil)

	result, err := svc.Appeal(ctx, authorID, reviewID, "trying a second appeal")

	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	m.reviewRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

// ===================== Queue / AuditTrail / AuthorOf Tests =====================

func TestQueue_ReturnsFlaggedReviews(t *testing.T) {
	svc, m := newModerationService()
	ctx := context.Background()
	flagged := []entity.Review{*reviewInStatus(entity.StatusFlagged)}

	m.reviewRepo.On("ListByStatus", ctx, entity.StatusFlagged).Return(flagged, nil)

	reviews, err := svc.Queue(ctx, entity.StatusFlagged)

	assert.NoError(t, err)
	assert.Len(t, reviews, 1)
}

func TestQueue_RejectsNonQueueStatus(t *testing.T) {
	svc, m := newModerationService()
	ctx := context.Background()

	reviews, err := svc.Queue(ctx, entity.StatusPublished)

	assert.Nil(t, reviews)
	assert.ErrorIs(t, err, ErrValidation)
	m.reviewRepo.AssertNotCalled(t, "ListByStatus", mock.Anything, mock.Anything)
}

func TestAuditTrail_ReturnsFullHistory(t *testing.T) {
	svc, m := newModerationService()
	ctx := context.Background()
	reviewID := uuid.New()
	history := []entity.ModerationAction{
		{Action: entity.ActionFlagThreshold, ActorID: entity.SystemActorID},
		{Action: entity.ActionBeginReview, ActorID: "mod-1"},
		{Action: entity.ActionApprove, ActorID: "mod-1"},
	}

	m.auditRepo.On("ListByReview", ctx, reviewID).Return(history, nil)

	actions, err := svc.AuditTrail(ctx, reviewID)

	assert.NoError(t, err)
	assert.Len(t, actions, 3)
}

func TestAuthorOf_Success(t *testing.T) {
	svc, m := newModerationService()
	ctx := context.Background()
	reviewID := uuid.New()

	mapping := &entity.AuthorMapping{ReviewID: reviewID.String(), AuthorID: "user-123"}
	m.mappingRepo.On("FindByReviewID", ctx, reviewID.String()).Return(mapping, nil)

	result, err := svc.AuthorOf(ctx, reviewID)

	assert.NoError(t, err)
	assert.Equal(t, "user-123", result.AuthorID)
}

func TestAuthorOf_NotFound(t *testing.T) {
	svc, m := newModerationService()
	ctx := context.Background()
	reviewID := uuid.New()

	m.mappingRepo.On("FindByReviewID", ctx, reviewID.String()).Return(nil, repository.ErrMappingNotFound)

	result, err := svc.AuthorOf(ctx, reviewID)

	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrReviewNotFound)
}

func TestActorKind(t *testing.T) {
	assert.Equal(t, "system", actorKind(entity.SystemActorID, entity.ActionAutoClear))
	assert.Equal(t, "author", actorKind("user-123", entity.ActionAppeal))
	assert.Equal(t, "moderator", actorKind("mod-1", entity.ActionRemove))
}

func TestApply_IdempotencyWindowBound(t *testing.T) {
	svc, m := newModerationService()
	ctx := context.Background()
	review := reviewInStatus(entity.StatusFlagged)

	var since time.Time
	m.reviewRepo.On("GetByID", ctx, review.ID).Return(review, nil)
	m.auditRepo.On("FindRecent", ctx, review.ID, entity.ActionBeginReview, "mod-1", mock.AnythingOfType("time.Time")).
		Run(func(args mock.Arguments) {
			since = args.Get(4).(time.Time)
		}).
		Return(nil, nil)
	m.reviewRepo.On("Transition", ctx, review.ID, entity.StatusFlagged, entity.StatusUnderReview, mock.Anything).Return(nil)

	_, err := svc.Apply(ctx, "mod-1", review.ID, entity.ActionBeginReview, "taking this case")

	assert.NoError(t, err)
	// Окно идемпотентности отсчитывается от конфигурации
	assert.WithinDuration(t, time.Now().Add(-90*time.Second), since, 2*time.Second)
}
