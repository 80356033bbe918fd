package mocks

import (
	"context"
	"time"

	"campusrate/internal/app/reviews/entity"
	"campusrate/internal/app/reviews/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockReviewRepository мок для ReviewRepository
type MockReviewRepository struct {
	mock.Mock
}

func (m *MockReviewRepository) Create(ctx context.Context, review *entity.Review) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}

func (m *MockReviewRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Review, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Review), args.Error(1)
}

func (m *MockReviewRepository) GetVisibleByTarget(ctx context.Context, targetID uuid.UUID, kind entity.TargetKind) ([]entity.Review, error) {
	args := m.Called(ctx, targetID, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Review), args.Error(1)
}

func (m *MockReviewRepository) UpdateContent(ctx context.Context, review *entity.Review) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}

func (m *MockReviewRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockReviewRepository) ListByStatus(ctx context.Context, status entity.ReviewStatus) ([]entity.Review, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Review), args.Error(1)
}

func (m *MockReviewRepository) Transition(ctx context.Context, reviewID uuid.UUID, from, to entity.ReviewStatus, action *entity.ModerationAction) error {
	args := m.Called(ctx, reviewID, from, to, action)
	return args.Error(0)
}

// MockFlagRepository мок для FlagRepository
type MockFlagRepository struct {
	mock.Mock
}

func (m *MockFlagRepository) CreateWithIncrement(ctx context.Context, flag *entity.Flag) (*entity.Flag, int, bool, error) {
	args := m.Called(ctx, flag)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Bool(2), args.Error(3)
	}
	return args.Get(0).(*entity.Flag), args.Int(1), args.Bool(2), args.Error(3)
}

func (m *MockFlagRepository) ListByReview(ctx context.Context, reviewID uuid.UUID) ([]entity.Flag, error) {
	args := m.Called(ctx, reviewID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Flag), args.Error(1)
}

// MockVoteRepository мок для VoteRepository
type MockVoteRepository struct {
	mock.Mock
}

func (m *MockVoteRepository) Upsert(ctx context.Context, reviewID, userID uuid.UUID, helpful bool) (*entity.Vote, bool, int, int, error) {
	args := m.Called(ctx, reviewID, userID, helpful)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Int(2), args.Int(3), args.Error(4)
	}
	return args.Get(0).(*entity.Vote), args.Bool(1), args.Int(2), args.Int(3), args.Error(4)
}

// MockAuditRepository мок для AuditRepository
type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) ListByReview(ctx context.Context, reviewID uuid.UUID) ([]entity.ModerationAction, error) {
	args := m.Called(ctx, reviewID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.ModerationAction), args.Error(1)
}

func (m *MockAuditRepository) FindRecent(ctx context.Context, reviewID uuid.UUID, action entity.ModerationActionKind, actorID string, since time.Time) (*entity.ModerationAction, error) {
	args := m.Called(ctx, reviewID, action, actorID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.ModerationAction), args.Error(1)
}

// MockAuthorMappingRepository мок для AuthorMappingRepository
type MockAuthorMappingRepository struct {
	mock.Mock
}

func (m *MockAuthorMappingRepository) Create(ctx context.Context, mapping *entity.AuthorMapping) error {
	args := m.Called(ctx, mapping)
	return args.Error(0)
}

func (m *MockAuthorMappingRepository) FindByReviewID(ctx context.Context, reviewID string) (*entity.AuthorMapping, error) {
	args := m.Called(ctx, reviewID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.AuthorMapping), args.Error(1)
}

func (m *MockAuthorMappingRepository) FindByAuthorAndTarget(ctx context.Context, authorID, targetID string) (*entity.AuthorMapping, error) {
	args := m.Called(ctx, authorID, targetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.AuthorMapping), args.Error(1)
}

// MockTargetRepository мок для TargetRepository
type MockTargetRepository struct {
	mock.Mock
}

func (m *MockTargetRepository) Exists(ctx context.Context, id uuid.UUID, kind entity.TargetKind) (bool, error) {
	args := m.Called(ctx, id, kind)
	return args.Bool(0), args.Error(1)
}

// MockRateLimitRepository мок для RateLimitRepository
type MockRateLimitRepository struct {
	mock.Mock
}

func (m *MockRateLimitRepository) CheckAndIncrement(ctx context.Context, userID, actionKind string, limit int, window time.Duration) (*repository.Decision, error) {
	args := m.Called(ctx, userID, actionKind, limit, window)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.Decision), args.Error(1)
}

// MockMessagePublisher мок для Kafka MessagePublisher
type MockMessagePublisher struct {
	mock.Mock
	Messages [][]byte
}

func (m *MockMessagePublisher) PublishMessage(ctx context.Context, key string, value []byte) error {
	m.Messages = append(m.Messages, value)
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockMessagePublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}
