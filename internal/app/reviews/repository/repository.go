package repository

import (
	"context"
	"time"

	"campusrate/internal/app/reviews/entity"

	"github.com/google/uuid"
)

// ReviewRepository определяет операции контент-хранилища (PostgreSQL).
// Ни один метод не принимает и не возвращает личность автора.
type ReviewRepository interface {
	Create(ctx context.Context, review *entity.Review) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Review, error)
	GetVisibleByTarget(ctx context.Context, targetID uuid.UUID, kind entity.TargetKind) ([]entity.Review, error)
	UpdateContent(ctx context.Context, review *entity.Review) error
	// Delete - компенсирующий откат саги ingestion
	Delete(ctx context.Context, id uuid.UUID) error
	ListByStatus(ctx context.Context, status entity.ReviewStatus) ([]entity.Review, error)
	// Transition атомарно меняет статус (compare-and-set по from)
	// и пишет ровно одну строку аудита в той же транзакции
	Transition(ctx context.Context, reviewID uuid.UUID, from, to entity.ReviewStatus, action *entity.ModerationAction) error
}

// FlagRepository - жалобы и атомарный инкремент flag_count
type FlagRepository interface {
	// CreateWithIncrement в одной транзакции: дедупликация, вставка жалобы,
	// flag_count = flag_count + 1 с возвратом пост-инкрементного значения.
	// При дубликате возвращает существующую жалобу, newCount текущий, duplicate = true.
	CreateWithIncrement(ctx context.Context, flag *entity.Flag) (existing *entity.Flag, newCount int, duplicate bool, err error)
	ListByReview(ctx context.Context, reviewID uuid.UUID) ([]entity.Flag, error)
}

// VoteRepository - голоса helpful/not-helpful с агрегатами на строке отзыва
type VoteRepository interface {
	// Upsert: один голос на (user, review); смена значения корректирует счётчики,
	// повтор того же значения - no-op. Возвращает актуальные счётчики.
	Upsert(ctx context.Context, reviewID, userID uuid.UUID, helpful bool) (vote *entity.Vote, changed bool, helpfulVotes, unhelpfulVotes int, err error)
}

// AuditRepository - append-only журнал модерации
type AuditRepository interface {
	ListByReview(ctx context.Context, reviewID uuid.UUID) ([]entity.ModerationAction, error)
	// FindRecent ищет идентичную запись (review, action, actor) не старше since
	// для идемпотентных повторов клиента
	FindRecent(ctx context.Context, reviewID uuid.UUID, action entity.ModerationActionKind, actorID string, since time.Time) (*entity.ModerationAction, error)
}

// AuthorMappingRepository - изолированный mapping store (MongoDB).
// Единственные вызывающие: ingestion (запись) и привилегированный
// author lookup модерации (чтение).
type AuthorMappingRepository interface {
	Create(ctx context.Context, mapping *entity.AuthorMapping) error
	FindByReviewID(ctx context.Context, reviewID string) (*entity.AuthorMapping, error)
	FindByAuthorAndTarget(ctx context.Context, authorID, targetID string) (*entity.AuthorMapping, error)
}

// TargetRepository - read-only проверка существования цели в каталоге
type TargetRepository interface {
	Exists(ctx context.Context, id uuid.UUID, kind entity.TargetKind) (bool, error)
}

// Decision - решение rate limiter'а
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// RateLimitRepository - счётчики окон в Redis.
// Инкремент атомарный (INCR), счётчики истекают по TTL окна.
type RateLimitRepository interface {
	CheckAndIncrement(ctx context.Context, userID, actionKind string, limit int, window time.Duration) (*Decision, error)
}
