package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// TargetKind определяет тип цели отзыва
type TargetKind string

const (
	TargetProfessor TargetKind = "professor"
	TargetCollege   TargetKind = "college"
)

// DisplayMode выбирается автором и не влияет на модерацию
type DisplayMode string

const (
	DisplayAnonymous DisplayMode = "anonymous"
	DisplayNamed     DisplayMode = "named"
)

// ReviewStatus - состояние отзыва в жизненном цикле модерации
type ReviewStatus string

const (
	StatusPending     ReviewStatus = "pending"
	StatusPublished   ReviewStatus = "published"
	StatusFlagged     ReviewStatus = "flagged"
	StatusUnderReview ReviewStatus = "under_review"
	StatusRemoved     ReviewStatus = "removed"
	StatusApproved    ReviewStatus = "approved"
	StatusAppealed    ReviewStatus = "appealed"
	StatusReinstated  ReviewStatus = "reinstated"
)

// Visible сообщает, виден ли отзыв в публичных выборках
func (s ReviewStatus) Visible() bool {
	return s == StatusPublished || s == StatusApproved || s == StatusReinstated
}

// Review - публичная запись отзыва в PostgreSQL.
// Намеренно не содержит ни одного поля с личностью автора:
// связь с автором живёт только в изолированном mapping store.
type Review struct {
	ID             uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	TargetID       uuid.UUID         `gorm:"type:uuid;not null;index:idx_reviews_target" json:"target_id"`
	TargetKind     TargetKind        `gorm:"size:20;not null;index:idx_reviews_target" json:"target_kind"`
	BodyText       string            `gorm:"size:2000" json:"body_text,omitempty"`
	Ratings        datatypes.JSONMap `gorm:"type:jsonb" json:"ratings"`
	DisplayMode    DisplayMode       `gorm:"size:20;not null" json:"display_mode"`
	Status         ReviewStatus      `gorm:"size:20;not null;index" json:"status"`
	FlagCount      int               `gorm:"not null;default:0" json:"flag_count"`
	HelpfulVotes   int               `gorm:"not null;default:0" json:"helpful_votes"`
	UnhelpfulVotes int               `gorm:"not null;default:0" json:"unhelpful_votes"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// AuthorMapping - единственная связь отзыва с автором.
// Хранится в отдельном MongoDB с собственным credential;
// обычные query paths этой коллекции не видят.
type AuthorMapping struct {
	ReviewID  string    `bson:"review_id"`
	AuthorID  string    `bson:"author_id"`
	TargetID  string    `bson:"target_id"`
	CreatedAt time.Time `bson:"created_at"`
}

// FlagSource различает жалобы пользователей и системные авто-флаги
type FlagSource string

const (
	FlagSourceUser FlagSource = "user"
	FlagSourceAuto FlagSource = "auto"
)

// FlagReason - причина жалобы
type FlagReason string

const (
	ReasonSpam       FlagReason = "spam"
	ReasonProfanity  FlagReason = "profanity"
	ReasonHarassment FlagReason = "harassment"
	ReasonIrrelevant FlagReason = "irrelevant"
	ReasonOther      FlagReason = "other"
)

// Flag - одна жалоба на отзыв. ReporterID == nil для системных флагов.
type Flag struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ReviewID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"review_id"`
	ReporterID *uuid.UUID `gorm:"type:uuid" json:"reporter_id,omitempty"`
	Source     FlagSource `gorm:"size:10;not null" json:"source"`
	Reason     FlagReason `gorm:"size:20;not null" json:"reason"`
	CreatedAt  time.Time  `json:"created_at"`
}

// ModerationActionKind - действия-переходы state machine модерации
type ModerationActionKind string

const (
	ActionAutoClear     ModerationActionKind = "auto_clear"
	ActionFlagThreshold ModerationActionKind = "flag_threshold"
	ActionBeginReview   ModerationActionKind = "begin_review"
	ActionApprove       ModerationActionKind = "approve"
	ActionRemove        ModerationActionKind = "remove"
	ActionAppeal        ModerationActionKind = "appeal"
	ActionReinstate     ModerationActionKind = "reinstate"
	ActionDeny          ModerationActionKind = "deny"
)

// SystemActorID - actor_id автоматических переходов
const SystemActorID = "system"

// ModerationAction - append-only запись аудита.
// Каждая смена статуса отзыва имеет ровно одну такую строку.
type ModerationAction struct {
	ID         uuid.UUID            `gorm:"type:uuid;primaryKey" json:"id"`
	ReviewID   uuid.UUID            `gorm:"type:uuid;not null;index" json:"review_id"`
	ActorID    string               `gorm:"size:64;not null" json:"actor_id"`
	Action     ModerationActionKind `gorm:"size:20;not null" json:"action"`
	FromStatus ReviewStatus         `gorm:"size:20;not null" json:"from_status"`
	ToStatus   ReviewStatus         `gorm:"size:20;not null" json:"to_status"`
	ReasonText string               `gorm:"size:1000" json:"reason_text"`
	CreatedAt  time.Time            `json:"created_at"`
}

// Vote - голос helpful/not-helpful, один на (user, review), значение можно менять
type Vote struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ReviewID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_votes_review_user" json:"review_id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_votes_review_user" json:"user_id"`
	Helpful   bool      `gorm:"not null" json:"helpful"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ReviewEvent - событие для downstream-потребителей (пересчёт агрегатов)
type ReviewEvent struct {
	EventType  string    `json:"event_type"` // REVIEW_PUBLISHED, REVIEW_FLAGGED, REVIEW_REMOVED, REVIEW_REINSTATED
	ReviewID   string    `json:"review_id"`
	TargetID   string    `json:"target_id"`
	TargetKind string    `json:"target_kind"`
	Status     string    `json:"status"`
	Timestamp  time.Time `json:"timestamp"`
}

const (
	EventReviewPublished  = "REVIEW_PUBLISHED"
	EventReviewFlagged    = "REVIEW_FLAGGED"
	EventReviewRemoved    = "REVIEW_REMOVED"
	EventReviewReinstated = "REVIEW_REINSTATED"
)
