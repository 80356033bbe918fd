package entity

// SubmitReviewRequest - запрос на отправку отзыва
type SubmitReviewRequest struct {
	TargetID    string         `json:"target_id" validate:"required,uuid"`
	TargetKind  string         `json:"target_kind" validate:"required,oneof=professor college"`
	BodyText    string         `json:"body_text" validate:"omitempty,max=2000"`
	Ratings     map[string]int `json:"ratings" validate:"required,min=1"`
	DisplayMode string         `json:"display_mode" validate:"required,oneof=anonymous named"`
}

// FlagReviewRequest - жалоба на отзыв
type FlagReviewRequest struct {
	Reason string `json:"reason" validate:"required,oneof=spam profanity harassment irrelevant other"`
}

// VoteRequest - голос helpful/not-helpful
// Helpful - указатель, чтобы отличать false от отсутствия поля
type VoteRequest struct {
	Helpful *bool `json:"helpful" validate:"required"`
}

// AppealRequest - апелляция автора на удаление отзыва
type AppealRequest struct {
	Reason string `json:"reason" validate:"required,min=10,max=1000"`
}

// ModerationActionRequest - действие модератора над отзывом
type ModerationActionRequest struct {
	Action string `json:"action" validate:"required,oneof=begin_review approve remove reinstate deny"`
	Reason string `json:"reason" validate:"required,min=3,max=1000"`
}

// ErrorResponse - стандартный ответ об ошибке
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// SuccessResponse - стандартный ответ об успехе
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ReviewListResponse - ответ со списком отзывов
type ReviewListResponse struct {
	Reviews []Review `json:"reviews"`
	Total   int      `json:"total"`
}

// AuditResponse - журнал модерации по отзыву
type AuditResponse struct {
	Actions []ModerationAction `json:"actions"`
	Total   int                `json:"total"`
}

// AuthorResponse - ответ привилегированного author lookup
type AuthorResponse struct {
	ReviewID string `json:"review_id"`
	AuthorID string `json:"author_id"`
}

// FlagOutcome - результат обработки жалобы
type FlagOutcome struct {
	Flag         *Flag `json:"flag"`
	Duplicate    bool  `json:"duplicate"`
	FlagCount    int   `json:"flag_count"`
	Transitioned bool  `json:"transitioned"`
}

// VoteOutcome - результат голосования
type VoteOutcome struct {
	Vote           *Vote `json:"vote"`
	Changed        bool  `json:"changed"`
	HelpfulVotes   int   `json:"helpful_votes"`
	UnhelpfulVotes int   `json:"unhelpful_votes"`
}
