package service

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrValidation        = errors.New("validation error")
	ErrRateLimited       = errors.New("rate limited")
	ErrTargetNotFound    = errors.New("review target not found")
	ErrReviewNotFound    = errors.New("review not found")
	ErrIngestionFailed   = errors.New("review ingestion failed")
	ErrInvalidTransition = errors.New("invalid moderation transition")
	ErrNotAuthor         = errors.New("caller is not the author of the review")
	ErrReasonRequired    = errors.New("moderator action requires a reason")
)

// RateLimitedError несёт подсказку retry-after для заголовка ответа.
// errors.Is(err, ErrRateLimited) работает через Is.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

func (e *RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}

// InvalidTransitionError сообщает администратору текущее состояние
// и запрошенное действие. errors.Is(err, ErrInvalidTransition) работает через Is.
type InvalidTransitionError struct {
	Current   string
	Requested string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition: action %q not allowed from status %q", e.Requested, e.Current)
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
