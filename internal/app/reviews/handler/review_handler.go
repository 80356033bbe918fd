package handler

import (
	"errors"
	"net/http"
	"strconv"

	"campusrate/internal/app/reviews/entity"
	"campusrate/internal/app/reviews/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type ReviewHandler struct {
	ingestion service.IngestionServiceInterface
	flags     service.FlagServiceInterface
	mod       service.ModerationServiceInterface
	validator *validator.Validate
}

func NewReviewHandler(ingestion service.IngestionServiceInterface, flags service.FlagServiceInterface, mod service.ModerationServiceInterface) *ReviewHandler {
	return &ReviewHandler{
		ingestion: ingestion,
		flags:     flags,
		mod:       mod,
		validator: validator.New(),
	}
}

func (h *ReviewHandler) SubmitReview(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req entity.SubmitReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if err := h.validator.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": formatValidationError(err)})
		return
	}

	review, err := h.ingestion.SubmitReview(c.Request.Context(), userID, &req)
	if err != nil {
		respondSubmitError(c, err)
		return
	}

	c.JSON(http.StatusCreated, review)
}

func (h *ReviewHandler) GetReview(c *gin.Context) {
	reviewID, ok := pathUUID(c, "review_id")
	if !ok {
		return
	}

	review, err := h.ingestion.GetPublicReview(c.Request.Context(), reviewID)
	if err != nil {
		if errors.Is(err, service.ErrReviewNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Review not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get review"})
		return
	}

	c.JSON(http.StatusOK, review)
}

func (h *ReviewHandler) GetTargetReviews(c *gin.Context) {
	kind := entity.TargetKind(c.Param("target_kind"))
	if kind != entity.TargetProfessor && kind != entity.TargetCollege {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown target kind"})
		return
	}

	targetID, ok := pathUUID(c, "target_id")
	if !ok {
		return
	}

	reviews, err := h.ingestion.GetTargetReviews(c.Request.Context(), targetID, kind)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get reviews"})
		return
	}

	c.JSON(http.StatusOK, entity.ReviewListResponse{
		Reviews: reviews,
		Total:   len(reviews),
	})
}

func (h *ReviewHandler) FlagReview(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	reviewID, ok := pathUUID(c, "review_id")
	if !ok {
		return
	}

	var req entity.FlagReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if err := h.validator.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": formatValidationError(err)})
		return
	}

	reporterID, err := uuid.Parse(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid user ID"})
		return
	}

	outcome, err := h.flags.FlagReview(c.Request.Context(), reviewID, &reporterID, entity.FlagSourceUser, entity.FlagReason(req.Reason))
	if err != nil {
		respondFlagError(c, err)
		return
	}

	// Дубликат - не ошибка: возвращаем существующую жалобу
	c.JSON(http.StatusOK, outcome)
}

func (h *ReviewHandler) CastVote(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	reviewID, ok := pathUUID(c, "review_id")
	if !ok {
		return
	}

	var req entity.VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if err := h.validator.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": formatValidationError(err)})
		return
	}

	voterID, err := uuid.Parse(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid user ID"})
		return
	}

	outcome, err := h.flags.CastVote(c.Request.Context(), reviewID, voterID, *req.Helpful)
	if err != nil {
		respondFlagError(c, err)
		return
	}

	c.JSON(http.StatusOK, outcome)
}

func (h *ReviewHandler) AppealReview(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	reviewID, ok := pathUUID(c, "review_id")
	if !ok {
		return
	}

	var req entity.AppealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if err := h.validator.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": formatValidationError(err)})
		return
	}

	review, err := h.mod.Appeal(c.Request.Context(), userID, reviewID, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrReviewNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Review not found"})
		case errors.Is(err, service.ErrNotAuthor):
			c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		case errors.Is(err, service.ErrInvalidTransition):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to submit appeal"})
		}
		return
	}

	c.JSON(http.StatusOK, review)
}

func currentUserID(c *gin.Context) (string, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return "", false
	}

	userIDStr, ok := userID.(string)
	if !ok || userIDStr == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid user ID"})
		return "", false
	}

	return userIDStr, true
}

func pathUUID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": param + " must be a valid UUID"})
		return uuid.Nil, false
	}
	return id, true
}

func respondSubmitError(c *gin.Context, err error) {
	var rle *service.RateLimitedError

	switch {
	case errors.As(err, &rle):
		c.Header("Retry-After", strconv.Itoa(int(rle.RetryAfter.Seconds())))
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many submissions, try again later"})
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrTargetNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Review target not found"})
	case errors.Is(err, service.ErrIngestionFailed):
		// Внутренности саги наружу не отдаём
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to submit review"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to submit review"})
	}
}

func respondFlagError(c *gin.Context, err error) {
	var rle *service.RateLimitedError

	switch {
	case errors.As(err, &rle):
		c.Header("Retry-After", strconv.Itoa(int(rle.RetryAfter.Seconds())))
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many actions, try again later"})
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrReviewNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Review not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process request"})
	}
}

func formatValidationError(err error) string {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, fieldError := range validationErrors {
			return fieldError.Field() + " is " + fieldError.Tag()
		}
	}
	return "Validation failed"
}
