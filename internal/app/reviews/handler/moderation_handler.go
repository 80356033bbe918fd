package handler

import (
	"errors"
	"net/http"

	"campusrate/internal/app/reviews/entity"
	"campusrate/internal/app/reviews/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// ModerationHandler - административная поверхность.
// Все маршруты закрыты RequireModerator, author lookup - service credential.
type ModerationHandler struct {
	mod       service.ModerationServiceInterface
	validator *validator.Validate
}

func NewModerationHandler(mod service.ModerationServiceInterface) *ModerationHandler {
	return &ModerationHandler{
		mod:       mod,
		validator: validator.New(),
	}
}

func (h *ModerationHandler) GetQueue(c *gin.Context) {
	status := entity.ReviewStatus(c.DefaultQuery("status", string(entity.StatusFlagged)))

	reviews, err := h.mod.Queue(c.Request.Context(), status)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load moderation queue"})
		return
	}

	c.JSON(http.StatusOK, entity.ReviewListResponse{
		Reviews: reviews,
		Total:   len(reviews),
	})
}

func (h *ModerationHandler) ApplyAction(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		return
	}

	reviewID, ok := pathUUID(c, "review_id")
	if !ok {
		return
	}

	var req entity.ModerationActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if err := h.validator.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": formatValidationError(err)})
		return
	}

	review, err := h.mod.Apply(c.Request.Context(), actorID, reviewID, entity.ModerationActionKind(req.Action), req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrReviewNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Review not found"})
		case errors.Is(err, service.ErrReasonRequired):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Reason is required"})
		case errors.Is(err, service.ErrInvalidTransition):
			// Администратору сообщаем текущее и запрошенное состояние
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to apply moderation action"})
		}
		return
	}

	c.JSON(http.StatusOK, review)
}

func (h *ModerationHandler) GetAuditTrail(c *gin.Context) {
	reviewID, ok := pathUUID(c, "review_id")
	if !ok {
		return
	}

	actions, err := h.mod.AuditTrail(c.Request.Context(), reviewID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load audit trail"})
		return
	}

	c.JSON(http.StatusOK, entity.AuditResponse{
		Actions: actions,
		Total:   len(actions),
	})
}

func (h *ModerationHandler) GetAuthor(c *gin.Context) {
	reviewID, ok := pathUUID(c, "review_id")
	if !ok {
		return
	}

	mapping, err := h.mod.AuthorOf(c.Request.Context(), reviewID)
	if err != nil {
		if errors.Is(err, service.ErrReviewNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Review not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up author"})
		return
	}

	c.JSON(http.StatusOK, entity.AuthorResponse{
		ReviewID: mapping.ReviewID,
		AuthorID: mapping.AuthorID,
	})
}
