package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/shubhayu-dev/Sanrakshan/internal/apperr"
)

// renderError converts the domain error taxonomy into HTTP responses.
// Validation and state errors become structured user messages; integrity
// violations and unknown errors are logged and surfaced as 500s.
func (h *Handler) renderError(c *gin.Context, err error) {
	var ve *apperr.ValidationError
	if errors.As(err, &ve) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error": ve.Message,
			"field": ve.Field,
		})
		return
	}

	var te *apperr.InvalidTransitionError
	if errors.As(err, &te) {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{
			"error":  te.Error(),
			"status": te.From,
		})
		return
	}

	var se *apperr.InvalidStateError
	if errors.As(err, &se) {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{
			"error":  se.Error(),
			"status": se.Status,
		})
		return
	}

	if apperr.IsNotFound(err) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	// A deactivated code surfaces as a conflict with its own marker, never
	// as a plain 404: "already claimed" and "no such code" read differently
	// to the person at the counter.
	if errors.Is(err, apperr.ErrCodeInactive) {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{
			"error":   "this code has been deactivated (items already claimed)",
			"outcome": "deactivated",
		})
		return
	}

	var cv *apperr.ConstraintViolation
	if errors.As(err, &cv) {
		h.logger.Error("constraint violation", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal integrity error"})
		return
	}

	h.logger.Error("unhandled error", zap.Error(err))
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
