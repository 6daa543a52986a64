package resp

import (
	"errors"
	"net/http"

	"github.com/phuchau-restaurant/restaurant-staff-sub001/pkg/apperr"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "data": data})
}
func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, gin.H{"ok": true, "data": data})
}
func BadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": msg})
}
func Unauthorized(c *gin.Context, msg string) {
	c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": msg})
}
func Forbidden(c *gin.Context, msg string) {
	c.JSON(http.StatusForbidden, gin.H{"ok": false, "error": msg})
}
func NotFound(c *gin.Context, msg string) {
	c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": msg})
}
func ServerError(c *gin.Context, err error) {
	log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "internal error"})
}

// Error maps the order error taxonomy onto HTTP responses.
func Error(c *gin.Context, err error) {
	var te *apperr.TransitionError
	var ce *apperr.ConfirmationError
	switch {
	case errors.As(err, &te):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"ok": false, "error": "invalid_transition", "reason": te.Reason,
			"from": te.From, "to": te.To,
		})
	case errors.As(err, &ce):
		c.JSON(http.StatusPreconditionRequired, gin.H{
			"ok": false, "error": "confirmation_required",
			"cascade": gin.H{"targetItemStatus": ce.TargetItemStatus, "itemIds": ce.ItemIDs},
		})
	case errors.Is(err, apperr.ErrConflictRetry):
		c.JSON(http.StatusConflict, gin.H{"ok": false, "error": "conflict", "reason": "order changed, re-read and retry"})
	case errors.Is(err, apperr.ErrNotFound):
		NotFound(c, "not found")
	case errors.Is(err, apperr.ErrValidation):
		BadRequest(c, err.Error())
	default:
		ServerError(c, err)
	}
}
