package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/teamforge/mentor-platform/internal/apperr"
)

// respondError maps the engine's error taxonomy onto HTTP statuses. The
// reason string is part of the contract and safe to surface.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		status = http.StatusBadRequest
	case apperr.KindForbidden:
		status = http.StatusForbidden
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindConflict:
		status = http.StatusConflict
	case apperr.KindUnavailable:
		status = http.StatusServiceUnavailable
	}

	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	c.JSON(status, gin.H{"error": message})
}
