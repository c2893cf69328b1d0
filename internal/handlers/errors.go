package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"corrguessr-backend/internal/services"
)

// respondError maps engine errors onto status codes. Anything unknown is
// a server error.
func respondError(c *gin.Context, err error, message string) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, services.ErrInvalidGuess):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrGameNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrNotGameOwner):
		status = http.StatusForbidden
	case errors.Is(err, services.ErrSubmissionClosed), errors.Is(err, services.ErrRoundInProgress):
		status = http.StatusConflict
	case errors.Is(err, services.ErrSessionNotFound):
		status = http.StatusUnauthorized
	}

	c.JSON(status, gin.H{
		"error":   message,
		"details": err.Error(),
	})
}
