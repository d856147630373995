package handler

import (
	"net/http"

	"github.com/yourorg/bloodlink/internal/apperr"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondError maps an application error onto an HTTP status and JSON body.
// Classified errors carry their code so the client can branch on it; the
// lost-race accept conflict surfaces as code "request_taken" for the distinct
// "no longer available" message. Anything unclassified is a 500.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	if e, ok := apperr.As(err); ok {
		var status int
		switch e.Kind {
		case apperr.KindValidation:
			status = http.StatusBadRequest
		case apperr.KindNotFound:
			status = http.StatusNotFound
		case apperr.KindConflict:
			status = http.StatusConflict
		case apperr.KindUnauthorized:
			status = http.StatusUnauthorized
		case apperr.KindForbidden:
			status = http.StatusForbidden
		default:
			status = http.StatusInternalServerError
		}
		c.JSON(status, gin.H{"error": e.Message, "code": e.Code})
		return
	}

	logger.Error("Unhandled error", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}

func currentUserID(c *gin.Context) string {
	userID, _ := c.Get("userID")
	id, _ := userID.(string)
	return id
}
