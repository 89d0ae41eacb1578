package response

import (
	"log"
	"net/http"

	"anoa.com/creatorviewer/pkg/apperror"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GetUserID reads the authenticated user's ID as placed in the Gin context
// by the auth middleware. Handlers for watch reports, transfers, and other
// per-user routes rely on it.
func GetUserID(c *gin.Context) (uuid.UUID, error) {
	userIDStr, exists := c.Get("user_id")
	if !exists {
		return uuid.Nil, apperror.ErrUnauthorized
	}

	userID, err := uuid.Parse(userIDStr.(string))
	if err != nil {
		return uuid.Nil, apperror.ErrUnauthorized
	}

	return userID, nil
}

// ResponseError writes the error envelope, mapping domain errors (not found,
// conflict on concurrent watch reports, rate limited, ...) to HTTP status
// codes via apperror.
func ResponseError(c *gin.Context, err error) {
	code := apperror.MapErrorToStatus(err)

	// Only unexpected errors are worth logging; 4xx are normal traffic.
	if code == http.StatusInternalServerError {
		log.Printf("[Internal Error]: %v", err)
	}

	c.JSON(code, gin.H{"error": err.Error()})
}
