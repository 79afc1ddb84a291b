package handlers

import (
	stderrors "errors"
	"log"
	"net/http"

	"photofix-api/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// respondError writes an AppError with its own status and code, and hides
// anything else behind a 500 with the given fallback message.
func respondError(c *gin.Context, err error, fallback string) {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		c.JSON(appErr.Status, errors.ErrorResponse{
			Error:   appErr.Code,
			Message: appErr.Message,
		})
		return
	}

	log.Printf("Unhandled error: %v", err)
	c.JSON(http.StatusInternalServerError, errors.ErrorResponse{
		Error:   errors.ErrInternalServer.Code,
		Message: fallback,
	})
}

// currentUserID reads the authenticated user ID set by the auth middleware.
// Returns uuid.Nil when the request is not authenticated.
func currentUserID(c *gin.Context) uuid.UUID {
	raw, exists := c.Get("user_id")
	if !exists {
		return uuid.Nil
	}

	idStr, ok := raw.(string)
	if !ok {
		return uuid.Nil
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil
	}
	return id
}

// isAdmin reports whether the auth middleware flagged the caller as an admin.
func isAdmin(c *gin.Context) bool {
	raw, exists := c.Get("is_admin")
	if !exists {
		return false
	}
	admin, ok := raw.(bool)
	return ok && admin
}
