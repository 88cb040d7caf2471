package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/alsalam/hospital-api/pkg/apperror"
)

// ErrorResponse is the envelope for every error the API returns.
type ErrorResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorHandler renders errors attached to the context. Application errors
// carry their own status code; anything else is a 500 with a generic message
// so internals never leak to the client.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		lastErr := c.Errors.Last()
		if lastErr == nil || c.Writer.Written() {
			return
		}

		status := http.StatusInternalServerError
		message := "internal server error"
		var appErr *apperror.Error
		if errors.As(lastErr.Err, &appErr) {
			status = appErr.StatusCode()
			message = appErr.Message
		}

		c.JSON(status, ErrorResponse{
			Status:    "error",
			Message:   message,
			RequestID: GetRequestID(c),
		})
	}
}

// AbortWithError records err on the context and stops the chain. The status
// and body are rendered by ErrorHandler on the way out.
func AbortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
