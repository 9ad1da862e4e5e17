package respond

import (
	"github.com/gin-gonic/gin"

	"backoffice/internal/shared/telemetry"
)

// ErrorBody defines the standardized error object.
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// ErrorResponse carries the machine code twice: as the flat detail field
// existing clients read and inside the structured error object.
type ErrorResponse struct {
	Detail string    `json:"detail"`
	Error  ErrorBody `json:"error"`
}

// Error sends a standardized error response.
func Error(c *gin.Context, status int, code, message string, details interface{}) {
	fields := map[string]any{
		"status":     status,
		"code":       code,
		"message":    message,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	if subject := c.GetString("subject"); subject != "" {
		fields["subject"] = subject
	}
	if status >= 500 {
		telemetry.Error("http.error", fields)
	} else {
		telemetry.Warn("http.error", fields)
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		Detail: code,
		Error: ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}
