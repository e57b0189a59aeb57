package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ErrorBody is the single error shape returned by every endpoint.
type ErrorBody struct {
	StatusCode int       `json:"statusCode"`
	Error      string    `json:"error"`
	Message    string    `json:"message"`
	ErrorCode  string    `json:"errorCode"`
	Details    any       `json:"details,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

func Success(c *gin.Context, statusCode int, data any) {
	c.JSON(statusCode, data)
}

func Error(c *gin.Context, statusCode int, code string, message string) {
	ErrorWithDetails(c, statusCode, code, message, nil)
}

func ErrorWithDetails(c *gin.Context, statusCode int, code string, message string, details any) {
	c.JSON(statusCode, ErrorBody{
		StatusCode: statusCode,
		Error:      http.StatusText(statusCode),
		Message:    message,
		ErrorCode:  code,
		Details:    details,
		Timestamp:  time.Now().UTC(),
	})
}
