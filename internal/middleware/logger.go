package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"staybook/internal/pkg/apperr"
	"staybook/internal/pkg/logger"
	"staybook/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestID propagates X-Request-ID, generating one when absent.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Request = c.Request.WithContext(logger.WithRequestID(c.Request.Context(), id))
		c.Writer.Header().Set("X-Request-ID", id)
		c.Set("request_id", id)
		c.Next()
	}
}

func RequestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("http",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"request_id", c.GetString("request_id"),
		)
	}
}

// ErrorHandler recovers panics and renders the last error attached with
// c.Error as the standard error body. Internal causes are logged, never sent.
func ErrorHandler(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		defer func() {
			if recovered := recover(); recovered != nil {
				logRequestError(log, c, start, "panic", fmt.Errorf("%v", recovered), debug.Stack())
				if !c.Writer.Written() {
					response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
				}
				c.Abort()
			}
		}()

		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err
		status, code, message, details := Translate(err)
		if status >= http.StatusInternalServerError {
			logRequestError(log, c, start, "error", err, nil)
		} else {
			log.Info("request rejected", "status", status, "code", code, "path", c.FullPath(), "request_id", c.GetString("request_id"))
		}
		if !c.Writer.Written() {
			response.ErrorWithDetails(c, status, code, message, details)
		}
	}
}

// Translate maps an error onto the HTTP status and public error fields.
func Translate(err error) (status int, code, message string, details any) {
	e, ok := apperr.As(err)
	if !ok {
		return http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil
	}

	switch e.Kind {
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindValidation, apperr.KindBusinessRule:
		status = http.StatusBadRequest
	case apperr.KindBookingConflict, apperr.KindAlreadyExists:
		status = http.StatusConflict
	case apperr.KindUnauthenticated:
		status = http.StatusUnauthorized
	case apperr.KindForbidden:
		status = http.StatusForbidden
	case apperr.KindExternal:
		return http.StatusBadGateway, e.Code, e.Message, nil
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil
	}
	return status, e.Code, e.Message, e.Details
}

func logRequestError(log *slog.Logger, c *gin.Context, start time.Time, errType string, err error, stack []byte) {
	attrs := []any{
		"type", errType,
		"status", c.Writer.Status(),
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"query", c.Request.URL.RawQuery,
		"client_ip", c.ClientIP(),
		"user_id", c.GetInt64(ctxUserID),
		"role", c.GetString(ctxRole),
		"request_id", c.GetString("request_id"),
		"latency", time.Since(start),
		"error", err,
	}
	if stack != nil {
		attrs = append(attrs, "stack", string(stack))
	}
	log.Error("request_error", attrs...)
}
