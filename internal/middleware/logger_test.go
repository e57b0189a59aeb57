package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/pkg/apperr"
	"staybook/internal/pkg/logger"
	"staybook/internal/pkg/response"
)

func serveError(t *testing.T, err error) (*httptest.ResponseRecorder, response.ErrorBody) {
	t.Helper()
	router := gin.New()
	router.Use(ErrorHandler(logger.Discard()))
	router.GET("/x", func(c *gin.Context) {
		_ = c.Error(err)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

	var body response.ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestErrorHandler_StatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
		code string
	}{
		{"not found", apperr.NotFound("booking", 1), http.StatusNotFound, "NOT_FOUND"},
		{"validation", apperr.Validation("INVALID_DATE_RANGE", "bad", nil), http.StatusBadRequest, "INVALID_DATE_RANGE"},
		{"business rule", apperr.BusinessRule("PAYMENT_NOT_PENDING", "x"), http.StatusBadRequest, "PAYMENT_NOT_PENDING"},
		{"conflict", apperr.BookingConflict("taken", nil), http.StatusConflict, "BOOKING_CONFLICT"},
		{"already exists", apperr.AlreadyExists("ACTIVE_PAYMENT_EXISTS", "x"), http.StatusConflict, "ACTIVE_PAYMENT_EXISTS"},
		{"unauthenticated", apperr.Unauthenticated("bad secret"), http.StatusUnauthorized, "UNAUTHORIZED"},
		{"forbidden", apperr.Forbidden("nope"), http.StatusForbidden, "FORBIDDEN"},
		{"external", apperr.External("acquiring", errors.New("secret upstream detail")), http.StatusBadGateway, "EXTERNAL_SERVICE_ERROR"},
		{"internal", errors.New("pq: relation does not exist"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := serveError(t, tt.err)
			assert.Equal(t, tt.want, w.Code)
			assert.Equal(t, tt.want, body.StatusCode)
			assert.Equal(t, tt.code, body.ErrorCode)
			assert.Equal(t, http.StatusText(tt.want), body.Error)
			assert.False(t, body.Timestamp.IsZero())
		})
	}
}

func TestErrorHandler_HidesInternalDetail(t *testing.T) {
	w, _ := serveError(t, apperr.External("acquiring", errors.New("secret upstream detail")))
	assert.NotContains(t, w.Body.String(), "secret upstream detail")

	w, _ = serveError(t, errors.New("pq: relation does not exist"))
	assert.NotContains(t, w.Body.String(), "relation")
}

func TestErrorHandler_ConflictDetails(t *testing.T) {
	_, body := serveError(t, apperr.BookingConflict("taken", map[string]any{"apartmentId": 3}))

	details, ok := body.Details.(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 3, details["apartmentId"])
}

func TestErrorHandler_RecoversPanic(t *testing.T) {
	router := gin.New()
	router.Use(ErrorHandler(logger.Discard()))
	router.GET("/boom", func(c *gin.Context) {
		panic("kaboom")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "kaboom")
}

func TestRequestID_Propagates(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/id", func(c *gin.Context) {
		c.String(http.StatusOK, logger.RequestIDFromContext(c.Request.Context()))
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/id", nil)
	req.Header.Set("X-Request-ID", "abc")
	router.ServeHTTP(w, req)

	assert.Equal(t, "abc", w.Body.String())
	assert.Equal(t, "abc", w.Header().Get("X-Request-ID"))
}
