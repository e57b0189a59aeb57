package middleware

import (
	"net/http"
	"strings"

	"staybook/internal/domain"
	"staybook/internal/pkg/jwt"
	"staybook/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	ctxUserID = "user_id"
	ctxRole   = "role"
)

// JWTAuth requires a valid "Authorization: Bearer <token>" header and puts
// the caller's id and role into the gin context.
func JWTAuth(j *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" {
			response.Error(c, http.StatusUnauthorized, "AUTH_HEADER_MISSING", "Authorization header is required")
			c.Abort()
			return
		}

		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			response.Error(c, http.StatusUnauthorized, "INVALID_AUTH_FORMAT", "Authorization header must be 'Bearer <token>'")
			c.Abort()
			return
		}

		claims, err := j.ValidateToken(strings.TrimSpace(token))
		if err != nil {
			response.Error(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxRole, claims.Role)
		c.Next()
	}
}

// CurrentUser returns the authenticated caller set by JWTAuth.
func CurrentUser(c *gin.Context) (userID int64, role string) {
	return c.GetInt64(ctxUserID), c.GetString(ctxRole)
}

// CurrentActor is CurrentUser as a domain.Actor.
func CurrentActor(c *gin.Context) domain.Actor {
	id, role := CurrentUser(c)
	return domain.Actor{UserID: id, Role: domain.UserRole(role)}
}
