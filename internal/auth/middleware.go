package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"booking-scheduler/internal/logger"
	"booking-scheduler/internal/store"
)

const (
	userIDKey = "userID"
	emailKey  = "email"
)

// Middleware requires a valid "Bearer <jwt>" session token for a user that
// still exists and stores the caller's user id in the gin context.
func Middleware(issuer *TokenIssuer, users store.Users) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization", "code": "unauthorized"})
			return
		}
		parts := strings.Fields(auth)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format", "code": "unauthorized"})
			return
		}

		claims, err := issuer.Parse(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token", "code": "unauthorized"})
			return
		}
		id, _ := claims.UserID()
		if _, err := users.GetUser(c.Request.Context(), id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not found", "code": "unauthorized"})
				return
			}
			logger.Error("load session user", "user_id", id, "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error", "code": "internal_error"})
			return
		}
		c.Set(userIDKey, id)
		c.Set(emailKey, claims.Email)
		c.Next()
	}
}

// UserID returns the id stored by Middleware.
func UserID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(userIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}
