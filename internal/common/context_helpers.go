// File: internal/common/context_helpers.go
package common

import (
	"strings"

	"github.com/gin-gonic/gin"

	"hemato_backend/internal/shared"
)

// GetTokenFromContext retrieves the bearer token string from the Authorization header.
// Returns an empty string if not found.
func GetTokenFromContext(c *gin.Context) string {
	authHeader := c.GetHeader(AuthorizationHeader)
	if authHeader == "" {
		return ""
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], AuthorizationTypeBearer) {
		return ""
	}
	return parts[1]
}

// GetSessionFromContext retrieves the session snapshot set by the auth
// middleware. Returns nil for unauthenticated requests.
func GetSessionFromContext(c *gin.Context) *shared.Session {
	val, exists := c.Get(SessionKey)
	if !exists {
		return nil
	}
	sess, ok := val.(*shared.Session)
	if !ok {
		return nil
	}
	return sess
}
