// File: internal/middleware/auth.go
package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"hemato_backend/internal/common"
	"hemato_backend/internal/shared"
)

// AuthMiddleware creates a Gin middleware that requires a valid bearer token
// and stores the resulting session snapshot in the request context.
func AuthMiddleware(identity shared.IdentityProvider, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := common.GetTokenFromContext(c)
		if tokenString == "" {
			logger.Debug("Authorization header missing or malformed")
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Authorization header must be 'Bearer <token>'."))
			return
		}

		sess, err := identity.CurrentSession(c.Request.Context(), tokenString)
		if err != nil {
			logger.Warn("Session token validation failed", zap.Error(err))
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Invalid or expired credentials."))
			return
		}

		c.Set(common.SessionKey, sess)
		logger.Debug("Session established", zap.String("uid", sess.UID), zap.Bool("email_verified", sess.EmailVerified))
		c.Next()
	}
}

// VerifiedEmailMiddleware gates actions that require the session email to be
// verified. Must run after AuthMiddleware.
func VerifiedEmailMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := common.GetSessionFromContext(c)
		if sess == nil {
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Authentication is required."))
			return
		}
		if !sess.EmailVerified {
			common.RespondWithError(c, common.ErrEmailNotVerified)
			return
		}
		c.Next()
	}
}
