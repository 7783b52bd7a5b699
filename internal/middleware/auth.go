package middleware

import (
	"context"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yukikurage/team-task-api/internal/constants"
	apierrors "github.com/yukikurage/team-task-api/internal/errors"
	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/services"
)

// TokenVerifier validates a session token and returns its claims.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*services.Claims, error)
}

// bearerToken reads the Authorization header, falling back to the session cookie.
func bearerToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		token, ok := strings.CutPrefix(header, "Bearer ")
		if ok {
			return strings.TrimSpace(token)
		}
		return ""
	}

	if token, ok := sessions.Default(c).Get(constants.SessionTokenKey).(string); ok {
		return token
	}
	return ""
}

// RequireAuth rejects requests without a valid, unrevoked session token
func RequireAuth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			apierrors.RespondWithDomainError(c, apierrors.ErrUnauthenticated)
			c.Abort()
			return
		}

		claims, err := verifier.VerifyToken(c.Request.Context(), token)
		if err != nil {
			if !apierrors.RespondWithDomainError(c, err) {
				apierrors.InternalError(c, "")
			}
			c.Abort()
			return
		}

		userID, err := claims.UserID()
		if err != nil {
			apierrors.RespondWithDomainError(c, apierrors.ErrInvalidOrExpiredToken)
			c.Abort()
			return
		}

		// Store user ID in context for easy access in handlers
		c.Set(constants.ContextKeyUserID, userID)
		c.Set(constants.ContextKeyUserRole, claims.Role)
		c.Set(constants.ContextKeyToken, claims)
		c.Next()
	}
}

// GetUserID retrieves the current user ID from context
func GetUserID(c *gin.Context) (uuid.UUID, bool) {
	userID, exists := c.Get(constants.ContextKeyUserID)
	if !exists {
		return uuid.Nil, false
	}

	switch v := userID.(type) {
	case uuid.UUID:
		return v, v != uuid.Nil
	case string:
		id, err := uuid.Parse(v)
		if err != nil {
			return uuid.Nil, false
		}
		return id, true
	default:
		return uuid.Nil, false
	}
}

// GetUserRole returns the role carried by the session token. Services re-read
// the stored role; this value is only informational.
func GetUserRole(c *gin.Context) (models.Role, bool) {
	role, ok := c.Get(constants.ContextKeyUserRole)
	if !ok {
		return "", false
	}
	r, ok := role.(models.Role)
	return r, ok
}

// GetClaims returns the verified token claims of the request.
func GetClaims(c *gin.Context) (*services.Claims, bool) {
	v, ok := c.Get(constants.ContextKeyToken)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*services.Claims)
	return claims, ok
}
