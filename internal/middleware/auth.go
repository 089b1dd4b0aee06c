package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/models"
)

const (
	userIDKey  = "user_id"
	sessionKey = "session"
)

// SessionVerifier resolves a bearer token into a live session.
type SessionVerifier interface {
	Verify(ctx context.Context, token string) (*models.Session, error)
}

// RequireSession rejects requests without a valid bearer token and stores
// the session on the gin context.
func RequireSession(verifier SessionVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Please sign in to continue."})
			return
		}

		session, err := verifier.Verify(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Your session has expired. Please sign in again."})
			return
		}

		c.Set(userIDKey, session.UserID)
		c.Set(sessionKey, session)
		c.Next()
	}
}

// UserID returns the signed-in user's id, or "" outside RequireSession.
func UserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

// CurrentSession returns the session stored by RequireSession.
func CurrentSession(c *gin.Context) *models.Session {
	if s, ok := c.Get(sessionKey); ok {
		if session, ok := s.(*models.Session); ok {
			return session
		}
	}
	return nil
}
