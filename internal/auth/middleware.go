package auth

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"bothive/internal/db/repositories"
	"bothive/pkg/models"
)

// Middleware provides bearer-token authentication for the HTTP API.
type Middleware struct {
	repos  *repositories.Repositories
	tokens *TokenManager
}

func NewMiddleware(repos *repositories.Repositories, tokens *TokenManager) *Middleware {
	return &Middleware{repos: repos, tokens: tokens}
}

// ResolveToken validates a raw token and loads the user behind it. Suspended
// accounts are rejected.
func (m *Middleware) ResolveToken(token string) (*models.User, error) {
	userID, err := m.tokens.ValidateToken(token)
	if err != nil {
		return nil, err
	}

	user, err := m.repos.Users.GetByID(userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.New("user not found")
	}
	if err != nil {
		return nil, err
	}

	if user.Status == models.UserSuspended {
		return nil, errors.New("account suspended")
	}
	return user, nil
}

// Authenticate validates the Authorization header and stores the user on the
// request context.
func (m *Middleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "missing authorization header"})
			c.Abort()
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "invalid authorization header format, expected Bearer token"})
			c.Abort()
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		user, err := m.ResolveToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "Invalid or expired token"})
			c.Abort()
			return
		}

		c.Set("user", user)
		c.Set("user_id", user.ID)
		c.Next()
	}
}

// RequireAdmin ensures the authenticated user holds the ADMIN or OWNER role.
func (m *Middleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := UserFromContext(c)
		if !ok || (user.Role != models.RoleAdmin && user.Role != models.RoleOwner) {
			c.JSON(http.StatusForbidden, gin.H{"detail": "admin privileges required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// UserFromContext extracts the authenticated user from the Gin context
func UserFromContext(c *gin.Context) (*models.User, bool) {
	v, exists := c.Get("user")
	if !exists {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok
}

// ClientIP returns the originating client address, honoring
// X-Forwarded-For when present.
func ClientIP(c *gin.Context) string {
	if forwarded := c.GetHeader("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	return c.ClientIP()
}
