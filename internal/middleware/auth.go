package middleware

import (
	"errors"
	"net/http"
	"strings"

	"pmdashboard/internal/access"
	"pmdashboard/internal/auth"
	"pmdashboard/internal/model"

	"github.com/gin-gonic/gin"
)

const (
	// UserIDKey holds the authenticated user's uuid.UUID in the gin context
	UserIDKey = "userID"
	// PrincipalKey holds the access.Principal of the request
	PrincipalKey = "principal"
)

// JWTAuthMiddleware authenticates the bearer token and stores the principal
// in both the gin context and the request context.
func JWTAuthMiddleware(authenticator auth.Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer {token}"})
			return
		}

		principal, err := authenticator.Authenticate(c.Request.Context(), parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": authErrorMessage(err)})
			return
		}

		c.Set(UserIDKey, principal.UserID)
		c.Set(PrincipalKey, principal)
		c.Request = c.Request.WithContext(access.WithPrincipal(c.Request.Context(), principal))
		c.Next()
	}
}

func authErrorMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrInvalidUserID):
		return "Invalid user ID in token"
	case errors.Is(err, auth.ErrTokenRevoked):
		return "Token has been revoked"
	case errors.Is(err, auth.ErrAccountDisabled):
		return "Account is disabled"
	default:
		return "Invalid or expired token"
	}
}

// CurrentPrincipal returns the principal set by JWTAuthMiddleware, anonymous otherwise
func CurrentPrincipal(c *gin.Context) access.Principal {
	if p, ok := access.FromContext(c.Request.Context()); ok {
		return p
	}
	if v, ok := c.Get(PrincipalKey); ok {
		if p, ok := v.(access.Principal); ok {
			return p
		}
	}
	return access.Principal{}
}

// RequireRole answers 403 with the gate's reason when the principal has none of roles
func RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d := access.RequireRole(CurrentPrincipal(c), roles...); !d.Allowed {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": d.Reason})
			return
		}
		c.Next()
	}
}
