package middleware

import (
	"net/http"
	"strings"

	"metabento/config"
	"metabento/internal/auth"
	"metabento/internal/domain"

	"github.com/gin-gonic/gin"
)

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func setClaims(c *gin.Context, claims *auth.Claims) {
	c.Set("user_id", claims.UserID)
	c.Set("wallet_address", claims.WalletAddress)
	c.Set("role", claims.Role)
	c.Set("claims", claims)
}

// AuthRequired validates the JWT and sets user_id, wallet_address and role in context.
func AuthRequired(cfg *config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header", "code": domain.KindUnauthorized})
			return
		}
		token, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format", "code": domain.KindUnauthorized})
			return
		}
		claims, err := auth.ParseAccessToken(cfg, token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token", "code": domain.KindUnauthorized})
			return
		}
		setClaims(c, claims)
		c.Next()
	}
}

// OptionalAuth sets the caller identity when a valid token is present and never rejects.
func OptionalAuth(cfg *config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearerToken(c); ok {
			if claims, err := auth.ParseAccessToken(cfg, token); err == nil {
				setClaims(c, claims)
			}
		}
		c.Next()
	}
}

// RequireRole checks that the authenticated user has one of the allowed roles.
func RequireRole(allowed ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get("role")
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "code": domain.KindUnauthorized})
			return
		}
		r, _ := role.(string)
		for _, a := range allowed {
			if r == a {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden", "code": domain.KindForbidden})
	}
}

// GetUserID returns the authenticated user ID from context, or 0 for anonymous callers.
func GetUserID(c *gin.Context) uint {
	v, _ := c.Get("user_id")
	id, _ := v.(uint)
	return id
}

func IsAdmin(c *gin.Context) bool {
	v, _ := c.Get("role")
	r, _ := v.(string)
	return r == domain.RoleAdmin
}
