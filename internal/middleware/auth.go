package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pablosanchi/consultation-backend/internal/domain"
	"github.com/pablosanchi/consultation-backend/pkg/auth"
)

const claimsKey = "claims"

// Authenticate validates the bearer token and stores the claims on the
// context. Missing or invalid credentials end the request with 401.
func Authenticate(jwtManager *auth.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "authentication required"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid authorization header"})
			return
		}

		claims, err := jwtManager.ValidateAccessToken(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid or expired token"})
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// ActorFrom returns the authenticated actor stored by Authenticate.
func ActorFrom(c *gin.Context) (domain.Actor, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return domain.Actor{}, false
	}
	claims, ok := v.(*domain.Claims)
	if !ok {
		return domain.Actor{}, false
	}
	return claims.Actor(), true
}
