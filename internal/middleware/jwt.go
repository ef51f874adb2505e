package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-lms-gradesync/internal/models"
	appErrors "github.com/noah-isme/sma-lms-gradesync/pkg/errors"
	"github.com/noah-isme/sma-lms-gradesync/pkg/response"
)

// ContextUserKey is the gin context key storing JWT claims.
const ContextUserKey = "currentUser"

type tokenValidator interface {
	ValidateToken(tokenString string) (*models.JWTClaims, error)
}

// JWT protects routes by requiring a valid access token.
func JWT(authService tokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		claims, err := authService.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, claims)
		c.Next()
	}
}

// ClaimsFrom returns the claims stored by JWT, or nil.
func ClaimsFrom(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}
