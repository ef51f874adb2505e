package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-lms-gradesync/internal/models"
	appErrors "github.com/noah-isme/sma-lms-gradesync/pkg/errors"
	"github.com/noah-isme/sma-lms-gradesync/pkg/response"
)

// UnitParam is the route parameter naming the unit a request acts on.
const UnitParam = "unit_id"

type unitRoleChecker interface {
	IsConvenor(ctx context.Context, userID, unitID string) (bool, error)
}

// RBAC enforces role-based access control for routes.
func RBAC(allowed ...string) gin.HandlerFunc {
	allowedRoles := make(map[models.UserRole]struct{}, len(allowed))
	for _, a := range allowed {
		allowedRoles[models.UserRole(a)] = struct{}{}
	}
	return func(c *gin.Context) {
		claims := ClaimsFrom(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if _, ok := allowedRoles[claims.Role]; ok {
			c.Next()
			return
		}

		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}

// RequireRoles is a helper that accepts a list of roles.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make([]string, len(roles))
	for i, r := range roles {
		allowed[i] = string(r)
	}
	return RBAC(allowed...)
}

// RequireUnitConvenor lets administrators through and otherwise requires the caller to convene
// the unit named by the route.
func RequireUnitConvenor(checker unitRoleChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := ClaimsFrom(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if claims.Role == models.RoleAdmin {
			c.Next()
			return
		}

		unitID := c.Param(UnitParam)
		if claims.Role != models.RoleConvenor || unitID == "" {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}

		ok, err := checker.IsConvenor(c.Request.Context(), claims.UserID, unitID)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check unit role"))
			c.Abort()
			return
		}
		if !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "not a convenor of this unit"))
			c.Abort()
			return
		}
		c.Next()
	}
}
