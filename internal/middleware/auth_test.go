package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/sma-lms-gradesync/internal/models"
	appErrors "github.com/noah-isme/sma-lms-gradesync/pkg/errors"
)

type validatorStub struct {
	claims *models.JWTClaims
	err    error
	token  string
}

func (v *validatorStub) ValidateToken(token string) (*models.JWTClaims, error) {
	v.token = token
	return v.claims, v.err
}

type convenorStub struct {
	convenes map[string]bool
	err      error
}

func (s *convenorStub) IsConvenor(ctx context.Context, userID, unitID string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.convenes[userID+"/"+unitID], nil
}

func serve(router *gin.Engine, path, authorization string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestJWT(t *testing.T) {
	gin.SetMode(gin.TestMode)
	validator := &validatorStub{claims: &models.JWTClaims{UserID: "user-1", Role: models.RoleConvenor}}
	router := gin.New()
	router.Use(JWT(validator))
	router.GET("/", func(c *gin.Context) {
		claims := ClaimsFrom(c)
		c.String(http.StatusOK, claims.UserID)
	})

	assert.Equal(t, http.StatusUnauthorized, serve(router, "/", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(router, "/", "Basic abc").Code)

	w := serve(router, "/", "Bearer  abc.def ")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-1", w.Body.String())
	assert.Equal(t, "abc.def", validator.token)

	validator.err = appErrors.Clone(appErrors.ErrUnauthorized, "token expired")
	assert.Equal(t, http.StatusUnauthorized, serve(router, "/", "Bearer abc").Code)
}

func TestRequireRoles(t *testing.T) {
	gin.SetMode(gin.TestMode)
	claims := &models.JWTClaims{UserID: "user-1", Role: models.RoleTutor}
	router := gin.New()
	router.Use(JWT(&validatorStub{claims: claims}), RequireRoles(models.RoleAdmin, models.RoleConvenor))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	assert.Equal(t, http.StatusForbidden, serve(router, "/", "Bearer t").Code)
	claims.Role = models.RoleConvenor
	assert.Equal(t, http.StatusNoContent, serve(router, "/", "Bearer t").Code)
}

func TestRBACWithoutClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RBAC(string(models.RoleAdmin)))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	assert.Equal(t, http.StatusUnauthorized, serve(router, "/", "").Code)
}

func TestRequireUnitConvenor(t *testing.T) {
	gin.SetMode(gin.TestMode)
	claims := &models.JWTClaims{UserID: "user-1", Role: models.RoleConvenor}
	checker := &convenorStub{convenes: map[string]bool{"user-1/unit-1": true}}
	router := gin.New()
	router.Use(JWT(&validatorStub{claims: claims}))
	router.GET("/units/:unit_id", RequireUnitConvenor(checker), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	assert.Equal(t, http.StatusNoContent, serve(router, "/units/unit-1", "Bearer t").Code)
	assert.Equal(t, http.StatusForbidden, serve(router, "/units/unit-2", "Bearer t").Code)

	claims.Role = models.RoleAdmin
	assert.Equal(t, http.StatusNoContent, serve(router, "/units/unit-2", "Bearer t").Code)

	claims.Role = models.RoleStudent
	assert.Equal(t, http.StatusForbidden, serve(router, "/units/unit-1", "Bearer t").Code)

	claims.Role = models.RoleConvenor
	checker.err = errors.New("db down")
	assert.Equal(t, http.StatusInternalServerError, serve(router, "/units/unit-1", "Bearer t").Code)
}
