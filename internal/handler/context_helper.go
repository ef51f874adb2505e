package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-lms-gradesync/internal/middleware"
	"github.com/noah-isme/sma-lms-gradesync/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.ClaimsFrom(c)
}
