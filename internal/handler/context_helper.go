package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/nazarenomarkanthony060120/e-clearance-student/internal/middleware"
	"github.com/nazarenomarkanthony060120/e-clearance-student/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}
