package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-adp-billing/internal/middleware"
	"github.com/noah-isme/sma-adp-billing/internal/models"
)

// claimsFromContext returns the caller stored by the JWT middleware. Settings updates
// record its UserID as the author; nil means the route ran without authentication.
func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, ok := c.Get(middleware.ContextUserKey)
	if !ok {
		return nil
	}
	claims, _ := value.(*models.JWTClaims)
	if claims == nil || claims.UserID == "" {
		return nil
	}
	return claims
}
