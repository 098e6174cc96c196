package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	iauth "github.com/avencore/datahaven/internal/auth"
	"github.com/avencore/datahaven/internal/middleware"
	"github.com/avencore/datahaven/internal/models"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

// currentClaims returns the authenticated caller's claims, or nil for
// anonymous requests.
func currentClaims(c *gin.Context) *iauth.Claims {
	value, ok := c.Get(middleware.CtxClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := value.(*iauth.Claims)
	return claims
}

// currentUser materialises the caller as a models.User for permission
// checks. Anonymous requests yield nil.
func currentUser(c *gin.Context) *models.User {
	claims := currentClaims(c)
	if claims == nil {
		return nil
	}
	return &models.User{
		BaseModel: models.BaseModel{ID: claims.UserID},
		IsAdmin:   claims.IsAdmin,
	}
}
