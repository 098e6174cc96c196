package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	iauth "github.com/avencore/datahaven/internal/auth"
	"github.com/avencore/datahaven/internal/services"
	"github.com/avencore/datahaven/pkg/errors"
	"github.com/avencore/datahaven/pkg/response"
)

// AuthHandler manages login and identity lookups.
type AuthHandler struct {
	users *services.UserService
	jwt   *iauth.JWTService
}

func NewAuthHandler(users *services.UserService, jwt *iauth.JWTService) *AuthHandler {
	return &AuthHandler{users: users, jwt: jwt}
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.users.Authenticate(requestContext(c), req.Username, req.Password)
	if err != nil {
		// Normalise auth errors to 401
		response.Error(c, errors.ErrInvalidCredentials)
		return
	}

	token, err := h.jwt.GenerateAccessToken(user.ID, user.IsAdmin)
	if err != nil {
		response.Error(c, errors.ErrInternalServer)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"access_token": token,
		"user": gin.H{
			"id":       user.ID,
			"username": user.Username,
			"email":    user.Email,
			"is_admin": user.IsAdmin,
		},
	})
}

// GET /api/v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	claims := currentClaims(c)
	if claims == nil {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	user, err := h.users.GetByID(requestContext(c), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, user)
}
