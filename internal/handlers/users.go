package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/avencore/datahaven/internal/services"
	"github.com/avencore/datahaven/pkg/response"
)

// UserHandler serves account administration.
type UserHandler struct {
	users *services.UserService
}

func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

type createUserRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	IsAdmin  bool   `json:"is_admin"`
}

// GET /api/v1/users
func (h *UserHandler) List(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}

	users, err := h.users.List(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, users)
}

// POST /api/v1/users
func (h *UserHandler) Create(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}

	var req createUserRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.users.Create(requestContext(c), services.CreateUserInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		IsAdmin:  req.IsAdmin,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, user)
}

func (h *UserHandler) requireAdmin(c *gin.Context) bool {
	user := currentUser(c)
	if user == nil || !user.IsAdmin {
		response.Forbidden(c)
		return false
	}
	return true
}
