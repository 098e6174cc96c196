package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/avencore/datahaven/internal/models"
	"github.com/avencore/datahaven/internal/permissions"
	"github.com/avencore/datahaven/internal/services"
	apperrors "github.com/avencore/datahaven/pkg/errors"
	"github.com/avencore/datahaven/pkg/response"
)

// AccessHandler serves the grant request/decision workflow on sources.
type AccessHandler struct {
	sources *services.SourceService
	access  *services.AccessService
	gate    *permissions.Gate
}

func NewAccessHandler(sources *services.SourceService, access *services.AccessService, gate *permissions.Gate) *AccessHandler {
	return &AccessHandler{sources: sources, access: access, gate: gate}
}

type requestAccessRequest struct {
	Level  int    `json:"level"`
	Reason string `json:"reason"`
}

type grantAccessRequest struct {
	Level int `json:"level"`
}

// POST /api/v1/sources/:id/access
//
// A caller may only change their own requested level; deciding what is
// actually granted belongs to the owner.
func (h *AccessHandler) Request(c *gin.Context) {
	source, ok := h.loadSource(c)
	if !ok {
		return
	}

	user := currentUser(c)
	if user == nil {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	var req requestAccessRequest
	if !bindAndValidate(c, &req) {
		return
	}

	grant, err := h.access.Request(requestContext(c), source.ID, user.ID, models.PermissionLevel(req.Level), req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}

	if grant == nil {
		response.Success(c, http.StatusOK, gin.H{"removed": true})
		return
	}
	response.Success(c, http.StatusOK, grant)
}

// GET /api/v1/sources/:id/access
func (h *AccessHandler) List(c *gin.Context) {
	source, ok := h.loadSource(c)
	if !ok {
		return
	}

	if !h.gate.CanManage(currentUser(c), source) {
		response.Forbidden(c)
		return
	}

	grants, err := h.access.ListBySource(requestContext(c), source.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, grants)
}

// PUT /api/v1/sources/:id/access/:user
func (h *AccessHandler) Grant(c *gin.Context) {
	source, ok := h.loadSource(c)
	if !ok {
		return
	}

	if !h.gate.CanManage(currentUser(c), source) {
		response.Forbidden(c)
		return
	}

	userID, ok := parseIDParam(c, "user")
	if !ok {
		return
	}

	var req grantAccessRequest
	if !bindAndValidate(c, &req) {
		return
	}

	grant, err := h.access.Grant(requestContext(c), source.ID, userID, models.PermissionLevel(req.Level))
	if err != nil {
		response.Error(c, err)
		return
	}

	if grant == nil {
		response.Success(c, http.StatusOK, gin.H{"removed": true})
		return
	}
	response.Success(c, http.StatusOK, grant)
}

func (h *AccessHandler) loadSource(c *gin.Context) (*models.Source, bool) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return nil, false
	}

	source, err := h.sources.GetByID(requestContext(c), id)
	if err != nil {
		response.Error(c, err)
		return nil, false
	}
	return source, true
}
