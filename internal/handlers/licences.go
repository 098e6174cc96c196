package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/avencore/datahaven/internal/services"
	apperrors "github.com/avencore/datahaven/pkg/errors"
	"github.com/avencore/datahaven/pkg/response"
)

// LicenceHandler serves the licence registry.
type LicenceHandler struct {
	licences *services.LicenceService
}

func NewLicenceHandler(licences *services.LicenceService) *LicenceHandler {
	return &LicenceHandler{licences: licences}
}

type createLicenceRequest struct {
	Name      string `json:"name" validate:"required"`
	ShortName string `json:"short_name"`
	Version   string `json:"version" validate:"required"`
	URL       string `json:"url"`
}

// GET /api/v1/licences
func (h *LicenceHandler) List(c *gin.Context) {
	licences, err := h.licences.List(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, licences)
}

// POST /api/v1/licences
func (h *LicenceHandler) Create(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	var req createLicenceRequest
	if !bindAndValidate(c, &req) {
		return
	}

	licence, err := h.licences.Create(requestContext(c), services.CreateLicenceInput{
		Name:      req.Name,
		ShortName: req.ShortName,
		Version:   req.Version,
		URL:       req.URL,
		OwnerID:   user.ID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, licence)
}

// DELETE /api/v1/licences/:id
func (h *LicenceHandler) Delete(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	licence, err := h.licences.GetByID(requestContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	if !user.IsAdmin && licence.OwnerID != user.ID {
		response.Forbidden(c)
		return
	}

	if err := h.licences.Delete(requestContext(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"id": id})
}
