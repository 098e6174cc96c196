package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/avencore/datahaven/internal/models"
	"github.com/avencore/datahaven/internal/permissions"
	"github.com/avencore/datahaven/internal/services"
	"github.com/avencore/datahaven/pkg/response"
)

// MetadataHandler serves the metadata field registry and the values
// attached to sources.
type MetadataHandler struct {
	sources  *services.SourceService
	metadata *services.MetadataService
	gate     *permissions.Gate
}

func NewMetadataHandler(sources *services.SourceService, metadata *services.MetadataService, gate *permissions.Gate) *MetadataHandler {
	return &MetadataHandler{sources: sources, metadata: metadata, gate: gate}
}

type createFieldRequest struct {
	Name        string `json:"name" validate:"required"`
	ShortName   string `json:"short_name" validate:"required"`
	Operational bool   `json:"operational"`
}

// GET /api/v1/fields
func (h *MetadataHandler) ListFields(c *gin.Context) {
	fields, err := h.metadata.ListFields(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, fields)
}

// POST /api/v1/fields
func (h *MetadataHandler) CreateField(c *gin.Context) {
	user := currentUser(c)
	if user == nil || !user.IsAdmin {
		response.Forbidden(c)
		return
	}

	var req createFieldRequest
	if !bindAndValidate(c, &req) {
		return
	}

	field, err := h.metadata.CreateField(requestContext(c), req.Name, req.ShortName, req.Operational)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, field)
}

// DELETE /api/v1/fields/:id
func (h *MetadataHandler) DeleteField(c *gin.Context) {
	user := currentUser(c)
	if user == nil || !user.IsAdmin {
		response.Forbidden(c)
		return
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.metadata.DeleteField(requestContext(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"id": id})
}

type attachItemRequest struct {
	Field string `json:"field" validate:"required"`
	Value string `json:"value" validate:"required"`
}

// GET /api/v1/sources/:id/items
func (h *MetadataHandler) ListItems(c *gin.Context) {
	source, ok := h.loadSource(c)
	if !ok {
		return
	}

	allowed, err := h.gate.Allows(requestContext(c), currentUser(c), source, models.PermissionView)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !allowed {
		response.Forbidden(c)
		return
	}

	items, err := h.metadata.ListItems(requestContext(c), source.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, items)
}

// POST /api/v1/sources/:id/items
func (h *MetadataHandler) AttachItem(c *gin.Context) {
	source, ok := h.loadSource(c)
	if !ok {
		return
	}

	if !h.gate.CanManage(currentUser(c), source) {
		response.Forbidden(c)
		return
	}

	var req attachItemRequest
	if !bindAndValidate(c, &req) {
		return
	}

	field, err := h.metadata.GetFieldByShortName(requestContext(c), req.Field)
	if err != nil {
		response.Error(c, err)
		return
	}

	item, err := h.metadata.AttachItem(requestContext(c), source.ID, field.ID, req.Value)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, item)
}

// DELETE /api/v1/sources/:id/items/:item
func (h *MetadataHandler) DetachItem(c *gin.Context) {
	source, ok := h.loadSource(c)
	if !ok {
		return
	}

	if !h.gate.CanManage(currentUser(c), source) {
		response.Forbidden(c)
		return
	}

	itemID, ok := parseIDParam(c, "item")
	if !ok {
		return
	}

	if err := h.metadata.DetachItem(requestContext(c), source.ID, itemID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"id": itemID})
}

func (h *MetadataHandler) loadSource(c *gin.Context) (*models.Source, bool) {
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
