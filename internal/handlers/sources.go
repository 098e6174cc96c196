package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"github.com/avencore/datahaven/internal/connectors"
	"github.com/avencore/datahaven/internal/models"
	"github.com/avencore/datahaven/internal/permissions"
	"github.com/avencore/datahaven/internal/services"
	apperrors "github.com/avencore/datahaven/pkg/errors"
	"github.com/avencore/datahaven/pkg/response"
)

// SourceHandler serves the data source registry and the permission-gated
// passthrough endpoints.
type SourceHandler struct {
	sources *services.SourceService
	audit   *services.AuditService
	quality *services.QualityService
	gate    *permissions.Gate
}

func NewSourceHandler(sources *services.SourceService, audit *services.AuditService, quality *services.QualityService, gate *permissions.Gate) *SourceHandler {
	return &SourceHandler{sources: sources, audit: audit, quality: quality, gate: gate}
}

type createSourceRequest struct {
	Name        string          `json:"name" validate:"required"`
	Description string          `json:"description"`
	Locator     string          `json:"locator" validate:"required"`
	PluginName  string          `json:"plugin_name"`
	APIKey      string          `json:"api_key"`
	PublicLevel *int            `json:"public_permission_level"`
	ProvExempt  bool            `json:"prov_exempt"`
	LicenceID   *uint           `json:"licence_id"`
	Settings    json.RawMessage `json:"settings"`
}

type updateSourceRequest struct {
	Name        *string         `json:"name"`
	Description *string         `json:"description"`
	Locator     *string         `json:"locator"`
	PluginName  *string         `json:"plugin_name"`
	APIKey      *string         `json:"api_key"`
	PublicLevel *int            `json:"public_permission_level"`
	ProvExempt  *bool           `json:"prov_exempt"`
	LicenceID   *uint           `json:"licence_id"`
	Settings    json.RawMessage `json:"settings"`
}

// GET /api/v1/sources
//
// Query parameters other than "owner" are treated as metadata filters keyed
// by field short name. Only sources the caller can at least view are listed.
func (h *SourceHandler) List(c *gin.Context) {
	filters := services.SourceFilters{Metadata: map[string][]string{}}

	for key, values := range c.Request.URL.Query() {
		if key == "owner" {
			if id, err := strconv.ParseUint(values[0], 10, 32); err == nil {
				filters.OwnerID = uint(id)
			}
			continue
		}
		filters.Metadata[key] = values
	}

	sources, err := h.sources.List(requestContext(c), filters)
	if err != nil {
		response.Error(c, err)
		return
	}

	user := currentUser(c)
	visible := make([]models.Source, 0, len(sources))
	for i := range sources {
		allowed, err := h.gate.Allows(requestContext(c), user, &sources[i], models.PermissionView)
		if err != nil {
			response.Error(c, err)
			return
		}
		if allowed {
			visible = append(visible, sources[i])
		}
	}

	response.Success(c, http.StatusOK, visible)
}

// POST /api/v1/sources
func (h *SourceHandler) Create(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	var req createSourceRequest
	if !bindAndValidate(c, &req) {
		return
	}

	input := services.CreateSourceInput{
		Name:        req.Name,
		Description: req.Description,
		Locator:     req.Locator,
		PluginName:  req.PluginName,
		APIKey:      req.APIKey,
		ProvExempt:  req.ProvExempt,
		LicenceID:   req.LicenceID,
		Settings:    datatypes.JSON(req.Settings),
		OwnerID:     user.ID,
	}
	if req.PublicLevel != nil {
		level := models.PermissionLevel(*req.PublicLevel)
		input.PublicLevel = &level
	}

	source, err := h.sources.Create(requestContext(c), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.recordUpdateEvent(source, user, services.AuditActionCreate)
	response.Success(c, http.StatusCreated, source)
}

// GET /api/v1/sources/:id
func (h *SourceHandler) Get(c *gin.Context) {
	source, ok := h.loadSource(c)
	if !ok {
		return
	}
	if !h.requireLevel(c, source, models.PermissionView) {
		return
	}
	response.Success(c, http.StatusOK, source)
}

// PUT /api/v1/sources/:id
func (h *SourceHandler) Update(c *gin.Context) {
	source, ok := h.loadSource(c)
	if !ok {
		return
	}

	user := currentUser(c)
	if !h.gate.CanManage(user, source) {
		response.Forbidden(c)
		return
	}

	var req updateSourceRequest
	if !bindAndValidate(c, &req) {
		return
	}

	input := services.UpdateSourceInput{
		Name:        req.Name,
		Description: req.Description,
		Locator:     req.Locator,
		PluginName:  req.PluginName,
		APIKey:      req.APIKey,
		ProvExempt:  req.ProvExempt,
		LicenceID:   req.LicenceID,
		Settings:    datatypes.JSON(req.Settings),
	}
	if req.PublicLevel != nil {
		level := models.PermissionLevel(*req.PublicLevel)
		input.PublicLevel = &level
	}

	updated, err := h.sources.Update(requestContext(c), source.ID, input)
	if err != nil {
		response.Error(c, err)
		return
	}

	if renegotiate, _ := strconv.ParseBool(c.Query("renegotiate")); renegotiate {
		if _, err := h.sources.Renegotiate(requestContext(c), updated); err != nil {
			h.connectorError(c, err)
			return
		}
	}

	h.recordUpdateEvent(updated, user, services.AuditActionUpdate)
	response.Success(c, http.StatusOK, updated)
}

// DELETE /api/v1/sources/:id
func (h *SourceHandler) Delete(c *gin.Context) {
	source, ok := h.loadSource(c)
	if !ok {
		return
	}

	user := currentUser(c)
	if !h.gate.CanManage(user, source) {
		response.Forbidden(c)
		return
	}

	if err := h.sources.Delete(requestContext(c), source.ID); err != nil {
		response.Error(c, err)
		return
	}

	h.recordUpdateEvent(source, user, services.AuditActionDelete)
	response.Success(c, http.StatusOK, gin.H{"id": source.ID})
}

// GET /api/v1/sources/:id/data
//
// The upstream response passes through verbatim: body, content type, and
// on failure the upstream's own status code.
func (h *SourceHandler) Data(c *gin.Context) {
	source, ok := h.loadSource(c)
	if !ok {
		return
	}
	if !h.requireLevel(c, source, models.PermissionData) {
		return
	}

	params := c.Request.URL.Query()

	var payload *connectors.Payload
	err := h.sources.WithConnector(requestContext(c), source, func(conn connectors.Connector) error {
		var ferr error
		payload, ferr = conn.FetchData(requestContext(c), params)
		return ferr
	})

	h.recordAccessEvent(c, source, services.AuditActionDataAccess, err == nil)

	if err != nil {
		h.passthroughError(c, err)
		return
	}

	response.Raw(c, http.StatusOK, payload.ContentType, payload.Body)
}

// GET /api/v1/sources/:id/metadata
func (h *SourceHandler) Metadata(c *gin.Context) {
	source, ok := h.loadSource(c)
	if !ok {
		return
	}
	if !h.requireLevel(c, source, models.PermissionMeta) {
		return
	}

	params := c.Request.URL.Query()

	var payload *connectors.Payload
	err := h.sources.WithConnector(requestContext(c), source, func(conn connectors.Connector) error {
		var ferr error
		payload, ferr = conn.FetchMetadata(requestContext(c), params)
		return ferr
	})

	h.recordAccessEvent(c, source, services.AuditActionMetadataAccess, err == nil)

	if err != nil {
		h.connectorError(c, err)
		return
	}

	response.Success(c, http.StatusOK, json.RawMessage(payload.Body))
}

// GET /api/v1/sources/:id/datasets
func (h *SourceHandler) Datasets(c *gin.Context) {
	source, ok := h.loadSource(c)
	if !ok {
		return
	}
	if !h.requireLevel(c, source, models.PermissionMeta) {
		return
	}

	params := c.Request.URL.Query()

	var datasets []string
	err := h.sources.WithConnector(requestContext(c), source, func(conn connectors.Connector) error {
		var ferr error
		datasets, ferr = conn.ListDatasets(requestContext(c), params)
		return ferr
	})
	if err != nil {
		h.connectorError(c, err)
		return
	}

	response.Success(c, http.StatusOK, datasets)
}

// GET /api/v1/sources/:id/dataset/*href
//
// The wildcard addresses a child dataset inside a catalogue source; its
// trailing segment selects the operation: .../dataset/<href>/data or
// .../dataset/<href>/metadata.
func (h *SourceHandler) Dataset(c *gin.Context) {
	source, ok := h.loadSource(c)
	if !ok {
		return
	}

	href := strings.TrimPrefix(c.Param("href"), "/")
	var operation string
	switch {
	case strings.HasSuffix(href, "/data"):
		href, operation = strings.TrimSuffix(href, "/data"), "data"
	case strings.HasSuffix(href, "/metadata"):
		href, operation = strings.TrimSuffix(href, "/metadata"), "metadata"
	default:
		response.Error(c, apperrors.NewBadRequest("dataset path must end in /data or /metadata"))
		return
	}
	if href == "" {
		response.Error(c, apperrors.NewBadRequest("dataset identifier is required"))
		return
	}

	required := models.PermissionData
	if operation == "metadata" {
		required = models.PermissionMeta
	}
	if !h.requireLevel(c, source, required) {
		return
	}

	params := c.Request.URL.Query()

	var payload *connectors.Payload
	err := h.sources.WithConnector(requestContext(c), source, func(conn connectors.Connector) error {
		child, derr := descendChild(requestContext(c), conn, href)
		if derr != nil {
			return derr
		}
		var ferr error
		if operation == "data" {
			payload, ferr = child.FetchData(requestContext(c), params)
		} else {
			payload, ferr = child.FetchMetadata(requestContext(c), params)
		}
		return ferr
	})

	if operation == "data" {
		h.recordAccessEvent(c, source, services.AuditActionDataAccess, err == nil)
		if err != nil {
			h.passthroughError(c, err)
			return
		}
		response.Raw(c, http.StatusOK, payload.ContentType, payload.Body)
		return
	}

	h.recordAccessEvent(c, source, services.AuditActionMetadataAccess, err == nil)
	if err != nil {
		h.connectorError(c, err)
		return
	}
	response.Success(c, http.StatusOK, json.RawMessage(payload.Body))
}

// GET /api/v1/sources/:id/quality
func (h *SourceHandler) Quality(c *gin.Context) {
	source, ok := h.loadSource(c)
	if !ok {
		return
	}
	if !h.requireLevel(c, source, models.PermissionView) {
		return
	}

	results, err := h.quality.EvaluateSource(requestContext(c), source.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, results)
}

// GET /api/v1/sources/:id/prov
func (h *SourceHandler) Prov(c *gin.Context) {
	source, ok := h.loadSource(c)
	if !ok {
		return
	}
	if !h.requireLevel(c, source, models.PermissionProv) {
		return
	}

	records, total, err := h.audit.List(requestContext(c), services.AuditListOptions{
		Page:     parseIntQuery(c, "page", 1),
		PageSize: parseIntQuery(c, "page_size", 50),
		Filters: services.AuditFilters{
			ResourceType: "source",
			ResourceID:   source.ID,
		},
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"records": records,
		"total":   total,
	})
}

// descendChild resolves a catalogue child. Connectors that support scoped
// navigation resolve the child from one listing snapshot; everything else
// falls back to a direct descend.
func descendChild(ctx context.Context, conn connectors.Connector, href string) (connectors.Connector, error) {
	if nav, ok := conn.(connectors.ScopedNavigator); ok {
		scope, err := nav.Open(ctx)
		if err != nil {
			return nil, err
		}
		return scope.Descend(href)
	}
	return conn.Descend(ctx, href)
}

// loadSource resolves the :id path parameter into a live source.
func (h *SourceHandler) loadSource(c *gin.Context) (*models.Source, bool) {
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

// requireLevel enforces the permission gate. Denials are an empty-body 403.
func (h *SourceHandler) requireLevel(c *gin.Context, source *models.Source, required models.PermissionLevel) bool {
	allowed, err := h.gate.Allows(requestContext(c), currentUser(c), source, required)
	if err != nil {
		response.Error(c, err)
		return false
	}
	if !allowed {
		response.Forbidden(c)
		return false
	}
	return true
}

// connectorError maps connector failures onto the API error contract for
// enveloped endpoints.
func (h *SourceHandler) connectorError(c *gin.Context, err error) {
	var upstream *connectors.UpstreamError

	switch {
	case errors.Is(err, connectors.ErrCapabilityUnsupported):
		response.Error(c, apperrors.NewBadRequest("data source does not support this operation"))
	case errors.Is(err, connectors.ErrPluginUnset):
		response.Error(c, apperrors.NewBadRequest("data source has no plugin configured"))
	case errors.Is(err, connectors.ErrPluginNotFound):
		response.Error(c, apperrors.NewBadRequest("data source plugin is not available"))
	case errors.Is(err, connectors.ErrDatasetNotFound):
		response.NotFound(c, "dataset not found")
	case errors.Is(err, connectors.ErrAmbiguousItem):
		response.Error(c, apperrors.ErrSourceMisbehaving)
	case errors.Is(err, connectors.ErrAuthUndetermined):
		response.Error(c, apperrors.New("AUTH_UNDETERMINED", "Could not negotiate authentication with data source", http.StatusBadGateway))
	case errors.As(err, &upstream):
		response.Error(c, apperrors.New("UPSTREAM_FAILURE", "Data source request failed", upstream.HTTPStatus()))
	default:
		response.Error(c, err)
	}
}

// passthroughError handles failures on the raw data path: upstream errors
// pass their status and body through untouched, everything else falls back
// to the enveloped mapping.
func (h *SourceHandler) passthroughError(c *gin.Context, err error) {
	var upstream *connectors.UpstreamError
	if errors.As(err, &upstream) && len(upstream.Body) > 0 {
		response.Raw(c, upstream.HTTPStatus(), "", upstream.Body)
		return
	}
	if errors.As(err, &upstream) {
		c.Status(upstream.HTTPStatus())
		return
	}
	h.connectorError(c, err)
}

// recordAccessEvent writes an access provenance record unless the source is
// exempted from access provenance.
func (h *SourceHandler) recordAccessEvent(c *gin.Context, source *models.Source, action string, success bool) {
	if source.ProvExempt {
		return
	}

	result := "success"
	if !success {
		result = "failure"
	}

	entry := services.AuditEntry{
		ResourceType: "source",
		ResourceID:   source.ID,
		Action:       action,
		Result:       result,
	}
	if user := currentUser(c); user != nil {
		id := user.ID
		entry.ActorID = &id
	}
	if query := c.Request.URL.RawQuery; query != "" {
		entry.Metadata = map[string]any{"query": query}
	}

	h.audit.Record(entry)
}

// recordUpdateEvent writes a lifecycle provenance record. Lifecycle events
// are always kept, even on provenance-exempt sources.
func (h *SourceHandler) recordUpdateEvent(source *models.Source, user *models.User, action string) {
	entry := services.AuditEntry{
		ResourceType: "source",
		ResourceID:   source.ID,
		Action:       action,
		Result:       "success",
	}
	if user != nil {
		id := user.ID
		entry.ActorID = &id
	}
	h.audit.Record(entry)
}
