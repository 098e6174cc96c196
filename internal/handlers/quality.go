package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/avencore/datahaven/internal/services"
	"github.com/avencore/datahaven/pkg/response"
)

// QualityHandler serves the quality ruleset registry.
type QualityHandler struct {
	quality *services.QualityService
}

func NewQualityHandler(quality *services.QualityService) *QualityHandler {
	return &QualityHandler{quality: quality}
}

type createRulesetRequest struct {
	Name      string `json:"name" validate:"required"`
	ShortName string `json:"short_name"`
	Version   string `json:"version" validate:"required"`
}

type createLevelRequest struct {
	Level     uint     `json:"level" validate:"required"`
	Threshold *float64 `json:"threshold"`
}

type createCriterionRequest struct {
	FieldID uint    `json:"field_id" validate:"required"`
	Weight  float64 `json:"weight"`
}

// GET /api/v1/rulesets
func (h *QualityHandler) List(c *gin.Context) {
	rulesets, err := h.quality.ListRulesets(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, rulesets)
}

// GET /api/v1/rulesets/:id
func (h *QualityHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	ruleset, err := h.quality.GetRuleset(requestContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, ruleset)
}

// POST /api/v1/rulesets
func (h *QualityHandler) Create(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}

	var req createRulesetRequest
	if !bindAndValidate(c, &req) {
		return
	}

	ruleset, err := h.quality.CreateRuleset(requestContext(c), req.Name, req.ShortName, req.Version)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, ruleset)
}

// DELETE /api/v1/rulesets/:id
func (h *QualityHandler) Delete(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.quality.DeleteRuleset(requestContext(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"id": id})
}

// POST /api/v1/rulesets/:id/levels
func (h *QualityHandler) AddLevel(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req createLevelRequest
	if !bindAndValidate(c, &req) {
		return
	}

	level, err := h.quality.AddLevel(requestContext(c), id, req.Level, req.Threshold)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, level)
}

// POST /api/v1/rulesets/:id/levels/:level/criteria
func (h *QualityHandler) AddCriterion(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}

	levelID, ok := parseIDParam(c, "level")
	if !ok {
		return
	}

	var req createCriterionRequest
	if !bindAndValidate(c, &req) {
		return
	}

	criterion, err := h.quality.AddCriterion(requestContext(c), levelID, req.FieldID, req.Weight)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, criterion)
}

func (h *QualityHandler) requireAdmin(c *gin.Context) bool {
	user := currentUser(c)
	if user == nil || !user.IsAdmin {
		response.Forbidden(c)
		return false
	}
	return true
}
