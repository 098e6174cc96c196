package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/avencore/datahaven/internal/connectors"
	"github.com/avencore/datahaven/pkg/response"
)

// Plugins lists the connector plugins available in this deployment.
func Plugins(registry *connectors.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		response.Success(c, http.StatusOK, registry.Names())
	}
}
