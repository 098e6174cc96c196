package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/avencore/datahaven/internal/app"
	iauth "github.com/avencore/datahaven/internal/auth"
	"github.com/avencore/datahaven/internal/connectors"
	"github.com/avencore/datahaven/internal/handlers"
	"github.com/avencore/datahaven/internal/middleware"
	"github.com/avencore/datahaven/internal/permissions"
	"github.com/avencore/datahaven/internal/services"
)

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(db *gorm.DB, jwt *iauth.JWTService, registry *connectors.Registry, cfg *app.Config) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if registry == nil {
		return nil, fmt.Errorf("connector registry must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}

	gate, err := permissions.NewGate(db)
	if err != nil {
		return nil, err
	}

	userService, err := services.NewUserService(db)
	if err != nil {
		return nil, err
	}
	auditService, err := services.NewAuditService(db)
	if err != nil {
		return nil, err
	}
	accessService, err := services.NewAccessService(db)
	if err != nil {
		return nil, err
	}
	metadataService, err := services.NewMetadataService(db)
	if err != nil {
		return nil, err
	}
	qualityService, err := services.NewQualityService(db)
	if err != nil {
		return nil, err
	}
	licenceService, err := services.NewLicenceService(db)
	if err != nil {
		return nil, err
	}

	sourceOpts := []services.SourceServiceOption{}
	if cfg.Upstream.RequestTimeout > 0 {
		sourceOpts = append(sourceOpts, services.WithUpstreamTimeout(cfg.Upstream.RequestTimeout))
	}
	if cfg.Upstream.ProbeTimeout > 0 {
		sourceOpts = append(sourceOpts, services.WithNegotiator(&connectors.Negotiator{Timeout: cfg.Upstream.ProbeTimeout}))
	}
	sourceService, err := services.NewSourceService(db, registry, sourceOpts...)
	if err != nil {
		return nil, err
	}

	authHandler := handlers.NewAuthHandler(userService, jwt)
	sourceHandler := handlers.NewSourceHandler(sourceService, auditService, qualityService, gate)
	accessHandler := handlers.NewAccessHandler(sourceService, accessService, gate)
	metadataHandler := handlers.NewMetadataHandler(sourceService, metadataService, gate)
	qualityHandler := handlers.NewQualityHandler(qualityService)
	licenceHandler := handlers.NewLicenceHandler(licenceService)
	userHandler := handlers.NewUserHandler(userService)

	r := gin.New()

	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())

	r.NoRoute(middleware.NotFoundHandler)

	if cfg.Monitoring.Health.Enabled {
		r.GET("/health", handlers.Health())
	}
	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := cfg.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	requireAuth := middleware.Auth(jwt)
	optionalAuth := middleware.OptionalAuth(jwt)

	v1 := r.Group("/api/v1")

	v1.POST("/auth/login", authHandler.Login)
	v1.GET("/auth/me", requireAuth, authHandler.Me)

	v1.GET("/plugins", handlers.Plugins(registry))

	// Source registry and passthrough. Read routes take optional auth so
	// public sources stay reachable anonymously; the permission gate makes
	// the real decision per source.
	sources := v1.Group("/sources")
	{
		sources.GET("", optionalAuth, sourceHandler.List)
		sources.POST("", requireAuth, sourceHandler.Create)
		sources.GET("/:id", optionalAuth, sourceHandler.Get)
		sources.PUT("/:id", requireAuth, sourceHandler.Update)
		sources.DELETE("/:id", requireAuth, sourceHandler.Delete)

		sources.GET("/:id/data", optionalAuth, sourceHandler.Data)
		sources.GET("/:id/metadata", optionalAuth, sourceHandler.Metadata)
		sources.GET("/:id/datasets", optionalAuth, sourceHandler.Datasets)
		sources.GET("/:id/dataset/*href", optionalAuth, sourceHandler.Dataset)
		sources.GET("/:id/quality", optionalAuth, sourceHandler.Quality)
		sources.GET("/:id/prov", optionalAuth, sourceHandler.Prov)

		sources.POST("/:id/access", requireAuth, accessHandler.Request)
		sources.GET("/:id/access", requireAuth, accessHandler.List)
		sources.PUT("/:id/access/:user", requireAuth, accessHandler.Grant)

		sources.GET("/:id/items", optionalAuth, metadataHandler.ListItems)
		sources.POST("/:id/items", requireAuth, metadataHandler.AttachItem)
		sources.DELETE("/:id/items/:item", requireAuth, metadataHandler.DetachItem)
	}

	fields := v1.Group("/fields")
	{
		fields.GET("", optionalAuth, metadataHandler.ListFields)
		fields.POST("", requireAuth, metadataHandler.CreateField)
		fields.DELETE("/:id", requireAuth, metadataHandler.DeleteField)
	}

	licences := v1.Group("/licences")
	{
		licences.GET("", optionalAuth, licenceHandler.List)
		licences.POST("", requireAuth, licenceHandler.Create)
		licences.DELETE("/:id", requireAuth, licenceHandler.Delete)
	}

	rulesets := v1.Group("/rulesets")
	{
		rulesets.GET("", optionalAuth, qualityHandler.List)
		rulesets.GET("/:id", optionalAuth, qualityHandler.Get)
		rulesets.POST("", requireAuth, qualityHandler.Create)
		rulesets.DELETE("/:id", requireAuth, qualityHandler.Delete)
		rulesets.POST("/:id/levels", requireAuth, qualityHandler.AddLevel)
		rulesets.POST("/:id/levels/:level/criteria", requireAuth, qualityHandler.AddCriterion)
	}

	users := v1.Group("/users")
	users.Use(requireAuth)
	{
		users.GET("", userHandler.List)
		users.POST("", userHandler.Create)
	}

	return r, nil
}
