package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/avencore/datahaven/internal/connectors"
	"github.com/avencore/datahaven/internal/models"
	apperrors "github.com/avencore/datahaven/pkg/errors"
	"github.com/avencore/datahaven/pkg/logger"
	"github.com/avencore/datahaven/pkg/metrics"
)

// ErrSourceNotFound indicates the requested data source does not exist or
// has been retired.
var ErrSourceNotFound = apperrors.New("SOURCE_NOT_FOUND", "Data source not found", http.StatusNotFound)

// DefaultUpstreamTimeout bounds each outbound request to a data source.
const DefaultUpstreamTimeout = 30 * time.Second

// CreateSourceInput describes the fields accepted when registering a source.
type CreateSourceInput struct {
	Name        string
	Description string
	Locator     string
	PluginName  string
	APIKey      string
	PublicLevel *models.PermissionLevel
	ProvExempt  bool
	LicenceID   *uint
	Settings    datatypes.JSON
	OwnerID     uint
}

// UpdateSourceInput enumerates mutable source attributes. Nil fields are
// left unchanged.
type UpdateSourceInput struct {
	Name        *string
	Description *string
	Locator     *string
	PluginName  *string
	APIKey      *string
	PublicLevel *models.PermissionLevel
	ProvExempt  *bool
	LicenceID   *uint
	Settings    datatypes.JSON
}

// SourceFilters captures listing filters. Metadata maps a metadata field
// short name to required values; a source matches when it carries every
// requested value.
type SourceFilters struct {
	OwnerID  uint
	Metadata map[string][]string
}

// SourceService manages data source descriptors and builds connectors for
// them. All connector construction flows through an accounting scope so
// upstream usage lands back on the descriptor.
type SourceService struct {
	db         *gorm.DB
	registry   *connectors.Registry
	negotiator *connectors.Negotiator
	timeout    time.Duration
}

// SourceServiceOption customises a SourceService.
type SourceServiceOption func(*SourceService)

// WithUpstreamTimeout overrides the outbound request timeout.
func WithUpstreamTimeout(d time.Duration) SourceServiceOption {
	return func(s *SourceService) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithNegotiator injects a preconfigured auth negotiator, primarily for testing.
func WithNegotiator(n *connectors.Negotiator) SourceServiceOption {
	return func(s *SourceService) {
		if n != nil {
			s.negotiator = n
		}
	}
}

// NewSourceService constructs a SourceService.
func NewSourceService(db *gorm.DB, registry *connectors.Registry, opts ...SourceServiceOption) (*SourceService, error) {
	if db == nil {
		return nil, errors.New("source service: db is required")
	}
	if registry == nil {
		return nil, errors.New("source service: registry is required")
	}

	svc := &SourceService{
		db:         db,
		registry:   registry,
		negotiator: &connectors.Negotiator{},
		timeout:    DefaultUpstreamTimeout,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Create registers a new data source. Sources default to fully public data
// access unless the caller restricts them explicitly.
func (s *SourceService) Create(ctx context.Context, input CreateSourceInput) (*models.Source, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	locator := strings.TrimSpace(input.Locator)
	if name == "" {
		return nil, apperrors.NewBadRequest("name is required")
	}
	if locator == "" {
		return nil, apperrors.NewBadRequest("locator is required")
	}
	if input.OwnerID == 0 {
		return nil, apperrors.NewBadRequest("owner is required")
	}

	level := models.PermissionData
	if input.PublicLevel != nil {
		if !input.PublicLevel.Valid() {
			return nil, apperrors.NewBadRequest("invalid public permission level")
		}
		level = *input.PublicLevel
	}

	source := &models.Source{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		Locator:     locator,
		PluginName:  strings.TrimSpace(input.PluginName),
		APIKey:      strings.TrimSpace(input.APIKey),
		PublicLevel: level,
		ProvExempt:  input.ProvExempt,
		LicenceID:   input.LicenceID,
		Settings:    input.Settings,
		OwnerID:     input.OwnerID,
	}

	if err := s.db.WithContext(ctx).Create(source).Error; err != nil {
		return nil, fmt.Errorf("source service: create source: %w", err)
	}

	return source, nil
}

// GetByID fetches a live source by primary key.
func (s *SourceService) GetByID(ctx context.Context, id uint) (*models.Source, error) {
	ctx = ensureContext(ctx)

	var source models.Source
	err := s.db.WithContext(ctx).
		Preload("Licence").
		Preload("MetadataItems").
		Preload("MetadataItems.Field").
		Where("is_deleted = ?", false).
		First(&source, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSourceNotFound
		}
		return nil, fmt.Errorf("source service: get source: %w", err)
	}
	return &source, nil
}

// List returns live sources matching the filters, ordered by name.
func (s *SourceService) List(ctx context.Context, filters SourceFilters) ([]models.Source, error) {
	ctx = ensureContext(ctx)

	query := s.db.WithContext(ctx).
		Model(&models.Source{}).
		Preload("MetadataItems").
		Preload("MetadataItems.Field").
		Where("is_deleted = ?", false)

	if filters.OwnerID != 0 {
		query = query.Where("owner_id = ?", filters.OwnerID)
	}

	var sources []models.Source
	if err := query.Order("name").Find(&sources).Error; err != nil {
		return nil, fmt.Errorf("source service: list sources: %w", err)
	}

	if len(filters.Metadata) == 0 {
		return sources, nil
	}

	filtered := sources[:0]
	for _, source := range sources {
		if sourceMatchesMetadata(&source, filters.Metadata) {
			filtered = append(filtered, source)
		}
	}
	return filtered, nil
}

func sourceMatchesMetadata(source *models.Source, want map[string][]string) bool {
	have := make(map[string]map[string]struct{})
	for _, item := range source.MetadataItems {
		if item.Field == nil {
			continue
		}
		values, ok := have[item.Field.ShortName]
		if !ok {
			values = make(map[string]struct{})
			have[item.Field.ShortName] = values
		}
		values[item.Value] = struct{}{}
	}

	for field, values := range want {
		present, ok := have[field]
		if !ok {
			return false
		}
		for _, value := range values {
			if _, ok := present[value]; !ok {
				return false
			}
		}
	}
	return true
}

// Update applies partial changes to a source. Changing the locator or the
// API key invalidates the cached authentication scheme.
func (s *SourceService) Update(ctx context.Context, id uint, input UpdateSourceInput) (*models.Source, error) {
	ctx = ensureContext(ctx)

	source, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	invalidateAuth := false

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.NewBadRequest("name cannot be empty")
		}
		updates["name"] = name
	}
	if input.Description != nil {
		updates["description"] = strings.TrimSpace(*input.Description)
	}
	if input.Locator != nil {
		locator := strings.TrimSpace(*input.Locator)
		if locator == "" {
			return nil, apperrors.NewBadRequest("locator cannot be empty")
		}
		if locator != source.Locator {
			invalidateAuth = true
		}
		updates["locator"] = locator
	}
	if input.PluginName != nil {
		updates["plugin_name"] = strings.TrimSpace(*input.PluginName)
	}
	if input.APIKey != nil {
		if *input.APIKey != source.APIKey {
			invalidateAuth = true
		}
		updates["api_key"] = strings.TrimSpace(*input.APIKey)
	}
	if input.PublicLevel != nil {
		if !input.PublicLevel.Valid() {
			return nil, apperrors.NewBadRequest("invalid public permission level")
		}
		updates["public_level"] = *input.PublicLevel
	}
	if input.ProvExempt != nil {
		updates["prov_exempt"] = *input.ProvExempt
	}
	if input.LicenceID != nil {
		updates["licence_id"] = *input.LicenceID
	}
	if input.Settings != nil {
		updates["settings"] = input.Settings
	}

	if invalidateAuth {
		updates["auth_method"] = connectors.AuthUnknown
		updates["auth_host"] = ""
	}

	if len(updates) == 0 {
		return source, nil
	}

	if err := s.db.WithContext(ctx).Model(source).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("source service: update source: %w", err)
	}

	return s.GetByID(ctx, id)
}

// Delete retires a source. The descriptor is retained for provenance; it
// simply stops being resolvable.
func (s *SourceService) Delete(ctx context.Context, id uint) error {
	ctx = ensureContext(ctx)

	source, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Model(source).Update("is_deleted", true).Error; err != nil {
		return fmt.Errorf("source service: delete source: %w", err)
	}
	return nil
}

// WithConnector resolves the source's plugin, negotiates upstream
// authentication when needed, and runs fn inside an accounting scope. The
// upstream calls made during the scope are flushed onto the descriptor's
// counters exactly once when the scope closes, whether fn succeeded or not.
func (s *SourceService) WithConnector(ctx context.Context, source *models.Source, fn func(conn connectors.Connector) error) error {
	ctx = ensureContext(ctx)

	conn, recorder, err := s.buildConnector(ctx, source)
	if err != nil {
		return err
	}

	defer func() {
		if closer, ok := conn.(interface{ Close() error }); ok {
			if cerr := closer.Close(); cerr != nil {
				logger.WithModule("sources").Warn("connector close failed",
					zap.Uint("source_id", source.ID),
					zap.Error(cerr),
				)
			}
		}
		s.flushUsage(source, recorder.Count())
	}()

	return fn(conn)
}

// buildConnector constructs a connector for the source together with the
// recorder its upstream calls report into.
func (s *SourceService) buildConnector(ctx context.Context, source *models.Source) (connectors.Connector, *connectors.UsageRecorder, error) {
	factory, err := s.registry.Resolve(source.PluginName)
	if err != nil {
		return nil, nil, err
	}

	auth, err := s.resolveAuth(ctx, source)
	if err != nil {
		return nil, nil, err
	}

	recorder := &connectors.UsageRecorder{}
	conn, err := factory(connectors.Config{
		Locator:    source.Locator,
		APIKey:     source.APIKey,
		Auth:       auth,
		Settings:   []byte(source.Settings),
		HTTPClient: &http.Client{Timeout: s.timeout},
		Usage:      recorder,
	})
	if err != nil {
		return nil, nil, err
	}

	return conn, recorder, nil
}

// resolveAuth returns the authentication scheme for the source, negotiating
// and caching it when no valid cached scheme exists. A cached scheme bound
// to a different host than the current locator is never trusted.
func (s *SourceService) resolveAuth(ctx context.Context, source *models.Source) (connectors.AuthMethod, error) {
	if source.APIKey == "" {
		return connectors.AuthNone, nil
	}

	host := source.LocatorHost()
	if source.AuthMethod != connectors.AuthUnknown && source.AuthHost == host {
		return source.AuthMethod, nil
	}

	method, err := s.negotiator.Negotiate(ctx, source.Locator, source.APIKey)
	if err != nil {
		return connectors.AuthUnknown, err
	}
	metrics.AuthNegotiations.WithLabelValues(method.String()).Inc()

	source.AuthMethod = method
	source.AuthHost = host
	if err := s.db.WithContext(ctx).Model(source).Updates(map[string]any{
		"auth_method": method,
		"auth_host":   host,
	}).Error; err != nil {
		return connectors.AuthUnknown, fmt.Errorf("source service: cache auth method: %w", err)
	}

	return method, nil
}

// Renegotiate discards the cached authentication scheme and probes the
// upstream again.
func (s *SourceService) Renegotiate(ctx context.Context, source *models.Source) (connectors.AuthMethod, error) {
	ctx = ensureContext(ctx)

	source.AuthMethod = connectors.AuthUnknown
	source.AuthHost = ""
	return s.resolveAuth(ctx, source)
}

// flushUsage adds the scope's upstream call count onto the descriptor
// counters with a single atomic SQL update.
func (s *SourceService) flushUsage(source *models.Source, count int64) {
	if count <= 0 {
		return
	}

	metrics.UpstreamRequests.WithLabelValues(source.PluginName).Add(float64(count))

	err := s.db.Model(&models.Source{}).
		Where("id = ?", source.ID).
		Updates(map[string]any{
			"external_requests":       gorm.Expr("external_requests + ?", count),
			"external_requests_total": gorm.Expr("external_requests_total + ?", count),
		}).Error
	if err != nil {
		logger.WithModule("sources").Warn("usage flush failed",
			zap.Uint("source_id", source.ID),
			zap.Int64("count", count),
			zap.Error(err),
		)
	}
}
