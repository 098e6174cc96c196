package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/avencore/datahaven/internal/models"
	"github.com/avencore/datahaven/pkg/logger"
)

// Audit actions recorded against data sources.
const (
	AuditActionCreate         = "create"
	AuditActionUpdate         = "update"
	AuditActionDelete         = "delete"
	AuditActionDataAccess     = "data_access"
	AuditActionMetadataAccess = "metadata_access"
)

// AuditEntry captures a single provenance event to persist.
type AuditEntry struct {
	ResourceType string
	ResourceID   uint
	ActorID      *uint
	Action       string
	Result       string
	Metadata     map[string]any
}

// AuditFilters encapsulates optional filters when querying audit records.
type AuditFilters struct {
	ResourceType string
	ResourceID   uint
	ActorID      *uint
	Action       string
	Since        *time.Time
	Until        *time.Time
}

// AuditListOptions controls pagination and filtering for audit queries.
type AuditListOptions struct {
	Page     int
	PageSize int
	Filters  AuditFilters
}

// AuditService persists and retrieves provenance records.
type AuditService struct {
	db *gorm.DB
}

// NewAuditService constructs an AuditService using the provided database handle.
func NewAuditService(db *gorm.DB) (*AuditService, error) {
	if db == nil {
		return nil, errors.New("audit service: db is required")
	}
	return &AuditService{db: db}, nil
}

// Log stores a provenance entry, marshalling metadata into JSON form.
func (s *AuditService) Log(ctx context.Context, entry AuditEntry) error {
	ctx = ensureContext(ctx)

	if strings.TrimSpace(entry.Action) == "" {
		return errors.New("audit service: action is required")
	}
	if strings.TrimSpace(entry.ResourceType) == "" {
		return errors.New("audit service: resource type is required")
	}

	record := models.AuditLog{
		ResourceType: strings.TrimSpace(entry.ResourceType),
		ResourceID:   entry.ResourceID,
		ActorID:      entry.ActorID,
		Action:       strings.TrimSpace(entry.Action),
		Result:       strings.TrimSpace(entry.Result),
	}

	if entry.Metadata != nil {
		encoded, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("audit service: marshal metadata: %w", err)
		}
		record.Metadata = encoded
	}

	return s.db.WithContext(ctx).Create(&record).Error
}

// Record stores a provenance entry without blocking the caller. Failures are
// logged and dropped; provenance is best effort and never gates the request.
func (s *AuditService) Record(entry AuditEntry) {
	go func() {
		if err := s.Log(context.Background(), entry); err != nil {
			logger.WithModule("audit").Warn("provenance record dropped",
				zap.String("action", entry.Action),
				zap.String("resource_type", entry.ResourceType),
				zap.Uint("resource_id", entry.ResourceID),
				zap.Error(err),
			)
		}
	}()
}

// List returns paginated provenance records ordered by creation time descending.
func (s *AuditService) List(ctx context.Context, opts AuditListOptions) ([]models.AuditLog, int64, error) {
	ctx = ensureContext(ctx)

	page := opts.Page
	if page <= 0 {
		page = 1
	}
	perPage := opts.PageSize
	if perPage <= 0 || perPage > 200 {
		perPage = 50
	}

	var (
		results []models.AuditLog
		total   int64
	)

	query := s.db.WithContext(ctx).Model(&models.AuditLog{})
	query = applyAuditFilters(query, opts.Filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("audit service: count records: %w", err)
	}

	if err := query.
		Preload("Actor").
		Order("created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&results).Error; err != nil {
		return nil, 0, fmt.Errorf("audit service: list records: %w", err)
	}

	return results, total, nil
}

func applyAuditFilters(query *gorm.DB, filters AuditFilters) *gorm.DB {
	if filters.ResourceType != "" {
		query = query.Where("resource_type = ?", filters.ResourceType)
	}
	if filters.ResourceID != 0 {
		query = query.Where("resource_id = ?", filters.ResourceID)
	}
	if filters.ActorID != nil {
		query = query.Where("actor_id = ?", *filters.ActorID)
	}
	if filters.Action != "" {
		query = query.Where("action = ?", filters.Action)
	}
	if filters.Since != nil {
		query = query.Where("created_at >= ?", *filters.Since)
	}
	if filters.Until != nil {
		query = query.Where("created_at <= ?", *filters.Until)
	}
	return query
}
