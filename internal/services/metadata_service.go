package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/avencore/datahaven/internal/models"
	apperrors "github.com/avencore/datahaven/pkg/errors"
)

var (
	// ErrFieldNotFound indicates the metadata field does not exist.
	ErrFieldNotFound = apperrors.New("FIELD_NOT_FOUND", "Metadata field not found", http.StatusNotFound)
	// ErrDuplicateItem indicates the same metadata value is already attached.
	ErrDuplicateItem = apperrors.New("DUPLICATE_METADATA", "Metadata value already attached", http.StatusConflict)
)

// MetadataService manages the metadata vocabulary and the values attached
// to data sources.
type MetadataService struct {
	db *gorm.DB
}

// NewMetadataService constructs a MetadataService.
func NewMetadataService(db *gorm.DB) (*MetadataService, error) {
	if db == nil {
		return nil, errors.New("metadata service: db is required")
	}
	return &MetadataService{db: db}, nil
}

// CreateField registers a new metadata field in the vocabulary.
func (s *MetadataService) CreateField(ctx context.Context, name, shortName string, operational bool) (*models.MetadataField, error) {
	ctx = ensureContext(ctx)

	name = strings.TrimSpace(name)
	shortName = strings.TrimSpace(shortName)
	if name == "" {
		return nil, apperrors.NewBadRequest("name is required")
	}
	if !models.ValidShortName(shortName) {
		return nil, apperrors.NewBadRequest("short name must be a valid identifier")
	}

	field := &models.MetadataField{
		Name:        name,
		ShortName:   shortName,
		Operational: operational,
	}
	if err := s.db.WithContext(ctx).Create(field).Error; err != nil {
		return nil, fmt.Errorf("metadata service: create field: %w", err)
	}
	return field, nil
}

// ListFields returns the metadata vocabulary ordered by short name.
func (s *MetadataService) ListFields(ctx context.Context) ([]models.MetadataField, error) {
	ctx = ensureContext(ctx)

	var fields []models.MetadataField
	if err := s.db.WithContext(ctx).Order("short_name").Find(&fields).Error; err != nil {
		return nil, fmt.Errorf("metadata service: list fields: %w", err)
	}
	return fields, nil
}

// GetFieldByShortName resolves a field by its short name.
func (s *MetadataService) GetFieldByShortName(ctx context.Context, shortName string) (*models.MetadataField, error) {
	ctx = ensureContext(ctx)

	var field models.MetadataField
	err := s.db.WithContext(ctx).Where("short_name = ?", strings.TrimSpace(shortName)).First(&field).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFieldNotFound
		}
		return nil, fmt.Errorf("metadata service: get field: %w", err)
	}
	return &field, nil
}

// DeleteField removes a field and every value attached through it.
func (s *MetadataService) DeleteField(ctx context.Context, id uint) error {
	ctx = ensureContext(ctx)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("field_id = ?", id).Delete(&models.MetadataItem{}).Error; err != nil {
			return fmt.Errorf("metadata service: delete items: %w", err)
		}
		result := tx.Delete(&models.MetadataField{}, id)
		if result.Error != nil {
			return fmt.Errorf("metadata service: delete field: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrFieldNotFound
		}
		return nil
	})
}

// AttachItem attaches a metadata value to a source under the given field.
// The same value may not be attached twice through the same field.
func (s *MetadataService) AttachItem(ctx context.Context, sourceID, fieldID uint, value string) (*models.MetadataItem, error) {
	ctx = ensureContext(ctx)

	value = strings.TrimSpace(value)
	if value == "" {
		return nil, apperrors.NewBadRequest("value is required")
	}

	var count int64
	err := s.db.WithContext(ctx).Model(&models.MetadataItem{}).
		Where("source_id = ? AND field_id = ? AND value = ?", sourceID, fieldID, value).
		Count(&count).Error
	if err != nil {
		return nil, fmt.Errorf("metadata service: check item: %w", err)
	}
	if count > 0 {
		return nil, ErrDuplicateItem
	}

	item := &models.MetadataItem{
		SourceID: sourceID,
		FieldID:  fieldID,
		Value:    value,
	}
	if err := s.db.WithContext(ctx).Create(item).Error; err != nil {
		return nil, fmt.Errorf("metadata service: attach item: %w", err)
	}
	return item, nil
}

// DetachItem removes a metadata value from a source.
func (s *MetadataService) DetachItem(ctx context.Context, sourceID, itemID uint) error {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Where("source_id = ?", sourceID).
		Delete(&models.MetadataItem{}, itemID)
	if result.Error != nil {
		return fmt.Errorf("metadata service: detach item: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// ListItems returns the metadata values attached to a source.
func (s *MetadataService) ListItems(ctx context.Context, sourceID uint) ([]models.MetadataItem, error) {
	ctx = ensureContext(ctx)

	var items []models.MetadataItem
	err := s.db.WithContext(ctx).
		Preload("Field").
		Where("source_id = ?", sourceID).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("metadata service: list items: %w", err)
	}
	return items, nil
}
