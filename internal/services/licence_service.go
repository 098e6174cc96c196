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

// ErrLicenceNotFound indicates the requested licence does not exist.
var ErrLicenceNotFound = apperrors.New("LICENCE_NOT_FOUND", "Licence not found", http.StatusNotFound)

// CreateLicenceInput describes the fields accepted when registering a licence.
type CreateLicenceInput struct {
	Name      string
	ShortName string
	Version   string
	URL       string
	OwnerID   uint
}

// LicenceService manages the licences data sources are published under.
type LicenceService struct {
	db *gorm.DB
}

// NewLicenceService constructs a LicenceService.
func NewLicenceService(db *gorm.DB) (*LicenceService, error) {
	if db == nil {
		return nil, errors.New("licence service: db is required")
	}
	return &LicenceService{db: db}, nil
}

// Create registers a new licence version.
func (s *LicenceService) Create(ctx context.Context, input CreateLicenceInput) (*models.Licence, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	version := strings.TrimSpace(input.Version)
	if name == "" {
		return nil, apperrors.NewBadRequest("name is required")
	}
	if version == "" {
		return nil, apperrors.NewBadRequest("version is required")
	}
	if input.OwnerID == 0 {
		return nil, apperrors.NewBadRequest("owner is required")
	}

	licence := &models.Licence{
		Name:      name,
		ShortName: strings.TrimSpace(input.ShortName),
		Version:   version,
		URL:       strings.TrimSpace(input.URL),
		OwnerID:   input.OwnerID,
	}
	if err := s.db.WithContext(ctx).Create(licence).Error; err != nil {
		return nil, fmt.Errorf("licence service: create licence: %w", err)
	}
	return licence, nil
}

// GetByID fetches a licence by primary key.
func (s *LicenceService) GetByID(ctx context.Context, id uint) (*models.Licence, error) {
	ctx = ensureContext(ctx)

	var licence models.Licence
	if err := s.db.WithContext(ctx).First(&licence, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLicenceNotFound
		}
		return nil, fmt.Errorf("licence service: get licence: %w", err)
	}
	return &licence, nil
}

// List returns every licence ordered by name then version.
func (s *LicenceService) List(ctx context.Context) ([]models.Licence, error) {
	ctx = ensureContext(ctx)

	var licences []models.Licence
	if err := s.db.WithContext(ctx).Order("name").Order("version").Find(&licences).Error; err != nil {
		return nil, fmt.Errorf("licence service: list licences: %w", err)
	}
	return licences, nil
}

// Delete removes a licence. Sources referencing it keep their descriptor
// but lose the association.
func (s *LicenceService) Delete(ctx context.Context, id uint) error {
	ctx = ensureContext(ctx)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Source{}).
			Where("licence_id = ?", id).
			Update("licence_id", nil).Error; err != nil {
			return fmt.Errorf("licence service: unlink sources: %w", err)
		}
		result := tx.Delete(&models.Licence{}, id)
		if result.Error != nil {
			return fmt.Errorf("licence service: delete licence: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrLicenceNotFound
		}
		return nil
	})
}
