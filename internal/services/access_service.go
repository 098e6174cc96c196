package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/avencore/datahaven/internal/models"
	apperrors "github.com/avencore/datahaven/pkg/errors"
)

// AccessService manages the per-user permission grants on data sources.
// A user raises the level they are asking for; the source owner decides the
// level actually granted. A request reduced to NONE removes the grant row
// outright rather than keeping it at zero.
type AccessService struct {
	db *gorm.DB
}

// NewAccessService constructs an AccessService.
func NewAccessService(db *gorm.DB) (*AccessService, error) {
	if db == nil {
		return nil, errors.New("access service: db is required")
	}
	return &AccessService{db: db}, nil
}

// Request records that a user is asking for the given access level on a
// source, replacing any previous request. Asking for less never needs
// approval: a reduction takes effect immediately, and a request reduced to
// NONE deletes the grant row entirely.
func (s *AccessService) Request(ctx context.Context, sourceID, userID uint, level models.PermissionLevel, reason string) (*models.PermissionGrant, error) {
	ctx = ensureContext(ctx)

	if !level.Valid() {
		return nil, apperrors.NewBadRequest("invalid permission level")
	}
	reason = strings.TrimSpace(reason)
	if len(reason) > models.MaxReasonLength {
		return nil, apperrors.NewBadRequest("reason is too long")
	}

	grant, err := s.find(ctx, sourceID, userID)
	if err != nil {
		return nil, err
	}

	if level == models.PermissionNone {
		if grant == nil {
			return nil, nil
		}
		return s.remove(ctx, grant)
	}

	if grant == nil {
		grant = &models.PermissionGrant{
			SourceID:  sourceID,
			UserID:    userID,
			Requested: level,
			Reason:    reason,
		}
		if err := s.db.WithContext(ctx).Create(grant).Error; err != nil {
			return nil, fmt.Errorf("access service: create request: %w", err)
		}
		return grant, nil
	}

	grant.Requested = level
	if grant.Granted > level {
		grant.Granted = level
	}
	if reason != "" {
		grant.Reason = reason
	}

	return s.save(ctx, grant)
}

// Grant sets the level a user actually holds on a source. Granting settles
// any pending request at the decided level; granting NONE revokes the grant
// and deletes the row.
func (s *AccessService) Grant(ctx context.Context, sourceID, userID uint, level models.PermissionLevel) (*models.PermissionGrant, error) {
	ctx = ensureContext(ctx)

	if !level.Valid() {
		return nil, apperrors.NewBadRequest("invalid permission level")
	}

	grant, err := s.find(ctx, sourceID, userID)
	if err != nil {
		return nil, err
	}

	if grant == nil {
		if level == models.PermissionNone {
			return nil, nil
		}
		grant = &models.PermissionGrant{
			SourceID:  sourceID,
			UserID:    userID,
			Granted:   level,
			Requested: level,
		}
		if err := s.db.WithContext(ctx).Create(grant).Error; err != nil {
			return nil, fmt.Errorf("access service: create grant: %w", err)
		}
		return grant, nil
	}

	grant.Granted = level
	grant.Requested = level

	return s.save(ctx, grant)
}

// save persists the grant, deleting rows whose request has fallen to NONE.
func (s *AccessService) save(ctx context.Context, grant *models.PermissionGrant) (*models.PermissionGrant, error) {
	if grant.Requested == models.PermissionNone {
		return s.remove(ctx, grant)
	}

	if err := s.db.WithContext(ctx).Save(grant).Error; err != nil {
		return nil, fmt.Errorf("access service: save grant: %w", err)
	}
	return grant, nil
}

func (s *AccessService) remove(ctx context.Context, grant *models.PermissionGrant) (*models.PermissionGrant, error) {
	if err := s.db.WithContext(ctx).Delete(grant).Error; err != nil {
		return nil, fmt.Errorf("access service: remove grant: %w", err)
	}
	return nil, nil
}

// Get returns the grant a user holds on a source, or nil when none exists.
func (s *AccessService) Get(ctx context.Context, sourceID, userID uint) (*models.PermissionGrant, error) {
	return s.find(ensureContext(ctx), sourceID, userID)
}

// ListBySource returns every grant on a source, pending requests first.
func (s *AccessService) ListBySource(ctx context.Context, sourceID uint) ([]models.PermissionGrant, error) {
	ctx = ensureContext(ctx)

	var grants []models.PermissionGrant
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("source_id = ?", sourceID).
		Order("(requested > granted) DESC").
		Order("updated_at DESC").
		Find(&grants).Error
	if err != nil {
		return nil, fmt.Errorf("access service: list grants: %w", err)
	}
	return grants, nil
}

func (s *AccessService) find(ctx context.Context, sourceID, userID uint) (*models.PermissionGrant, error) {
	var grant models.PermissionGrant
	err := s.db.WithContext(ctx).
		Where("source_id = ? AND user_id = ?", sourceID, userID).
		First(&grant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("access service: lookup grant: %w", err)
	}
	return &grant, nil
}
