package permissions

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/avencore/datahaven/internal/models"
	"github.com/avencore/datahaven/pkg/metrics"
)

// Gate decides whether a caller may perform an action on a data source.
// Denial is a first-class decision computed before any connector is
// touched, never an exception raised from inside one.
type Gate struct {
	db *gorm.DB
}

// NewGate constructs a permission gate backed by the provided database.
func NewGate(db *gorm.DB) (*Gate, error) {
	if db == nil {
		return nil, errors.New("permission gate: db is required")
	}
	return &Gate{db: db}, nil
}

// Effective computes the caller's effective level on a source:
// max(public level, owner/admin override, granted level). A nil user is an
// anonymous caller and holds only the public level.
func (g *Gate) Effective(ctx context.Context, user *models.User, source *models.Source) (models.PermissionLevel, error) {
	if source == nil {
		return models.PermissionNone, errors.New("permission gate: source is required")
	}

	level := source.PublicLevel

	if user == nil {
		return level, nil
	}

	if user.IsAdmin || source.IsOwnedBy(user.ID) {
		return models.PermissionProv, nil
	}

	var grant models.PermissionGrant
	err := g.db.WithContext(ctx).
		Where("user_id = ? AND source_id = ?", user.ID, source.ID).
		First(&grant).Error
	switch {
	case err == nil:
		if grant.Granted > level {
			level = grant.Granted
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		// No grant record is equivalent to a grant of NONE.
	default:
		return models.PermissionNone, err
	}

	return level, nil
}

// Allows reports whether the caller holds at least the required level.
func (g *Gate) Allows(ctx context.Context, user *models.User, source *models.Source, required models.PermissionLevel) (bool, error) {
	effective, err := g.Effective(ctx, user, source)
	if err != nil {
		metrics.PermissionChecks.WithLabelValues(required.String(), "error").Inc()
		return false, err
	}

	allowed := effective >= required
	if allowed {
		metrics.PermissionChecks.WithLabelValues(required.String(), "allow").Inc()
	} else {
		metrics.PermissionChecks.WithLabelValues(required.String(), "deny").Inc()
	}
	return allowed, nil
}

// CanManage reports whether the caller may edit the source itself or its
// grants: the owner and admins only.
func (g *Gate) CanManage(user *models.User, source *models.Source) bool {
	if user == nil || source == nil {
		return false
	}
	return user.IsAdmin || source.IsOwnedBy(user.ID)
}
