package permissions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/avencore/datahaven/internal/database/testutil"
	"github.com/avencore/datahaven/internal/models"
)

func seedUser(t *testing.T, db *gorm.DB, username string, admin bool) *models.User {
	t.Helper()
	user := &models.User{Username: username, Email: username + "@example.com", PasswordHash: "x", IsAdmin: admin}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedSource(t *testing.T, db *gorm.DB, owner *models.User, public models.PermissionLevel) *models.Source {
	t.Helper()
	source := &models.Source{
		Name:        "test source",
		Locator:     "http://example.com/data",
		PluginName:  "rest",
		PublicLevel: public,
		OwnerID:     owner.ID,
	}
	require.NoError(t, db.Create(source).Error)
	return source
}

func TestEffectiveAnonymousGetsPublicLevel(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	gate, err := NewGate(db)
	require.NoError(t, err)

	owner := seedUser(t, db, "owner", false)
	source := seedSource(t, db, owner, models.PermissionMeta)

	level, err := gate.Effective(context.Background(), nil, source)
	require.NoError(t, err)
	require.Equal(t, models.PermissionMeta, level)
}

func TestEffectiveOwnerAndAdminGetProv(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	gate, err := NewGate(db)
	require.NoError(t, err)

	owner := seedUser(t, db, "owner", false)
	admin := seedUser(t, db, "admin", true)
	source := seedSource(t, db, owner, models.PermissionNone)

	level, err := gate.Effective(context.Background(), owner, source)
	require.NoError(t, err)
	require.Equal(t, models.PermissionProv, level)

	level, err = gate.Effective(context.Background(), admin, source)
	require.NoError(t, err)
	require.Equal(t, models.PermissionProv, level)
}

func TestEffectiveGrantRaisesAbovePublic(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	gate, err := NewGate(db)
	require.NoError(t, err)

	owner := seedUser(t, db, "owner", false)
	reader := seedUser(t, db, "reader", false)
	source := seedSource(t, db, owner, models.PermissionView)

	require.NoError(t, db.Create(&models.PermissionGrant{
		UserID:   reader.ID,
		SourceID: source.ID,
		Granted:  models.PermissionData,
	}).Error)

	level, err := gate.Effective(context.Background(), reader, source)
	require.NoError(t, err)
	require.Equal(t, models.PermissionData, level)
}

func TestEffectiveGrantNeverLowersPublic(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	gate, err := NewGate(db)
	require.NoError(t, err)

	owner := seedUser(t, db, "owner", false)
	reader := seedUser(t, db, "reader", false)
	source := seedSource(t, db, owner, models.PermissionData)

	require.NoError(t, db.Create(&models.PermissionGrant{
		UserID:   reader.ID,
		SourceID: source.ID,
		Granted:  models.PermissionView,
	}).Error)

	level, err := gate.Effective(context.Background(), reader, source)
	require.NoError(t, err)
	require.Equal(t, models.PermissionData, level)
}

func TestEffectiveMissingGrantIsNone(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	gate, err := NewGate(db)
	require.NoError(t, err)

	owner := seedUser(t, db, "owner", false)
	stranger := seedUser(t, db, "stranger", false)
	source := seedSource(t, db, owner, models.PermissionNone)

	level, err := gate.Effective(context.Background(), stranger, source)
	require.NoError(t, err)
	require.Equal(t, models.PermissionNone, level)
}

func TestAllowsIsMonotone(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	gate, err := NewGate(db)
	require.NoError(t, err)

	owner := seedUser(t, db, "owner", false)
	reader := seedUser(t, db, "reader", false)
	source := seedSource(t, db, owner, models.PermissionNone)

	require.NoError(t, db.Create(&models.PermissionGrant{
		UserID:   reader.ID,
		SourceID: source.ID,
		Granted:  models.PermissionData,
	}).Error)

	for _, required := range []models.PermissionLevel{
		models.PermissionNone,
		models.PermissionView,
		models.PermissionMeta,
		models.PermissionData,
	} {
		allowed, err := gate.Allows(context.Background(), reader, source, required)
		require.NoError(t, err)
		require.True(t, allowed, required.String())
	}

	allowed, err := gate.Allows(context.Background(), reader, source, models.PermissionProv)
	require.NoError(t, err)
	require.False(t, allowed)
}

func TestCanManage(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	gate, err := NewGate(db)
	require.NoError(t, err)

	owner := seedUser(t, db, "owner", false)
	admin := seedUser(t, db, "admin", true)
	other := seedUser(t, db, "other", false)
	source := seedSource(t, db, owner, models.PermissionData)

	require.True(t, gate.CanManage(owner, source))
	require.True(t, gate.CanManage(admin, source))
	require.False(t, gate.CanManage(other, source))
	require.False(t, gate.CanManage(nil, source))
}
