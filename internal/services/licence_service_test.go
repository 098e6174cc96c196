package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/avencore/datahaven/internal/database/testutil"
	"github.com/avencore/datahaven/internal/models"
)

func TestLicenceCreateAndList(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewLicenceService(db)
	require.NoError(t, err)

	owner := &models.User{Username: "owner", Email: "owner@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(owner).Error)

	_, err = svc.Create(context.Background(), CreateLicenceInput{
		Name: "Open Government Licence", ShortName: "OGL", Version: "3.0",
		URL: "https://www.nationalarchives.gov.uk/doc/open-government-licence/version/3/", OwnerID: owner.ID,
	})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), CreateLicenceInput{
		Name: "Open Government Licence", ShortName: "OGL", Version: "2.0", OwnerID: owner.ID,
	})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateLicenceInput{Version: "1.0", OwnerID: owner.ID})
	require.Error(t, err)
	_, err = svc.Create(context.Background(), CreateLicenceInput{Name: "x", OwnerID: owner.ID})
	require.Error(t, err)

	licences, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, licences, 2)
	require.Equal(t, "2.0", licences[0].Version)
}

func TestLicenceDeleteUnlinksSources(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewLicenceService(db)
	require.NoError(t, err)

	owner := &models.User{Username: "owner", Email: "owner@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(owner).Error)

	licence, err := svc.Create(context.Background(), CreateLicenceInput{
		Name: "OGL", Version: "3.0", OwnerID: owner.ID,
	})
	require.NoError(t, err)

	source := &models.Source{
		Name: "licensed", Locator: "http://example.com", PluginName: "rest",
		OwnerID: owner.ID, LicenceID: &licence.ID,
	}
	require.NoError(t, db.Create(source).Error)

	require.NoError(t, svc.Delete(context.Background(), licence.ID))
	require.ErrorIs(t, svc.Delete(context.Background(), licence.ID), ErrLicenceNotFound)

	var reloaded models.Source
	require.NoError(t, db.First(&reloaded, source.ID).Error)
	require.Nil(t, reloaded.LicenceID)
}
