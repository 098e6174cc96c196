package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/avencore/datahaven/internal/database/testutil"
	"github.com/avencore/datahaven/internal/models"
)

func TestAuditLogPersistsEntry(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewAuditService(db)
	require.NoError(t, err)

	actor := uint(7)
	require.NoError(t, svc.Log(context.Background(), AuditEntry{
		ResourceType: "source",
		ResourceID:   3,
		ActorID:      &actor,
		Action:       AuditActionDataAccess,
		Result:       "success",
		Metadata:     map[string]any{"query": "city=London"},
	}))

	var record models.AuditLog
	require.NoError(t, db.First(&record).Error)
	require.NotEmpty(t, record.ID)
	require.Equal(t, "source", record.ResourceType)
	require.EqualValues(t, 3, record.ResourceID)
	require.Equal(t, AuditActionDataAccess, record.Action)
	require.JSONEq(t, `{"query":"city=London"}`, string(record.Metadata))
}

func TestAuditLogRequiresActionAndResourceType(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewAuditService(db)
	require.NoError(t, err)

	require.Error(t, svc.Log(context.Background(), AuditEntry{ResourceType: "source"}))
	require.Error(t, svc.Log(context.Background(), AuditEntry{Action: AuditActionCreate}))
}

func TestAuditListFiltersAndPaginates(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewAuditService(db)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Log(context.Background(), AuditEntry{
			ResourceType: "source", ResourceID: 1,
			Action: AuditActionDataAccess, Result: "success",
		}))
	}
	require.NoError(t, svc.Log(context.Background(), AuditEntry{
		ResourceType: "source", ResourceID: 2,
		Action: AuditActionUpdate, Result: "success",
	}))

	records, total, err := svc.List(context.Background(), AuditListOptions{
		Filters: AuditFilters{ResourceType: "source", ResourceID: 1},
	})
	require.NoError(t, err)
	require.EqualValues(t, 3, total)
	require.Len(t, records, 3)

	records, total, err = svc.List(context.Background(), AuditListOptions{
		Page:     2,
		PageSize: 2,
		Filters:  AuditFilters{ResourceType: "source", ResourceID: 1},
	})
	require.NoError(t, err)
	require.EqualValues(t, 3, total)
	require.Len(t, records, 1)

	_, total, err = svc.List(context.Background(), AuditListOptions{
		Filters: AuditFilters{Action: AuditActionUpdate},
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
}

func TestAuditRecordIsFireAndForget(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewAuditService(db)
	require.NoError(t, err)

	svc.Record(AuditEntry{
		ResourceType: "source", ResourceID: 1,
		Action: AuditActionMetadataAccess, Result: "success",
	})

	require.Eventually(t, func() bool {
		var count int64
		return db.Model(&models.AuditLog{}).Count(&count).Error == nil && count == 1
	}, 2*time.Second, 10*time.Millisecond)
}
