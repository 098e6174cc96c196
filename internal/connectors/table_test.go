package connectors

import (
	"context"
	"encoding/json"
	"net/url"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// tableFixture seeds an on-disk sqlite table whose first column is a SQL
// keyword, so filters only work when identifiers are quoted.
func tableFixture(t *testing.T) string {
	t.Helper()
	path := filepath.ToSlash(filepath.Join(t.TempDir(), "readings.db"))

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.Exec(`CREATE TABLE readings ("group" TEXT, value INTEGER)`).Error)
	require.NoError(t, db.Exec(`INSERT INTO readings ("group", value) VALUES ('air', 12), ('water', 7)`).Error)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	return "sqlite://" + path + "/readings"
}

func openTableConnector(t *testing.T, locator string) Connector {
	t.Helper()
	conn, err := NewTable(Config{Locator: locator})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.(*tableConnector).Close() })
	return conn
}

func TestTableFetchDataFiltersKeywordColumn(t *testing.T) {
	conn := openTableConnector(t, tableFixture(t))

	payload, err := conn.FetchData(context.Background(), url.Values{"group": {"air"}})
	require.NoError(t, err)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal(payload.Body, &rows))
	require.Len(t, rows, 1)
	require.EqualValues(t, "air", rows[0]["group"])
}

func TestTableFetchDataIgnoresUnknownFilterKeys(t *testing.T) {
	conn := openTableConnector(t, tableFixture(t))

	payload, err := conn.FetchData(context.Background(), url.Values{"no_such_column": {"x"}})
	require.NoError(t, err)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal(payload.Body, &rows))
	require.Len(t, rows, 2)
}

func TestTableFetchMetadataListsColumns(t *testing.T) {
	conn := openTableConnector(t, tableFixture(t))

	payload, err := conn.FetchMetadata(context.Background(), nil)
	require.NoError(t, err)

	var meta map[string][]string
	require.NoError(t, json.Unmarshal(payload.Body, &meta))
	require.ElementsMatch(t, []string{"group", "value"}, meta["columns"])
}
