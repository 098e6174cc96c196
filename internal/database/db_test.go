package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSQLiteDSNDefaultsToSharedMemory(t *testing.T) {
	dsn, err := sqliteDSN(Config{})
	require.NoError(t, err)
	require.Equal(t, "file::memory:?cache=shared&_foreign_keys=1", dsn)

	dsn, err = sqliteDSN(Config{Path: ":MEMORY:"})
	require.NoError(t, err)
	require.Equal(t, "file::memory:?cache=shared&_foreign_keys=1", dsn)
}

func TestSQLiteDSNCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "datahaven.db")

	dsn, err := sqliteDSN(Config{Path: path})
	require.NoError(t, err)
	require.Contains(t, dsn, "_foreign_keys=1")
	require.Contains(t, dsn, "_journal_mode=WAL")
	require.DirExists(t, filepath.Dir(path))
}

func TestSQLiteDSNOverrideWinsOverPath(t *testing.T) {
	dsn, err := sqliteDSN(Config{DSN: "file:custom.db?_foreign_keys=1", Path: "ignored.db"})
	require.NoError(t, err)
	require.Equal(t, "file:custom.db?_foreign_keys=1", dsn)
}

func TestMySQLDSNSortsOptions(t *testing.T) {
	dsn, err := mysqlDSN(Config{User: "haven", Password: "s3cret", Name: "datahaven"})
	require.NoError(t, err)
	require.Equal(t, "haven:s3cret@tcp(127.0.0.1:3306)/datahaven?charset=utf8mb4&loc=Local&parseTime=True", dsn)
}

func TestMySQLDSNRequiresUserAndName(t *testing.T) {
	_, err := mysqlDSN(Config{User: "haven"})
	require.Error(t, err)
}
