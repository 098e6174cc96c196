package connectors

import (
	"context"
	"encoding/json"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeCSVFixture(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "readings.csv")
	content := "city,year,value\nLondon,2020,10\nParis,2020,20\nLondon,2021,30\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCSVFetchMetadataReturnsHeader(t *testing.T) {
	conn, err := NewCSV(Config{Locator: writeCSVFixture(t)})
	require.NoError(t, err)

	payload, err := conn.FetchMetadata(context.Background(), nil)
	require.NoError(t, err)

	var header []string
	require.NoError(t, json.Unmarshal(payload.Body, &header))
	require.Equal(t, []string{"city", "year", "value"}, header)
}

func TestCSVFetchDataUnfiltered(t *testing.T) {
	conn, err := NewCSV(Config{Locator: writeCSVFixture(t)})
	require.NoError(t, err)

	payload, err := conn.FetchData(context.Background(), nil)
	require.NoError(t, err)

	var rows []map[string]string
	require.NoError(t, json.Unmarshal(payload.Body, &rows))
	require.Len(t, rows, 3)
	require.Equal(t, "London", rows[0]["city"])
}

func TestCSVFetchDataFiltered(t *testing.T) {
	conn, err := NewCSV(Config{Locator: writeCSVFixture(t)})
	require.NoError(t, err)

	payload, err := conn.FetchData(context.Background(), url.Values{"city": {"London"}})
	require.NoError(t, err)

	var rows []map[string]string
	require.NoError(t, json.Unmarshal(payload.Body, &rows))
	require.Len(t, rows, 2)
	for _, row := range rows {
		require.Equal(t, "London", row["city"])
	}
}

func TestCSVMultiValueFilterIsUnion(t *testing.T) {
	conn, err := NewCSV(Config{Locator: writeCSVFixture(t)})
	require.NoError(t, err)

	payload, err := conn.FetchData(context.Background(), url.Values{"year": {"2020", "2021"}})
	require.NoError(t, err)

	var rows []map[string]string
	require.NoError(t, json.Unmarshal(payload.Body, &rows))
	require.Len(t, rows, 3)
}

func TestCSVFilterOnUnknownColumnMatchesNothing(t *testing.T) {
	conn, err := NewCSV(Config{Locator: writeCSVFixture(t)})
	require.NoError(t, err)

	payload, err := conn.FetchData(context.Background(), url.Values{"country": {"UK"}})
	require.NoError(t, err)

	var rows []map[string]string
	require.NoError(t, json.Unmarshal(payload.Body, &rows))
	require.Empty(t, rows)
}

func TestCSVMissingFile(t *testing.T) {
	conn, err := NewCSV(Config{Locator: filepath.Join(t.TempDir(), "absent.csv")})
	require.NoError(t, err)

	_, err = conn.FetchData(context.Background(), nil)
	require.Error(t, err)
}
