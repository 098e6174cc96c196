package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func catalogueFixture(datasetURL, nestedURL string) string {
	return fmt.Sprintf(`{
		"catalogue-metadata": [
			{"rel": "urn:X-hypercat:rels:isContentType", "val": "application/vnd.hypercat.catalogue+json"},
			{"rel": "urn:X-hypercat:rels:hasDescription:en", "val": "test catalogue"}
		],
		"items": [
			{
				"href": %q,
				"item-metadata": [
					{"rel": "urn:X-hypercat:rels:hasDescription:en", "val": "sensor readings"}
				]
			},
			{
				"href": %q,
				"item-metadata": [
					{"rel": "urn:X-hypercat:rels:isContentType", "val": "application/vnd.hypercat.catalogue+json"}
				]
			}
		]
	}`, datasetURL, nestedURL)
}

func newCatalogueServer(t *testing.T, hits *atomic.Int64) (*httptest.Server, string, string) {
	t.Helper()

	datasetURL := "http://upstream.example/readings"
	nestedURL := "http://upstream.example/sub"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		w.Header().Set("Content-Type", "application/vnd.hypercat.catalogue+json")
		_, _ = w.Write([]byte(catalogueFixture(datasetURL, nestedURL)))
	}))
	t.Cleanup(server.Close)

	return server, datasetURL, nestedURL
}

func TestCatalogueListDatasets(t *testing.T) {
	server, datasetURL, nestedURL := newCatalogueServer(t, nil)

	conn, err := NewCatalogue(Config{Locator: server.URL, HTTPClient: server.Client()})
	require.NoError(t, err)

	datasets, err := conn.ListDatasets(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, []string{datasetURL, nestedURL}, datasets)
}

func TestCatalogueFetchMetadata(t *testing.T) {
	server, _, _ := newCatalogueServer(t, nil)

	conn, err := NewCatalogue(Config{Locator: server.URL, HTTPClient: server.Client()})
	require.NoError(t, err)

	payload, err := conn.FetchMetadata(context.Background(), nil)
	require.NoError(t, err)

	var relations []map[string]any
	require.NoError(t, json.Unmarshal(payload.Body, &relations))
	require.Len(t, relations, 2)
}

func TestCatalogueDataUnsupported(t *testing.T) {
	server, _, _ := newCatalogueServer(t, nil)

	conn, err := NewCatalogue(Config{Locator: server.URL, HTTPClient: server.Client()})
	require.NoError(t, err)

	_, err = conn.FetchData(context.Background(), nil)
	require.ErrorIs(t, err, ErrCapabilityUnsupported)
}

func TestCatalogueDescendToDataset(t *testing.T) {
	server, datasetURL, _ := newCatalogueServer(t, nil)

	conn, err := NewCatalogue(Config{Locator: server.URL, HTTPClient: server.Client()})
	require.NoError(t, err)

	child, err := conn.Descend(context.Background(), datasetURL)
	require.NoError(t, err)
	require.Equal(t, datasetURL, child.Locator())

	// The dataset inherits its metadata from the parent listing.
	require.True(t, child.Capabilities().Metadata)
	require.False(t, child.Capabilities().Catalogue)

	payload, err := child.FetchMetadata(context.Background(), nil)
	require.NoError(t, err)

	var relations []map[string]any
	require.NoError(t, json.Unmarshal(payload.Body, &relations))
	require.Len(t, relations, 1)
}

func TestCatalogueDescendToNestedCatalogue(t *testing.T) {
	server, _, nestedURL := newCatalogueServer(t, nil)

	conn, err := NewCatalogue(Config{Locator: server.URL, HTTPClient: server.Client()})
	require.NoError(t, err)

	child, err := conn.Descend(context.Background(), nestedURL)
	require.NoError(t, err)
	require.True(t, child.Capabilities().Catalogue)
}

func TestCatalogueDescendNotFound(t *testing.T) {
	server, _, _ := newCatalogueServer(t, nil)

	conn, err := NewCatalogue(Config{Locator: server.URL, HTTPClient: server.Client()})
	require.NoError(t, err)

	_, err = conn.Descend(context.Background(), "http://upstream.example/missing")
	require.ErrorIs(t, err, ErrDatasetNotFound)
}

func TestCatalogueDescendAmbiguous(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"catalogue-metadata": [],
			"items": [
				{"href": "http://upstream.example/dup", "item-metadata": []},
				{"href": "http://upstream.example/dup", "item-metadata": []}
			]
		}`))
	}))
	defer server.Close()

	conn, err := NewCatalogue(Config{Locator: server.URL, HTTPClient: server.Client()})
	require.NoError(t, err)

	_, err = conn.Descend(context.Background(), "http://upstream.example/dup")
	require.ErrorIs(t, err, ErrAmbiguousItem)
}

func TestCatalogueScopeFetchesOnce(t *testing.T) {
	var hits atomic.Int64
	server, datasetURL, nestedURL := newCatalogueServer(t, &hits)

	conn, err := NewCatalogue(Config{Locator: server.URL, HTTPClient: server.Client()})
	require.NoError(t, err)

	cat := conn.(*Catalogue)
	scope, err := cat.Open(context.Background())
	require.NoError(t, err)

	require.Equal(t, []string{datasetURL, nestedURL}, scope.Datasets())

	_, err = scope.Metadata()
	require.NoError(t, err)

	child, err := scope.Descend(datasetURL)
	require.NoError(t, err)
	require.Equal(t, datasetURL, child.Locator())

	entries := scope.Entries()
	require.Len(t, entries, 2)
	require.Equal(t, datasetURL, entries[0].ID)

	opened, err := entries[0].Open()
	require.NoError(t, err)
	require.Equal(t, datasetURL, opened.Locator())

	// Every navigation above ran against the single snapshot fetch.
	require.Equal(t, int64(1), hits.Load())
}

func TestCatalogueDescendPropagatesRecorder(t *testing.T) {
	recorder := &UsageRecorder{}
	server, datasetURL, _ := newCatalogueServer(t, nil)

	conn, err := NewCatalogue(Config{Locator: server.URL, HTTPClient: server.Client(), Usage: recorder})
	require.NoError(t, err)

	_, err = conn.Descend(context.Background(), datasetURL)
	require.NoError(t, err)

	// The descend listing fetch itself is an upstream call.
	require.Equal(t, int64(1), recorder.Count())
}
