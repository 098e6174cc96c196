package connectors

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
)

// csvConnector serves rows of a local CSV file as JSON records. The file
// must carry a header row; metadata is the list of column names and data
// requests filter rows by exact column value.
type csvConnector struct {
	cfg Config
}

// NewCSV constructs a connector reading a CSV file.
func NewCSV(cfg Config) (Connector, error) {
	if cfg.Locator == "" {
		return nil, errors.New("connectors: csv locator is required")
	}
	return &csvConnector{cfg: cfg}, nil
}

func (c *csvConnector) Locator() string { return c.cfg.Locator }

func (c *csvConnector) Capabilities() Capabilities {
	return Capabilities{Metadata: true}
}

func (c *csvConnector) FetchData(ctx context.Context, params url.Values) (*Payload, error) {
	header, records, err := c.read()
	if err != nil {
		return nil, err
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}

	rows := make([]map[string]string, 0, len(records))
	for _, record := range records {
		if !matchesFilters(record, index, params) {
			continue
		}
		row := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(record) {
				row[name] = record[i]
			}
		}
		rows = append(rows, row)
	}

	return jsonPayload(rows)
}

// FetchMetadata returns the CSV header as the column listing.
func (c *csvConnector) FetchMetadata(ctx context.Context, params url.Values) (*Payload, error) {
	header, _, err := c.read()
	if err != nil {
		return nil, err
	}
	return jsonPayload(header)
}

func (c *csvConnector) ListDatasets(ctx context.Context, params url.Values) ([]string, error) {
	return nil, unsupported("datasets")
}

func (c *csvConnector) Descend(ctx context.Context, id string) (Connector, error) {
	return nil, unsupported("catalogue")
}

func (c *csvConnector) read() ([]string, [][]string, error) {
	file, err := os.Open(c.cfg.Locator)
	if err != nil {
		return nil, nil, fmt.Errorf("connectors: open csv: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	all, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("connectors: parse csv: %w", err)
	}
	if len(all) == 0 {
		return nil, nil, errors.New("connectors: csv file has no header row")
	}

	return all[0], all[1:], nil
}

// matchesFilters keeps a record only when every filter column exists and
// matches exactly; a filter on a column absent from the data rejects all rows.
func matchesFilters(record []string, index map[string]int, params url.Values) bool {
	for key, values := range params {
		col, ok := index[key]
		if !ok || col >= len(record) {
			return false
		}
		matched := false
		for _, value := range values {
			if record[col] == value {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

func jsonPayload(v any) (*Payload, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("connectors: encode payload: %w", err)
	}
	return &Payload{
		Body:        body,
		ContentType: "application/json",
		StatusCode:  http.StatusOK,
	}, nil
}
