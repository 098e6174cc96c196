package connectors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
)

// fileConnector serves the contents of a local file as one opaque payload.
type fileConnector struct {
	cfg Config
}

// NewFile constructs a connector reading a static file.
func NewFile(cfg Config) (Connector, error) {
	if cfg.Locator == "" {
		return nil, errors.New("connectors: file locator is required")
	}
	return &fileConnector{cfg: cfg}, nil
}

func (f *fileConnector) Locator() string { return f.cfg.Locator }

func (f *fileConnector) Capabilities() Capabilities { return Capabilities{} }

func (f *fileConnector) FetchData(ctx context.Context, params url.Values) (*Payload, error) {
	body, err := os.ReadFile(f.cfg.Locator)
	if err != nil {
		return nil, fmt.Errorf("connectors: read file: %w", err)
	}

	return &Payload{
		Body:        body,
		ContentType: http.DetectContentType(body),
		StatusCode:  http.StatusOK,
	}, nil
}

func (f *fileConnector) FetchMetadata(ctx context.Context, params url.Values) (*Payload, error) {
	return nil, unsupported("metadata")
}

func (f *fileConnector) ListDatasets(ctx context.Context, params url.Values) ([]string, error) {
	return nil, unsupported("datasets")
}

func (f *fileConnector) Descend(ctx context.Context, id string) (Connector, error) {
	return nil, unsupported("catalogue")
}
