package connectors

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// restConnector passes data requests straight through to a flat REST API.
// It provides no metadata and contains no datasets.
type restConnector struct {
	cfg Config
}

// NewRest constructs a passthrough connector for a REST endpoint.
func NewRest(cfg Config) (Connector, error) {
	if err := validateHTTPLocator(cfg.Locator); err != nil {
		return nil, err
	}
	return &restConnector{cfg: cfg}, nil
}

func (r *restConnector) Locator() string { return r.cfg.Locator }

func (r *restConnector) Capabilities() Capabilities { return Capabilities{} }

func (r *restConnector) FetchData(ctx context.Context, params url.Values) (*Payload, error) {
	return r.cfg.fetch(ctx, r.cfg.Locator, params)
}

func (r *restConnector) FetchMetadata(ctx context.Context, params url.Values) (*Payload, error) {
	return nil, unsupported("metadata")
}

func (r *restConnector) ListDatasets(ctx context.Context, params url.Values) ([]string, error) {
	return nil, unsupported("datasets")
}

func (r *restConnector) Descend(ctx context.Context, id string) (Connector, error) {
	return nil, unsupported("catalogue")
}

func validateHTTPLocator(locator string) error {
	u, err := url.Parse(locator)
	if err != nil {
		return fmt.Errorf("connectors: invalid locator %q: %w", locator, err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("connectors: locator %q is not an http(s) URL", locator)
	}
	return nil
}
