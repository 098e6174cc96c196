package connectors

import (
	"context"
	"net/url"
)

// datasetConnector is a terminal node: one dataset reached directly or
// through a parent catalogue. Metadata is available only when it was
// captured from the parent's listing at descend time.
type datasetConnector struct {
	cfg Config
}

// NewDataset constructs a connector for a single dataset endpoint.
func NewDataset(cfg Config) (Connector, error) {
	if err := validateHTTPLocator(cfg.Locator); err != nil {
		return nil, err
	}
	return &datasetConnector{cfg: cfg}, nil
}

func (d *datasetConnector) Locator() string { return d.cfg.Locator }

func (d *datasetConnector) Capabilities() Capabilities {
	return Capabilities{Metadata: d.cfg.Metadata != nil}
}

func (d *datasetConnector) FetchData(ctx context.Context, params url.Values) (*Payload, error) {
	return d.cfg.fetch(ctx, d.cfg.Locator, params)
}

// FetchMetadata returns the metadata captured from the parent catalogue.
// params are ignored; the snapshot was fixed at descend time.
func (d *datasetConnector) FetchMetadata(ctx context.Context, params url.Values) (*Payload, error) {
	if d.cfg.Metadata == nil {
		return nil, unsupported("metadata")
	}
	return jsonPayload(d.cfg.Metadata)
}

func (d *datasetConnector) ListDatasets(ctx context.Context, params url.Values) ([]string, error) {
	return nil, unsupported("datasets")
}

func (d *datasetConnector) Descend(ctx context.Context, id string) (Connector, error) {
	return nil, unsupported("catalogue")
}
