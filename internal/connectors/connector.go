package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Connector is the capability contract every data-source plugin implements.
// FetchData is mandatory; the remaining operations are optional capabilities
// whose absence surfaces as ErrCapabilityUnsupported, never a generic crash,
// and is additionally queryable through Capabilities.
type Connector interface {
	// Locator returns the upstream address this connector is bound to.
	Locator() string

	// Capabilities reports which optional operations this connector supports.
	Capabilities() Capabilities

	// FetchData transparently returns the source's data. params is passed
	// through verbatim to the upstream query string.
	FetchData(ctx context.Context, params url.Values) (*Payload, error)

	// FetchMetadata returns the source's metadata. Capability: Metadata.
	FetchMetadata(ctx context.Context, params url.Values) (*Payload, error)

	// ListDatasets returns the identifiers of datasets contained in this
	// source. Capability: Datasets.
	ListDatasets(ctx context.Context, params url.Values) ([]string, error)

	// Descend returns a new connector scoped to the child dataset or
	// sub-catalogue identified by id. Capability: Catalogue.
	Descend(ctx context.Context, id string) (Connector, error)
}

// Capabilities lists the optional operations a connector supports. The flags
// are fixed at construction time.
type Capabilities struct {
	Metadata bool `json:"metadata"`
	Datasets bool `json:"datasets"`
	// Catalogue marks sources containing child datasets navigable by
	// opaque identifier.
	Catalogue bool `json:"catalogue"`
}

// Payload is a response obtained from an upstream source, passed through to
// callers without interpretation.
type Payload struct {
	Body        []byte
	ContentType string
	StatusCode  int
}

// IsJSON reports whether the payload declares a JSON content type.
func (p *Payload) IsJSON() bool {
	return p != nil && strings.Contains(p.ContentType, "json")
}

// JSON decodes the payload body into v.
func (p *Payload) JSON(v any) error {
	if p == nil {
		return fmt.Errorf("connectors: nil payload")
	}
	return json.Unmarshal(p.Body, v)
}

// Config carries everything a factory needs to construct a connector.
type Config struct {
	Locator string
	APIKey  string
	Auth    AuthMethod

	// Settings holds plugin-specific options from the source descriptor.
	Settings json.RawMessage

	// Metadata carries metadata captured from a parent catalogue listing,
	// for connectors resolved through Descend.
	Metadata json.RawMessage

	// HTTPClient overrides the client used for upstream calls.
	HTTPClient *http.Client

	// Usage receives one Record call per upstream request attempted.
	Usage *UsageRecorder
}

// Factory constructs a connector instance from its configuration.
type Factory func(cfg Config) (Connector, error)

func (c *Config) client() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Config) record() {
	c.Usage.Record()
}

// applyAuth decorates an upstream request with the configured scheme.
func (c *Config) applyAuth(req *http.Request) {
	switch c.Auth {
	case AuthBasic:
		req.SetBasicAuth(c.APIKey, "")
	case AuthHeader:
		req.Header.Set("Authorization", c.APIKey)
	}
}

// fetch issues an authenticated GET against rawURL, merging params into the
// query string verbatim. Every attempt counts toward usage accounting, even
// when the call times out or fails.
func (c *Config) fetch(ctx context.Context, rawURL string, params url.Values) (*Payload, error) {
	target, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("connectors: parse locator: %w", err)
	}

	if len(params) > 0 {
		query := target.Query()
		for key, values := range params {
			for _, value := range values {
				query.Add(key, value)
			}
		}
		target.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("connectors: build request: %w", err)
	}
	c.applyAuth(req)

	c.record()

	resp, err := c.client().Do(req)
	if err != nil {
		return nil, &UpstreamError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: body}
	}

	return &Payload{
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
	}, nil
}

// unsupported returns the typed condition for a missing capability.
func unsupported(capability string) error {
	return fmt.Errorf("%w: %s", ErrCapabilityUnsupported, capability)
}
