package connectors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrPluginUnset signals a source descriptor with no plugin name.
	// Distinct from ErrPluginNotFound because the remediation differs.
	ErrPluginUnset = errors.New("connectors: plugin is not set")

	// ErrPluginNotFound signals a plugin name with no registered factory.
	ErrPluginNotFound = errors.New("connectors: plugin not found")

	// ErrCapabilityUnsupported signals that a connector does not provide
	// an optional operation. Recoverable by the caller; mapped to 400 at
	// the API boundary.
	ErrCapabilityUnsupported = errors.New("connectors: capability not supported")

	// ErrAuthUndetermined signals that negotiation exhausted every
	// authentication scheme without the upstream accepting one.
	ErrAuthUndetermined = errors.New("connectors: could not determine authentication method")

	// ErrDatasetNotFound signals a descend identifier matching no item in
	// the catalogue listing.
	ErrDatasetNotFound = errors.New("connectors: dataset not found")

	// ErrAmbiguousItem signals a descend identifier matching more than one
	// item. An upstream data-integrity problem; never silently resolved.
	ErrAmbiguousItem = errors.New("connectors: multiple items match identifier")
)

// UpstreamError reports an upstream call that returned a non-success status
// or failed at the transport layer.
type UpstreamError struct {
	StatusCode int
	Body       []byte
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("connectors: upstream request failed: %v", e.Err)
	}
	return fmt.Sprintf("connectors: upstream returned status %d", e.StatusCode)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the status to report to API callers. The upstream
// status passes through untouched, except that transport failures and a
// claimed 200 (passthrough must not report an error as success) map to 424.
func (e *UpstreamError) HTTPStatus() int {
	if e.StatusCode == 0 || e.StatusCode == http.StatusOK {
		return http.StatusFailedDependency
	}
	return e.StatusCode
}
