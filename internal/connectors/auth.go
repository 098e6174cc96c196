package connectors

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// AuthMethod identifies the authentication scheme an upstream source
// accepts. The integer values are stable wire values persisted on source
// descriptors; the zero value means the scheme has not been negotiated yet.
type AuthMethod int

const (
	// AuthNone means the source needs no credentials.
	AuthNone AuthMethod = -1
	// AuthUnknown means negotiation has not happened or was inconclusive.
	AuthUnknown AuthMethod = 0
	// AuthBasic sends the API key as an HTTP basic-auth username with an
	// empty password.
	AuthBasic AuthMethod = 1
	// AuthHeader sends the API key verbatim in the Authorization header.
	AuthHeader AuthMethod = 2
)

func (m AuthMethod) String() string {
	switch m {
	case AuthNone:
		return "NONE"
	case AuthUnknown:
		return "UNKNOWN"
	case AuthBasic:
		return "BASIC"
	case AuthHeader:
		return "HEADER"
	}
	return fmt.Sprintf("AuthMethod(%d)", int(m))
}

// DefaultProbeTimeout bounds each negotiation probe request.
const DefaultProbeTimeout = 10 * time.Second

// Negotiator determines which authentication scheme an upstream accepts by
// probing it with each candidate in order. Results are cached on the source
// descriptor by the caller and are not re-probed on every use; recomputation
// happens only when the caller explicitly requests renegotiation.
type Negotiator struct {
	Client  *http.Client
	Timeout time.Duration
}

// Negotiate probes locator with the API key under BASIC then HEADER
// authentication and returns the first accepted scheme. With no key the
// answer is immediately AuthNone. When every scheme is rejected it returns
// AuthUnknown with ErrAuthUndetermined, leaving any cached value untouched.
func (n *Negotiator) Negotiate(ctx context.Context, locator, apiKey string) (AuthMethod, error) {
	if apiKey == "" {
		return AuthNone, nil
	}

	for _, method := range []AuthMethod{AuthBasic, AuthHeader} {
		ok, err := n.probe(ctx, locator, apiKey, method)
		if err != nil {
			return AuthUnknown, err
		}
		if ok {
			return method, nil
		}
	}

	return AuthUnknown, ErrAuthUndetermined
}

// probe issues a lightweight request under the candidate scheme. HEAD is
// tried first; upstreams that reject the method itself get a minimal GET.
func (n *Negotiator) probe(ctx context.Context, locator, apiKey string, method AuthMethod) (bool, error) {
	accepted, status, err := n.request(ctx, http.MethodHead, locator, apiKey, method)
	if err != nil {
		return false, err
	}
	if status == http.StatusMethodNotAllowed || status == http.StatusNotImplemented {
		accepted, _, err = n.request(ctx, http.MethodGet, locator, apiKey, method)
		if err != nil {
			return false, err
		}
	}
	return accepted, nil
}

func (n *Negotiator) request(ctx context.Context, httpMethod, locator, apiKey string, method AuthMethod) (bool, int, error) {
	timeout := n.Timeout
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, httpMethod, locator, nil)
	if err != nil {
		return false, 0, fmt.Errorf("connectors: build probe request: %w", err)
	}

	cfg := Config{APIKey: apiKey, Auth: method}
	cfg.applyAuth(req)

	client := n.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return false, 0, &UpstreamError{Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode >= 200 && resp.StatusCode <= 299, resp.StatusCode, nil
}
