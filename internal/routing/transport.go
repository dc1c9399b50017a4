package routing

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"otb/internal/services"
)

const maxResponseBytes = 16 << 20

// Transport exchanges one opaque request for one opaque response.
type Transport interface {
	RoundTrip(ctx context.Context, request string) (string, error)
}

// HTTPDoer describes the HTTP client used by the HTTP transport.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type httpTransport struct {
	endpoint string
	client   HTTPDoer
}

// NewHTTPTransport returns a Transport that POSTs each request body to the
// endpoint of a Valhalla-compatible routing service.
func NewHTTPTransport(endpoint string, timeout time.Duration) Transport {
	return NewHTTPTransportWithClient(endpoint, &http.Client{Timeout: timeout})
}

// NewHTTPTransportWithClient is NewHTTPTransport with a caller-supplied client.
func NewHTTPTransportWithClient(endpoint string, client HTTPDoer) Transport {
	if client == nil {
		client = http.DefaultClient
	}
	return &httpTransport{endpoint: strings.TrimSpace(endpoint), client: client}
}

func (t *httpTransport) RoundTrip(ctx context.Context, request string) (string, error) {
	if t.endpoint == "" {
		return "", services.Wrap(services.ErrConfiguration, "routing", "round trip", "routing url is empty", nil)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, strings.NewReader(request))
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, "routing", "build request", t.endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrExternalService, "routing", "round trip", t.endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", services.Wrap(services.ErrIO, "routing", "read response", t.endpoint, err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		msg := fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		return "", services.Wrap(services.ErrExternalService, "routing", "round trip", msg, nil)
	}
	return string(body), nil
}
