package restrictions

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"testdrive/pkg/platform/sentinel"
)

// HTTPClient fetches the current restrictions snapshot from the external
// dealership service. It is the only writer-side of the cache.
type HTTPClient struct {
	url    string
	client *http.Client
}

// NewHTTPClient builds a client for the restrictions endpoint.
func NewHTTPClient(url string) *HTTPClient {
	return &HTTPClient{
		url: url,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// Fetch retrieves one snapshot. Any transport failure, non-200 status or
// empty body surfaces sentinel.ErrUnavailable so callers treat it as a
// transient infrastructure problem, never as "no restrictions".
func (c *HTTPClient) Fetch(ctx context.Context) (*Restrictions, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build restrictions request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch restrictions: %v", sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: restrictions service returned %d", sentinel.ErrUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read restrictions body: %v", sentinel.ErrUnavailable, err)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: restrictions service returned empty body", sentinel.ErrUnavailable)
	}

	var snapshot Restrictions
	if err := json.Unmarshal(body, &snapshot); err != nil {
		return nil, fmt.Errorf("%w: decode restrictions: %v", sentinel.ErrUnavailable, err)
	}
	return &snapshot, nil
}
