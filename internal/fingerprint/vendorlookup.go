package fingerprint

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultLookupBaseURL = "https://api.macvendors.com"
	defaultLookupTimeout = 3 * time.Second
	maxVendorBodyBytes   = 512
)

// HTTPVendorLookup resolves MAC vendors via a public OUI database over
// HTTP. It is intentionally best-effort: offline or rate-limited
// environments simply fall back to "unknown vendor".
type HTTPVendorLookup struct {
	baseURL string
	client  *http.Client
}

// NewHTTPVendorLookup creates a lookup client. An empty baseURL selects
// the public macvendors.com API.
func NewHTTPVendorLookup(baseURL string) *HTTPVendorLookup {
	if baseURL == "" {
		baseURL = defaultLookupBaseURL
	}
	return &HTTPVendorLookup{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: defaultLookupTimeout},
	}
}

// Lookup implements VendorLookup.
func (l *HTTPVendorLookup) Lookup(mac string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultLookupTimeout)
	defer cancel()

	url := l.baseURL + "/" + NormalizeMAC(mac)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return "", err
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("vendor lookup returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxVendorBodyBytes))
	if err != nil {
		return "", err
	}

	vendor := strings.TrimSpace(string(body))
	if vendor == "" {
		return "", fmt.Errorf("vendor lookup returned empty response")
	}
	return vendor, nil
}
