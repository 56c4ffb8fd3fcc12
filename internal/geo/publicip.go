package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"strings"
	"time"
)

// PublicIP looks up the host's own public IPv4 address. Used only outside production.
type PublicIP struct {
	client *http.Client
	url    string
}

// NewPublicIP creates a lookup against an ipify compatible endpoint.
func NewPublicIP(url string, timeout time.Duration) *PublicIP {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &PublicIP{
		client: &http.Client{Timeout: timeout},
		url:    url,
	}
}

// Lookup returns the public address. The endpoint may answer with {"ip": "..."} or plain text.
func (p *PublicIP) Lookup(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	value := strings.TrimSpace(string(body))
	var payload struct {
		IP string `json:"ip"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.IP != "" {
		value = payload.IP
	}

	addr, err := netip.ParseAddr(value)
	if err != nil || !addr.Is4() {
		return "", fmt.Errorf("not an IPv4 address: %q", value)
	}

	return addr.String(), nil
}
