// Package geo resolves best-effort country and city data for client addresses.
package geo

import (
	"UTM-Backend/internal/domain"
	"UTM-Backend/internal/metrics"
	"UTM-Backend/pkg/clientip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const maxBodySize = 64 << 10

// Result is the geolocation of one address. A zero Result means nothing is known.
type Result struct {
	Full    domain.GeoData `json:"full"`
	Country *string        `json:"country"`
	City    *string        `json:"city"`
}

// Empty reports whether no field was resolved.
func (r Result) Empty() bool {
	return r.Full == nil && r.Country == nil && r.City == nil
}

// Cache stores successful lookups keyed by normalized address.
type Cache interface {
	Get(ctx context.Context, ip string) (Result, bool, error)
	Set(ctx context.Context, ip string, res Result) error
}

// Config holds provider settings.
type Config struct {
	ProviderURL    string
	UserAgent      string
	RequestTimeout time.Duration
}

// Resolver queries an ipapi.co compatible provider.
type Resolver struct {
	client    *http.Client
	baseURL   string
	userAgent string
	cache     Cache
	metrics   *metrics.Metrics
	log       *zap.Logger
}

// NewResolver creates a resolver. cache and m may be nil.
func NewResolver(cfg Config, cache Cache, m *metrics.Metrics, log *zap.Logger) *Resolver {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	return &Resolver{
		// the client timeout also reaps requests abandoned by an outer race
		client:    &http.Client{Timeout: timeout},
		baseURL:   strings.TrimRight(cfg.ProviderURL, "/"),
		userAgent: cfg.UserAgent,
		cache:     cache,
		metrics:   m,
		log:       log.With(zap.String("component", "geo")),
	}
}

// Normalize strips IPv6 brackets, a trailing port and the IPv4-mapped prefix.
func Normalize(ip string) string {
	return clientip.Normalize(ip)
}

// providerResponse carries the fields read from the payload, the rest stays in Full.
type providerResponse struct {
	Error           bool   `json:"error"`
	CountryCode     string `json:"country_code"`
	CountryCodeISO3 string `json:"country_code_iso3"`
	City            string `json:"city"`
}

// Lookup never fails: every error path yields an empty Result.
func (r *Resolver) Lookup(ctx context.Context, ip string) Result {
	clean := Normalize(ip)
	if clientip.IsPrivate(clean) {
		r.metrics.GeoLookup(metrics.OutcomeSkipped, 0)
		return Result{}
	}

	log := r.log.With(zap.String("ip", clean))

	if r.cache != nil {
		res, ok, err := r.cache.Get(ctx, clean)
		if err != nil {
			log.Warn("geolocation cache read failed", zap.Error(err))
		} else if ok {
			r.metrics.GeoLookup(metrics.OutcomeCached, 0)
			return res
		}
	}

	start := time.Now()
	res, err := r.fetch(ctx, clean)
	took := time.Since(start)
	if err != nil {
		log.Warn("geolocation lookup failed", zap.Duration("took", took), zap.Error(err))
		r.metrics.GeoLookup(metrics.OutcomeFailed, took)
		return Result{}
	}
	r.metrics.GeoLookup(metrics.OutcomeSuccess, took)

	if r.cache != nil {
		if err := r.cache.Set(ctx, clean, res); err != nil {
			log.Warn("geolocation cache write failed", zap.Error(err))
		}
	}

	return res
}

func (r *Resolver) fetch(ctx context.Context, ip string) (Result, error) {
	url := fmt.Sprintf("%s/%s/json/", r.baseURL, ip)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{}, fmt.Errorf("failed to build request: %w", err)
	}
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return Result{}, fmt.Errorf("failed to read response: %w", err)
	}

	var full map[string]any
	if err := json.Unmarshal(body, &full); err != nil {
		return Result{}, fmt.Errorf("failed to decode response: %w", err)
	}
	var data providerResponse
	if err := json.Unmarshal(body, &data); err != nil {
		// например error пришел строкой
		return Result{}, fmt.Errorf("unexpected response shape: %w", err)
	}
	if data.Error {
		return Result{}, fmt.Errorf("provider reported error: %v", full["reason"])
	}

	res := Result{Full: domain.GeoData(full)}

	switch {
	case data.CountryCode != "":
		res.Country = strPtr(strings.ToUpper(data.CountryCode))
	case len(data.CountryCodeISO3) >= 2:
		res.Country = strPtr(strings.ToUpper(data.CountryCodeISO3[:2]))
	}
	if data.City != "" {
		res.City = strPtr(data.City)
	}

	return res, nil
}

func strPtr(s string) *string {
	return &s
}
