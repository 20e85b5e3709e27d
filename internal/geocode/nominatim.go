// Package geocode resolves free-text location names into coordinates
// using the OpenStreetMap Nominatim API.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nociq/nociq/internal/outage"
	"github.com/nociq/nociq/internal/pkg/metrics"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://nominatim.openstreetmap.org"
	defaultTimeout = 5 * time.Second

	// Fixed client identifier required by the Nominatim usage policy.
	userAgent = "nociq/1.0 (+https://github.com/nociq/nociq)"
)

// Config holds geocoding client configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client is a Nominatim geocoding client. Lookups are rate limited to
// one request per second per the public endpoint policy.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a new geocoding client.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(1), 1),
	}
}

type searchResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Lookup resolves a location name. Returns (nil, nil) when the location
// is unknown to the geocoder.
func (c *Client) Lookup(ctx context.Context, query string) (*outage.Coordinates, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.GeocodeLookups.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		metrics.GeocodeLookups.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var results []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		metrics.GeocodeLookups.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(results) == 0 {
		metrics.GeocodeLookups.WithLabelValues("miss").Inc()
		return nil, nil
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		metrics.GeocodeLookups.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("parse latitude %q: %w", results[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		metrics.GeocodeLookups.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("parse longitude %q: %w", results[0].Lon, err)
	}

	metrics.GeocodeLookups.WithLabelValues("hit").Inc()
	return &outage.Coordinates{Latitude: lat, Longitude: lon}, nil
}
