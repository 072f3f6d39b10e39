// Package nominatim implements domain.Geocoder using the OpenStreetMap
// Nominatim search API.
package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/hazard-intel-service/internal/domain"
	"github.com/couchcryptid/hazard-intel-service/internal/observability"
)

const defaultBaseURL = "https://nominatim.openstreetmap.org"

// Config holds the client settings. Nominatim's usage policy requires an
// identifying User-Agent on every request.
type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// Client resolves free-text place queries against Nominatim.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Nominatim geocoding client.
func NewClient(cfg Config, metrics *observability.Metrics, logger *slog.Logger) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		userAgent:  cfg.UserAgent,
		metrics:    metrics,
		logger:     logger,
	}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	return c
}

// Geocode resolves a query to a single coordinate pair. It asks Nominatim
// for at most one candidate and never retries; zero candidates surface as
// domain.ErrNoResult.
func (c *Client) Geocode(ctx context.Context, query string) (domain.Geo, error) {
	params := url.Values{
		"q":      {query},
		"format": {"json"},
		"limit":  {"1"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		return domain.Geo{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		return domain.Geo{}, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		body, _ := io.ReadAll(resp.Body)
		return domain.Geo{}, fmt.Errorf("nominatim API error: status %d: %s", resp.StatusCode, body)
	}

	var results []result
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		return domain.Geo{}, fmt.Errorf("decode response: %w", err)
	}

	if len(results) == 0 {
		c.metrics.GeocodeRequests.WithLabelValues("no_result").Inc()
		return domain.Geo{}, domain.ErrNoResult
	}

	lat, errLat := strconv.ParseFloat(results[0].Lat, 64)
	lon, errLon := strconv.ParseFloat(results[0].Lon, 64)
	if errLat != nil || errLon != nil {
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		return domain.Geo{}, fmt.Errorf("nominatim result with unparsable coordinates: lat=%q lon=%q",
			results[0].Lat, results[0].Lon)
	}

	c.metrics.GeocodeRequests.WithLabelValues("success").Inc()
	return domain.Geo{Lat: lat, Lon: lon}, nil
}

// Nominatim API response types. Coordinates are returned as strings.

type result struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}
