// Package usgs fetches seismic events from the USGS earthquake summary feeds.
package usgs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/hazard-intel-service/internal/domain"
	"github.com/couchcryptid/hazard-intel-service/internal/observability"
)

const (
	defaultHourlyURL = "https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary/all_hour.geojson"
	defaultDailyURL  = "https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary/all_day.geojson"
)

// Config holds the client settings. Empty URLs keep the USGS defaults.
type Config struct {
	HourlyURL string
	DailyURL  string
	UserAgent string
	Timeout   time.Duration
}

// Client fetches the USGS GeoJSON summary feed and normalizes its features
// into canonical events.
type Client struct {
	httpClient *http.Client
	hourlyURL  string
	dailyURL   string
	userAgent  string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a USGS feed client.
func NewClient(cfg Config, metrics *observability.Metrics, logger *slog.Logger) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		hourlyURL:  cfg.HourlyURL,
		dailyURL:   cfg.DailyURL,
		userAgent:  cfg.UserAgent,
		metrics:    metrics,
		logger:     logger,
	}
	if c.hourlyURL == "" {
		c.hourlyURL = defaultHourlyURL
	}
	if c.dailyURL == "" {
		c.dailyURL = defaultDailyURL
	}
	return c
}

// Source identifies this adapter's feed.
func (c *Client) Source() domain.Source {
	return domain.SourceSeismic
}

// Fetch returns seismic events for the look-back window, newest first.
// A window of one hour or less uses the finer-grained hourly feed; anything
// longer uses the daily feed. The window selection is coarse: the daily feed
// is returned as-is, without a local cutoff re-filter, so the result is "at
// most the feed's native window".
func (c *Client) Fetch(ctx context.Context, hoursBack int) ([]domain.Event, error) {
	feedURL := c.dailyURL
	if hoursBack <= 1 {
		feedURL = c.hourlyURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("usgs fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("usgs feed: status %d", resp.StatusCode)
	}

	var fc featureCollection
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		return nil, fmt.Errorf("decode usgs feed: %w", err)
	}

	events := make([]domain.Event, 0, len(fc.Features))
	for _, f := range fc.Features {
		events = append(events, c.toEvent(f))
	}
	domain.SortNewestFirst(events)
	return events, nil
}

// toEvent normalizes one GeoJSON feature. The coordinate array is ordered
// (longitude, latitude, depth-km); a missing time degrades that one record
// to epoch zero rather than failing the batch.
func (c *Client) toEvent(f feature) domain.Event {
	e := domain.Event{
		Source:     domain.SourceSeismic,
		ObservedAt: time.UnixMilli(f.Properties.Time).UTC(),
		Magnitude:  f.Properties.Mag,
		Place:      f.Properties.Place,
		URL:        f.Properties.URL,
	}

	coords := f.Geometry.Coordinates
	if len(coords) >= 2 {
		e.Geo = &domain.Geo{Lat: coords[1], Lon: coords[0]}
	} else {
		c.metrics.ParseFallbacks.WithLabelValues(string(domain.SourceSeismic), "coordinates").Inc()
		c.logger.Warn("usgs feature without coordinates", "place", f.Properties.Place)
	}
	if len(coords) >= 3 {
		depth := coords[2]
		e.DepthKM = &depth
	}
	return e
}

// USGS GeoJSON feed types.

type featureCollection struct {
	Features []feature `json:"features"`
}

type feature struct {
	Properties struct {
		Mag   *float64 `json:"mag"`
		Place string   `json:"place"`
		Time  int64    `json:"time"` // epoch milliseconds; missing → 0
		URL   string   `json:"url"`
	} `json:"properties"`
	Geometry struct {
		Coordinates []float64 `json:"coordinates"` // [lon, lat, depth-km]
	} `json:"geometry"`
}
