// Package firms fetches satellite fire detections from the NASA FIRMS
// active-fire CSV products.
package firms

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/hazard-intel-service/internal/domain"
	"github.com/couchcryptid/hazard-intel-service/internal/observability"
)

const defaultPrimaryURL = "https://firms.modaps.eosdis.nasa.gov/data/active_fire/viirs-nrt/viirs_global_24h.csv"

// defaultAlternateURLs are tried in order when the primary endpoint fails or
// parses to zero rows. The MODIS product names its brightness column
// differently, which the column mapping below absorbs.
var defaultAlternateURLs = []string{
	"https://firms.modaps.eosdis.nasa.gov/data/active_fire/suomi-npp-viirs-c2/csv/SUOMI_VIIRS_C2_Global_24h.csv",
	"https://firms.modaps.eosdis.nasa.gov/data/active_fire/modis-c6.1/csv/MODIS_C6_1_Global_24h.csv",
}

// brightnessColumns maps source-native brightness column names to the
// canonical attribute, in lookup order. Validated against the CSV header so
// a silent upstream schema change surfaces as a parse failure instead of
// propagating empty fields.
var brightnessColumns = []string{"bright_ti4", "brightness"}

// requiredColumns must all be present in a product's header.
var requiredColumns = []string{"latitude", "longitude", "acq_date", "acq_time", "confidence"}

// acqTimeLayout combines acq_date with the zero-padded acq_time field.
const acqTimeLayout = "2006-01-02 1504"

// Config holds the client settings. Empty fields keep the FIRMS defaults.
type Config struct {
	PrimaryURL    string
	AlternateURLs []string
	UserAgent     string
	Timeout       time.Duration
}

// Client fetches a FIRMS CSV product, falling back through a fixed list of
// alternate endpoints, and normalizes rows into canonical events.
type Client struct {
	httpClient   *http.Client
	endpointURLs []string
	userAgent    string
	clock        clockwork.Clock
	metrics      *observability.Metrics
	logger       *slog.Logger
}

// NewClient creates a FIRMS feed client.
func NewClient(cfg Config, clk clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) *Client {
	primary := cfg.PrimaryURL
	if primary == "" {
		primary = defaultPrimaryURL
	}
	alternates := cfg.AlternateURLs
	if len(alternates) == 0 {
		alternates = defaultAlternateURLs
	}

	return &Client{
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		endpointURLs: append([]string{primary}, alternates...),
		userAgent:    cfg.UserAgent,
		clock:        clk,
		metrics:      metrics,
		logger:       logger,
	}
}

// Source identifies this adapter's feed.
func (c *Client) Source() domain.Source {
	return domain.SourceFireDetection
}

// Fetch returns fire detections within the look-back window, newest first.
// The primary endpoint is attempted first; on any failure (network, status,
// or parse) or an empty product, the alternates are tried in their fixed
// order with no delay, and the first successful non-empty parse wins. When
// every endpoint fails the result is an explicitly empty set with no error —
// fire detections degrade rather than fail the overall query.
func (c *Client) Fetch(ctx context.Context, hoursBack int) ([]domain.Event, error) {
	cutoff := c.clock.Now().UTC().Add(-time.Duration(hoursBack) * time.Hour)

	for i, endpoint := range c.endpointURLs {
		if i > 0 {
			c.metrics.EndpointFallbacks.Inc()
		}

		rows, events, err := c.fetchFrom(ctx, endpoint, cutoff)
		if err != nil {
			if ctx.Err() != nil {
				return []domain.Event{}, nil
			}
			c.logger.Warn("firms endpoint failed, trying next", "url", endpoint, "error", err)
			continue
		}
		if rows == 0 {
			c.logger.Warn("firms endpoint returned no rows, trying next", "url", endpoint)
			continue
		}

		domain.SortNewestFirst(events)
		return events, nil
	}

	c.logger.Warn("all firms endpoints failed, returning empty result")
	return []domain.Event{}, nil
}

// fetchFrom downloads and parses one endpoint. It returns the raw row count
// alongside the cutoff-filtered events so the caller can distinguish "empty
// product" from "nothing recent".
func (c *Client) fetchFrom(ctx context.Context, endpoint string, cutoff time.Time) (int, []domain.Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("firms fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, nil, fmt.Errorf("firms feed: status %d", resp.StatusCode)
	}

	reader := csv.NewReader(resp.Body)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return 0, nil, fmt.Errorf("parse firms csv: %w", err)
	}
	if len(records) == 0 {
		return 0, nil, nil
	}

	cols, err := mapColumns(records[0])
	if err != nil {
		return 0, nil, err
	}

	rows := records[1:]
	events := make([]domain.Event, 0, len(rows))
	for _, row := range rows {
		e, ok := c.toEvent(row, cols)
		if !ok {
			// Unusable timestamp: the row is excluded from the cutoff
			// filter entirely, never silently included.
			continue
		}
		if e.ObservedAt.Before(cutoff) {
			continue
		}
		events = append(events, e)
	}
	return len(rows), events, nil
}

// toEvent normalizes one CSV row. The second return is false when the
// date/time combination cannot be parsed.
func (c *Client) toEvent(row []string, cols columnIndex) (domain.Event, bool) {
	observed, err := parseAcqTime(field(row, cols.date), field(row, cols.time))
	if err != nil {
		c.metrics.ParseFallbacks.WithLabelValues(string(domain.SourceFireDetection), "row_timestamp").Inc()
		return domain.Event{}, false
	}

	e := domain.Event{
		Source:     domain.SourceFireDetection,
		ObservedAt: observed,
		Confidence: field(row, cols.confidence),
	}

	lat, errLat := strconv.ParseFloat(field(row, cols.lat), 64)
	lon, errLon := strconv.ParseFloat(field(row, cols.lon), 64)
	if errLat == nil && errLon == nil {
		e.Geo = &domain.Geo{Lat: lat, Lon: lon}
	} else {
		c.metrics.ParseFallbacks.WithLabelValues(string(domain.SourceFireDetection), "coordinates").Inc()
	}

	if b, err := strconv.ParseFloat(field(row, cols.brightness), 64); err == nil {
		e.Brightness = &b
	}
	return e, true
}

// parseAcqTime combines acq_date with acq_time, zero-padding the HHMM value
// ("934" → "0934") before parsing as one UTC instant.
func parseAcqTime(date, hhmm string) (time.Time, error) {
	hhmm = strings.TrimSpace(hhmm)
	for len(hhmm) < 4 {
		hhmm = "0" + hhmm
	}
	return time.Parse(acqTimeLayout, strings.TrimSpace(date)+" "+hhmm)
}

// columnIndex locates each canonical attribute in a product's header.
type columnIndex struct {
	lat, lon, date, time, brightness, confidence int
}

// mapColumns validates the header against the expected schema and resolves
// the per-product brightness column name.
func mapColumns(header []string) (columnIndex, error) {
	byName := make(map[string]int, len(header))
	for i, name := range header {
		byName[strings.TrimSpace(strings.ToLower(name))] = i
	}

	for _, name := range requiredColumns {
		if _, ok := byName[name]; !ok {
			return columnIndex{}, fmt.Errorf("firms csv missing column %q", name)
		}
	}

	brightness := -1
	for _, name := range brightnessColumns {
		if i, ok := byName[name]; ok {
			brightness = i
			break
		}
	}
	if brightness < 0 {
		return columnIndex{}, fmt.Errorf("firms csv missing brightness column (tried %s)",
			strings.Join(brightnessColumns, ", "))
	}

	return columnIndex{
		lat:        byName["latitude"],
		lon:        byName["longitude"],
		date:       byName["acq_date"],
		time:       byName["acq_time"],
		brightness: brightness,
		confidence: byName["confidence"],
	}, nil
}

func field(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
