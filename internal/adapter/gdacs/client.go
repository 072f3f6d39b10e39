// Package gdacs fetches multi-hazard alert bulletins from the GDACS RSS feed.
package gdacs

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/hazard-intel-service/internal/domain"
	"github.com/couchcryptid/hazard-intel-service/internal/observability"
)

const defaultFeedURL = "https://www.gdacs.org/xml/rss.xml"

// publishTimeLayouts are tried in order against dc:date / pubDate values.
// GDACS mixes ISO 8601 (with and without offset) and RFC 1123 encodings.
var publishTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	time.RFC1123Z,
	time.RFC1123,
}

// Config holds the client settings. An empty URL keeps the GDACS default.
type Config struct {
	URL       string
	UserAgent string
	Timeout   time.Duration
}

// Client fetches the GDACS RSS feed and normalizes its items into canonical
// events. The feed has no server-side time filter, so the look-back cutoff is
// applied locally.
type Client struct {
	httpClient *http.Client
	feedURL    string
	userAgent  string
	clock      clockwork.Clock
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a GDACS feed client. The clock supplies "now" for the
// cutoff computation so tests can freeze it.
func NewClient(cfg Config, clk clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		feedURL:    cfg.URL,
		userAgent:  cfg.UserAgent,
		clock:      clk,
		metrics:    metrics,
		logger:     logger,
	}
	if c.feedURL == "" {
		c.feedURL = defaultFeedURL
	}
	return c
}

// Source identifies this adapter's feed.
func (c *Client) Source() domain.Source {
	return domain.SourceMultiHazard
}

// Fetch returns multi-hazard bulletins published within the look-back window,
// newest first. Items exactly at the cutoff are retained; anything strictly
// older is excluded. An item whose publish time cannot be parsed keeps "now"
// as its timestamp, so it survives the cutoff; the substitution is logged and
// counted rather than silently dropping the item into the past.
func (c *Client) Fetch(ctx context.Context, hoursBack int) ([]domain.Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gdacs fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gdacs feed: status %d", resp.StatusCode)
	}

	var doc rss
	if err := xml.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode gdacs feed: %w", err)
	}

	now := c.clock.Now().UTC()
	cutoff := now.Add(-time.Duration(hoursBack) * time.Hour)

	events := make([]domain.Event, 0, len(doc.Items))
	for _, it := range doc.Items {
		published, ok := parsePublishTime(it.publishTime())
		if !ok {
			c.metrics.ParseFallbacks.WithLabelValues(string(domain.SourceMultiHazard), "publish_time").Inc()
			c.logger.Warn("gdacs item with unparsable publish time, substituting now",
				"title", it.Title, "raw", it.publishTime())
			published = now
		}
		if published.Before(cutoff) {
			continue
		}
		events = append(events, domain.Event{
			Source:     domain.SourceMultiHazard,
			ObservedAt: published.UTC(),
			Geo:        it.geo(),
			Title:      it.Title,
			URL:        it.Link,
		})
	}
	domain.SortNewestFirst(events)
	return events, nil
}

func parsePublishTime(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range publishTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// GDACS RSS feed types. Publish time and coordinates use namespaced child
// elements; the longitude tag is inconsistently named "long" or "lon" across
// items.

type rss struct {
	Items []item `xml:"channel>item"`
}

type item struct {
	Title   string `xml:"title"`
	Link    string `xml:"link"`
	DCDate  string `xml:"http://purl.org/dc/elements/1.1/ date"`
	PubDate string `xml:"pubDate"`
	GeoLat  string `xml:"http://www.w3.org/2003/01/geo/wgs84_pos# lat"`
	GeoLong string `xml:"http://www.w3.org/2003/01/geo/wgs84_pos# long"`
	GeoLon  string `xml:"http://www.w3.org/2003/01/geo/wgs84_pos# lon"`
}

// publishTime returns the item's raw publish timestamp, preferring the
// namespaced dc:date over the generic pubDate.
func (it item) publishTime() string {
	if it.DCDate != "" {
		return it.DCDate
	}
	return it.PubDate
}

// geo parses the item's coordinates, trying geo:lon when geo:long is absent.
// Both components must parse or the pair is absent.
func (it item) geo() *domain.Geo {
	rawLon := it.GeoLong
	if rawLon == "" {
		rawLon = it.GeoLon
	}
	if it.GeoLat == "" || rawLon == "" {
		return nil
	}

	lat, errLat := strconv.ParseFloat(it.GeoLat, 64)
	lon, errLon := strconv.ParseFloat(rawLon, 64)
	if errLat != nil || errLon != nil {
		return nil
	}
	return &domain.Geo{Lat: lat, Lon: lon}
}
