// Command snapshot runs one query cycle and prints the snapshot as JSON.
// With -zip it also writes the per-source CSVs and snapshot.json as a ZIP
// bundle for sharing.
package main

import (
	"archive/zip"
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/hazard-intel-service/internal/adapter/firms"
	"github.com/couchcryptid/hazard-intel-service/internal/adapter/gdacs"
	"github.com/couchcryptid/hazard-intel-service/internal/adapter/nominatim"
	"github.com/couchcryptid/hazard-intel-service/internal/adapter/usgs"
	"github.com/couchcryptid/hazard-intel-service/internal/config"
	"github.com/couchcryptid/hazard-intel-service/internal/domain"
	"github.com/couchcryptid/hazard-intel-service/internal/observability"
	"github.com/couchcryptid/hazard-intel-service/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	hours := flag.Int("hours", cfg.DefaultHoursBack, "look-back window in hours")
	aoiQuery := flag.String("aoi", cfg.DefaultAOIQuery, "area of interest (place name or address)")
	radius := flag.Float64("radius", cfg.DefaultRadiusKM, "AOI radius in km")
	zipPath := flag.String("zip", "", "also write a ZIP bundle (per-source CSVs + snapshot.json) to this path")
	flag.Parse()

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetricsForTesting()
	clk := clockwork.NewRealClock()

	adapters := []pipeline.FeedAdapter{
		usgs.NewClient(usgs.Config{
			HourlyURL: cfg.Feeds.USGS.HourlyURL,
			DailyURL:  cfg.Feeds.USGS.DailyURL,
			UserAgent: cfg.UserAgent,
			Timeout:   cfg.FetchTimeout,
		}, metrics, logger),
		gdacs.NewClient(gdacs.Config{
			URL:       cfg.Feeds.GDACS.URL,
			UserAgent: cfg.UserAgent,
			Timeout:   cfg.FetchTimeout,
		}, clk, metrics, logger),
		firms.NewClient(firms.Config{
			PrimaryURL:    cfg.Feeds.FIRMS.PrimaryURL,
			AlternateURLs: cfg.Feeds.FIRMS.AlternateURLs,
			UserAgent:     cfg.UserAgent,
			Timeout:       cfg.FetchTimeout,
		}, clk, metrics, logger),
	}

	geocoder := nominatim.NewClient(nominatim.Config{
		BaseURL:   cfg.Feeds.Nominatim.BaseURL,
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.FetchTimeout,
	}, metrics, logger)

	p := pipeline.New(adapters, geocoder, nil, clk, logger, metrics)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	report, err := p.RunQuery(ctx, pipeline.QueryParams{
		HoursBack: *hours,
		AOIQuery:  *aoiQuery,
		RadiusKM:  *radius,
	})
	if err != nil {
		logger.Error("query cycle failed", "error", err)
		os.Exit(1)
	}

	out, err := json.MarshalIndent(report.Snapshot, "", "  ")
	if err != nil {
		logger.Error("marshal snapshot", "error", err)
		os.Exit(1)
	}
	fmt.Println(string(out))

	if *zipPath != "" {
		if err := writeBundle(*zipPath, report); err != nil {
			logger.Error("write zip bundle", "error", err)
			os.Exit(1)
		}
		logger.Info("zip bundle written", "path", *zipPath)
	}
}

// bundleNames maps each source to its CSV base name inside the bundle.
var bundleNames = map[domain.Source]string{
	domain.SourceSeismic:       "quakes",
	domain.SourceMultiHazard:   "gdacs",
	domain.SourceFireDetection: "fires",
}

// writeBundle writes the raw and AOI-filtered event sets as CSVs plus the
// snapshot JSON into one ZIP file. Empty sets are skipped.
func writeBundle(path string, report pipeline.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	zw := zip.NewWriter(f)

	for _, src := range domain.AllSources {
		name := bundleNames[src]

		if events := report.Fetches[src].Events; len(events) > 0 {
			if err := writeEventsCSV(zw, name+".csv", events); err != nil {
				return err
			}
		}
		if filtered := report.Filtered[src]; len(filtered) > 0 {
			if err := writeFilteredCSV(zw, "aoi_"+name+".csv", filtered); err != nil {
				return err
			}
		}
	}

	w, err := zw.Create("snapshot.json")
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report.Snapshot); err != nil {
		return err
	}

	return zw.Close()
}

func writeEventsCSV(zw *zip.Writer, name string, events []domain.Event) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(eventHeader); err != nil {
		return err
	}
	for _, e := range events {
		if err := cw.Write(eventRow(e)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeFilteredCSV(zw *zip.Writer, name string, events []domain.FilteredEvent) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(append(append([]string{}, eventHeader...), "distance_km")); err != nil {
		return err
	}
	for _, e := range events {
		row := append(eventRow(e.Event), formatFloat(e.DistanceKM))
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

var eventHeader = []string{
	"source", "time_utc", "latitude", "longitude",
	"magnitude", "place", "depth_km", "url", "title", "brightness", "confidence",
}

func eventRow(e domain.Event) []string {
	var lat, lon string
	if e.Geo != nil {
		lat = formatFloat(e.Geo.Lat)
		lon = formatFloat(e.Geo.Lon)
	}
	return []string{
		string(e.Source),
		e.ObservedAt.Format(time.RFC3339),
		lat,
		lon,
		formatFloatPtr(e.Magnitude),
		e.Place,
		formatFloatPtr(e.DepthKM),
		e.URL,
		e.Title,
		formatFloatPtr(e.Brightness),
		e.Confidence,
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatFloatPtr(f *float64) string {
	if f == nil {
		return ""
	}
	return formatFloat(*f)
}
