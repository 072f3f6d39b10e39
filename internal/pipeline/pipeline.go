// Package pipeline orchestrates one hazard query cycle: resolve the AOI,
// fetch the feeds, filter by distance, and aggregate the snapshot.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/hazard-intel-service/internal/domain"
	"github.com/couchcryptid/hazard-intel-service/internal/observability"
)

// FeedAdapter turns one remote feed into canonical events for a look-back
// window.
type FeedAdapter interface {
	Source() domain.Source
	Fetch(ctx context.Context, hoursBack int) ([]domain.Event, error)
}

// Publisher pushes a completed snapshot and its in-AOI events to a sink.
type Publisher interface {
	PublishSnapshot(ctx context.Context, snap domain.Snapshot, events map[domain.Source][]domain.FilteredEvent) error
}

// QueryParams are the driver-supplied inputs for one cycle.
type QueryParams struct {
	HoursBack int
	AOIQuery  string
	RadiusKM  float64
}

// FetchResult is one adapter's tagged outcome: either events or an error,
// never both. A failed fetch carries an empty event list so downstream
// stages need no special casing.
type FetchResult struct {
	Source domain.Source  `json:"source"`
	Events []domain.Event `json:"events"`
	Err    error          `json:"-"`
}

// Report is the full result of one query cycle: the resolved AOI, each
// source's raw fetch outcome, the AOI-filtered sets, and the snapshot.
type Report struct {
	CycleID  string                                   `json:"cycle_id"`
	AOI      domain.AOI                               `json:"-"`
	Fetches  map[domain.Source]FetchResult            `json:"fetches"`
	Filtered map[domain.Source][]domain.FilteredEvent `json:"filtered"`
	Snapshot domain.Snapshot                          `json:"snapshot"`
}

// Pipeline runs query cycles over a fixed set of feed adapters.
type Pipeline struct {
	adapters  []FeedAdapter
	geocoder  domain.Geocoder
	publisher Publisher
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool
}

// New creates a Pipeline. The publisher may be nil to disable publishing.
func New(adapters []FeedAdapter, geocoder domain.Geocoder, publisher Publisher, clk clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		adapters:  adapters,
		geocoder:  geocoder,
		publisher: publisher,
		clock:     clk,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness returns nil once at least one query cycle has completed.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not completed a query cycle yet")
	}
	return nil
}

// RunQuery executes one fetch-filter-aggregate cycle. The three feed fetches
// run concurrently — each adapter is a pure function of its inputs, so the
// parallelism changes latency only, not semantics — while the AOI is
// geocoded on the calling goroutine. No failure inside the cycle is fatal:
// a failed fetch degrades that source to an empty list, and an unresolved
// AOI yields empty filtered sets with zero in-AOI counts.
func (p *Pipeline) RunQuery(ctx context.Context, params QueryParams) (Report, error) {
	if params.HoursBack <= 0 {
		return Report{}, fmt.Errorf("hours back must be positive, got %d", params.HoursBack)
	}
	if params.RadiusKM <= 0 {
		return Report{}, fmt.Errorf("radius must be positive, got %g km", params.RadiusKM)
	}

	start := time.Now()
	cycleID := uuid.NewString()
	logger := p.logger.With("cycle_id", cycleID)
	logger.Info("query cycle starting",
		"hours_back", params.HoursBack, "aoi_query", params.AOIQuery, "radius_km", params.RadiusKM)

	results := make([]FetchResult, len(p.adapters))
	var wg sync.WaitGroup
	for i, adapter := range p.adapters {
		i, adapter := i, adapter
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = p.fetchOne(ctx, adapter, params.HoursBack, logger)
		}()
	}

	aoi := p.resolveAOI(ctx, params, logger)
	wg.Wait()

	report := Report{
		CycleID:  cycleID,
		AOI:      aoi,
		Fetches:  make(map[domain.Source]FetchResult, len(results)),
		Filtered: make(map[domain.Source][]domain.FilteredEvent, len(results)),
	}

	totals := make(map[domain.Source]int, len(results))
	filtered := make(map[domain.Source]int, len(results))
	for _, res := range results {
		report.Fetches[res.Source] = res
		totals[res.Source] = len(res.Events)

		inAOI := domain.FilterByAOI(res.Events, aoi)
		report.Filtered[res.Source] = inAOI
		filtered[res.Source] = len(inAOI)
		p.metrics.EventsInAOI.WithLabelValues(string(res.Source)).Add(float64(len(inAOI)))
	}

	report.Snapshot = domain.BuildSnapshot(cycleID, totals, filtered, aoi, params.HoursBack, p.clock)

	p.publish(ctx, report, logger)

	p.metrics.QueryCycles.Inc()
	p.metrics.QueryCycleDuration.Observe(time.Since(start).Seconds())
	p.ready.Store(true)
	p.metrics.PipelineReady.Set(1)

	logger.Info("query cycle complete",
		"aoi_resolved", aoi.Resolved(),
		"counts", report.Snapshot.Counts,
		"duration", time.Since(start))
	return report, nil
}

// fetchOne runs a single adapter, recovering any failure into an
// empty-events result for that source only.
func (p *Pipeline) fetchOne(ctx context.Context, adapter FeedAdapter, hoursBack int, logger *slog.Logger) FetchResult {
	src := adapter.Source()
	start := time.Now()

	events, err := adapter.Fetch(ctx, hoursBack)
	p.metrics.FetchDuration.WithLabelValues(string(src)).Observe(time.Since(start).Seconds())
	if err != nil {
		p.metrics.FetchRequests.WithLabelValues(string(src), "error").Inc()
		logger.Warn("feed fetch failed, continuing with empty result", "source", src, "error", err)
		return FetchResult{Source: src, Events: []domain.Event{}, Err: err}
	}

	p.metrics.FetchRequests.WithLabelValues(string(src), "success").Inc()
	p.metrics.EventsFetched.WithLabelValues(string(src)).Add(float64(len(events)))
	return FetchResult{Source: src, Events: events}
}

// resolveAOI geocodes the query once. Any failure, including "no result",
// leaves the AOI unresolved; the cycle continues with zero in-AOI counts.
func (p *Pipeline) resolveAOI(ctx context.Context, params QueryParams, logger *slog.Logger) domain.AOI {
	aoi := domain.AOI{Query: params.AOIQuery, RadiusKM: params.RadiusKM}
	if params.AOIQuery == "" {
		return aoi
	}

	center, err := p.geocoder.Geocode(ctx, params.AOIQuery)
	if err != nil {
		if errors.Is(err, domain.ErrNoResult) {
			logger.Warn("aoi query resolved to no candidates", "query", params.AOIQuery)
		} else {
			logger.Warn("geocoding failed, continuing with unresolved aoi",
				"query", params.AOIQuery, "error", err)
		}
		return aoi
	}

	aoi.Center = &center
	logger.Info("aoi resolved", "query", params.AOIQuery, "lat", center.Lat, "lon", center.Lon)
	return aoi
}

func (p *Pipeline) publish(ctx context.Context, report Report, logger *slog.Logger) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.PublishSnapshot(ctx, report.Snapshot, report.Filtered); err != nil {
		p.metrics.PublishErrors.Inc()
		logger.Warn("snapshot publish failed", "error", err)
		return
	}
	p.metrics.SnapshotsPublished.Inc()
}
