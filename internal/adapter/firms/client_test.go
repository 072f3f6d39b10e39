package firms

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/hazard-intel-service/internal/observability"
)

var testNow = time.Date(2024, 4, 26, 12, 0, 0, 0, time.UTC)

const viirsCSV = `latitude,longitude,bright_ti4,acq_date,acq_time,confidence
18.10,98.90,330.5,2024-04-26,0934,nominal
19.20,99.50,345.1,2024-04-26,1105,high
`

func testClient(primary string, alternates []string) *Client {
	return NewClient(Config{
		PrimaryURL:    primary,
		AlternateURLs: alternates,
		UserAgent:     "hazard-intel-test/1.0",
		Timeout:       5 * time.Second,
	}, clockwork.NewFakeClockAt(testNow), observability.NewMetricsForTesting(),
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func csvServer(t *testing.T, body string, hits *int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits != nil {
			*hits++
		}
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func failingServer(t *testing.T, hits *int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits != nil {
			*hits++
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Fetch_PrimarySuccess(t *testing.T) {
	primary := csvServer(t, viirsCSV, nil)
	var altHits int
	alt := failingServer(t, &altHits)

	c := testClient(primary.URL, []string{alt.URL})
	events, err := c.Fetch(context.Background(), 24)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, 0, altHits, "alternates must not be attempted after a success")

	// Newest first.
	assert.Equal(t, time.Date(2024, 4, 26, 11, 5, 0, 0, time.UTC), events[0].ObservedAt)
	assert.Equal(t, time.Date(2024, 4, 26, 9, 34, 0, 0, time.UTC), events[1].ObservedAt)

	e := events[1]
	require.NotNil(t, e.Geo)
	assert.Equal(t, 18.10, e.Geo.Lat)
	assert.Equal(t, 98.90, e.Geo.Lon)
	require.NotNil(t, e.Brightness)
	assert.Equal(t, 330.5, *e.Brightness)
	assert.Equal(t, "nominal", e.Confidence)
}

func TestClient_Fetch_FallbackChain(t *testing.T) {
	var primaryHits, alt1Hits, alt2Hits int
	primary := failingServer(t, &primaryHits)
	alt1 := csvServer(t, viirsCSV, &alt1Hits)
	alt2 := csvServer(t, viirsCSV, &alt2Hits)

	c := testClient(primary.URL, []string{alt1.URL, alt2.URL})
	events, err := c.Fetch(context.Background(), 24)
	require.NoError(t, err)

	assert.Len(t, events, 2, "first working alternate's rows returned verbatim")
	assert.Equal(t, 1, primaryHits)
	assert.Equal(t, 1, alt1Hits)
	assert.Equal(t, 0, alt2Hits, "no later alternate once one succeeds")
}

func TestClient_Fetch_EmptyProductFallsThrough(t *testing.T) {
	empty := csvServer(t, "latitude,longitude,bright_ti4,acq_date,acq_time,confidence\n", nil)
	var altHits int
	alt := csvServer(t, viirsCSV, &altHits)

	c := testClient(empty.URL, []string{alt.URL})
	events, err := c.Fetch(context.Background(), 24)
	require.NoError(t, err)
	assert.Len(t, events, 2)
	assert.Equal(t, 1, altHits)
}

func TestClient_Fetch_AllEndpointsFail(t *testing.T) {
	primary := failingServer(t, nil)
	alt := failingServer(t, nil)

	c := testClient(primary.URL, []string{alt.URL})
	events, err := c.Fetch(context.Background(), 24)

	require.NoError(t, err, "total failure degrades to empty, never errors")
	assert.NotNil(t, events)
	assert.Empty(t, events)
}

func TestClient_Fetch_CutoffFilter(t *testing.T) {
	// Cutoff is 2024-04-25T12:00:00Z for hours_back=24.
	body := `latitude,longitude,bright_ti4,acq_date,acq_time,confidence
18.0,99.0,330.0,2024-04-25,1200,nominal
18.1,99.1,331.0,2024-04-25,1159,nominal
18.2,99.2,332.0,2024-04-26,0100,high
`
	srv := csvServer(t, body, nil)
	c := testClient(srv.URL, []string{})

	events, err := c.Fetch(context.Background(), 24)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, time.Date(2024, 4, 26, 1, 0, 0, 0, time.UTC), events[0].ObservedAt)
	assert.Equal(t, time.Date(2024, 4, 25, 12, 0, 0, 0, time.UTC), events[1].ObservedAt, "row exactly at the cutoff is retained")
}

func TestClient_Fetch_UnparsableTimestampExcluded(t *testing.T) {
	body := `latitude,longitude,bright_ti4,acq_date,acq_time,confidence
18.0,99.0,330.0,not-a-date,9999,nominal
18.1,99.1,331.0,2024-04-26,1000,high
`
	srv := csvServer(t, body, nil)
	c := testClient(srv.URL, []string{})

	events, err := c.Fetch(context.Background(), 24)
	require.NoError(t, err)
	require.Len(t, events, 1, "rows with unusable timestamps are excluded, never silently included")
	assert.Equal(t, "high", events[0].Confidence)
}

func TestClient_Fetch_ZeroPadsAcqTime(t *testing.T) {
	body := `latitude,longitude,bright_ti4,acq_date,acq_time,confidence
18.0,99.0,330.0,2024-04-26,934,nominal
18.1,99.1,331.0,2024-04-26,7,low
`
	srv := csvServer(t, body, nil)
	c := testClient(srv.URL, []string{})

	events, err := c.Fetch(context.Background(), 24)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, time.Date(2024, 4, 26, 9, 34, 0, 0, time.UTC), events[0].ObservedAt)
	assert.Equal(t, time.Date(2024, 4, 26, 0, 7, 0, 0, time.UTC), events[1].ObservedAt)
}

func TestClient_Fetch_MODISColumnMapping(t *testing.T) {
	// The MODIS product names its brightness column "brightness" and uses
	// numeric confidence values.
	body := `latitude,longitude,brightness,scan,track,acq_date,acq_time,confidence
18.0,99.0,312.7,1.1,1.0,2024-04-26,1030,85
`
	srv := csvServer(t, body, nil)
	c := testClient(srv.URL, []string{})

	events, err := c.Fetch(context.Background(), 24)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.NotNil(t, events[0].Brightness)
	assert.Equal(t, 312.7, *events[0].Brightness)
	assert.Equal(t, "85", events[0].Confidence)
}

func TestClient_Fetch_SchemaDriftFallsThrough(t *testing.T) {
	// A missing required column is a parse failure for that endpoint, so the
	// alternate gets a chance instead of nulls propagating.
	drifted := csvServer(t, "lat,lon,heat,when,confidence\n1,2,3,4,5\n", nil)
	var altHits int
	alt := csvServer(t, viirsCSV, &altHits)

	c := testClient(drifted.URL, []string{alt.URL})
	events, err := c.Fetch(context.Background(), 24)
	require.NoError(t, err)
	assert.Len(t, events, 2)
	assert.Equal(t, 1, altHits)
}

func TestMapColumns(t *testing.T) {
	t.Run("viirs header", func(t *testing.T) {
		cols, err := mapColumns([]string{"latitude", "longitude", "bright_ti4", "acq_date", "acq_time", "confidence"})
		require.NoError(t, err)
		assert.Equal(t, 2, cols.brightness)
	})

	t.Run("missing brightness", func(t *testing.T) {
		_, err := mapColumns([]string{"latitude", "longitude", "acq_date", "acq_time", "confidence"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "brightness")
	})

	t.Run("missing required column", func(t *testing.T) {
		_, err := mapColumns([]string{"latitude", "bright_ti4", "acq_date", "acq_time", "confidence"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "longitude")
	})
}
