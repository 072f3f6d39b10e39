package usgs

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/hazard-intel-service/internal/domain"
	"github.com/couchcryptid/hazard-intel-service/internal/observability"
)

const testUserAgent = "hazard-intel-test/1.0"

func testClient(hourlyURL, dailyURL string) *Client {
	return NewClient(Config{
		HourlyURL: hourlyURL,
		DailyURL:  dailyURL,
		UserAgent: testUserAgent,
		Timeout:   5 * time.Second,
	}, observability.NewMetricsForTesting(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestClient_Fetch_AxisOrderPreserved(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, testUserAgent, r.Header.Get("User-Agent"))
		io.WriteString(w, `{"features":[{
			"properties":{"mag":4.7,"place":"10 km N of Chiang Mai","time":1714132800000,"url":"https://example.org/eq1"},
			"geometry":{"coordinates":[99.0,18.0,10.5]}
		}]}`)
	}))
	defer srv.Close()

	c := testClient(srv.URL, srv.URL)
	events, err := c.Fetch(context.Background(), 24)
	require.NoError(t, err)
	require.Len(t, events, 1)

	e := events[0]
	assert.Equal(t, domain.SourceSeismic, e.Source)
	require.NotNil(t, e.Geo)
	assert.Equal(t, 18.0, e.Geo.Lat)
	assert.Equal(t, 99.0, e.Geo.Lon)
	require.NotNil(t, e.DepthKM)
	assert.Equal(t, 10.5, *e.DepthKM)
	require.NotNil(t, e.Magnitude)
	assert.Equal(t, 4.7, *e.Magnitude)
	assert.Equal(t, "10 km N of Chiang Mai", e.Place)
	assert.Equal(t, "https://example.org/eq1", e.URL)
	assert.Equal(t, time.UnixMilli(1714132800000).UTC(), e.ObservedAt)
}

func TestClient_Fetch_WindowSelectsFeed(t *testing.T) {
	var hourlyHits, dailyHits int
	hourly := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hourlyHits++
		io.WriteString(w, `{"features":[]}`)
	}))
	defer hourly.Close()
	daily := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		dailyHits++
		io.WriteString(w, `{"features":[]}`)
	}))
	defer daily.Close()

	c := testClient(hourly.URL, daily.URL)

	_, err := c.Fetch(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, hourlyHits)
	assert.Equal(t, 0, dailyHits)

	_, err = c.Fetch(context.Background(), 24)
	require.NoError(t, err)
	assert.Equal(t, 1, hourlyHits)
	assert.Equal(t, 1, dailyHits)
}

func TestClient_Fetch_MissingTimeDefaultsToEpochZero(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `{"features":[
			{"properties":{"mag":5.1,"place":"recent","time":1714132800000},"geometry":{"coordinates":[99.0,18.0,10.0]}},
			{"properties":{"place":"no time field"},"geometry":{"coordinates":[100.0,19.0,5.0]}}
		]}`)
	}))
	defer srv.Close()

	c := testClient(srv.URL, srv.URL)
	events, err := c.Fetch(context.Background(), 24)
	require.NoError(t, err)
	require.Len(t, events, 2)

	// Newest first, so the degraded record sorts last.
	assert.Equal(t, "recent", events[0].Place)
	assert.Equal(t, "no time field", events[1].Place)
	assert.Equal(t, time.UnixMilli(0).UTC(), events[1].ObservedAt)
	assert.Nil(t, events[1].Magnitude)
}

func TestClient_Fetch_MissingCoordinates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `{"features":[{"properties":{"mag":3.0,"place":"nowhere","time":1714132800000},"geometry":{}}]}`)
	}))
	defer srv.Close()

	c := testClient(srv.URL, srv.URL)
	events, err := c.Fetch(context.Background(), 24)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Nil(t, events[0].Geo)
	assert.Nil(t, events[0].DepthKM)
}

func TestClient_Fetch_SortedNewestFirst(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `{"features":[
			{"properties":{"place":"older","time":1714040000000},"geometry":{"coordinates":[99,18,1]}},
			{"properties":{"place":"newest","time":1714132800000},"geometry":{"coordinates":[99,18,1]}},
			{"properties":{"place":"middle","time":1714100000000},"geometry":{"coordinates":[99,18,1]}}
		]}`)
	}))
	defer srv.Close()

	c := testClient(srv.URL, srv.URL)
	events, err := c.Fetch(context.Background(), 24)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "newest", events[0].Place)
	assert.Equal(t, "middle", events[1].Place)
	assert.Equal(t, "older", events[2].Place)
}

func TestClient_Fetch_TransportFailures(t *testing.T) {
	t.Run("non-success status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		c := testClient(srv.URL, srv.URL)
		_, err := c.Fetch(context.Background(), 24)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 503")
	})

	t.Run("unreachable endpoint", func(t *testing.T) {
		c := testClient("http://127.0.0.1:1", "http://127.0.0.1:1")
		_, err := c.Fetch(context.Background(), 24)
		require.Error(t, err)
	})

	t.Run("malformed body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			io.WriteString(w, `{not json`)
		}))
		defer srv.Close()

		c := testClient(srv.URL, srv.URL)
		_, err := c.Fetch(context.Background(), 24)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decode usgs feed")
	})
}
