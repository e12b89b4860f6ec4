package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/rebalance/core/classify"
	"github.com/kilianp07/rebalance/core/factory"
	"github.com/kilianp07/rebalance/core/model"
	"github.com/kilianp07/rebalance/core/planner"
)

const snapshot = `[
  {"number": 1, "contract_name": "nancy", "name": "1 - PLACE STANISLAS", "address": "Place Stanislas",
   "position": {"lat": 48.6936, "lng": 6.1832}, "banking": true, "bonus": false,
   "bike_stands": 20, "available_bike_stands": 4, "available_bikes": 16, "status": "OPEN", "last_update": 1700000000000},
  {"number": 2, "contract_name": "nancy", "name": "2 - GARE", "address": "Place Thiers",
   "bike_stands": 10, "available_bike_stands": 10, "available_bikes": 0, "status": "CLOSED", "last_update": 1700000000000}
]`

func fastFeed(t *testing.T, url string) *JCDecauxFeed {
	t.Helper()
	f, err := NewJCDecauxFeed(JCDecauxConfig{URL: url, APIKey: "key", Contract: "nancy", MaxRetries: 2})
	require.NoError(t, err)
	f.backoff = func() backoff.BackOff { return backoff.NewConstantBackOff(time.Millisecond) }
	return f
}

func TestDecodeStations(t *testing.T) {
	stations, err := DecodeStations(strings.NewReader(snapshot))
	require.NoError(t, err)
	require.Len(t, stations, 2)
	assert.True(t, stations[0].HasPosition)
	assert.Equal(t, model.Position{Lat: 48.6936, Lng: 6.1832}, stations[0].Position)
	assert.Equal(t, 16, stations[0].AvailableBikes)
	assert.False(t, stations[1].HasPosition)
	assert.True(t, stations[1].Status.IsClosed())

	_, err = DecodeStations(strings.NewReader(`{"not": "an array"}`))
	assert.Error(t, err)
}

func TestDecodeStationsMissingCounts(t *testing.T) {
	cases := map[string]string{
		"available_bikes": `[{"name": "A", "position": {"lat": 48.69, "lng": 6.18},
		   "available_bike_stands": 10, "status": "OPEN"}]`,
		"available_bike_stands": `[{"name": "A", "position": {"lat": 48.69, "lng": 6.18},
		   "available_bikes": 0, "status": "OPEN"}]`,
	}
	for missing, doc := range cases {
		stations, err := DecodeStations(strings.NewReader(doc))
		require.NoError(t, err, missing)
		require.Len(t, stations, 1)

		out, err := classify.Annotate(stations)
		if !errors.Is(err, model.ErrMalformedStation) {
			t.Fatalf("missing %s: expected ErrMalformedStation, got err=%v out=%+v", missing, err, out)
		}
		assert.Contains(t, err.Error(), missing)
	}

	stations, err := DecodeStations(strings.NewReader(`[{"name": "A", "position": {"lat": 48.69, "lng": 6.18},
	   "available_bikes": 0, "available_bike_stands": 0, "status": "OPEN"}]`))
	require.NoError(t, err)
	assert.True(t, stations[0].HasBikes)
	assert.True(t, stations[0].HasStands)
	_, err = classify.Annotate(stations)
	assert.NoError(t, err)
}

func TestJCDecauxFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/vls/v1/stations", r.URL.Path)
		assert.Equal(t, "nancy", r.URL.Query().Get("contract"))
		assert.Equal(t, "key", r.URL.Query().Get("apiKey"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(snapshot))
	}))
	defer srv.Close()

	stations, err := fastFeed(t, srv.URL+"/vls/v1/stations").Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, stations, 2)
}

func TestJCDecauxRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "maintenance", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(snapshot))
	}))
	defer srv.Close()

	stations, err := fastFeed(t, srv.URL).Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, stations, 2)
	assert.Equal(t, int32(3), calls.Load())
}

func TestJCDecauxRetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := fastFeed(t, srv.URL).Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusBadGateway))
	assert.Equal(t, int32(3), calls.Load())
}

func TestJCDecauxClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "invalid api key", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := fastFeed(t, srv.URL).Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusForbidden))
	assert.Equal(t, int32(1), calls.Load())
}

func TestJCDecauxConfig(t *testing.T) {
	_, err := NewJCDecauxFeed(JCDecauxConfig{Contract: "nancy"})
	assert.Error(t, err)
	f, err := NewJCDecauxFeed(JCDecauxConfig{APIKey: "k", Contract: "nancy"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(f.endpoint, DefaultJCDecauxURL+"?"))
	assert.Equal(t, 10*time.Second, f.client.Timeout)
}

func TestFileFeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stations.json")
	require.NoError(t, os.WriteFile(path, []byte(snapshot), 0o644))

	f, err := planner.NewFeed(factory.ModuleConfig{Type: "file", Conf: map[string]any{"path": path}})
	require.NoError(t, err)
	stations, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, stations, 2)

	missing, err := NewFileFeed(FileConfig{Path: filepath.Join(t.TempDir(), "none.json")})
	require.NoError(t, err)
	_, err = missing.Fetch(context.Background())
	assert.Error(t, err)

	_, err = NewFileFeed(FileConfig{})
	assert.Error(t, err)
}

func TestJCDecauxRegistered(t *testing.T) {
	f, err := planner.NewFeed(factory.ModuleConfig{Type: "jcdecaux", Conf: map[string]any{
		"api_key":     "k",
		"contract":    "nancy",
		"max_retries": 1,
	}})
	require.NoError(t, err)
	_, ok := f.(*JCDecauxFeed)
	assert.True(t, ok)
}
