package knmi_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raingauge/raingauge/internal/feed"
	"github.com/raingauge/raingauge/internal/feed/knmi"
)

func TestClient_FetchStations(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/stations", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"stations": [
				{"code": "NL-260", "name": "De Bilt", "latitude": 52.1093, "longitude": 5.1810, "elevation": 1.9},
				{"code": "NL-344", "name": "Rotterdam", "latitude": 51.9225, "longitude": 4.47917, "elevation": -4.3}
			]
		}`))
	}))
	defer server.Close()

	client := knmi.NewClient(knmi.ClientConfig{
		BaseURL:    server.URL,
		APIKey:     "test-key",
		HTTPClient: http.DefaultClient,
	})

	stations, err := client.FetchStations(context.Background())
	require.NoError(t, err)
	require.Len(t, stations, 2)
	assert.Equal(t, "NL-260", stations[0].Code)
	assert.Equal(t, "De Bilt", stations[0].Name)
	assert.InDelta(t, 52.1093, stations[0].Lat, 1e-9)
}

func TestClient_FetchReadings(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/readings", r.URL.Path)
		assert.Equal(t, "2024-03-01", r.URL.Query().Get("date"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"readings": [
				{"station": "NL-260", "timestamp": "2024-03-01T00:00:00Z", "rain_mm": 1.4},
				{"station": "NL-344", "timestamp": "2024-03-01T00:00:00Z", "rain_mm": null}
			]
		}`))
	}))
	defer server.Close()

	client := knmi.NewClient(knmi.ClientConfig{
		BaseURL:    server.URL,
		HTTPClient: http.DefaultClient,
	})

	day := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	readings, err := client.FetchReadings(context.Background(), day)
	require.NoError(t, err)
	require.Len(t, readings, 2)

	require.NotNil(t, readings[0].Millimeters)
	assert.Equal(t, 1.4, *readings[0].Millimeters)
	assert.Nil(t, readings[1].Millimeters, "a null value stays a gap")
}

func TestClient_FetchReadings_Empty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"readings": []}`))
	}))
	defer server.Close()

	client := knmi.NewClient(knmi.ClientConfig{
		BaseURL:    server.URL,
		HTTPClient: http.DefaultClient,
	})

	_, err := client.FetchReadings(context.Background(), time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, feed.ErrNoReadings)
}

func TestClient_FeedUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := knmi.NewClient(knmi.ClientConfig{
		BaseURL:    server.URL,
		HTTPClient: http.DefaultClient,
	})

	_, err := client.FetchStations(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, feed.ErrFeedUnavailable)
}
