// Package knmi provides a client for the KNMI daily precipitation feed.
package knmi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/raingauge/raingauge/internal/feed"
	"github.com/raingauge/raingauge/internal/provider/resilience"
)

const (
	// DefaultBaseURL is the base URL for the KNMI open data API.
	DefaultBaseURL = "https://api.dataplatform.knmi.nl/open-data"

	// ProviderName identifies this provider in observation rows.
	ProviderName = "knmi"
)

// ClientConfig holds configuration for the KNMI client.
type ClientConfig struct {
	// BaseURL is the API base URL (defaults to DefaultBaseURL).
	BaseURL string

	// APIKey is sent as the Authorization header when set.
	APIKey string

	// HTTPClient is the HTTP client to use (must implement HTTPDoer).
	// If nil, a default resilient client will be created.
	HTTPClient HTTPDoer

	// Timeout for individual API requests (default: 10s).
	Timeout time.Duration

	// Metrics records request outcomes when set.
	Metrics RequestRecorder
}

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RequestRecorder records the outcome of feed requests.
type RequestRecorder interface {
	RecordRequest(feed, operation string, duration time.Duration, err error)
}

// Client is a KNMI precipitation feed client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient HTTPDoer
	metrics    RequestRecorder
}

// NewClient creates a new KNMI client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 10 * time.Second
		}
		httpClient = resilience.NewClient(resilience.ClientConfig{
			Name:            ProviderName,
			Timeout:         timeout,
			MaxRetries:      3,
			InitialInterval: 200 * time.Millisecond,
			MaxInterval:     5 * time.Second,
		})
	}

	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		metrics:    cfg.Metrics,
	}
}

// API response types (from the KNMI feed).

type stationsResponse struct {
	Stations []stationData `json:"stations"`
}

type stationData struct {
	Code      string  `json:"code"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Elevation float64 `json:"elevation"`
}

type readingsResponse struct {
	Readings []readingData `json:"readings"`
}

type readingData struct {
	StationCode string   `json:"station"`
	Timestamp   string   `json:"timestamp"`
	RainMM      *float64 `json:"rain_mm"`
}

// FetchStations fetches the feed's station catalogue.
func (c *Client) FetchStations(ctx context.Context) ([]*feed.Station, error) {
	var payload stationsResponse
	if err := c.get(ctx, "stations", "/v1/stations", &payload); err != nil {
		return nil, err
	}

	stations := make([]*feed.Station, 0, len(payload.Stations))
	for _, s := range payload.Stations {
		stations = append(stations, &feed.Station{
			Code:      s.Code,
			Name:      s.Name,
			Lat:       s.Latitude,
			Lon:       s.Longitude,
			Elevation: s.Elevation,
		})
	}
	return stations, nil
}

// FetchReadings fetches precipitation readings for the given day.
func (c *Client) FetchReadings(ctx context.Context, day time.Time) ([]*feed.Reading, error) {
	path := fmt.Sprintf("/v1/readings?date=%s", day.UTC().Format("2006-01-02"))

	var payload readingsResponse
	if err := c.get(ctx, "readings", path, &payload); err != nil {
		return nil, err
	}
	if len(payload.Readings) == 0 {
		return nil, feed.ErrNoReadings
	}

	readings := make([]*feed.Reading, 0, len(payload.Readings))
	for _, r := range payload.Readings {
		measuredAt, err := time.Parse(time.RFC3339, r.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("parse reading timestamp %q: %w", r.Timestamp, err)
		}
		readings = append(readings, &feed.Reading{
			StationCode: r.StationCode,
			MeasuredAt:  measuredAt,
			Millimeters: r.RainMM,
		})
	}
	return readings, nil
}

// get executes a GET request and decodes the JSON response.
func (c *Client) get(ctx context.Context, operation, path string, out interface{}) (err error) {
	if c.metrics != nil {
		start := time.Now()
		defer func() {
			c.metrics.RecordRequest(ProviderName, operation, time.Since(start), err)
		}()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s", feed.ErrFeedUnavailable, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", feed.ErrFeedUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Ensure Client implements the feed.Provider interface.
var _ feed.Provider = (*Client)(nil)
