// Package openaq is a minimal client for the OpenAQ v3 API covering the
// two calls this service needs: location search by coordinates and
// per-sensor measurement listing.
package openaq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/Teasotea/air-quality-map/internal/models"
)

var (
	errRateLimited = errors.New("rate limited")
	errServerError = errors.New("server error")
	errCircuitOpen = errors.New("circuit breaker open")
)

// Client talks to the OpenAQ API. Requests are retried with exponential
// backoff and guarded by a circuit breaker so a flapping provider does
// not stall every aggregation call.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker

	maxRetries      int
	initialInterval time.Duration
}

// NewClient creates an OpenAQ client
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "openaq",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
		maxRetries:      2,
		initialInterval: 500 * time.Millisecond,
	}
}

type locationsResponse struct {
	Results []struct {
		ID          int64  `json:"id"`
		Name        string `json:"name"`
		Coordinates struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"coordinates"`
		Sensors []struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
		} `json:"sensors"`
		DatetimeLast *struct {
			UTC string `json:"utc"`
		} `json:"datetimeLast"`
	} `json:"results"`
}

type measurementsResponse struct {
	Results []struct {
		Value     float64 `json:"value"`
		Parameter struct {
			Name  string `json:"name"`
			Units string `json:"units"`
		} `json:"parameter"`
		Period struct {
			DatetimeTo struct {
				UTC string `json:"utc"`
			} `json:"datetimeTo"`
		} `json:"period"`
	} `json:"results"`
}

// ListLocations searches locations around a coordinate within radius
// meters, returning at most limit results
func (c *Client) ListLocations(ctx context.Context, lat, lon, radiusM float64, limit int) ([]models.Location, error) {
	q := url.Values{}
	q.Set("coordinates", fmt.Sprintf("%.6f,%.6f", lat, lon))
	q.Set("radius", fmt.Sprintf("%.0f", radiusM))
	q.Set("limit", fmt.Sprintf("%d", limit))

	body, err := c.get(ctx, "/locations", q)
	if err != nil {
		return nil, err
	}

	var resp locationsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode locations response: %w", err)
	}

	locations := make([]models.Location, 0, len(resp.Results))
	for _, r := range resp.Results {
		loc := models.Location{
			ID:        r.ID,
			Name:      r.Name,
			Latitude:  r.Coordinates.Latitude,
			Longitude: r.Coordinates.Longitude,
		}
		for _, s := range r.Sensors {
			loc.Sensors = append(loc.Sensors, models.Sensor{ID: s.ID, Name: s.Name})
		}
		if r.DatetimeLast != nil && r.DatetimeLast.UTC != "" {
			if ts, perr := time.Parse(time.RFC3339, r.DatetimeLast.UTC); perr == nil {
				utc := ts.UTC()
				loc.LastUpdated = &utc
			}
		}
		locations = append(locations, loc)
	}
	return locations, nil
}

// ListMeasurements returns raw samples for one sensor inside the window,
// newest first as the API delivers them. Samples missing a timestamp,
// parameter name or unit are dropped.
func (c *Client) ListMeasurements(ctx context.Context, sensor models.Sensor, from, to time.Time, limit int) ([]models.MeasurementSample, error) {
	q := url.Values{}
	q.Set("datetime_from", from.UTC().Format(time.RFC3339))
	q.Set("datetime_to", to.UTC().Format(time.RFC3339))
	q.Set("limit", fmt.Sprintf("%d", limit))

	body, err := c.get(ctx, fmt.Sprintf("/sensors/%d/measurements", sensor.ID), q)
	if err != nil {
		return nil, err
	}

	var resp measurementsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode measurements response: %w", err)
	}

	samples := make([]models.MeasurementSample, 0, len(resp.Results))
	for _, r := range resp.Results {
		if r.Parameter.Name == "" || r.Parameter.Units == "" || r.Period.DatetimeTo.UTC == "" {
			continue
		}
		ts, perr := time.Parse(time.RFC3339, r.Period.DatetimeTo.UTC)
		if perr != nil {
			continue
		}
		samples = append(samples, models.MeasurementSample{
			SensorID:   sensor.ID,
			SensorName: sensor.Name,
			Parameter:  r.Parameter.Name,
			Unit:       r.Parameter.Units,
			Value:      r.Value,
			Timestamp:  ts.UTC(),
		})
	}
	return samples, nil
}

// get performs a GET with retries, exponential backoff and the circuit
// breaker, returning the response body
func (c *Client) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	var lastErr error

	for attempt := 0; ; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		result, err := c.breaker.Execute(func() (interface{}, error) {
			return c.doOnce(ctx, path, q)
		})
		if err == nil {
			return result.([]byte), nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}

		lastErr = err
		if attempt >= c.maxRetries {
			return nil, lastErr
		}

		delay := c.initialInterval * time.Duration(1<<attempt)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (c *Client) doOnce(ctx context.Context, path string, q url.Values) ([]byte, error) {
	reqURL := c.baseURL + path
	if len(q) > 0 {
		reqURL += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, errRateLimited
	}
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: status %d", errServerError, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	return io.ReadAll(resp.Body)
}
