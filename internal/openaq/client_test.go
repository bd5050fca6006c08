package openaq

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Teasotea/air-quality-map/internal/models"
)

func TestListLocations(t *testing.T) {
	var gotPath, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("X-API-Key")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"results": [
				{
					"id": 100,
					"name": "Bangkok Station",
					"coordinates": {"latitude": 13.74, "longitude": 100.54},
					"sensors": [{"id": 1, "name": "pm25"}, {"id": 2, "name": "no2"}],
					"datetimeLast": {"utc": "2026-08-22T10:00:00Z"}
				},
				{
					"id": 101,
					"name": "Quiet Station",
					"coordinates": {"latitude": 13.75, "longitude": 100.55},
					"sensors": [],
					"datetimeLast": null
				}
			]
		}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key")
	locations, err := client.ListLocations(context.Background(), 13.74, 100.54, 10000, 100)
	if err != nil {
		t.Fatalf("ListLocations failed: %v", err)
	}

	if gotPath != "/locations" {
		t.Errorf("request path = %s, want /locations", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("X-API-Key = %q, want test-key", gotKey)
	}

	if len(locations) != 2 {
		t.Fatalf("got %d locations, want 2", len(locations))
	}

	first := locations[0]
	if first.ID != 100 || first.Name != "Bangkok Station" || len(first.Sensors) != 2 {
		t.Errorf("unexpected first location: %+v", first)
	}
	if first.LastUpdated == nil || !first.LastUpdated.Equal(time.Date(2026, 8, 22, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("LastUpdated = %v, want 2026-08-22T10:00:00Z", first.LastUpdated)
	}
	if locations[1].LastUpdated != nil {
		t.Errorf("missing datetimeLast should yield nil LastUpdated, got %v", locations[1].LastUpdated)
	}
}

func TestListMeasurementsSkipsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sensors/7/measurements" {
			t.Errorf("request path = %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"results": [
				{"value": 12.5, "parameter": {"name": "pm25", "units": "µg/m³"},
				 "period": {"datetimeTo": {"utc": "2026-08-22T10:00:00Z"}}},
				{"value": 13.0, "parameter": {"name": "", "units": "µg/m³"},
				 "period": {"datetimeTo": {"utc": "2026-08-22T11:00:00Z"}}},
				{"value": 14.0, "parameter": {"name": "pm25", "units": "µg/m³"},
				 "period": {"datetimeTo": {"utc": ""}}},
				{"value": 15.0, "parameter": {"name": "pm25", "units": "µg/m³"},
				 "period": {"datetimeTo": {"utc": "not-a-timestamp"}}}
			]
		}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")
	sensor := models.Sensor{ID: 7, Name: "pm25 sensor"}
	from := time.Now().Add(-24 * time.Hour)

	samples, err := client.ListMeasurements(context.Background(), sensor, from, time.Now(), 100)
	if err != nil {
		t.Fatalf("ListMeasurements failed: %v", err)
	}

	if len(samples) != 1 {
		t.Fatalf("got %d samples, want 1 (malformed skipped)", len(samples))
	}
	s := samples[0]
	if s.SensorID != 7 || s.SensorName != "pm25 sensor" || s.Value != 12.5 || s.Parameter != "pm25" {
		t.Errorf("unexpected sample: %+v", s)
	}
}

func TestClientRetriesServerErrors(t *testing.T) {
	var attempts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"results": []}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")
	client.initialInterval = time.Millisecond

	if _, err := client.ListLocations(context.Background(), 0, 0, 1000, 10); err != nil {
		t.Fatalf("expected retries to recover, got: %v", err)
	}
	if attempts != 3 {
		t.Errorf("made %d attempts, want 3", attempts)
	}
}

func TestClientGivesUpAfterMaxRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")
	client.initialInterval = time.Millisecond

	if _, err := client.ListLocations(context.Background(), 0, 0, 1000, 10); err == nil {
		t.Error("expected an error after exhausting retries")
	}
}

func TestClientHonorsContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")
	client.initialInterval = 10 * time.Second // retry delay long enough to hit the deadline first

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.ListMeasurements(ctx, models.Sensor{ID: 1}, time.Now().Add(-time.Hour), time.Now(), 10)
	if err == nil {
		t.Error("expected an error after context cancellation")
	}
}
