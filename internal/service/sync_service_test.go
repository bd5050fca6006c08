package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/Teasotea/air-quality-map/internal/database"
	"github.com/Teasotea/air-quality-map/internal/models"
	"github.com/Teasotea/air-quality-map/internal/repository"
)

type fakeLocationProvider struct {
	locations []models.Location
	err       error
	calls     int
}

func (f *fakeLocationProvider) ListLocations(ctx context.Context, lat, lon, radiusM float64, limit int) ([]models.Location, error) {
	f.calls++
	return f.locations, f.err
}

func newSyncFixture(t *testing.T, provider *fakeLocationProvider) (*SyncService, *repository.LocationRepository) {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	repo := repository.NewLocationRepository(db)
	return NewSyncService(repo, provider), repo
}

func fresh() *time.Time {
	ts := time.Now().UTC().Add(-time.Hour)
	return &ts
}

func stale() *time.Time {
	ts := time.Now().UTC().Add(-48 * time.Hour)
	return &ts
}

func TestSyncFiltersStaleLocations(t *testing.T) {
	provider := &fakeLocationProvider{locations: []models.Location{
		{ID: 1, Name: "Fresh", Latitude: 13.7, Longitude: 100.5, LastUpdated: fresh(),
			Sensors: []models.Sensor{{ID: 1, Name: "pm25"}}},
		{ID: 2, Name: "Stale", Latitude: 13.8, Longitude: 100.6, LastUpdated: stale(),
			Sensors: []models.Sensor{{ID: 2, Name: "no2"}}},
		{ID: 3, Name: "Never", Latitude: 13.9, Longitude: 100.7,
			Sensors: []models.Sensor{{ID: 3, Name: "o3"}}},
	}}
	svc, repo := newSyncFixture(t, provider)

	got, err := svc.SyncByCoordinates(context.Background(), 13.74, 100.54, 10000, 100)
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("sync returned %v, want only the fresh location", got)
	}

	stats, err := repo.Stats()
	if err != nil {
		t.Fatalf("Stats() failed: %v", err)
	}
	if stats.LocationCount != 1 {
		t.Errorf("stored %d locations, want 1", stats.LocationCount)
	}
}

func TestSyncIdempotent(t *testing.T) {
	provider := &fakeLocationProvider{locations: []models.Location{
		{ID: 1, Name: "A", Latitude: 13.7, Longitude: 100.5, LastUpdated: fresh(),
			Sensors: []models.Sensor{{ID: 1, Name: "pm25"}, {ID: 2, Name: "no2"}}},
		{ID: 2, Name: "B", Latitude: 13.8, Longitude: 100.6, LastUpdated: fresh(),
			Sensors: []models.Sensor{{ID: 1, Name: "pm25"}}},
	}}
	svc, repo := newSyncFixture(t, provider)

	ctx := context.Background()
	if _, err := svc.SyncByCoordinates(ctx, 13.74, 100.54, 10000, 100); err != nil {
		t.Fatalf("first sync failed: %v", err)
	}
	first, _ := repo.Stats()

	if _, err := svc.SyncByCoordinates(ctx, 13.74, 100.54, 10000, 100); err != nil {
		t.Fatalf("second sync failed: %v", err)
	}
	second, _ := repo.Stats()

	if *first != *second {
		t.Errorf("store state changed on identical re-sync: %+v -> %+v", first, second)
	}
}

func TestSyncDedupsSensorsAcrossLocations(t *testing.T) {
	provider := &fakeLocationProvider{locations: []models.Location{
		{ID: 1, Name: "First", Latitude: 13.7, Longitude: 100.5, LastUpdated: fresh(),
			Sensors: []models.Sensor{{ID: 7, Name: "canonical"}}},
		{ID: 2, Name: "Second", Latitude: 13.8, Longitude: 100.6, LastUpdated: fresh(),
			Sensors: []models.Sensor{{ID: 7, Name: "variant"}, {ID: 7, Name: "duplicate within"}}},
	}}
	svc, repo := newSyncFixture(t, provider)

	if _, err := svc.SyncByCoordinates(context.Background(), 13.74, 100.54, 10000, 100); err != nil {
		t.Fatalf("sync failed: %v", err)
	}

	stats, _ := repo.Stats()
	if stats.SensorCount != 1 {
		t.Errorf("sensor count = %d, want 1", stats.SensorCount)
	}
	if stats.RelationshipCount != 2 {
		t.Errorf("relationship count = %d, want 2", stats.RelationshipCount)
	}

	sensors, err := repo.SensorsForLocation(2)
	if err != nil {
		t.Fatalf("SensorsForLocation failed: %v", err)
	}
	if len(sensors) != 1 || sensors[0].Name != "canonical" {
		t.Errorf("sensors for second location = %+v, want the first-seen name", sensors)
	}
}

func TestSyncOrdersByDistance(t *testing.T) {
	provider := &fakeLocationProvider{locations: []models.Location{
		{ID: 1, Name: "Far", Latitude: 14.0, Longitude: 101.0, LastUpdated: fresh()},
		{ID: 2, Name: "Near", Latitude: 13.745, Longitude: 100.544, LastUpdated: fresh()},
	}}
	svc, _ := newSyncFixture(t, provider)

	got, err := svc.SyncByCoordinates(context.Background(), 13.74433, 100.54365, 50000, 100)
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d locations, want 2", len(got))
	}
	if got[0].ID != 2 {
		t.Errorf("nearest location first: got id %d, want 2", got[0].ID)
	}
	if got[0].DistanceM <= 0 || got[0].DistanceM >= got[1].DistanceM {
		t.Errorf("distances not ascending: %v, %v", got[0].DistanceM, got[1].DistanceM)
	}
}

func TestSyncProviderError(t *testing.T) {
	provider := &fakeLocationProvider{err: errors.New("provider down")}
	svc, _ := newSyncFixture(t, provider)

	if _, err := svc.SyncByCoordinates(context.Background(), 13.74, 100.54, 10000, 100); err == nil {
		t.Error("expected error when the provider fails")
	}
}
