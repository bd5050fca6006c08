package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/Teasotea/air-quality-map/internal/models"
	"github.com/Teasotea/air-quality-map/internal/repository"
	"github.com/Teasotea/air-quality-map/internal/spatial"
)

// freshnessWindow is how recent a location's last measurement must be for
// the location to be persisted; stale stations are not worth tracking.
const freshnessWindow = 24 * time.Hour

// LocationProvider lists monitoring locations around a coordinate
type LocationProvider interface {
	ListLocations(ctx context.Context, lat, lon, radiusM float64, limit int) ([]models.Location, error)
}

// SyncService converges the stored location/sensor snapshot to freshly
// fetched provider data
type SyncService struct {
	repo     *repository.LocationRepository
	provider LocationProvider
}

// NewSyncService creates a new sync service
func NewSyncService(repo *repository.LocationRepository, provider LocationProvider) *SyncService {
	return &SyncService{repo: repo, provider: provider}
}

// SyncByCoordinates fetches locations around a coordinate, keeps the ones
// with a recent measurement, and upserts the whole batch in one store
// call. Returned locations carry their distance from the search center
// and are ordered nearest first.
//
// Sensor names are canonicalized across the batch before writing: the
// first occurrence of a sensor id fixes its name, so the store sees one
// consistent row per sensor no matter how many locations share it.
func (s *SyncService) SyncByCoordinates(ctx context.Context, lat, lon, radiusM float64, limit int) ([]models.Location, error) {
	fetched, err := s.provider.ListLocations(ctx, lat, lon, radiusM, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch locations: %w", err)
	}

	now := time.Now().UTC()
	fresh := make([]models.Location, 0, len(fetched))
	for _, loc := range fetched {
		if loc.LastUpdated == nil || now.Sub(*loc.LastUpdated) >= freshnessWindow {
			continue
		}
		loc.DistanceM = spatial.HaversineDistance(lat, lon, loc.Latitude, loc.Longitude)
		fresh = append(fresh, loc)
	}

	canonical := make(map[int64]string)
	for i := range fresh {
		fresh[i].Sensors = dedupeSensors(fresh[i].Sensors, canonical)
	}

	if len(fresh) > 0 {
		if err := s.repo.UpsertLocationsBatch(fresh); err != nil {
			return nil, fmt.Errorf("failed to store locations: %w", err)
		}
	}

	sort.Slice(fresh, func(i, j int) bool {
		return fresh[i].DistanceM < fresh[j].DistanceM
	})

	log.Printf("[SyncService] synced %d/%d locations around (%.4f, %.4f)",
		len(fresh), len(fetched), lat, lon)
	return fresh, nil
}

// dedupeSensors drops duplicate sensor ids within one location and
// rewrites names to the batch-wide canonical name (first occurrence wins)
func dedupeSensors(sensors []models.Sensor, canonical map[int64]string) []models.Sensor {
	deduped := make([]models.Sensor, 0, len(sensors))
	seen := make(map[int64]bool, len(sensors))
	for _, sensor := range sensors {
		if seen[sensor.ID] {
			continue
		}
		seen[sensor.ID] = true
		if name, ok := canonical[sensor.ID]; ok {
			sensor.Name = name
		} else {
			canonical[sensor.ID] = sensor.Name
		}
		deduped = append(deduped, sensor)
	}
	return deduped
}
