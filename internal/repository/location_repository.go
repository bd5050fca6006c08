package repository

import (
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/Teasotea/air-quality-map/internal/database"
	"github.com/Teasotea/air-quality-map/internal/models"
)

// LocationRepository handles database operations for locations, sensors
// and the location-sensor relationship
type LocationRepository struct {
	db *database.DB
}

// NewLocationRepository creates a new location repository
func NewLocationRepository(db *database.DB) *LocationRepository {
	return &LocationRepository{db: db}
}

// UpsertLocationsBatch stores a batch of locations with their sensors in a
// single transaction. Locations are replaced by id, sensors are inserted
// only if absent (first-seen name wins), and each location's relationship
// rows are deleted and reinserted from its current sensor set. Relationship
// state is a projection of the batch, never patched incrementally.
func (r *LocationRepository) UpsertLocationsBatch(locations []models.Location) error {
	if len(locations) == 0 {
		return nil
	}

	return r.db.Transaction(func(tx *sql.Tx) error {
		locStmt, err := tx.Prepare(`
			INSERT OR REPLACE INTO locations (id, name, latitude, longitude, last_updated, updated_at)
			VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`)
		if err != nil {
			return fmt.Errorf("failed to prepare location upsert: %w", err)
		}
		defer locStmt.Close()

		for _, loc := range locations {
			var lastUpdated interface{}
			if loc.LastUpdated != nil {
				lastUpdated = loc.LastUpdated.UTC().Format(time.RFC3339)
			}
			if _, err := locStmt.Exec(loc.ID, loc.Name, loc.Latitude, loc.Longitude, lastUpdated); err != nil {
				return fmt.Errorf("failed to upsert location %d: %w", loc.ID, err)
			}
		}

		// Sensors must exist before any relationship row references them.
		// A sensor shared by several locations in the batch is inserted once;
		// the name from its first occurrence wins.
		sensorStmt, err := tx.Prepare(`INSERT OR IGNORE INTO sensors (id, name) VALUES (?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare sensor insert: %w", err)
		}
		defer sensorStmt.Close()

		seen := make(map[int64]bool)
		for _, loc := range locations {
			for _, s := range loc.Sensors {
				if seen[s.ID] {
					continue
				}
				seen[s.ID] = true
				if _, err := sensorStmt.Exec(s.ID, s.Name); err != nil {
					return fmt.Errorf("failed to insert sensor %d: %w", s.ID, err)
				}
			}
		}

		delStmt, err := tx.Prepare(`DELETE FROM location_sensors WHERE location_id = ?`)
		if err != nil {
			return fmt.Errorf("failed to prepare relationship delete: %w", err)
		}
		defer delStmt.Close()

		relStmt, err := tx.Prepare(`INSERT INTO location_sensors (location_id, sensor_id) VALUES (?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare relationship insert: %w", err)
		}
		defer relStmt.Close()

		for _, loc := range locations {
			if _, err := delStmt.Exec(loc.ID); err != nil {
				return fmt.Errorf("failed to clear relationships for location %d: %w", loc.ID, err)
			}
			inserted := make(map[int64]bool)
			for _, s := range loc.Sensors {
				if inserted[s.ID] {
					continue
				}
				inserted[s.ID] = true
				if _, err := relStmt.Exec(loc.ID, s.ID); err != nil {
					return fmt.Errorf("failed to link sensor %d to location %d: %w", s.ID, loc.ID, err)
				}
			}
		}

		return nil
	})
}

// SensorsForLocation returns all sensors linked to a location. An unknown
// location id yields an empty slice, not an error.
func (r *LocationRepository) SensorsForLocation(locationID int64) ([]models.Sensor, error) {
	rows, err := r.db.Conn().Query(`
		SELECT s.id, s.name
		FROM sensors s
		JOIN location_sensors ls ON s.id = ls.sensor_id
		WHERE ls.location_id = ?
		ORDER BY s.id`, locationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sensors for location %d: %w", locationID, err)
	}
	defer rows.Close()

	sensors := []models.Sensor{}
	for rows.Next() {
		var s models.Sensor
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, fmt.Errorf("failed to scan sensor: %w", err)
		}
		sensors = append(sensors, s)
	}
	return sensors, rows.Err()
}

// LocationIDsForSensor returns the ids of all locations linked to a sensor
func (r *LocationRepository) LocationIDsForSensor(sensorID int64) ([]int64, error) {
	rows, err := r.db.Conn().Query(`
		SELECT location_id FROM location_sensors WHERE sensor_id = ? ORDER BY location_id`, sensorID)
	if err != nil {
		return nil, fmt.Errorf("failed to query locations for sensor %d: %w", sensorID, err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan location id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetLocation returns a stored location with its sensors, or nil if absent
func (r *LocationRepository) GetLocation(locationID int64) (*models.Location, error) {
	var loc models.Location
	var lastUpdated sql.NullString
	err := r.db.Conn().QueryRow(`
		SELECT id, name, latitude, longitude, last_updated
		FROM locations WHERE id = ?`, locationID).
		Scan(&loc.ID, &loc.Name, &loc.Latitude, &loc.Longitude, &lastUpdated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query location %d: %w", locationID, err)
	}

	if lastUpdated.Valid {
		if ts, perr := time.Parse(time.RFC3339, lastUpdated.String); perr == nil {
			loc.LastUpdated = &ts
		}
	}

	sensors, err := r.SensorsForLocation(locationID)
	if err != nil {
		return nil, err
	}
	loc.Sensors = sensors
	return &loc, nil
}

// Stats returns counts of locations, sensors and relationships, plus the
// average sensor count per location rounded to 2 decimals (0 with no
// locations linked).
func (r *LocationRepository) Stats() (*models.StoreStats, error) {
	stats := &models.StoreStats{}
	conn := r.db.Conn()

	if err := conn.QueryRow(`SELECT COUNT(*) FROM locations`).Scan(&stats.LocationCount); err != nil {
		return nil, fmt.Errorf("failed to count locations: %w", err)
	}
	if err := conn.QueryRow(`SELECT COUNT(*) FROM sensors`).Scan(&stats.SensorCount); err != nil {
		return nil, fmt.Errorf("failed to count sensors: %w", err)
	}
	if err := conn.QueryRow(`SELECT COUNT(*) FROM location_sensors`).Scan(&stats.RelationshipCount); err != nil {
		return nil, fmt.Errorf("failed to count relationships: %w", err)
	}

	var avg sql.NullFloat64
	err := conn.QueryRow(`
		SELECT AVG(sensor_count) FROM (
			SELECT COUNT(*) AS sensor_count
			FROM location_sensors
			GROUP BY location_id
		)`).Scan(&avg)
	if err != nil {
		return nil, fmt.Errorf("failed to compute average sensors per location: %w", err)
	}
	if avg.Valid {
		stats.AvgSensorsPerLocation = math.Round(avg.Float64*100) / 100
	}

	return stats, nil
}
