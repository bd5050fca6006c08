package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Teasotea/air-quality-map/internal/forecast"
	"github.com/Teasotea/air-quality-map/internal/models"
	"github.com/Teasotea/air-quality-map/internal/repository"
	"github.com/Teasotea/air-quality-map/internal/series"
)

const (
	// defaultLookback is the measurement window used when the caller
	// does not supply one
	defaultLookback = 24 * time.Hour

	// defaultFetchLimit caps measurements requested per sensor
	defaultFetchLimit = 100

	// fetchWorkers bounds concurrent per-sensor measurement fetches
	fetchWorkers = 4
)

// MeasurementProvider lists raw measurements for one sensor in a window
type MeasurementProvider interface {
	ListMeasurements(ctx context.Context, sensor models.Sensor, from, to time.Time, limit int) ([]models.MeasurementSample, error)
}

// GroundService answers "current + forecasted pollutant values for
// location X" by combining stored sensors, fresh provider measurements
// and the forecast engine
type GroundService struct {
	repo     *repository.LocationRepository
	provider MeasurementProvider
	engine   *forecast.Engine

	fetchLimit int
}

// NewGroundService creates a new ground-data service
func NewGroundService(repo *repository.LocationRepository, provider MeasurementProvider, engine *forecast.Engine) *GroundService {
	return &GroundService{
		repo:       repo,
		provider:   provider,
		engine:     engine,
		fetchLimit: defaultFetchLimit,
	}
}

// GetGroundData aggregates the latest reading per pollutant parameter for
// a location, attaching a forecast per parameter when requested. The
// window defaults to the last 24 hours. A location with no stored sensors
// yields an empty parameter map and an explanatory message. A sensor
// whose fetch fails is logged and skipped; only a store read failure
// aborts the call.
func (s *GroundService) GetGroundData(ctx context.Context, locationID int64, from, to *time.Time, includePredictions bool) (*models.GroundData, error) {
	now := time.Now().UTC()
	windowTo := now
	if to != nil {
		windowTo = to.UTC()
	}
	windowFrom := windowTo.Add(-defaultLookback)
	if from != nil {
		windowFrom = from.UTC()
	}

	result := &models.GroundData{
		Source:       "OpenAQ",
		LocationID:   locationID,
		Parameters:   map[string]models.ParameterReading{},
		DatetimeFrom: windowFrom,
		DatetimeTo:   windowTo,
	}

	sensors, err := s.repo.SensorsForLocation(locationID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve sensors for location %d: %w", locationID, err)
	}
	result.SensorsCount = len(sensors)

	if len(sensors) == 0 {
		result.Message = fmt.Sprintf("No sensors found for location ID %d", locationID)
		return result, nil
	}

	raw := s.fetchMeasurements(ctx, sensors, windowFrom, windowTo)

	for param, data := range series.Build(raw) {
		reading := models.ParameterReading{
			Value:      data.Latest.Value,
			Unit:       data.Latest.Unit,
			SensorID:   data.Latest.SensorID,
			SensorName: data.Latest.SensorName,
			Timestamp:  data.Latest.Timestamp,
		}
		if includePredictions {
			reading.Prediction = s.engine.Forecast(data.Cleaned)
		}
		result.Parameters[param] = reading
	}
	result.MeasurementsFound = len(result.Parameters)

	if len(result.Parameters) == 0 {
		result.Message = fmt.Sprintf("No measurements found for location ID %d in the requested window", locationID)
	}

	return result, nil
}

// fetchMeasurements queries each sensor through a bounded worker pool.
// Failures are per-sensor: logged, skipped, never fatal.
func (s *GroundService) fetchMeasurements(ctx context.Context, sensors []models.Sensor, from, to time.Time) []models.MeasurementSample {
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		raw []models.MeasurementSample
	)

	jobs := make(chan models.Sensor)

	workers := fetchWorkers
	if len(sensors) < workers {
		workers = len(sensors)
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sensor := range jobs {
				samples, err := s.provider.ListMeasurements(ctx, sensor, from, to, s.fetchLimit)
				if err != nil {
					log.Printf("[GroundService] measurements fetch failed for sensor %d (%s): %v",
						sensor.ID, sensor.Name, err)
					continue
				}
				mu.Lock()
				raw = append(raw, samples...)
				mu.Unlock()
			}
		}()
	}

	for _, sensor := range sensors {
		jobs <- sensor
	}
	close(jobs)
	wg.Wait()

	return raw
}
