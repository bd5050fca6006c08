package models

import "time"

// MeasurementSample is a single raw pollutant reading reported by a sensor.
// Parameter name and unit travel with each sample as the provider returns them.
type MeasurementSample struct {
	SensorID   int64     `json:"sensorId"`
	SensorName string    `json:"sensorName"`
	Parameter  string    `json:"parameter"`
	Unit       string    `json:"unit"`
	Value      float64   `json:"value"`
	Timestamp  time.Time `json:"timestamp"`
}

// SeriesPoint is one (timestamp, value) observation of a cleaned series
type SeriesPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// ParameterSeries is a cleaned, strictly time-ascending series for one
// pollutant parameter. Input to the forecast engine.
type ParameterSeries struct {
	Parameter string        `json:"parameter"`
	Unit      string        `json:"unit"`
	Points    []SeriesPoint `json:"points"`
}

// ParameterReading is the latest observed value for one parameter at a
// location, optionally carrying a forecast for that parameter.
type ParameterReading struct {
	Value      float64              `json:"value"`
	Unit       string               `json:"unit"`
	SensorID   int64                `json:"sensorId"`
	SensorName string               `json:"sensorName"`
	Timestamp  time.Time            `json:"timestamp"`
	Prediction *ParameterPrediction `json:"prediction,omitempty"`
}

// GroundData is the aggregated answer for "current + forecasted pollutant
// values at location X". Always well-formed; absence of data is reported
// through an empty Parameters map and a Message, never an error.
type GroundData struct {
	Source            string                      `json:"source"`
	LocationID        int64                       `json:"locationId"`
	Parameters        map[string]ParameterReading `json:"parameters"`
	DatetimeFrom      time.Time                   `json:"datetimeFrom"`
	DatetimeTo        time.Time                   `json:"datetimeTo"`
	SensorsCount      int                         `json:"sensorsCount"`
	MeasurementsFound int                         `json:"measurementsFound"`
	Message           string                      `json:"message,omitempty"`
}

// GroundDataFilter represents query parameters for a ground-data request
type GroundDataFilter struct {
	From        string `form:"from"`
	To          string `form:"to"`
	Predictions *bool  `form:"predictions"`
}
