package models

import "time"

// PredictionPoint is a single forecasted value with its uncertainty bounds.
// Values and bounds are never negative.
type PredictionPoint struct {
	Timestamp      time.Time `json:"timestamp"`
	PredictedValue float64   `json:"predictedValue"`
	LowerBound     *float64  `json:"lowerBound,omitempty"`
	UpperBound     *float64  `json:"upperBound,omitempty"`
}

// ParameterPrediction is a fixed-horizon hourly forecast for one pollutant
// parameter at one location
type ParameterPrediction struct {
	ParameterName      string            `json:"parameterName"`
	Unit               string            `json:"unit"`
	ModelType          string            `json:"modelType"`
	ForecastHours      int               `json:"forecastHours"`
	Predictions        []PredictionPoint `json:"predictions"`
	ConfidenceInterval float64           `json:"confidenceInterval"`
	TrainingDataPoints int               `json:"trainingDataPoints"`
}
