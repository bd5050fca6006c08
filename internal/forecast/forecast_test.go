package forecast

import (
	"math"
	"testing"
	"time"

	"github.com/Teasotea/air-quality-map/internal/models"
)

var origin = time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

func makeSeries(values []float64) models.ParameterSeries {
	points := make([]models.SeriesPoint, len(values))
	for i, v := range values {
		points[i] = models.SeriesPoint{
			Timestamp: origin.Add(time.Duration(i) * time.Hour),
			Value:     v,
		}
	}
	return models.ParameterSeries{Parameter: "pm25", Unit: "µg/m³", Points: points}
}

func TestForecastInsufficientData(t *testing.T) {
	e := NewEngine()

	nine := make([]float64, 9)
	for i := range nine {
		nine[i] = 10
	}
	if got := e.Forecast(makeSeries(nine)); got != nil {
		t.Error("9 points should yield no prediction")
	}

	ten := make([]float64, 10)
	for i := range ten {
		ten[i] = 10
	}
	if got := e.Forecast(makeSeries(ten)); got == nil {
		t.Error("10 points is the minimum that may yield a prediction")
	}
}

func TestForecastHorizonShape(t *testing.T) {
	e := NewEngine()

	values := make([]float64, 48)
	for i := range values {
		values[i] = 10 + 3*math.Sin(2*math.Pi*float64(i)/24)
	}
	s := makeSeries(values)

	pred := e.Forecast(s)
	if pred == nil {
		t.Fatal("expected a prediction")
	}

	if pred.ForecastHours != DefaultHorizonHours {
		t.Errorf("ForecastHours = %d, want %d", pred.ForecastHours, DefaultHorizonHours)
	}
	if len(pred.Predictions) != DefaultHorizonHours {
		t.Fatalf("got %d prediction points, want %d", len(pred.Predictions), DefaultHorizonHours)
	}
	if pred.TrainingDataPoints != len(values) {
		t.Errorf("TrainingDataPoints = %d, want %d", pred.TrainingDataPoints, len(values))
	}
	if pred.ConfidenceInterval != DefaultConfidence {
		t.Errorf("ConfidenceInterval = %v, want %v", pred.ConfidenceInterval, DefaultConfidence)
	}

	// Hourly spacing, starting one hour after the last observation
	last := s.Points[len(s.Points)-1].Timestamp
	for i, p := range pred.Predictions {
		want := last.Add(time.Duration(i+1) * time.Hour)
		if !p.Timestamp.Equal(want) {
			t.Fatalf("prediction %d at %v, want %v", i, p.Timestamp, want)
		}
	}
}

func TestForecastNonNegativity(t *testing.T) {
	e := NewEngine()

	// Steep decline: a plain linear extrapolation would go well below zero
	values := make([]float64, 24)
	for i := range values {
		values[i] = math.Max(0, 50-float64(i)*4)
	}

	pred := e.Forecast(makeSeries(values))
	if pred == nil {
		t.Fatal("expected a prediction")
	}

	for _, p := range pred.Predictions {
		if p.PredictedValue < 0 {
			t.Errorf("predicted value %v is negative", p.PredictedValue)
		}
		if p.LowerBound == nil || p.UpperBound == nil {
			t.Fatal("bounds missing")
		}
		if *p.LowerBound < 0 || *p.UpperBound < 0 {
			t.Errorf("bounds (%v, %v) contain a negative", *p.LowerBound, *p.UpperBound)
		}
	}
}

func TestForecastConstantSeries(t *testing.T) {
	e := NewEngine()

	values := make([]float64, 30)
	for i := range values {
		values[i] = 7.5
	}

	pred := e.Forecast(makeSeries(values))
	if pred == nil {
		t.Fatal("constant series of 30 points must yield a prediction")
	}

	for _, p := range pred.Predictions {
		if math.Abs(p.PredictedValue-7.5) > 1.0 {
			t.Errorf("constant series predicted %v, want close to 7.5", p.PredictedValue)
		}
		if *p.LowerBound > p.PredictedValue || *p.UpperBound < p.PredictedValue {
			t.Errorf("bounds (%v, %v) do not bracket %v", *p.LowerBound, *p.UpperBound, p.PredictedValue)
		}
	}
}

func TestForecastBoundsOrderAndRounding(t *testing.T) {
	e := NewEngine()

	values := make([]float64, 72)
	for i := range values {
		values[i] = 20 + 5*math.Sin(2*math.Pi*float64(i)/24) + float64(i%3)
	}

	pred := e.Forecast(makeSeries(values))
	if pred == nil {
		t.Fatal("expected a prediction")
	}

	for _, p := range pred.Predictions {
		if *p.LowerBound > *p.UpperBound {
			t.Errorf("lower bound %v above upper bound %v", *p.LowerBound, *p.UpperBound)
		}
		for _, v := range []float64{p.PredictedValue, *p.LowerBound, *p.UpperBound} {
			if math.Abs(v*1000-math.Round(v*1000)) > 1e-9 {
				t.Errorf("value %v not rounded to 3 decimals", v)
			}
		}
	}
}

func TestForecastTracksDailySeasonality(t *testing.T) {
	e := NewEngine()

	// A full week of a clean 24h cycle: the forecast for the next day
	// should reproduce the cycle's phase, peaks near hour 6, troughs
	// near hour 18.
	values := make([]float64, 168)
	for i := range values {
		values[i] = 30 + 10*math.Sin(2*math.Pi*float64(i)/24)
	}

	pred := e.Forecast(makeSeries(values))
	if pred == nil {
		t.Fatal("expected a prediction")
	}

	var peak, trough float64
	for _, p := range pred.Predictions {
		h := p.Timestamp.Sub(origin).Hours()
		phase := math.Mod(h, 24)
		if phase == 6 {
			peak = p.PredictedValue
		}
		if phase == 18 {
			trough = p.PredictedValue
		}
	}
	if peak <= trough {
		t.Errorf("daily seasonality not captured: peak %v <= trough %v", peak, trough)
	}
}

func TestForecastCustomHorizon(t *testing.T) {
	e := &Engine{HorizonHours: 6, Confidence: 0.9}

	values := make([]float64, 24)
	for i := range values {
		values[i] = float64(10 + i%4)
	}

	pred := e.Forecast(makeSeries(values))
	if pred == nil {
		t.Fatal("expected a prediction")
	}
	if len(pred.Predictions) != 6 {
		t.Errorf("got %d points, want 6", len(pred.Predictions))
	}
	if pred.ConfidenceInterval != 0.9 {
		t.Errorf("ConfidenceInterval = %v, want 0.9", pred.ConfidenceInterval)
	}
}
