// Package forecast fits a seasonal additive model to a cleaned pollutant
// series and produces short-horizon hourly point forecasts with
// uncertainty bounds.
//
// The model is additive: a linear trend plus daily (24h) and weekly
// (168h) Fourier seasonality, fit by ridge-regularized least squares.
// Trend coefficients are shrunk hard (conservative, smooth trend) while
// seasonal coefficients get a looser prior. Yearly seasonality is left
// out; series never span enough history for it. Uncertainty bounds come
// from the Gaussian residual spread at the requested confidence level.
package forecast

import (
	"math"
	"time"

	"github.com/Teasotea/air-quality-map/internal/models"
	"github.com/Teasotea/air-quality-map/internal/stats"
)

const (
	// MinDataPoints is the minimum number of cleaned observations
	// required to attempt a forecast
	MinDataPoints = 10

	// DefaultHorizonHours is the default forecast horizon
	DefaultHorizonHours = 24

	// DefaultConfidence is the default interval coverage probability
	DefaultConfidence = 0.8

	dailyPeriodHours  = 24.0
	weeklyPeriodHours = 168.0
	dailyOrder        = 4
	weeklyOrder       = 3

	// Regularization strengths, inverse to the prior scales: a small
	// trend prior keeps the slope smooth rather than reactive, the
	// seasonal prior is moderate.
	trendPriorScale    = 0.05
	seasonalPriorScale = 10.0
)

// Engine produces parameter forecasts with a fixed model policy
type Engine struct {
	HorizonHours int
	Confidence   float64
}

// NewEngine creates a forecast engine with the default horizon and
// confidence level
func NewEngine() *Engine {
	return &Engine{
		HorizonHours: DefaultHorizonHours,
		Confidence:   DefaultConfidence,
	}
}

// Forecast fits the seasonal model to a cleaned series and returns hourly
// predictions immediately following the last observation. It returns nil
// (not an error) when the series is too short to train on.
func (e *Engine) Forecast(s models.ParameterSeries) *models.ParameterPrediction {
	if len(s.Points) < MinDataPoints {
		return nil
	}

	horizon := e.HorizonHours
	if horizon <= 0 {
		horizon = DefaultHorizonHours
	}
	confidence := e.Confidence
	if confidence <= 0 || confidence >= 1 {
		confidence = DefaultConfidence
	}

	origin := s.Points[0].Timestamp
	n := len(s.Points)

	y := make([]float64, n)
	X := make([][]float64, n)
	for i, p := range s.Points {
		t := p.Timestamp.Sub(origin).Hours()
		X[i] = features(t)
		y[i] = p.Value
	}

	beta := ridgeFit(X, y)
	if beta == nil {
		return nil
	}

	// Residual spread over the training window drives the interval width
	residuals := make([]float64, n)
	for i := range X {
		residuals[i] = y[i] - dot(X[i], beta)
	}
	sigma := stats.StdDev(residuals)
	z := stats.NormalQuantile(0.5 + confidence/2)

	last := s.Points[n-1].Timestamp
	points := make([]models.PredictionPoint, horizon)
	for h := 1; h <= horizon; h++ {
		ts := last.Add(time.Duration(h) * time.Hour)
		t := ts.Sub(origin).Hours()
		yhat := dot(features(t), beta)

		lower := round3(math.Max(0, yhat-z*sigma))
		upper := round3(math.Max(0, yhat+z*sigma))
		points[h-1] = models.PredictionPoint{
			Timestamp:      ts,
			PredictedValue: round3(math.Max(0, yhat)),
			LowerBound:     &lower,
			UpperBound:     &upper,
		}
	}

	return &models.ParameterPrediction{
		ParameterName:      s.Parameter,
		Unit:               s.Unit,
		ModelType:          "seasonal-additive",
		ForecastHours:      horizon,
		Predictions:        points,
		ConfidenceInterval: confidence,
		TrainingDataPoints: n,
	}
}

// features builds the design row for a point t hours after the series
// origin: intercept, linear trend, then daily and weekly Fourier terms.
func features(t float64) []float64 {
	row := make([]float64, 0, 2+2*dailyOrder+2*weeklyOrder)
	row = append(row, 1, t)
	for k := 1; k <= dailyOrder; k++ {
		omega := 2 * math.Pi * float64(k) * t / dailyPeriodHours
		row = append(row, math.Sin(omega), math.Cos(omega))
	}
	for k := 1; k <= weeklyOrder; k++ {
		omega := 2 * math.Pi * float64(k) * t / weeklyPeriodHours
		row = append(row, math.Sin(omega), math.Cos(omega))
	}
	return row
}

// penalties returns the per-coefficient ridge penalty. The intercept is
// unpenalized; the trend slope is shrunk by the inverse of its prior
// scale, seasonal coefficients by the inverse of theirs.
func penalties(dim int) []float64 {
	lambda := make([]float64, dim)
	lambda[1] = 1 / (trendPriorScale * trendPriorScale)
	for j := 2; j < dim; j++ {
		lambda[j] = 1 / (seasonalPriorScale * seasonalPriorScale)
	}
	return lambda
}

// ridgeFit solves (X'X + diag(lambda)) beta = X'y by Gaussian elimination
// with partial pivoting. Returns nil if the system is singular, which
// cannot happen with the penalized design unless inputs are non-finite.
func ridgeFit(X [][]float64, y []float64) []float64 {
	if len(X) == 0 {
		return nil
	}
	dim := len(X[0])

	// Normal equations
	a := make([][]float64, dim)
	b := make([]float64, dim)
	for j := range a {
		a[j] = make([]float64, dim)
	}
	for i, row := range X {
		for j := 0; j < dim; j++ {
			b[j] += row[j] * y[i]
			for k := 0; k < dim; k++ {
				a[j][k] += row[j] * row[k]
			}
		}
	}
	for j, l := range penalties(dim) {
		a[j][j] += l
	}

	// Gaussian elimination with partial pivoting
	for col := 0; col < dim; col++ {
		pivot := col
		for r := col + 1; r < dim; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(a[pivot][col]) < 1e-12 {
			return nil
		}
		a[col], a[pivot] = a[pivot], a[col]
		b[col], b[pivot] = b[pivot], b[col]

		for r := col + 1; r < dim; r++ {
			f := a[r][col] / a[col][col]
			for k := col; k < dim; k++ {
				a[r][k] -= f * a[col][k]
			}
			b[r] -= f * b[col]
		}
	}

	beta := make([]float64, dim)
	for col := dim - 1; col >= 0; col-- {
		sum := b[col]
		for k := col + 1; k < dim; k++ {
			sum -= a[col][k] * beta[k]
		}
		beta[col] = sum / a[col][col]
	}
	return beta
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
