// Package series turns raw per-sensor pollutant samples into cleaned,
// time-ordered series suitable for forecasting, while preserving the most
// recent observed reading per parameter.
package series

import (
	"math"
	"sort"
	"time"

	"github.com/Teasotea/air-quality-map/internal/models"
	"github.com/Teasotea/air-quality-map/internal/stats"
)

// iqrFactor is the standard Tukey fence multiplier
const iqrFactor = 1.5

// minSamplesForFiltering is the smallest group size for which the IQR
// spread estimate is meaningful; below it all samples pass through.
const minSamplesForFiltering = 3

// ParameterData holds, for one pollutant parameter, the latest raw
// observation and the cleaned series used for forecasting. Latest is
// taken before outlier filtering: the current reading reports what was
// actually observed, while the forecaster trains on cleaned history.
type ParameterData struct {
	Parameter string
	Unit      string
	Latest    models.MeasurementSample
	Cleaned   models.ParameterSeries
}

// Build groups raw samples by parameter name and produces per-parameter
// data: samples are deduplicated by timestamp (first seen wins), sorted
// ascending, and outliers outside the Tukey fences are dropped from the
// cleaned series. Parameters with no samples in the window are absent
// from the result.
func Build(raw []models.MeasurementSample) map[string]*ParameterData {
	result := make(map[string]*ParameterData)
	if len(raw) == 0 {
		return result
	}

	groups := make(map[string][]models.MeasurementSample)
	for _, s := range raw {
		if s.Parameter == "" || s.Unit == "" || s.Timestamp.IsZero() {
			// Malformed sample; skip it rather than poisoning the group.
			continue
		}
		groups[s.Parameter] = append(groups[s.Parameter], s)
	}

	for param, samples := range groups {
		deduped := dedupeByTimestamp(samples)

		latest := deduped[0]
		for _, s := range deduped[1:] {
			if s.Timestamp.After(latest.Timestamp) {
				latest = s
			}
		}

		cleaned := rejectOutliers(deduped)

		points := make([]models.SeriesPoint, len(cleaned))
		for i, s := range cleaned {
			points[i] = models.SeriesPoint{Timestamp: s.Timestamp, Value: s.Value}
		}

		result[param] = &ParameterData{
			Parameter: param,
			Unit:      latest.Unit,
			Latest:    latest,
			Cleaned: models.ParameterSeries{
				Parameter: param,
				Unit:      latest.Unit,
				Points:    points,
			},
		}
	}

	return result
}

// dedupeByTimestamp sorts samples ascending by timestamp and collapses
// duplicate timestamps, keeping the first sample seen for each instant.
// The sort is stable so the collapse is deterministic for a given input
// order.
func dedupeByTimestamp(samples []models.MeasurementSample) []models.MeasurementSample {
	sorted := make([]models.MeasurementSample, len(samples))
	copy(sorted, samples)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	deduped := sorted[:0]
	var prev time.Time
	for i, s := range sorted {
		if i > 0 && s.Timestamp.Equal(prev) {
			continue
		}
		deduped = append(deduped, s)
		prev = s.Timestamp
	}
	return deduped
}

// rejectOutliers drops samples outside the Tukey fences
// [max(0, Q1-1.5*IQR), Q3+1.5*IQR]. With fewer than 3 samples there is
// no usable spread estimate and everything passes through.
func rejectOutliers(samples []models.MeasurementSample) []models.MeasurementSample {
	if len(samples) < minSamplesForFiltering {
		return samples
	}

	values := make([]float64, len(samples))
	for i, s := range samples {
		values[i] = s.Value
	}

	q1, q3 := stats.Quartiles(values)
	iqr := q3 - q1
	lower := math.Max(0, q1-iqrFactor*iqr)
	upper := q3 + iqrFactor*iqr

	kept := make([]models.MeasurementSample, 0, len(samples))
	for _, s := range samples {
		if s.Value >= lower && s.Value <= upper {
			kept = append(kept, s)
		}
	}
	return kept
}
