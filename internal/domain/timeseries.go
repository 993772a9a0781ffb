package domain

import "time"

// Row is one time-series sample: the spatial statistics of a single model
// snapshot. Min and Max carry values only when the series was built with
// min/max tracking; otherwise they are NaN.
type Row struct {
	Date time.Time
	Mean float64
	Std  float64
	Min  float64
	Max  float64
}

// TimeSeries is an ordered table of per-snapshot statistics. Rows keep the
// order of the files they were built from, one row per file.
type TimeSeries struct {
	HasMinMax bool
	Rows      []Row
}

// Dates returns the sample dates in row order.
func (ts TimeSeries) Dates() []time.Time {
	dates := make([]time.Time, len(ts.Rows))
	for i, r := range ts.Rows {
		dates[i] = r.Date
	}
	return dates
}

// Means returns the per-snapshot spatial means in row order.
func (ts TimeSeries) Means() []float64 {
	means := make([]float64, len(ts.Rows))
	for i, r := range ts.Rows {
		means[i] = r.Mean
	}
	return means
}
