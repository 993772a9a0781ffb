package domain

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Field is a 2-D spatial slice of one physical variable: one depth layer,
// one time instant, one lat/lon window. Cells outside the land/sea mask
// hold NaN so the window shape is preserved.
type Field [][]float64

// Stats holds the spatial summary of a Field. Min and Max are populated
// only when requested; all four values are NaN for an all-missing field.
type Stats struct {
	Mean float64
	Std  float64
	Min  float64
	Max  float64
}

// FieldStats reduces a field to its spatial statistics, ignoring missing
// (NaN) cells. Std is the population standard deviation. A field with no
// valid cells is a legitimate outcome (a bounding box with no ocean at the
// requested depth) and yields NaN statistics rather than an error.
func FieldStats(f Field, withMinMax bool) Stats {
	s := Stats{Mean: math.NaN(), Std: math.NaN(), Min: math.NaN(), Max: math.NaN()}
	vals := f.validValues()
	if len(vals) == 0 {
		return s
	}
	s.Mean = stat.Mean(vals, nil)
	s.Std = stat.PopStdDev(vals, nil)
	if withMinMax {
		s.Min = floats.Min(vals)
		s.Max = floats.Max(vals)
	}
	return s
}

// ApplyMask sets every cell whose mask value is not exactly 1 (ocean) to
// NaN, leaving the field shape unchanged. The mask must match the field's
// shape.
func (f Field) ApplyMask(mask [][]float64) error {
	if len(mask) != len(f) {
		return fmt.Errorf("mask has %d rows, field has %d", len(mask), len(f))
	}
	for i := range f {
		if len(mask[i]) != len(f[i]) {
			return fmt.Errorf("mask row %d has %d cols, field has %d", i, len(mask[i]), len(f[i]))
		}
		for j := range f[i] {
			if mask[i][j] != 1 {
				f[i][j] = math.NaN()
			}
		}
	}
	return nil
}

// validValues flattens the field, dropping NaN cells.
func (f Field) validValues() []float64 {
	n := 0
	for _, row := range f {
		n += len(row)
	}
	vals := make([]float64, 0, n)
	for _, row := range f {
		for _, v := range row {
			if !math.IsNaN(v) {
				vals = append(vals, v)
			}
		}
	}
	return vals
}

// Quantile returns the p-quantile (0 ≤ p ≤ 1) of xs, ignoring NaN values,
// using linear interpolation between order statistics:
//
//	h = p·(n−1),  q = x[⌊h⌋] + (h−⌊h⌋)·(x[⌊h⌋+1] − x[⌊h⌋])
//
// This is the "type 7" definition used by spreadsheet PERCENTILE and the
// numpy/pandas default, kept here so derived thresholds reproduce the
// historical tables. An empty (or all-NaN) input returns NaN.
func Quantile(xs []float64, p float64) float64 {
	vals := dropNaN(xs)
	if len(vals) == 0 || p < 0 || p > 1 {
		return math.NaN()
	}
	sort.Float64s(vals)
	if len(vals) == 1 {
		return vals[0]
	}
	h := p * float64(len(vals)-1)
	lo := int(math.Floor(h))
	if lo >= len(vals)-1 {
		return vals[len(vals)-1]
	}
	frac := h - float64(lo)
	return vals[lo] + frac*(vals[lo+1]-vals[lo])
}

// Median returns the NaN-ignoring median of xs.
func Median(xs []float64) float64 {
	return Quantile(xs, 0.5)
}

func dropNaN(xs []float64) []float64 {
	vals := make([]float64, 0, len(xs))
	for _, v := range xs {
		if !math.IsNaN(v) {
			vals = append(vals, v)
		}
	}
	return vals
}

func nanMean(xs []float64) float64 {
	vals := dropNaN(xs)
	if len(vals) == 0 {
		return math.NaN()
	}
	return stat.Mean(vals, nil)
}

func nanMax(xs []float64) float64 {
	vals := dropNaN(xs)
	if len(vals) == 0 {
		return math.NaN()
	}
	return floats.Max(vals)
}
