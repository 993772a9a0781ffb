// Package subset turns geographic bounding boxes into index windows on the
// model's curvilinear grid.
package subset

import "fmt"

// Range is a (min, max) interval in degrees.
type Range struct {
	Min float64
	Max float64
}

// Validate checks that the interval is non-empty.
func (r Range) Validate(axis string) error {
	if r.Min >= r.Max {
		return fmt.Errorf("%s range: min %.4f must be below max %.4f", axis, r.Min, r.Max)
	}
	return nil
}

// Contains reports whether v lies strictly inside the interval. Cells
// sitting exactly on a box edge stay out.
func (r Range) Contains(v float64) bool {
	return r.Min < v && v < r.Max
}

// IndexRange is an inclusive [First, Last] index window.
type IndexRange struct {
	First int
	Last  int
}

// Len returns the number of indexes in the window.
func (r IndexRange) Len() int {
	return r.Last - r.First + 1
}

// Validate checks that the window is non-empty and non-negative.
func (r IndexRange) Validate(axis string) error {
	if r.First < 0 || r.Last < r.First {
		return fmt.Errorf("%s index range [%d, %d] is empty or negative", axis, r.First, r.Last)
	}
	return nil
}

// EmptyRegionError reports a bounding box that selects no grid cell.
type EmptyRegionError struct {
	Lat Range
	Lon Range
}

func (e *EmptyRegionError) Error() string {
	return fmt.Sprintf("no grid cells inside lat (%.4f, %.4f), lon (%.4f, %.4f)",
		e.Lat.Min, e.Lat.Max, e.Lon.Min, e.Lon.Max)
}

// IndexRanges resolves a geographic box against per-cell coordinate grids.
// A cell qualifies when both its latitude and longitude fall strictly
// inside the box; the row window spans the first to the last row holding
// any qualifying cell, and likewise for columns. On the model's curvilinear
// grid the qualifying cells form one contiguous band per axis, so the
// spanned window is a close fit; on a strongly distorted grid it can
// include cells outside the box.
func IndexRanges(lat, lon [][]float64, latR, lonR Range) (rows, cols IndexRange, err error) {
	if err := latR.Validate("latitude"); err != nil {
		return rows, cols, err
	}
	if err := lonR.Validate("longitude"); err != nil {
		return rows, cols, err
	}
	if len(lat) == 0 || len(lat[0]) == 0 {
		return rows, cols, fmt.Errorf("empty coordinate grid")
	}
	if len(lon) != len(lat) {
		return rows, cols, fmt.Errorf("coordinate grids differ: %d lat rows, %d lon rows", len(lat), len(lon))
	}

	rowHit := make([]bool, len(lat))
	colHit := make([]bool, len(lat[0]))
	for i := range lat {
		if len(lon[i]) != len(lat[i]) {
			return rows, cols, fmt.Errorf("coordinate grids differ at row %d: %d lat cols, %d lon cols",
				i, len(lat[i]), len(lon[i]))
		}
		for j := range lat[i] {
			if latR.Contains(lat[i][j]) && lonR.Contains(lon[i][j]) {
				rowHit[i] = true
				colHit[j] = true
			}
		}
	}

	rows, ok := span(rowHit)
	if !ok {
		return rows, cols, &EmptyRegionError{Lat: latR, Lon: lonR}
	}
	cols, ok = span(colHit)
	if !ok {
		return rows, cols, &EmptyRegionError{Lat: latR, Lon: lonR}
	}
	return rows, cols, nil
}

// span returns the window from the first to the last true index.
func span(hits []bool) (IndexRange, bool) {
	first, last := -1, -1
	for i, h := range hits {
		if !h {
			continue
		}
		if first == -1 {
			first = i
		}
		last = i
	}
	if first == -1 {
		return IndexRange{}, false
	}
	return IndexRange{First: first, Last: last}, true
}

// Selection is a spatial window given either geographically or, when the
// caller already knows the grid indexes, as raw index windows.
type Selection struct {
	Lat Range
	Lon Range

	// Rows and Cols bypass geographic resolution when both are set.
	Rows *IndexRange
	Cols *IndexRange
}

// Bypass reports whether the selection carries raw index windows.
func (s Selection) Bypass() bool {
	return s.Rows != nil && s.Cols != nil
}

// Resolve returns the index windows for the selection. Raw windows pass
// through after validation; otherwise the geographic box is resolved
// against the coordinate grids.
func (s Selection) Resolve(lat, lon [][]float64) (rows, cols IndexRange, err error) {
	if s.Bypass() {
		rows, cols = *s.Rows, *s.Cols
		if err := rows.Validate("row"); err != nil {
			return rows, cols, err
		}
		if err := cols.Validate("column"); err != nil {
			return rows, cols, err
		}
		return rows, cols, nil
	}
	return IndexRanges(lat, lon, s.Lat, s.Lon)
}
