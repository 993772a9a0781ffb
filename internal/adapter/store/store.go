package store

import "github.com/anhalab/anhakit/internal/adapter/subset"

// Dataset is one open simulation output file.
type Dataset interface {
	// Coords returns the per-cell latitude and longitude grids matching
	// the file's grid tag ("T", "U", "V").
	Coords(grid string) (lat, lon [][]float64, err error)

	// ReadLayer reads one depth layer of the named variable at the first
	// time instant, restricted to the row and column windows. Cells
	// holding the variable's fill value come back as NaN.
	ReadLayer(varName string, depth int, rows, cols subset.IndexRange) ([][]float64, error)

	// Close releases the underlying file handle.
	Close() error
}

// Opener opens simulation output files by path.
type Opener interface {
	Open(path string) (Dataset, error)
}

// MaskSource serves land/sea mask windows per depth layer. A cell is ocean
// iff its mask value is exactly 1.
type MaskSource interface {
	Window(depth int, rows, cols subset.IndexRange) ([][]float64, error)
}
