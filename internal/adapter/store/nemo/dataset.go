// Package nemo reads NEMO model output and mask files in NetCDF format.
package nemo

import (
	"fmt"
	"math"

	"github.com/fhs/go-netcdf/netcdf"

	"github.com/anhalab/anhakit/internal/adapter/store"
	"github.com/anhalab/anhakit/internal/adapter/subset"
)

// Opener opens NEMO NetCDF files as store.Dataset values.
type Opener struct{}

// Open opens one output file read-only.
func (Opener) Open(path string) (store.Dataset, error) {
	nc, err := netcdf.OpenFile(path, netcdf.NOWRITE)
	if err != nil {
		return nil, &store.ReadError{Path: path, Err: err}
	}
	return &Dataset{path: path, nc: nc}, nil
}

// Dataset is one open NEMO output file.
type Dataset struct {
	path string
	nc   netcdf.Dataset
}

// Close releases the file handle.
func (d *Dataset) Close() error {
	return d.nc.Close()
}

// coordCandidates returns the coordinate variable names to try for a grid
// tag. T-grid files carry suffixed coordinate names; other grids usually
// use the plain ones.
func coordCandidates(grid string) (latNames, lonNames []string) {
	if grid == "T" {
		return []string{"nav_lat_grid_T", "nav_lat"}, []string{"nav_lon_grid_T", "nav_lon"}
	}
	return []string{"nav_lat", "nav_lat_grid_" + grid}, []string{"nav_lon", "nav_lon_grid_" + grid}
}

// Coords returns the per-cell coordinate grids for the grid tag.
func (d *Dataset) Coords(grid string) ([][]float64, [][]float64, error) {
	latNames, lonNames := coordCandidates(grid)
	lat, err := d.readCoordGrid(latNames)
	if err != nil {
		return nil, nil, &store.ReadError{Path: d.path, Err: err}
	}
	lon, err := d.readCoordGrid(lonNames)
	if err != nil {
		return nil, nil, &store.ReadError{Path: d.path, Err: err}
	}
	return lat, lon, nil
}

// readCoordGrid reads the first present candidate as a 2-D grid.
func (d *Dataset) readCoordGrid(names []string) ([][]float64, error) {
	for _, name := range names {
		v, err := d.nc.Var(name)
		if err != nil {
			continue
		}
		return read2D(v)
	}
	return nil, fmt.Errorf("no coordinate variable found (tried %v)", names)
}

// ReadLayer reads the named variable at the first time instant and the
// given depth, restricted to the index windows. Variables are laid out
// [time][depth][row][col]; surface-only fields ([time][row][col]) accept
// depth 0. Fill values come back as NaN so masked statistics skip them.
func (d *Dataset) ReadLayer(varName string, depth int, rows, cols subset.IndexRange) ([][]float64, error) {
	v, err := d.nc.Var(varName)
	if err != nil {
		return nil, &store.ReadError{Path: d.path, Err: fmt.Errorf("variable %q not found: %w", varName, err)}
	}

	dims, err := v.Dims()
	if err != nil {
		return nil, &store.ReadError{Path: d.path, Err: fmt.Errorf("dimensions of %q: %w", varName, err)}
	}
	lens, err := dimLens(dims)
	if err != nil {
		return nil, &store.ReadError{Path: d.path, Err: err}
	}

	var nDepth, nRow, nCol int
	switch len(lens) {
	case 4:
		nDepth, nRow, nCol = lens[1], lens[2], lens[3]
	case 3:
		nDepth, nRow, nCol = 1, lens[1], lens[2]
	default:
		return nil, &store.ReadError{
			Path: d.path,
			Err:  fmt.Errorf("variable %q has rank %d, want 3 or 4", varName, len(lens)),
		}
	}

	if depth < 0 || depth >= nDepth {
		return nil, &store.DepthError{Depth: depth, Extent: nDepth}
	}
	if err := checkWindow(rows, cols, nRow, nCol); err != nil {
		return nil, &store.ReadError{Path: d.path, Err: fmt.Errorf("variable %q: %w", varName, err)}
	}

	total := 1
	for _, n := range lens {
		total *= n
	}
	flat, err := readFloats(v, total)
	if err != nil {
		return nil, &store.ReadError{Path: d.path, Err: fmt.Errorf("reading %q: %w", varName, err)}
	}

	fill, hasFill := fillValue(v)
	layerOff := depth * nRow * nCol // time index 0

	out := make([][]float64, rows.Len())
	for i := range out {
		row := make([]float64, cols.Len())
		src := flat[layerOff+(rows.First+i)*nCol+cols.First:]
		for j := range row {
			val := src[j]
			if hasFill && val == fill {
				val = math.NaN()
			}
			row[j] = val
		}
		out[i] = row
	}
	return out, nil
}

// checkWindow verifies the index windows fit the grid shape.
func checkWindow(rows, cols subset.IndexRange, nRow, nCol int) error {
	if err := rows.Validate("row"); err != nil {
		return err
	}
	if err := cols.Validate("column"); err != nil {
		return err
	}
	if rows.Last >= nRow || cols.Last >= nCol {
		return fmt.Errorf("window rows [%d, %d] cols [%d, %d] outside grid %dx%d",
			rows.First, rows.Last, cols.First, cols.Last, nRow, nCol)
	}
	return nil
}

// dimLens collects dimension lengths as ints.
func dimLens(dims []netcdf.Dim) ([]int, error) {
	lens := make([]int, len(dims))
	for i, dim := range dims {
		n, err := dim.Len()
		if err != nil {
			return nil, fmt.Errorf("dimension %d length: %w", i, err)
		}
		lens[i] = int(n)
	}
	return lens, nil
}

// read2D reads a whole 2-D variable.
func read2D(v netcdf.Var) ([][]float64, error) {
	dims, err := v.Dims()
	if err != nil {
		return nil, fmt.Errorf("failed to get dimensions: %w", err)
	}
	if len(dims) != 2 {
		return nil, fmt.Errorf("expected 2D variable, got %dD", len(dims))
	}
	lens, err := dimLens(dims)
	if err != nil {
		return nil, err
	}
	nRow, nCol := lens[0], lens[1]

	flat, err := readFloats(v, nRow*nCol)
	if err != nil {
		return nil, err
	}
	values := make([][]float64, nRow)
	for i := 0; i < nRow; i++ {
		values[i] = flat[i*nCol : (i+1)*nCol]
	}
	return values, nil
}

// readFloats reads a whole variable of total elements as float64,
// converting from the stored type.
func readFloats(v netcdf.Var, total int) ([]float64, error) {
	t, err := v.Type()
	if err != nil {
		return nil, fmt.Errorf("failed to get var type: %w", err)
	}
	switch t {
	case netcdf.DOUBLE:
		data := make([]float64, total)
		if err := v.ReadFloat64s(data); err != nil {
			return nil, err
		}
		return data, nil
	case netcdf.FLOAT:
		tmp := make([]float32, total)
		if err := v.ReadFloat32s(tmp); err != nil {
			return nil, err
		}
		out := make([]float64, total)
		for i, val := range tmp {
			out[i] = float64(val)
		}
		return out, nil
	case netcdf.INT:
		tmp := make([]int32, total)
		if err := v.ReadInt32s(tmp); err != nil {
			return nil, err
		}
		out := make([]float64, total)
		for i, val := range tmp {
			out[i] = float64(val)
		}
		return out, nil
	case netcdf.SHORT:
		tmp := make([]int16, total)
		if err := v.ReadInt16s(tmp); err != nil {
			return nil, err
		}
		out := make([]float64, total)
		for i, val := range tmp {
			out[i] = float64(val)
		}
		return out, nil
	case netcdf.BYTE:
		tmp := make([]int8, total)
		if err := v.ReadInt8s(tmp); err != nil {
			return nil, err
		}
		out := make([]float64, total)
		for i, val := range tmp {
			out[i] = float64(val)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported var type: %v", t)
	}
}

// fillValue returns the _FillValue or missing_value attribute if present.
func fillValue(v netcdf.Var) (float64, bool) {
	for _, name := range []string{"_FillValue", "missing_value"} {
		a := v.Attr(name)
		if a == (netcdf.Attr{}) {
			continue
		}
		if n, err := a.Len(); err != nil || n == 0 {
			continue
		}
		buf64 := make([]float64, 1)
		if err := a.ReadFloat64s(buf64); err == nil {
			return buf64[0], true
		}
		buf32 := make([]float32, 1)
		if err := a.ReadFloat32s(buf32); err == nil {
			return float64(buf32[0]), true
		}
		bufi := make([]int32, 1)
		if err := a.ReadInt32s(bufi); err == nil {
			return float64(bufi[0]), true
		}
	}
	return 0, false
}
