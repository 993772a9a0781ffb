package nemo

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fhs/go-netcdf/netcdf"

	"github.com/anhalab/anhakit/internal/adapter/store"
	"github.com/anhalab/anhakit/internal/adapter/subset"
)

// MaskFileName is the fixed mask resource under the mask directory.
const MaskFileName = "ANHA4_mask.nc"

const maskVarName = "tmask"

// MaskStore serves windows of the run's land/sea mask. The mask resource
// is static, so each depth layer is read once and cached.
type MaskStore struct {
	path string

	mu     sync.RWMutex
	layers map[int][][]float64
}

// NewMaskStore returns a store reading <dir>/ANHA4_mask.nc.
func NewMaskStore(dir string) *MaskStore {
	return &MaskStore{
		path:   filepath.Join(dir, MaskFileName),
		layers: make(map[int][][]float64),
	}
}

// Window returns the mask layer at depth restricted to the index windows.
// Ocean cells hold exactly 1.
func (s *MaskStore) Window(depth int, rows, cols subset.IndexRange) ([][]float64, error) {
	layer, err := s.layer(depth)
	if err != nil {
		return nil, err
	}
	if err := checkWindow(rows, cols, len(layer), len(layer[0])); err != nil {
		return nil, fmt.Errorf("mask %s: %w", s.path, err)
	}

	out := make([][]float64, rows.Len())
	for i := range out {
		src := layer[rows.First+i]
		out[i] = append([]float64(nil), src[cols.First:cols.Last+1]...)
	}
	return out, nil
}

// layer returns the full mask layer for a depth, reading it on first use.
func (s *MaskStore) layer(depth int) ([][]float64, error) {
	s.mu.RLock()
	layer, ok := s.layers[depth]
	s.mu.RUnlock()
	if ok {
		return layer, nil
	}

	layer, err := s.readLayer(depth)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.layers[depth] = layer
	s.mu.Unlock()
	return layer, nil
}

// readLayer reads tmask at the first time instant and the given depth. The
// variable is laid out [time][depth][row][col], or [depth][row][col] in
// stripped-down mask files.
func (s *MaskStore) readLayer(depth int) ([][]float64, error) {
	nc, err := netcdf.OpenFile(s.path, netcdf.NOWRITE)
	if err != nil {
		return nil, &store.ReadError{Path: s.path, Err: err}
	}
	defer func() { _ = nc.Close() }()

	v, err := nc.Var(maskVarName)
	if err != nil {
		return nil, &store.ReadError{Path: s.path, Err: fmt.Errorf("variable %q not found: %w", maskVarName, err)}
	}
	dims, err := v.Dims()
	if err != nil {
		return nil, &store.ReadError{Path: s.path, Err: err}
	}
	lens, err := dimLens(dims)
	if err != nil {
		return nil, &store.ReadError{Path: s.path, Err: err}
	}

	var nDepth, nRow, nCol int
	switch len(lens) {
	case 4:
		nDepth, nRow, nCol = lens[1], lens[2], lens[3]
	case 3:
		nDepth, nRow, nCol = lens[0], lens[1], lens[2]
	default:
		return nil, &store.ReadError{
			Path: s.path,
			Err:  fmt.Errorf("variable %q has rank %d, want 3 or 4", maskVarName, len(lens)),
		}
	}
	if depth < 0 || depth >= nDepth {
		return nil, &store.DepthError{Depth: depth, Extent: nDepth}
	}

	total := 1
	for _, n := range lens {
		total *= n
	}
	flat, err := readFloats(v, total)
	if err != nil {
		return nil, &store.ReadError{Path: s.path, Err: fmt.Errorf("reading %q: %w", maskVarName, err)}
	}

	layerOff := depth * nRow * nCol // time index 0 when present
	layer := make([][]float64, nRow)
	for i := 0; i < nRow; i++ {
		start := layerOff + i*nCol
		layer[i] = append([]float64(nil), flat[start:start+nCol]...)
	}
	return layer, nil
}
