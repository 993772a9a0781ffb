// Package usecase orchestrates the analysis operations: selecting run
// files through the catalog, extracting spatial subsets of model variables,
// and reducing them to statistics, time series and climatology bands.
package usecase

import (
	"fmt"
	"math"
	"sync"

	"github.com/anhalab/anhakit/internal/adapter/catalog"
	"github.com/anhalab/anhakit/internal/adapter/paths"
	"github.com/anhalab/anhakit/internal/adapter/store"
	"github.com/anhalab/anhakit/internal/adapter/subset"
	"github.com/anhalab/anhakit/internal/domain"
)

const dateLayout = "2006-01-02"

// DefaultVariable is the physical variable read when a request names none.
const DefaultVariable = "votemper"

// DefaultYears selects the model years read when a request names none.
var DefaultYears = []string{"1998"}

// MaskProvider builds the mask source serving one mask directory.
type MaskProvider func(dir string) store.MaskSource

// Analysis wires the file catalog, the dataset opener and the mask
// provider into the operations behind the commands and the HTTP API.
type Analysis struct {
	catalog catalog.Catalog
	opener  store.Opener
	newMask MaskProvider

	mu    sync.Mutex
	masks map[string]store.MaskSource
}

// NewAnalysis creates an analysis front around its collaborators.
func NewAnalysis(cat catalog.Catalog, opener store.Opener, masks MaskProvider) *Analysis {
	return &Analysis{
		catalog: cat,
		opener:  opener,
		newMask: masks,
		masks:   make(map[string]store.MaskSource),
	}
}

// Files lists the catalog selection without reading any data.
func (a *Analysis) Files(opts catalog.ListOptions) ([]catalog.File, error) {
	if len(opts.Years) == 0 {
		opts.Years = DefaultYears
	}
	return a.catalog.List(opts)
}

// maskSource returns the mask source for a directory. The mask resource is
// static per run, so sources are kept for the life of the Analysis and
// reused across requests.
func (a *Analysis) maskSource(dir string) store.MaskSource {
	a.mu.Lock()
	defer a.mu.Unlock()
	src, ok := a.masks[dir]
	if !ok {
		src = a.newMask(dir)
		a.masks[dir] = src
	}
	return src
}

// maskDir picks the mask directory: the explicit override when given,
// otherwise the run's resolved mask location.
func (a *Analysis) maskDir(runName, override string) (string, error) {
	if override != "" {
		return override, nil
	}
	p, err := paths.Resolve(runName, a.catalog.Config)
	if err != nil {
		return "", err
	}
	return p.Mask, nil
}

// Window selects the spatial subset of a request: a named region, an
// explicit geographic box, or raw grid index windows. The forms are
// mutually exclusive; with none given the Hudson Bay box applies.
type Window struct {
	Region   string
	LatRange *subset.Range
	LonRange *subset.Range
	Rows     *subset.IndexRange
	Cols     *subset.IndexRange
}

// selection resolves the window into a subset.Selection.
func (w Window) selection() (subset.Selection, error) {
	hasGeo := w.LatRange != nil || w.LonRange != nil
	hasIdx := w.Rows != nil || w.Cols != nil

	if w.Region != "" {
		if hasGeo || hasIdx {
			return subset.Selection{}, fmt.Errorf("region and explicit ranges are mutually exclusive")
		}
		r, ok := domain.RegionByName(w.Region)
		if !ok {
			return subset.Selection{}, fmt.Errorf("unknown region %q", w.Region)
		}
		return regionSelection(r), nil
	}

	switch {
	case hasGeo && hasIdx:
		return subset.Selection{}, fmt.Errorf("lat/lon ranges and row/col windows are mutually exclusive")
	case hasIdx:
		if w.Rows == nil || w.Cols == nil {
			return subset.Selection{}, fmt.Errorf("row and column windows must be given together")
		}
		return subset.Selection{Rows: w.Rows, Cols: w.Cols}, nil
	case hasGeo:
		if w.LatRange == nil || w.LonRange == nil {
			return subset.Selection{}, fmt.Errorf("latitude and longitude ranges must be given together")
		}
		return subset.Selection{Lat: *w.LatRange, Lon: *w.LonRange}, nil
	default:
		return regionSelection(domain.HudsonBay), nil
	}
}

// regionSelection turns a named region into a geographic selection.
func regionSelection(r domain.Region) subset.Selection {
	south, north := r.LatRange()
	west, east := r.LonRange()
	return subset.Selection{
		Lat: subset.Range{Min: south, Max: north},
		Lon: subset.Range{Min: west, Max: east},
	}
}

// extraction carries the resolved per-file read parameters shared by the
// stats and time-series operations.
type extraction struct {
	sel      subset.Selection
	grid     string
	variable string
	depth    int
	masks    store.MaskSource // nil disables masking
}

// extractField opens one snapshot file and returns the variable's window
// at the extraction depth, land cells set to NaN when a mask is attached.
func (a *Analysis) extractField(path string, x extraction) (domain.Field, error) {
	ds, err := a.opener.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = ds.Close() }()

	var lat, lon [][]float64
	if !x.sel.Bypass() {
		if lat, lon, err = ds.Coords(x.grid); err != nil {
			return nil, err
		}
	}
	rows, cols, err := x.sel.Resolve(lat, lon)
	if err != nil {
		return nil, err
	}

	vals, err := ds.ReadLayer(x.variable, x.depth, rows, cols)
	if err != nil {
		return nil, err
	}
	field := domain.Field(vals)

	if x.masks != nil {
		mask, err := x.masks.Window(x.depth, rows, cols)
		if err != nil {
			return nil, err
		}
		if err := field.ApplyMask(mask); err != nil {
			return nil, err
		}
	}
	return field, nil
}

// StatsRequest asks for the spatial statistics of one snapshot file.
type StatsRequest struct {
	// File is the path of the snapshot to read, usually taken from a
	// catalog listing.
	File string

	// RunName resolves the mask directory when masking is on and
	// MaskPath is empty.
	RunName string

	Window

	// Grid tags the coordinate variables to read; "T" when empty.
	Grid string

	// Depth is the zero-based vertical layer index.
	Depth int

	// Variable names the physical variable; votemper when empty.
	Variable string

	// Masked applies the land/sea mask; on when nil.
	Masked *bool

	// MinMax adds the spatial minimum and maximum to the reduction.
	MinMax bool

	// MaskPath overrides run-name resolution of the mask directory.
	MaskPath string
}

func (r StatsRequest) withDefaults() StatsRequest {
	if r.Grid == "" {
		r.Grid = "T"
	}
	if r.Variable == "" {
		r.Variable = DefaultVariable
	}
	return r
}

func (r StatsRequest) masked() bool {
	return r.Masked == nil || *r.Masked
}

// Validate checks if the request is valid.
func (r StatsRequest) Validate() error {
	if r.File == "" {
		return fmt.Errorf("file is required")
	}
	if r.Depth < 0 {
		return fmt.Errorf("depth must not be negative")
	}
	if _, err := r.selection(); err != nil {
		return err
	}
	return nil
}

// StatsResponse is the spatial reduction of one snapshot. Statistics are
// null when the window holds no ocean cell at the requested depth.
type StatsResponse struct {
	File     string   `json:"file"`
	Date     string   `json:"date,omitempty"`
	Variable string   `json:"variable"`
	Grid     string   `json:"grid"`
	Depth    int      `json:"depth"`
	Masked   bool     `json:"masked"`
	Mean     *float64 `json:"mean"`
	Std      *float64 `json:"std"`
	Min      *float64 `json:"min,omitempty"`
	Max      *float64 `json:"max,omitempty"`
}

// Stats extracts one snapshot's spatial window and reduces it.
func (a *Analysis) Stats(req StatsRequest) (*StatsResponse, error) {
	req = req.withDefaults()
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	sel, _ := req.selection()

	x := extraction{sel: sel, grid: req.Grid, variable: req.Variable, depth: req.Depth}
	if req.masked() {
		dir, err := a.maskDir(req.RunName, req.MaskPath)
		if err != nil {
			return nil, err
		}
		x.masks = a.maskSource(dir)
	}

	field, err := a.extractField(req.File, x)
	if err != nil {
		return nil, err
	}
	s := domain.FieldStats(field, req.MinMax)

	resp := &StatsResponse{
		File:     req.File,
		Variable: req.Variable,
		Grid:     req.Grid,
		Depth:    req.Depth,
		Masked:   req.masked(),
		Mean:     jsonNumber(s.Mean),
		Std:      jsonNumber(s.Std),
	}
	if req.MinMax {
		resp.Min = jsonNumber(s.Min)
		resp.Max = jsonNumber(s.Max)
	}
	if f, err := catalog.ParseFile(req.File); err == nil {
		resp.Date = f.Date().Format(dateLayout)
	}
	return resp, nil
}

// jsonNumber returns nil for NaN so the value encodes to JSON as null
// instead of failing to marshal.
func jsonNumber(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}
