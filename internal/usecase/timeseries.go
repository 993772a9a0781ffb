package usecase

import (
	"errors"
	"fmt"
	"sync"

	"github.com/anhalab/anhakit/internal/adapter/catalog"
	"github.com/anhalab/anhakit/internal/adapter/store"
	"github.com/anhalab/anhakit/internal/domain"
	"github.com/anhalab/anhakit/internal/log"
)

// TimeSeriesRequest selects the files and the spatial subset of a
// time-series build.
type TimeSeriesRequest struct {
	// RunName identifies the run; feeds path resolution when DataPath or
	// MaskPath are empty.
	RunName string

	// Years to include, in the order their files should be concatenated;
	// ["1998"] when empty.
	Years []string

	// Grid is the grid tag of the files to read; "T" when empty.
	Grid string

	// Months restricts the selection to these calendar months.
	Months []int

	// OnePerMonth keeps only the first file of each year and month.
	OnePerMonth bool

	Window

	// Depth is the zero-based vertical layer index.
	Depth int

	// Variable names the physical variable; votemper when empty.
	Variable string

	// Masked applies the land/sea mask; on when nil.
	Masked *bool

	// MinMax adds the spatial minimum and maximum to every row.
	MinMax bool

	// Workers is the number of files read concurrently; 0 or 1 reads
	// sequentially. Row order equals file order either way.
	Workers int

	// SkipFileErrors downgrades unreadable files to a logged skip. Off by
	// default: one bad file aborts the whole build.
	SkipFileErrors bool

	// DataPath and MaskPath override run-name path resolution.
	DataPath string
	MaskPath string
}

func (r TimeSeriesRequest) withDefaults() TimeSeriesRequest {
	if len(r.Years) == 0 {
		r.Years = DefaultYears
	}
	if r.Grid == "" {
		r.Grid = "T"
	}
	if r.Variable == "" {
		r.Variable = DefaultVariable
	}
	if r.Workers < 1 {
		r.Workers = 1
	}
	return r
}

func (r TimeSeriesRequest) masked() bool {
	return r.Masked == nil || *r.Masked
}

// Validate checks if the request is valid.
func (r TimeSeriesRequest) Validate() error {
	if r.Depth < 0 {
		return fmt.Errorf("depth must not be negative")
	}
	for _, m := range r.Months {
		if m < 1 || m > 12 {
			return fmt.Errorf("month %d out of range", m)
		}
	}
	if _, err := r.selection(); err != nil {
		return err
	}
	return nil
}

// SeriesPoint is one wire-format row of a time series. Statistics are null
// when the row's window held no ocean cell.
type SeriesPoint struct {
	Date string   `json:"date"`
	Mean *float64 `json:"mean"`
	Std  *float64 `json:"std"`
	Min  *float64 `json:"min,omitempty"`
	Max  *float64 `json:"max,omitempty"`
}

// TimeSeriesResponse carries the assembled series: Points is the JSON
// view, Series the raw table for CSV export and climatology banding.
type TimeSeriesResponse struct {
	RunName  string        `json:"run_name,omitempty"`
	Variable string        `json:"variable"`
	Grid     string        `json:"grid"`
	Depth    int           `json:"depth"`
	Masked   bool          `json:"masked"`
	Files    int           `json:"files"`
	Skipped  []string      `json:"skipped,omitempty"`
	Points   []SeriesPoint `json:"points"`

	Series domain.TimeSeries `json:"-"`
}

// TimeSeries builds the per-snapshot statistics table of a run: one row
// per selected file, file order preserved.
func (a *Analysis) TimeSeries(req TimeSeriesRequest) (*TimeSeriesResponse, error) {
	req = req.withDefaults()
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	sel, _ := req.selection()

	files, err := a.catalog.List(catalog.ListOptions{
		RunName:     req.RunName,
		Years:       req.Years,
		Grid:        req.Grid,
		Months:      req.Months,
		OnePerMonth: req.OnePerMonth,
		DataPath:    req.DataPath,
	})
	if err != nil {
		return nil, err
	}

	x := extraction{sel: sel, grid: req.Grid, variable: req.Variable, depth: req.Depth}
	if req.masked() {
		dir, err := a.maskDir(req.RunName, req.MaskPath)
		if err != nil {
			return nil, err
		}
		x.masks = a.maskSource(dir)
	}

	// Each file's row lands in its input slot so concurrent reads cannot
	// reorder the table.
	rows := make([]domain.Row, len(files))
	errs := make([]error, len(files))
	build := func(i int) {
		rows[i], errs[i] = a.snapshotRow(files[i], x, req.MinMax)
	}

	if req.Workers == 1 || len(files) < 2 {
		for i := range files {
			build(i)
		}
	} else {
		jobs := make(chan int)
		var wg sync.WaitGroup
		for w := 0; w < req.Workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range jobs {
					build(i)
				}
			}()
		}
		for i := range files {
			jobs <- i
		}
		close(jobs)
		wg.Wait()
	}

	resp := &TimeSeriesResponse{
		RunName:  req.RunName,
		Variable: req.Variable,
		Grid:     req.Grid,
		Depth:    req.Depth,
		Masked:   req.masked(),
		Files:    len(files),
		Series:   domain.TimeSeries{HasMinMax: req.MinMax},
	}
	for i, err := range errs {
		if err != nil {
			var readErr *store.ReadError
			if req.SkipFileErrors && errors.As(err, &readErr) {
				log.Warnw("skipping unreadable file", "file", files[i].Path, "error", err)
				resp.Skipped = append(resp.Skipped, files[i].Name)
				continue
			}
			return nil, err
		}
		resp.Series.Rows = append(resp.Series.Rows, rows[i])
	}
	resp.Points = seriesPoints(resp.Series)
	return resp, nil
}

// snapshotRow reduces one snapshot file to its time-series row.
func (a *Analysis) snapshotRow(f catalog.File, x extraction, minMax bool) (domain.Row, error) {
	field, err := a.extractField(f.Path, x)
	if err != nil {
		return domain.Row{}, err
	}
	s := domain.FieldStats(field, minMax)
	return domain.Row{Date: f.Date(), Mean: s.Mean, Std: s.Std, Min: s.Min, Max: s.Max}, nil
}

// seriesPoints converts a series to its wire format.
func seriesPoints(ts domain.TimeSeries) []SeriesPoint {
	pts := make([]SeriesPoint, len(ts.Rows))
	for i, r := range ts.Rows {
		pts[i] = SeriesPoint{
			Date: r.Date.Format(dateLayout),
			Mean: jsonNumber(r.Mean),
			Std:  jsonNumber(r.Std),
		}
		if ts.HasMinMax {
			pts[i].Min = jsonNumber(r.Min)
			pts[i].Max = jsonNumber(r.Max)
		}
	}
	return pts
}
