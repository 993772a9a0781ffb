package usecase

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/anhalab/anhakit/internal/adapter/catalog"
	"github.com/anhalab/anhakit/internal/adapter/store"
	"github.com/anhalab/anhakit/internal/adapter/subset"
)

// The fakes below serve a 4x4 grid with lat = 50+row, lon = -80+col and
// per-file synthetic layers value = base + 10*row + col. The test window
// (50.5, 53.5) x (-79.5, -76.5) resolves to rows 1-3, cols 1-3; with the
// land cell at (1, 1) masked out, the window mean is base + 23.375 over
// the remaining 8 cells, base + 22 unmasked over all 9.

type fakeDataset struct {
	lat, lon [][]float64
	vars     map[string][][][]float64 // variable -> depth -> full grid
}

func (d *fakeDataset) Coords(grid string) ([][]float64, [][]float64, error) {
	return d.lat, d.lon, nil
}

func (d *fakeDataset) ReadLayer(name string, depth int, rows, cols subset.IndexRange) ([][]float64, error) {
	layers, ok := d.vars[name]
	if !ok {
		return nil, &store.ReadError{Path: "fake", Err: fmt.Errorf("variable %q not found", name)}
	}
	if depth < 0 || depth >= len(layers) {
		return nil, &store.DepthError{Depth: depth, Extent: len(layers)}
	}
	return gridWindow(layers[depth], rows, cols), nil
}

func (d *fakeDataset) Close() error { return nil }

type fakeOpener struct {
	datasets map[string]*fakeDataset // keyed by base filename
}

func (o fakeOpener) Open(path string) (store.Dataset, error) {
	ds, ok := o.datasets[filepath.Base(path)]
	if !ok {
		return nil, &store.ReadError{Path: path, Err: errors.New("no such dataset")}
	}
	return ds, nil
}

type fakeMask struct {
	layer [][]float64
}

func (m fakeMask) Window(depth int, rows, cols subset.IndexRange) ([][]float64, error) {
	return gridWindow(m.layer, rows, cols), nil
}

func gridWindow(grid [][]float64, rows, cols subset.IndexRange) [][]float64 {
	out := make([][]float64, rows.Len())
	for i := range out {
		out[i] = append([]float64(nil), grid[rows.First+i][cols.First:cols.Last+1]...)
	}
	return out
}

func testCoords() (lat, lon [][]float64) {
	lat = make([][]float64, 4)
	lon = make([][]float64, 4)
	for i := range lat {
		lat[i] = make([]float64, 4)
		lon[i] = make([]float64, 4)
		for j := range lat[i] {
			lat[i][j] = float64(50 + i)
			lon[i][j] = float64(-80 + j)
		}
	}
	return lat, lon
}

func testLayer(base float64) [][]float64 {
	g := make([][]float64, 4)
	for i := range g {
		g[i] = make([]float64, 4)
		for j := range g[i] {
			g[i][j] = base + float64(10*i+j)
		}
	}
	return g
}

// testDataset builds a snapshot holding votemper at two depths: the
// surface layer at base, the layer below at base + 100.
func testDataset(base float64) *fakeDataset {
	lat, lon := testCoords()
	return &fakeDataset{
		lat: lat,
		lon: lon,
		vars: map[string][][][]float64{
			"votemper": {testLayer(base), testLayer(base + 100)},
		},
	}
}

// landMask is all ocean except the cell at row 1, col 1.
func landMask() fakeMask {
	layer := make([][]float64, 4)
	for i := range layer {
		layer[i] = []float64{1, 1, 1, 1}
	}
	layer[1] = []float64{1, 0, 1, 1}
	return fakeMask{layer: layer}
}

func testWindow() Window {
	return Window{
		LatRange: &subset.Range{Min: 50.5, Max: 53.5},
		LonRange: &subset.Range{Min: -79.5, Max: -76.5},
	}
}

// newTestAnalysis wires an Analysis over a temp data directory holding the
// named (empty) files and a fake opener serving their datasets.
func newTestAnalysis(t *testing.T, datasets map[string]*fakeDataset) (*Analysis, string) {
	t.Helper()
	dir := t.TempDir()
	for name := range datasets {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatalf("touch %s: %v", name, err)
		}
	}
	a := NewAnalysis(
		catalog.Catalog{},
		fakeOpener{datasets: datasets},
		func(string) store.MaskSource { return landMask() },
	)
	return a, dir
}

// touch adds a catalog entry with no dataset behind it.
func touch(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
		t.Fatalf("touch %s: %v", name, err)
	}
}

func boolPtr(b bool) *bool { return &b }

// TestTimeSeries_RowPerFileInOrder tests that the builder emits one row
// per file, dated from the filename, in catalog order, with the land cell
// excluded from the statistics.
func TestTimeSeries_RowPerFileInOrder(t *testing.T) {
	a, dir := newTestAnalysis(t, map[string]*fakeDataset{
		"R_y1998m01d05_gridT.nc": testDataset(10),
		"R_y1998m02d05_gridT.nc": testDataset(20),
		"R_y1998m03d05_gridT.nc": testDataset(30),
	})

	resp, err := a.TimeSeries(TimeSeriesRequest{
		Years:    []string{"1998"},
		Window:   testWindow(),
		DataPath: dir,
		MaskPath: "masks",
	})
	if err != nil {
		t.Fatalf("TimeSeries: %v", err)
	}

	if resp.Files != 3 || len(resp.Series.Rows) != 3 {
		t.Fatalf("Expected 3 rows from 3 files, got %d rows from %d files", len(resp.Series.Rows), resp.Files)
	}
	wantMeans := []float64{33.375, 43.375, 53.375}
	for i, r := range resp.Series.Rows {
		if math.Abs(r.Mean-wantMeans[i]) > 1e-9 {
			t.Errorf("Row %d mean: expected %.4f, got %.10f", i, wantMeans[i], r.Mean)
		}
		if int(r.Date.Month()) != i+1 || r.Date.Day() != 5 {
			t.Errorf("Row %d date: got %v", i, r.Date)
		}
	}
	if len(resp.Points) != 3 {
		t.Fatalf("Expected 3 points, got %d", len(resp.Points))
	}
	if resp.Points[0].Date != "1998-01-05" {
		t.Errorf("Point 0 date: got %q", resp.Points[0].Date)
	}
	if resp.Points[0].Mean == nil || math.Abs(*resp.Points[0].Mean-33.375) > 1e-9 {
		t.Errorf("Point 0 mean: got %v", resp.Points[0].Mean)
	}
}

// TestTimeSeries_Defaults tests that variable, grid, years and masking
// take their documented defaults.
func TestTimeSeries_Defaults(t *testing.T) {
	a, dir := newTestAnalysis(t, map[string]*fakeDataset{
		"R_y1998m01d05_gridT.nc": testDataset(10),
		"R_y1999m01d05_gridT.nc": testDataset(90),
	})

	resp, err := a.TimeSeries(TimeSeriesRequest{
		Window:   testWindow(),
		DataPath: dir,
		MaskPath: "masks",
	})
	if err != nil {
		t.Fatalf("TimeSeries: %v", err)
	}

	if resp.Variable != "votemper" || resp.Grid != "T" {
		t.Errorf("Defaults: got variable %q grid %q", resp.Variable, resp.Grid)
	}
	if !resp.Masked {
		t.Error("Masking should default on")
	}
	// Only the default year 1998 is listed.
	if resp.Files != 1 {
		t.Fatalf("Expected 1 file for default year, got %d", resp.Files)
	}
	if math.Abs(resp.Series.Rows[0].Mean-33.375) > 1e-9 {
		t.Errorf("Masked mean: expected 33.375, got %.10f", resp.Series.Rows[0].Mean)
	}
}

// TestTimeSeries_Unmasked tests that switching masking off keeps the land
// cell in the statistics.
func TestTimeSeries_Unmasked(t *testing.T) {
	a, dir := newTestAnalysis(t, map[string]*fakeDataset{
		"R_y1998m01d05_gridT.nc": testDataset(10),
	})

	resp, err := a.TimeSeries(TimeSeriesRequest{
		Window:   testWindow(),
		Masked:   boolPtr(false),
		DataPath: dir,
	})
	if err != nil {
		t.Fatalf("TimeSeries: %v", err)
	}
	if math.Abs(resp.Series.Rows[0].Mean-32.0) > 1e-9 {
		t.Errorf("Unmasked mean: expected 32.0, got %.10f", resp.Series.Rows[0].Mean)
	}
}

// TestTimeSeries_DepthSelectsLayer tests extraction from a deeper layer.
func TestTimeSeries_DepthSelectsLayer(t *testing.T) {
	a, dir := newTestAnalysis(t, map[string]*fakeDataset{
		"R_y1998m01d05_gridT.nc": testDataset(10),
	})

	resp, err := a.TimeSeries(TimeSeriesRequest{
		Window:   testWindow(),
		Depth:    1,
		DataPath: dir,
		MaskPath: "masks",
	})
	if err != nil {
		t.Fatalf("TimeSeries: %v", err)
	}
	if math.Abs(resp.Series.Rows[0].Mean-133.375) > 1e-9 {
		t.Errorf("Depth-1 mean: expected 133.375, got %.10f", resp.Series.Rows[0].Mean)
	}

	_, err = a.TimeSeries(TimeSeriesRequest{
		Window:   testWindow(),
		Depth:    5,
		DataPath: dir,
		MaskPath: "masks",
	})
	var depthErr *store.DepthError
	if !errors.As(err, &depthErr) {
		t.Fatalf("Depth 5: expected DepthError, got %T: %v", err, err)
	}
}

// TestTimeSeries_WorkerPoolKeepsOrder tests that concurrent reads land in
// file order, same as a sequential build.
func TestTimeSeries_WorkerPoolKeepsOrder(t *testing.T) {
	datasets := make(map[string]*fakeDataset)
	for m := 1; m <= 8; m++ {
		name := fmt.Sprintf("R_y1998m%02dd05_gridT.nc", m)
		datasets[name] = testDataset(float64(10 * m))
	}
	a, dir := newTestAnalysis(t, datasets)

	req := TimeSeriesRequest{
		Years:    []string{"1998"},
		Window:   testWindow(),
		DataPath: dir,
		MaskPath: "masks",
	}
	sequential, err := a.TimeSeries(req)
	if err != nil {
		t.Fatalf("Sequential: %v", err)
	}

	req.Workers = 4
	parallel, err := a.TimeSeries(req)
	if err != nil {
		t.Fatalf("Parallel: %v", err)
	}

	if len(parallel.Series.Rows) != len(sequential.Series.Rows) {
		t.Fatalf("Row counts differ: %d vs %d", len(parallel.Series.Rows), len(sequential.Series.Rows))
	}
	for i := range sequential.Series.Rows {
		seq, par := sequential.Series.Rows[i], parallel.Series.Rows[i]
		if !seq.Date.Equal(par.Date) || seq.Mean != par.Mean {
			t.Errorf("Row %d differs: sequential (%v, %v), parallel (%v, %v)",
				i, seq.Date, seq.Mean, par.Date, par.Mean)
		}
	}
}

// TestTimeSeries_FileErrors tests the all-or-nothing default and the
// opt-in skip policy for unreadable files.
func TestTimeSeries_FileErrors(t *testing.T) {
	a, dir := newTestAnalysis(t, map[string]*fakeDataset{
		"R_y1998m01d05_gridT.nc": testDataset(10),
		"R_y1998m03d05_gridT.nc": testDataset(30),
	})
	// Listed in the catalog but unreadable.
	touch(t, dir, "R_y1998m02d05_gridT.nc")

	req := TimeSeriesRequest{
		Years:    []string{"1998"},
		Window:   testWindow(),
		DataPath: dir,
		MaskPath: "masks",
	}

	_, err := a.TimeSeries(req)
	var readErr *store.ReadError
	if !errors.As(err, &readErr) {
		t.Fatalf("Default policy: expected ReadError, got %T: %v", err, err)
	}

	req.SkipFileErrors = true
	resp, err := a.TimeSeries(req)
	if err != nil {
		t.Fatalf("Skip policy: %v", err)
	}
	if len(resp.Series.Rows) != 2 {
		t.Fatalf("Expected 2 rows after skip, got %d", len(resp.Series.Rows))
	}
	if len(resp.Skipped) != 1 || resp.Skipped[0] != "R_y1998m02d05_gridT.nc" {
		t.Errorf("Skipped: got %v", resp.Skipped)
	}
	if int(resp.Series.Rows[1].Date.Month()) != 3 {
		t.Errorf("Row 1 month after skip: got %v", resp.Series.Rows[1].Date)
	}
}

// TestTimeSeries_EmptyRegion tests that a box outside the grid aborts with
// the subsetter's typed error.
func TestTimeSeries_EmptyRegion(t *testing.T) {
	a, dir := newTestAnalysis(t, map[string]*fakeDataset{
		"R_y1998m01d05_gridT.nc": testDataset(10),
	})

	_, err := a.TimeSeries(TimeSeriesRequest{
		Window: Window{
			LatRange: &subset.Range{Min: 10, Max: 20},
			LonRange: &subset.Range{Min: 100, Max: 110},
		},
		DataPath: dir,
		MaskPath: "masks",
	})
	var emptyErr *subset.EmptyRegionError
	if !errors.As(err, &emptyErr) {
		t.Fatalf("Expected EmptyRegionError, got %T: %v", err, err)
	}
}

// TestTimeSeries_IndexWindowBypass tests raw row/col windows skipping
// coordinate resolution.
func TestTimeSeries_IndexWindowBypass(t *testing.T) {
	a, dir := newTestAnalysis(t, map[string]*fakeDataset{
		"R_y1998m01d05_gridT.nc": testDataset(10),
	})

	resp, err := a.TimeSeries(TimeSeriesRequest{
		Window: Window{
			Rows: &subset.IndexRange{First: 1, Last: 3},
			Cols: &subset.IndexRange{First: 1, Last: 3},
		},
		DataPath: dir,
		MaskPath: "masks",
	})
	if err != nil {
		t.Fatalf("TimeSeries: %v", err)
	}
	if math.Abs(resp.Series.Rows[0].Mean-33.375) > 1e-9 {
		t.Errorf("Bypass mean: expected 33.375, got %.10f", resp.Series.Rows[0].Mean)
	}
}

// TestTimeSeriesRequest_Validate tests the request validation rules.
func TestTimeSeriesRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     TimeSeriesRequest
		wantErr bool
	}{
		{"zero request is valid", TimeSeriesRequest{}, false},
		{"named region", TimeSeriesRequest{Window: Window{Region: "james-bay"}}, false},
		{"negative depth", TimeSeriesRequest{Depth: -1}, true},
		{"month zero", TimeSeriesRequest{Months: []int{0}}, true},
		{"month thirteen", TimeSeriesRequest{Months: []int{13}}, true},
		{"unknown region", TimeSeriesRequest{Window: Window{Region: "atlantis"}}, true},
		{
			"region with explicit ranges",
			TimeSeriesRequest{Window: Window{
				Region:   "HudsonBay",
				LatRange: &subset.Range{Min: 50, Max: 60},
				LonRange: &subset.Range{Min: -90, Max: -80},
			}},
			true,
		},
		{
			"geographic and index windows",
			TimeSeriesRequest{Window: Window{
				LatRange: &subset.Range{Min: 50, Max: 60},
				LonRange: &subset.Range{Min: -90, Max: -80},
				Rows:     &subset.IndexRange{First: 0, Last: 2},
				Cols:     &subset.IndexRange{First: 0, Last: 2},
			}},
			true,
		},
		{
			"rows without cols",
			TimeSeriesRequest{Window: Window{Rows: &subset.IndexRange{First: 0, Last: 2}}},
			true,
		},
		{
			"latitude without longitude",
			TimeSeriesRequest{Window: Window{LatRange: &subset.Range{Min: 50, Max: 60}}},
			true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate: error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// TestStats_SingleSnapshot tests the one-file reduction with min/max.
func TestStats_SingleSnapshot(t *testing.T) {
	a, dir := newTestAnalysis(t, map[string]*fakeDataset{
		"R_y1998m04d15_gridT.nc": testDataset(10),
	})

	resp, err := a.Stats(StatsRequest{
		File:     filepath.Join(dir, "R_y1998m04d15_gridT.nc"),
		Window:   testWindow(),
		MinMax:   true,
		MaskPath: "masks",
	})
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}

	if resp.Date != "1998-04-15" {
		t.Errorf("Date: got %q", resp.Date)
	}
	if resp.Mean == nil || math.Abs(*resp.Mean-33.375) > 1e-9 {
		t.Errorf("Mean: got %v", resp.Mean)
	}
	// Land cell at (1, 1) removes value 21 from the window, so the
	// minimum is the next cell over.
	if resp.Min == nil || *resp.Min != 22 {
		t.Errorf("Min: got %v", resp.Min)
	}
	if resp.Max == nil || *resp.Max != 43 {
		t.Errorf("Max: got %v", resp.Max)
	}
}

// TestStats_RequiresFile tests the file presence check.
func TestStats_RequiresFile(t *testing.T) {
	a, _ := newTestAnalysis(t, nil)

	_, err := a.Stats(StatsRequest{Window: testWindow(), MaskPath: "masks"})
	if err == nil {
		t.Fatal("Stats: expected error for missing file, got nil")
	}
}

// TestClimatology_ThresholdOrdering feeds a built series straight into the
// banding engine and checks the threshold ordering per row: increasing
// above the mean in heatwave mode, decreasing below it in cold-spell mode.
func TestClimatology_ThresholdOrdering(t *testing.T) {
	datasets := make(map[string]*fakeDataset)
	years := []struct {
		year   string
		offset float64 // spreads the yearly values so quantile != mean
	}{{"1998", 0}, {"1999", 7}, {"2000", 14}}
	for _, yr := range years {
		for m := 1; m <= 3; m++ {
			name := fmt.Sprintf("R_y%sm%02dd05_gridT.nc", yr.year, m)
			datasets[name] = testDataset(float64(10*m) + yr.offset)
		}
	}
	a, dir := newTestAnalysis(t, datasets)

	for _, tt := range []struct {
		mode     string
		wantMode string
	}{
		{"heatwave", "heatwave"},
		{"mcs", "coldspell"},
	} {
		resp, err := a.Climatology(ClimatologyRequest{
			TimeSeriesRequest: TimeSeriesRequest{
				Years:    []string{"1998", "1999", "2000"},
				Window:   testWindow(),
				DataPath: dir,
				MaskPath: "masks",
			},
			Mode: tt.mode,
		})
		if err != nil {
			t.Fatalf("Climatology(%s): %v", tt.mode, err)
		}
		if resp.Mode != tt.wantMode {
			t.Errorf("Mode: expected %q, got %q", tt.wantMode, resp.Mode)
		}
		if len(resp.Banded.Rows) != 9 {
			t.Fatalf("Expected 9 banded rows, got %d", len(resp.Banded.Rows))
		}
		for i, r := range resp.Banded.Rows {
			if tt.wantMode == "heatwave" {
				if !(r.ClimMean <= r.Threshold2 && r.Threshold2 <= r.Threshold3 && r.Threshold3 <= r.Threshold4) {
					t.Errorf("Row %d heatwave thresholds not increasing: mean %.3f t2 %.3f t3 %.3f t4 %.3f",
						i, r.ClimMean, r.Threshold2, r.Threshold3, r.Threshold4)
				}
			} else {
				if !(r.ClimMean >= r.Threshold2 && r.Threshold2 >= r.Threshold3 && r.Threshold3 >= r.Threshold4) {
					t.Errorf("Row %d cold-spell thresholds not decreasing: mean %.3f t2 %.3f t3 %.3f t4 %.3f",
						i, r.ClimMean, r.Threshold2, r.Threshold3, r.Threshold4)
				}
			}
		}
	}
}

// TestClimatology_GroupsAcrossYears tests the wrap-day join: rows of the
// same calendar day share one climatology regardless of year.
func TestClimatology_GroupsAcrossYears(t *testing.T) {
	a, dir := newTestAnalysis(t, map[string]*fakeDataset{
		"R_y1998m05d05_gridT.nc": testDataset(10),
		"R_y1999m05d05_gridT.nc": testDataset(20),
	})

	resp, err := a.Climatology(ClimatologyRequest{
		TimeSeriesRequest: TimeSeriesRequest{
			Years:    []string{"1998", "1999"},
			Window:   testWindow(),
			DataPath: dir,
			MaskPath: "masks",
		},
	})
	if err != nil {
		t.Fatalf("Climatology: %v", err)
	}

	r0, r1 := resp.Banded.Rows[0], resp.Banded.Rows[1]
	if r0.Year != 1998 || r1.Year != 1999 {
		t.Errorf("Years: got %d, %d", r0.Year, r1.Year)
	}
	if !r0.WrapDay.Equal(r1.WrapDay) {
		t.Errorf("WrapDays differ: %v vs %v", r0.WrapDay, r1.WrapDay)
	}
	// Daily means 33.375 and 43.375 fold to a shared climatology.
	if math.Abs(r0.ClimMean-38.375) > 1e-9 || math.Abs(r1.ClimMean-38.375) > 1e-9 {
		t.Errorf("ClimMean: got %.10f and %.10f", r0.ClimMean, r1.ClimMean)
	}
}

// TestClimatology_BadMode tests mode validation.
func TestClimatology_BadMode(t *testing.T) {
	a, dir := newTestAnalysis(t, map[string]*fakeDataset{
		"R_y1998m05d05_gridT.nc": testDataset(10),
	})

	_, err := a.Climatology(ClimatologyRequest{
		TimeSeriesRequest: TimeSeriesRequest{DataPath: dir, MaskPath: "masks"},
		Mode:              "tsunami",
	})
	if err == nil {
		t.Fatal("Climatology: expected error for unknown mode, got nil")
	}
}

// TestFiles_DefaultYears tests the catalog passthrough default.
func TestFiles_DefaultYears(t *testing.T) {
	a, dir := newTestAnalysis(t, map[string]*fakeDataset{
		"R_y1998m01d05_gridT.nc": testDataset(10),
		"R_y1999m01d05_gridT.nc": testDataset(20),
	})

	files, err := a.Files(catalog.ListOptions{DataPath: dir})
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if len(files) != 1 || files[0].Year != 1998 {
		t.Fatalf("Expected the single 1998 file, got %v", files)
	}
}
