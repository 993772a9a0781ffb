// Command anha-timeseries builds the per-snapshot statistics table of a
// model run and writes it as CSV, optionally banded against its own
// day-of-year climatology for marine-heatwave / cold-spell plots.
package main

import (
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/anhalab/anhakit/internal/adapter/catalog"
	"github.com/anhalab/anhakit/internal/adapter/export"
	"github.com/anhalab/anhakit/internal/adapter/store"
	"github.com/anhalab/anhakit/internal/adapter/store/nemo"
	"github.com/anhalab/anhakit/internal/adapter/subset"
	"github.com/anhalab/anhakit/internal/log"
	"github.com/anhalab/anhakit/internal/usecase"
)

func main() {
	// Command line flags
	runName := flag.String("run", "", "Run name, e.g. ANHA4-WJM004")
	years := flag.String("years", "", "Comma-separated years to include (default: 1998)")
	grid := flag.String("grid", "", "Grid tag of the files to read (default: T)")
	months := flag.String("months", "", "Comma-separated calendar months to include")
	onePerMonth := flag.Bool("one-per-month", false, "Keep only the first file of each year and month")
	region := flag.String("region", "", "Named analysis region, e.g. HudsonBay or JamesBay")
	latMin := flag.Float64("lat-min", math.NaN(), "Southern box bound in degrees north")
	latMax := flag.Float64("lat-max", math.NaN(), "Northern box bound in degrees north")
	lonMin := flag.Float64("lon-min", math.NaN(), "Western box bound in degrees east")
	lonMax := flag.Float64("lon-max", math.NaN(), "Eastern box bound in degrees east")
	rowFirst := flag.Int("row-first", -1, "First grid row of a raw index window")
	rowLast := flag.Int("row-last", -1, "Last grid row of a raw index window")
	colFirst := flag.Int("col-first", -1, "First grid column of a raw index window")
	colLast := flag.Int("col-last", -1, "Last grid column of a raw index window")
	depth := flag.Int("depth", 0, "Vertical layer index (zero-based)")
	variable := flag.String("variable", "", "Physical variable to read (default: votemper)")
	masked := flag.Bool("masked", true, "Apply the land/sea mask")
	minMax := flag.Bool("minmax", false, "Add spatial min/max columns")
	workers := flag.Int("workers", 1, "Number of files read concurrently")
	skipErrors := flag.Bool("skip-errors", false, "Skip unreadable files instead of aborting")
	mode := flag.String("mode", "", "Climatology banding: heatwave/mhw or coldspell/mcs (default: plain series)")
	removeMean := flag.Bool("remove-mean", false, "Subtract the climatological mean from banded columns")
	showCat4 := flag.Bool("show-cat4", true, "Include the category-4 threshold column")
	out := flag.String("out", "-", "Output CSV path, or - for stdout")
	dataPath := flag.String("data-path", "", "Override the resolved data directory")
	maskPath := flag.String("mask-path", "", "Override the resolved mask directory")
	debug := flag.Bool("debug", false, "Enable debug logging")

	flag.Parse()

	if err := log.Init(*debug); err != nil {
		fmt.Fprintf(os.Stderr, "initializing logging: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	window, err := buildWindow(*region, *latMin, *latMax, *lonMin, *lonMax, *rowFirst, *rowLast, *colFirst, *colLast)
	if err != nil {
		log.Fatalf("invalid window: %v", err)
	}
	monthList, err := parseMonths(*months)
	if err != nil {
		log.Fatalf("invalid months: %v", err)
	}

	req := usecase.TimeSeriesRequest{
		RunName:        *runName,
		Years:          splitList(*years),
		Grid:           *grid,
		Months:         monthList,
		OnePerMonth:    *onePerMonth,
		Window:         window,
		Depth:          *depth,
		Variable:       *variable,
		Masked:         masked,
		MinMax:         *minMax,
		Workers:        *workers,
		SkipFileErrors: *skipErrors,
		DataPath:       *dataPath,
		MaskPath:       *maskPath,
	}

	analysis := usecase.NewAnalysis(
		catalog.Catalog{},
		nemo.Opener{},
		func(dir string) store.MaskSource { return nemo.NewMaskStore(dir) },
	)

	w, closeOut, err := openOutput(*out)
	if err != nil {
		log.Fatalf("opening output: %v", err)
	}
	defer closeOut()

	if *mode == "" {
		resp, err := analysis.TimeSeries(req)
		if err != nil {
			log.Fatalf("building time series: %v", err)
		}
		if err := export.TimeSeriesCSV(w, resp.Series); err != nil {
			log.Fatalf("writing csv: %v", err)
		}
		log.Infow("time series written",
			"rows", len(resp.Series.Rows), "files", resp.Files, "skipped", len(resp.Skipped))
		return
	}

	resp, err := analysis.Climatology(usecase.ClimatologyRequest{TimeSeriesRequest: req, Mode: *mode})
	if err != nil {
		log.Fatalf("building climatology: %v", err)
	}
	opts := export.Options{RemoveMean: *removeMean, ShowCategory4: *showCat4}
	if err := export.BandedCSV(w, resp.Banded, opts); err != nil {
		log.Fatalf("writing csv: %v", err)
	}
	log.Infow("banded time series written",
		"mode", resp.Mode, "rows", len(resp.Banded.Rows), "files", resp.Files, "skipped", len(resp.Skipped))
}

// buildWindow assembles the request window from the flag values; unset
// box bounds stay NaN and unset index bounds stay -1.
func buildWindow(region string, latMin, latMax, lonMin, lonMax float64, rowFirst, rowLast, colFirst, colLast int) (usecase.Window, error) {
	w := usecase.Window{Region: region}

	switch {
	case !math.IsNaN(latMin) && !math.IsNaN(latMax):
		w.LatRange = &subset.Range{Min: latMin, Max: latMax}
	case !math.IsNaN(latMin) || !math.IsNaN(latMax):
		return w, fmt.Errorf("-lat-min and -lat-max must be given together")
	}
	switch {
	case !math.IsNaN(lonMin) && !math.IsNaN(lonMax):
		w.LonRange = &subset.Range{Min: lonMin, Max: lonMax}
	case !math.IsNaN(lonMin) || !math.IsNaN(lonMax):
		return w, fmt.Errorf("-lon-min and -lon-max must be given together")
	}
	switch {
	case rowFirst >= 0 && rowLast >= 0:
		w.Rows = &subset.IndexRange{First: rowFirst, Last: rowLast}
	case rowFirst >= 0 || rowLast >= 0:
		return w, fmt.Errorf("-row-first and -row-last must be given together")
	}
	switch {
	case colFirst >= 0 && colLast >= 0:
		w.Cols = &subset.IndexRange{First: colFirst, Last: colLast}
	case colFirst >= 0 || colLast >= 0:
		return w, fmt.Errorf("-col-first and -col-last must be given together")
	}
	return w, nil
}

func parseMonths(s string) ([]int, error) {
	parts := splitList(s)
	if parts == nil {
		return nil, nil
	}
	months := make([]int, 0, len(parts))
	for _, p := range parts {
		m, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("bad month %q: %v", p, err)
		}
		months = append(months, m)
	}
	return months, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// openOutput opens the CSV destination; "-" means stdout.
func openOutput(path string) (io.Writer, func(), error) {
	if path == "-" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}
