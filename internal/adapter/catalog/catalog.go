// Package catalog lists and parses simulation output files. Filenames
// carry a fixed date token (`_y1998m04d05_`) and a grid tag (`_gridT`);
// everything the catalog knows comes from those two tokens.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/anhalab/anhakit/internal/adapter/paths"
	"github.com/anhalab/anhakit/internal/log"
)

// File is one simulation output file with its parsed tokens.
type File struct {
	// Path is the full location including the data directory.
	Path string
	// Name is the base filename.
	Name  string
	Year  int
	Month int
	Day   int
	Grid  string
}

// Date returns the file's model date at midnight UTC.
func (f File) Date() time.Time {
	return time.Date(f.Year, time.Month(f.Month), f.Day, 0, 0, 0, 0, time.UTC)
}

// NoFileForMonthError reports a one-per-month selection that found no file
// for a requested year and month.
type NoFileForMonthError struct {
	Year  string
	Month int
}

func (e *NoFileForMonthError) Error() string {
	return fmt.Sprintf("no file for %s-%02d", e.Year, e.Month)
}

// ListOptions selects the files of one run.
type ListOptions struct {
	// RunName feeds path resolution when DataPath is empty.
	RunName string
	// Years to include, as four-digit tokens, in the order the caller
	// wants them concatenated.
	Years []string
	// Grid is the grid tag to match; "T" when empty.
	Grid string
	// Months restricts the selection to these calendar months.
	Months []int
	// OnePerMonth keeps only the first file of each year and month.
	OnePerMonth bool
	// DataPath overrides path resolution when set.
	DataPath string
}

// Catalog lists simulation output files for a run.
type Catalog struct {
	// Config controls path resolution when ListOptions.DataPath is empty.
	Config paths.Config
}

// List returns the run's files for the requested years: years concatenated
// in request order, filenames alphabetical within a year (the fixed-width
// date token makes that chronological). With Months set, only files of
// those months are kept. With OnePerMonth, exactly one file per year and
// month is kept, the alphabetically first; a year/month with no candidate
// fails with a NoFileForMonthError.
func (c Catalog) List(opts ListOptions) ([]File, error) {
	if len(opts.Years) == 0 {
		return nil, errors.New("at least one year is required")
	}
	grid := opts.Grid
	if grid == "" {
		grid = "T"
	}

	dataPath := opts.DataPath
	if dataPath == "" {
		p, err := paths.Resolve(opts.RunName, c.Config)
		if err != nil {
			return nil, err
		}
		dataPath = p.Data
	}

	entries, err := os.ReadDir(dataPath)
	if err != nil {
		return nil, fmt.Errorf("listing data directory: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}

	var selected []string
	for _, year := range opts.Years {
		var yearFiles []string
		for _, n := range names {
			if strings.Contains(n, "_y"+year) && strings.Contains(n, "_grid"+grid) {
				yearFiles = append(yearFiles, n)
			}
		}
		sort.Strings(yearFiles)

		switch {
		case opts.OnePerMonth:
			monthly, err := onePerMonth(yearFiles, year, opts.Months)
			if err != nil {
				return nil, err
			}
			selected = append(selected, monthly...)
		case len(opts.Months) > 0:
			selected = append(selected, monthMatches(yearFiles, year, opts.Months)...)
		default:
			selected = append(selected, yearFiles...)
		}
	}

	files := make([]File, 0, len(selected))
	for _, name := range selected {
		f, err := ParseFile(name)
		if err != nil {
			return nil, err
		}
		f.Path = filepath.Join(dataPath, name)
		files = append(files, f)
	}
	log.Debugw("selected simulation files",
		"run", opts.RunName, "grid", grid, "years", opts.Years, "count", len(files))
	return files, nil
}

// onePerMonth keeps the first file of each target month. Without an
// explicit month list, the months present in the year's files are used.
func onePerMonth(yearFiles []string, year string, months []int) ([]string, error) {
	targets := months
	if len(targets) == 0 {
		targets = monthsPresent(yearFiles)
	}
	out := make([]string, 0, len(targets))
	for _, m := range targets {
		tok := fmt.Sprintf("y%sm%02d", year, m)
		found := ""
		for _, n := range yearFiles {
			if strings.Contains(n, tok) {
				found = n
				break
			}
		}
		if found == "" {
			return nil, &NoFileForMonthError{Year: year, Month: m}
		}
		out = append(out, found)
	}
	return out, nil
}

// monthMatches keeps every file of the requested months, month-list order
// first, filename order within a month.
func monthMatches(yearFiles []string, year string, months []int) []string {
	var out []string
	for _, m := range months {
		tok := fmt.Sprintf("y%sm%02d", year, m)
		for _, n := range yearFiles {
			if strings.Contains(n, tok) {
				out = append(out, n)
			}
		}
	}
	return out
}

// monthsPresent returns the distinct months found in the filenames,
// ascending.
func monthsPresent(names []string) []int {
	seen := make(map[int]bool)
	for _, n := range names {
		f, err := ParseFile(n)
		if err != nil {
			continue
		}
		seen[f.Month] = true
	}
	months := make([]int, 0, len(seen))
	for m := range seen {
		months = append(months, m)
	}
	sort.Ints(months)
	return months
}

// ParseFile extracts the date and grid tags from a simulation filename such
// as ANHA4-WJM004_y1998m04d05_gridT.nc. The date token is the second-to-
// last underscore field and is fixed width: y<YYYY>m<MM>d<DD>.
func ParseFile(path string) (File, error) {
	name := filepath.Base(path)
	parts := strings.Split(strings.TrimSuffix(name, ".nc"), "_")
	if len(parts) < 2 {
		return File{}, fmt.Errorf("filename %q has no date token", name)
	}

	tok := parts[len(parts)-2]
	if len(tok) != 11 || tok[0] != 'y' || tok[5] != 'm' || tok[8] != 'd' {
		return File{}, fmt.Errorf("filename %q: malformed date token %q", name, tok)
	}
	year, err := strconv.Atoi(tok[1:5])
	if err != nil {
		return File{}, fmt.Errorf("filename %q: bad year in %q", name, tok)
	}
	month, err := strconv.Atoi(tok[6:8])
	if err != nil || month < 1 || month > 12 {
		return File{}, fmt.Errorf("filename %q: bad month in %q", name, tok)
	}
	day, err := strconv.Atoi(tok[9:11])
	if err != nil || day < 1 || day > 31 {
		return File{}, fmt.Errorf("filename %q: bad day in %q", name, tok)
	}

	return File{
		Name:  name,
		Year:  year,
		Month: month,
		Day:   day,
		Grid:  strings.TrimPrefix(parts[len(parts)-1], "grid"),
	}, nil
}
