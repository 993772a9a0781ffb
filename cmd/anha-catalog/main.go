// Command anha-catalog lists the simulation output files of a model run,
// in the order the time-series builder would read them.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/anhalab/anhakit/internal/adapter/catalog"
	"github.com/anhalab/anhakit/internal/log"
)

func main() {
	runName := flag.String("run", "", "Run name, e.g. ANHA4-WJM004")
	years := flag.String("years", "1998", "Comma-separated years to include")
	grid := flag.String("grid", "T", "Grid tag of the files to list")
	months := flag.String("months", "", "Comma-separated calendar months to include")
	onePerMonth := flag.Bool("one-per-month", false, "Keep only the first file of each year and month")
	dataPath := flag.String("data-path", "", "Override the resolved data directory")
	long := flag.Bool("long", false, "Print date and grid columns instead of bare paths")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if err := log.Init(*debug); err != nil {
		fmt.Fprintf(os.Stderr, "initializing logging: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	monthList, err := parseMonths(*months)
	if err != nil {
		log.Fatalf("invalid months: %v", err)
	}

	files, err := catalog.Catalog{}.List(catalog.ListOptions{
		RunName:     *runName,
		Years:       splitList(*years),
		Grid:        *grid,
		Months:      monthList,
		OnePerMonth: *onePerMonth,
		DataPath:    *dataPath,
	})
	if err != nil {
		log.Fatalf("listing files: %v", err)
	}

	for _, f := range files {
		if *long {
			fmt.Printf("%s  grid%s  %s\n", f.Date().Format("2006-01-02"), f.Grid, f.Path)
		} else {
			fmt.Println(f.Path)
		}
	}
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
