package domain

import (
	"fmt"
	"sort"
	"time"
)

// ReferenceYear is the year all calendar days fold onto when grouping a
// multi-year series by day of year. 2000 is a leap year, so Feb 29 samples
// keep their own group instead of colliding with Mar 1.
const ReferenceYear = 2000

// Mode selects which tail of the day-of-year distribution defines anomaly
// events.
type Mode int

const (
	// ModeHeatwave bands the series against the 90th percentile of the
	// daily means, thresholds above the climatological mean.
	ModeHeatwave Mode = iota
	// ModeColdSpell bands against the 10th percentile, thresholds below.
	ModeColdSpell
)

// ParseMode maps a request string to a Mode. Both the long names and the
// conventional abbreviations (mhw, mcs) are accepted.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "heatwave", "mhw":
		return ModeHeatwave, nil
	case "coldspell", "mcs":
		return ModeColdSpell, nil
	}
	return 0, fmt.Errorf("unknown climatology mode %q (want heatwave or coldspell)", s)
}

func (m Mode) String() string {
	switch m {
	case ModeHeatwave:
		return "heatwave"
	case ModeColdSpell:
		return "coldspell"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// level is the quantile of the daily means that anchors the thresholds.
func (m Mode) level() float64 {
	if m == ModeColdSpell {
		return 0.10
	}
	return 0.90
}

// WrapDay folds a date onto its calendar day in the reference year.
func WrapDay(date time.Time) time.Time {
	return time.Date(ReferenceYear, date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
}

// DayStats is one day-of-year row of a climatology table.
type DayStats struct {
	WrapDay  time.Time
	Mean     float64
	Quantile float64
}

// ClimatologyTable holds one DayStats per calendar day present in the
// source series, ordered by day of year.
type ClimatologyTable struct {
	Mode Mode
	Days []DayStats
}

// BuildClimatology groups a series by calendar day and reduces each group
// to the across-year mean of the daily means and the mode's quantile of the
// same values. NaN daily means are ignored within a group; a group with no
// valid samples keeps NaN. Only days present in the series appear, so a
// five-day-interval run yields a five-day-spaced table.
func BuildClimatology(ts TimeSeries, mode Mode) ClimatologyTable {
	groups := groupByWrapDay(ts.Rows)
	table := ClimatologyTable{Mode: mode, Days: make([]DayStats, 0, len(groups))}
	for _, g := range groups {
		table.Days = append(table.Days, DayStats{
			WrapDay:  g.wrapDay,
			Mean:     nanMean(g.means),
			Quantile: Quantile(g.means, mode.level()),
		})
	}
	return table
}

// BandedRow is a time-series row joined with its calendar fields, the
// climatology of its calendar day, and the event-category thresholds.
type BandedRow struct {
	Row
	Year         int
	Month        int
	Day          int
	WrapDay      time.Time
	ClimMean     float64
	ClimQuantile float64
	Threshold2   float64
	Threshold3   float64
	Threshold4   float64
}

// BandedSeries is a time series augmented with per-row climatology bands.
type BandedSeries struct {
	Mode      Mode
	HasMinMax bool
	Rows      []BandedRow
}

// ComputeClimatology builds the day-of-year climatology of a series and
// joins it back onto every row by calendar day. Threshold k is
//
//	mean + k·(quantile − mean)    k = 2, 3, 4
//
// which places the bands above the climatological mean in heatwave mode
// and below it in cold-spell mode, since there the quantile sits under the
// mean. Rows keep their input order; each row always finds its own
// calendar day in the table because the table is built from the same rows.
func ComputeClimatology(ts TimeSeries, mode Mode) BandedSeries {
	table := BuildClimatology(ts, mode)
	byDay := make(map[int]DayStats, len(table.Days))
	for _, d := range table.Days {
		byDay[monthDayKey(d.WrapDay)] = d
	}

	out := BandedSeries{Mode: mode, HasMinMax: ts.HasMinMax, Rows: make([]BandedRow, len(ts.Rows))}
	for i, r := range ts.Rows {
		ds := byDay[monthDayKey(r.Date)]
		delta := ds.Quantile - ds.Mean
		out.Rows[i] = BandedRow{
			Row:          r,
			Year:         r.Date.Year(),
			Month:        int(r.Date.Month()),
			Day:          r.Date.Day(),
			WrapDay:      ds.WrapDay,
			ClimMean:     ds.Mean,
			ClimQuantile: ds.Quantile,
			Threshold2:   ds.Mean + 2*delta,
			Threshold3:   ds.Mean + 3*delta,
			Threshold4:   ds.Mean + 4*delta,
		}
	}
	return out
}

// GroupStat selects the reduction applied to each calendar-day group by
// ReduceByWrapDay.
type GroupStat int

const (
	GroupMean GroupStat = iota
	GroupMedian
	GroupMax
)

// DayValue is one reduced calendar-day group.
type DayValue struct {
	WrapDay time.Time
	Value   float64
}

// ReduceByWrapDay folds the series onto the reference year and reduces each
// calendar day's spatial means with the chosen statistic, NaN values
// ignored. Results are ordered by day of year.
func ReduceByWrapDay(ts TimeSeries, stat GroupStat) []DayValue {
	groups := groupByWrapDay(ts.Rows)
	out := make([]DayValue, 0, len(groups))
	for _, g := range groups {
		var v float64
		switch stat {
		case GroupMedian:
			v = Median(g.means)
		case GroupMax:
			v = nanMax(g.means)
		default:
			v = nanMean(g.means)
		}
		out = append(out, DayValue{WrapDay: g.wrapDay, Value: v})
	}
	return out
}

type dayGroup struct {
	wrapDay time.Time
	means   []float64
}

// groupByWrapDay buckets rows by calendar day, ordered by day of year.
func groupByWrapDay(rows []Row) []*dayGroup {
	byKey := make(map[int]*dayGroup)
	keys := make([]int, 0)
	for _, r := range rows {
		k := monthDayKey(r.Date)
		g, ok := byKey[k]
		if !ok {
			g = &dayGroup{wrapDay: WrapDay(r.Date)}
			byKey[k] = g
			keys = append(keys, k)
		}
		g.means = append(g.means, r.Mean)
	}
	sort.Ints(keys)
	groups := make([]*dayGroup, len(keys))
	for i, k := range keys {
		groups[i] = byKey[k]
	}
	return groups
}

func monthDayKey(t time.Time) int {
	return int(t.Month())*100 + t.Day()
}
