// Package export renders analysis tables as CSV for downstream plotting
// tools.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/anhalab/anhakit/internal/domain"
)

const dateLayout = "2006-01-02"

// Options adjust the exported view of a banded series.
type Options struct {
	// RemoveMean subtracts each row's climatological mean from the row
	// mean, the quantile and the thresholds, turning those columns into
	// anomalies around a zero baseline.
	RemoveMean bool
	// ShowCategory4 includes the outermost threshold column, usually
	// left out of plots because so few events reach it.
	ShowCategory4 bool
}

// TimeSeriesCSV writes one row per snapshot: date, mean, std, plus min and
// max when the series tracked them.
func TimeSeriesCSV(w io.Writer, ts domain.TimeSeries) error {
	cw := csv.NewWriter(w)

	header := []string{"date", "mean", "std"}
	if ts.HasMinMax {
		header = append(header, "min", "max")
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, r := range ts.Rows {
		rec := []string{r.Date.Format(dateLayout), num(r.Mean), num(r.Std)}
		if ts.HasMinMax {
			rec = append(rec, num(r.Min), num(r.Max))
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// BandedCSV writes a banded series with its calendar fields, climatology
// and thresholds. Min/max columns appear when the series tracked them; the
// threshold-4 column only with opts.ShowCategory4.
func BandedCSV(w io.Writer, bs domain.BandedSeries, opts Options) error {
	cw := csv.NewWriter(w)

	header := []string{"date", "year", "month", "day", "wrap_day", "mean", "std"}
	if bs.HasMinMax {
		header = append(header, "min", "max")
	}
	header = append(header, "clim_mean", "clim_quantile", "threshold2", "threshold3")
	if opts.ShowCategory4 {
		header = append(header, "threshold4")
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, r := range bs.Rows {
		base := 0.0
		if opts.RemoveMean {
			base = r.ClimMean
		}
		rec := []string{
			r.Date.Format(dateLayout),
			strconv.Itoa(r.Year),
			strconv.Itoa(r.Month),
			strconv.Itoa(r.Day),
			r.WrapDay.Format(dateLayout),
			num(r.Mean - base),
			num(r.Std),
		}
		if bs.HasMinMax {
			rec = append(rec, num(r.Min), num(r.Max))
		}
		rec = append(rec,
			num(r.ClimMean-base),
			num(r.ClimQuantile-base),
			num(r.Threshold2-base),
			num(r.Threshold3-base),
		)
		if opts.ShowCategory4 {
			rec = append(rec, num(r.Threshold4-base))
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
