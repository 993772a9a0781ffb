package usecase

import (
	"fmt"

	"github.com/anhalab/anhakit/internal/domain"
)

// ClimatologyRequest extends a time-series build with day-of-year banding.
type ClimatologyRequest struct {
	TimeSeriesRequest

	// Mode is "heatwave"/"mhw" or "coldspell"/"mcs"; heatwave when empty.
	Mode string
}

func (r ClimatologyRequest) mode() (domain.Mode, error) {
	if r.Mode == "" {
		return domain.ModeHeatwave, nil
	}
	return domain.ParseMode(r.Mode)
}

// BandedPoint is one wire-format row of a banded series.
type BandedPoint struct {
	SeriesPoint
	Year         int      `json:"year"`
	Month        int      `json:"month"`
	Day          int      `json:"day"`
	WrapDay      string   `json:"wrap_day"`
	ClimMean     *float64 `json:"clim_mean"`
	ClimQuantile *float64 `json:"clim_quantile"`
	Threshold2   *float64 `json:"threshold2"`
	Threshold3   *float64 `json:"threshold3"`
	Threshold4   *float64 `json:"threshold4"`
}

// ClimatologyResponse carries the banded series: Points is the JSON view,
// Banded the raw table for CSV export.
type ClimatologyResponse struct {
	RunName  string        `json:"run_name,omitempty"`
	Variable string        `json:"variable"`
	Grid     string        `json:"grid"`
	Depth    int           `json:"depth"`
	Mode     string        `json:"mode"`
	Files    int           `json:"files"`
	Skipped  []string      `json:"skipped,omitempty"`
	Points   []BandedPoint `json:"points"`

	Banded domain.BandedSeries `json:"-"`
}

// Climatology builds a time series and bands it against its own
// day-of-year climatology.
func (a *Analysis) Climatology(req ClimatologyRequest) (*ClimatologyResponse, error) {
	mode, err := req.mode()
	if err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	ts, err := a.TimeSeries(req.TimeSeriesRequest)
	if err != nil {
		return nil, err
	}

	banded := domain.ComputeClimatology(ts.Series, mode)
	return &ClimatologyResponse{
		RunName:  ts.RunName,
		Variable: ts.Variable,
		Grid:     ts.Grid,
		Depth:    ts.Depth,
		Mode:     mode.String(),
		Files:    ts.Files,
		Skipped:  ts.Skipped,
		Points:   bandedPoints(banded),
		Banded:   banded,
	}, nil
}

// bandedPoints converts a banded series to its wire format.
func bandedPoints(bs domain.BandedSeries) []BandedPoint {
	pts := make([]BandedPoint, len(bs.Rows))
	for i, r := range bs.Rows {
		pts[i] = BandedPoint{
			SeriesPoint: SeriesPoint{
				Date: r.Date.Format(dateLayout),
				Mean: jsonNumber(r.Mean),
				Std:  jsonNumber(r.Std),
			},
			Year:         r.Year,
			Month:        r.Month,
			Day:          r.Day,
			WrapDay:      r.WrapDay.Format(dateLayout),
			ClimMean:     jsonNumber(r.ClimMean),
			ClimQuantile: jsonNumber(r.ClimQuantile),
			Threshold2:   jsonNumber(r.Threshold2),
			Threshold3:   jsonNumber(r.Threshold3),
			Threshold4:   jsonNumber(r.Threshold4),
		}
		if bs.HasMinMax {
			pts[i].Min = jsonNumber(r.Min)
			pts[i].Max = jsonNumber(r.Max)
		}
	}
	return pts
}
