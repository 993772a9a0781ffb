package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/anhalab/anhakit/internal/adapter/catalog"
	"github.com/anhalab/anhakit/internal/adapter/export"
	"github.com/anhalab/anhakit/internal/adapter/paths"
	"github.com/anhalab/anhakit/internal/adapter/store"
	"github.com/anhalab/anhakit/internal/adapter/subset"
	"github.com/anhalab/anhakit/internal/domain"
	"github.com/anhalab/anhakit/internal/log"
	"github.com/anhalab/anhakit/internal/usecase"
)

// Handler handles HTTP requests for the analysis API.
type Handler struct {
	analysis *usecase.Analysis
}

// NewHandler creates a new HTTP handler.
func NewHandler(analysis *usecase.Analysis) *Handler {
	return &Handler{analysis: analysis}
}

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// RegionInfo is the wire format of a predefined analysis region.
type RegionInfo struct {
	Name              string     `json:"name"`
	LatMin            float64    `json:"lat_min"`
	LatMax            float64    `json:"lat_max"`
	LonMin            float64    `json:"lon_min"`
	LonMax            float64    `json:"lon_max"`
	StandardParallels [2]float64 `json:"standard_parallels"`
	CentralLongitude  float64    `json:"central_longitude"`
}

// GetRegions handles GET /v1/regions.
func (h *Handler) GetRegions(c *gin.Context) {
	regions := domain.Regions()
	response := make([]RegionInfo, len(regions))
	for i, r := range regions {
		latMin, latMax := r.LatRange()
		lonMin, lonMax := r.LonRange()
		response[i] = RegionInfo{
			Name:              r.Name,
			LatMin:            latMin,
			LatMax:            latMax,
			LonMin:            lonMin,
			LonMax:            lonMax,
			StandardParallels: r.StandardParallels,
			CentralLongitude:  r.CentralLongitude,
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"regions": response,
		"count":   len(response),
	})
}

// FileInfo is the wire format of one catalog entry.
type FileInfo struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Date string `json:"date"`
	Grid string `json:"grid"`
}

// GetFiles handles GET /v1/files.
func (h *Handler) GetFiles(c *gin.Context) {
	months, err := intsParam(c, "months")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	onePerMonth, err := boolParam(c, "one_per_month", false)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	files, err := h.analysis.Files(catalog.ListOptions{
		RunName:     c.Query("run"),
		Years:       listParam(c, "years"),
		Grid:        c.Query("grid"),
		Months:      months,
		OnePerMonth: onePerMonth,
		DataPath:    c.Query("data_path"),
	})
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	response := make([]FileInfo, len(files))
	for i, f := range files {
		response[i] = FileInfo{
			Name: f.Name,
			Path: f.Path,
			Date: f.Date().Format("2006-01-02"),
			Grid: f.Grid,
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"files": response,
		"count": len(response),
	})
}

// GetStats handles GET /v1/stats.
func (h *Handler) GetStats(c *gin.Context) {
	window, err := parseWindow(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	depth, err := intParam(c, "depth", 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	masked, err := boolPtrParam(c, "masked")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	minMax, err := boolParam(c, "minmax", false)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req := usecase.StatsRequest{
		File:     c.Query("file"),
		RunName:  c.Query("run"),
		Window:   window,
		Grid:     c.Query("grid"),
		Depth:    depth,
		Variable: c.Query("variable"),
		Masked:   masked,
		MinMax:   minMax,
		MaskPath: c.Query("mask_path"),
	}

	response, err := h.analysis.Stats(req)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, response)
}

// GetTimeSeries handles GET /v1/timeseries. With format=csv the table is
// written as CSV instead of JSON.
func (h *Handler) GetTimeSeries(c *gin.Context) {
	req, err := parseTimeSeriesRequest(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	response, err := h.analysis.TimeSeries(req)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	if c.Query("format") == "csv" {
		writeCSV(c, "timeseries.csv", func() error {
			return export.TimeSeriesCSV(c.Writer, response.Series)
		})
		return
	}
	c.JSON(http.StatusOK, response)
}

// GetClimatology handles GET /v1/climatology. With format=csv the banded
// table is written as CSV; remove_mean and show_cat4 adjust that view.
func (h *Handler) GetClimatology(c *gin.Context) {
	tsReq, err := parseTimeSeriesRequest(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	response, err := h.analysis.Climatology(usecase.ClimatologyRequest{
		TimeSeriesRequest: tsReq,
		Mode:              c.Query("mode"),
	})
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	if c.Query("format") == "csv" {
		removeMean, err := boolParam(c, "remove_mean", false)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		showCat4, err := boolParam(c, "show_cat4", true)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		writeCSV(c, "climatology.csv", func() error {
			return export.BandedCSV(c.Writer, response.Banded, export.Options{
				RemoveMean:    removeMean,
				ShowCategory4: showCat4,
			})
		})
		return
	}
	c.JSON(http.StatusOK, response)
}

// parseTimeSeriesRequest reads the shared selection parameters of the
// time-series and climatology endpoints.
func parseTimeSeriesRequest(c *gin.Context) (usecase.TimeSeriesRequest, error) {
	var req usecase.TimeSeriesRequest

	window, err := parseWindow(c)
	if err != nil {
		return req, err
	}
	months, err := intsParam(c, "months")
	if err != nil {
		return req, err
	}
	onePerMonth, err := boolParam(c, "one_per_month", false)
	if err != nil {
		return req, err
	}
	depth, err := intParam(c, "depth", 0)
	if err != nil {
		return req, err
	}
	masked, err := boolPtrParam(c, "masked")
	if err != nil {
		return req, err
	}
	minMax, err := boolParam(c, "minmax", false)
	if err != nil {
		return req, err
	}
	workers, err := intParam(c, "workers", 0)
	if err != nil {
		return req, err
	}
	skip, err := boolParam(c, "skip_errors", false)
	if err != nil {
		return req, err
	}

	req = usecase.TimeSeriesRequest{
		RunName:        c.Query("run"),
		Years:          listParam(c, "years"),
		Grid:           c.Query("grid"),
		Months:         months,
		OnePerMonth:    onePerMonth,
		Window:         window,
		Depth:          depth,
		Variable:       c.Query("variable"),
		Masked:         masked,
		MinMax:         minMax,
		Workers:        workers,
		SkipFileErrors: skip,
		DataPath:       c.Query("data_path"),
		MaskPath:       c.Query("mask_path"),
	}
	return req, nil
}

// parseWindow reads the spatial-subset parameters: region=, or the
// lat_min/lat_max/lon_min/lon_max box, or the row_first/row_last/
// col_first/col_last index windows.
func parseWindow(c *gin.Context) (usecase.Window, error) {
	var w usecase.Window
	w.Region = c.Query("region")

	latRange, err := rangeParam(c, "lat_min", "lat_max")
	if err != nil {
		return w, err
	}
	lonRange, err := rangeParam(c, "lon_min", "lon_max")
	if err != nil {
		return w, err
	}
	rows, err := indexRangeParam(c, "row_first", "row_last")
	if err != nil {
		return w, err
	}
	cols, err := indexRangeParam(c, "col_first", "col_last")
	if err != nil {
		return w, err
	}

	w.LatRange = latRange
	w.LonRange = lonRange
	w.Rows = rows
	w.Cols = cols
	return w, nil
}

// rangeParam reads a degree interval from a pair of query parameters,
// which must come together or not at all.
func rangeParam(c *gin.Context, minName, maxName string) (*subset.Range, error) {
	minStr, maxStr := c.Query(minName), c.Query(maxName)
	if minStr == "" && maxStr == "" {
		return nil, nil
	}
	if minStr == "" || maxStr == "" {
		return nil, fmt.Errorf("%s and %s must be given together", minName, maxName)
	}
	minVal, err := strconv.ParseFloat(minStr, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %v", minName, err)
	}
	maxVal, err := strconv.ParseFloat(maxStr, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %v", maxName, err)
	}
	return &subset.Range{Min: minVal, Max: maxVal}, nil
}

// indexRangeParam reads an inclusive index window from a pair of query
// parameters, which must come together or not at all.
func indexRangeParam(c *gin.Context, firstName, lastName string) (*subset.IndexRange, error) {
	firstStr, lastStr := c.Query(firstName), c.Query(lastName)
	if firstStr == "" && lastStr == "" {
		return nil, nil
	}
	if firstStr == "" || lastStr == "" {
		return nil, fmt.Errorf("%s and %s must be given together", firstName, lastName)
	}
	first, err := strconv.Atoi(firstStr)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %v", firstName, err)
	}
	last, err := strconv.Atoi(lastStr)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %v", lastName, err)
	}
	return &subset.IndexRange{First: first, Last: last}, nil
}

func intParam(c *gin.Context, name string, def int) (int, error) {
	s := c.Query(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", name, err)
	}
	return v, nil
}

func boolParam(c *gin.Context, name string, def bool) (bool, error) {
	s := c.Query(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %v", name, err)
	}
	return v, nil
}

func boolPtrParam(c *gin.Context, name string) (*bool, error) {
	s := c.Query(name)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %v", name, err)
	}
	return &v, nil
}

func intsParam(c *gin.Context, name string) ([]int, error) {
	s := c.Query(name)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %v", name, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func listParam(c *gin.Context, name string) []string {
	s := c.Query(name)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// writeCSV streams a CSV body with download headers.
func writeCSV(c *gin.Context, filename string, write func() error) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Status(http.StatusOK)
	if err := write(); err != nil {
		// Headers are already out; all that is left is the log.
		log.Errorw("writing csv response", "error", err)
	}
}

// statusFor separates caller mistakes from data and configuration trouble
// on the server side.
func statusFor(err error) int {
	var cfgErr *paths.ConfigError
	var readErr *store.ReadError
	if errors.As(err, &cfgErr) || errors.As(err, &readErr) {
		return http.StatusInternalServerError
	}
	return http.StatusBadRequest
}
