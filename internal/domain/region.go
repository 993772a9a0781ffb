package domain

import "strings"

// Region is a named analysis area: the geographic bounding box used for
// spatial subsetting plus the conic-projection hints downstream plotting
// tools expect.
type Region struct {
	Name              string
	South             float64
	North             float64
	West              float64
	East              float64
	StandardParallels [2]float64
	CentralLongitude  float64
}

// LatRange returns the (min, max) latitude bounds in degrees north.
func (r Region) LatRange() (float64, float64) { return r.South, r.North }

// LonRange returns the (min, max) longitude bounds in degrees east.
func (r Region) LonRange() (float64, float64) { return r.West, r.East }

// Predefined analysis regions.
var (
	HudsonBay = Region{
		Name:              "HudsonBay",
		South:             50,
		North:             65,
		West:              -93,
		East:              -75,
		StandardParallels: [2]float64{52.5, 62.5},
		CentralLongitude:  -80,
	}

	JamesBay = Region{
		Name:              "JamesBay",
		South:             51,
		North:             54.7,
		West:              -82.5,
		East:              -78.5,
		StandardParallels: [2]float64{52, 53},
		CentralLongitude:  -80,
	}
)

// Regions lists the predefined analysis regions.
func Regions() []Region {
	return []Region{HudsonBay, JamesBay}
}

// RegionByName looks up a predefined region. Matching ignores case and any
// '-', '_' or space separators, so "hudson-bay" finds HudsonBay.
func RegionByName(name string) (Region, bool) {
	want := normalizeRegionName(name)
	for _, r := range Regions() {
		if normalizeRegionName(r.Name) == want {
			return r, true
		}
	}
	return Region{}, false
}

func normalizeRegionName(s string) string {
	s = strings.ToLower(s)
	for _, sep := range []string{"-", "_", " "} {
		s = strings.ReplaceAll(s, sep, "")
	}
	return s
}
