// Package results retrieves annual indicator values for graph frames.
//
// Two providers are available: Database reads the compiled GCBM
// results database over SQL, and SpatialProvider derives the same
// shape of series by summing the pixels of a stack of spatial output
// layers. Composite indicators use the spatial provider, since their
// values only exist as blended rasters.
package results

import (
	"context"

	"github.com/HarshCasper/gcbmanimation/pkg/layer"
)

// Point is one year's value in an annual series.
type Point struct {
	Year  int
	Value float64
}

// Series is an annual indicator series in ascending year order.
type Series []Point

// Years returns the series years in order.
func (s Series) Years() []int {
	years := make([]int, len(s))
	for i, p := range s {
		years[i] = p.Year
	}
	return years
}

// MinMax returns the smallest and largest values in the series.
func (s Series) MinMax() (minV, maxV float64) {
	for i, p := range s {
		if i == 0 || p.Value < minV {
			minV = p.Value
		}
		if i == 0 || p.Value > maxV {
			maxV = p.Value
		}
	}
	return minV, maxV
}

// Provider retrieves annual results for an indicator.
type Provider interface {
	// SimulationYears returns the first and last simulation year.
	SimulationYears(ctx context.Context) (start, end int, err error)

	// AnnualResult returns one value per simulation year for the named
	// indicator, expressed in the given units. Spatial providers crop
	// to the bounding box when one is given; database providers ignore
	// it, their values are already aggregated over the simulation area.
	AnnualResult(ctx context.Context, indicator string, units layer.Units, bbox *layer.BoundingBox) (Series, error)
}
