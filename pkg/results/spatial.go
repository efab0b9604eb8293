package results

import (
	"context"

	"github.com/HarshCasper/gcbmanimation/pkg/layer"
)

// SpatialProvider derives annual results from a stack of spatial
// output layers by summing their pixels. It serves indicators that
// have no database series, such as blended composite indicators.
type SpatialProvider struct {
	pattern      string
	patternUnits layer.Units
	layers       []*layer.Layer
}

// NewSpatialProvider creates a provider that discovers layers from a
// glob pattern. Discovered layers carry the given units, the units the
// files were written in.
func NewSpatialProvider(pattern string, units layer.Units) *SpatialProvider {
	return &SpatialProvider{pattern: pattern, patternUnits: units}
}

// NewSpatialProviderFromLayers creates a provider over an explicit set
// of layers, such as a composite indicator's blended output.
func NewSpatialProviderFromLayers(layers []*layer.Layer) *SpatialProvider {
	return &SpatialProvider{layers: layers}
}

// SimulationYears returns the first and last year covered by the
// provider's layers.
func (p *SpatialProvider) SimulationYears(ctx context.Context) (start, end int, err error) {
	layers, err := p.findLayers()
	if err != nil {
		return 0, 0, err
	}
	for i, l := range layers {
		if i == 0 || l.Year() < start {
			start = l.Year()
		}
		if i == 0 || l.Year() > end {
			end = l.Year()
		}
	}
	return start, end, nil
}

// AnnualResult sums each year's pixels into a single value, cropping
// to the bounding box first when one is given and converting pixel
// values to the requested units. The indicator name is ignored: a
// spatial provider serves exactly one indicator, its layer stack.
func (p *SpatialProvider) AnnualResult(ctx context.Context, _ string, units layer.Units, bbox *layer.BoundingBox) (Series, error) {
	layers, err := p.findLayers()
	if err != nil {
		return nil, err
	}
	start, end, err := p.SimulationYears(ctx)
	if err != nil {
		return nil, err
	}

	var series Series
	for year := start; year <= end; year++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		l := findYear(layers, year)
		if l == nil {
			series = append(series, Point{Year: year})
			continue
		}
		if bbox != nil {
			l, err = bbox.Crop(l)
			if err != nil {
				return nil, err
			}
		}
		l, err = l.ConvertUnits(units)
		if err != nil {
			return nil, err
		}
		r, err := l.Open()
		if err != nil {
			return nil, err
		}
		series = append(series, Point{Year: year, Value: r.Sum()})
	}
	return series, nil
}

func (p *SpatialProvider) findLayers() ([]*layer.Layer, error) {
	if p.layers != nil {
		return p.layers, nil
	}
	return layer.FindLayers(p.pattern, p.patternUnits)
}

func findYear(layers []*layer.Layer, year int) *layer.Layer {
	for _, l := range layers {
		if l.Year() == year {
			return l
		}
	}
	return nil
}
