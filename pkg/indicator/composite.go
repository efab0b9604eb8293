package indicator

import (
	"context"
	"sync"

	"github.com/HarshCasper/gcbmanimation/pkg/frame"
	"github.com/HarshCasper/gcbmanimation/pkg/layer"
	"github.com/HarshCasper/gcbmanimation/pkg/plot"
	"github.com/HarshCasper/gcbmanimation/pkg/results"
)

// PatternBlend pairs a spatial output glob pattern with the blend mode
// that folds it into a composite.
type PatternBlend struct {
	Pattern string
	Mode    layer.BlendMode
}

// CompositeIndicator combines multiple GCBM outputs into a single
// spatial-only indicator, e.g. the component fluxes that make up NBP.
// Its annual series comes from summing the blended pixels rather than
// from the results database.
//
// Patterns are an ordered list, not a map: subtraction makes the fold
// order significant.
type CompositeIndicator struct {
	Indicator
	patterns []PatternBlend

	initOnce  sync.Once
	initErr   error
	composite *layer.LayerCollection
}

// NewComposite creates a composite indicator from an ordered list of
// pattern/blend-mode pairs.
func NewComposite(name string, patterns []PatternBlend, opts ...Option) *CompositeIndicator {
	c := &CompositeIndicator{patterns: patterns}
	c.Indicator = *New(nil, name, "", opts...)
	return c
}

// RenderMapFrames blends the component outputs into composite layers
// and colorizes them into one frame per year, plus the shared legend.
func (c *CompositeIndicator) RenderMapFrames(ctx context.Context, bbox *layer.BoundingBox, colorizer layer.Colorizer) ([]frame.Frame, *layer.Legend, error) {
	if err := c.init(); err != nil {
		return nil, nil, err
	}
	start, end, err := c.provider.SimulationYears(ctx)
	if err != nil {
		return nil, nil, err
	}
	return c.composite.Render(ctx, bbox, start, end, colorizer)
}

// RenderGraphFrames draws the composite's annual pixel sums into one
// graph frame per year.
func (c *CompositeIndicator) RenderGraphFrames(ctx context.Context, bbox *layer.BoundingBox) ([]frame.Frame, error) {
	if err := c.init(); err != nil {
		return nil, err
	}
	return plot.NewResultsPlot(c.name, c.title, c.provider, c.graphUnits).Render(ctx, bbox)
}

// init expands each pattern and folds the discovered collections into
// the composite. The work happens once; every render shares the same
// blended layers and spatial provider.
func (c *CompositeIndicator) init() error {
	c.initOnce.Do(func() {
		composite := layer.NewCollection(
			layer.WithPalette(c.palette),
			layer.WithBackground(c.background))

		for _, pb := range c.patterns {
			layers, err := layer.FindLayers(pb.Pattern, c.mapUnits)
			if err != nil {
				c.initErr = err
				return
			}
			component := layer.NewCollection(
				layer.WithPalette(c.palette),
				layer.WithBackground(c.background),
				layer.WithLayers(layers...))

			composite, err = composite.Blend(component, pb.Mode)
			if err != nil {
				c.initErr = err
				return
			}
		}

		c.composite = composite
		c.provider = results.NewSpatialProviderFromLayers(composite.Layers())
	})
	return c.initErr
}
