// Package indicator ties together the spatial and non-spatial halves
// of an ecosystem indicator: the stack of per-year output rasters that
// become map frames, and the annual series that becomes graph frames.
package indicator

import (
	"context"
	"image/color"

	"github.com/HarshCasper/gcbmanimation/pkg/frame"
	"github.com/HarshCasper/gcbmanimation/pkg/layer"
	"github.com/HarshCasper/gcbmanimation/pkg/plot"
	"github.com/HarshCasper/gcbmanimation/pkg/results"
)

// Indicator is one ecosystem indicator from a GCBM run: a glob pattern
// locating its spatial output and a results provider carrying its
// annual series.
type Indicator struct {
	provider   results.Provider
	name       string
	pattern    string
	title      string
	graphUnits layer.Units
	mapUnits   layer.Units
	palette    string
	background color.RGBA
}

// Option configures an indicator.
type Option func(*Indicator)

// WithTitle overrides the presentation title, which defaults to the
// indicator name.
func WithTitle(title string) Option {
	return func(i *Indicator) { i.title = title }
}

// WithGraphUnits sets the units for graphed values.
func WithGraphUnits(units layer.Units) Option {
	return func(i *Indicator) { i.graphUnits = units }
}

// WithMapUnits declares the units the spatial output was written in.
// Map pixel values are not modified; this drives unit labels and
// spatial aggregation.
func WithMapUnits(units layer.Units) Option {
	return func(i *Indicator) { i.mapUnits = units }
}

// WithPalette sets the color palette for map frames.
func WithPalette(palette string) Option {
	return func(i *Indicator) { i.palette = palette }
}

// WithBackground sets the map frame background color.
func WithBackground(background color.RGBA) Option {
	return func(i *Indicator) { i.background = background }
}

// New creates an indicator. The name doubles as the results database
// indicator to query; pattern locates the spatial output files.
func New(provider results.Provider, name, pattern string, opts ...Option) *Indicator {
	i := &Indicator{
		provider:   provider,
		name:       name,
		pattern:    pattern,
		title:      name,
		graphUnits: layer.UnitsTc,
		mapUnits:   layer.UnitsTcPerHa,
		palette:    "Greens",
		background: color.RGBA{255, 255, 255, 255},
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Title returns the presentation title.
func (i *Indicator) Title() string { return i.title }

// MapUnits returns the units of the spatial output.
func (i *Indicator) MapUnits() layer.Units { return i.mapUnits }

// GraphUnits returns the units graphed values are expressed in.
func (i *Indicator) GraphUnits() layer.Units { return i.graphUnits }

// Palette returns the map frame color palette.
func (i *Indicator) Palette() string { return i.palette }

// RenderMapFrames colorizes the indicator's spatial output into one
// frame per simulation year, plus the legend shared by all frames.
func (i *Indicator) RenderMapFrames(ctx context.Context, bbox *layer.BoundingBox, colorizer layer.Colorizer) ([]frame.Frame, *layer.Legend, error) {
	start, end, err := i.provider.SimulationYears(ctx)
	if err != nil {
		return nil, nil, err
	}
	collection, err := i.findLayers()
	if err != nil {
		return nil, nil, err
	}
	return collection.Render(ctx, bbox, start, end, colorizer)
}

// RenderGraphFrames draws the indicator's annual series into one graph
// frame per simulation year.
func (i *Indicator) RenderGraphFrames(ctx context.Context, bbox *layer.BoundingBox) ([]frame.Frame, error) {
	return plot.NewResultsPlot(i.name, i.title, i.provider, i.graphUnits).Render(ctx, bbox)
}

func (i *Indicator) findLayers() (*layer.LayerCollection, error) {
	layers, err := layer.FindLayers(i.pattern, i.mapUnits)
	if err != nil {
		return nil, err
	}
	return layer.NewCollection(
		layer.WithPalette(i.palette),
		layer.WithBackground(i.background),
		layer.WithLayers(layers...)), nil
}
