package layer

import (
	"context"
	"image/color"
	"sort"

	"github.com/HarshCasper/gcbmanimation/pkg/errs"
	"github.com/HarshCasper/gcbmanimation/pkg/frame"
	"github.com/HarshCasper/gcbmanimation/pkg/raster"
	"github.com/HarshCasper/gcbmanimation/pkg/tempfiles"
)

// ColorizeOptions carries the styling configuration a collection passes
// through to the colorization collaborator without interpreting it.
type ColorizeOptions struct {
	// Transparent renders nodata and zero-value pixels as transparent.
	Transparent bool
	// Background is the color behind map pixels in opaque renders.
	Background color.RGBA
}

// Colorizer is the colorization collaborator: it computes a legend over
// a group of layers and renders individual layers into colorized
// frames. Implementations live in pkg/colorize.
type Colorizer interface {
	CreateLegend(layers []*Layer, palette string) (*Legend, error)
	Colorize(l *Layer, legend *Legend, opts ColorizeOptions) (frame.Frame, error)
}

// LayerCollection is an ordered set of layers that belong together in an
// animation: a set of value layers for one indicator, or interpreted
// layers along one theme such as disturbances. At most one layer per
// year is meaningful for rendering, though the sequence itself is
// append-only.
type LayerCollection struct {
	layers     []*Layer
	palette    string
	background color.RGBA
}

// CollectionOption configures a new collection.
type CollectionOption func(*LayerCollection)

// WithPalette sets the color palette name used when rendering.
func WithPalette(palette string) CollectionOption {
	return func(c *LayerCollection) { c.palette = palette }
}

// WithBackground sets the background color for rendered frames.
func WithBackground(background color.RGBA) CollectionOption {
	return func(c *LayerCollection) { c.background = background }
}

// WithLayers seeds the collection with layers.
func WithLayers(layers ...*Layer) CollectionOption {
	return func(c *LayerCollection) { c.layers = append(c.layers, layers...) }
}

// NewCollection creates a layer collection. The default palette is
// "hls" with a white background.
func NewCollection(opts ...CollectionOption) *LayerCollection {
	c := &LayerCollection{
		palette:    "hls",
		background: color.RGBA{255, 255, 255, 255},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Empty reports whether the collection has no layers. An empty
// collection produced by discovery must be rejected as "no data found"
// before any blend is attempted.
func (c *LayerCollection) Empty() bool { return len(c.layers) == 0 }

// Len returns the number of layers in the collection.
func (c *LayerCollection) Len() int { return len(c.layers) }

// Layers returns the collection's layers in append order.
func (c *LayerCollection) Layers() []*Layer { return c.layers }

// Palette returns the collection's palette name.
func (c *LayerCollection) Palette() string { return c.palette }

// Background returns the collection's background color.
func (c *LayerCollection) Background() color.RGBA { return c.background }

// Append adds a layer to the collection. Append mutates in place and is
// only used while populating a collection; blending is functional.
func (c *LayerCollection) Append(l *Layer) {
	c.layers = append(c.layers, l)
}

// Merge appends another collection's layers into this one.
func (c *LayerCollection) Merge(other *LayerCollection) {
	c.layers = append(c.layers, other.layers...)
}

// findYear returns the first layer for the given year, or nil.
func (c *LayerCollection) findYear(year int) *Layer {
	for _, l := range c.layers {
		if l.Year() == year {
			return l
		}
	}
	return nil
}

// Blend combines this collection with another year by year using the
// given mode, producing a new collection; neither input is modified.
// Blending into an empty collection adopts the other's layers
// unchanged, which is how a composite fold starts.
//
// Every year must be present on both sides: a year with no counterpart
// is an alignment error rather than silent data loss.
func (c *LayerCollection) Blend(other *LayerCollection, mode BlendMode) (*LayerCollection, error) {
	if !mode.Valid() {
		return nil, errs.New(errs.InvalidConfig, "unknown blend mode %q", mode)
	}

	out := NewCollection(WithPalette(c.palette), WithBackground(c.background))
	if c.Empty() {
		out.layers = append(out.layers, other.layers...)
		return out, nil
	}

	if len(c.layers) != len(other.layers) {
		return nil, errs.New(errs.Alignment,
			"cannot blend collections of %d and %d layers", len(c.layers), len(other.layers))
	}
	for _, l := range c.layers {
		counterpart := other.findYear(l.Year())
		if counterpart == nil {
			return nil, errs.New(errs.Alignment, "no layer for year %d to blend with", l.Year())
		}
		blended, err := l.Blend(counterpart, mode)
		if err != nil {
			return nil, err
		}
		out.layers = append(out.layers, blended)
	}
	return out, nil
}

// Render colorizes the collection into one frame per year in ascending
// year order, plus a single legend computed across the full value range
// of the collection.
//
// Each layer is cropped against the bounding box when one is provided;
// the bounding box also becomes the flattened grey background layer.
// Years in [startYear, endYear] with no layer render as the bare
// background frame. Passing 0 for both years renders every layer year.
func (c *LayerCollection) Render(ctx context.Context, bbox *BoundingBox, startYear, endYear int, colorizer Colorizer) ([]frame.Frame, *Legend, error) {
	if c.Empty() {
		return nil, nil, errs.New(errs.DiscoveryEmpty, "cannot render an empty layer collection")
	}

	layerYears := make(map[int]bool, len(c.layers))
	for _, l := range c.layers {
		layerYears[l.Year()] = true
	}

	var renderYears []int
	if startYear == 0 && endYear == 0 {
		for year := range layerYears {
			renderYears = append(renderYears, year)
		}
		sort.Ints(renderYears)
	} else {
		for year := startYear; year <= endYear; year++ {
			renderYears = append(renderYears, year)
		}
	}

	working := make([]*Layer, 0, len(c.layers))
	for _, l := range c.layers {
		inRange := (startYear == 0 && endYear == 0) || (l.Year() >= startYear && l.Year() <= endYear)
		if inRange {
			working = append(working, l)
		}
	}
	if len(working) == 0 {
		return nil, nil, errs.New(errs.Alignment,
			"no layers between %d and %d", startYear, endYear)
	}

	// Interpreted layers get their pixel values normalized to a common
	// interpretation across the whole collection before a shared legend
	// is built.
	var err error
	working, err = c.normalizeInterpretations(working)
	if err != nil {
		return nil, nil, err
	}

	// A fragmented collection (e.g. fire and harvest in separate files)
	// is mosaicked into one layer per year.
	byYear := make(map[int][]*Layer)
	for _, l := range working {
		byYear[l.Year()] = append(byYear[l.Year()], l)
	}
	merged := make(map[int]*Layer, len(byYear))
	for year, group := range byYear {
		m, err := mergeLayers(group)
		if err != nil {
			return nil, nil, err
		}
		merged[year] = m
	}

	legendLayers := make([]*Layer, 0, len(merged))
	for _, year := range sortedKeys(merged) {
		legendLayers = append(legendLayers, merged[year])
	}
	legend, err := colorizer.CreateLegend(legendLayers, c.palette)
	if err != nil {
		return nil, nil, err
	}

	background, err := c.renderBackground(bbox, working[0], colorizer)
	if err != nil {
		return nil, nil, err
	}

	frames := make([]frame.Frame, 0, len(renderYears))
	for _, year := range renderYears {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		l, ok := merged[year]
		if !ok {
			frames = append(frames, frame.New(year, background.Path))
			continue
		}
		if bbox != nil {
			l, err = bbox.Crop(l)
			if err != nil {
				return nil, nil, err
			}
		}
		rendered, err := colorizer.Colorize(l, legend, ColorizeOptions{
			Transparent: true,
			Background:  c.background,
		})
		if err != nil {
			return nil, nil, err
		}
		composed, err := rendered.Composite(background, true)
		if err != nil {
			return nil, nil, err
		}
		frames = append(frames, composed)
	}
	return frames, legend, nil
}

// normalizeInterpretations reclassifies interpreted layers onto one
// shared attribute table so a single legend covers the collection.
// Uninterpreted collections pass through unchanged.
func (c *LayerCollection) normalizeInterpretations(layers []*Layer) ([]*Layer, error) {
	interpreted := false
	for _, l := range layers {
		if l.HasInterpretation() {
			interpreted = true
			break
		}
	}
	if !interpreted {
		return layers, nil
	}

	labels := make(map[string]bool)
	for _, l := range layers {
		for _, label := range l.Interpretation() {
			labels[label] = true
		}
	}
	ordered := make([]string, 0, len(labels))
	for label := range labels {
		ordered = append(ordered, label)
	}
	sort.Strings(ordered)

	common := make(map[float64]string, len(ordered))
	for i, label := range ordered {
		common[float64(i+1)] = label
	}

	out := make([]*Layer, 0, len(layers))
	for _, l := range layers {
		reclassified, err := l.Reclassify(common, 0)
		if err != nil {
			return nil, err
		}
		out = append(out, reclassified)
	}
	return out, nil
}

// renderBackground flattens the bounding box (or the first layer when
// no box is given) to a grey opaque silhouette frame.
func (c *LayerCollection) renderBackground(bbox *BoundingBox, fallback *Layer, colorizer Colorizer) (frame.Frame, error) {
	backgroundLayer := fallback
	if bbox != nil {
		backgroundLayer = bbox.Layer
	}
	flat, err := backgroundLayer.Flatten(1)
	if err != nil {
		return frame.Frame{}, err
	}
	if bbox != nil {
		flat, err = bbox.Crop(flat)
		if err != nil {
			return frame.Frame{}, err
		}
	}
	grey := &Legend{Entries: []LegendEntry{{
		Kind:  EntryExact,
		Value: 1,
		Color: color.RGBA{128, 128, 128, 255},
	}}}
	return colorizer.Colorize(flat, grey, ColorizeOptions{
		Transparent: false,
		Background:  c.background,
	})
}

// mergeLayers mosaics several same-year layers into one: later layers
// win where they carry data. Layers must share the same grid.
func mergeLayers(layers []*Layer) (*Layer, error) {
	if len(layers) == 1 {
		return layers[0], nil
	}

	acc, err := layers[0].Open()
	if err != nil {
		return nil, err
	}
	for _, l := range layers[1:] {
		next, err := l.Open()
		if err != nil {
			return nil, err
		}
		acc, err = raster.Calc(acc, next, acc.Nodata, func(av, bv float64) float64 {
			if next.IsNodata(bv) {
				return av
			}
			return bv
		})
		if err != nil {
			return nil, err
		}
	}

	outPath := tempfiles.New(".asc")
	if err := acc.Write(outPath); err != nil {
		return nil, err
	}
	return New(outPath, layers[0].Year(),
		WithInterpretation(layers[0].Interpretation()), WithUnits(layers[0].Units())), nil
}

func sortedKeys(m map[int]*Layer) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
