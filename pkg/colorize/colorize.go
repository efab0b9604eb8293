// Package colorize turns raster layers into colorized map frames.
//
// A colorizer computes a legend once across a whole collection of
// layers so that colors stay comparable between animation frames, then
// renders each layer into a PNG using that legend. Two classification
// strategies are provided: Simple (equal-width bins) and Quantile
// (equal-count bins, which usually shows more activity in rendered
// maps for skewed indicators).
package colorize

import (
	"image"
	"image/color"
	"math"
	"sort"
	"strconv"

	"github.com/disintegration/imaging"

	"github.com/HarshCasper/gcbmanimation/pkg/errs"
	"github.com/HarshCasper/gcbmanimation/pkg/frame"
	"github.com/HarshCasper/gcbmanimation/pkg/layer"
	"github.com/HarshCasper/gcbmanimation/pkg/tempfiles"
)

const defaultBins = 8

// Simple classifies layer values into equal-width bins. The value
// range is padded by half a unit on each side so the extremes never
// land exactly on a bin edge.
type Simple struct {
	renderer
	bins int
}

// NewSimple creates an equal-width colorizer with the default number
// of bins.
func NewSimple() *Simple {
	return &Simple{bins: defaultBins}
}

// CreateLegend builds the legend for a group of layers. Interpreted
// layers get one exact-value entry per attribute; value layers get
// equal-width bins over the collection's padded min/max range.
func (s *Simple) CreateLegend(layers []*layer.Layer, palette string) (*layer.Legend, error) {
	if entries, ok, err := interpretedEntries(layers, palette); ok || err != nil {
		if err != nil {
			return nil, err
		}
		return &layer.Legend{Entries: entries}, nil
	}

	minValue, maxValue, err := collectionRange(layers)
	if err != nil {
		return nil, err
	}
	minValue -= 0.5
	maxValue += 0.5
	binSize := (maxValue - minValue) / float64(s.bins)

	colors, err := Colors(palette, s.bins)
	if err != nil {
		return nil, err
	}

	entries := make([]layer.LegendEntry, 0, s.bins)
	for i := 0; i < s.bins; i++ {
		switch {
		case i == 0:
			bound := minValue + binSize
			entries = append(entries, layer.LegendEntry{
				Kind:  layer.EntryBelow,
				Value: bound,
				Label: "<= " + formatValue(bound),
				Color: colors[i],
			})
		case i == s.bins-1:
			bound := maxValue - binSize
			entries = append(entries, layer.LegendEntry{
				Kind:  layer.EntryAbove,
				Value: bound,
				Label: "> " + formatValue(bound),
				Color: colors[i],
			})
		default:
			lo := minValue + float64(i)*binSize
			hi := minValue + float64(i+1)*binSize
			entries = append(entries, layer.LegendEntry{
				Kind:  layer.EntryRange,
				Min:   lo,
				Max:   hi,
				Label: formatValue(lo) + " to " + formatValue(hi),
				Color: colors[i],
			})
		}
	}
	return &layer.Legend{Entries: entries}, nil
}

// Quantile classifies layer values into equal-count bins computed from
// the pooled pixel values of every layer in the collection.
type Quantile struct {
	renderer
	bins int
}

// NewQuantile creates a quantile colorizer. Non-positive bins fall
// back to the default.
func NewQuantile(bins int) *Quantile {
	if bins <= 0 {
		bins = defaultBins
	}
	return &Quantile{bins: bins}
}

// CreateLegend builds the legend for a group of layers. Interpreted
// layers get one exact-value entry per attribute; value layers get
// quantile bins over the pooled pixel values.
func (q *Quantile) CreateLegend(layers []*layer.Layer, palette string) (*layer.Legend, error) {
	if entries, ok, err := interpretedEntries(layers, palette); ok || err != nil {
		if err != nil {
			return nil, err
		}
		return &layer.Legend{Entries: entries}, nil
	}

	var data []float64
	for _, l := range layers {
		r, err := l.Open()
		if err != nil {
			return nil, err
		}
		for _, v := range r.Data {
			if !r.IsNodata(v) {
				data = append(data, v)
			}
		}
	}
	if len(data) == 0 {
		return nil, errs.New(errs.Alignment, "no data pixels to classify")
	}
	sort.Float64s(data)

	bounds := quantileBounds(data, q.bins)
	colors, err := Colors(palette, len(bounds))
	if err != nil {
		return nil, err
	}

	entries := make([]layer.LegendEntry, 0, len(bounds))
	for i, bound := range bounds {
		if i == 0 {
			entries = append(entries, layer.LegendEntry{
				Kind:  layer.EntryBelow,
				Value: bound,
				Label: "<= " + formatValue(bound),
				Color: colors[i],
			})
			continue
		}
		entries = append(entries, layer.LegendEntry{
			Kind:  layer.EntryRange,
			Min:   bounds[i-1],
			Max:   bound,
			Label: formatValue(bounds[i-1]) + " to " + formatValue(bound),
			Color: colors[i],
		})
	}
	return &layer.Legend{Entries: entries}, nil
}

// quantileBounds returns the upper bound of each equal-count bin over
// sorted data. Duplicate bounds collapse, so heavily repeated values
// yield fewer than k bins.
func quantileBounds(sorted []float64, k int) []float64 {
	bounds := make([]float64, 0, k)
	n := len(sorted)
	for i := 1; i <= k; i++ {
		idx := int(math.Ceil(float64(i)/float64(k)*float64(n))) - 1
		if idx < 0 {
			idx = 0
		}
		bound := sorted[idx]
		if len(bounds) == 0 || bound > bounds[len(bounds)-1] {
			bounds = append(bounds, bound)
		}
	}
	return bounds
}

// interpretedEntries builds exact-value entries when any layer in the
// group carries an attribute interpretation. Entries are ordered by
// pixel value so colors are stable across runs.
func interpretedEntries(layers []*layer.Layer, palette string) ([]layer.LegendEntry, bool, error) {
	interpretation := make(map[float64]string)
	for _, l := range layers {
		for value, label := range l.Interpretation() {
			interpretation[value] = label
		}
	}
	if len(interpretation) == 0 {
		return nil, false, nil
	}

	values := make([]float64, 0, len(interpretation))
	for v := range interpretation {
		values = append(values, v)
	}
	sort.Float64s(values)

	colors, err := Colors(palette, len(values))
	if err != nil {
		return nil, true, err
	}
	entries := make([]layer.LegendEntry, 0, len(values))
	for i, v := range values {
		entries = append(entries, layer.LegendEntry{
			Kind:  layer.EntryExact,
			Value: v,
			Label: interpretation[v],
			Color: colors[i],
		})
	}
	return entries, true, nil
}

func collectionRange(layers []*layer.Layer) (minValue, maxValue float64, err error) {
	for i, l := range layers {
		lo, hi, err := l.MinMax()
		if err != nil {
			return 0, 0, err
		}
		if i == 0 || lo < minValue {
			minValue = lo
		}
		if i == 0 || hi > maxValue {
			maxValue = hi
		}
	}
	return minValue, maxValue, nil
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// renderer implements the shared layer-to-PNG half of the Colorizer
// interface.
type renderer struct{}

// Colorize paints a layer into a PNG frame using the legend's color
// mapping. Nodata and zero-value pixels render transparent (or as the
// background color for opaque renders); data pixels that miss every
// legend entry take the nearest entry's color, so rounding at bin
// edges never leaves holes in the map.
func (renderer) Colorize(l *layer.Layer, legend *layer.Legend, opts layer.ColorizeOptions) (frame.Frame, error) {
	r, err := l.Open()
	if err != nil {
		return frame.Frame{}, err
	}

	empty := color.NRGBA{255, 255, 255, 0}
	if !opts.Transparent {
		empty = color.NRGBA{opts.Background.R, opts.Background.G, opts.Background.B, 255}
	}

	img := image.NewNRGBA(image.Rect(0, 0, r.Width, r.Height))
	for row := 0; row < r.Height; row++ {
		for col := 0; col < r.Width; col++ {
			v := r.At(col, row)
			if r.IsNodata(v) || v == 0 {
				img.SetNRGBA(col, row, empty)
				continue
			}
			c, ok := legend.ColorFor(v)
			if !ok {
				c, ok = nearestColor(legend, v)
			}
			if !ok {
				img.SetNRGBA(col, row, empty)
				continue
			}
			img.SetNRGBA(col, row, color.NRGBA{c.R, c.G, c.B, 255})
		}
	}

	path := tempfiles.New(".png")
	if err := imaging.Save(img, path); err != nil {
		return frame.Frame{}, errs.Wrap(errs.RasterIO, err, "failed to save colorized frame")
	}
	return frame.New(l.Year(), path), nil
}

// nearestColor returns the color of the legend entry whose value or
// range sits closest to v.
func nearestColor(legend *layer.Legend, v float64) (color.RGBA, bool) {
	best := math.Inf(1)
	var c color.RGBA
	found := false
	for _, e := range legend.Entries {
		var d float64
		switch e.Kind {
		case layer.EntryExact, layer.EntryBelow, layer.EntryAbove:
			d = math.Abs(v - e.Value)
		case layer.EntryRange:
			d = math.Min(math.Abs(v-e.Min), math.Abs(v-e.Max))
		}
		if d < best {
			best = d
			c = e.Color
			found = true
		}
	}
	return c, found
}
