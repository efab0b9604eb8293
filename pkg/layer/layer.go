// Package layer implements the raster alignment and blending core of
// gcbmanimation: year-labelled raster layers, the minimum-extent bounding
// box that crops other layers to a study area, and year-indexed layer
// collections that blend into composite series and render into frames.
package layer

import (
	"sync"

	"github.com/HarshCasper/gcbmanimation/pkg/errs"
	"github.com/HarshCasper/gcbmanimation/pkg/raster"
	"github.com/HarshCasper/gcbmanimation/pkg/tempfiles"
)

// Layer is a handle to a single raster file for a single year. The
// optional interpretation maps pixel values to attribute labels, e.g.
// {1: "Wildfire"}; when present, pixels outside the interpretation are
// treated as nodata for rendering purposes.
//
// Layers never mutate their backing file: crop, blend, flatten,
// reclassify, and unit conversion all write fresh temporary rasters and
// return new layers.
type Layer struct {
	path           string
	year           int
	interpretation map[float64]string
	units          Units

	// Stats are read from the raster once and cached for the lifetime
	// of the layer.
	statsOnce sync.Once
	statsErr  error
	nodata    float64
	minValue  float64
	maxValue  float64
	hasData   bool
}

// Option configures optional layer attributes at construction.
type Option func(*Layer)

// WithInterpretation attaches a pixel-value-to-label attribute table.
func WithInterpretation(interpretation map[float64]string) Option {
	return func(l *Layer) { l.interpretation = interpretation }
}

// WithUnits sets the measurement units of the layer's pixel values.
func WithUnits(units Units) Option {
	return func(l *Layer) { l.units = units }
}

// New creates a layer for the raster at path applying to the given year.
// Year 0 marks layers that are not time-indexed, such as bounding boxes.
func New(path string, year int, opts ...Option) *Layer {
	l := &Layer{path: path, year: year, units: UnitsTcPerHa}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Path returns the layer's backing raster file path.
func (l *Layer) Path() string { return l.path }

// Year returns the year the layer applies to.
func (l *Layer) Year() int { return l.year }

// Units returns the measurement units of the layer's pixel values.
func (l *Layer) Units() Units { return l.units }

// Interpretation returns the pixel-value-to-label table, or nil.
func (l *Layer) Interpretation() map[float64]string { return l.interpretation }

// HasInterpretation reports whether pixel values have meaning beyond
// their literal numeric value.
func (l *Layer) HasInterpretation() bool { return l.interpretation != nil }

// Open reads the layer's backing raster.
func (l *Layer) Open() (*raster.Raster, error) {
	return raster.Open(l.path)
}

// readStats loads nodata and min/max once; subsequent calls are no-ops.
func (l *Layer) readStats() {
	l.statsOnce.Do(func() {
		r, err := raster.Open(l.path)
		if err != nil {
			l.statsErr = err
			return
		}
		l.nodata = r.Nodata
		l.minValue, l.maxValue, l.hasData = r.MinMax()
	})
}

// NodataValue returns the raster's declared nodata sentinel, read from
// the file once and cached.
func (l *Layer) NodataValue() (float64, error) {
	l.readStats()
	return l.nodata, l.statsErr
}

// MinMax returns the layer's minimum and maximum data pixel values.
// Both are 0 for an all-nodata raster.
func (l *Layer) MinMax() (minV, maxV float64, err error) {
	l.readStats()
	if l.statsErr != nil {
		return 0, 0, l.statsErr
	}
	if !l.hasData {
		return 0, 0, nil
	}
	return l.minValue, l.maxValue, nil
}

// Blend combines this layer's pixel values with another's using the
// given mode. Nodata on either side acts as the additive identity; two
// nodata pixels stay nodata. The result is a new layer with this
// layer's year and interpretation.
func (l *Layer) Blend(other *Layer, mode BlendMode) (*Layer, error) {
	combine, ok := blendFuncs[mode]
	if !ok {
		return nil, errs.New(errs.InvalidConfig, "unknown blend mode %q", mode)
	}

	a, err := l.Open()
	if err != nil {
		return nil, err
	}
	b, err := other.Open()
	if err != nil {
		return nil, err
	}

	out, err := raster.Calc(a, b, a.Nodata, func(av, bv float64) float64 {
		return combine(av, bv, a.Nodata, b.Nodata)
	})
	if err != nil {
		return nil, err
	}

	outPath := tempfiles.New(".asc")
	if err := out.Write(outPath); err != nil {
		return nil, err
	}
	return New(outPath, l.year, WithInterpretation(l.interpretation), WithUnits(l.units)), nil
}

// Flatten sets every data pixel to the given value, producing the flat
// silhouette used for animation background frames.
func (l *Layer) Flatten(value float64) (*Layer, error) {
	r, err := l.Open()
	if err != nil {
		return nil, err
	}
	flat := r.Map(func(float64) float64 { return value })

	outPath := tempfiles.New(".asc")
	if err := flat.Write(outPath); err != nil {
		return nil, err
	}
	return New(outPath, l.year), nil
}

// Reclassify remaps this layer's pixel values to a new interpretation.
// Pixel values whose label is absent from the new interpretation become
// nodata, as do uninterpreted values.
func (l *Layer) Reclassify(newInterpretation map[float64]string, nodata float64) (*Layer, error) {
	if l.interpretation == nil {
		return nil, errs.New(errs.Internal, "cannot reclassify uninterpreted layer %s", l.path)
	}

	r, err := l.Open()
	if err != nil {
		return nil, err
	}

	byLabel := make(map[string]float64, len(newInterpretation))
	for value, label := range newInterpretation {
		byLabel[label] = value
	}

	remap := make(map[float64]float64, len(l.interpretation))
	for oldValue, label := range l.interpretation {
		if newValue, ok := byLabel[label]; ok {
			remap[oldValue] = newValue
		} else {
			remap[oldValue] = nodata
		}
	}

	out := raster.New(r.Width, r.Height, r.Transform, nodata)
	for i, v := range r.Data {
		if newValue, ok := remap[v]; ok {
			out.Data[i] = newValue
		}
	}

	outPath := tempfiles.New(".asc")
	if err := out.Write(outPath); err != nil {
		return nil, err
	}
	return New(outPath, l.year, WithInterpretation(newInterpretation), WithUnits(l.units)), nil
}

// ConvertUnits rescales this layer's values into new units, covering
// both scale (tC/KtC/MtC) and area basis (per-hectare vs absolute).
// Cell sizes are taken to be in metres for the area conversion.
func (l *Layer) ConvertUnits(units Units) (*Layer, error) {
	r, err := l.Open()
	if err != nil {
		return nil, err
	}

	factor := l.units.Scale() / units.Scale()
	perHaModifier := 1.0
	if l.units.PerHectare() != units.PerHectare() {
		const oneHectare = 100 * 100
		cell := r.Transform.PixelWidth()
		pixelArea := cell * cell
		if l.units.PerHectare() {
			perHaModifier = pixelArea / oneHectare
		} else {
			perHaModifier = oneHectare / pixelArea
		}
	}

	converted := r.Map(func(v float64) float64 { return v * factor * perHaModifier })

	outPath := tempfiles.New(".asc")
	if err := converted.Write(outPath); err != nil {
		return nil, err
	}
	return New(outPath, l.year, WithInterpretation(l.interpretation), WithUnits(units)), nil
}
