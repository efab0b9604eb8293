// Package raster implements the single-band raster model that the layer
// engine is built on: an in-memory grid with an affine geotransform and
// a nodata sentinel. Derived layers are produced by spatial windowing to
// a geographic extent and by pixel-wise arithmetic between two aligned
// rasters.
//
// The on-disk format is the Esri ASCII Grid ("AAIGrid"), which carries
// grid dimensions, origin, cell size, and nodata value in its header and
// is readable by any GIS toolchain.
package raster

import (
	"math"

	"github.com/HarshCasper/gcbmanimation/pkg/errs"
)

// GeoTransform maps pixel coordinates to geographic coordinates in the
// conventional six-coefficient affine order:
//
//	[0] origin X        [1] pixel width   [2] row rotation
//	[3] origin Y        [4] column rotation [5] pixel height (negative for north-up)
type GeoTransform [6]float64

// Apply converts a pixel coordinate to a geographic coordinate.
func (t GeoTransform) Apply(col, row float64) (x, y float64) {
	x = t[0] + col*t[1] + row*t[2]
	y = t[3] + col*t[4] + row*t[5]
	return x, y
}

// PixelWidth returns the horizontal size of a pixel in geographic units.
func (t GeoTransform) PixelWidth() float64 { return t[1] }

// PixelHeight returns the vertical size of a pixel in geographic units.
// Negative for north-up rasters.
func (t GeoTransform) PixelHeight() float64 { return t[5] }

// Extent is a geographic window in upper-left/lower-right order, matching
// the projWin convention of raster translation tools.
type Extent struct {
	ULX float64
	ULY float64
	LRX float64
	LRY float64
}

// Raster is a single-band grid of float64 samples in row-major order with
// row 0 at the top. Pixels equal to Nodata carry no data.
type Raster struct {
	Width     int
	Height    int
	Transform GeoTransform
	Nodata    float64
	Data      []float64
}

// New creates a raster with every pixel set to nodata.
func New(width, height int, transform GeoTransform, nodata float64) *Raster {
	data := make([]float64, width*height)
	for i := range data {
		data[i] = nodata
	}
	return &Raster{
		Width:     width,
		Height:    height,
		Transform: transform,
		Nodata:    nodata,
		Data:      data,
	}
}

// At returns the pixel value at (col, row).
func (r *Raster) At(col, row int) float64 {
	return r.Data[row*r.Width+col]
}

// Set assigns the pixel value at (col, row).
func (r *Raster) Set(col, row int, v float64) {
	r.Data[row*r.Width+col] = v
}

// IsNodata reports whether v equals this raster's nodata sentinel.
func (r *Raster) IsNodata(v float64) bool {
	if math.IsNaN(r.Nodata) {
		return math.IsNaN(v)
	}
	return v == r.Nodata
}

// MinMax returns the minimum and maximum over all data pixels. ok is
// false when the raster is entirely nodata.
func (r *Raster) MinMax() (minV, maxV float64, ok bool) {
	for _, v := range r.Data {
		if r.IsNodata(v) {
			continue
		}
		if !ok {
			minV, maxV, ok = v, v, true
			continue
		}
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}
	return minV, maxV, ok
}

// Sum returns the sum over all data pixels.
func (r *Raster) Sum() float64 {
	var total float64
	for _, v := range r.Data {
		if !r.IsNodata(v) {
			total += v
		}
	}
	return total
}

// Map applies f to every data pixel and returns the result as a new
// raster with the same geometry and nodata value. Nodata pixels pass
// through untouched.
func (r *Raster) Map(f func(v float64) float64) *Raster {
	out := &Raster{
		Width:     r.Width,
		Height:    r.Height,
		Transform: r.Transform,
		Nodata:    r.Nodata,
		Data:      make([]float64, len(r.Data)),
	}
	for i, v := range r.Data {
		if r.IsNodata(v) {
			out.Data[i] = v
		} else {
			out.Data[i] = f(v)
		}
	}
	return out
}

// Calc evaluates f pixel-wise across two rasters of identical dimensions,
// producing a new raster with a's geometry and the given nodata value.
// Unlike Map, f sees every pixel pair including nodata; the caller's
// expression decides how nodata combines, matching the semantics of
// raster calculator tools.
func Calc(a, b *Raster, nodata float64, f func(av, bv float64) float64) (*Raster, error) {
	if a.Width != b.Width || a.Height != b.Height {
		return nil, errs.New(errs.Alignment,
			"raster dimensions differ: %dx%d vs %dx%d", a.Width, a.Height, b.Width, b.Height)
	}
	out := &Raster{
		Width:     a.Width,
		Height:    a.Height,
		Transform: a.Transform,
		Nodata:    nodata,
		Data:      make([]float64, len(a.Data)),
	}
	for i := range a.Data {
		out.Data[i] = f(a.Data[i], b.Data[i])
	}
	return out, nil
}

// Extent returns the full geographic extent of the raster.
func (r *Raster) Extent() Extent {
	lrx, lry := r.Transform.Apply(float64(r.Width), float64(r.Height))
	return Extent{
		ULX: r.Transform[0],
		ULY: r.Transform[3],
		LRX: lrx,
		LRY: lry,
	}
}

// Window clips the raster to the geographic extent e, producing a new
// raster whose origin is e's upper-left corner. Portions of the window
// outside the source are padded with nodata. The window fails when it
// has no overlap with the source at all.
func (r *Raster) Window(e Extent) (*Raster, error) {
	pw, ph := r.Transform.PixelWidth(), r.Transform.PixelHeight()

	col0 := int(math.Round((e.ULX - r.Transform[0]) / pw))
	row0 := int(math.Round((e.ULY - r.Transform[3]) / ph))
	width := int(math.Round((e.LRX - e.ULX) / pw))
	height := int(math.Round((e.LRY - e.ULY) / ph))
	if width <= 0 || height <= 0 {
		return nil, errs.New(errs.RasterIO, "empty window %+v", e)
	}

	if col0 >= r.Width || row0 >= r.Height || col0+width <= 0 || row0+height <= 0 {
		return nil, errs.New(errs.RasterIO,
			"window %+v lies entirely outside raster extent %+v", e, r.Extent())
	}

	ox, oy := r.Transform.Apply(float64(col0), float64(row0))
	transform := r.Transform
	transform[0] = ox
	transform[3] = oy

	out := New(width, height, transform, r.Nodata)
	for row := 0; row < height; row++ {
		srcRow := row0 + row
		if srcRow < 0 || srcRow >= r.Height {
			continue
		}
		for col := 0; col < width; col++ {
			srcCol := col0 + col
			if srcCol < 0 || srcCol >= r.Width {
				continue
			}
			out.Set(col, row, r.At(srcCol, srcRow))
		}
	}
	return out, nil
}
