package layer

import (
	"sync"

	"github.com/HarshCasper/gcbmanimation/pkg/errs"
	"github.com/HarshCasper/gcbmanimation/pkg/raster"
	"github.com/HarshCasper/gcbmanimation/pkg/tempfiles"
)

// PixelBounds is a box in integer pixel offsets. Following the margin
// rule, bounds may extend one pixel past the raster's edge; windowing
// pads those pixels with nodata.
type PixelBounds struct {
	XMin int
	XMax int
	YMin int
	YMax int
}

// BoundingBox is a Layer that crops other layers to its minimum spatial
// extent and nodata mask. It moves through three states:
//
//	uninitialized -> bounds-computed -> self-cropped
//
// Bounds are computed from the first raster read and cached for the
// lifetime of the object; the self-crop (rewriting the backing raster
// windowed to its own minimum extent) happens exactly once, on the
// first Crop call. Both transitions are single-flight guarded, so a
// BoundingBox is safe to share across goroutines cropping layers.
type BoundingBox struct {
	*Layer

	boundsOnce  sync.Once
	boundsErr   error
	pixelBounds PixelBounds
	geoBounds   raster.Extent

	cropOnce sync.Once
	cropErr  error
}

// NewBoundingBox creates a bounding box from a reference raster, usually
// the simulation's study area layer.
func NewBoundingBox(path string) *BoundingBox {
	return &BoundingBox{Layer: New(path, 0)}
}

// computeBounds scans the full raster for the tightest box around its
// non-nodata pixels, widened by one pixel on each side, and derives the
// matching geographic extent from the affine transform.
func (b *BoundingBox) computeBounds() {
	b.boundsOnce.Do(func() {
		r, err := b.Open()
		if err != nil {
			b.boundsErr = err
			return
		}

		xMin, xMax := r.Width, 0
		yMin, yMax := -1, -1
		for row := 0; row < r.Height; row++ {
			first, last := -1, -1
			for col := 0; col < r.Width; col++ {
				if r.IsNodata(r.At(col, row)) {
					continue
				}
				if first == -1 {
					first = col
				}
				last = col
			}
			if first == -1 {
				continue
			}
			if yMin == -1 {
				yMin = row
			}
			yMax = row
			if first < xMin {
				xMin = first
			}
			if last > xMax {
				xMax = last
			}
		}

		if yMin == -1 {
			b.boundsErr = errs.New(errs.Alignment,
				"bounding box raster %s is entirely nodata", b.Path())
			return
		}

		// One pixel of margin on every side.
		b.pixelBounds = PixelBounds{
			XMin: xMin - 1,
			XMax: xMax + 1,
			YMin: yMin - 1,
			YMax: yMax + 1,
		}

		xMinProj, yMinProj := r.Transform.Apply(float64(b.pixelBounds.XMin), float64(b.pixelBounds.YMin))
		xMaxProj, yMaxProj := r.Transform.Apply(float64(b.pixelBounds.XMax), float64(b.pixelBounds.YMax))
		b.geoBounds = raster.Extent{
			ULX: xMinProj,
			ULY: yMinProj,
			LRX: xMaxProj,
			LRY: yMaxProj,
		}
	})
}

// MinPixelBounds returns the minimum box surrounding the non-nodata
// pixels of the reference raster, one pixel wider on each side. An
// entirely-nodata reference raster is an alignment error.
func (b *BoundingBox) MinPixelBounds() (PixelBounds, error) {
	b.computeBounds()
	return b.pixelBounds, b.boundsErr
}

// MinGeographicBounds returns the minimum pixel bounds expressed in the
// raster's coordinate system.
func (b *BoundingBox) MinGeographicBounds() (raster.Extent, error) {
	b.computeBounds()
	return b.geoBounds, b.boundsErr
}

// selfCrop rewrites the bounding box's own backing raster windowed to
// its minimum extent. Runs at most once; cached bounds stay valid
// because the crop only tightens the raster to them.
func (b *BoundingBox) selfCrop() error {
	b.cropOnce.Do(func() {
		bounds, err := b.MinGeographicBounds()
		if err != nil {
			b.cropErr = err
			return
		}
		r, err := b.Open()
		if err != nil {
			b.cropErr = err
			return
		}
		cropped, err := r.Window(bounds)
		if err != nil {
			b.cropErr = err
			return
		}
		path := tempfiles.New(".asc")
		if err := cropped.Write(path); err != nil {
			b.cropErr = err
			return
		}
		b.path = path
	})
	return b.cropErr
}

// Crop clips a layer to this bounding box's minimum spatial extent and
// imposes the box's nodata mask: wherever the box has no data, the
// output carries the input layer's own nodata value regardless of the
// input pixel. Returns a new layer with the input's year,
// interpretation, and units.
//
// No coordinate-system validation is performed; layers are expected to
// share the reference raster's grid.
func (b *BoundingBox) Crop(l *Layer) (*Layer, error) {
	if err := b.selfCrop(); err != nil {
		return nil, err
	}
	bounds, err := b.MinGeographicBounds()
	if err != nil {
		return nil, err
	}

	src, err := l.Open()
	if err != nil {
		return nil, err
	}
	windowed, err := src.Window(bounds)
	if err != nil {
		return nil, err
	}

	mask, err := b.Open()
	if err != nil {
		return nil, err
	}

	// Output pixel = input where the box has data, else the input's own
	// nodata value.
	out, err := raster.Calc(windowed, mask, windowed.Nodata, func(av, bv float64) float64 {
		if mask.IsNodata(bv) {
			return windowed.Nodata
		}
		return av
	})
	if err != nil {
		return nil, err
	}

	outPath := tempfiles.New(".asc")
	if err := out.Write(outPath); err != nil {
		return nil, err
	}
	return New(outPath, l.Year(), WithInterpretation(l.Interpretation()), WithUnits(l.Units())), nil
}
