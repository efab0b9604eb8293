package animate

import (
	"image"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"

	"github.com/HarshCasper/gcbmanimation/pkg/errs"
	"github.com/HarshCasper/gcbmanimation/pkg/fonts"
	"github.com/HarshCasper/gcbmanimation/pkg/frame"
	"github.com/HarshCasper/gcbmanimation/pkg/tempfiles"
)

const (
	titleFontSize    = 100
	quadrantFontSize = 60
)

// Percent is a quadrant's share of the canvas, as width and height
// percentages.
type Percent struct {
	Width  float64
	Height float64
}

type quadrant struct {
	x, y          int
	width, height int
	title         string
}

// QuadrantLayout arranges four frames on a single canvas: top-left,
// top-right, bottom-left, bottom-right. Each quadrant scales its frame
// to the largest size that fits while preserving aspect ratio.
type QuadrantLayout struct {
	pcts   [4]Percent
	margin float64
}

// NewQuadrantLayout creates a layout with the given quadrant sizes in
// reading order.
func NewQuadrantLayout(q1, q2, q3, q4 Percent) *QuadrantLayout {
	return &QuadrantLayout{pcts: [4]Percent{q1, q2, q3, q4}, margin: 0.05}
}

// Render composes the four frames onto one canvas with optional
// per-quadrant labels and an overall title. The output frame takes the
// first quadrant's year.
func (q *QuadrantLayout) Render(frames [4]frame.Frame, labels [4]string, title string, width, height int) (frame.Frame, error) {
	canvasWidth := int(float64(width) * (1 - q.margin))
	canvasHeight := int(float64(height) * (1 - q.margin))
	canvasXMin := (width - canvasWidth) / 2
	canvasXMax := width - (width-canvasWidth)/2
	canvasYMin := (height - canvasHeight) / 2
	canvasYMax := height - (height-canvasHeight)/2

	dc := gg.NewContext(width, height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.SetRGB(0, 0, 0)

	if title != "" {
		face, err := fonts.Bold(titleFontSize)
		if err != nil {
			return frame.Frame{}, err
		}
		dc.SetFontFace(face)
		titleHeight := int(titleFontSize + float64(height)*0.01)
		dc.DrawStringAnchored(title, float64(width)/2, float64(height)*q.margin/2+titleFontSize/2, 0.5, 0.5)
		canvasHeight -= titleHeight / 2
		canvasYMin += titleHeight / 2
	}

	quadrants := [4]quadrant{
		{
			x:      canvasXMin,
			y:      canvasYMin,
			width:  int(q.pcts[0].Width / 100 * float64(canvasWidth)),
			height: int(q.pcts[0].Height / 100 * float64(canvasHeight)),
			title:  labels[0],
		},
		{
			x:      canvasXMax - int(q.pcts[1].Width/100*float64(canvasWidth)),
			y:      canvasYMin,
			width:  int(q.pcts[1].Width / 100 * float64(canvasWidth)),
			height: int(q.pcts[1].Height / 100 * float64(canvasHeight)),
			title:  labels[1],
		},
		{
			x:      canvasXMin,
			y:      canvasYMax - int(q.pcts[2].Height/100*float64(canvasHeight)),
			width:  int(q.pcts[2].Width / 100 * float64(canvasWidth)),
			height: int(q.pcts[2].Height / 100 * float64(canvasHeight)),
			title:  labels[2],
		},
		{
			x:      canvasXMax - int(q.pcts[3].Width/100*float64(canvasWidth)),
			y:      canvasYMax - int(q.pcts[3].Height/100*float64(canvasHeight)),
			width:  int(q.pcts[3].Width / 100 * float64(canvasWidth)),
			height: int(q.pcts[3].Height / 100 * float64(canvasHeight)),
			title:  labels[3],
		},
	}

	for i, f := range frames {
		if err := q.renderQuadrant(dc, quadrants[i], f, height); err != nil {
			return frame.Frame{}, err
		}
	}

	path := tempfiles.New(".png")
	if err := dc.SavePNG(path); err != nil {
		return frame.Frame{}, errs.Wrap(errs.RasterIO, err, "failed to save animation frame")
	}
	return frame.New(frames[0].Year, path), nil
}

func (q *QuadrantLayout) renderQuadrant(dc *gg.Context, quad quadrant, f frame.Frame, canvasHeight int) error {
	titleHeight := 0
	if quad.title != "" {
		face, err := fonts.Bold(quadrantFontSize)
		if err != nil {
			return err
		}
		dc.SetFontFace(face)
		titleHeight = int(quadrantFontSize + float64(canvasHeight)*0.01)
		dc.DrawStringAnchored(quad.title,
			float64(quad.x)+float64(quad.width)/2,
			float64(quad.y)+float64(titleHeight)/2, 0.5, 0.5)
	}

	img, err := imaging.Open(f.Path)
	if err != nil {
		return errs.Wrap(errs.RasterIO, err, "failed to open frame %s", f.Path)
	}
	newWidth, newHeight := q.bestFit(img, quad, titleHeight)
	resized := imaging.Resize(img, newWidth, newHeight, imaging.Lanczos)

	x := quad.x + (quad.width-newWidth)/2
	y := quad.y + (quad.height-newHeight)/2 + titleHeight/2
	dc.DrawImage(resized, x, y)
	return nil
}

// bestFit scales the image to the largest size that fits inside the
// quadrant while preserving its aspect ratio.
func (q *QuadrantLayout) bestFit(img image.Image, quad quadrant, topMargin int) (int, int) {
	bounds := img.Bounds()
	aspect := float64(bounds.Dx()) / float64(bounds.Dy())

	maxX := int(float64(quad.width) * (1 - q.margin*2))
	maxY := int(float64(quad.height)*(1-q.margin*2)) - topMargin

	var newWidth, newHeight int
	if aspect > 1 {
		newWidth = maxX
		newHeight = int(float64(newWidth) / aspect)
		if newHeight > maxY {
			newHeight = maxY
			newWidth = int(float64(newHeight) * aspect)
		}
	} else {
		newHeight = maxY
		newWidth = int(float64(newHeight) * aspect)
		if newWidth > maxX {
			newWidth = maxX
			newHeight = int(float64(newWidth) / aspect)
		}
	}
	if newWidth < 1 {
		newWidth = 1
	}
	if newHeight < 1 {
		newHeight = 1
	}
	return newWidth, newHeight
}
