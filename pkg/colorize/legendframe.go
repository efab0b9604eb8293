package colorize

import (
	"github.com/fogleman/gg"

	"github.com/HarshCasper/gcbmanimation/pkg/errs"
	"github.com/HarshCasper/gcbmanimation/pkg/fonts"
	"github.com/HarshCasper/gcbmanimation/pkg/frame"
	"github.com/HarshCasper/gcbmanimation/pkg/layer"
	"github.com/HarshCasper/gcbmanimation/pkg/tempfiles"
)

const (
	legendFontSize  = 18
	legendSwatch    = 22.0
	legendRowGap    = 8.0
	legendPadding   = 16.0
	legendTitleGap  = 12.0
	legendTextInset = 10.0
)

// RenderLegendFrame draws one or more legends into a single frame:
// each legend becomes a titled panel of color swatches and labels, and
// the panels are merged side by side. The animator pins the result to
// every frame of the animation.
func RenderLegendFrame(legends ...*layer.Legend) (frame.Frame, error) {
	if len(legends) == 0 {
		return frame.Frame{}, errs.New(errs.Internal, "no legends to render")
	}

	panels := make([]frame.Frame, 0, len(legends))
	for _, legend := range legends {
		panel, err := renderLegendPanel(legend)
		if err != nil {
			return frame.Frame{}, err
		}
		panels = append(panels, panel)
	}
	if len(panels) == 1 {
		return panels[0], nil
	}
	return panels[0].MergeHorizontal(panels[1:]...)
}

func renderLegendPanel(legend *layer.Legend) (frame.Frame, error) {
	face, err := fonts.Regular(legendFontSize)
	if err != nil {
		return frame.Frame{}, err
	}
	titleFace, err := fonts.Bold(legendFontSize)
	if err != nil {
		return frame.Frame{}, err
	}

	// Measure first, then draw onto a canvas that fits.
	measure := gg.NewContext(1, 1)
	measure.SetFontFace(titleFace)
	width, _ := measure.MeasureString(legend.Title)
	measure.SetFontFace(face)
	for _, e := range legend.Entries {
		if w, _ := measure.MeasureString(e.Label); legendSwatch+legendTextInset+w > width {
			width = legendSwatch + legendTextInset + w
		}
	}

	rowHeight := legendSwatch + legendRowGap
	height := 2*legendPadding + float64(len(legend.Entries))*rowHeight
	if legend.Title != "" {
		height += legendFontSize + legendTitleGap
	}

	dc := gg.NewContext(int(width+2*legendPadding), int(height))
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	y := legendPadding
	if legend.Title != "" {
		dc.SetFontFace(titleFace)
		dc.SetRGB(0, 0, 0)
		dc.DrawString(legend.Title, legendPadding, y+legendFontSize)
		y += legendFontSize + legendTitleGap
	}

	dc.SetFontFace(face)
	for _, e := range legend.Entries {
		dc.SetRGBA255(int(e.Color.R), int(e.Color.G), int(e.Color.B), 255)
		dc.DrawRectangle(legendPadding, y, legendSwatch, legendSwatch)
		dc.Fill()
		dc.SetRGB(0, 0, 0)
		dc.DrawString(e.Label, legendPadding+legendSwatch+legendTextInset, y+legendSwatch-5)
		y += rowHeight
	}

	path := tempfiles.New(".png")
	if err := dc.SavePNG(path); err != nil {
		return frame.Frame{}, errs.Wrap(errs.RasterIO, err, "failed to save legend frame")
	}
	return frame.New(0, path), nil
}
