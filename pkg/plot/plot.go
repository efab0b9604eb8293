// Package plot renders annual indicator results into line-graph
// frames, one per simulation year with that year highlighted.
package plot

import (
	"context"
	"fmt"
	"math"

	"github.com/fogleman/gg"

	"github.com/HarshCasper/gcbmanimation/pkg/errs"
	"github.com/HarshCasper/gcbmanimation/pkg/fonts"
	"github.com/HarshCasper/gcbmanimation/pkg/frame"
	"github.com/HarshCasper/gcbmanimation/pkg/layer"
	"github.com/HarshCasper/gcbmanimation/pkg/results"
	"github.com/HarshCasper/gcbmanimation/pkg/tempfiles"
)

const (
	plotWidth    = 1000
	plotHeight   = 500
	marginLeft   = 110.0
	marginRight  = 30.0
	marginTop    = 25.0
	marginBottom = 70.0
	axisFontSize = 16
	tickFontSize = 13
)

// ResultsPlot draws the annual series of one indicator as a line
// graph. Rendering produces one frame per year so the animator can
// pair each map frame with a graph highlighting the same year.
type ResultsPlot struct {
	indicator string
	title     string
	provider  results.Provider
	units     layer.Units
}

// NewResultsPlot creates a plot for the named indicator backed by a
// results provider. The title labels the y axis; values are expressed
// in the given units.
func NewResultsPlot(indicator, title string, provider results.Provider, units layer.Units) *ResultsPlot {
	if title == "" {
		title = indicator
	}
	return &ResultsPlot{indicator: indicator, title: title, provider: provider, units: units}
}

// Render draws one graph frame per simulation year. The bounding box
// is forwarded to spatial providers so graph totals cover the same
// area as the rendered maps.
func (p *ResultsPlot) Render(ctx context.Context, bbox *layer.BoundingBox) ([]frame.Frame, error) {
	series, err := p.provider.AnnualResult(ctx, p.indicator, p.units, bbox)
	if err != nil {
		return nil, err
	}
	if len(series) == 0 {
		return nil, errs.New(errs.DiscoveryEmpty, "no annual results for %q", p.indicator)
	}

	frames := make([]frame.Frame, 0, len(series))
	for _, point := range series {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f, err := p.renderYear(series, point.Year)
		if err != nil {
			return nil, err
		}
		frames = append(frames, f)
	}
	return frames, nil
}

func (p *ResultsPlot) renderYear(series results.Series, currentYear int) (frame.Frame, error) {
	axisFace, err := fonts.Bold(axisFontSize)
	if err != nil {
		return frame.Frame{}, err
	}
	tickFace, err := fonts.Regular(tickFontSize)
	if err != nil {
		return frame.Frame{}, err
	}

	minValue, maxValue := series.MinMax()
	minValue -= 0.1
	maxValue += 0.1
	years := series.Years()
	minYear, maxYear := years[0], years[len(years)-1]

	toX := func(year float64) float64 {
		if maxYear == minYear {
			return marginLeft
		}
		return marginLeft + (year-float64(minYear))/float64(maxYear-minYear)*(plotWidth-marginLeft-marginRight)
	}
	toY := func(v float64) float64 {
		return plotHeight - marginBottom - (v-minValue)/(maxValue-minValue)*(plotHeight-marginTop-marginBottom)
	}

	dc := gg.NewContext(plotWidth, plotHeight)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	// Shade under the series up to the current year.
	dc.SetRGB255(220, 220, 220)
	dc.MoveTo(toX(float64(minYear)), toY(0))
	for _, pt := range series {
		if pt.Year > currentYear {
			break
		}
		dc.LineTo(toX(float64(pt.Year)), toY(pt.Value))
	}
	dc.LineTo(toX(float64(currentYear)), toY(0))
	dc.ClosePath()
	dc.Fill()

	// Vertical band marking the current year.
	dc.SetRGBA255(0, 128, 0, 128)
	dc.DrawRectangle(toX(float64(currentYear))-2, marginTop, 4, plotHeight-marginTop-marginBottom)
	dc.Fill()

	// Zero line, when zero is in range.
	if minValue < 0 && maxValue > 0 {
		dc.SetRGB255(169, 169, 169)
		dc.SetLineWidth(1.5)
		dc.DrawLine(marginLeft, toY(0), plotWidth-marginRight, toY(0))
		dc.Stroke()
	}

	// Axes.
	dc.SetRGB(0, 0, 0)
	dc.SetLineWidth(1.5)
	dc.DrawLine(marginLeft, marginTop, marginLeft, plotHeight-marginBottom)
	dc.DrawLine(marginLeft, plotHeight-marginBottom, plotWidth-marginRight, plotHeight-marginBottom)
	dc.Stroke()

	// The series itself: dashed navy line with round markers.
	dc.SetRGB255(0, 0, 128)
	dc.SetLineWidth(2)
	dc.SetDash(6, 4)
	for i := 1; i < len(series); i++ {
		dc.DrawLine(
			toX(float64(series[i-1].Year)), toY(series[i-1].Value),
			toX(float64(series[i].Year)), toY(series[i].Value))
	}
	dc.Stroke()
	dc.SetDash()
	for _, pt := range series {
		radius := 4.0
		if pt.Year == currentYear {
			radius = 9.0
		}
		dc.DrawCircle(toX(float64(pt.Year)), toY(pt.Value), radius)
		dc.Fill()
	}

	// Ticks and labels.
	dc.SetFontFace(tickFace)
	for _, pt := range series {
		x := toX(float64(pt.Year))
		dc.DrawLine(x, plotHeight-marginBottom, x, plotHeight-marginBottom+5)
		dc.Stroke()
		dc.DrawStringAnchored(fmt.Sprintf("%d", pt.Year), x, plotHeight-marginBottom+18, 0.5, 0.5)
	}
	for _, v := range yTicks(minValue, maxValue) {
		y := toY(v)
		dc.DrawLine(marginLeft-5, y, marginLeft, y)
		dc.Stroke()
		dc.DrawStringAnchored(formatTick(v), marginLeft-10, y, 1, 0.5)
	}

	dc.SetFontFace(axisFace)
	dc.DrawStringAnchored("Years", (marginLeft+plotWidth-marginRight)/2, plotHeight-marginBottom+45, 0.5, 0.5)
	yLabel := p.title
	if label := p.units.Label(); label != "" {
		yLabel = fmt.Sprintf("%s (%s)", p.title, label)
	}
	dc.Push()
	dc.RotateAbout(-math.Pi/2, 25, (marginTop+plotHeight-marginBottom)/2)
	dc.DrawStringAnchored(yLabel, 25, (marginTop+plotHeight-marginBottom)/2, 0.5, 0.5)
	dc.Pop()

	path := tempfiles.New(".png")
	if err := dc.SavePNG(path); err != nil {
		return frame.Frame{}, errs.Wrap(errs.RasterIO, err, "failed to save graph frame")
	}
	return frame.New(currentYear, path), nil
}

// yTicks picks 5 evenly spaced tick values across the value range.
func yTicks(minValue, maxValue float64) []float64 {
	const count = 5
	ticks := make([]float64, 0, count)
	step := (maxValue - minValue) / (count - 1)
	for i := 0; i < count; i++ {
		ticks = append(ticks, minValue+float64(i)*step)
	}
	return ticks
}

func formatTick(v float64) string {
	if math.Abs(v) >= 1000 {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.2f", v)
}
