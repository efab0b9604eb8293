// Package animate composes rendered map, graph, and legend frames
// into per-indicator animation frame sequences.
package animate

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fogleman/gg"

	"github.com/HarshCasper/gcbmanimation/pkg/colorize"
	"github.com/HarshCasper/gcbmanimation/pkg/errs"
	"github.com/HarshCasper/gcbmanimation/pkg/frame"
	"github.com/HarshCasper/gcbmanimation/pkg/layer"
	"github.com/HarshCasper/gcbmanimation/pkg/tempfiles"
)

// Renderer is the rendering surface of one indicator: map frames plus
// a legend, and graph frames.
type Renderer interface {
	Title() string
	MapUnits() layer.Units
	RenderMapFrames(ctx context.Context, bbox *layer.BoundingBox, colorizer layer.Colorizer) ([]frame.Frame, *layer.Legend, error)
	RenderGraphFrames(ctx context.Context, bbox *layer.BoundingBox) ([]frame.Frame, error)
}

// Animator renders one animation per indicator: a quadrant-layout
// frame sequence showing the disturbance timeseries, the indicator's
// spatial output, its graphed annual series, and a legend.
type Animator struct {
	disturbances *layer.LayerCollection
	indicators   []Renderer
	outputPath   string
	colorizer    layer.Colorizer
	width        int
	height       int
	logger       *log.Logger
}

// Option configures an animator.
type Option func(*Animator)

// WithColorizer sets the colorizer used for map frames. The default is
// the equal-width Simple colorizer.
func WithColorizer(c layer.Colorizer) Option {
	return func(a *Animator) { a.colorizer = c }
}

// WithDimensions sets the output frame size in pixels.
func WithDimensions(width, height int) Option {
	return func(a *Animator) { a.width = width; a.height = height }
}

// WithLogger sets the logger for render progress.
func WithLogger(logger *log.Logger) Option {
	return func(a *Animator) { a.logger = logger }
}

// New creates an animator. The disturbance collection may be nil when
// the simulation has no disturbance layers to show; that quadrant is
// left blank.
func New(disturbances *layer.LayerCollection, indicators []Renderer, outputPath string, opts ...Option) *Animator {
	a := &Animator{
		disturbances: disturbances,
		indicators:   indicators,
		outputPath:   outputPath,
		colorizer:    colorize.NewSimple(),
		width:        3840,
		height:       2160,
		logger:       log.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Render produces one numbered PNG frame sequence per indicator in the
// output directory, named <title>_0001.png and so on. The last frame
// is duplicated so the final year lingers when the sequence is played
// back. When startYear and endYear are 0 the range comes from the
// first indicator's annual series.
func (a *Animator) Render(ctx context.Context, bbox *layer.BoundingBox, startYear, endYear int) error {
	if err := os.MkdirAll(a.outputPath, 0o755); err != nil {
		return errs.Wrap(errs.RasterIO, err, "failed to create output directory")
	}

	layout := NewQuadrantLayout(
		Percent{50, 60}, Percent{50, 60}, Percent{50, 40}, Percent{50, 40})

	var disturbanceFrames []frame.Frame
	var disturbanceLegend *layer.Legend

	for _, ind := range a.indicators {
		renderStart := time.Now()

		graphFrames, err := ind.RenderGraphFrames(ctx, bbox)
		if err != nil {
			return err
		}
		mapFrames, mapLegend, err := ind.RenderMapFrames(ctx, bbox, a.colorizer)
		if err != nil {
			return err
		}

		if startYear == 0 || endYear == 0 {
			for i, f := range graphFrames {
				if i == 0 || f.Year < startYear {
					startYear = f.Year
				}
				if i == 0 || f.Year > endYear {
					endYear = f.Year
				}
			}
		}

		// Disturbances render once and are shared by every indicator's
		// animation.
		if disturbanceFrames == nil && a.disturbances != nil && !a.disturbances.Empty() {
			disturbanceFrames, disturbanceLegend, err = a.disturbances.Render(
				ctx, bbox, startYear, endYear, a.colorizer)
			if err != nil {
				return err
			}
		}

		legendTitle := ind.Title()
		if label := ind.MapUnits().Label(); label != "" {
			legendTitle = fmt.Sprintf("%s (%s)", ind.Title(), label)
		}
		legendFrame, err := a.renderLegendFrame(disturbanceLegend, mapLegend, legendTitle)
		if err != nil {
			return err
		}

		var animationFrames []frame.Frame
		for year := startYear; year <= endYear; year++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			disturbanceFrame, err := a.findFrame(disturbanceFrames, year)
			if err != nil {
				return err
			}
			mapFrame, ok := findFrame(mapFrames, year)
			if !ok {
				return errs.New(errs.Alignment, "no map frame for year %d", year)
			}
			graphFrame, ok := findFrame(graphFrames, year)
			if !ok {
				return errs.New(errs.Alignment, "no graph frame for year %d", year)
			}

			composed, err := layout.Render(
				[4]frame.Frame{disturbanceFrame, mapFrame, graphFrame, legendFrame},
				[4]string{"Disturbances", legendTitle, ind.Title(), ""},
				fmt.Sprintf("%s, Year: %d", ind.Title(), year),
				a.width, a.height)
			if err != nil {
				return err
			}
			animationFrames = append(animationFrames, composed)
		}

		if len(animationFrames) == 0 {
			return errs.New(errs.InvalidConfig, "empty year range %d-%d", startYear, endYear)
		}

		// Linger on the final year.
		animationFrames = append(animationFrames, animationFrames[len(animationFrames)-1])

		if err := a.writeSequence(ind.Title(), animationFrames); err != nil {
			return err
		}
		a.logger.Info("rendered animation",
			"indicator", ind.Title(),
			"frames", len(animationFrames),
			"duration", time.Since(renderStart))
	}

	tempfiles.Cleanup("*.asc")
	return nil
}

// renderLegendFrame draws the combined legend panel. The disturbance
// legend is omitted when the animation has no disturbance layers.
func (a *Animator) renderLegendFrame(disturbanceLegend, mapLegend *layer.Legend, mapTitle string) (frame.Frame, error) {
	titled := *mapLegend
	titled.Title = mapTitle
	if disturbanceLegend == nil {
		return colorize.RenderLegendFrame(&titled)
	}
	disturbances := *disturbanceLegend
	disturbances.Title = "Disturbances"
	return colorize.RenderLegendFrame(&disturbances, &titled)
}

// findFrame with a blank fallback, for the disturbance quadrant of
// simulations without disturbance layers.
func (a *Animator) findFrame(frames []frame.Frame, year int) (frame.Frame, error) {
	if f, ok := findFrame(frames, year); ok {
		return f, nil
	}
	return a.blankFrame()
}

func (a *Animator) blankFrame() (frame.Frame, error) {
	dc := gg.NewContext(2, 2)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	path := tempfiles.New(".png")
	if err := dc.SavePNG(path); err != nil {
		return frame.Frame{}, errs.Wrap(errs.RasterIO, err, "failed to save blank frame")
	}
	return frame.New(0, path), nil
}

// SequenceName is the file name stem of an indicator's frame sequence,
// the indicator title with spaces replaced by underscores.
func SequenceName(title string) string {
	return strings.ReplaceAll(title, " ", "_")
}

func (a *Animator) writeSequence(title string, frames []frame.Frame) error {
	name := SequenceName(title)
	for i, f := range frames {
		dest := filepath.Join(a.outputPath, fmt.Sprintf("%s_%04d.png", name, i+1))
		if err := copyFile(f.Path, dest); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return errs.Wrap(errs.RasterIO, err, "failed to read frame %s", src)
	}
	defer in.Close()
	out, err := os.Create(dest)
	if err != nil {
		return errs.Wrap(errs.RasterIO, err, "failed to write frame %s", dest)
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return errs.Wrap(errs.RasterIO, err, "failed to write frame %s", dest)
	}
	return out.Close()
}

func findFrame(frames []frame.Frame, year int) (frame.Frame, bool) {
	for _, f := range frames {
		if f.Year == year {
			return f, true
		}
	}
	return frame.Frame{}, false
}
