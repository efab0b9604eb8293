// Package pipeline runs the full animation workflow: locate the study
// area, open the results database, build indicators, and render every
// frame sequence.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Setup: compute the bounding box, open the results database, and
//     build the indicator and disturbance layer sets
//  2. Render: produce map, graph, and legend frames per indicator and
//     compose them into quadrant-layout animation frames
//  3. Store: write the numbered PNG sequences and record them in the
//     artifact cache for future runs
//
// # Usage
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{
//	    StudyArea:       "layers/bounding_box.asc",
//	    ResultsDatabase: "compiled_gcbm_output.db",
//	    OutputPath:      "animations",
//	    Indicators: []pipeline.IndicatorSpec{
//	        {Name: "NPP", Pattern: "spatial/NPP_*.asc"},
//	    },
//	}
//	result, err := runner.Execute(ctx, opts)
package pipeline

import (
	"image/color"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/HarshCasper/gcbmanimation/pkg/errs"
	"github.com/HarshCasper/gcbmanimation/pkg/layer"
)

const (
	// DefaultWidth is the default output frame width in pixels.
	DefaultWidth = 3840

	// DefaultHeight is the default output frame height in pixels.
	DefaultHeight = 2160

	// DefaultBins is the default legend bin count for the quantile
	// colorizer.
	DefaultBins = 8

	// DefaultPalette is the default color ramp for indicator maps.
	DefaultPalette = "Greens"

	// DefaultColorizer is the default legend strategy.
	DefaultColorizer = ColorizerSimple
)

// Colorizer strategy names.
const (
	ColorizerSimple   = "simple"
	ColorizerQuantile = "quantile"
)

// ValidColorizers is the set of supported colorizer strategies.
var ValidColorizers = map[string]bool{
	ColorizerSimple:   true,
	ColorizerQuantile: true,
}

// Options contains all configuration for one pipeline run. This struct
// supports JSON serialization for job queues and API requests.
type Options struct {
	// Setup options
	StudyArea         string `json:"study_area"`
	StudyAreaMetadata string `json:"study_area_metadata,omitempty"`
	ResultsDatabase   string `json:"results_database,omitempty"`
	StartYear         int    `json:"start_year,omitempty"`
	EndYear           int    `json:"end_year,omitempty"`

	// Indicator options
	Indicators []IndicatorSpec `json:"indicators,omitempty"`
	Composites []CompositeSpec `json:"composites,omitempty"`

	// Render options
	OutputPath string `json:"output_path"`
	Colorizer  string `json:"colorizer,omitempty"`
	Bins       int    `json:"bins,omitempty"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
	Refresh    bool   `json:"refresh,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// IndicatorSpec describes one database-backed indicator to animate.
type IndicatorSpec struct {
	// Name is the indicator name in the results database.
	Name string `json:"name"`

	// Pattern is the glob matching the indicator's annual rasters.
	Pattern string `json:"pattern"`

	// Title overrides the display title. Defaults to Name.
	Title string `json:"title,omitempty"`

	// GraphUnits are the units of the graphed annual series.
	GraphUnits string `json:"graph_units,omitempty"`

	// MapUnits are the per-pixel units of the map frames.
	MapUnits string `json:"map_units,omitempty"`

	// Palette is the color ramp for map frames and the legend.
	Palette string `json:"palette,omitempty"`
}

// CompositeSpec describes one spatial-only composite indicator built by
// blending several raster sets.
type CompositeSpec struct {
	Name       string          `json:"name"`
	Title      string          `json:"title,omitempty"`
	GraphUnits string          `json:"graph_units,omitempty"`
	MapUnits   string          `json:"map_units,omitempty"`
	Palette    string          `json:"palette,omitempty"`
	Components []ComponentSpec `json:"components"`
}

// ComponentSpec is one pattern/blend-mode pair of a composite.
type ComponentSpec struct {
	Pattern string `json:"pattern"`
	Blend   string `json:"blend"`
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Sequences maps each indicator title to its ordered output frame
	// paths.
	Sequences map[string][]string

	// StartYear and EndYear are the rendered year range.
	StartYear int
	EndYear   int

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which sequences came from the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	IndicatorCount int
	FrameCount     int
	SetupTime      time.Duration
	RenderTime     time.Duration
}

// CacheInfo tracks cache hits per indicator sequence.
type CacheInfo struct {
	// Hits maps indicator titles to whether their sequence was restored
	// from the cache.
	Hits map[string]bool
}

// ValidateAndSetDefaults checks required fields and applies defaults.
// This method is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.StudyArea == "" {
		return errs.New(errs.InvalidConfig, "study_area is required")
	}
	if o.OutputPath == "" {
		return errs.New(errs.InvalidConfig, "output_path is required")
	}
	if len(o.Indicators) == 0 && len(o.Composites) == 0 {
		return errs.New(errs.InvalidConfig, "at least one indicator is required")
	}
	if len(o.Indicators) > 0 && o.ResultsDatabase == "" {
		return errs.New(errs.InvalidConfig, "results_database is required for database indicators")
	}
	for _, spec := range o.Indicators {
		if spec.Name == "" || spec.Pattern == "" {
			return errs.New(errs.InvalidConfig, "indicator name and pattern are required")
		}
		if err := validateUnits(spec.GraphUnits, spec.MapUnits); err != nil {
			return err
		}
	}
	for _, spec := range o.Composites {
		if spec.Name == "" {
			return errs.New(errs.InvalidConfig, "composite name is required")
		}
		if len(spec.Components) == 0 {
			return errs.New(errs.InvalidConfig, "composite %s has no components", spec.Name)
		}
		for _, comp := range spec.Components {
			if comp.Pattern == "" {
				return errs.New(errs.InvalidConfig, "composite %s has a component without a pattern", spec.Name)
			}
			if comp.Blend != "" {
				if _, err := layer.ParseBlendMode(comp.Blend); err != nil {
					return err
				}
			}
		}
		if err := validateUnits(spec.GraphUnits, spec.MapUnits); err != nil {
			return err
		}
	}
	if o.StartYear != 0 && o.EndYear != 0 && o.EndYear < o.StartYear {
		return errs.New(errs.InvalidConfig, "end_year %d precedes start_year %d", o.EndYear, o.StartYear)
	}

	if o.Colorizer == "" {
		o.Colorizer = DefaultColorizer
	}
	if !ValidColorizers[o.Colorizer] {
		return errs.New(errs.InvalidConfig, "invalid colorizer: %q (must be one of: simple, quantile)", o.Colorizer)
	}
	if o.Bins == 0 {
		o.Bins = DefaultBins
	}
	if o.Width == 0 {
		o.Width = DefaultWidth
	}
	if o.Height == 0 {
		o.Height = DefaultHeight
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

func validateUnits(names ...string) error {
	for _, name := range names {
		if name == "" {
			continue
		}
		if _, err := layer.ParseUnits(name); err != nil {
			return err
		}
	}
	return nil
}

// FromConfig translates a decoded configuration file into pipeline
// options.
func FromConfig(cfg Config) Options {
	opts := Options{
		StudyArea:         cfg.StudyArea,
		StudyAreaMetadata: cfg.StudyAreaMetadata,
		ResultsDatabase:   cfg.ResultsDatabase,
		OutputPath:        cfg.OutputPath,
		StartYear:         cfg.StartYear,
		EndYear:           cfg.EndYear,
		Colorizer:         cfg.Colorizer,
		Bins:              cfg.Bins,
		Width:             cfg.FrameWidth,
		Height:            cfg.FrameHeight,
	}
	for _, ind := range cfg.Indicators {
		opts.Indicators = append(opts.Indicators, IndicatorSpec{
			Name:       ind.Name,
			Pattern:    ind.Pattern,
			Title:      ind.Title,
			GraphUnits: ind.GraphUnits,
			MapUnits:   ind.MapUnits,
			Palette:    ind.Palette,
		})
	}
	for _, comp := range cfg.Composites {
		spec := CompositeSpec{
			Name:       comp.Name,
			Title:      comp.Title,
			GraphUnits: comp.GraphUnits,
			MapUnits:   comp.MapUnits,
			Palette:    comp.Palette,
		}
		for _, c := range comp.Components {
			spec.Components = append(spec.Components, ComponentSpec{
				Pattern: c.Pattern,
				Blend:   c.Blend,
			})
		}
		opts.Composites = append(opts.Composites, spec)
	}
	return opts
}

// background color shared by all rendered map frames.
var frameBackground = color.RGBA{R: 255, G: 255, B: 255, A: 255}
