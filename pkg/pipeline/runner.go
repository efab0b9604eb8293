package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/charmbracelet/log"

	"github.com/HarshCasper/gcbmanimation/pkg/animate"
	"github.com/HarshCasper/gcbmanimation/pkg/cache"
	"github.com/HarshCasper/gcbmanimation/pkg/colorize"
	"github.com/HarshCasper/gcbmanimation/pkg/errs"
	"github.com/HarshCasper/gcbmanimation/pkg/indicator"
	"github.com/HarshCasper/gcbmanimation/pkg/layer"
	"github.com/HarshCasper/gcbmanimation/pkg/results"
)

// sequenceTTL bounds how long cached frame sequences are kept. Spatial
// output directories are commonly regenerated within a month.
const sequenceTTL = 30 * 24 * time.Hour

// sequenceManifest records a cached frame sequence. The frames
// themselves are stored one entry per index.
type sequenceManifest struct {
	Count int `json:"count"`
}

// Runner encapsulates pipeline execution with caching.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete setup → render → store pipeline.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	result := &Result{
		Sequences: make(map[string][]string),
		CacheInfo: CacheInfo{Hits: make(map[string]bool)},
	}

	// Stage 1: Setup
	setupStart := time.Now()
	bbox := layer.NewBoundingBox(opts.StudyArea)

	var db *results.Database
	if opts.ResultsDatabase != "" {
		var err error
		db, err = results.OpenDatabase(opts.ResultsDatabase)
		if err != nil {
			return nil, err
		}
		defer db.Close()
	}

	renderers, err := buildRenderers(opts, db)
	if err != nil {
		return nil, err
	}

	var disturbances *layer.LayerCollection
	disturbanceCount := 0
	if opts.StudyAreaMetadata != "" {
		disturbances, err = LoadDisturbances(opts.StudyAreaMetadata)
		if err != nil {
			return nil, err
		}
		disturbanceCount = disturbances.Len()
	}
	result.Stats.SetupTime = time.Since(setupStart)
	result.Stats.IndicatorCount = len(renderers)

	r.Logger.Info("prepared indicators",
		"indicators", len(renderers),
		"disturbances", disturbanceCount,
		"duration", result.Stats.SetupTime)

	if err := os.MkdirAll(opts.OutputPath, 0o755); err != nil {
		return nil, errs.Wrap(errs.RasterIO, err, "failed to create output directory")
	}

	// Stage 2: Render, restoring cached sequences first
	renderStart := time.Now()
	var missing []animate.Renderer
	for _, ind := range renderers {
		if opts.Refresh {
			missing = append(missing, ind)
			continue
		}
		paths, hit := r.restoreSequence(ctx, ind.Title(), opts)
		if hit {
			result.Sequences[ind.Title()] = paths
			result.CacheInfo.Hits[ind.Title()] = true
			r.Logger.Info("restored cached animation",
				"indicator", ind.Title(),
				"frames", len(paths))
			continue
		}
		missing = append(missing, ind)
	}

	if len(missing) > 0 {
		animator := animate.New(disturbances, missing, opts.OutputPath,
			animate.WithColorizer(buildColorizer(opts)),
			animate.WithDimensions(opts.Width, opts.Height),
			animate.WithLogger(r.Logger))
		if err := animator.Render(ctx, bbox, opts.StartYear, opts.EndYear); err != nil {
			return nil, err
		}
	}

	// Stage 3: Store rendered sequences
	for _, ind := range missing {
		paths, err := findSequence(opts.OutputPath, ind.Title())
		if err != nil {
			return nil, err
		}
		result.Sequences[ind.Title()] = paths
		r.storeSequence(ctx, ind.Title(), opts, paths)
	}
	result.Stats.RenderTime = time.Since(renderStart)
	for _, paths := range result.Sequences {
		result.Stats.FrameCount += len(paths)
	}
	result.StartYear, result.EndYear = opts.StartYear, opts.EndYear

	r.Logger.Info("pipeline complete",
		"indicators", result.Stats.IndicatorCount,
		"frames", result.Stats.FrameCount,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// keyOpts builds the cache key inputs for one indicator. The study
// area enters the key by content hash, so regenerating the raster in
// place invalidates cached frames.
func (r *Runner) keyOpts(opts Options, title string) cache.FrameKeyOpts {
	studyAreaKey := opts.StudyArea
	if data, err := os.ReadFile(opts.StudyArea); err == nil {
		studyAreaKey = cache.Hash(data)
	}
	return cache.FrameKeyOpts{
		BoundingBoxPath: studyAreaKey,
		Palette:         paletteFor(opts, title),
		ColorizerName:   opts.Colorizer,
		Width:           opts.Width,
		Height:          opts.Height,
		StartYear:       opts.StartYear,
		EndYear:         opts.EndYear,
	}
}

// restoreSequence writes a cached frame sequence into the output
// directory. A partial hit counts as a miss.
func (r *Runner) restoreSequence(ctx context.Context, title string, opts Options) ([]string, bool) {
	keyOpts := r.keyOpts(opts, title)
	data, hit, err := r.Cache.Get(ctx, r.Keyer.SequenceKey(title, keyOpts))
	if err != nil || !hit {
		return nil, false
	}
	var manifest sequenceManifest
	if err := json.Unmarshal(data, &manifest); err != nil || manifest.Count == 0 {
		return nil, false
	}

	name := animate.SequenceName(title)
	var paths []string
	for i := 0; i < manifest.Count; i++ {
		frameData, hit, err := r.Cache.Get(ctx, r.Keyer.FrameKey(title, i, keyOpts))
		if err != nil || !hit {
			return nil, false
		}
		path := filepath.Join(opts.OutputPath, fmt.Sprintf("%s_%04d.png", name, i+1))
		if err := os.WriteFile(path, frameData, 0o644); err != nil {
			return nil, false
		}
		paths = append(paths, path)
	}
	return paths, true
}

// storeSequence records a rendered frame sequence in the cache. Cache
// write failures are not fatal; the frames are already on disk.
func (r *Runner) storeSequence(ctx context.Context, title string, opts Options, paths []string) {
	keyOpts := r.keyOpts(opts, title)
	for i, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return
		}
		if err := r.Cache.Set(ctx, r.Keyer.FrameKey(title, i, keyOpts), data, sequenceTTL); err != nil {
			return
		}
	}
	manifest, err := json.Marshal(sequenceManifest{Count: len(paths)})
	if err != nil {
		return
	}
	_ = r.Cache.Set(ctx, r.Keyer.SequenceKey(title, keyOpts), manifest, sequenceTTL)
}

// findSequence lists an indicator's output frames in playback order.
func findSequence(outputPath, title string) ([]string, error) {
	pattern := filepath.Join(outputPath, animate.SequenceName(title)+"_*.png")
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, errs.Wrap(errs.RasterIO, err, "failed to list frames for %s", title)
	}
	if len(paths) == 0 {
		return nil, errs.New(errs.Internal, "no frames written for %s", title)
	}
	sort.Strings(paths)
	return paths, nil
}

// buildRenderers constructs the indicator set from the options.
func buildRenderers(opts Options, db *results.Database) ([]animate.Renderer, error) {
	var renderers []animate.Renderer
	for _, spec := range opts.Indicators {
		indOpts, err := indicatorOptions(spec.Title, spec.GraphUnits, spec.MapUnits, spec.Palette)
		if err != nil {
			return nil, err
		}
		renderers = append(renderers, indicator.New(db, spec.Name, spec.Pattern, indOpts...))
	}
	for _, spec := range opts.Composites {
		indOpts, err := indicatorOptions(spec.Title, spec.GraphUnits, spec.MapUnits, spec.Palette)
		if err != nil {
			return nil, err
		}
		var patterns []indicator.PatternBlend
		for _, comp := range spec.Components {
			mode := layer.BlendAdd
			if comp.Blend != "" {
				var err error
				mode, err = layer.ParseBlendMode(comp.Blend)
				if err != nil {
					return nil, err
				}
			}
			patterns = append(patterns, indicator.PatternBlend{Pattern: comp.Pattern, Mode: mode})
		}
		renderers = append(renderers, indicator.NewComposite(spec.Name, patterns, indOpts...))
	}
	return renderers, nil
}

func indicatorOptions(title, graphUnits, mapUnits, palette string) ([]indicator.Option, error) {
	indOpts := []indicator.Option{indicator.WithBackground(frameBackground)}
	if title != "" {
		indOpts = append(indOpts, indicator.WithTitle(title))
	}
	if graphUnits != "" {
		units, err := layer.ParseUnits(graphUnits)
		if err != nil {
			return nil, err
		}
		indOpts = append(indOpts, indicator.WithGraphUnits(units))
	}
	if mapUnits != "" {
		units, err := layer.ParseUnits(mapUnits)
		if err != nil {
			return nil, err
		}
		indOpts = append(indOpts, indicator.WithMapUnits(units))
	}
	if palette != "" {
		indOpts = append(indOpts, indicator.WithPalette(palette))
	}
	return indOpts, nil
}

func buildColorizer(opts Options) layer.Colorizer {
	if opts.Colorizer == ColorizerQuantile {
		return colorize.NewQuantile(opts.Bins)
	}
	return colorize.NewSimple()
}

// paletteFor resolves the palette an indicator will render with, for
// cache key purposes.
func paletteFor(opts Options, title string) string {
	for _, spec := range opts.Indicators {
		if spec.Name == title || spec.Title == title {
			if spec.Palette != "" {
				return spec.Palette
			}
			return DefaultPalette
		}
	}
	for _, spec := range opts.Composites {
		if spec.Name == title || spec.Title == title {
			if spec.Palette != "" {
				return spec.Palette
			}
			return DefaultPalette
		}
	}
	return DefaultPalette
}
