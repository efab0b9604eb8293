package pipeline

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/HarshCasper/gcbmanimation/pkg/cache"
	"github.com/HarshCasper/gcbmanimation/pkg/errs"
	"github.com/HarshCasper/gcbmanimation/pkg/raster"
)

func writeRaster(t *testing.T, path string, values [][]float64) {
	t.Helper()
	height := len(values)
	width := len(values[0])
	r := raster.New(width, height, raster.GeoTransform{0, 100, 0, float64(height * 100), 0, -100}, -9999)
	for y, row := range values {
		for x, v := range row {
			r.Set(x, y, v)
		}
	}
	if err := r.Write(path); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func validOptions(t *testing.T) Options {
	t.Helper()
	dir := t.TempDir()
	studyArea := filepath.Join(dir, "bounding_box.asc")
	writeRaster(t, studyArea, [][]float64{
		{1, 1, 1},
		{1, 1, 1},
		{1, 1, 1},
	})
	for _, name := range []string{"NPP_2018.asc", "NPP_2019.asc"} {
		writeRaster(t, filepath.Join(dir, name), [][]float64{
			{1, 2, 3},
			{4, 5, 6},
			{7, 8, 9},
		})
	}
	return Options{
		StudyArea:  studyArea,
		OutputPath: filepath.Join(dir, "out"),
		Width:      320,
		Height:     240,
		Composites: []CompositeSpec{{
			Name: "NPP Total",
			Components: []ComponentSpec{
				{Pattern: filepath.Join(dir, "NPP_*.asc"), Blend: "add"},
			},
		}},
		Logger: log.NewWithOptions(io.Discard, log.Options{}),
	}
}

func TestOptionsValidation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Options)
	}{
		{"missing study area", func(o *Options) { o.StudyArea = "" }},
		{"missing output path", func(o *Options) { o.OutputPath = "" }},
		{"no indicators", func(o *Options) { o.Composites = nil }},
		{"composite without components", func(o *Options) { o.Composites[0].Components = nil }},
		{"bad blend mode", func(o *Options) { o.Composites[0].Components[0].Blend = "multiply" }},
		{"bad units", func(o *Options) { o.Composites[0].MapUnits = "bushels" }},
		{"bad colorizer", func(o *Options) { o.Colorizer = "rainbow" }},
		{"inverted year range", func(o *Options) { o.StartYear = 2020; o.EndYear = 2018 }},
		{"indicator without database", func(o *Options) {
			o.Indicators = []IndicatorSpec{{Name: "NPP", Pattern: "NPP_*.asc"}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := validOptions(t)
			tt.modify(&opts)
			err := opts.ValidateAndSetDefaults()
			if err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestOptionsDefaults(t *testing.T) {
	opts := validOptions(t)
	opts.Width, opts.Height = 0, 0
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if opts.Colorizer != ColorizerSimple {
		t.Errorf("colorizer = %q, want %q", opts.Colorizer, ColorizerSimple)
	}
	if opts.Bins != DefaultBins {
		t.Errorf("bins = %d, want %d", opts.Bins, DefaultBins)
	}
	if opts.Width != DefaultWidth || opts.Height != DefaultHeight {
		t.Errorf("dimensions = %dx%d, want %dx%d", opts.Width, opts.Height, DefaultWidth, DefaultHeight)
	}
	if opts.Logger == nil {
		t.Error("logger not defaulted")
	}
}

func TestLoadConfigResolvesPaths(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "animation.toml")
	content := `
study_area = "layers/bounding_box.asc"
spatial_results = "output/spatial"
results_database = "output/compiled_gcbm_output.db"
output_path = "animations"

[[indicator]]
name = "NPP"
pattern = "NPP_*.asc"
palette = "Greens"

[[composite]]
name = "NBP"

[[composite.component]]
pattern = "NPP_*.asc"
blend = "add"

[[composite.component]]
pattern = "Ecosystem_Removals_*.asc"
blend = "subtract"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if want := filepath.Join(dir, "layers", "bounding_box.asc"); cfg.StudyArea != want {
		t.Errorf("study area = %q, want %q", cfg.StudyArea, want)
	}
	if want := filepath.Join(dir, "output", "spatial", "NPP_*.asc"); cfg.Indicators[0].Pattern != want {
		t.Errorf("indicator pattern = %q, want %q", cfg.Indicators[0].Pattern, want)
	}
	if len(cfg.Composites) != 1 || len(cfg.Composites[0].Components) != 2 {
		t.Fatalf("composites = %+v, want one with two components", cfg.Composites)
	}
	if cfg.Composites[0].Components[1].Blend != "subtract" {
		t.Errorf("second component blend = %q, want subtract", cfg.Composites[0].Components[1].Blend)
	}

	opts := FromConfig(cfg)
	if opts.OutputPath != filepath.Join(dir, "animations") {
		t.Errorf("output path = %q", opts.OutputPath)
	}
	if len(opts.Indicators) != 1 || len(opts.Composites) != 1 {
		t.Errorf("translated %d indicators, %d composites", len(opts.Indicators), len(opts.Composites))
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	if !errs.Is(err, errs.InvalidConfig) {
		t.Fatalf("err = %v, want INVALID_CONFIG", err)
	}
}

func writeStudyArea(t *testing.T, dir string, years map[string]int) string {
	t.Helper()
	var layers []map[string]any
	layers = append(layers, map[string]any{"name": "classifier1"})
	attributes := make(map[string]map[string]any)
	value := 1
	for disturbanceType, year := range years {
		attributes[jsonKey(value)] = map[string]any{
			"year":             year,
			"disturbance_type": disturbanceType,
		}
		value++
	}
	layers = append(layers, map[string]any{
		"name": "disturbances",
		"tags": []string{"disturbance", "last"},
	})

	writeRaster(t, filepath.Join(dir, "disturbances_moja.asc"), [][]float64{
		{1, 2},
		{-9999, 1},
	})
	if err := os.MkdirAll(filepath.Join(dir, "disturbances_moja"), 0o755); err != nil {
		t.Fatal(err)
	}
	metadata, err := json.Marshal(map[string]any{"attributes": attributes})
	if err != nil {
		t.Fatal(err)
	}
	metadataPath := filepath.Join(dir, "disturbances_moja", "disturbances_moja.json")
	if err := os.WriteFile(metadataPath, metadata, 0o644); err != nil {
		t.Fatal(err)
	}

	studyArea, err := json.Marshal(map[string]any{"layers": layers})
	if err != nil {
		t.Fatal(err)
	}
	studyAreaPath := filepath.Join(dir, "study_area.json")
	if err := os.WriteFile(studyAreaPath, studyArea, 0o644); err != nil {
		t.Fatal(err)
	}
	return studyAreaPath
}

func jsonKey(v int) string {
	return string(rune('0' + v))
}

func TestLoadDisturbancesSplitsByYear(t *testing.T) {
	dir := t.TempDir()
	studyAreaPath := writeStudyArea(t, dir, map[string]int{
		"Wildfire":  2018,
		"Clearcut":  2019,
		"Wildfire2": 2019,
	})

	collection, err := LoadDisturbances(studyAreaPath)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if collection.Palette() != disturbancePalette {
		t.Errorf("palette = %q, want %q", collection.Palette(), disturbancePalette)
	}
	if collection.Len() != 2 {
		t.Fatalf("layers = %d, want one per distinct year", collection.Len())
	}

	byYear := make(map[int]int)
	for _, l := range collection.Layers() {
		byYear[l.Year()] = len(l.Interpretation())
		if l.Path() != filepath.Join(dir, "disturbances_moja.asc") {
			t.Errorf("layer path = %q", l.Path())
		}
	}
	if byYear[2018] != 1 || byYear[2019] != 2 {
		t.Errorf("interpretation sizes by year = %v, want 2018:1 2019:2", byYear)
	}
}

func TestLoadDisturbancesSkipsIncompleteLayers(t *testing.T) {
	dir := t.TempDir()
	studyArea := `{"layers": [
		{"name": "burns", "tags": ["disturbance"]},
		{"name": "classifier1"}
	]}`
	studyAreaPath := filepath.Join(dir, "study_area.json")
	if err := os.WriteFile(studyAreaPath, []byte(studyArea), 0o644); err != nil {
		t.Fatal(err)
	}

	collection, err := LoadDisturbances(studyAreaPath)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !collection.Empty() {
		t.Errorf("layers = %d, want none for missing raster files", collection.Len())
	}
}

func TestLoadDisturbancesMissingFile(t *testing.T) {
	_, err := LoadDisturbances(filepath.Join(t.TempDir(), "study_area.json"))
	if !errs.Is(err, errs.InvalidConfig) {
		t.Fatalf("err = %v, want INVALID_CONFIG", err)
	}
}

func TestRunnerExecuteRendersComposite(t *testing.T) {
	opts := validOptions(t)
	runner := NewRunner(nil, nil, log.NewWithOptions(io.Discard, log.Options{}))

	result, err := runner.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	paths := result.Sequences["NPP Total"]
	// Two years plus the lingering duplicate of the final frame.
	if len(paths) != 3 {
		t.Fatalf("frames = %d, want 3", len(paths))
	}
	for _, path := range paths {
		if info, err := os.Stat(path); err != nil || info.Size() == 0 {
			t.Errorf("frame %s missing or empty", path)
		}
	}
	if result.Stats.FrameCount != 3 || result.Stats.IndicatorCount != 1 {
		t.Errorf("stats = %+v", result.Stats)
	}
	if result.CacheInfo.Hits["NPP Total"] {
		t.Error("first run reported a cache hit")
	}
}

func TestRunnerExecuteRestoresFromCache(t *testing.T) {
	opts := validOptions(t)
	fileCache, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("cache: %v", err)
	}
	defer fileCache.Close()
	runner := NewRunner(fileCache, nil, log.NewWithOptions(io.Discard, log.Options{}))

	first, err := runner.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.CacheInfo.Hits["NPP Total"] {
		t.Fatal("first run reported a cache hit")
	}

	// Wipe the output directory; the second run should restore it from
	// the cache without re-rendering.
	if err := os.RemoveAll(opts.OutputPath); err != nil {
		t.Fatal(err)
	}
	second, err := runner.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if !second.CacheInfo.Hits["NPP Total"] {
		t.Fatal("second run missed the cache")
	}
	if len(second.Sequences["NPP Total"]) != len(first.Sequences["NPP Total"]) {
		t.Errorf("restored %d frames, want %d",
			len(second.Sequences["NPP Total"]), len(first.Sequences["NPP Total"]))
	}
	for _, path := range second.Sequences["NPP Total"] {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("restored frame %s missing", path)
		}
	}
}

func TestRunnerExecuteRefreshSkipsCache(t *testing.T) {
	opts := validOptions(t)
	fileCache, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("cache: %v", err)
	}
	defer fileCache.Close()
	runner := NewRunner(fileCache, nil, log.NewWithOptions(io.Discard, log.Options{}))

	if _, err := runner.Execute(context.Background(), opts); err != nil {
		t.Fatalf("first run: %v", err)
	}
	opts.Refresh = true
	second, err := runner.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("refresh run: %v", err)
	}
	if second.CacheInfo.Hits["NPP Total"] {
		t.Error("refresh run used the cache")
	}
}

func TestRunnerExecuteInvalidOptions(t *testing.T) {
	runner := NewRunner(nil, nil, log.NewWithOptions(io.Discard, log.Options{}))
	_, err := runner.Execute(context.Background(), Options{})
	if !errs.Is(err, errs.InvalidConfig) {
		t.Fatalf("err = %v, want INVALID_CONFIG", err)
	}
}
