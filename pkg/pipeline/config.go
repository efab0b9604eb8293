package pipeline

import (
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/HarshCasper/gcbmanimation/pkg/errs"
)

// Config is the TOML animation configuration file. Relative layer
// patterns are resolved against the spatial results directory.
//
//	study_area = "layers/bounding_box.asc"
//	study_area_metadata = "layers/study_area.json"
//	spatial_results = "processed_output/spatial"
//	results_database = "processed_output/compiled_gcbm_output.db"
//	output_path = "animations"
//
//	[[indicator]]
//	name = "NPP"
//	pattern = "NPP_*.asc"
//	palette = "Greens"
//
//	[[composite]]
//	name = "NBP"
//	[[composite.component]]
//	pattern = "NPP_*.asc"
//	blend = "add"
//	[[composite.component]]
//	pattern = "Ecosystem_Removals_*.asc"
//	blend = "subtract"
type Config struct {
	StudyArea         string `toml:"study_area"`
	StudyAreaMetadata string `toml:"study_area_metadata"`
	SpatialResults    string `toml:"spatial_results"`
	ResultsDatabase   string `toml:"results_database"`
	OutputPath        string `toml:"output_path"`
	StartYear         int    `toml:"start_year"`
	EndYear           int    `toml:"end_year"`
	Colorizer         string `toml:"colorizer"`
	Bins              int    `toml:"bins"`
	FrameWidth        int    `toml:"frame_width"`
	FrameHeight       int    `toml:"frame_height"`

	Indicators []IndicatorConfig `toml:"indicator"`
	Composites []CompositeConfig `toml:"composite"`
}

// IndicatorConfig describes one database-backed indicator.
type IndicatorConfig struct {
	Name       string `toml:"name"`
	Pattern    string `toml:"pattern"`
	Title      string `toml:"title"`
	GraphUnits string `toml:"graph_units"`
	MapUnits   string `toml:"map_units"`
	Palette    string `toml:"palette"`
}

// CompositeConfig describes one spatial-only composite indicator.
type CompositeConfig struct {
	Name       string            `toml:"name"`
	Title      string            `toml:"title"`
	GraphUnits string            `toml:"graph_units"`
	MapUnits   string            `toml:"map_units"`
	Palette    string            `toml:"palette"`
	Components []ComponentConfig `toml:"component"`
}

// ComponentConfig is one pattern/blend-mode pair of a composite.
// Components fold in file order; subtraction makes the order matter.
type ComponentConfig struct {
	Pattern string `toml:"pattern"`
	Blend   string `toml:"blend"`
}

// LoadConfig reads and decodes a TOML animation configuration. Paths
// inside the file are resolved relative to the file's directory.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, errs.Wrap(errs.InvalidConfig, err, "failed to load config %s", path)
	}

	base := filepath.Dir(path)
	cfg.StudyArea = resolve(base, cfg.StudyArea)
	cfg.StudyAreaMetadata = resolve(base, cfg.StudyAreaMetadata)
	cfg.SpatialResults = resolve(base, cfg.SpatialResults)
	cfg.ResultsDatabase = resolve(base, cfg.ResultsDatabase)
	cfg.OutputPath = resolve(base, cfg.OutputPath)

	for i := range cfg.Indicators {
		cfg.Indicators[i].Pattern = resolve(cfg.SpatialResults, cfg.Indicators[i].Pattern)
	}
	for i := range cfg.Composites {
		for j := range cfg.Composites[i].Components {
			cfg.Composites[i].Components[j].Pattern = resolve(
				cfg.SpatialResults, cfg.Composites[i].Components[j].Pattern)
		}
	}
	return cfg, nil
}

func resolve(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}
