package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/HarshCasper/gcbmanimation/pkg/errs"
	"github.com/HarshCasper/gcbmanimation/pkg/layer"
)

// disturbancePalette is the categorical ramp for disturbance types.
const disturbancePalette = "hls"

// studyAreaFile is the study area metadata written alongside the tiled
// simulation layers.
type studyAreaFile struct {
	Layers []studyAreaLayer `json:"layers"`
}

type studyAreaLayer struct {
	Name string   `json:"name"`
	Tags []string `json:"tags"`
}

// layerMetadata is the per-layer attribute table keyed by raster pixel
// value.
type layerMetadata struct {
	Attributes map[string]layerAttribute `json:"attributes"`
}

type layerAttribute struct {
	Year            int    `json:"year"`
	DisturbanceType string `json:"disturbance_type"`
}

// LoadDisturbances scans a study area metadata file for layers tagged
// "disturbance" and returns them as an interpreted collection. Layers
// whose attribute table spans multiple years are split into one entry
// per year, each interpreting only that year's pixel values. Layers
// missing their raster or attribute table are skipped.
func LoadDisturbances(studyAreaPath string) (*layer.LayerCollection, error) {
	data, err := os.ReadFile(studyAreaPath)
	if err != nil {
		return nil, errs.Wrap(errs.InvalidConfig, err, "failed to read study area metadata")
	}
	var studyArea studyAreaFile
	if err := json.Unmarshal(data, &studyArea); err != nil {
		return nil, errs.Wrap(errs.InvalidConfig, err, "failed to parse study area metadata %s", studyAreaPath)
	}

	collection := layer.NewCollection(layer.WithPalette(disturbancePalette))
	baseDir := filepath.Dir(studyAreaPath)
	for _, entry := range studyArea.Layers {
		if !hasTag(entry.Tags, "disturbance") {
			continue
		}

		rasterPath := filepath.Join(baseDir, entry.Name+"_moja.asc")
		metadataPath := filepath.Join(baseDir, entry.Name+"_moja", entry.Name+"_moja.json")
		if !filesExist(rasterPath, metadataPath) {
			continue
		}

		attributes, err := readAttributeTable(metadataPath)
		if err != nil {
			return nil, err
		}
		if len(attributes) == 0 {
			continue
		}

		// A layer covering multiple years becomes one collection entry
		// per year, each interpreting only that year's pixel values.
		for _, year := range attributeYears(attributes) {
			interpretation := make(map[float64]string)
			for rasterValue, attr := range attributes {
				if attr.Year != year {
					continue
				}
				value, err := strconv.ParseFloat(rasterValue, 64)
				if err != nil {
					return nil, errs.Wrap(errs.InvalidConfig, err,
						"bad raster value %q in %s", rasterValue, metadataPath)
				}
				interpretation[value] = attr.DisturbanceType
			}
			collection.Append(layer.New(rasterPath, year, layer.WithInterpretation(interpretation)))
		}
	}
	return collection, nil
}

func readAttributeTable(path string) (map[string]layerAttribute, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.InvalidConfig, err, "failed to read attribute table")
	}
	var metadata layerMetadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return nil, errs.Wrap(errs.InvalidConfig, err, "failed to parse attribute table %s", path)
	}
	return metadata.Attributes, nil
}

func attributeYears(attributes map[string]layerAttribute) []int {
	seen := make(map[int]bool)
	var years []int
	for _, attr := range attributes {
		if !seen[attr.Year] {
			seen[attr.Year] = true
			years = append(years, attr.Year)
		}
	}
	sort.Ints(years)
	return years
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

func filesExist(paths ...string) bool {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			return false
		}
	}
	return true
}
