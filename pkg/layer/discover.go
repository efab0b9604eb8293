package layer

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/HarshCasper/gcbmanimation/pkg/errs"
)

// FindLayers discovers spatial output layers matching a glob pattern.
// The year comes from the last 4 characters of each filename stem, the
// GCBM spatial output naming convention (e.g. NPP_2018.tif). A pattern
// matching no files is a discovery error: a silently empty animation
// is never what the caller wants.
func FindLayers(pattern string, units Units) ([]*Layer, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, errs.Wrap(errs.InvalidConfig, err, "bad layer pattern %q", pattern)
	}

	layers := make([]*Layer, 0, len(matches))
	for _, path := range matches {
		year, err := YearFromPath(path)
		if err != nil {
			return nil, err
		}
		layers = append(layers, New(path, year, WithUnits(units)))
	}
	if len(layers) == 0 {
		return nil, errs.New(errs.DiscoveryEmpty, "no spatial output found for pattern: %s", pattern)
	}
	return layers, nil
}

// YearFromPath extracts the year from the last 4 characters of a
// filename stem.
func YearFromPath(path string) (int, error) {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if len(stem) < 4 {
		return 0, errs.New(errs.InvalidConfig, "cannot determine year from filename: %s", path)
	}
	year, err := strconv.Atoi(stem[len(stem)-4:])
	if err != nil {
		return 0, errs.Wrap(errs.InvalidConfig, err, "cannot determine year from filename: %s", path)
	}
	return year, nil
}
