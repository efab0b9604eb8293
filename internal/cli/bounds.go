package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/HarshCasper/gcbmanimation/pkg/layer"
	"github.com/HarshCasper/gcbmanimation/pkg/raster"
)

// rasterBounds is the computed minimum extent of a raster.
type rasterBounds struct {
	pixel layer.PixelBounds
	geo   raster.Extent
}

// boundsCommand creates the bounds command for inspecting the minimum
// non-nodata extent of a raster. This is the box animations would be
// cropped to if the raster were used as a study area.
func (c *CLI) boundsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "bounds <raster>",
		Short: "Print the non-nodata bounds of a raster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bounds, err := computeBounds(args[0])
			if err != nil {
				return err
			}
			printInfo("Bounds of %s", args[0])
			printKeyValue("columns", fmt.Sprintf("%d - %d", bounds.pixel.XMin, bounds.pixel.XMax))
			printKeyValue("rows", fmt.Sprintf("%d - %d", bounds.pixel.YMin, bounds.pixel.YMax))
			printKeyValue("upper left", fmt.Sprintf("%.6f, %.6f", bounds.geo.ULX, bounds.geo.ULY))
			printKeyValue("lower right", fmt.Sprintf("%.6f, %.6f", bounds.geo.LRX, bounds.geo.LRY))
			return nil
		},
	}
}

func computeBounds(path string) (rasterBounds, error) {
	bbox := layer.NewBoundingBox(path)
	pixel, err := bbox.MinPixelBounds()
	if err != nil {
		return rasterBounds{}, err
	}
	geo, err := bbox.MinGeographicBounds()
	if err != nil {
		return rasterBounds{}, err
	}
	return rasterBounds{pixel: pixel, geo: geo}, nil
}
