package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/HarshCasper/gcbmanimation/pkg/pipeline"
)

// renderOpts holds the command-line flags for the render command.
// Flags override values from the configuration file.
type renderOpts struct {
	output    string // output directory for frame sequences
	startYear int    // first year to animate
	endYear   int    // last year to animate
	colorizer string // legend strategy: "simple" or "quantile"
	bins      int    // legend bin count
	width     int    // frame width in pixels
	height    int    // frame height in pixels
	noCache   bool   // disable the rendered-frame cache
	refresh   bool   // re-render even when cached frames exist
}

// renderCommand creates the render command for producing animation
// frame sequences from a configuration file.
func (c *CLI) renderCommand() *cobra.Command {
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "render <config.toml>",
		Short: "Render animation frame sequences",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := pipeline.LoadConfig(args[0])
			if err != nil {
				return err
			}
			pipelineOpts := pipeline.FromConfig(cfg)
			applyRenderFlags(&pipelineOpts, opts)
			pipelineOpts.Logger = c.Logger

			start := time.Now()
			result, err := c.newRunner(opts.noCache).Execute(cmd.Context(), pipelineOpts)
			if err != nil {
				return err
			}

			printSuccess("Rendered %d animations in %s",
				result.Stats.IndicatorCount, time.Since(start).Round(time.Millisecond))
			for indicator, paths := range result.Sequences {
				printSequence(indicator, len(paths), result.CacheInfo.Hits[indicator])
			}
			printFile(pipelineOpts.OutputPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output directory for frame sequences")
	cmd.Flags().IntVar(&opts.startYear, "start-year", 0, "first year to animate")
	cmd.Flags().IntVar(&opts.endYear, "end-year", 0, "last year to animate")
	cmd.Flags().StringVar(&opts.colorizer, "colorizer", "", "legend strategy: simple (default), quantile")
	cmd.Flags().IntVar(&opts.bins, "bins", 0, "legend bin count")
	cmd.Flags().IntVar(&opts.width, "width", 0, "frame width in pixels")
	cmd.Flags().IntVar(&opts.height, "height", 0, "frame height in pixels")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the rendered-frame cache")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "re-render even when cached frames exist")

	return cmd
}

func applyRenderFlags(pipelineOpts *pipeline.Options, opts renderOpts) {
	if opts.output != "" {
		pipelineOpts.OutputPath = opts.output
	}
	if opts.startYear != 0 {
		pipelineOpts.StartYear = opts.startYear
	}
	if opts.endYear != 0 {
		pipelineOpts.EndYear = opts.endYear
	}
	if opts.colorizer != "" {
		pipelineOpts.Colorizer = opts.colorizer
	}
	if opts.bins != 0 {
		pipelineOpts.Bins = opts.bins
	}
	if opts.width != 0 {
		pipelineOpts.Width = opts.width
	}
	if opts.height != 0 {
		pipelineOpts.Height = opts.height
	}
	pipelineOpts.Refresh = opts.refresh
}
