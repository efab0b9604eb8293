// Package cli implements the gcbmanim command-line interface.
//
// This package provides commands for rendering carbon simulation
// animations from spatial output and compiled results databases, for
// inspecting raster bounds, and for managing the rendered-frame cache.
// The CLI is built using cobra and supports verbose logging via the
// charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - render: Render animation frame sequences from a configuration file
//   - bounds: Print the non-nodata bounds of a raster
//   - cache: Manage the rendered-frame cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging.
package cli

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/HarshCasper/gcbmanimation/pkg/buildinfo"
	"github.com/HarshCasper/gcbmanimation/pkg/cache"
	"github.com/HarshCasper/gcbmanimation/pkg/pipeline"
)

// appName is the application name used for directories and display.
const appName = "gcbmanim"

// cacheURLEnv selects a shared redis cache instead of the local file
// cache, e.g. GCBMANIM_CACHE_URL=redis://localhost:6379/0.
const cacheURLEnv = "GCBMANIM_CACHE_URL"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			TimeFormat:      "15:04:05.00",
			Level:           level,
		}),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "gcbmanim animates GCBM carbon simulation output",
		Long:         `gcbmanim renders annual carbon indicator rasters and compiled results databases into animation frame sequences showing disturbances, spatial output, and graphed trends side by side.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.renderCommand())
	root.AddCommand(c.boundsCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(noCache bool) *pipeline.Runner {
	return pipeline.NewRunner(c.newCache(noCache), nil, c.Logger)
}

// newCache selects the cache backend: null when caching is disabled,
// redis when GCBMANIM_CACHE_URL is set, the XDG file cache otherwise.
func (c *CLI) newCache(noCache bool) cache.Cache {
	if noCache {
		return cache.NewNullCache()
	}
	if url := os.Getenv(cacheURLEnv); url != "" {
		redisCache, err := cache.NewRedisCache(url)
		if err != nil {
			c.Logger.Warn("falling back to file cache",
				"reason", err, "env", cacheURLEnv)
		} else {
			return redisCache
		}
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache()
	}
	fileCache, err := cache.NewFileCache(dir)
	if err != nil {
		return cache.NewNullCache()
	}
	return fileCache
}

// cacheDir returns the cache directory using XDG standard (~/.cache/gcbmanim/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
