// Package cliutil holds the flag handling and setup shared by the tl-*
// commands: configuration, logging and progress bars.
package cliutil

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/banshee-data/tlabel/internal/config"
	"github.com/banshee-data/tlabel/internal/monitoring"
	"github.com/banshee-data/tlabel/internal/timeutil"
	"github.com/banshee-data/tlabel/internal/version"
	"github.com/banshee-data/tlabel/internal/workpool"
)

// Common are the flags every tool accepts.
type Common struct {
	ConfigPath string
	Workers    int
	LogMode    string
	Quiet      bool
	Version    bool
}

// Register adds the common flags to fs.
func (c *Common) Register(fs *flag.FlagSet) {
	fs.StringVar(&c.ConfigPath, "config", "", "path to a JSON tool configuration")
	fs.IntVar(&c.Workers, "workers", 0, "number of files processed in parallel (default from config, else 4)")
	fs.StringVar(&c.LogMode, "log-mode", "", "development or production (default from config)")
	fs.BoolVar(&c.Quiet, "quiet", false, "hide the progress bar")
	fs.BoolVar(&c.Version, "version", false, "print version information and exit")
}

// PrintVersion writes the version line when -version was given and
// reports whether it did.
func (c *Common) PrintVersion(w io.Writer, tool string) bool {
	if !c.Version {
		return false
	}
	fmt.Fprintln(w, version.String(tool))
	return true
}

// Env is the resolved runtime setup of a tool.
type Env struct {
	Config  *config.ToolConfig
	Logger  *zap.Logger
	Logf    monitoring.Logf
	Workers int
	Quiet   bool
	Clock   timeutil.Clock

	progressOut io.Writer
}

// Setup loads the configuration and builds the logger. Flags override the
// configuration file. Progress bars are drawn on stderr, os.Stderr when nil.
func (c *Common) Setup(stderr io.Writer) (*Env, error) {
	if stderr == nil {
		stderr = os.Stderr
	}
	cfg, err := config.LoadOptional(c.ConfigPath)
	if err != nil {
		return nil, err
	}
	if c.Workers < 0 {
		return nil, fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	mode := cfg.GetLogMode()
	if c.LogMode != "" {
		mode = c.LogMode
	}
	logger, err := monitoring.NewLogger(mode)
	if err != nil {
		return nil, err
	}
	workers := cfg.GetWorkers()
	if c.Workers > 0 {
		workers = c.Workers
	}
	return &Env{
		Config:      cfg,
		Logger:      logger,
		Logf:        monitoring.Printf(logger),
		Workers:     workers,
		Quiet:       c.Quiet,
		Clock:       timeutil.RealClock{},
		progressOut: stderr,
	}, nil
}

// Progress returns a progress bar over n files on stderr, nil when quiet.
func (e *Env) Progress(n int, description string) workpool.Progress {
	if e.Quiet || n == 0 {
		return nil
	}
	return progressbar.NewOptions(n,
		progressbar.OptionSetWriter(e.progressOut),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

// Close flushes the logger.
func (e *Env) Close() {
	if e.Logger != nil {
		_ = e.Logger.Sync()
	}
}
