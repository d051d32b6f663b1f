// Command tl-stats prints statistics of a changeset or of a label tree.
//
//	tl-stats [flags] changeset <file>
//	tl-stats [flags] tree <basedir>
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/banshee-data/tlabel/internal/changeset"
	"github.com/banshee-data/tlabel/internal/cliutil"
	"github.com/banshee-data/tlabel/internal/fsutil"
	"github.com/banshee-data/tlabel/internal/stats"
)

const tool = "tl-stats"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, fsutil.OSFileSystem{}, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, fsys fsutil.FileSystem, args []string, stdout, stderr io.Writer) int {
	var common cliutil.Common
	var pattern string

	fs := flag.NewFlagSet(tool, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: %s [flags] changeset <file>\n       %s [flags] tree <basedir>\n", tool, tool)
		fs.PrintDefaults()
	}
	common.Register(fs)
	fs.StringVar(&pattern, "pattern", "", "label file glob relative to <basedir> (default from config)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if common.PrintVersion(stdout, tool) {
		return 0
	}
	if fs.NArg() != 2 {
		fs.Usage()
		return 2
	}

	env, err := common.Setup(stderr)
	if err != nil {
		fmt.Fprintf(stderr, "setup: %v\n", err)
		return 1
	}
	defer env.Close()

	switch fs.Arg(0) {
	case "changeset":
		cs, err := changeset.Load(fsys, fs.Arg(1))
		if err != nil {
			fmt.Fprintf(stderr, "%v\n", err)
			return 1
		}
		if _, err := stats.Changeset(cs).WriteTo(stdout); err != nil {
			fmt.Fprintf(stderr, "%v\n", err)
			return 1
		}
		return 0

	case "tree":
		baseDir := fs.Arg(1)
		if pattern == "" {
			pattern = env.Config.GetFilePattern()
		}
		files, err := changeset.DiscoverFiles(fsys, baseDir, pattern)
		if err != nil {
			fmt.Fprintf(stderr, "discover files: %v\n", err)
			return 1
		}
		if len(files) == 0 {
			fmt.Fprintf(stderr, "%v: %s under %s\n", changeset.ErrNoFiles, pattern, baseDir)
			return 1
		}
		s, err := stats.Tree(ctx, stats.TreeOptions{
			FS:       fsys,
			Workers:  env.Workers,
			Logf:     env.Logf,
			Progress: env.Progress(len(files), "stats"),
		}, baseDir, files)
		if err != nil {
			fmt.Fprintf(stderr, "stats: %v\n", err)
			return 1
		}
		if _, err := s.WriteTo(stdout); err != nil {
			fmt.Fprintf(stderr, "%v\n", err)
			return 1
		}
		for _, fe := range s.Failures {
			fmt.Fprintf(stderr, "failed: %v\n", fe)
		}
		if len(s.Failures) > 0 {
			return 1
		}
		return 0
	}

	fs.Usage()
	return 2
}
