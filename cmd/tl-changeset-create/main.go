// Command tl-changeset-create compares an updated label tree with the
// original and writes the changeset that turns one into the other.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/banshee-data/tlabel/internal/changeset"
	"github.com/banshee-data/tlabel/internal/cliutil"
	"github.com/banshee-data/tlabel/internal/fsutil"
)

const tool = "tl-changeset-create"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, fsutil.OSFileSystem{}, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, fsys fsutil.FileSystem, args []string, stdout, stderr io.Writer) int {
	var common cliutil.Common
	var origDir, newDir, outFile, filter, pattern string

	fs := flag.NewFlagSet(tool, flag.ContinueOnError)
	fs.SetOutput(stderr)
	common.Register(fs)
	fs.StringVar(&origDir, "orig-dir", "", "root of the original label tree (required)")
	fs.StringVar(&newDir, "new-dir", "", "root of the updated label tree (required)")
	fs.StringVar(&outFile, "o", "", "changeset output file (required)")
	fs.StringVar(&filter, "filter", "", "only compare files whose path contains this substring")
	fs.StringVar(&pattern, "pattern", "", "label file glob relative to -new-dir (default from config)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if common.PrintVersion(stdout, tool) {
		return 0
	}
	if origDir == "" || newDir == "" || outFile == "" {
		fmt.Fprintln(stderr, "-orig-dir, -new-dir and -o are required")
		fs.Usage()
		return 2
	}

	env, err := common.Setup(stderr)
	if err != nil {
		fmt.Fprintf(stderr, "setup: %v\n", err)
		return 1
	}
	defer env.Close()
	if pattern == "" {
		pattern = env.Config.GetFilePattern()
	}

	files, err := changeset.DiscoverFiles(fsys, newDir, pattern)
	if err != nil {
		fmt.Fprintf(stderr, "discover files: %v\n", err)
		return 1
	}
	files = changeset.FilterPaths(files, filter)
	if len(files) == 0 {
		fmt.Fprintf(stderr, "%v: %s under %s\n", changeset.ErrNoFiles, pattern, newDir)
		return 1
	}
	env.Logger.Sugar().Infow("building changeset", "files", len(files), "orig", origDir, "new", newDir)

	res, err := changeset.BuildTree(ctx, changeset.TreeOptions{
		FS:       fsys,
		Workers:  env.Workers,
		Logf:     env.Logf,
		Progress: env.Progress(len(files), "compare"),
	}, origDir, newDir, files)
	if err != nil {
		fmt.Fprintf(stderr, "build: %v\n", err)
		return 1
	}
	if err := changeset.Save(fsys, outFile, res.Changeset); err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "Wrote changeset for %d of %d files to %s\n", len(res.Changeset), res.Files, outFile)

	for _, fe := range res.Failures {
		fmt.Fprintf(stderr, "failed: %v\n", fe)
	}
	if len(res.Failures) > 0 {
		var missing int
		for _, fe := range res.Failures {
			if errors.Is(fe, changeset.ErrMissingOriginal) {
				missing++
			}
		}
		fmt.Fprintf(stderr, "%d files failed (%d without an original)\n", len(res.Failures), missing)
		return 1
	}
	return 0
}
