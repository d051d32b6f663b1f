// Command tl-export derives artifacts from a curated label tree.
//
//	tl-export [flags] csv <basedir>                 attribute table
//	tl-export [flags] ids <basedir>                 traffic lights without an id
//	tl-export [flags] marginalize <basedir> <target> relabel by relevance into target
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/banshee-data/tlabel/internal/changeset"
	"github.com/banshee-data/tlabel/internal/cliutil"
	"github.com/banshee-data/tlabel/internal/export"
	"github.com/banshee-data/tlabel/internal/fsutil"
)

const tool = "tl-export"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, fsutil.OSFileSystem{}, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, fsys fsutil.FileSystem, args []string, stdout, stderr io.Writer) int {
	var common cliutil.Common
	var pattern, outFile string

	fs := flag.NewFlagSet(tool, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: %s [flags] csv|ids <basedir>\n       %s [flags] marginalize <basedir> <target>\n", tool, tool)
		fs.PrintDefaults()
	}
	common.Register(fs)
	fs.StringVar(&pattern, "pattern", "", "label file glob relative to <basedir> (default from config)")
	fs.StringVar(&outFile, "o", "", "csv: write the table to this file instead of stdout")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if common.PrintVersion(stdout, tool) {
		return 0
	}
	want := map[string]int{"csv": 2, "ids": 2, "marginalize": 3}
	if fs.NArg() == 0 || want[fs.Arg(0)] != fs.NArg() {
		fs.Usage()
		return 2
	}
	cmd, baseDir := fs.Arg(0), fs.Arg(1)

	env, err := common.Setup(stderr)
	if err != nil {
		fmt.Fprintf(stderr, "setup: %v\n", err)
		return 1
	}
	defer env.Close()
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
	opts := export.Options{
		FS:       fsys,
		Workers:  env.Workers,
		Logf:     env.Logf,
		Progress: env.Progress(len(files), cmd),
	}

	var sum *export.Summary
	switch cmd {
	case "csv":
		out := stdout
		var f io.WriteCloser
		if outFile != "" {
			if err := fsys.MkdirAll(filepath.Dir(outFile), 0755); err != nil {
				fmt.Fprintf(stderr, "create output directory: %v\n", err)
				return 1
			}
			if f, err = fsys.Create(outFile); err != nil {
				fmt.Fprintf(stderr, "create output: %v\n", err)
				return 1
			}
			out = f
		}
		sum, err = export.WriteCSV(ctx, opts, out, baseDir, files)
		if f != nil {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}
		if err == nil {
			fmt.Fprintf(stderr, "%d rows from %d files\n", sum.Rows, sum.Files)
		}

	case "ids":
		var missing []export.MissingID
		missing, sum, err = export.MissingIDs(ctx, opts, baseDir, files)
		for _, m := range missing {
			fmt.Fprintf(stdout, "No ID found in %s item %d\n", filepath.Join(baseDir, filepath.FromSlash(m.File)), m.Index)
		}

	case "marginalize":
		target := fs.Arg(2)
		sum, err = export.Marginalize(ctx, opts, baseDir, target, files)
		if err == nil {
			fmt.Fprintf(stdout, "relabeled %d traffic lights in %d files under %s\n", sum.Rows, sum.Files-len(sum.Failures), target)
		}
	}
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", cmd, err)
		return 1
	}
	for _, fe := range sum.Failures {
		fmt.Fprintf(stderr, "failed: %v\n", fe)
	}
	if len(sum.Failures) > 0 {
		return 1
	}
	return 0
}
