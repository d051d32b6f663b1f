// Command tl-audit checks every traffic light of a label tree against the
// attribute schema and prints one line per violation.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"

	"github.com/banshee-data/tlabel/internal/audit"
	"github.com/banshee-data/tlabel/internal/changeset"
	"github.com/banshee-data/tlabel/internal/cliutil"
	"github.com/banshee-data/tlabel/internal/fsutil"
	"github.com/banshee-data/tlabel/internal/label"
)

const tool = "tl-audit"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, fsutil.OSFileSystem{}, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, fsys fsutil.FileSystem, args []string, stdout, stderr io.Writer) int {
	var common cliutil.Common
	var outFile, pattern string
	var failOnIssues bool

	fs := flag.NewFlagSet(tool, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: %s [flags] <basedir>\n", tool)
		fs.PrintDefaults()
	}
	common.Register(fs)
	fs.StringVar(&outFile, "o", "", "write the report to this file instead of stdout")
	fs.StringVar(&pattern, "pattern", "", "label file glob relative to <basedir> (default from config)")
	fs.BoolVar(&failOnIssues, "fail-on-issues", false, "exit non-zero when any issue is found")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if common.PrintVersion(stdout, tool) {
		return 0
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}
	baseDir := fs.Arg(0)

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

	rep, err := audit.AuditTree(ctx, audit.Options{
		FS:       fsys,
		Workers:  env.Workers,
		Logf:     env.Logf,
		Progress: env.Progress(len(files), "audit"),
	}, baseDir, files)
	if err != nil {
		fmt.Fprintf(stderr, "audit: %v\n", err)
		return 1
	}

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
	if _, err := rep.WriteTo(out); err != nil {
		fmt.Fprintf(stderr, "write report: %v\n", err)
		return 1
	}
	if f != nil {
		if err := f.Close(); err != nil {
			fmt.Fprintf(stderr, "write report: %v\n", err)
			return 1
		}
	}

	for _, fe := range rep.Failures {
		fmt.Fprintf(stderr, "failed: %v\n", fe)
	}
	counts := rep.Counts()
	kinds := make([]label.IssueKind, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	for _, k := range kinds {
		env.Logger.Sugar().Infow("issues", "kind", k.String(), "count", counts[k])
	}
	fmt.Fprintf(stderr, "%d files, %d objects with issues, %d issues, %d unreadable\n",
		rep.Files, len(rep.Findings), rep.IssueCount(), len(rep.Failures))

	if len(rep.Failures) > 0 || (failOnIssues && rep.IssueCount() > 0) {
		return 1
	}
	return 0
}
