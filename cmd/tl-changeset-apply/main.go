// Command tl-changeset-apply applies a changeset to a label tree in place.
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
	"github.com/banshee-data/tlabel/internal/journal"
	"github.com/banshee-data/tlabel/internal/security"
	"github.com/banshee-data/tlabel/internal/timeutil"
)

const tool = "tl-changeset-apply"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, fsutil.OSFileSystem{}, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, fsys fsutil.FileSystem, args []string, stdout, stderr io.Writer) int {
	var common cliutil.Common
	var dryRun bool
	var journalPath string

	fs := flag.NewFlagSet(tool, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: %s [flags] <basedir> <changeset>\n", tool)
		fs.PrintDefaults()
	}
	common.Register(fs)
	fs.BoolVar(&dryRun, "dry-run", false, "validate every file without writing")
	fs.StringVar(&journalPath, "journal", "", "SQLite apply journal; makes re-applying a changeset a no-op (default from config)")
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
	baseDir, csPath := fs.Arg(0), fs.Arg(1)

	env, err := common.Setup(stderr)
	if err != nil {
		fmt.Fprintf(stderr, "setup: %v\n", err)
		return 1
	}
	defer env.Close()
	if journalPath == "" {
		journalPath = env.Config.GetJournalPath()
	}

	cs, err := changeset.Load(fsys, csPath)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}

	opts := changeset.ApplyOptions{
		FS:       fsys,
		Workers:  env.Workers,
		DryRun:   dryRun,
		Logf:     env.Logf,
		Progress: env.Progress(len(cs), "apply"),
	}
	if _, ok := fsys.(fsutil.OSFileSystem); ok {
		opts.PathCheck = security.ValidatePathWithinDirectory
	}

	var jrun *journal.Run
	if journalPath != "" {
		db, err := journal.Open(journalPath, env.Logf)
		if err != nil {
			fmt.Fprintf(stderr, "open journal: %v\n", err)
			return 1
		}
		defer db.Close()
		if dryRun {
			jrun, err = db.View(baseDir)
		} else {
			jrun, err = db.StartRun(ctx, baseDir, csPath)
		}
		if err != nil {
			fmt.Fprintf(stderr, "journal: %v\n", err)
			return 1
		}
		opts.Journal = jrun
	}

	env.Logger.Sugar().Infow("applying changeset", "files", len(cs), "base", baseDir, "dry_run", dryRun, "journal", journalPath)
	start := env.Clock.Now()
	rep, err := changeset.ApplyTree(ctx, opts, baseDir, cs)
	if err != nil {
		fmt.Fprintf(stderr, "apply: %v\n", err)
		return 1
	}
	env.Logger.Sugar().Infow("changeset applied", "elapsed", timeutil.Since(env.Clock, start))
	if jrun != nil && !dryRun {
		if err := jrun.Finish(ctx, rep); err != nil {
			fmt.Fprintf(stderr, "journal: %v\n", err)
			return 1
		}
	}

	for _, fe := range rep.Failures() {
		fmt.Fprintf(stderr, "failed: %v\n", fe)
	}
	fmt.Fprintf(stdout, "applied %d, dry run %d, skipped %d, failed %d\n",
		rep.Count(changeset.StatusApplied), rep.Count(changeset.StatusDryRun),
		rep.Count(changeset.StatusSkipped), rep.Count(changeset.StatusFailed))
	if rep.Err() != nil {
		return 1
	}
	return 0
}
