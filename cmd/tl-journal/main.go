// Command tl-journal inspects the apply journal and manages its schema.
//
//	tl-journal [flags] status
//	tl-journal [flags] runs
//	tl-journal [flags] migrate up|down|version|force <n>
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/banshee-data/tlabel/internal/cliutil"
	"github.com/banshee-data/tlabel/internal/journal"
)

const tool = "tl-journal"

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var common cliutil.Common
	var dbPath string
	var limit int

	fs := flag.NewFlagSet(tool, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: %s [flags] status|runs|migrate up|down|version|force <n>\n", tool)
		fs.PrintDefaults()
	}
	common.Register(fs)
	fs.StringVar(&dbPath, "db", "", "journal database (default from config journal_path)")
	fs.IntVar(&limit, "limit", 20, "runs: number of runs shown")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if common.PrintVersion(stdout, tool) {
		return 0
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	env, err := common.Setup(stderr)
	if err != nil {
		fmt.Fprintf(stderr, "setup: %v\n", err)
		return 1
	}
	defer env.Close()
	if dbPath == "" {
		dbPath = env.Config.GetJournalPath()
	}
	if dbPath == "" {
		fmt.Fprintln(stderr, "no journal: pass -db or set journal_path")
		return 2
	}

	// Schema commands must work on a journal whose migrations are broken.
	db, err := journal.OpenNoMigrate(dbPath, env.Logf)
	if err != nil {
		fmt.Fprintf(stderr, "open journal: %v\n", err)
		return 1
	}
	defer db.Close()

	switch fs.Arg(0) {
	case "status":
		st, err := db.Status(ctx)
		if err != nil {
			fmt.Fprintf(stderr, "status: %v\n", err)
			return 1
		}
		tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintf(tw, "journal\t%s\n", dbPath)
		fmt.Fprintf(tw, "schema version\t%d\n", st.Version)
		fmt.Fprintf(tw, "dirty\t%t\n", st.Dirty)
		fmt.Fprintf(tw, "runs\t%d\n", st.Runs)
		fmt.Fprintf(tw, "applied scripts\t%d\n", st.Scripts)
		tw.Flush()
		return 0

	case "runs":
		runs, err := db.Runs(ctx, limit)
		if err != nil {
			fmt.Fprintf(stderr, "runs: %v\n", err)
			return 1
		}
		tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "RUN\tSTARTED\tFINISHED\tAPPLIED\tSKIPPED\tFAILED\tBASE\tCHANGESET")
		for _, r := range runs {
			finished := "-"
			if r.FinishedAt != nil {
				finished = r.FinishedAt.Format(time.RFC3339)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
				r.ID, r.StartedAt.Format(time.RFC3339), finished, r.Applied, r.Skipped, r.Failed, r.Base, r.Changeset)
		}
		tw.Flush()
		return 0

	case "migrate":
		return migrate(db, fs.Args()[1:], stdout, stderr)
	}

	fs.Usage()
	return 2
}

func migrate(db *journal.DB, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "migrate: want up, down, version or force <n>")
		return 2
	}
	switch args[0] {
	case "up":
		if err := db.MigrateUp(); err != nil {
			fmt.Fprintf(stderr, "migrate up: %v\n", err)
			return 1
		}
	case "down":
		if err := db.MigrateDown(); err != nil {
			fmt.Fprintf(stderr, "migrate down: %v\n", err)
			return 1
		}
	case "force":
		if len(args) != 2 {
			fmt.Fprintln(stderr, "migrate force: want a version")
			return 2
		}
		v, err := strconv.Atoi(args[1])
		if err != nil {
			fmt.Fprintf(stderr, "migrate force: %v\n", err)
			return 2
		}
		if err := db.MigrateForce(v); err != nil {
			fmt.Fprintf(stderr, "migrate force: %v\n", err)
			return 1
		}
	case "version":
	default:
		fmt.Fprintf(stderr, "migrate: unknown command %q\n", args[0])
		return 2
	}
	v, dirty, err := db.MigrateVersion()
	if err != nil {
		fmt.Fprintf(stderr, "migrate version: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "schema version %d (dirty: %t)\n", v, dirty)
	return 0
}
