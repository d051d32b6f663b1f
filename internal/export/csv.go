// Package export derives flat artifacts from a curated label tree: an
// attribute table, a report of traffic lights lacking an id, and a copy of
// the tree with traffic lights relabeled by relevance.
package export

import (
	"context"
	"encoding/csv"
	"io"
	"path/filepath"

	"github.com/banshee-data/tlabel/internal/changeset"
	"github.com/banshee-data/tlabel/internal/fsutil"
	"github.com/banshee-data/tlabel/internal/label"
	"github.com/banshee-data/tlabel/internal/monitoring"
	"github.com/banshee-data/tlabel/internal/workpool"
)

// Header is the column layout of the attribute table.
var Header = []string{"relative_file_path", "id", label.KeyRelevant, label.KeyState, label.KeyType, label.KeyVisible}

// Options configures the tree walks of this package.
type Options struct {
	FS       fsutil.FileSystem
	Workers  int
	Logf     monitoring.Logf
	Progress workpool.Progress
}

func (o Options) fs() fsutil.FileSystem {
	if o.FS == nil {
		return fsutil.OSFileSystem{}
	}
	return o.FS
}

// Summary counts what a walk produced.
type Summary struct {
	Files    int
	Rows     int
	Failures []*changeset.FileError
}

// walk loads every file concurrently and hands the results to visit in
// input order.
func walk[T any](ctx context.Context, opts Options, root string, files []string, verb string,
	load func(fsys fsutil.FileSystem, rel, path string) (T, error),
	visit func(rel string, v T) error) (*Summary, error) {

	fsys := opts.fs()
	logf := monitoring.OrDiscard(opts.Logf)
	results := make([]T, len(files))
	errs := make([]error, len(files))
	err := workpool.Run(ctx, opts.Workers, len(files), opts.Progress, func(_ context.Context, i int) {
		results[i], errs[i] = load(fsys, files[i], filepath.Join(root, filepath.FromSlash(files[i])))
	})

	sum := &Summary{Files: len(files)}
	if err != nil {
		return sum, err
	}
	for i, rel := range files {
		if errs[i] != nil {
			logf("%s %s: %v", verb, rel, errs[i])
			sum.Failures = append(sum.Failures, &changeset.FileError{Path: rel, Err: errs[i]})
			continue
		}
		if err := visit(rel, results[i]); err != nil {
			return sum, err
		}
	}
	return sum, nil
}

// Rows returns one table row per live traffic light in objects whose
// attributes pass the strict check.
func Rows(rel string, objects []label.Object) [][]string {
	var rows [][]string
	for _, o := range objects {
		if !o.IsLive() || len(label.CheckAttributes(o)) > 0 {
			continue
		}
		a := o.Attributes
		rows = append(rows, []string{
			rel,
			o.IDString(),
			a.Value(label.KeyRelevant),
			a.Value(label.KeyState),
			a.Value(label.KeyType),
			a.Value(label.KeyVisible),
		})
	}
	return rows
}

// WriteCSV writes the attribute table of files, slash-separated paths
// relative to root, to w. Rows follow the order of files.
func WriteCSV(ctx context.Context, opts Options, w io.Writer, root string, files []string) (*Summary, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return nil, err
	}
	rows := 0
	sum, err := walk(ctx, opts, root, files, "export",
		func(fsys fsutil.FileSystem, rel, path string) ([][]string, error) {
			f, err := label.ReadFile(fsys, path)
			if err != nil {
				return nil, err
			}
			return Rows(rel, f.Objects), nil
		},
		func(_ string, recs [][]string) error {
			rows += len(recs)
			return cw.WriteAll(recs)
		})
	if sum != nil {
		sum.Rows = rows
	}
	cw.Flush()
	if ferr := cw.Error(); ferr != nil && err == nil {
		err = ferr
	}
	return sum, err
}
