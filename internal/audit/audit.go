// Package audit checks every traffic light of a label tree against the
// attribute schema and reports the violations.
package audit

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/banshee-data/tlabel/internal/changeset"
	"github.com/banshee-data/tlabel/internal/fsutil"
	"github.com/banshee-data/tlabel/internal/label"
	"github.com/banshee-data/tlabel/internal/monitoring"
	"github.com/banshee-data/tlabel/internal/workpool"
)

// Options configures AuditTree.
type Options struct {
	FS       fsutil.FileSystem
	Workers  int
	Logf     monitoring.Logf
	Progress workpool.Progress
}

// Finding is one object with at least one issue.
type Finding struct {
	// File is the label file path as displayed, root included.
	File   string
	Index  int
	ID     string
	Issues label.Issues
}

// Lines renders one report line per issue.
func (f Finding) Lines() []string {
	out := make([]string, len(f.Issues))
	for i, is := range f.Issues {
		out[i] = fmt.Sprintf("File %s item ID %s: %s", f.File, f.ID, is.Message())
	}
	return out
}

// Report is the outcome of AuditTree, sorted by file then object index.
type Report struct {
	Findings []Finding
	Failures []*changeset.FileError
	Files    int
}

// IssueCount returns the total number of issues.
func (r *Report) IssueCount() int {
	n := 0
	for _, f := range r.Findings {
		n += len(f.Issues)
	}
	return n
}

// Counts tallies issues by kind.
func (r *Report) Counts() map[label.IssueKind]int {
	counts := make(map[label.IssueKind]int)
	for _, f := range r.Findings {
		for _, is := range f.Issues {
			counts[is.Kind]++
		}
	}
	return counts
}

// WriteTo writes every report line to w.
func (r *Report) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var n int64
	for _, f := range r.Findings {
		for _, line := range f.Lines() {
			m, err := bw.WriteString(line + "\n")
			n += int64(m)
			if err != nil {
				return n, err
			}
		}
	}
	return n, bw.Flush()
}

// AuditTree checks every traffic light in files, slash-separated paths
// relative to root. The deletion marker is not consulted. Unreadable files
// are recorded as failures and the walk continues. The returned error is
// only set when ctx is cancelled.
func AuditTree(ctx context.Context, opts Options, root string, files []string) (*Report, error) {
	fsys := opts.FS
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	logf := monitoring.OrDiscard(opts.Logf)

	findings := make([][]Finding, len(files))
	errs := make([]error, len(files))
	err := workpool.Run(ctx, opts.Workers, len(files), opts.Progress, func(_ context.Context, i int) {
		findings[i], errs[i] = auditFile(fsys, filepath.Join(root, filepath.FromSlash(files[i])))
	})

	rep := &Report{Files: len(files)}
	for i, rel := range files {
		if errs[i] != nil {
			logf("audit %s: %v", rel, errs[i])
			rep.Failures = append(rep.Failures, &changeset.FileError{Path: rel, Err: errs[i]})
			continue
		}
		rep.Findings = append(rep.Findings, findings[i]...)
	}
	return rep, err
}

func auditFile(fsys fsutil.FileSystem, path string) ([]Finding, error) {
	f, err := label.ReadFile(fsys, path)
	if err != nil {
		return nil, err
	}
	var out []Finding
	for i, o := range f.Objects {
		if !o.IsTrafficLight() {
			continue
		}
		if issues := label.CheckAttributes(o); len(issues) > 0 {
			out = append(out, Finding{File: path, Index: i, ID: o.IDString(), Issues: issues})
		}
	}
	return out, nil
}
