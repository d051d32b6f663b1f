package changeset

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/banshee-data/tlabel/internal/fsutil"
	"github.com/banshee-data/tlabel/internal/label"
	"github.com/banshee-data/tlabel/internal/monitoring"
	"github.com/banshee-data/tlabel/internal/workpool"
)

// Build derives the script that turns original into updated.
//
// Matched pairs become updates keyed by the original index and carrying
// the updated object's attribute record. When two updated objects match
// the same original, the higher updated index wins. Unmatched original
// traffic lights are deleted; unmatched updated ones are created at their
// updated index.
func Build(original, updated []label.Object) Script {
	c := Match(original, updated)
	var s Script

	us := make([]int, 0, len(c.UpdatedToOriginal))
	for u := range c.UpdatedToOriginal {
		us = append(us, u)
	}
	sort.Ints(us)
	for _, u := range us {
		if s.Update == nil {
			s.Update = make(map[int]*label.Attributes)
		}
		s.Update[c.UpdatedToOriginal[u]] = updated[u].Attributes.Clone()
	}

	if len(c.OnlyInOriginal) > 0 {
		s.Delete = append(IndexList{}, c.OnlyInOriginal...)
	}
	for _, u := range c.OnlyInUpdated {
		if s.Create == nil {
			s.Create = make(map[int]label.Object)
		}
		s.Create[u] = updated[u].Clone()
	}
	return s
}

// DiscoverFiles returns the slash-separated paths, relative to root, of
// the files matching pattern under root, sorted.
func DiscoverFiles(fsys fsutil.FileSystem, root, pattern string) ([]string, error) {
	matches, err := fsys.Glob(filepath.Join(root, filepath.FromSlash(pattern)))
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", pattern, err)
	}
	files := make([]string, 0, len(matches))
	for _, m := range matches {
		rel, err := filepath.Rel(root, m)
		if err != nil {
			return nil, fmt.Errorf("relative path of %s: %w", m, err)
		}
		files = append(files, filepath.ToSlash(rel))
	}
	sort.Strings(files)
	return files, nil
}

// FilterPaths keeps the paths containing substr. An empty substr keeps all.
func FilterPaths(paths []string, substr string) []string {
	if substr == "" {
		return paths
	}
	var out []string
	for _, p := range paths {
		if strings.Contains(p, substr) {
			out = append(out, p)
		}
	}
	return out
}

// TreeOptions configures BuildTree.
type TreeOptions struct {
	FS       fsutil.FileSystem
	Workers  int
	Logf     monitoring.Logf
	Progress workpool.Progress
}

// BuildResult is the outcome of BuildTree.
type BuildResult struct {
	Changeset Changeset
	Failures  []*FileError
	Files     int
}

// BuildTree builds a script for every path in files, reading the updated
// version under newRoot and the original under origRoot. Files whose
// script is empty are left out. A file that cannot be built is recorded
// in Failures and does not stop the others. The returned error is only
// set when ctx is cancelled.
func BuildTree(ctx context.Context, opts TreeOptions, origRoot, newRoot string, files []string) (*BuildResult, error) {
	fsys := opts.FS
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	logf := monitoring.OrDiscard(opts.Logf)

	scripts := make([]Script, len(files))
	errs := make([]error, len(files))
	err := workpool.Run(ctx, opts.Workers, len(files), opts.Progress, func(_ context.Context, i int) {
		scripts[i], errs[i] = buildFile(fsys, origRoot, newRoot, files[i])
	})

	res := &BuildResult{Changeset: Changeset{}, Files: len(files)}
	for i, rel := range files {
		if errs[i] != nil {
			logf("build %s: %v", rel, errs[i])
			res.Failures = append(res.Failures, &FileError{Path: rel, Err: errs[i]})
			continue
		}
		if !scripts[i].IsEmpty() {
			res.Changeset[rel] = scripts[i]
		}
	}
	return res, err
}

func buildFile(fsys fsutil.FileSystem, origRoot, newRoot, rel string) (Script, error) {
	updated, err := label.ReadFile(fsys, filepath.Join(newRoot, filepath.FromSlash(rel)))
	if err != nil {
		return Script{}, err
	}
	original, err := label.ReadFile(fsys, filepath.Join(origRoot, filepath.FromSlash(rel)))
	if err != nil {
		if errors.Is(err, label.ErrNotFound) {
			return Script{}, fmt.Errorf("%w: %v", ErrMissingOriginal, err)
		}
		return Script{}, err
	}
	return Build(original.Objects, updated.Objects), nil
}
