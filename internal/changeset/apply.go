package changeset

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"sort"

	"github.com/banshee-data/tlabel/internal/fsutil"
	"github.com/banshee-data/tlabel/internal/label"
	"github.com/banshee-data/tlabel/internal/monitoring"
	"github.com/banshee-data/tlabel/internal/security"
	"github.com/banshee-data/tlabel/internal/workpool"
)

// ApplyScript returns a copy of objects with s applied. objects is not
// modified.
func ApplyScript(objects []label.Object, s Script) ([]label.Object, error) {
	return applyScript(objects, s)
}

// applyScript is the only place that edits an object list by index.
//
// Updates run first against the original addressing and fail on an index
// the list does not have. Deletes follow, highest index first, so a
// removal never shifts an index still to be removed; repeated or
// out-of-range indices are ignored. Creates run last in ascending order,
// each landing at its index in the updated list; an index past the end
// appends.
func applyScript(objects []label.Object, s Script) ([]label.Object, error) {
	out := make([]label.Object, len(objects))
	for i, o := range objects {
		out[i] = o.Clone()
	}

	for _, idx := range sortedKeys(s.Update) {
		if idx < 0 || idx >= len(out) {
			return nil, fmt.Errorf("%w: update %d of %d objects", ErrIndexOutOfRange, idx, len(out))
		}
		out[idx].Attributes = s.Update[idx].Clone()
	}

	del := append([]int(nil), s.Delete...)
	sort.Sort(sort.Reverse(sort.IntSlice(del)))
	last := -1
	for _, idx := range del {
		if idx == last || idx < 0 || idx >= len(out) {
			continue
		}
		last = idx
		out = append(out[:idx], out[idx+1:]...)
	}

	for _, idx := range sortedKeys(s.Create) {
		if idx < 0 {
			return nil, fmt.Errorf("%w: create %d", ErrIndexOutOfRange, idx)
		}
		o := s.Create[idx].Clone()
		if idx >= len(out) {
			out = append(out, o)
			continue
		}
		out = append(out, label.Object{})
		copy(out[idx+1:], out[idx:])
		out[idx] = o
	}
	return out, nil
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// Entry describes one successfully written file.
type Entry struct {
	Path    string
	Digest  string
	Updated int
	Deleted int
	Created int
}

// Journal remembers which scripts were already written so a changeset can
// be applied again without duplicating created objects. Implementations
// must be safe for concurrent use.
type Journal interface {
	Applied(ctx context.Context, path, digest string) (bool, error)
	Record(ctx context.Context, e Entry) error
}

// ApplyOptions configures ApplyTree.
type ApplyOptions struct {
	FS      fsutil.FileSystem
	Workers int
	// DryRun performs every in-memory step and skips the writes, both to
	// label files and to the journal.
	DryRun bool
	// Journal is optional. Without it, applying the same changeset twice
	// inserts created objects twice.
	Journal Journal
	// PathCheck, when set, is called with the joined target path and the
	// base directory after the lexical check. Tools running against the
	// real filesystem pass security.ValidatePathWithinDirectory.
	PathCheck func(target, base string) error
	Logf      monitoring.Logf
	Progress  workpool.Progress
}

// Status is the outcome of one file.
type Status int

const (
	StatusApplied Status = iota + 1
	StatusDryRun
	StatusSkipped
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusApplied:
		return "applied"
	case StatusDryRun:
		return "dry-run"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// FileResult is the outcome of applying one file's script.
type FileResult struct {
	Path    string
	Status  Status
	Updated int
	Deleted int
	Created int
	Err     error
}

// Report lists per-file outcomes in sorted path order.
type Report struct {
	Files []FileResult
}

// Count returns the number of files with status st.
func (r *Report) Count(st Status) int {
	n := 0
	for _, f := range r.Files {
		if f.Status == st {
			n++
		}
	}
	return n
}

// Failures returns the failed files.
func (r *Report) Failures() []*FileError {
	var out []*FileError
	for _, f := range r.Files {
		if f.Status == StatusFailed {
			out = append(out, &FileError{Path: f.Path, Err: f.Err})
		}
	}
	return out
}

// Err joins every per-file failure, nil when there are none.
func (r *Report) Err() error {
	var errs []error
	for _, fe := range r.Failures() {
		errs = append(errs, fe)
	}
	return errors.Join(errs...)
}

// ApplyTree applies every script of c to the label files under baseDir.
// Files are independent: a failure is recorded in the report and the
// remaining files are still processed. Path keys that escape baseDir, or
// that name the same file as another key, fail without being opened. The
// returned error is only set when ctx is cancelled.
func ApplyTree(ctx context.Context, opts ApplyOptions, baseDir string, c Changeset) (*Report, error) {
	fsys := opts.FS
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	logf := monitoring.OrDiscard(opts.Logf)

	paths := c.Paths()
	results := make([]FileResult, len(paths))
	for i, p := range paths {
		results[i] = FileResult{Path: p}
	}
	dups := duplicateTargets(paths)

	err := workpool.Run(ctx, opts.Workers, len(paths), opts.Progress, func(ctx context.Context, i int) {
		r := &results[i]
		if dups[r.Path] {
			r.Status, r.Err = StatusFailed, fmt.Errorf("%w: %s", ErrDuplicateTarget, r.Path)
			return
		}
		r.Status, r.Err = applyFile(ctx, fsys, opts, baseDir, r, c[r.Path])
	})

	for _, r := range results {
		switch r.Status {
		case StatusFailed:
			logf("apply %s: %v", r.Path, r.Err)
		case StatusSkipped:
			logf("skip %s: already applied", r.Path)
		}
	}
	return &Report{Files: results}, err
}

func applyFile(ctx context.Context, fsys fsutil.FileSystem, opts ApplyOptions, baseDir string, r *FileResult, s Script) (Status, error) {
	if err := security.ValidateRelativePath(r.Path); err != nil {
		return StatusFailed, err
	}
	target := filepath.Join(baseDir, filepath.FromSlash(r.Path))
	if opts.PathCheck != nil {
		if err := opts.PathCheck(target, baseDir); err != nil {
			return StatusFailed, err
		}
	}

	digest, err := s.Digest()
	if err != nil {
		return StatusFailed, fmt.Errorf("digest: %w", err)
	}
	if opts.Journal != nil {
		done, err := opts.Journal.Applied(ctx, r.Path, digest)
		if err != nil {
			return StatusFailed, fmt.Errorf("journal lookup: %w", err)
		}
		if done {
			return StatusSkipped, nil
		}
	}

	f, err := label.ReadFile(fsys, target)
	if err != nil {
		if errors.Is(err, label.ErrNotFound) {
			return StatusFailed, fmt.Errorf("%w: %v", ErrFileNotFound, err)
		}
		return StatusFailed, err
	}
	objects, err := applyScript(f.Objects, s)
	if err != nil {
		return StatusFailed, err
	}
	f.Objects = objects
	r.Updated, r.Deleted, r.Created = len(s.Update), len(s.Delete), len(s.Create)

	if opts.DryRun {
		if _, err := label.Encode(f); err != nil {
			return StatusFailed, err
		}
		return StatusDryRun, nil
	}
	if err := label.WriteFile(fsys, target, f); err != nil {
		return StatusFailed, err
	}
	if opts.Journal != nil {
		e := Entry{Path: r.Path, Digest: digest, Updated: r.Updated, Deleted: r.Deleted, Created: r.Created}
		if err := opts.Journal.Record(ctx, e); err != nil {
			return StatusFailed, fmt.Errorf("file written, journal record failed: %w", err)
		}
	}
	return StatusApplied, nil
}

// duplicateTargets returns the keys that clean to the same path as another
// key. All members of such a group fail; none is preferred.
func duplicateTargets(paths []string) map[string]bool {
	groups := make(map[string][]string)
	for _, p := range paths {
		key := path.Clean(filepath.ToSlash(p))
		groups[key] = append(groups[key], p)
	}
	dups := make(map[string]bool)
	for _, g := range groups {
		if len(g) > 1 {
			for _, p := range g {
				dups[p] = true
			}
		}
	}
	return dups
}
