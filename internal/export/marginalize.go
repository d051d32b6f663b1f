package export

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/banshee-data/tlabel/internal/fsutil"
	"github.com/banshee-data/tlabel/internal/label"
	"github.com/banshee-data/tlabel/internal/security"
)

// Labels written by Marginalize.
const (
	RelevantLabel   = "tl relevant"
	IrrelevantLabel = "tl irrelevant"
)

// MarginalizeObjects relabels every traffic light that has a relevant
// attribute and returns how many changed. Traffic lights without it are
// left as they are.
func MarginalizeObjects(objects []label.Object) int {
	n := 0
	for i := range objects {
		o := &objects[i]
		if !o.IsTrafficLight() || o.Attributes == nil || !o.Attributes.Relevant.IsSet() {
			continue
		}
		if o.Attributes.Value(label.KeyRelevant) == "yes" {
			o.Label = RelevantLabel
		} else {
			o.Label = IrrelevantLabel
		}
		n++
	}
	return n
}

// Marginalize writes a copy of every file under targetRoot with its
// traffic lights relabeled by relevance. Rows counts the relabeled objects.
func Marginalize(ctx context.Context, opts Options, root, targetRoot string, files []string) (*Summary, error) {
	relabeled := 0
	sum, err := walk(ctx, opts, root, files, "marginalize",
		func(fsys fsutil.FileSystem, rel, path string) (int, error) {
			if err := security.ValidateRelativePath(rel); err != nil {
				return 0, err
			}
			f, err := label.ReadFile(fsys, path)
			if err != nil {
				return 0, err
			}
			n := MarginalizeObjects(f.Objects)
			target := filepath.Join(targetRoot, filepath.FromSlash(rel))
			if err := fsys.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return 0, fmt.Errorf("create target directory: %w", err)
			}
			if err := label.WriteFile(fsys, target, f); err != nil {
				return 0, err
			}
			return n, nil
		},
		func(_ string, n int) error {
			relabeled += n
			return nil
		})
	if sum != nil {
		sum.Rows = relabeled
	}
	return sum, err
}
