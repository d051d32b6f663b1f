package export

import (
	"context"

	"github.com/banshee-data/tlabel/internal/fsutil"
	"github.com/banshee-data/tlabel/internal/label"
)

// MissingID is a live traffic light without an upstream id.
type MissingID struct {
	File  string
	Index int
}

// MissingIDs lists the live traffic lights of files that carry no id.
func MissingIDs(ctx context.Context, opts Options, root string, files []string) ([]MissingID, *Summary, error) {
	var out []MissingID
	sum, err := walk(ctx, opts, root, files, "id check",
		func(fsys fsutil.FileSystem, _, path string) ([]int, error) {
			f, err := label.ReadFile(fsys, path)
			if err != nil {
				return nil, err
			}
			var idx []int
			for i, o := range f.Objects {
				if o.IsLive() && (len(o.ID) == 0 || string(o.ID) == "null") {
					idx = append(idx, i)
				}
			}
			return idx, nil
		},
		func(rel string, idx []int) error {
			for _, i := range idx {
				out = append(out, MissingID{File: rel, Index: i})
			}
			return nil
		})
	if sum != nil {
		sum.Rows = len(out)
	}
	return out, sum, err
}
