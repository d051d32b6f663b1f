package stats

import (
	"context"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"sort"
	"text/tabwriter"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/tlabel/internal/changeset"
	"github.com/banshee-data/tlabel/internal/fsutil"
	"github.com/banshee-data/tlabel/internal/label"
	"github.com/banshee-data/tlabel/internal/monitoring"
	"github.com/banshee-data/tlabel/internal/workpool"
)

// WidthLimit is the largest width in pixels with its own histogram bin.
// Wider boxes share the overflow bin.
const WidthLimit = 65

// Crop categories of a traffic light with type and relevant set.
const (
	CropEgoRelevant   = "ego relevant"
	CropEgoIrrelevant = "ego irrelevant"
	CropPedestrian    = "pedestrian"
	CropBicycle       = "bicycle"
	CropOther         = "other"
)

// CropCategories lists the crop categories in report order.
var CropCategories = []string{CropEgoRelevant, CropEgoIrrelevant, CropPedestrian, CropBicycle, CropOther}

// CropCategory groups a traffic light for crop datasets, false when type
// or relevant is unset.
func CropCategory(attrs *label.Attributes) (string, bool) {
	if attrs == nil || !attrs.Type.IsSet() || !attrs.Relevant.IsSet() {
		return "", false
	}
	typ, rel := attrs.Value(label.KeyType), attrs.Value(label.KeyRelevant)
	switch {
	case typ == "car" && rel == "yes":
		return CropEgoRelevant, true
	case typ == "car" && rel == "no":
		return CropEgoIrrelevant, true
	case typ == "pedestrian":
		return CropPedestrian, true
	case typ == "bicycle":
		return CropBicycle, true
	}
	return CropOther, true
}

// Width returns the horizontal extent of a polygon in whole pixels, false
// for an empty polygon.
func Width(p label.Polygon) (int, bool) {
	minX, _, maxX, _, ok := p.Bounds()
	if !ok {
		return 0, false
	}
	return int(math.Trunc(maxX)) - int(math.Trunc(minX)), true
}

// TreeStats summarizes the live traffic lights of a label tree.
type TreeStats struct {
	Files  int
	Lights int

	// Widths[w] counts lights w pixels wide for w <= WidthLimit; the last
	// element counts the wider ones.
	Widths [WidthLimit + 2]int
	Crops  map[string]int
	// Values counts attribute values per key.
	Values map[string]map[string]int

	WidthMean   float64
	WidthStdDev float64
	// WidthQuantiles maps 0.25, 0.5, 0.75 and 0.95 to width quantiles.
	WidthQuantiles map[float64]float64

	Failures []*changeset.FileError
}

// Quantiles reported by Tree.
var Quantiles = []float64{0.25, 0.5, 0.75, 0.95}

// TreeOptions configures Tree.
type TreeOptions struct {
	FS       fsutil.FileSystem
	Workers  int
	Logf     monitoring.Logf
	Progress workpool.Progress
}

type fileSample struct {
	widths []float64
	attrs  []*label.Attributes
}

// Tree reads files, slash-separated paths relative to root, and collects
// statistics over their live traffic lights. Unreadable files are recorded
// as failures.
func Tree(ctx context.Context, opts TreeOptions, root string, files []string) (*TreeStats, error) {
	fsys := opts.FS
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	logf := monitoring.OrDiscard(opts.Logf)

	samples := make([]fileSample, len(files))
	errs := make([]error, len(files))
	err := workpool.Run(ctx, opts.Workers, len(files), opts.Progress, func(_ context.Context, i int) {
		samples[i], errs[i] = sampleFile(fsys, filepath.Join(root, filepath.FromSlash(files[i])))
	})

	s := &TreeStats{
		Files:          len(files),
		Crops:          make(map[string]int),
		Values:         make(map[string]map[string]int),
		WidthQuantiles: make(map[float64]float64),
	}
	var widths []float64
	for i, rel := range files {
		if errs[i] != nil {
			logf("stats %s: %v", rel, errs[i])
			s.Failures = append(s.Failures, &changeset.FileError{Path: rel, Err: errs[i]})
			continue
		}
		for _, w := range samples[i].widths {
			bin := int(w)
			if bin > WidthLimit {
				bin = WidthLimit + 1
			}
			s.Widths[bin]++
		}
		widths = append(widths, samples[i].widths...)
		for _, a := range samples[i].attrs {
			s.Lights++
			s.addAttributes(a)
		}
	}

	if len(widths) > 0 {
		sort.Float64s(widths)
		s.WidthMean = stat.Mean(widths, nil)
		if len(widths) > 1 {
			s.WidthStdDev = stat.StdDev(widths, nil)
		}
		for _, q := range Quantiles {
			s.WidthQuantiles[q] = stat.Quantile(q, stat.Empirical, widths, nil)
		}
	}
	return s, err
}

func sampleFile(fsys fsutil.FileSystem, path string) (fileSample, error) {
	f, err := label.ReadFile(fsys, path)
	if err != nil {
		return fileSample{}, err
	}
	var out fileSample
	for _, o := range f.Objects {
		if !o.IsLive() {
			continue
		}
		out.attrs = append(out.attrs, o.Attributes)
		if w, ok := Width(o.Polygon); ok {
			out.widths = append(out.widths, float64(w))
		}
	}
	return out, nil
}

func (s *TreeStats) addAttributes(a *label.Attributes) {
	if cat, ok := CropCategory(a); ok {
		s.Crops[cat]++
	}
	if a == nil {
		return
	}
	for _, key := range label.Keys() {
		if key == label.KeyDepth {
			continue
		}
		f := a.Get(key)
		if !f.IsSet() {
			continue
		}
		if s.Values[key] == nil {
			s.Values[key] = make(map[string]int)
		}
		s.Values[key][f.String()]++
	}
}

// WriteTo renders the statistics as tables.
func (s *TreeStats) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	tw := tabwriter.NewWriter(cw, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "files\t%d\n", s.Files)
	fmt.Fprintf(tw, "failed files\t%d\n", len(s.Failures))
	fmt.Fprintf(tw, "traffic lights\t%d\n", s.Lights)
	fmt.Fprintf(tw, "width\t%.2f ± %.2f px\n", s.WidthMean, s.WidthStdDev)
	for _, q := range Quantiles {
		fmt.Fprintf(tw, "width p%02.0f\t%.0f px\n", q*100, s.WidthQuantiles[q])
	}

	fmt.Fprintln(tw, "\nwidth px\tcount")
	for i, n := range s.Widths {
		if n == 0 {
			continue
		}
		if i > WidthLimit {
			fmt.Fprintf(tw, ">%d\t%d\n", WidthLimit, n)
			continue
		}
		fmt.Fprintf(tw, "%d\t%d\n", i, n)
	}

	fmt.Fprintln(tw, "\ncrop\tcount")
	for _, c := range CropCategories {
		fmt.Fprintf(tw, "%s\t%d\n", c, s.Crops[c])
	}

	for _, key := range label.Keys() {
		counts, ok := s.Values[key]
		if !ok {
			continue
		}
		fmt.Fprintf(tw, "\n%s\tcount\n", key)
		for _, v := range orderedValues(key, counts) {
			fmt.Fprintf(tw, "%s\t%d\n", v, counts[v])
		}
	}

	if err := tw.Flush(); err != nil {
		return cw.n, err
	}
	return cw.n, cw.err
}
