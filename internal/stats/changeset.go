// Package stats summarizes changesets and label trees as plain text tables.
package stats

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/tlabel/internal/changeset"
	"github.com/banshee-data/tlabel/internal/label"
)

// Relevance categories of a fully attributed traffic light.
const (
	EgoRelevant          = "ego relevant"
	CarVisibleIrrelevant = "car visible irrelevant"
	BicycleVisible       = "bicycle visible"
	PedestrianVisible    = "pedestrian visible"
	OtherRelevance       = "other"
)

// RelevanceCategories lists the categories in report order.
var RelevanceCategories = []string{EgoRelevant, CarVisibleIrrelevant, BicycleVisible, PedestrianVisible, OtherRelevance}

// ChangesetStats summarizes a changeset.
type ChangesetStats struct {
	Files   int
	Updated int
	Created int
	Deleted int

	// NetChange maps updated+created-deleted of a file to the number of
	// files with that value.
	NetChange map[int]int
	// Types counts the type value of every created or updated record.
	Types map[string]int
	// Relevance counts records that carry relevant, type and visible.
	Relevance map[string]int

	// ChangesMean and ChangesStdDev describe the number of entries per file.
	ChangesMean   float64
	ChangesStdDev float64
}

// Relevance returns the relevance category of attrs, false when one of
// relevant, type or visible is unset.
func Relevance(attrs *label.Attributes) (string, bool) {
	if attrs == nil {
		return "", false
	}
	rel, typ, vis := attrs.Value(label.KeyRelevant), attrs.Value(label.KeyType), attrs.Value(label.KeyVisible)
	if !attrs.Relevant.IsSet() || !attrs.Type.IsSet() || !attrs.Visible.IsSet() {
		return "", false
	}
	switch {
	case rel == "yes":
		return EgoRelevant, true
	case rel == "no" && typ == "car" && vis == "yes":
		return CarVisibleIrrelevant, true
	case vis == "yes" && typ == "pedestrian":
		return PedestrianVisible, true
	case vis == "yes" && typ == "bicycle":
		return BicycleVisible, true
	}
	return OtherRelevance, true
}

// Changeset computes the statistics of c.
func Changeset(c changeset.Changeset) *ChangesetStats {
	s := &ChangesetStats{
		Files:     len(c),
		NetChange: make(map[int]int),
		Types:     make(map[string]int),
		Relevance: make(map[string]int),
	}
	perFile := make([]float64, 0, len(c))
	for _, p := range c.Paths() {
		sc := c[p]
		s.Updated += len(sc.Update)
		s.Created += len(sc.Create)
		s.Deleted += len(sc.Delete)
		s.NetChange[len(sc.Update)+len(sc.Create)-len(sc.Delete)]++
		perFile = append(perFile, float64(len(sc.Update)+len(sc.Create)+len(sc.Delete)))

		for _, attrs := range sc.Update {
			s.addAttributes(attrs)
		}
		for _, obj := range sc.Create {
			s.addAttributes(obj.Attributes)
		}
	}
	if len(perFile) > 0 {
		s.ChangesMean, s.ChangesStdDev = stat.MeanStdDev(perFile, nil)
		if len(perFile) == 1 {
			s.ChangesStdDev = 0
		}
	}
	return s
}

func (s *ChangesetStats) addAttributes(attrs *label.Attributes) {
	if attrs == nil {
		return
	}
	if attrs.Type.IsSet() {
		s.Types[attrs.Type.String()]++
	}
	if cat, ok := Relevance(attrs); ok {
		s.Relevance[cat]++
	}
}

// WriteTo renders the statistics as tables.
func (s *ChangesetStats) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	tw := tabwriter.NewWriter(cw, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "files\t%d\n", s.Files)
	fmt.Fprintf(tw, "updated\t%d\n", s.Updated)
	fmt.Fprintf(tw, "created\t%d\n", s.Created)
	fmt.Fprintf(tw, "deleted\t%d\n", s.Deleted)
	fmt.Fprintf(tw, "changes per file\t%.2f ± %.2f\n", s.ChangesMean, s.ChangesStdDev)

	fmt.Fprintln(tw, "\nnet change\tfiles")
	nets := make([]int, 0, len(s.NetChange))
	for n := range s.NetChange {
		nets = append(nets, n)
	}
	sort.Ints(nets)
	for _, n := range nets {
		fmt.Fprintf(tw, "%d\t%d\n", n, s.NetChange[n])
	}

	fmt.Fprintln(tw, "\ntype\tcount")
	for _, t := range orderedValues(label.KeyType, s.Types) {
		fmt.Fprintf(tw, "%s\t%d\n", t, s.Types[t])
	}

	fmt.Fprintln(tw, "\nrelevance\tcount")
	for _, r := range RelevanceCategories {
		fmt.Fprintf(tw, "%s\t%d\n", r, s.Relevance[r])
	}

	if err := tw.Flush(); err != nil {
		return cw.n, err
	}
	return cw.n, cw.err
}

// orderedValues lists the vocabulary of key first, then any other counted
// values sorted.
func orderedValues(key string, counts map[string]int) []string {
	out := append([]string(nil), label.Choices[key]...)
	var extra []string
	for v := range counts {
		if !label.IsChoice(key, v) {
			extra = append(extra, v)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}

type countingWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (c *countingWriter) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	n, err := c.w.Write(p)
	c.n += int64(n)
	c.err = err
	return n, err
}
