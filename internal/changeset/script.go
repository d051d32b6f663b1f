package changeset

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/banshee-data/tlabel/internal/fsutil"
	"github.com/banshee-data/tlabel/internal/label"
)

// Script is the edit script of one label file. Update and Delete address
// the original list; Create addresses the updated list.
type Script struct {
	// Update replaces the attribute record at an original index. A nil
	// record removes it.
	Update map[int]*label.Attributes `json:"update"`
	// Delete lists original indices to remove, ascending.
	Delete IndexList `json:"delete"`
	// Create inserts full objects at updated-list positions.
	Create map[int]label.Object `json:"create"`
}

// IsEmpty reports whether the script changes nothing.
func (s Script) IsEmpty() bool {
	return len(s.Update) == 0 && len(s.Delete) == 0 && len(s.Create) == 0
}

// MarshalJSON writes the three keys in sorted order, like label files.
func (s Script) MarshalJSON() ([]byte, error) {
	m := map[string]interface{}{
		"update": s.Update,
		"delete": s.Delete,
		"create": s.Create,
	}
	if s.Update == nil {
		m["update"] = map[int]*label.Attributes{}
	}
	if s.Delete == nil {
		m["delete"] = IndexList{}
	}
	if s.Create == nil {
		m["create"] = map[int]label.Object{}
	}
	return label.Marshal(m)
}

func (s Script) checkFinite() error {
	for i, a := range s.Update {
		if err := label.CheckAttributesFinite(a); err != nil {
			return fmt.Errorf("update %d: %w", i, err)
		}
	}
	for i, o := range s.Create {
		if err := label.CheckObjectFinite(o); err != nil {
			return fmt.Errorf("create %d: %w", i, err)
		}
	}
	return nil
}

// Digest identifies the script by the SHA-256 of its canonical encoding.
func (s Script) Digest() (string, error) {
	data, err := label.MarshalCanonical(s)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// IndexList is a list of object indices. It is written as integers and
// read from integers or integer strings.
type IndexList []int

func (l *IndexList) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(IndexList, 0, len(raw))
	for _, r := range raw {
		var n int
		if err := json.Unmarshal(r, &n); err == nil {
			out = append(out, n)
			continue
		}
		var s string
		if err := json.Unmarshal(r, &s); err != nil {
			return fmt.Errorf("index %s: not an integer", r)
		}
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("index %q: %w", s, err)
		}
		out = append(out, n)
	}
	*l = out
	return nil
}

// Changeset maps slash-separated label file paths, relative to a tree
// root, to their scripts.
type Changeset map[string]Script

// Paths returns the file paths in sorted order.
func (c Changeset) Paths() []string {
	paths := make([]string, 0, len(c))
	for p := range c {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Encode renders the changeset with the label-file formatting rules.
func Encode(c Changeset) ([]byte, error) {
	if c == nil {
		c = Changeset{}
	}
	for _, p := range c.Paths() {
		if err := c[p].checkFinite(); err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}
	return label.MarshalCanonical(c)
}

// Decode parses a changeset document.
func Decode(data []byte) (Changeset, error) {
	var c Changeset
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode changeset: %w", err)
	}
	if c == nil {
		c = Changeset{}
	}
	return c, nil
}

// Load reads a changeset file.
func Load(fsys fsutil.FileSystem, path string) (Changeset, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read changeset %s: %w", path, err)
	}
	c, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Save atomically writes c to path.
func Save(fsys fsutil.FileSystem, path string, c Changeset) error {
	data, err := Encode(c)
	if err != nil {
		return err
	}
	if err := fsutil.WriteFileAtomic(fsys, path, data); err != nil {
		return fmt.Errorf("write changeset %s: %w", path, err)
	}
	return nil
}
