package label

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"

	"github.com/banshee-data/tlabel/internal/fsutil"
)

// Indent is the fixed indentation of written label files.
const Indent = "    "

// File is one image's label file. Top-level keys other than "objects"
// (imgHeight, imgWidth, ...) are preserved in Extra.
type File struct {
	Objects []Object
	Extra   map[string]json.RawMessage
}

// Clone returns a deep copy.
func (f *File) Clone() *File {
	c := &File{Extra: cloneRawMap(f.Extra)}
	if f.Objects != nil {
		c.Objects = make([]Object, len(f.Objects))
		for i, o := range f.Objects {
			c.Objects[i] = o.Clone()
		}
	}
	return c
}

func (f File) MarshalJSON() ([]byte, error) {
	m := make(map[string]interface{}, len(f.Extra)+1)
	for k, v := range f.Extra {
		m[k] = v
	}
	objects := f.Objects
	if objects == nil {
		objects = []Object{}
	}
	m["objects"] = objects
	return Marshal(m)
}

func (f *File) UnmarshalJSON(data []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	rawObjects, ok := m["objects"]
	if !ok {
		return fmt.Errorf("%w: no objects array", ErrMalformed)
	}
	*f = File{}
	if err := json.Unmarshal(rawObjects, &f.Objects); err != nil {
		return fmt.Errorf("objects: %w", err)
	}
	if f.Objects == nil {
		f.Objects = []Object{}
	}
	for k, v := range m {
		if k == "objects" {
			continue
		}
		if f.Extra == nil {
			f.Extra = make(map[string]json.RawMessage)
		}
		f.Extra[k] = compactRaw(v)
	}
	return nil
}

// Decode parses a label file document.
func Decode(data []byte) (*File, error) {
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &f, nil
}

// Encode renders f canonically: keys sorted, four-space indentation, no
// HTML escaping, no trailing newline. Non-finite numbers are rejected.
func Encode(f *File) ([]byte, error) {
	if err := checkFinite(f); err != nil {
		return nil, err
	}
	return MarshalCanonical(f)
}

// MarshalCanonical renders any value with the label-file formatting rules.
// encoding/json sorts map keys, and every type in this package marshals
// through maps.
func MarshalCanonical(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", Indent)
	if err := enc.Encode(v); err != nil {
		var unsupported *json.UnsupportedValueError
		if errors.As(err, &unsupported) {
			return nil, fmt.Errorf("%w: %v", ErrNonFinite, err)
		}
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Marshal is json.Marshal without HTML escaping.
func Marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// CheckObjectFinite reports ErrNonFinite when o holds a NaN or infinite
// number in its polygon or attribute slots.
func CheckObjectFinite(o Object) error {
	for _, pt := range o.Polygon {
		for _, c := range pt {
			if math.IsNaN(c) || math.IsInf(c, 0) {
				return fmt.Errorf("%w: polygon coordinate %v", ErrNonFinite, c)
			}
		}
	}
	return CheckAttributesFinite(o.Attributes)
}

// CheckAttributesFinite reports ErrNonFinite for a non-finite slot value.
func CheckAttributesFinite(a *Attributes) error {
	if a == nil {
		return nil
	}
	for _, k := range Keys() {
		if f := a.Get(k); !f.finite() {
			return fmt.Errorf("%w: attribute %q is %s", ErrNonFinite, k, f.raw)
		}
	}
	return nil
}

func checkFinite(f *File) error {
	for i, o := range f.Objects {
		if err := CheckObjectFinite(o); err != nil {
			return fmt.Errorf("object %d: %w", i, err)
		}
	}
	return nil
}

// ReadFile loads and decodes a label file. A missing file is ErrNotFound.
func ReadFile(fsys fsutil.FileSystem, path string) (*File, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	f, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// WriteFile encodes f and atomically replaces path with it.
func WriteFile(fsys fsutil.FileSystem, path string, f *File) error {
	data, err := Encode(f)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := fsutil.WriteFileAtomic(fsys, path, data); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
