package label

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Point is one polygon vertex, [x, y].
type Point [2]float64

// UnmarshalJSON rejects vertices that do not hold exactly two numbers.
func (p *Point) UnmarshalJSON(data []byte) error {
	var xy []float64
	if err := json.Unmarshal(data, &xy); err != nil {
		return err
	}
	if len(xy) != 2 {
		return fmt.Errorf("%w: polygon point %s has %d coordinates", ErrMalformed, data, len(xy))
	}
	*p = Point{xy[0], xy[1]}
	return nil
}

// Polygon is an object's outline. It is also the identity of an object
// across two versions of a label file.
type Polygon []Point

// Equal reports exact, ordered, point-for-point equality.
func (p Polygon) Equal(q Polygon) bool {
	if len(p) != len(q) {
		return false
	}
	for i := range p {
		if p[i] != q[i] {
			return false
		}
	}
	return true
}

// Bounds returns the axis-aligned bounding box of the polygon.
func (p Polygon) Bounds() (minX, minY, maxX, maxY float64, ok bool) {
	if len(p) == 0 {
		return 0, 0, 0, 0, false
	}
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	for _, pt := range p {
		minX = math.Min(minX, pt[0])
		minY = math.Min(minY, pt[1])
		maxX = math.Max(maxX, pt[0])
		maxY = math.Max(maxY, pt[1])
	}
	return minX, minY, maxX, maxY, true
}

// Object is one annotated entity of a label file. Keys other than the ones
// modeled here are preserved in Extra.
type Object struct {
	Label      string
	ID         json.RawMessage // nil when absent
	Deleted    json.RawMessage // nil when absent
	Polygon    Polygon         // nil when absent
	Attributes *Attributes     // nil when absent

	Extra map[string]json.RawMessage

	labelAbsent bool // no "label" key was read
	nullAttrs   bool // "attributes" was read as null
}

// IsTrafficLight reports whether the object carries the traffic light label.
func (o Object) IsTrafficLight() bool {
	return o.Label == TrafficLight
}

// IsDeleted reports whether the object carries a deletion marker that reads
// as a non-zero integer: true, a number whose integer part is non-zero, or a
// string holding such an integer.
func (o Object) IsDeleted() bool {
	raw := strings.TrimSpace(string(o.Deleted))
	switch raw {
	case "", "null", "false":
		return false
	case "true":
		return true
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(o.Deleted, &s); err != nil {
			return false
		}
		n, err := strconv.Atoi(strings.TrimSpace(s))
		return err == nil && n != 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return false
	}
	return math.Trunc(v) != 0
}

// IsLive reports whether the object is a traffic light without an active
// deletion marker.
func (o Object) IsLive() bool {
	return o.IsTrafficLight() && !o.IsDeleted()
}

// IDString renders the upstream id, or "none" when absent.
func (o Object) IDString() string {
	if len(o.ID) == 0 || string(o.ID) == "null" {
		return "none"
	}
	var s string
	if err := json.Unmarshal(o.ID, &s); err == nil {
		return s
	}
	return string(o.ID)
}

// Clone returns a deep copy.
func (o Object) Clone() Object {
	c := o
	c.ID = cloneRaw(o.ID)
	c.Deleted = cloneRaw(o.Deleted)
	if o.Polygon != nil {
		c.Polygon = append(Polygon{}, o.Polygon...)
	}
	c.Attributes = o.Attributes.Clone()
	c.Extra = cloneRawMap(o.Extra)
	return c
}

// Equal compares two objects field by field, ignoring key order.
func (o Object) Equal(p Object) bool {
	return o.Label == p.Label &&
		bytes.Equal(o.ID, p.ID) &&
		bytes.Equal(o.Deleted, p.Deleted) &&
		(o.Polygon == nil) == (p.Polygon == nil) &&
		o.Polygon.Equal(p.Polygon) &&
		o.Attributes.Equal(p.Attributes) &&
		rawMapEqual(o.Extra, p.Extra)
}

func (o Object) MarshalJSON() ([]byte, error) {
	m := make(map[string]interface{}, len(o.Extra)+5)
	for k, v := range o.Extra {
		m[k] = v
	}
	if o.Label != "" || !o.labelAbsent {
		m["label"] = o.Label
	}
	if o.ID != nil {
		m["id"] = o.ID
	}
	if o.Deleted != nil {
		m["deleted"] = o.Deleted
	}
	if o.Polygon != nil {
		m["polygon"] = o.Polygon
	}
	if o.Attributes != nil {
		m["attributes"] = o.Attributes
	} else if o.nullAttrs {
		m["attributes"] = json.RawMessage("null")
	}
	return Marshal(m)
}

func (o *Object) UnmarshalJSON(data []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*o = Object{}
	_, hasLabel := m["label"]
	o.labelAbsent = !hasLabel
	for k, v := range m {
		var err error
		switch k {
		case "label":
			err = json.Unmarshal(v, &o.Label)
		case "id":
			o.ID = compactRaw(v)
		case "deleted":
			o.Deleted = compactRaw(v)
		case "polygon":
			err = json.Unmarshal(v, &o.Polygon)
		case "attributes":
			if string(bytes.TrimSpace(v)) == "null" {
				o.nullAttrs = true
				break
			}
			o.Attributes = &Attributes{}
			err = o.Attributes.UnmarshalJSON(v)
		default:
			if o.Extra == nil {
				o.Extra = make(map[string]json.RawMessage)
			}
			o.Extra[k] = compactRaw(v)
		}
		if err != nil {
			return fmt.Errorf("object key %q: %w", k, err)
		}
	}
	return nil
}

func cloneField(f Field) Field {
	return Field{raw: cloneRaw(f.raw)}
}

func cloneRaw(r json.RawMessage) json.RawMessage {
	if r == nil {
		return nil
	}
	return append(json.RawMessage{}, r...)
}

func cloneRawMap(m map[string]json.RawMessage) map[string]json.RawMessage {
	if m == nil {
		return nil
	}
	c := make(map[string]json.RawMessage, len(m))
	for k, v := range m {
		c[k] = cloneRaw(v)
	}
	return c
}

func rawMapEqual(a, b map[string]json.RawMessage) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		w, ok := b[k]
		if !ok || !bytes.Equal(v, w) {
			return false
		}
	}
	return true
}

func compactRaw(v json.RawMessage) json.RawMessage {
	var buf bytes.Buffer
	if err := json.Compact(&buf, v); err != nil {
		return cloneRaw(v)
	}
	return buf.Bytes()
}
