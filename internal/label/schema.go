package label

import (
	"encoding/json"
	"fmt"
	"sort"
)

// TrafficLight is the object label that takes part in attribute curation.
const TrafficLight = "traffic light"

// Attribute keys.
const (
	KeyRelevant     = "relevant"
	KeyLaneRelevant = "lane_relevant"
	KeyState        = "state"
	KeyType         = "type"
	KeyVisible      = "visible"
	KeyDepth        = "depth"
)

// Choices lists the permitted values of each enumerated attribute.
var Choices = map[string][]string{
	KeyRelevant:     {"yes", "no"},
	KeyLaneRelevant: {"yes", "no", "unknown"},
	KeyState:        {"red", "red-yellow", "yellow", "green", "off", "unknown"},
	KeyType:         {"car", "pedestrian", "bicycle", "unknown", "train", "bus", "car_warning"},
	KeyVisible:      {"yes", "no"},
}

// requiredKeys is the audit order of the enumerated keys. depth is
// recognized but optional.
var requiredKeys = []string{KeyRelevant, KeyState, KeyType, KeyVisible, KeyLaneRelevant}

// Keys returns every recognized attribute key.
func Keys() []string {
	return []string{KeyRelevant, KeyLaneRelevant, KeyState, KeyType, KeyVisible, KeyDepth}
}

// IsChoice reports whether value is permitted for the enumerated key.
func IsChoice(key, value string) bool {
	for _, c := range Choices[key] {
		if c == value {
			return true
		}
	}
	return false
}

// Attributes is the attribute record of a traffic light. Every recognized
// key has a slot; keys outside the schema are kept in Extra so nothing is
// lost on a rewrite.
type Attributes struct {
	Relevant     Field
	LaneRelevant Field
	State        Field
	Type         Field
	Visible      Field
	Depth        Field

	Extra map[string]json.RawMessage
}

// Slot returns a pointer to the slot for key, or false for unrecognized keys.
func (a *Attributes) Slot(key string) (*Field, bool) {
	switch key {
	case KeyRelevant:
		return &a.Relevant, true
	case KeyLaneRelevant:
		return &a.LaneRelevant, true
	case KeyState:
		return &a.State, true
	case KeyType:
		return &a.Type, true
	case KeyVisible:
		return &a.Visible, true
	case KeyDepth:
		return &a.Depth, true
	}
	return nil, false
}

// Get returns the slot value for key; unrecognized keys read as unset.
func (a *Attributes) Get(key string) Field {
	if f, ok := a.Slot(key); ok {
		return *f
	}
	return Field{}
}

// Value returns the text of an enumerated slot, "" when unset or not text.
func (a *Attributes) Value(key string) string {
	s, _ := a.Get(key).Text()
	return s
}

// Unrecognized returns the sorted keys held in Extra.
func (a *Attributes) Unrecognized() []string {
	keys := make([]string, 0, len(a.Extra))
	for k := range a.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a deep copy.
func (a *Attributes) Clone() *Attributes {
	if a == nil {
		return nil
	}
	c := *a
	c.Relevant = cloneField(a.Relevant)
	c.LaneRelevant = cloneField(a.LaneRelevant)
	c.State = cloneField(a.State)
	c.Type = cloneField(a.Type)
	c.Visible = cloneField(a.Visible)
	c.Depth = cloneField(a.Depth)
	c.Extra = cloneRawMap(a.Extra)
	return &c
}

// Equal compares two records slot by slot, ignoring key order.
func (a *Attributes) Equal(b *Attributes) bool {
	if a == nil || b == nil {
		return a == b
	}
	for _, k := range Keys() {
		if !a.Get(k).Equal(b.Get(k)) {
			return false
		}
	}
	return rawMapEqual(a.Extra, b.Extra)
}

func (a Attributes) MarshalJSON() ([]byte, error) {
	m := make(map[string]json.RawMessage, len(a.Extra)+6)
	for k, v := range a.Extra {
		m[k] = v
	}
	for _, k := range Keys() {
		if f := a.Get(k); f.IsSet() {
			m[k] = f.raw
		}
	}
	return Marshal(m)
}

func (a *Attributes) UnmarshalJSON(data []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("attributes: %w", err)
	}
	*a = Attributes{}
	for k, v := range m {
		if slot, ok := a.Slot(k); ok {
			if err := slot.UnmarshalJSON(v); err != nil {
				return fmt.Errorf("attribute %q: %w", k, err)
			}
			continue
		}
		if a.Extra == nil {
			a.Extra = make(map[string]json.RawMessage)
		}
		a.Extra[k] = compactRaw(v)
	}
	return nil
}
