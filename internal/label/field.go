package label

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// Field is one attribute slot. The zero value is unset, which is distinct
// from a slot that is present but holds null or an empty string. The stored
// JSON is kept verbatim (compacted) so values outside the vocabulary survive
// a load/save cycle and can be reported by the auditor.
type Field struct {
	raw json.RawMessage
}

// Text returns a set Field holding the string s.
func Text(s string) Field {
	b, _ := Marshal(s)
	return Field{raw: b}
}

// Number returns a set Field holding v. Non-finite values are stored as
// their literal spelling and rejected when the file is serialized.
func Number(v float64) Field {
	return Field{raw: json.RawMessage(strconv.FormatFloat(v, 'g', -1, 64))}
}

// IsSet reports whether the slot is present.
func (f Field) IsSet() bool {
	return len(f.raw) > 0
}

// Raw returns the stored JSON, nil when unset.
func (f Field) Raw() json.RawMessage {
	return f.raw
}

// Text returns the value when it is a JSON string.
func (f Field) Text() (string, bool) {
	if len(f.raw) == 0 || f.raw[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(f.raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// Float returns the value when it is a finite JSON number.
func (f Field) Float() (float64, bool) {
	if len(f.raw) == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(string(f.raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Falsy reports whether a present value counts as empty: null, "", false,
// zero, [] or {}.
func (f Field) Falsy() bool {
	switch string(f.raw) {
	case "null", `""`, "false", "[]", "{}":
		return true
	}
	if v, ok := f.Float(); ok {
		return v == 0
	}
	return false
}

// String renders the value for messages: the bare text of strings, the
// JSON spelling of anything else, "" when unset.
func (f Field) String() string {
	if s, ok := f.Text(); ok {
		return s
	}
	return string(f.raw)
}

// Equal compares the stored JSON.
func (f Field) Equal(g Field) bool {
	return bytes.Equal(f.raw, g.raw)
}

func (f Field) finite() bool {
	switch string(f.raw) {
	case "NaN", "+Inf", "-Inf":
		return false
	}
	return true
}

// MarshalJSON emits the stored value; an unset Field marshals as null.
func (f Field) MarshalJSON() ([]byte, error) {
	if len(f.raw) == 0 {
		return []byte("null"), nil
	}
	return f.raw, nil
}

// UnmarshalJSON stores a compacted copy of data.
func (f *Field) UnmarshalJSON(data []byte) error {
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return err
	}
	f.raw = buf.Bytes()
	return nil
}
