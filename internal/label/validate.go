package label

// Defaults used by Repair for slots that are unset.
const (
	DefaultVisible  = "no"
	DefaultRelevant = "no"
	DefaultState    = "unknown"
	DefaultType     = "unknown"
)

// Repair fills every unset slot of a live traffic light with its default
// and creates the attribute record when it is absent. Present values are
// never touched, valid or not. Other objects are left alone.
func Repair(obj *Object) {
	if !obj.IsLive() {
		return
	}
	if obj.Attributes == nil {
		obj.Attributes = &Attributes{}
	}
	a := obj.Attributes
	fill := func(f *Field, v Field) {
		if !f.IsSet() {
			*f = v
		}
	}
	fill(&a.Visible, Text(DefaultVisible))
	fill(&a.Relevant, Text(DefaultRelevant))
	fill(&a.State, Text(DefaultState))
	fill(&a.Type, Text(DefaultType))
	if a.Value(KeyRelevant) == "yes" {
		fill(&a.LaneRelevant, Text("yes"))
	} else {
		fill(&a.LaneRelevant, Text("unknown"))
	}
	fill(&a.Depth, Number(0))
}

// Audit checks a live traffic light against the schema without modifying
// it. Other objects have no issues.
func Audit(obj Object) Issues {
	if !obj.IsLive() {
		return nil
	}
	return CheckAttributes(obj)
}

// CheckAttributes reports every schema violation of obj's attribute record
// regardless of its label or deletion marker. The order is stable: unknown
// keys (sorted), missing required keys, then value problems in key order,
// with depth last.
func CheckAttributes(obj Object) Issues {
	a := obj.Attributes
	if a == nil {
		return Issues{{Kind: NoAttributes}}
	}
	var issues Issues
	for _, k := range a.Unrecognized() {
		issues = append(issues, Issue{Kind: InvalidTag, Key: k})
	}
	for _, k := range requiredKeys {
		if !a.Get(k).IsSet() {
			issues = append(issues, Issue{Kind: MissingTag, Key: k})
		}
	}
	for _, k := range requiredKeys {
		f := a.Get(k)
		if !f.IsSet() {
			continue
		}
		if issue, ok := checkValue(k, f); !ok {
			issues = append(issues, issue)
		}
	}
	if a.Depth.IsSet() {
		if issue, ok := checkValue(KeyDepth, a.Depth); !ok {
			issues = append(issues, issue)
		}
	}
	return issues
}

// ValidateValue reports whether v is acceptable for the recognized key.
func ValidateValue(key string, v Field) error {
	if _, ok := (&Attributes{}).Slot(key); !ok {
		return ErrUnknownAttribute
	}
	if _, ok := checkValue(key, v); !ok {
		return ErrInvalidValue
	}
	return nil
}

func checkValue(key string, f Field) (Issue, bool) {
	if key == KeyDepth {
		if string(f.raw) == "null" {
			return Issue{Kind: MissingValue, Key: key, Value: f}, false
		}
		if v, ok := f.Float(); !ok || v < 0 {
			return Issue{Kind: InvalidValue, Key: key, Value: f}, false
		}
		return Issue{}, true
	}
	if f.Falsy() {
		return Issue{Kind: MissingValue, Key: key, Value: f}, false
	}
	if s, ok := f.Text(); !ok || !IsChoice(key, s) {
		return Issue{Kind: InvalidValue, Key: key, Value: f}, false
	}
	return Issue{}, true
}
