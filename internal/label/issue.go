package label

import "fmt"

// IssueKind classifies a schema violation.
type IssueKind int

const (
	NoAttributes IssueKind = iota + 1
	MissingTag
	InvalidTag
	MissingValue
	InvalidValue
)

func (k IssueKind) String() string {
	switch k {
	case NoAttributes:
		return "NoAttributes"
	case MissingTag:
		return "MissingTag"
	case InvalidTag:
		return "InvalidTag"
	case MissingValue:
		return "MissingValue"
	case InvalidValue:
		return "InvalidValue"
	}
	return fmt.Sprintf("IssueKind(%d)", int(k))
}

// Issue is one schema violation of an object's attribute record. Key is
// empty for NoAttributes; Value is only set for the value kinds.
type Issue struct {
	Kind  IssueKind
	Key   string
	Value Field
}

// Message renders the issue the way audit reports print it.
func (i Issue) Message() string {
	switch i.Kind {
	case NoAttributes:
		return "no attributes found"
	case MissingTag:
		return fmt.Sprintf("Tag %q not found", i.Key)
	case InvalidTag:
		return fmt.Sprintf("Tag %q is not valid", i.Key)
	case MissingValue:
		return fmt.Sprintf("Value for tag %q not found", i.Key)
	case InvalidValue:
		return fmt.Sprintf("Value %q for key %q is not valid", i.Value.String(), i.Key)
	}
	return i.Kind.String()
}

func (i Issue) Error() string {
	return i.Message()
}

// Is makes every issue match ErrInvalidSchema.
func (i Issue) Is(target error) bool {
	return target == ErrInvalidSchema
}

// Issues is the ordered list of violations of one object. A non-empty list
// is an error matching ErrInvalidSchema.
type Issues []Issue

// Error returns a compact summary of the issues.
func (l Issues) Error() string {
	switch len(l) {
	case 0:
		return "no schema issues"
	case 1:
		return l[0].Message()
	default:
		return fmt.Sprintf("%s (and %d more)", l[0].Message(), len(l)-1)
	}
}

func (l Issues) Is(target error) bool {
	return target == ErrInvalidSchema && len(l) > 0
}

// Err returns l as an error, or nil when there are no issues.
func (l Issues) Err() error {
	if len(l) == 0 {
		return nil
	}
	return l
}
