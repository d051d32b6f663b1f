package label

import "errors"

var (
	// ErrNotFound is returned when a label file does not exist.
	ErrNotFound = errors.New("label file not found")
	// ErrMalformed is returned when a label file is not a label document.
	ErrMalformed = errors.New("malformed label file")
	// ErrNotTrafficLight is returned when a mutation targets an object that
	// is not a live traffic light.
	ErrNotTrafficLight = errors.New("not a traffic light")
	// ErrUnknownAttribute is returned for keys outside the schema.
	ErrUnknownAttribute = errors.New("unknown attribute")
	// ErrInvalidValue is returned when a value is outside a key's vocabulary.
	ErrInvalidValue = errors.New("invalid attribute value")
	// ErrNonFinite is returned when serialization meets NaN or Inf.
	ErrNonFinite = errors.New("non-finite number")
	// ErrUnknownHandle is returned for handles the store does not hold.
	ErrUnknownHandle = errors.New("unknown object handle")
	// ErrInvalidSchema matches every audit finding.
	ErrInvalidSchema = errors.New("invalid schema")
)
