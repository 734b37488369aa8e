package entities

import (
	"reflect"
	"time"

	"github.com/bankatlas/bankatlas/pkg/sources"
)

// FieldValue is the envelope around a single attribute value: the value
// itself plus the source that produced it, when it was observed, and the
// collector's confidence in it.
type FieldValue struct {
	Value      any          `json:"value" yaml:"value"`
	Source     sources.Type `json:"source" yaml:"source"`
	ObservedAt time.Time    `json:"observed_at" yaml:"observed_at"`
	Confidence float64      `json:"confidence" yaml:"confidence"`

	// Notes holds annotations recorded when a losing value on an exact
	// merge tie is retained instead of being dropped silently.
	Notes []string `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// EqualValue reports whether two observed values are the same. Observed
// values are declared any and may hold uncomparable kinds (slices, maps),
// so == must not be used on them.
func EqualValue(a, b any) bool {
	return reflect.DeepEqual(a, b)
}

// IsZero reports whether the field value is unset.
func (fv FieldValue) IsZero() bool {
	return fv.Value == nil && fv.Source == "" && fv.ObservedAt.IsZero()
}

// String returns the value as a string, or "" when the value is not a
// string or is unset.
func (fv FieldValue) String() string {
	s, _ := fv.Value.(string)
	return s
}

// Float returns the value as a float64. Integer values are widened so a
// collector may supply either.
func (fv FieldValue) Float() float64 {
	switch v := fv.Value.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case uint64:
		return float64(v)
	}
	return 0
}

// Int returns the value as an int, truncating floats.
func (fv FieldValue) Int() int {
	switch v := fv.Value.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case uint64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
