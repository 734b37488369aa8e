package entities

import (
	"fmt"
	"strings"
	"time"

	"github.com/bankatlas/bankatlas/pkg/sources"
)

// Key prefixes. An entity's identity key is assigned once, on creation,
// and never changes.
const (
	bankCertKeyPrefix     = "cert:"
	bankNameKeyPrefix     = "bank:"
	personHandleKeyPrefix = "handle:"
	personNameKeyPrefix   = "person:"
)

// BankCertKey returns the identity key for a bank with a known registry
// certificate id.
func BankCertKey(certID int) string {
	return fmt.Sprintf("%s%d", bankCertKeyPrefix, certID)
}

// BankNameKey returns the fallback identity key for a bank known only by
// name.
func BankNameKey(name string) string {
	return bankNameKeyPrefix + NormalizeName(name)
}

// PersonHandleKey returns the identity key for a person with a known
// external profile handle.
func PersonHandleKey(handle string) string {
	return personHandleKeyPrefix + strings.TrimRight(strings.ToLower(strings.TrimSpace(handle)), "/")
}

// PersonNameKey returns the fallback identity key for a person known only
// by normalized (name, employer).
func PersonNameKey(name, employer string) string {
	return personNameKeyPrefix + NormalizeName(name) + "|" + NormalizeName(employer)
}

// IsCertKey reports whether key is a registry-certificate bank key.
func IsCertKey(key string) bool {
	return strings.HasPrefix(key, bankCertKeyPrefix)
}

// IsHandleKey reports whether key is an external-profile person key.
func IsHandleKey(key string) bool {
	return strings.HasPrefix(key, personHandleKeyPrefix)
}

// Attributes is the shared merged-field state of an entity: the current
// value per field plus superseded values kept for audit.
type Attributes struct {
	Fields  map[Field]FieldValue   `json:"fields" yaml:"fields"`
	Changes map[Field][]FieldValue `json:"changes,omitempty" yaml:"changes,omitempty"`
}

// NewAttributes returns an empty attribute set.
func NewAttributes() Attributes {
	return Attributes{Fields: make(map[Field]FieldValue)}
}

// Field returns the current value of a field.
func (a *Attributes) Field(f Field) (FieldValue, bool) {
	fv, ok := a.Fields[f]
	return fv, ok
}

// SetField replaces the current value of a field. A replaced value is
// appended to the field's change history so the prior value, source, and
// timestamp stay retrievable.
func (a *Attributes) SetField(f Field, fv FieldValue) {
	if a.Fields == nil {
		a.Fields = make(map[Field]FieldValue)
	}
	if prev, ok := a.Fields[f]; ok {
		if !EqualValue(prev.Value, fv.Value) || prev.Source != fv.Source {
			if a.Changes == nil {
				a.Changes = make(map[Field][]FieldValue)
			}
			a.Changes[f] = append(a.Changes[f], prev)
		}
	}
	a.Fields[f] = fv
}

// StringField returns the current string value of a field, or "".
func (a *Attributes) StringField(f Field) string {
	return a.Fields[f].String()
}

// FloatField returns the current numeric value of a field, or 0.
func (a *Attributes) FloatField(f Field) float64 {
	return a.Fields[f].Float()
}

// IntField returns the current integer value of a field, or 0.
func (a *Attributes) IntField(f Field) int {
	return a.Fields[f].Int()
}

// FieldHistory returns the superseded values of a field, oldest first.
func (a *Attributes) FieldHistory(f Field) []FieldValue {
	return a.Changes[f]
}

// CloneAttributes returns a deep copy of the attribute set.
func (a *Attributes) CloneAttributes() Attributes {
	out := Attributes{
		Fields: make(map[Field]FieldValue, len(a.Fields)),
	}
	for f, fv := range a.Fields {
		fv.Notes = append([]string(nil), fv.Notes...)
		out.Fields[f] = fv
	}
	if a.Changes != nil {
		out.Changes = make(map[Field][]FieldValue, len(a.Changes))
		for f, hist := range a.Changes {
			out.Changes[f] = append([]FieldValue(nil), hist...)
		}
	}
	return out
}

// SourceSet tracks the distinct sources that contributed any field to an
// entity, in first-contribution order.
type SourceSet []sources.Type

// Record adds a source if not already present.
func (s *SourceSet) Record(t sources.Type) {
	if t == "" || s.Has(t) {
		return
	}
	*s = append(*s, t)
}

// Has reports whether the source already contributed.
func (s SourceSet) Has(t sources.Type) bool {
	for _, existing := range s {
		if existing == t {
			return true
		}
	}
	return false
}

// touch stamps the update time, preserving creation time on first touch.
func touch(createdAt *time.Time, updatedAt *time.Time, now time.Time) {
	if createdAt.IsZero() {
		*createdAt = now
	}
	*updatedAt = now
}
