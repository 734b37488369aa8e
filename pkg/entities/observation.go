package entities

import (
	"time"

	"github.com/bankatlas/bankatlas/pkg/errors"
	"github.com/bankatlas/bankatlas/pkg/sources"
)

// Observation is one source's partial, timestamped view of an entity's
// fields: the unit the reconciliation engine consumes. Observations are
// never mutated after creation.
type Observation struct {
	ID         string               `json:"id,omitempty" yaml:"id,omitempty"`
	Resource   sources.ResourceType `json:"resource" yaml:"resource"`
	Source     sources.Type         `json:"source" yaml:"source"`
	ObservedAt time.Time            `json:"observed_at" yaml:"observed_at"`

	// Identity hints. For banks: CertID when known, else Name. For
	// persons: ProfileHandle when known, else Name plus Employer.
	CertID        int    `json:"cert_id,omitempty" yaml:"cert_id,omitempty"`
	Name          string `json:"name,omitempty" yaml:"name,omitempty"`
	ProfileHandle string `json:"profile_handle,omitempty" yaml:"profile_handle,omitempty"`
	Employer      string `json:"employer,omitempty" yaml:"employer,omitempty"`

	SourceURL string `json:"source_url,omitempty" yaml:"source_url,omitempty"`

	// Verified marks the observation as a verification pass; merging it
	// stamps the entity's last-verified time.
	Verified bool `json:"verified,omitempty" yaml:"verified,omitempty"`

	Fields      map[Field]FieldValue `json:"fields,omitempty" yaml:"fields,omitempty"`
	Departments []MRMDepartment      `json:"departments,omitempty" yaml:"departments,omitempty"`

	// Leaders carries nested person observations attached to a bank
	// observation, e.g. a scrape that found both the institution and its
	// MRM leadership.
	Leaders []Observation `json:"leaders,omitempty" yaml:"leaders,omitempty"`
}

// NewBankObservation starts a bank observation for the given source.
func NewBankObservation(source sources.Type, name string, observedAt time.Time) Observation {
	return Observation{
		Resource:   sources.ResourceTypeBank,
		Source:     source,
		Name:       name,
		ObservedAt: observedAt,
		Fields:     make(map[Field]FieldValue),
	}
}

// NewPersonObservation starts a person observation for the given source.
func NewPersonObservation(source sources.Type, name, employer string, observedAt time.Time) Observation {
	return Observation{
		Resource:   sources.ResourceTypePerson,
		Source:     source,
		Name:       name,
		Employer:   employer,
		ObservedAt: observedAt,
		Fields:     make(map[Field]FieldValue),
	}
}

// WithField sets a field value, filling in the envelope from the
// observation itself. Returns the observation for chaining during
// construction; observations are immutable once handed to the engine.
func (o Observation) WithField(f Field, value any) Observation {
	if o.Fields == nil {
		o.Fields = make(map[Field]FieldValue)
	}
	o.Fields[f] = FieldValue{
		Value:      value,
		Source:     o.Source,
		ObservedAt: o.ObservedAt,
	}
	return o
}

// IdentityKey derives the identity key this observation resolves to, or ""
// when the observation carries no usable identity.
func (o Observation) IdentityKey() string {
	switch o.Resource {
	case sources.ResourceTypeBank:
		if o.CertID > 0 {
			return BankCertKey(o.CertID)
		}
		if NormalizeName(o.Name) != "" {
			return BankNameKey(o.Name)
		}
	case sources.ResourceTypePerson:
		if o.ProfileHandle != "" {
			return PersonHandleKey(o.ProfileHandle)
		}
		if NormalizeName(o.Name) != "" {
			return PersonNameKey(o.Name, o.Employer)
		}
	}
	return ""
}

// Validate checks the observation is well formed. A malformed observation
// fails only itself; the engine skips it and continues with the stream.
func (o Observation) Validate() error {
	if o.Source == "" {
		return &errors.ValidationError{Field: "source", Message: "observation has no source"}
	}
	if o.Resource != sources.ResourceTypeBank && o.Resource != sources.ResourceTypePerson {
		return &errors.ValidationError{Field: "resource", Value: string(o.Resource), Message: "unknown resource type"}
	}
	if o.ObservedAt.IsZero() {
		return &errors.ValidationError{Field: "observed_at", Message: "observation has no timestamp"}
	}
	if o.IdentityKey() == "" {
		return &errors.ValidationError{Field: "identity", Message: "observation carries no usable identity"}
	}
	for f, fv := range o.Fields {
		if fv.Confidence < 0 || fv.Confidence > 1 {
			return &errors.ValidationError{Field: f.String(), Value: fv.Confidence, Message: "confidence outside [0,1]"}
		}
	}
	for _, leader := range o.Leaders {
		if leader.Resource != sources.ResourceTypePerson {
			return &errors.ValidationError{Field: "leaders", Message: "nested leader observation must be a person"}
		}
	}
	return nil
}
