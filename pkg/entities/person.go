package entities

import (
	"time"
)

// PersonEntity is the canonical merged record for one person (leadership).
// Persons are de-duplicated globally: by external profile handle when
// present, else by normalized (name, employer). A person may be referenced
// by any number of banks.
type PersonEntity struct {
	Key string `json:"key" yaml:"key"`

	Attributes `yaml:",inline"`

	// Employers lists the identity keys of banks this person is associated
	// with, in first-association order.
	Employers []string `json:"employers,omitempty" yaml:"employers,omitempty"`

	Confidence  float64   `json:"confidence" yaml:"confidence"`
	DataSources SourceSet `json:"data_sources,omitempty" yaml:"data_sources,omitempty"`

	Flags []string `json:"flags,omitempty" yaml:"flags,omitempty"`

	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// NewPerson creates an empty person entity with the given identity key.
func NewPerson(key string) *PersonEntity {
	return &PersonEntity{
		Key:        key,
		Attributes: NewAttributes(),
	}
}

// Name returns the person's current name.
func (p *PersonEntity) Name() string {
	return p.StringField(FieldPersonName)
}

// Title returns the person's current title.
func (p *PersonEntity) Title() string {
	return p.StringField(FieldTitle)
}

// ProfileHandle returns the external profile handle, or "".
func (p *PersonEntity) ProfileHandle() string {
	return p.StringField(FieldProfileHandle)
}

// EmployedBy reports whether the person is associated with the given bank
// key.
func (p *PersonEntity) EmployedBy(bankKey string) bool {
	for _, key := range p.Employers {
		if key == bankKey {
			return true
		}
	}
	return false
}

// AddEmployer records an association with a bank if not already present.
func (p *PersonEntity) AddEmployer(bankKey string) {
	if bankKey == "" || p.EmployedBy(bankKey) {
		return
	}
	p.Employers = append(p.Employers, bankKey)
}

// Flag marks the entity with a condition flag if not already present.
func (p *PersonEntity) Flag(flag string) {
	for _, existing := range p.Flags {
		if existing == flag {
			return
		}
	}
	p.Flags = append(p.Flags, flag)
}

// Touch stamps the update time, setting the creation time on first touch.
func (p *PersonEntity) Touch(now time.Time) {
	touch(&p.CreatedAt, &p.UpdatedAt, now)
}

// Clone returns a deep copy.
func (p *PersonEntity) Clone() *PersonEntity {
	out := *p
	out.Attributes = p.Attributes.CloneAttributes()
	out.Employers = append([]string(nil), p.Employers...)
	out.DataSources = append(SourceSet(nil), p.DataSources...)
	out.Flags = append([]string(nil), p.Flags...)
	return &out
}
