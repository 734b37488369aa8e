package entities

import (
	"time"

	"github.com/bankatlas/bankatlas/pkg/sources"
)

// BankEntity is the canonical merged record for one financial institution.
// The identity key is immutable once assigned; everything else is merged
// state. Completeness, Confidence, and Quality are derived values written
// only by the score calculator.
type BankEntity struct {
	Key string `json:"key" yaml:"key"`

	Attributes `yaml:",inline"`

	Departments []MRMDepartment `json:"departments,omitempty" yaml:"departments,omitempty"`

	// Leadership references PersonEntity identity keys. Persons are shared
	// between banks, not owned; their lifetime is independent of any one
	// bank.
	Leadership []string `json:"leadership,omitempty" yaml:"leadership,omitempty"`

	Completeness float64       `json:"completeness" yaml:"completeness"`
	Confidence   float64       `json:"confidence" yaml:"confidence"`
	Quality      QualityStatus `json:"quality" yaml:"quality"`

	DataSources SourceSet `json:"data_sources,omitempty" yaml:"data_sources,omitempty"`
	SourceURLs  []string  `json:"source_urls,omitempty" yaml:"source_urls,omitempty"`
	Tags        []string  `json:"tags,omitempty" yaml:"tags,omitempty"`

	// Flags marks conditions needing human attention, e.g. manual_review
	// after an ambiguous match.
	Flags []string `json:"flags,omitempty" yaml:"flags,omitempty"`

	CreatedAt    time.Time  `json:"created_at" yaml:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" yaml:"updated_at"`
	LastVerified *time.Time `json:"last_verified,omitempty" yaml:"last_verified,omitempty"`
}

// NewBank creates an empty bank entity with the given identity key.
func NewBank(key string) *BankEntity {
	return &BankEntity{
		Key:        key,
		Attributes: NewAttributes(),
		Quality:    QualityUnknown,
	}
}

// Name returns the bank's current display name.
func (b *BankEntity) Name() string {
	return b.StringField(FieldBankName)
}

// CertID returns the registry certificate id, or 0 when unknown.
func (b *BankEntity) CertID() int {
	return b.IntField(FieldCertID)
}

// TotalAssets returns total assets in millions of dollars, or 0.
func (b *BankEntity) TotalAssets() float64 {
	return b.FloatField(FieldTotalAssets)
}

// AssetRank returns the bank's rank among peers by asset size, or 0.
func (b *BankEntity) AssetRank() int {
	return b.IntField(FieldAssetRank)
}

// SizeCategory derives the size classification from total assets.
func (b *BankEntity) SizeCategory() SizeCategory {
	return SizeCategoryForAssets(b.TotalAssets())
}

// HasMRMData reports whether any department or leadership data has been
// collected.
func (b *BankEntity) HasMRMData() bool {
	return len(b.Departments) > 0 || len(b.Leadership) > 0
}

// RecordSource records a contributing source on the entity.
func (b *BankEntity) RecordSource(t sources.Type) {
	b.DataSources.Record(t)
}

// RecordSourceURL records a source URL if not already present.
func (b *BankEntity) RecordSourceURL(url string) {
	if url == "" {
		return
	}
	for _, existing := range b.SourceURLs {
		if existing == url {
			return
		}
	}
	b.SourceURLs = append(b.SourceURLs, url)
}

// HasLeader reports whether the bank already references the given person
// key.
func (b *BankEntity) HasLeader(personKey string) bool {
	for _, key := range b.Leadership {
		if key == personKey {
			return true
		}
	}
	return false
}

// AddLeader appends a person reference if not already present.
func (b *BankEntity) AddLeader(personKey string) {
	if personKey == "" || b.HasLeader(personKey) {
		return
	}
	b.Leadership = append(b.Leadership, personKey)
}

// Flag marks the entity with a condition flag if not already present.
func (b *BankEntity) Flag(flag string) {
	for _, existing := range b.Flags {
		if existing == flag {
			return
		}
	}
	b.Flags = append(b.Flags, flag)
}

// Touch stamps the update time, setting the creation time on first touch.
func (b *BankEntity) Touch(now time.Time) {
	touch(&b.CreatedAt, &b.UpdatedAt, now)
}

// Clone returns a deep copy. The reconciliation engine merges into a clone
// so a failed merge never leaves a partially updated entity visible.
func (b *BankEntity) Clone() *BankEntity {
	out := *b
	out.Attributes = b.Attributes.CloneAttributes()
	out.Departments = make([]MRMDepartment, 0, len(b.Departments))
	for _, d := range b.Departments {
		out.Departments = append(out.Departments, d.Clone())
	}
	out.Leadership = append([]string(nil), b.Leadership...)
	out.DataSources = append(SourceSet(nil), b.DataSources...)
	out.SourceURLs = append([]string(nil), b.SourceURLs...)
	out.Tags = append([]string(nil), b.Tags...)
	out.Flags = append([]string(nil), b.Flags...)
	if b.LastVerified != nil {
		verified := *b.LastVerified
		out.LastVerified = &verified
	}
	return &out
}
