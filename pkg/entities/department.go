package entities

import (
	"time"

	"github.com/bankatlas/bankatlas/pkg/sources"
)

// FunctionTag labels a capability of an MRM department.
type FunctionTag string

// Known department functions.
const (
	FunctionModelValidation FunctionTag = "model_validation"
	FunctionModelGovernance FunctionTag = "model_governance"
	FunctionStressTesting   FunctionTag = "stress_testing"
	FunctionRiskAnalytics   FunctionTag = "risk_analytics"
	FunctionCreditModeling  FunctionTag = "credit_modeling"
	FunctionMarketModeling  FunctionTag = "market_modeling"
	FunctionModelAudit      FunctionTag = "model_audit"
)

// MRMDepartment describes one model-risk-management department within a
// bank. Provenance is carried at record level: Source and ObservedAt cover
// every populated field of the record.
type MRMDepartment struct {
	Name               string        `json:"name" yaml:"name"`
	ParentOrg          string        `json:"parent_org,omitempty" yaml:"parent_org,omitempty"`
	ReportingStructure string        `json:"reporting_structure,omitempty" yaml:"reporting_structure,omitempty"`
	TeamSize           int           `json:"team_size,omitempty" yaml:"team_size,omitempty"`
	Functions          []FunctionTag `json:"functions,omitempty" yaml:"functions,omitempty"`

	Source     sources.Type `json:"source" yaml:"source"`
	ObservedAt time.Time    `json:"observed_at" yaml:"observed_at"`
	Confidence float64      `json:"confidence" yaml:"confidence"`
}

// DedupKey returns the key used to decide whether two department records
// describe the same department.
func (d MRMDepartment) DedupKey() string {
	return NormalizeName(d.Name)
}

// HasFunction reports whether the department carries the given function
// tag.
func (d MRMDepartment) HasFunction(tag FunctionTag) bool {
	for _, f := range d.Functions {
		if f == tag {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the department record.
func (d MRMDepartment) Clone() MRMDepartment {
	out := d
	out.Functions = append([]FunctionTag(nil), d.Functions...)
	return out
}
