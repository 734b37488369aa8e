// Package sources defines the data sources that contribute observations to
// BankAtlas and the static reliability weights that drive merge precedence
// and confidence scoring.
package sources

// Type identifies a data source.
type Type string

// String returns the string representation of a source type.
func (t Type) String() string {
	return string(t)
}

// Known data sources.
const (
	RegistryAPI         Type = "registry-api"         // authoritative bank registry (BankFind-style REST API)
	RegulatoryFiling    Type = "regulatory-filing"    // parsed regulatory filings
	OfficialWebsite     Type = "official-website"     // institution's own website
	ProfessionalNetwork Type = "professional-network" // professional-network scrape
	ManualEntry         Type = "manual-entry"         // manual curation
	ThirdParty          Type = "third-party"          // aggregators and other third parties
)

// All returns every known source type.
func All() []Type {
	return []Type{
		RegistryAPI,
		RegulatoryFiling,
		OfficialWebsite,
		ProfessionalNetwork,
		ManualEntry,
		ThirdParty,
	}
}

// ResourceType identifies the kind of entity an observation describes.
type ResourceType string

// Resource types.
const (
	ResourceTypeBank   ResourceType = "bank"
	ResourceTypePerson ResourceType = "person"
)

// Weights maps each source to its reliability weight in [0,1].
// Higher means more trusted; a strictly higher weight always wins a field
// merge regardless of recency.
type Weights map[Type]float64

// DefaultWeights returns the standard reliability-weight table.
// ProfessionalNetwork carries 0.70 here; person-resource observations get
// the elevated 0.80 via PersonWeight.
func DefaultWeights() Weights {
	return Weights{
		RegistryAPI:         0.95,
		RegulatoryFiling:    0.90,
		OfficialWebsite:     0.85,
		ProfessionalNetwork: 0.70,
		ManualEntry:         0.70,
		ThirdParty:          0.50,
	}
}

// professionalNetworkPersonWeight is the elevated weight the
// professional-network source carries for person observations, where it is
// the primary source of leadership data.
const professionalNetworkPersonWeight = 0.80

// Weight returns the reliability weight for a source, or 0 for an unknown
// source.
func (w Weights) Weight(t Type) float64 {
	return w[t]
}

// WeightFor returns the reliability weight for a source scoped to a
// resource type. The professional-network source is more trusted for
// person data than for bank data.
func (w Weights) WeightFor(t Type, resource ResourceType) float64 {
	if t == ProfessionalNetwork && resource == ResourceTypePerson {
		if base, ok := w[t]; ok && base < professionalNetworkPersonWeight {
			return professionalNetworkPersonWeight
		}
	}
	return w[t]
}

// Merge returns a copy of w with non-zero entries from overrides applied.
// The receiver is not modified.
func (w Weights) Merge(overrides Weights) Weights {
	merged := make(Weights, len(w))
	for t, weight := range w {
		merged[t] = weight
	}
	for t, weight := range overrides {
		if weight > 0 {
			merged[t] = weight
		}
	}
	return merged
}
