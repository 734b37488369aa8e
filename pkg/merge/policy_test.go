package merge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bankatlas/bankatlas/pkg/entities"
	"github.com/bankatlas/bankatlas/pkg/sources"
)

func fv(source sources.Type, value any, observedAt time.Time) entities.FieldValue {
	return entities.FieldValue{Value: value, Source: source, ObservedAt: observedAt}
}

func TestMergeNoExisting(t *testing.T) {
	p := NewPolicy(nil)
	now := time.Now()

	got := p.Merge(sources.ResourceTypeBank, nil, fv(sources.RegistryAPI, 1000000.0, now))

	assert.Equal(t, 1000000.0, got.Value)
	assert.Equal(t, sources.RegistryAPI, got.Source)
	// Collector did not set a confidence, so the source weight is used.
	assert.InDelta(t, 0.95, got.Confidence, 1e-9)
}

func TestMergeHigherWeightWinsRegardlessOfOrder(t *testing.T) {
	p := NewPolicy(nil)
	earlier := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	later := earlier.Add(48 * time.Hour)

	registry := fv(sources.RegistryAPI, 1000000.0, earlier)
	manual := fv(sources.ManualEntry, 950000.0, later)

	// Registry first, manual second: manual is fresher but less trusted.
	merged := p.Merge(sources.ResourceTypeBank, &registry, manual)
	assert.Equal(t, 1000000.0, merged.Value)
	assert.Equal(t, sources.RegistryAPI, merged.Source)

	// Manual first, registry second: same winner either way.
	merged = p.Merge(sources.ResourceTypeBank, &manual, registry)
	assert.Equal(t, 1000000.0, merged.Value)
	assert.Equal(t, sources.RegistryAPI, merged.Source)
}

func TestMergeFreshnessTieBreak(t *testing.T) {
	p := NewPolicy(nil)
	earlier := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	later := earlier.Add(time.Hour)

	// manual-entry and professional-network both weigh 0.70 for banks.
	old := fv(sources.ManualEntry, "Risk Management Group", earlier)
	fresh := fv(sources.ProfessionalNetwork, "Model Risk Management", later)

	merged := p.Merge(sources.ResourceTypeBank, &old, fresh)
	assert.Equal(t, "Model Risk Management", merged.Value)

	// Reversed: the stale incoming value loses.
	merged = p.Merge(sources.ResourceTypeBank, &fresh, old)
	assert.Equal(t, "Model Risk Management", merged.Value)
}

func TestMergeExactTieKeepsExistingAndAnnotates(t *testing.T) {
	p := NewPolicy(nil)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	existing := fv(sources.ManualEntry, "Charlotte", at)
	incoming := fv(sources.ManualEntry, "Charlotte NC", at)

	merged := p.Merge(sources.ResourceTypeBank, &existing, incoming)
	assert.Equal(t, "Charlotte", merged.Value)
	require.Len(t, merged.Notes, 1)
	assert.Contains(t, merged.Notes[0], "Charlotte NC")
	assert.Contains(t, merged.Notes[0], string(sources.ManualEntry))
}

func TestMergeSliceValues(t *testing.T) {
	p := NewPolicy(nil)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Observed values are any-typed and may hold uncomparable kinds; an
	// exact tie between slice values must resolve, not blow up.
	existing := fv(sources.ManualEntry, []string{"validation", "governance"}, at)
	incoming := fv(sources.ManualEntry, []string{"validation", "audit"}, at)

	merged := p.Merge(sources.ResourceTypeBank, &existing, incoming)
	assert.Equal(t, []string{"validation", "governance"}, merged.Value)
	require.Len(t, merged.Notes, 1)

	// Equal slice contents are recognized as the same value: no note.
	same := fv(sources.ManualEntry, []string{"validation", "governance"}, at)
	merged = p.Merge(sources.ResourceTypeBank, &existing, same)
	assert.Empty(t, merged.Notes)
}

func TestMergePersonWeightScoping(t *testing.T) {
	p := NewPolicy(nil)
	earlier := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	later := earlier.Add(time.Hour)

	manual := fv(sources.ManualEntry, "VP Model Risk", later)
	network := fv(sources.ProfessionalNetwork, "Head of Model Risk", earlier)

	// For persons the professional network weighs 0.80 and beats manual
	// curation even when the manual value is fresher.
	merged := p.Merge(sources.ResourceTypePerson, &manual, network)
	assert.Equal(t, "Head of Model Risk", merged.Value)

	// For banks both weigh 0.70, so freshness decides.
	merged = p.Merge(sources.ResourceTypeBank, &manual, network)
	assert.Equal(t, "VP Model Risk", merged.Value)
}

func TestMergeWeightOverrides(t *testing.T) {
	weights := sources.DefaultWeights().Merge(sources.Weights{
		sources.ThirdParty: 0.99,
	})
	p := NewPolicy(weights)
	at := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	registry := fv(sources.RegistryAPI, 100, at)
	third := fv(sources.ThirdParty, 200, at)

	merged := p.Merge(sources.ResourceTypeBank, &registry, third)
	assert.Equal(t, 200, merged.Value)
}

func TestMergeDepartmentsAdditive(t *testing.T) {
	p := NewPolicy(nil)
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	existing := []entities.MRMDepartment{{
		Name:       "Model Risk Management",
		Source:     sources.OfficialWebsite,
		ObservedAt: at,
		Functions:  []entities.FunctionTag{entities.FunctionModelValidation},
	}}
	incoming := []entities.MRMDepartment{
		{
			Name:       "Model Risk Management",
			TeamSize:   40,
			Source:     sources.ProfessionalNetwork,
			ObservedAt: at.Add(time.Hour),
			Functions:  []entities.FunctionTag{entities.FunctionStressTesting},
		},
		{
			Name:       "Quantitative Risk Analytics",
			Source:     sources.ProfessionalNetwork,
			ObservedAt: at.Add(time.Hour),
		},
	}

	merged, changed := p.MergeDepartments(existing, incoming)
	require.Len(t, merged, 2)
	assert.Equal(t, 2, changed)

	mrm := merged[0]
	assert.Equal(t, 40, mrm.TeamSize)
	assert.True(t, mrm.HasFunction(entities.FunctionModelValidation))
	assert.True(t, mrm.HasFunction(entities.FunctionStressTesting))
	// official-website (0.85) outweighs professional-network (0.70), so
	// the record-level provenance stays with the website.
	assert.Equal(t, sources.OfficialWebsite, mrm.Source)
}

func TestMergeDepartmentsIdempotent(t *testing.T) {
	p := NewPolicy(nil)
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	incoming := []entities.MRMDepartment{{
		Name:       "Model Validation Group",
		TeamSize:   12,
		Source:     sources.RegulatoryFiling,
		ObservedAt: at,
	}}

	once, changed := p.MergeDepartments(nil, incoming)
	require.Len(t, once, 1)
	assert.Equal(t, 1, changed)

	twice, changed := p.MergeDepartments(once, incoming)
	require.Len(t, twice, 1)
	assert.Equal(t, 0, changed)
	assert.Equal(t, once[0], twice[0])
}
