// Package merge implements the field merge policy: the pure rules that
// decide which of two observed values for the same field survives, given
// their source reliability weights and recency.
package merge

import (
	"fmt"
	"time"

	"github.com/bankatlas/bankatlas/pkg/entities"
	"github.com/bankatlas/bankatlas/pkg/sources"
)

// Policy merges field values according to the reliability-weight table.
// Rules, applied in order:
//
//  1. No existing value: the incoming value is taken unchanged.
//  2. A strictly higher source weight wins outright, regardless of
//     recency.
//  3. Equal weights: the later observation wins.
//  4. Exact tie: the existing value is kept and the incoming value is
//     recorded as a note rather than dropped silently.
type Policy struct {
	weights sources.Weights
}

// NewPolicy creates a merge policy over the given weight table.
func NewPolicy(weights sources.Weights) *Policy {
	if weights == nil {
		weights = sources.DefaultWeights()
	}
	return &Policy{weights: weights}
}

// Weights returns the weight table the policy merges with.
func (p *Policy) Weights() sources.Weights {
	return p.weights
}

// Merge resolves a single field for the given resource type. A nil
// existing value means the field was previously unset.
func (p *Policy) Merge(resource sources.ResourceType, existing *entities.FieldValue, incoming entities.FieldValue) entities.FieldValue {
	incoming = p.normalize(resource, incoming)

	if existing == nil || existing.IsZero() {
		return incoming
	}

	existingWeight := p.weights.WeightFor(existing.Source, resource)
	incomingWeight := p.weights.WeightFor(incoming.Source, resource)

	switch {
	case incomingWeight > existingWeight:
		return incoming
	case incomingWeight < existingWeight:
		return *existing
	case incoming.ObservedAt.After(existing.ObservedAt):
		return incoming
	case incoming.ObservedAt.Before(existing.ObservedAt):
		return *existing
	}

	// Exact tie on weight and timestamp: first writer wins, but the
	// losing value stays visible as an annotation.
	kept := *existing
	if !entities.EqualValue(incoming.Value, kept.Value) {
		kept.Notes = appendNote(kept.Notes, fmt.Sprintf("tied value %v from %s", incoming.Value, incoming.Source))
	}
	return kept
}

// normalize fills envelope defaults: a collector that does not set a
// confidence gets the source's reliability weight.
func (p *Policy) normalize(resource sources.ResourceType, fv entities.FieldValue) entities.FieldValue {
	if fv.Confidence == 0 {
		fv.Confidence = p.weights.WeightFor(fv.Source, resource)
	}
	return fv
}

// MergeDepartments merges incoming department records into existing ones.
// The policy is additive: records whose de-duplication key is new are
// appended; records that match an existing key merge field-by-field using
// the record-level envelopes. Returns the merged list and the number of
// records added or changed.
func (p *Policy) MergeDepartments(existing, incoming []entities.MRMDepartment) ([]entities.MRMDepartment, int) {
	merged := make([]entities.MRMDepartment, 0, len(existing)+len(incoming))
	for _, d := range existing {
		merged = append(merged, d.Clone())
	}

	changed := 0
	for _, in := range incoming {
		key := in.DedupKey()
		if key == "" {
			continue
		}

		idx := -1
		for i, d := range merged {
			if d.DedupKey() == key {
				idx = i
				break
			}
		}

		if idx < 0 {
			merged = append(merged, in.Clone())
			changed++
			continue
		}

		out, didChange := p.mergeDepartment(merged[idx], in)
		merged[idx] = out
		if didChange {
			changed++
		}
	}

	return merged, changed
}

// mergeDepartment merges two records describing the same department. Each
// populated incoming field competes under the standard rules using the
// record-level source and timestamp.
func (p *Policy) mergeDepartment(existing, incoming entities.MRMDepartment) (entities.MRMDepartment, bool) {
	out := existing.Clone()
	incomingWins := p.incomingWins(sources.ResourceTypeBank,
		existing.Source, existing.ObservedAt,
		incoming.Source, incoming.ObservedAt)

	changed := false
	if incoming.ParentOrg != "" && (out.ParentOrg == "" || incomingWins) && out.ParentOrg != incoming.ParentOrg {
		out.ParentOrg = incoming.ParentOrg
		changed = true
	}
	if incoming.ReportingStructure != "" && (out.ReportingStructure == "" || incomingWins) && out.ReportingStructure != incoming.ReportingStructure {
		out.ReportingStructure = incoming.ReportingStructure
		changed = true
	}
	if incoming.TeamSize > 0 && (out.TeamSize == 0 || incomingWins) && out.TeamSize != incoming.TeamSize {
		out.TeamSize = incoming.TeamSize
		changed = true
	}

	// Function tags are additive.
	for _, tag := range incoming.Functions {
		if !out.HasFunction(tag) {
			out.Functions = append(out.Functions, tag)
			changed = true
		}
	}

	if incomingWins {
		out.Source = incoming.Source
		out.ObservedAt = incoming.ObservedAt
	}
	if incoming.Confidence > out.Confidence {
		out.Confidence = incoming.Confidence
	}

	return out, changed
}

// incomingWins applies rules 2-3 to record-level envelopes: true when the
// incoming record's source/timestamp would beat the existing record's.
func (p *Policy) incomingWins(resource sources.ResourceType, existingSource sources.Type, existingAt time.Time, incomingSource sources.Type, incomingAt time.Time) bool {
	existingWeight := p.weights.WeightFor(existingSource, resource)
	incomingWeight := p.weights.WeightFor(incomingSource, resource)
	if incomingWeight != existingWeight {
		return incomingWeight > existingWeight
	}
	return incomingAt.After(existingAt)
}

func appendNote(notes []string, note string) []string {
	for _, existing := range notes {
		if existing == note {
			return notes
		}
	}
	return append(notes, note)
}
