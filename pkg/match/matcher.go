// Package match decides identity equivalence between an observation and
// the existing entity set. Matching is conservative: a bank name match is
// definitive after normalization, while an unconfirmed person resemblance
// is reported as ambiguous rather than guessed.
package match

import (
	"github.com/bankatlas/bankatlas/pkg/entities"
	"github.com/bankatlas/bankatlas/pkg/errors"
)

// Matcher resolves observations against candidate entities. It is pure:
// callers query storage for candidates and pass them in.
type Matcher struct{}

// NewMatcher creates a matcher.
func NewMatcher() *Matcher {
	return &Matcher{}
}

// MatchBank returns the candidate the observation refers to, or nil when
// the observation describes a previously unseen bank.
//
// Precedence: registry certificate id, then normalized name. Certificate
// ids are authoritative, and bank names are distinctive enough after
// normalization that a name match is definitive.
func (m *Matcher) MatchBank(obs entities.Observation, candidates []*entities.BankEntity) *entities.BankEntity {
	if obs.CertID > 0 {
		key := entities.BankCertKey(obs.CertID)
		for _, c := range candidates {
			if c.Key == key || c.CertID() == obs.CertID {
				return c
			}
		}
	}

	normalized := entities.NormalizeName(obs.Name)
	if normalized == "" {
		return nil
	}
	for _, c := range candidates {
		if entities.NormalizeName(c.Name()) == normalized {
			return c
		}
	}
	return nil
}

// MatchPerson returns the candidate the observation refers to, nil when
// the person is new, or an AmbiguousMatchError when a resemblance cannot
// be confirmed. employerKey is the identity key of the bank the
// observation was collected for, "" when unknown.
//
// Precedence: external profile handle, then exact (name, employer) key. A
// name-only resemblance merges only with explicit confirmation: matching
// handles, or name plus employer agreement with no handle on either side.
// Anything weaker is ambiguous and must not auto-merge.
func (m *Matcher) MatchPerson(obs entities.Observation, employerKey string, candidates []*entities.PersonEntity) (*entities.PersonEntity, error) {
	if obs.ProfileHandle != "" {
		key := entities.PersonHandleKey(obs.ProfileHandle)
		for _, c := range candidates {
			if c.Key == key {
				return c, nil
			}
			if h := c.ProfileHandle(); h != "" && entities.PersonHandleKey(h) == key {
				return c, nil
			}
		}
	}

	normalized := entities.NormalizeName(obs.Name)
	if normalized == "" {
		return nil, nil
	}

	if employerKey == "" && obs.Employer != "" {
		employerKey = entities.BankNameKey(obs.Employer)
	}

	nameKey := entities.PersonNameKey(obs.Name, obs.Employer)
	for _, c := range candidates {
		if c.Key == nameKey && obs.ProfileHandle == "" {
			return c, nil
		}
	}

	// Fuzzy pass: same normalized name. Employer agreement plus absent
	// handles on both sides confirms; a handle on exactly one side means
	// the identities cannot be tied together safely.
	for _, c := range candidates {
		if entities.NormalizeName(c.Name()) != normalized {
			continue
		}

		candidateHandle := c.ProfileHandle()
		sharesEmployer := employerKey != "" && c.EmployedBy(employerKey)

		switch {
		case obs.ProfileHandle != "" && candidateHandle != "":
			// Both handles known and they differ (the equal case matched
			// above): distinct people who happen to share a name.
			continue
		case !sharesEmployer:
			// Same name at different banks: distinct people, no flag.
			continue
		case obs.ProfileHandle == "" && candidateHandle == "":
			// Name and employer agree and neither side claims a handle.
			return c, nil
		default:
			return nil, &errors.AmbiguousMatchError{
				ObservationKey: obs.IdentityKey(),
				CandidateKey:   c.Key,
				Reason:         "name and employer agree but profile handle is unconfirmed",
			}
		}
	}

	return nil, nil
}
