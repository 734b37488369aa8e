package match

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bankatlas/bankatlas/pkg/entities"
	"github.com/bankatlas/bankatlas/pkg/errors"
	"github.com/bankatlas/bankatlas/pkg/sources"
)

var observedAt = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func bank(key, name string, certID int) *entities.BankEntity {
	b := entities.NewBank(key)
	b.SetField(entities.FieldBankName, entities.FieldValue{Value: name, Source: sources.RegistryAPI, ObservedAt: observedAt})
	if certID > 0 {
		b.SetField(entities.FieldCertID, entities.FieldValue{Value: certID, Source: sources.RegistryAPI, ObservedAt: observedAt})
	}
	return b
}

func person(key, name, handle string, employers ...string) *entities.PersonEntity {
	p := entities.NewPerson(key)
	p.SetField(entities.FieldPersonName, entities.FieldValue{Value: name, Source: sources.ProfessionalNetwork, ObservedAt: observedAt})
	if handle != "" {
		p.SetField(entities.FieldProfileHandle, entities.FieldValue{Value: handle, Source: sources.ProfessionalNetwork, ObservedAt: observedAt})
	}
	for _, e := range employers {
		p.AddEmployer(e)
	}
	return p
}

func TestMatchBankByCertID(t *testing.T) {
	m := NewMatcher()
	candidates := []*entities.BankEntity{
		bank("cert:628", "Bank of America", 628),
		bank("cert:3511", "Wells Fargo Bank", 3511),
	}

	obs := entities.NewBankObservation(sources.RegistryAPI, "BofA", observedAt)
	obs.CertID = 628

	got := m.MatchBank(obs, candidates)
	require.NotNil(t, got)
	assert.Equal(t, "cert:628", got.Key)
}

func TestMatchBankByNormalizedName(t *testing.T) {
	m := NewMatcher()
	candidates := []*entities.BankEntity{
		bank("bank:wells fargo bank", "Wells Fargo Bank, N.A.", 0),
	}

	// Suffix and punctuation variants of the same institution.
	obs := entities.NewBankObservation(sources.OfficialWebsite, "Wells Fargo Bank National Association", observedAt)
	got := m.MatchBank(obs, candidates)
	require.NotNil(t, got)
	assert.Equal(t, "bank:wells fargo bank", got.Key)

	obs = entities.NewBankObservation(sources.OfficialWebsite, "First Horizon Bank", observedAt)
	assert.Nil(t, m.MatchBank(obs, candidates))
}

func TestMatchBankCertBeatsName(t *testing.T) {
	m := NewMatcher()
	candidates := []*entities.BankEntity{
		bank("cert:628", "Bank of America", 628),
		bank("bank:bank of america", "Bank of America", 0),
	}

	obs := entities.NewBankObservation(sources.RegistryAPI, "Bank of America", observedAt)
	obs.CertID = 628

	got := m.MatchBank(obs, candidates)
	require.NotNil(t, got)
	assert.Equal(t, "cert:628", got.Key)
}

func TestMatchPersonByHandle(t *testing.T) {
	m := NewMatcher()
	candidates := []*entities.PersonEntity{
		person("handle:jane-doe", "Jane Doe", "jane-doe", "cert:628"),
	}

	obs := entities.NewPersonObservation(sources.ProfessionalNetwork, "J. Doe", "Bank of America", observedAt)
	obs.ProfileHandle = "Jane-Doe"

	got, err := m.MatchPerson(obs, "cert:628", candidates)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "handle:jane-doe", got.Key)
}

func TestMatchPersonByNameAndEmployer(t *testing.T) {
	m := NewMatcher()
	key := entities.PersonNameKey("Jane Doe", "Bank of America")
	candidates := []*entities.PersonEntity{
		person(key, "Jane Doe", "", "cert:628"),
	}

	obs := entities.NewPersonObservation(sources.OfficialWebsite, "Jane Doe", "Bank of America", observedAt)
	got, err := m.MatchPerson(obs, "cert:628", candidates)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, key, got.Key)
}

func TestMatchPersonSameNameDifferentBanksStaysDistinct(t *testing.T) {
	m := NewMatcher()
	candidates := []*entities.PersonEntity{
		person(entities.PersonNameKey("John Smith", "Bank of America"), "John Smith", "", "cert:628"),
	}

	// Same name observed at a different bank: a new person, not a merge
	// and not an ambiguity.
	obs := entities.NewPersonObservation(sources.OfficialWebsite, "John Smith", "Wells Fargo", observedAt)
	got, err := m.MatchPerson(obs, "cert:3511", candidates)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMatchPersonUnconfirmedHandleIsAmbiguous(t *testing.T) {
	m := NewMatcher()
	candidates := []*entities.PersonEntity{
		person("handle:john-smith-1", "John Smith", "john-smith-1", "cert:628"),
	}

	// Same name and employer, but the candidate is keyed by a handle the
	// observation does not carry. Not safe to merge.
	obs := entities.NewPersonObservation(sources.OfficialWebsite, "John Smith", "Bank of America", observedAt)
	_, err := m.MatchPerson(obs, "cert:628", candidates)
	require.Error(t, err)
	assert.True(t, errors.IsAmbiguousMatch(err))

	var ambiguous *errors.AmbiguousMatchError
	require.ErrorAs(t, err, &ambiguous)
	assert.Equal(t, "handle:john-smith-1", ambiguous.CandidateKey)
}

func TestMatchPersonDifferentHandlesNeverMerge(t *testing.T) {
	m := NewMatcher()
	candidates := []*entities.PersonEntity{
		person("handle:john-smith-1", "John Smith", "john-smith-1", "cert:628"),
	}

	obs := entities.NewPersonObservation(sources.ProfessionalNetwork, "John Smith", "Bank of America", observedAt)
	obs.ProfileHandle = "john-smith-2"

	got, err := m.MatchPerson(obs, "cert:628", candidates)
	require.NoError(t, err)
	assert.Nil(t, got)
}
