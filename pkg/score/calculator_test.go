package score

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bankatlas/bankatlas/pkg/entities"
	"github.com/bankatlas/bankatlas/pkg/sources"
)

func setField(b *entities.BankEntity, f entities.Field, value any) {
	b.SetField(f, entities.FieldValue{
		Value:      value,
		Source:     sources.RegistryAPI,
		ObservedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
}

// bankWithBasics fills the six identity checks plus source URL and notes,
// leaving departments, leadership, verification, and recorded sources
// empty.
func bankWithBasics() *entities.BankEntity {
	b := entities.NewBank("cert:628")
	setField(b, entities.FieldBankName, "Bank of America")
	setField(b, entities.FieldCertID, 628)
	setField(b, entities.FieldAssetRank, 2)
	setField(b, entities.FieldTotalAssets, 2500000.0)
	setField(b, entities.FieldHQCity, "Charlotte")
	setField(b, entities.FieldHQState, "NC")
	setField(b, entities.FieldNotes, "GSIB")
	b.RecordSourceURL("https://registry.example.gov/banks/628")
	return b
}

func TestCompletenessFairWithoutMRMData(t *testing.T) {
	c := NewCalculator(nil)
	b := bankWithBasics()

	// 8 of 15 checklist points: all basics, no departments or leadership.
	got := c.Completeness(b, nil)
	assert.InDelta(t, 8.0/15.0, got, 1e-9)

	c.ScoreBank(b, nil)
	assert.Equal(t, entities.QualityFair, b.Quality)
}

func TestCompletenessMonotonicity(t *testing.T) {
	c := NewCalculator(nil)
	b := bankWithBasics()

	before := c.Completeness(b, nil)

	verified := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	b.LastVerified = &verified
	after := c.Completeness(b, nil)
	assert.Greater(t, after, before)

	b.RecordSource(sources.RegistryAPI)
	assert.Greater(t, c.Completeness(b, nil), after)
}

func TestCompletenessCappedAtOne(t *testing.T) {
	c := NewCalculator(nil)
	b := bankWithBasics()

	verified := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	b.LastVerified = &verified
	b.RecordSource(sources.RegistryAPI)
	b.Departments = []entities.MRMDepartment{{Name: "Model Risk Management"}}
	b.AddLeader("handle:jane-doe")

	leader := entities.NewPerson("handle:jane-doe")
	leader.SetField(entities.FieldPersonName, entities.FieldValue{Value: "Jane Doe", Source: sources.ProfessionalNetwork})
	leader.SetField(entities.FieldTitle, entities.FieldValue{Value: "Head of Model Risk", Source: sources.ProfessionalNetwork})

	// Every check satisfied sums past the fixed denominator; the score
	// caps at 1.0 instead.
	got := c.Completeness(b, []*entities.PersonEntity{leader})
	assert.Equal(t, 1.0, got)

	c.ScoreBank(b, []*entities.PersonEntity{leader})
	assert.Equal(t, entities.QualityExcellent, b.Quality)
}

func TestLeaderChecksNeedResolvedPersons(t *testing.T) {
	c := NewCalculator(nil)
	b := bankWithBasics()
	b.AddLeader("handle:jane-doe")

	// Leadership reference alone scores the "has leadership" check but
	// not name/title, which need the person record.
	withoutRecord := c.Completeness(b, nil)
	assert.InDelta(t, 10.0/15.0, withoutRecord, 1e-9)

	leader := entities.NewPerson("handle:jane-doe")
	leader.SetField(entities.FieldPersonName, entities.FieldValue{Value: "Jane Doe", Source: sources.ProfessionalNetwork})

	withName := c.Completeness(b, []*entities.PersonEntity{leader})
	assert.InDelta(t, 11.0/15.0, withName, 1e-9)
}

func TestConfidenceMeanOverDistinctSources(t *testing.T) {
	c := NewCalculator(nil)
	b := bankWithBasics()

	assert.Equal(t, 0.0, c.Confidence(b.DataSources, sources.ResourceTypeBank))

	b.RecordSource(sources.RegistryAPI)
	b.RecordSource(sources.ManualEntry)
	// Recording the same source again must not skew the mean.
	b.RecordSource(sources.ManualEntry)

	got := c.Confidence(b.DataSources, sources.ResourceTypeBank)
	assert.InDelta(t, (0.95+0.70)/2, got, 1e-9)
}

func TestConfidencePersonScoping(t *testing.T) {
	c := NewCalculator(nil)
	p := entities.NewPerson("handle:jane-doe")
	p.DataSources.Record(sources.ProfessionalNetwork)

	c.ScorePerson(p)
	assert.InDelta(t, 0.80, p.Confidence, 1e-9)
}

func TestScoreBankIdempotent(t *testing.T) {
	c := NewCalculator(nil)
	b := bankWithBasics()
	b.RecordSource(sources.RegistryAPI)

	c.ScoreBank(b, nil)
	completeness, confidence, quality := b.Completeness, b.Confidence, b.Quality

	c.ScoreBank(b, nil)
	assert.Equal(t, completeness, b.Completeness)
	assert.Equal(t, confidence, b.Confidence)
	assert.Equal(t, quality, b.Quality)
}

func TestBreakdownMatchesCompleteness(t *testing.T) {
	c := NewCalculator(nil)
	b := bankWithBasics()

	sum := 0.0
	for _, check := range c.Breakdown(b, nil) {
		if check.Satisfied {
			sum += check.Weight
		}
	}
	assert.InDelta(t, sum/15.0, c.Completeness(b, nil), 1e-9)
}
