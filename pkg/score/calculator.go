// Package score computes the derived quality metrics of an entity from
// its current merged state: the weighted completeness score, the
// confidence score, and the quality status. Nothing else in the system is
// allowed to write these fields.
package score

import (
	"github.com/bankatlas/bankatlas/pkg/entities"
	"github.com/bankatlas/bankatlas/pkg/sources"
)

// totalChecklistWeight is the fixed completeness denominator. It stays
// constant across checklist revisions so scores remain comparable over
// time; the sum of satisfiable weights may exceed it, and the score is
// capped at 1.0.
const totalChecklistWeight = 15.0

// Check is one item of the completeness checklist.
type Check struct {
	Name      string
	Weight    float64
	Satisfied func(bank *entities.BankEntity, leaders []*entities.PersonEntity) bool
}

// bankChecklist is the completeness checklist for banks. Keeping it as a
// single table makes the scoring rules reviewable in one place.
var bankChecklist = []Check{
	{"bank name", 1, func(b *entities.BankEntity, _ []*entities.PersonEntity) bool {
		return b.Name() != ""
	}},
	{"cert id", 1, func(b *entities.BankEntity, _ []*entities.PersonEntity) bool {
		return b.CertID() != 0
	}},
	{"asset rank", 1, func(b *entities.BankEntity, _ []*entities.PersonEntity) bool {
		return b.AssetRank() != 0
	}},
	{"total assets", 1, func(b *entities.BankEntity, _ []*entities.PersonEntity) bool {
		return b.TotalAssets() != 0
	}},
	{"hq city", 1, func(b *entities.BankEntity, _ []*entities.PersonEntity) bool {
		return b.StringField(entities.FieldHQCity) != ""
	}},
	{"hq state", 1, func(b *entities.BankEntity, _ []*entities.PersonEntity) bool {
		return b.StringField(entities.FieldHQState) != ""
	}},
	{"mrm department", 2, func(b *entities.BankEntity, _ []*entities.PersonEntity) bool {
		return len(b.Departments) > 0
	}},
	{"leadership", 2, func(b *entities.BankEntity, _ []*entities.PersonEntity) bool {
		return len(b.Leadership) > 0
	}},
	{"leader name", 1, func(_ *entities.BankEntity, leaders []*entities.PersonEntity) bool {
		return anyLeader(leaders, func(p *entities.PersonEntity) bool { return p.Name() != "" })
	}},
	{"leader title", 1, func(_ *entities.BankEntity, leaders []*entities.PersonEntity) bool {
		return anyLeader(leaders, func(p *entities.PersonEntity) bool { return p.Title() != "" })
	}},
	{"source url", 1, func(b *entities.BankEntity, _ []*entities.PersonEntity) bool {
		return len(b.SourceURLs) > 0
	}},
	{"notes", 1, func(b *entities.BankEntity, _ []*entities.PersonEntity) bool {
		return b.StringField(entities.FieldNotes) != ""
	}},
	{"verified", 1, func(b *entities.BankEntity, _ []*entities.PersonEntity) bool {
		return b.LastVerified != nil
	}},
	{"data source recorded", 1, func(b *entities.BankEntity, _ []*entities.PersonEntity) bool {
		return len(b.DataSources) > 0
	}},
}

func anyLeader(leaders []*entities.PersonEntity, fn func(*entities.PersonEntity) bool) bool {
	for _, p := range leaders {
		if p != nil && fn(p) {
			return true
		}
	}
	return false
}

// Calculator computes completeness, confidence, and quality status. It is
// a pure function of entity state: recomputing on unchanged state always
// yields the same scores.
type Calculator struct {
	weights sources.Weights
}

// NewCalculator creates a calculator over the given weight table.
func NewCalculator(weights sources.Weights) *Calculator {
	if weights == nil {
		weights = sources.DefaultWeights()
	}
	return &Calculator{weights: weights}
}

// ScoreBank recomputes and stamps the bank's completeness, confidence,
// and quality status. Leaders are the resolved person records behind
// bank.Leadership; missing records simply leave their checks unsatisfied.
func (c *Calculator) ScoreBank(bank *entities.BankEntity, leaders []*entities.PersonEntity) {
	bank.Completeness = c.Completeness(bank, leaders)
	bank.Confidence = c.Confidence(bank.DataSources, sources.ResourceTypeBank)
	bank.Quality = entities.QualityForCompleteness(bank.Completeness)
}

// ScorePerson recomputes and stamps the person's confidence score.
func (c *Calculator) ScorePerson(person *entities.PersonEntity) {
	person.Confidence = c.Confidence(person.DataSources, sources.ResourceTypePerson)
}

// Completeness returns the weighted fraction of the checklist satisfied,
// capped at 1.0.
func (c *Calculator) Completeness(bank *entities.BankEntity, leaders []*entities.PersonEntity) float64 {
	satisfied := 0.0
	for _, check := range bankChecklist {
		if check.Satisfied(bank, leaders) {
			satisfied += check.Weight
		}
	}
	if satisfied > totalChecklistWeight {
		return 1.0
	}
	return satisfied / totalChecklistWeight
}

// Confidence returns the arithmetic mean of the reliability weights of the
// distinct contributing sources. A mean over sources rather than over
// individual field confidences keeps one low-confidence field from
// dominating the score. No sources means 0.
func (c *Calculator) Confidence(contributed entities.SourceSet, resource sources.ResourceType) float64 {
	if len(contributed) == 0 {
		return 0
	}
	sum := 0.0
	for _, t := range contributed {
		sum += c.weights.WeightFor(t, resource)
	}
	return sum / float64(len(contributed))
}

// CheckResult reports one checklist item's outcome, for explainability in
// reporting surfaces.
type CheckResult struct {
	Name      string
	Weight    float64
	Satisfied bool
}

// Breakdown evaluates the checklist item by item.
func (c *Calculator) Breakdown(bank *entities.BankEntity, leaders []*entities.PersonEntity) []CheckResult {
	out := make([]CheckResult, 0, len(bankChecklist))
	for _, check := range bankChecklist {
		out = append(out, CheckResult{
			Name:      check.Name,
			Weight:    check.Weight,
			Satisfied: check.Satisfied(bank, leaders),
		})
	}
	return out
}
