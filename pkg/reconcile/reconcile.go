package reconcile

import (
	"context"
	"time"

	"github.com/bankatlas/bankatlas/pkg/entities"
	"github.com/bankatlas/bankatlas/pkg/errors"
	"github.com/bankatlas/bankatlas/pkg/logging"
	"github.com/bankatlas/bankatlas/pkg/sources"
)

// Result is the per-observation outcome of a reconciliation.
type Result struct {
	Key           string               `json:"key,omitempty"`
	Resource      sources.ResourceType `json:"resource,omitempty"`
	Outcome       Outcome              `json:"outcome,omitempty"`
	FieldsChanged int                  `json:"fields_changed"`
	Err           error                `json:"-"`
}

// Report aggregates per-item results for a stream of observations, in
// submission order.
type Report struct {
	Results   []Result `json:"results"`
	Created   int      `json:"created"`
	Updated   int      `json:"updated"`
	Ambiguous int      `json:"ambiguous"`
	Failed    int      `json:"failed"`
	Changed   int      `json:"changed"`
}

func (r *Report) add(res Result) {
	r.Results = append(r.Results, res)
	if res.Err != nil {
		r.Failed++
		return
	}
	r.Changed += res.FieldsChanged
	switch res.Outcome {
	case OutcomeCreated:
		r.Created++
	case OutcomeUpdated:
		r.Updated++
	case OutcomeMergedAmbiguous:
		r.Ambiguous++
	}
}

// Reconcile merges one observation into the canonical entity set.
func (e *Engine) Reconcile(ctx context.Context, obs entities.Observation) (Result, error) {
	res := e.reconcileOne(ctx, obs)
	return res, res.Err
}

// ReconcileAll processes a stream of observations, isolating failures: a
// malformed observation or a failed merge affects only its own result.
// Results are collected in submission order. Processing stops early only
// when the context is canceled.
func (e *Engine) ReconcileAll(ctx context.Context, observations []entities.Observation) Report {
	var report Report
	for _, obs := range observations {
		if err := ctx.Err(); err != nil {
			report.add(Result{Key: obs.IdentityKey(), Resource: obs.Resource, Err: err})
			break
		}
		report.add(e.reconcileOne(ctx, obs))
	}
	return report
}

func (e *Engine) reconcileOne(ctx context.Context, obs entities.Observation) Result {
	switch obs.Resource {
	case sources.ResourceTypePerson:
		person, outcome, changed, err := e.reconcilePerson(ctx, obs, "")
		res := Result{Resource: obs.Resource, Outcome: outcome, FieldsChanged: changed, Err: err}
		if person != nil {
			res.Key = person.Key
		}
		return res
	default:
		bank, outcome, changed, err := e.reconcileBank(ctx, obs)
		res := Result{Resource: obs.Resource, Outcome: outcome, FieldsChanged: changed, Err: err}
		if bank != nil {
			res.Key = bank.Key
		}
		return res
	}
}

// ReconcileBank merges a bank observation, including any nested leader
// observations, and returns the updated entity.
func (e *Engine) ReconcileBank(ctx context.Context, obs entities.Observation) (*entities.BankEntity, Outcome, error) {
	bank, outcome, _, err := e.reconcileBank(ctx, obs)
	return bank, outcome, err
}

// ReconcilePerson merges a standalone person observation and returns the
// updated entity.
func (e *Engine) ReconcilePerson(ctx context.Context, obs entities.Observation) (*entities.PersonEntity, Outcome, error) {
	person, outcome, _, err := e.reconcilePerson(ctx, obs, "")
	return person, outcome, err
}

func (e *Engine) reconcileBank(ctx context.Context, obs entities.Observation) (*entities.BankEntity, Outcome, int, error) {
	if obs.Resource != sources.ResourceTypeBank {
		return nil, "", 0, errors.NewValidationError("resource", string(obs.Resource), "not a bank observation")
	}
	if err := obs.Validate(); err != nil {
		return nil, "", 0, err
	}

	candidates, err := e.store.Banks(ctx)
	if err != nil {
		return nil, "", 0, err
	}

	key := obs.IdentityKey()
	if target := e.matcher.MatchBank(obs, candidates); target != nil {
		key = target.Key
	}

	unlock := e.locks.acquire(key)
	defer unlock()

	// Re-read under the lock: a concurrent reconcile for the same key may
	// have created or changed the entity since matching.
	bank, created, err := e.loadBank(ctx, key)
	if err != nil {
		return nil, "", 0, err
	}

	changed := e.mergeFields(&bank.Attributes, sources.ResourceTypeBank, obs.Fields)

	if len(obs.Departments) > 0 {
		merged, deptChanged := e.policy.MergeDepartments(bank.Departments, obs.Departments)
		bank.Departments = merged
		changed += deptChanged
	}

	bank.RecordSource(obs.Source)
	bank.RecordSourceURL(obs.SourceURL)
	if obs.Verified {
		if bank.LastVerified == nil || obs.ObservedAt.After(*bank.LastVerified) {
			verified := obs.ObservedAt
			bank.LastVerified = &verified
		}
	}

	for _, leaderObs := range obs.Leaders {
		person, _, leaderChanged, err := e.reconcilePerson(ctx, leaderObs, key)
		if err != nil {
			// A bad leader record fails only itself; the bank merge
			// continues with the rest of the observation.
			logging.Ctx(ctx).Warn().
				Err(err).
				Str("entity_key", key).
				Str("source", string(obs.Source)).
				Msg("Skipping leader observation")
			continue
		}
		if !bank.HasLeader(person.Key) {
			bank.AddLeader(person.Key)
			changed++
		}
		changed += leaderChanged
	}

	leaders, err := e.loadLeaders(ctx, bank)
	if err != nil {
		return nil, "", 0, err
	}
	e.calc.ScoreBank(bank, leaders)
	bank.Touch(e.now())

	if err := e.withRetry(ctx, key, func() error { return e.store.UpsertBank(ctx, bank) }); err != nil {
		return nil, "", 0, err
	}

	outcome := OutcomeUpdated
	if created {
		outcome = OutcomeCreated
	}
	logging.Ctx(ctx).Debug().
		Str("entity_key", key).
		Str("source", string(obs.Source)).
		Str("outcome", string(outcome)).
		Int("fields_changed", changed).
		Msg("Reconciled bank observation")
	return bank, outcome, changed, nil
}

func (e *Engine) reconcilePerson(ctx context.Context, obs entities.Observation, employerKey string) (*entities.PersonEntity, Outcome, int, error) {
	if obs.Resource != sources.ResourceTypePerson {
		return nil, "", 0, errors.NewValidationError("resource", string(obs.Resource), "not a person observation")
	}
	if err := obs.Validate(); err != nil {
		return nil, "", 0, err
	}

	candidates, err := e.personCandidates(ctx, obs)
	if err != nil {
		return nil, "", 0, err
	}

	key := obs.IdentityKey()
	var ambiguous *errors.AmbiguousMatchError
	target, matchErr := e.matcher.MatchPerson(obs, employerKey, candidates)
	switch {
	case target != nil:
		key = target.Key
	case matchErr != nil && errors.As(matchErr, &ambiguous):
		// Never auto-merge an unconfirmed person resemblance: a new
		// flagged entity is created under the observation's own key.
	case matchErr != nil:
		return nil, "", 0, matchErr
	}

	unlock := e.locks.acquire(key)
	defer unlock()

	person, created, err := e.loadPerson(ctx, key)
	if err != nil {
		return nil, "", 0, err
	}

	changed := e.mergeFields(&person.Attributes, sources.ResourceTypePerson, obs.Fields)

	if employerKey == "" && obs.Employer != "" {
		employerKey = entities.BankNameKey(obs.Employer)
	}
	if employerKey != "" && !person.EmployedBy(employerKey) {
		person.AddEmployer(employerKey)
		changed++
	}
	person.DataSources.Record(obs.Source)

	outcome := OutcomeUpdated
	if created {
		outcome = OutcomeCreated
	}
	if ambiguous != nil {
		person.Flag(ManualReviewFlag)
		outcome = OutcomeMergedAmbiguous
		logging.Ctx(ctx).Warn().
			Str("entity_key", key).
			Str("candidate_key", ambiguous.CandidateKey).
			Str("reason", ambiguous.Reason).
			Msg("Ambiguous person match flagged for manual review")
	}

	e.calc.ScorePerson(person)
	person.Touch(e.now())

	if err := e.withRetry(ctx, key, func() error { return e.store.UpsertPerson(ctx, person) }); err != nil {
		return nil, "", 0, err
	}
	return person, outcome, changed, nil
}

// personCandidates gathers possible matches for a person observation:
// same-name persons plus, when the observation carries a handle, the
// person stored under that handle key.
func (e *Engine) personCandidates(ctx context.Context, obs entities.Observation) ([]*entities.PersonEntity, error) {
	candidates, err := e.store.PersonsNamed(ctx, obs.Name)
	if err != nil {
		return nil, err
	}
	if obs.ProfileHandle == "" {
		return candidates, nil
	}

	handleKey := entities.PersonHandleKey(obs.ProfileHandle)
	for _, c := range candidates {
		if c.Key == handleKey {
			return candidates, nil
		}
	}
	byHandle, err := e.store.Person(ctx, handleKey)
	if err != nil {
		if errors.IsNotFound(err) {
			return candidates, nil
		}
		return nil, err
	}
	return append(candidates, byHandle), nil
}

func (e *Engine) loadBank(ctx context.Context, key string) (*entities.BankEntity, bool, error) {
	bank, err := e.store.Bank(ctx, key)
	if err == nil {
		return bank, false, nil
	}
	if errors.IsNotFound(err) {
		return entities.NewBank(key), true, nil
	}
	return nil, false, err
}

func (e *Engine) loadPerson(ctx context.Context, key string) (*entities.PersonEntity, bool, error) {
	person, err := e.store.Person(ctx, key)
	if err == nil {
		return person, false, nil
	}
	if errors.IsNotFound(err) {
		return entities.NewPerson(key), true, nil
	}
	return nil, false, err
}

// loadLeaders resolves the person records behind a bank's leadership
// references for scoring. Dangling references score as unsatisfied rather
// than failing the merge.
func (e *Engine) loadLeaders(ctx context.Context, bank *entities.BankEntity) ([]*entities.PersonEntity, error) {
	if len(bank.Leadership) == 0 {
		return nil, nil
	}
	leaders := make([]*entities.PersonEntity, 0, len(bank.Leadership))
	for _, key := range bank.Leadership {
		person, err := e.store.Person(ctx, key)
		if err != nil {
			if errors.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		leaders = append(leaders, person)
	}
	return leaders, nil
}

// mergeFields applies the merge policy field by field, returning how many
// fields actually changed.
func (e *Engine) mergeFields(attrs *entities.Attributes, resource sources.ResourceType, fields map[entities.Field]entities.FieldValue) int {
	changed := 0
	for f, incoming := range fields {
		existing, ok := attrs.Field(f)
		var existingPtr *entities.FieldValue
		if ok {
			existingPtr = &existing
		}

		merged := e.policy.Merge(resource, existingPtr, incoming)
		if !ok || !entities.EqualValue(merged.Value, existing.Value) || merged.Source != existing.Source || len(merged.Notes) != len(existing.Notes) {
			changed++
		}
		attrs.SetField(f, merged)
	}
	return changed
}

// withRetry runs a storage write, retrying once after a backoff before
// surfacing the failure.
func (e *Engine) withRetry(ctx context.Context, key string, op func() error) error {
	err := op()
	if err == nil {
		return nil
	}

	logging.Ctx(ctx).Warn().
		Err(err).
		Str("entity_key", key).
		Msg("Storage write failed, retrying once")

	select {
	case <-ctx.Done():
		return err
	case <-time.After(e.retryBackoff):
	}

	if retryErr := op(); retryErr != nil {
		return errors.NewStorageError("upsert", key, retryErr)
	}
	return nil
}
