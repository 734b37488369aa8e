// Package reconcile drives the merge of observation streams into the
// canonical entity set. The engine wires the matcher, merge policy, and
// score calculator together under per-identity-key locking: merges for
// one entity are serialized while different entities merge concurrently.
package reconcile

import (
	"time"

	"github.com/bankatlas/bankatlas/pkg/match"
	"github.com/bankatlas/bankatlas/pkg/merge"
	"github.com/bankatlas/bankatlas/pkg/score"
	"github.com/bankatlas/bankatlas/pkg/sources"
	"github.com/bankatlas/bankatlas/pkg/store"
)

// Outcome classifies what a reconciliation did to the entity set.
type Outcome string

// Merge outcomes.
const (
	// OutcomeCreated means a new entity was created for a previously
	// unseen identity key.
	OutcomeCreated Outcome = "created"

	// OutcomeUpdated means an existing entity absorbed the observation.
	OutcomeUpdated Outcome = "updated"

	// OutcomeMergedAmbiguous means the observation resembled an existing
	// entity but could not be confirmed; a new flagged entity was created
	// instead of merging.
	OutcomeMergedAmbiguous Outcome = "merged_ambiguous"
)

// ManualReviewFlag marks entities created from ambiguous matches for
// human reconciliation review.
const ManualReviewFlag = "manual_review"

// defaultRetryBackoff is the pause before the single storage retry.
const defaultRetryBackoff = 250 * time.Millisecond

// Engine is the reconciliation engine.
type Engine struct {
	store   store.Store
	policy  *merge.Policy
	matcher *match.Matcher
	calc    *score.Calculator

	locks        *keyLocks
	retryBackoff time.Duration
	now          func() time.Time
}

// Option configures the engine.
type Option func(*Engine)

// WithWeights overrides the reliability-weight table used for merging and
// confidence scoring.
func WithWeights(weights sources.Weights) Option {
	return func(e *Engine) {
		e.policy = merge.NewPolicy(weights)
		e.calc = score.NewCalculator(weights)
	}
}

// WithRetryBackoff overrides the pause before the single storage retry.
func WithRetryBackoff(d time.Duration) Option {
	return func(e *Engine) {
		e.retryBackoff = d
	}
}

// WithClock overrides the engine's time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New creates a reconciliation engine over the given store.
func New(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:        s,
		policy:       merge.NewPolicy(nil),
		matcher:      match.NewMatcher(),
		calc:         score.NewCalculator(nil),
		locks:        newKeyLocks(),
		retryBackoff: defaultRetryBackoff,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}
