package orchestrate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/bankatlas/bankatlas/pkg/entities"
	"github.com/bankatlas/bankatlas/pkg/errors"
	"github.com/bankatlas/bankatlas/pkg/logging"
	"github.com/bankatlas/bankatlas/pkg/reconcile"
	"github.com/bankatlas/bankatlas/pkg/store"
)

// BatchState is the lifecycle state of a collection batch.
type BatchState string

// Batch states. Failed is reserved for orchestration errors that make the
// whole batch unrunnable; per-entity collector failures lead to
// PartiallyFailed at worst.
const (
	BatchPending         BatchState = "pending"
	BatchRunning         BatchState = "running"
	BatchCompleted       BatchState = "completed"
	BatchPartiallyFailed BatchState = "partially_failed"
	BatchFailed          BatchState = "failed"
)

// Defaults for the batch knobs; all overridable via options.
const (
	DefaultSubBatchSize = 5
	DefaultConcurrency  = 3
	DefaultSourceDelay  = 2 * time.Second
	DefaultCooldown     = 5 * time.Second
)

// BatchResult summarizes one orchestrated collection batch.
type BatchResult struct {
	BatchID  string     `json:"batch_id"`
	State    BatchState `json:"state"`
	Started  time.Time  `json:"started"`
	Finished time.Time  `json:"finished"`

	Targets        int  `json:"targets"`
	Succeeded      int  `json:"succeeded"`
	Failed         int  `json:"failed"`
	Observations   int  `json:"observations"`
	RecordsChanged int  `json:"records_changed"`
	Ambiguous      int  `json:"ambiguous"`
	Canceled       bool `json:"canceled,omitempty"`
}

// Summary renders a one-line human-readable account of the batch.
func (r *BatchResult) Summary() string {
	return fmt.Sprintf("batch %s %s: %d targets, %d succeeded, %d failed, %d observations, %d records changed in %s",
		r.BatchID, r.State, r.Targets, r.Succeeded, r.Failed,
		r.Observations, r.RecordsChanged, r.Finished.Sub(r.Started).Round(time.Millisecond))
}

// Orchestrator runs collection batches.
type Orchestrator struct {
	store      store.Store
	engine     *reconcile.Engine
	collectors []Collector

	subBatchSize int
	concurrency  int
	sourceDelay  time.Duration
	cooldown     time.Duration
	now          func() time.Time
	newID        func() string
}

// Option configures the orchestrator.
type Option func(*Orchestrator)

// WithSubBatchSize sets how many targets one sub-batch holds.
func WithSubBatchSize(n int) Option {
	return func(o *Orchestrator) { o.subBatchSize = n }
}

// WithConcurrency bounds how many targets of a sub-batch are processed at
// once.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) { o.concurrency = n }
}

// WithSourceDelay sets the mandatory minimum delay between consecutive
// hits to the same source.
func WithSourceDelay(d time.Duration) Option {
	return func(o *Orchestrator) { o.sourceDelay = d }
}

// WithCooldown sets the pause between sub-batches.
func WithCooldown(d time.Duration) Option {
	return func(o *Orchestrator) { o.cooldown = d }
}

// WithClock overrides the orchestrator's time source.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithIDGenerator overrides batch id generation.
func WithIDGenerator(newID func() string) Option {
	return func(o *Orchestrator) { o.newID = newID }
}

// New creates an orchestrator feeding the given engine from the given
// collectors.
func New(st store.Store, engine *reconcile.Engine, collectors []Collector, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:        st,
		engine:       engine,
		collectors:   collectors,
		subBatchSize: DefaultSubBatchSize,
		concurrency:  DefaultConcurrency,
		sourceDelay:  DefaultSourceDelay,
		cooldown:     DefaultCooldown,
		now:          time.Now,
		newID:        uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes one collection batch over the targets: fixed-size
// sub-batches processed sequentially, bounded concurrency inside each
// sub-batch, a minimum delay between hits to the same source, and a
// cooldown between sub-batches.
//
// Collector failures are logged and counted per entity; the batch keeps
// going. Cancellation lets in-flight fetches finish and stops before the
// next sub-batch. Only configuration errors return a non-nil error, with
// the batch marked Failed.
func (o *Orchestrator) Run(ctx context.Context, targets []Target) (*BatchResult, error) {
	result := &BatchResult{
		BatchID: o.newID(),
		State:   BatchPending,
		Started: o.now(),
		Targets: len(targets),
	}

	if err := o.validate(); err != nil {
		result.State = BatchFailed
		result.Finished = o.now()
		return result, err
	}

	ctx = logging.WithBatchID(ctx, result.BatchID)
	log := logging.Ctx(ctx)
	log.Info().
		Int("targets", len(targets)).
		Int("sub_batch_size", o.subBatchSize).
		Int("concurrency", o.concurrency).
		Msg("Starting collection batch")

	result.State = BatchRunning
	gate := newSourceGate(o.sourceDelay)

	var mu sync.Mutex
	for start := 0; start < len(targets); start += o.subBatchSize {
		if ctx.Err() != nil {
			result.Canceled = true
			break
		}

		end := start + o.subBatchSize
		if end > len(targets) {
			end = len(targets)
		}

		fetchCtx := context.WithoutCancel(ctx)
		var g errgroup.Group
		g.SetLimit(o.concurrency)
		for _, target := range targets[start:end] {
			target := target
			g.Go(func() error {
				outcome := o.collectTarget(fetchCtx, ctx, gate, target)
				mu.Lock()
				if outcome.failed {
					result.Failed++
				} else {
					result.Succeeded++
				}
				result.Observations += outcome.observations
				result.RecordsChanged += outcome.changed
				result.Ambiguous += outcome.ambiguous
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()

		if end < len(targets) && o.cooldown > 0 {
			select {
			case <-ctx.Done():
				result.Canceled = true
			case <-time.After(o.cooldown):
			}
			if result.Canceled {
				break
			}
		}
	}

	result.Finished = o.now()
	switch {
	case result.Failed > 0:
		result.State = BatchPartiallyFailed
	case result.Canceled && result.Succeeded < result.Targets:
		// Cancellation skipped targets; the batch did not complete.
		result.State = BatchPartiallyFailed
	default:
		result.State = BatchCompleted
	}

	log.Info().
		Str("state", string(result.State)).
		Int("succeeded", result.Succeeded).
		Int("failed", result.Failed).
		Int("records_changed", result.RecordsChanged).
		Bool("canceled", result.Canceled).
		Msg("Collection batch finished")
	return result, nil
}

func (o *Orchestrator) validate() error {
	if o.engine == nil {
		return errors.NewOrchestrationError("orchestrator", "no reconciliation engine configured", nil)
	}
	if len(o.collectors) == 0 {
		return errors.NewOrchestrationError("orchestrator", "no collectors configured", nil)
	}
	if o.subBatchSize <= 0 {
		return errors.NewOrchestrationError("orchestrator", "sub-batch size must be positive", nil)
	}
	if o.concurrency <= 0 {
		return errors.NewOrchestrationError("orchestrator", "concurrency must be positive", nil)
	}
	return nil
}

// targetOutcome accumulates what happened for one target across all
// sources.
type targetOutcome struct {
	failed       bool
	observations int
	changed      int
	ambiguous    int
}

// collectTarget runs every collector against one target. fetchCtx stays
// alive through cancellation so in-flight work finishes; cancelCtx is the
// caller's context and stops the remaining sources.
func (o *Orchestrator) collectTarget(fetchCtx, cancelCtx context.Context, gate *sourceGate, target Target) targetOutcome {
	log := logging.Ctx(fetchCtx)
	var outcome targetOutcome

	for _, collector := range o.collectors {
		if cancelCtx.Err() != nil {
			break
		}
		src := collector.Source()

		if err := gate.wait(cancelCtx, src); err != nil {
			break
		}

		started := o.now()
		observations, err := collector.Fetch(fetchCtx, target)
		duration := o.now().Sub(started)

		if err != nil {
			outcome.failed = true
			log.Warn().
				Err(err).
				Str("entity_key", target.EntityKey).
				Str("source", string(src)).
				Msg("Collection attempt failed")
			o.appendLog(fetchCtx, entities.CollectionLogEntry{
				EntityKey: target.EntityKey,
				Source:    src,
				Kind:      entities.CollectionExtraction,
				Status:    entities.CollectionFailed,
				Errors:    1,
				Duration:  duration,
				Detail:    err.Error(),
				Timestamp: o.now(),
			})
			continue
		}

		report := o.engine.ReconcileAll(fetchCtx, observations)
		outcome.observations += len(observations)
		outcome.changed += report.Changed
		outcome.ambiguous += report.Ambiguous
		if report.Failed > 0 {
			outcome.failed = true
		}

		status := entities.CollectionSuccess
		if report.Failed > 0 {
			status = entities.CollectionPartial
		}
		o.appendLog(fetchCtx, entities.CollectionLogEntry{
			EntityKey:      target.EntityKey,
			Source:         src,
			Kind:           entities.CollectionExtraction,
			Status:         status,
			RecordsChanged: report.Changed,
			Errors:         report.Failed,
			Duration:       duration,
			Timestamp:      o.now(),
		})
	}
	return outcome
}

func (o *Orchestrator) appendLog(ctx context.Context, entry entities.CollectionLogEntry) {
	if err := o.store.AppendLog(ctx, entry); err != nil {
		logging.Ctx(ctx).Error().
			Err(err).
			Str("entity_key", entry.EntityKey).
			Msg("Failed to append collection log entry")
	}
}
