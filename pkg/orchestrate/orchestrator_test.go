package orchestrate

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bankatlas/bankatlas/pkg/entities"
	"github.com/bankatlas/bankatlas/pkg/errors"
	"github.com/bankatlas/bankatlas/pkg/reconcile"
	"github.com/bankatlas/bankatlas/pkg/sources"
	"github.com/bankatlas/bankatlas/pkg/store"
)

var batchTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeCollector yields one bank observation per target and records which
// targets it saw.
type fakeCollector struct {
	src  sources.Type
	mu   sync.Mutex
	seen []Target
	fail map[int]error // keyed by cert id
}

func (f *fakeCollector) Source() sources.Type { return f.src }

func (f *fakeCollector) Fetch(ctx context.Context, target Target) ([]entities.Observation, error) {
	f.mu.Lock()
	f.seen = append(f.seen, target)
	f.mu.Unlock()

	if err, ok := f.fail[target.CertID]; ok {
		return nil, err
	}

	obs := entities.NewBankObservation(f.src, target.Name, batchTime)
	obs.CertID = target.CertID
	obs = obs.WithField(entities.FieldBankName, target.Name)
	obs = obs.WithField(entities.FieldCertID, target.CertID)
	return []entities.Observation{obs}, nil
}

func (f *fakeCollector) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.seen)
}

func fastOptions() []Option {
	return []Option{
		WithSourceDelay(0),
		WithCooldown(0),
		WithSubBatchSize(2),
		WithConcurrency(2),
	}
}

func targetsN(n int) []Target {
	out := make([]Target, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, Target{
			EntityKey: entities.BankCertKey(i),
			Name:      "Bank " + string(rune('A'+i-1)),
			CertID:    i,
		})
	}
	return out
}

func TestRunCompletedBatch(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	engine := reconcile.New(st)
	collector := &fakeCollector{src: sources.RegistryAPI}

	o := New(st, engine, []Collector{collector}, fastOptions()...)
	result, err := o.Run(ctx, targetsN(5))
	require.NoError(t, err)

	assert.Equal(t, BatchCompleted, result.State)
	assert.Equal(t, 5, result.Targets)
	assert.Equal(t, 5, result.Succeeded)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, 5, result.Observations)
	assert.False(t, result.Canceled)
	assert.Equal(t, 5, collector.count())

	banks, err := st.Banks(ctx)
	require.NoError(t, err)
	assert.Len(t, banks, 5)

	// One log entry per (target, source) attempt.
	logs, err := st.Logs(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, logs, 5)
	for _, entry := range logs {
		assert.Equal(t, entities.CollectionSuccess, entry.Status)
	}

	assert.Contains(t, result.Summary(), "5 targets")
}

func TestRunPartiallyFailedBatch(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	engine := reconcile.New(st)
	collector := &fakeCollector{
		src:  sources.RegistryAPI,
		fail: map[int]error{2: errors.NewCollectorError("registry-api", "cert:2", "fetch", errors.New("503"))},
	}

	o := New(st, engine, []Collector{collector}, fastOptions()...)
	result, err := o.Run(ctx, targetsN(3))
	require.NoError(t, err)

	assert.Equal(t, BatchPartiallyFailed, result.State)
	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 1, result.Failed)

	// The failed attempt is audited, and the batch carried on past it.
	logs, err := st.Logs(ctx, 0)
	require.NoError(t, err)
	failed := 0
	for _, entry := range logs {
		if entry.Status == entities.CollectionFailed {
			failed++
			assert.Equal(t, "cert:2", entry.EntityKey)
			assert.Equal(t, 1, entry.Errors)
		}
	}
	assert.Equal(t, 1, failed)

	banks, err := st.Banks(ctx)
	require.NoError(t, err)
	assert.Len(t, banks, 2)
}

func TestRunMultipleSources(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	engine := reconcile.New(st)
	registry := &fakeCollector{src: sources.RegistryAPI}
	website := &fakeCollector{src: sources.OfficialWebsite}

	o := New(st, engine, []Collector{registry, website}, fastOptions()...)
	result, err := o.Run(ctx, targetsN(2))
	require.NoError(t, err)

	assert.Equal(t, BatchCompleted, result.State)
	assert.Equal(t, 4, result.Observations)
	assert.Equal(t, 2, registry.count())
	assert.Equal(t, 2, website.count())

	// Both sources fed the same entities.
	bank, err := st.Bank(ctx, "cert:1")
	require.NoError(t, err)
	assert.True(t, bank.DataSources.Has(sources.RegistryAPI))
	assert.True(t, bank.DataSources.Has(sources.OfficialWebsite))
}

func TestRunFailsOnBadConfiguration(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	engine := reconcile.New(st)

	o := New(st, engine, nil, fastOptions()...)
	result, err := o.Run(ctx, targetsN(1))
	require.Error(t, err)

	var orchestration *errors.OrchestrationError
	assert.ErrorAs(t, err, &orchestration)
	assert.Equal(t, BatchFailed, result.State)

	o = New(st, engine, []Collector{&fakeCollector{src: sources.RegistryAPI}}, WithSubBatchSize(0))
	result, err = o.Run(ctx, targetsN(1))
	require.Error(t, err)
	assert.Equal(t, BatchFailed, result.State)
}

func TestRunCancellationStopsNewSubBatches(t *testing.T) {
	st := store.NewMemory()
	engine := reconcile.New(st)

	ctx, cancel := context.WithCancel(context.Background())
	collector := &fakeCollector{src: sources.RegistryAPI}
	blocking := CollectorFunc{
		Src: sources.ThirdParty,
		Fn: func(fetchCtx context.Context, target Target) ([]entities.Observation, error) {
			// Cancel mid sub-batch; this in-flight fetch still finishes.
			cancel()
			return collector.Fetch(fetchCtx, target)
		},
	}

	o := New(st, engine, []Collector{blocking},
		WithSourceDelay(0), WithCooldown(0), WithSubBatchSize(1), WithConcurrency(1))
	result, err := o.Run(ctx, targetsN(4))
	require.NoError(t, err)

	assert.True(t, result.Canceled)
	// The first sub-batch ran to completion, later ones never started.
	assert.Equal(t, 1, collector.count())
	assert.Equal(t, 1, result.Succeeded)
	// Skipped targets mean the batch cannot report itself completed.
	assert.Equal(t, BatchPartiallyFailed, result.State)

	banks, berr := st.Banks(context.Background())
	require.NoError(t, berr)
	assert.Len(t, banks, 1)
}

func TestSourceGateSpacesHits(t *testing.T) {
	ctx := context.Background()
	gate := newSourceGate(30 * time.Millisecond)

	start := time.Now()
	require.NoError(t, gate.wait(ctx, sources.RegistryAPI))
	require.NoError(t, gate.wait(ctx, sources.RegistryAPI))
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)

	// Different sources are not serialized against each other.
	start = time.Now()
	require.NoError(t, gate.wait(ctx, sources.OfficialWebsite))
	assert.Less(t, time.Since(start), 30*time.Millisecond)
}

func TestSourceGateCancel(t *testing.T) {
	gate := newSourceGate(time.Minute)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, gate.wait(ctx, sources.RegistryAPI))
	cancel()
	assert.Error(t, gate.wait(ctx, sources.RegistryAPI))
}
