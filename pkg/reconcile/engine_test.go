package reconcile

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bankatlas/bankatlas/pkg/entities"
	"github.com/bankatlas/bankatlas/pkg/errors"
	"github.com/bankatlas/bankatlas/pkg/sources"
	"github.com/bankatlas/bankatlas/pkg/store"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func registryObservation(certID int, name string, assetsMillions float64) entities.Observation {
	obs := entities.NewBankObservation(sources.RegistryAPI, name, baseTime)
	obs.CertID = certID
	obs = obs.WithField(entities.FieldBankName, name)
	obs = obs.WithField(entities.FieldCertID, certID)
	obs = obs.WithField(entities.FieldTotalAssets, assetsMillions)
	return obs
}

func TestReconcileCreatesThenUpdates(t *testing.T) {
	ctx := context.Background()
	e := New(store.NewMemory())

	bank, outcome, err := e.ReconcileBank(ctx, registryObservation(628, "Bank of America", 1000000))
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, outcome)
	assert.Equal(t, "cert:628", bank.Key)
	assert.Equal(t, entities.SizeMega, bank.SizeCategory())

	obs := entities.NewBankObservation(sources.OfficialWebsite, "Bank of America", baseTime.Add(time.Hour))
	obs.CertID = 628
	obs = obs.WithField(entities.FieldHQCity, "Charlotte")

	bank, outcome, err = e.ReconcileBank(ctx, obs)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, outcome)
	assert.Equal(t, "Charlotte", bank.StringField(entities.FieldHQCity))
	assert.InDelta(t, 1000000, bank.TotalAssets(), 1e-9)
	assert.True(t, bank.DataSources.Has(sources.RegistryAPI))
	assert.True(t, bank.DataSources.Has(sources.OfficialWebsite))
}

func TestReconcileIdempotent(t *testing.T) {
	ctx := context.Background()
	e := New(store.NewMemory())
	obs := registryObservation(628, "Bank of America", 1000000)

	first, err := e.Reconcile(ctx, obs)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, first.Outcome)
	assert.Greater(t, first.FieldsChanged, 0)

	second, err := e.Reconcile(ctx, obs)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, second.Outcome)
	assert.Equal(t, 0, second.FieldsChanged)

	bank, err := e.store.Bank(ctx, "cert:628")
	require.NoError(t, err)
	assert.InDelta(t, 1000000, bank.TotalAssets(), 1e-9)
	assert.Len(t, bank.FieldHistory(entities.FieldTotalAssets), 0)
}

func TestReconcileSliceValuedFields(t *testing.T) {
	ctx := context.Background()
	e := New(store.NewMemory())

	// Field values are any-typed; uncomparable kinds like []string must
	// merge like any other value instead of taking down the stream.
	first := entities.NewBankObservation(sources.ManualEntry, "Bank of America", baseTime)
	first.CertID = 628
	first = first.WithField(entities.FieldNotes, []string{"validation", "governance"})

	second := entities.NewBankObservation(sources.ManualEntry, "Bank of America", baseTime)
	second.CertID = 628
	second = second.WithField(entities.FieldNotes, []string{"validation", "audit"})

	report := e.ReconcileAll(ctx, []entities.Observation{first, second})
	assert.Equal(t, 0, report.Failed)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 1, report.Updated)

	// Exact tie: the first value is kept, the second annotated.
	bank, err := e.store.Bank(ctx, "cert:628")
	require.NoError(t, err)
	notes, _ := bank.Field(entities.FieldNotes)
	assert.Equal(t, []string{"validation", "governance"}, notes.Value)
	assert.Len(t, notes.Notes, 1)

	// Replaying an identical slice value changes nothing.
	replay, err := e.Reconcile(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, 0, replay.FieldsChanged)
}

func TestReconcilePrecedenceRegardlessOfOrder(t *testing.T) {
	registry := registryObservation(628, "Bank of America", 1000000)
	manual := entities.NewBankObservation(sources.ManualEntry, "Bank of America", baseTime.Add(time.Hour))
	manual.CertID = 628
	manual = manual.WithField(entities.FieldTotalAssets, 950000.0)

	for name, order := range map[string][]entities.Observation{
		"registry first": {registry, manual},
		"manual first":   {manual, registry},
	} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			e := New(store.NewMemory())

			report := e.ReconcileAll(ctx, order)
			assert.Equal(t, 0, report.Failed)

			bank, err := e.store.Bank(ctx, "cert:628")
			require.NoError(t, err)
			assert.InDelta(t, 1000000, bank.TotalAssets(), 1e-9)
			assert.Equal(t, entities.SizeMega, bank.SizeCategory())
		})
	}
}

func TestReconcileNoDuplicatesUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	e := New(store.NewMemory())
	obs := registryObservation(628, "Bank of America", 1000000)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.Reconcile(ctx, obs)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	banks, err := e.store.Banks(ctx)
	require.NoError(t, err)
	require.Len(t, banks, 1)
	assert.Equal(t, "cert:628", banks[0].Key)
}

func TestReconcileMatchesExistingByName(t *testing.T) {
	ctx := context.Background()
	e := New(store.NewMemory())

	// First seen without a cert id, keyed by normalized name.
	first := entities.NewBankObservation(sources.OfficialWebsite, "Wells Fargo Bank, N.A.", baseTime)
	first = first.WithField(entities.FieldBankName, "Wells Fargo Bank, N.A.")
	bank, outcome, err := e.ReconcileBank(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, outcome)
	nameKey := bank.Key

	// The registry later reports the same institution with a cert id; the
	// name match routes it to the existing entity and the key stays.
	second := registryObservation(3511, "Wells Fargo Bank National Association", 1700000)
	bank, outcome, err = e.ReconcileBank(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, outcome)
	assert.Equal(t, nameKey, bank.Key)
	assert.Equal(t, 3511, bank.CertID())

	banks, err := e.store.Banks(ctx)
	require.NoError(t, err)
	assert.Len(t, banks, 1)
}

func TestReconcileNestedLeaders(t *testing.T) {
	ctx := context.Background()
	e := New(store.NewMemory())

	leader := entities.NewPersonObservation(sources.ProfessionalNetwork, "Jane Doe", "Bank of America", baseTime)
	leader.ProfileHandle = "jane-doe"
	leader = leader.WithField(entities.FieldPersonName, "Jane Doe")
	leader = leader.WithField(entities.FieldTitle, "Head of Model Risk")

	obs := registryObservation(628, "Bank of America", 1000000)
	obs.Leaders = []entities.Observation{leader}

	bank, _, err := e.ReconcileBank(ctx, obs)
	require.NoError(t, err)
	require.Len(t, bank.Leadership, 1)
	assert.Equal(t, "handle:jane-doe", bank.Leadership[0])

	person, err := e.store.Person(ctx, "handle:jane-doe")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", person.Name())
	assert.True(t, person.EmployedBy("cert:628"))
	assert.InDelta(t, 0.80, person.Confidence, 1e-9)

	// Leader name and title satisfy their checklist items.
	withLeaders := bank.Completeness
	assert.Greater(t, withLeaders, 0.0)

	// Replaying the full observation changes nothing.
	res, err := e.Reconcile(ctx, obs)
	require.NoError(t, err)
	assert.Equal(t, 0, res.FieldsChanged)
}

func TestReconcileAmbiguousPersonNeverAutoMerges(t *testing.T) {
	ctx := context.Background()
	e := New(store.NewMemory())

	seeded := entities.NewPersonObservation(sources.ProfessionalNetwork, "John Smith", "Bank of America", baseTime)
	seeded.ProfileHandle = "john-smith-1"
	seeded = seeded.WithField(entities.FieldPersonName, "John Smith")
	_, outcome, err := e.ReconcilePerson(ctx, seeded)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, outcome)

	// Same name and employer but no handle: resembles the seeded person,
	// cannot be confirmed, so a flagged new entity is created.
	unconfirmed := entities.NewPersonObservation(sources.OfficialWebsite, "John Smith", "Bank of America", baseTime.Add(time.Hour))
	unconfirmed = unconfirmed.WithField(entities.FieldPersonName, "John Smith")

	person, outcome, err := e.ReconcilePerson(ctx, unconfirmed)
	require.NoError(t, err)
	assert.Equal(t, OutcomeMergedAmbiguous, outcome)
	assert.Contains(t, person.Flags, ManualReviewFlag)
	assert.NotEqual(t, "handle:john-smith-1", person.Key)

	persons, err := e.store.Persons(ctx)
	require.NoError(t, err)
	assert.Len(t, persons, 2)
}

func TestReconcileSameNameDifferentBanksStayDistinct(t *testing.T) {
	ctx := context.Background()
	e := New(store.NewMemory())

	mk := func(bank string) entities.Observation {
		obs := entities.NewPersonObservation(sources.OfficialWebsite, "John Smith", bank, baseTime)
		return obs.WithField(entities.FieldPersonName, "John Smith")
	}

	first, outcome, err := e.ReconcilePerson(ctx, mk("Bank of America"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, outcome)

	second, outcome, err := e.ReconcilePerson(ctx, mk("Wells Fargo"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, outcome)
	assert.NotEqual(t, first.Key, second.Key)
	assert.Empty(t, second.Flags)
}

func TestReconcileVerifiedStampsLastVerified(t *testing.T) {
	ctx := context.Background()
	e := New(store.NewMemory())

	obs := registryObservation(628, "Bank of America", 1000000)
	obs.Verified = true

	bank, _, err := e.ReconcileBank(ctx, obs)
	require.NoError(t, err)
	require.NotNil(t, bank.LastVerified)
	assert.True(t, bank.LastVerified.Equal(baseTime))

	// An older verification never moves the stamp backwards.
	older := registryObservation(628, "Bank of America", 1000000)
	older.Verified = true
	older.ObservedAt = baseTime.Add(-24 * time.Hour)

	bank, _, err = e.ReconcileBank(ctx, older)
	require.NoError(t, err)
	assert.True(t, bank.LastVerified.Equal(baseTime))
}

func TestReconcileAllIsolatesMalformedObservations(t *testing.T) {
	ctx := context.Background()
	e := New(store.NewMemory())

	bad := entities.Observation{Resource: sources.ResourceTypeBank, Source: sources.RegistryAPI}
	good := registryObservation(628, "Bank of America", 1000000)

	report := e.ReconcileAll(ctx, []entities.Observation{bad, good})
	require.Len(t, report.Results, 2)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Created)
	assert.True(t, errors.IsValidation(report.Results[0].Err))

	banks, err := e.store.Banks(ctx)
	require.NoError(t, err)
	assert.Len(t, banks, 1)
}

// flakyStore fails the first upsert to exercise the single retry.
type flakyStore struct {
	store.Store
	mu       sync.Mutex
	failures int
	attempts int
}

func (f *flakyStore) UpsertBank(ctx context.Context, bank *entities.BankEntity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if f.failures > 0 {
		f.failures--
		return errors.NewStorageError("upsert", bank.Key, errors.New("disk full"))
	}
	return f.Store.UpsertBank(ctx, bank)
}

func TestReconcileRetriesStorageOnce(t *testing.T) {
	ctx := context.Background()

	flaky := &flakyStore{Store: store.NewMemory(), failures: 1}
	e := New(flaky, WithRetryBackoff(time.Millisecond))

	_, outcome, err := e.ReconcileBank(ctx, registryObservation(628, "Bank of America", 1000000))
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, outcome)
	assert.Equal(t, 2, flaky.attempts)

	// Two consecutive failures exhaust the retry and surface the error.
	flaky = &flakyStore{Store: store.NewMemory(), failures: 2}
	e = New(flaky, WithRetryBackoff(time.Millisecond))

	_, _, err = e.ReconcileBank(ctx, registryObservation(628, "Bank of America", 1000000))
	require.Error(t, err)
	assert.True(t, errors.IsStorage(err))
	assert.Equal(t, 2, flaky.attempts)
}
