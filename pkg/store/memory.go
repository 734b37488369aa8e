package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bankatlas/bankatlas/pkg/entities"
	"github.com/bankatlas/bankatlas/pkg/errors"
)

// Memory is the in-memory Store implementation. All methods copy records
// on the way in and out so callers never alias stored state.
type Memory struct {
	mu      sync.RWMutex
	banks   map[string]*entities.BankEntity
	persons map[string]*entities.PersonEntity
	tasks   map[string]entities.ResearchTask
	logs    []entities.CollectionLogEntry
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		banks:   make(map[string]*entities.BankEntity),
		persons: make(map[string]*entities.PersonEntity),
		tasks:   make(map[string]entities.ResearchTask),
	}
}

// Bank implements Store.
func (m *Memory) Bank(ctx context.Context, key string) (*entities.BankEntity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.banks[key]
	if !ok {
		return nil, errors.NewNotFoundError("bank", key)
	}
	return b.Clone(), nil
}

// Banks implements Store.
func (m *Memory) Banks(ctx context.Context) ([]*entities.BankEntity, error) {
	return m.QueryBanks(ctx, Query{})
}

// QueryBanks implements Store.
func (m *Memory) QueryBanks(ctx context.Context, q Query) ([]*entities.BankEntity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*entities.BankEntity, 0, len(m.banks))
	for _, b := range m.banks {
		if q.matches(b) {
			out = append(out, b.Clone())
		}
	}

	// Ranked banks first, by rank; unranked after, by key for stable
	// output.
	sort.Slice(out, func(i, j int) bool {
		ri, rj := out[i].AssetRank(), out[j].AssetRank()
		switch {
		case ri > 0 && rj > 0 && ri != rj:
			return ri < rj
		case ri > 0 && rj == 0:
			return true
		case ri == 0 && rj > 0:
			return false
		default:
			return out[i].Key < out[j].Key
		}
	})

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// UpsertBank implements Store.
func (m *Memory) UpsertBank(ctx context.Context, bank *entities.BankEntity) error {
	if bank == nil || bank.Key == "" {
		return errors.NewValidationError("key", "", "bank has no identity key")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.banks[bank.Key] = bank.Clone()
	return nil
}

// Person implements Store.
func (m *Memory) Person(ctx context.Context, key string) (*entities.PersonEntity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.persons[key]
	if !ok {
		return nil, errors.NewNotFoundError("person", key)
	}
	return p.Clone(), nil
}

// Persons implements Store.
func (m *Memory) Persons(ctx context.Context) ([]*entities.PersonEntity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*entities.PersonEntity, 0, len(m.persons))
	for _, p := range m.persons {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// PersonsNamed implements Store.
func (m *Memory) PersonsNamed(ctx context.Context, name string) ([]*entities.PersonEntity, error) {
	normalized := entities.NormalizeName(name)
	if normalized == "" {
		return nil, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*entities.PersonEntity
	for _, p := range m.persons {
		if entities.NormalizeName(p.Name()) == normalized {
			out = append(out, p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// UpsertPerson implements Store.
func (m *Memory) UpsertPerson(ctx context.Context, person *entities.PersonEntity) error {
	if person == nil || person.Key == "" {
		return errors.NewValidationError("key", "", "person has no identity key")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.persons[person.Key] = person.Clone()
	return nil
}

// SaveTask implements Store.
func (m *Memory) SaveTask(ctx context.Context, task entities.ResearchTask) error {
	if task.ID == "" {
		return errors.NewValidationError("id", "", "task has no id")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[task.ID] = task
	return nil
}

// Tasks implements Store.
func (m *Memory) Tasks(ctx context.Context, f TaskFilter) ([]entities.ResearchTask, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]entities.ResearchTask, 0, len(m.tasks))
	for _, t := range m.tasks {
		if f.matches(t) {
			out = append(out, t)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})

	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// AppendLog implements Store.
func (m *Memory) AppendLog(ctx context.Context, entry entities.CollectionLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, entry)
	return nil
}

// Logs implements Store.
func (m *Memory) Logs(ctx context.Context, limit int) ([]entities.CollectionLogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]entities.CollectionLogEntry, len(m.logs))
	copy(out, m.logs)

	// Newest first.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Stats implements Store.
func (m *Memory) Stats(ctx context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := Stats{
		TotalBanks:   len(m.banks),
		TotalPersons: len(m.persons),
	}

	completenessSum := 0.0
	for _, b := range m.banks {
		completenessSum += b.Completeness
		if b.HasMRMData() {
			stats.BanksWithMRMData++
		}
	}
	if stats.TotalBanks > 0 {
		stats.MRMCoveragePercent = 100 * float64(stats.BanksWithMRMData) / float64(stats.TotalBanks)
		stats.AverageCompleteness = completenessSum / float64(stats.TotalBanks)
	}

	for _, t := range m.tasks {
		if t.Status == entities.TaskPending {
			stats.PendingTasks++
		}
	}

	cutoff := time.Now().Add(-recentWindow)
	for _, entry := range m.logs {
		if entry.Timestamp.After(cutoff) {
			stats.RecentCollections++
		}
	}

	return stats, nil
}

var _ Store = (*Memory)(nil)
