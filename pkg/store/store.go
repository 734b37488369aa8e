// Package store persists the canonical entity set, research tasks, and
// the append-only collection log. The reconciliation engine depends only
// on the Store interface; the in-memory implementation plus YAML
// snapshots cover single-process operation.
package store

import (
	"context"
	"time"

	"github.com/bankatlas/bankatlas/pkg/entities"
)

// Query filters bank listings. Zero values mean "no constraint".
type Query struct {
	// Name matches against the normalized bank name.
	Name string

	State string
	Size  entities.SizeCategory

	RankMin int
	RankMax int

	MinCompleteness float64
	// MaxCompleteness below 0 is treated as unset; 0 is a valid bound
	// only when MaxCompletenessSet is true.
	MaxCompleteness    float64
	MaxCompletenessSet bool

	// HasMRMData, when non-nil, filters on whether any department or
	// leadership data exists.
	HasMRMData *bool

	Limit int
}

// TaskFilter filters research task listings.
type TaskFilter struct {
	EntityKey string
	Type      entities.TaskType
	Statuses  []entities.TaskStatus
	Limit     int
}

// Stats summarizes the store for reporting surfaces.
type Stats struct {
	TotalBanks          int     `json:"total_banks" yaml:"total_banks"`
	TotalPersons        int     `json:"total_persons" yaml:"total_persons"`
	BanksWithMRMData    int     `json:"banks_with_mrm_data" yaml:"banks_with_mrm_data"`
	MRMCoveragePercent  float64 `json:"mrm_coverage_percent" yaml:"mrm_coverage_percent"`
	AverageCompleteness float64 `json:"average_completeness" yaml:"average_completeness"`
	PendingTasks        int     `json:"pending_tasks" yaml:"pending_tasks"`
	// RecentCollections counts log entries within the last 24 hours.
	RecentCollections int `json:"recent_collections" yaml:"recent_collections"`
}

// Store is the persistence contract the engine requires: get by key,
// upsert, predicate queries, and the append-only log. Implementations
// must be safe for concurrent use and must not let callers alias stored
// records (return copies).
type Store interface {
	// Bank returns the bank with the given identity key, or a NotFound
	// error.
	Bank(ctx context.Context, key string) (*entities.BankEntity, error)

	// Banks lists all banks.
	Banks(ctx context.Context) ([]*entities.BankEntity, error)

	// QueryBanks lists banks matching the query, ordered by asset rank
	// (unranked last).
	QueryBanks(ctx context.Context, q Query) ([]*entities.BankEntity, error)

	// UpsertBank inserts or replaces a bank by identity key.
	UpsertBank(ctx context.Context, bank *entities.BankEntity) error

	// Person returns the person with the given identity key, or a
	// NotFound error.
	Person(ctx context.Context, key string) (*entities.PersonEntity, error)

	// Persons lists all persons.
	Persons(ctx context.Context) ([]*entities.PersonEntity, error)

	// PersonsNamed lists persons whose normalized name matches name's.
	PersonsNamed(ctx context.Context, name string) ([]*entities.PersonEntity, error)

	// UpsertPerson inserts or replaces a person by identity key.
	UpsertPerson(ctx context.Context, person *entities.PersonEntity) error

	// SaveTask inserts or replaces a research task by id.
	SaveTask(ctx context.Context, task entities.ResearchTask) error

	// Tasks lists research tasks matching the filter, highest priority
	// first.
	Tasks(ctx context.Context, f TaskFilter) ([]entities.ResearchTask, error)

	// AppendLog appends an entry to the collection log.
	AppendLog(ctx context.Context, entry entities.CollectionLogEntry) error

	// Logs returns the most recent log entries, newest first. limit <= 0
	// returns everything.
	Logs(ctx context.Context, limit int) ([]entities.CollectionLogEntry, error)

	// Stats summarizes the store.
	Stats(ctx context.Context) (Stats, error)
}

// matches reports whether a bank satisfies the query.
func (q Query) matches(b *entities.BankEntity) bool {
	if q.Name != "" && entities.NormalizeName(b.Name()) != entities.NormalizeName(q.Name) {
		return false
	}
	if q.State != "" && b.StringField(entities.FieldHQState) != q.State {
		return false
	}
	if q.Size != "" && b.SizeCategory() != q.Size {
		return false
	}
	rank := b.AssetRank()
	if q.RankMin > 0 && (rank == 0 || rank < q.RankMin) {
		return false
	}
	if q.RankMax > 0 && (rank == 0 || rank > q.RankMax) {
		return false
	}
	if b.Completeness < q.MinCompleteness {
		return false
	}
	if q.MaxCompletenessSet && b.Completeness > q.MaxCompleteness {
		return false
	}
	if q.HasMRMData != nil && b.HasMRMData() != *q.HasMRMData {
		return false
	}
	return true
}

// matches reports whether a task satisfies the filter.
func (f TaskFilter) matches(t entities.ResearchTask) bool {
	if f.EntityKey != "" && t.EntityKey != f.EntityKey {
		return false
	}
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	if len(f.Statuses) > 0 {
		ok := false
		for _, s := range f.Statuses {
			if t.Status == s {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

// recentWindow is the lookback for Stats.RecentCollections.
const recentWindow = 24 * time.Hour
