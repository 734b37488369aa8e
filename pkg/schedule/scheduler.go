// Package schedule inspects entity state and emits prioritized research
// tasks for under-filled or stale records. The scheduler only creates
// tasks; status transitions are driven by external workers.
package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bankatlas/bankatlas/pkg/entities"
	"github.com/bankatlas/bankatlas/pkg/logging"
	"github.com/bankatlas/bankatlas/pkg/store"
)

// Defaults for the scheduling knobs; all overridable via options.
const (
	DefaultCompletenessThreshold = 0.6
	DefaultStalenessWindow       = 30 * 24 * time.Hour

	// topRankCutoff is the asset rank at or above which banks get a
	// priority boost.
	topRankCutoff = 50

	basePriority     = 5
	topRankBoost     = 3
	veryLowDataBoost = 2
)

// Scheduler scans the entity set and emits research tasks.
type Scheduler struct {
	store     store.Store
	threshold float64
	staleness time.Duration
	now       func() time.Time
	newID     func() string
}

// Option configures the scheduler.
type Option func(*Scheduler)

// WithThreshold overrides the completeness threshold below which research
// tasks are emitted.
func WithThreshold(threshold float64) Option {
	return func(s *Scheduler) {
		s.threshold = threshold
	}
}

// WithStaleness overrides the staleness window after which a verification
// task is emitted.
func WithStaleness(window time.Duration) Option {
	return func(s *Scheduler) {
		s.staleness = window
	}
}

// WithClock overrides the scheduler's time source.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

// WithIDGenerator overrides task id generation.
func WithIDGenerator(newID func() string) Option {
	return func(s *Scheduler) {
		s.newID = newID
	}
}

// New creates a scheduler over the given store.
func New(st store.Store, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:     st,
		threshold: DefaultCompletenessThreshold,
		staleness: DefaultStalenessWindow,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan walks every bank, emits the research tasks its state calls for,
// persists them, and returns the newly created tasks. At most one open
// task exists per (entity, task type): existing pending or in-progress
// tasks suppress duplicates.
func (s *Scheduler) Scan(ctx context.Context) ([]entities.ResearchTask, error) {
	banks, err := s.store.Banks(ctx)
	if err != nil {
		return nil, err
	}

	var created []entities.ResearchTask
	for _, bank := range banks {
		for _, candidate := range s.tasksFor(bank) {
			open, err := s.store.Tasks(ctx, store.TaskFilter{
				EntityKey: bank.Key,
				Type:      candidate.Type,
				Statuses:  []entities.TaskStatus{entities.TaskPending, entities.TaskInProgress},
			})
			if err != nil {
				return nil, err
			}
			if len(open) > 0 {
				continue
			}

			if err := s.store.SaveTask(ctx, candidate); err != nil {
				return nil, err
			}
			created = append(created, candidate)

			logging.Ctx(ctx).Debug().
				Str("entity_key", bank.Key).
				Str("task_type", string(candidate.Type)).
				Int("priority", candidate.Priority).
				Msg("Scheduled research task")
		}
	}
	return created, nil
}

// tasksFor derives the task candidates a bank's current state calls for.
// A bank below the completeness threshold always gets at least one task:
// leadership or department research when those lists are empty, a
// verification pass otherwise. A missing or stale verification drives a
// verification task regardless of how complete the record is.
func (s *Scheduler) tasksFor(bank *entities.BankEntity) []entities.ResearchTask {
	var out []entities.ResearchTask
	now := s.now()

	lowCompleteness := bank.Completeness < s.threshold
	if lowCompleteness {
		if len(bank.Leadership) == 0 {
			out = append(out, s.newTask(bank, entities.TaskLeadershipResearch,
				fmt.Sprintf("Research MRM leadership for %s", s.displayName(bank)), now))
		}
		if len(bank.Departments) == 0 {
			out = append(out, s.newTask(bank, entities.TaskDepartmentStructure,
				fmt.Sprintf("Research MRM department structure for %s", s.displayName(bank)), now))
		}
	}

	stale := bank.LastVerified == nil || now.Sub(*bank.LastVerified) > s.staleness
	// A below-threshold bank whose leadership and departments are both
	// already populated still needs work somewhere in the record.
	if stale || (lowCompleteness && len(out) == 0) {
		out = append(out, s.newTask(bank, entities.TaskVerification,
			fmt.Sprintf("Verify collected data for %s", s.displayName(bank)), now))
	}

	return out
}

func (s *Scheduler) newTask(bank *entities.BankEntity, taskType entities.TaskType, description string, now time.Time) entities.ResearchTask {
	return entities.ResearchTask{
		ID:          s.newID(),
		EntityKey:   bank.Key,
		Type:        taskType,
		Priority:    s.priorityFor(bank),
		Status:      entities.TaskPending,
		CreatedAt:   now,
		Description: description,
	}
}

// priorityFor computes task priority: base 5, +3 for top-50 banks by
// asset rank, +2 when completeness is below half the threshold, clamped
// to the valid range.
func (s *Scheduler) priorityFor(bank *entities.BankEntity) int {
	p := basePriority
	if rank := bank.AssetRank(); rank > 0 && rank <= topRankCutoff {
		p += topRankBoost
	}
	if bank.Completeness < s.threshold/2 {
		p += veryLowDataBoost
	}
	return entities.ClampPriority(p)
}

func (s *Scheduler) displayName(bank *entities.BankEntity) string {
	if name := bank.Name(); name != "" {
		return name
	}
	return bank.Key
}
