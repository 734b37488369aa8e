package entities

import (
	"time"
)

// TaskType identifies the kind of follow-up research a task asks for.
type TaskType string

// Research task types.
const (
	TaskLeadershipResearch  TaskType = "leadership_research"
	TaskDepartmentStructure TaskType = "department_structure"
	TaskVerification        TaskType = "verification"
)

// TaskStatus is the lifecycle state of a research task. Tasks are created
// by the scheduler; status transitions are driven by external workers.
type TaskStatus string

// Task statuses.
const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
)

// Research task priority bounds.
const (
	MinTaskPriority = 1
	MaxTaskPriority = 10
)

// ResearchTask is a scheduled follow-up work item for an under-filled or
// stale entity.
type ResearchTask struct {
	ID          string     `json:"id" yaml:"id"`
	EntityKey   string     `json:"entity_key" yaml:"entity_key"`
	Type        TaskType   `json:"type" yaml:"type"`
	Priority    int        `json:"priority" yaml:"priority"` // 1 (low) to 10 (high)
	Status      TaskStatus `json:"status" yaml:"status"`
	CreatedAt   time.Time  `json:"created_at" yaml:"created_at"`
	DueAt       *time.Time `json:"due_at,omitempty" yaml:"due_at,omitempty"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
}

// Open reports whether the task still claims its (entity, type) slot. At
// most one open task per (entity, type) may exist.
func (t ResearchTask) Open() bool {
	return t.Status == TaskPending || t.Status == TaskInProgress
}

// ClampPriority bounds a computed priority to the valid 1-10 range.
func ClampPriority(p int) int {
	if p < MinTaskPriority {
		return MinTaskPriority
	}
	if p > MaxTaskPriority {
		return MaxTaskPriority
	}
	return p
}
