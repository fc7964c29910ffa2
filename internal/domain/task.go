package domain

import "time"

// TaskStatus enumerates lifecycle states for tasks.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in-progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

// TaskPriority enumerates urgency levels.
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
)

// ParseTaskStatus coerces a wire value into a TaskStatus.
func ParseTaskStatus(value string) (TaskStatus, bool) {
	switch TaskStatus(value) {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return TaskStatus(value), true
	default:
		return "", false
	}
}

// ParseTaskPriority coerces a wire value into a TaskPriority.
func ParseTaskPriority(value string) (TaskPriority, bool) {
	switch TaskPriority(value) {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return TaskPriority(value), true
	default:
		return "", false
	}
}

// Task is the aggregate for user-owned to-do items. OwnerID is set at
// creation and immutable; every storage predicate includes it.
type Task struct {
	ID          string
	OwnerID     string
	Title       string
	Description string
	Status      TaskStatus
	Priority    TaskPriority
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
