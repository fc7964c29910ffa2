package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/task-service/internal/domain"
	"github.com/spec-kit/task-service/internal/events"
	"github.com/spec-kit/task-service/internal/repository"
	apperrors "github.com/spec-kit/task-service/pkg/util"
)

// TaskService orchestrates owner-scoped task workflows. The owner id always
// comes from the validated session, never from the request body.
type TaskService struct {
	tasks      repository.TaskRepository
	dispatcher events.Dispatcher
}

// TaskDependencies bundles requirements for task service.
type TaskDependencies struct {
	TaskRepo   repository.TaskRepository
	Dispatcher events.Dispatcher
}

// TaskCreateInput describes task creation payload.
type TaskCreateInput struct {
	Title       string
	Description string
	Status      string
	Priority    string
}

// TaskUpdateInput describes a partial update; nil fields are untouched.
type TaskUpdateInput struct {
	Title       *string
	Description *string
	Status      *string
	Priority    *string
}

// TaskListFilter describes listing filters as received from the wire.
type TaskListFilter struct {
	Status   string
	Priority string
	Search   string
}

// NewTaskService constructs the service.
func NewTaskService(deps TaskDependencies) *TaskService {
	return &TaskService{tasks: deps.TaskRepo, dispatcher: deps.Dispatcher}
}

// CreateTask creates a task owned by the caller, applying defaults for
// unspecified status and priority.
func (s *TaskService) CreateTask(ctx context.Context, ownerID string, input TaskCreateInput) (*domain.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title is required", map[string]any{"title": "required"})
	}

	status := domain.TaskStatusPending
	if input.Status != "" {
		parsed, ok := domain.ParseTaskStatus(input.Status)
		if !ok {
			return nil, invalidEnumError("status", input.Status)
		}
		status = parsed
	}
	priority := domain.TaskPriorityMedium
	if input.Priority != "" {
		parsed, ok := domain.ParseTaskPriority(input.Priority)
		if !ok {
			return nil, invalidEnumError("priority", input.Priority)
		}
		priority = parsed
	}

	task := &domain.Task{
		OwnerID:     ownerID,
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Status:      status,
		Priority:    priority,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, apperrors.FromStorage(err, "task")
	}

	s.publishEvent(ctx, events.Event{
		Type:    events.EventTaskCreated,
		OwnerID: ownerID,
		Payload: events.TaskCreatedPayload{TaskID: task.ID, Title: task.Title, Priority: task.Priority},
	})
	return task, nil
}

// GetTask fetches a single task owned by the caller.
func (s *TaskService) GetTask(ctx context.Context, ownerID, taskID string) (*domain.Task, error) {
	task, err := s.tasks.GetByID(ctx, ownerID, taskID)
	if err != nil {
		return nil, apperrors.FromStorage(err, "task")
	}
	return task, nil
}

// UpdateTask applies a partial update to an owned task. Only supplied
// fields change; updated_at is refreshed by the store.
func (s *TaskService) UpdateTask(ctx context.Context, ownerID, taskID string, input TaskUpdateInput) (*domain.Task, error) {
	patch := repository.TaskPatch{Description: input.Description}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, apperrors.NewValidationError("title cannot be empty", map[string]any{"title": "required"})
		}
		patch.Title = &title
	}
	var oldStatus domain.TaskStatus
	if input.Status != nil {
		parsed, ok := domain.ParseTaskStatus(*input.Status)
		if !ok {
			return nil, invalidEnumError("status", *input.Status)
		}
		patch.Status = &parsed

		current, err := s.tasks.GetByID(ctx, ownerID, taskID)
		if err != nil {
			return nil, apperrors.FromStorage(err, "task")
		}
		oldStatus = current.Status
	}
	if input.Priority != nil {
		parsed, ok := domain.ParseTaskPriority(*input.Priority)
		if !ok {
			return nil, invalidEnumError("priority", *input.Priority)
		}
		patch.Priority = &parsed
	}

	task, err := s.tasks.Update(ctx, ownerID, taskID, patch)
	if err != nil {
		return nil, apperrors.FromStorage(err, "task")
	}

	if patch.Status != nil && oldStatus != task.Status {
		s.publishEvent(ctx, events.Event{
			Type:    events.EventTaskStatusChanged,
			OwnerID: ownerID,
			Payload: events.TaskStatusChangedPayload{TaskID: task.ID, OldStatus: oldStatus, NewStatus: task.Status},
		})
	}
	return task, nil
}

// DeleteTask removes an owned task.
func (s *TaskService) DeleteTask(ctx context.Context, ownerID, taskID string) error {
	if err := s.tasks.Delete(ctx, ownerID, taskID); err != nil {
		return apperrors.FromStorage(err, "task")
	}
	s.publishEvent(ctx, events.Event{
		Type:    events.EventTaskDeleted,
		OwnerID: ownerID,
		Payload: events.TaskDeletedPayload{TaskID: taskID},
	})
	return nil
}

// ListTasks returns the caller's tasks matching the filter, most recently
// created first.
func (s *TaskService) ListTasks(ctx context.Context, ownerID string, filter TaskListFilter) ([]domain.Task, error) {
	repoFilter := repository.TaskFilter{}

	if filter.Status != "" {
		parsed, ok := domain.ParseTaskStatus(filter.Status)
		if !ok {
			return nil, invalidEnumError("status", filter.Status)
		}
		repoFilter.Status = &parsed
	}
	if filter.Priority != "" {
		parsed, ok := domain.ParseTaskPriority(filter.Priority)
		if !ok {
			return nil, invalidEnumError("priority", filter.Priority)
		}
		repoFilter.Priority = &parsed
	}
	if strings.TrimSpace(filter.Search) != "" {
		search := filter.Search
		repoFilter.Search = &search
	}

	tasks, err := s.tasks.ListByOwner(ctx, ownerID, repoFilter)
	if err != nil {
		return nil, apperrors.FromStorage(err, "task")
	}
	return tasks, nil
}

func (s *TaskService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	event.ID = uuid.NewString()
	event.Timestamp = time.Now()
	_ = s.dispatcher.Publish(ctx, event)
}

func invalidEnumError(field, value string) error {
	return apperrors.NewValidationError("invalid "+field, map[string]any{field: "unsupported value: " + value})
}
