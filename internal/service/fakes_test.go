package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/task-service/internal/domain"
	"github.com/spec-kit/task-service/internal/repository"
)

// In-memory repository fakes mirroring the Postgres semantics: unique
// email, owner-scoped predicates, stable ordering.

func uniqueViolation() error {
	return &pgconn.PgError{Code: "23505", ConstraintName: "users_email_unique"}
}

type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]*domain.User)}
}

func (r *memUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return uniqueViolation()
		}
	}
	user.ID = uuid.NewString()
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *memUserRepo) Update(_ context.Context, id string, patch repository.UserPatch) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if patch.Email != nil {
		for otherID, existing := range r.users {
			if otherID != id && existing.Email == *patch.Email {
				return nil, uniqueViolation()
			}
		}
		user.Email = *patch.Email
	}
	if patch.Name != nil {
		user.Name = *patch.Name
	}
	if patch.PasswordHash != nil {
		user.PasswordHash = *patch.PasswordHash
	}
	user.UpdatedAt = time.Now()
	clone := *user
	return &clone, nil
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user, ok := r.users[id]; ok {
		clone := *user
		return &clone, nil
	}
	return nil, pgx.ErrNoRows
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

// recordingUserRepo wraps memUserRepo to capture update patches and to
// run a hook between a read and the write that follows it.
type recordingUserRepo struct {
	*memUserRepo
	patches  []repository.UserPatch
	afterGet func()
}

func (r *recordingUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := r.memUserRepo.GetByID(ctx, id)
	if r.afterGet != nil {
		hook := r.afterGet
		r.afterGet = nil
		hook()
	}
	return user, err
}

func (r *recordingUserRepo) Update(ctx context.Context, id string, patch repository.UserPatch) (*domain.User, error) {
	r.patches = append(r.patches, patch)
	return r.memUserRepo.Update(ctx, id, patch)
}

type memTaskRepo struct {
	mu    sync.Mutex
	tasks map[string]*domain.Task
	seq   int
}

func newMemTaskRepo() *memTaskRepo {
	return &memTaskRepo{tasks: make(map[string]*domain.Task)}
}

func (r *memTaskRepo) Create(_ context.Context, task *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	task.ID = uuid.NewString()
	// Monotonic timestamps so ordering assertions are deterministic.
	r.seq++
	task.CreatedAt = time.Unix(0, int64(r.seq)*int64(time.Millisecond))
	task.UpdatedAt = task.CreatedAt
	clone := *task
	r.tasks[task.ID] = &clone
	return nil
}

func (r *memTaskRepo) GetByID(_ context.Context, ownerID, id string) (*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok || task.OwnerID != ownerID {
		return nil, pgx.ErrNoRows
	}
	clone := *task
	return &clone, nil
}

func (r *memTaskRepo) Update(_ context.Context, ownerID, id string, patch repository.TaskPatch) (*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok || task.OwnerID != ownerID {
		return nil, pgx.ErrNoRows
	}
	if patch.Title != nil {
		task.Title = *patch.Title
	}
	if patch.Description != nil {
		task.Description = *patch.Description
	}
	if patch.Status != nil {
		task.Status = *patch.Status
	}
	if patch.Priority != nil {
		task.Priority = *patch.Priority
	}
	r.seq++
	task.UpdatedAt = time.Unix(0, int64(r.seq)*int64(time.Millisecond))
	clone := *task
	return &clone, nil
}

func (r *memTaskRepo) Delete(_ context.Context, ownerID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok || task.OwnerID != ownerID {
		return pgx.ErrNoRows
	}
	delete(r.tasks, id)
	return nil
}

func (r *memTaskRepo) ListByOwner(_ context.Context, ownerID string, filter repository.TaskFilter) ([]domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Task
	for _, task := range r.tasks {
		if task.OwnerID != ownerID {
			continue
		}
		if filter.Status != nil && task.Status != *filter.Status {
			continue
		}
		if filter.Priority != nil && task.Priority != *filter.Priority {
			continue
		}
		if filter.Search != nil {
			needle := strings.ToLower(strings.TrimSpace(*filter.Search))
			title := strings.ToLower(task.Title)
			desc := strings.ToLower(task.Description)
			if !strings.Contains(title, needle) && !strings.Contains(desc, needle) {
				continue
			}
		}
		result = append(result, *task)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}
