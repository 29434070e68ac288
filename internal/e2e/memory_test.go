package e2e

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/taskhub/taskhub/internal/auth"
	"github.com/taskhub/taskhub/internal/shared"
	"github.com/taskhub/taskhub/internal/tasks"
)

// ============================================================================
// IN-MEMORY STORES
// ============================================================================

type userStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]auth.User
}

func newUserStore() *userStore {
	return &userStore{users: make(map[uuid.UUID]auth.User)}
}

func (s *userStore) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, strings.TrimSpace(email)) {
			cp := u
			return &cp, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (s *userStore) FindByID(_ context.Context, id uuid.UUID) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &u, nil
}

func (s *userStore) Create(_ context.Context, user auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return shared.ErrDuplicateEmail
		}
	}
	s.users[user.ID] = user
	return nil
}

func (s *userStore) TouchLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	u.LastLogin = &at
	s.users[id] = u
	return nil
}

func (s *userStore) UpdateProfile(_ context.Context, id uuid.UUID, changes auth.ProfileChanges) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	if changes.Name != nil {
		u.Name = *changes.Name
	}
	if changes.Email != nil {
		u.Email = *changes.Email
	}
	s.users[id] = u
	return &u, nil
}

func (s *userStore) person(id uuid.UUID) tasks.Person {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[id]
	return tasks.Person{ID: u.ID, Name: u.Name, Email: u.Email}
}

type taskStore struct {
	mu    sync.Mutex
	users *userStore
	tasks map[uuid.UUID]tasks.Task
}

func newTaskStore(users *userStore) *taskStore {
	return &taskStore{users: users, tasks: make(map[uuid.UUID]tasks.Task)}
}

func (s *taskStore) view(t tasks.Task) tasks.TaskView {
	return tasks.TaskView{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		DueDate:     t.DueDate,
		Tags:        append([]string{}, t.Tags...),
		AssignedTo:  s.users.person(t.AssignedTo),
		CreatedBy:   s.users.person(t.CreatedBy),
		CompletedAt: t.CompletedAt,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func (s *taskStore) List(_ context.Context, q tasks.ListQuery) ([]tasks.TaskView, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []tasks.Task
	for _, t := range s.tasks {
		if t.AssignedTo != q.Owner {
			continue
		}
		if q.Status != "" && t.Status != q.Status {
			continue
		}
		if q.Priority != "" && t.Priority != q.Priority {
			continue
		}
		if q.Search != "" && !strings.Contains(strings.ToLower(t.Title+" "+t.Description), strings.ToLower(q.Search)) {
			continue
		}
		matched = append(matched, t)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	total := len(matched)
	start := min(q.Offset(), total)
	end := min(start+q.Limit, total)
	views := make([]tasks.TaskView, 0, end-start)
	for _, t := range matched[start:end] {
		views = append(views, s.view(t))
	}
	return views, total, nil
}

func (s *taskStore) Get(_ context.Context, id uuid.UUID) (*tasks.TaskView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, tasks.ErrNotFound
	}
	v := s.view(t)
	return &v, nil
}

func (s *taskStore) Create(_ context.Context, task tasks.Task) (*tasks.TaskView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.ID] = task
	v := s.view(task)
	return &v, nil
}

func (s *taskStore) miss(id uuid.UUID) error {
	if _, ok := s.tasks[id]; ok {
		return tasks.ErrForbidden
	}
	return tasks.ErrNotFound
}

func (s *taskStore) Update(_ context.Context, id, principal uuid.UUID, patch tasks.Patch, at time.Time) (*tasks.TaskView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok || (t.AssignedTo != principal && t.CreatedBy != principal) {
		return nil, s.miss(id)
	}
	if patch.Title != nil {
		t.Title = *patch.Title
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.Priority != nil {
		t.Priority = *patch.Priority
	}
	if patch.DueDate != nil {
		t.DueDate = patch.DueDate
	} else if patch.ClearDueDate {
		t.DueDate = nil
	}
	if patch.SetTags {
		t.Tags = append([]string{}, patch.Tags...)
	}
	if patch.Status != nil {
		t.Status = *patch.Status
		if *patch.Status != tasks.StatusCompleted {
			t.CompletedAt = nil
		} else if t.CompletedAt == nil {
			t.CompletedAt = patch.CompletedAt
		}
	}
	t.UpdatedAt = at
	s.tasks[id] = t
	v := s.view(t)
	return &v, nil
}

func (s *taskStore) Delete(_ context.Context, id, principal uuid.UUID) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok || (t.AssignedTo != principal && t.CreatedBy != principal) {
		return uuid.Nil, s.miss(id)
	}
	delete(s.tasks, id)
	return t.AssignedTo, nil
}

func (s *taskStore) Stats(_ context.Context, owner uuid.UUID, now time.Time) (tasks.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byStatus := map[string]int{}
	byPriority := map[string]int{}
	var stats tasks.Stats
	for _, t := range s.tasks {
		if t.AssignedTo != owner {
			continue
		}
		byStatus[string(t.Status)]++
		byPriority[string(t.Priority)]++
		stats.TotalTasks++
		if t.DueDate != nil && t.DueDate.Before(now) && t.Status != tasks.StatusCompleted {
			stats.OverdueTasks++
		}
	}
	stats.StatusStats = buckets(byStatus)
	stats.PriorityStats = buckets(byPriority)
	return stats, nil
}

func buckets(counts map[string]int) []tasks.Bucket {
	out := make([]tasks.Bucket, 0, len(counts))
	for id, n := range counts {
		out = append(out, tasks.Bucket{ID: id, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
