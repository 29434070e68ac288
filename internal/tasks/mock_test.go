package tasks

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// MOCK REPOSITORY
// ============================================================================

// mockRepository mirrors PGRepository semantics in memory, including the
// conditional write plus existence probe on Update and Delete.
type mockRepository struct {
	mu        sync.Mutex
	tasks     map[uuid.UUID]*Task
	people    map[uuid.UUID]Person
	listErr   error
	statsHits int
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		tasks:  make(map[uuid.UUID]*Task),
		people: make(map[uuid.UUID]Person),
	}
}

func (m *mockRepository) addPerson(name, email string) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.people[id] = Person{ID: id, Name: name, Email: email}
	return id
}

func (m *mockRepository) view(t *Task) *TaskView {
	tags := append([]string{}, t.Tags...)
	return &TaskView{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		DueDate:     t.DueDate,
		Tags:        tags,
		AssignedTo:  m.people[t.AssignedTo],
		CreatedBy:   m.people[t.CreatedBy],
		CompletedAt: t.CompletedAt,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func (m *mockRepository) List(ctx context.Context, q ListQuery) ([]TaskView, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	var matched []*Task
	search := strings.ToLower(q.Search)
	for _, t := range m.tasks {
		if t.AssignedTo != q.Owner {
			continue
		}
		if q.Status != "" && t.Status != q.Status {
			continue
		}
		if q.Priority != "" && t.Priority != q.Priority {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(t.Title), search) &&
			!strings.Contains(strings.ToLower(t.Description), search) {
			continue
		}
		matched = append(matched, t)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID.String() > matched[j].ID.String()
	})
	total := len(matched)
	start := q.Offset()
	if start > total {
		start = total
	}
	end := start + q.Limit
	if end > total {
		end = total
	}
	views := make([]TaskView, 0, end-start)
	for _, t := range matched[start:end] {
		views = append(views, *m.view(t))
	}
	return views, total, nil
}

func (m *mockRepository) Get(ctx context.Context, id uuid.UUID) (*TaskView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	return m.view(t), nil
}

func (m *mockRepository) Create(ctx context.Context, task Task) (*TaskView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := task
	m.tasks[task.ID] = &cp
	return m.view(&cp), nil
}

func (m *mockRepository) probe(id uuid.UUID) error {
	if _, ok := m.tasks[id]; ok {
		return ErrForbidden
	}
	return ErrNotFound
}

func (m *mockRepository) Update(ctx context.Context, id, principal uuid.UUID, patch Patch, at time.Time) (*TaskView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok || (t.AssignedTo != principal && t.CreatedBy != principal) {
		return nil, m.probe(id)
	}
	t.UpdatedAt = at
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
		if *patch.Status == StatusCompleted && patch.CompletedAt != nil {
			if t.CompletedAt == nil {
				stamp := *patch.CompletedAt
				t.CompletedAt = &stamp
			}
		} else {
			t.CompletedAt = nil
		}
	}
	return m.view(t), nil
}

func (m *mockRepository) Delete(ctx context.Context, id, principal uuid.UUID) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok || (t.AssignedTo != principal && t.CreatedBy != principal) {
		return uuid.Nil, m.probe(id)
	}
	delete(m.tasks, id)
	return t.AssignedTo, nil
}

func (m *mockRepository) Stats(ctx context.Context, owner uuid.UUID, now time.Time) (Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statsHits++
	byStatus := map[string]int{}
	byPriority := map[string]int{}
	stats := Stats{}
	for _, t := range m.tasks {
		if t.AssignedTo != owner {
			continue
		}
		stats.TotalTasks++
		byStatus[string(t.Status)]++
		byPriority[string(t.Priority)]++
		if t.DueDate != nil && t.DueDate.Before(now) && t.Status != StatusCompleted {
			stats.OverdueTasks++
		}
	}
	stats.StatusStats = toBuckets(byStatus)
	stats.PriorityStats = toBuckets(byPriority)
	return stats, nil
}

func toBuckets(counts map[string]int) []Bucket {
	buckets := make([]Bucket, 0, len(counts))
	for id, n := range counts {
		buckets = append(buckets, Bucket{ID: id, Count: n})
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].ID < buckets[j].ID })
	return buckets
}
