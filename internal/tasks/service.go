package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/taskhub/taskhub/internal/shared"
)

// Service implements task authorization and query rules for one principal.
type Service struct {
	repo      Repository
	cache     *StatsCache
	validator *fieldValidator
	logger    *slog.Logger
	now       func() time.Time
}

// NewService constructs the task service. cache may be nil.
func NewService(repo Repository, cache *StatsCache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{repo: repo, cache: cache, logger: logger, now: time.Now}
	s.validator = newFieldValidator(func() time.Time { return s.now() })
	return s
}

// List returns the principal's tasks matching q. The owner filter always
// comes from the principal.
func (s *Service) List(ctx context.Context, principal shared.Principal, q ListQuery) (ListResult, error) {
	q.Owner = principal.ID
	if q.Page < 1 {
		q.Page = shared.DefaultPage
	}
	if q.Limit == 0 {
		q.Limit = shared.DefaultLimit
	}
	q.Limit = shared.ClampLimit(q.Limit)

	views, total, err := s.repo.List(ctx, q)
	if err != nil {
		return ListResult{}, fmt.Errorf("list tasks: %w", err)
	}
	if views == nil {
		views = []TaskView{}
	}
	return ListResult{Tasks: views, Pagination: shared.NewPagination(q.Page, q.Limit, total)}, nil
}

// Get returns a task the principal is assigned to or created.
func (s *Service) Get(ctx context.Context, principal shared.Principal, rawID string) (*TaskView, error) {
	id, err := parseID(rawID)
	if err != nil {
		return nil, err
	}
	view, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !view.OwnedBy(principal.ID) {
		return nil, ErrForbidden
	}
	return view, nil
}

// Create validates in and stores a task assigned to and created by the principal.
func (s *Service) Create(ctx context.Context, principal shared.Principal, in Input) (*TaskView, error) {
	patch, err := s.validator.Validate(in, true)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	task := Task{
		ID:         uuid.New(),
		Title:      *patch.Title,
		Status:     StatusPending,
		Priority:   PriorityMedium,
		DueDate:    patch.DueDate,
		Tags:       patch.Tags,
		AssignedTo: principal.ID,
		CreatedBy:  principal.ID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if patch.Description != nil {
		task.Description = *patch.Description
	}
	if patch.Priority != nil {
		task.Priority = *patch.Priority
	}
	if patch.Status != nil {
		task.Status = *patch.Status
	}
	if task.Tags == nil {
		task.Tags = []string{}
	}
	if task.Status == StatusCompleted {
		task.CompletedAt = &now
	}

	view, err := s.repo.Create(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	s.invalidate(ctx, view.AssignedTo.ID)
	return view, nil
}

// Update applies a partial change. Setting status to completed stamps
// completedAt; any other status clears it.
func (s *Service) Update(ctx context.Context, principal shared.Principal, rawID string, in Input) (*TaskView, error) {
	id, err := parseID(rawID)
	if err != nil {
		return nil, err
	}
	patch, err := s.validator.Validate(in, false)
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		return s.Get(ctx, principal, rawID)
	}

	now := s.now().UTC()
	if patch.Status != nil && *patch.Status == StatusCompleted {
		patch.CompletedAt = &now
	}

	view, err := s.repo.Update(ctx, id, principal.ID, patch, now)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) || errors.Is(err, shared.ErrForbidden) {
			return nil, err
		}
		return nil, fmt.Errorf("update task: %w", err)
	}
	s.invalidate(ctx, view.AssignedTo.ID)
	return view, nil
}

// Delete removes a task the principal is assigned to or created.
func (s *Service) Delete(ctx context.Context, principal shared.Principal, rawID string) error {
	id, err := parseID(rawID)
	if err != nil {
		return err
	}
	assignee, err := s.repo.Delete(ctx, id, principal.ID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) || errors.Is(err, shared.ErrForbidden) {
			return err
		}
		return fmt.Errorf("delete task: %w", err)
	}
	s.invalidate(ctx, assignee)
	return nil
}

// Stats returns dashboard aggregates over the principal's assigned tasks.
func (s *Service) Stats(ctx context.Context, principal shared.Principal) (Stats, error) {
	stats, err := s.cache.Fetch(ctx, principal.ID, func(ctx context.Context) (Stats, error) {
		return s.repo.Stats(ctx, principal.ID, s.now().UTC())
	})
	if err != nil {
		return Stats{}, fmt.Errorf("dashboard stats: %w", err)
	}
	return stats, nil
}

func (s *Service) invalidate(ctx context.Context, owner uuid.UUID) {
	if err := s.cache.Bump(ctx, owner); err != nil {
		s.logger.Warn("bump stats cache", slog.String("owner", owner.String()), slog.Any("error", err))
	}
}

func parseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, ErrNotFound
	}
	return id, nil
}
