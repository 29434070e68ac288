package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/taskhub/taskhub/internal/platform/db"
)

// Repository defines persistence operations for tasks. Update and Delete
// apply the ownership rule in the same statement as the write and report
// ErrNotFound or ErrForbidden when nothing matched.
type Repository interface {
	List(ctx context.Context, q ListQuery) ([]TaskView, int, error)
	Get(ctx context.Context, id uuid.UUID) (*TaskView, error)
	Create(ctx context.Context, task Task) (*TaskView, error)
	Update(ctx context.Context, id, principal uuid.UUID, patch Patch, at time.Time) (*TaskView, error)
	Delete(ctx context.Context, id, principal uuid.UUID) (uuid.UUID, error)
	Stats(ctx context.Context, owner uuid.UUID, now time.Time) (Stats, error)
}

type queryer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const viewSelect = `
	SELECT t.id, t.title, t.description, t.status, t.priority, t.due_date, t.tags,
	       t.assigned_to, a.name, a.email, t.created_by, c.name, c.email,
	       t.completed_at, t.created_at, t.updated_at
	FROM tasks t
	JOIN users a ON a.id = t.assigned_to
	JOIN users c ON c.id = t.created_by`

// List returns one page of tasks assigned to q.Owner plus the total match count.
func (r *PGRepository) List(ctx context.Context, q ListQuery) ([]TaskView, int, error) {
	var conditions []string
	var args []any
	argPos := 1

	conditions = append(conditions, fmt.Sprintf("t.assigned_to = $%d", argPos))
	args = append(args, q.Owner)
	argPos++

	if q.Status != "" {
		conditions = append(conditions, fmt.Sprintf("t.status = $%d", argPos))
		args = append(args, string(q.Status))
		argPos++
	}

	if q.Priority != "" {
		conditions = append(conditions, fmt.Sprintf("t.priority = $%d", argPos))
		args = append(args, string(q.Priority))
		argPos++
	}

	if q.Search != "" {
		conditions = append(conditions, fmt.Sprintf(`(t.title ILIKE $%d ESCAPE '\' OR t.description ILIKE $%d ESCAPE '\')`, argPos, argPos))
		args = append(args, likePattern(q.Search))
		argPos++
	}

	whereClause := "WHERE " + strings.Join(conditions, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM tasks t "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}

	query := fmt.Sprintf(`%s
		%s
		ORDER BY t.created_at DESC, t.id DESC
		LIMIT $%d OFFSET $%d`, viewSelect, whereClause, argPos, argPos+1)
	args = append(args, q.Limit, q.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	views := make([]TaskView, 0, q.Limit)
	for rows.Next() {
		view, err := scanView(rows)
		if err != nil {
			return nil, 0, err
		}
		views = append(views, *view)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

// Get fetches a task by id regardless of owner.
func (r *PGRepository) Get(ctx context.Context, id uuid.UUID) (*TaskView, error) {
	return getView(ctx, r.pool, id)
}

// Create inserts a task and returns its denormalized view.
func (r *PGRepository) Create(ctx context.Context, task Task) (*TaskView, error) {
	var view *TaskView
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO tasks (id, title, description, status, priority, due_date, tags,
			                   assigned_to, created_by, completed_at, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)`,
			task.ID, task.Title, task.Description, string(task.Status), string(task.Priority),
			timestamptz(task.DueDate), nonNilTags(task.Tags), task.AssignedTo, task.CreatedBy,
			timestamptz(task.CompletedAt), task.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert task: %w", err)
		}
		view, err = getView(ctx, tx, task.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// Update applies patch when principal is the assignee or creator.
func (r *PGRepository) Update(ctx context.Context, id, principal uuid.UUID, patch Patch, at time.Time) (*TaskView, error) {
	query := "UPDATE tasks SET updated_at = $1"
	args := []any{at}
	argPos := 2

	if patch.Title != nil {
		query += fmt.Sprintf(", title = $%d", argPos)
		args = append(args, *patch.Title)
		argPos++
	}
	if patch.Description != nil {
		query += fmt.Sprintf(", description = $%d", argPos)
		args = append(args, *patch.Description)
		argPos++
	}
	if patch.Priority != nil {
		query += fmt.Sprintf(", priority = $%d", argPos)
		args = append(args, string(*patch.Priority))
		argPos++
	}
	if patch.DueDate != nil {
		query += fmt.Sprintf(", due_date = $%d", argPos)
		args = append(args, *patch.DueDate)
		argPos++
	} else if patch.ClearDueDate {
		query += ", due_date = NULL"
	}
	if patch.SetTags {
		query += fmt.Sprintf(", tags = $%d", argPos)
		args = append(args, nonNilTags(patch.Tags))
		argPos++
	}
	if patch.Status != nil {
		query += fmt.Sprintf(", status = $%d", argPos)
		args = append(args, string(*patch.Status))
		argPos++
		if *patch.Status == StatusCompleted && patch.CompletedAt != nil {
			// an already completed task keeps its original stamp
			query += fmt.Sprintf(", completed_at = COALESCE(completed_at, $%d)", argPos)
			args = append(args, *patch.CompletedAt)
			argPos++
		} else {
			query += ", completed_at = NULL"
		}
	}

	query += fmt.Sprintf(" WHERE id = $%d AND (assigned_to = $%d OR created_by = $%d)", argPos, argPos+1, argPos+1)
	args = append(args, id, principal)

	var view *TaskView
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("update task: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return missReason(ctx, tx, id)
		}
		view, err = getView(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// Delete removes the task when principal is the assignee or creator and
// returns the assignee whose aggregates changed.
func (r *PGRepository) Delete(ctx context.Context, id, principal uuid.UUID) (uuid.UUID, error) {
	var assignee uuid.UUID
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			DELETE FROM tasks
			WHERE id = $1 AND (assigned_to = $2 OR created_by = $2)
			RETURNING assigned_to`, id, principal).Scan(&assignee)
		if errors.Is(err, pgx.ErrNoRows) {
			return missReason(ctx, tx, id)
		}
		if err != nil {
			return fmt.Errorf("delete task: %w", err)
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	return assignee, nil
}

// Stats aggregates the tasks assigned to owner.
func (r *PGRepository) Stats(ctx context.Context, owner uuid.UUID, now time.Time) (Stats, error) {
	stats := Stats{StatusStats: []Bucket{}, PriorityStats: []Bucket{}}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		buckets, err := r.buckets(ctx, "status", owner)
		if err != nil {
			return err
		}
		stats.StatusStats = buckets
		return nil
	})

	g.Go(func() error {
		buckets, err := r.buckets(ctx, "priority", owner)
		if err != nil {
			return err
		}
		stats.PriorityStats = buckets
		return nil
	})

	g.Go(func() error {
		return r.pool.QueryRow(ctx, `
			SELECT COUNT(*) FROM tasks
			WHERE assigned_to = $1 AND due_date < $2 AND status <> 'completed'`,
			owner, now).Scan(&stats.OverdueTasks)
	})

	if err := g.Wait(); err != nil {
		return Stats{}, fmt.Errorf("task stats: %w", err)
	}
	for _, b := range stats.StatusStats {
		stats.TotalTasks += b.Count
	}
	return stats, nil
}

// OverdueCounts returns the number of overdue tasks per assignee.
func (r *PGRepository) OverdueCounts(ctx context.Context, now time.Time) (map[uuid.UUID]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT assigned_to, COUNT(*) FROM tasks
		WHERE due_date < $1 AND status <> 'completed'
		GROUP BY assigned_to`, now)
	if err != nil {
		return nil, fmt.Errorf("overdue counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[uuid.UUID]int)
	for rows.Next() {
		var owner uuid.UUID
		var count int
		if err := rows.Scan(&owner, &count); err != nil {
			return nil, err
		}
		counts[owner] = count
	}
	return counts, rows.Err()
}

// column is one of the fixed identifiers "status" or "priority".
func (r *PGRepository) buckets(ctx context.Context, column string, owner uuid.UUID) ([]Bucket, error) {
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT %[1]s, COUNT(*) FROM tasks
		WHERE assigned_to = $1
		GROUP BY %[1]s
		ORDER BY %[1]s`, column), owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	buckets := []Bucket{}
	for rows.Next() {
		var b Bucket
		if err := rows.Scan(&b.ID, &b.Count); err != nil {
			return nil, err
		}
		buckets = append(buckets, b)
	}
	return buckets, rows.Err()
}

// missReason tells a missing task from one the caller may not touch.
func missReason(ctx context.Context, q queryer, id uuid.UUID) error {
	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tasks WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("probe task: %w", err)
	}
	if exists {
		return ErrForbidden
	}
	return ErrNotFound
}

func getView(ctx context.Context, q queryer, id uuid.UUID) (*TaskView, error) {
	view, err := scanView(q.QueryRow(ctx, viewSelect+` WHERE t.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return view, err
}

func scanView(row pgx.Row) (*TaskView, error) {
	var v TaskView
	var status, priority string
	var dueDate, completedAt pgtype.Timestamptz
	err := row.Scan(
		&v.ID, &v.Title, &v.Description, &status, &priority, &dueDate, &v.Tags,
		&v.AssignedTo.ID, &v.AssignedTo.Name, &v.AssignedTo.Email,
		&v.CreatedBy.ID, &v.CreatedBy.Name, &v.CreatedBy.Email,
		&completedAt, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	v.Status = Status(status)
	v.Priority = Priority(priority)
	if dueDate.Valid {
		t := dueDate.Time
		v.DueDate = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		v.CompletedAt = &t
	}
	if v.Tags == nil {
		v.Tags = []string{}
	}
	return &v, nil
}

func timestamptz(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
