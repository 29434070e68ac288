package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	jobmetrics "github.com/taskhub/taskhub/internal/jobs"
)

// OverdueSource reports how many overdue tasks each assignee has.
type OverdueSource interface {
	OverdueCounts(ctx context.Context, now time.Time) (map[uuid.UUID]int, error)
}

// OverdueDigestJob logs a per-user overdue digest and publishes the total.
type OverdueDigestJob struct {
	Source  OverdueSource
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewOverdueDigestJob initialises the digest handler.
func NewOverdueDigestJob(source OverdueSource, logger *slog.Logger, metrics *jobmetrics.Metrics) *OverdueDigestJob {
	return &OverdueDigestJob{
		Source:  source,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the digest.
func (j *OverdueDigestJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Source == nil {
		return errors.New("overdue digest: handler not configured")
	}
	var payload OverdueDigestPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	if payload.MinOverdue <= 0 {
		payload.MinOverdue = 1
	}

	start := j.clock()
	tracker := j.Metrics.Track(TaskOverdueDigest)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.Int("min_overdue", payload.MinOverdue))
	logger.Info("starting overdue digest")

	counts, err := j.Source.OverdueCounts(ctx, start)
	if err != nil {
		resultErr = err
		logger.Error("overdue digest failed", slog.Any("error", err))
		return resultErr
	}

	owners := make([]uuid.UUID, 0, len(counts))
	total := 0
	for owner, n := range counts {
		total += n
		if n >= payload.MinOverdue {
			owners = append(owners, owner)
		}
	}
	sort.Slice(owners, func(a, b int) bool { return owners[a].String() < owners[b].String() })

	for _, owner := range owners {
		logger.Info("overdue tasks pending",
			slog.String("user_id", owner.String()),
			slog.Int("overdue", counts[owner]),
		)
	}
	j.Metrics.SetOverdue(total)
	j.Metrics.AddNotified("overdue_digest", len(owners))

	logger.Info("completed overdue digest",
		slog.Int("users", len(owners)),
		slog.Int("overdue_total", total),
		slog.Duration("duration", time.Since(start)),
	)
	return resultErr
}

func (j *OverdueDigestJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
