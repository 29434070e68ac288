package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/taskhub/taskhub/internal/jobs"
)

// WelcomeMailJob delivers the welcome message for new accounts. Delivery is
// a structured log record; there is no SMTP transport.
type WelcomeMailJob struct {
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewWelcomeMailJob initialises the welcome mail handler.
func NewWelcomeMailJob(logger *slog.Logger, metrics *jobmetrics.Metrics) *WelcomeMailJob {
	return &WelcomeMailJob{Logger: logger, Metrics: metrics}
}

// Handle processes TaskWelcomeMail tasks.
func (j *WelcomeMailJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("welcome mail: handler not configured")
	}
	var payload WelcomeMailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if strings.TrimSpace(payload.Email) == "" {
		return asynq.SkipRetry
	}

	tracker := j.Metrics.Track(TaskWelcomeMail)
	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("send welcome mail",
		slog.String("to", payload.Email),
		slog.String("subject", "Welcome to TaskHub, "+payload.Name),
	)
	j.Metrics.AddNotified("welcome", 1)
	return tracker.End(nil)
}
