package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskWelcomeMail greets a freshly registered user.
	TaskWelcomeMail = "mail:welcome"
	// TaskOverdueDigest summarises overdue tasks per user.
	TaskOverdueDigest = "tasks:overdue-digest"
)

// WelcomeMailPayload describes the recipient of a welcome mail.
type WelcomeMailPayload struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// NewWelcomeMailTask constructs an Asynq task.
func NewWelcomeMailTask(payload WelcomeMailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskWelcomeMail, data, asynq.MaxRetry(5), asynq.Timeout(time.Minute)), nil
}

// OverdueDigestPayload tunes a digest run.
type OverdueDigestPayload struct {
	// MinOverdue skips users with fewer overdue tasks.
	MinOverdue int `json:"min_overdue"`
}

// NewOverdueDigestTask constructs the cron task for the overdue digest.
func NewOverdueDigestTask(minOverdue int) (*asynq.Task, error) {
	data, err := json.Marshal(OverdueDigestPayload{MinOverdue: minOverdue})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOverdueDigest, data), nil
}
