package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhub/taskhub/jobs"
)

func TestBuildTask(t *testing.T) {
	task, err := BuildTask(jobs.TaskOverdueDigest)
	require.NoError(t, err)
	assert.Equal(t, jobs.TaskOverdueDigest, task.Type())

	_, err = BuildTask(jobs.TaskWelcomeMail)
	assert.Error(t, err)
}

func TestNewJobsCLIRequiresAddr(t *testing.T) {
	_, err := NewJobsCLI("")
	assert.Error(t, err)
}

func TestRunRejectsBadUsage(t *testing.T) {
	c := &JobsCLI{}
	discard := func(string, ...any) {}

	assert.Error(t, c.Run(context.Background(), nil, discard))
	assert.Error(t, c.Run(context.Background(), []string{"trigger"}, discard))
	assert.Error(t, c.Run(context.Background(), []string{"purge"}, discard))
	assert.Error(t, c.Run(context.Background(), []string{"stats"}, discard))
}

func TestQueueStatsString(t *testing.T) {
	s := QueueStats{Queue: "default", Pending: 2, Retry: 1}
	assert.Equal(t, "queue=default pending=2 active=0 scheduled=0 retry=1 failed=0", s.String())
}
