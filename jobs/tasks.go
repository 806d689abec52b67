package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
	// TaskInsightsWarmup pre-populates the dashboard caches.
	TaskInsightsWarmup = "insights:warmup"
	// TaskOptimisticSweep removes abandoned provisional buckets.
	TaskOptimisticSweep = "optimistic:sweep"
	// TaskRetentionCleanup prunes idempotency keys and old history rows.
	TaskRetentionCleanup = "retention:cleanup"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// HandleSendEmailTask processes TaskTypeSendEmail tasks.
func HandleSendEmailTask(ctx context.Context, t *asynq.Task) error {
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	// Placeholder: SMTP delivery lands with the notification work.
	fmt.Printf("[jobs] send email to %s subject=%s\n", payload.To, payload.Subject)
	return nil
}

// NewInsightsWarmupTask constructs an Asynq task for cache warmup.
func NewInsightsWarmupTask() (*asynq.Task, error) {
	return asynq.NewTask(TaskInsightsWarmup, nil, asynq.Queue(QueueDefault)), nil
}

// NewOptimisticSweepTask constructs an Asynq task for the bucket sweep.
func NewOptimisticSweepTask() (*asynq.Task, error) {
	return asynq.NewTask(TaskOptimisticSweep, nil, asynq.Queue(QueueDefault)), nil
}

// NewRetentionCleanupTask constructs an Asynq task for retention cleanup.
func NewRetentionCleanupTask() (*asynq.Task, error) {
	return asynq.NewTask(TaskRetentionCleanup, nil, asynq.Queue(QueueDefault)), nil
}
