package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/relaydesk/relaydesk/internal/approvals"
	"github.com/relaydesk/relaydesk/internal/shared"
)

// RetentionCleanupJob prunes rows nothing reads anymore: consumed
// idempotency keys and operation-history entries past retention.
type RetentionCleanupJob struct {
	Approvals   *approvals.Service
	Idempotency *shared.IdempotencyStore
	Retention   time.Duration
	Logger      *slog.Logger
	clock       func() time.Time
}

// NewRetentionCleanupJob wires dependencies for the cleanup handler.
func NewRetentionCleanupJob(approvalsSvc *approvals.Service, idem *shared.IdempotencyStore, retention time.Duration, logger *slog.Logger) *RetentionCleanupJob {
	if retention <= 0 {
		retention = 90 * 24 * time.Hour
	}
	return &RetentionCleanupJob{
		Approvals:   approvalsSvc,
		Idempotency: idem,
		Retention:   retention,
		Logger:      logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes cleanup tasks.
func (j *RetentionCleanupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("retention cleanup: handler not configured")
	}
	logger := j.logger()

	if j.Idempotency != nil {
		if err := j.Idempotency.Cleanup(ctx, 24*time.Hour); err != nil {
			logger.Error("cleanup idempotency keys", slog.Any("error", err))
			return err
		}
	}

	if j.Approvals != nil {
		cutoff := j.now().Add(-j.Retention)
		purged, err := j.Approvals.PurgeHistory(ctx, cutoff)
		if err != nil {
			logger.Error("purge history", slog.Any("error", err))
			return err
		}
		logger.Info("completed retention cleanup", slog.Int64("purged", purged))
	}
	return nil
}

func (j *RetentionCleanupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskRetentionCleanup))
	}
	return slog.Default().With(slog.String("job", TaskRetentionCleanup))
}

func (j *RetentionCleanupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
