package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/relaydesk/relaydesk/internal/optimistic"
)

// OptimisticSweepJob drops provisional buckets that outlived their
// scope, such as entries written right before a crash.
type OptimisticSweepJob struct {
	Store  *optimistic.RedisStore
	MaxAge time.Duration
	Logger *slog.Logger
	clock  func() time.Time
}

// NewOptimisticSweepJob wires dependencies for the sweep handler.
func NewOptimisticSweepJob(store *optimistic.RedisStore, maxAge time.Duration, logger *slog.Logger) *OptimisticSweepJob {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &OptimisticSweepJob{
		Store:  store,
		MaxAge: maxAge,
		Logger: logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes sweep tasks.
func (j *OptimisticSweepJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Store == nil {
		return errors.New("optimistic sweep: handler not configured")
	}
	logger := j.logger()
	cutoff := j.now().Add(-j.MaxAge)

	removed, err := j.Store.Sweep(ctx, cutoff)
	if err != nil {
		logger.Error("sweep provisional buckets", slog.Any("error", err))
		return err
	}
	logger.Info("completed optimistic sweep", slog.Int("removed", removed))
	return nil
}

func (j *OptimisticSweepJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskOptimisticSweep))
	}
	return slog.Default().With(slog.String("job", TaskOptimisticSweep))
}

func (j *OptimisticSweepJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
