package insights

import (
	"context"
	"log/slog"
	"time"
)

// MetricsRepository abstracts the aggregate queries.
type MetricsRepository interface {
	Overview(ctx context.Context, day time.Time) (Overview, error)
	Volume(ctx context.Context, from, to time.Time) ([]VolumePoint, error)
	Workload(ctx context.Context) ([]WorkloadRow, error)
}

// Service serves cached dashboard aggregates.
type Service struct {
	repo   MetricsRepository
	cache  *Cache
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs a Service.
func NewService(repo MetricsRepository, cache *Cache, logger *slog.Logger) *Service {
	return &Service{repo: repo, cache: cache, logger: logger, now: time.Now}
}

const dayFormat = "2006-01-02"

// Overview returns the headline counters for today.
func (s *Service) Overview(ctx context.Context) (Overview, error) {
	day := s.now().UTC().Truncate(24 * time.Hour)
	key, err := s.cache.BuildKey(ctx, keyOverview(day.Format(dayFormat)))
	if err != nil {
		return Overview{}, err
	}
	var o Overview
	err = s.cache.FetchJSON(ctx, key, &o, func(ctx context.Context) (interface{}, error) {
		return s.repo.Overview(ctx, day)
	})
	return o, err
}

// Volume returns daily message traffic for the trailing window.
func (s *Service) Volume(ctx context.Context, days int) ([]VolumePoint, error) {
	if days <= 0 || days > 90 {
		days = 7
	}
	to := s.now().UTC().Truncate(24 * time.Hour)
	from := to.AddDate(0, 0, -(days - 1))
	key, err := s.cache.BuildKey(ctx, keyVolume(from.Format(dayFormat), to.Format(dayFormat)))
	if err != nil {
		return nil, err
	}
	var points []VolumePoint
	err = s.cache.FetchJSON(ctx, key, &points, func(ctx context.Context) (interface{}, error) {
		return s.repo.Volume(ctx, from, to)
	})
	return points, err
}

// Workload returns open conversations per assignee.
func (s *Service) Workload(ctx context.Context) ([]WorkloadRow, error) {
	day := s.now().UTC().Truncate(24 * time.Hour)
	key, err := s.cache.BuildKey(ctx, keyWorkload(day.Format(dayFormat)))
	if err != nil {
		return nil, err
	}
	var rows []WorkloadRow
	err = s.cache.FetchJSON(ctx, key, &rows, func(ctx context.Context) (interface{}, error) {
		return s.repo.Workload(ctx)
	})
	return rows, err
}

// Invalidate bumps the cache version so the next read recomputes.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

// Warm precomputes the overview and trailing-week volume. The background
// worker calls this on a schedule so the first dashboard hit after an
// invalidation stays fast.
func (s *Service) Warm(ctx context.Context) error {
	if _, err := s.Overview(ctx); err != nil {
		return err
	}
	if _, err := s.Volume(ctx, 7); err != nil {
		return err
	}
	if _, err := s.Workload(ctx); err != nil {
		return err
	}
	return nil
}
