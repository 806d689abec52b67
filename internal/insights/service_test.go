package insights

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	overview      Overview
	overviewCalls int
	volumeCalls   int
	workloadCalls int
}

func (m *mockRepo) Overview(ctx context.Context, day time.Time) (Overview, error) {
	m.overviewCalls++
	return m.overview, nil
}

func (m *mockRepo) Volume(ctx context.Context, from, to time.Time) ([]VolumePoint, error) {
	m.volumeCalls++
	return []VolumePoint{{Day: from, Inbound: 12, Outbound: 8}}, nil
}

func (m *mockRepo) Workload(ctx context.Context) ([]WorkloadRow, error) {
	m.workloadCalls++
	return []WorkloadRow{{AssigneeID: 1, AssigneeName: "Dana", Open: 4}}, nil
}

func newTestService(t *testing.T, repo *mockRepo) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewService(repo, NewCache(client, time.Minute), slog.Default())
}

func TestOverviewIsCached(t *testing.T) {
	repo := &mockRepo{overview: Overview{OpenConversations: 7, ResolvedToday: 3}}
	svc := newTestService(t, repo)
	ctx := context.Background()

	first, err := svc.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), first.OpenConversations)

	second, err := svc.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, repo.overviewCalls)
}

func TestBumpForcesRecompute(t *testing.T) {
	repo := &mockRepo{overview: Overview{OpenConversations: 2}}
	svc := newTestService(t, repo)
	ctx := context.Background()

	_, err := svc.Overview(ctx)
	require.NoError(t, err)

	repo.overview.OpenConversations = 5
	require.NoError(t, svc.Invalidate(ctx))

	fresh, err := svc.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), fresh.OpenConversations)
	assert.Equal(t, 2, repo.overviewCalls)
}

func TestVolumeWindowClamp(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(t, repo)
	ctx := context.Background()

	points, err := svc.Volume(ctx, -3)
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, int64(12), points[0].Inbound)
}

func TestWarmPopulatesAllViews(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(t, repo)
	ctx := context.Background()

	require.NoError(t, svc.Warm(ctx))
	assert.Equal(t, 1, repo.overviewCalls)
	assert.Equal(t, 1, repo.volumeCalls)
	assert.Equal(t, 1, repo.workloadCalls)

	_, err := svc.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.overviewCalls)
}
