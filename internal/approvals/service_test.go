package approvals

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaydesk/relaydesk/internal/shared"
)

type mockRepo struct {
	requests map[uuid.UUID]Request
	history  []HistoryEntry
}

func newMockRepo() *mockRepo {
	return &mockRepo{requests: map[uuid.UUID]Request{}}
}

func (m *mockRepo) Submit(ctx context.Context, in SubmitInput, requesterID int64) (Request, error) {
	req := Request{
		ID:          uuid.New(),
		Module:      in.Module,
		Summary:     in.Summary,
		Payload:     in.Payload,
		RequesterID: requesterID,
		Status:      StatusPending,
		CreatedAt:   time.Now(),
	}
	m.requests[req.ID] = req
	return req, nil
}

func (m *mockRepo) ListPending(ctx context.Context, page, perPage int) ([]Request, shared.Pagination, error) {
	var out []Request
	for _, req := range m.requests {
		if req.Status == StatusPending {
			out = append(out, req)
		}
	}
	return out, shared.NewPagination(page, perPage, len(out)), nil
}

func (m *mockRepo) Get(ctx context.Context, id uuid.UUID) (Request, error) {
	req, ok := m.requests[id]
	if !ok {
		return Request{}, shared.ErrNotFound
	}
	return req, nil
}

func (m *mockRepo) Decide(ctx context.Context, id uuid.UUID, status Status, deciderID int64, note string) (Request, error) {
	req, ok := m.requests[id]
	if !ok {
		return Request{}, shared.ErrNotFound
	}
	if req.Status != StatusPending {
		return Request{}, ErrAlreadyDecided
	}
	now := time.Now()
	req.Status = status
	req.DeciderID = &deciderID
	req.Note = note
	req.DecidedAt = &now
	m.requests[id] = req
	return req, nil
}

func (m *mockRepo) RecordHistory(ctx context.Context, entry HistoryEntry) error {
	entry.ID = int64(len(m.history) + 1)
	entry.At = time.Now()
	m.history = append(m.history, entry)
	return nil
}

func (m *mockRepo) History(ctx context.Context, page, perPage int) ([]HistoryEntry, shared.Pagination, error) {
	return m.history, shared.NewPagination(page, perPage, len(m.history)), nil
}

func (m *mockRepo) PurgeHistory(ctx context.Context, olderThan time.Time) (int64, error) {
	kept := m.history[:0]
	var purged int64
	for _, e := range m.history {
		if e.At.Before(olderThan) {
			purged++
			continue
		}
		kept = append(kept, e)
	}
	m.history = kept
	return purged, nil
}

func TestSubmitRecordsHistory(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, slog.Default())
	ctx := context.Background()

	req, err := svc.Submit(ctx, SubmitInput{Module: "contacts", Summary: "bulk delete 40 contacts"}, 7)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, req.Status)

	require.Len(t, repo.history, 1)
	assert.Equal(t, "submit", repo.history[0].Action)
	assert.Equal(t, req.ID.String(), repo.history[0].EntityID)
}

func TestSubmitValidation(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, slog.Default())

	_, err := svc.Submit(context.Background(), SubmitInput{Module: "", Summary: ""}, 7)
	assert.Error(t, err)
	assert.Empty(t, repo.requests)
	assert.Empty(t, repo.history)
}

func TestDecisionIsFinal(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, slog.Default())
	ctx := context.Background()

	req, err := svc.Submit(ctx, SubmitInput{Module: "inbox", Summary: "export transcripts"}, 7)
	require.NoError(t, err)

	approved, err := svc.Approve(ctx, req.ID, 9, "looks fine")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, approved.Status)
	require.NotNil(t, approved.DeciderID)
	assert.Equal(t, int64(9), *approved.DeciderID)

	_, err = svc.Reject(ctx, req.ID, 9, "changed my mind")
	assert.ErrorIs(t, err, ErrAlreadyDecided)

	require.Len(t, repo.history, 2)
	assert.Equal(t, "approved", repo.history[1].Action)
}

func TestRejectUnknownRequest(t *testing.T) {
	svc := NewService(newMockRepo(), slog.Default())
	_, err := svc.Reject(context.Background(), uuid.New(), 9, "")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestPurgeHistory(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, slog.Default())
	ctx := context.Background()

	require.NoError(t, svc.Record(ctx, HistoryEntry{ActorID: 1, Action: "login", Entity: "user", EntityID: "1"}))
	purged, err := svc.PurgeHistory(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)
	assert.Empty(t, repo.history)
}
