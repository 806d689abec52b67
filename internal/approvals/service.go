package approvals

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/relaydesk/relaydesk/internal/shared"
)

// RequestRepository abstracts persistence for requests and history.
type RequestRepository interface {
	Submit(ctx context.Context, in SubmitInput, requesterID int64) (Request, error)
	ListPending(ctx context.Context, page, perPage int) ([]Request, shared.Pagination, error)
	Get(ctx context.Context, id uuid.UUID) (Request, error)
	Decide(ctx context.Context, id uuid.UUID, status Status, deciderID int64, note string) (Request, error)
	RecordHistory(ctx context.Context, entry HistoryEntry) error
	History(ctx context.Context, page, perPage int) ([]HistoryEntry, shared.Pagination, error)
	PurgeHistory(ctx context.Context, olderThan time.Time) (int64, error)
}

// Service coordinates request decisions and the operation history.
// History writes are best effort: a failed history insert never blocks
// the decision itself.
type Service struct {
	repo     RequestRepository
	validate *validator.Validate
	logger   *slog.Logger
}

// NewService constructs a Service.
func NewService(repo RequestRepository, logger *slog.Logger) *Service {
	return &Service{repo: repo, validate: validator.New(), logger: logger}
}

// Submit validates and files a pending request.
func (s *Service) Submit(ctx context.Context, in SubmitInput, requesterID int64) (Request, error) {
	if err := s.validate.Struct(in); err != nil {
		return Request{}, err
	}
	req, err := s.repo.Submit(ctx, in, requesterID)
	if err != nil {
		return Request{}, err
	}
	s.record(ctx, HistoryEntry{
		ActorID:  requesterID,
		Action:   "submit",
		Entity:   "approval_request",
		EntityID: req.ID.String(),
		Meta:     map[string]any{"module": req.Module},
	})
	return req, nil
}

// ListPending returns the pending queue.
func (s *Service) ListPending(ctx context.Context, page, perPage int) ([]Request, shared.Pagination, error) {
	return s.repo.ListPending(ctx, page, perPage)
}

// Get fetches one request.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Request, error) {
	return s.repo.Get(ctx, id)
}

// Approve marks a pending request approved.
func (s *Service) Approve(ctx context.Context, id uuid.UUID, deciderID int64, note string) (Request, error) {
	return s.decide(ctx, id, StatusApproved, deciderID, note)
}

// Reject marks a pending request rejected.
func (s *Service) Reject(ctx context.Context, id uuid.UUID, deciderID int64, note string) (Request, error) {
	return s.decide(ctx, id, StatusRejected, deciderID, note)
}

func (s *Service) decide(ctx context.Context, id uuid.UUID, status Status, deciderID int64, note string) (Request, error) {
	req, err := s.repo.Decide(ctx, id, status, deciderID, note)
	if err != nil {
		return Request{}, err
	}
	s.record(ctx, HistoryEntry{
		ActorID:  deciderID,
		Action:   string(status),
		Entity:   "approval_request",
		EntityID: req.ID.String(),
		Meta:     map[string]any{"module": req.Module, "note": note},
	})
	return req, nil
}

// History lists the operation history newest first.
func (s *Service) History(ctx context.Context, page, perPage int) ([]HistoryEntry, shared.Pagination, error) {
	return s.repo.History(ctx, page, perPage)
}

// Record appends an operation-history row on behalf of another module.
func (s *Service) Record(ctx context.Context, entry HistoryEntry) error {
	return s.repo.RecordHistory(ctx, entry)
}

// PurgeHistory removes rows older than the retention cutoff.
func (s *Service) PurgeHistory(ctx context.Context, olderThan time.Time) (int64, error) {
	return s.repo.PurgeHistory(ctx, olderThan)
}

func (s *Service) record(ctx context.Context, entry HistoryEntry) {
	if err := s.repo.RecordHistory(ctx, entry); err != nil {
		s.logger.Warn("record history", slog.String("entity_id", entry.EntityID), slog.Any("error", err))
	}
}
