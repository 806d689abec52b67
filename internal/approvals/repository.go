package approvals

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/relaydesk/relaydesk/internal/shared"
)

// ErrAlreadyDecided signals that a decision was attempted on a request
// that is no longer pending.
var ErrAlreadyDecided = errors.New("approvals: request already decided")

// Repository provides PostgreSQL backed persistence for pending requests
// and the operation history.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Submit inserts a pending request.
func (r *Repository) Submit(ctx context.Context, in SubmitInput, requesterID int64) (Request, error) {
	req := Request{
		ID:          uuid.New(),
		Module:      in.Module,
		Summary:     in.Summary,
		Payload:     in.Payload,
		RequesterID: requesterID,
		Status:      StatusPending,
	}
	err := r.pool.QueryRow(ctx, `INSERT INTO approval_requests (id, module, summary, payload, requester_id, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, NOW()) RETURNING created_at`,
		req.ID, req.Module, req.Summary, req.Payload, req.RequesterID, string(req.Status)).
		Scan(&req.CreatedAt)
	if err != nil {
		return Request{}, err
	}
	return req, nil
}

// ListPending returns pending requests oldest first.
func (r *Repository) ListPending(ctx context.Context, page, perPage int) ([]Request, shared.Pagination, error) {
	if perPage <= 0 {
		perPage = 20
	}
	if page <= 0 {
		page = 1
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM approval_requests WHERE status = 'pending'`).Scan(&total); err != nil {
		return nil, shared.Pagination{}, err
	}
	rows, err := r.pool.Query(ctx, `SELECT id, module, summary, payload, requester_id, status, decider_id, note, created_at, decided_at
FROM approval_requests WHERE status = 'pending' ORDER BY created_at ASC LIMIT $1 OFFSET $2`,
		perPage, (page-1)*perPage)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	defer rows.Close()
	var requests []Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, shared.Pagination{}, err
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.Pagination{}, err
	}
	return requests, shared.NewPagination(page, perPage, total), nil
}

// Get fetches one request.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Request, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, module, summary, payload, requester_id, status, decider_id, note, created_at, decided_at
FROM approval_requests WHERE id = $1`, id)
	req, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Request{}, shared.ErrNotFound
		}
		return Request{}, err
	}
	return req, nil
}

// Decide transitions a pending request to approved or rejected. Only one
// decision wins; later attempts see ErrAlreadyDecided.
func (r *Repository) Decide(ctx context.Context, id uuid.UUID, status Status, deciderID int64, note string) (Request, error) {
	row := r.pool.QueryRow(ctx, `UPDATE approval_requests
SET status = $2, decider_id = $3, note = $4, decided_at = NOW()
WHERE id = $1 AND status = 'pending'
RETURNING id, module, summary, payload, requester_id, status, decider_id, note, created_at, decided_at`,
		id, string(status), deciderID, note)
	req, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if _, gerr := r.Get(ctx, id); gerr != nil {
				return Request{}, gerr
			}
			return Request{}, ErrAlreadyDecided
		}
		return Request{}, err
	}
	return req, nil
}

// RecordHistory appends one operation-history row.
func (r *Repository) RecordHistory(ctx context.Context, entry HistoryEntry) error {
	if entry.Action == "" || entry.Entity == "" || entry.EntityID == "" {
		return errors.New("approvals: history requires action/entity/entity_id")
	}
	meta, err := json.Marshal(entry.Meta)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `INSERT INTO operation_history (actor_id, action, entity, entity_id, meta, occurred_at)
VALUES ($1, $2, $3, $4, $5, NOW())`,
		entry.ActorID, entry.Action, entry.Entity, entry.EntityID, meta)
	return err
}

// History lists operation-history rows newest first.
func (r *Repository) History(ctx context.Context, page, perPage int) ([]HistoryEntry, shared.Pagination, error) {
	if perPage <= 0 {
		perPage = 50
	}
	if page <= 0 {
		page = 1
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM operation_history`).Scan(&total); err != nil {
		return nil, shared.Pagination{}, err
	}
	rows, err := r.pool.Query(ctx, `SELECT id, actor_id, action, entity, entity_id, meta, occurred_at
FROM operation_history ORDER BY occurred_at DESC, id DESC LIMIT $1 OFFSET $2`,
		perPage, (page-1)*perPage)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	defer rows.Close()
	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		var meta []byte
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.Entity, &e.EntityID, &meta, &e.At); err != nil {
			return nil, shared.Pagination{}, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &e.Meta); err != nil {
				return nil, shared.Pagination{}, err
			}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.Pagination{}, err
	}
	return entries, shared.NewPagination(page, perPage, total), nil
}

// PurgeHistory removes history rows older than the cutoff and returns
// how many were deleted.
func (r *Repository) PurgeHistory(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := r.pool.Exec(ctx, `DELETE FROM operation_history WHERE occurred_at < $1`, olderThan)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected(), nil
}

func scanRequest(row pgx.Row) (Request, error) {
	var req Request
	var status string
	err := row.Scan(&req.ID, &req.Module, &req.Summary, &req.Payload, &req.RequesterID,
		&status, &req.DeciderID, &req.Note, &req.CreatedAt, &req.DecidedAt)
	if err != nil {
		return Request{}, err
	}
	req.Status = Status(status)
	return req, nil
}
