package approvals

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Status enumerates the lifecycle of a pending request.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Request is an operation awaiting an admin decision, such as a bulk
// delete or an export of contact data.
type Request struct {
	ID          uuid.UUID       `json:"id"`
	Module      string          `json:"module"`
	Summary     string          `json:"summary"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	RequesterID int64           `json:"requester_id"`
	Status      Status          `json:"status"`
	DeciderID   *int64          `json:"decider_id,omitempty"`
	Note        string          `json:"note,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	DecidedAt   *time.Time      `json:"decided_at,omitempty"`
}

// SubmitInput carries a new pending request.
type SubmitInput struct {
	Module  string          `json:"module" validate:"required,max=60"`
	Summary string          `json:"summary" validate:"required,max=300"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// HistoryEntry is one row of the operation history shown on the admin
// screen.
type HistoryEntry struct {
	ID       int64          `json:"id"`
	ActorID  int64          `json:"actor_id"`
	Action   string         `json:"action"`
	Entity   string         `json:"entity"`
	EntityID string         `json:"entity_id"`
	Meta     map[string]any `json:"meta,omitempty"`
	At       time.Time      `json:"at"`
}
