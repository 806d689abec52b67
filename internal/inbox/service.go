package inbox

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/relaydesk/relaydesk/internal/optimistic"
	"github.com/relaydesk/relaydesk/internal/shared"
)

// MessageRepository abstracts persistence for conversations and messages.
type MessageRepository interface {
	ListConversations(ctx context.Context, status ConversationStatus, page, perPage int) ([]Conversation, shared.Pagination, error)
	GetConversation(ctx context.Context, id uuid.UUID) (Conversation, error)
	ListMessages(ctx context.Context, conversationID uuid.UUID, limit int) ([]Message, error)
	InsertMessage(ctx context.Context, conversationID uuid.UUID, authorID int64, content ContentEnvelope) (Message, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status ConversationStatus) error
	Assign(ctx context.Context, id uuid.UUID, assigneeID *int64) error
}

// Timeline is what the inbox view renders: authoritative messages followed
// by provisional entries still awaiting confirmation, in append order.
type Timeline struct {
	Messages    []Message          `json:"messages"`
	Provisional []optimistic.Entry `json:"provisional"`
}

// Service orchestrates the inbox: optimistic message sends and
// stale-flag-driven timeline reloads.
type Service struct {
	repo     MessageRepository
	coord    *optimistic.Coordinator
	store    optimistic.RefetchStore
	validate *validator.Validate
	logger   *slog.Logger
	reloads  singleflight.Group
}

// NewService constructs a Service.
func NewService(repo MessageRepository, coord *optimistic.Coordinator, store optimistic.RefetchStore, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		coord:    coord,
		store:    store,
		validate: validator.New(),
		logger:   logger,
	}
}

// Conversations lists conversations for the inbox sidebar.
func (s *Service) Conversations(ctx context.Context, status ConversationStatus, page, perPage int) ([]Conversation, shared.Pagination, error) {
	return s.repo.ListConversations(ctx, status, page, perPage)
}

// Conversation fetches a single thread header.
func (s *Service) Conversation(ctx context.Context, id uuid.UUID) (Conversation, error) {
	return s.repo.GetConversation(ctx, id)
}

// SendMessage validates content and runs the optimistic send lifecycle.
// An invalid payload is rejected before any provisional entry exists, so
// no orphaned optimistic state is ever produced for that case. The write
// itself is issued exactly once and never retried.
func (s *Service) SendMessage(ctx context.Context, conversationID uuid.UUID, authorID int64, raw json.RawMessage) error {
	content, err := ParseContent(raw, s.validate)
	if err != nil {
		return err
	}
	if _, err := s.repo.GetConversation(ctx, conversationID); err != nil {
		return err
	}

	scope := MessageScope(conversationID)
	return s.coord.Run(ctx, scope, content, func(ctx context.Context) error {
		if _, err := s.repo.InsertMessage(ctx, conversationID, authorID, content); err != nil {
			s.logger.Warn("send message failed",
				slog.String("conversation_id", conversationID.String()),
				slog.Any("error", err))
			return err
		}
		return nil
	})
}

// GetTimeline returns the merged view for a conversation. When the scope
// was invalidated by a successful send, the authoritative reload runs
// through singleflight so concurrent readers trigger a single refetch,
// then the stale flag is cleared.
func (s *Service) GetTimeline(ctx context.Context, conversationID uuid.UUID, limit int) (Timeline, error) {
	scope := MessageScope(conversationID)

	stale, err := s.store.Stale(ctx, scope)
	if err != nil {
		return Timeline{}, err
	}

	var messages []Message
	if stale {
		result, err, _ := s.reloads.Do(scope, func() (any, error) {
			msgs, err := s.repo.ListMessages(ctx, conversationID, limit)
			if err != nil {
				return nil, err
			}
			if err := s.store.Refresh(ctx, scope); err != nil {
				s.logger.Warn("clear stale flag", slog.String("scope", scope), slog.Any("error", err))
			}
			return msgs, nil
		})
		if err != nil {
			return Timeline{}, err
		}
		messages = result.([]Message)
	} else {
		messages, err = s.repo.ListMessages(ctx, conversationID, limit)
		if err != nil {
			return Timeline{}, err
		}
	}

	pending, err := s.store.Read(ctx, scope)
	if err != nil {
		return Timeline{}, err
	}
	return Timeline{Messages: messages, Provisional: pending}, nil
}

// UpdateStatus transitions the conversation state.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status ConversationStatus) error {
	switch status {
	case StatusOpen, StatusPending, StatusResolved:
	default:
		return fmt.Errorf("inbox: invalid status %q", status)
	}
	return s.repo.UpdateStatus(ctx, id, status)
}

// Assign sets the conversation assignee; a nil id unassigns.
func (s *Service) Assign(ctx context.Context, id uuid.UUID, assigneeID *int64) error {
	return s.repo.Assign(ctx, id, assigneeID)
}

// PendingCount reports how many provisional entries are in flight for a
// conversation, used by the UI badge.
func (s *Service) PendingCount(ctx context.Context, conversationID uuid.UUID) (int, error) {
	pending, err := s.store.Read(ctx, MessageScope(conversationID))
	if err != nil {
		return 0, err
	}
	return len(pending), nil
}
