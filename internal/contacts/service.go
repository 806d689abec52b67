package contacts

import (
	"context"
	"errors"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/relaydesk/relaydesk/internal/optimistic"
	"github.com/relaydesk/relaydesk/internal/shared"
)

// ContactRepository abstracts persistence for contacts.
type ContactRepository interface {
	Search(ctx context.Context, query string, page, perPage int) ([]Contact, shared.Pagination, error)
	Get(ctx context.Context, id int64) (Contact, error)
	Create(ctx context.Context, in CreateContactInput) (Contact, error)
	ListTags(ctx context.Context, contactID int64) ([]string, error)
	AddTag(ctx context.Context, contactID int64, tag string) error
	RemoveTag(ctx context.Context, contactID int64, tag string) error
	ListFields(ctx context.Context, contactID int64) ([]CustomField, error)
	UpsertField(ctx context.Context, contactID int64, field CustomField) error
}

// ErrEmptyTag rejects blank tag labels before any optimistic state exists.
var ErrEmptyTag = errors.New("contacts: tag must not be empty")

// Service orchestrates contact management. Tag and custom-field edits go
// through the optimistic coordinator so the editor reflects them
// immediately and reconciles when the write settles.
type Service struct {
	repo     ContactRepository
	coord    *optimistic.Coordinator
	store    optimistic.RefetchStore
	validate *validator.Validate
	logger   *slog.Logger
}

// NewService constructs a Service.
func NewService(repo ContactRepository, coord *optimistic.Coordinator, store optimistic.RefetchStore, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		coord:    coord,
		store:    store,
		validate: validator.New(),
		logger:   logger,
	}
}

// Search lists contacts matching the folded query.
func (s *Service) Search(ctx context.Context, query string, page, perPage int) ([]Contact, shared.Pagination, error) {
	return s.repo.Search(ctx, query, page, perPage)
}

// Get fetches one contact.
func (s *Service) Get(ctx context.Context, id int64) (Contact, error) {
	return s.repo.Get(ctx, id)
}

// Create validates and inserts a new contact. Creation is not optimistic:
// the new record's server-assigned id is needed before the editor opens.
func (s *Service) Create(ctx context.Context, in CreateContactInput) (Contact, error) {
	if err := s.validate.Struct(in); err != nil {
		return Contact{}, err
	}
	return s.repo.Create(ctx, in)
}

// AddTag attaches a tag optimistically.
func (s *Service) AddTag(ctx context.Context, contactID int64, tag string) error {
	tag = NormalizeTag(tag)
	if tag == "" {
		return ErrEmptyTag
	}
	if _, err := s.repo.Get(ctx, contactID); err != nil {
		return err
	}
	return s.coord.Run(ctx, TagScope(contactID), map[string]string{"op": "add", "tag": tag}, func(ctx context.Context) error {
		return s.repo.AddTag(ctx, contactID, tag)
	})
}

// RemoveTag detaches a tag optimistically.
func (s *Service) RemoveTag(ctx context.Context, contactID int64, tag string) error {
	tag = NormalizeTag(tag)
	if tag == "" {
		return ErrEmptyTag
	}
	return s.coord.Run(ctx, TagScope(contactID), map[string]string{"op": "remove", "tag": tag}, func(ctx context.Context) error {
		return s.repo.RemoveTag(ctx, contactID, tag)
	})
}

// SetField upserts a custom field optimistically.
func (s *Service) SetField(ctx context.Context, contactID int64, field CustomField) error {
	if err := s.validate.Struct(field); err != nil {
		return err
	}
	if _, err := s.repo.Get(ctx, contactID); err != nil {
		return err
	}
	return s.coord.Run(ctx, FieldScope(contactID), field, func(ctx context.Context) error {
		return s.repo.UpsertField(ctx, contactID, field)
	})
}

// FieldsView returns the authoritative fields plus any edits still in
// flight, clearing the refetch flag if a reconciliation marked it.
func (s *Service) FieldsView(ctx context.Context, contactID int64) ([]CustomField, []optimistic.Entry, error) {
	scope := FieldScope(contactID)
	stale, err := s.store.Stale(ctx, scope)
	if err != nil {
		return nil, nil, err
	}
	fields, err := s.repo.ListFields(ctx, contactID)
	if err != nil {
		return nil, nil, err
	}
	if stale {
		if err := s.store.Refresh(ctx, scope); err != nil {
			s.logger.Warn("clear stale flag", slog.String("scope", scope), slog.Any("error", err))
		}
	}
	pending, err := s.store.Read(ctx, scope)
	if err != nil {
		return nil, nil, err
	}
	return fields, pending, nil
}

// TagsView returns the authoritative tags plus in-flight tag edits.
func (s *Service) TagsView(ctx context.Context, contactID int64) ([]string, []optimistic.Entry, error) {
	scope := TagScope(contactID)
	stale, err := s.store.Stale(ctx, scope)
	if err != nil {
		return nil, nil, err
	}
	tags, err := s.repo.ListTags(ctx, contactID)
	if err != nil {
		return nil, nil, err
	}
	if stale {
		if err := s.store.Refresh(ctx, scope); err != nil {
			s.logger.Warn("clear stale flag", slog.String("scope", scope), slog.Any("error", err))
		}
	}
	pending, err := s.store.Read(ctx, scope)
	if err != nil {
		return nil, nil, err
	}
	return tags, pending, nil
}
