package users

import (
	"context"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/relaydesk/relaydesk/internal/access"
	"github.com/relaydesk/relaydesk/internal/shared"
)

// UserRepository abstracts persistence for accounts and grants.
type UserRepository interface {
	List(ctx context.Context, page, perPage int) ([]User, shared.Pagination, error)
	Get(ctx context.Context, id int64) (User, error)
	Create(ctx context.Context, email, name, passwordHash string) (User, error)
	Update(ctx context.Context, id int64, in UpdateUserInput) (User, error)
	SetGrant(ctx context.Context, userID int64, in GrantInput) error
	ClearGrant(ctx context.Context, userID int64) error
	RecordForUser(ctx context.Context, userID int64) (*access.Record, error)
}

// Service manages agent accounts and their permission grants.
type Service struct {
	repo     UserRepository
	validate *validator.Validate
}

// NewService constructs a Service.
func NewService(repo UserRepository) *Service {
	return &Service{repo: repo, validate: validator.New()}
}

// List returns accounts.
func (s *Service) List(ctx context.Context, page, perPage int) ([]User, shared.Pagination, error) {
	return s.repo.List(ctx, page, perPage)
}

// Get fetches one account.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	return s.repo.Get(ctx, id)
}

// Create validates input, hashes the password and inserts the account.
func (s *Service) Create(ctx context.Context, in CreateUserInput) (User, error) {
	if err := s.validate.Struct(in); err != nil {
		return User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	return s.repo.Create(ctx, in.Email, in.Name, string(hash))
}

// Update applies account edits.
func (s *Service) Update(ctx context.Context, id int64, in UpdateUserInput) (User, error) {
	if err := s.validate.Struct(in); err != nil {
		return User{}, err
	}
	return s.repo.Update(ctx, id, in)
}

// SetGrant assigns a permission record to an account. Granting pages
// without their action masks is allowed: the evaluator denies actions
// for pages missing from the permission list.
func (s *Service) SetGrant(ctx context.Context, userID int64, in GrantInput) error {
	if _, err := s.repo.Get(ctx, userID); err != nil {
		return err
	}
	return s.repo.SetGrant(ctx, userID, in)
}

// ClearGrant removes restrictions from an account.
func (s *Service) ClearGrant(ctx context.Context, userID int64) error {
	if _, err := s.repo.Get(ctx, userID); err != nil {
		return err
	}
	return s.repo.ClearGrant(ctx, userID)
}

// Grant returns the account's permission record, nil when unrestricted.
func (s *Service) Grant(ctx context.Context, userID int64) (*access.Record, error) {
	if _, err := s.repo.Get(ctx, userID); err != nil {
		return nil, err
	}
	return s.repo.RecordForUser(ctx, userID)
}
