package users

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/relaydesk/relaydesk/internal/access"
	"github.com/relaydesk/relaydesk/internal/platform/httpx"
	"github.com/relaydesk/relaydesk/internal/shared"
)

// Repository provides PostgreSQL backed persistence for user accounts
// and their permission grants. It implements access.Source: accounts
// without a grant row yield a nil record, which the evaluator treats as
// unrestricted.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns accounts ordered by name.
func (r *Repository) List(ctx context.Context, page, perPage int) ([]User, shared.Pagination, error) {
	if perPage <= 0 {
		perPage = 20
	}
	if page <= 0 {
		page = 1
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, shared.Pagination{}, err
	}
	rows, err := r.pool.Query(ctx, `SELECT id, email, name, is_active, created_at, updated_at
FROM users ORDER BY name ASC LIMIT $1 OFFSET $2`, perPage, (page-1)*perPage)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	defer rows.Close()
	var out []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, shared.Pagination{}, err
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.Pagination{}, err
	}
	return out, shared.NewPagination(page, perPage, total), nil
}

// Get fetches one account.
func (r *Repository) Get(ctx context.Context, id int64) (User, error) {
	var u User
	err := r.pool.QueryRow(ctx, `SELECT id, email, name, is_active, created_at, updated_at
FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Email, &u.Name, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

// Create inserts an account with a pre-hashed password.
func (r *Repository) Create(ctx context.Context, email, name, passwordHash string) (User, error) {
	var u User
	err := r.pool.QueryRow(ctx, `INSERT INTO users (email, name, password_hash, is_active, created_at, updated_at)
VALUES ($1, $2, $3, TRUE, NOW(), NOW())
RETURNING id, email, name, is_active, created_at, updated_at`, email, name, passwordHash).
		Scan(&u.ID, &u.Email, &u.Name, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, httpx.ErrDuplicate
		}
		return User{}, err
	}
	return u, nil
}

// Update applies account edits.
func (r *Repository) Update(ctx context.Context, id int64, in UpdateUserInput) (User, error) {
	var u User
	err := r.pool.QueryRow(ctx, `UPDATE users SET name = $2, is_active = $3, updated_at = NOW()
WHERE id = $1
RETURNING id, email, name, is_active, created_at, updated_at`, id, in.Name, in.IsActive).
		Scan(&u.ID, &u.Email, &u.Name, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

// SetGrant upserts the permission record for an account.
func (r *Repository) SetGrant(ctx context.Context, userID int64, in GrantInput) error {
	perms, err := json.Marshal(in.Permissions)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `INSERT INTO user_grants (user_id, total_pages, permissions, updated_at)
VALUES ($1, $2, $3, NOW())
ON CONFLICT (user_id) DO UPDATE SET total_pages = EXCLUDED.total_pages, permissions = EXCLUDED.permissions, updated_at = NOW()`,
		userID, int64(in.TotalPages), perms)
	return err
}

// ClearGrant removes the grant row, returning the account to the
// unrestricted default.
func (r *Repository) ClearGrant(ctx context.Context, userID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM user_grants WHERE user_id = $1`, userID)
	return err
}

// RecordForUser loads the permission record for an account. No grant
// row means nil record.
func (r *Repository) RecordForUser(ctx context.Context, userID int64) (*access.Record, error) {
	var totalPages int64
	var perms []byte
	err := r.pool.QueryRow(ctx, `SELECT total_pages, permissions FROM user_grants WHERE user_id = $1`, userID).
		Scan(&totalPages, &perms)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	record := &access.Record{TotalPages: access.PageBit(totalPages)}
	if len(perms) > 0 {
		if err := json.Unmarshal(perms, &record.Permissions); err != nil {
			return nil, err
		}
	}
	return record, nil
}

var _ access.Source = (*Repository)(nil)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
