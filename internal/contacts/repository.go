package contacts

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/relaydesk/relaydesk/internal/platform/httpx"
	"github.com/relaydesk/relaydesk/internal/shared"
)

// Repository provides PostgreSQL backed persistence for contacts.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Search lists contacts whose folded search key contains the folded query.
func (r *Repository) Search(ctx context.Context, query string, page, perPage int) ([]Contact, shared.Pagination, error) {
	if perPage <= 0 {
		perPage = 20
	}
	if page <= 0 {
		page = 1
	}
	key := "%" + SearchKey(query) + "%"
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM contacts WHERE search_key LIKE $1`, key).Scan(&total); err != nil {
		return nil, shared.Pagination{}, err
	}
	rows, err := r.pool.Query(ctx, `SELECT id, name, email, phone, company, created_at, updated_at
FROM contacts WHERE search_key LIKE $1 ORDER BY name ASC LIMIT $2 OFFSET $3`, key, perPage, (page-1)*perPage)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	defer rows.Close()
	var contacts []Contact
	for rows.Next() {
		var c Contact
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Company, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, shared.Pagination{}, err
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.Pagination{}, err
	}
	return contacts, shared.NewPagination(page, perPage, total), nil
}

// Get fetches one contact including its tags.
func (r *Repository) Get(ctx context.Context, id int64) (Contact, error) {
	var c Contact
	err := r.pool.QueryRow(ctx, `SELECT id, name, email, phone, company, created_at, updated_at FROM contacts WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Company, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Contact{}, shared.ErrNotFound
		}
		return Contact{}, err
	}
	tags, err := r.ListTags(ctx, id)
	if err != nil {
		return Contact{}, err
	}
	c.Tags = tags
	return c, nil
}

// Create inserts a new contact.
func (r *Repository) Create(ctx context.Context, in CreateContactInput) (Contact, error) {
	var c Contact
	err := r.pool.QueryRow(ctx, `INSERT INTO contacts (name, email, phone, company, search_key, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
RETURNING id, name, email, phone, company, created_at, updated_at`,
		in.Name, in.Email, in.Phone, in.Company, SearchKey(in.Name)).
		Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Company, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return Contact{}, httpx.ErrDuplicate
		}
		return Contact{}, err
	}
	return c, nil
}

// ListTags returns the contact's tags in attachment order.
func (r *Repository) ListTags(ctx context.Context, contactID int64) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT tag FROM contact_tags WHERE contact_id = $1 ORDER BY created_at ASC`, contactID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

// AddTag attaches a tag; attaching an existing tag is a duplicate error.
func (r *Repository) AddTag(ctx context.Context, contactID int64, tag string) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO contact_tags (contact_id, tag, created_at) VALUES ($1, $2, NOW())`, contactID, tag)
	if err != nil {
		if isUniqueViolation(err) {
			return httpx.ErrDuplicate
		}
		return err
	}
	return nil
}

// RemoveTag detaches a tag.
func (r *Repository) RemoveTag(ctx context.Context, contactID int64, tag string) error {
	res, err := r.pool.Exec(ctx, `DELETE FROM contact_tags WHERE contact_id = $1 AND tag = $2`, contactID, tag)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListFields returns the contact's custom fields.
func (r *Repository) ListFields(ctx context.Context, contactID int64) ([]CustomField, error) {
	rows, err := r.pool.Query(ctx, `SELECT key, value FROM contact_fields WHERE contact_id = $1 ORDER BY key ASC`, contactID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var fields []CustomField
	for rows.Next() {
		var f CustomField
		if err := rows.Scan(&f.Key, &f.Value); err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, rows.Err()
}

// UpsertField sets a custom field value.
func (r *Repository) UpsertField(ctx context.Context, contactID int64, field CustomField) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO contact_fields (contact_id, key, value, updated_at)
VALUES ($1, $2, $3, NOW())
ON CONFLICT (contact_id, key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
		contactID, field.Key, field.Value)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
