package kb

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/relaydesk/relaydesk/internal/shared"
)

// Repository provides PostgreSQL backed persistence for the knowledge base.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListTabs returns tabs ordered by position.
func (r *Repository) ListTabs(ctx context.Context) ([]Tab, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, title, position, created_at FROM kb_tabs ORDER BY position ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tabs []Tab
	for rows.Next() {
		var t Tab
		if err := rows.Scan(&t.ID, &t.Title, &t.Position, &t.CreatedAt); err != nil {
			return nil, err
		}
		tabs = append(tabs, t)
	}
	return tabs, rows.Err()
}

// ListArticles returns articles for one tab ordered by position.
func (r *Repository) ListArticles(ctx context.Context, tabID int64) ([]Article, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, tab_id, title, body, position, created_at, updated_at
FROM kb_articles WHERE tab_id = $1 ORDER BY position ASC, id ASC`, tabID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var articles []Article
	for rows.Next() {
		var a Article
		if err := rows.Scan(&a.ID, &a.TabID, &a.Title, &a.Body, &a.Position, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// GetArticle fetches one article.
func (r *Repository) GetArticle(ctx context.Context, id int64) (Article, error) {
	var a Article
	err := r.pool.QueryRow(ctx, `SELECT id, tab_id, title, body, position, created_at, updated_at
FROM kb_articles WHERE id = $1`, id).
		Scan(&a.ID, &a.TabID, &a.Title, &a.Body, &a.Position, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Article{}, shared.ErrNotFound
		}
		return Article{}, err
	}
	return a, nil
}

// CreateTab inserts a new tab.
func (r *Repository) CreateTab(ctx context.Context, in CreateTabInput) (Tab, error) {
	var t Tab
	err := r.pool.QueryRow(ctx, `INSERT INTO kb_tabs (title, position, created_at)
VALUES ($1, $2, NOW()) RETURNING id, title, position, created_at`, in.Title, in.Position).
		Scan(&t.ID, &t.Title, &t.Position, &t.CreatedAt)
	if err != nil {
		return Tab{}, err
	}
	return t, nil
}

// CreateArticle inserts a new article under an existing tab.
func (r *Repository) CreateArticle(ctx context.Context, in CreateArticleInput) (Article, error) {
	var a Article
	err := r.pool.QueryRow(ctx, `INSERT INTO kb_articles (tab_id, title, body, position, created_at, updated_at)
VALUES ($1, $2, $3, $4, NOW(), NOW())
RETURNING id, tab_id, title, body, position, created_at, updated_at`,
		in.TabID, in.Title, in.Body, in.Position).
		Scan(&a.ID, &a.TabID, &a.Title, &a.Body, &a.Position, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return Article{}, err
	}
	return a, nil
}

// UpdateArticle applies edits to an existing article.
func (r *Repository) UpdateArticle(ctx context.Context, id int64, in UpdateArticleInput) (Article, error) {
	var a Article
	err := r.pool.QueryRow(ctx, `UPDATE kb_articles
SET title = $2, body = $3, position = $4, updated_at = NOW()
WHERE id = $1
RETURNING id, tab_id, title, body, position, created_at, updated_at`,
		id, in.Title, in.Body, in.Position).
		Scan(&a.ID, &a.TabID, &a.Title, &a.Body, &a.Position, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Article{}, shared.ErrNotFound
		}
		return Article{}, err
	}
	return a, nil
}

// DeleteArticle removes an article.
func (r *Repository) DeleteArticle(ctx context.Context, id int64) error {
	res, err := r.pool.Exec(ctx, `DELETE FROM kb_articles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
