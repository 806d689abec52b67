package kb

import (
	"context"
	"log/slog"

	"github.com/go-playground/validator/v10"
)

// ArticleRepository abstracts persistence for the knowledge base.
type ArticleRepository interface {
	ListTabs(ctx context.Context) ([]Tab, error)
	ListArticles(ctx context.Context, tabID int64) ([]Article, error)
	GetArticle(ctx context.Context, id int64) (Article, error)
	CreateTab(ctx context.Context, in CreateTabInput) (Tab, error)
	CreateArticle(ctx context.Context, in CreateArticleInput) (Article, error)
	UpdateArticle(ctx context.Context, id int64, in UpdateArticleInput) (Article, error)
	DeleteArticle(ctx context.Context, id int64) error
}

// Service serves the knowledge base. Reads go through the listing cache;
// every authoring change invalidates it.
type Service struct {
	repo     ArticleRepository
	cache    *Cache
	validate *validator.Validate
	logger   *slog.Logger
}

// NewService constructs a Service.
func NewService(repo ArticleRepository, cache *Cache, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		cache:    cache,
		validate: validator.New(),
		logger:   logger,
	}
}

// Listing returns all tabs with their articles, cached.
func (s *Service) Listing(ctx context.Context) ([]TabWithArticles, error) {
	var listing []TabWithArticles
	err := s.cache.FetchListing(ctx, &listing, func(ctx context.Context) ([]TabWithArticles, error) {
		tabs, err := s.repo.ListTabs(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]TabWithArticles, 0, len(tabs))
		for _, tab := range tabs {
			articles, err := s.repo.ListArticles(ctx, tab.ID)
			if err != nil {
				return nil, err
			}
			out = append(out, TabWithArticles{Tab: tab, Articles: articles})
		}
		return out, nil
	})
	return listing, err
}

// GetArticle fetches one article.
func (s *Service) GetArticle(ctx context.Context, id int64) (Article, error) {
	return s.repo.GetArticle(ctx, id)
}

// CreateTab validates and inserts a tab.
func (s *Service) CreateTab(ctx context.Context, in CreateTabInput) (Tab, error) {
	if err := s.validate.Struct(in); err != nil {
		return Tab{}, err
	}
	tab, err := s.repo.CreateTab(ctx, in)
	if err != nil {
		return Tab{}, err
	}
	s.invalidate(ctx)
	return tab, nil
}

// CreateArticle validates and inserts an article.
func (s *Service) CreateArticle(ctx context.Context, in CreateArticleInput) (Article, error) {
	if err := s.validate.Struct(in); err != nil {
		return Article{}, err
	}
	article, err := s.repo.CreateArticle(ctx, in)
	if err != nil {
		return Article{}, err
	}
	s.invalidate(ctx)
	return article, nil
}

// UpdateArticle validates and applies edits.
func (s *Service) UpdateArticle(ctx context.Context, id int64, in UpdateArticleInput) (Article, error) {
	if err := s.validate.Struct(in); err != nil {
		return Article{}, err
	}
	article, err := s.repo.UpdateArticle(ctx, id, in)
	if err != nil {
		return Article{}, err
	}
	s.invalidate(ctx)
	return article, nil
}

// DeleteArticle removes an article.
func (s *Service) DeleteArticle(ctx context.Context, id int64) error {
	if err := s.repo.DeleteArticle(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *Service) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("invalidate kb cache", slog.Any("error", err))
	}
}
