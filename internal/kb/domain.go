package kb

import "time"

// Tab groups articles into a titled section of the knowledge base.
type Tab struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
}

// Article is one knowledge-base entry.
type Article struct {
	ID        int64     `json:"id"`
	TabID     int64     `json:"tab_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TabWithArticles is the listing shape served to the reader view.
type TabWithArticles struct {
	Tab      Tab       `json:"tab"`
	Articles []Article `json:"articles"`
}

// CreateTabInput carries a new tab.
type CreateTabInput struct {
	Title    string `json:"title" validate:"required,max=120"`
	Position int    `json:"position" validate:"gte=0"`
}

// CreateArticleInput carries a new article.
type CreateArticleInput struct {
	TabID    int64  `json:"tab_id" validate:"required,gt=0"`
	Title    string `json:"title" validate:"required,max=200"`
	Body     string `json:"body" validate:"required"`
	Position int    `json:"position" validate:"gte=0"`
}

// UpdateArticleInput carries article edits.
type UpdateArticleInput struct {
	Title    string `json:"title" validate:"required,max=200"`
	Body     string `json:"body" validate:"required"`
	Position int    `json:"position" validate:"gte=0"`
}
