package cyberhive

import (
	"context"
	"time"
)

// Article is a knowledge-base entry, typically derived from a CVE.
type Article struct {
	ID   int    `json:"id"`
	Slug string `json:"slug"`

	Title   string  `json:"title"`
	Summary *string `json:"summary"`
	Content string  `json:"content"`

	CVEID    *string `json:"cve_id"`
	AuthorID *int    `json:"author_id"`

	CreatedAt time.Time `json:"created_at"`
}

type ArticleFilter struct {
	CVEID *string `json:"cve_id"`

	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

type ArticleStore interface {
	ArticleBySlug(ctx context.Context, slug string) (*Article, error)
	Articles(ctx context.Context, filter ArticleFilter) ([]*Article, error)
	CreateArticle(ctx context.Context, article *Article) (int, error)
}
