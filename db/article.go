package db

import (
	"context"
	"fmt"
	"time"

	"github.com/HiveCTF/cyberhive"
)

type dbArticle struct {
	ID   int    `db:"id"`
	Slug string `db:"slug"`

	Title   string  `db:"title"`
	Summary *string `db:"summary"`
	Content string  `db:"content"`

	CVEID    *string `db:"cve_id"`
	AuthorID *int    `db:"author_id"`

	CreatedAt time.Time `db:"created_at"`
}

func (s *DB) ArticleBySlug(ctx context.Context, slug string) (*cyberhive.Article, error) {
	article, err := getRow[dbArticle](ctx, s.conn, "SELECT * FROM articles WHERE slug = $1 LIMIT 1", slug)
	if err != nil || article == nil {
		return nil, err
	}
	return internalToArticle(article), nil
}

func (s *DB) Articles(ctx context.Context, filter cyberhive.ArticleFilter) ([]*cyberhive.Article, error) {
	fb := newFilterBuilder()
	if v := filter.CVEID; v != nil {
		fb.AddConstraint("cve_id = %s", v)
	}
	query := fmt.Sprintf("SELECT * FROM articles WHERE %s ORDER BY created_at DESC, id DESC %s", fb.Where(), FormatLimitOffset(filter.Limit, filter.Offset))
	articles, err := selectRows[dbArticle](ctx, s.conn, query, fb.Args()...)
	if err != nil {
		return nil, err
	}
	return mapper(articles, internalToArticle), nil
}

func (s *DB) CreateArticle(ctx context.Context, article *cyberhive.Article) (int, error) {
	if article.Title == "" || article.Slug == "" || article.Content == "" {
		return -1, cyberhive.ErrMissingRequired
	}
	var id int
	err := s.conn.QueryRow(ctx,
		"INSERT INTO articles (slug, title, summary, content, cve_id, author_id) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at",
		article.Slug, article.Title, article.Summary, article.Content, article.CVEID, article.AuthorID,
	).Scan(&id, &article.CreatedAt)
	if err != nil {
		return -1, err
	}
	article.ID = id
	return id, nil
}

func internalToArticle(article *dbArticle) *cyberhive.Article {
	if article == nil {
		return nil
	}
	return &cyberhive.Article{
		ID:   article.ID,
		Slug: article.Slug,

		Title:   article.Title,
		Summary: article.Summary,
		Content: article.Content,

		CVEID:    article.CVEID,
		AuthorID: article.AuthorID,

		CreatedAt: article.CreatedAt,
	}
}
