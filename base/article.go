package base

import (
	"context"

	"github.com/HiveCTF/cyberhive"
	"github.com/gosimple/slug"
)

func (s *BaseAPI) ArticleBySlug(ctx context.Context, articleSlug string) (*cyberhive.Article, *StatusError) {
	article, err := s.store.ArticleBySlug(ctx, articleSlug)
	if err != nil {
		return nil, WrapError(err, "Couldn't fetch article")
	}
	if article == nil {
		return nil, Statusf(404, "Article not found")
	}
	return article, nil
}

func (s *BaseAPI) Articles(ctx context.Context, filter cyberhive.ArticleFilter) ([]*cyberhive.Article, *StatusError) {
	articles, err := s.store.Articles(ctx, filter)
	if err != nil {
		return nil, WrapError(err, "Couldn't fetch articles")
	}
	return articles, nil
}

func (s *BaseAPI) CreateArticle(ctx context.Context, article *cyberhive.Article, author *cyberhive.UserBrief) (int, *StatusError) {
	if article.Title == "" || article.Content == "" {
		return -1, ErrMissingRequired
	}
	if article.Slug == "" {
		article.Slug = slug.Make(article.Title)
	} else {
		article.Slug = slug.Make(article.Slug)
	}
	if author.IsAuthed() {
		article.AuthorID = &author.ID
	}

	id, err := s.store.CreateArticle(ctx, article)
	if err != nil {
		return -1, WrapError(err, "Couldn't create article")
	}
	return id, nil
}
