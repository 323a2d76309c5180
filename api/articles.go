package api

import (
	"net/http"

	"github.com/HiveCTF/cyberhive"
	"github.com/HiveCTF/cyberhive/internal/util"
	"github.com/go-chi/chi/v5"
)

func (s *API) listArticles(w http.ResponseWriter, r *http.Request) {
	var args struct {
		CVEID  *string `json:"cve_id"`
		Limit  int     `json:"limit"`
		Offset int     `json:"offset"`
	}
	if err := parseRequest(r, &args); err != nil {
		statusError(w, err)
		return
	}
	articles, serr := s.base.Articles(r.Context(), cyberhive.ArticleFilter{
		CVEID:  args.CVEID,
		Limit:  args.Limit,
		Offset: args.Offset,
	})
	if serr != nil {
		statusError(w, serr)
		return
	}
	returnData(w, articles)
}

func (s *API) articleBySlug(w http.ResponseWriter, r *http.Request) {
	article, serr := s.base.ArticleBySlug(r.Context(), chi.URLParam(r, "articleSlug"))
	if serr != nil {
		statusError(w, serr)
		return
	}
	returnData(w, article)
}

func (s *API) createArticle(w http.ResponseWriter, r *http.Request) {
	var article cyberhive.Article
	if err := parseJsonBody(r, &article); err != nil {
		statusError(w, err)
		return
	}
	id, serr := s.base.CreateArticle(r.Context(), &article, util.UserBrief(r))
	if serr != nil {
		statusError(w, serr)
		return
	}
	returnData(w, id)
}
