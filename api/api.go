// Package api wires the HTTP surface: routing, session handling and
// request decoding on top of the service layer.
package api

import (
	"net/http"

	"github.com/HiveCTF/cyberhive/base"
	"github.com/go-chi/chi/v5"
)

type API struct {
	base *base.BaseAPI
}

// New declares a new API instance
func New(b *base.BaseAPI) *API {
	return &API{base: b}
}

func (s *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.SetupSession)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", s.signup)
		r.Post("/login", s.login)
		r.With(s.MustBeAuthed).Get("/me", s.currentUser)
	})

	r.Route("/contests", func(r chi.Router) {
		r.Get("/", s.listContests)
		r.Get("/active", s.activeContestSummary)

		r.Route("/{contestID}", func(r chi.Router) {
			r.Use(s.validateContestID)
			r.Get("/", s.contestSummary)

			r.Group(func(r chi.Router) {
				r.Use(s.MustBeAuthed)
				r.Post("/join", s.joinContest)
				r.Get("/tasks", s.contestTaskState)
				r.Get("/current-task", s.contestCurrentTask)
				r.Post("/submit", s.submitContestFlag)
				r.Get("/my-results", s.myResults)
			})

			r.Get("/leaderboard", s.contestLeaderboard)
		})
	})

	r.Route("/practice", func(r chi.Router) {
		r.Get("/tasks", s.practiceTasks)
		r.Get("/tasks/{taskID}", s.practiceTask)
		r.With(s.MustBeAuthed).Post("/tasks/{taskID}/submit", s.submitPracticeFlag)
	})

	r.Route("/articles", func(r chi.Router) {
		r.Get("/", s.listArticles)
		r.Get("/{articleSlug}", s.articleBySlug)
		r.With(s.MustBeAuthor).Post("/", s.createArticle)
	})

	r.Get("/ratings/{kind}", s.globalRatings)

	r.Route("/admin", func(r chi.Router) {
		r.Use(s.MustBeAdmin)
		r.Post("/tasks", s.createTask)
		r.Get("/tasks", s.adminListTasks)
		r.Post("/tasks/{taskID}", s.updateTask)
		r.Post("/tasks/generate", s.generateTaskDraft)
		r.Post("/contests", s.createContest)
		r.Post("/contests/{contestID}", s.updateContest)
		r.Put("/contests/{contestID}/tasks", s.setContestTasks)
	})

	return r
}
