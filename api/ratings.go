package api

import (
	"net/http"

	"github.com/HiveCTF/cyberhive"
	"github.com/go-chi/chi/v5"
)

func (s *API) globalRatings(w http.ResponseWriter, r *http.Request) {
	kind := cyberhive.RatingKind(chi.URLParam(r, "kind"))
	rows, serr := s.base.GlobalRatings(r.Context(), kind)
	if serr != nil {
		statusError(w, serr)
		return
	}
	returnData(w, rows)
}
