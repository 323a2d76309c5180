package api

import (
	"net/http"

	"github.com/HiveCTF/cyberhive/internal/util"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

type signupRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (req signupRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Email, validation.Required, is.Email),
		validation.Field(&req.Username, validation.Required, validation.Length(3, 32), is.Alphanumeric),
		validation.Field(&req.Password, validation.Required, validation.Length(8, 72)),
	)
}

func (s *API) signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := parseJsonBody(r, &req); err != nil {
		statusError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		errorData(w, err, http.StatusBadRequest)
		return
	}

	if _, serr := s.base.Register(r.Context(), req.Email, req.Username, req.Password); serr != nil {
		statusError(w, serr)
		return
	}
	token, user, serr := s.base.Login(r.Context(), req.Email, req.Password)
	if serr != nil {
		statusError(w, serr)
		return
	}
	returnData(w, struct {
		User  any    `json:"user"`
		Token string `json:"token"`
	}{user, token})
}

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

func (s *API) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := parseJsonBody(r, &req); err != nil {
		statusError(w, err)
		return
	}
	if req.Login == "" || req.Password == "" {
		errorData(w, "Missing credentials", http.StatusBadRequest)
		return
	}

	token, user, serr := s.base.Login(r.Context(), req.Login, req.Password)
	if serr != nil {
		statusError(w, serr)
		return
	}
	returnData(w, struct {
		User  any    `json:"user"`
		Token string `json:"token"`
	}{user, token})
}

func (s *API) currentUser(w http.ResponseWriter, r *http.Request) {
	user := util.UserFull(r)
	rating, serr := s.base.UserRating(r.Context(), user.ID)
	if serr != nil {
		statusError(w, serr)
		return
	}
	returnData(w, struct {
		User   any `json:"user"`
		Rating any `json:"rating"`
	}{user, rating})
}
