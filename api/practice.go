package api

import (
	"net/http"
	"strconv"

	"github.com/HiveCTF/cyberhive"
	"github.com/HiveCTF/cyberhive/internal/util"
	"github.com/go-chi/chi/v5"
)

func (s *API) practiceTasks(w http.ResponseWriter, r *http.Request) {
	var args struct {
		Status string `json:"status"`
	}
	if err := parseRequest(r, &args); err != nil {
		statusError(w, err)
		return
	}
	var statusFilter *cyberhive.ProgressStatus
	if args.Status != "" {
		status := cyberhive.ProgressStatus(args.Status)
		switch status {
		case cyberhive.ProgressNotStarted, cyberhive.ProgressInProgress, cyberhive.ProgressSolved:
			statusFilter = &status
		default:
			errorData(w, "Invalid status filter", http.StatusBadRequest)
			return
		}
	}

	views, serr := s.base.PracticeTasks(r.Context(), util.UserBrief(r), statusFilter)
	if serr != nil {
		statusError(w, serr)
		return
	}
	returnData(w, views)
}

func (s *API) practiceTask(w http.ResponseWriter, r *http.Request) {
	taskID, err := strconv.Atoi(chi.URLParam(r, "taskID"))
	if err != nil {
		errorData(w, "Invalid task ID", http.StatusBadRequest)
		return
	}
	view, serr := s.base.PracticeTask(r.Context(), util.UserBrief(r), taskID)
	if serr != nil {
		statusError(w, serr)
		return
	}
	returnData(w, view)
}

func (s *API) submitPracticeFlag(w http.ResponseWriter, r *http.Request) {
	taskID, err := strconv.Atoi(chi.URLParam(r, "taskID"))
	if err != nil {
		errorData(w, "Invalid task ID", http.StatusBadRequest)
		return
	}
	var req submitFlagRequest
	if err := parseJsonBody(r, &req); err != nil {
		statusError(w, err)
		return
	}

	result, serr := s.base.SubmitPracticeFlag(r.Context(), util.UserBrief(r), taskID, req.FlagID, req.Value)
	if serr != nil {
		recordSubmission("practice", "rejected")
		statusError(w, serr)
		return
	}
	if result.IsCorrect {
		recordSubmission("practice", "correct")
	} else {
		recordSubmission("practice", "incorrect")
	}
	returnData(w, result)
}
