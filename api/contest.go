package api

import (
	"net/http"

	"github.com/HiveCTF/cyberhive"
	"github.com/HiveCTF/cyberhive/internal/util"
)

func (s *API) listContests(w http.ResponseWriter, r *http.Request) {
	var args struct {
		Limit  int `json:"limit"`
		Offset int `json:"offset"`
	}
	if err := parseRequest(r, &args); err != nil {
		statusError(w, err)
		return
	}
	contests, serr := s.base.Contests(r.Context(), cyberhive.ContestFilter{
		IncludePrivate: util.UserBrief(r).IsAdmin(),
		Limit:          args.Limit,
		Offset:         args.Offset,
	})
	if serr != nil {
		statusError(w, serr)
		return
	}
	returnData(w, contests)
}

func (s *API) activeContestSummary(w http.ResponseWriter, r *http.Request) {
	summary, serr := s.base.ActiveContestSummary(r.Context(), util.UserBrief(r))
	if serr != nil {
		statusError(w, serr)
		return
	}
	returnData(w, summary)
}

func (s *API) contestSummary(w http.ResponseWriter, r *http.Request) {
	summary, serr := s.base.ContestSummary(r.Context(), util.Contest(r), util.UserBrief(r))
	if serr != nil {
		statusError(w, serr)
		return
	}
	returnData(w, summary)
}

func (s *API) joinContest(w http.ResponseWriter, r *http.Request) {
	participant, serr := s.base.JoinContest(r.Context(), util.Contest(r), util.UserBrief(r))
	if serr != nil {
		statusError(w, serr)
		return
	}
	returnData(w, participant)
}

func (s *API) contestTaskState(w http.ResponseWriter, r *http.Request) {
	state, serr := s.base.ContestTaskState(r.Context(), util.Contest(r), util.UserBrief(r))
	if serr != nil {
		statusError(w, serr)
		return
	}
	returnData(w, state)
}

func (s *API) contestCurrentTask(w http.ResponseWriter, r *http.Request) {
	state, serr := s.base.ContestTaskState(r.Context(), util.Contest(r), util.UserBrief(r))
	if serr != nil {
		statusError(w, serr)
		return
	}
	returnData(w, struct {
		CurrentTask *cyberhive.ContestTaskView `json:"current_task"`
		Finished    bool                       `json:"finished"`
	}{state.CurrentTask, state.Finished})
}

type submitFlagRequest struct {
	TaskID *int   `json:"task_id"`
	FlagID string `json:"flag_id"`
	Value  string `json:"value"`
}

func (s *API) submitContestFlag(w http.ResponseWriter, r *http.Request) {
	var req submitFlagRequest
	if err := parseJsonBody(r, &req); err != nil {
		statusError(w, err)
		return
	}

	result, serr := s.base.SubmitContestFlag(r.Context(), util.Contest(r), util.UserBrief(r), req.TaskID, req.FlagID, req.Value)
	if serr != nil {
		recordSubmission("contest", "rejected")
		statusError(w, serr)
		return
	}
	if result.IsCorrect {
		recordSubmission("contest", "correct")
	} else {
		recordSubmission("contest", "incorrect")
	}
	returnData(w, result)
}

func (s *API) myResults(w http.ResponseWriter, r *http.Request) {
	results, serr := s.base.MyResults(r.Context(), util.Contest(r), util.UserBrief(r))
	if serr != nil {
		statusError(w, serr)
		return
	}
	returnData(w, results)
}

func (s *API) contestLeaderboard(w http.ResponseWriter, r *http.Request) {
	lb, serr := s.base.ContestLeaderboard(r.Context(), util.Contest(r), util.UserBrief(r))
	if serr != nil {
		statusError(w, serr)
		return
	}
	returnData(w, lb)
}
