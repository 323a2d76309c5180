package api

import (
	"net/http"
	"strconv"

	"github.com/HiveCTF/cyberhive"
	"github.com/go-chi/chi/v5"
)

func (s *API) createTask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title      string   `json:"title"`
		Category   string   `json:"category"`
		Difficulty int      `json:"difficulty"`
		Points     int      `json:"points"`
		Tags       []string `json:"tags"`

		Story                  *string `json:"story"`
		ParticipantDescription *string `json:"participant_description"`

		Kind  string `json:"kind"`
		State string `json:"state"`

		Flags []struct {
			FlagID        string  `json:"flag_id"`
			ExpectedValue string  `json:"expected_value"`
			Format        *string `json:"format"`
			Description   *string `json:"description"`
		} `json:"flags"`
	}
	if err := parseJsonBody(r, &req); err != nil {
		statusError(w, err)
		return
	}

	task := &cyberhive.Task{
		Title:      req.Title,
		Category:   req.Category,
		Difficulty: req.Difficulty,
		Points:     req.Points,
		Tags:       req.Tags,

		Story:                  req.Story,
		ParticipantDescription: req.ParticipantDescription,

		Kind:  cyberhive.TaskKind(req.Kind),
		State: cyberhive.TaskState(req.State),
	}
	flags := make([]*cyberhive.TaskFlag, 0, len(req.Flags))
	for _, f := range req.Flags {
		flags = append(flags, &cyberhive.TaskFlag{
			FlagID:        f.FlagID,
			ExpectedValue: f.ExpectedValue,
			Format:        f.Format,
			Description:   f.Description,
		})
	}

	id, serr := s.base.CreateTask(r.Context(), task, flags)
	if serr != nil {
		statusError(w, serr)
		return
	}
	returnData(w, id)
}

func (s *API) adminListTasks(w http.ResponseWriter, r *http.Request) {
	var filter cyberhive.TaskFilter
	if err := parseRequest(r, &filter); err != nil {
		statusError(w, err)
		return
	}
	tasks, serr := s.base.Tasks(r.Context(), filter)
	if serr != nil {
		statusError(w, serr)
		return
	}
	returnData(w, tasks)
}

func (s *API) updateTask(w http.ResponseWriter, r *http.Request) {
	taskID, err := strconv.Atoi(chi.URLParam(r, "taskID"))
	if err != nil {
		errorData(w, "Invalid task ID", http.StatusBadRequest)
		return
	}
	var upd cyberhive.TaskUpdate
	if err := parseJsonBody(r, &upd); err != nil {
		statusError(w, err)
		return
	}
	if serr := s.base.UpdateTask(r.Context(), taskID, upd); serr != nil {
		statusError(w, serr)
		return
	}
	returnData(w, "Task updated")
}

func (s *API) generateTaskDraft(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Topic string `json:"topic"`
	}
	if err := parseJsonBody(r, &req); err != nil {
		statusError(w, err)
		return
	}
	draft, serr := s.base.GenerateTaskDraft(r.Context(), req.Topic)
	if serr != nil {
		statusError(w, serr)
		return
	}
	returnData(w, draft)
}

func (s *API) createContest(w http.ResponseWriter, r *http.Request) {
	var contest cyberhive.Contest
	if err := parseJsonBody(r, &contest); err != nil {
		statusError(w, err)
		return
	}
	id, serr := s.base.CreateContest(r.Context(), &contest)
	if serr != nil {
		statusError(w, serr)
		return
	}
	returnData(w, id)
}

func (s *API) updateContest(w http.ResponseWriter, r *http.Request) {
	contestID, err := strconv.Atoi(chi.URLParam(r, "contestID"))
	if err != nil {
		errorData(w, "Invalid contest ID", http.StatusBadRequest)
		return
	}
	var upd cyberhive.ContestUpdate
	if err := parseJsonBody(r, &upd); err != nil {
		statusError(w, err)
		return
	}
	if serr := s.base.UpdateContest(r.Context(), contestID, upd); serr != nil {
		statusError(w, serr)
		return
	}
	returnData(w, "Contest updated")
}

func (s *API) setContestTasks(w http.ResponseWriter, r *http.Request) {
	contestID, err := strconv.Atoi(chi.URLParam(r, "contestID"))
	if err != nil {
		errorData(w, "Invalid contest ID", http.StatusBadRequest)
		return
	}
	var req struct {
		Tasks []*cyberhive.ContestTask `json:"tasks"`
	}
	if err := parseJsonBody(r, &req); err != nil {
		statusError(w, err)
		return
	}
	if serr := s.base.SetContestTasks(r.Context(), contestID, req.Tasks); serr != nil {
		statusError(w, serr)
		return
	}
	returnData(w, "Contest tasks updated")
}
