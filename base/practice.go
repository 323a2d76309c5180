package base

import (
	"context"
	"errors"
	"strings"

	"github.com/HiveCTF/cyberhive"
)

// PracticeTaskView is a catalog entry with the caller's progress.
type PracticeTaskView struct {
	Task   *cyberhive.Task          `json:"task"`
	Status cyberhive.ProgressStatus `json:"status"`
	Flags  []*cyberhive.FlagView    `json:"flags"`
}

// PracticeTasks lists published practice tasks, optionally filtered by
// progress status.
func (s *BaseAPI) PracticeTasks(ctx context.Context, user *cyberhive.UserBrief, statusFilter *cyberhive.ProgressStatus) ([]*PracticeTaskView, *StatusError) {
	kind, state := cyberhive.TaskKindPractice, cyberhive.TaskStateReady
	tasks, err := s.store.Tasks(ctx, cyberhive.TaskFilter{Kind: &kind, State: &state})
	if err != nil {
		return nil, WrapError(err, "Couldn't fetch tasks")
	}

	taskIDs := make([]int, 0, len(tasks))
	for _, task := range tasks {
		taskIDs = append(taskIDs, task.ID)
	}
	flags, err := s.store.TaskFlags(ctx, taskIDs)
	if err != nil {
		return nil, WrapError(err, "Couldn't fetch task flags")
	}

	progress := map[int]*cyberhive.TaskProgress{}
	if user.IsAuthed() {
		progress, err = s.store.UserTaskProgress(ctx, nil, user.ID, taskIDs)
		if err != nil {
			return nil, WrapError(err, "Couldn't fetch progress")
		}
	}

	views := make([]*PracticeTaskView, 0, len(tasks))
	for _, task := range tasks {
		view := buildPracticeView(task, flags[task.ID], progress[task.ID])
		if statusFilter != nil && view.Status != *statusFilter {
			continue
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *BaseAPI) PracticeTask(ctx context.Context, user *cyberhive.UserBrief, taskID int) (*PracticeTaskView, *StatusError) {
	task, serr := s.practiceTask(ctx, taskID)
	if serr != nil {
		return nil, serr
	}

	flags, err := s.store.TaskFlags(ctx, []int{task.ID})
	if err != nil {
		return nil, WrapError(err, "Couldn't fetch task flags")
	}

	var p *cyberhive.TaskProgress
	if user.IsAuthed() {
		progress, err := s.store.UserTaskProgress(ctx, nil, user.ID, []int{task.ID})
		if err != nil {
			return nil, WrapError(err, "Couldn't fetch progress")
		}
		p = progress[task.ID]
	}
	return buildPracticeView(task, flags[task.ID], p), nil
}

func (s *BaseAPI) practiceTask(ctx context.Context, taskID int) (*cyberhive.Task, *StatusError) {
	task, err := s.store.Task(ctx, taskID)
	if err != nil {
		return nil, WrapError(err, "Couldn't fetch task")
	}
	if task == nil || task.Kind != cyberhive.TaskKindPractice || task.State != cyberhive.TaskStateReady {
		return nil, Statusf(404, "Task not found")
	}
	return task, nil
}

func buildPracticeView(task *cyberhive.Task, flags []*cyberhive.TaskFlag, p *cyberhive.TaskProgress) *PracticeTaskView {
	if p == nil {
		p = &cyberhive.TaskProgress{SolvedFlagIDs: map[string]bool{}}
	}
	required := make([]string, 0, len(flags))
	views := make([]*cyberhive.FlagView, 0, len(flags))
	for _, flag := range flags {
		required = append(required, flag.FlagID)
		views = append(views, &cyberhive.FlagView{
			FlagID:      flag.FlagID,
			Format:      flag.Format,
			Description: flag.Description,
			IsSolved:    p.SolvedFlagIDs[flag.FlagID],
		})
	}
	return &PracticeTaskView{
		Task:   task,
		Status: cyberhive.StatusOf(p.HasAnySubmission, required, p.SolvedFlagIDs, p.HasAnyCorrect),
		Flags:  views,
	}
}

// PracticeResult is the outcome of one practice flag submission.
type PracticeResult struct {
	IsCorrect     bool `json:"is_correct"`
	AwardedPoints int  `json:"awarded_points"`

	Status             cyberhive.ProgressStatus `json:"status"`
	SolvedFlagsCount   int                      `json:"solved_flags_count"`
	RequiredFlagsCount int                      `json:"required_flags_count"`

	Message string `json:"message"`
}

// SubmitPracticeFlag grades a practice attempt. Awards bump the user's
// practice rating; the advisory lock keeps double submissions of the
// final flag from scoring twice.
func (s *BaseAPI) SubmitPracticeFlag(ctx context.Context, user *cyberhive.UserBrief, taskID int, explicitFlagID, value string) (*PracticeResult, *StatusError) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, Statusf(400, "Flag value must not be empty")
	}
	if serr := s.checkSubmitRate(ctx, "practice-submit", user.ID); serr != nil {
		return nil, serr
	}

	task, serr := s.practiceTask(ctx, taskID)
	if serr != nil {
		return nil, serr
	}

	var result *PracticeResult
	err := s.store.InTx(ctx, func(store cyberhive.Store) error {
		if err := store.LockUserTask(ctx, user.ID, task.ID); err != nil {
			return WrapError(err, "Couldn't lock task")
		}

		flags, err := store.TaskFlags(ctx, []int{task.ID})
		if err != nil {
			return WrapError(err, "Couldn't fetch task flags")
		}
		taskFlags := flags[task.ID]
		if len(taskFlags) == 0 {
			return Statusf(400, "Task has no flags configured")
		}

		progress, err := store.UserTaskProgress(ctx, nil, user.ID, []int{task.ID})
		if err != nil {
			return WrapError(err, "Couldn't fetch progress")
		}
		p := progress[task.ID]

		required := make([]string, 0, len(taskFlags))
		for _, flag := range taskFlags {
			required = append(required, flag.FlagID)
		}
		wasSolved := cyberhive.TaskSolved(required, p.SolvedFlagIDs, p.HasAnyCorrect)

		matched, serr := cyberhive.MatchFlag(taskFlags, explicitFlagID, value)
		if serr != nil {
			return serr
		}

		solvedAfter := p.CloneSolved()
		if matched != nil {
			solvedAfter[matched.FlagID] = true
		}
		nowSolved := cyberhive.TaskSolved(required, solvedAfter, p.HasAnyCorrect || matched != nil)
		awarded := cyberhive.AwardPoints(matched != nil, wasSolved, nowSolved, cyberhive.EffectivePoints(task, nil))

		sub := &cyberhive.Submission{
			TaskID:         task.ID,
			UserID:         user.ID,
			FlagID:         recordedFlagID(matched, explicitFlagID),
			SubmittedValue: value,
			IsCorrect:      matched != nil,
			AwardedPoints:  awarded,
		}
		if err := store.CreateSubmission(ctx, sub); err != nil {
			return WrapError(err, "Couldn't record submission")
		}

		if awarded > 0 {
			if err := store.AddPracticePoints(ctx, user.ID, awarded); err != nil {
				return WrapError(err, "Couldn't update rating")
			}
		}

		solvedCount := 0
		for _, id := range required {
			if solvedAfter[id] {
				solvedCount++
			}
		}
		result = &PracticeResult{
			IsCorrect:     matched != nil,
			AwardedPoints: awarded,

			Status:             cyberhive.StatusOf(true, required, solvedAfter, p.HasAnyCorrect || matched != nil),
			SolvedFlagsCount:   solvedCount,
			RequiredFlagsCount: len(required),
		}
		// "Task solved." only on the attempt that actually scored, so
		// re-submitting the final flag of a solved task stays plain.
		switch {
		case awarded > 0:
			result.Message = "Flag accepted. Task solved."
		case matched != nil:
			result.Message = "Flag accepted."
		default:
			result.Message = "Incorrect flag. Try again."
		}
		return nil
	})
	if err != nil {
		var serr *StatusError
		if errors.As(err, &serr) {
			return nil, serr
		}
		return nil, WrapError(err, "Couldn't process submission")
	}
	return result, nil
}
