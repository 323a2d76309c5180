package base

import (
	"context"

	"github.com/HiveCTF/cyberhive"
)

// CreateTask validates and persists a task with its flag definitions.
func (s *BaseAPI) CreateTask(ctx context.Context, task *cyberhive.Task, flags []*cyberhive.TaskFlag) (int, *StatusError) {
	if task.Kind != cyberhive.TaskKindContest && task.Kind != cyberhive.TaskKindPractice {
		return -1, Statusf(400, "Invalid task kind")
	}
	if task.State == "" {
		task.State = cyberhive.TaskStateDraft
	}
	seen := make(map[string]bool, len(flags))
	for _, flag := range flags {
		if flag.FlagID == "" || flag.FlagID == cyberhive.UnknownFlagID {
			return -1, Statusf(400, "Invalid flag id %q", flag.FlagID)
		}
		if flag.ExpectedValue == "" {
			return -1, Statusf(400, "Flag %q has no expected value", flag.FlagID)
		}
		if seen[flag.FlagID] {
			return -1, Statusf(400, "Duplicate flag id %q", flag.FlagID)
		}
		seen[flag.FlagID] = true
	}

	id, err := s.store.CreateTask(ctx, task, flags)
	if err != nil {
		return -1, WrapError(err, "Couldn't create task")
	}
	return id, nil
}

func (s *BaseAPI) UpdateTask(ctx context.Context, id int, upd cyberhive.TaskUpdate) *StatusError {
	if err := s.store.UpdateTask(ctx, id, upd); err != nil {
		return WrapError(err, "Couldn't update task")
	}
	return nil
}

func (s *BaseAPI) Task(ctx context.Context, id int) (*cyberhive.Task, *StatusError) {
	task, err := s.store.Task(ctx, id)
	if err != nil {
		return nil, WrapError(err, "Couldn't fetch task")
	}
	if task == nil {
		return nil, Statusf(404, "Task not found")
	}
	return task, nil
}

func (s *BaseAPI) Tasks(ctx context.Context, filter cyberhive.TaskFilter) ([]*cyberhive.Task, *StatusError) {
	tasks, err := s.store.Tasks(ctx, filter)
	if err != nil {
		return nil, WrapError(err, "Couldn't fetch tasks")
	}
	return tasks, nil
}

func (s *BaseAPI) CreateContest(ctx context.Context, contest *cyberhive.Contest) (int, *StatusError) {
	if !contest.EndAt.After(contest.StartAt) {
		return -1, Statusf(400, "Contest must end after it starts")
	}
	id, err := s.store.CreateContest(ctx, contest)
	if err != nil {
		return -1, WrapError(err, "Couldn't create contest")
	}
	return id, nil
}

func (s *BaseAPI) UpdateContest(ctx context.Context, id int, upd cyberhive.ContestUpdate) *StatusError {
	if err := s.store.UpdateContest(ctx, id, upd); err != nil {
		return WrapError(err, "Couldn't update contest")
	}
	return nil
}

// SetContestTasks replaces the contest's ordered task list. Positions
// and tasks must both be unique; gaps in the order are allowed.
func (s *BaseAPI) SetContestTasks(ctx context.Context, contestID int, links []*cyberhive.ContestTask) *StatusError {
	seenOrder := make(map[int]bool, len(links))
	seenTask := make(map[int]bool, len(links))
	for _, link := range links {
		if link.OrderIndex < 0 {
			return Statusf(400, "Order index must not be negative")
		}
		if seenOrder[link.OrderIndex] {
			return Statusf(400, "Duplicate order index %d", link.OrderIndex)
		}
		if seenTask[link.TaskID] {
			return Statusf(400, "Task %d linked twice", link.TaskID)
		}
		seenOrder[link.OrderIndex] = true
		seenTask[link.TaskID] = true
		link.ContestID = contestID
	}

	tasks, err := s.store.Tasks(ctx, cyberhive.TaskFilter{IDs: keys(seenTask)})
	if err != nil {
		return WrapError(err, "Couldn't verify tasks")
	}
	if len(tasks) != len(seenTask) {
		return Statusf(400, "Some linked tasks do not exist")
	}

	if err := s.store.SetContestTasks(ctx, contestID, links); err != nil {
		return WrapError(err, "Couldn't update contest tasks")
	}
	return nil
}

func keys(m map[int]bool) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
