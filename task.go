package cyberhive

import (
	"context"
	"time"
)

type TaskKind string

const (
	TaskKindContest  TaskKind = "contest"
	TaskKindPractice TaskKind = "practice"
)

type TaskState string

const (
	TaskStateDraft TaskState = "draft"
	TaskStateReady TaskState = "ready"
)

// Task is a challenge definition. Immutable during a submission.
type Task struct {
	ID        int       `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	Title      string   `json:"title"`
	Category   string   `json:"category"`
	Difficulty int      `json:"difficulty"`
	Points     int      `json:"points"`
	Tags       []string `json:"tags"`

	Story                  *string `json:"story"`
	ParticipantDescription *string `json:"participant_description"`

	Kind  TaskKind  `json:"kind"`
	State TaskState `json:"state"`
}

// Description is the text shown to participants.
func (t *Task) Description() string {
	if t.ParticipantDescription != nil && *t.ParticipantDescription != "" {
		return *t.ParticipantDescription
	}
	if t.Story != nil {
		return *t.Story
	}
	return ""
}

// TaskFlag is one required sub-flag of a task.
// A task's required flag set is the set of all its FlagIDs.
type TaskFlag struct {
	ID     int `json:"id"`
	TaskID int `json:"task_id"`

	FlagID        string  `json:"flag_id"`
	ExpectedValue string  `json:"-"`
	Format        *string `json:"format"`
	Description   *string `json:"description"`
}

type TaskFilter struct {
	ID    *int       `json:"id"`
	IDs   []int      `json:"ids"`
	Kind  *TaskKind  `json:"kind"`
	State *TaskState `json:"state"`

	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

type TaskUpdate struct {
	Title      *string  `json:"title"`
	Category   *string  `json:"category"`
	Difficulty *int     `json:"difficulty"`
	Points     *int     `json:"points"`
	Tags       []string `json:"tags"`

	Story                  *string `json:"story"`
	ParticipantDescription *string `json:"participant_description"`

	Kind  *TaskKind  `json:"kind"`
	State *TaskState `json:"state"`
}

type TaskStore interface {
	Task(ctx context.Context, id int) (*Task, error)
	Tasks(ctx context.Context, filter TaskFilter) ([]*Task, error)
	CreateTask(ctx context.Context, task *Task, flags []*TaskFlag) (int, error)
	UpdateTask(ctx context.Context, id int, upd TaskUpdate) error
	// TaskFlags returns flag definitions grouped by task,
	// each group in ascending definition order.
	TaskFlags(ctx context.Context, taskIDs []int) (map[int][]*TaskFlag, error)
}
