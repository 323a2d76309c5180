package cyberhive

import (
	"context"
	"time"
)

type Contest struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`

	StartAt time.Time `json:"start_at"`
	EndAt   time.Time `json:"end_at"`

	// IsPublic indicates whether non-admins may see and join the contest
	IsPublic bool `json:"is_public"`

	LeaderboardVisible bool `json:"leaderboard_visible"`
}

func (c *Contest) Started() bool {
	if c == nil {
		return false
	}
	return c.StartAt.Before(time.Now())
}

func (c *Contest) Ended() bool {
	if c == nil {
		return false
	}
	return c.EndAt.Before(time.Now())
}

func (c *Contest) Running() bool {
	return c.Started() && !c.Ended()
}

type ContestUpdate struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`

	StartAt *time.Time `json:"start_at"`
	EndAt   *time.Time `json:"end_at"`

	IsPublic           *bool `json:"is_public"`
	LeaderboardVisible *bool `json:"leaderboard_visible"`
}

// ContestTask links a task into a contest at a given position,
// with optional per-contest overrides layered over the base task.
type ContestTask struct {
	ContestID int `json:"contest_id"`
	TaskID    int `json:"task_id"`

	// OrderIndex is zero-based and unique within a contest.
	OrderIndex int `json:"order_index"`

	PointsOverride      *int     `json:"points_override"`
	OverrideTitle       *string  `json:"override_title"`
	OverrideCategory    *string  `json:"override_category"`
	OverrideDifficulty  *int     `json:"override_difficulty"`
	OverrideTags        []string `json:"override_tags"`
	OverrideDescription *string  `json:"override_description"`
}

// ContestTaskPair is one ordered row of a contest's task list.
type ContestTaskPair struct {
	Link *ContestTask
	Task *Task
}

type ContestParticipant struct {
	ContestID int `json:"contest_id"`
	UserID    int `json:"user_id"`

	JoinedAt     time.Time `json:"joined_at"`
	LastActiveAt time.Time `json:"last_active_at"`

	// CompletedAt is set once, the first time all tasks are solved.
	CompletedAt *time.Time `json:"completed_at"`
}

// FlagView is a participant-facing flag descriptor (no expected value).
type FlagView struct {
	FlagID      string  `json:"flag_id"`
	Format      *string `json:"format"`
	Description *string `json:"description"`
	IsSolved    bool    `json:"is_solved"`
}

// ContestTaskView is the merged task as seen by a participant:
// contest overrides applied, per-flag solved markers filled in.
type ContestTaskView struct {
	TaskID     int      `json:"id"`
	Title      string   `json:"title"`
	Category   string   `json:"category"`
	Difficulty int      `json:"difficulty"`
	Points     int      `json:"points"`
	Tags       []string `json:"tags"`

	Description string `json:"participant_description"`
	OrderIndex  int    `json:"order_index"`

	IsSolved bool `json:"is_solved"`

	RequiredFlags      []*FlagView `json:"required_flags"`
	RequiredFlagsCount int         `json:"required_flags_count"`
	SolvedFlagsCount   int         `json:"solved_flags_count"`
}

// MergeContestTask layers the contest overrides over the base task and
// marks which required flags the user has already solved.
func MergeContestTask(pair *ContestTaskPair, flags []*TaskFlag, solvedFlagIDs map[string]bool) *ContestTaskView {
	task, link := pair.Task, pair.Link

	v := &ContestTaskView{
		TaskID:      task.ID,
		Title:       task.Title,
		Category:    task.Category,
		Difficulty:  task.Difficulty,
		Points:      EffectivePoints(task, link),
		Tags:        task.Tags,
		Description: task.Description(),
		OrderIndex:  link.OrderIndex,
	}
	if link.OverrideTitle != nil && *link.OverrideTitle != "" {
		v.Title = *link.OverrideTitle
	}
	if link.OverrideCategory != nil && *link.OverrideCategory != "" {
		v.Category = *link.OverrideCategory
	}
	if link.OverrideDifficulty != nil && *link.OverrideDifficulty > 0 {
		v.Difficulty = *link.OverrideDifficulty
	}
	if link.OverrideTags != nil {
		v.Tags = link.OverrideTags
	}
	if link.OverrideDescription != nil && *link.OverrideDescription != "" {
		v.Description = *link.OverrideDescription
	}
	if v.Tags == nil {
		v.Tags = []string{}
	}

	v.RequiredFlags = make([]*FlagView, 0, len(flags))
	for _, flag := range flags {
		fv := &FlagView{
			FlagID:      flag.FlagID,
			Format:      flag.Format,
			Description: flag.Description,
			IsSolved:    solvedFlagIDs[flag.FlagID],
		}
		if fv.IsSolved {
			v.SolvedFlagsCount++
		}
		v.RequiredFlags = append(v.RequiredFlags, fv)
	}
	v.RequiredFlagsCount = len(v.RequiredFlags)
	return v
}

// ParticipantInfo is one roster entry for leaderboard building.
type ParticipantInfo struct {
	UserID    int     `json:"user_id"`
	Username  string  `json:"username"`
	AvatarURL *string `json:"avatar_url"`
}

type ContestFilter struct {
	// IncludePrivate lifts the is_public restriction (admin view)
	IncludePrivate bool

	Limit  int
	Offset int
}

type ContestStore interface {
	Contest(ctx context.Context, id int) (*Contest, error)
	Contests(ctx context.Context, filter ContestFilter) ([]*Contest, error)
	// ActiveContest returns the newest currently-running contest, or nil.
	ActiveContest(ctx context.Context, includePrivate bool) (*Contest, error)
	// LatestContest returns the newest contest by start time, or nil.
	LatestContest(ctx context.Context, includePrivate bool) (*Contest, error)
	// AdjacentContestIDs returns the ids of the contests starting
	// immediately before and after the given one (either may be nil).
	AdjacentContestIDs(ctx context.Context, contest *Contest) (prev *int, next *int, err error)

	CreateContest(ctx context.Context, contest *Contest) (int, error)
	UpdateContest(ctx context.Context, id int, upd ContestUpdate) error

	// ContestTasks returns the contest's task list sorted by order_index
	// (ties broken by task id).
	ContestTasks(ctx context.Context, contestID int) ([]*ContestTaskPair, error)
	SetContestTasks(ctx context.Context, contestID int, links []*ContestTask) error

	Participant(ctx context.Context, contestID, userID int) (*ContestParticipant, error)
	// LockParticipant fetches the participant row with a row-level lock,
	// serializing concurrent submissions for the same (contest, user).
	LockParticipant(ctx context.Context, contestID, userID int) (*ContestParticipant, error)
	CreateParticipant(ctx context.Context, contestID, userID int) (*ContestParticipant, error)
	TouchParticipant(ctx context.Context, contestID, userID int) error
	// MarkParticipantCompleted sets completed_at once; later calls are no-ops.
	MarkParticipantCompleted(ctx context.Context, contestID, userID int) error
	Participants(ctx context.Context, contestID int) ([]*ParticipantInfo, error)
	ParticipantCount(ctx context.Context, contestID int) (int, error)
}
