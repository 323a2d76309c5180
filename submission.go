package cyberhive

import (
	"context"
	"time"
)

// UnknownFlagID is recorded when a submitted value matched no flag
// definition, so that every attempt is durably kept for audit.
const UnknownFlagID = "unknown"

// Submission is an append-only attempt record. Rows are never updated
// or deleted during normal operation; this immutability is what makes
// the at-most-once scoring argument hold.
type Submission struct {
	ID int `json:"id"`

	// ContestID is nil for practice submissions
	ContestID *int `json:"contest_id"`
	TaskID    int  `json:"task_id"`
	UserID    int  `json:"user_id"`

	FlagID         string `json:"flag_id"`
	SubmittedValue string `json:"submitted_value"`

	IsCorrect     bool `json:"is_correct"`
	AwardedPoints int  `json:"awarded_points"`

	SubmittedAt time.Time `json:"submitted_at"`
}

// TaskProgress is a user's submission-derived state for one task.
type TaskProgress struct {
	HasAnySubmission bool
	HasAnyCorrect    bool
	// SolvedFlagIDs holds the distinct flag ids of correct attempts
	SolvedFlagIDs map[string]bool
}

func (p *TaskProgress) CloneSolved() map[string]bool {
	out := make(map[string]bool, len(p.SolvedFlagIDs))
	for id := range p.SolvedFlagIDs {
		out[id] = true
	}
	return out
}

// CorrectSubmission is the slim row shape used by the leaderboard ranker.
type CorrectSubmission struct {
	ID     int `json:"id"`
	UserID int `json:"user_id"`
	TaskID int `json:"task_id"`

	FlagID        string    `json:"flag_id"`
	AwardedPoints int       `json:"awarded_points"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

// ResultRow is one correct attempt with the task title resolved,
// for the "my results" listing.
type ResultRow struct {
	SubmissionID   int       `json:"submission_id"`
	TaskID         int       `json:"task_id"`
	TaskTitle      string    `json:"task_title"`
	FlagID         string    `json:"flag_id"`
	SubmittedValue string    `json:"submitted_value"`
	AwardedPoints  int       `json:"awarded_points"`
	SubmittedAt    time.Time `json:"submitted_at"`
}

type SubmissionStore interface {
	// CreateSubmission appends one attempt row and fills in its
	// ID and SubmittedAt.
	CreateSubmission(ctx context.Context, sub *Submission) error

	// UserTaskProgress aggregates the user's attempts for the given tasks.
	// contestID scopes to one contest; nil scopes to practice rows
	// (those with no contest).
	UserTaskProgress(ctx context.Context, contestID *int, userID int, taskIDs []int) (map[int]*TaskProgress, error)

	// ContestCorrectSubmissions returns every correct row of a contest,
	// ordered by (submitted_at, id) ascending.
	ContestCorrectSubmissions(ctx context.Context, contestID int) ([]*CorrectSubmission, error)

	UserContestResults(ctx context.Context, contestID, userID int) ([]*ResultRow, error)

	// FirstCorrectSubmitter returns the username of the earliest correct
	// submission in the contest, or nil if there is none.
	FirstCorrectSubmitter(ctx context.Context, contestID int) (*string, error)

	// LockUserTask serializes concurrent practice submissions for the
	// same (user, task) inside the surrounding transaction.
	LockUserTask(ctx context.Context, userID, taskID int) error
}

// Store is the unit-of-work surface the service layer runs against.
// InTx runs fn against a transaction-scoped store; implementations must
// provide at least read-committed isolation so the read-decide-append
// submission sequence cannot double-award.
type Store interface {
	TaskStore
	ContestStore
	SubmissionStore
	UserStore
	RatingStore
	ArticleStore

	InTx(ctx context.Context, fn func(s Store) error) error
}
