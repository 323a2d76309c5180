package db

import (
	"context"
	"time"

	"github.com/HiveCTF/cyberhive"
)

const createSubmissionQuery = `INSERT INTO submissions
	(contest_id, task_id, user_id, flag_id, submitted_value, is_correct, awarded_points)
	VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, submitted_at`

func (s *DB) CreateSubmission(ctx context.Context, sub *cyberhive.Submission) error {
	return s.conn.QueryRow(ctx, createSubmissionQuery,
		sub.ContestID, sub.TaskID, sub.UserID,
		sub.FlagID, sub.SubmittedValue, sub.IsCorrect, sub.AwardedPoints,
	).Scan(&sub.ID, &sub.SubmittedAt)
}

type dbProgressRow struct {
	TaskID    int    `db:"task_id"`
	FlagID    string `db:"flag_id"`
	IsCorrect bool   `db:"is_correct"`
}

func (s *DB) UserTaskProgress(ctx context.Context, contestID *int, userID int, taskIDs []int) (map[int]*cyberhive.TaskProgress, error) {
	progress := make(map[int]*cyberhive.TaskProgress, len(taskIDs))
	for _, id := range taskIDs {
		progress[id] = &cyberhive.TaskProgress{SolvedFlagIDs: make(map[string]bool)}
	}
	if len(taskIDs) == 0 {
		return progress, nil
	}

	fb := newFilterBuilder()
	if contestID == nil {
		fb.AddConstraint("contest_id IS NULL")
	} else {
		fb.AddConstraint("contest_id = %s", *contestID)
	}
	fb.AddConstraint("user_id = %s", userID)
	fb.AddConstraint("task_id = ANY(%s)", taskIDs)

	rows, err := selectRows[dbProgressRow](ctx, s.conn,
		"SELECT task_id, flag_id, is_correct FROM submissions WHERE "+fb.Where(), fb.Args()...)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		p, ok := progress[row.TaskID]
		if !ok {
			continue
		}
		p.HasAnySubmission = true
		if row.IsCorrect {
			p.HasAnyCorrect = true
			if row.FlagID != "" && row.FlagID != cyberhive.UnknownFlagID {
				p.SolvedFlagIDs[row.FlagID] = true
			}
		}
	}
	return progress, nil
}

type dbCorrectSubmission struct {
	ID     int `db:"id"`
	UserID int `db:"user_id"`
	TaskID int `db:"task_id"`

	FlagID        string    `db:"flag_id"`
	AwardedPoints int       `db:"awarded_points"`
	SubmittedAt   time.Time `db:"submitted_at"`
}

func (s *DB) ContestCorrectSubmissions(ctx context.Context, contestID int) ([]*cyberhive.CorrectSubmission, error) {
	rows, err := selectRows[dbCorrectSubmission](ctx, s.conn,
		`SELECT id, user_id, task_id, flag_id, awarded_points, submitted_at
			FROM submissions
			WHERE contest_id = $1 AND is_correct = true
			ORDER BY submitted_at ASC, id ASC`, contestID)
	if err != nil {
		return nil, err
	}
	return mapper(rows, func(row *dbCorrectSubmission) *cyberhive.CorrectSubmission {
		return &cyberhive.CorrectSubmission{
			ID:     row.ID,
			UserID: row.UserID,
			TaskID: row.TaskID,

			FlagID:        row.FlagID,
			AwardedPoints: row.AwardedPoints,
			SubmittedAt:   row.SubmittedAt,
		}
	}), nil
}

type dbResultRow struct {
	SubmissionID   int       `db:"submission_id"`
	TaskID         int       `db:"task_id"`
	TaskTitle      string    `db:"task_title"`
	FlagID         string    `db:"flag_id"`
	SubmittedValue string    `db:"submitted_value"`
	AwardedPoints  int       `db:"awarded_points"`
	SubmittedAt    time.Time `db:"submitted_at"`
}

func (s *DB) UserContestResults(ctx context.Context, contestID, userID int) ([]*cyberhive.ResultRow, error) {
	rows, err := selectRows[dbResultRow](ctx, s.conn,
		`SELECT s.id AS submission_id, s.task_id,
			COALESCE(ct.override_title, t.title) AS task_title,
			s.flag_id, s.submitted_value, s.awarded_points, s.submitted_at
			FROM submissions s
			JOIN tasks t ON t.id = s.task_id
			LEFT JOIN contest_tasks ct ON ct.contest_id = s.contest_id AND ct.task_id = s.task_id
			WHERE s.contest_id = $1 AND s.user_id = $2 AND s.is_correct = true
			ORDER BY s.submitted_at ASC, s.id ASC`, contestID, userID)
	if err != nil {
		return nil, err
	}
	return mapper(rows, func(row *dbResultRow) *cyberhive.ResultRow {
		return &cyberhive.ResultRow{
			SubmissionID:   row.SubmissionID,
			TaskID:         row.TaskID,
			TaskTitle:      row.TaskTitle,
			FlagID:         row.FlagID,
			SubmittedValue: row.SubmittedValue,
			AwardedPoints:  row.AwardedPoints,
			SubmittedAt:    row.SubmittedAt,
		}
	}), nil
}

func (s *DB) FirstCorrectSubmitter(ctx context.Context, contestID int) (*string, error) {
	type row struct {
		Username string `db:"username"`
	}
	r, err := getRow[row](ctx, s.conn,
		`SELECT COALESCE(up.username, '') AS username
			FROM submissions s
			LEFT JOIN user_profiles up ON up.user_id = s.user_id
			WHERE s.contest_id = $1 AND s.is_correct = true
			ORDER BY s.submitted_at ASC, s.id ASC
			LIMIT 1`, contestID)
	if err != nil || r == nil {
		return nil, err
	}
	return &r.Username, nil
}

// LockUserTask takes a transaction-scoped advisory lock so two practice
// submissions for the same (user, task) cannot interleave.
func (s *DB) LockUserTask(ctx context.Context, userID, taskID int) error {
	_, err := s.conn.Exec(ctx, "SELECT pg_advisory_xact_lock($1, $2)", userID, taskID)
	return err
}
