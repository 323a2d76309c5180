package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/HiveCTF/cyberhive"
	"github.com/jackc/pgx/v5"
)

type dbContest struct {
	ID          int     `db:"id"`
	Title       string  `db:"title"`
	Description *string `db:"description"`

	StartAt time.Time `db:"start_at"`
	EndAt   time.Time `db:"end_at"`

	IsPublic           bool `db:"is_public"`
	LeaderboardVisible bool `db:"leaderboard_visible"`
}

func (s *DB) Contest(ctx context.Context, id int) (*cyberhive.Contest, error) {
	contest, err := getRow[dbContest](ctx, s.conn, "SELECT * FROM contests WHERE id = $1 LIMIT 1", id)
	if err != nil || contest == nil {
		return nil, err
	}
	return internalToContest(contest), nil
}

func (s *DB) Contests(ctx context.Context, filter cyberhive.ContestFilter) ([]*cyberhive.Contest, error) {
	fb := newFilterBuilder()
	if !filter.IncludePrivate {
		fb.AddConstraint("is_public = true")
	}
	query := fmt.Sprintf("SELECT * FROM contests WHERE %s ORDER BY start_at DESC %s", fb.Where(), FormatLimitOffset(filter.Limit, filter.Offset))
	contests, err := selectRows[dbContest](ctx, s.conn, query, fb.Args()...)
	if err != nil {
		return nil, err
	}
	return mapper(contests, internalToContest), nil
}

func (s *DB) ActiveContest(ctx context.Context, includePrivate bool) (*cyberhive.Contest, error) {
	fb := newFilterBuilder()
	fb.AddConstraint("start_at <= NOW()")
	fb.AddConstraint("end_at >= NOW()")
	if !includePrivate {
		fb.AddConstraint("is_public = true")
	}
	contest, err := getRow[dbContest](ctx, s.conn,
		"SELECT * FROM contests WHERE "+fb.Where()+" ORDER BY start_at DESC LIMIT 1", fb.Args()...)
	if err != nil || contest == nil {
		return nil, err
	}
	return internalToContest(contest), nil
}

func (s *DB) LatestContest(ctx context.Context, includePrivate bool) (*cyberhive.Contest, error) {
	fb := newFilterBuilder()
	if !includePrivate {
		fb.AddConstraint("is_public = true")
	}
	contest, err := getRow[dbContest](ctx, s.conn,
		"SELECT * FROM contests WHERE "+fb.Where()+" ORDER BY start_at DESC LIMIT 1", fb.Args()...)
	if err != nil || contest == nil {
		return nil, err
	}
	return internalToContest(contest), nil
}

func (s *DB) AdjacentContestIDs(ctx context.Context, contest *cyberhive.Contest) (*int, *int, error) {
	var prev, next *int

	err := s.conn.QueryRow(ctx,
		"SELECT id FROM contests WHERE start_at < $1 ORDER BY start_at DESC LIMIT 1", contest.StartAt).Scan(&prev)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, err
	}
	err = s.conn.QueryRow(ctx,
		"SELECT id FROM contests WHERE start_at > $1 ORDER BY start_at ASC LIMIT 1", contest.StartAt).Scan(&next)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, err
	}
	return prev, next, nil
}

func (s *DB) CreateContest(ctx context.Context, contest *cyberhive.Contest) (int, error) {
	if contest.Title == "" || contest.StartAt.IsZero() || contest.EndAt.IsZero() {
		return -1, cyberhive.ErrMissingRequired
	}
	var id int
	err := s.conn.QueryRow(ctx,
		"INSERT INTO contests (title, description, start_at, end_at, is_public, leaderboard_visible) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id",
		contest.Title, contest.Description, contest.StartAt, contest.EndAt, contest.IsPublic, contest.LeaderboardVisible,
	).Scan(&id)
	if err != nil {
		return -1, err
	}
	contest.ID = id
	return id, nil
}

func (s *DB) UpdateContest(ctx context.Context, id int, upd cyberhive.ContestUpdate) error {
	ub := newUpdateBuilder()
	if v := upd.Title; v != nil {
		ub.AddUpdate("title = %s", v)
	}
	if v := upd.Description; v != nil {
		ub.AddUpdate("description = %s", v)
	}
	if v := upd.StartAt; v != nil {
		ub.AddUpdate("start_at = %s", v)
	}
	if v := upd.EndAt; v != nil {
		ub.AddUpdate("end_at = %s", v)
	}
	if v := upd.IsPublic; v != nil {
		ub.AddUpdate("is_public = %s", v)
	}
	if v := upd.LeaderboardVisible; v != nil {
		ub.AddUpdate("leaderboard_visible = %s", v)
	}
	if err := ub.CheckUpdates(); err != nil {
		return err
	}
	fb := ub.MakeFilter()
	fb.AddConstraint("id = %s", id)
	_, err := s.conn.Exec(ctx, "UPDATE contests SET "+fb.WithUpdate(), fb.Args()...)
	return err
}

type dbContestTask struct {
	ContestID  int `db:"contest_id"`
	TaskID     int `db:"task_id"`
	OrderIndex int `db:"order_index"`

	PointsOverride      *int     `db:"points_override"`
	OverrideTitle       *string  `db:"override_title"`
	OverrideCategory    *string  `db:"override_category"`
	OverrideDifficulty  *int     `db:"override_difficulty"`
	OverrideTags        []string `db:"override_tags"`
	OverrideDescription *string  `db:"override_description"`
}

func (s *DB) ContestTasks(ctx context.Context, contestID int) ([]*cyberhive.ContestTaskPair, error) {
	links, err := selectRows[dbContestTask](ctx, s.conn,
		"SELECT * FROM contest_tasks WHERE contest_id = $1 ORDER BY order_index ASC, task_id ASC", contestID)
	if err != nil {
		return nil, err
	}
	if len(links) == 0 {
		return []*cyberhive.ContestTaskPair{}, nil
	}

	taskIDs := make([]int, 0, len(links))
	for _, link := range links {
		taskIDs = append(taskIDs, link.TaskID)
	}
	tasks, err := s.Tasks(ctx, cyberhive.TaskFilter{IDs: taskIDs})
	if err != nil {
		return nil, err
	}
	tasksByID := make(map[int]*cyberhive.Task, len(tasks))
	for _, task := range tasks {
		tasksByID[task.ID] = task
	}

	pairs := make([]*cyberhive.ContestTaskPair, 0, len(links))
	for _, link := range links {
		task, ok := tasksByID[link.TaskID]
		if !ok {
			continue
		}
		pairs = append(pairs, &cyberhive.ContestTaskPair{
			Link: internalToContestTask(link),
			Task: task,
		})
	}
	return pairs, nil
}

func (s *DB) SetContestTasks(ctx context.Context, contestID int, links []*cyberhive.ContestTask) error {
	return s.InTx(ctx, func(store cyberhive.Store) error {
		tx := store.(*DB)
		if _, err := tx.conn.Exec(ctx, "DELETE FROM contest_tasks WHERE contest_id = $1", contestID); err != nil {
			return err
		}
		for _, link := range links {
			if _, err := tx.conn.Exec(ctx,
				`INSERT INTO contest_tasks
					(contest_id, task_id, order_index, points_override, override_title, override_category, override_difficulty, override_tags, override_description)
					VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
				contestID, link.TaskID, link.OrderIndex, link.PointsOverride,
				link.OverrideTitle, link.OverrideCategory, link.OverrideDifficulty,
				link.OverrideTags, link.OverrideDescription,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

type dbParticipant struct {
	ContestID int `db:"contest_id"`
	UserID    int `db:"user_id"`

	JoinedAt     time.Time  `db:"joined_at"`
	LastActiveAt time.Time  `db:"last_active_at"`
	CompletedAt  *time.Time `db:"completed_at"`
}

func (s *DB) Participant(ctx context.Context, contestID, userID int) (*cyberhive.ContestParticipant, error) {
	p, err := getRow[dbParticipant](ctx, s.conn,
		"SELECT * FROM contest_participants WHERE contest_id = $1 AND user_id = $2 LIMIT 1", contestID, userID)
	if err != nil || p == nil {
		return nil, err
	}
	return internalToParticipant(p), nil
}

// LockParticipant takes the row lock that serializes the
// read-decide-append submission sequence per (contest, user).
func (s *DB) LockParticipant(ctx context.Context, contestID, userID int) (*cyberhive.ContestParticipant, error) {
	p, err := getRow[dbParticipant](ctx, s.conn,
		"SELECT * FROM contest_participants WHERE contest_id = $1 AND user_id = $2 LIMIT 1 FOR UPDATE", contestID, userID)
	if err != nil || p == nil {
		return nil, err
	}
	return internalToParticipant(p), nil
}

func (s *DB) CreateParticipant(ctx context.Context, contestID, userID int) (*cyberhive.ContestParticipant, error) {
	p, err := getRow[dbParticipant](ctx, s.conn,
		`INSERT INTO contest_participants (contest_id, user_id, joined_at, last_active_at)
			VALUES ($1, $2, NOW(), NOW())
			ON CONFLICT (contest_id, user_id) DO UPDATE SET last_active_at = NOW()
			RETURNING *`,
		contestID, userID)
	if err != nil || p == nil {
		return nil, err
	}
	return internalToParticipant(p), nil
}

func (s *DB) TouchParticipant(ctx context.Context, contestID, userID int) error {
	_, err := s.conn.Exec(ctx,
		"UPDATE contest_participants SET last_active_at = NOW() WHERE contest_id = $1 AND user_id = $2", contestID, userID)
	return err
}

func (s *DB) MarkParticipantCompleted(ctx context.Context, contestID, userID int) error {
	_, err := s.conn.Exec(ctx,
		"UPDATE contest_participants SET completed_at = NOW() WHERE contest_id = $1 AND user_id = $2 AND completed_at IS NULL",
		contestID, userID)
	return err
}

type dbParticipantInfo struct {
	UserID    int     `db:"user_id"`
	Username  string  `db:"username"`
	AvatarURL *string `db:"avatar_url"`
}

func (s *DB) Participants(ctx context.Context, contestID int) ([]*cyberhive.ParticipantInfo, error) {
	rows, err := selectRows[dbParticipantInfo](ctx, s.conn,
		`SELECT cp.user_id, COALESCE(up.username, '') AS username, up.avatar_url
			FROM contest_participants cp
			LEFT JOIN user_profiles up ON up.user_id = cp.user_id
			WHERE cp.contest_id = $1
			ORDER BY cp.joined_at ASC`, contestID)
	if err != nil {
		return nil, err
	}
	return mapper(rows, func(row *dbParticipantInfo) *cyberhive.ParticipantInfo {
		return &cyberhive.ParticipantInfo{
			UserID:    row.UserID,
			Username:  row.Username,
			AvatarURL: row.AvatarURL,
		}
	}), nil
}

func (s *DB) ParticipantCount(ctx context.Context, contestID int) (int, error) {
	var cnt int
	err := s.conn.QueryRow(ctx, "SELECT COUNT(*) FROM contest_participants WHERE contest_id = $1", contestID).Scan(&cnt)
	if err != nil {
		return -1, err
	}
	return cnt, nil
}

func internalToContest(contest *dbContest) *cyberhive.Contest {
	if contest == nil {
		return nil
	}
	return &cyberhive.Contest{
		ID:          contest.ID,
		Title:       contest.Title,
		Description: contest.Description,

		StartAt: contest.StartAt,
		EndAt:   contest.EndAt,

		IsPublic:           contest.IsPublic,
		LeaderboardVisible: contest.LeaderboardVisible,
	}
}

func internalToContestTask(link *dbContestTask) *cyberhive.ContestTask {
	return &cyberhive.ContestTask{
		ContestID:  link.ContestID,
		TaskID:     link.TaskID,
		OrderIndex: link.OrderIndex,

		PointsOverride:      link.PointsOverride,
		OverrideTitle:       link.OverrideTitle,
		OverrideCategory:    link.OverrideCategory,
		OverrideDifficulty:  link.OverrideDifficulty,
		OverrideTags:        link.OverrideTags,
		OverrideDescription: link.OverrideDescription,
	}
}

func internalToParticipant(p *dbParticipant) *cyberhive.ContestParticipant {
	return &cyberhive.ContestParticipant{
		ContestID: p.ContestID,
		UserID:    p.UserID,

		JoinedAt:     p.JoinedAt,
		LastActiveAt: p.LastActiveAt,
		CompletedAt:  p.CompletedAt,
	}
}
