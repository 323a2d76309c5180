package db

import (
	"context"
	"time"

	"github.com/HiveCTF/cyberhive"
)

type dbUserBrief struct {
	ID       int    `db:"id"`
	Username string `db:"username"`
	Role     string `db:"role"`
}

func (s *DB) UserBrief(ctx context.Context, id int) (*cyberhive.UserBrief, error) {
	user, err := getRow[dbUserBrief](ctx, s.conn,
		`SELECT u.id, COALESCE(up.username, '') AS username, u.role
			FROM users u
			LEFT JOIN user_profiles up ON up.user_id = u.id
			WHERE u.id = $1 LIMIT 1`, id)
	if err != nil || user == nil {
		return nil, err
	}
	return internalToUserBrief(user), nil
}

type dbUserFull struct {
	ID       int    `db:"id"`
	Username string `db:"username"`
	Role     string `db:"role"`

	Email     string  `db:"email"`
	Bio       *string `db:"bio"`
	AvatarURL *string `db:"avatar_url"`

	IsActive  bool      `db:"is_active"`
	CreatedAt time.Time `db:"created_at"`
}

func (s *DB) UserFull(ctx context.Context, id int) (*cyberhive.UserFull, error) {
	user, err := getRow[dbUserFull](ctx, s.conn,
		`SELECT u.id, COALESCE(up.username, '') AS username, u.role,
			u.email, up.bio, up.avatar_url, u.is_active, u.created_at
			FROM users u
			LEFT JOIN user_profiles up ON up.user_id = u.id
			WHERE u.id = $1 LIMIT 1`, id)
	if err != nil || user == nil {
		return nil, err
	}
	return &cyberhive.UserFull{
		UserBrief: cyberhive.UserBrief{
			ID:       user.ID,
			Username: user.Username,
			Role:     cyberhive.UserRole(user.Role),
		},
		Email:     user.Email,
		Bio:       user.Bio,
		AvatarURL: user.AvatarURL,
		IsActive:  user.IsActive,
		CreatedAt: user.CreatedAt,
	}, nil
}

func (s *DB) UserLogin(ctx context.Context, login string) (int, string, error) {
	type row struct {
		ID           int    `db:"id"`
		PasswordHash string `db:"password_hash"`
	}
	r, err := getRow[row](ctx, s.conn,
		`SELECT u.id, u.password_hash
			FROM users u
			LEFT JOIN user_profiles up ON up.user_id = u.id
			WHERE (lower(u.email) = lower($1) OR lower(up.username) = lower($1)) AND u.is_active = true
			LIMIT 1`, login)
	if err != nil {
		return -1, "", err
	}
	if r == nil {
		return -1, "", cyberhive.ErrNotFound
	}
	return r.ID, r.PasswordHash, nil
}

func (s *DB) CreateUser(ctx context.Context, email, username, passwordHash string, role cyberhive.UserRole) (int, error) {
	if email == "" || username == "" || passwordHash == "" {
		return -1, cyberhive.ErrMissingRequired
	}
	var id int
	err := s.InTx(ctx, func(store cyberhive.Store) error {
		tx := store.(*DB)
		if err := tx.conn.QueryRow(ctx,
			"INSERT INTO users (email, password_hash, role, is_active) VALUES ($1, $2, $3, true) RETURNING id",
			email, passwordHash, role,
		).Scan(&id); err != nil {
			return err
		}
		_, err := tx.conn.Exec(ctx,
			"INSERT INTO user_profiles (user_id, username) VALUES ($1, $2)", id, username)
		return err
	})
	if err != nil {
		return -1, err
	}
	return id, nil
}

type dbUserRating struct {
	UserID         int       `db:"user_id"`
	ContestRating  int       `db:"contest_rating"`
	PracticeRating int       `db:"practice_rating"`
	FirstBlood     int       `db:"first_blood"`
	LastUpdatedAt  time.Time `db:"last_updated_at"`
}

func (s *DB) UserRating(ctx context.Context, userID int) (*cyberhive.UserRating, error) {
	rating, err := getRow[dbUserRating](ctx, s.conn,
		"SELECT * FROM user_ratings WHERE user_id = $1 LIMIT 1", userID)
	if err != nil {
		return nil, err
	}
	if rating == nil {
		// No row yet is a valid zero state.
		return &cyberhive.UserRating{UserID: userID}, nil
	}
	return &cyberhive.UserRating{
		UserID:         rating.UserID,
		ContestRating:  rating.ContestRating,
		PracticeRating: rating.PracticeRating,
		FirstBlood:     rating.FirstBlood,
		LastUpdatedAt:  rating.LastUpdatedAt,
	}, nil
}

func (s *DB) AddPracticePoints(ctx context.Context, userID int, points int) error {
	_, err := s.conn.Exec(ctx,
		`INSERT INTO user_ratings (user_id, practice_rating, last_updated_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT (user_id) DO UPDATE
			SET practice_rating = user_ratings.practice_rating + EXCLUDED.practice_rating,
				last_updated_at = NOW()`,
		userID, points)
	return err
}

type dbGlobalRatingRow struct {
	UserID     int     `db:"user_id"`
	Username   string  `db:"username"`
	AvatarURL  *string `db:"avatar_url"`
	Rating     int     `db:"rating"`
	Solved     int     `db:"solved"`
	FirstBlood int     `db:"first_blood"`
}

// GlobalRatings builds the cross-user rating board. Contest ratings
// are summed live from the submissions ledger; practice ratings come
// from the cached counter bumped on each award.
func (s *DB) GlobalRatings(ctx context.Context, kind cyberhive.RatingKind) ([]*cyberhive.GlobalRatingRow, error) {
	var query string
	if kind == cyberhive.RatingKindContest {
		query = `WITH scores AS (
			SELECT s.user_id, SUM(s.awarded_points) AS rating, COUNT(DISTINCT s.task_id) AS cnt
				FROM submissions s
				WHERE s.is_correct = true AND s.contest_id IS NOT NULL
				GROUP BY s.user_id
		)
		SELECT sc.user_id, COALESCE(up.username, '') AS username, up.avatar_url,
			sc.rating, sc.cnt AS solved, COALESCE(ur.first_blood, 0) AS first_blood
			FROM scores sc
			LEFT JOIN user_profiles up ON up.user_id = sc.user_id
			LEFT JOIN user_ratings ur ON ur.user_id = sc.user_id
			ORDER BY rating DESC, first_blood DESC, lower(COALESCE(up.username, '')) ASC, sc.user_id ASC`
	} else {
		query = `WITH solved AS (
			SELECT s.user_id, COUNT(DISTINCT s.task_id) AS cnt
				FROM submissions s
				WHERE s.is_correct = true AND s.contest_id IS NULL
				GROUP BY s.user_id
		)
		SELECT ur.user_id, COALESCE(up.username, '') AS username, up.avatar_url,
			ur.practice_rating AS rating, COALESCE(sv.cnt, 0) AS solved, ur.first_blood
			FROM user_ratings ur
			LEFT JOIN user_profiles up ON up.user_id = ur.user_id
			LEFT JOIN solved sv ON sv.user_id = ur.user_id
			ORDER BY rating DESC, ur.first_blood DESC, lower(COALESCE(up.username, '')) ASC, ur.user_id ASC`
	}

	rows, err := selectRows[dbGlobalRatingRow](ctx, s.conn, query)
	if err != nil {
		return nil, err
	}
	return mapper(rows, func(row *dbGlobalRatingRow) *cyberhive.GlobalRatingRow {
		return &cyberhive.GlobalRatingRow{
			UserID:     row.UserID,
			Username:   row.Username,
			AvatarURL:  row.AvatarURL,
			Rating:     row.Rating,
			Solved:     row.Solved,
			FirstBlood: row.FirstBlood,
		}
	}), nil
}

func internalToUserBrief(user *dbUserBrief) *cyberhive.UserBrief {
	if user == nil {
		return nil
	}
	return &cyberhive.UserBrief{
		ID:       user.ID,
		Username: user.Username,
		Role:     cyberhive.UserRole(user.Role),
	}
}
