package cyberhive

import (
	"context"
	"time"
)

type UserRole string

const (
	RoleAdmin       UserRole = "admin"
	RoleAuthor      UserRole = "author"
	RoleParticipant UserRole = "participant"
)

// UserBrief is the minimal identity attached to a request.
type UserBrief struct {
	ID       int      `json:"id"`
	Username string   `json:"username"`
	Role     UserRole `json:"role"`
}

func (u *UserBrief) IsAuthed() bool {
	return u != nil && u.ID > 0
}

func (u *UserBrief) IsAdmin() bool {
	return u.IsAuthed() && u.Role == RoleAdmin
}

// IsAuthor reports whether the user may author tasks and articles.
func (u *UserBrief) IsAuthor() bool {
	return u.IsAuthed() && (u.Role == RoleAdmin || u.Role == RoleAuthor)
}

type UserFull struct {
	UserBrief
	Email     string    `json:"email"`
	Bio       *string   `json:"bio"`
	AvatarURL *string   `json:"avatar_url"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func (u *UserFull) Brief() *UserBrief {
	if u == nil {
		return nil
	}
	return &u.UserBrief
}

// UserRating is the derived rating cache for a user's profile page.
// practice_rating is a running counter bumped on practice awards;
// contest standings are always recomputed from the submissions ledger.
type UserRating struct {
	UserID         int       `json:"user_id"`
	ContestRating  int       `json:"contest_rating"`
	PracticeRating int       `json:"practice_rating"`
	FirstBlood     int       `json:"first_blood"`
	LastUpdatedAt  time.Time `json:"last_updated_at"`
}

type RatingKind string

const (
	RatingKindContest  RatingKind = "contest"
	RatingKindPractice RatingKind = "practice"
)

// GlobalRatingRow is one row of the cross-contest rating board.
type GlobalRatingRow struct {
	UserID     int     `json:"user_id"`
	Username   string  `json:"username"`
	AvatarURL  *string `json:"avatar_url"`
	Rating     int     `json:"rating"`
	Solved     int     `json:"solved"`
	FirstBlood int     `json:"first_blood"`
}

type UserStore interface {
	UserBrief(ctx context.Context, id int) (*UserBrief, error)
	UserFull(ctx context.Context, id int) (*UserFull, error)
	// UserLogin resolves an email or username to (user id, password hash).
	UserLogin(ctx context.Context, login string) (int, string, error)
	CreateUser(ctx context.Context, email, username, passwordHash string, role UserRole) (int, error)
}

type RatingStore interface {
	UserRating(ctx context.Context, userID int) (*UserRating, error)
	// AddPracticePoints upserts the rating row and bumps practice_rating.
	AddPracticePoints(ctx context.Context, userID int, points int) error
	GlobalRatings(ctx context.Context, kind RatingKind) ([]*GlobalRatingRow, error)
}
