package base

import (
	"context"

	"github.com/HiveCTF/cyberhive"
)

// ContestLeaderboard ranks every participant of the contest. Hidden
// leaderboards stay admin-only.
func (s *BaseAPI) ContestLeaderboard(ctx context.Context, contest *cyberhive.Contest, user *cyberhive.UserBrief) (*cyberhive.Leaderboard, *StatusError) {
	if !contest.LeaderboardVisible && !user.IsAdmin() {
		return nil, Statusf(403, "Leaderboard is hidden for this contest")
	}

	participants, err := s.store.Participants(ctx, contest.ID)
	if err != nil {
		return nil, WrapError(err, "Couldn't fetch participants")
	}
	subs, err := s.store.ContestCorrectSubmissions(ctx, contest.ID)
	if err != nil {
		return nil, WrapError(err, "Couldn't fetch submissions")
	}

	meID := 0
	if user.IsAuthed() {
		meID = user.ID
	}
	rows := cyberhive.BuildLeaderboard(participants, subs, meID)

	lb := &cyberhive.Leaderboard{
		ContestID:         contest.ID,
		TotalParticipants: len(rows),
		Rows:              rows,
	}
	for _, row := range rows {
		if row.IsMe {
			lb.Me = row
			break
		}
	}
	return lb, nil
}

func (s *BaseAPI) GlobalRatings(ctx context.Context, kind cyberhive.RatingKind) ([]*cyberhive.GlobalRatingRow, *StatusError) {
	if kind != cyberhive.RatingKindContest && kind != cyberhive.RatingKindPractice {
		return nil, Statusf(400, "Invalid rating kind")
	}
	rows, err := s.store.GlobalRatings(ctx, kind)
	if err != nil {
		return nil, WrapError(err, "Couldn't fetch ratings")
	}
	return rows, nil
}
