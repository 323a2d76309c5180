package cyberhive

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
	"time"
)

type LeaderboardEntry struct {
	Rank int `json:"rank"`

	UserID    int     `json:"user_id"`
	Username  string  `json:"username"`
	AvatarURL *string `json:"avatar_url"`

	Points           int        `json:"points"`
	FlagsCollected   int        `json:"flags_collected"`
	FirstBloodCount  int        `json:"first_blood_count"`
	LastSubmissionAt *time.Time `json:"last_submission_at"`

	IsMe bool `json:"is_me"`
}

type Leaderboard struct {
	ContestID         int                 `json:"contest_id"`
	TotalParticipants int                 `json:"total_participants"`
	Rows              []*LeaderboardEntry `json:"rows"`
	Me                *LeaderboardEntry   `json:"me"`
}

// StableFlagKey gives a correct row a dedup identity even when it was
// recorded without a real flag id (legacy data).
func StableFlagKey(row *CorrectSubmission) string {
	if row.FlagID != "" && row.FlagID != UnknownFlagID {
		return row.FlagID
	}
	return "submission:" + strconv.Itoa(row.ID)
}

// BuildLeaderboard aggregates a contest's correct submissions over the
// full participant roster and produces the deterministic total order:
// points descending, earliest last submission first (participants with
// no submissions sort last within a tie group), first bloods descending,
// then case-insensitive username and user id as final tie-breaks.
// Ranks are dense and 1-based.
//
// First blood on a task goes to the earliest correct submission with a
// positive award, ties broken by submission id.
func BuildLeaderboard(participants []*ParticipantInfo, subs []*CorrectSubmission, meID int) []*LeaderboardEntry {
	ordered := slices.Clone(subs)
	slices.SortFunc(ordered, func(a, b *CorrectSubmission) int {
		if c := a.SubmittedAt.Compare(b.SubmittedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	pointsByUser := map[int]int{}
	flagsByUser := map[int]map[[2]string]bool{}
	lastByUser := map[int]time.Time{}
	firstBloodTask := map[int]int{}

	for _, row := range ordered {
		pointsByUser[row.UserID] += row.AwardedPoints

		key := [2]string{strconv.Itoa(row.TaskID), StableFlagKey(row)}
		if flagsByUser[row.UserID] == nil {
			flagsByUser[row.UserID] = map[[2]string]bool{}
		}
		flagsByUser[row.UserID][key] = true

		if last, ok := lastByUser[row.UserID]; !ok || row.SubmittedAt.After(last) {
			lastByUser[row.UserID] = row.SubmittedAt
		}

		if row.AwardedPoints > 0 {
			if _, ok := firstBloodTask[row.TaskID]; !ok {
				firstBloodTask[row.TaskID] = row.UserID
			}
		}
	}

	firstBloodCount := map[int]int{}
	for _, winner := range firstBloodTask {
		firstBloodCount[winner]++
	}

	entries := make([]*LeaderboardEntry, 0, len(participants))
	for _, p := range participants {
		e := &LeaderboardEntry{
			UserID:          p.UserID,
			Username:        p.Username,
			AvatarURL:       p.AvatarURL,
			Points:          pointsByUser[p.UserID],
			FlagsCollected:  len(flagsByUser[p.UserID]),
			FirstBloodCount: firstBloodCount[p.UserID],
			IsMe:            p.UserID == meID,
		}
		if e.Username == "" {
			e.Username = "user_" + strconv.Itoa(p.UserID)
		}
		if last, ok := lastByUser[p.UserID]; ok {
			e.LastSubmissionAt = &last
		}
		entries = append(entries, e)
	}

	farFuture := time.Date(9999, time.December, 31, 23, 59, 59, 0, time.UTC)
	lastOrSentinel := func(e *LeaderboardEntry) time.Time {
		if e.LastSubmissionAt == nil {
			return farFuture
		}
		return *e.LastSubmissionAt
	}

	slices.SortFunc(entries, func(a, b *LeaderboardEntry) int {
		if c := cmp.Compare(b.Points, a.Points); c != 0 {
			return c
		}
		if c := lastOrSentinel(a).Compare(lastOrSentinel(b)); c != 0 {
			return c
		}
		if c := cmp.Compare(b.FirstBloodCount, a.FirstBloodCount); c != 0 {
			return c
		}
		if c := strings.Compare(strings.ToLower(a.Username), strings.ToLower(b.Username)); c != 0 {
			return c
		}
		return cmp.Compare(a.UserID, b.UserID)
	})

	for i, e := range entries {
		e.Rank = i + 1
	}
	return entries
}
