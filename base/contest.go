package base

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/HiveCTF/cyberhive"
)

// ContestSummary is the landing-page digest for a contest.
type ContestSummary struct {
	Contest *cyberhive.Contest `json:"contest"`

	ParticipantCount int     `json:"participant_count"`
	TaskCount        int     `json:"task_count"`
	TasksSolved      int     `json:"tasks_solved"`
	RewardPoints     int     `json:"reward_points"`
	FirstBlood       *string `json:"first_blood"`

	// KnowledgeAreas holds up to four distinct categories/tags, in
	// contest task order.
	KnowledgeAreas []string `json:"knowledge_areas"`
	DaysLeft       int      `json:"days_left"`

	FeaturedTask *cyberhive.ContestTaskView `json:"featured_task"`

	Joined    bool `json:"joined"`
	Completed bool `json:"completed"`

	PrevContestID *int `json:"prev_contest_id"`
	NextContestID *int `json:"next_contest_id"`
}

func (s *BaseAPI) Contest(ctx context.Context, id int) (*cyberhive.Contest, *StatusError) {
	contest, err := s.store.Contest(ctx, id)
	if err != nil {
		return nil, WrapError(err, "Couldn't fetch contest")
	}
	if contest == nil {
		return nil, Statusf(404, "Contest not found")
	}
	return contest, nil
}

func (s *BaseAPI) Contests(ctx context.Context, filter cyberhive.ContestFilter) ([]*cyberhive.Contest, *StatusError) {
	contests, err := s.store.Contests(ctx, filter)
	if err != nil {
		return nil, WrapError(err, "Couldn't fetch contests")
	}
	return contests, nil
}

// ActiveContestSummary digests the running contest, falling back to the
// most recent one when nothing is live.
func (s *BaseAPI) ActiveContestSummary(ctx context.Context, user *cyberhive.UserBrief) (*ContestSummary, *StatusError) {
	includePrivate := user.IsAdmin()
	contest, err := s.store.ActiveContest(ctx, includePrivate)
	if err != nil {
		return nil, WrapError(err, "Couldn't fetch active contest")
	}
	if contest == nil {
		contest, err = s.store.LatestContest(ctx, includePrivate)
		if err != nil {
			return nil, WrapError(err, "Couldn't fetch latest contest")
		}
	}
	if contest == nil {
		return nil, Statusf(404, "No contests exist yet")
	}
	return s.contestSummary(ctx, contest, user)
}

func (s *BaseAPI) ContestSummary(ctx context.Context, contest *cyberhive.Contest, user *cyberhive.UserBrief) (*ContestSummary, *StatusError) {
	if !contest.IsPublic && !user.IsAdmin() {
		return nil, Statusf(403, "Contest is private")
	}
	return s.contestSummary(ctx, contest, user)
}

func (s *BaseAPI) contestSummary(ctx context.Context, contest *cyberhive.Contest, user *cyberhive.UserBrief) (*ContestSummary, *StatusError) {
	summary := &ContestSummary{Contest: contest}

	cnt, err := s.store.ParticipantCount(ctx, contest.ID)
	if err != nil {
		return nil, WrapError(err, "Couldn't count participants")
	}
	summary.ParticipantCount = cnt

	// Unauthed callers get the views with empty progress.
	callerID := 0
	if user.IsAuthed() {
		callerID = user.ID
	}
	views, serr := s.contestTaskViews(ctx, s.store, contest.ID, callerID)
	if serr != nil {
		return nil, serr
	}
	summary.TaskCount = len(views)
	for _, view := range views {
		summary.RewardPoints += view.Points
		if view.IsSolved {
			summary.TasksSolved++
		}
	}
	summary.KnowledgeAreas = pickKnowledgeAreas(views, 4)
	if len(views) > 0 {
		summary.FeaturedTask = views[0]
	}
	if left := time.Until(contest.EndAt); left > 0 {
		summary.DaysLeft = int(left.Hours() / 24)
	}

	firstBlood, err := s.store.FirstCorrectSubmitter(ctx, contest.ID)
	if err != nil {
		slog.WarnContext(ctx, "Couldn't resolve first blood", slog.Any("err", err))
	} else {
		summary.FirstBlood = firstBlood
	}

	prev, next, err := s.store.AdjacentContestIDs(ctx, contest)
	if err != nil {
		slog.WarnContext(ctx, "Couldn't resolve adjacent contests", slog.Any("err", err))
	} else {
		summary.PrevContestID, summary.NextContestID = prev, next
	}

	if user.IsAuthed() {
		participant, err := s.store.Participant(ctx, contest.ID, user.ID)
		if err != nil {
			return nil, WrapError(err, "Couldn't fetch participation")
		}
		if participant != nil {
			summary.Joined = true
			summary.Completed = participant.CompletedAt != nil
		}
	}

	return summary, nil
}

// pickKnowledgeAreas collects the first max distinct categories and
// tags in contest task order.
func pickKnowledgeAreas(views []*cyberhive.ContestTaskView, max int) []string {
	seen := make(map[string]bool)
	areas := make([]string, 0, max)
	add := func(area string) {
		if area == "" || seen[area] || len(areas) >= max {
			return
		}
		seen[area] = true
		areas = append(areas, area)
	}
	for _, view := range views {
		add(view.Category)
		for _, tag := range view.Tags {
			add(tag)
		}
	}
	return areas
}

// JoinContest registers the user as a participant. Joining twice is
// harmless and just refreshes the activity timestamp.
func (s *BaseAPI) JoinContest(ctx context.Context, contest *cyberhive.Contest, user *cyberhive.UserBrief) (*cyberhive.ContestParticipant, *StatusError) {
	if !contest.IsPublic && !user.IsAdmin() {
		return nil, Statusf(403, "Contest is private")
	}
	if !contest.Started() {
		return nil, Statusf(400, "Contest has not started yet")
	}
	if contest.Ended() {
		return nil, Statusf(400, "Contest has ended")
	}
	participant, err := s.store.CreateParticipant(ctx, contest.ID, user.ID)
	if err != nil {
		return nil, WrapError(err, "Couldn't join contest")
	}
	return participant, nil
}

// ContestTaskState is the participant's full view of the task list,
// with the progression pointer resolved.
type ContestTaskState struct {
	Tasks       []*cyberhive.ContestTaskView `json:"tasks"`
	CurrentTask *cyberhive.ContestTaskView   `json:"current_task"`
	Finished    bool                         `json:"finished"`
}

func (s *BaseAPI) ContestTaskState(ctx context.Context, contest *cyberhive.Contest, user *cyberhive.UserBrief) (*ContestTaskState, *StatusError) {
	participant, err := s.store.Participant(ctx, contest.ID, user.ID)
	if err != nil {
		return nil, WrapError(err, "Couldn't fetch participation")
	}
	if participant == nil {
		return nil, Statusf(403, "Join the contest first")
	}

	views, serr := s.contestTaskViews(ctx, s.store, contest.ID, user.ID)
	if serr != nil {
		return nil, serr
	}

	state := &ContestTaskState{
		Tasks:       views,
		CurrentTask: cyberhive.FirstUnsolved(views),
		Finished:    cyberhive.AllSolved(views),
	}
	if state.Finished && participant.CompletedAt == nil {
		// Completion may predate the completed_at column; settle it now.
		if err := s.store.MarkParticipantCompleted(ctx, contest.ID, user.ID); err != nil {
			slog.WarnContext(ctx, "Couldn't mark participant completed", slog.Any("err", err))
		}
	}
	return state, nil
}

// contestTaskViews builds the merged per-participant task views, sorted
// by contest order. Runs against whatever store it is given so the
// submission transaction can reuse it.
func (s *BaseAPI) contestTaskViews(ctx context.Context, store cyberhive.Store, contestID, userID int) ([]*cyberhive.ContestTaskView, *StatusError) {
	pairs, err := store.ContestTasks(ctx, contestID)
	if err != nil {
		return nil, WrapError(err, "Couldn't fetch contest tasks")
	}

	taskIDs := make([]int, 0, len(pairs))
	for _, pair := range pairs {
		taskIDs = append(taskIDs, pair.Task.ID)
	}
	flags, err := store.TaskFlags(ctx, taskIDs)
	if err != nil {
		return nil, WrapError(err, "Couldn't fetch task flags")
	}
	progress, err := store.UserTaskProgress(ctx, &contestID, userID, taskIDs)
	if err != nil {
		return nil, WrapError(err, "Couldn't fetch progress")
	}

	views := make([]*cyberhive.ContestTaskView, 0, len(pairs))
	for _, pair := range pairs {
		p := progress[pair.Task.ID]
		view := cyberhive.MergeContestTask(pair, flags[pair.Task.ID], p.SolvedFlagIDs)
		required := make([]string, 0, len(view.RequiredFlags))
		for _, fv := range view.RequiredFlags {
			required = append(required, fv.FlagID)
		}
		view.IsSolved = cyberhive.TaskSolved(required, p.SolvedFlagIDs, p.HasAnyCorrect)
		views = append(views, view)
	}
	return views, nil
}

// ContestResults is the user's deduped correct attempts plus their
// point total.
type ContestResults struct {
	Items       []*cyberhive.ResultRow `json:"items"`
	TotalPoints int                    `json:"total_points"`
}

// MyResults lists the user's correct attempts in a contest, one row per
// distinct flag, with the summed awarded points.
func (s *BaseAPI) MyResults(ctx context.Context, contest *cyberhive.Contest, user *cyberhive.UserBrief) (*ContestResults, *StatusError) {
	rows, err := s.store.UserContestResults(ctx, contest.ID, user.ID)
	if err != nil {
		return nil, WrapError(err, "Couldn't fetch results")
	}

	// The ledger may hold several correct rows for the same flag;
	// the earliest one represents it.
	type flagKey struct {
		taskID int
		flag   string
	}
	seen := make(map[flagKey]bool, len(rows))
	results := &ContestResults{Items: make([]*cyberhive.ResultRow, 0, len(rows))}
	for _, row := range rows {
		key := flagKey{row.TaskID, stableResultKey(row)}
		if seen[key] {
			continue
		}
		seen[key] = true
		results.Items = append(results.Items, row)
		results.TotalPoints += row.AwardedPoints
	}
	return results, nil
}

func stableResultKey(row *cyberhive.ResultRow) string {
	if row.FlagID == "" || row.FlagID == cyberhive.UnknownFlagID {
		return "submission:" + strconv.Itoa(row.SubmissionID)
	}
	return row.FlagID
}
