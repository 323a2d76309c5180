package base

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/HiveCTF/cyberhive"
)

// SubmitResult is the outcome of one contest flag submission.
type SubmitResult struct {
	IsCorrect     bool `json:"is_correct"`
	AwardedPoints int  `json:"awarded_points"`

	NextTask *cyberhive.ContestTaskView `json:"next_task"`
	Finished bool                       `json:"finished"`
}

// SubmitContestFlag runs the whole submission sequence in one
// transaction, holding the participant row lock so two concurrent
// attempts by the same user cannot both score.
func (s *BaseAPI) SubmitContestFlag(ctx context.Context, contest *cyberhive.Contest, user *cyberhive.UserBrief, explicitTaskID *int, explicitFlagID, value string) (*SubmitResult, *StatusError) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, Statusf(400, "Flag value must not be empty")
	}
	if !contest.Running() {
		return nil, Statusf(400, "Contest is not running")
	}
	if serr := s.checkSubmitRate(ctx, fmt.Sprintf("contest-submit:%d", contest.ID), user.ID); serr != nil {
		return nil, serr
	}

	var result *SubmitResult
	err := s.store.InTx(ctx, func(store cyberhive.Store) error {
		participant, err := store.LockParticipant(ctx, contest.ID, user.ID)
		if err != nil {
			return WrapError(err, "Couldn't lock participation")
		}
		if participant == nil {
			return Statusf(403, "Join the contest first")
		}

		views, serr := s.contestTaskViews(ctx, store, contest.ID, user.ID)
		if serr != nil {
			return serr
		}
		if len(views) == 0 {
			return Statusf(400, "Contest has no tasks")
		}

		current := cyberhive.FirstUnsolved(views)
		if current == nil {
			// Everything already solved; nothing to grade and nothing
			// to append.
			result = &SubmitResult{Finished: true}
			return store.TouchParticipant(ctx, contest.ID, user.ID)
		}
		if explicitTaskID != nil && *explicitTaskID != current.TaskID {
			return Statusf(400, "Submitted task is not the current task")
		}

		flags, err := store.TaskFlags(ctx, []int{current.TaskID})
		if err != nil {
			return WrapError(err, "Couldn't fetch task flags")
		}
		taskFlags := flags[current.TaskID]
		if len(taskFlags) == 0 {
			return Statusf(400, "Task has no flags configured")
		}

		progress, err := store.UserTaskProgress(ctx, &contest.ID, user.ID, []int{current.TaskID})
		if err != nil {
			return WrapError(err, "Couldn't fetch progress")
		}
		p := progress[current.TaskID]

		required := make([]string, 0, len(taskFlags))
		for _, flag := range taskFlags {
			required = append(required, flag.FlagID)
		}
		wasSolved := cyberhive.TaskSolved(required, p.SolvedFlagIDs, p.HasAnyCorrect)

		matched, serr := cyberhive.MatchFlag(taskFlags, explicitFlagID, value)
		if serr != nil {
			return serr
		}

		solvedAfter := p.CloneSolved()
		if matched != nil {
			solvedAfter[matched.FlagID] = true
		}
		nowSolved := cyberhive.TaskSolved(required, solvedAfter, p.HasAnyCorrect || matched != nil)

		// current.Points already has the contest override applied.
		awarded := cyberhive.AwardPoints(matched != nil, wasSolved, nowSolved, current.Points)

		sub := &cyberhive.Submission{
			ContestID:      &contest.ID,
			TaskID:         current.TaskID,
			UserID:         user.ID,
			FlagID:         recordedFlagID(matched, explicitFlagID),
			SubmittedValue: value,
			IsCorrect:      matched != nil,
			AwardedPoints:  awarded,
		}
		if err := store.CreateSubmission(ctx, sub); err != nil {
			return WrapError(err, "Couldn't record submission")
		}

		result = &SubmitResult{
			IsCorrect:     matched != nil,
			AwardedPoints: awarded,
		}
		if matched != nil && nowSolved {
			views, serr = s.contestTaskViews(ctx, store, contest.ID, user.ID)
			if serr != nil {
				return serr
			}
			result.NextTask = cyberhive.FirstUnsolved(views)
			result.Finished = cyberhive.AllSolved(views)
		}

		if err := store.TouchParticipant(ctx, contest.ID, user.ID); err != nil {
			return WrapError(err, "Couldn't update participation")
		}
		if result.Finished {
			if err := store.MarkParticipantCompleted(ctx, contest.ID, user.ID); err != nil {
				return WrapError(err, "Couldn't mark contest completed")
			}
		}
		return nil
	})
	if err != nil {
		var serr *StatusError
		if errors.As(err, &serr) {
			return nil, serr
		}
		slog.WarnContext(ctx, "Submission transaction failed", slog.Any("err", err))
		return nil, WrapError(err, "Couldn't process submission")
	}
	return result, nil
}

// recordedFlagID decides what the ledger row says. A matched flag wins,
// an unmatched explicit id is kept for audit, and a wrong open-mode
// value gets the unknown sentinel.
func recordedFlagID(matched *cyberhive.TaskFlag, explicitFlagID string) string {
	if matched != nil {
		return matched.FlagID
	}
	if explicitFlagID != "" {
		return explicitFlagID
	}
	return cyberhive.UnknownFlagID
}

// checkSubmitRate enforces the submission budget per (scope, user), so
// contest and practice attempts draw from separate buckets and each
// contest counts on its own.
func (s *BaseAPI) checkSubmitRate(ctx context.Context, scope string, userID int) *StatusError {
	if s.limiter == nil {
		return nil
	}
	ok, err := s.limiter.Allow(ctx, scope, userID, s.cfg.RateLimit.Max(), s.cfg.RateLimit.Window())
	if err != nil {
		slog.WarnContext(ctx, "Rate limiter failed open", slog.Any("err", err))
		return nil
	}
	if !ok {
		return Statusf(429, "Too many submissions, slow down")
	}
	return nil
}
