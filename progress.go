package cyberhive

type ProgressStatus string

const (
	ProgressNotStarted ProgressStatus = "not_started"
	ProgressInProgress ProgressStatus = "in_progress"
	ProgressSolved     ProgressStatus = "solved"
)

// TaskSolved decides whether a task counts as complete.
//
// Tasks with flag definitions are complete when every required flag id
// has a correct submission. Tasks without any flag definitions predate
// multi-flag support and fall back to "any correct submission counts",
// so old ledger data still reports completion.
func TaskSolved(requiredFlagIDs []string, solvedFlagIDs map[string]bool, hasAnyCorrect bool) bool {
	if len(requiredFlagIDs) == 0 {
		return hasAnyCorrect
	}
	for _, id := range requiredFlagIDs {
		if !solvedFlagIDs[id] {
			return false
		}
	}
	return true
}

func StatusOf(hasAnySubmission bool, requiredFlagIDs []string, solvedFlagIDs map[string]bool, hasAnyCorrect bool) ProgressStatus {
	if !hasAnySubmission {
		return ProgressNotStarted
	}
	if TaskSolved(requiredFlagIDs, solvedFlagIDs, hasAnyCorrect) {
		return ProgressSolved
	}
	return ProgressInProgress
}

// FirstUnsolved returns the first task in contest order that the
// participant has not completed, or nil if everything is solved.
// The views must already be sorted by order_index.
func FirstUnsolved(ordered []*ContestTaskView) *ContestTaskView {
	for _, v := range ordered {
		if !v.IsSolved {
			return v
		}
	}
	return nil
}

// AllSolved reports whether the participant finished the contest.
// A contest with zero tasks is never finished; submissions against it
// are rejected upstream as a data error.
func AllSolved(ordered []*ContestTaskView) bool {
	if len(ordered) == 0 {
		return false
	}
	for _, v := range ordered {
		if !v.IsSolved {
			return false
		}
	}
	return true
}
