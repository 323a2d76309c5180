package cyberhive

import "strings"

// EffectivePoints resolves the base point value of a task inside a
// contest: the per-contest override wins, else the task's own points.
// A nil link means practice mode.
func EffectivePoints(task *Task, link *ContestTask) int {
	if link != nil && link.PointsOverride != nil {
		return *link.PointsOverride
	}
	return task.Points
}

// AwardPoints returns the score for one attempt. Points are handed out
// exactly once, at the transition where the last required flag becomes
// satisfied; repeating a correct submission afterwards awards zero.
func AwardPoints(isCorrect, wasSolvedBefore, solvedAfter bool, basePoints int) int {
	if isCorrect && !wasSolvedBefore && solvedAfter {
		return basePoints
	}
	return 0
}

// MatchFlag checks a submitted value against a task's flag definitions.
//
// With an explicit flag id, only that definition is checked; an id that
// matches no definition is an error rather than an incorrect attempt.
// Without one, definitions are tried in order and the first exact match
// wins. Expected values are compared after trimming; a nil result with
// nil error means the attempt is simply incorrect.
func MatchFlag(flags []*TaskFlag, explicitFlagID, value string) (*TaskFlag, *StatusError) {
	if explicitFlagID != "" {
		for _, flag := range flags {
			if flag.FlagID != explicitFlagID {
				continue
			}
			expected := strings.TrimSpace(flag.ExpectedValue)
			if expected != "" && expected == value {
				return flag, nil
			}
			return nil, nil
		}
		return nil, Statusf(400, "Unknown flag_id for this task")
	}

	for _, flag := range flags {
		expected := strings.TrimSpace(flag.ExpectedValue)
		if expected != "" && expected == value {
			return flag, nil
		}
	}
	return nil, nil
}
