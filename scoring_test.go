package cyberhive

import "testing"

func TestAwardPoints(t *testing.T) {
	tests := []struct {
		name                                 string
		isCorrect, wasSolvedBefore, solvedAfter bool
		want                                 int
	}{
		{"incorrect never scores", false, false, false, 0},
		{"correct but task still open", true, false, false, 0},
		{"completion transition", true, false, true, 300},
		{"already solved stays zero", true, true, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AwardPoints(tt.isCorrect, tt.wasSolvedBefore, tt.solvedAfter, 300); got != tt.want {
				t.Errorf("AwardPoints() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestEffectivePoints(t *testing.T) {
	task := &Task{Points: 100}
	if got := EffectivePoints(task, nil); got != 100 {
		t.Errorf("practice mode: got %d", got)
	}
	if got := EffectivePoints(task, &ContestTask{}); got != 100 {
		t.Errorf("no override: got %d", got)
	}
	override := 250
	if got := EffectivePoints(task, &ContestTask{PointsOverride: &override}); got != 250 {
		t.Errorf("override: got %d", got)
	}
}

func taskFlags(pairs ...string) []*TaskFlag {
	flags := make([]*TaskFlag, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		flags = append(flags, &TaskFlag{ID: i/2 + 1, FlagID: pairs[i], ExpectedValue: pairs[i+1]})
	}
	return flags
}

func TestMatchFlag(t *testing.T) {
	flags := taskFlags("user", "flag{u}", "root", "flag{r}")

	matched, serr := MatchFlag(flags, "", "flag{r}")
	if serr != nil || matched == nil || matched.FlagID != "root" {
		t.Fatalf("open match failed: %+v, %v", matched, serr)
	}

	matched, serr = MatchFlag(flags, "user", "flag{u}")
	if serr != nil || matched == nil || matched.FlagID != "user" {
		t.Fatalf("explicit match failed: %+v, %v", matched, serr)
	}

	// Explicit id checks only that flag, even if another would match.
	matched, serr = MatchFlag(flags, "user", "flag{r}")
	if serr != nil {
		t.Fatalf("unexpected error: %v", serr)
	}
	if matched != nil {
		t.Fatalf("value for another flag must not match, got %+v", matched)
	}

	if _, serr = MatchFlag(flags, "nope", "flag{u}"); serr == nil {
		t.Fatal("unknown explicit flag_id must be an error, not an incorrect attempt")
	}

	if matched, serr = MatchFlag(flags, "", "wrong"); serr != nil || matched != nil {
		t.Fatalf("wrong value should be a plain miss, got %+v, %v", matched, serr)
	}
}

func TestMatchFlagTrimsExpected(t *testing.T) {
	flags := []*TaskFlag{{FlagID: "a", ExpectedValue: "  flag{x}  "}}
	if matched, serr := MatchFlag(flags, "", "flag{x}"); serr != nil || matched == nil {
		t.Fatalf("expected trimmed comparison to match, got %+v, %v", matched, serr)
	}
}

func TestMatchFlagFirstDefinitionWins(t *testing.T) {
	flags := taskFlags("first", "same", "second", "same")
	matched, serr := MatchFlag(flags, "", "same")
	if serr != nil || matched == nil || matched.FlagID != "first" {
		t.Fatalf("expected the first definition to win, got %+v, %v", matched, serr)
	}
}

func TestMatchFlagEmptyExpectedNeverMatches(t *testing.T) {
	flags := []*TaskFlag{{FlagID: "a", ExpectedValue: "   "}}
	if matched, _ := MatchFlag(flags, "", ""); matched != nil {
		t.Fatal("blank expected value must never match")
	}
	if matched, _ := MatchFlag(flags, "a", ""); matched != nil {
		t.Fatal("blank expected value must never match explicitly either")
	}
}
