package base

import (
	"context"
	"testing"
	"time"

	"github.com/HiveCTF/cyberhive"
	"github.com/HiveCTF/cyberhive/internal/ratelimit"
)

// seedContest builds a running contest with the given tasks, each task
// described as a map of flag id to expected value, and joins one user.
func seedContest(t *testing.T, store *memStore, taskPoints []int, taskFlags []map[string]string) (*cyberhive.Contest, *cyberhive.UserBrief, []int) {
	t.Helper()
	ctx := context.Background()

	contest := &cyberhive.Contest{
		Title:              "Test Round",
		StartAt:            time.Now().Add(-time.Hour),
		EndAt:              time.Now().Add(time.Hour),
		IsPublic:           true,
		LeaderboardVisible: true,
	}
	if _, err := store.CreateContest(ctx, contest); err != nil {
		t.Fatal(err)
	}

	taskIDs := make([]int, 0, len(taskPoints))
	links := make([]*cyberhive.ContestTask, 0, len(taskPoints))
	for i, points := range taskPoints {
		task := &cyberhive.Task{
			Title:    "Task",
			Category: "web",
			Points:   points,
			Kind:     cyberhive.TaskKindContest,
			State:    cyberhive.TaskStateReady,
		}
		var flags []*cyberhive.TaskFlag
		for id, val := range taskFlags[i] {
			flags = append(flags, &cyberhive.TaskFlag{FlagID: id, ExpectedValue: val})
		}
		if _, err := store.CreateTask(ctx, task, flags); err != nil {
			t.Fatal(err)
		}
		taskIDs = append(taskIDs, task.ID)
		links = append(links, &cyberhive.ContestTask{
			ContestID:  contest.ID,
			TaskID:     task.ID,
			OrderIndex: i,
		})
	}
	if err := store.SetContestTasks(ctx, contest.ID, links); err != nil {
		t.Fatal(err)
	}

	uid, err := store.CreateUser(ctx, "alice@example.com", "alice", "x", cyberhive.RoleParticipant)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.CreateParticipant(ctx, contest.ID, uid); err != nil {
		t.Fatal(err)
	}
	user := &cyberhive.UserBrief{ID: uid, Username: "alice", Role: cyberhive.RoleParticipant}
	return contest, user, taskIDs
}

func TestSubmitContestFlagAwardsOnce(t *testing.T) {
	store := newMemStore()
	base := newTestBase(store)
	ctx := context.Background()

	contest, user, _ := seedContest(t, store,
		[]int{300},
		[]map[string]string{{"user": "flag{u}", "root": "flag{r}"}},
	)

	// First flag: correct but the task is not complete yet, so no points.
	res, serr := base.SubmitContestFlag(ctx, contest, user, nil, "user", "flag{u}")
	if serr != nil {
		t.Fatal(serr)
	}
	if !res.IsCorrect || res.AwardedPoints != 0 {
		t.Fatalf("partial solve should award nothing, got %+v", res)
	}

	// Repeating it changes nothing.
	res, serr = base.SubmitContestFlag(ctx, contest, user, nil, "user", "flag{u}")
	if serr != nil {
		t.Fatal(serr)
	}
	if res.AwardedPoints != 0 {
		t.Fatalf("repeat of a solved flag must award zero, got %d", res.AwardedPoints)
	}

	// The last flag completes the task and pays out exactly once.
	res, serr = base.SubmitContestFlag(ctx, contest, user, nil, "root", "flag{r}")
	if serr != nil {
		t.Fatal(serr)
	}
	if !res.IsCorrect || res.AwardedPoints != 300 {
		t.Fatalf("completion should award 300, got %+v", res)
	}
	if !res.Finished {
		t.Error("single-task contest should be finished")
	}

	total := 0
	for _, sub := range store.submissions {
		total += sub.AwardedPoints
	}
	if total != 300 {
		t.Errorf("total awarded across the ledger = %d, want 300", total)
	}
}

func TestSubmitContestFlagOrderIndependent(t *testing.T) {
	store := newMemStore()
	base := newTestBase(store)
	ctx := context.Background()

	contest, user, _ := seedContest(t, store,
		[]int{100},
		[]map[string]string{{"a": "flag{a}", "b": "flag{b}", "c": "flag{c}"}},
	)

	// Solve in reverse definition order; only the final one scores.
	for _, attempt := range []struct {
		flag, value string
		want        int
	}{
		{"c", "flag{c}", 0},
		{"b", "flag{b}", 0},
		{"a", "flag{a}", 100},
	} {
		res, serr := base.SubmitContestFlag(ctx, contest, user, nil, attempt.flag, attempt.value)
		if serr != nil {
			t.Fatal(serr)
		}
		if !res.IsCorrect || res.AwardedPoints != attempt.want {
			t.Fatalf("flag %s: got %+v, want %d points", attempt.flag, res, attempt.want)
		}
	}
}

func TestSubmitTargetMismatchCreatesNoRow(t *testing.T) {
	store := newMemStore()
	base := newTestBase(store)
	ctx := context.Background()

	contest, user, taskIDs := seedContest(t, store,
		[]int{100, 200},
		[]map[string]string{{"f": "flag{1}"}, {"f": "flag{2}"}},
	)

	// Task 2 is not the current task; the attempt must be rejected
	// before anything reaches the ledger.
	_, serr := base.SubmitContestFlag(ctx, contest, user, &taskIDs[1], "f", "flag{2}")
	if serr == nil || serr.Code != 400 {
		t.Fatalf("expected a 400, got %v", serr)
	}
	if len(store.submissions) != 0 {
		t.Errorf("rejected attempt left %d ledger rows", len(store.submissions))
	}
}

func TestSubmitZeroTaskContest(t *testing.T) {
	store := newMemStore()
	base := newTestBase(store)
	ctx := context.Background()

	contest, user, _ := seedContest(t, store, nil, nil)

	_, serr := base.SubmitContestFlag(ctx, contest, user, nil, "", "flag{x}")
	if serr == nil || serr.Code != 400 {
		t.Fatalf("zero-task contest must reject submissions with 400, got %v", serr)
	}
	if len(store.submissions) != 0 {
		t.Error("no ledger rows should exist")
	}
}

func TestSubmitUnknownFlagIDCreatesNoRow(t *testing.T) {
	store := newMemStore()
	base := newTestBase(store)
	ctx := context.Background()

	contest, user, _ := seedContest(t, store,
		[]int{100},
		[]map[string]string{{"f": "flag{1}"}},
	)

	_, serr := base.SubmitContestFlag(ctx, contest, user, nil, "nonexistent", "flag{1}")
	if serr == nil || serr.Code != 400 {
		t.Fatalf("unknown flag id must be a 400, got %v", serr)
	}
	if len(store.submissions) != 0 {
		t.Error("unknown flag id must not append to the ledger")
	}
}

func TestSubmitIncorrectRecordsSentinel(t *testing.T) {
	store := newMemStore()
	base := newTestBase(store)
	ctx := context.Background()

	contest, user, _ := seedContest(t, store,
		[]int{100},
		[]map[string]string{{"f": "flag{1}"}},
	)

	res, serr := base.SubmitContestFlag(ctx, contest, user, nil, "", "flag{wrong}")
	if serr != nil {
		t.Fatal(serr)
	}
	if res.IsCorrect || res.AwardedPoints != 0 {
		t.Fatalf("wrong value should be incorrect, got %+v", res)
	}
	if len(store.submissions) != 1 {
		t.Fatalf("incorrect attempt must still be recorded, rows = %d", len(store.submissions))
	}
	if got := store.submissions[0].FlagID; got != cyberhive.UnknownFlagID {
		t.Errorf("recorded flag id = %q, want the unknown sentinel", got)
	}
}

func TestSubmitProgressionAndCompletion(t *testing.T) {
	store := newMemStore()
	base := newTestBase(store)
	ctx := context.Background()

	contest, user, taskIDs := seedContest(t, store,
		[]int{100, 200},
		[]map[string]string{{"f": "flag{1}"}, {"f": "flag{2}"}},
	)

	res, serr := base.SubmitContestFlag(ctx, contest, user, nil, "", "flag{1}")
	if serr != nil {
		t.Fatal(serr)
	}
	if res.AwardedPoints != 100 || res.Finished {
		t.Fatalf("first solve: got %+v", res)
	}
	if res.NextTask == nil || res.NextTask.TaskID != taskIDs[1] {
		t.Fatalf("progression should point at the second task, got %+v", res.NextTask)
	}

	res, serr = base.SubmitContestFlag(ctx, contest, user, nil, "", "flag{2}")
	if serr != nil {
		t.Fatal(serr)
	}
	if res.AwardedPoints != 200 || !res.Finished || res.NextTask != nil {
		t.Fatalf("final solve: got %+v", res)
	}

	p := store.participants[[2]int{contest.ID, user.ID}]
	if p.CompletedAt == nil {
		t.Fatal("completed_at must be set on finish")
	}
	completedAt := *p.CompletedAt

	// A further submission after finishing is not graded and does not
	// move the completion timestamp.
	res, serr = base.SubmitContestFlag(ctx, contest, user, nil, "", "flag{2}")
	if serr != nil {
		t.Fatal(serr)
	}
	if !res.Finished || res.IsCorrect {
		t.Fatalf("post-finish submission: got %+v", res)
	}
	if !p.CompletedAt.Equal(completedAt) {
		t.Error("completed_at must be set only once")
	}
	if got := len(store.submissions); got != 2 {
		t.Errorf("post-finish attempts must not append rows, got %d", got)
	}
}

func TestSubmitRequiresJoin(t *testing.T) {
	store := newMemStore()
	base := newTestBase(store)
	ctx := context.Background()

	contest, _, _ := seedContest(t, store,
		[]int{100},
		[]map[string]string{{"f": "flag{1}"}},
	)
	outsider := &cyberhive.UserBrief{ID: 999, Username: "mallory", Role: cyberhive.RoleParticipant}

	_, serr := base.SubmitContestFlag(ctx, contest, outsider, nil, "", "flag{1}")
	if serr == nil || serr.Code != 403 {
		t.Fatalf("non-participant must get 403, got %v", serr)
	}
}

func TestSubmitPracticeFlagRating(t *testing.T) {
	store := newMemStore()
	base := newTestBase(store)
	ctx := context.Background()

	task := &cyberhive.Task{
		Title:    "Practice",
		Category: "crypto",
		Points:   150,
		Kind:     cyberhive.TaskKindPractice,
		State:    cyberhive.TaskStateReady,
	}
	if _, err := store.CreateTask(ctx, task, []*cyberhive.TaskFlag{
		{FlagID: "p1", ExpectedValue: "flag{p1}"},
		{FlagID: "p2", ExpectedValue: "flag{p2}"},
	}); err != nil {
		t.Fatal(err)
	}
	user := &cyberhive.UserBrief{ID: 42, Username: "bob", Role: cyberhive.RoleParticipant}

	res, serr := base.SubmitPracticeFlag(ctx, user, task.ID, "", "flag{p1}")
	if serr != nil {
		t.Fatal(serr)
	}
	if !res.IsCorrect || res.AwardedPoints != 0 || res.Status != cyberhive.ProgressInProgress {
		t.Fatalf("partial practice solve: got %+v", res)
	}
	if res.SolvedFlagsCount != 1 || res.RequiredFlagsCount != 2 {
		t.Fatalf("flag counts: got %d/%d", res.SolvedFlagsCount, res.RequiredFlagsCount)
	}
	if res.Message != "Flag accepted." {
		t.Errorf("message = %q", res.Message)
	}

	res, serr = base.SubmitPracticeFlag(ctx, user, task.ID, "", "flag{p2}")
	if serr != nil {
		t.Fatal(serr)
	}
	if res.AwardedPoints != 150 || res.Status != cyberhive.ProgressSolved {
		t.Fatalf("completion: got %+v", res)
	}
	if res.Message != "Flag accepted. Task solved." {
		t.Errorf("message = %q", res.Message)
	}

	rating, err := store.UserRating(ctx, user.ID)
	if err != nil {
		t.Fatal(err)
	}
	if rating.PracticeRating != 150 {
		t.Fatalf("practice rating = %d, want 150", rating.PracticeRating)
	}

	// Re-submitting the final flag must not bump the rating again.
	res, serr = base.SubmitPracticeFlag(ctx, user, task.ID, "", "flag{p2}")
	if serr != nil {
		t.Fatal(serr)
	}
	if res.AwardedPoints != 0 {
		t.Fatalf("repeat award = %d, want 0", res.AwardedPoints)
	}
	if res.Message != "Flag accepted." {
		t.Errorf("repeat of a solved task must not announce a solve, message = %q", res.Message)
	}
	rating, _ = store.UserRating(ctx, user.ID)
	if rating.PracticeRating != 150 {
		t.Errorf("practice rating moved to %d on a repeat", rating.PracticeRating)
	}
}

func TestSubmitRateLimitScopes(t *testing.T) {
	store := newMemStore()
	base := newTestBaseWithLimiter(store, ratelimit.NewMemory(), 1)
	ctx := context.Background()

	contestA, user, _ := seedContest(t, store,
		[]int{100},
		[]map[string]string{{"f": "flag{a}"}},
	)

	contestB := &cyberhive.Contest{
		Title:              "Second Round",
		StartAt:            time.Now().Add(-time.Hour),
		EndAt:              time.Now().Add(time.Hour),
		IsPublic:           true,
		LeaderboardVisible: true,
	}
	if _, err := store.CreateContest(ctx, contestB); err != nil {
		t.Fatal(err)
	}
	taskB := &cyberhive.Task{
		Title:    "Task",
		Category: "web",
		Points:   100,
		Kind:     cyberhive.TaskKindContest,
		State:    cyberhive.TaskStateReady,
	}
	if _, err := store.CreateTask(ctx, taskB, []*cyberhive.TaskFlag{{FlagID: "f", ExpectedValue: "flag{b}"}}); err != nil {
		t.Fatal(err)
	}
	if err := store.SetContestTasks(ctx, contestB.ID, []*cyberhive.ContestTask{{ContestID: contestB.ID, TaskID: taskB.ID}}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.CreateParticipant(ctx, contestB.ID, user.ID); err != nil {
		t.Fatal(err)
	}

	practice := &cyberhive.Task{
		Title:    "Drill",
		Category: "crypto",
		Points:   50,
		Kind:     cyberhive.TaskKindPractice,
		State:    cyberhive.TaskStateReady,
	}
	if _, err := store.CreateTask(ctx, practice, []*cyberhive.TaskFlag{{FlagID: "f", ExpectedValue: "flag{p}"}}); err != nil {
		t.Fatal(err)
	}

	// One attempt exhausts contest A's bucket for this user.
	if _, serr := base.SubmitContestFlag(ctx, contestA, user, nil, "", "flag{wrong}"); serr != nil {
		t.Fatal(serr)
	}
	if _, serr := base.SubmitContestFlag(ctx, contestA, user, nil, "", "flag{a}"); serr == nil || serr.Code != 429 {
		t.Fatalf("second attempt in the same contest should hit the limit, got %v", serr)
	}

	// Other buckets are untouched: a different contest and the practice
	// endpoint each still have their own budget.
	if _, serr := base.SubmitContestFlag(ctx, contestB, user, nil, "", "flag{b}"); serr != nil {
		t.Fatalf("another contest must have its own bucket, got %v", serr)
	}
	if _, serr := base.SubmitPracticeFlag(ctx, user, practice.ID, "", "flag{p}"); serr != nil {
		t.Fatalf("practice must have its own bucket, got %v", serr)
	}
	if _, serr := base.SubmitPracticeFlag(ctx, user, practice.ID, "", "flag{p}"); serr == nil || serr.Code != 429 {
		t.Fatalf("second practice attempt should hit the limit, got %v", serr)
	}
}

func TestSubmitPracticeDraftTaskHidden(t *testing.T) {
	store := newMemStore()
	base := newTestBase(store)
	ctx := context.Background()

	task := &cyberhive.Task{
		Title:    "Hidden",
		Category: "web",
		Points:   50,
		Kind:     cyberhive.TaskKindPractice,
		State:    cyberhive.TaskStateDraft,
	}
	if _, err := store.CreateTask(ctx, task, []*cyberhive.TaskFlag{{FlagID: "f", ExpectedValue: "flag{x}"}}); err != nil {
		t.Fatal(err)
	}
	user := &cyberhive.UserBrief{ID: 1, Username: "alice", Role: cyberhive.RoleParticipant}

	_, serr := base.SubmitPracticeFlag(ctx, user, task.ID, "", "flag{x}")
	if serr == nil || serr.Code != 404 {
		t.Fatalf("draft task must 404, got %v", serr)
	}
}

func TestSubmitEmptyValue(t *testing.T) {
	store := newMemStore()
	base := newTestBase(store)
	ctx := context.Background()

	contest, user, _ := seedContest(t, store,
		[]int{100},
		[]map[string]string{{"f": "flag{1}"}},
	)

	_, serr := base.SubmitContestFlag(ctx, contest, user, nil, "", "   ")
	if serr == nil || serr.Code != 400 {
		t.Fatalf("blank value must 400, got %v", serr)
	}
	if len(store.submissions) != 0 {
		t.Error("blank value must not reach the ledger")
	}
}
