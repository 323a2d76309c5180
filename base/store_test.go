package base

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/HiveCTF/cyberhive"
	"github.com/HiveCTF/cyberhive/internal/config"
	"github.com/HiveCTF/cyberhive/internal/ratelimit"
)

// memStore is an in-memory Store for service-layer tests. InTx holds
// the mutex for the whole callback, which gives the same serialization
// the row locks provide in Postgres.
type memStore struct {
	mu sync.Mutex

	tasks        map[int]*cyberhive.Task
	flags        map[int][]*cyberhive.TaskFlag
	contests     map[int]*cyberhive.Contest
	contestTasks map[int][]*cyberhive.ContestTask
	participants map[[2]int]*cyberhive.ContestParticipant
	submissions  []*cyberhive.Submission
	users        map[int]*cyberhive.UserFull
	ratings      map[int]*cyberhive.UserRating
	articles     map[int]*cyberhive.Article

	nextID int
}

func newMemStore() *memStore {
	return &memStore{
		tasks:        map[int]*cyberhive.Task{},
		flags:        map[int][]*cyberhive.TaskFlag{},
		contests:     map[int]*cyberhive.Contest{},
		contestTasks: map[int][]*cyberhive.ContestTask{},
		participants: map[[2]int]*cyberhive.ContestParticipant{},
		users:        map[int]*cyberhive.UserFull{},
		ratings:      map[int]*cyberhive.UserRating{},
		articles:     map[int]*cyberhive.Article{},
		nextID:       1,
	}
}

func (m *memStore) id() int {
	id := m.nextID
	m.nextID++
	return id
}

func (m *memStore) InTx(ctx context.Context, fn func(s cyberhive.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(&txStore{m})
}

// txStore is the transaction-scoped view; it reuses the parent's data
// without re-locking.
type txStore struct {
	*memStore
}

func (t *txStore) InTx(ctx context.Context, fn func(s cyberhive.Store) error) error {
	return fn(t)
}

// --- TaskStore

func (m *memStore) Task(ctx context.Context, id int) (*cyberhive.Task, error) {
	return m.tasks[id], nil
}

func (m *memStore) Tasks(ctx context.Context, filter cyberhive.TaskFilter) ([]*cyberhive.Task, error) {
	ids := make([]int, 0, len(m.tasks))
	for id := range m.tasks {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var out []*cyberhive.Task
	for _, id := range ids {
		task := m.tasks[id]
		if filter.ID != nil && task.ID != *filter.ID {
			continue
		}
		if filter.IDs != nil && !containsInt(filter.IDs, task.ID) {
			continue
		}
		if filter.Kind != nil && task.Kind != *filter.Kind {
			continue
		}
		if filter.State != nil && task.State != *filter.State {
			continue
		}
		out = append(out, task)
	}
	return out, nil
}

func (m *memStore) CreateTask(ctx context.Context, task *cyberhive.Task, flags []*cyberhive.TaskFlag) (int, error) {
	task.ID = m.id()
	task.CreatedAt = time.Now()
	m.tasks[task.ID] = task
	for _, flag := range flags {
		flag.ID = m.id()
		flag.TaskID = task.ID
		m.flags[task.ID] = append(m.flags[task.ID], flag)
	}
	return task.ID, nil
}

func (m *memStore) UpdateTask(ctx context.Context, id int, upd cyberhive.TaskUpdate) error {
	return nil
}

func (m *memStore) TaskFlags(ctx context.Context, taskIDs []int) (map[int][]*cyberhive.TaskFlag, error) {
	out := map[int][]*cyberhive.TaskFlag{}
	for _, id := range taskIDs {
		if flags, ok := m.flags[id]; ok {
			out[id] = flags
		}
	}
	return out, nil
}

// --- ContestStore

func (m *memStore) Contest(ctx context.Context, id int) (*cyberhive.Contest, error) {
	return m.contests[id], nil
}

func (m *memStore) Contests(ctx context.Context, filter cyberhive.ContestFilter) ([]*cyberhive.Contest, error) {
	var out []*cyberhive.Contest
	for _, c := range m.contests {
		if !c.IsPublic && !filter.IncludePrivate {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (m *memStore) ActiveContest(ctx context.Context, includePrivate bool) (*cyberhive.Contest, error) {
	var best *cyberhive.Contest
	for _, c := range m.contests {
		if !c.Running() || (!c.IsPublic && !includePrivate) {
			continue
		}
		if best == nil || c.StartAt.After(best.StartAt) {
			best = c
		}
	}
	return best, nil
}

func (m *memStore) LatestContest(ctx context.Context, includePrivate bool) (*cyberhive.Contest, error) {
	var best *cyberhive.Contest
	for _, c := range m.contests {
		if !c.IsPublic && !includePrivate {
			continue
		}
		if best == nil || c.StartAt.After(best.StartAt) {
			best = c
		}
	}
	return best, nil
}

func (m *memStore) AdjacentContestIDs(ctx context.Context, contest *cyberhive.Contest) (*int, *int, error) {
	return nil, nil, nil
}

func (m *memStore) CreateContest(ctx context.Context, contest *cyberhive.Contest) (int, error) {
	contest.ID = m.id()
	m.contests[contest.ID] = contest
	return contest.ID, nil
}

func (m *memStore) UpdateContest(ctx context.Context, id int, upd cyberhive.ContestUpdate) error {
	return nil
}

func (m *memStore) ContestTasks(ctx context.Context, contestID int) ([]*cyberhive.ContestTaskPair, error) {
	links := append([]*cyberhive.ContestTask(nil), m.contestTasks[contestID]...)
	sort.Slice(links, func(i, j int) bool {
		if links[i].OrderIndex != links[j].OrderIndex {
			return links[i].OrderIndex < links[j].OrderIndex
		}
		return links[i].TaskID < links[j].TaskID
	})
	out := make([]*cyberhive.ContestTaskPair, 0, len(links))
	for _, link := range links {
		task, ok := m.tasks[link.TaskID]
		if !ok {
			continue
		}
		out = append(out, &cyberhive.ContestTaskPair{Link: link, Task: task})
	}
	return out, nil
}

func (m *memStore) SetContestTasks(ctx context.Context, contestID int, links []*cyberhive.ContestTask) error {
	m.contestTasks[contestID] = links
	return nil
}

func (m *memStore) Participant(ctx context.Context, contestID, userID int) (*cyberhive.ContestParticipant, error) {
	return m.participants[[2]int{contestID, userID}], nil
}

func (m *memStore) LockParticipant(ctx context.Context, contestID, userID int) (*cyberhive.ContestParticipant, error) {
	return m.participants[[2]int{contestID, userID}], nil
}

func (m *memStore) CreateParticipant(ctx context.Context, contestID, userID int) (*cyberhive.ContestParticipant, error) {
	key := [2]int{contestID, userID}
	if p, ok := m.participants[key]; ok {
		p.LastActiveAt = time.Now()
		return p, nil
	}
	p := &cyberhive.ContestParticipant{
		ContestID:    contestID,
		UserID:       userID,
		JoinedAt:     time.Now(),
		LastActiveAt: time.Now(),
	}
	m.participants[key] = p
	return p, nil
}

func (m *memStore) TouchParticipant(ctx context.Context, contestID, userID int) error {
	if p, ok := m.participants[[2]int{contestID, userID}]; ok {
		p.LastActiveAt = time.Now()
	}
	return nil
}

func (m *memStore) MarkParticipantCompleted(ctx context.Context, contestID, userID int) error {
	if p, ok := m.participants[[2]int{contestID, userID}]; ok && p.CompletedAt == nil {
		now := time.Now()
		p.CompletedAt = &now
	}
	return nil
}

func (m *memStore) Participants(ctx context.Context, contestID int) ([]*cyberhive.ParticipantInfo, error) {
	var out []*cyberhive.ParticipantInfo
	for key, p := range m.participants {
		if key[0] != contestID {
			continue
		}
		info := &cyberhive.ParticipantInfo{UserID: p.UserID}
		if u, ok := m.users[p.UserID]; ok {
			info.Username = u.Username
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (m *memStore) ParticipantCount(ctx context.Context, contestID int) (int, error) {
	cnt := 0
	for key := range m.participants {
		if key[0] == contestID {
			cnt++
		}
	}
	return cnt, nil
}

// --- SubmissionStore

func (m *memStore) CreateSubmission(ctx context.Context, sub *cyberhive.Submission) error {
	sub.ID = m.id()
	sub.SubmittedAt = time.Now()
	m.submissions = append(m.submissions, sub)
	return nil
}

func (m *memStore) UserTaskProgress(ctx context.Context, contestID *int, userID int, taskIDs []int) (map[int]*cyberhive.TaskProgress, error) {
	out := map[int]*cyberhive.TaskProgress{}
	for _, id := range taskIDs {
		out[id] = &cyberhive.TaskProgress{SolvedFlagIDs: map[string]bool{}}
	}
	for _, sub := range m.submissions {
		if sub.UserID != userID || !sameScope(sub.ContestID, contestID) {
			continue
		}
		p, ok := out[sub.TaskID]
		if !ok {
			continue
		}
		p.HasAnySubmission = true
		if sub.IsCorrect {
			p.HasAnyCorrect = true
			if sub.FlagID != "" && sub.FlagID != cyberhive.UnknownFlagID {
				p.SolvedFlagIDs[sub.FlagID] = true
			}
		}
	}
	return out, nil
}

func (m *memStore) ContestCorrectSubmissions(ctx context.Context, contestID int) ([]*cyberhive.CorrectSubmission, error) {
	var out []*cyberhive.CorrectSubmission
	for _, sub := range m.submissions {
		if sub.ContestID == nil || *sub.ContestID != contestID || !sub.IsCorrect {
			continue
		}
		out = append(out, &cyberhive.CorrectSubmission{
			ID:            sub.ID,
			UserID:        sub.UserID,
			TaskID:        sub.TaskID,
			FlagID:        sub.FlagID,
			AwardedPoints: sub.AwardedPoints,
			SubmittedAt:   sub.SubmittedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].SubmittedAt.Before(out[j].SubmittedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *memStore) UserContestResults(ctx context.Context, contestID, userID int) ([]*cyberhive.ResultRow, error) {
	var out []*cyberhive.ResultRow
	for _, sub := range m.submissions {
		if sub.ContestID == nil || *sub.ContestID != contestID || sub.UserID != userID || !sub.IsCorrect {
			continue
		}
		title := ""
		if task, ok := m.tasks[sub.TaskID]; ok {
			title = task.Title
		}
		out = append(out, &cyberhive.ResultRow{
			SubmissionID:   sub.ID,
			TaskID:         sub.TaskID,
			TaskTitle:      title,
			FlagID:         sub.FlagID,
			SubmittedValue: sub.SubmittedValue,
			AwardedPoints:  sub.AwardedPoints,
			SubmittedAt:    sub.SubmittedAt,
		})
	}
	return out, nil
}

func (m *memStore) FirstCorrectSubmitter(ctx context.Context, contestID int) (*string, error) {
	return nil, nil
}

func (m *memStore) LockUserTask(ctx context.Context, userID, taskID int) error {
	return nil
}

// --- UserStore

func (m *memStore) UserBrief(ctx context.Context, id int) (*cyberhive.UserBrief, error) {
	return m.users[id].Brief(), nil
}

func (m *memStore) UserFull(ctx context.Context, id int) (*cyberhive.UserFull, error) {
	return m.users[id], nil
}

func (m *memStore) UserLogin(ctx context.Context, login string) (int, string, error) {
	for _, u := range m.users {
		if strings.EqualFold(u.Email, login) || strings.EqualFold(u.Username, login) {
			return u.ID, "", nil
		}
	}
	return -1, "", cyberhive.ErrNotFound
}

func (m *memStore) CreateUser(ctx context.Context, email, username, passwordHash string, role cyberhive.UserRole) (int, error) {
	id := m.id()
	m.users[id] = &cyberhive.UserFull{
		UserBrief: cyberhive.UserBrief{ID: id, Username: username, Role: role},
		Email:     email,
		IsActive:  true,
		CreatedAt: time.Now(),
	}
	return id, nil
}

// --- RatingStore

func (m *memStore) UserRating(ctx context.Context, userID int) (*cyberhive.UserRating, error) {
	if r, ok := m.ratings[userID]; ok {
		return r, nil
	}
	return &cyberhive.UserRating{UserID: userID}, nil
}

func (m *memStore) AddPracticePoints(ctx context.Context, userID int, points int) error {
	r, ok := m.ratings[userID]
	if !ok {
		r = &cyberhive.UserRating{UserID: userID}
		m.ratings[userID] = r
	}
	r.PracticeRating += points
	r.LastUpdatedAt = time.Now()
	return nil
}

// GlobalRatings mirrors the SQL board: contest ratings summed live
// from the ledger, practice ratings read from the cached counter.
func (m *memStore) GlobalRatings(ctx context.Context, kind cyberhive.RatingKind) ([]*cyberhive.GlobalRatingRow, error) {
	var out []*cyberhive.GlobalRatingRow
	if kind == cyberhive.RatingKindContest {
		points := map[int]int{}
		solved := map[int]map[int]bool{}
		for _, sub := range m.submissions {
			if sub.ContestID == nil || !sub.IsCorrect {
				continue
			}
			points[sub.UserID] += sub.AwardedPoints
			if solved[sub.UserID] == nil {
				solved[sub.UserID] = map[int]bool{}
			}
			solved[sub.UserID][sub.TaskID] = true
		}
		for userID, rating := range points {
			row := &cyberhive.GlobalRatingRow{
				UserID: userID,
				Rating: rating,
				Solved: len(solved[userID]),
			}
			if u, ok := m.users[userID]; ok {
				row.Username = u.Username
			}
			out = append(out, row)
		}
	} else {
		for userID, r := range m.ratings {
			row := &cyberhive.GlobalRatingRow{
				UserID:     userID,
				Rating:     r.PracticeRating,
				FirstBlood: r.FirstBlood,
			}
			if u, ok := m.users[userID]; ok {
				row.Username = u.Username
			}
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rating != out[j].Rating {
			return out[i].Rating > out[j].Rating
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

// --- ArticleStore

func (m *memStore) ArticleBySlug(ctx context.Context, slug string) (*cyberhive.Article, error) {
	for _, a := range m.articles {
		if a.Slug == slug {
			return a, nil
		}
	}
	return nil, nil
}

func (m *memStore) Articles(ctx context.Context, filter cyberhive.ArticleFilter) ([]*cyberhive.Article, error) {
	var out []*cyberhive.Article
	for _, a := range m.articles {
		if filter.CVEID != nil && (a.CVEID == nil || *a.CVEID != *filter.CVEID) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (m *memStore) CreateArticle(ctx context.Context, article *cyberhive.Article) (int, error) {
	article.ID = m.id()
	article.CreatedAt = time.Now()
	m.articles[article.ID] = article
	return article.ID, nil
}

func sameScope(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func containsInt(lst []int, v int) bool {
	for _, x := range lst {
		if x == v {
			return true
		}
	}
	return false
}

func newTestBase(store cyberhive.Store) *BaseAPI {
	return newTestBaseWithLimiter(store, nil, 0)
}

func newTestBaseWithLimiter(store cyberhive.Store, limiter ratelimit.Limiter, submitMax int) *BaseAPI {
	cfg := &config.Config{}
	cfg.Auth.Secret = "test-secret"
	cfg.RateLimit.SubmitMax = submitMax
	base, err := New(cfg, store, limiter)
	if err != nil {
		panic(err)
	}
	return base
}
