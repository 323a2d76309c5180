package db

import (
	"context"
	"fmt"
	"time"

	"github.com/HiveCTF/cyberhive"
)

type dbTask struct {
	ID        int       `db:"id"`
	CreatedAt time.Time `db:"created_at"`

	Title      string   `db:"title"`
	Category   string   `db:"category"`
	Difficulty int      `db:"difficulty"`
	Points     int      `db:"points"`
	Tags       []string `db:"tags"`

	Story                  *string `db:"story"`
	ParticipantDescription *string `db:"participant_description"`

	Kind  string `db:"task_kind"`
	State string `db:"state"`
}

func (s *DB) Task(ctx context.Context, id int) (*cyberhive.Task, error) {
	task, err := getRow[dbTask](ctx, s.conn, "SELECT * FROM tasks WHERE id = $1 LIMIT 1", id)
	if err != nil || task == nil {
		return nil, err
	}
	return internalToTask(task), nil
}

func (s *DB) Tasks(ctx context.Context, filter cyberhive.TaskFilter) ([]*cyberhive.Task, error) {
	fb := newFilterBuilder()
	taskFilterQuery(&filter, fb)

	query := fmt.Sprintf("SELECT * FROM tasks WHERE %s ORDER BY id ASC %s", fb.Where(), FormatLimitOffset(filter.Limit, filter.Offset))
	tasks, err := selectRows[dbTask](ctx, s.conn, query, fb.Args()...)
	if err != nil {
		return nil, err
	}
	return mapper(tasks, internalToTask), nil
}

const createTaskQuery = `INSERT INTO tasks
	(title, category, difficulty, points, tags, story, participant_description, task_kind, state)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id, created_at`

func (s *DB) CreateTask(ctx context.Context, task *cyberhive.Task, flags []*cyberhive.TaskFlag) (int, error) {
	if task.Title == "" || task.Category == "" {
		return -1, cyberhive.ErrMissingRequired
	}
	var id int
	err := s.InTx(ctx, func(store cyberhive.Store) error {
		tx := store.(*DB)
		if err := tx.conn.QueryRow(ctx, createTaskQuery,
			task.Title, task.Category, task.Difficulty, task.Points, task.Tags,
			task.Story, task.ParticipantDescription, task.Kind, task.State,
		).Scan(&id, &task.CreatedAt); err != nil {
			return err
		}
		for _, flag := range flags {
			if _, err := tx.conn.Exec(ctx,
				"INSERT INTO task_flags (task_id, flag_id, expected_value, format, description) VALUES ($1, $2, $3, $4, $5)",
				id, flag.FlagID, flag.ExpectedValue, flag.Format, flag.Description,
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return -1, err
	}
	task.ID = id
	return id, nil
}

func (s *DB) UpdateTask(ctx context.Context, id int, upd cyberhive.TaskUpdate) error {
	ub := newUpdateBuilder()
	taskUpdateQuery(&upd, ub)
	if err := ub.CheckUpdates(); err != nil {
		return err
	}
	fb := ub.MakeFilter()
	fb.AddConstraint("id = %s", id)
	_, err := s.conn.Exec(ctx, "UPDATE tasks SET "+fb.WithUpdate(), fb.Args()...)
	return err
}

type dbTaskFlag struct {
	ID     int `db:"id"`
	TaskID int `db:"task_id"`

	FlagID        string  `db:"flag_id"`
	ExpectedValue string  `db:"expected_value"`
	Format        *string `db:"format"`
	Description   *string `db:"description"`
}

func (s *DB) TaskFlags(ctx context.Context, taskIDs []int) (map[int][]*cyberhive.TaskFlag, error) {
	byTask := make(map[int][]*cyberhive.TaskFlag)
	if len(taskIDs) == 0 {
		return byTask, nil
	}

	flags, err := selectRows[dbTaskFlag](ctx, s.conn,
		"SELECT * FROM task_flags WHERE task_id = ANY($1) ORDER BY task_id ASC, id ASC", taskIDs)
	if err != nil {
		return nil, err
	}
	for _, flag := range flags {
		byTask[flag.TaskID] = append(byTask[flag.TaskID], &cyberhive.TaskFlag{
			ID:            flag.ID,
			TaskID:        flag.TaskID,
			FlagID:        flag.FlagID,
			ExpectedValue: flag.ExpectedValue,
			Format:        flag.Format,
			Description:   flag.Description,
		})
	}
	return byTask, nil
}

func taskFilterQuery(filter *cyberhive.TaskFilter, fb *filterBuilder) {
	if v := filter.ID; v != nil {
		fb.AddConstraint("id = %s", v)
	}
	if v := filter.IDs; v != nil && len(v) == 0 {
		fb.AddConstraint("id = -1")
	}
	if v := filter.IDs; len(v) > 0 {
		fb.AddConstraint("id = ANY(%s)", v)
	}
	if v := filter.Kind; v != nil {
		fb.AddConstraint("task_kind = %s", v)
	}
	if v := filter.State; v != nil {
		fb.AddConstraint("state = %s", v)
	}
}

func taskUpdateQuery(upd *cyberhive.TaskUpdate, b *updateBuilder) {
	if v := upd.Title; v != nil {
		b.AddUpdate("title = %s", v)
	}
	if v := upd.Category; v != nil {
		b.AddUpdate("category = %s", v)
	}
	if v := upd.Difficulty; v != nil {
		b.AddUpdate("difficulty = %s", v)
	}
	if v := upd.Points; v != nil {
		b.AddUpdate("points = %s", v)
	}
	if v := upd.Tags; v != nil {
		b.AddUpdate("tags = %s", v)
	}
	if v := upd.Story; v != nil {
		b.AddUpdate("story = %s", v)
	}
	if v := upd.ParticipantDescription; v != nil {
		b.AddUpdate("participant_description = %s", v)
	}
	if v := upd.Kind; v != nil {
		b.AddUpdate("task_kind = %s", v)
	}
	if v := upd.State; v != nil {
		b.AddUpdate("state = %s", v)
	}
}

func internalToTask(task *dbTask) *cyberhive.Task {
	if task == nil {
		return nil
	}

	return &cyberhive.Task{
		ID:        task.ID,
		CreatedAt: task.CreatedAt,

		Title:      task.Title,
		Category:   task.Category,
		Difficulty: task.Difficulty,
		Points:     task.Points,
		Tags:       task.Tags,

		Story:                  task.Story,
		ParticipantDescription: task.ParticipantDescription,

		Kind:  cyberhive.TaskKind(task.Kind),
		State: cyberhive.TaskState(task.State),
	}
}
