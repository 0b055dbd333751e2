package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nhle/nexttask/internal/model"
)

// taskColumns selects a task row plus its derived recurring flag. The
// table must be aliased as t.
const taskColumns = `
	t.id, t.name, t.note, t.created_at,
	t.deadline_date, t.deadline_time,
	t.start_after_date, t.start_after_time,
	t.scheduled_date, t.scheduled_time,
	EXISTS (SELECT 1 FROM task_recurrences r WHERE r.task_id = t.id) AS recurring`

// taskRow mirrors taskColumns for sqlx scanning.
type taskRow struct {
	ID             int64          `db:"id"`
	Name           string         `db:"name"`
	Note           string         `db:"note"`
	CreatedAt      time.Time      `db:"created_at"`
	DeadlineDate   sql.NullString `db:"deadline_date"`
	DeadlineTime   sql.NullString `db:"deadline_time"`
	StartAfterDate sql.NullString `db:"start_after_date"`
	StartAfterTime sql.NullString `db:"start_after_time"`
	ScheduledDate  sql.NullString `db:"scheduled_date"`
	ScheduledTime  sql.NullString `db:"scheduled_time"`
	Recurring      int            `db:"recurring"`
}

// recurrenceRow mirrors the task_recurrences table.
type recurrenceRow struct {
	ID        string         `db:"id"`
	TaskID    int64          `db:"task_id"`
	StartDate string         `db:"start_date"`
	EndDate   sql.NullString `db:"end_date"`
	Type      string         `db:"type"`
	Step      int            `db:"step"`
}

// InsertRoot creates a task with no parent and returns its id. The task
// gets its reflexive closure row in the same transaction.
func (s *SQLiteStore) InsertRoot(ctx context.Context, in model.TaskInput) (int64, error) {
	task, err := s.CreateTask(ctx, in, nil)
	if err != nil {
		return 0, err
	}
	return task.ID, nil
}

// CreateTask validates and inserts a task, its recurrence rules and its
// reflexive closure row, and when parentID is set attaches it under that
// parent, all in one transaction.
func (s *SQLiteStore) CreateTask(
	ctx context.Context,
	in model.TaskInput,
	parentID *int64,
) (*model.Task, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var id int64
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if parentID != nil {
			if err := requireTask(ctx, tx, *parentID); err != nil {
				return err
			}
		}

		result, err := tx.ExecContext(ctx, `
			INSERT INTO tasks (
				name, note, created_at,
				deadline_date, deadline_time,
				start_after_date, start_after_time,
				scheduled_date, scheduled_time
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			in.Name, in.Note, s.now().UTC(),
			formatDate(in.Deadline.Date), formatTime(in.Deadline.Time),
			formatDate(in.StartAfter.Date), formatTime(in.StartAfter.Time),
			formatDate(in.Scheduled.Date), formatTime(in.Scheduled.Time),
		)
		if err != nil {
			return fmt.Errorf("creating task: %w", err)
		}
		id, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading new task id: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO task_paths (ancestor, descendant, depth) VALUES (?, ?, 0)",
			id, id,
		); err != nil {
			return fmt.Errorf("inserting reflexive path for task %d: %w", id, err)
		}

		if err := insertRecurrences(ctx, tx, id, in.Recurrences); err != nil {
			return err
		}

		if parentID != nil {
			return attach(ctx, tx, *parentID, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("task created", "task_id", id, "parent_id", parentID)
	return s.GetTask(ctx, id)
}

// UpdateTask replaces the editable attributes and the recurrence rules of
// an existing task. The hierarchy is left untouched.
func (s *SQLiteStore) UpdateTask(
	ctx context.Context,
	id int64,
	in model.TaskInput,
) (*model.Task, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE tasks SET
				name = ?, note = ?,
				deadline_date = ?, deadline_time = ?,
				start_after_date = ?, start_after_time = ?,
				scheduled_date = ?, scheduled_time = ?
			WHERE id = ?`,
			in.Name, in.Note,
			formatDate(in.Deadline.Date), formatTime(in.Deadline.Time),
			formatDate(in.StartAfter.Date), formatTime(in.StartAfter.Time),
			formatDate(in.Scheduled.Date), formatTime(in.Scheduled.Time),
			id,
		)
		if err != nil {
			return fmt.Errorf("updating task %d: %w", id, err)
		}
		rows, _ := result.RowsAffected()
		if rows == 0 {
			return fmt.Errorf("task %d: %w", id, ErrNotFound)
		}

		if _, err := tx.ExecContext(ctx,
			"DELETE FROM task_recurrences WHERE task_id = ?", id,
		); err != nil {
			return fmt.Errorf("clearing recurrences of task %d: %w", id, err)
		}
		return insertRecurrences(ctx, tx, id, in.Recurrences)
	})
	if err != nil {
		return nil, err
	}

	return s.GetTask(ctx, id)
}

// DeleteWithPath removes a task. Its former parent chain and children are
// joined directly first, so the closure relation stays exact. Completion,
// recurrence and closure rows go with the task by cascade.
func (s *SQLiteStore) DeleteWithPath(ctx context.Context, id int64) error {
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := requireTask(ctx, tx, id); err != nil {
			return err
		}
		if err := closeGap(ctx, tx, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id); err != nil {
			return fmt.Errorf("deleting task %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug("task deleted", "task_id", id)
	return nil
}

// GetTask retrieves a single task by id.
func (s *SQLiteStore) GetTask(ctx context.Context, id int64) (*model.Task, error) {
	var row taskRow
	err := s.db.GetContext(ctx, &row,
		"SELECT "+taskColumns+" FROM tasks t WHERE t.id = ?", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting task %d: %w", id, err)
	}

	task, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// ListTasks returns every task ordered by id.
func (s *SQLiteStore) ListTasks(ctx context.Context) ([]model.Task, error) {
	var rows []taskRow
	if err := s.db.SelectContext(ctx, &rows,
		"SELECT "+taskColumns+" FROM tasks t ORDER BY t.id",
	); err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	return toTasks(rows)
}

// GetRecurrences returns the recurrence rules of a task. A non-recurring
// task yields an empty slice.
func (s *SQLiteStore) GetRecurrences(ctx context.Context, taskID int64) ([]model.Recurrence, error) {
	var rows []recurrenceRow
	if err := s.db.SelectContext(ctx, &rows,
		"SELECT * FROM task_recurrences WHERE task_id = ? ORDER BY start_date, id",
		taskID,
	); err != nil {
		return nil, fmt.Errorf("querying recurrences of task %d: %w", taskID, err)
	}

	recurrences := make([]model.Recurrence, 0, len(rows))
	for _, row := range rows {
		r, err := row.toModel()
		if err != nil {
			return nil, err
		}
		recurrences = append(recurrences, r)
	}
	return recurrences, nil
}

// ListRecurrences returns the rules of every recurring task, grouped by
// task.
func (s *SQLiteStore) ListRecurrences(ctx context.Context) ([]model.Recurrence, error) {
	var rows []recurrenceRow
	if err := s.db.SelectContext(ctx, &rows,
		"SELECT * FROM task_recurrences ORDER BY task_id, start_date, id",
	); err != nil {
		return nil, fmt.Errorf("querying recurrences: %w", err)
	}

	recurrences := make([]model.Recurrence, 0, len(rows))
	for _, row := range rows {
		r, err := row.toModel()
		if err != nil {
			return nil, fmt.Errorf("recurrence %s: %w", row.ID, err)
		}
		recurrences = append(recurrences, r)
	}
	return recurrences, nil
}

func insertRecurrences(ctx context.Context, tx *sqlx.Tx, taskID int64, rs []model.Recurrence) error {
	for _, r := range rs {
		if r.ID == "" {
			r.ID = uuid.New().String()
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO task_recurrences (id, task_id, start_date, end_date, type, step)
			VALUES (?, ?, ?, ?, ?, ?)`,
			r.ID, taskID, r.Start.String(), formatDate(r.End), string(r.Type), r.Step,
		)
		if err != nil {
			return fmt.Errorf("inserting recurrence for task %d: %w", taskID, err)
		}
	}
	return nil
}

func (row taskRow) toModel() (model.Task, error) {
	task := model.Task{
		ID:        row.ID,
		Name:      row.Name,
		Note:      row.Note,
		CreatedAt: row.CreatedAt,
		Recurring: row.Recurring != 0,
	}

	var err error
	if task.Deadline.Date, err = parseDate(row.DeadlineDate); err != nil {
		return model.Task{}, err
	}
	if task.Deadline.Time, err = parseTime(row.DeadlineTime); err != nil {
		return model.Task{}, err
	}
	if task.StartAfter.Date, err = parseDate(row.StartAfterDate); err != nil {
		return model.Task{}, err
	}
	if task.StartAfter.Time, err = parseTime(row.StartAfterTime); err != nil {
		return model.Task{}, err
	}
	if task.Scheduled.Date, err = parseDate(row.ScheduledDate); err != nil {
		return model.Task{}, err
	}
	if task.Scheduled.Time, err = parseTime(row.ScheduledTime); err != nil {
		return model.Task{}, err
	}
	return task, nil
}

func toTasks(rows []taskRow) ([]model.Task, error) {
	tasks := make([]model.Task, 0, len(rows))
	for _, row := range rows {
		task, err := row.toModel()
		if err != nil {
			return nil, fmt.Errorf("task %d: %w", row.ID, err)
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func (row recurrenceRow) toModel() (model.Recurrence, error) {
	typ, err := model.ParseRecurrenceType(row.Type)
	if err != nil {
		return model.Recurrence{}, err
	}
	start, err := parseDate(sql.NullString{String: row.StartDate, Valid: true})
	if err != nil {
		return model.Recurrence{}, err
	}
	end, err := parseDate(row.EndDate)
	if err != nil {
		return model.Recurrence{}, err
	}
	return model.Recurrence{
		ID:     row.ID,
		TaskID: row.TaskID,
		Start:  *start,
		End:    end,
		Type:   typ,
		Step:   row.Step,
	}, nil
}
