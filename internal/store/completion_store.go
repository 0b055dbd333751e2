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

// AddCompletion appends a completion (or skip) record for a task.
func (s *SQLiteStore) AddCompletion(
	ctx context.Context,
	taskID int64,
	at time.Time,
	skipped bool,
) (*model.Completion, error) {
	c := model.Completion{
		ID:      uuid.New().String(),
		TaskID:  taskID,
		DoneAt:  at.UTC(),
		Skipped: skipped,
	}

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := requireTask(ctx, tx, taskID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO task_completions (id, task_id, done_at, skipped)
			VALUES (?, ?, ?, ?)`,
			c.ID, c.TaskID, c.DoneAt, boolToInt(c.Skipped),
		)
		if err != nil {
			return fmt.Errorf("recording completion of task %d: %w", taskID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// LatestCompletion returns the most recent completion of a task, or nil if
// it was never completed.
func (s *SQLiteStore) LatestCompletion(ctx context.Context, taskID int64) (*model.Completion, error) {
	var c model.Completion
	err := s.db.GetContext(ctx, &c, `
		SELECT id, task_id, done_at, skipped FROM task_completions
		WHERE task_id = ?
		ORDER BY done_at DESC
		LIMIT 1`,
		taskID,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting latest completion of task %d: %w", taskID, err)
	}
	return &c, nil
}

// ListCompletions returns the completion history of a task, oldest first.
func (s *SQLiteStore) ListCompletions(ctx context.Context, taskID int64) ([]model.Completion, error) {
	var completions []model.Completion
	if err := s.db.SelectContext(ctx, &completions, `
		SELECT id, task_id, done_at, skipped FROM task_completions
		WHERE task_id = ?
		ORDER BY done_at`,
		taskID,
	); err != nil {
		return nil, fmt.Errorf("querying completions of task %d: %w", taskID, err)
	}
	return completions, nil
}
