package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/nhle/nexttask/internal/model"
)

// The task forest is kept as a materialized transitive closure in
// task_paths: one (ancestor, descendant, depth) row per connected pair,
// including the reflexive depth-0 row of every task. Depth always equals
// the number of edges between the pair, and every task has at most one
// row with depth 1 pointing at it.

// AttachUnderParent links a parentless child (with its whole subtree)
// under parentID. It fails with ErrCycle if child is parent or one of its
// ancestors, and with ErrHasParent if child is still linked elsewhere.
func (s *SQLiteStore) AttachUnderParent(ctx context.Context, parentID, childID int64) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := requireTasks(ctx, tx, parentID, childID); err != nil {
			return err
		}

		rel, err := relation(ctx, tx, parentID, childID)
		if err != nil {
			return err
		}
		if rel != nil && rel.Ancestor == childID {
			return fmt.Errorf("attaching %d under %d: %w", childID, parentID, ErrCycle)
		}

		ancestors, err := ancestorIDs(ctx, tx, childID)
		if err != nil {
			return err
		}
		if len(ancestors) > 0 {
			return fmt.Errorf("attaching %d under %d: %w", childID, parentID, ErrHasParent)
		}

		return attach(ctx, tx, parentID, childID)
	})
}

// ConnectPath makes parentID the parent of childID, whatever their current
// relation:
//
//   - parentID already an ancestor of childID (or the same task): nothing
//     to do.
//   - childID an ancestor of parentID: childID alone is spliced out of its
//     chain (its children move up to its old parent) and hung under
//     parentID as a leaf.
//   - unrelated: childID's subtree is cut from its old parent, if any, and
//     attached under parentID.
func (s *SQLiteStore) ConnectPath(ctx context.Context, parentID, childID int64) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := requireTasks(ctx, tx, parentID, childID); err != nil {
			return err
		}

		rel, err := relation(ctx, tx, parentID, childID)
		if err != nil {
			return err
		}

		switch {
		case rel != nil && rel.Ancestor == parentID:
			return nil
		case rel != nil && rel.Ancestor == childID:
			s.logger.Debug("moving task under its own descendant",
				"task_id", childID, "parent_id", parentID)
			if err := isolate(ctx, tx, childID); err != nil {
				return err
			}
		default:
			if err := cutFromParent(ctx, tx, childID); err != nil {
				return err
			}
		}

		return attach(ctx, tx, parentID, childID)
	})
}

// Detach severs a task from both its parent chain and its subtree. Its
// children are joined to its former parent; only the reflexive row of the
// task is left.
func (s *SQLiteStore) Detach(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := requireTask(ctx, tx, id); err != nil {
			return err
		}
		return isolate(ctx, tx, id)
	})
}

// DetachSubtree removes the link between a task and its parent. The task
// keeps its own subtree and becomes a root.
func (s *SQLiteStore) DetachSubtree(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := requireTask(ctx, tx, id); err != nil {
			return err
		}
		return cutFromParent(ctx, tx, id)
	})
}

// ImmediateParent returns the id of the task's parent, or nil for a root.
func (s *SQLiteStore) ImmediateParent(ctx context.Context, id int64) (*int64, error) {
	if err := requireTask(ctx, s.db, id); err != nil {
		return nil, err
	}

	var parent int64
	err := s.db.GetContext(ctx, &parent,
		"SELECT ancestor FROM task_paths WHERE descendant = ? AND depth = 1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting parent of task %d: %w", id, err)
	}
	return &parent, nil
}

// ImmediateChildIDs returns the ids of the task's direct children.
func (s *SQLiteStore) ImmediateChildIDs(ctx context.Context, id int64) ([]int64, error) {
	if err := requireTask(ctx, s.db, id); err != nil {
		return nil, err
	}

	var ids []int64
	if err := s.db.SelectContext(ctx, &ids,
		"SELECT descendant FROM task_paths WHERE ancestor = ? AND depth = 1 ORDER BY descendant", id,
	); err != nil {
		return nil, fmt.Errorf("getting children of task %d: %w", id, err)
	}
	return ids, nil
}

// Ancestors returns every closure row where id is the descendant, nearest
// first, including the reflexive row.
func (s *SQLiteStore) Ancestors(ctx context.Context, id int64) ([]model.TaskPath, error) {
	var paths []model.TaskPath
	if err := s.db.SelectContext(ctx, &paths,
		"SELECT * FROM task_paths WHERE descendant = ? ORDER BY depth", id,
	); err != nil {
		return nil, fmt.Errorf("getting ancestors of task %d: %w", id, err)
	}
	return paths, nil
}

// Descendants returns every closure row where id is the ancestor, nearest
// first, including the reflexive row.
func (s *SQLiteStore) Descendants(ctx context.Context, id int64) ([]model.TaskPath, error) {
	var paths []model.TaskPath
	if err := s.db.SelectContext(ctx, &paths,
		"SELECT * FROM task_paths WHERE ancestor = ? ORDER BY depth, descendant", id,
	); err != nil {
		return nil, fmt.Errorf("getting descendants of task %d: %w", id, err)
	}
	return paths, nil
}

// Paths returns the whole closure relation.
func (s *SQLiteStore) Paths(ctx context.Context) ([]model.TaskPath, error) {
	var paths []model.TaskPath
	if err := s.db.SelectContext(ctx, &paths,
		"SELECT * FROM task_paths ORDER BY ancestor, descendant",
	); err != nil {
		return nil, fmt.Errorf("querying task paths: %w", err)
	}
	return paths, nil
}

// attach inserts one row for every (ancestor of parent) x (descendant of
// child) pair, with the depths summed across the new edge.
func attach(ctx context.Context, tx *sqlx.Tx, parentID, childID int64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO task_paths (ancestor, descendant, depth)
		SELECT a.ancestor, d.descendant, a.depth + d.depth + 1
		FROM task_paths a
		CROSS JOIN task_paths d
		WHERE a.descendant = ? AND d.ancestor = ?`,
		parentID, childID,
	)
	if err != nil {
		return fmt.Errorf("attaching task %d under %d: %w", childID, parentID, err)
	}
	return nil
}

// isolate removes every non-reflexive row touching id after joining its
// ancestors to its descendants one level closer.
func isolate(ctx context.Context, tx *sqlx.Tx, id int64) error {
	if err := closeGap(ctx, tx, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM task_paths WHERE (ancestor = ? OR descendant = ?) AND depth > 0",
		id, id,
	); err != nil {
		return fmt.Errorf("detaching task %d: %w", id, err)
	}
	return nil
}

// closeGap decrements the depth of every row spanning id, from its strict
// ancestors to its strict descendants, as if id were removed from the
// chain.
func closeGap(ctx context.Context, tx *sqlx.Tx, id int64) error {
	ancestors, err := ancestorIDs(ctx, tx, id)
	if err != nil {
		return err
	}
	descendants, err := descendantIDs(ctx, tx, id, false)
	if err != nil {
		return err
	}
	return shiftDepth(ctx, tx, ancestors, descendants, -1)
}

// cutFromParent deletes the rows linking id's strict ancestors to id and
// everything below it.
func cutFromParent(ctx context.Context, tx *sqlx.Tx, id int64) error {
	ancestors, err := ancestorIDs(ctx, tx, id)
	if err != nil {
		return err
	}
	if len(ancestors) == 0 {
		return nil
	}
	subtree, err := descendantIDs(ctx, tx, id, true)
	if err != nil {
		return err
	}

	query, args, err := sqlx.In(
		"DELETE FROM task_paths WHERE ancestor IN (?) AND descendant IN (?)",
		ancestors, subtree,
	)
	if err != nil {
		return fmt.Errorf("building cut for task %d: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
		return fmt.Errorf("cutting task %d from its parent: %w", id, err)
	}
	return nil
}

func shiftDepth(ctx context.Context, tx *sqlx.Tx, ancestors, descendants []int64, delta int) error {
	if len(ancestors) == 0 || len(descendants) == 0 {
		return nil
	}
	query, args, err := sqlx.In(
		"UPDATE task_paths SET depth = depth + ? WHERE ancestor IN (?) AND descendant IN (?)",
		delta, ancestors, descendants,
	)
	if err != nil {
		return fmt.Errorf("building depth shift: %w", err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
		return fmt.Errorf("shifting path depths by %d: %w", delta, err)
	}
	return nil
}

// ancestorIDs returns the strict ancestors of id.
func ancestorIDs(ctx context.Context, tx *sqlx.Tx, id int64) ([]int64, error) {
	var ids []int64
	if err := tx.SelectContext(ctx, &ids,
		"SELECT ancestor FROM task_paths WHERE descendant = ? AND depth > 0", id,
	); err != nil {
		return nil, fmt.Errorf("getting ancestors of task %d: %w", id, err)
	}
	return ids, nil
}

// descendantIDs returns the descendants of id, including id itself when
// inclusive is set.
func descendantIDs(ctx context.Context, tx *sqlx.Tx, id int64, inclusive bool) ([]int64, error) {
	minDepth := 1
	if inclusive {
		minDepth = 0
	}
	var ids []int64
	if err := tx.SelectContext(ctx, &ids,
		"SELECT descendant FROM task_paths WHERE ancestor = ? AND depth >= ?", id, minDepth,
	); err != nil {
		return nil, fmt.Errorf("getting descendants of task %d: %w", id, err)
	}
	return ids, nil
}

// relation returns the closure row connecting a and b in either direction,
// or nil if they are unrelated.
func relation(ctx context.Context, tx *sqlx.Tx, a, b int64) (*model.TaskPath, error) {
	var p model.TaskPath
	err := tx.GetContext(ctx, &p, `
		SELECT * FROM task_paths
		WHERE (ancestor = ? AND descendant = ?) OR (ancestor = ? AND descendant = ?)
		LIMIT 1`,
		a, b, b, a,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting relation between %d and %d: %w", a, b, err)
	}
	return &p, nil
}

func requireTasks(ctx context.Context, tx *sqlx.Tx, ids ...int64) error {
	for _, id := range ids {
		if err := requireTask(ctx, tx, id); err != nil {
			return err
		}
	}
	return nil
}
