package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/nhle/nexttask/internal/model"
)

// doneExpr is true when the task aliased by %[1]s counts as done: any
// completion for a one-off task, a completion inside the current occurrence
// window for a recurring one.
const doneExpr = `
	CASE WHEN EXISTS (SELECT 1 FROM task_recurrences r WHERE r.task_id = %[1]s.id)
		THEN EXISTS (SELECT 1 FROM task_completions c WHERE c.task_id = %[1]s.id AND c.done_at >= :done_before)
		ELSE EXISTS (SELECT 1 FROM task_completions c WHERE c.task_id = %[1]s.id)
	END`

// reachedExpr is true once the slot stored in the %[1]s_date and %[1]s_time
// columns of t has been reached. A time-only slot recurs daily and is
// placed within the day that began at :day_start.
const reachedExpr = `
	CASE
		WHEN t.%[1]s_date IS NULL AND t.%[1]s_time IS NULL THEN 1
		WHEN t.%[1]s_date IS NULL THEN
			CASE WHEN :now_time >= :day_start
				THEN t.%[1]s_time >= :day_start AND t.%[1]s_time <= :now_time
				ELSE t.%[1]s_time >= :day_start OR t.%[1]s_time <= :now_time
			END
		WHEN t.%[1]s_time IS NULL THEN t.%[1]s_date <= :today
		ELSE t.%[1]s_date < :now_date
			OR (t.%[1]s_date = :now_date AND t.%[1]s_time <= :now_time)
	END`

// candidateQuery picks un-done, non-dormant tasks without un-done,
// non-dormant descendants whose schedule and start-after slots have been
// reached, in priority order: scheduled date, scheduled time, recurring
// first, deadline date, deadline time, creation time, id. NULLs sort last
// within each key.
var candidateQuery = `
	SELECT ` + taskColumns + `
	FROM tasks t
	WHERE NOT (` + fmt.Sprintf(doneExpr, "t") + `)
	AND t.id NOT IN (SELECT value FROM json_each(:dormant))
	AND NOT EXISTS (
		SELECT 1 FROM task_paths p
		JOIN tasks d ON d.id = p.descendant
		WHERE p.ancestor = t.id AND p.depth > 0
		AND d.id NOT IN (SELECT value FROM json_each(:dormant))
		AND NOT (` + fmt.Sprintf(doneExpr, "d") + `)
	)
	AND (` + fmt.Sprintf(reachedExpr, "scheduled") + `)
	AND (` + fmt.Sprintf(reachedExpr, "start_after") + `)
	ORDER BY
		t.scheduled_date IS NULL, t.scheduled_date,
		t.scheduled_time IS NULL, t.scheduled_time,
		recurring DESC,
		t.deadline_date IS NULL, t.deadline_date,
		t.deadline_time IS NULL, t.deadline_time,
		t.created_at, t.id`

// ListCandidates returns the tasks eligible to be current, best first.
// Whether a recurring task fires today is up to the caller, which names
// the ones that do not in q.Dormant.
func (s *SQLiteStore) ListCandidates(ctx context.Context, q CandidateQuery) ([]model.Task, error) {
	query := candidateQuery
	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", q.Limit)
	}

	named, args, err := sqlx.Named(query, map[string]interface{}{
		"today":       q.Today.String(),
		"now_date":    q.Now.Date.String(),
		"now_time":    formatTime(&q.Now.Time).String,
		"day_start":   formatTime(&q.DayStart).String,
		"done_before": q.DoneBefore.UTC(),
		"dormant":     idList(q.Dormant),
	})
	if err != nil {
		return nil, fmt.Errorf("binding candidate query: %w", err)
	}

	var rows []taskRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(named), args...); err != nil {
		return nil, fmt.Errorf("querying candidates: %w", err)
	}
	return toTasks(rows)
}

// idList renders ids as a JSON array for json_each.
func idList(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
