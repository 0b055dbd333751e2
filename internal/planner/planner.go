// Package planner is the caller-facing API over the task store, the
// current-task selector and the recurrence engine.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/civil"

	"github.com/nhle/nexttask/internal/model"
	"github.com/nhle/nexttask/internal/recurrence"
	"github.com/nhle/nexttask/internal/selector"
	"github.com/nhle/nexttask/internal/store"
)

// ErrNotRecurring is returned when skipping a task that does not recur.
var ErrNotRecurring = errors.New("task is not recurring")

// Service implements the task operations used by front ends.
type Service struct {
	store    store.Store
	selector *selector.Selector
	dayStart civil.Time
	logger   *slog.Logger
}

// New returns a Service. dayStart is the local time at which a new day
// (and occurrence window) begins.
func New(s store.Store, dayStart civil.Time, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    s,
		selector: selector.New(s, dayStart),
		dayStart: dayStart,
		logger:   logger,
	}
}

// CreateTask validates in and stores a new root task.
func (s *Service) CreateTask(ctx context.Context, in model.TaskInput) (*model.Task, error) {
	task, err := s.store.CreateTask(ctx, in, nil)
	if err != nil {
		return nil, err
	}
	s.logger.Info("task created", "task_id", task.ID, "recurring", task.Recurring)
	return task, nil
}

// CreateSubtask validates in and stores a new task under parentID in one
// transaction.
func (s *Service) CreateSubtask(ctx context.Context, parentID int64, in model.TaskInput) (*model.Task, error) {
	task, err := s.store.CreateTask(ctx, in, &parentID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("task created", "task_id", task.ID, "parent_id", parentID, "recurring", task.Recurring)
	return task, nil
}

// EditTask replaces the attributes of task id.
func (s *Service) EditTask(ctx context.Context, id int64, in model.TaskInput) (*model.Task, error) {
	task, err := s.store.UpdateTask(ctx, id, in)
	if err != nil {
		return nil, err
	}
	s.logger.Info("task edited", "task_id", id)
	return task, nil
}

// DeleteTask removes task id. Its children are re-linked to its parent.
func (s *Service) DeleteTask(ctx context.Context, id int64) error {
	if err := s.store.DeleteWithPath(ctx, id); err != nil {
		return err
	}
	s.logger.Info("task deleted", "task_id", id)
	return nil
}

// AttachParent makes parentID the parent of childID, moving childID if it
// is attached elsewhere.
func (s *Service) AttachParent(ctx context.Context, childID, parentID int64) error {
	if err := s.store.ConnectPath(ctx, parentID, childID); err != nil {
		return err
	}
	s.logger.Info("parent attached", "task_id", childID, "parent_id", parentID)
	return nil
}

// DetachParent turns childID, with its subtree, into a root task.
func (s *Service) DetachParent(ctx context.Context, childID int64) error {
	if err := s.store.DetachSubtree(ctx, childID); err != nil {
		return err
	}
	s.logger.Info("parent detached", "task_id", childID)
	return nil
}

// MarkDone records that task id was completed at at.
func (s *Service) MarkDone(ctx context.Context, id int64, at time.Time) (*model.Completion, error) {
	c, err := s.store.AddCompletion(ctx, id, at, false)
	if err != nil {
		return nil, err
	}
	s.logger.Info("task done", "task_id", id, "at", at)
	return c, nil
}

// Skip records a skipped occurrence of recurring task id, which advances
// it to its next occurrence like a completion would.
func (s *Service) Skip(ctx context.Context, id int64, at time.Time) (*model.Completion, error) {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if !task.Recurring {
		return nil, fmt.Errorf("skipping task %d: %w", id, ErrNotRecurring)
	}

	c, err := s.store.AddCompletion(ctx, id, at, true)
	if err != nil {
		return nil, err
	}
	s.logger.Info("task skipped", "task_id", id, "at", at)
	return c, nil
}

// CurrentTask returns the task to work on at now, or
// selector.ErrNoCurrentTask.
func (s *Service) CurrentTask(ctx context.Context, now time.Time) (*model.Task, error) {
	task, err := s.selector.Current(ctx, now)
	if err != nil {
		if !errors.Is(err, selector.ErrNoCurrentTask) {
			s.logger.Error("selecting current task failed", "error", err)
		}
		return nil, err
	}
	s.logger.Debug("current task selected", "task_id", task.ID)
	return task, nil
}

// IsDone reports whether task counts as done at now: ever completed for
// a one-off task, completed since the current day began for a recurring one.
func (s *Service) IsDone(ctx context.Context, task model.Task, now time.Time) (bool, error) {
	latest, err := s.store.LatestCompletion(ctx, task.ID)
	if err != nil {
		return false, err
	}
	cut := selector.CutoffsAt(now, s.dayStart)
	return model.IsDone(task.Recurring, latest, cut.DoneBefore), nil
}

// RankedTasks returns every eligible task at now, best first.
func (s *Service) RankedTasks(ctx context.Context, now time.Time) ([]model.Task, error) {
	return s.selector.Ranked(ctx, now)
}

// IsDueOn reports whether task id has an occurrence on date. One-off tasks
// are due on every date.
func (s *Service) IsDueOn(ctx context.Context, id int64, date civil.Date) (bool, error) {
	rules, err := s.rules(ctx, id)
	if err != nil {
		return false, err
	}
	if len(rules) == 0 {
		return true, nil
	}
	return recurrence.OccursOn(rules, date), nil
}

// NextOccurrence returns the first date after from on which recurring task
// id fires, looking at most horizon days ahead.
func (s *Service) NextOccurrence(ctx context.Context, id int64, from civil.Date, horizon int) (civil.Date, bool, error) {
	rules, err := s.rules(ctx, id)
	if err != nil {
		return civil.Date{}, false, err
	}
	next, ok := recurrence.Next(rules, from, horizon)
	return next, ok, nil
}

// Task returns task id.
func (s *Service) Task(ctx context.Context, id int64) (*model.Task, error) {
	return s.store.GetTask(ctx, id)
}

// Tasks returns every task ordered by id.
func (s *Service) Tasks(ctx context.Context) ([]model.Task, error) {
	return s.store.ListTasks(ctx)
}

// Recurrences returns the recurrence rules of task id.
func (s *Service) Recurrences(ctx context.Context, id int64) ([]model.Recurrence, error) {
	return s.store.GetRecurrences(ctx, id)
}

// Paths returns the whole closure relation.
func (s *Service) Paths(ctx context.Context) ([]model.TaskPath, error) {
	return s.store.Paths(ctx)
}

func (s *Service) rules(ctx context.Context, id int64) ([]recurrence.Rule, error) {
	if _, err := s.store.GetTask(ctx, id); err != nil {
		return nil, err
	}
	stored, err := s.store.GetRecurrences(ctx, id)
	if err != nil {
		return nil, err
	}
	return recurrence.FromModels(stored)
}
