package store

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/civil"

	"github.com/nhle/nexttask/internal/model"
)

var (
	// ErrNotFound is returned when an operation names a task that does not
	// exist, typically because it was deleted concurrently.
	ErrNotFound = errors.New("not found")

	// ErrCycle is returned when attaching a task under one of its own
	// descendants (or itself) through AttachUnderParent.
	ErrCycle = errors.New("attachment would create a cycle")

	// ErrHasParent is returned by AttachUnderParent when the child is still
	// linked to another parent. Use ConnectPath to re-parent.
	ErrHasParent = errors.New("task already has a parent")
)

// CandidateQuery carries the cutoffs used to pick current-task candidates.
type CandidateQuery struct {
	// Today is the calendar day the current day began on. Date-only
	// schedule and start-after slots are reached once Today gets there.
	Today civil.Date
	// Now is the wall clock. Slots with both a date and a time are reached
	// once Now passes them.
	Now civil.DateTime
	// DayStart is the time of day at which Today began. A time-only slot is
	// reached once Now has passed it within the day that began at DayStart.
	DayStart civil.Time
	// DoneBefore is the start of the current occurrence window: a recurring
	// task completed before it is un-done again.
	DoneBefore time.Time
	// Dormant lists recurring tasks that do not fire today. They are never
	// candidates and do not hold back their ancestors.
	Dormant []int64
	// Limit caps the number of rows returned; zero means no limit.
	Limit int
}

// Store defines the persistence interface for tasks, their closure
// relation, completions and recurrence rules.
type Store interface {
	// === Tasks ===

	InsertRoot(ctx context.Context, in model.TaskInput) (int64, error)
	CreateTask(ctx context.Context, in model.TaskInput, parentID *int64) (*model.Task, error)
	UpdateTask(ctx context.Context, id int64, in model.TaskInput) (*model.Task, error)
	DeleteWithPath(ctx context.Context, id int64) error
	GetTask(ctx context.Context, id int64) (*model.Task, error)
	ListTasks(ctx context.Context) ([]model.Task, error)

	// === Hierarchy ===

	AttachUnderParent(ctx context.Context, parentID, childID int64) error
	ConnectPath(ctx context.Context, parentID, childID int64) error
	Detach(ctx context.Context, id int64) error
	DetachSubtree(ctx context.Context, id int64) error
	ImmediateParent(ctx context.Context, id int64) (*int64, error)
	ImmediateChildIDs(ctx context.Context, id int64) ([]int64, error)
	Ancestors(ctx context.Context, id int64) ([]model.TaskPath, error)
	Descendants(ctx context.Context, id int64) ([]model.TaskPath, error)
	Paths(ctx context.Context) ([]model.TaskPath, error)

	// === Completions ===

	AddCompletion(ctx context.Context, taskID int64, at time.Time, skipped bool) (*model.Completion, error)
	LatestCompletion(ctx context.Context, taskID int64) (*model.Completion, error)
	ListCompletions(ctx context.Context, taskID int64) ([]model.Completion, error)

	// === Recurrence ===

	GetRecurrences(ctx context.Context, taskID int64) ([]model.Recurrence, error)
	ListRecurrences(ctx context.Context) ([]model.Recurrence, error)

	// === Selection ===

	ListCandidates(ctx context.Context, q CandidateQuery) ([]model.Task, error)
}
