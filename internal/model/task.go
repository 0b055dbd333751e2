package model

import (
	"time"

	"cloud.google.com/go/civil"
)

// Slot is an optional calendar date and/or time of day. Either half may be
// unset independently.
type Slot struct {
	Date *civil.Date `json:"date,omitempty"`
	Time *civil.Time `json:"time,omitempty"`
}

// IsZero reports whether neither the date nor the time is set.
func (s Slot) IsZero() bool {
	return s.Date == nil && s.Time == nil
}

// Task is a unit of work in the dependency forest.
type Task struct {
	// ID is the stable integer identifier assigned by the store.
	ID int64 `json:"id"`

	// Name is the non-blank display name.
	Name string `json:"name"`

	// Note is free-form text attached to the task.
	Note string `json:"note,omitempty"`

	// CreatedAt is when the task was first stored.
	CreatedAt time.Time `json:"created_at"`

	// Deadline is when the task should be finished by.
	Deadline Slot `json:"deadline"`

	// StartAfter hides the task until the given date and/or time.
	StartAfter Slot `json:"start_after"`

	// Scheduled pins the task to a fixed date and/or time.
	Scheduled Slot `json:"scheduled"`

	// Recurring is derived from whether the task owns recurrence rules.
	Recurring bool `json:"recurring"`
}

// TaskPath is one row of the ancestor/descendant closure relation.
// Every task owns a reflexive row with Depth 0.
type TaskPath struct {
	Ancestor   int64 `json:"ancestor" db:"ancestor"`
	Descendant int64 `json:"descendant" db:"descendant"`
	Depth      int   `json:"depth" db:"depth"`
}

// Completion marks one occurrence of a task as finished. Skips are stored as
// completions too so they advance a recurring task to its next occurrence.
type Completion struct {
	ID      string    `json:"id" db:"id"`
	TaskID  int64     `json:"task_id" db:"task_id"`
	DoneAt  time.Time `json:"done_at" db:"done_at"`
	Skipped bool      `json:"skipped" db:"skipped"`
}

// IsDone reports whether a task with the given latest completion counts as
// done for the occurrence window starting at doneBefore.
func IsDone(recurring bool, latest *Completion, doneBefore time.Time) bool {
	if latest == nil {
		return false
	}
	if !recurring {
		return true
	}
	return !latest.DoneAt.Before(doneBefore)
}
