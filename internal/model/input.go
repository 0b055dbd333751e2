package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// TaskInput carries the user-editable attributes of a task for create and
// edit requests. It is validated as a whole before anything is written.
type TaskInput struct {
	Name        string       `json:"name" validate:"required,max=500"`
	Note        string       `json:"note" validate:"max=10000"`
	Deadline    Slot         `json:"deadline"`
	StartAfter  Slot         `json:"start_after"`
	Scheduled   Slot         `json:"scheduled"`
	Recurrences []Recurrence `json:"recurrences" validate:"dive"`
}

// Recurring reports whether the input describes a recurring task.
func (in TaskInput) Recurring() bool {
	return len(in.Recurrences) > 0
}

// ValidationError lists every problem found in a TaskInput.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid task: " + strings.Join(e.Problems, "; ")
}

var validate = validator.New()

// Validate checks field constraints and the cross-field rules between
// deadline, start-after, scheduled slot and recurrence. It returns a
// *ValidationError describing all violations, or nil.
func (in TaskInput) Validate() error {
	var problems []string

	if err := validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, e := range verrs {
			problems = append(problems, fmt.Sprintf("%s: failed %q", e.Namespace(), e.Tag()))
		}
	}

	if strings.TrimSpace(in.Name) == "" {
		problems = append(problems, "name must not be blank")
	}
	if !in.Scheduled.IsZero() && !in.Deadline.IsZero() {
		problems = append(problems, "a scheduled task cannot have a deadline")
	}
	if !in.Scheduled.IsZero() && !in.StartAfter.IsZero() {
		problems = append(problems, "a scheduled task cannot have a start-after constraint")
	}
	if in.Scheduled.Time != nil && in.Scheduled.Date == nil && !in.Recurring() {
		problems = append(problems, "a scheduled time needs a scheduled date unless the task recurs")
	}
	if in.Recurring() {
		if in.Deadline.Date != nil {
			problems = append(problems, "a recurring task cannot have a deadline date")
		}
		if in.StartAfter.Date != nil {
			problems = append(problems, "a recurring task cannot have a start-after date")
		}
		if in.Scheduled.Date != nil {
			problems = append(problems, "a recurring task cannot have a scheduled date")
		}
	}

	for i, r := range in.Recurrences {
		if !r.Start.IsValid() {
			problems = append(problems, fmt.Sprintf("recurrence %d: invalid start date", i))
		}
		if r.End != nil && r.End.Before(r.Start) {
			problems = append(problems, fmt.Sprintf("recurrence %d: end date %s before start date %s", i, r.End, r.Start))
		}
	}

	for _, s := range []Slot{in.Deadline, in.StartAfter, in.Scheduled} {
		if s.Date != nil && !s.Date.IsValid() {
			problems = append(problems, fmt.Sprintf("invalid date %s", s.Date))
		}
		if s.Time != nil && !s.Time.IsValid() {
			problems = append(problems, fmt.Sprintf("invalid time %s", s.Time))
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
