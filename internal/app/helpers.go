package app

import (
	"fmt"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/spf13/cobra"

	"github.com/nhle/nexttask/internal/model"
)

// taskFlags are the attribute flags shared by add and edit.
type taskFlags struct {
	note           string
	deadline       string
	deadlineTime   string
	startAfter     string
	startAfterTime string
	scheduled      string
	scheduledTime  string
	every          string
	step           int
	from           string
	until          string
}

func (f *taskFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.note, "note", "", "free-form note")
	fl.StringVar(&f.deadline, "deadline", "", "deadline date (YYYY-MM-DD, today, tomorrow)")
	fl.StringVar(&f.deadlineTime, "deadline-time", "", "deadline time of day (HH:MM)")
	fl.StringVar(&f.startAfter, "start-after", "", "hide the task until this date")
	fl.StringVar(&f.startAfterTime, "start-after-time", "", "hide the task until this time of day")
	fl.StringVar(&f.scheduled, "scheduled", "", "scheduled date")
	fl.StringVar(&f.scheduledTime, "scheduled-time", "", "scheduled time of day")
	fl.StringVar(&f.every, "every", "", "recur every day, week, day_of_month, week_of_month or year (none to stop)")
	fl.IntVar(&f.step, "step", 1, "recurrence step, e.g. 2 with --every week for every other week")
	fl.StringVar(&f.from, "from", "", "first date of the recurrence (default today)")
	fl.StringVar(&f.until, "until", "", "last date of the recurrence")
}

// apply overwrites the fields of in whose flags were set on cmd. An empty
// flag value clears the field.
func (f *taskFlags) apply(cmd *cobra.Command, in *model.TaskInput, today civil.Date) error {
	changed := cmd.Flags().Changed
	var err error

	if changed("note") {
		in.Note = f.note
	}
	slots := []struct {
		dateFlag, timeFlag string
		dateVal, timeVal   string
		slot               *model.Slot
	}{
		{"deadline", "deadline-time", f.deadline, f.deadlineTime, &in.Deadline},
		{"start-after", "start-after-time", f.startAfter, f.startAfterTime, &in.StartAfter},
		{"scheduled", "scheduled-time", f.scheduled, f.scheduledTime, &in.Scheduled},
	}
	for _, s := range slots {
		if changed(s.dateFlag) {
			if s.slot.Date, err = parseDate(s.dateVal, today); err != nil {
				return fmt.Errorf("--%s: %w", s.dateFlag, err)
			}
		}
		if changed(s.timeFlag) {
			if s.slot.Time, err = parseTime(s.timeVal); err != nil {
				return fmt.Errorf("--%s: %w", s.timeFlag, err)
			}
		}
	}

	if !changed("every") {
		if changed("step") || changed("from") || changed("until") {
			return fmt.Errorf("--step, --from and --until need --every")
		}
		return nil
	}
	if f.every == "none" {
		in.Recurrences = nil
		return nil
	}

	typ, err := model.ParseRecurrenceType(f.every)
	if err != nil {
		return fmt.Errorf("--every: %w", err)
	}
	start := today
	if f.from != "" {
		d, err := parseDate(f.from, today)
		if err != nil {
			return fmt.Errorf("--from: %w", err)
		}
		start = *d
	}
	end, err := parseDate(f.until, today)
	if err != nil {
		return fmt.Errorf("--until: %w", err)
	}
	in.Recurrences = []model.Recurrence{{Start: start, End: end, Type: typ, Step: f.step}}
	return nil
}

// inputFromTask rebuilds the editable attributes of an existing task.
func inputFromTask(task *model.Task, recurrences []model.Recurrence) model.TaskInput {
	return model.TaskInput{
		Name:        task.Name,
		Note:        task.Note,
		Deadline:    task.Deadline,
		StartAfter:  task.StartAfter,
		Scheduled:   task.Scheduled,
		Recurrences: recurrences,
	}
}

// parseDate accepts YYYY-MM-DD, "today" and "tomorrow". Empty means unset.
func parseDate(s string, today civil.Date) (*civil.Date, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return nil, nil
	case "today":
		return &today, nil
	case "tomorrow":
		d := today.AddDays(1)
		return &d, nil
	}
	d, err := civil.ParseDate(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return &d, nil
}

// parseTime accepts HH:MM or HH:MM:SS. Empty means unset.
func parseTime(s string) (*civil.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if strings.Count(s, ":") == 1 {
		s += ":00"
	}
	t, err := civil.ParseTime(s)
	if err != nil {
		return nil, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	return &t, nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(s, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid task id %q", s)
	}
	return id, nil
}
