package model

import (
	"fmt"

	"cloud.google.com/go/civil"
)

// RecurrenceType selects the calendar-matching strategy of a rule.
type RecurrenceType string

const (
	RecurrenceDay         RecurrenceType = "day"
	RecurrenceWeek        RecurrenceType = "week"
	RecurrenceDayOfMonth  RecurrenceType = "day_of_month"
	RecurrenceWeekOfMonth RecurrenceType = "week_of_month"
	RecurrenceYear        RecurrenceType = "year"
)

// ParseRecurrenceType maps a stored or user-supplied name to a RecurrenceType.
func ParseRecurrenceType(s string) (RecurrenceType, error) {
	switch t := RecurrenceType(s); t {
	case RecurrenceDay, RecurrenceWeek, RecurrenceDayOfMonth, RecurrenceWeekOfMonth, RecurrenceYear:
		return t, nil
	}
	return "", fmt.Errorf("unknown recurrence type %q", s)
}

// Recurrence is a single rule attached to a recurring task. A task firing on
// several weekdays owns one Week rule per weekday.
type Recurrence struct {
	ID     string         `json:"id"`
	TaskID int64          `json:"task_id"`
	Start  civil.Date     `json:"start"`
	End    *civil.Date    `json:"end,omitempty"`
	Type   RecurrenceType `json:"type" validate:"required,oneof=day week day_of_month week_of_month year"`
	Step   int            `json:"step" validate:"gte=1"`
}
