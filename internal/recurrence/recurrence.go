// Package recurrence decides whether recurring task rules fire on a given
// calendar date.
//
// A rule is one of five closed families. Each family is its own type so that
// a switch over Rule is exhaustive and every predicate can be tested alone.
// All functions are pure: they never read the wall clock.
package recurrence

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"

	"github.com/nhle/nexttask/internal/model"
)

// Span holds the bounds and step shared by every rule family. End is
// inclusive; a nil End means the rule never expires. Step is at least 1.
type Span struct {
	Start civil.Date
	End   *civil.Date
	Step  int
}

// Contains reports whether date lies within the inclusive bounds.
func (s Span) Contains(date civil.Date) bool {
	if date.Before(s.Start) {
		return false
	}
	return s.End == nil || !date.After(*s.End)
}

// Rule is a single recurrence rule. The set of implementations is closed.
type Rule interface {
	Bounds() Span
	matches(date civil.Date) bool
}

// Daily fires every Step days from Start.
type Daily struct{ Span }

// Weekly fires every Step weeks on Start's weekday.
type Weekly struct{ Span }

// MonthlyByDay fires every Step months on Start's day of month. A rule
// started on the last day of a month sticks to month ends.
type MonthlyByDay struct{ Span }

// MonthlyByWeek fires every Step months on the same weekday of the same
// week-of-month bucket (days 1-7, 8-14, ...) as Start.
type MonthlyByWeek struct{ Span }

// Yearly fires every Step years on Start's month and day. A Feb 29 start
// falls back to Feb 28 in common years.
type Yearly struct{ Span }

func (r Daily) Bounds() Span         { return r.Span }
func (r Weekly) Bounds() Span        { return r.Span }
func (r MonthlyByDay) Bounds() Span  { return r.Span }
func (r MonthlyByWeek) Bounds() Span { return r.Span }
func (r Yearly) Bounds() Span        { return r.Span }

func (r Daily) matches(date civil.Date) bool {
	return date.DaysSince(r.Start)%r.Step == 0
}

func (r Weekly) matches(date civil.Date) bool {
	days := date.DaysSince(r.Start)
	return (days/7)%r.Step == 0 && weekday(date) == weekday(r.Start)
}

func (r MonthlyByDay) matches(date civil.Date) bool {
	if monthsBetween(r.Start, date)%r.Step != 0 {
		return false
	}
	if date.Day == r.Start.Day {
		return true
	}
	return r.Start.Day == daysIn(r.Start.Year, r.Start.Month) &&
		date.Day == daysIn(date.Year, date.Month) &&
		r.Start.Day > date.Day
}

func (r MonthlyByWeek) matches(date civil.Date) bool {
	if yearMonthDistance(r.Start, date)%r.Step != 0 {
		return false
	}
	return weekday(date) == weekday(r.Start) &&
		weekOfMonth(date) == weekOfMonth(r.Start)
}

func (r Yearly) matches(date civil.Date) bool {
	if (monthsBetween(r.Start, date)/12)%r.Step != 0 {
		return false
	}
	if date.Month != r.Start.Month {
		return false
	}
	if date.Day == r.Start.Day {
		return true
	}
	return r.Start.Month == time.February && r.Start.Day == 29 &&
		date.Day == 28 && !isLeap(date.Year)
}

// Fires reports whether a single rule fires on date. Bounds are checked
// before the family predicate.
func Fires(r Rule, date civil.Date) bool {
	if !r.Bounds().Contains(date) {
		return false
	}
	return r.matches(date)
}

// OccursOn reports whether at least one rule fires on date.
func OccursOn(rules []Rule, date civil.Date) bool {
	for _, r := range rules {
		if Fires(r, date) {
			return true
		}
	}
	return false
}

// Next returns the first date strictly after from on which any rule fires,
// scanning at most horizon days ahead.
func Next(rules []Rule, from civil.Date, horizon int) (civil.Date, bool) {
	for i := 1; i <= horizon; i++ {
		d := from.AddDays(i)
		if OccursOn(rules, d) {
			return d, true
		}
	}
	return civil.Date{}, false
}

// Previous returns the last date on or before from on which any rule fires,
// scanning at most horizon days back.
func Previous(rules []Rule, from civil.Date, horizon int) (civil.Date, bool) {
	for i := 0; i <= horizon; i++ {
		d := from.AddDays(-i)
		if OccursOn(rules, d) {
			return d, true
		}
	}
	return civil.Date{}, false
}

// FromModel converts a stored rule into its family type.
func FromModel(r model.Recurrence) (Rule, error) {
	span := Span{Start: r.Start, End: r.End, Step: r.Step}
	switch r.Type {
	case model.RecurrenceDay:
		return Daily{span}, nil
	case model.RecurrenceWeek:
		return Weekly{span}, nil
	case model.RecurrenceDayOfMonth:
		return MonthlyByDay{span}, nil
	case model.RecurrenceWeekOfMonth:
		return MonthlyByWeek{span}, nil
	case model.RecurrenceYear:
		return Yearly{span}, nil
	}
	return nil, fmt.Errorf("recurrence %s: unknown type %q", r.ID, r.Type)
}

// FromModels converts every stored rule of a task.
func FromModels(rs []model.Recurrence) ([]Rule, error) {
	rules := make([]Rule, 0, len(rs))
	for _, r := range rs {
		rule, err := FromModel(r)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func weekday(d civil.Date) time.Weekday {
	return d.In(time.UTC).Weekday()
}

// monthsBetween counts whole months from a to b. A month only counts once
// b's day of month has reached a's, so Jan 31 to Feb 29 is zero months.
func monthsBetween(a, b civil.Date) int {
	packed1 := (a.Year*12+int(a.Month)-1)*32 + a.Day
	packed2 := (b.Year*12+int(b.Month)-1)*32 + b.Day
	return (packed2 - packed1) / 32
}

// yearMonthDistance counts month boundaries between the months of a and b,
// ignoring the day of month.
func yearMonthDistance(a, b civil.Date) int {
	return (b.Year-a.Year)*12 + int(b.Month) - int(a.Month)
}

func weekOfMonth(d civil.Date) int {
	return (d.Day-1)/7 + 1
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func isLeap(year int) bool {
	return daysIn(year, time.February) == 29
}
