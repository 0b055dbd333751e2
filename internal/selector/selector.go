// Package selector picks the single task the user should work on now.
package selector

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"cloud.google.com/go/civil"

	"github.com/nhle/nexttask/internal/model"
	"github.com/nhle/nexttask/internal/recurrence"
	"github.com/nhle/nexttask/internal/store"
)

// ErrNoCurrentTask is returned when no task is eligible.
var ErrNoCurrentTask = errors.New("no current task")

// Source is the read side of the store the selector depends on.
type Source interface {
	ListCandidates(ctx context.Context, q store.CandidateQuery) ([]model.Task, error)
	ListRecurrences(ctx context.Context) ([]model.Recurrence, error)
}

// Cutoffs is "now" decomposed into the values candidate filtering needs.
type Cutoffs struct {
	// Today is the calendar day the current day began on.
	Today civil.Date
	// Now is the wall clock.
	Now civil.DateTime
	// DayStart is the time of day at which every day begins.
	DayStart civil.Time
	// DoneBefore is the instant the current day began.
	DoneBefore time.Time
}

// CutoffsAt decomposes now. A day begins at dayStart local time, so with a
// 04:00 day start, 02:30 still belongs to the previous day.
func CutoffsAt(now time.Time, dayStart civil.Time) Cutoffs {
	startToday := civil.DateTime{Date: civil.DateOf(now), Time: dayStart}.In(now.Location())
	if now.Before(startToday) {
		startToday = civil.DateTime{Date: civil.DateOf(now).AddDays(-1), Time: dayStart}.In(now.Location())
	}
	return Cutoffs{
		Today:      civil.DateOf(startToday),
		Now:        civil.DateTimeOf(now),
		DayStart:   dayStart,
		DoneBefore: startToday,
	}
}

// Query converts the cutoffs to a store candidate query.
func (c Cutoffs) Query() store.CandidateQuery {
	return store.CandidateQuery{
		Today:      c.Today,
		Now:        c.Now,
		DayStart:   c.DayStart,
		DoneBefore: c.DoneBefore,
	}
}

// Selector computes the current task from scratch on every call. It keeps
// no state between calls.
type Selector struct {
	source   Source
	dayStart civil.Time
}

// New returns a Selector reading from source. dayStart is the local time
// of day at which a new occurrence window begins.
func New(source Source, dayStart civil.Time) *Selector {
	return &Selector{source: source, dayStart: dayStart}
}

// Current returns the highest-priority eligible task at now. Recurring
// candidates only qualify on days their rules fire. Store errors are
// returned unchanged apart from wrapping; ErrNoCurrentTask signals an
// empty result.
func (s *Selector) Current(ctx context.Context, now time.Time) (*model.Task, error) {
	ranked, err := s.Ranked(ctx, now)
	if err != nil {
		return nil, err
	}
	if len(ranked) == 0 {
		return nil, ErrNoCurrentTask
	}
	return &ranked[0], nil
}

// Ranked returns every eligible task at now, best first. Recurring tasks
// that do not fire today are dormant: they are skipped and do not hold back
// their parents.
func (s *Selector) Ranked(ctx context.Context, now time.Time) ([]model.Task, error) {
	cut := CutoffsAt(now, s.dayStart)

	dormant, err := s.dormant(ctx, cut.Today)
	if err != nil {
		return nil, err
	}
	q := cut.Query()
	q.Dormant = dormant

	candidates, err := s.source.ListCandidates(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("listing candidates: %w", err)
	}
	slices.SortStableFunc(candidates, Compare)
	return candidates, nil
}

// dormant returns the ids of recurring tasks with no occurrence on date.
func (s *Selector) dormant(ctx context.Context, date civil.Date) ([]int64, error) {
	stored, err := s.source.ListRecurrences(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading recurrences: %w", err)
	}

	byTask := make(map[int64][]model.Recurrence)
	for _, r := range stored {
		byTask[r.TaskID] = append(byTask[r.TaskID], r)
	}

	var ids []int64
	for id, rs := range byTask {
		rules, err := recurrence.FromModels(rs)
		if err != nil {
			return nil, fmt.Errorf("task %d: %w", id, err)
		}
		if !recurrence.OccursOn(rules, date) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}
