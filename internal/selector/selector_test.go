package selector_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/nexttask/internal/model"
	"github.com/nhle/nexttask/internal/selector"
	"github.com/nhle/nexttask/internal/store"
	"github.com/nhle/nexttask/tests/testutil"
)

var midnight = civil.Time{}

func TestCutoffsAt(t *testing.T) {
	now := time.Date(2024, 1, 2, 2, 30, 0, 0, time.UTC)

	cut := selector.CutoffsAt(now, midnight)
	assert.Equal(t, civil.Date{Year: 2024, Month: 1, Day: 2}, cut.Today)
	assert.Equal(t, civil.DateTime{Date: civil.Date{Year: 2024, Month: 1, Day: 2}, Time: civil.Time{Hour: 2, Minute: 30}}, cut.Now)
	assert.True(t, cut.DoneBefore.Equal(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)))

	cut = selector.CutoffsAt(now, civil.Time{Hour: 4})
	assert.Equal(t, civil.Date{Year: 2024, Month: 1, Day: 1}, cut.Today)
	assert.True(t, cut.DoneBefore.Equal(time.Date(2024, 1, 1, 4, 0, 0, 0, time.UTC)))

	assert.Equal(t, civil.Time{Hour: 2, Minute: 30}, cut.Now.Time)

	q := cut.Query()
	assert.Equal(t, cut.Today, q.Today)
	assert.Equal(t, cut.Now, q.Now)
	assert.Equal(t, civil.Time{Hour: 4}, q.DayStart)
	assert.Empty(t, q.Dormant)
	assert.Zero(t, q.Limit)
}

func TestCompare(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	base := func(id int64) model.Task {
		return model.Task{ID: id, Name: "t", CreatedAt: created}
	}

	scheduled := base(1)
	scheduled.Scheduled.Date = testutil.Date(2024, 1, 3)
	scheduledTimed := base(2)
	scheduledTimed.Scheduled = model.Slot{Date: testutil.Date(2024, 1, 3), Time: testutil.Time(9, 0)}
	recurring := base(3)
	recurring.Recurring = true
	deadline := base(4)
	deadline.Deadline.Date = testutil.Date(2024, 1, 2)
	older := base(5)
	older.CreatedAt = created.Add(-time.Hour)
	plain := base(6)

	ordered := []model.Task{scheduledTimed, scheduled, recurring, deadline, older, plain}
	for i := range ordered {
		for j := range ordered {
			got := selector.Compare(ordered[i], ordered[j])
			switch {
			case i < j:
				assert.Negative(t, got, "task %d should rank before task %d", ordered[i].ID, ordered[j].ID)
			case i > j:
				assert.Positive(t, got, "task %d should rank after task %d", ordered[i].ID, ordered[j].ID)
			default:
				assert.Zero(t, got)
			}
		}
	}
}

func TestCurrent_FollowsPriorityAsTasksComplete(t *testing.T) {
	clock := testutil.NewClock(time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC))
	s := testutil.NewTestStore(t, store.WithClock(clock.Now))
	ctx := context.Background()
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

	// C is created first but has nothing pinning it down.
	c := testutil.MustCreate(t, s, named("C"), nil)
	a := testutil.MustCreate(t, s, model.TaskInput{
		Name:      "A",
		Scheduled: model.Slot{Date: testutil.Date(2024, 1, 10)},
	}, nil)
	b := testutil.MustCreate(t, s, model.TaskInput{
		Name:     "B",
		Deadline: model.Slot{Date: testutil.Date(2024, 1, 5)},
	}, nil)

	sel := selector.New(s, midnight)

	for _, want := range []*model.Task{a, b, c} {
		got, err := sel.Current(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, want.ID, got.ID, "expected %s", want.Name)
		_, err = s.AddCompletion(ctx, got.ID, now, false)
		require.NoError(t, err)
	}

	_, err := sel.Current(ctx, now)
	assert.ErrorIs(t, err, selector.ErrNoCurrentTask)
}

func TestCurrent_PrefersLeaf(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	root := testutil.MustCreate(t, s, model.TaskInput{
		Name:     "root",
		Deadline: model.Slot{Date: testutil.Date(2024, 1, 1)},
	}, nil)
	child := testutil.MustCreate(t, s, named("child"), testutil.ID(root.ID))

	got, err := selector.New(s, midnight).Current(ctx, time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, child.ID, got.ID)
}

func TestCurrent_RecurringOnlyOnFiringDays(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	// 2024-01-01 is a Monday.
	weekly := testutil.MustCreate(t, s, model.TaskInput{
		Name: "weekly review",
		Recurrences: []model.Recurrence{
			{Start: civil.Date{Year: 2024, Month: 1, Day: 1}, Type: model.RecurrenceWeek, Step: 1},
		},
	}, nil)
	chore := testutil.MustCreate(t, s, named("chore"), nil)
	sel := selector.New(s, midnight)

	monday := time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)
	got, err := sel.Current(ctx, monday)
	require.NoError(t, err)
	assert.Equal(t, weekly.ID, got.ID)

	tuesday := monday.AddDate(0, 0, 1)
	got, err = sel.Current(ctx, tuesday)
	require.NoError(t, err)
	assert.Equal(t, chore.ID, got.ID)

	// Done this Monday; due again the next one.
	_, err = s.AddCompletion(ctx, weekly.ID, monday, false)
	require.NoError(t, err)
	got, err = sel.Current(ctx, monday.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, chore.ID, got.ID)

	got, err = sel.Current(ctx, monday.AddDate(0, 0, 7))
	require.NoError(t, err)
	assert.Equal(t, weekly.ID, got.ID)
}

func TestCurrent_DayStartShiftsOccurrenceWindow(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	daily := testutil.MustCreate(t, s, model.TaskInput{
		Name: "journal",
		Recurrences: []model.Recurrence{
			{Start: civil.Date{Year: 2024, Month: 1, Day: 1}, Type: model.RecurrenceDay, Step: 1},
		},
	}, nil)
	sel := selector.New(s, civil.Time{Hour: 4})

	// Completed late in the evening of Jan 1.
	_, err := s.AddCompletion(ctx, daily.ID, time.Date(2024, 1, 1, 23, 0, 0, 0, time.UTC), false)
	require.NoError(t, err)

	// At 02:00 on Jan 2 it is still Jan 1's window.
	_, err = sel.Current(ctx, time.Date(2024, 1, 2, 2, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, selector.ErrNoCurrentTask)

	got, err := sel.Current(ctx, time.Date(2024, 1, 2, 4, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, daily.ID, got.ID)
}

func TestCurrent_DayStartKeepsScheduledTasksOvernight(t *testing.T) {
	clock := testutil.NewClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	s := testutil.NewTestStore(t, store.WithClock(clock.Now))
	ctx := context.Background()

	lateEvening := testutil.MustCreate(t, s, model.TaskInput{
		Name:      "late evening",
		Scheduled: model.Slot{Date: testutil.Date(2024, 1, 10), Time: testutil.Time(23, 0)},
	}, nil)
	afterMidnight := testutil.MustCreate(t, s, model.TaskInput{
		Name:      "after midnight",
		Scheduled: model.Slot{Date: testutil.Date(2024, 1, 11), Time: testutil.Time(1, 0)},
	}, nil)
	beforeDawn := testutil.MustCreate(t, s, model.TaskInput{
		Name:      "before dawn",
		Scheduled: model.Slot{Time: testutil.Time(3, 0)},
		Recurrences: []model.Recurrence{
			{Start: civil.Date{Year: 2024, Month: 1, Day: 1}, Type: model.RecurrenceDay, Step: 1},
		},
	}, nil)
	sel := selector.New(s, civil.Time{Hour: 4})

	// 02:30 on Jan 11 still belongs to Jan 10.
	now := time.Date(2024, 1, 11, 2, 30, 0, 0, time.UTC)
	ranked, err := sel.Ranked(ctx, now)
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	assert.Equal(t, []int64{lateEvening.ID, afterMidnight.ID}, []int64{ranked[0].ID, ranked[1].ID})

	for _, task := range ranked {
		_, err := s.AddCompletion(ctx, task.ID, now, false)
		require.NoError(t, err)
	}

	// The 03:00 occurrence of Jan 10's day has not come yet.
	_, err = sel.Current(ctx, now)
	assert.ErrorIs(t, err, selector.ErrNoCurrentTask)

	got, err := sel.Current(ctx, time.Date(2024, 1, 11, 3, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, beforeDawn.ID, got.ID)

	// Once Jan 11 begins at 04:00, 03:00 is the end of the day again.
	_, err = s.AddCompletion(ctx, beforeDawn.ID, time.Date(2024, 1, 11, 3, 0, 0, 0, time.UTC), false)
	require.NoError(t, err)
	_, err = sel.Current(ctx, time.Date(2024, 1, 11, 12, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, selector.ErrNoCurrentTask)
}

func TestCurrent_RecurringChildOffDayDoesNotBlockParent(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	project := testutil.MustCreate(t, s, named("project"), nil)
	ended := civil.Date{Year: 2024, Month: 1, Day: 5}
	standup := testutil.MustCreate(t, s, model.TaskInput{
		Name: "standup",
		Recurrences: []model.Recurrence{
			{Start: civil.Date{Year: 2024, Month: 1, Day: 1}, End: &ended, Type: model.RecurrenceDay, Step: 1},
		},
	}, testutil.ID(project.ID))
	sel := selector.New(s, midnight)

	got, err := sel.Current(ctx, time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, standup.ID, got.ID)

	// The rule has ended, so the project is open work again.
	got, err = sel.Current(ctx, time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, project.ID, got.ID)
}

// fakeSource serves canned candidates and recurrences.
type fakeSource struct {
	candidates  []model.Task
	recurrences []model.Recurrence
	err         error
	recErr      error

	lastQuery store.CandidateQuery
}

func (f *fakeSource) ListCandidates(_ context.Context, q store.CandidateQuery) ([]model.Task, error) {
	f.lastQuery = q
	return f.candidates, f.err
}

func (f *fakeSource) ListRecurrences(context.Context) ([]model.Recurrence, error) {
	return f.recurrences, f.recErr
}

func TestRanked_NamesDormantTasks(t *testing.T) {
	monday := civil.Date{Year: 2024, Month: 1, Day: 1}
	src := &fakeSource{recurrences: []model.Recurrence{
		{TaskID: 4, Start: monday, Type: model.RecurrenceWeek, Step: 1},
		{TaskID: 2, Start: monday, Type: model.RecurrenceDay, Step: 1},
		{TaskID: 9, Start: monday.AddDays(1), Type: model.RecurrenceWeek, Step: 1},
		{TaskID: 9, Start: monday.AddDays(2), Type: model.RecurrenceWeek, Step: 1},
	}}

	// 2024-01-09 is a Tuesday.
	_, err := selector.New(src, midnight).Ranked(context.Background(), time.Date(2024, 1, 9, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, []int64{4}, src.lastQuery.Dormant)
}

func TestRanked_ResortsCandidates(t *testing.T) {
	src := &fakeSource{candidates: []model.Task{
		{ID: 3},
		{ID: 1, Deadline: model.Slot{Date: testutil.Date(2024, 1, 1)}},
		{ID: 2},
	}}

	got, err := selector.New(src, midnight).Ranked(context.Background(), time.Now())
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []int64{1, 2, 3}, []int64{got[0].ID, got[1].ID, got[2].ID})
}

func TestCurrent_PropagatesSourceErrors(t *testing.T) {
	boom := errors.New("disk on fire")
	ctx := context.Background()

	_, err := selector.New(&fakeSource{err: boom}, midnight).Current(ctx, time.Now())
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, selector.ErrNoCurrentTask)

	src := &fakeSource{
		candidates: []model.Task{{ID: 1, Recurring: true}},
		recErr:     boom,
	}
	_, err = selector.New(src, midnight).Current(ctx, time.Now())
	assert.ErrorIs(t, err, boom)
}

func named(name string) model.TaskInput {
	return model.TaskInput{Name: name}
}
