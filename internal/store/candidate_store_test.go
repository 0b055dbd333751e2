package store_test

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/nexttask/internal/model"
	"github.com/nhle/nexttask/internal/store"
	"github.com/nhle/nexttask/tests/testutil"
)

func candidateIDs(t *testing.T, s *store.SQLiteStore, q store.CandidateQuery) []int64 {
	t.Helper()
	tasks, err := s.ListCandidates(context.Background(), q)
	require.NoError(t, err)
	ids := make([]int64, 0, len(tasks))
	for _, task := range tasks {
		ids = append(ids, task.ID)
	}
	return ids
}

func queryAt(date civil.Date, hour, minute int) store.CandidateQuery {
	return store.CandidateQuery{
		Today:      date,
		Now:        civil.DateTime{Date: date, Time: civil.Time{Hour: hour, Minute: minute}},
		DoneBefore: civil.DateTime{Date: date}.In(time.UTC),
	}
}

func TestListCandidates_PriorityOrder(t *testing.T) {
	clock := testutil.NewClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	s := testutil.NewTestStore(t, store.WithClock(clock.Now))

	plain := testutil.MustCreate(t, s, named("plain"), nil).ID
	lateDeadline := testutil.MustCreate(t, s, model.TaskInput{
		Name:     "late deadline",
		Deadline: model.Slot{Date: testutil.Date(2024, 2, 1)},
	}, nil).ID
	earlyDeadline := testutil.MustCreate(t, s, model.TaskInput{
		Name:     "early deadline",
		Deadline: model.Slot{Date: testutil.Date(2024, 1, 5), Time: testutil.Time(9, 0)},
	}, nil).ID
	dayOnlyDeadline := testutil.MustCreate(t, s, model.TaskInput{
		Name:     "deadline without time",
		Deadline: model.Slot{Date: testutil.Date(2024, 1, 5)},
	}, nil).ID
	scheduled := testutil.MustCreate(t, s, model.TaskInput{
		Name:      "scheduled",
		Scheduled: model.Slot{Date: testutil.Date(2024, 1, 10)},
	}, nil).ID
	scheduledEarlier := testutil.MustCreate(t, s, model.TaskInput{
		Name:      "scheduled earlier",
		Scheduled: model.Slot{Date: testutil.Date(2024, 1, 9), Time: testutil.Time(8, 0)},
	}, nil).ID
	plainLater := testutil.MustCreate(t, s, named("plain later"), nil).ID

	got := candidateIDs(t, s, queryAt(civil.Date{Year: 2024, Month: 1, Day: 10}, 12, 0))
	assert.Equal(t, []int64{
		scheduledEarlier, scheduled,
		earlyDeadline, dayOnlyDeadline, lateDeadline,
		plain, plainLater,
	}, got)

	limited := queryAt(civil.Date{Year: 2024, Month: 1, Day: 10}, 12, 0)
	limited.Limit = 2
	assert.Equal(t, []int64{scheduledEarlier, scheduled}, candidateIDs(t, s, limited))
}

func TestListCandidates_RecurringBeforeDeadline(t *testing.T) {
	s := testutil.NewTestStore(t)

	deadline := testutil.MustCreate(t, s, model.TaskInput{
		Name:     "deadline",
		Deadline: model.Slot{Date: testutil.Date(2024, 1, 2)},
	}, nil).ID
	daily := testutil.MustCreate(t, s, model.TaskInput{
		Name: "daily",
		Recurrences: []model.Recurrence{
			{Start: civil.Date{Year: 2024, Month: 1, Day: 1}, Type: model.RecurrenceDay, Step: 1},
		},
	}, nil).ID

	got := candidateIDs(t, s, queryAt(civil.Date{Year: 2024, Month: 1, Day: 1}, 9, 0))
	assert.Equal(t, []int64{daily, deadline}, got)
}

func TestListCandidates_ScheduleAndStartAfterCutoffs(t *testing.T) {
	s := testutil.NewTestStore(t)
	today := civil.Date{Year: 2024, Month: 6, Day: 15}

	tomorrow := testutil.MustCreate(t, s, model.TaskInput{
		Name:      "tomorrow",
		Scheduled: model.Slot{Date: testutil.Date(2024, 6, 16)},
	}, nil).ID
	afternoon := testutil.MustCreate(t, s, model.TaskInput{
		Name:      "this afternoon",
		Scheduled: model.Slot{Date: testutil.Date(2024, 6, 15), Time: testutil.Time(13, 0)},
	}, nil).ID
	yesterdayEvening := testutil.MustCreate(t, s, model.TaskInput{
		Name:      "yesterday evening",
		Scheduled: model.Slot{Date: testutil.Date(2024, 6, 14), Time: testutil.Time(18, 0)},
	}, nil).ID
	startsLater := testutil.MustCreate(t, s, model.TaskInput{
		Name:       "starts at three",
		StartAfter: model.Slot{Date: testutil.Date(2024, 6, 15), Time: testutil.Time(15, 0)},
	}, nil).ID
	startsNextWeek := testutil.MustCreate(t, s, model.TaskInput{
		Name:       "starts next week",
		StartAfter: model.Slot{Date: testutil.Date(2024, 6, 22)},
	}, nil).ID

	assert.Equal(t, []int64{yesterdayEvening}, candidateIDs(t, s, queryAt(today, 12, 0)))
	assert.Equal(t, []int64{yesterdayEvening, afternoon}, candidateIDs(t, s, queryAt(today, 13, 0)))
	assert.Equal(t, []int64{yesterdayEvening, afternoon, startsLater}, candidateIDs(t, s, queryAt(today, 15, 0)))

	next := civil.Date{Year: 2024, Month: 6, Day: 22}
	assert.Equal(t,
		[]int64{yesterdayEvening, afternoon, tomorrow, startsLater, startsNextWeek},
		candidateIDs(t, s, queryAt(next, 0, 0)))
}

func TestListCandidates_OnlyLeavesOfUndoneWork(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	today := civil.Date{Year: 2024, Month: 1, Day: 1}
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	root := testutil.MustCreate(t, s, named("root"), nil).ID
	child := testutil.MustCreate(t, s, named("child"), testutil.ID(root)).ID
	grandchild := testutil.MustCreate(t, s, named("grandchild"), testutil.ID(child)).ID

	assert.Equal(t, []int64{grandchild}, candidateIDs(t, s, queryAt(today, 12, 0)))

	_, err := s.AddCompletion(ctx, grandchild, now, false)
	require.NoError(t, err)
	assert.Equal(t, []int64{child}, candidateIDs(t, s, queryAt(today, 12, 0)))

	_, err = s.AddCompletion(ctx, child, now, false)
	require.NoError(t, err)
	assert.Equal(t, []int64{root}, candidateIDs(t, s, queryAt(today, 12, 0)))

	_, err = s.AddCompletion(ctx, root, now, false)
	require.NoError(t, err)
	assert.Empty(t, candidateIDs(t, s, queryAt(today, 12, 0)))
}

func TestListCandidates_RecurringDoneWindow(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	daily := testutil.MustCreate(t, s, model.TaskInput{
		Name: "stretch",
		Recurrences: []model.Recurrence{
			{Start: civil.Date{Year: 2024, Month: 1, Day: 1}, Type: model.RecurrenceDay, Step: 1},
		},
	}, nil).ID
	parent := testutil.MustCreate(t, s, named("parent"), nil).ID
	require.NoError(t, s.AttachUnderParent(ctx, parent, daily))

	day1 := civil.Date{Year: 2024, Month: 1, Day: 1}
	day2 := civil.Date{Year: 2024, Month: 1, Day: 2}

	_, err := s.AddCompletion(ctx, daily, time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC), false)
	require.NoError(t, err)

	// Done for today, so the parent is the only open work.
	assert.Equal(t, []int64{parent}, candidateIDs(t, s, queryAt(day1, 12, 0)))
	// The next day the occurrence window has moved on.
	assert.Equal(t, []int64{daily}, candidateIDs(t, s, queryAt(day2, 12, 0)))
}

func TestListCandidates_DayStartWindow(t *testing.T) {
	s := testutil.NewTestStore(t)
	daily := []model.Recurrence{
		{Start: civil.Date{Year: 2024, Month: 1, Day: 1}, Type: model.RecurrenceDay, Step: 1},
	}

	yesterdayLate := testutil.MustCreate(t, s, model.TaskInput{
		Name:      "yesterday late",
		Scheduled: model.Slot{Date: testutil.Date(2024, 3, 9), Time: testutil.Time(23, 30)},
	}, nil).ID
	earlyToday := testutil.MustCreate(t, s, model.TaskInput{
		Name:      "early today",
		Scheduled: model.Slot{Date: testutil.Date(2024, 3, 10), Time: testutil.Time(1, 0)},
	}, nil).ID
	laterToday := testutil.MustCreate(t, s, model.TaskInput{
		Name:      "later today",
		Scheduled: model.Slot{Date: testutil.Date(2024, 3, 10), Time: testutil.Time(5, 0)},
	}, nil).ID
	nightly := testutil.MustCreate(t, s, model.TaskInput{
		Name:        "nightly",
		Scheduled:   model.Slot{Time: testutil.Time(22, 0)},
		Recurrences: daily,
	}, nil).ID
	smallHours := testutil.MustCreate(t, s, model.TaskInput{
		Name:        "small hours",
		Scheduled:   model.Slot{Time: testutil.Time(2, 0)},
		Recurrences: daily,
	}, nil).ID

	// 03:00 on Mar 10 with days starting at 04:00: still Mar 9's day.
	q := store.CandidateQuery{
		Today:      civil.Date{Year: 2024, Month: 3, Day: 9},
		Now:        civil.DateTime{Date: civil.Date{Year: 2024, Month: 3, Day: 10}, Time: civil.Time{Hour: 3}},
		DayStart:   civil.Time{Hour: 4},
		DoneBefore: time.Date(2024, 3, 9, 4, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, []int64{yesterdayLate, earlyToday, smallHours, nightly}, candidateIDs(t, s, q))

	// 12:00 on Mar 10: the small-hours slot now closes the day.
	q.Today = civil.Date{Year: 2024, Month: 3, Day: 10}
	q.Now.Time = civil.Time{Hour: 12}
	q.DoneBefore = time.Date(2024, 3, 10, 4, 0, 0, 0, time.UTC)
	assert.Equal(t, []int64{yesterdayLate, earlyToday, laterToday}, candidateIDs(t, s, q))
}

func TestListCandidates_DormantTasksDoNotBlockParents(t *testing.T) {
	s := testutil.NewTestStore(t)
	today := civil.Date{Year: 2024, Month: 1, Day: 10}

	parent := testutil.MustCreate(t, s, named("parent"), nil).ID
	weekly := testutil.MustCreate(t, s, model.TaskInput{
		Name: "weekly",
		Recurrences: []model.Recurrence{
			{Start: civil.Date{Year: 2024, Month: 1, Day: 1}, Type: model.RecurrenceWeek, Step: 1},
		},
	}, testutil.ID(parent)).ID
	other := testutil.MustCreate(t, s, named("other"), nil).ID

	assert.Equal(t, []int64{weekly, other}, candidateIDs(t, s, queryAt(today, 9, 0)))

	q := queryAt(today, 9, 0)
	q.Dormant = []int64{weekly}
	assert.Equal(t, []int64{parent, other}, candidateIDs(t, s, q))

	q.Dormant = []int64{weekly, other}
	assert.Equal(t, []int64{parent}, candidateIDs(t, s, q))
}
