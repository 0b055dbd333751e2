package selector

import (
	"cmp"

	"cloud.google.com/go/civil"

	"github.com/nhle/nexttask/internal/model"
)

// Compare orders tasks by priority, best first:
//
//  1. scheduled date
//  2. scheduled time
//  3. recurring before one-off
//  4. deadline date
//  5. deadline time
//  6. creation time
//  7. id
//
// Unset dates and times sort after set ones. Since ids are unique the
// order is total. It matches the ORDER BY of the store's candidate query.
func Compare(a, b model.Task) int {
	if c := compareDates(a.Scheduled.Date, b.Scheduled.Date); c != 0 {
		return c
	}
	if c := compareTimes(a.Scheduled.Time, b.Scheduled.Time); c != 0 {
		return c
	}
	if a.Recurring != b.Recurring {
		if a.Recurring {
			return -1
		}
		return 1
	}
	if c := compareDates(a.Deadline.Date, b.Deadline.Date); c != 0 {
		return c
	}
	if c := compareTimes(a.Deadline.Time, b.Deadline.Time); c != 0 {
		return c
	}
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

func compareDates(a, b *civil.Date) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case a.Before(*b):
		return -1
	case a.After(*b):
		return 1
	}
	return 0
}

func compareTimes(a, b *civil.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return cmp.Compare(secondOfDay(*a), secondOfDay(*b))
}

// secondOfDay drops sub-second precision, which the store does not keep.
func secondOfDay(t civil.Time) int {
	return t.Hour*3600 + t.Minute*60 + t.Second
}
