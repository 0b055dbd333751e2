package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/civil"

	"github.com/nhle/nexttask/internal/model"
	"github.com/nhle/nexttask/internal/store"
)

// NewTestStore creates an in-memory SQLiteStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T, opts ...store.Option) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:", opts...)
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// Clock is a manually advanced clock for store.WithClock.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock stopped at start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now returns the current reading and advances the clock by one second, so
// consecutive creations get distinct, increasing timestamps.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(time.Second)
	return t
}

// Set moves the clock to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// MustCreate inserts a task and fails the test on error.
func MustCreate(t *testing.T, s store.Store, in model.TaskInput, parentID *int64) *model.Task {
	t.Helper()

	task, err := s.CreateTask(context.Background(), in, parentID)
	if err != nil {
		t.Fatalf("creating task %q: %v", in.Name, err)
	}
	return task
}

// Date returns a pointer to the given civil date.
func Date(year int, month time.Month, day int) *civil.Date {
	return &civil.Date{Year: year, Month: month, Day: day}
}

// Time returns a pointer to the given time of day.
func Time(hour, minute int) *civil.Time {
	return &civil.Time{Hour: hour, Minute: minute}
}

// ID returns a pointer to id, for optional parent arguments.
func ID(id int64) *int64 {
	return &id
}
