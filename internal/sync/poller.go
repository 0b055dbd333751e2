// Package sync periodically recomputes the current task and reports when
// it changes.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	gosync "sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/nhle/nexttask/internal/model"
	"github.com/nhle/nexttask/internal/selector"
)

// PollState represents the state of the last recomputation.
type PollState int

const (
	PollIdle PollState = iota
	PollRunning
	PollError
)

// PollStatus holds what the poller last observed.
type PollStatus struct {
	State    PollState
	LastPoll time.Time
	Error    error
}

// ChangeMsg is sent when the current task differs from the previous poll.
// Task is nil when nothing is eligible any more.
type ChangeMsg struct {
	Task *model.Task
	At   time.Time
}

// CurrentFunc computes the current task at now.
type CurrentFunc func(ctx context.Context, now time.Time) (*model.Task, error)

// pollTimeout is the maximum time allowed for a single recomputation.
const pollTimeout = 30 * time.Second

// Poller recomputes the current task on a cron schedule.
type Poller struct {
	current CurrentFunc
	cron    *cron.Cron
	now     func() time.Time
	logger  *slog.Logger

	resultCh chan ChangeMsg

	mu      gosync.Mutex
	status  PollStatus
	lastID  int64
	polled  bool
	running bool
}

// New creates a Poller that calls current on every tick of spec, a
// robfig/cron expression such as "@every 1m" or "*/5 * * * *".
func New(current CurrentFunc, spec string, logger *slog.Logger) (*Poller, error) {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Poller{
		current:  current,
		cron:     cron.New(),
		now:      time.Now,
		logger:   logger,
		resultCh: make(chan ChangeMsg, 16),
	}
	if _, err := p.cron.AddFunc(spec, p.Poll); err != nil {
		return nil, fmt.Errorf("parsing watch schedule %q: %w", spec, err)
	}
	return p, nil
}

// Changes returns the channel on which current-task changes are delivered.
func (p *Poller) Changes() <-chan ChangeMsg {
	return p.resultCh
}

// Start polls once immediately and then on every scheduled tick.
func (p *Poller) Start() {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.mu.Unlock()

	p.Poll()
	p.cron.Start()
}

// Stop halts the schedule and waits for a running poll to finish.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.mu.Unlock()

	<-p.cron.Stop().Done()
}

// Status returns what the last poll observed.
func (p *Poller) Status() PollStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Poll recomputes the current task once and sends a ChangeMsg if it differs
// from the previous result.
func (p *Poller) Poll() {
	at := p.now()
	p.setStatus(PollRunning, at, nil)

	ctx, cancel := context.WithTimeout(context.Background(), pollTimeout)
	defer cancel()

	task, err := p.current(ctx, at)
	if errors.Is(err, selector.ErrNoCurrentTask) {
		task, err = nil, nil
	}
	if err != nil {
		p.logger.Error("recomputing current task failed", "error", err)
		p.setStatus(PollError, at, err)
		return
	}
	p.setStatus(PollIdle, at, nil)

	var id int64
	if task != nil {
		id = task.ID
	}

	p.mu.Lock()
	changed := !p.polled || id != p.lastID
	p.polled = true
	p.lastID = id
	p.mu.Unlock()

	if changed {
		p.logger.Debug("current task changed", "task_id", id)
		p.sendResult(ChangeMsg{Task: task, At: at})
	}
}

func (p *Poller) setStatus(state PollState, at time.Time, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = PollStatus{State: state, LastPoll: at, Error: err}
}

// sendResult delivers msg without blocking; a full channel drops it.
func (p *Poller) sendResult(msg ChangeMsg) {
	select {
	case p.resultCh <- msg:
	default:
		p.logger.Warn("dropping current task change, receiver is behind")
	}
}
