package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"k8s.io/utils/clock"
)

const maxSleepCap = 60 * time.Second

// MinPeriod is the recurrence period given to an EnterAbsolute event whose
// due time has already passed.
const MinPeriod = time.Second

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the real clock.
func WithClock(c clock.Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithLogger sets the logger used for action failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// Scheduler is a recurring event queue. Enter, EnterAbsolute, Every and
// Cancel are safe to call from any goroutine; actions run one at a time on
// the goroutine calling Run (or RunDue).
type Scheduler struct {
	clock  clock.Clock
	logger *slog.Logger

	mu     sync.Mutex
	queue  eventHeap
	events map[EventID]*event
	lastID EventID
	seq    uint64
	stats  Stats

	wake chan struct{}
}

// New creates an empty scheduler.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		clock:  clock.RealClock{},
		logger: slog.New(slog.DiscardHandler),
		events: make(map[EventID]*event),
		wake:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enter schedules action to run delay from now, then every delay after each
// run. A zero or negative delay makes a one-shot event.
func (s *Scheduler) Enter(delay time.Duration, priority int, action Action) EventID {
	if delay < 0 {
		delay = 0
	}
	s.mu.Lock()
	now := s.clock.Now()
	id := s.pushLocked(now.Add(delay), delay, priority, action)
	s.mu.Unlock()
	s.notify()
	return id
}

// EnterAbsolute schedules action at due. The recurrence period is the
// distance from now to due. A due time that is not in the future fires on
// the next pass and then recurs every MinPeriod.
func (s *Scheduler) EnterAbsolute(due time.Time, priority int, action Action) EventID {
	s.mu.Lock()
	delay := due.Sub(s.clock.Now())
	if delay <= 0 {
		delay = MinPeriod
	}
	id := s.pushLocked(due, delay, priority, action)
	s.mu.Unlock()
	s.notify()
	return id
}

// Every is Enter for recurring work. It rejects intervals that would make
// the event one-shot.
func (s *Scheduler) Every(interval time.Duration, priority int, action Action) (EventID, error) {
	if interval <= 0 {
		return 0, fmt.Errorf("%w: %s", ErrNonPositiveInterval, interval)
	}
	return s.Enter(interval, priority, action), nil
}

// Cancel removes the event. An event that is executing right now finishes
// but is not re-armed. Cancel reports whether the ID was live.
func (s *Scheduler) Cancel(id EventID) bool {
	s.mu.Lock()
	e, ok := s.events[id]
	if ok {
		e.cancelled = true
		delete(s.events, id)
		heapRemove(&s.queue, e)
	}
	s.mu.Unlock()
	if ok {
		s.notify()
	}
	return ok
}

// Len returns the number of live events, including one that is executing.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// Next returns the due time of the earliest pending event.
func (s *Scheduler) Next() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.queue.peek()
	if !ok {
		return time.Time{}, false
	}
	return e.due, true
}

// Stats returns a snapshot of the scheduler counters.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stats
	st.Pending = s.queue.Len()
	return st
}

// RunDue fires every event that is due at the current clock reading, in
// queue order, and returns how many fired. Events re-armed during the pass
// are due strictly later and wait for the next pass. A halting action stops
// the pass and its error is returned.
func (s *Scheduler) RunDue() (int, error) {
	now := s.clock.Now()
	fired := 0
	for {
		s.mu.Lock()
		e, ok := s.queue.peek()
		if !ok || e.due.After(now) {
			s.mu.Unlock()
			return fired, nil
		}
		heapPop(&s.queue)
		s.mu.Unlock()

		fired++
		if err := s.fire(e); err != nil {
			return fired, err
		}
	}
}

// Run drives the queue until ctx is cancelled or an action halts. It returns
// nil on cancellation and the *HaltError otherwise.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		s.mu.Lock()
		head, ok := s.queue.peek()
		var (
			id  EventID
			due time.Time
		)
		if ok {
			id, due = head.id, head.due
		}
		s.mu.Unlock()

		var timerC <-chan time.Time
		var timer clock.Timer
		if ok {
			wait := due.Sub(s.clock.Now())
			if wait <= 0 {
				if err := s.fireHead(id); err != nil {
					return err
				}
				continue
			}
			if wait > maxSleepCap {
				wait = maxSleepCap
			}
			timer = s.clock.NewTimer(wait)
			timerC = timer.C()
		}

		select {
		case <-ctx.Done():
		case <-s.wake:
		case <-timerC:
		}
		if timer != nil {
			timer.Stop()
		}
	}
}

// fireHead pops and fires the head of the queue, but only if it is still
// the event the caller peeked and it is due. If another goroutine changed
// the queue in between, nothing happens and the caller peeks again.
func (s *Scheduler) fireHead(id EventID) error {
	s.mu.Lock()
	e, ok := s.queue.peek()
	if !ok || e.id != id || e.due.After(s.clock.Now()) {
		s.mu.Unlock()
		return nil
	}
	heapPop(&s.queue)
	s.mu.Unlock()

	return s.fire(e)
}

// fire executes a popped event and re-arms it relative to the moment it
// started, so a slow action does not push back its own next run.
func (s *Scheduler) fire(e *event) error {
	firedAt := s.clock.Now()
	err := s.execute(e)
	s.rearm(e, firedAt)

	var halt *HaltError
	if errors.As(err, &halt) {
		return halt
	}
	return nil
}

// execute runs the action, absorbing panics and plain errors.
func (s *Scheduler) execute(e *event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.mu.Lock()
			s.stats.Fired++
			s.stats.Panics++
			s.mu.Unlock()
			s.logger.Error("scheduled action panicked", "event", e.id, "panic", r)
			err = nil
		}
	}()

	err = e.action()

	s.mu.Lock()
	s.stats.Fired++
	if err != nil {
		s.stats.Failures++
	}
	s.mu.Unlock()

	if err != nil {
		var halt *HaltError
		if !errors.As(err, &halt) {
			s.logger.Warn("scheduled action failed", "event", e.id, "error", err)
		}
	}
	return err
}

// rearm puts a fired event back for firedAt + delay. Cancelled and
// one-shot events are dropped instead.
func (s *Scheduler) rearm(e *event, firedAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.cancelled || e.delay <= 0 {
		delete(s.events, e.id)
		return
	}
	e.due = firedAt.Add(e.delay)
	s.seq++
	e.seq = s.seq
	heapPush(&s.queue, e)
}

// pushLocked creates and queues a new event. Caller must hold s.mu.
func (s *Scheduler) pushLocked(due time.Time, delay time.Duration, priority int, action Action) EventID {
	s.lastID++
	s.seq++
	e := &event{
		id:       s.lastID,
		due:      due,
		delay:    delay,
		priority: priority,
		seq:      s.seq,
		action:   action,
		index:    -1,
	}
	s.events[e.id] = e
	heapPush(&s.queue, e)
	return e.id
}

// notify wakes Run so it re-reads the head of the queue.
func (s *Scheduler) notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}
