package scheduler

import (
	"container/heap"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrInvalidTriggerTime = errors.New("scheduler: invalid trigger time")
	ErrEngineStopped      = errors.New("scheduler: engine stopped")
)

// Reminder fires at TriggerAt for the occurrence of EventID starting at
// StartsAt. Key identifies the occurrence across refreshes.
type Reminder struct {
	Key       string
	EventID   string
	Title     string
	StartsAt  time.Time
	TriggerAt time.Time
}

func ReminderKey(eventID string, startsAt time.Time) string {
	return eventID + "@" + startsAt.UTC().Format(time.RFC3339)
}

type reminderQueue []Reminder

func (q reminderQueue) Len() int { return len(q) }

func (q reminderQueue) Less(i, j int) bool {
	if q[i].TriggerAt.Equal(q[j].TriggerAt) {
		return q[i].Key < q[j].Key
	}
	return q[i].TriggerAt.Before(q[j].TriggerAt)
}

func (q reminderQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *reminderQueue) Push(x any) { *q = append(*q, x.(Reminder)) }

func (q *reminderQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// Engine delivers reminders on C() in trigger order. A key is accepted once
// until it is forgotten, so repeated planning passes do not double-fire.
type Engine struct {
	mu      sync.Mutex
	queue   reminderQueue
	seen    map[string]time.Time
	out     chan Reminder
	wakeup  chan struct{}
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
	stopped bool
	dropped uint64
}

func NewEngine(bufferSize int) *Engine {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &Engine{
		queue:  make(reminderQueue, 0),
		seen:   make(map[string]time.Time),
		out:    make(chan Reminder, bufferSize),
		wakeup: make(chan struct{}, 1),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

func (e *Engine) C() <-chan Reminder {
	return e.out
}

func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return
	}
	e.started = true
	heap.Init(&e.queue)
	go e.loop()
}

func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.started || e.stopped {
		e.stopped = true
		e.mu.Unlock()
		return
	}
	e.stopped = true
	close(e.stopCh)
	e.mu.Unlock()
	<-e.doneCh
}

// Schedule queues r. It reports false when r.Key was already accepted.
func (e *Engine) Schedule(r Reminder) (bool, error) {
	if r.TriggerAt.IsZero() {
		return false, ErrInvalidTriggerTime
	}
	if r.Key == "" {
		r.Key = ReminderKey(r.EventID, r.StartsAt)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return false, ErrEngineStopped
	}
	if _, dup := e.seen[r.Key]; dup {
		return false, nil
	}
	e.seen[r.Key] = r.StartsAt
	heap.Push(&e.queue, r)
	e.signalWakeup()
	return true, nil
}

// Forget drops remembered keys of occurrences that started before cutoff and
// are no longer queued.
func (e *Engine) Forget(cutoff time.Time) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	queued := make(map[string]bool, len(e.queue))
	for _, r := range e.queue {
		queued[r.Key] = true
	}
	n := 0
	for key, startsAt := range e.seen {
		if startsAt.Before(cutoff) && !queued[key] {
			delete(e.seen, key)
			n++
		}
	}
	return n
}

func (e *Engine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}

func (e *Engine) Dropped() uint64 {
	return atomic.LoadUint64(&e.dropped)
}

func (e *Engine) loop() {
	defer close(e.doneCh)
	defer close(e.out)

	var timer *time.Timer
	for {
		next, ok := e.peek()
		if !ok {
			select {
			case <-e.wakeup:
				continue
			case <-e.stopCh:
				return
			}
		}

		timer = resetTimer(timer, max(time.Until(next.TriggerAt), 0))

		select {
		case <-timer.C:
			for _, r := range e.popDue(time.Now()) {
				select {
				case e.out <- r:
				default:
					atomic.AddUint64(&e.dropped, 1)
				}
			}
		case <-e.wakeup:
			continue
		case <-e.stopCh:
			stopTimer(timer)
			return
		}
	}
}

func (e *Engine) signalWakeup() {
	select {
	case e.wakeup <- struct{}{}:
	default:
	}
}

func (e *Engine) peek() (Reminder, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.queue) == 0 {
		return Reminder{}, false
	}
	return e.queue[0], true
}

func (e *Engine) popDue(now time.Time) []Reminder {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Reminder, 0)
	for len(e.queue) > 0 && !e.queue[0].TriggerAt.After(now) {
		out = append(out, heap.Pop(&e.queue).(Reminder))
	}
	return out
}

func resetTimer(timer *time.Timer, d time.Duration) *time.Timer {
	if timer == nil {
		return time.NewTimer(d)
	}
	stopTimer(timer)
	timer.Reset(d)
	return timer
}

func stopTimer(timer *time.Timer) {
	if timer == nil {
		return
	}
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
}
