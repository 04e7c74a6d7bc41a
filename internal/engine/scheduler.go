package engine

import "container/heap"

// scheduledEvent is a single entry in the scheduler's min-heap, ordered
// by (fireAt, seq) so that events firing at the same simulated instant
// resume in the order they were scheduled.
type scheduledEvent struct {
	fireAt SimTime
	seq    uint64
	fn     func()
}

type eventHeap []*scheduledEvent

func (h eventHeap) Len() int { return len(h) }
func (h eventHeap) Less(i, j int) bool {
	if h[i].fireAt != h[j].fireAt {
		return h[i].fireAt < h[j].fireAt
	}
	return h[i].seq < h[j].seq
}
func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *eventHeap) Push(x any)   { *h = append(*h, x.(*scheduledEvent)) }
func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// Scheduler is the single-threaded discrete-event engine described by
// the simulator's core: it owns the logical clock and a min-heap of
// pending events, and runs cooperative tasks until quiescent or until
// a configured horizon.
//
// A Scheduler is not safe for concurrent use. Nothing in this package
// touches a real OS thread beyond the goroutines Spawn starts to host
// suspended task bodies, and those goroutines never run application
// code concurrently with the Scheduler's own goroutine: see task.go.
type Scheduler struct {
	now     SimTime
	heap    eventHeap
	seq     uint64
	stopped bool
}

// New creates a Scheduler whose logical clock starts at zero.
func New() *Scheduler {
	s := &Scheduler{}
	heap.Init(&s.heap)
	return s
}

// Now returns the scheduler's current logical time.
func (s *Scheduler) Now() SimTime { return s.now }

// Schedule enqueues fn to run at Now()+delay. delay must be
// non-negative; every call site in this module derives delay from
// bandwidths and oracle-sampled latencies, both of which are clamped
// non-negative at their source, so this is never checked here.
func (s *Scheduler) Schedule(delay SimTime, fn func()) {
	s.seq++
	heap.Push(&s.heap, &scheduledEvent{fireAt: s.now + delay, seq: s.seq, fn: fn})
}

// Pending reports whether any event remains in the heap.
func (s *Scheduler) Pending() bool { return s.heap.Len() > 0 }

// Run pops and fires events in (fireAt, seq) order, advancing Now() to
// each event's fire time before running it, until the heap empties or
// the next event's fire time is at or beyond until. A nil until runs
// to quiescence.
func (s *Scheduler) Run(until *SimTime) {
	for s.heap.Len() > 0 {
		if s.stopped {
			s.stopped = false
			return
		}
		next := s.heap[0]
		if until != nil && next.fireAt >= *until {
			return
		}
		heap.Pop(&s.heap)
		s.now = next.fireAt
		next.fn()
	}
}

// RunAll runs the scheduler to quiescence.
func (s *Scheduler) RunAll() { s.Run(nil) }

// Stop requests that the current or next Run call return before
// popping another event — checked between events, so a callback that
// calls Stop always finishes running first.
func (s *Scheduler) Stop() { s.stopped = true }
