package engine

import "github.com/prometheus/common/log"

// yieldRequest is what a suspended task's goroutine reports back to
// whichever code resumed it: either "resume me later at fireAt", or
// "I have parked myself elsewhere (an Inbox) and need no heap entry",
// or "I am finished", or "I panicked and the panic value must be
// re-raised on the scheduler's own goroutine."
type yieldRequest struct {
	done   bool
	parked bool
	fireAt SimTime
	panicV any
}

// Yielder is handed to a cooperative task body. It is the only
// channel through which the task may suspend itself, and must only be
// touched from the goroutine the scheduler started to run the task
// body — never from another goroutine.
type Yielder struct {
	sched    *Scheduler
	resumeCh chan any
	yieldCh  chan yieldRequest
}

// Timeout suspends the task until Now()+d, then returns.
func (y *Yielder) Timeout(d SimTime) {
	y.yieldCh <- yieldRequest{fireAt: y.sched.Now() + d}
	<-y.resumeCh
}

// park reports to whatever resumed us that we are suspended outside
// the heap (parked in an Inbox's waiter list) and returns the value we
// are eventually resumed with.
func (y *Yielder) park() any {
	y.yieldCh <- yieldRequest{parked: true}
	return <-y.resumeCh
}

// Spawn starts body on its own goroutine and runs it synchronously
// (in zero simulated time, from the caller's point of view) up to its
// first suspension point, matching a coroutine that runs until it
// first yields. The caller must already be on the scheduler's single
// logical thread (inside Run, or before Run has started).
//
// A panic raised from inside body happens on this dedicated goroutine,
// not the scheduler's — left alone, it would crash the process before
// any recover() on the scheduler side ever saw it. It is caught here
// and re-raised from await/resume instead, so it surfaces on whichever
// goroutine is driving the scheduler (see Scheduler.Run and
// pkg/simulation.Simulation.Run's recover).
func Spawn(s *Scheduler, body func(y *Yielder)) {
	y := &Yielder{sched: s, resumeCh: make(chan any), yieldCh: make(chan yieldRequest)}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				y.yieldCh <- yieldRequest{panicV: r}
			}
		}()
		body(y)
		y.yieldCh <- yieldRequest{done: true}
	}()
	await(s, y)
}

// resume unblocks a parked task's goroutine with value, then waits for
// its next yield — the rendezvous point shared by Scheduler.Run
// (timeout resumes) and Inbox.Put (inbox resumes). It is what keeps
// exactly one task body "live" at any instant despite each body
// running on its own goroutine.
func resume(s *Scheduler, y *Yielder, value any) {
	y.resumeCh <- value
	await(s, y)
}

// await blocks until the task yields, then either reschedules it (on a
// timeout request), lets it rest parked (inbox wait), or drops it (on
// completion).
func await(s *Scheduler, y *Yielder) {
	req := <-y.yieldCh
	switch {
	case req.panicV != nil:
		log.Errorf("task panicked, re-raising on scheduler goroutine: %v", req.panicV)
		panic(req.panicV)
	case req.done, req.parked:
		return
	default:
		delay := req.fireAt - s.Now()
		s.Schedule(delay, func() { resume(s, y, struct{}{}) })
	}
}
