// Package engine implements the discrete-event scheduler driving the
// simulator's logical clock: a min-heap of pending events, the
// cooperative task machinery peers use to suspend on inbox reads, and
// the latency oracle consulted by the link model.
package engine

import "time"

// SimTime is a point (or duration) of simulated time. It never tracks
// wall-clock time; a Scheduler advances it only by popping events.
type SimTime = time.Duration

// Seconds converts a fractional-second delay into a SimTime.
func Seconds(s float64) SimTime {
	return time.Duration(s * float64(time.Second))
}

// Millis converts a millisecond delay into a SimTime.
func Millis(ms float64) SimTime {
	return time.Duration(ms * float64(time.Millisecond))
}
