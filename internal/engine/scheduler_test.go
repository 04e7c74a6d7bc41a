package engine

import "testing"

func TestSchedulerOrdersByFireTimeThenSeq(t *testing.T) {
	s := New()
	var order []int
	s.Schedule(Millis(10), func() { order = append(order, 1) })
	s.Schedule(Millis(5), func() { order = append(order, 2) })
	s.Schedule(Millis(5), func() { order = append(order, 3) })
	s.RunAll()

	want := []int{2, 3, 1}
	if len(order) != len(want) {
		t.Fatalf("expected %d callbacks, got %d", len(want), len(order))
	}
	for i, v := range want {
		if order[i] != v {
			t.Errorf("position %d: expected %d, got %d", i, v, order[i])
		}
	}
}

func TestSchedulerRunUntilHorizon(t *testing.T) {
	s := New()
	fired := 0
	s.Schedule(Millis(5), func() { fired++ })
	s.Schedule(Millis(15), func() { fired++ })
	until := Millis(10)
	s.Run(&until)
	if fired != 1 {
		t.Errorf("expected 1 event before horizon, got %d", fired)
	}
	if !s.Pending() {
		t.Errorf("expected the later event to remain pending")
	}
	s.RunAll()
	if fired != 2 {
		t.Errorf("expected both events to have fired, got %d", fired)
	}
}

func TestSchedulerStopReturnsBeforeNextEvent(t *testing.T) {
	s := New()
	fired := 0
	s.Schedule(Millis(5), func() {
		fired++
		s.Stop()
	})
	s.Schedule(Millis(10), func() { fired++ })
	s.RunAll()
	if fired != 1 {
		t.Errorf("expected Stop to prevent the second event firing, got %d callbacks", fired)
	}
	if !s.Pending() {
		t.Errorf("expected the second event to still be pending after Stop")
	}
	s.RunAll()
	if fired != 2 {
		t.Errorf("expected RunAll to resume and fire the remaining event, got %d", fired)
	}
}
