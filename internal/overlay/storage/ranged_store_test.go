package storage

import "testing"

func TestRangedStorePreAddRecordsHoles(t *testing.T) {
	r := NewRanged[int]()
	r.PreAdd("peer1", 5)
	if r.GetLast("peer1") != 5 {
		t.Fatalf("expected last=5, got %d", r.GetLast("peer1"))
	}
	holes := r.GetHoles("peer1")
	want := []int64{1, 2, 3, 4, 5}
	if len(holes) != len(want) {
		t.Fatalf("expected %d holes, got %d (%v)", len(want), len(holes), holes)
	}
	for i, h := range want {
		if holes[i] != h {
			t.Errorf("position %d: expected hole %d, got %d", i, h, holes[i])
		}
	}
}

func TestRangedStoreAddFillsHole(t *testing.T) {
	r := NewRanged[int]()
	r.PreAdd("peer1", 3)
	r.Add(RangedKey("peer1", 2), 20)
	holes := r.GetHoles("peer1")
	want := []int64{1, 3}
	if len(holes) != len(want) {
		t.Fatalf("expected holes %v, got %v", want, holes)
	}
	for i, h := range want {
		if holes[i] != h {
			t.Errorf("position %d: expected hole %d, got %d", i, h, holes[i])
		}
	}
}

func TestRangedStoreAddAdvancesLastAndTracksNewHoles(t *testing.T) {
	r := NewRanged[int]()
	r.Add(RangedKey("peer1", 1), 10)
	r.Add(RangedKey("peer1", 4), 40)
	if r.GetLast("peer1") != 4 {
		t.Fatalf("expected last=4, got %d", r.GetLast("peer1"))
	}
	holes := r.GetHoles("peer1")
	want := []int64{2, 3}
	if len(holes) != len(want) {
		t.Fatalf("expected holes %v, got %v", want, holes)
	}
	for i, h := range want {
		if holes[i] != h {
			t.Errorf("position %d: expected hole %d, got %d", i, h, holes[i])
		}
	}
}

func TestParseRangedKeyRoundTrip(t *testing.T) {
	key := RangedKey("peer-7", 42)
	origin, seq, ok := ParseRangedKey(key)
	if !ok || origin != "peer-7" || seq != 42 {
		t.Errorf("expected (peer-7, 42, true), got (%s, %d, %v)", origin, seq, ok)
	}
	if _, _, ok := ParseRangedKey("noseparator"); ok {
		t.Error("expected a key with no underscore to fail parsing")
	}
}
