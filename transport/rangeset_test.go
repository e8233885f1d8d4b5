package transport

import "testing"

func TestRangeSetMergesAdjacentAndOverlapping(t *testing.T) {
	s := newRangeSet()
	s.add(1, 3)
	s.add(5, 7)
	if got := s.ranges(); len(got) != 2 {
		t.Fatalf("ranges = %v, want 2 disjoint ranges", got)
	}
	s.add(4, 4) // bridges the gap
	got := s.ranges()
	if len(got) != 1 || got[0].smallest != 1 || got[0].largest != 7 {
		t.Fatalf("ranges after bridging = %v, want [1,7]", got)
	}
	s.add(6, 10) // overlaps the tail
	got = s.ranges()
	if len(got) != 1 || got[0].smallest != 1 || got[0].largest != 10 {
		t.Fatalf("ranges after overlap = %v, want [1,10]", got)
	}
}

func TestRangeSetContains(t *testing.T) {
	s := newRangeSet()
	s.add(2, 4)
	s.add(8, 8)
	for _, pn := range []uint64{2, 3, 4, 8} {
		if !s.contains(pn) {
			t.Fatalf("contains(%d) = false, want true", pn)
		}
	}
	for _, pn := range []uint64{0, 1, 5, 7, 9} {
		if s.contains(pn) {
			t.Fatalf("contains(%d) = true, want false", pn)
		}
	}
}

func TestRangeSetRemoveUntil(t *testing.T) {
	s := newRangeSet()
	s.add(1, 3)
	s.add(5, 9)
	s.removeUntil(6)
	got := s.ranges()
	if len(got) != 1 || got[0].smallest != 7 || got[0].largest != 9 {
		t.Fatalf("ranges after removeUntil(6) = %v, want [7,9]", got)
	}
	s.removeUntil(20)
	if !s.empty() {
		t.Fatalf("set not empty after removing past the last range: %v", s.ranges())
	}
}
