package transport

import "sort"

// rangeSet tracks disjoint, non-adjacent [smallest, largest] packet number
// intervals, used to remember which packets still need to be acknowledged.
// Adjacent and overlapping ranges are merged on insert.
type rangeSet struct {
	set []ackRange
}

func newRangeSet() *rangeSet {
	return &rangeSet{}
}

// add inserts [smallest, largest] into the set, merging with any
// overlapping or adjacent existing range.
func (s *rangeSet) add(smallest, largest uint64) {
	r := ackRange{smallest: smallest, largest: largest}
	i := sort.Search(len(s.set), func(i int) bool {
		return s.set[i].largest >= r.smallest
	})
	s.set = append(s.set, ackRange{})
	copy(s.set[i+1:], s.set[i:])
	s.set[i] = r
	s.merge(i)
}

// merge coalesces the range at index i with its neighbors if they touch or
// overlap.
func (s *rangeSet) merge(i int) {
	for i+1 < len(s.set) && s.set[i+1].smallest <= s.set[i].largest+1 {
		if s.set[i+1].largest > s.set[i].largest {
			s.set[i].largest = s.set[i+1].largest
		}
		if s.set[i+1].smallest < s.set[i].smallest {
			s.set[i].smallest = s.set[i+1].smallest
		}
		s.set = append(s.set[:i+1], s.set[i+2:]...)
	}
	for i > 0 && s.set[i].smallest <= s.set[i-1].largest+1 {
		if s.set[i].largest > s.set[i-1].largest {
			s.set[i-1].largest = s.set[i].largest
		}
		s.set = append(s.set[:i], s.set[i+1:]...)
		i--
	}
}

// contains reports whether pn falls within any tracked range.
func (s *rangeSet) contains(pn uint64) bool {
	for _, r := range s.set {
		if pn >= r.smallest && pn <= r.largest {
			return true
		}
	}
	return false
}

// removeUntil drops every range, or part of a range, at or below largestAck.
// It is called once a peer's ACK confirms it no longer needs those packet
// numbers reported back to it.
func (s *rangeSet) removeUntil(largestAck uint64) {
	i := 0
	for i < len(s.set) && s.set[i].largest <= largestAck {
		i++
	}
	if i > 0 {
		s.set = append([]ackRange(nil), s.set[i:]...)
	}
	if len(s.set) > 0 && s.set[0].smallest <= largestAck {
		s.set[0].smallest = largestAck + 1
	}
}

// ranges returns the tracked ranges in ascending order.
func (s *rangeSet) ranges() []ackRange {
	return s.set
}

func (s *rangeSet) empty() bool {
	return len(s.set) == 0
}
