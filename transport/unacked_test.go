package transport

import (
	"testing"
	"time"
)

// TestBytesInFlightMatchesSum: bytesInFlight equals the sum of bytesSent
// over in-flight entries.
func TestBytesInFlightMatchesSum(t *testing.T) {
	now := time.Unix(0, 0)
	m := newUnackedPacketMap()
	m.addSent(sentAt(1, 1000, now, true))
	m.addSent(sentAt(2, 1500, now, true))
	m.addSent(sentAt(3, 1000, now, false)) // not in flight (ack-only packet)

	if m.bytesInFlight != 2500 {
		t.Fatalf("bytesInFlight = %d, want 2500", m.bytesInFlight)
	}
	m.removeFromInFlight(1)
	if m.bytesInFlight != 1500 {
		t.Fatalf("bytesInFlight after removing packet 1 = %d, want 1500", m.bytesInFlight)
	}
}

// TestAckingChainMemberUnacksTheRest: acking any member of a
// retransmission chain removes retransmittability from every other member
// exactly once, and only the newest member may supply RTT.
func TestAckingChainMemberUnacksTheRest(t *testing.T) {
	now := time.Unix(0, 0)
	m := newUnackedPacketMap()
	m.addSent(sentAt(1, 1000, now, true))

	retransmit := sentAt(2, 1000, now.Add(time.Second), true)
	m.onRetransmitted(1, retransmit, transmissionNackRetransmission)

	again := sentAt(3, 1000, now.Add(2*time.Second), true)
	m.onRetransmitted(2, again, transmissionNackRetransmission)

	// Acking the oldest member: it is not the newest in its chain, so no
	// RTT sample may be drawn, but the chain is still fully resolved.
	newest := m.onAcked(1)
	if newest {
		t.Fatalf("onAcked(1) reported newest=true, want false (packet 3 is the newest transmission)")
	}
	for _, pn := range []uint64{2, 3} {
		info := m.get(pn)
		if info == nil {
			t.Fatalf("packet %d missing from the ledger", pn)
		}
		if pn == 2 && !info.isUnackable {
			t.Fatalf("packet 2 should be marked unackable once any chain member is acked")
		}
	}
	if info := m.get(1); info == nil || len(info.frames) != 0 {
		t.Fatalf("packet 1's retransmittable frames should be cleared once acked")
	}
	if info := m.get(2); len(info.frames) != 0 {
		t.Fatalf("packet 2's retransmittable frames should be cleared once its chain is acked")
	}
}

func TestAckingNewestChainMemberReportsNewest(t *testing.T) {
	now := time.Unix(0, 0)
	m := newUnackedPacketMap()
	m.addSent(sentAt(1, 1000, now, true))
	retransmit := sentAt(2, 1000, now.Add(time.Second), true)
	m.onRetransmitted(1, retransmit, transmissionNackRetransmission)

	if newest := m.onAcked(2); !newest {
		t.Fatalf("onAcked(2) reported newest=false, want true (2 is the only/newest transmission)")
	}
}

// TestCleanupRemovesOnlyFullyResolvedChains: an entry is removed only once
// it is not in flight, carries no retransmittable frames, and every chain
// member is <= the peer's largest-acked.
func TestCleanupRemovesOnlyFullyResolvedChains(t *testing.T) {
	now := time.Unix(0, 0)
	m := newUnackedPacketMap()
	m.addSent(sentAt(1, 1000, now, true))
	retransmit := sentAt(5, 1000, now, true)
	m.onRetransmitted(1, retransmit, transmissionNackRetransmission)
	m.onAcked(5)
	// onAcked only clears the *other* chain members' frames; the caller
	// (lossRecovery.onAckReceived) clears the acked packet's own frames
	// once it has collected them for the application-facing ack callback.
	m.get(5).frames = nil

	// Packet 1's chain member (5) is within the acked range: the whole
	// chain resolves and both entries are removable.
	m.cleanup(5)
	if m.get(1) != nil || m.get(5) != nil {
		t.Fatalf("cleanup(5) should remove packet 1's fully-resolved chain")
	}

	// A chain with a member beyond largestAcked must not be removed yet.
	m.addSent(sentAt(2, 1000, now, true))
	retransmit2 := sentAt(10, 1000, now, true)
	m.onRetransmitted(2, retransmit2, transmissionNackRetransmission)
	m.onAcked(2) // the *old* member acked, newest (10) still outstanding
	m.cleanup(9) // largestAcked hasn't reached 10 yet
	if m.get(2) == nil || m.get(10) == nil {
		t.Fatalf("cleanup(9) should not remove a chain whose newest member (10) exceeds largestAcked")
	}
}

func TestNackCountReachesThreshold(t *testing.T) {
	now := time.Unix(0, 0)
	m := newUnackedPacketMap()
	m.addSent(sentAt(1, 1000, now, true))

	if m.nack(1, 3) {
		t.Fatalf("nack(1, 3) after one nack should not yet reach the threshold")
	}
	m.nack(1, 3)
	if !m.nack(1, 3) {
		t.Fatalf("nack(1, 3) after three nacks should reach the threshold")
	}
}
