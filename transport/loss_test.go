package transport

import (
	"testing"
	"time"
)

func sentAt(pn uint64, bytesSent int, sentTime time.Time, inFlight bool) *sentPacketInfo {
	var frames []frame
	if inFlight {
		frames = []frame{&pingFrame{}}
	}
	return &sentPacketInfo{
		packetNumber: pn,
		bytesSent:    bytesSent,
		sentTime:     sentTime,
		inFlight:     inFlight,
		frames:       frames,
	}
}

// TestThreeNackFastRetransmit: send 5 packets, ack 2,3,4 (1 missing).
// After the third ack advances largest-observed to 4, packet 1 is in the
// lost set.
func TestThreeNackFastRetransmit(t *testing.T) {
	now := time.Unix(0, 0)
	m := newUnackedPacketMap()
	for pn := uint64(1); pn <= 5; pn++ {
		m.addSent(sentAt(pn, 1000, now, true))
	}
	// Packets 2, 3, 4 are acked: no longer in flight.
	for _, pn := range []uint64{2, 3, 4} {
		m.onAcked(pn)
	}

	d := newLossDetector(LossDetectionNack)
	var rtt rttStats
	rtt.update(10*time.Millisecond, 0, now)

	lost, _ := d.detectLosses(m, now, &rtt, 4, 5)
	if len(lost) != 1 || lost[0].packetNumber != 1 {
		t.Fatalf("lost = %+v, want exactly packet 1", lost)
	}
}

// TestEarlyRetransmit (RFC 5827): send 2 packets, ack only packet 2. The
// loss timer arms at sentTime[1] + 1.25*smoothedRTT; at expiry, packet 1
// is lost.
func TestEarlyRetransmit(t *testing.T) {
	now := time.Unix(0, 0)
	m := newUnackedPacketMap()
	m.addSent(sentAt(1, 1000, now, true))
	m.addSent(sentAt(2, 1000, now, true))
	m.onAcked(2)

	d := newLossDetector(LossDetectionNack)
	var rtt rttStats
	rtt.update(100*time.Millisecond, 0, now) // smoothedRTT = latestRTT = 100ms

	wantDelay := 125 * time.Millisecond // maxRTT * (1 + 1/4)

	// Not yet expired: packet 1 isn't lost, but the timer is armed.
	lost, nextTimeout := d.detectLosses(m, now.Add(wantDelay-time.Millisecond), &rtt, 2, 2)
	if len(lost) != 0 {
		t.Fatalf("lost = %+v before loss-delay expiry, want none", lost)
	}
	wantTimeout := now.Add(wantDelay)
	if !nextTimeout.Equal(wantTimeout) {
		t.Fatalf("nextTimeout = %v, want %v", nextTimeout, wantTimeout)
	}

	// At expiry, packet 1 is lost.
	lost, _ = d.detectLosses(m, wantTimeout, &rtt, 2, 2)
	if len(lost) != 1 || lost[0].packetNumber != 1 {
		t.Fatalf("lost = %+v at loss-delay expiry, want exactly packet 1", lost)
	}
}

// TestStretchAck: send 10 packets, one ACK frame newly acknowledges 2,3,4
// together. Packet 1 is lost via FACK; 2,3,4 are no longer in flight.
func TestStretchAck(t *testing.T) {
	now := time.Unix(0, 0)
	m := newUnackedPacketMap()
	for pn := uint64(1); pn <= 10; pn++ {
		m.addSent(sentAt(pn, 1000, now, true))
	}
	for _, pn := range []uint64{2, 3, 4} {
		newest := m.onAcked(pn)
		if !newest {
			t.Fatalf("onAcked(%d) newest = false, want true (no retransmission chain)", pn)
		}
	}
	if m.bytesInFlight != 7000 {
		t.Fatalf("bytesInFlight = %d, want 7000 (10 sent - 3 acked)", m.bytesInFlight)
	}

	d := newLossDetector(LossDetectionNack)
	var rtt rttStats
	rtt.update(10*time.Millisecond, 0, now)

	lost, _ := d.detectLosses(m, now, &rtt, 4, 10)
	if len(lost) != 1 || lost[0].packetNumber != 1 {
		t.Fatalf("lost = %+v, want exactly packet 1", lost)
	}
}

func TestAdaptiveReorderingFractionHalvesOnSpuriousRetransmit(t *testing.T) {
	d := newLossDetector(LossDetectionAdaptiveTime)
	if d.reorderingFraction != 16 {
		t.Fatalf("initial reorderingFraction = %d, want 16", d.reorderingFraction)
	}
	d.onSpuriousRetransmit(10)
	if d.reorderingFraction != 8 {
		t.Fatalf("reorderingFraction after one spurious signal = %d, want 8", d.reorderingFraction)
	}
	// Same epoch (not a larger largestSent): no further halving.
	d.onSpuriousRetransmit(5)
	if d.reorderingFraction != 8 {
		t.Fatalf("reorderingFraction after same-epoch signal = %d, want unchanged at 8", d.reorderingFraction)
	}
	d.onSpuriousRetransmit(20)
	if d.reorderingFraction != 4 {
		t.Fatalf("reorderingFraction after a later-epoch signal = %d, want 4", d.reorderingFraction)
	}
}

func TestFixedModeIgnoresSpuriousRetransmitSignal(t *testing.T) {
	d := newLossDetector(LossDetectionNack)
	d.onSpuriousRetransmit(10)
	if d.reorderingFraction != 4 {
		t.Fatalf("fixed-mode reorderingFraction changed to %d, want unchanged at 4", d.reorderingFraction)
	}
}

func TestLossDelayFloor(t *testing.T) {
	d := newLossDetector(LossDetectionNack)
	if got := d.lossDelay(0); got != 5*time.Millisecond {
		t.Fatalf("lossDelay(0) = %v, want the 5ms floor", got)
	}
}
