package transport

import (
	"testing"
	"time"
)

func TestCubicSlowStartAdditiveIncrease(t *testing.T) {
	var rtt rttStats
	c := newCubicSender(true, 0, &rtt)
	if !c.inSlowStart() {
		t.Fatalf("a fresh sender should start in slow start (cwnd < ssthresh)")
	}
	before := c.cwnd
	c.onPacketAcked(maxDatagramSize, before, time.Unix(0, 0))
	if c.cwnd != before+maxDatagramSize {
		t.Fatalf("cwnd after one slow-start ack = %d, want %d", c.cwnd, before+maxDatagramSize)
	}
}

func TestCubicLossReducesWindowAndEntersRecovery(t *testing.T) {
	var rtt rttStats
	c := newCubicSender(true, 0, &rtt)
	priorInFlight := c.cwnd
	now := time.Unix(0, 0)

	c.onPacketLost(1, maxDatagramSize, priorInFlight, now)

	if !c.inRecoveryEpoch {
		t.Fatalf("expected recovery epoch entered after a loss")
	}
	if c.cwnd != c.ssthresh {
		t.Fatalf("cwnd = %d, want reset to ssthresh %d", c.cwnd, c.ssthresh)
	}
	if c.cwnd >= priorInFlight {
		t.Fatalf("cwnd = %d, want reduced below pre-loss window %d", c.cwnd, priorInFlight)
	}
}

func TestCubicSameEpochLossesCoalesce(t *testing.T) {
	var rtt rttStats
	c := newCubicSender(true, 0, &rtt)
	now := time.Unix(0, 0)

	for pn := uint64(1); pn <= 5; pn++ {
		c.onPacketSent(pn, maxDatagramSize, true, now)
	}

	c.onPacketLost(5, maxDatagramSize, c.cwnd, now)
	cwndAfterFirst := c.cwnd
	ssthreshAfterFirst := c.ssthresh

	// Packet 3 was sent before packet 5 (the cutback point): a report that
	// it is also lost is the same congestion event and must not cut the
	// window again.
	c.onPacketLost(3, maxDatagramSize, c.cwnd, now)

	if c.cwnd != cwndAfterFirst || c.ssthresh != ssthreshAfterFirst {
		t.Fatalf("a same-epoch loss changed cwnd/ssthresh: cwnd %d->%d ssthresh %d->%d",
			cwndAfterFirst, c.cwnd, ssthreshAfterFirst, c.ssthresh)
	}

	// A later packet number is a new congestion event and does cut again.
	c.onPacketLost(6, maxDatagramSize, c.cwnd, now)
	if c.cwnd == cwndAfterFirst {
		t.Fatalf("a later packet number should start a new recovery epoch and cut cwnd again")
	}
}

// TestPRRDuringRecovery: once a loss event cuts the window by cubicBeta and enters
// recovery, each subsequent ack of one MSS keeps the send gate open by the
// PRR-SSRB allowance rather than letting cwnd race back up to its pre-loss
// size.
func TestPRRDuringRecovery(t *testing.T) {
	var rtt rttStats
	c := newCubicSender(true, 0, &rtt)
	priorInFlight := c.cwnd // 10 MSS, matching the scenario's starting cwnd
	now := time.Unix(0, 0)

	c.onPacketLost(1, maxDatagramSize, priorInFlight, now)
	if c.bytesInFlightBeforeLoss != priorInFlight {
		t.Fatalf("bytesInFlightBeforeLoss = %d, want %d", c.bytesInFlightBeforeLoss, priorInFlight)
	}

	for i := 0; i < 5; i++ {
		c.onPacketAcked(maxDatagramSize, priorInFlight, now)
		if d := c.timeUntilSend(priorInFlight-maxDatagramSize, true, now); d != 0 {
			t.Fatalf("ack %d: timeUntilSend = %v, want 0 while the PRR allowance is positive", i, d)
		}
	}
}

func TestCubicRTOResetsWindow(t *testing.T) {
	var rtt rttStats
	c := newCubicSender(true, 0, &rtt)
	c.onRetransmissionTimeout(1)
	if c.cwnd != minCongestionWindowPackets*maxDatagramSize {
		t.Fatalf("cwnd after RTO = %d, want the minimum window %d", c.cwnd, minCongestionWindowPackets*maxDatagramSize)
	}
	if c.inRecoveryEpoch {
		t.Fatalf("RTO should clear any in-progress recovery epoch")
	}
}

func TestCubicRTOWithNoRetransmitsIsNoop(t *testing.T) {
	var rtt rttStats
	c := newCubicSender(true, 0, &rtt)
	before := c.cwnd
	c.onRetransmissionTimeout(0)
	if c.cwnd != before {
		t.Fatalf("cwnd changed on a no-op RTO call: %d -> %d", before, c.cwnd)
	}
}

func TestFixedRateControllerDrainsAndRefills(t *testing.T) {
	c := newFixedRateController(8_000_000) // 1 MB/s
	now := time.Unix(0, 0)

	c.onPacketSent(1, c.burst, true, now)
	if d := c.timeUntilSend(0, true, now); d <= 0 {
		t.Fatalf("timeUntilSend after draining the whole burst = %v, want > 0", d)
	}

	later := now.Add(time.Second)
	if d := c.timeUntilSend(0, true, later); d != 0 {
		t.Fatalf("timeUntilSend after a full second at 1MB/s = %v, want 0 (bucket refilled)", d)
	}
}

func TestFixedRateControllerBurstFloor(t *testing.T) {
	// A very slow rate still gets at least one MSS of burst allowance.
	c := newFixedRateController(800)
	if c.burst < maxDatagramSize {
		t.Fatalf("burst = %d, want at least maxDatagramSize (%d)", c.burst, maxDatagramSize)
	}
}
