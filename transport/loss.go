package transport

import "time"

// LossDetectionType selects which loss-detection strategy a connection
// runs: the classic nack-based (3-FACK) mode, a purely time-threshold
// mode, or the adaptive variant that tunes its reordering threshold.
type LossDetectionType int

const (
	// LossDetectionNack runs the 3-packet FACK rule alongside the time
	// rule. This is the default.
	LossDetectionNack LossDetectionType = iota
	// LossDetectionTime runs the time-threshold rule only.
	LossDetectionTime
	// LossDetectionAdaptiveTime runs the time-threshold rule with a
	// reordering fraction that shrinks when spurious retransmits are
	// observed.
	LossDetectionAdaptiveTime
)

// fackThreshold is the number of packets that must have a larger packet
// number and be acked before an earlier in-flight packet is declared lost
// by the forward-acknowledgment rule.
const fackThreshold = 3

// lossDetector implements nack-based, time-threshold and adaptive-time
// loss detection sharing one reordering-fraction state.
type lossDetector struct {
	typ                LossDetectionType
	reorderingFraction int

	// largestSentOnSpuriousRetransmit and hasSpuriousLatch prevent the
	// reordering fraction from being halved
	// more than once per epoch for the same spurious-retransmit signal.
	largestSentOnSpuriousRetransmit uint64
	hasSpuriousLatch                bool
}

func newLossDetector(typ LossDetectionType) *lossDetector {
	fraction := 4
	if typ == LossDetectionAdaptiveTime {
		fraction = 16
	}
	return &lossDetector{typ: typ, reorderingFraction: fraction}
}

func (d *lossDetector) lossDelay(maxRTT time.Duration) time.Duration {
	delay := maxRTT + maxRTT/time.Duration(d.reorderingFraction)
	if delay < 5*time.Millisecond {
		delay = 5 * time.Millisecond
	}
	return delay
}

// onSpuriousRetransmit is the adaptive-mode reaction to the peer later
// acking a packet we already retransmitted: halve the reordering fraction
// (floor 1), latched once per epoch.
func (d *lossDetector) onSpuriousRetransmit(largestSent uint64) {
	if d.typ != LossDetectionAdaptiveTime {
		return
	}
	if d.hasSpuriousLatch && largestSent <= d.largestSentOnSpuriousRetransmit {
		return
	}
	if d.reorderingFraction > 1 {
		d.reorderingFraction /= 2
	}
	d.largestSentOnSpuriousRetransmit = largestSent
	d.hasSpuriousLatch = true
}

// detectLosses runs one detection pass over the packets in [minUnacked,
// largestObserved], returning newly lost packet numbers with their sent
// byte counts and the next loss-detection deadline (zero time if no timer
// should be armed by this pass).
func (d *lossDetector) detectLosses(m *unackedPacketMap, now time.Time, rtt *rttStats, largestObserved, largestSent uint64) (lost []lostPacket, nextTimeout time.Time) {
	maxRTT := rtt.maxRTT()
	lossDelay := d.lossDelay(maxRTT)

	oldestRetransmittablePN, hasOldest := oldestRetransmittable(m, m.minUnacked, largestObserved)

	m.iterInOrder(m.minUnacked, largestObserved, func(info *sentPacketInfo) {
		if !info.inFlight {
			return
		}
		if d.typ == LossDetectionNack && largestObserved-info.packetNumber >= fackThreshold {
			lost = append(lost, lostPacket{packetNumber: info.packetNumber, bytesSent: info.bytesSent})
			return
		}
		deadline := info.sentTime.Add(lossDelay)
		if !deadline.After(now) {
			lost = append(lost, lostPacket{packetNumber: info.packetNumber, bytesSent: info.bytesSent})
			return
		}
		// Early retransmit (RFC 5827): the oldest retransmittable packet,
		// once every sent packet has been observed, gets the time rule
		// applied with the same delay even though FACK hasn't tripped.
		if hasOldest && info.packetNumber == oldestRetransmittablePN && largestObserved == largestSent {
			if nextTimeout.IsZero() || deadline.Before(nextTimeout) {
				nextTimeout = deadline
			}
			return
		}
		if nextTimeout.IsZero() || deadline.Before(nextTimeout) {
			nextTimeout = deadline
		}
	})
	return lost, nextTimeout
}

type lostPacket struct {
	packetNumber uint64
	bytesSent    int
}

func oldestRetransmittable(m *unackedPacketMap, from, to uint64) (uint64, bool) {
	var found uint64
	ok := false
	m.iterInOrder(from, to, func(info *sentPacketInfo) {
		if ok || !info.inFlight || len(info.frames) == 0 {
			return
		}
		found = info.packetNumber
		ok = true
	})
	return found, ok
}
