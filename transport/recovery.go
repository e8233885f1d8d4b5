package transport

import "time"

// outgoingPacket collects the frames assembled for one packet before it is
// encoded, and becomes the unacked-packet-map entry once sent.
type outgoingPacket struct {
	packetNumber uint64
	timeSent     time.Time
	size         uint64

	frames          []frame // every frame in wire order, for encoding/logging
	retransmittable []frame // the subset replayed on loss

	ackEliciting       bool
	inFlight           bool
	hasCryptoHandshake bool
}

func newOutgoingPacket(pn uint64, now time.Time) *outgoingPacket {
	return &outgoingPacket{packetNumber: pn, timeSent: now}
}

func (p *outgoingPacket) addFrame(f frame) {
	p.frames = append(p.frames, f)
	switch f.(type) {
	case *paddingFrame, *ackFrame, *connectionCloseFrame:
		return
	}
	p.ackEliciting = true
	p.inFlight = true
	p.retransmittable = append(p.retransmittable, f)
	if _, ok := f.(*cryptoFrame); ok {
		p.hasCryptoHandshake = true
	}
}

// recoverySpace is the per-packet-number-space slice of the sent-packet
// manager's state: its own unacked ledger and its own loss-timer deadline.
type recoverySpace struct {
	unacked         *unackedPacketMap
	largestAcked    uint64
	hasLargestAcked bool
	lossTime        time.Time
}

func (s *recoverySpace) reset() {
	s.unacked = newUnackedPacketMap()
	s.largestAcked = 0
	s.hasLargestAcked = false
	s.lossTime = time.Time{}
}

// lossRecovery is the sent-packet manager for one connection: it owns the
// unacked-packet ledger, RTT stats, loss detector and congestion controller,
// and exposes the send gate and the single retransmission timer.
type lossRecovery struct {
	spaces [packetSpaceCount]recoverySpace

	rtt          rttStats
	lossDetector *lossDetector
	cc           congestionController
	pacer        *pacer

	lost  [packetSpaceCount][]frame
	acked [packetSpaceCount][]frame

	maxAckDelay time.Duration
	maxTLPs     int
	ptoCount    int
	probes      int

	lossDetectionTimer time.Time
	hasLossTimeSpace   bool
	lossTimeSpace      packetSpace

	packetsLost uint64
}

func (r *lossRecovery) init(now time.Time, rc RecoveryConfig, cfg CongestionConfig, maxAckDelay time.Duration) {
	for i := range r.spaces {
		r.spaces[i].reset()
	}
	r.rtt.init(rc.InitialRTT)
	r.lossDetector = newLossDetector(rc.LossDetectionType)
	r.maxTLPs = rc.MaxTLPs
	if r.maxTLPs <= 0 {
		r.maxTLPs = 2
	}
	r.maxAckDelay = maxAckDelay
	maxWindow := int(cfg.MaxCongestionWindow) * maxDatagramSize
	var cc congestionController
	if cfg.Algorithm == CongestionFixedRate {
		cc = newFixedRateController(cfg.FixedRateBitsPerSecond)
	} else {
		cc = newCubicSender(cfg.Reno, maxWindow, &r.rtt)
	}
	r.cc = cc
	r.pacer = newPacer(cc)
}

// bytesInFlight sums every space's in-flight bytes, since the congestion
// window is shared across packet number spaces.
func (r *lossRecovery) bytesInFlight() int {
	total := 0
	for i := range r.spaces {
		total += r.spaces[i].unacked.bytesInFlight
	}
	return total
}

// canSend reports whether the pacer/congestion controller currently allow
// one more retransmittable packet to go out.
func (r *lossRecovery) canSend(now time.Time) bool {
	delay := r.pacer.timeUntilSend(r.bytesInFlight(), true, now, r.rtt.smoothedRTT)
	return delay <= 0
}

func (r *lossRecovery) onPacketSent(op *outgoingPacket, space packetSpace) {
	sp := &r.spaces[space]
	info := &sentPacketInfo{
		packetNumber:       op.packetNumber,
		bytesSent:          int(op.size),
		sentTime:           op.timeSent,
		inFlight:           op.inFlight,
		ackEliciting:       op.ackEliciting,
		hasCryptoHandshake: op.hasCryptoHandshake,
		frames:             op.retransmittable,
		transmissionType:   transmissionInitial,
		encryptionLevel:    space,
	}
	sp.unacked.addSent(info)
	r.pacer.onPacketSent(op.packetNumber, int(op.size), op.ackEliciting, op.timeSent)
	r.setLossDetectionTimer(op.timeSent)
}

// onAckReceived processes one received ACK frame: it marks the newly acked
// packet numbers, samples RTT from the newest one, feeds the congestion
// controller, and queues any now-detectable losses.
func (r *lossRecovery) onAckReceived(ranges *rangeSet, ackDelay time.Duration, space packetSpace, now time.Time) {
	sp := &r.spaces[space]
	blocks := ranges.ranges()
	if len(blocks) == 0 {
		return
	}
	largestAcked := blocks[len(blocks)-1].largest
	if !sp.hasLargestAcked || largestAcked > sp.largestAcked {
		sp.hasLargestAcked = true
		sp.largestAcked = largestAcked
	}
	priorInFlight := r.bytesInFlight()
	sampledRTT := false
	for _, blk := range blocks {
		for pn := blk.smallest; pn <= blk.largest; pn++ {
			info := sp.unacked.get(pn)
			if info == nil || info.isUnackable {
				continue
			}
			wasInFlight := info.inFlight
			newest := sp.unacked.onAcked(pn)
			if wasInFlight {
				r.cc.onPacketAcked(info.bytesSent, priorInFlight, now)
			}
			if !newest {
				// An older member of this packet's chain was acked: every
				// newer member we already retransmitted was unnecessary.
				r.lossDetector.onSpuriousRetransmit(sp.unacked.largestSent)
				continue
			}
			r.acked[space] = append(r.acked[space], info.frames...)
			info.frames = nil
			if pn == largestAcked && info.ackEliciting && !sampledRTT {
				r.rtt.update(now.Sub(info.sentTime), ackDelay, now)
				sampledRTT = true
			}
		}
	}
	sp.unacked.cleanup(largestAcked)
	r.ptoCount = 0
	r.detectAndQueueLosses(space, now)
	r.setLossDetectionTimer(now)
}

// detectAndQueueLosses runs the loss detector for one space and appends any
// newly lost packets' retransmittable frames to r.lost[space], invoking the
// congestion controller for each.
func (r *lossRecovery) detectAndQueueLosses(space packetSpace, now time.Time) {
	sp := &r.spaces[space]
	if !sp.hasLargestAcked {
		return
	}
	priorInFlight := r.bytesInFlight()
	lost, nextTimeout := r.lossDetector.detectLosses(sp.unacked, now, &r.rtt, sp.largestAcked, sp.unacked.largestSent)
	sp.lossTime = nextTimeout
	for _, lp := range lost {
		info := sp.unacked.get(lp.packetNumber)
		if info == nil {
			continue
		}
		sp.unacked.removeFromInFlight(lp.packetNumber)
		r.cc.onPacketLost(lp.packetNumber, lp.bytesSent, priorInFlight, now)
		r.lost[space] = append(r.lost[space], info.frames...)
		info.frames = nil
		r.packetsLost++
	}
}

// drainAcked consumes every frame queued as newly acked in this space,
// calling fn for each and clearing the queue.
func (r *lossRecovery) drainAcked(space packetSpace, fn func(frame)) {
	for _, f := range r.acked[space] {
		fn(f)
	}
	r.acked[space] = r.acked[space][:0]
}

// drainLost consumes every frame queued for retransmission in this space.
func (r *lossRecovery) drainLost(space packetSpace, fn func(frame)) {
	for _, f := range r.lost[space] {
		fn(f)
	}
	r.lost[space] = r.lost[space][:0]
}

// dropUnackedData discards a whole packet-number space's ledger: used when
// keys for that space are dropped, or before resending another Initial
// flight after version negotiation or a Retry.
func (r *lossRecovery) dropUnackedData(space packetSpace) {
	r.spaces[space].reset()
	r.lost[space] = nil
	r.acked[space] = nil
}

// oldestInFlight returns the sent time of the oldest ack-eliciting in-flight
// packet in space, used to anchor PTO/RTO deadlines.
func (r *lossRecovery) oldestInFlight(space packetSpace) (time.Time, bool) {
	sp := &r.spaces[space]
	var oldest time.Time
	found := false
	sp.unacked.iterInOrder(sp.unacked.minUnacked, sp.unacked.largestSent, func(info *sentPacketInfo) {
		if !info.inFlight || !info.ackEliciting {
			return
		}
		if !found || info.sentTime.Before(oldest) {
			oldest = info.sentTime
			found = true
		}
	})
	return oldest, found
}

// probeTimeout is the current PTO duration: smoothedRTT + max(4*meanDeviation,
// 1ms) + maxAckDelay, floored at 200ms, per RFC 9002's formula. It is used
// both to arm the TLP/RTO timer and (tripled) to size the draining period.
func (r *lossRecovery) probeTimeout() time.Duration {
	meanDevFloor := 4 * r.rtt.meanDeviation
	if meanDevFloor < time.Millisecond {
		meanDevFloor = time.Millisecond
	}
	pto := r.rtt.smoothedRTT + meanDevFloor + r.maxAckDelay
	if pto < 200*time.Millisecond {
		pto = 200 * time.Millisecond
	}
	return pto
}

// setLossDetectionTimer picks the single retransmission-alarm deadline,
// trying in priority order: handshake timer, loss timer, TLP, RTO.
func (r *lossRecovery) setLossDetectionTimer(now time.Time) {
	r.hasLossTimeSpace = false
	r.lossDetectionTimer = time.Time{}

	// 1. Handshake timer: 2*smoothedRTT while a crypto-handshake packet is
	// outstanding in Initial or Handshake space.
	for _, space := range [...]packetSpace{packetSpaceInitial, packetSpaceHandshake} {
		if t, ok := r.oldestInFlight(space); ok {
			r.arm(t.Add(2 * r.rtt.smoothedRTT))
			return
		}
	}

	// 2. Loss timer: earliest deadline any space's loss detector armed.
	for space := packetSpaceInitial; space < packetSpaceCount; space++ {
		lt := r.spaces[space].lossTime
		if lt.IsZero() {
			continue
		}
		if r.lossDetectionTimer.IsZero() || lt.Before(r.lossDetectionTimer) {
			r.lossDetectionTimer = lt
			r.hasLossTimeSpace = true
			r.lossTimeSpace = space
		}
	}
	if r.hasLossTimeSpace {
		return
	}

	// 3/4. TLP while probes remain, then RTO with exponential backoff.
	t, ok := r.oldestInFlight(packetSpaceApplication)
	if !ok {
		t, ok = r.oldestInFlight(packetSpaceHandshake)
	}
	if !ok {
		t, ok = r.oldestInFlight(packetSpaceInitial)
	}
	if !ok {
		return
	}
	if r.ptoCount < r.maxTLPs {
		tlp := 2 * r.rtt.smoothedRTT
		alt := r.rtt.smoothedRTT + r.rtt.smoothedRTT/2 + r.maxAckDelay
		if alt > tlp {
			tlp = alt
		}
		r.arm(t.Add(tlp))
		return
	}
	backoff := uint(r.ptoCount - r.maxTLPs + 1)
	if backoff > 16 {
		backoff = 16
	}
	r.arm(t.Add(r.probeTimeout() << backoff))
}

func (r *lossRecovery) arm(deadline time.Time) {
	r.lossDetectionTimer = deadline
}

// onLossDetectionTimeout fires the single retransmission alarm: either a
// loss-timer expiry (declare losses) or a PTO (send a probe and, past
// maxTLPs, reset cwnd as an RTO would).
func (r *lossRecovery) onLossDetectionTimeout(now time.Time) {
	if r.lossDetectionTimer.IsZero() || now.Before(r.lossDetectionTimer) {
		return
	}
	if r.hasLossTimeSpace {
		r.detectAndQueueLosses(r.lossTimeSpace, now)
		r.setLossDetectionTimer(now)
		return
	}
	r.ptoCount++
	r.probes++
	if r.ptoCount > r.maxTLPs {
		r.cc.onRetransmissionTimeout(1)
		r.queueProbeRetransmission(now)
	}
	r.setLossDetectionTimer(now)
}

// queueProbeRetransmission re-queues the oldest outstanding retransmittable
// frames (across spaces, handshake first) so the next Read() call resends
// real data alongside the PING probe, instead of only padding.
func (r *lossRecovery) queueProbeRetransmission(now time.Time) {
	for space := packetSpaceInitial; space < packetSpaceCount; space++ {
		sp := &r.spaces[space]
		pn, ok := oldestRetransmittable(sp.unacked, sp.unacked.minUnacked, sp.unacked.largestSent)
		if !ok {
			continue
		}
		info := sp.unacked.get(pn)
		sp.unacked.removeFromInFlight(pn)
		r.lost[space] = append(r.lost[space], info.frames...)
		info.frames = nil
		return
	}
}
