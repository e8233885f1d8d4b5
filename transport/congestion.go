package transport

import "time"

// CongestionAlgorithm selects a congestionController implementation.
type CongestionAlgorithm int

const (
	// CongestionCubic runs TCP-Cubic congestion control (or plain Reno
	// additive increase, when CongestionConfig.Reno is set).
	CongestionCubic CongestionAlgorithm = iota
	// CongestionFixedRate runs a constant-bitrate leaky bucket, used for
	// testing and for links where congestion signals are not meaningful.
	CongestionFixedRate
)

// maxDatagramSize is this module's MSS: the largest plaintext payload one
// packet carries, matching packet.MaxPacketSize minus typical header and
// AEAD overhead.
const maxDatagramSize = 1350

// minCongestionWindowPackets is the floor cwnd is never reduced below, in
// packets of maxDatagramSize bytes.
const minCongestionWindowPackets = 2

// congestionController is the interface the sent-packet manager drives;
// both the fixed-rate and the cubic/reno implementations satisfy it.
type congestionController interface {
	onPacketSent(packetNumber uint64, bytesSent int, isRetransmittable bool, now time.Time)
	onPacketAcked(bytesAcked int, priorInFlight int, now time.Time)
	onPacketLost(packetNumber uint64, bytesLost int, priorInFlight int, now time.Time)
	onRetransmissionTimeout(packetsRetransmitted int)
	timeUntilSend(bytesInFlight int, hasRetransmittable bool, now time.Time) time.Duration
	bandwidthEstimate(srtt time.Duration) uint64 // bytes/sec
	congestionWindow() int                       // bytes
	// inRecovery reports whether the controller is still in a loss-recovery
	// epoch (used by PRR's send gate).
	inRecovery() bool
}

// fixedRateController is a leaky bucket draining at a configured constant
// rate, used for testing and as the CongestionFixedRate baseline.
type fixedRateController struct {
	bitsPerSecond uint64
	burst         int // bytes
	bucket        int // bytes of credit available
	lastRefill    time.Time
}

func newFixedRateController(bitsPerSecond uint64) *fixedRateController {
	burst := int(bitsPerSecond / 8 * uint64(10*time.Millisecond) / uint64(time.Second))
	if burst < maxDatagramSize {
		burst = maxDatagramSize
	}
	return &fixedRateController{
		bitsPerSecond: bitsPerSecond,
		burst:         burst,
		bucket:        burst,
	}
}

func (c *fixedRateController) refill(now time.Time) {
	if c.lastRefill.IsZero() {
		c.lastRefill = now
		return
	}
	elapsed := now.Sub(c.lastRefill)
	if elapsed <= 0 {
		return
	}
	added := int(uint64(elapsed) * c.bitsPerSecond / 8 / uint64(time.Second))
	c.bucket += added
	if c.bucket > c.burst {
		c.bucket = c.burst
	}
	c.lastRefill = now
}

func (c *fixedRateController) onPacketSent(packetNumber uint64, bytesSent int, isRetransmittable bool, now time.Time) {
	c.refill(now)
	c.bucket -= bytesSent
}

func (c *fixedRateController) onPacketAcked(bytesAcked int, priorInFlight int, now time.Time) {}

func (c *fixedRateController) onPacketLost(packetNumber uint64, bytesLost int, priorInFlight int, now time.Time) {
}

func (c *fixedRateController) onRetransmissionTimeout(packetsRetransmitted int) {}

func (c *fixedRateController) timeUntilSend(bytesInFlight int, hasRetransmittable bool, now time.Time) time.Duration {
	c.refill(now)
	if c.bucket >= maxDatagramSize {
		return 0
	}
	// Time until enough bytes have drained back in, one MSS worth.
	deficit := maxDatagramSize - c.bucket
	nanos := uint64(deficit) * 8 * uint64(time.Second) / c.bitsPerSecond
	return time.Duration(nanos)
}

func (c *fixedRateController) bandwidthEstimate(time.Duration) uint64 { return c.bitsPerSecond / 8 }
func (c *fixedRateController) congestionWindow() int                 { return c.burst }
func (c *fixedRateController) inRecovery() bool                      { return false }

// hybridSlowStart implements the exit-slow-start-early heuristic from
// tcp_cubic_sender: once round-trip samples inside the current round start
// increasing, slow start is likely about to overshoot, so exit early
// instead of waiting for a loss.
type hybridSlowStart struct {
	started      bool
	endRound     uint64 // packet number marking the end of the current round
	rttSample    time.Duration
	ackCount     int
	hystartFound bool
}

const (
	hybridStartLowWindow   = 16 // MSS; below this, hybrid slow start is not armed
	hybridStartMinSamples  = 8
	hybridStartDelayFactor = 8 // RTT increase threshold = minRTT/8
)

func (h *hybridSlowStart) startReceiveRound(lastSent uint64) {
	h.endRound = lastSent
	h.ackCount = 0
	h.rttSample = 0
	h.started = true
}

func (h *hybridSlowStart) isEndOfRound(ackedPacket uint64) bool {
	return ackedPacket >= h.endRound
}

// shouldExit reports whether slow start should end because RTT has started
// climbing within this round, the same signal EndOfRound/Update apply in
// the original sender.
func (h *hybridSlowStart) shouldExit(latestRTT, minRTT time.Duration, cwnd int) bool {
	if cwnd < hybridStartLowWindow*maxDatagramSize {
		return false
	}
	h.ackCount++
	if h.rttSample == 0 || latestRTT < h.rttSample {
		h.rttSample = latestRTT
	}
	if h.ackCount < hybridStartMinSamples {
		return false
	}
	threshold := minRTT / hybridStartDelayFactor
	if threshold < time.Millisecond {
		threshold = time.Millisecond
	}
	if h.rttSample > minRTT+threshold {
		h.hystartFound = true
		return true
	}
	return false
}

func (h *hybridSlowStart) restart() {
	h.started = false
	h.hystartFound = false
	h.ackCount = 0
	h.rttSample = 0
}

// cubicSender implements TCP-Cubic (RFC 8312-style) with PRR-based recovery
// and a hybrid slow-start exit, mirroring tcp_cubic_sender.cc.
type cubicSender struct {
	reno bool
	rtt  *rttStats

	cwnd                int // bytes
	ssthresh            int // bytes
	maxCongestionWindow int // bytes, configured cap

	slowStart hybridSlowStart

	// Cubic curve state.
	epochStart        time.Time
	originPointCwnd   int
	lastMaxCwnd       int
	timeToOriginPoint float64
	lastTargetCwnd    int

	// Loss-epoch coalescing.
	largestSentAtLastCutback uint64
	largestSent              uint64
	inRecoveryEpoch          bool

	// PRR state (RFC 6937).
	bytesInFlightBeforeLoss int
	prrDelivered            int
	prrSent                 int
	ackedSinceLoss          int
}

const (
	cubicBeta = 0.7
	cubicC    = 0.4
)

func newCubicSender(reno bool, maxCongestionWindow int, rtt *rttStats) *cubicSender {
	if maxCongestionWindow <= 0 {
		maxCongestionWindow = 2000 * maxDatagramSize
	}
	return &cubicSender{
		reno:                reno,
		rtt:                 rtt,
		cwnd:                10 * maxDatagramSize,
		ssthresh:            maxCongestionWindow,
		maxCongestionWindow: maxCongestionWindow,
	}
}

func (c *cubicSender) inSlowStart() bool { return c.cwnd < c.ssthresh }

func (c *cubicSender) onPacketSent(packetNumber uint64, bytesSent int, isRetransmittable bool, now time.Time) {
	// largestSent tracks real packet numbers, not merely a count of
	// retransmittable packets, so the epoch-coalescing comparison in
	// onPacketLost stays meaningful even when ack-only or padding-only
	// packets are interleaved with retransmittable ones.
	c.largestSent = packetNumber
	if !isRetransmittable {
		return
	}
	if !c.inRecovery() {
		return
	}
	c.prrSent += bytesSent
}

func (c *cubicSender) onPacketAcked(bytesAcked int, priorInFlight int, now time.Time) {
	if c.inRecoveryEpoch {
		c.prrDelivered += bytesAcked
	}
	if c.inSlowStart() {
		if c.slowStart.shouldExit(c.rtt.latestRTT, c.rtt.minRTT, c.cwnd) {
			c.ssthresh = c.cwnd
		}
		c.cwnd += bytesAcked
		if c.cwnd > c.maxCongestionWindow {
			c.cwnd = c.maxCongestionWindow
		}
		return
	}
	if c.reno {
		// cwnd += MSS/cwnd per ack, scaled to bytes.
		c.cwnd += maxDatagramSize * maxDatagramSize / c.cwnd
	} else {
		target := c.cubicNext(now)
		if target > c.cwnd {
			c.cwnd = target
		} else {
			c.cwnd += maxDatagramSize * maxDatagramSize / c.cwnd
		}
	}
	if c.cwnd > c.maxCongestionWindow {
		c.cwnd = c.maxCongestionWindow
	}
}

// cubicNext evaluates the Cubic growth curve: W(t) = C*(t-K)^3 + Wmax.
func (c *cubicSender) cubicNext(now time.Time) int {
	if c.epochStart.IsZero() {
		c.epochStart = now
		c.originPointCwnd = c.cwnd
		if c.lastMaxCwnd <= c.cwnd {
			c.lastMaxCwnd = c.cwnd
			c.timeToOriginPoint = 0
		} else {
			c.timeToOriginPoint = cubeRoot(float64(c.lastMaxCwnd-c.cwnd) / cubicC / float64(maxDatagramSize))
		}
	}
	elapsed := now.Sub(c.epochStart).Seconds()
	t := elapsed - c.timeToOriginPoint
	delta := cubicC * t * t * t * float64(maxDatagramSize)
	target := float64(c.originPointCwnd) + delta
	if target < 0 {
		target = 0
	}
	c.lastTargetCwnd = int(target)
	return c.lastTargetCwnd
}

func cubeRoot(v float64) float64 {
	if v <= 0 {
		return 0
	}
	// Newton's method from x = v, run for a fixed 32 iterations.
	x := v
	for i := 0; i < 32; i++ {
		x = x - (x*x*x-v)/(3*x*x)
	}
	return x
}

func (c *cubicSender) onPacketLost(packetNumber uint64, bytesLost int, priorInFlight int, now time.Time) {
	// Coalesce further losses within the same recovery epoch.
	if packetNumber <= c.largestSentAtLastCutback && c.inRecoveryEpoch {
		return
	}
	c.inRecoveryEpoch = true
	c.largestSentAtLastCutback = c.largestSent
	c.bytesInFlightBeforeLoss = priorInFlight
	c.prrDelivered = 0
	c.prrSent = 0
	c.ackedSinceLoss = 0

	c.lastMaxCwnd = c.cwnd
	c.ssthresh = int(float64(c.cwnd) * cubicBeta)
	if c.ssthresh < minCongestionWindowPackets*maxDatagramSize {
		c.ssthresh = minCongestionWindowPackets * maxDatagramSize
	}
	c.cwnd = c.ssthresh
	c.epochStart = time.Time{}
	c.slowStart.restart()
}

func (c *cubicSender) onRetransmissionTimeout(packetsRetransmitted int) {
	if packetsRetransmitted == 0 {
		return
	}
	c.cwnd = minCongestionWindowPackets * maxDatagramSize
	c.epochStart = time.Time{}
	c.lastMaxCwnd = 0
	c.inRecoveryEpoch = false
	c.slowStart.restart()
}

func (c *cubicSender) inRecovery() bool {
	return c.inRecoveryEpoch && c.largestSent <= c.largestSentAtLastCutback+uint64(c.bytesInFlightBeforeLoss/maxDatagramSize)
}

// timeUntilSend implements PRR-SSRB: during recovery, only send when the
// proportional-rate-reduction allowance (plus a one-MSS floor) is positive;
// otherwise fall back to the plain available-congestion-window check.
func (c *cubicSender) timeUntilSend(bytesInFlight int, hasRetransmittable bool, now time.Time) time.Duration {
	if c.inRecoveryEpoch && bytesInFlight > 0 {
		allowance := 0
		if c.bytesInFlightBeforeLoss > 0 {
			allowance = c.prrDelivered*c.ssthresh/c.bytesInFlightBeforeLoss - c.prrSent
		}
		if bytesInFlight < c.cwnd {
			// PRR-SSRB: never stall entirely, allow one more MSS.
			allowance += maxDatagramSize
		}
		if allowance > 0 {
			return 0
		}
		if !hasRetransmittable {
			return 0
		}
		return time.Hour // blocked until next ack/loss event recomputes this
	}
	if bytesInFlight >= c.cwnd {
		return time.Hour
	}
	return 0
}

func (c *cubicSender) bandwidthEstimate(srtt time.Duration) uint64 {
	if srtt <= 0 {
		return 0
	}
	return uint64(c.cwnd) * uint64(time.Second) / uint64(srtt)
}

func (c *cubicSender) congestionWindow() int { return c.cwnd }
