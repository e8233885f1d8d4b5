package transport

import "time"

// schedulingWindow is the wrapped controller's delay above which the pacer
// returns that delay as is, without consulting its own leaky bucket.
const schedulingWindow = 2 * time.Millisecond

// pacerBurstMSS is the leaky bucket's burst allowance, in MSS units.
const pacerBurstMSS = 2

// pacer spreads a congestion controller's permitted bytes over time instead
// of releasing a whole window at once, the way a real link's own queueing
// would. It wraps a congestionController and is driven the same way.
type pacer struct {
	cc congestionController

	budget     int // bytes of send credit currently available
	lastUpdate time.Time
}

func newPacer(cc congestionController) *pacer {
	return &pacer{cc: cc, budget: pacerBurstMSS * maxDatagramSize}
}

func (p *pacer) refill(now time.Time, srtt time.Duration) {
	if p.lastUpdate.IsZero() {
		p.lastUpdate = now
		return
	}
	elapsed := now.Sub(p.lastUpdate)
	if elapsed <= 0 {
		return
	}
	rate := p.rate(srtt)
	if rate > 0 {
		p.budget += int(uint64(elapsed) * rate / uint64(time.Second))
	}
	cap := pacerBurstMSS * maxDatagramSize
	if p.budget > cap {
		p.budget = cap
	}
	p.lastUpdate = now
}

// rate is the pacer's drain rate in bytes/sec: the controller's own
// bandwidth estimate when available, else cwnd/smoothedRTT.
func (p *pacer) rate(srtt time.Duration) uint64 {
	if bw := p.cc.bandwidthEstimate(srtt); bw > 0 {
		return bw
	}
	if srtt <= 0 {
		return 0
	}
	return uint64(p.cc.congestionWindow()) * uint64(time.Second) / uint64(srtt)
}

func (p *pacer) onPacketSent(packetNumber uint64, bytesSent int, isRetransmittable bool, now time.Time) {
	p.cc.onPacketSent(packetNumber, bytesSent, isRetransmittable, now)
	p.budget -= bytesSent
}

// timeUntilSend returns how long to wait before the next packet may be
// paced out. A controller delay beyond the scheduling window is returned
// unchanged; otherwise the result is the larger of the controller's delay
// and the leaky bucket's own refill time.
func (p *pacer) timeUntilSend(bytesInFlight int, hasRetransmittable bool, now time.Time, srtt time.Duration) time.Duration {
	ccDelay := p.cc.timeUntilSend(bytesInFlight, hasRetransmittable, now)
	if ccDelay > schedulingWindow {
		return ccDelay
	}
	p.refill(now, srtt)
	if p.budget > 0 {
		return ccDelay
	}
	rate := p.rate(srtt)
	if rate == 0 {
		return ccDelay
	}
	deficit := -p.budget
	bucketDelay := time.Duration(uint64(deficit) * uint64(time.Second) / rate)
	if bucketDelay > ccDelay {
		return bucketDelay
	}
	return ccDelay
}
