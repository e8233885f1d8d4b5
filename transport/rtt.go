package transport

import "time"

// rttStats tracks smoothed, latest, minimum and mean-deviation round-trip
// time for one connection, following the standard QUIC/TCP RTT estimator.
// https://quicwg.org/base-drafts/draft-ietf-quic-recovery.html#rtt-estimation
type rttStats struct {
	latestRTT     time.Duration
	smoothedRTT   time.Duration
	previousSRTT  time.Duration
	minRTT        time.Duration
	meanDeviation time.Duration
	hasMinRTT     bool
	hasSample     bool
}

func (s *rttStats) init(initialRTT time.Duration) {
	s.smoothedRTT = initialRTT
	s.latestRTT = initialRTT
}

// update records one RTT sample: sendDelta is now-sentTime and ackDelay is
// the peer-reported delay between receiving the packet and sending the ack.
func (s *rttStats) update(sendDelta, ackDelay time.Duration, now time.Time) {
	if sendDelta <= 0 {
		return
	}
	s.previousSRTT = s.smoothedRTT
	if !s.hasMinRTT || sendDelta < s.minRTT {
		s.minRTT = sendDelta
		s.hasMinRTT = true
	}
	latest := sendDelta
	if ackDelay > 0 && ackDelay < sendDelta {
		latest = sendDelta - ackDelay
		if latest < time.Microsecond {
			latest = time.Microsecond
		}
	}
	s.latestRTT = latest
	if !s.hasSample {
		s.smoothedRTT = latest
		s.meanDeviation = latest / 2
		s.hasSample = true
		return
	}
	diff := s.smoothedRTT - latest
	if diff < 0 {
		diff = -diff
	}
	s.meanDeviation = (s.meanDeviation*3 + diff) / 4
	s.smoothedRTT = (s.smoothedRTT*7 + latest) / 8
}

// maxRTT returns the greater of the previous smoothed RTT and the most
// recent sample, the `max_rtt` term the loss detector's time-threshold
// rule uses.
func (s *rttStats) maxRTT() time.Duration {
	if s.previousSRTT > s.latestRTT {
		return s.previousSRTT
	}
	return s.latestRTT
}

// pto is the probe-timeout base: smoothedRTT + 4*meanDeviation, with a
// configurable floor applied by the caller.
func (s *rttStats) pto() time.Duration {
	return s.smoothedRTT + 4*s.meanDeviation
}
