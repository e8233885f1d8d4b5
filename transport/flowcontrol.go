package transport

// flowControlWindowCap bounds how large auto-tuning may grow a single
// window, so a fast-consuming peer can't make an endpoint commit unbounded
// receive buffer space.
const flowControlWindowCap = 16 << 20 // 16 MiB

// flowControl implements one flow-controlled limit, either a connection's
// or a single stream's, including the receive window's auto-tuning.
type flowControl struct {
	// Receive side: what we allow the peer to send us.
	maxRecv             uint64 // window currently advertised to the peer
	maxRecvNext         uint64 // window to advertise once committed
	received            uint64 // total bytes received so far
	consumedSinceUpdate uint64
	windowUpdates       int

	// Send side: what the peer allows us to send it.
	maxSend uint64
	sent    uint64

	// blockedSent records that a BLOCKED frame has been sent for the
	// current limit, so it is not repeated until the limit advances.
	blockedSent bool
}

func (f *flowControl) init(maxRecv, maxSend uint64) {
	f.maxRecv = maxRecv
	f.maxRecvNext = maxRecv
	f.maxSend = maxSend
}

// canRecv is how many more bytes the peer may still send under the window
// we have already committed to (not maxRecvNext, which isn't advertised
// until commitMaxRecv runs).
func (f *flowControl) canRecv() uint64 {
	if f.received >= f.maxRecv {
		return 0
	}
	return f.maxRecv - f.received
}

// addRecv records n newly received bytes and grows maxRecvNext each time the
// peer has consumed another half of the current window: by half a window on
// the first such update and by a whole window (doubling it) on every later
// one, up to flowControlWindowCap. The time between updates is not
// considered.
func (f *flowControl) addRecv(n int) {
	f.received += uint64(n)
	f.consumedSinceUpdate += uint64(n)
	half := f.maxRecv / 2
	if half == 0 || f.consumedSinceUpdate < half {
		return
	}
	f.consumedSinceUpdate = 0
	f.windowUpdates++
	grow := half
	if f.windowUpdates > 1 {
		grow = f.maxRecv
	}
	next := f.maxRecvNext + grow
	if next > flowControlWindowCap {
		next = flowControlWindowCap
	}
	if next > f.maxRecvNext {
		f.maxRecvNext = next
	}
}

func (f *flowControl) shouldUpdateMaxRecv() bool {
	return f.maxRecvNext > f.maxRecv
}

func (f *flowControl) commitMaxRecv() {
	f.maxRecv = f.maxRecvNext
}

// canSend is how many more bytes we may still send under the peer's
// granted window.
func (f *flowControl) canSend() uint64 {
	if f.sent >= f.maxSend {
		return 0
	}
	return f.maxSend - f.sent
}

func (f *flowControl) addSend(n int) {
	f.sent += uint64(n)
}

// setMaxSend raises the send limit from a MAX_DATA/MAX_STREAM_DATA frame;
// these are only ever increases, so a stale or reordered frame is a no-op.
func (f *flowControl) setMaxSend(v uint64) {
	if v > f.maxSend {
		f.maxSend = v
		f.blockedSent = false
	}
}

// shouldSendBlocked reports whether the peer should be told sending is
// gated at the current limit: true only the first time per limit value.
func (f *flowControl) shouldSendBlocked() bool {
	return f.sent >= f.maxSend && !f.blockedSent
}

func (f *flowControl) setBlockedSent() {
	f.blockedSent = true
}
