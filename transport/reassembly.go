package transport

import "sort"

// sendBuffer holds bytes an endpoint has written to a stream (or the crypto
// stream) until they are acknowledged. It hands out unsent bytes through
// popSend, and can be rewound by push when a frame carrying some of that
// data is detected lost.
type sendBuffer struct {
	data []byte // buffered bytes; data[i] is stream offset base+i
	base uint64

	sent  uint64 // absolute offset up to which bytes have been handed out at least once
	acked *rangeSet

	finSet    bool
	finOffset uint64
	finAcked  bool
}

func (s *sendBuffer) init() {
	s.acked = newRangeSet()
	s.sent = s.base
}

// write appends application bytes to the buffer.
func (s *sendBuffer) write(b []byte) (int, error) {
	if s.finSet {
		return 0, newError(StreamStateError, "write after close")
	}
	s.data = append(s.data, b...)
	return len(b), nil
}

// close marks the stream as having no more data beyond what's buffered.
func (s *sendBuffer) close() {
	if !s.finSet {
		s.finSet = true
		s.finOffset = s.base + uint64(len(s.data))
	}
}

// push re-queues data for sending, used when a previously sent range is
// declared lost. Since the bytes are already present in the buffer, this
// only needs to rewind the send cursor.
func (s *sendBuffer) push(data []byte, offset uint64, fin bool) error {
	if offset < s.sent {
		s.sent = offset
	}
	return nil
}

// popSend returns up to max bytes of not-yet-sent data, advancing the send
// cursor, along with the stream offset of the returned bytes and whether
// this chunk reaches the stream's final size.
func (s *sendBuffer) popSend(max int) ([]byte, uint64, bool) {
	avail := s.base + uint64(len(s.data)) - s.sent
	n := uint64(max)
	if n > avail {
		n = avail
	}
	if n == 0 {
		if s.finSet && s.sent == s.finOffset && !s.finAcked {
			return nil, s.sent, true
		}
		return nil, s.sent, false
	}
	start := s.sent - s.base
	out := s.data[start : start+n]
	offset := s.sent
	s.sent += n
	fin := s.finSet && s.sent == s.finOffset
	return out, offset, fin
}

// ack records that [offset, offset+length) has been confirmed received by
// the peer.
func (s *sendBuffer) ack(offset, length uint64) {
	if length == 0 {
		if s.finSet && offset == s.finOffset {
			s.finAcked = true
		}
		return
	}
	s.acked.add(offset, offset+length-1)
	if s.finSet && offset+length == s.finOffset {
		s.finAcked = true
	}
	s.compact()
}

// compact drops a prefix of data that has been fully acknowledged so the
// buffer does not grow without bound.
func (s *sendBuffer) compact() {
	for _, r := range s.acked.ranges() {
		if r.smallest > s.base {
			break
		}
		if r.largest < s.base {
			continue
		}
		n := r.largest + 1 - s.base
		if n > uint64(len(s.data)) {
			n = uint64(len(s.data))
		}
		s.data = s.data[n:]
		s.base += n
		break
	}
}

// complete reports whether every byte written (including the fin) has been
// acknowledged.
func (s *sendBuffer) complete() bool {
	if !s.finSet {
		return false
	}
	return s.finAcked
}

// recvBuffer reassembles a byte stream delivered out of order, as STREAM
// and CRYPTO frames are received.
type recvBuffer struct {
	data   []byte // contiguous bytes available to read, ending at offset
	offset uint64 // stream offset just past the last contiguous byte received

	pending []byteChunk // out-of-order chunks not yet contiguous

	finSet  bool
	finSize uint64
}

type byteChunk struct {
	offset uint64
	data   []byte
}

// pushRecv inserts a received chunk, merging it into the contiguous prefix
// when possible.
func (s *recvBuffer) pushRecv(data []byte, offset uint64, fin bool) error {
	if fin {
		finSize := offset + uint64(len(data))
		if s.finSet && s.finSize != finSize {
			return newError(FinalSizeError, "")
		}
		s.finSet = true
		s.finSize = finSize
	} else if s.finSet && offset+uint64(len(data)) > s.finSize {
		return newError(FinalSizeError, "")
	}
	if len(data) == 0 {
		return nil
	}
	end := offset + uint64(len(data))
	if end <= s.offset {
		return nil // fully duplicate
	}
	if offset < s.offset {
		data = data[s.offset-offset:]
		offset = s.offset
	}
	if offset == s.offset {
		s.data = append(s.data, data...)
		s.offset += uint64(len(data))
		s.drainPending()
		return nil
	}
	s.pending = append(s.pending, byteChunk{offset: offset, data: data})
	sort.Slice(s.pending, func(i, j int) bool { return s.pending[i].offset < s.pending[j].offset })
	return nil
}

// drainPending consumes any buffered out-of-order chunks that have become
// contiguous with the read offset.
func (s *recvBuffer) drainPending() {
	for len(s.pending) > 0 {
		c := s.pending[0]
		if c.offset > s.offset {
			break
		}
		s.pending = s.pending[1:]
		end := c.offset + uint64(len(c.data))
		if end <= s.offset {
			continue
		}
		c.data = c.data[s.offset-c.offset:]
		s.data = append(s.data, c.data...)
		s.offset += uint64(len(c.data))
	}
}

// read copies contiguous bytes into b and reports whether the stream ended.
func (s *recvBuffer) read(b []byte) (int, bool) {
	n := copy(b, s.data)
	s.data = s.data[n:]
	fin := s.finSet && len(s.data) == 0 && len(s.pending) == 0 && s.offset == s.finSize
	return n, fin
}

func (s *recvBuffer) String() string {
	return "recv offset=" + itoa(s.offset)
}

func itoa(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}

// reset marks the receive side as abruptly terminated at finalSize,
// returning how many additional bytes the flow controller should credit
// (any bytes beyond what was already accounted for by received data).
func (s *recvBuffer) reset(finalSize uint64) (int, error) {
	if s.finSet && s.finSize != finalSize {
		return 0, newError(FinalSizeError, "")
	}
	if finalSize < s.offset {
		return 0, newError(FinalSizeError, "")
	}
	extra := finalSize - s.offset
	s.finSet = true
	s.finSize = finalSize
	return int(extra), nil
}

// cryptoStream carries TLS handshake bytes for one packet number space.
type cryptoStream struct {
	send sendBuffer
	recv recvBuffer
}

func (s *cryptoStream) init() {
	s.send.init()
}

func (s *cryptoStream) pushRecv(data []byte, offset uint64, fin bool) error {
	return s.recv.pushRecv(data, offset, fin)
}

func (s *cryptoStream) popSend(max int) ([]byte, uint64, bool) {
	return s.send.popSend(max)
}
