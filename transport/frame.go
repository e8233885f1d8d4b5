package transport

import "fmt"

// Frame type tags. The values match the IETF QUIC v1 registry so that this
// codec's output lines up with widely deployed wire captures, which is
// useful when cross-checking against qlog traces from other
// implementations.
const (
	frameTypePadding       = 0x00
	frameTypePing          = 0x01
	frameTypeAck           = 0x02
	frameTypeAckECN        = 0x03
	frameTypeResetStream   = 0x04
	frameTypeStopSending   = 0x05
	frameTypeCrypto        = 0x06
	frameTypeNewToken      = 0x07
	frameTypeStream        = 0x08
	frameTypeStreamEnd     = 0x0f
	frameTypeMaxData       = 0x10
	frameTypeMaxStreamData = 0x11

	frameTypeMaxStreamsBidi = 0x12
	frameTypeMaxStreamsUni  = 0x13

	frameTypeDataBlocked       = 0x14
	frameTypeStreamDataBlocked = 0x15

	frameTypeStreamsBlockedBidi = 0x16
	frameTypeStreamsBlockedUni  = 0x17

	frameTypeConnectionClose  = 0x1c
	frameTypeApplicationClose = 0x1d
	frameTypeHanshakeDone     = 0x1e

	// frameTypeGoAway occupies a private-use codepoint (the IETF QUIC v1
	// registry has no GOAWAY frame; transport-layer GOAWAY was replaced by
	// MAX_STREAMS, but this module keeps an explicit GOAWAY so a server
	// can tell a client to stop opening new requests and name the last
	// one it will still service).
	frameTypeGoAway = 0x30
)

// STREAM frame flag bits, ORed into frameTypeStream.
const (
	streamFlagFin = 0x01
	streamFlagLen = 0x02
	streamFlagOff = 0x04
)

const (
	maxCryptoFrameOverhead = 1 + 8 + 2 // type + offset varint (worst case) + length varint
	maxStreamFrameOverhead = 1 + 8 + 8 + 2
)

// frame is the common shape every frame kind implements so the packet
// assembler and the unacked-packet map can treat retransmittable payloads
// uniformly without knowing their concrete type.
type frame interface {
	encodedLen() int
	encode(b []byte) (int, error)
}

// isFrameAckEliciting reports whether receiving a frame of this type
// obligates the receiver to eventually send an ACK. PADDING, ACK and
// CONNECTION_CLOSE are not ack-eliciting; everything else is.
func isFrameAckEliciting(typ uint64) bool {
	switch typ {
	case frameTypePadding, frameTypeAck, frameTypeAckECN,
		frameTypeConnectionClose, frameTypeApplicationClose:
		return false
	default:
		return true
	}
}

// --- PADDING ---

type paddingFrame struct {
	length int
}

func newPaddingFrame(length int) *paddingFrame {
	return &paddingFrame{length: length}
}

func (s *paddingFrame) encodedLen() int { return s.length }

func (s *paddingFrame) encode(b []byte) (int, error) {
	if len(b) < s.length {
		return 0, errShortBuffer
	}
	for i := 0; i < s.length; i++ {
		b[i] = frameTypePadding
	}
	return s.length, nil
}

func (s *paddingFrame) decode(b []byte) (int, error) {
	n := 0
	for n < len(b) && b[n] == frameTypePadding {
		n++
	}
	s.length = n
	if n == 0 {
		n = 1 // consume the single byte that dispatched us here
		s.length = 1
	}
	return n, nil
}

// --- PING ---

type pingFrame struct{}

func (s *pingFrame) encodedLen() int { return 1 }

func (s *pingFrame) encode(b []byte) (int, error) {
	if len(b) < 1 {
		return 0, errShortBuffer
	}
	b[0] = frameTypePing
	return 1, nil
}

func (s *pingFrame) decode(b []byte) (int, error) {
	return 1, nil
}

// --- ACK ---

// ackRange is one contiguous run of acknowledged packet numbers,
// [smallest, largest].
type ackRange struct {
	smallest uint64
	largest  uint64
}

type ackFrame struct {
	largestAck    uint64
	ackDelay      uint64 // encoded ufloat16 value, in the exponent units
	firstAckRange uint64
	ranges        []ackRange // additional ranges below firstAckRange, descending
}

// newAckFrame builds an ACK frame from a received-packet set, newest range
// first, covering every packet in recv.
func newAckFrame(ackDelayMicros uint64, recv *rangeSet) *ackFrame {
	f := &ackFrame{ackDelay: encodeUfloat16Micros(ackDelayMicros)}
	ranges := recv.ranges()
	if len(ranges) == 0 {
		return f
	}
	last := ranges[len(ranges)-1]
	f.largestAck = last.largest
	f.firstAckRange = last.largest - last.smallest
	for i := len(ranges) - 2; i >= 0; i-- {
		f.ranges = append(f.ranges, ranges[i])
	}
	return f
}

func encodeUfloat16Micros(v uint64) uint64 {
	return uint64(encodeUfloat16(v))
}

func (s *ackFrame) encodedLen() int {
	n := 1 + varintLen(s.largestAck) + 2 + varintLen(uint64(len(s.ranges))) + varintLen(s.firstAckRange)
	prevSmallest := s.largestAck - s.firstAckRange
	for _, r := range s.ranges {
		n += varintLen(prevSmallest-r.largest-2) + varintLen(r.largest-r.smallest)
		prevSmallest = r.smallest
	}
	return n
}

func (s *ackFrame) encode(b []byte) (int, error) {
	n := s.encodedLen()
	if len(b) < n {
		return 0, errShortBuffer
	}
	pos := 0
	b[pos] = frameTypeAck
	pos++
	pos += putVarint(b[pos:], s.largestAck)
	b[pos] = byte(s.ackDelay >> 8)
	b[pos+1] = byte(s.ackDelay)
	pos += 2
	pos += putVarint(b[pos:], uint64(len(s.ranges)))
	pos += putVarint(b[pos:], s.firstAckRange)
	prevSmallest := s.largestAck - s.firstAckRange
	for _, r := range s.ranges {
		gap := prevSmallest - r.largest - 2
		pos += putVarint(b[pos:], gap)
		pos += putVarint(b[pos:], r.largest-r.smallest)
		prevSmallest = r.smallest
	}
	return pos, nil
}

func (s *ackFrame) decode(b []byte) (int, error) {
	pos := 1
	n := getVarint(b[pos:], &s.largestAck)
	if n == 0 {
		return 0, newError(InvalidAckData, "largest_ack")
	}
	pos += n
	if len(b) < pos+2 {
		return 0, newError(InvalidAckData, "ack_delay")
	}
	s.ackDelay = uint64(b[pos])<<8 | uint64(b[pos+1])
	pos += 2
	var rangeCount uint64
	n = getVarint(b[pos:], &rangeCount)
	if n == 0 {
		return 0, newError(InvalidAckData, "ack_range_count")
	}
	pos += n
	n = getVarint(b[pos:], &s.firstAckRange)
	if n == 0 {
		return 0, newError(InvalidAckData, "first_ack_range")
	}
	pos += n
	if s.firstAckRange > s.largestAck {
		return 0, newError(InvalidAckData, "first_ack_range exceeds largest_ack")
	}
	s.ranges = s.ranges[:0]
	smallest := s.largestAck - s.firstAckRange
	for i := uint64(0); i < rangeCount; i++ {
		var gap, length uint64
		n = getVarint(b[pos:], &gap)
		if n == 0 {
			return 0, newError(InvalidAckData, "gap")
		}
		pos += n
		n = getVarint(b[pos:], &length)
		if n == 0 {
			return 0, newError(InvalidAckData, "ack_range_length")
		}
		pos += n
		if smallest < gap+2 {
			return 0, newError(InvalidAckData, "gap underflow")
		}
		largest := smallest - gap - 2
		if length > largest {
			return 0, newError(InvalidAckData, "ack_range_length")
		}
		smallest = largest - length
		s.ranges = append(s.ranges, ackRange{smallest: smallest, largest: largest})
	}
	return pos, nil
}

// toRangeSet expands the frame's ranges (including the first) into a
// rangeSet of newly-described acknowledged packet numbers, ascending.
func (s *ackFrame) toRangeSet() *rangeSet {
	rs := newRangeSet()
	rs.add(s.largestAck-s.firstAckRange, s.largestAck)
	for _, r := range s.ranges {
		rs.add(r.smallest, r.largest)
	}
	return rs
}

func (s *ackFrame) String() string {
	return fmt.Sprintf("largest_ack=%d ack_delay=%d ranges=%d", s.largestAck, s.ackDelay, len(s.ranges))
}

// --- RESET_STREAM ---

type resetStreamFrame struct {
	streamID  uint64
	errorCode uint64
	finalSize uint64
}

func newResetStreamFrame(streamID, errorCode, finalSize uint64) *resetStreamFrame {
	return &resetStreamFrame{streamID: streamID, errorCode: errorCode, finalSize: finalSize}
}

func (s *resetStreamFrame) encodedLen() int {
	return 1 + varintLen(s.streamID) + varintLen(s.errorCode) + varintLen(s.finalSize)
}

func (s *resetStreamFrame) encode(b []byte) (int, error) {
	n := s.encodedLen()
	if len(b) < n {
		return 0, errShortBuffer
	}
	pos := 0
	b[pos] = frameTypeResetStream
	pos++
	pos += putVarint(b[pos:], s.streamID)
	pos += putVarint(b[pos:], s.errorCode)
	pos += putVarint(b[pos:], s.finalSize)
	return pos, nil
}

func (s *resetStreamFrame) decode(b []byte) (int, error) {
	pos := 1
	for _, v := range []*uint64{&s.streamID, &s.errorCode, &s.finalSize} {
		n := getVarint(b[pos:], v)
		if n == 0 {
			return 0, newError(InvalidRstStreamData, "")
		}
		pos += n
	}
	return pos, nil
}

func (s *resetStreamFrame) String() string {
	return fmt.Sprintf("stream_id=%d error_code=%d final_size=%d", s.streamID, s.errorCode, s.finalSize)
}

// --- STOP_SENDING ---

type stopSendingFrame struct {
	streamID  uint64
	errorCode uint64
}

func newStopSendingFrame(streamID, errorCode uint64) *stopSendingFrame {
	return &stopSendingFrame{streamID: streamID, errorCode: errorCode}
}

func (s *stopSendingFrame) encodedLen() int {
	return 1 + varintLen(s.streamID) + varintLen(s.errorCode)
}

func (s *stopSendingFrame) encode(b []byte) (int, error) {
	n := s.encodedLen()
	if len(b) < n {
		return 0, errShortBuffer
	}
	pos := 1
	b[0] = frameTypeStopSending
	pos += putVarint(b[pos:], s.streamID)
	pos += putVarint(b[pos:], s.errorCode)
	return pos, nil
}

func (s *stopSendingFrame) decode(b []byte) (int, error) {
	pos := 1
	n := getVarint(b[pos:], &s.streamID)
	if n == 0 {
		return 0, newError(InvalidFrameData, "stop_sending")
	}
	pos += n
	n = getVarint(b[pos:], &s.errorCode)
	if n == 0 {
		return 0, newError(InvalidFrameData, "stop_sending")
	}
	pos += n
	return pos, nil
}

// --- CRYPTO ---

type cryptoFrame struct {
	offset uint64
	data   []byte
}

func newCryptoFrame(data []byte, offset uint64) *cryptoFrame {
	return &cryptoFrame{data: data, offset: offset}
}

func (s *cryptoFrame) encodedLen() int {
	return 1 + varintLen(s.offset) + varintLen(uint64(len(s.data))) + len(s.data)
}

func (s *cryptoFrame) encode(b []byte) (int, error) {
	n := s.encodedLen()
	if len(b) < n {
		return 0, errShortBuffer
	}
	pos := 0
	b[pos] = frameTypeCrypto
	pos++
	pos += putVarint(b[pos:], s.offset)
	pos += putVarint(b[pos:], uint64(len(s.data)))
	pos += copy(b[pos:], s.data)
	return pos, nil
}

func (s *cryptoFrame) decode(b []byte) (int, error) {
	pos := 1
	n := getVarint(b[pos:], &s.offset)
	if n == 0 {
		return 0, newError(InvalidFrameData, "crypto offset")
	}
	pos += n
	var length uint64
	n = getVarint(b[pos:], &length)
	if n == 0 {
		return 0, newError(InvalidFrameData, "crypto length")
	}
	pos += n
	if uint64(len(b)-pos) < length {
		return 0, newError(InvalidFrameData, "crypto data")
	}
	// Copy: the decoder must not retain a slice into the caller's buffer.
	s.data = append([]byte(nil), b[pos:pos+int(length)]...)
	pos += int(length)
	return pos, nil
}

func (s *cryptoFrame) String() string {
	return fmt.Sprintf("offset=%d length=%d", s.offset, len(s.data))
}

// --- NEW_TOKEN ---

type newTokenFrame struct {
	token []byte
}

func newNewTokenFrame(token []byte) *newTokenFrame {
	return &newTokenFrame{token: token}
}

func (s *newTokenFrame) encodedLen() int {
	return 1 + varintLen(uint64(len(s.token))) + len(s.token)
}

func (s *newTokenFrame) encode(b []byte) (int, error) {
	n := s.encodedLen()
	if len(b) < n {
		return 0, errShortBuffer
	}
	pos := 0
	b[pos] = frameTypeNewToken
	pos++
	pos += putVarint(b[pos:], uint64(len(s.token)))
	pos += copy(b[pos:], s.token)
	return pos, nil
}

func (s *newTokenFrame) decode(b []byte) (int, error) {
	pos := 1
	var length uint64
	n := getVarint(b[pos:], &length)
	if n == 0 {
		return 0, newError(InvalidFrameData, "new_token length")
	}
	pos += n
	if uint64(len(b)-pos) < length {
		return 0, newError(InvalidFrameData, "new_token data")
	}
	s.token = append([]byte(nil), b[pos:pos+int(length)]...)
	pos += int(length)
	return pos, nil
}

// --- STREAM ---

type streamFrame struct {
	streamID uint64
	offset   uint64
	fin      bool
	data     []byte
}

func newStreamFrame(streamID uint64, data []byte, offset uint64, fin bool) *streamFrame {
	return &streamFrame{streamID: streamID, offset: offset, fin: fin, data: data}
}

func (s *streamFrame) encodedLen() int {
	n := 1 + varintLen(s.streamID)
	if s.offset > 0 {
		n += varintLen(s.offset)
	}
	n += varintLen(uint64(len(s.data))) + len(s.data)
	return n
}

func (s *streamFrame) encode(b []byte) (int, error) {
	n := s.encodedLen()
	if len(b) < n {
		return 0, errShortBuffer
	}
	typ := byte(frameTypeStream | streamFlagLen)
	if s.fin {
		typ |= streamFlagFin
	}
	if s.offset > 0 {
		typ |= streamFlagOff
	}
	pos := 0
	b[pos] = typ
	pos++
	pos += putVarint(b[pos:], s.streamID)
	if s.offset > 0 {
		pos += putVarint(b[pos:], s.offset)
	}
	pos += putVarint(b[pos:], uint64(len(s.data)))
	pos += copy(b[pos:], s.data)
	return pos, nil
}

func (s *streamFrame) decode(b []byte) (int, error) {
	typ := b[0]
	s.fin = typ&streamFlagFin != 0
	pos := 1
	n := getVarint(b[pos:], &s.streamID)
	if n == 0 {
		return 0, newError(InvalidFrameData, "stream id")
	}
	pos += n
	s.offset = 0
	if typ&streamFlagOff != 0 {
		n = getVarint(b[pos:], &s.offset)
		if n == 0 {
			return 0, newError(InvalidFrameData, "stream offset")
		}
		pos += n
	}
	var length uint64
	if typ&streamFlagLen != 0 {
		n = getVarint(b[pos:], &length)
		if n == 0 {
			return 0, newError(InvalidFrameData, "stream length")
		}
		pos += n
	} else {
		length = uint64(len(b) - pos)
	}
	if uint64(len(b)-pos) < length {
		return 0, newError(InvalidFrameData, "stream data")
	}
	s.data = append([]byte(nil), b[pos:pos+int(length)]...)
	pos += int(length)
	return pos, nil
}

func (s *streamFrame) String() string {
	return fmt.Sprintf("stream_id=%d offset=%d length=%d fin=%v", s.streamID, s.offset, len(s.data), s.fin)
}

// --- MAX_DATA ---

type maxDataFrame struct {
	maximumData uint64
}

func newMaxDataFrame(v uint64) *maxDataFrame { return &maxDataFrame{maximumData: v} }

func (s *maxDataFrame) encodedLen() int { return 1 + varintLen(s.maximumData) }

func (s *maxDataFrame) encode(b []byte) (int, error) {
	n := s.encodedLen()
	if len(b) < n {
		return 0, errShortBuffer
	}
	b[0] = frameTypeMaxData
	putVarint(b[1:], s.maximumData)
	return n, nil
}

func (s *maxDataFrame) decode(b []byte) (int, error) {
	n := getVarint(b[1:], &s.maximumData)
	if n == 0 {
		return 0, newError(InvalidFrameData, "max_data")
	}
	return 1 + n, nil
}

// --- MAX_STREAM_DATA ---

type maxStreamDataFrame struct {
	streamID    uint64
	maximumData uint64
}

func newMaxStreamDataFrame(streamID, v uint64) *maxStreamDataFrame {
	return &maxStreamDataFrame{streamID: streamID, maximumData: v}
}

func (s *maxStreamDataFrame) encodedLen() int {
	return 1 + varintLen(s.streamID) + varintLen(s.maximumData)
}

func (s *maxStreamDataFrame) encode(b []byte) (int, error) {
	n := s.encodedLen()
	if len(b) < n {
		return 0, errShortBuffer
	}
	pos := 0
	b[pos] = frameTypeMaxStreamData
	pos++
	pos += putVarint(b[pos:], s.streamID)
	pos += putVarint(b[pos:], s.maximumData)
	return pos, nil
}

func (s *maxStreamDataFrame) decode(b []byte) (int, error) {
	pos := 1
	n := getVarint(b[pos:], &s.streamID)
	if n == 0 {
		return 0, newError(InvalidFrameData, "max_stream_data")
	}
	pos += n
	n = getVarint(b[pos:], &s.maximumData)
	if n == 0 {
		return 0, newError(InvalidFrameData, "max_stream_data")
	}
	pos += n
	return pos, nil
}

// --- MAX_STREAMS ---

type maxStreamsFrame struct {
	bidi           bool
	maximumStreams uint64
}

func newMaxStreamsFrame(v uint64, bidi bool) *maxStreamsFrame {
	return &maxStreamsFrame{bidi: bidi, maximumStreams: v}
}

func (s *maxStreamsFrame) encodedLen() int { return 1 + varintLen(s.maximumStreams) }

func (s *maxStreamsFrame) encode(b []byte) (int, error) {
	n := s.encodedLen()
	if len(b) < n {
		return 0, errShortBuffer
	}
	if s.bidi {
		b[0] = frameTypeMaxStreamsBidi
	} else {
		b[0] = frameTypeMaxStreamsUni
	}
	putVarint(b[1:], s.maximumStreams)
	return n, nil
}

func (s *maxStreamsFrame) decode(b []byte) (int, error) {
	s.bidi = b[0] == frameTypeMaxStreamsBidi
	n := getVarint(b[1:], &s.maximumStreams)
	if n == 0 {
		return 0, newError(InvalidFrameData, "max_streams")
	}
	return 1 + n, nil
}

// --- DATA_BLOCKED ---

type dataBlockedFrame struct {
	dataLimit uint64
}

func newDataBlockedFrame(v uint64) *dataBlockedFrame { return &dataBlockedFrame{dataLimit: v} }

func (s *dataBlockedFrame) encodedLen() int { return 1 + varintLen(s.dataLimit) }

func (s *dataBlockedFrame) encode(b []byte) (int, error) {
	n := s.encodedLen()
	if len(b) < n {
		return 0, errShortBuffer
	}
	b[0] = frameTypeDataBlocked
	putVarint(b[1:], s.dataLimit)
	return n, nil
}

func (s *dataBlockedFrame) decode(b []byte) (int, error) {
	n := getVarint(b[1:], &s.dataLimit)
	if n == 0 {
		return 0, newError(InvalidFrameData, "data_blocked")
	}
	return 1 + n, nil
}

// --- STREAM_DATA_BLOCKED ---

type streamDataBlockedFrame struct {
	streamID  uint64
	dataLimit uint64
}

func newStreamDataBlockedFrame(streamID, v uint64) *streamDataBlockedFrame {
	return &streamDataBlockedFrame{streamID: streamID, dataLimit: v}
}

func (s *streamDataBlockedFrame) encodedLen() int {
	return 1 + varintLen(s.streamID) + varintLen(s.dataLimit)
}

func (s *streamDataBlockedFrame) encode(b []byte) (int, error) {
	n := s.encodedLen()
	if len(b) < n {
		return 0, errShortBuffer
	}
	pos := 1
	b[0] = frameTypeStreamDataBlocked
	pos += putVarint(b[pos:], s.streamID)
	pos += putVarint(b[pos:], s.dataLimit)
	return pos, nil
}

func (s *streamDataBlockedFrame) decode(b []byte) (int, error) {
	pos := 1
	n := getVarint(b[pos:], &s.streamID)
	if n == 0 {
		return 0, newError(InvalidFrameData, "stream_data_blocked")
	}
	pos += n
	n = getVarint(b[pos:], &s.dataLimit)
	if n == 0 {
		return 0, newError(InvalidFrameData, "stream_data_blocked")
	}
	pos += n
	return pos, nil
}

// --- STREAMS_BLOCKED ---

type streamsBlockedFrame struct {
	bidi        bool
	streamLimit uint64
}

func newStreamsBlockedFrame(v uint64, bidi bool) *streamsBlockedFrame {
	return &streamsBlockedFrame{bidi: bidi, streamLimit: v}
}

func (s *streamsBlockedFrame) encodedLen() int { return 1 + varintLen(s.streamLimit) }

func (s *streamsBlockedFrame) encode(b []byte) (int, error) {
	n := s.encodedLen()
	if len(b) < n {
		return 0, errShortBuffer
	}
	if s.bidi {
		b[0] = frameTypeStreamsBlockedBidi
	} else {
		b[0] = frameTypeStreamsBlockedUni
	}
	putVarint(b[1:], s.streamLimit)
	return n, nil
}

func (s *streamsBlockedFrame) decode(b []byte) (int, error) {
	s.bidi = b[0] == frameTypeStreamsBlockedBidi
	n := getVarint(b[1:], &s.streamLimit)
	if n == 0 {
		return 0, newError(InvalidFrameData, "streams_blocked")
	}
	return 1 + n, nil
}

// --- CONNECTION_CLOSE ---

type connectionCloseFrame struct {
	application  bool
	errorCode    uint64
	frameType    uint64
	reasonPhrase []byte
}

func newConnectionCloseFrame(errorCode, frameType uint64, reason []byte, application bool) *connectionCloseFrame {
	return &connectionCloseFrame{application: application, errorCode: errorCode, frameType: frameType, reasonPhrase: reason}
}

func (s *connectionCloseFrame) encodedLen() int {
	n := 1 + varintLen(s.errorCode)
	if !s.application {
		n += varintLen(s.frameType)
	}
	n += varintLen(uint64(len(s.reasonPhrase))) + len(s.reasonPhrase)
	return n
}

func (s *connectionCloseFrame) encode(b []byte) (int, error) {
	n := s.encodedLen()
	if len(b) < n {
		return 0, errShortBuffer
	}
	pos := 0
	if s.application {
		b[pos] = frameTypeApplicationClose
	} else {
		b[pos] = frameTypeConnectionClose
	}
	pos++
	pos += putVarint(b[pos:], s.errorCode)
	if !s.application {
		pos += putVarint(b[pos:], s.frameType)
	}
	pos += putVarint(b[pos:], uint64(len(s.reasonPhrase)))
	pos += copy(b[pos:], s.reasonPhrase)
	return pos, nil
}

func (s *connectionCloseFrame) decode(b []byte) (int, error) {
	s.application = b[0] == frameTypeApplicationClose
	pos := 1
	n := getVarint(b[pos:], &s.errorCode)
	if n == 0 {
		return 0, newError(InvalidConnectionCloseData, "error_code")
	}
	pos += n
	if !s.application {
		n = getVarint(b[pos:], &s.frameType)
		if n == 0 {
			return 0, newError(InvalidConnectionCloseData, "frame_type")
		}
		pos += n
	}
	var length uint64
	n = getVarint(b[pos:], &length)
	if n == 0 {
		return 0, newError(InvalidConnectionCloseData, "reason_length")
	}
	pos += n
	if uint64(len(b)-pos) < length {
		return 0, newError(InvalidConnectionCloseData, "reason")
	}
	s.reasonPhrase = append([]byte(nil), b[pos:pos+int(length)]...)
	pos += int(length)
	return pos, nil
}

func (s *connectionCloseFrame) String() string {
	return fmt.Sprintf("error_code=%d reason=%q", s.errorCode, s.reasonPhrase)
}

// --- GOAWAY ---

// goAwayFrame announces that the sender will stop accepting new work: no
// further locally-initiated streams, and peer-initiated streams numbered
// above lastGoodStream are refused with RST_STREAM{StreamPeerGoingAway}.
type goAwayFrame struct {
	errorCode      uint64
	lastGoodStream uint64
	reason         []byte
}

func newGoAwayFrame(errorCode, lastGoodStream uint64, reason []byte) *goAwayFrame {
	return &goAwayFrame{errorCode: errorCode, lastGoodStream: lastGoodStream, reason: reason}
}

func (s *goAwayFrame) encodedLen() int {
	return 1 + varintLen(s.errorCode) + varintLen(s.lastGoodStream) + varintLen(uint64(len(s.reason))) + len(s.reason)
}

func (s *goAwayFrame) encode(b []byte) (int, error) {
	n := s.encodedLen()
	if len(b) < n {
		return 0, errShortBuffer
	}
	pos := 1
	b[0] = frameTypeGoAway
	pos += putVarint(b[pos:], s.errorCode)
	pos += putVarint(b[pos:], s.lastGoodStream)
	pos += putVarint(b[pos:], uint64(len(s.reason)))
	pos += copy(b[pos:], s.reason)
	return pos, nil
}

func (s *goAwayFrame) decode(b []byte) (int, error) {
	pos := 1
	for _, v := range []*uint64{&s.errorCode, &s.lastGoodStream} {
		n := getVarint(b[pos:], v)
		if n == 0 {
			return 0, newError(InvalidFrameData, "goaway")
		}
		pos += n
	}
	var length uint64
	n := getVarint(b[pos:], &length)
	if n == 0 {
		return 0, newError(InvalidFrameData, "goaway reason")
	}
	pos += n
	if uint64(len(b)-pos) < length {
		return 0, newError(InvalidFrameData, "goaway reason")
	}
	s.reason = append([]byte(nil), b[pos:pos+int(length)]...)
	pos += int(length)
	return pos, nil
}

// --- HANDSHAKE_DONE ---

type handshakeDoneFrame struct{}

func (s *handshakeDoneFrame) encodedLen() int { return 1 }

func (s *handshakeDoneFrame) encode(b []byte) (int, error) {
	if len(b) < 1 {
		return 0, errShortBuffer
	}
	b[0] = frameTypeHanshakeDone
	return 1, nil
}

func (s *handshakeDoneFrame) decode(b []byte) (int, error) {
	return 1, nil
}

// encodeFrames writes frames in order into b, failing if the buffer is too
// small for any of them.
func encodeFrames(b []byte, frames []frame) (int, error) {
	pos := 0
	for _, f := range frames {
		n, err := f.encode(b[pos:])
		if err != nil {
			return 0, err
		}
		pos += n
	}
	return pos, nil
}
