package transport

import "time"

// packetSpace identifies one of the three packet number spaces a connection
// tracks independently, per
// https://quicwg.org/base-drafts/draft-ietf-quic-transport.html#packet-numbers
type packetSpace int

const (
	packetSpaceInitial packetSpace = iota
	packetSpaceHandshake
	packetSpaceApplication
	packetSpaceCount
)

func (s packetSpace) String() string {
	switch s {
	case packetSpaceInitial:
		return "initial"
	case packetSpaceHandshake:
		return "handshake"
	case packetSpaceApplication:
		return "application"
	default:
		return "unknown"
	}
}

// packetNumberSpace holds the per-space encryption keys, packet-number
// bookkeeping and the crypto stream carrying that space's handshake data.
type packetNumberSpace struct {
	opener *packetOpener
	sealer *packetSealer

	nextPacketNumber uint64
	largestRecvPN    uint64
	hasLargestRecvPN bool

	// recvPacketNeedAck tracks received packet numbers not yet confirmed
	// acknowledged by the peer.
	recvPacketNeedAck *rangeSet
	ackElicited       bool
	firstPacketAcked  bool

	largestRecvPacketTime time.Time

	cryptoStream cryptoStream

	dropped bool
}

func (s *packetNumberSpace) init() {
	s.recvPacketNeedAck = newRangeSet()
	s.cryptoStream.init()
}

// reset clears packet-number and key state so another Initial flight can be
// sent after version negotiation or a Retry.
func (s *packetNumberSpace) reset() {
	s.nextPacketNumber = 0
	s.hasLargestRecvPN = false
	s.recvPacketNeedAck = newRangeSet()
	s.ackElicited = false
	s.firstPacketAcked = false
}

// drop discards keys and per-space state once this space is no longer
// needed, per the packet-number-space discard rules in
// https://quicwg.org/base-drafts/draft-ietf-quic-transport.html#discarding-packets
func (s *packetNumberSpace) drop() {
	s.dropped = true
	s.opener = nil
	s.sealer = nil
}

func (s *packetNumberSpace) canDecrypt() bool {
	return !s.dropped && s.opener != nil
}

func (s *packetNumberSpace) canEncrypt() bool {
	return !s.dropped && s.sealer != nil
}

// ready reports whether this space has anything pending that is not
// already captured by recovery's lost-frame queue: an ACK to send, or
// buffered crypto data not yet sent.
func (s *packetNumberSpace) ready() bool {
	if s.dropped {
		return false
	}
	if s.ackElicited {
		return true
	}
	return s.cryptoStream.send.sent < s.cryptoStream.send.base+uint64(len(s.cryptoStream.send.data))
}

func (s *packetNumberSpace) isPacketReceived(pn uint64) bool {
	return s.recvPacketNeedAck.contains(pn)
}

func (s *packetNumberSpace) onPacketReceived(pn uint64, now time.Time) {
	s.recvPacketNeedAck.add(pn, pn)
	if !s.hasLargestRecvPN || pn > s.largestRecvPN {
		s.largestRecvPN = pn
		s.hasLargestRecvPN = true
		s.largestRecvPacketTime = now
	}
}

// decryptPacket finishes parsing the packet number (reversing header
// protection) and authenticates+decrypts the payload, returning the
// plaintext frame bytes and the total number of input bytes consumed.
func (s *packetNumberSpace) decryptPacket(b []byte, p *packet) ([]byte, int, error) {
	if s.opener == nil {
		return nil, 0, newError(DecryptionFailure, "no keys")
	}
	return s.opener.open(b, p, s.expectedNextPN())
}

func (s *packetNumberSpace) expectedNextPN() uint64 {
	if !s.hasLargestRecvPN {
		return 0
	}
	return s.largestRecvPN + 1
}

func (s *packetNumberSpace) encryptPacket(b []byte, p *packet) error {
	if s.sealer == nil {
		return newError(EncryptionFailure, "no keys")
	}
	return s.sealer.seal(b, p)
}
