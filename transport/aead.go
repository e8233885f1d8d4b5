package transport

import "crypto/cipher"

// packetSealer encrypts outgoing packets: AEAD-protects the payload and
// masks the first byte's packet-number-length bits plus the packet number
// itself, the way every QUIC implementation hides them from on-path
// observers. https://quicwg.org/base-drafts/draft-ietf-quic-tls.html#header-protect
type packetSealer struct {
	aead cipher.AEAD
	iv   []byte
	hp   hpMasker
}

// packetOpener is the receive-side counterpart of packetSealer.
type packetOpener struct {
	aead cipher.AEAD
	iv   []byte
	hp   hpMasker
}

const (
	samplePNOffset = 6 // this module's packet numbers are at most 6 bytes
	sampleLen      = 16
)

// hpMasker produces the 5-byte header-protection mask for one packet
// sample: byte 0 masks the first byte's low bits, bytes 1-4 mask the packet
// number. AES-GCM/AES-CCM suites and ChaCha20-Poly1305 compute this
// differently, so the AEAD constructor and the masker are chosen together.
type hpMasker func(sample []byte) [5]byte

func newPacketSealer(aeadKey, aeadIV, hpKey []byte, newAEAD func([]byte) (cipher.AEAD, error), newHP func([]byte) (hpMasker, error)) (*packetSealer, error) {
	a, err := newAEAD(aeadKey)
	if err != nil {
		return nil, err
	}
	hp, err := newHP(hpKey)
	if err != nil {
		return nil, err
	}
	return &packetSealer{aead: a, iv: aeadIV, hp: hp}, nil
}

func newPacketOpener(aeadKey, aeadIV, hpKey []byte, newAEAD func([]byte) (cipher.AEAD, error), newHP func([]byte) (hpMasker, error)) (*packetOpener, error) {
	a, err := newAEAD(aeadKey)
	if err != nil {
		return nil, err
	}
	hp, err := newHP(hpKey)
	if err != nil {
		return nil, err
	}
	return &packetOpener{aead: a, iv: aeadIV, hp: hp}, nil
}

func packetNonce(iv []byte, pn uint64) []byte {
	nonce := make([]byte, len(iv))
	copy(nonce, iv)
	for i := 0; i < 8; i++ {
		nonce[len(nonce)-1-i] ^= byte(pn >> (8 * i))
	}
	return nonce
}

func headerProtectionMask(typ packetType) byte {
	if typ == packetTypeShort {
		return 0x1f
	}
	return 0x0f
}

// seal authenticates and encrypts the payload already staged in b (which
// must have AEAD-overhead bytes of room at the end), then applies header
// protection over the first byte and packet number.
func (s *packetSealer) seal(b []byte, p *packet) error {
	pnOffset := p.headerLen
	payloadOffset := pnOffset + p.pnLen
	if payloadOffset > len(b) {
		return newError(InternalError, "short packet buffer")
	}
	aad := b[:payloadOffset]
	nonce := packetNonce(s.iv, p.packetNumber)
	plaintext := b[payloadOffset:]
	sealed := s.aead.Seal(b[payloadOffset:payloadOffset], nonce, plaintext[:len(plaintext)-s.aead.Overhead()], aad)
	if len(sealed) != len(plaintext) {
		return newError(InternalError, "unexpected sealed length")
	}
	sampleStart := pnOffset + samplePNOffset
	if sampleStart+sampleLen > len(b) {
		return newError(InternalError, "packet too small to sample")
	}
	mask := s.hp(b[sampleStart : sampleStart+sampleLen])
	b[0] ^= mask[0] & headerProtectionMask(p.typ)
	for i := 0; i < p.pnLen; i++ {
		b[pnOffset+i] ^= mask[1+i]
	}
	return nil
}

// open reverses header protection, reconstructs the full packet number and
// authenticates+decrypts the payload.
func (s *packetOpener) open(b []byte, p *packet, expectedNext uint64) ([]byte, int, error) {
	pnOffset := p.headerLen
	sampleStart := pnOffset + samplePNOffset
	if sampleStart+sampleLen > len(b) {
		return nil, 0, newError(InvalidPacketHeader, "packet too small to sample")
	}
	mask := s.hp(b[sampleStart : sampleStart+sampleLen])
	first := b[0] ^ (mask[0] & headerProtectionMask(p.typ))
	pnLen := decodePacketNumberLenBits(first)
	pnBytes := make([]byte, pnLen)
	for i := 0; i < pnLen; i++ {
		pnBytes[i] = b[pnOffset+i] ^ mask[1+i]
	}
	truncated := getPacketNumber(pnBytes, pnLen)
	pn := decodePacketNumber(expectedNext, truncated, pnLen)
	p.packetNumber = pn
	p.pnLen = pnLen

	payloadOffset := pnOffset + pnLen
	var packetEnd int
	if p.typ == packetTypeShort {
		packetEnd = len(b)
	} else {
		packetEnd = pnOffset + int(p.length)
		if packetEnd > len(b) {
			return nil, 0, newError(InvalidPacketHeader, "length exceeds datagram")
		}
	}
	aad := make([]byte, payloadOffset)
	copy(aad, b[:payloadOffset])
	aad[0] = first
	for i := 0; i < pnLen; i++ {
		aad[pnOffset+i] = pnBytes[i]
	}
	nonce := packetNonce(s.iv, pn)
	ciphertext := b[payloadOffset:packetEnd]
	plaintext, err := s.aead.Open(ciphertext[:0], nonce, ciphertext, aad)
	if err != nil {
		return nil, 0, newError(DecryptionFailure, "")
	}
	return plaintext, packetEnd, nil
}
