package transport

import (
	"bytes"
	"testing"
)

// sealRoundTrip encodes a packet carrying payload, protects it with sealer,
// then parses and unprotects it with opener, returning the recovered
// plaintext and packet.
func sealRoundTrip(t *testing.T, p *packet, payload []byte, sealer *packetSealer, opener *packetOpener, dcidLen int, expectedNext uint64) ([]byte, *packet) {
	t.Helper()
	overhead := sealer.aead.Overhead()
	p.payloadLen = len(payload) + overhead
	buf := make([]byte, MaxPacketSize)
	off, err := p.encode(buf)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	copy(buf[off:], payload)
	total := off + len(payload) + overhead
	if err := sealer.seal(buf[:total], p); err != nil {
		t.Fatalf("seal: %v", err)
	}
	q := &packet{header: packetHeader{dcil: uint8(dcidLen)}}
	if _, err := q.decodeHeader(buf[:total]); err != nil {
		t.Fatalf("decodeHeader: %v", err)
	}
	plain, end, err := opener.open(buf[:total], q, expectedNext)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if end != total {
		t.Fatalf("open consumed %d bytes, want %d", end, total)
	}
	return plain, q
}

func TestInitialPacketSealOpenRoundTrip(t *testing.T) {
	cid := []byte{0xc6, 0xb3, 0x36, 0x55, 0xf6, 0x21, 0x1a, 0x64}
	var keys initialAEAD
	keys.init(cid)
	sealer, err := sealerFromKeys(keys.client)
	if err != nil {
		t.Fatalf("sealerFromKeys: %v", err)
	}
	opener, err := openerFromKeys(keys.client)
	if err != nil {
		t.Fatalf("openerFromKeys: %v", err)
	}
	payload := make([]byte, 64)
	for i := range payload {
		payload[i] = byte(i)
	}
	p := &packet{
		typ: packetTypeInitial,
		header: packetHeader{
			version: ProtocolVersion1,
			dcid:    cid,
			scid:    []byte{0xab, 0xcd, 0xef, 0x01},
		},
		packetNumber: 7,
	}
	plain, q := sealRoundTrip(t, p, payload, sealer, opener, len(cid), 7)
	if !bytes.Equal(plain, payload) {
		t.Fatalf("decrypted payload differs from plaintext")
	}
	if q.packetNumber != 7 {
		t.Fatalf("packet number = %d, want 7", q.packetNumber)
	}
	if q.typ != packetTypeInitial {
		t.Fatalf("packet type = %s, want initial", q.typ)
	}
	if !bytes.Equal(q.header.dcid, cid) {
		t.Fatalf("dcid = %x, want %x", q.header.dcid, cid)
	}
}

func TestShortPacketSealOpenRoundTrip(t *testing.T) {
	cid := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	var keys initialAEAD
	keys.init(cid)
	sealer, err := sealerFromKeys(keys.server)
	if err != nil {
		t.Fatalf("sealerFromKeys: %v", err)
	}
	opener, err := openerFromKeys(keys.server)
	if err != nil {
		t.Fatalf("openerFromKeys: %v", err)
	}
	payload := []byte("short header packet payload bytes, long enough to sample")
	p := &packet{
		typ:          packetTypeShort,
		header:       packetHeader{dcid: cid},
		packetNumber: 3,
	}
	plain, q := sealRoundTrip(t, p, payload, sealer, opener, len(cid), 3)
	if !bytes.Equal(plain, payload) {
		t.Fatalf("decrypted payload differs from plaintext")
	}
	if q.packetNumber != 3 {
		t.Fatalf("packet number = %d, want 3", q.packetNumber)
	}
}

func TestTamperedPacketFailsDecryption(t *testing.T) {
	cid := []byte{9, 9, 9, 9, 9, 9, 9, 9}
	var keys initialAEAD
	keys.init(cid)
	sealer, err := sealerFromKeys(keys.client)
	if err != nil {
		t.Fatalf("sealerFromKeys: %v", err)
	}
	opener, err := openerFromKeys(keys.client)
	if err != nil {
		t.Fatalf("openerFromKeys: %v", err)
	}
	payload := make([]byte, 48)
	p := &packet{
		typ: packetTypeInitial,
		header: packetHeader{
			version: ProtocolVersion1,
			dcid:    cid,
			scid:    []byte{0x11},
		},
		packetNumber: 1,
	}
	overhead := sealer.aead.Overhead()
	p.payloadLen = len(payload) + overhead
	buf := make([]byte, MaxPacketSize)
	off, err := p.encode(buf)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	copy(buf[off:], payload)
	total := off + len(payload) + overhead
	if err := sealer.seal(buf[:total], p); err != nil {
		t.Fatalf("seal: %v", err)
	}
	buf[total-1] ^= 0xff
	q := &packet{}
	if _, err := q.decodeHeader(buf[:total]); err != nil {
		t.Fatalf("decodeHeader: %v", err)
	}
	_, _, err = opener.open(buf[:total], q, 1)
	if err == nil {
		t.Fatalf("open of a tampered packet should fail")
	}
	if code, ok := errorCode(err); !ok || code != DecryptionFailure {
		t.Fatalf("error = %v, want DecryptionFailure", err)
	}
}

func TestDecodeHeaderRejectsTruncatedInput(t *testing.T) {
	// A long header claiming a dcid larger than the remaining bytes.
	b := []byte{headerFormLong | longTypeInitial, 0, 0, 0, 1, 20, 0xaa}
	p := &packet{}
	if _, err := p.decodeHeader(b); err == nil {
		t.Fatalf("decodeHeader should fail on truncated dcid")
	}
	if _, err := p.decodeHeader(nil); err == nil {
		t.Fatalf("decodeHeader should fail on empty input")
	}
}
