package transport

import (
	"context"
	"crypto/cipher"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/tls"
	"encoding/binary"
	"hash"

	"golang.org/x/crypto/chacha20"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// tlsHandshake drives Go's crypto/tls QUIC extension (tls.QUICConn) to run
// the TLS 1.3 handshake QUIC carries in CRYPTO frames: it moves bytes to
// and from each packet number space's crypto stream and installs the
// packet-protection keys TLS hands back at each encryption level.
type tlsHandshake struct {
	conn      *Conn
	tlsConfig *tls.Config
	quicConn  *tls.QUICConn
	started   bool

	complete   bool
	peerParams *Parameters
	writeLevel packetSpace
}

func (h *tlsHandshake) init(conn *Conn, tlsConfig *tls.Config) {
	h.conn = conn
	h.tlsConfig = tlsConfig
	h.newQUICConn()
}

func (h *tlsHandshake) newQUICConn() {
	cfg := &tls.QUICConfig{TLSConfig: h.tlsConfig}
	if h.conn.isClient {
		h.quicConn = tls.QUICClient(cfg)
	} else {
		h.quicConn = tls.QUICServer(cfg)
	}
}

// reset discards handshake progress after a Retry or version negotiation
// forces the client to restart with fresh Initial state.
func (h *tlsHandshake) reset() {
	h.newQUICConn()
	h.started = false
	h.complete = false
	h.peerParams = nil
	h.writeLevel = packetSpaceInitial
}

func (h *tlsHandshake) setTransportParams(p *Parameters) {
	h.quicConn.SetTransportParameters(encodeTransportParams(p))
}

func (h *tlsHandshake) HandshakeComplete() bool          { return h.complete }
func (h *tlsHandshake) peerTransportParams() *Parameters { return h.peerParams }
func (h *tlsHandshake) writeSpace() packetSpace          { return h.writeLevel }

// doHandshake feeds any crypto bytes newly received into each space's
// stream to the TLS state machine, then drains every event it produces:
// new keys, outgoing crypto data, the peer's transport parameters, or
// handshake completion.
func (h *tlsHandshake) doHandshake() error {
	if h.quicConn == nil {
		return newError(InternalError, "handshake not initialized")
	}
	if !h.started {
		if err := h.quicConn.Start(context.Background()); err != nil {
			return newError(ProtocolViolation, sprint("tls start: ", err))
		}
		h.started = true
	}
	for space := packetSpaceInitial; space < packetSpaceApplication; space++ {
		pn := &h.conn.packetNumberSpaces[space]
		var buf [4096]byte
		for {
			n, _ := pn.cryptoStream.recv.read(buf[:])
			if n == 0 {
				break
			}
			if err := h.quicConn.HandleData(quicLevel(space), buf[:n]); err != nil {
				return newError(DecryptionFailure, sprint("tls handshake: ", err))
			}
		}
	}
	return h.drainEvents()
}

func (h *tlsHandshake) drainEvents() error {
	for {
		e := h.quicConn.NextEvent()
		switch e.Kind {
		case tls.QUICNoEvent:
			return nil
		case tls.QUICSetReadSecret:
			if err := h.installSecret(e.Level, e.Suite, e.Data, false); err != nil {
				return err
			}
		case tls.QUICSetWriteSecret:
			if err := h.installSecret(e.Level, e.Suite, e.Data, true); err != nil {
				return err
			}
			h.writeLevel = packetSpaceFromLevel(e.Level)
		case tls.QUICWriteData:
			space := packetSpaceFromLevel(e.Level)
			if _, err := h.conn.packetNumberSpaces[space].cryptoStream.send.write(e.Data); err != nil {
				return err
			}
		case tls.QUICTransportParameters:
			p, err := decodeTransportParams(e.Data)
			if err != nil {
				return err
			}
			h.peerParams = p
		case tls.QUICHandshakeDone:
			h.complete = true
		}
	}
}

func quicLevel(space packetSpace) tls.QUICEncryptionLevel {
	switch space {
	case packetSpaceInitial:
		return tls.QUICEncryptionLevelInitial
	case packetSpaceHandshake:
		return tls.QUICEncryptionLevelHandshake
	default:
		return tls.QUICEncryptionLevelApplication
	}
}

func packetSpaceFromLevel(level tls.QUICEncryptionLevel) packetSpace {
	switch level {
	case tls.QUICEncryptionLevelInitial:
		return packetSpaceInitial
	case tls.QUICEncryptionLevelHandshake:
		return packetSpaceHandshake
	default:
		return packetSpaceApplication
	}
}

// installSecret derives directional packet-protection keys from a TLS
// secret handed back by the handshake and installs them into the matching
// packet number space's sealer (write secret) or opener (read secret).
func (h *tlsHandshake) installSecret(level tls.QUICEncryptionLevel, suite uint16, secret []byte, isWrite bool) error {
	aeadCtor, hpCtor, keyLen, hashNew := cipherSuiteCrypto(suite)
	k := packetKeys{
		aeadKey: hkdfExpandLabelHash(secret, "quic key", keyLen, hashNew),
		aeadIV:  hkdfExpandLabelHash(secret, "quic iv", initialAEADIVLen, hashNew),
		hpKey:   hkdfExpandLabelHash(secret, "quic hp", keyLen, hashNew),
	}
	space := packetSpaceFromLevel(level)
	pn := &h.conn.packetNumberSpaces[space]
	if isWrite {
		sealer, err := newPacketSealer(k.aeadKey, k.aeadIV, k.hpKey, aeadCtor, hpCtor)
		if err != nil {
			return err
		}
		pn.sealer = sealer
	} else {
		opener, err := newPacketOpener(k.aeadKey, k.aeadIV, k.hpKey, aeadCtor, hpCtor)
		if err != nil {
			return err
		}
		pn.opener = opener
	}
	return nil
}

// cipherSuiteCrypto returns the AEAD/header-protection constructors, key
// length and transcript hash for one of the three TLS 1.3 cipher suites
// QUIC permits. https://quicwg.org/base-drafts/draft-ietf-quic-tls.html#aead-and-hp
func cipherSuiteCrypto(suite uint16) (aead func([]byte) (cipher.AEAD, error), hp func([]byte) (hpMasker, error), keyLen int, hashNew func() hash.Hash) {
	switch suite {
	case tls.TLS_CHACHA20_POLY1305_SHA256:
		return newChaCha20Poly1305, chacha20HPMasker, chacha20poly1305.KeySize, sha256.New
	case tls.TLS_AES_256_GCM_SHA384:
		return newAESGCM, aesHPMasker, 32, sha512.New384
	default: // TLS_AES_128_GCM_SHA256
		return newAESGCM, aesHPMasker, 16, sha256.New
	}
}

func newChaCha20Poly1305(key []byte) (cipher.AEAD, error) {
	return chacha20poly1305.New(key)
}

// chacha20HPMasker implements ChaCha20-based header protection (RFC 9001
// §5.4.4): the sample's first 4 bytes (little-endian) are the block
// counter and the remaining 12 are the nonce; the mask is the first 5
// keystream bytes of that block.
func chacha20HPMasker(key []byte) (hpMasker, error) {
	return func(sample []byte) [5]byte {
		var out [5]byte
		counter := binary.LittleEndian.Uint32(sample[:4])
		c, err := chacha20.NewUnauthenticatedCipher(key, sample[4:16])
		if err != nil {
			return out
		}
		c.SetCounter(counter)
		var zero [5]byte
		c.XORKeyStream(out[:], zero[:])
		return out
	}, nil
}

// hkdfExpandLabelHash is hkdfExpandLabel generalized over the transcript
// hash, since negotiated cipher suites other than the default use SHA-384.
func hkdfExpandLabelHash(secret []byte, label string, length int, hashNew func() hash.Hash) []byte {
	info := buildHKDFLabel(label, length)
	reader := hkdf.Expand(hashNew, secret, info)
	out := make([]byte, length)
	_, _ = reader.Read(out)
	return out
}
