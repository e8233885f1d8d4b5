package transport

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"

	"golang.org/x/crypto/hkdf"
)

// Initial packets are protected with keys derived from the client's first
// destination connection id, not from the (not yet negotiated) handshake
// secret, so that anyone observing the wire can decrypt them -- the
// protection exists only to stop casual greasing of middleboxes, not to
// provide confidentiality. https://quicwg.org/base-drafts/draft-ietf-quic-tls.html#initial-secrets
var initialSalt = []byte{
	0x38, 0x76, 0x2c, 0xf7, 0xf5, 0x59, 0x34, 0xb3,
	0x4d, 0x17, 0x9a, 0xe6, 0xa4, 0xc8, 0x0c, 0xad,
	0xcc, 0xbb, 0x7f, 0x0a,
}

const (
	initialAEADKeyLen = 16
	initialAEADIVLen  = 12
	initialHPKeyLen   = 16
)

// initialAEAD holds the client and server directional keys derived from a
// connection id for the Initial packet number space.
type initialAEAD struct {
	client packetKeys
	server packetKeys
}

// packetKeys is one direction's AEAD + header-protection key material.
type packetKeys struct {
	aeadKey []byte
	aeadIV  []byte
	hpKey   []byte
}

func (a *initialAEAD) init(cid []byte) {
	initialSecret := hkdfExtract(initialSalt, cid)
	clientSecret := hkdfExpandLabel(initialSecret, "client in", 32)
	serverSecret := hkdfExpandLabel(initialSecret, "server in", 32)
	a.client = derivePacketKeys(clientSecret)
	a.server = derivePacketKeys(serverSecret)
}

func derivePacketKeys(secret []byte) packetKeys {
	return packetKeys{
		aeadKey: hkdfExpandLabel(secret, "quic key", initialAEADKeyLen),
		aeadIV:  hkdfExpandLabel(secret, "quic iv", initialAEADIVLen),
		hpKey:   hkdfExpandLabel(secret, "quic hp", initialHPKeyLen),
	}
}

// hkdfExtract is HKDF-Extract(salt, ikm), built on golang.org/x/crypto/hkdf
// rather than a hand-rolled HMAC construction.
func hkdfExtract(salt, ikm []byte) []byte {
	reader := hkdf.New(sha256.New, ikm, salt, nil)
	out := make([]byte, sha256.Size)
	_, _ = reader.Read(out)
	return out
}

// hkdfExpandLabel implements the TLS 1.3 / QUIC "HKDF-Expand-Label" used to
// derive each directional secret and key from its parent secret.
func hkdfExpandLabel(secret []byte, label string, length int) []byte {
	info := buildHKDFLabel(label, length)
	reader := hkdf.Expand(sha256.New, secret, info)
	out := make([]byte, length)
	_, _ = reader.Read(out)
	return out
}

func buildHKDFLabel(label string, length int) []byte {
	full := "tls13 " + label
	info := make([]byte, 0, 3+len(full))
	info = append(info, byte(length>>8), byte(length))
	info = append(info, byte(len(full)))
	info = append(info, full...)
	info = append(info, 0) // empty context
	return info
}

func newAESGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// aesHPMasker implements AES-based header protection (RFC 9001 §5.4.3): the
// mask is the AES-ECB encryption of the 16-byte ciphertext sample, keyed by
// the "quic hp" key, of which only the first 5 bytes are used.
func aesHPMasker(key []byte) (hpMasker, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return func(sample []byte) [5]byte {
		var block16 [16]byte
		block.Encrypt(block16[:], sample)
		var out [5]byte
		copy(out[:], block16[:5])
		return out
	}, nil
}

// sealerFromKeys and openerFromKeys build the packet-protection wrapper
// used once keys (either Initial or handshake-derived) are available. The
// Initial packet number space always uses AES-128-GCM, regardless of the
// cipher suite later negotiated by the handshake.
func sealerFromKeys(k packetKeys) (*packetSealer, error) {
	return newPacketSealer(k.aeadKey, k.aeadIV, k.hpKey, newAESGCM, aesHPMasker)
}

func openerFromKeys(k packetKeys) (*packetOpener, error) {
	return newPacketOpener(k.aeadKey, k.aeadIV, k.hpKey, newAESGCM, aesHPMasker)
}

const retryIntegrityTagLen = 16

// retryIntegrityKey/Nonce are the fixed AEAD key and nonce used to compute
// the Retry Integrity Tag, allowing a client to detect retry packets
// injected by an off-path attacker.
// https://quicwg.org/base-drafts/draft-ietf-quic-tls.html#retry-integrity-tag
var (
	retryIntegrityKey   = []byte{0xbe, 0x0c, 0x69, 0x0b, 0x9f, 0x66, 0x57, 0x5a, 0x1d, 0x76, 0x6b, 0x54, 0xe3, 0x68, 0xc8, 0x4e}
	retryIntegrityNonce = []byte{0x46, 0x15, 0x99, 0xd3, 0x5d, 0x63, 0x2b, 0xf2, 0x23, 0x98, 0x25, 0xbb}
)

// verifyRetryIntegrity recomputes the Retry Integrity Tag over b (the full
// Retry packet, originalDCID prepended as a pseudo-header) and reports
// whether it matches the tag already carried at the end of b.
func verifyRetryIntegrity(b []byte, originalDCID []byte) bool {
	if len(b) < retryIntegrityTagLen {
		return false
	}
	aead, err := newAESGCM(retryIntegrityKey)
	if err != nil {
		return false
	}
	pseudo := make([]byte, 0, 1+len(originalDCID)+len(b)-retryIntegrityTagLen)
	pseudo = append(pseudo, byte(len(originalDCID)))
	pseudo = append(pseudo, originalDCID...)
	pseudo = append(pseudo, b[:len(b)-retryIntegrityTagLen]...)
	tag := aead.Seal(nil, retryIntegrityNonce, nil, pseudo)
	got := b[len(b)-retryIntegrityTagLen:]
	if len(tag) != len(got) {
		return false
	}
	var diff byte
	for i := range got {
		diff |= tag[i] ^ got[i]
	}
	return diff == 0
}
