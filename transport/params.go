package transport

import (
	"crypto/tls"
	"time"
)

// MaxCIDLength is the largest connection id this module will encode or
// accept.
const MaxCIDLength = 20

// Parameters are QUIC transport parameters, negotiated once during the
// handshake and fixed for the lifetime of the connection.
// https://quicwg.org/base-drafts/draft-ietf-quic-transport.html#transport-parameter-definitions
type Parameters struct {
	OriginalDestinationCID []byte
	InitialSourceCID       []byte
	RetrySourceCID         []byte
	StatelessResetToken    []byte

	MaxIdleTimeout    time.Duration
	MaxUDPPayloadSize uint64
	AckDelayExponent  uint64
	MaxAckDelay       time.Duration

	InitialMaxData                 uint64
	InitialMaxStreamDataBidiLocal  uint64
	InitialMaxStreamDataBidiRemote uint64
	InitialMaxStreamDataUni        uint64
	InitialMaxStreamsBidi          uint64
	InitialMaxStreamsUni           uint64

	ActiveConnectionIDLimit uint64
	MaxDatagramFrameSize    uint64
}

// defaultParameters returns the parameters this module advertises unless
// the caller overrides them.
func defaultParameters() Parameters {
	return Parameters{
		MaxIdleTimeout:                 10 * time.Second,
		MaxUDPPayloadSize:              MaxPacketSize,
		AckDelayExponent:               3,
		MaxAckDelay:                    25 * time.Millisecond,
		InitialMaxData:                 1 << 20,
		InitialMaxStreamDataBidiLocal:  1 << 18,
		InitialMaxStreamDataBidiRemote: 1 << 18,
		InitialMaxStreamDataUni:        1 << 18,
		InitialMaxStreamsBidi:          100,
		InitialMaxStreamsUni:           100,
		ActiveConnectionIDLimit:        4,
	}
}

// Transport parameter identifiers.
// https://quicwg.org/base-drafts/draft-ietf-quic-transport.html#transport-parameter-definitions
const (
	paramOriginalDestinationCID         = 0x00
	paramMaxIdleTimeout                 = 0x01
	paramStatelessResetToken            = 0x02
	paramMaxUDPPayloadSize              = 0x03
	paramInitialMaxData                 = 0x04
	paramInitialMaxStreamDataBidiLocal  = 0x05
	paramInitialMaxStreamDataBidiRemote = 0x06
	paramInitialMaxStreamDataUni        = 0x07
	paramInitialMaxStreamsBidi          = 0x08
	paramInitialMaxStreamsUni           = 0x09
	paramAckDelayExponent               = 0x0a
	paramMaxAckDelay                    = 0x0b
	paramActiveConnectionIDLimit        = 0x0e
	paramInitialSourceCID               = 0x0f
	paramRetrySourceCID                 = 0x10
	paramMaxDatagramFrameSize           = 0x20
)

// encodeTransportParams serializes p the way it is carried in the TLS
// quic_transport_parameters extension: a flat sequence of (varint id,
// varint length, value) entries.
func encodeTransportParams(p *Parameters) []byte {
	b := make([]byte, 0, 256)
	b = appendVarintParam(b, paramMaxIdleTimeout, uint64(p.MaxIdleTimeout/1000/1000 /* ns -> ms */))
	b = appendVarintParam(b, paramMaxUDPPayloadSize, p.MaxUDPPayloadSize)
	b = appendVarintParam(b, paramInitialMaxData, p.InitialMaxData)
	b = appendVarintParam(b, paramInitialMaxStreamDataBidiLocal, p.InitialMaxStreamDataBidiLocal)
	b = appendVarintParam(b, paramInitialMaxStreamDataBidiRemote, p.InitialMaxStreamDataBidiRemote)
	b = appendVarintParam(b, paramInitialMaxStreamDataUni, p.InitialMaxStreamDataUni)
	b = appendVarintParam(b, paramInitialMaxStreamsBidi, p.InitialMaxStreamsBidi)
	b = appendVarintParam(b, paramInitialMaxStreamsUni, p.InitialMaxStreamsUni)
	b = appendVarintParam(b, paramAckDelayExponent, p.AckDelayExponent)
	b = appendVarintParam(b, paramMaxAckDelay, uint64(p.MaxAckDelay/1000/1000))
	b = appendVarintParam(b, paramActiveConnectionIDLimit, p.ActiveConnectionIDLimit)
	if p.MaxDatagramFrameSize > 0 {
		b = appendVarintParam(b, paramMaxDatagramFrameSize, p.MaxDatagramFrameSize)
	}
	if len(p.OriginalDestinationCID) > 0 {
		b = appendBytesParam(b, paramOriginalDestinationCID, p.OriginalDestinationCID)
	}
	if len(p.InitialSourceCID) > 0 {
		b = appendBytesParam(b, paramInitialSourceCID, p.InitialSourceCID)
	}
	if len(p.RetrySourceCID) > 0 {
		b = appendBytesParam(b, paramRetrySourceCID, p.RetrySourceCID)
	}
	if len(p.StatelessResetToken) > 0 {
		b = appendBytesParam(b, paramStatelessResetToken, p.StatelessResetToken)
	}
	return b
}

func appendVarintParam(b []byte, id uint64, v uint64) []byte {
	tmp := make([]byte, varintLen(v))
	putVarint(tmp, v)
	return appendBytesParam(b, id, tmp)
}

func appendBytesParam(b []byte, id uint64, v []byte) []byte {
	head := make([]byte, varintLen(id)+varintLen(uint64(len(v))))
	n := putVarint(head, id)
	putVarint(head[n:], uint64(len(v)))
	b = append(b, head...)
	b = append(b, v...)
	return b
}

// decodeTransportParams parses the peer's quic_transport_parameters
// extension. Unknown identifiers are skipped.
func decodeTransportParams(b []byte) (*Parameters, error) {
	p := defaultParameters()
	for len(b) > 0 {
		var id, length uint64
		n := getVarint(b, &id)
		if n == 0 {
			return nil, newError(TransportParameterError, "truncated id")
		}
		b = b[n:]
		n = getVarint(b, &length)
		if n == 0 {
			return nil, newError(TransportParameterError, "truncated length")
		}
		b = b[n:]
		if uint64(len(b)) < length {
			return nil, newError(TransportParameterError, "truncated value")
		}
		v := b[:length]
		b = b[length:]
		switch id {
		case paramOriginalDestinationCID:
			p.OriginalDestinationCID = append([]byte(nil), v...)
		case paramMaxIdleTimeout:
			p.MaxIdleTimeout = time.Duration(decodeVarintParam(v)) * time.Millisecond
		case paramStatelessResetToken:
			p.StatelessResetToken = append([]byte(nil), v...)
		case paramMaxUDPPayloadSize:
			p.MaxUDPPayloadSize = decodeVarintParam(v)
		case paramInitialMaxData:
			p.InitialMaxData = decodeVarintParam(v)
		case paramInitialMaxStreamDataBidiLocal:
			p.InitialMaxStreamDataBidiLocal = decodeVarintParam(v)
		case paramInitialMaxStreamDataBidiRemote:
			p.InitialMaxStreamDataBidiRemote = decodeVarintParam(v)
		case paramInitialMaxStreamDataUni:
			p.InitialMaxStreamDataUni = decodeVarintParam(v)
		case paramInitialMaxStreamsBidi:
			p.InitialMaxStreamsBidi = decodeVarintParam(v)
		case paramInitialMaxStreamsUni:
			p.InitialMaxStreamsUni = decodeVarintParam(v)
		case paramAckDelayExponent:
			p.AckDelayExponent = decodeVarintParam(v)
		case paramMaxAckDelay:
			p.MaxAckDelay = time.Duration(decodeVarintParam(v)) * time.Millisecond
		case paramActiveConnectionIDLimit:
			p.ActiveConnectionIDLimit = decodeVarintParam(v)
		case paramInitialSourceCID:
			p.InitialSourceCID = append([]byte(nil), v...)
		case paramRetrySourceCID:
			p.RetrySourceCID = append([]byte(nil), v...)
		case paramMaxDatagramFrameSize:
			p.MaxDatagramFrameSize = decodeVarintParam(v)
		}
	}
	return &p, nil
}

func decodeVarintParam(v []byte) uint64 {
	var x uint64
	getVarint(v, &x)
	return x
}

// RecoveryConfig tunes the sent-packet manager and loss detector.
type RecoveryConfig struct {
	// LossDetectionType selects between fixed nack-based loss detection
	// (the default) and purely time-threshold / adaptive-time modes.
	LossDetectionType LossDetectionType
	// InitialRTT seeds SmoothedRtt before the first sample arrives.
	InitialRTT time.Duration
	// MaxTLPs bounds the number of tail loss probes sent before RTO.
	MaxTLPs int
}

func defaultRecoveryConfig() RecoveryConfig {
	return RecoveryConfig{
		LossDetectionType: LossDetectionNack,
		InitialRTT:        100 * time.Millisecond,
		MaxTLPs:           2,
	}
}

// CongestionConfig selects and tunes a congestion controller.
type CongestionConfig struct {
	// Algorithm picks the controller implementation.
	Algorithm CongestionAlgorithm
	// Reno, when Algorithm is CongestionCubic, uses the classic Reno
	// additive-increase rule instead of the Cubic curve.
	Reno bool
	// FixedRateBitsPerSecond is used only when Algorithm is CongestionFixedRate.
	FixedRateBitsPerSecond uint64
	// MaxCongestionWindow bounds cwnd growth, in MSS units.
	MaxCongestionWindow uint64
}

func defaultCongestionConfig() CongestionConfig {
	return CongestionConfig{
		Algorithm:           CongestionCubic,
		MaxCongestionWindow: 2000,
	}
}

// Config is construction-time configuration for a Conn: an explicit value
// passed in rather than global mutable state.
type Config struct {
	TLS     *tls.Config
	Version uint32
	Params  Parameters

	Recovery   RecoveryConfig
	Congestion CongestionConfig
}

// NewConfig returns a Config populated with this module's defaults. Callers
// mutate the returned value before passing it to Connect/Accept.
func NewConfig() *Config {
	return &Config{
		Version:    ProtocolVersion1,
		Params:     defaultParameters(),
		Recovery:   defaultRecoveryConfig(),
		Congestion: defaultCongestionConfig(),
	}
}
