package transport

import "fmt"

// TransportError is the error code space carried in CONNECTION_CLOSE frames.
// https://quicwg.org/base-drafts/draft-ietf-quic-transport.html#section-20
type TransportError uint64

// Transport error codes. Values are chosen so that they fit in the QUIC
// varint space used by CONNECTION_CLOSE; they do not need to match any
// particular wire version's registry.
const (
	NoError TransportError = iota
	InternalError
	ConnectionRefused
	FlowControlReceivedTooMuchData
	FlowControlSentTooMuchData
	TooManyOpenStreams
	StreamStateError
	FinalSizeError
	FrameEncodingError
	TransportParameterError
	ProtocolViolation
	InvalidToken
	PacketTooLarge
	InvalidPacketHeader
	InvalidFrameData
	InvalidAckData
	InvalidRstStreamData
	InvalidConnectionCloseData
	InvalidStreamId
	InvalidCryptoMessageParameter
	DecryptionFailure
	EncryptionFailure
	PeerGoingAway
	ConnectionTimedOut
	PublicReset
	CryptoBufferExceeded
)

var errorCodeNames = [...]string{
	NoError:                        "no_error",
	InternalError:                  "internal_error",
	ConnectionRefused:              "connection_refused",
	FlowControlReceivedTooMuchData: "flow_control_received_too_much_data",
	FlowControlSentTooMuchData:     "flow_control_sent_too_much_data",
	TooManyOpenStreams:             "too_many_open_streams",
	StreamStateError:               "stream_state_error",
	FinalSizeError:                 "final_size_error",
	FrameEncodingError:             "frame_encoding_error",
	TransportParameterError:        "transport_parameter_error",
	ProtocolViolation:              "protocol_violation",
	InvalidToken:                   "invalid_token",
	PacketTooLarge:                 "packet_too_large",
	InvalidPacketHeader:            "invalid_packet_header",
	InvalidFrameData:               "invalid_frame_data",
	InvalidAckData:                 "invalid_ack_data",
	InvalidRstStreamData:           "invalid_rst_stream_data",
	InvalidConnectionCloseData:     "invalid_connection_close_data",
	InvalidStreamId:                "invalid_stream_id",
	InvalidCryptoMessageParameter:  "invalid_crypto_message_parameter",
	DecryptionFailure:              "decryption_failure",
	EncryptionFailure:              "encryption_failure",
	PeerGoingAway:                  "peer_going_away",
	ConnectionTimedOut:             "connection_timed_out",
	PublicReset:                    "public_reset",
	CryptoBufferExceeded:           "crypto_buffer_exceeded",
}

// errorCodeString renders a raw CONNECTION_CLOSE error code, falling back to
// a generic "crypto_error_N" label the way TLS alert codes (0x100+N) do on
// the wire, since peers may report codes this build does not define.
func errorCodeString(code uint64) string {
	if code < uint64(len(errorCodeNames)) && errorCodeNames[code] != "" {
		return errorCodeNames[code]
	}
	if code >= 0x100 {
		return fmt.Sprintf("crypto_error_%d", code-0x100)
	}
	return fmt.Sprintf("error_%d", code)
}

// StreamError is carried in RST_STREAM / STOP_SENDING; it is application
// defined on the wire but this module reserves a few well-known values.
type StreamError uint64

const (
	StreamCancelled StreamError = iota
	BadApplicationPayload
	StreamPeerGoingAway
)

// Error is returned by transport operations. Code is sent verbatim in
// CONNECTION_CLOSE when the error reaches the connection loop.
type Error struct {
	Code    TransportError
	Message string
}

func newError(code TransportError, message string) *Error {
	return &Error{Code: code, Message: message}
}

func (e *Error) Error() string {
	if e.Message == "" {
		return errorCodeString(uint64(e.Code))
	}
	return errorCodeString(uint64(e.Code)) + ": " + e.Message
}

var (
	errInvalidToken = newError(InvalidToken, "")
	errFlowControl  = newError(FlowControlReceivedTooMuchData, "")
	errShortBuffer  = newError(InternalError, "short buffer")
)
