package transport

// EventType identifies what happened on a connection. The root quic package
// extends this space with its own connection-lifecycle event types starting
// at EventTypeUserBase, so that callers can range over a single slice mixing
// transport-level and connection-level events.
type EventType int

const (
	EventNone EventType = iota
	// EventStream indicates new data (or a FIN) is available to read on a
	// stream named by Event.StreamID.
	EventStream
	// EventStreamComplete indicates all data written to a stream has been
	// acknowledged by the peer.
	EventStreamComplete
	// EventStreamReset indicates the peer reset the send side of a stream.
	EventStreamReset
	// EventStreamStop indicates the peer asked us to stop sending on a
	// stream (STOP_SENDING).
	EventStreamStop
	// EventPeerGoingAway indicates the peer sent GOAWAY: no new streams
	// should be opened on this connection going forward.
	EventPeerGoingAway

	// EventTypeUserBase is the first value applications and the root quic
	// package may define their own event types from.
	EventTypeUserBase = 100
)

// Event is a notification surfaced by a connection between calls to
// Conn.Write/Conn.Read. Events are coalesced per connection and drained with
// Conn.Events.
type Event struct {
	Type      EventType
	StreamID  uint64
	ErrorCode uint64
}

func newStreamRecvEvent(streamID uint64) Event {
	return Event{Type: EventStream, StreamID: streamID}
}

func newStreamCompleteEvent(streamID uint64) Event {
	return Event{Type: EventStreamComplete, StreamID: streamID}
}

func newStreamResetEvent(streamID, errorCode uint64) Event {
	return Event{Type: EventStreamReset, StreamID: streamID, ErrorCode: errorCode}
}

func newStreamStopEvent(streamID, errorCode uint64) Event {
	return Event{Type: EventStreamStop, StreamID: streamID, ErrorCode: errorCode}
}

func newPeerGoingAwayEvent(errorCode uint64) Event {
	return Event{Type: EventPeerGoingAway, ErrorCode: errorCode}
}
