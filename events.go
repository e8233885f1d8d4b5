package quic

import "github.com/quince-project/quince/transport"

// Connection-lifecycle events the endpoint itself generates, layered on top
// of transport.EventType starting at transport.EventTypeUserBase so a
// Handler can range over one mixed slice.
const (
	// EventConnAccept fires once, the first time a new connection (either
	// side) becomes usable: a client may start writing streams, a server
	// has finished its handshake with a peer.
	EventConnAccept transport.EventType = transport.EventTypeUserBase + iota
	// EventConnClose fires once a connection has fully drained and its
	// resources are about to be released. No further events follow it.
	EventConnClose
)
