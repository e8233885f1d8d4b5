package quic

import (
	"net"
	"sync"

	"github.com/quince-project/quince/transport"
)

// remoteConn is the endpoint's bookkeeping for one transport.Conn: its
// address, routing id and the channel its read loop feeds datagrams into.
// It is not exported; callers only ever see the Conn handle built on top.
type remoteConn struct {
	scid []byte
	addr net.Addr
	conn *transport.Conn

	recvCh  chan []byte
	closeCh chan struct{}

	mu        sync.Mutex
	accepted  bool
	closeOnce sync.Once
}

func newRemoteConn(scid []byte, addr net.Addr, c *transport.Conn) *remoteConn {
	return &remoteConn{
		scid:    append([]byte(nil), scid...),
		addr:    addr,
		conn:    c,
		recvCh:  make(chan []byte, 8),
		closeCh: make(chan struct{}),
	}
}

func (c *remoteConn) deliver(b []byte) bool {
	select {
	case c.recvCh <- b:
		return true
	case <-c.closeCh:
		return false
	}
}

func (c *remoteConn) shutdown() {
	c.closeOnce.Do(func() { close(c.closeCh) })
}

// Conn is the handle a Handler uses to interact with one QUIC connection:
// read and write its streams, inspect its address, or close it.
type Conn struct {
	remote *remoteConn
}

// RemoteAddr returns the peer's network address.
func (c Conn) RemoteAddr() net.Addr {
	return c.remote.addr
}

// Stream returns the named stream, creating it if this endpoint is allowed
// to initiate it and it does not exist yet. It returns nil if the stream id
// belongs to the peer and has not been opened.
func (c Conn) Stream(id uint64) *transport.Stream {
	st, err := c.remote.conn.Stream(id)
	if err != nil {
		return nil
	}
	return st
}

// Close starts closing the connection, sending errCode and reason to the
// peer in a CONNECTION_CLOSE frame.
func (c Conn) Close(errCode uint64, reason string) {
	c.remote.conn.Close(true, errCode, reason)
}

// GoAway announces that this endpoint will accept no further new streams
// on this connection: existing streams continue until drained or reset.
func (c Conn) GoAway(errCode uint64, reason string) {
	c.remote.conn.GoAway(errCode, reason)
}

// Stats returns a snapshot of the connection's recovery counters.
func (c Conn) Stats() transport.ConnStats {
	return c.remote.conn.Stats()
}
