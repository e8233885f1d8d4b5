package quic

import (
	"crypto/rand"
	"io"
	"net"
	"sync"
	"time"

	"github.com/quince-project/quince/transport"
)

// cidLength is the connection id length this module hands out, for both
// client-chosen and server-chosen ids. Fixing the length lets the endpoint
// parse a short header's destination cid, which carries no length of its
// own on the wire.
const cidLength = 16

// Handler reacts to events a connection produces between reads of the
// socket: new stream data, a completed handshake, a connection closing.
type Handler interface {
	Serve(c Conn, events []transport.Event)
}

// endpoint is the UDP socket loop shared by Client and Server: one
// goroutine reads datagrams and routes them by destination connection id,
// one goroutine per connection drives its Read/Write/Timeout cycle.
type endpoint struct {
	isServer bool
	config   *Config
	handler  Handler
	logger   logger

	socket net.PacketConn

	mu    sync.Mutex
	conns map[string]*remoteConn

	wg        sync.WaitGroup
	closing   chan struct{}
	closeOnce sync.Once
}

func (e *endpoint) init(config *Config, isServer bool) {
	e.config = config
	e.isServer = isServer
	e.conns = make(map[string]*remoteConn)
	e.closing = make(chan struct{})
}

func (e *endpoint) SetHandler(h Handler) {
	e.handler = h
}

func (e *endpoint) SetLogger(level int, w io.Writer) {
	e.logger.level = logLevel(level)
	e.logger.setWriter(w)
}

func (e *endpoint) listen(addr string) error {
	socket, err := net.ListenPacket("udp", addr)
	if err != nil {
		return err
	}
	e.socket = socket
	e.wg.Add(1)
	go e.readLoop()
	return nil
}

func (e *endpoint) readLoop() {
	defer e.wg.Done()
	buf := make([]byte, e.config.ReadBufferSize)
	for {
		n, addr, err := e.socket.ReadFrom(buf)
		if err != nil {
			select {
			case <-e.closing:
			default:
				e.logger.log(levelError, "read: %v", err)
			}
			return
		}
		data := append([]byte(nil), buf[:n]...)
		e.handlePacket(data, addr)
	}
}

// handlePacket routes one datagram to the connection it belongs to by
// destination connection id, or accepts a new server connection when none
// matches and the packet carries a long header.
func (e *endpoint) handlePacket(data []byte, addr net.Addr) {
	dcid, _, long, err := transport.DecodeHeader(data, cidLength)
	if err != nil {
		e.logger.log(levelDebug, "drop packet from %s: %v", addr, err)
		return
	}
	e.mu.Lock()
	rc, ok := e.conns[string(dcid)]
	e.mu.Unlock()
	if ok {
		rc.deliver(data)
		return
	}
	if !e.isServer || !long {
		e.logger.log(levelDebug, "drop packet from %s: unknown connection", addr)
		return
	}
	e.acceptConn(data, addr, dcid)
}

func (e *endpoint) acceptConn(data []byte, addr net.Addr, odcid []byte) {
	e.mu.Lock()
	full := len(e.conns) >= e.config.MaxConns
	e.mu.Unlock()
	if full {
		e.logger.log(levelError, "reject connection from %s: too many connections", addr)
		return
	}
	scid := make([]byte, cidLength)
	if _, err := rand.Read(scid); err != nil {
		e.logger.log(levelError, "accept: %v", err)
		return
	}
	cfg := e.config.transportConfig()
	tc, err := transport.Accept(scid, odcid, &cfg)
	if err != nil {
		e.logger.log(levelError, "accept: %v", err)
		return
	}
	rc := newRemoteConn(scid, addr, tc)
	e.addConn(rc)
	rc.deliver(data)
}

func (e *endpoint) addConn(rc *remoteConn) {
	e.logger.attachLogger(rc)
	e.mu.Lock()
	e.conns[string(rc.scid)] = rc
	e.mu.Unlock()
	e.wg.Add(1)
	go e.runConn(rc)
}

// runConn drives one connection until it closes: flush pending sends after
// every state change, dispatch events, then wait for the next datagram or
// the connection's own retransmission/idle deadline.
func (e *endpoint) runConn(rc *remoteConn) {
	defer e.wg.Done()
	defer e.closeConn(rc)

	buf := make([]byte, e.config.ReadBufferSize)
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()
	accepted := false

	for {
		e.flush(rc, buf)
		if events := rc.conn.Events(nil); len(events) > 0 {
			for _, ev := range events {
				if ev.Type == transport.EventPeerGoingAway {
					e.logger.logGoAway(rc, ev.ErrorCode)
				}
			}
			e.dispatch(rc, events)
		}
		if !accepted && rc.conn.IsEstablished() {
			accepted = true
			e.dispatch(rc, []transport.Event{{Type: EventConnAccept}})
		}
		if rc.conn.IsClosed() {
			return
		}
		resetTimer(timer, rc.conn.Timeout())
		select {
		case data := <-rc.recvCh:
			if _, err := rc.conn.Write(data); err != nil {
				e.logger.log(levelError, "conn %x: %v", rc.scid, err)
			}
		case <-timer.C:
			if _, err := rc.conn.Write(nil); err != nil {
				e.logger.log(levelError, "conn %x: %v", rc.scid, err)
			}
		case <-rc.closeCh:
			return
		case <-e.closing:
			return
		}
	}
}

func (e *endpoint) flush(rc *remoteConn, buf []byte) {
	for {
		n, err := rc.conn.Read(buf)
		if err != nil {
			e.logger.log(levelError, "conn %x: %v", rc.scid, err)
			return
		}
		if n == 0 {
			return
		}
		if _, err := e.socket.WriteTo(buf[:n], rc.addr); err != nil {
			e.logger.log(levelError, "conn %x: write %s: %v", rc.scid, rc.addr, err)
			return
		}
	}
}

func (e *endpoint) dispatch(rc *remoteConn, events []transport.Event) {
	if e.handler == nil {
		return
	}
	e.handler.Serve(Conn{rc}, events)
}

func (e *endpoint) closeConn(rc *remoteConn) {
	e.mu.Lock()
	delete(e.conns, string(rc.scid))
	e.mu.Unlock()
	e.logger.detachLogger(rc)
	e.dispatch(rc, []transport.Event{{Type: EventConnClose}})
	rc.shutdown()
}

func (e *endpoint) close() error {
	e.closeOnce.Do(func() { close(e.closing) })
	var err error
	if e.socket != nil {
		err = e.socket.Close()
	}
	e.mu.Lock()
	for _, rc := range e.conns {
		rc.shutdown()
	}
	e.mu.Unlock()
	e.wg.Wait()
	return err
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	if d < 0 {
		d = time.Hour
	}
	t.Reset(d)
}
