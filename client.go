package quic

import (
	"crypto/rand"
	"io"
	"net"

	"github.com/quince-project/quince/transport"
)

// Client dials outbound QUIC connections over a single local UDP socket.
type Client struct {
	endpoint
}

// NewClient creates a Client. A nil config uses NewConfig's defaults.
func NewClient(config *Config) *Client {
	if config == nil {
		config = NewConfig()
	}
	c := &Client{}
	c.endpoint.init(config, false)
	return c
}

// SetHandler sets the callback invoked with each connection's events.
func (c *Client) SetHandler(h Handler) {
	c.endpoint.SetHandler(h)
}

// SetLogger enables qlog-style transaction logging at the given verbosity
// (0=off 1=error 2=info 3=debug 4=trace).
func (c *Client) SetLogger(level int, w io.Writer) {
	c.endpoint.SetLogger(level, w)
}

// ListenAndServe opens the local socket connections are dialed from and
// replies are read on. addr may be "0.0.0.0:0" for an ephemeral port.
func (c *Client) ListenAndServe(addr string) error {
	return c.endpoint.listen(addr)
}

// Connect starts a new connection to addr.
func (c *Client) Connect(addr string) error {
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return err
	}
	scid := make([]byte, cidLength)
	if _, err := rand.Read(scid); err != nil {
		return err
	}
	cfg := c.endpoint.config.transportConfig()
	tc, err := transport.Connect(scid, &cfg)
	if err != nil {
		return err
	}
	c.endpoint.addConn(newRemoteConn(scid, raddr, tc))
	return nil
}

// Close shuts down every connection and releases the socket.
func (c *Client) Close() error {
	return c.endpoint.close()
}
