package quic

import (
	"crypto/tls"

	"github.com/quince-project/quince/transport"
)

// Config is construction-time configuration shared by Client and Server. It
// wraps transport.Config with the handful of knobs that only make sense at
// the endpoint level (how many simultaneous connections a Server tracks, how
// large a read buffer to give the socket).
type Config struct {
	TLS       *tls.Config
	Transport transport.Config

	// ReadBufferSize is the UDP datagram buffer used for each recvfrom; it
	// should be at least transport.MaxPacketSize.
	ReadBufferSize int
	// MaxConns bounds how many simultaneous connections a Server tracks.
	MaxConns int
}

// NewConfig returns a Config populated with this module's defaults, ready
// for the caller to set TLS certificates (server) or TLS.ServerName
// (client) before use.
func NewConfig() *Config {
	t := transport.NewConfig()
	return &Config{
		TLS:            &tls.Config{MinVersion: tls.VersionTLS13, NextProtos: []string{"quince"}},
		Transport:      *t,
		ReadBufferSize: transport.MaxPacketSize,
		MaxConns:       1024,
	}
}

func (c *Config) transportConfig() transport.Config {
	cfg := c.Transport
	cfg.TLS = c.TLS
	return cfg
}
