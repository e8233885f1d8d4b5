package quic

import "io"

// Server accepts inbound QUIC connections on a single local UDP socket.
type Server struct {
	endpoint
}

// NewServer creates a Server. A nil config uses NewConfig's defaults; the
// caller must still set config.TLS.Certificates before calling
// ListenAndServe.
func NewServer(config *Config) *Server {
	if config == nil {
		config = NewConfig()
	}
	s := &Server{}
	s.endpoint.init(config, true)
	return s
}

// SetHandler sets the callback invoked with each connection's events.
func (s *Server) SetHandler(h Handler) {
	s.endpoint.SetHandler(h)
}

// SetLogger enables qlog-style transaction logging at the given verbosity
// (0=off 1=error 2=info 3=debug 4=trace).
func (s *Server) SetLogger(level int, w io.Writer) {
	s.endpoint.SetLogger(level, w)
}

// ListenAndServe opens addr and accepts connections on it until Close.
func (s *Server) ListenAndServe(addr string) error {
	return s.endpoint.listen(addr)
}

// Close shuts down every connection and releases the socket.
func (s *Server) Close() error {
	return s.endpoint.close()
}
