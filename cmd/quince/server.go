package main

import (
	"context"
	"crypto/tls"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/quince-project/quince"
	"github.com/quince-project/quince/transport"
)

func serverCommand(args []string) error {
	cmd := flag.NewFlagSet("server", flag.ExitOnError)
	listenAddr := cmd.String("listen", "0.0.0.0:4433", "listen on the given IP:port")
	certFile := cmd.String("cert", "", "TLS certificate file (PEM)")
	keyFile := cmd.String("key", "", "TLS private key file (PEM)")
	metricsAddr := cmd.String("metrics", "", "expose Prometheus metrics on this address (disabled if empty)")
	logLevel := cmd.Int("v", 2, "log verbose: 0=off 1=error 2=info 3=debug 4=trace")
	cmd.Parse(args)

	if *certFile == "" || *keyFile == "" {
		return fmt.Errorf("server: -cert and -key are required")
	}
	cert, err := tls.LoadX509KeyPair(*certFile, *keyFile)
	if err != nil {
		return err
	}
	config := newConfig()
	config.TLS.Certificates = []tls.Certificate{cert}

	stats := newServerStats()
	if *metricsAddr != "" {
		stats.serve(*metricsAddr)
	}

	handler := &serverHandler{stats: stats}
	server := quic.NewServer(config)
	server.SetHandler(handler)
	server.SetLogger(*logLevel, os.Stdout)
	if err := server.ListenAndServe(*listenAddr); err != nil {
		return err
	}
	defer server.Close()

	log.Printf("listening on %s", *listenAddr)
	stats.runFlushLoop(context.Background())
	return nil
}

type serverHandler struct {
	stats *serverStats
}

func (h *serverHandler) Serve(c quic.Conn, events []transport.Event) {
	// Serve runs on the connection's own goroutine, so this is the one safe
	// place to read its recovery snapshot.
	h.stats.observe(c)
	for _, e := range events {
		switch e.Type {
		case quic.EventConnAccept:
			h.stats.connOpened(c)
			log.Printf("%s: connection established", c.RemoteAddr())
		case transport.EventStream:
			st := c.Stream(e.StreamID)
			if st == nil {
				continue
			}
			buf := make([]byte, 4096)
			n, _ := st.Read(buf)
			if n > 0 {
				log.Printf("%s: stream %d: %d bytes", c.RemoteAddr(), e.StreamID, n)
				_, _ = st.Write(buf[:n])
				_ = st.Close()
			}
		case quic.EventConnClose:
			h.stats.connClosed(c)
			log.Printf("%s: connection closed", c.RemoteAddr())
		}
	}
}

// serverStats tracks the handful of gauges a running server exposes over
// -metrics, and rate-limits the background job that refreshes them so a
// burst of connection churn cannot turn it into a busy poll.
type serverStats struct {
	active        prometheus.Gauge
	bytesInFlight prometheus.Gauge
	packetsLost   prometheus.Counter

	activeCount int64
	limiter     *rate.Limiter

	mu        sync.Mutex
	snapshots map[string]transport.ConnStats
	lostSeen  map[string]uint64
}

func newServerStats() *serverStats {
	return &serverStats{
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "quic_connections_active",
			Help: "Number of QUIC connections currently established.",
		}),
		bytesInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "quic_bytes_in_flight",
			Help: "Sent bytes not yet acknowledged or declared lost, summed over all connections.",
		}),
		packetsLost: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quic_packets_lost_total",
			Help: "Packets declared lost by the loss detector, summed over all connections.",
		}),
		limiter:   rate.NewLimiter(rate.Every(10*time.Second), 1),
		snapshots: make(map[string]transport.ConnStats),
		lostSeen:  make(map[string]uint64),
	}
}

// observe stores the connection's latest recovery snapshot, folding newly
// lost packets into the counter as they appear.
func (s *serverStats) observe(c quic.Conn) {
	key := c.RemoteAddr().String()
	st := c.Stats()
	s.mu.Lock()
	s.snapshots[key] = st
	if st.PacketsLost > s.lostSeen[key] {
		s.packetsLost.Add(float64(st.PacketsLost - s.lostSeen[key]))
		s.lostSeen[key] = st.PacketsLost
	}
	s.mu.Unlock()
}

func (s *serverStats) connOpened(c quic.Conn) {
	atomic.AddInt64(&s.activeCount, 1)
	s.active.Inc()
}

func (s *serverStats) connClosed(c quic.Conn) {
	atomic.AddInt64(&s.activeCount, -1)
	s.active.Dec()
	key := c.RemoteAddr().String()
	s.mu.Lock()
	delete(s.snapshots, key)
	delete(s.lostSeen, key)
	s.mu.Unlock()
}

func (s *serverStats) serve(addr string) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(s.active, s.bytesInFlight, s.packetsLost)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Printf("metrics server: %v", err)
		}
	}()
}

// refresh recomputes the aggregate gauges from the stored snapshots.
func (s *serverStats) refresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	inFlight := 0
	for _, st := range s.snapshots {
		inFlight += st.BytesInFlight
	}
	s.bytesInFlight.Set(float64(inFlight))
}

// runFlushLoop refreshes the gauges and logs a connection count snapshot
// for as long as the server runs; the limiter is what makes it a flush
// cadence rather than a tight loop.
func (s *serverStats) runFlushLoop(ctx context.Context) {
	for {
		if err := s.limiter.Wait(ctx); err != nil {
			return
		}
		s.refresh()
		log.Printf("active connections: %d", atomic.LoadInt64(&s.activeCount))
	}
}
