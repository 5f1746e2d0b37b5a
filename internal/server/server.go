// Package server exposes the caller-facing HTTP surface of the voice agent:
// the two media WebSocket endpoints, the health probes, and the Prometheus
// metrics scrape endpoint.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/CLHdevOps/call-center-voice-agent-accelerator/internal/health"
	"github.com/CLHdevOps/call-center-voice-agent-accelerator/internal/observe"
	"github.com/CLHdevOps/call-center-voice-agent-accelerator/internal/relay"
	"github.com/CLHdevOps/call-center-voice-agent-accelerator/internal/storage"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 15 * time.Second

	// sessionCloseTimeout bounds the drain-and-flush work after a caller
	// disconnects.
	sessionCloseTimeout = 30 * time.Second
)

// Params bundles the server's dependencies. Upstream is the connection
// template every session starts from; instructions must already be
// resolved into it.
type Params struct {
	ListenAddr string

	// CertFile and KeyFile enable TLS when both are set.
	CertFile string
	KeyFile  string

	Upstream relay.UpstreamConfig
	Sinks    []storage.Sink
	Checkers []health.Checker
	Metrics  *observe.Metrics
	Logger   *slog.Logger
}

// Server accepts caller WebSocket connections and runs one [relay.Session]
// per connection.
type Server struct {
	addr     string
	certFile string
	keyFile  string
	upstream relay.UpstreamConfig
	sinks    []storage.Sink
	health   *health.Handler
	metrics  *observe.Metrics
	log      *slog.Logger
}

// New creates a Server from p. Metrics and Logger default to the process
// globals when nil.
func New(p Params) *Server {
	log := p.Logger
	if log == nil {
		log = slog.Default()
	}
	metrics := p.Metrics
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	return &Server{
		addr:     p.ListenAddr,
		certFile: p.CertFile,
		keyFile:  p.KeyFile,
		upstream: p.Upstream,
		sinks:    p.Sinks,
		health:   health.New(p.Checkers...),
		metrics:  metrics,
		log:      log,
	}
}

// Routes builds the HTTP handler tree. The media endpoints speak JSON
// frames in the telephony streaming format; the audio endpoint relays raw
// binary PCM.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	s.health.Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /ws/media", s.handleMedia)
	mux.HandleFunc("GET /ws/audio", s.handleAudio)
	return observe.Middleware(s.metrics)(mux)
}

// Run serves until ctx is cancelled, then drains with a bounded graceful
// shutdown.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		if s.certFile != "" && s.keyFile != "" {
			s.log.Info("server listening", "addr", s.addr, "tls", true)
			errCh <- srv.ListenAndServeTLS(s.certFile, s.keyFile)
			return
		}
		s.log.Info("server listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Join(err, srv.Close())
	}
	return nil
}
