package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Path is the HTTP path of the metrics handler.
const Path = "/metrics"

// readHeaderTimeout is the timeout for reading the request headers.
const readHeaderTimeout = 10 * time.Second

// Server serves the metrics over HTTP.
type Server struct {
	logger *slog.Logger
	srv    *http.Server
}

// NewServer returns a new metrics server serving the metrics from gatherer on
// addr.
func NewServer(logger *slog.Logger, addr string, gatherer prometheus.Gatherer) (s *Server) {
	mux := http.NewServeMux()
	mux.Handle(Path, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
		ErrorLog: slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}))
	mux.HandleFunc("/health-check", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("OK\n"))
	})

	return &Server{
		logger: logger,
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: readHeaderTimeout,
		},
	}
}

// Start starts listening and serves the metrics in a separate goroutine.
func (s *Server) Start(ctx context.Context) (err error) {
	l, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listening on %q: %w", s.srv.Addr, err)
	}

	s.logger.InfoContext(ctx, "serving metrics", "addr", l.Addr(), "path", Path)

	go func() {
		defer slogutil.RecoverAndLog(ctx, s.logger)

		serveErr := s.srv.Serve(l)
		if serveErr != nil && serveErr != http.ErrServerClosed {
			s.logger.ErrorContext(ctx, "serving metrics", slogutil.KeyError, serveErr)
		}
	}()

	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) (err error) {
	return s.srv.Shutdown(ctx)
}
