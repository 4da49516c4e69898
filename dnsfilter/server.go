package dnsfilter

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/miekg/dns"
)

// Server serves DNS over UDP and TCP on the same address.
type Server struct {
	logger *slog.Logger
	udp    *dns.Server
	tcp    *dns.Server
}

// NewServer returns a new DNS server which serves queries on addr with h.
func NewServer(logger *slog.Logger, addr string, h dns.Handler) (s *Server) {
	return &Server{
		logger: logger,
		udp:    &dns.Server{Addr: addr, Net: "udp", Handler: h},
		tcp:    &dns.Server{Addr: addr, Net: "tcp", Handler: h},
	}
}

// Start binds the listeners and starts serving in the background.
func (s *Server) Start(ctx context.Context) (err error) {
	pc, err := net.ListenPacket("udp", s.udp.Addr)
	if err != nil {
		return fmt.Errorf("listening udp: %w", err)
	}

	l, err := net.Listen("tcp", s.tcp.Addr)
	if err != nil {
		return errors.WithDeferred(fmt.Errorf("listening tcp: %w", err), pc.Close())
	}

	s.udp.PacketConn = pc
	s.tcp.Listener = l

	go s.serve(ctx, s.udp)
	go s.serve(ctx, s.tcp)

	s.logger.InfoContext(ctx, "dns server started", "udp", pc.LocalAddr(), "tcp", l.Addr())

	return nil
}

// serve runs srv until it's shut down.
func (s *Server) serve(ctx context.Context, srv *dns.Server) {
	defer slogutil.RecoverAndLog(ctx, s.logger)

	err := srv.ActivateAndServe()
	if err != nil {
		s.logger.ErrorContext(ctx, "serving dns", "net", srv.Net, slogutil.KeyError, err)
	}
}

// LocalUDPAddr returns the address of the UDP listener.  It must only be
// called after a successful [Server.Start].
func (s *Server) LocalUDPAddr() (addr net.Addr) {
	return s.udp.PacketConn.LocalAddr()
}

// LocalTCPAddr returns the address of the TCP listener.  It must only be
// called after a successful [Server.Start].
func (s *Server) LocalTCPAddr() (addr net.Addr) {
	return s.tcp.Listener.Addr()
}

// Shutdown stops the server.
func (s *Server) Shutdown(ctx context.Context) (err error) {
	var errs []error
	for _, srv := range []*dns.Server{s.udp, s.tcp} {
		if err = srv.ShutdownContext(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutting down %s: %w", srv.Net, err))
		}
	}

	return errors.Join(errs...)
}
