// Package dnsfilter implements a DNS forwarder that answers the queries for
// the hosts blocked by the host-level filtering rules.
package dnsfilter

import (
	"context"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/miekg/dns"
)

// DefaultBlockedTTL is the default TTL of the answers to the blocked queries.
const DefaultBlockedTTL = 10 * time.Second

// Blocker decides which hosts are blocked.  *adblock.Engine implements it.
type Blocker interface {
	// ShouldBlockHost returns true if hostname must be blocked.
	ShouldBlockHost(ctx context.Context, hostname string) (ok bool)
}

// Upstream resolves the queries which are not blocked.
type Upstream interface {
	// Exchange sends req to the upstream server and returns its response.
	Exchange(ctx context.Context, req *dns.Msg) (resp *dns.Msg, err error)
}

// HandlerConfig is the configuration structure for a [Handler].
type HandlerConfig struct {
	// Logger is used to log the queries.  It must not be nil.
	Logger *slog.Logger

	// Blocker is used to filter the queries.  It must not be nil.
	Blocker Blocker

	// Upstream is used to resolve the allowed queries.  It must not be nil.
	Upstream Upstream

	// BlockedTTL is the TTL of the answers to the blocked queries.  If zero,
	// [DefaultBlockedTTL] is used.
	BlockedTTL time.Duration
}

// Handler is a [dns.Handler] which answers the blocked queries with the
// unspecified addresses and forwards the rest to the upstream.
type Handler struct {
	logger   *slog.Logger
	blocker  Blocker
	upstream Upstream
	ttl      uint32
}

// type check
var _ dns.Handler = (*Handler)(nil)

// NewHandler returns a new properly initialized *Handler.  c must not be nil.
func NewHandler(c *HandlerConfig) (h *Handler) {
	ttl := c.BlockedTTL
	if ttl == 0 {
		ttl = DefaultBlockedTTL
	}

	return &Handler{
		logger:   c.Logger,
		blocker:  c.Blocker,
		upstream: c.Upstream,
		ttl:      uint32(ttl.Seconds()),
	}
}

// ServeDNS implements the [dns.Handler] interface for *Handler.
func (h *Handler) ServeDNS(w dns.ResponseWriter, req *dns.Msg) {
	ctx := context.Background()
	defer slogutil.RecoverAndLog(ctx, h.logger)

	resp := h.handle(ctx, req)

	err := w.WriteMsg(resp)
	if err != nil {
		h.logger.DebugContext(ctx, "writing response", slogutil.KeyError, err)
	}
}

// handle returns the response to req.
func (h *Handler) handle(ctx context.Context, req *dns.Msg) (resp *dns.Msg) {
	if len(req.Question) != 1 {
		return newErrorResponse(req, dns.RcodeFormatError)
	}

	q := req.Question[0]
	host := strings.TrimSuffix(strings.ToLower(q.Name), ".")

	if q.Qclass == dns.ClassINET && h.blocker.ShouldBlockHost(ctx, host) {
		h.logger.DebugContext(ctx, "query blocked", "host", host, "qtype", dns.Type(q.Qtype))

		return h.newBlockedResponse(req)
	}

	resp, err := h.upstream.Exchange(ctx, req)
	if err != nil {
		h.logger.DebugContext(ctx, "forwarding query", "host", host, slogutil.KeyError, err)

		return newErrorResponse(req, dns.RcodeServerFailure)
	}

	resp.Id = req.Id

	return resp
}

// newBlockedResponse returns the response to the blocked query req.  A and
// AAAA queries are answered with the unspecified addresses and the others
// get an empty answer.
func (h *Handler) newBlockedResponse(req *dns.Msg) (resp *dns.Msg) {
	resp = (&dns.Msg{}).SetReply(req)
	resp.RecursionAvailable = true

	q := req.Question[0]
	hdr := dns.RR_Header{
		Name:   q.Name,
		Rrtype: q.Qtype,
		Class:  dns.ClassINET,
		Ttl:    h.ttl,
	}

	switch q.Qtype {
	case dns.TypeA:
		resp.Answer = append(resp.Answer, &dns.A{Hdr: hdr, A: net.IPv4zero.To4()})
	case dns.TypeAAAA:
		resp.Answer = append(resp.Answer, &dns.AAAA{Hdr: hdr, AAAA: net.IPv6unspecified})
	default:
		// Go on and return an empty answer.
	}

	return resp
}

// newErrorResponse returns a response to req with the rcode.
func newErrorResponse(req *dns.Msg, rcode int) (resp *dns.Msg) {
	resp = (&dns.Msg{}).SetRcode(req, rcode)
	resp.RecursionAvailable = true

	return resp
}

// ClientUpstream is an [Upstream] which uses a [dns.Client].
type ClientUpstream struct {
	client *dns.Client
	addr   string
}

// type check
var _ Upstream = (*ClientUpstream)(nil)

// NewClientUpstream returns an upstream which sends the queries to addr over
// the network, which is "udp" or "tcp".  If addr has no port, 53 is used.
func NewClientUpstream(network, addr string, timeout time.Duration) (u *ClientUpstream) {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, "53")
	}

	return &ClientUpstream{
		client: &dns.Client{
			Net:     network,
			Timeout: timeout,
		},
		addr: addr,
	}
}

// Exchange implements the [Upstream] interface for *ClientUpstream.
func (u *ClientUpstream) Exchange(ctx context.Context, req *dns.Msg) (resp *dns.Msg, err error) {
	resp, _, err = u.client.ExchangeContext(ctx, req, u.addr)
	if err != nil {
		return nil, errors.Annotate(err, "exchanging with %s: %w", u.addr)
	}

	if resp.Truncated && u.client.Net != "tcp" {
		tcp := &dns.Client{Net: "tcp", Timeout: u.client.Timeout}
		resp, _, err = tcp.ExchangeContext(ctx, req, u.addr)
		if err != nil {
			return nil, errors.Annotate(err, "exchanging with %s over tcp: %w", u.addr)
		}
	}

	return resp, nil
}
