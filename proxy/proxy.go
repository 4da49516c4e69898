// Package proxy implements a MITM proxy that blocks requests and hides page
// elements using Adblock Plus filter lists.
package proxy

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/AdguardTeam/adblock/rules"
	"github.com/AdguardTeam/gomitmproxy"
)

const (
	sessionPropKey    = "session"
	requestBlockedKey = "blocked"
)

// DefaultInjectionHost is the default value of [Config.InjectionHost].
const DefaultInjectionHost = "injections.adblock.local"

// Filter decides which requests are blocked and which page elements are
// hidden.  *adblock.Engine implements it.
type Filter interface {
	// MatchRequest returns the rule that blocks r and the name of its filter
	// list.  rule is nil if r is allowed.
	MatchRequest(ctx context.Context, r *rules.Request) (rule *rules.NetworkRule, listName string)

	// CollectCSSRules returns the selectors of the elements to hide on the
	// page on domain.
	CollectCSSRules(domain string) (selectors []string)

	// UpdatedAt returns the time the filtering rules were last changed.
	UpdatedAt() (t time.Time)
}

// Config contains the MITM proxy configuration.
type Config struct {
	// Logger is used to log the filtering decisions.  It must not be nil.
	Logger *slog.Logger

	// Filter is used to filter the requests and the pages.  It must not be
	// nil.
	Filter Filter

	// ProxyConfig is the configuration of the MITM proxy.  Its handlers are
	// overwritten by the server.
	ProxyConfig gomitmproxy.Config

	// InjectionHost is used for injecting the element hiding stylesheet into
	// web pages.
	//
	// Here's how it works:
	//   - The proxy injects <link rel="stylesheet"
	//     href="//INJECTION_HOST/elemhide.css?hostname=HOSTNAME&ts=TS"> into
	//     HTML pages.
	//   - The proxy handles the requests to this host itself and serves the
	//     element hiding rules for HOSTNAME.
	//
	// If empty, [DefaultInjectionHost] is used.
	InjectionHost string

	// CompressStylesheet makes the server compress the stylesheet for the
	// clients accepting gzip.  This is useful when the proxy is on a public
	// server, as it saves some data.
	CompressStylesheet bool
}

// String implements the fmt.Stringer interface for *Config.
func (c *Config) String() (s string) {
	sb := &strings.Builder{}

	if c.ProxyConfig.ListenAddr != nil {
		_, _ = fmt.Fprintf(sb, "Listen addr: %s\n", c.ProxyConfig.ListenAddr)
	}

	_, _ = fmt.Fprintf(sb, "MITM status: %v\n", c.ProxyConfig.MITMConfig != nil)
	_, _ = fmt.Fprintf(sb, "Run as HTTPS proxy: %v\n", c.ProxyConfig.TLSConfig != nil)

	if c.ProxyConfig.Username != "" {
		_, _ = fmt.Fprintf(sb, "Proxy auth: %s\n", c.ProxyConfig.Username)
	}

	if c.ProxyConfig.APIHost != "" {
		_, _ = fmt.Fprintf(sb, "API host: %s\n", c.ProxyConfig.APIHost)
	}

	_, _ = fmt.Fprintf(sb, "Injection host: %s\n", c.InjectionHost)

	return sb.String()
}

// Server contains the current server state.
type Server struct {
	logger *slog.Logger
	filter Filter

	// proxyServer is the MITM proxy server instance.
	proxyServer *gomitmproxy.Proxy

	// createdAt is the time when the server was created.
	createdAt time.Time

	injectionHost      string
	compressStylesheet bool
}

// NewServer creates a new instance of the MITM server.  c must not be nil.
func NewServer(c *Config) (s *Server) {
	if c.InjectionHost == "" {
		c.InjectionHost = DefaultInjectionHost
	}

	c.Logger.Info("initializing the proxy server", "config", c.String())

	s = &Server{
		logger:             c.Logger,
		filter:             c.Filter,
		createdAt:          time.Now(),
		injectionHost:      c.InjectionHost,
		compressStylesheet: c.CompressStylesheet,
	}

	proxyConf := c.ProxyConfig
	proxyConf.OnRequest = s.onRequest
	proxyConf.OnResponse = s.onResponse
	proxyConf.OnConnect = s.onConnect
	s.proxyServer = gomitmproxy.NewProxy(proxyConf)

	return s
}

// Start starts the proxy server.
func (s *Server) Start() (err error) {
	return s.proxyServer.Start()
}

// Close stops the proxy server.
func (s *Server) Close() {
	s.proxyServer.Close()
}
