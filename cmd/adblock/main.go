// Command adblock runs a filtering MITM proxy and an optional DNS forwarder,
// which use Adblock Plus filter lists.
package main

import (
	"context"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AdguardTeam/adblock"
	"github.com/AdguardTeam/adblock/dnsfilter"
	"github.com/AdguardTeam/adblock/internal/metrics"
	"github.com/AdguardTeam/adblock/proxy"
	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/AdguardTeam/gomitmproxy"
	"github.com/AdguardTeam/gomitmproxy/mitm"
	goFlags "github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus"
)

// upstreamTimeout is the timeout of the queries to the upstream DNS server.
const upstreamTimeout = 5 * time.Second

// shutdownTimeout is the timeout for shutting down the servers.
const shutdownTimeout = 5 * time.Second

func main() {
	var opts Options
	parser := goFlags.NewParser(&opts, goFlags.Default)

	_, err := parser.Parse()
	if err != nil {
		var flagsErr *goFlags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == goFlags.ErrHelp {
			os.Exit(0)
		}

		os.Exit(1)
	}

	err = prepareOptions(&opts)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "adblock: %s\n", err)

		os.Exit(1)
	}

	err = run(&opts)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "adblock: %s\n", err)

		os.Exit(1)
	}
}

// prepareOptions merges the configuration file into opts, sets the defaults,
// and validates the result.
func prepareOptions(opts *Options) (err error) {
	if opts.ConfigPath != "" {
		var file *Options
		file, err = readConfigFile(opts.ConfigPath)
		if err != nil {
			return err
		}

		opts.merge(file)
	}

	err = opts.setDefaults()
	if err != nil {
		return err
	}

	return opts.validate()
}

// run starts the services and waits for a termination signal.
func run(opts *Options) (err error) {
	var output io.Writer = os.Stderr
	if opts.LogOutput != "" {
		// #nosec G302 G304 -- Trust the path explicitly given by the user.
		file, fileErr := os.OpenFile(opts.LogOutput, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		if fileErr != nil {
			return fmt.Errorf("opening log file: %w", fileErr)
		}
		defer func() { err = errors.WithDeferred(err, file.Close()) }()

		output = file
	}

	logger := slogutil.New(&slogutil.Config{
		Output:       output,
		Format:       slogutil.FormatText,
		AddTimestamp: true,
		Verbose:      opts.Verbose,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := prometheus.NewRegistry()
	mtrc, err := metrics.NewEngine(metrics.Namespace, reg)
	if err != nil {
		return fmt.Errorf("registering metrics: %w", err)
	}

	engine := adblock.New(&adblock.Config{
		Logger:  logger.With(slogutil.KeyPrefix, "engine"),
		Metrics: mtrc,
		Dir:     opts.FilterDir,
	})

	err = engine.Reload(ctx)
	if err != nil {
		// Keep running with the empty snapshot, the directory may appear
		// later.
		logger.WarnContext(ctx, "loading filter lists", slogutil.KeyError, err)
	}

	go watch(ctx, logger, engine)

	closers, err := startServers(ctx, logger, opts, engine, reg)
	if err != nil {
		return err
	}

	signalChannel := make(chan os.Signal, 1)
	signal.Notify(signalChannel, syscall.SIGINT, syscall.SIGTERM)
	sig := <-signalChannel

	logger.InfoContext(ctx, "shutting down", "signal", sig)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		errs = append(errs, closers[i](shutdownCtx))
	}

	return errors.Join(errs...)
}

// watch reloads the filter lists on changes until ctx is canceled.
func watch(ctx context.Context, logger *slog.Logger, engine *adblock.Engine) {
	defer slogutil.RecoverAndLog(ctx, logger)

	err := engine.Watch(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "watching filter lists", slogutil.KeyError, err)
	}
}

// closeFunc stops a started service.
type closeFunc func(ctx context.Context) (err error)

// startServers starts the proxy and, if configured, the DNS and metrics
// servers.  closers stop the started ones in the reverse order.
func startServers(
	ctx context.Context,
	logger *slog.Logger,
	opts *Options,
	engine *adblock.Engine,
	reg *prometheus.Registry,
) (closers []closeFunc, err error) {
	defer func() {
		if err == nil {
			return
		}

		for i := len(closers) - 1; i >= 0; i-- {
			err = errors.WithDeferred(err, closers[i](ctx))
		}

		closers = nil
	}()

	if opts.MetricsListenAddr != "" {
		srv := metrics.NewServer(logger.With(slogutil.KeyPrefix, "metrics"), opts.MetricsListenAddr, reg)
		err = srv.Start(ctx)
		if err != nil {
			return closers, fmt.Errorf("starting metrics server: %w", err)
		}

		closers = append(closers, srv.Shutdown)
	}

	if opts.DNSListenAddr != "" {
		dnsLogger := logger.With(slogutil.KeyPrefix, "dns")
		h := dnsfilter.NewHandler(&dnsfilter.HandlerConfig{
			Logger:   dnsLogger,
			Blocker:  engine,
			Upstream: dnsfilter.NewClientUpstream("udp", opts.Upstream, upstreamTimeout),
		})

		srv := dnsfilter.NewServer(dnsLogger, opts.DNSListenAddr, h)
		err = srv.Start(ctx)
		if err != nil {
			return closers, fmt.Errorf("starting dns server: %w", err)
		}

		closers = append(closers, srv.Shutdown)
	}

	conf, err := newProxyConfig(logger.With(slogutil.KeyPrefix, "proxy"), opts, engine)
	if err != nil {
		return closers, err
	}

	srv := proxy.NewServer(conf)
	err = srv.Start()
	if err != nil {
		return closers, fmt.Errorf("starting proxy: %w", err)
	}

	closers = append(closers, func(_ context.Context) (err error) {
		srv.Close()

		return nil
	})

	return closers, nil
}

// newProxyConfig returns the configuration of the filtering proxy.
func newProxyConfig(
	logger *slog.Logger,
	opts *Options,
	engine *adblock.Engine,
) (conf *proxy.Config, err error) {
	conf = &proxy.Config{
		Logger:             logger,
		Filter:             engine,
		InjectionHost:      opts.InjectionHost,
		CompressStylesheet: true,
		ProxyConfig: gomitmproxy.Config{
			ListenAddr: &net.TCPAddr{
				IP:   net.ParseIP(opts.ListenAddr),
				Port: opts.ListenPort,
			},
			Username: opts.ProxyUser,
			Password: opts.ProxyPassword,
			APIHost:  "adblock",
		},
	}

	if opts.TLSCertPath == "" {
		return conf, nil
	}

	mitmConfig, err := newMITMConfig(opts.TLSCertPath, opts.TLSKeyPath)
	if err != nil {
		return nil, err
	}

	conf.ProxyConfig.MITMConfig = mitmConfig

	if opts.HTTPSProxy {
		var proxyCert *tls.Certificate
		proxyCert, err = mitmConfig.GetOrCreateCert(opts.HTTPSHostname)
		if err != nil {
			return nil, fmt.Errorf("generating certificate for %s: %w", opts.HTTPSHostname, err)
		}

		conf.ProxyConfig.TLSConfig = &tls.Config{
			Certificates: []tls.Certificate{*proxyCert},
			ServerName:   opts.HTTPSHostname,
			MinVersion:   tls.VersionTLS12,
		}
	}

	return conf, nil
}

// newMITMConfig loads the root CA and creates the MITM configuration.
func newMITMConfig(certPath, keyPath string) (c *mitm.Config, err error) {
	tlsCert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, fmt.Errorf("loading root ca: %w", err)
	}

	privateKey, ok := tlsCert.PrivateKey.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("root ca key: unsupported type %T", tlsCert.PrivateKey)
	}

	x509c, err := x509.ParseCertificate(tlsCert.Certificate[0])
	if err != nil {
		return nil, fmt.Errorf("parsing root ca: %w", err)
	}

	c, err = mitm.NewConfig(x509c, privateKey, nil)
	if err != nil {
		return nil, fmt.Errorf("creating mitm config: %w", err)
	}

	// Generate the certificates valid for 7 days.
	c.SetValidity(7 * 24 * time.Hour)
	c.SetOrganization("AdGuard")

	return c, nil
}
