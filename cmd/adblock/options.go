package main

import (
	"fmt"
	"net"
	"os"
	"path/filepath"

	"github.com/AdguardTeam/adblock/filterlist"
	"github.com/AdguardTeam/adblock/proxy"
	"github.com/AdguardTeam/golibs/errors"
	"gopkg.in/yaml.v3"
)

// Default values of the options.
const (
	defaultListenAddr    = "0.0.0.0"
	defaultListenPort    = 8080
	defaultUpstream      = "1.1.1.1:53"
	defaultInjectionHost = proxy.DefaultInjectionHost
)

// Options are the console arguments.  The options which are not set on the
// command line are taken from the configuration file, if there is one.
type Options struct {
	// ConfigPath is the path to the YAML configuration file.
	ConfigPath string `long:"config" description:"Path to the YAML configuration file (optional)." yaml:"-"`

	// Verbose defines whether to write the debug-level log.
	Verbose bool `short:"v" long:"verbose" description:"Verbose output (optional)." optional:"yes" optional-value:"true" yaml:"verbose"`

	// LogOutput is the path to the log file.
	LogOutput string `short:"o" long:"output" description:"Path to the log file. If not set, it writes to stderr." yaml:"log_output"`

	// FilterDir is the directory with the filter lists.
	FilterDir string `short:"d" long:"dir" description:"Path to the directory with the filter lists. Defaults to the adblock directory in the user config directory." yaml:"filter_dir"`

	// ListenAddr is the proxy listen address.
	ListenAddr string `short:"l" long:"listen" description:"Proxy listen address. Default: 0.0.0.0." yaml:"listen_addr"`

	// ListenPort is the proxy listen port.
	ListenPort int `short:"p" long:"port" description:"Proxy listen port. Default: 8080." yaml:"listen_port"`

	// TLSCertPath is the path to the file with the root certificate.
	TLSCertPath string `short:"c" long:"ca-cert" description:"Path to a file with the root certificate. MITM is disabled if not set." yaml:"ca_cert"`

	// TLSKeyPath is the path to the file with the CA private key.
	TLSKeyPath string `short:"k" long:"ca-key" description:"Path to a file with the CA private key." yaml:"ca_key"`

	// ProxyUser is the proxy auth username.
	ProxyUser string `short:"u" long:"username" description:"Proxy auth username. If specified, proxy authorization is required." yaml:"username"`

	// ProxyPassword is the proxy auth password.
	ProxyPassword string `short:"a" long:"password" description:"Proxy auth password. If specified, proxy authorization is required." yaml:"password"`

	// HTTPSProxy, if true, makes the proxy accept TLS connections.
	HTTPSProxy bool `short:"t" long:"https" description:"Run an HTTPS proxy (otherwise, it runs plain HTTP proxy)." optional:"yes" optional-value:"true" yaml:"https"`

	// HTTPSHostname is the server name of the HTTPS proxy.
	HTTPSHostname string `short:"n" long:"https-name" description:"Server name or IP address of the HTTPS proxy." yaml:"https_name"`

	// InjectionHost is the host serving the element hiding stylesheets.
	InjectionHost string `long:"injection-host" description:"Host serving the element hiding stylesheets." yaml:"injection_host"`

	// DNSListenAddr is the address of the DNS forwarder.
	DNSListenAddr string `long:"dns-listen" description:"Listen address of the DNS forwarder, e.g. 127.0.0.1:5353. The forwarder is disabled if not set." yaml:"dns_listen_addr"`

	// Upstream is the address of the upstream DNS server.
	Upstream string `long:"upstream" description:"Upstream DNS server. Default: 1.1.1.1:53." yaml:"upstream"`

	// MetricsListenAddr is the address of the metrics HTTP server.
	MetricsListenAddr string `long:"metrics-listen" description:"Listen address of the Prometheus metrics server. Disabled if not set." yaml:"metrics_listen_addr"`
}

// readConfigFile reads the YAML configuration file at path.
func readConfigFile(path string) (file *Options, err error) {
	// #nosec G304 -- Trust the path explicitly given by the user.
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	file = &Options{}
	err = yaml.Unmarshal(b, file)
	if err != nil {
		return nil, fmt.Errorf("parsing config %q: %w", path, err)
	}

	return file, nil
}

// merge sets the zero-value fields of opts to the ones from file.
func (opts *Options) merge(file *Options) {
	setString := func(v *string, f string) {
		if *v == "" {
			*v = f
		}
	}

	opts.Verbose = opts.Verbose || file.Verbose
	opts.HTTPSProxy = opts.HTTPSProxy || file.HTTPSProxy

	if opts.ListenPort == 0 {
		opts.ListenPort = file.ListenPort
	}

	setString(&opts.LogOutput, file.LogOutput)
	setString(&opts.FilterDir, file.FilterDir)
	setString(&opts.ListenAddr, file.ListenAddr)
	setString(&opts.TLSCertPath, file.TLSCertPath)
	setString(&opts.TLSKeyPath, file.TLSKeyPath)
	setString(&opts.ProxyUser, file.ProxyUser)
	setString(&opts.ProxyPassword, file.ProxyPassword)
	setString(&opts.HTTPSHostname, file.HTTPSHostname)
	setString(&opts.InjectionHost, file.InjectionHost)
	setString(&opts.DNSListenAddr, file.DNSListenAddr)
	setString(&opts.Upstream, file.Upstream)
	setString(&opts.MetricsListenAddr, file.MetricsListenAddr)
}

// setDefaults sets the default values of the options which are still not
// set.
func (opts *Options) setDefaults() (err error) {
	if opts.ListenAddr == "" {
		opts.ListenAddr = defaultListenAddr
	}

	if opts.ListenPort == 0 {
		opts.ListenPort = defaultListenPort
	}

	if opts.Upstream == "" {
		opts.Upstream = defaultUpstream
	}

	if opts.InjectionHost == "" {
		opts.InjectionHost = defaultInjectionHost
	}

	if opts.FilterDir == "" {
		var dir string
		dir, err = os.UserConfigDir()
		if err != nil {
			return fmt.Errorf("getting config dir: %w", err)
		}

		opts.FilterDir = filepath.Join(dir, filterlist.DefaultDirName)
	}

	return nil
}

// validate returns an error if the options are invalid.
func (opts *Options) validate() (err error) {
	var errs []error

	if net.ParseIP(opts.ListenAddr) == nil {
		errs = append(errs, fmt.Errorf("listen address: bad ip %q", opts.ListenAddr))
	}

	if opts.ListenPort < 0 || opts.ListenPort > 65535 {
		errs = append(errs, fmt.Errorf("listen port: out of range: %d", opts.ListenPort))
	}

	if (opts.TLSCertPath == "") != (opts.TLSKeyPath == "") {
		errs = append(errs, errors.Error("ca-cert and ca-key must be set together"))
	}

	if opts.HTTPSProxy {
		if opts.HTTPSHostname == "" {
			errs = append(errs, errors.Error("https-name must be set for an https proxy"))
		}

		if opts.TLSCertPath == "" {
			errs = append(errs, errors.Error("ca-cert must be set for an https proxy"))
		}
	}

	return errors.Join(errs...)
}
