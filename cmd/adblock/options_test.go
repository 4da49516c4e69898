package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/AdguardTeam/golibs/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepareOptions(t *testing.T) {
	const conf = `
verbose: true
filter_dir: /etc/adblock
listen_port: 3128
dns_listen_addr: 127.0.0.1:5353
upstream: 9.9.9.9:53
username: file-user
`

	path := filepath.Join(t.TempDir(), "adblock.yaml")
	err := os.WriteFile(path, []byte(conf), 0o600)
	require.NoError(t, err)

	opts := &Options{
		ConfigPath: path,
		ProxyUser:  "flag-user",
	}

	err = prepareOptions(opts)
	require.NoError(t, err)

	assert.True(t, opts.Verbose)
	assert.Equal(t, "/etc/adblock", opts.FilterDir)
	assert.Equal(t, 3128, opts.ListenPort)
	assert.Equal(t, "127.0.0.1:5353", opts.DNSListenAddr)
	assert.Equal(t, "9.9.9.9:53", opts.Upstream)

	// Command-line options take precedence.
	assert.Equal(t, "flag-user", opts.ProxyUser)

	// Defaults.
	assert.Equal(t, defaultListenAddr, opts.ListenAddr)
	assert.Equal(t, defaultInjectionHost, opts.InjectionHost)
	assert.Empty(t, opts.MetricsListenAddr)
}

func TestPrepareOptions_errors(t *testing.T) {
	dir := t.TempDir()

	testCases := []struct {
		opts       *Options
		name       string
		wantErrMsg string
	}{{
		opts: &Options{
			FilterDir:  dir,
			ListenAddr: "localhost",
		},
		name:       "bad_listen_addr",
		wantErrMsg: `listen address: bad ip "localhost"`,
	}, {
		opts: &Options{
			FilterDir:   dir,
			TLSCertPath: "ca.crt",
		},
		name:       "cert_without_key",
		wantErrMsg: "ca-cert and ca-key must be set together",
	}, {
		opts: &Options{
			FilterDir:  dir,
			HTTPSProxy: true,
		},
		name: "https_without_name",
		wantErrMsg: "https-name must be set for an https proxy\n" +
			"ca-cert must be set for an https proxy",
	}, {
		opts: &Options{
			ConfigPath: filepath.Join(dir, "bad.yaml"),
		},
		name: "missing_config",
		wantErrMsg: "reading config: open " + filepath.Join(dir, "bad.yaml") +
			": no such file or directory",
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := prepareOptions(tc.opts)
			testutil.AssertErrorMsg(t, tc.wantErrMsg, err)
		})
	}
}

func TestReadConfigFile_badYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "adblock.yaml")
	err := os.WriteFile(path, []byte("listen_port: [1"), 0o600)
	require.NoError(t, err)

	_, err = readConfigFile(path)
	assert.Error(t, err)
}
