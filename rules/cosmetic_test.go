package rules

import (
	"testing"

	"github.com/AdguardTeam/golibs/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewElementHidingRule(t *testing.T) {
	f, err := NewCosmeticRule("##banner")
	require.NoError(t, err)
	require.NotNil(t, f)

	assert.False(t, f.Whitelist)
	assert.True(t, f.IsGeneric())
	assert.Empty(t, f.permittedDomains)
	assert.Empty(t, f.restrictedDomains)
	assert.Equal(t, "banner", f.Selector)

	f, err = NewCosmeticRule("example.org,~sub.example.org##banner")
	require.NoError(t, err)
	require.NotNil(t, f)

	assert.False(t, f.Whitelist)
	assert.False(t, f.IsGeneric())
	assert.Equal(t, []string{"example.org"}, f.permittedDomains)
	assert.Equal(t, []string{"sub.example.org"}, f.restrictedDomains)
	assert.Equal(t, "banner", f.Selector)

	f, err = NewCosmeticRule("example.org#@#banner")
	require.NoError(t, err)
	require.NotNil(t, f)

	assert.True(t, f.Whitelist)
	assert.Equal(t, []string{"example.org"}, f.permittedDomains)
	assert.Empty(t, f.restrictedDomains)
	assert.Equal(t, "banner", f.Selector)

	f, err = NewCosmeticRule("~example.org##.ad > a[href$=\".exe\"]")
	require.NoError(t, err)
	require.NotNil(t, f)

	assert.True(t, f.IsGeneric())
	assert.Equal(t, []string{"example.org"}, f.restrictedDomains)
	assert.Equal(t, `.ad > a[href$=".exe"]`, f.Selector)
}

func TestCosmeticRuleValidation(t *testing.T) {
	testCases := []struct {
		name       string
		in         string
		wantErrMsg string
	}{{
		name:       "network",
		in:         "||example.org^",
		wantErrMsg: "syntax error: invalid cosmetic rule, rule: ||example.org^",
	}, {
		name:       "empty_selector",
		in:         "example.org## ",
		wantErrMsg: "syntax error: empty selector, rule: example.org## ",
	}, {
		name: "generic_exception",
		in:   "#@#.banner",
		wantErrMsg: "syntax error: element hiding exceptions must be limited to domains, " +
			"rule: #@#.banner",
	}, {
		name: "bad_domain",
		in:   "exa mple.org##.banner",
		wantErrMsg: `syntax error: invalid domain specified: "exa mple.org", ` +
			"rule: exa mple.org##.banner",
	}, {
		name:       "scriptlet",
		in:         "example.org##+js(abort-on-property-read, ads)",
		wantErrMsg: `selector "+js(abort-on-property-read, ads)": this type of rules is unsupported`,
	}, {
		name:       "css_injection",
		in:         "example.org#$#body { color: red; }",
		wantErrMsg: `cosmetic marker "#$#": this type of rules is unsupported`,
	}, {
		name:       "html_filtering",
		in:         "example.org$$script[data-src=\"banner\"]",
		wantErrMsg: "html filtering: this type of rules is unsupported",
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f, err := NewCosmeticRule(tc.in)
			testutil.AssertErrorMsg(t, tc.wantErrMsg, err)
			assert.Nil(t, f)
		})
	}
}

func TestCosmeticRuleMatch(t *testing.T) {
	f, err := NewCosmeticRule("##banner")
	require.NoError(t, err)

	assert.True(t, f.Match("example.org"))
	assert.True(t, f.Match(""))

	f, err = NewCosmeticRule("example.org,~sub.example.org##banner")
	require.NoError(t, err)

	assert.True(t, f.Match("example.org"))
	assert.True(t, f.Match("test.example.org"))
	assert.True(t, f.Match("Test.Example.org"))
	assert.False(t, f.Match("testexample.org"))
	assert.False(t, f.Match("sub.example.org"))
	assert.False(t, f.Match("sub.sub.example.org"))
	assert.False(t, f.Match(""))

	f, err = NewCosmeticRule("~example.org##banner")
	require.NoError(t, err)

	assert.False(t, f.Match("example.org"))
	assert.True(t, f.Match("example.com"))
	assert.True(t, f.Match(""))
}

func TestCosmeticRuleWildcardTLDMatch(t *testing.T) {
	f, err := NewCosmeticRule("example.*##banner")
	require.NoError(t, err)

	assert.True(t, f.Match("example.org"))
	assert.True(t, f.Match("test.example.org"))
	assert.True(t, f.Match("example.co.uk"))
	assert.False(t, f.Match("example.local"))
	assert.False(t, f.Match("example.local.test"))
}
