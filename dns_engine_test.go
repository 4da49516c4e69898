package adblock_test

import (
	"testing"

	"github.com/AdguardTeam/adblock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShouldBlockHost(t *testing.T) {
	t.Parallel()

	c := newCollection(
		t,
		"||ads.example^\n||example.org/banner\n||tracker.example^$third-party\n@@||ok.ads.example^",
		"||ok.ads.example^",
	)

	testCases := []struct {
		want assert.BoolAssertionFunc
		name string
		host string
	}{{
		want: assert.True,
		name: "exact",
		host: "ads.example",
	}, {
		want: assert.True,
		name: "subdomain_fqdn",
		host: "WWW.ads.example.",
	}, {
		want: assert.False,
		name: "path_rule",
		host: "example.org",
	}, {
		want: assert.False,
		name: "option_rule",
		host: "tracker.example",
	}, {
		want: assert.True,
		name: "exception_in_other_list",
		host: "ok.ads.example",
	}, {
		want: assert.False,
		name: "empty",
		host: "",
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			tc.want(t, adblock.ShouldBlockHost(c, tc.host))
		})
	}
}

func TestMatchHost(t *testing.T) {
	t.Parallel()

	c := newCollection(t, "||ads.example^\n@@||ok.ads.example^", "||ok.ads.example^$important")

	rule, l := adblock.MatchHost(c, "ok.ads.example")
	require.NotNil(t, rule)
	require.NotNil(t, l)

	assert.Equal(t, "||ok.ads.example^$important", rule.Text())
	assert.Equal(t, "1", l.Name)

	c = newCollection(t, "||ads.example^\n@@||ok.ads.example^\n||ok.ads.example^$important")

	rule, _ = adblock.MatchHost(c, "ok.ads.example")
	require.NotNil(t, rule)

	assert.Equal(t, "||ok.ads.example^$important", rule.Text())
}
