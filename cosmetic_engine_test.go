package adblock_test

import (
	"testing"

	"github.com/AdguardTeam/adblock"
	"github.com/stretchr/testify/assert"
)

func TestCollectCSSRules(t *testing.T) {
	t.Parallel()

	c := newCollection(
		t,
		"##.ad\nexample.com##.sidebar\n~example.com##.not-on-example\n##.ad",
		"##.banner\nexample.com#@#.banner\n##.ad",
	)

	testCases := []struct {
		name   string
		domain string
		want   []string
	}{{
		name:   "example",
		domain: "example.com",
		want:   []string{".ad", ".sidebar", ".ad", ".ad"},
	}, {
		name:   "subdomain",
		domain: "www.Example.com",
		want:   []string{".ad", ".sidebar", ".ad", ".ad"},
	}, {
		name:   "other",
		domain: "other.org",
		want:   []string{".ad", ".not-on-example", ".ad", ".banner", ".ad"},
	}, {
		name:   "no_domain",
		domain: "",
		want:   []string{".ad", ".not-on-example", ".ad", ".banner", ".ad"},
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, adblock.CollectCSSRules(c, tc.domain))
		})
	}
}

func TestCollectCSSRules_noCSS(t *testing.T) {
	t.Parallel()

	c := newCollection(t, "||example.com^\n@@||example.com/ok")
	assert.Empty(t, adblock.CollectCSSRules(c, "example.com"))
	assert.Empty(t, adblock.CollectCSSRules(nil, "example.com"))
}

func TestCollectCSSRules_pageExceptions(t *testing.T) {
	t.Parallel()

	c := newCollection(
		t,
		"##.ad\nshop.example##.promo\n@@||shop.example^$generichide\n@@||trusted.example^$elemhide",
		"##.banner",
	)

	assert.Equal(t, []string{".promo", ".banner"}, adblock.CollectCSSRules(c, "shop.example"))
	assert.Equal(t, []string{".banner"}, adblock.CollectCSSRules(c, "trusted.example"))
	assert.Equal(t, []string{".ad", ".banner"}, adblock.CollectCSSRules(c, "news.example"))
}

func TestStylesheet(t *testing.T) {
	t.Parallel()

	assert.Empty(t, adblock.Stylesheet(nil))

	css := adblock.Stylesheet([]string{".ad", "#banner > a"})
	assert.Equal(
		t,
		".ad { display: none !important; }\n#banner > a { display: none !important; }\n",
		css,
	)
}
