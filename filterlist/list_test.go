package filterlist_test

import (
	"strings"
	"testing"

	"github.com/AdguardTeam/adblock/filterlist"
	"github.com/AdguardTeam/golibs/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterList_ParseLine(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name           string
		line           string
		wantErrMsg     string
		wantAdded      bool
		wantPatterns   int
		wantExceptions int
		wantCSS        int
		wantCSSExc     int
	}{{
		name:       "empty",
		line:       "",
		wantErrMsg: "",
		wantAdded:  false,
	}, {
		name:       "comment",
		line:       "! comment",
		wantErrMsg: "",
		wantAdded:  false,
	}, {
		name:       "header",
		line:       "[Adblock Plus 2.0]",
		wantErrMsg: "",
		wantAdded:  false,
	}, {
		name:       "cosmetic",
		line:       "##.ad",
		wantErrMsg: "",
		wantAdded:  true,
		wantCSS:    1,
	}, {
		name:       "scoped_cosmetic",
		line:       "a.com,~b.a.com##.ad",
		wantErrMsg: "",
		wantAdded:  true,
		wantCSS:    1,
	}, {
		name:       "cosmetic_exception",
		line:       "a.com#@#.ad",
		wantErrMsg: "",
		wantAdded:  true,
		wantCSSExc: 1,
	}, {
		name:         "pattern",
		line:         "||example.com^",
		wantErrMsg:   "",
		wantAdded:    true,
		wantPatterns: 1,
	}, {
		name:           "exception",
		line:           "@@||example.com^",
		wantErrMsg:     "",
		wantAdded:      true,
		wantExceptions: 1,
	}, {
		name:       "too_wide",
		line:       "*$script",
		wantErrMsg: "the rule is too wide, add domain restrictions or make it more specific",
		wantAdded:  false,
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			l := filterlist.New("test", "")

			added, err := l.ParseLine(tc.line)
			testutil.AssertErrorMsg(t, tc.wantErrMsg, err)

			assert.Equal(t, tc.wantAdded, added)
			assert.Len(t, l.Patterns, tc.wantPatterns)
			assert.Len(t, l.Exceptions, tc.wantExceptions)
			assert.Len(t, l.CSSRules, tc.wantCSS)
			assert.Len(t, l.CSSExceptions, tc.wantCSSExc)
		})
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	const text = "[Adblock Plus 2.0]\r\n" +
		"! Title: Test List\r\n" +
		"||ads.example.com^\r\n" +
		"@@||ads.example.com/allowed/\r\n" +
		"\r\n" +
		"##.banner\r\n" +
		"example.org##.sidebar-ad\r\n" +
		"example.org#@#.banner\r\n" +
		"/regex[0-9]/\r\n" +
		"||tracker.example.net^$third-party"

	l := filterlist.New("test.txt", text)
	require.NotNil(t, l)

	assert.Equal(t, "test.txt", l.Name)
	assert.Equal(t, "Test List", l.Title)
	assert.Equal(t, 6, l.Len())
	assert.Equal(t, 1, l.Skipped)

	require.Len(t, l.Patterns, 2)
	assert.Equal(t, "||ads.example.com^", l.Patterns[0].Text())
	assert.Equal(t, "||tracker.example.net^$third-party", l.Patterns[1].Text())

	require.Len(t, l.Exceptions, 1)
	assert.Equal(t, "@@||ads.example.com/allowed/", l.Exceptions[0].Text())

	require.Len(t, l.CSSRules, 2)
	assert.Equal(t, ".banner", l.CSSRules[0].Selector)
	assert.Equal(t, ".sidebar-ad", l.CSSRules[1].Selector)

	require.Len(t, l.CSSExceptions, 1)
	assert.Equal(t, ".banner", l.CSSExceptions[0].Selector)
}

func TestNew_longLine(t *testing.T) {
	t.Parallel()

	// Longer than the default bufio.Scanner limit.
	long := "||example.org/" + strings.Repeat("a", 128*1024) + "^"

	l := filterlist.New("long", long+"\n##.ad\n")
	require.Len(t, l.Patterns, 1)
	require.Len(t, l.CSSRules, 1)

	assert.Equal(t, long, l.Patterns[0].Text())
}

func TestCollection_Stats(t *testing.T) {
	t.Parallel()

	c := filterlist.Collection{
		filterlist.New("a", "||a.com^\n@@||a.com/ok\n##.ad\n*"),
		filterlist.New("b", "b.com#@#.ad\n||b.com^"),
	}

	assert.Equal(t, filterlist.Stats{
		Patterns:      2,
		Exceptions:    1,
		CSSRules:      1,
		CSSExceptions: 1,
		Skipped:       1,
	}, c.Stats())
	assert.Equal(t, 5, c.Stats().Total())

	assert.Same(t, c[1], c.Find("b"))
	assert.Nil(t, c.Find("c"))
}
