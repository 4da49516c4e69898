package proxy

import (
	"testing"

	"github.com/AdguardTeam/adblock/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildBlockedPage(t *testing.T) {
	s := &Session{
		Request: rules.NewRequest("https://example.org/", "", rules.TypeDocument),
	}

	f, err := rules.NewNetworkRule("||example.org/<b>$document")
	require.NoError(t, err)

	page, err := buildBlockedPage(s, f, "easylist.txt")
	require.NoError(t, err)

	assert.Contains(t, string(page), "Request to example.org is blocked")
	assert.Contains(t, string(page), "easylist.txt")
	assert.Contains(t, string(page), "&lt;b&gt;")
	assert.NotContains(t, string(page), "<b>")
}
