package adblock_test

import (
	"testing"
	"time"

	"github.com/AdguardTeam/adblock/filterlist"
)

// testTimeout is the common timeout for tests.
const testTimeout = 1 * time.Second

// newCollection is a helper that builds a collection of lists named "0", "1",
// and so on from texts.
func newCollection(tb testing.TB, texts ...string) (c filterlist.Collection) {
	tb.Helper()

	for i, text := range texts {
		c = append(c, filterlist.New(string(rune('0'+i)), text))
	}

	return c
}
