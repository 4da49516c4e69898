package proxy

import (
	"fmt"
	"net/http"
	"time"

	"github.com/AdguardTeam/adblock/rules"
)

// suppressCachePeriod is the period after the start-up during which the
// pages are not served from the browser cache, so that the stylesheet is
// injected into them.
const suppressCachePeriod = 1 * time.Minute

// stylesheetMaxAge is how long the browser may cache the stylesheet.  The
// filter lists may be reloaded in the meantime.
const stylesheetMaxAge = 5 * time.Minute

// shouldSuppressCache returns true if the HTTP cache must be suppressed for
// the request of session.
func (s *Server) shouldSuppressCache(session *Session) (ok bool) {
	if time.Since(s.createdAt) > suppressCachePeriod {
		return false
	}

	switch session.Request.RequestType {
	case
		rules.TypeImage,
		rules.TypeFont,
		rules.TypeScript,
		rules.TypeStylesheet,
		rules.TypeMedia:
		return false
	default:
		return true
	}
}

// suppressCache removes the conditional request headers from r.
func suppressCache(r *http.Request) {
	// Last modified time based caching.
	r.Header.Del("If-Modified-Since")
	r.Header.Del("If-Unmodified-Since")

	// ETag based caching.
	r.Header.Del("If-None-Match")
	r.Header.Del("If-Match")
	r.Header.Del("If-Range")
}

// disableResponseCache makes the browser revalidate the page on the next
// visit.
func disableResponseCache(res *http.Response) {
	res.Header.Del("Expires")
	res.Header.Del("ETag")
	res.Header.Del("Last-Modified")
	res.Header.Set("Cache-Control", "no-cache")
}

// enableCache sets the caching headers of res.  lastModified is the time
// the content of res has last changed.
func enableCache(res *http.Response, lastModified time.Time) {
	maxAge := int64(stylesheetMaxAge.Seconds())

	res.Header.Del("Pragma")
	res.Header.Set("Last-Modified", lastModified.UTC().Format(http.TimeFormat))
	res.Header.Set("Cache-Control", fmt.Sprintf("public, max-age=%d", maxAge))
	res.Header.Set("Expires", time.Now().Add(stylesheetMaxAge).Format(http.TimeFormat))
}
