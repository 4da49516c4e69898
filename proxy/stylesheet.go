package proxy

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/AdguardTeam/adblock"
	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/AdguardTeam/gomitmproxy/proxyutil"
)

// stylesheetPath is the path of the element hiding stylesheet on the
// injection host.
const stylesheetPath = "/elemhide.css"

// maxHTMLSize is the maximum size of a page body the stylesheet is injected
// into.  Larger pages are passed as is.
const maxHTMLSize = 8 * 1024 * 1024

// injectionTmpl is the code injected into web pages.
var injectionTmpl = template.Must(template.New("injection").Parse(
	`<link rel="stylesheet" type="text/css" href="//{{.InjectionHost}}` + stylesheetPath +
		`?hostname={{.Hostname}}&ts={{.Timestamp}}">`,
))

type injectionParameters struct {
	InjectionHost string
	Hostname      string

	// Timestamp prevents the browser from using the stylesheets cached
	// before the last change of the filtering rules.
	Timestamp int64
}

// buildInjectionCode creates the HTML code injected into the page of
// session.
func (s *Server) buildInjectionCode(session *Session) (code string, err error) {
	params := injectionParameters{
		InjectionHost: s.injectionHost,
		Hostname:      session.Request.Hostname,
		Timestamp:     s.filter.UpdatedAt().Unix(),
	}

	var data bytes.Buffer
	err = injectionTmpl.Execute(&data, params)
	if err != nil {
		return "", fmt.Errorf("building injection code: %w", err)
	}

	return data.String(), nil
}

// filterHTML injects the element hiding stylesheet into the web page of
// session.
func (s *Server) filterHTML(session *Session) (err error) {
	res := session.HTTPResponse
	if res.Body == nil {
		return nil
	}

	if enc := res.Header.Get("Content-Encoding"); enc != "" && enc != "identity" {
		// The server ignored the removed Accept-Encoding header.
		return nil
	}

	if s.shouldSuppressCache(session) {
		disableResponseCache(res)
	}

	b, err := io.ReadAll(io.LimitReader(res.Body, maxHTMLSize+1))
	if err != nil {
		return fmt.Errorf("reading page: %w", err)
	}

	if len(b) > maxHTMLSize {
		res.Body = readCloser{
			Reader: io.MultiReader(bytes.NewReader(b), res.Body),
			Closer: res.Body,
		}

		return nil
	}

	err = res.Body.Close()
	if err != nil {
		return fmt.Errorf("closing page body: %w", err)
	}

	// Decoding as Latin1 keeps every byte of the page, whatever its charset
	// is, so the page is re-encoded unchanged.
	page, err := decodeLatin1(bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("decoding page: %w", err)
	}

	code, err := s.buildInjectionCode(session)
	if err != nil {
		return err
	}

	modified, err := encodeLatin1(injectCode(page, code))
	if err != nil {
		return fmt.Errorf("encoding page: %w", err)
	}

	res.Body = io.NopCloser(bytes.NewReader(modified))
	res.ContentLength = int64(len(modified))
	res.Header.Set("Content-Length", strconv.Itoa(len(modified)))

	return nil
}

// injectCode inserts code right after the opening head tag of page.  If
// there is no head tag, code is inserted before the body tag, or at the
// beginning of the page.
func injectCode(page, code string) (modified string) {
	idx := indexTagEnd(page, "<head")
	if idx < 0 {
		idx = indexASCIIFold(page, "<body")
	}

	if idx < 0 {
		idx = 0
	}

	return page[:idx] + code + page[idx:]
}

// indexTagEnd returns the index of the character following the end of the
// first opening tag with the given prefix or -1 if there is no such tag.
func indexTagEnd(page, prefix string) (idx int) {
	for off := 0; off < len(page); {
		i := indexASCIIFold(page[off:], prefix)
		if i < 0 {
			return -1
		}

		i += off + len(prefix)
		if i < len(page) && (page[i] == '>' || page[i] == ' ' || page[i] == '\t' || page[i] == '\n' || page[i] == '\r') {
			end := strings.IndexByte(page[i:], '>')
			if end < 0 {
				return -1
			}

			return i + end + 1
		}

		// Something like <header>.
		off = i
	}

	return -1
}

// indexASCIIFold is like [strings.Index] but compares ASCII letters case
// insensitively.  substr must be lowercase.
func indexASCIIFold(s, substr string) (idx int) {
	for i := 0; i+len(substr) <= len(s); i++ {
		if strings.EqualFold(s[i:i+len(substr)], substr) {
			return i
		}
	}

	return -1
}

// readCloser combines a reader and a closer.
type readCloser struct {
	io.Reader
	io.Closer
}

// serveStylesheet responds to the requests to the injection host with the
// element hiding stylesheet for the hostname in the query.
func (s *Server) serveStylesheet(ctx context.Context, session *Session) (res *http.Response) {
	r := session.HTTPRequest
	if r.Method != http.MethodGet || r.URL.Path != stylesheetPath {
		return newNotFoundResponse(r)
	}

	hostname := getQueryParameter(r, "hostname")
	if hostname == "" || getQueryParameterUint64(r, "ts") == 0 {
		return newNotFoundResponse(r)
	}

	updatedAt := s.filter.UpdatedAt()
	if isNotModified(r, updatedAt) {
		res = proxyutil.NewResponse(http.StatusNotModified, nil, r)
		res.Header.Set("Content-Type", "text/css; charset=utf-8")
		enableCache(res, updatedAt)

		return res
	}

	css := []byte(adblock.Stylesheet(s.filter.CollectCSSRules(hostname)))

	compress := s.compressStylesheet && acceptsGzip(r)

	var body io.Reader = bytes.NewReader(css)
	contentLen := len(css)
	if compress {
		b, err := compressGzip(css)
		if err != nil {
			err = errors.Annotate(err, "compressing stylesheet: %w")
			s.logger.ErrorContext(ctx, "serving stylesheet", slogutil.KeyError, err)

			return proxyutil.NewErrorResponse(r, err)
		}

		body = b
		contentLen = b.Len()
	}

	res = proxyutil.NewResponse(http.StatusOK, body, r)
	res.ContentLength = int64(contentLen)
	res.Header.Set("Content-Type", "text/css; charset=utf-8")

	if compress {
		res.Header.Set("Content-Encoding", "gzip")
	}

	if s.compressStylesheet {
		res.Header.Set("Vary", "Accept-Encoding")
	}

	enableCache(res, updatedAt)

	return res
}

// isNotModified returns true if the conditional request r asks for a
// stylesheet which hasn't changed since updatedAt.
func isNotModified(r *http.Request, updatedAt time.Time) (ok bool) {
	ims := r.Header.Get("If-Modified-Since")
	if ims == "" {
		return false
	}

	t, err := http.ParseTime(ims)
	if err != nil {
		return false
	}

	return !t.Before(updatedAt.Truncate(time.Second))
}

// acceptsGzip returns true if the Accept-Encoding header of r allows a gzip
// response.
func acceptsGzip(r *http.Request) (ok bool) {
	for _, v := range r.Header.Values("Accept-Encoding") {
		for _, enc := range strings.Split(v, ",") {
			name, params, _ := strings.Cut(enc, ";")
			name = strings.ToLower(strings.TrimSpace(name))
			if name != "gzip" && name != "*" {
				continue
			}

			q, hasQ := strings.CutPrefix(strings.TrimSpace(params), "q=")
			if !hasQ {
				return true
			}

			weight, err := strconv.ParseFloat(strings.TrimSpace(q), 64)
			if err == nil && weight > 0 {
				return true
			}
		}
	}

	return false
}
