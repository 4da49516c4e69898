package proxy

import (
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/AdguardTeam/adblock/rules"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/AdguardTeam/golibs/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testInjectionHost = "injections.test"

// testFilter is a Filter for tests.
type testFilter struct {
	updatedAt time.Time
	blocked   *rules.NetworkRule
	selectors []string
}

// type check
var _ Filter = (*testFilter)(nil)

// MatchRequest implements the [Filter] interface for *testFilter.
func (f *testFilter) MatchRequest(
	_ context.Context,
	r *rules.Request,
) (rule *rules.NetworkRule, listName string) {
	if f.blocked != nil && f.blocked.Match(r) {
		return f.blocked, "test.txt"
	}

	return nil, ""
}

// CollectCSSRules implements the [Filter] interface for *testFilter.
func (f *testFilter) CollectCSSRules(_ string) (selectors []string) {
	return f.selectors
}

// UpdatedAt implements the [Filter] interface for *testFilter.
func (f *testFilter) UpdatedAt() (t time.Time) {
	return f.updatedAt
}

// newTestServer returns a *Server for tests, which blocks the requests
// matching ruleText and hides selectors.
func newTestServer(t *testing.T, ruleText string, selectors ...string) (s *Server) {
	t.Helper()

	f := &testFilter{
		updatedAt: time.Now().Add(-time.Hour).Truncate(time.Second),
		selectors: selectors,
	}
	if ruleText != "" {
		var err error
		f.blocked, err = rules.NewNetworkRule(ruleText)
		require.NoError(t, err)
	}

	return &Server{
		logger:        slogutil.NewDiscardLogger(),
		filter:        f,
		createdAt:     time.Now(),
		injectionHost: testInjectionHost,
	}
}

func TestServer_handleRequest(t *testing.T) {
	s := newTestServer(t, "||ads.example^")
	ctx := context.Background()

	t.Run("blocked_document", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "http://ads.example/", nil)
		req.Header.Set("Accept", "text/html")

		session := NewSession("1", req)
		res := s.handleRequest(ctx, session)
		require.NotNil(t, res)

		assert.True(t, session.Blocked)
		assert.Equal(t, http.StatusForbidden, res.StatusCode)

		body, err := io.ReadAll(res.Body)
		require.NoError(t, err)

		assert.Contains(t, string(body), "||ads.example^")
	})

	t.Run("blocked_image", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "http://ads.example/1.png", nil)

		session := NewSession("2", req)
		res := s.handleRequest(ctx, session)
		require.NotNil(t, res)

		assert.Equal(t, http.StatusForbidden, res.StatusCode)
	})

	t.Run("allowed_document", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "http://example.org/", nil)
		req.Header.Set("Accept", "text/html")
		req.Header.Set("Accept-Encoding", "gzip")
		req.Header.Set("If-None-Match", `"abc"`)

		session := NewSession("3", req)
		res := s.handleRequest(ctx, session)
		assert.Nil(t, res)

		assert.False(t, session.Blocked)
		assert.Empty(t, req.Header.Get("Accept-Encoding"))
		assert.Empty(t, req.Header.Get("If-None-Match"))
	})
}

func TestServer_serveStylesheet(t *testing.T) {
	s := newTestServer(t, "", ".ad", "#banner")
	f := testutil.RequireTypeAssert[*testFilter](t, s.filter)
	ctx := context.Background()

	const (
		stylesheetURL = "http://" + testInjectionHost + "/elemhide.css?hostname=example.org&ts=1"
		wantCSS       = ".ad { display: none !important; }\n#banner { display: none !important; }\n"
	)

	t.Run("success", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, stylesheetURL, nil)

		res := s.handleRequest(ctx, NewSession("1", req))
		require.NotNil(t, res)

		assert.Equal(t, http.StatusOK, res.StatusCode)
		assert.Equal(t, "text/css; charset=utf-8", res.Header.Get("Content-Type"))
		assert.Equal(t, f.updatedAt.UTC().Format(http.TimeFormat), res.Header.Get("Last-Modified"))

		body, err := io.ReadAll(res.Body)
		require.NoError(t, err)

		assert.Equal(t, wantCSS, string(body))
	})

	t.Run("revalidate_after_reload", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, stylesheetURL, nil)
		req.Header.Set("If-Modified-Since", f.updatedAt.UTC().Format(http.TimeFormat))

		res := s.handleRequest(ctx, NewSession("2", req))
		require.NotNil(t, res)

		assert.Equal(t, http.StatusNotModified, res.StatusCode)

		// The rules change.
		f.updatedAt = f.updatedAt.Add(10 * time.Minute)
		f.selectors = []string{".promo"}

		res = s.handleRequest(ctx, NewSession("3", req))
		require.NotNil(t, res)

		assert.Equal(t, http.StatusOK, res.StatusCode)

		body, err := io.ReadAll(res.Body)
		require.NoError(t, err)

		assert.Equal(t, ".promo { display: none !important; }\n", string(body))
	})

	t.Run("not_found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "http://"+testInjectionHost+"/other.css", nil)

		res := s.handleRequest(ctx, NewSession("4", req))
		require.NotNil(t, res)

		assert.Equal(t, http.StatusNotFound, res.StatusCode)
	})
}

func TestServer_serveStylesheet_gzip(t *testing.T) {
	s := newTestServer(t, "", ".ad")
	s.compressStylesheet = true
	ctx := context.Background()

	const stylesheetURL = "http://" + testInjectionHost + "/elemhide.css?hostname=example.org&ts=1"

	testCases := []struct {
		name           string
		acceptEncoding string
		wantEncoding   string
	}{{
		name:           "gzip",
		acceptEncoding: "gzip, deflate, br",
		wantEncoding:   "gzip",
	}, {
		name:           "no_header",
		acceptEncoding: "",
		wantEncoding:   "",
	}, {
		name:           "identity",
		acceptEncoding: "br, identity",
		wantEncoding:   "",
	}, {
		name:           "gzip_refused",
		acceptEncoding: "gzip;q=0, br",
		wantEncoding:   "",
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, stylesheetURL, nil)
			if tc.acceptEncoding != "" {
				req.Header.Set("Accept-Encoding", tc.acceptEncoding)
			}

			res := s.handleRequest(ctx, NewSession("1", req))
			require.NotNil(t, res)

			assert.Equal(t, http.StatusOK, res.StatusCode)
			assert.Equal(t, tc.wantEncoding, res.Header.Get("Content-Encoding"))
			assert.Equal(t, "Accept-Encoding", res.Header.Get("Vary"))

			var body io.Reader = res.Body
			if tc.wantEncoding == "gzip" {
				gz, err := gzip.NewReader(res.Body)
				require.NoError(t, err)

				body = gz
			}

			b, err := io.ReadAll(body)
			require.NoError(t, err)

			assert.Equal(t, ".ad { display: none !important; }\n", string(b))
		})
	}
}

func TestServer_handleResponse(t *testing.T) {
	s := newTestServer(t, "||example.org/ads/$script")
	f := testutil.RequireTypeAssert[*testFilter](t, s.filter)
	ctx := context.Background()

	t.Run("inject", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "http://example.org/", nil)
		session := NewSession("1", req)

		const page = "<html><HEAD lang=en><title>x</title></head><body></body></html>"
		res := &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": []string{"text/html; charset=iso-8859-1"}},
			Body:       io.NopCloser(strings.NewReader(page)),
			Request:    req,
		}

		got, err := s.handleResponse(ctx, session, res)
		require.NoError(t, err)
		require.NotNil(t, got)

		body, err := io.ReadAll(got.Body)
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(string(body), `<html><HEAD lang=en><link rel="stylesheet"`))
		ts := strconv.FormatInt(f.updatedAt.Unix(), 10)
		assert.Contains(t, string(body), "//"+testInjectionHost+"/elemhide.css?hostname=example.org&ts="+ts+`"`)
		assert.Equal(t, int64(len(body)), got.ContentLength)
	})

	t.Run("blocked_by_content_type", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "http://example.org/ads/loader", nil)
		session := NewSession("2", req)
		require.Equal(t, rules.TypeOther, session.Request.RequestType)

		res := &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": []string{"application/javascript"}},
			Body:       io.NopCloser(strings.NewReader("alert(1)")),
			Request:    req,
		}

		got, err := s.handleResponse(ctx, session, res)
		require.NoError(t, err)
		require.NotNil(t, got)

		assert.True(t, session.Blocked)
		assert.Equal(t, http.StatusForbidden, got.StatusCode)
	})

	t.Run("not_html", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "http://example.org/1.png", nil)
		session := NewSession("3", req)

		res := &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": []string{"image/png"}},
			Body:       io.NopCloser(strings.NewReader("png")),
			Request:    req,
		}

		got, err := s.handleResponse(ctx, session, res)
		require.NoError(t, err)

		assert.Nil(t, got)
	})

	t.Run("compressed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "http://example.org/", nil)
		session := NewSession("4", req)

		res := &http.Response{
			StatusCode: http.StatusOK,
			Header: http.Header{
				"Content-Type":     []string{"text/html"},
				"Content-Encoding": []string{"br"},
			},
			Body:    io.NopCloser(strings.NewReader("binary")),
			Request: req,
		}

		got, err := s.handleResponse(ctx, session, res)
		require.NoError(t, err)
		require.NotNil(t, got)

		body, err := io.ReadAll(got.Body)
		require.NoError(t, err)

		assert.Equal(t, "binary", string(body))
	})
}

func TestInjectCode(t *testing.T) {
	const code = "<x>"

	testCases := []struct {
		name string
		in   string
		want string
	}{{
		name: "head",
		in:   "<html><head><title></title></head></html>",
		want: "<html><head><x><title></title></head></html>",
	}, {
		name: "header_before_head",
		in:   "<header></header><head></head>",
		want: "<header></header><head><x></head>",
	}, {
		name: "body_only",
		in:   "<p>a</p><BODY>b</BODY>",
		want: "<p>a</p><x><BODY>b</BODY>",
	}, {
		name: "fragment",
		in:   "text",
		want: "<x>text",
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, injectCode(tc.in, code))
		})
	}
}

func TestLatin1(t *testing.T) {
	in := []byte{'a', 0xe9, 0xff, 0x00, 0x80}

	s, err := decodeLatin1(strings.NewReader(string(in)))
	require.NoError(t, err)

	out, err := encodeLatin1(s)
	require.NoError(t, err)

	assert.Equal(t, in, out)
}
