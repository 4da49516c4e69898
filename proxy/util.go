package proxy

import (
	"bytes"
	"compress/gzip"
	"net/http"
	"strconv"

	"github.com/AdguardTeam/gomitmproxy/proxyutil"
)

// compressGzip compresses the specified byte slice.
func compressGzip(toCompress []byte) (b *bytes.Buffer, err error) {
	b = &bytes.Buffer{}
	gz := gzip.NewWriter(b)
	if _, err = gz.Write(toCompress); err != nil {
		return nil, err
	}

	if err = gz.Close(); err != nil {
		return nil, err
	}

	return b, nil
}

// newNotFoundResponse returns a 404 response to r.
func newNotFoundResponse(r *http.Request) (res *http.Response) {
	res = proxyutil.NewResponse(http.StatusNotFound, nil, r)
	res.Header.Set("Content-Type", "text/html")

	return res
}

// getQueryParameter returns the value of the query parameter name of r or an
// empty string if there is no such parameter or there are several of them.
func getQueryParameter(r *http.Request, name string) (val string) {
	params, ok := r.URL.Query()[name]
	if !ok || len(params) != 1 {
		return ""
	}

	return params[0]
}

// getQueryParameterUint64 is like [getQueryParameter] but parses the value as
// an integer.  It returns 0 if the value is not a valid integer.
func getQueryParameterUint64(r *http.Request, name string) (val uint64) {
	val, err := strconv.ParseUint(getQueryParameter(r, name), 10, 64)
	if err != nil {
		return 0
	}

	return val
}
