package proxy

import (
	"bytes"
	"context"
	"html/template"
	"net/http"

	"github.com/AdguardTeam/adblock/rules"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/AdguardTeam/gomitmproxy/proxyutil"
)

// blockedPageTmpl is the template of the page shown instead of the blocked
// documents.
var blockedPageTmpl = template.Must(template.New("blocked").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Blocked</title>
</head>
<body>
<h1>Request to {{.Hostname}} is blocked</h1>
<p>The request has been blocked by the filtering rule:</p>
<pre>{{.RuleText}}</pre>
<p>Filter list: {{.ListName}}</p>
</body>
</html>
`))

type blockedPageParameters struct {
	Hostname string
	RuleText string
	ListName string
}

// buildBlockedPage builds the blocked page content.
func buildBlockedPage(session *Session, rule *rules.NetworkRule, listName string) (page []byte, err error) {
	params := blockedPageParameters{
		Hostname: session.Request.Hostname,
		RuleText: rule.Text(),
		ListName: listName,
	}

	var data bytes.Buffer
	err = blockedPageTmpl.Execute(&data, params)
	if err != nil {
		return nil, err
	}

	return data.Bytes(), nil
}

// newBlockedResponse creates an HTTP response for the blocked request.  Only
// documents get the blocked page, other resources get an empty body.
func (s *Server) newBlockedResponse(
	ctx context.Context,
	session *Session,
	rule *rules.NetworkRule,
	listName string,
) (res *http.Response) {
	r := session.HTTPRequest
	if session.Request.RequestType != rules.TypeDocument {
		res = proxyutil.NewResponse(http.StatusForbidden, nil, r)
		res.Close = true

		return res
	}

	page, err := buildBlockedPage(session, rule, listName)
	if err != nil {
		s.logger.ErrorContext(ctx, "building blocked page", slogutil.KeyError, err)

		return proxyutil.NewErrorResponse(r, err)
	}

	res = proxyutil.NewResponse(http.StatusForbidden, bytes.NewReader(page), r)
	res.Close = true
	res.ContentLength = int64(len(page))
	res.Header.Set("Content-Type", "text/html; charset=utf-8")

	return res
}
