package proxy

import (
	"context"
	"net"
	"net/http"

	"github.com/AdguardTeam/adblock/rules"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/AdguardTeam/gomitmproxy"
	"github.com/AdguardTeam/gomitmproxy/proxyutil"
)

// onRequest handles the outgoing HTTP requests.
func (s *Server) onRequest(sess *gomitmproxy.Session) (req *http.Request, resp *http.Response) {
	r := sess.Request()
	session := NewSession(sess.ID(), r)

	sess.SetProp(sessionPropKey, session)

	if r.Method == http.MethodConnect {
		// Do nothing for CONNECT requests.
		return nil, nil
	}

	resp = s.handleRequest(context.Background(), session)
	if resp != nil && session.Blocked {
		// Mark this request as blocked so that it's not modified in the
		// onResponse handler.
		sess.SetProp(requestBlockedKey, true)
	}

	return r, resp
}

// handleRequest filters the request of session.  resp is not nil if the
// proxy responds by itself.
func (s *Server) handleRequest(ctx context.Context, session *Session) (resp *http.Response) {
	if session.Request.Hostname == s.injectionHost {
		return s.serveStylesheet(ctx, session)
	}

	rule, listName := s.filter.MatchRequest(ctx, session.Request)
	if rule != nil {
		session.Blocked = true

		return s.newBlockedResponse(ctx, session, rule, listName)
	}

	r := session.HTTPRequest
	if session.Request.RequestType == rules.TypeDocument {
		// The body of the page is modified, so it must not be compressed.
		r.Header.Del("Accept-Encoding")
	}

	if s.shouldSuppressCache(session) {
		suppressCache(r)
	}

	return nil
}

// onResponse handles all the responses.
func (s *Server) onResponse(sess *gomitmproxy.Session) (resp *http.Response) {
	if _, ok := sess.GetProp(requestBlockedKey); ok {
		// The request was already blocked.
		return nil
	}

	ctx := context.Background()

	v, ok := sess.GetProp(sessionPropKey)
	if !ok {
		s.logger.ErrorContext(ctx, "session not found", "id", sess.ID())

		return nil
	}

	session, ok := v.(*Session)
	if !ok {
		s.logger.ErrorContext(ctx, "session not found", "id", sess.ID(), "type", v)

		return nil
	}

	res := sess.Response()
	if res == nil {
		return nil
	}

	resp, err := s.handleResponse(ctx, session, res)
	if err != nil {
		s.logger.ErrorContext(ctx, "filtering response", "id", session.ID, slogutil.KeyError, err)

		return proxyutil.NewErrorResponse(session.HTTPRequest, err)
	}

	return resp
}

// handleResponse filters the response res of session.  resp is nil if res
// must be passed as is.
func (s *Server) handleResponse(
	ctx context.Context,
	session *Session,
	res *http.Response,
) (resp *http.Response, err error) {
	// Update the session, this will cause the request type re-calculation.
	prevType := session.Request.RequestType
	session.SetResponse(res)

	if session.Request.RequestType != prevType {
		// Now once the response is received, the decision must be
		// re-calculated, since the request type may have changed.
		rule, listName := s.filter.MatchRequest(ctx, session.Request)
		if rule != nil {
			session.Blocked = true

			return s.newBlockedResponse(ctx, session, rule, listName), nil
		}
	}

	if !session.IsHTML() {
		return nil, nil
	}

	err = s.filterHTML(session)
	if err != nil {
		return nil, err
	}

	return session.HTTPResponse, nil
}

// onConnect intercepts and suppresses the connections to the injection host.
func (s *Server) onConnect(_ *gomitmproxy.Session, _ string, addr string) (conn net.Conn) {
	host, _, err := net.SplitHostPort(addr)
	if err == nil && host == s.injectionHost {
		return &proxyutil.NoopConn{}
	}

	return nil
}
