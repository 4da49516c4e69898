package proxy

import (
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/AdguardTeam/adblock/rules"
)

// Session contains the data to filter a request and its response.  It's
// updated during the HTTP request lifetime.
//
// There are two stages:
//  1. The request headers are received.  The resource type is assumed by the
//     URL and the "Accept" header, and the request is blocked if a blocking
//     rule matches it.
//  2. The response headers are received.  The Content-Type header tells the
//     real resource type, so the request is matched again.  If it's not
//     blocked and it's an HTML page, the element hiding stylesheet is
//     injected into it.
type Session struct {
	// Request is the filtering request.
	Request *rules.Request

	// HTTPRequest is the HTTP request of the session.
	HTTPRequest *http.Request

	// HTTPResponse is the HTTP response of the session.  It's nil until the
	// response is received.
	HTTPResponse *http.Response

	// ID is the unique session identifier.
	ID string

	// MediaType is the media type of the response.
	MediaType string

	// Charset is the charset of the response, if the Content-Type header
	// specifies one.
	Charset string

	// Blocked is true if the request has been blocked.
	Blocked bool
}

// NewSession creates a new *Session for the HTTP request req.  id is the
// unique session identifier.
func NewSession(id string, req *http.Request) (s *Session) {
	requestType := assumeRequestType(req, nil)

	return &Session{
		ID:          id,
		Request:     rules.NewRequest(req.URL.String(), req.Referer(), requestType),
		HTTPRequest: req,
	}
}

// SetResponse sets the response of the session.  It also updates the request
// type.
func (s *Session) SetResponse(res *http.Response) {
	s.HTTPResponse = res

	s.Request.RequestType = assumeRequestType(s.HTTPRequest, s.HTTPResponse)

	mediaType, params, _ := mime.ParseMediaType(res.Header.Get("Content-Type"))

	s.MediaType = mediaType
	if charset, ok := params["charset"]; ok {
		s.Charset = strings.ToLower(charset)
	}
}

// IsHTML returns true if the response of the session is a web page.
func (s *Session) IsHTML() (ok bool) {
	return s.HTTPResponse != nil &&
		s.Request.RequestType == rules.TypeDocument &&
		(s.MediaType == "text/html" || s.MediaType == "application/xhtml+xml")
}

// assumeRequestType assumes the request type from what is known at this
// point.  res is nil if the response hasn't been received yet.
func assumeRequestType(req *http.Request, res *http.Response) (t rules.RequestType) {
	if res != nil {
		mediaType, _, _ := mime.ParseMediaType(res.Header.Get("Content-Type"))

		return assumeRequestTypeFromMediaType(mediaType)
	}

	t = assumeRequestTypeFromMediaType(req.Header.Get("Accept"))
	if t == rules.TypeOther {
		t = assumeRequestTypeFromURL(req.URL)
	}

	return t
}

// mediaTypePrefixes maps the media type prefixes to the request types.  The
// order matters.
var mediaTypePrefixes = []struct {
	prefix string
	typ    rules.RequestType
}{
	{"application/xhtml", rules.TypeDocument},
	{"text/html", rules.TypeDocument},
	{"text/css", rules.TypeStylesheet},
	{"application/javascript", rules.TypeScript},
	{"application/x-javascript", rules.TypeScript},
	{"text/javascript", rules.TypeScript},
	{"image/", rules.TypeImage},
	{"application/x-shockwave-flash", rules.TypeObject},
	{"application/font", rules.TypeFont},
	{"application/vnd.ms-fontobject", rules.TypeFont},
	{"application/x-font-", rules.TypeFont},
	{"font/", rules.TypeFont},
	{"audio/", rules.TypeMedia},
	{"video/", rules.TypeMedia},
	{"application/json", rules.TypeXmlhttprequest},
}

// assumeRequestTypeFromMediaType detects the request type from the media
// type or the Accept header value.
func assumeRequestTypeFromMediaType(mediaType string) (t rules.RequestType) {
	for _, p := range mediaTypePrefixes {
		if strings.HasPrefix(mediaType, p.prefix) {
			return p.typ
		}
	}

	return rules.TypeOther
}

var fileExtensions = map[string]rules.RequestType{
	// $script
	".js":  rules.TypeScript,
	".mjs": rules.TypeScript,
	".vbs": rules.TypeScript,
	// $image
	".jpg":  rules.TypeImage,
	".jpeg": rules.TypeImage,
	".gif":  rules.TypeImage,
	".png":  rules.TypeImage,
	".webp": rules.TypeImage,
	".svg":  rules.TypeImage,
	".ico":  rules.TypeImage,
	// $stylesheet
	".css": rules.TypeStylesheet,
	// $object
	".jar": rules.TypeObject,
	".swf": rules.TypeObject,
	// $media
	".wav":  rules.TypeMedia,
	".mp3":  rules.TypeMedia,
	".mp4":  rules.TypeMedia,
	".avi":  rules.TypeMedia,
	".flv":  rules.TypeMedia,
	".m3u":  rules.TypeMedia,
	".webm": rules.TypeMedia,
	".mpeg": rules.TypeMedia,
	".ogg":  rules.TypeMedia,
	".mov":  rules.TypeMedia,
	".mkv":  rules.TypeMedia,
	// $font
	".ttf":   rules.TypeFont,
	".otf":   rules.TypeFont,
	".woff":  rules.TypeFont,
	".woff2": rules.TypeFont,
	".eot":   rules.TypeFont,
	// $xmlhttprequest
	".json": rules.TypeXmlhttprequest,
}

// assumeRequestTypeFromURL assumes the request type from the file extension.
func assumeRequestTypeFromURL(u *url.URL) (t rules.RequestType) {
	t, ok := fileExtensions[strings.ToLower(path.Ext(u.Path))]
	if !ok {
		return rules.TypeOther
	}

	return t
}
