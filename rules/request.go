package rules

import (
	"math/bits"
	"strings"

	"github.com/AdguardTeam/adblock/internal/ufnet"
)

// RequestType is the request types enumeration.  The zero value,
// [TypeUnknown], means that the request type is not known and resource type
// options are not checked.
type RequestType uint32

// TypeUnknown is the request type of requests whose resource type is not
// known to the host.
const TypeUnknown RequestType = 0

const (
	// TypeDocument (main frame) $document
	TypeDocument RequestType = 1 << iota
	// TypeSubdocument (iframe) $subdocument
	TypeSubdocument
	// TypeScript (javascript, etc) $script
	TypeScript
	// TypeStylesheet (css) $stylesheet
	TypeStylesheet
	// TypeObject (flash, java applets, etc) $object
	TypeObject
	// TypeObjectSubrequest (requests started by plugins) $object-subrequest
	TypeObjectSubrequest
	// TypeImage (any image) $image
	TypeImage
	// TypeXmlhttprequest (ajax/fetch) $xmlhttprequest
	TypeXmlhttprequest
	// TypeMedia (video/music) $media
	TypeMedia
	// TypeFont (any custom font) $font
	TypeFont
	// TypeWebsocket (a websocket connection) $websocket
	TypeWebsocket
	// TypePing (navigator.sendBeacon() or ping attribute on links) $ping
	TypePing
	// TypeOther - any other request type $other
	TypeOther
)

// Count returns the count of the enabled flags.
func (t RequestType) Count() (n int) {
	return bits.OnesCount32(uint32(t))
}

// Request represents a web filtering request with all its necessary
// properties.
type Request struct {
	// URL is the full request URL.
	URL string

	// URLLowerCase is URL with ASCII letters in lower case.  It has the same
	// length as URL.
	URLLowerCase string

	// Hostname is the lowercased hostname of URL.
	Hostname string

	// Domain is the effective top-level domain of the request with an
	// additional label.
	Domain string

	// SourceURL is the full URL of the page that initiated the request.  It
	// is empty if not known.
	SourceURL string

	// SourceHostname is the hostname of the source.
	SourceHostname string

	// SourceDomain is the effective top-level domain of the source with an
	// additional label.
	SourceDomain string

	// RequestType is the type of the filtering request.
	RequestType RequestType

	// ThirdParty is true if the request and the source belong to different
	// sites.  It is only meaningful if SourceHostname is not empty.
	ThirdParty bool
}

// NewRequest creates a new instance of *Request and populates its fields.
// sourceURL may be empty if the originating page is not known.
func NewRequest(url, sourceURL string, requestType RequestType) (r *Request) {
	r = &Request{
		RequestType: requestType,

		URL:          url,
		URLLowerCase: asciiLower(url),
		Hostname:     ufnet.ExtractHostname(url),

		SourceURL:      sourceURL,
		SourceHostname: ufnet.ExtractHostname(sourceURL),
	}

	r.Domain = domainOf(r.Hostname)
	r.SourceDomain = domainOf(r.SourceHostname)

	if r.SourceDomain != "" && r.SourceDomain != r.Domain {
		r.ThirdParty = true
	}

	return r
}

// NewRequestForHostname creates a new instance of *Request for matching the
// hostname only.  It uses "http://" as a protocol and [TypeDocument] as a
// request type.
func NewRequestForHostname(hostname string) (r *Request) {
	hostname = strings.ToLower(hostname)
	urlStr := "http://" + hostname + "/"

	return &Request{
		URL:          urlStr,
		URLLowerCase: urlStr,
		Hostname:     hostname,
		Domain:       domainOf(hostname),
		RequestType:  TypeDocument,
	}
}

// domainOf returns the eTLD+1 of hostname or hostname itself if there is
// none.
func domainOf(hostname string) (domain string) {
	if domain = effectiveTLDPlusOne(hostname); domain != "" {
		return domain
	}

	return hostname
}
