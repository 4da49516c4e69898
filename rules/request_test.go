package rules

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRequest(t *testing.T) {
	r := NewRequest("http://example.org/", "", TypeOther)
	assert.Equal(t, "example.org", r.Hostname)
	assert.Equal(t, "example.org", r.Domain)
	assert.Equal(t, "http://example.org/", r.URL)
	assert.Equal(t, "", r.SourceURL)
	assert.Equal(t, "", r.SourceHostname)
	assert.Equal(t, "", r.SourceDomain)
	assert.Equal(t, TypeOther, r.RequestType)
	assert.False(t, r.ThirdParty)

	r = NewRequest("http://example.org/", "http://sub.example.org", TypeOther)
	assert.Equal(t, "example.org", r.Hostname)
	assert.Equal(t, "example.org", r.Domain)
	assert.Equal(t, "sub.example.org", r.SourceHostname)
	assert.Equal(t, "example.org", r.SourceDomain)
	assert.False(t, r.ThirdParty)

	r = NewRequest("http://example.org.uk/", "http://sub.example.org.uk", TypeOther)
	assert.Equal(t, "example.org.uk", r.Hostname)
	assert.Equal(t, "example.org.uk", r.Domain)
	assert.Equal(t, "sub.example.org.uk", r.SourceHostname)
	assert.Equal(t, "example.org.uk", r.SourceDomain)
	assert.False(t, r.ThirdParty)

	r = NewRequest("http://example.org.uk/", "http://sub.example.com", TypeOther)
	assert.Equal(t, "example.org.uk", r.Domain)
	assert.Equal(t, "example.com", r.SourceDomain)
	assert.True(t, r.ThirdParty)

	r = NewRequest("HTTP://Example.ORG/Path", "", TypeUnknown)
	assert.Equal(t, "HTTP://Example.ORG/Path", r.URL)
	assert.Equal(t, "http://example.org/path", r.URLLowerCase)
	assert.Equal(t, "example.org", r.Hostname)
}

func TestNewRequest_longURL(t *testing.T) {
	url := "http://example.org/" + strings.Repeat("A", 8*1024)

	r := NewRequest(url, "", TypeOther)
	assert.Equal(t, url, r.URL)
	assert.Len(t, r.URLLowerCase, len(url))
	assert.Equal(t, "example.org", r.Hostname)
}

func TestNewRequestForHostname(t *testing.T) {
	r := NewRequestForHostname("Example.ORG")
	assert.Equal(t, "http://example.org/", r.URL)
	assert.Equal(t, "example.org", r.Hostname)
	assert.Equal(t, "example.org", r.Domain)
	assert.Equal(t, TypeDocument, r.RequestType)
	assert.False(t, r.ThirdParty)
}

func TestCountRequestType(t *testing.T) {
	assert.Equal(t, 1, TypeDocument.Count())
	assert.Equal(t, 2, (TypeDocument | TypeOther).Count())
	assert.Equal(t, 0, TypeUnknown.Count())
}
