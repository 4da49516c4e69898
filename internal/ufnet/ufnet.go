// Package ufnet contains utilities for URL, hostname and domain parsing.
package ufnet

import "strings"

// ExtractHostname quickly retrieves the lowercased hostname from the given
// URL.  Userinfo, port, path, query and fragment are stripped, IPv6 brackets
// are removed.
//
// NOTE: ExtractHostname is an optimized, best-effort function.  It does not
// validate the result.
func ExtractHostname(url string) (hostname string) {
	start, end := HostBounds(url)
	if start == end {
		return ""
	}

	hostname = url[start:end]
	if len(hostname) > 1 && hostname[0] == '[' && hostname[len(hostname)-1] == ']' {
		hostname = hostname[1 : len(hostname)-1]
	}

	return strings.ToLower(hostname)
}

// HostBounds returns the byte offsets of the host part inside url, including
// IPv6 brackets.  start equals end if there is no host.
func HostBounds(url string) (start, end int) {
	start = strings.Index(url, "//")
	if start == -1 {
		// This is a non-hierarchical structured URL (e.g. stun: or turn:)
		// https://tools.ietf.org/html/rfc4395#section-2.2
		start = strings.IndexByte(url, ':')
		if start <= 0 {
			return 0, 0
		}

		start++
	} else {
		start += len("//")
	}

	authEnd := strings.IndexAny(url[start:], "/?#")
	if authEnd == -1 {
		authEnd = len(url)
	} else {
		authEnd += start
	}

	// Skip the userinfo.
	if at := strings.LastIndexByte(url[start:authEnd], '@'); at != -1 {
		start += at + 1
	}

	if start < authEnd && url[start] == '[' {
		closing := strings.IndexByte(url[start:authEnd], ']')
		if closing == -1 {
			return start, start
		}

		return start, start + closing + 1
	}

	end = strings.IndexByte(url[start:authEnd], ':')
	if end == -1 {
		return start, authEnd
	}

	return start, start + end
}

// IsDomainName checks if name is a valid domain name.
//
// Each label is 1 to 63 characters long and may contain ASCII letters,
// digits and hyphens, but cannot start or end with a hyphen.  The whole name
// is at most 253 characters long.
func IsDomainName(name string) (ok bool) {
	if name == "" || len(name) > 253 {
		return false
	}

	for _, label := range strings.Split(name, ".") {
		if !isValidLabel(label) {
			return false
		}
	}

	return true
}

// isValidLabel returns true if label is a valid domain name label.
func isValidLabel(label string) (ok bool) {
	if label == "" || len(label) > 63 {
		return false
	}

	if label[0] == '-' || label[len(label)-1] == '-' {
		return false
	}

	for i := 0; i < len(label); i++ {
		c := label[i]
		switch {
		case
			c >= 'a' && c <= 'z',
			c >= 'A' && c <= 'Z',
			c >= '0' && c <= '9',
			c == '-', c == '_':
			// Go on.
		default:
			return false
		}
	}

	return true
}

// IsSubdomainOrEqual returns true if domain equals parent or is a subdomain
// of it.  Both must be lowercased.  The match is dot-boundary, so
// "notexample.com" is not a subdomain of "example.com".
func IsSubdomainOrEqual(domain, parent string) (ok bool) {
	if parent == "" {
		return false
	}

	if domain == parent {
		return true
	}

	return len(domain) > len(parent) &&
		strings.HasSuffix(domain, parent) &&
		domain[len(domain)-len(parent)-1] == '.'
}
