package rules

import (
	"strings"

	"github.com/AdguardTeam/adblock/internal/ufnet"
	"golang.org/x/net/publicsuffix"
)

// splitWithEscapeCharacter splits str by the specified separator if it is not
// escaped.
func splitWithEscapeCharacter(str string, sep, escapeCharacter byte, preserveAllTokens bool) (parts []string) {
	parts = make([]string, 0)

	if str == "" {
		return parts
	}

	var sb strings.Builder
	escaped := false
	for i := range str {
		c := str[i]

		switch {
		case c == escapeCharacter:
			escaped = true
		case c == sep && escaped:
			sb.WriteByte(c)
			escaped = false
		case c == sep:
			if preserveAllTokens || sb.Len() > 0 {
				parts = append(parts, sb.String())
				sb.Reset()
			}
		default:
			if escaped {
				escaped = false
				sb.WriteByte(escapeCharacter)
			}

			sb.WriteByte(c)
		}
	}

	if preserveAllTokens || sb.Len() > 0 {
		parts = append(parts, sb.String())
	}

	return parts
}

// isDomainOrSubdomainOfAny checks if domain is equal to or a subdomain of any
// of domains.  A domain like "example.*" matches "example.TLD" for any public
// suffix TLD, and its subdomains.
func isDomainOrSubdomainOfAny(domain string, domains []string) (ok bool) {
	for _, d := range domains {
		if !strings.HasSuffix(d, ".*") {
			if ufnet.IsSubdomainOrEqual(domain, d) {
				return true
			}

			continue
		}

		if matchWildcardTLD(domain, d[:len(d)-1]) {
			return true
		}
	}

	return false
}

// matchWildcardTLD checks if domain is "<prefix><public suffix>" or its
// subdomain.  prefix ends with a dot, e.g. "example.".
func matchWildcardTLD(domain, prefix string) (ok bool) {
	tld, icann := publicsuffix.PublicSuffix(domain)
	if tld == "" || !icann {
		return false
	}

	return ufnet.IsSubdomainOrEqual(domain, prefix+tld)
}

// effectiveTLDPlusOne is a faster version of publicsuffix.EffectiveTLDPlusOne
// that avoids fmt.Errorf when the domain is less or equal the suffix.
func effectiveTLDPlusOne(hostname string) (domain string) {
	hostnameLen := len(hostname)
	if hostnameLen < 1 {
		return ""
	}

	if hostname[0] == '.' || hostname[hostnameLen-1] == '.' {
		return ""
	}

	suffix, _ := publicsuffix.PublicSuffix(hostname)

	i := hostnameLen - len(suffix) - 1
	if i < 0 || hostname[i] != '.' {
		return ""
	}

	return hostname[1+strings.LastIndex(hostname[:i], "."):]
}

// asciiLower returns s with ASCII letters lowercased.  Unlike
// strings.ToLower, it never changes the byte length of s, so offsets computed
// on the result are valid for s as well.
func asciiLower(s string) (lower string) {
	i := 0
	for ; i < len(s); i++ {
		if c := s[i]; c >= 'A' && c <= 'Z' {
			break
		}
	}

	if i == len(s) {
		return s
	}

	b := []byte(s)
	for ; i < len(b); i++ {
		if c := b[i]; c >= 'A' && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}

	return string(b)
}
