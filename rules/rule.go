// Package rules contains the implementation of the Adblock Plus filtering
// rules: parsing of network and cosmetic rules and matching them against
// requests and page domains.
package rules

import (
	"fmt"
	"sort"
	"strings"

	"github.com/AdguardTeam/adblock/internal/ufnet"
	"github.com/AdguardTeam/golibs/errors"
)

const (
	// ErrUnsupportedRule signals that this might be a valid rule type, but
	// it is not supported by this library.
	ErrUnsupportedRule errors.Error = "this type of rules is unsupported"

	// ErrTooWideRule is returned if the rule matches all URLs and has no
	// $domain restrictions.
	ErrTooWideRule errors.Error = "the rule is too wide, add domain restrictions or make it more specific"
)

// RuleSyntaxError represents an error while parsing a filtering rule.
type RuleSyntaxError struct {
	msg      string
	ruleText string
}

// type check
var _ error = (*RuleSyntaxError)(nil)

// Error implements the error interface for *RuleSyntaxError.
func (e *RuleSyntaxError) Error() (msg string) {
	return fmt.Sprintf("syntax error: %s, rule: %s", e.msg, e.ruleText)
}

// Rule is a base interface for all filtering rules.  It's implemented by
// exactly two types: *NetworkRule and *CosmeticRule.
type Rule interface {
	// Text returns the original rule text.
	Text() (text string)

	// String returns the canonical text of the rule.  Parsing it again
	// results in an equivalent rule.
	String() (s string)

	// isRule is an unexported marker that keeps the set of rule kinds
	// closed.
	isRule()
}

// cosmeticRulesMarkers are the markers of all cosmetic rule syntaxes, including
// the ones that are not supported.
var cosmeticRulesMarkers = []string{
	// Element hiding rules.
	markerElementHiding, markerElementHidingException,
	// Script rules.
	"#%#", "#@%#",
	// CSS injection.
	"#$#", "#@$#",
	// Extended CSS hiding rules.
	"#?#", "#@?#",
	// Extended CSS injection rules.
	"#$?#", "#@$?#",
	// HTML filtering.
	"$$", "$@$",
}

func init() {
	// This is important for findRuleMarker to check longer markers first.
	sort.SliceStable(cosmeticRulesMarkers, func(i, j int) bool {
		return len(cosmeticRulesMarkers[i]) > len(cosmeticRulesMarkers[j])
	})
}

// NewRule creates a new filtering rule from the specified line.  It returns
// nil and no error if the line is empty or if it is a comment.
func NewRule(line string) (r Rule, err error) {
	line = strings.TrimSpace(line)

	if line == "" || IsComment(line) {
		return nil, nil
	}

	if isCosmetic(line) {
		var cr *CosmeticRule
		cr, err = NewCosmeticRule(line)
		if err != nil {
			return nil, err
		}

		return cr, nil
	}

	nr, err := NewNetworkRule(line)
	if err != nil {
		return nil, err
	}

	return nr, nil
}

// IsComment checks if the line is a comment.  Lines starting with "!", list
// headers such as "[Adblock Plus 2.0]", and lines starting with "#" which
// are not cosmetic rules are comments.
func IsComment(line string) (ok bool) {
	if line == "" {
		return false
	}

	switch line[0] {
	case '!':
		return true
	case '[':
		return strings.HasSuffix(line, "]") && !strings.Contains(line, "$")
	case '#':
		return findRuleMarker(line, '#') == ""
	default:
		return false
	}
}

// isCosmetic checks if this is a cosmetic filtering rule.
func isCosmetic(line string) (ok bool) {
	return findRuleMarker(line, '#') != "" || findRuleMarker(line, '$') != ""
}

// findRuleMarker looks for a cosmetic rule marker in the rule text and
// returns the marker found or an empty string.  firstMarkerChar is the first
// character of the markers to look for.
func findRuleMarker(ruleText string, firstMarkerChar byte) (marker string) {
	startIndex := strings.IndexByte(ruleText, firstMarkerChar)
	if startIndex == -1 {
		return ""
	}

	for _, m := range cosmeticRulesMarkers {
		if m[0] == firstMarkerChar && strings.HasPrefix(ruleText[startIndex:], m) {
			return m
		}
	}

	return ""
}

// loadDomains loads the domains of the $domain modifier or of a cosmetic
// rule.  sep is the separator: "|" for network rules and "," for cosmetic
// ones.  Domains are lowercased, "~" marks restricted domains.
func loadDomains(domains, sep string) (permitted, restricted []string, err error) {
	if domains == "" {
		return nil, nil, errors.Error("no domains specified")
	}

	for _, d := range strings.Split(domains, sep) {
		d = strings.ToLower(strings.TrimSpace(d))

		isRestricted := strings.HasPrefix(d, "~")
		if isRestricted {
			d = d[1:]
		}

		if !ufnet.IsDomainName(strings.TrimSuffix(d, ".*")) {
			return nil, nil, fmt.Errorf("invalid domain specified: %q", domains)
		}

		if isRestricted {
			restricted = append(restricted, d)
		} else {
			permitted = append(permitted, d)
		}
	}

	return permitted, restricted, nil
}
