package adblock

import (
	"strings"

	"github.com/AdguardTeam/adblock/filterlist"
	"github.com/AdguardTeam/adblock/rules"
)

// CollectCSSRules returns the selectors of the element hiding rules from c
// which apply to the page on domain.  The selectors are in list order and
// then in rule order within each list.  Duplicates are not removed.
//
// A selector is omitted if an element hiding exception of the same list
// matches domain.  A list's rules are omitted entirely if the list has an
// $elemhide exception for domain, and its generic rules are omitted if it
// has a $generichide one.
func CollectCSSRules(c filterlist.Collection, domain string) (selectors []string) {
	domain = strings.ToLower(domain)

	var page exceptionPage
	var doc *rules.Request
	if domain != "" {
		doc = rules.NewRequestForHostname(domain)
	}

	for _, l := range c {
		if doc != nil {
			page = pageExceptions(l, doc)
		}

		if page&(pageExceptionElemhide|pageExceptionDocument) != 0 {
			continue
		}

		skipGeneric := page&pageExceptionGenerichide != 0
		for _, r := range l.CSSRules {
			if skipGeneric && r.IsGeneric() {
				continue
			}

			if r.Match(domain) && !isCSSException(l.CSSExceptions, r.Selector, domain) {
				selectors = append(selectors, r.Selector)
			}
		}
	}

	return selectors
}

// isCSSException returns true if one of excs disables selector on domain.
func isCSSException(excs []*rules.CosmeticRule, selector, domain string) (ok bool) {
	for _, exc := range excs {
		if exc.Selector == selector && exc.Match(domain) {
			return true
		}
	}

	return false
}

// Stylesheet returns the CSS text that hides the elements matching
// selectors.  It returns an empty string if there are no selectors.
func Stylesheet(selectors []string) (css string) {
	if len(selectors) == 0 {
		return ""
	}

	var sb strings.Builder
	for _, s := range selectors {
		sb.WriteString(s)
		sb.WriteString(" { display: none !important; }\n")
	}

	return sb.String()
}
