package rules

import (
	"fmt"
	"strings"
)

const (
	markerElementHiding          = "##"
	markerElementHidingException = "#@#"
)

// CosmeticRule is an element hiding rule.  It hides the page elements
// matching Selector on the pages of the domains the rule is scoped to.
//
// https://help.eyeo.com/adblockplus/how-to-write-filters#elemhide
//
// CosmeticRule is immutable after it's created, so it's safe for concurrent
// use.
type CosmeticRule struct {
	// RuleText is the original rule text.
	RuleText string

	// Selector is the CSS selector of the elements to hide.
	Selector string

	// Whitelist is true for element hiding exceptions ("#@#").
	Whitelist bool

	permittedDomains  []string // a list of permitted domains
	restrictedDomains []string // a list of restricted domains
}

// type check
var _ Rule = (*CosmeticRule)(nil)

// NewCosmeticRule parses the rule text and creates a new element hiding rule.
// Other cosmetic syntaxes, like scriptlets and extended CSS, are reported as
// [ErrUnsupportedRule].
func NewCosmeticRule(ruleText string) (r *CosmeticRule, err error) {
	marker := findRuleMarker(ruleText, '#')
	if marker == "" {
		if findRuleMarker(ruleText, '$') != "" {
			return nil, fmt.Errorf("html filtering: %w", ErrUnsupportedRule)
		}

		return nil, &RuleSyntaxError{msg: "invalid cosmetic rule", ruleText: ruleText}
	}

	if marker != markerElementHiding && marker != markerElementHidingException {
		return nil, fmt.Errorf("cosmetic marker %q: %w", marker, ErrUnsupportedRule)
	}

	idx := strings.Index(ruleText, marker)
	domains := ruleText[:idx]
	selector := strings.TrimSpace(ruleText[idx+len(marker):])

	switch {
	case selector == "":
		return nil, &RuleSyntaxError{msg: "empty selector", ruleText: ruleText}
	case strings.HasPrefix(selector, "+js("), strings.HasPrefix(selector, "^"):
		// uBlock Origin scriptlets and HTML filters.
		return nil, fmt.Errorf("selector %q: %w", selector, ErrUnsupportedRule)
	}

	r = &CosmeticRule{
		RuleText:  ruleText,
		Selector:  selector,
		Whitelist: marker == markerElementHidingException,
	}

	if domains != "" {
		r.permittedDomains, r.restrictedDomains, err = loadDomains(domains, ",")
		if err != nil {
			return nil, &RuleSyntaxError{msg: err.Error(), ruleText: ruleText}
		}
	}

	if r.Whitelist && len(r.permittedDomains) == 0 {
		return nil, &RuleSyntaxError{
			msg:      "element hiding exceptions must be limited to domains",
			ruleText: ruleText,
		}
	}

	return r, nil
}

// isRule implements the [Rule] interface for *CosmeticRule.
func (f *CosmeticRule) isRule() {}

// Text implements the [Rule] interface for *CosmeticRule.
func (f *CosmeticRule) Text() (text string) {
	return f.RuleText
}

// String implements the [Rule] interface for *CosmeticRule.
func (f *CosmeticRule) String() (s string) {
	domains := append([]string{}, f.permittedDomains...)
	for _, d := range f.restrictedDomains {
		domains = append(domains, "~"+d)
	}

	marker := markerElementHiding
	if f.Whitelist {
		marker = markerElementHidingException
	}

	return strings.Join(domains, ",") + marker + f.Selector
}

// PermittedDomains returns the domains this rule is limited to.
func (f *CosmeticRule) PermittedDomains() (domains []string) {
	return f.permittedDomains
}

// RestrictedDomains returns the domains this rule is disabled on.
func (f *CosmeticRule) RestrictedDomains() (domains []string) {
	return f.restrictedDomains
}

// IsGeneric returns true if the rule is not limited to a set of domains.
func (f *CosmeticRule) IsGeneric() (ok bool) {
	return len(f.permittedDomains) == 0
}

// Match returns true if this rule can be used on the specified domain.  An
// empty domain only matches generic rules.
func (f *CosmeticRule) Match(domain string) (ok bool) {
	if len(f.permittedDomains) == 0 && len(f.restrictedDomains) == 0 {
		return true
	}

	domain = strings.ToLower(domain)
	if domain == "" {
		return len(f.permittedDomains) == 0
	}

	if isDomainOrSubdomainOfAny(domain, f.restrictedDomains) {
		return false
	}

	return len(f.permittedDomains) == 0 || isDomainOrSubdomainOfAny(domain, f.permittedDomains)
}
