package rules

import (
	"fmt"
	"strings"

	"github.com/AdguardTeam/adblock/internal/ufnet"
)

const (
	maskWhiteList    = "@@"
	maskRegexRule    = "/"
	optionsDelimiter = '$'
	escapeCharacter  = '\\'
)

// NetworkRule is a basic URL blocking rule or, if Whitelist is true, an
// exception rule.
//
// https://help.eyeo.com/adblockplus/how-to-write-filters#basic
//
// NetworkRule is immutable after it's created, so it's safe for concurrent
// use.
type NetworkRule struct {
	// RuleText is the original rule text.
	RuleText string

	// Pattern is the rule pattern without the exception prefix, the anchor
	// marks, and the options.
	Pattern string

	// Whitelist is true if this is an exception rule.
	Whitelist bool

	// Anchor is the set of anchors of the pattern.
	Anchor Anchor

	// host is the hostname part of the pattern for rules with AnchorDomain.
	// It's lowercased.
	host string

	// matcher is the compiled pattern.  For rules with AnchorDomain and a
	// non-empty host it matches the part of the URL that follows the host.
	matcher pattern

	permittedDomains  []string // a list of permitted domains from the $domain modifier
	restrictedDomains []string // a list of restricted domains from the $domain modifier

	enabledOptions  Option // Flag with all enabled rule options
	disabledOptions Option // Flag with all disabled ("~") rule options

	permittedRequestTypes  RequestType // Flag with all permitted request types. 0 means ALL.
	restrictedRequestTypes RequestType // Flag with all restricted request types. 0 means NONE.
}

// type check
var _ Rule = (*NetworkRule)(nil)

// NewNetworkRule parses the rule text and returns a network rule.
func NewNetworkRule(ruleText string) (r *NetworkRule, err error) {
	text, options, whitelist, err := parseRuleText(ruleText)
	if err != nil {
		return nil, err
	}

	if len(text) > 1 &&
		strings.HasPrefix(text, maskRegexRule) &&
		strings.HasSuffix(text, maskRegexRule) {
		return nil, fmt.Errorf("regular expression rules: %w", ErrUnsupportedRule)
	}

	anchor, pat := parseAnchors(text)
	r = &NetworkRule{
		RuleText:  ruleText,
		Pattern:   pat,
		Whitelist: whitelist,
		Anchor:    anchor,
	}

	err = r.loadOptions(options)
	if err != nil {
		return nil, err
	}

	r.compile()

	if r.matcher.isEmpty() && r.host == "" && len(r.permittedDomains) == 0 {
		return nil, ErrTooWideRule
	}

	return r, nil
}

// isRule implements the [Rule] interface for *NetworkRule.
func (f *NetworkRule) isRule() {}

// Text implements the [Rule] interface for *NetworkRule.
func (f *NetworkRule) Text() (text string) {
	return f.RuleText
}

// String implements the [Rule] interface for *NetworkRule.  It serializes the
// parsed rule back to the filter syntax with the options in canonical order.
func (f *NetworkRule) String() (s string) {
	var sb strings.Builder
	if f.Whitelist {
		sb.WriteString(maskWhiteList)
	}

	pat := f.Anchor.wrap(f.Pattern)
	if strings.IndexByte(pat, optionsDelimiter) != -1 {
		pat = strings.ReplaceAll(pat, string(optionsDelimiter), `\$`)
	}

	sb.WriteString(pat)

	opts := f.optionsText()
	if len(opts) > 0 {
		sb.WriteByte(optionsDelimiter)
		sb.WriteString(strings.Join(opts, ","))
	}

	return sb.String()
}

// optionsText returns the rule modifiers in canonical order.
func (f *NetworkRule) optionsText() (opts []string) {
	for _, tn := range requestTypeNames {
		if f.permittedRequestTypes&tn.typ != 0 {
			opts = append(opts, tn.name)
		}

		if f.restrictedRequestTypes&tn.typ != 0 {
			opts = append(opts, "~"+tn.name)
		}
	}

	for _, on := range optionNames {
		if f.IsOptionEnabled(on.option) {
			opts = append(opts, on.name)
		}

		if f.IsOptionDisabled(on.option) {
			opts = append(opts, "~"+on.name)
		}
	}

	if len(f.permittedDomains) > 0 || len(f.restrictedDomains) > 0 {
		domains := append([]string{}, f.permittedDomains...)
		for _, d := range f.restrictedDomains {
			domains = append(domains, "~"+d)
		}

		opts = append(opts, "domain="+strings.Join(domains, "|"))
	}

	return opts
}

// IsOptionEnabled returns true if the specified option is enabled.
func (f *NetworkRule) IsOptionEnabled(option Option) (ok bool) {
	return f.enabledOptions.Has(option)
}

// IsOptionDisabled returns true if the specified option is disabled.
func (f *NetworkRule) IsOptionDisabled(option Option) (ok bool) {
	return f.disabledOptions.Has(option)
}

// Options returns the enabled and disabled option sets of the rule.
func (f *NetworkRule) Options() (enabled, disabled Option) {
	return f.enabledOptions, f.disabledOptions
}

// RequestTypes returns the permitted and restricted resource types of the
// rule.  Zero permitted means all types are permitted.
func (f *NetworkRule) RequestTypes() (permitted, restricted RequestType) {
	return f.permittedRequestTypes, f.restrictedRequestTypes
}

// PermittedDomains returns the domains this rule is limited to.
func (f *NetworkRule) PermittedDomains() (domains []string) {
	return f.permittedDomains
}

// RestrictedDomains returns the domains this rule is disabled on.
func (f *NetworkRule) RestrictedDomains() (domains []string) {
	return f.restrictedDomains
}

// IsGeneric returns true if the rule is not limited to a set of domains.
// Note that it might still be disabled on some domains.
func (f *NetworkRule) IsGeneric() (ok bool) {
	return len(f.permittedDomains) == 0
}

// IsCaseSensitive returns true if the pattern is matched case-sensitively.
// That's the default, which "$~match-case" turns off.
func (f *NetworkRule) IsCaseSensitive() (ok bool) {
	return !f.IsOptionDisabled(OptionMatchCase)
}

// IsHostLevel returns true if the rule can be applied when only the hostname
// is known, for example at the DNS level.  Such rules look like
// "||example.org^" and have no modifiers.
func (f *NetworkRule) IsHostLevel() (ok bool) {
	if !f.Anchor.Has(AnchorDomain) || f.host == "" || strings.HasSuffix(f.host, ".") {
		return false
	}

	rest := strings.TrimPrefix(f.Pattern, f.host)
	if rest != "" && rest != string(maskSeparator) {
		return false
	}

	return f.enabledOptions&^(OptionImportant|OptionMatchCase) == 0 &&
		f.disabledOptions == 0 &&
		f.permittedRequestTypes == 0 &&
		f.restrictedRequestTypes == 0 &&
		len(f.permittedDomains) == 0 &&
		len(f.restrictedDomains) == 0
}

// MatchURL checks if the rule matches uri when nothing else is known about
// the request.
func (f *NetworkRule) MatchURL(uri string) (ok bool) {
	return f.Match(NewRequest(uri, "", TypeUnknown))
}

// MatchHostname checks if the host-level rule matches hostname.  It always
// returns false for rules that are not host-level.
func (f *NetworkRule) MatchHostname(hostname string) (ok bool) {
	return f.IsHostLevel() && ufnet.IsSubdomainOrEqual(strings.ToLower(hostname), f.host)
}

// Match checks if this filtering rule matches the specified request.
func (f *NetworkRule) Match(r *Request) (ok bool) {
	switch {
	case
		!f.matchThirdParty(r),
		!f.matchRequestType(r.RequestType),
		!f.matchSourceDomain(r.SourceHostname),
		!f.matchPattern(r):
		return false
	default:
		return true
	}
}

// matchThirdParty checks the $third-party modifier.  It's ignored if the
// source of the request is unknown.
func (f *NetworkRule) matchThirdParty(r *Request) (ok bool) {
	if r.SourceHostname == "" {
		return true
	}

	switch {
	case f.IsOptionEnabled(OptionThirdParty):
		return r.ThirdParty
	case f.IsOptionDisabled(OptionThirdParty):
		return !r.ThirdParty
	default:
		return true
	}
}

// matchRequestType checks if the specified request type matches the rule
// properties.  Unknown request types match any rule.
func (f *NetworkRule) matchRequestType(requestType RequestType) (ok bool) {
	if requestType == TypeUnknown {
		return true
	}

	if f.permittedRequestTypes != 0 && f.permittedRequestTypes&requestType != requestType {
		return false
	}

	return f.restrictedRequestTypes&requestType != requestType
}

// matchSourceDomain checks if the rule is allowed on this source domain,
// i.e. checks the domain against the $domain modifier.
func (f *NetworkRule) matchSourceDomain(domain string) (ok bool) {
	if len(f.permittedDomains) == 0 && len(f.restrictedDomains) == 0 {
		return true
	}

	if domain == "" {
		// The rule is limited to some domains, and the source is unknown.
		return len(f.permittedDomains) == 0
	}

	if isDomainOrSubdomainOfAny(domain, f.restrictedDomains) {
		return false
	}

	return len(f.permittedDomains) == 0 || isDomainOrSubdomainOfAny(domain, f.permittedDomains)
}

// matchPattern matches the pattern against the request URL honoring the
// anchors.
func (f *NetworkRule) matchPattern(r *Request) (ok bool) {
	url := r.URL
	if !f.IsCaseSensitive() {
		url = r.URLLowerCase
	}

	if !f.Anchor.Has(AnchorDomain) {
		return f.matcher.match(url)
	}

	start, end := ufnet.HostBounds(r.URLLowerCase)
	if start == end {
		return false
	}

	if f.host == "" {
		if f.IsCaseSensitive() {
			// Hostnames are case-insensitive even for case-sensitive rules.
			url = r.URLLowerCase[:end] + url[end:]
		}

		return f.matchAtLabels(url, start, end)
	}

	tail, ok := hostTail(r.URLLowerCase, start, end, f.host)
	if !ok {
		return false
	}

	return f.matcher.match(url[tail:])
}

// matchAtLabels matches the pattern against url starting at each label
// boundary of the hostname in url[start:end].
func (f *NetworkRule) matchAtLabels(url string, start, end int) (ok bool) {
	for i := start; i < end; i++ {
		if (i == start || url[i-1] == '.') && f.matcher.match(url[i:]) {
			return true
		}
	}

	return false
}

// hostTail matches the host part of a domain-anchored pattern against the
// hostname in url[start:end] and returns the offset in url where the rest of
// the pattern must start.  The match is dot-boundary: "example.com" matches
// "example.com" and "sub.example.com", but not "notexample.com".  A host
// part ending with a dot, like "ads.", matches at any label boundary.
func hostTail(url string, start, end int, host string) (tail int, ok bool) {
	hostname := url[start:end]
	if strings.HasSuffix(host, ".") {
		for i := 0; i+len(host) <= len(hostname); i++ {
			if (i == 0 || hostname[i-1] == '.') && strings.HasPrefix(hostname[i:], host) {
				return start + i + len(host), true
			}
		}

		return 0, false
	}

	if !ufnet.IsSubdomainOrEqual(hostname, host) {
		return 0, false
	}

	return end, true
}

// compile prepares the matcher of the rule.
func (f *NetworkRule) compile() {
	text := f.Pattern
	if !f.IsCaseSensitive() {
		text = asciiLower(text)
	}

	isEnd := f.Anchor.Has(AnchorEnd)
	if !f.Anchor.Has(AnchorDomain) {
		f.matcher = newPattern(text, f.Anchor.Has(AnchorStart), isEnd)

		return
	}

	hostLen := strings.IndexAny(text, "/^*:?=&")
	if hostLen == -1 {
		hostLen = len(text)
	} else if text[hostLen] == maskAnyCharacter {
		// The host part has a wildcard, so the whole pattern is matched at
		// each label boundary of the hostname.
		f.matcher = newPattern(asciiLower(text[:hostLen])+text[hostLen:], true, isEnd)

		return
	}

	f.host = asciiLower(text[:hostLen])
	f.matcher = newPattern(text[hostLen:], true, isEnd)
}

// loadOptions loads all the filtering rule options.
func (f *NetworkRule) loadOptions(options string) (err error) {
	if options == "" {
		return nil
	}

	for _, option := range splitWithEscapeCharacter(options, ',', escapeCharacter, false) {
		name, value, _ := strings.Cut(strings.TrimSpace(option), "=")
		err = f.loadOption(strings.ToLower(name), value)
		if err != nil {
			return err
		}
	}

	if !f.Whitelist && f.enabledOptions&OptionExceptionOnly != 0 {
		return &RuleSyntaxError{
			msg:      "modifier cannot be used in a blocking rule",
			ruleText: f.RuleText,
		}
	}

	return nil
}

// loadOption loads the specified option with its value, if any.  Unknown
// options are ignored.
func (f *NetworkRule) loadOption(name, value string) (err error) {
	negated := strings.HasPrefix(name, "~")
	name = strings.TrimPrefix(name, "~")

	if name == "domain" {
		if negated {
			return &RuleSyntaxError{msg: "$domain cannot be negated", ruleText: f.RuleText}
		}

		f.permittedDomains, f.restrictedDomains, err = loadDomains(value, "|")

		return err
	}

	if _, ok := unsupportedOptions[name]; ok {
		return fmt.Errorf("modifier $%s: %w", name, ErrUnsupportedRule)
	}

	switch name {
	case "first-party":
		name, negated = "third-party", !negated
	case "3p":
		name = "third-party"
	case "1p":
		name, negated = "third-party", !negated
	}

	if t, ok := requestTypeByName(name); ok {
		if negated {
			f.restrictedRequestTypes |= t
		} else {
			f.permittedRequestTypes |= t
		}

		return nil
	}

	if o, ok := optionByName(name); ok {
		if negated {
			f.disabledOptions |= o
		} else {
			f.enabledOptions |= o
		}
	}

	return nil
}

// parseRuleText splits the rule text on the first unescaped "$" in multiple
// parts:
//
//   - text is the rule pattern with anchors;
//   - options is a string with all rule options;
//   - whitelist indicates an exception rule.
func parseRuleText(ruleText string) (text, options string, whitelist bool, err error) {
	startIndex := 0
	if strings.HasPrefix(ruleText, maskWhiteList) {
		whitelist = true
		startIndex = len(maskWhiteList)
	}

	if len(ruleText) <= startIndex {
		return "", "", false, &RuleSyntaxError{msg: "the rule is too short", ruleText: ruleText}
	}

	text = ruleText[startIndex:]

	// Avoid parsing options inside of a regex rule.
	if len(text) > 1 && strings.HasPrefix(text, maskRegexRule) && strings.HasSuffix(text, maskRegexRule) {
		return text, "", whitelist, nil
	}

	for i := startIndex; i < len(ruleText); i++ {
		if ruleText[i] != optionsDelimiter {
			continue
		}

		if i > startIndex && ruleText[i-1] == escapeCharacter {
			continue
		}

		text = ruleText[startIndex:i]
		options = ruleText[i+1:]

		break
	}

	text = strings.ReplaceAll(text, `\$`, string(optionsDelimiter))

	return text, options, whitelist, nil
}
