package adblock

import (
	"strings"

	"github.com/AdguardTeam/adblock/filterlist"
	"github.com/AdguardTeam/adblock/rules"
)

// MatchHost returns the first host-level blocking rule that blocks hostname
// along with the list it belongs to.  Only rules like "||example.org^" are
// considered, since nothing but the hostname is known at the DNS level.
// rule and l are nil if hostname is allowed.
func MatchHost(c filterlist.Collection, hostname string) (rule *rules.NetworkRule, l *filterlist.FilterList) {
	hostname = strings.TrimSuffix(strings.ToLower(hostname), ".")
	if hostname == "" {
		return nil, nil
	}

	for _, l = range c {
		if rule = matchListHost(l, hostname); rule != nil {
			return rule, l
		}
	}

	return nil, nil
}

// ShouldBlockHost returns true if hostname must be blocked according to the
// host-level rules of c.
func ShouldBlockHost(c filterlist.Collection, hostname string) (ok bool) {
	rule, _ := MatchHost(c, hostname)

	return rule != nil
}

// matchListHost returns the host-level rule of l that blocks hostname, if
// any.
func matchListHost(l *filterlist.FilterList, hostname string) (rule *rules.NetworkRule) {
	rule = findHostRule(l.Patterns, hostname, false)
	if rule == nil {
		return nil
	}

	exc := findHostRule(l.Exceptions, hostname, false)
	if exc == nil {
		return rule
	}

	important := findHostRule(l.Patterns, hostname, true)
	if important != nil && findHostRule(l.Exceptions, hostname, true) == nil {
		return important
	}

	return nil
}

// findHostRule returns the first host-level rule in rs that matches
// hostname.  If important is true, only the $important rules are considered.
func findHostRule(rs []*rules.NetworkRule, hostname string, important bool) (rule *rules.NetworkRule) {
	for _, rule = range rs {
		if important && !rule.IsOptionEnabled(rules.OptionImportant) {
			continue
		}

		if rule.MatchHostname(hostname) {
			return rule
		}
	}

	return nil
}
