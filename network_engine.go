// Package adblock evaluates Adblock Plus filter lists: it decides whether a
// request should be blocked and which element hiding rules apply to a page.
package adblock

import (
	"github.com/AdguardTeam/adblock/filterlist"
	"github.com/AdguardTeam/adblock/rules"
)

// ShouldBlock returns true if r must be blocked according to c.  r is
// blocked if some list in c has a matching blocking rule and no matching
// exception.  Exceptions only apply to the rules of their own list.
func ShouldBlock(c filterlist.Collection, r *rules.Request) (ok bool) {
	rule, _ := MatchRequest(c, r)

	return rule != nil
}

// MatchRequest returns the first blocking rule that blocks r along with the
// list it belongs to.  rule and l are nil if r is allowed.
func MatchRequest(c filterlist.Collection, r *rules.Request) (rule *rules.NetworkRule, l *filterlist.FilterList) {
	for _, l = range c {
		if rule = matchList(l, r); rule != nil {
			return rule, l
		}
	}

	return nil, nil
}

// matchList returns the rule of l that blocks r, if any.
func matchList(l *filterlist.FilterList, r *rules.Request) (rule *rules.NetworkRule) {
	var docExc exceptionPage
	if r.SourceURL != "" {
		docExc = pageExceptions(l, rules.NewRequest(r.SourceURL, "", rules.TypeDocument))
	}

	if docExc&pageExceptionDocument != 0 {
		return nil
	}

	skipGeneric := docExc&pageExceptionGenericBlock != 0

	rule = findRule(l.Patterns, r, skipGeneric, false)
	if rule == nil {
		return nil
	}

	exc := findRule(l.Exceptions, r, false, false)
	if exc == nil {
		return rule
	}

	if exc.IsOptionEnabled(rules.OptionImportant) {
		return nil
	}

	// An $important blocking rule overrides the exceptions which are not
	// $important themselves.
	important := findRule(l.Patterns, r, skipGeneric, true)
	if important != nil && findRule(l.Exceptions, r, false, true) == nil {
		return important
	}

	return nil
}

// findRule returns the first rule in rs that matches r.  If skipGeneric is
// true, rules not limited to domains are ignored.  If important is true,
// only the $important rules are considered.  Page-level exceptions, like
// $elemhide ones, never match requests.
func findRule(
	rs []*rules.NetworkRule,
	r *rules.Request,
	skipGeneric bool,
	important bool,
) (rule *rules.NetworkRule) {
	for _, rule = range rs {
		enabled, _ := rule.Options()

		switch {
		case
			enabled&rules.OptionExceptionOnly != 0,
			skipGeneric && rule.IsGeneric(),
			important && !rule.IsOptionEnabled(rules.OptionImportant):
			continue
		case rule.Match(r):
			return rule
		}
	}

	return nil
}

// exceptionPage is the set of page-level exceptions which apply to a page.
type exceptionPage uint8

// exceptionPage values.
const (
	pageExceptionDocument exceptionPage = 1 << iota
	pageExceptionElemhide
	pageExceptionGenerichide
	pageExceptionGenericBlock
)

// pageExceptions returns the page-level exceptions of l that match the page
// request doc.  These are the exception rules with the $document, $elemhide,
// $generichide, or $genericblock modifiers.
func pageExceptions(l *filterlist.FilterList, doc *rules.Request) (e exceptionPage) {
	for _, exc := range l.Exceptions {
		permitted, _ := exc.RequestTypes()

		var cur exceptionPage
		if permitted&rules.TypeDocument != 0 {
			cur |= pageExceptionDocument
		}

		if exc.IsOptionEnabled(rules.OptionElemhide) {
			cur |= pageExceptionElemhide
		}

		if exc.IsOptionEnabled(rules.OptionGenerichide) {
			cur |= pageExceptionGenerichide
		}

		if exc.IsOptionEnabled(rules.OptionGenericblock) {
			cur |= pageExceptionGenericBlock
		}

		if cur != 0 && e&cur != cur && exc.Match(doc) {
			e |= cur
		}
	}

	return e
}
