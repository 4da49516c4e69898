package rules

import "strings"

// Anchor describes where in the URL a network rule pattern must align.  It's
// a set: AnchorEnd can be combined with AnchorStart or AnchorDomain.
type Anchor uint8

// Anchor values.
const (
	// AnchorNone means that the pattern may appear anywhere in the URL.
	AnchorNone Anchor = 0

	// AnchorStart is the "|" prefix: the URL must begin with the pattern.
	AnchorStart Anchor = 1 << 1

	// AnchorEnd is the "|" suffix: the URL must end with the pattern.
	AnchorEnd Anchor = 1 << 2

	// AnchorDomain is the "||" prefix: the pattern starts at a hostname
	// label boundary.
	AnchorDomain Anchor = 1 << 3
)

const (
	maskDomainAnchor = "||"
	maskPipe         = "|"
)

// Has returns true if all of the anchors in a2 are in a.
func (a Anchor) Has(a2 Anchor) (ok bool) {
	return a&a2 == a2
}

// String implements the fmt.Stringer interface for Anchor.
func (a Anchor) String() (s string) {
	var parts []string
	if a.Has(AnchorDomain) {
		parts = append(parts, "domain")
	} else if a.Has(AnchorStart) {
		parts = append(parts, "start")
	}

	if a.Has(AnchorEnd) {
		parts = append(parts, "end")
	}

	if len(parts) == 0 {
		return "none"
	}

	return strings.Join(parts, "|")
}

// parseAnchors strips the anchor marks from the pattern and returns them.
func parseAnchors(text string) (a Anchor, pattern string) {
	pattern = text
	switch {
	case strings.HasPrefix(pattern, maskDomainAnchor):
		a = AnchorDomain
		pattern = pattern[len(maskDomainAnchor):]
	case strings.HasPrefix(pattern, maskPipe):
		a = AnchorStart
		pattern = pattern[len(maskPipe):]
	}

	if strings.HasSuffix(pattern, maskPipe) {
		a |= AnchorEnd
		pattern = pattern[:len(pattern)-len(maskPipe)]
	}

	return a, pattern
}

// wrap adds the anchor marks to pattern.
func (a Anchor) wrap(pattern string) (text string) {
	switch {
	case a.Has(AnchorDomain):
		text = maskDomainAnchor + pattern
	case a.Has(AnchorStart):
		text = maskPipe + pattern
	default:
		text = pattern
	}

	if a.Has(AnchorEnd) {
		text += maskPipe
	}

	return text
}
