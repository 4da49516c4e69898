package rules

import "strings"

const (
	maskAnyCharacter = '*'
	maskSeparator    = '^'
)

// pattern is a compiled network rule pattern: an ordered list of literal
// segments separated by "*" wildcards.  A segment may contain "^" separator
// placeholders.
//
// pattern is immutable after it's created, so it's safe for concurrent use.
type pattern struct {
	segments []string

	// start requires the first segment to match at the beginning of the
	// input.
	start bool

	// end requires the last segment to match at the end of the input.
	end bool
}

// newPattern splits text into segments.  text must not contain anchor marks.
func newPattern(text string, start, end bool) (p pattern) {
	return pattern{
		segments: strings.Split(text, string(maskAnyCharacter)),
		start:    start,
		end:      end,
	}
}

// isEmpty returns true if the pattern has no literal characters, so that it
// matches any input.
func (p pattern) isEmpty() (ok bool) {
	for _, seg := range p.segments {
		if strings.Trim(seg, string(maskSeparator)) != "" {
			return false
		}
	}

	return true
}

// match returns true if s matches the pattern.  All segments must occur in s
// from left to right without overlapping.
func (p pattern) match(s string) (ok bool) {
	pos := 0
	last := len(p.segments) - 1
	for i, seg := range p.segments {
		if seg == "" {
			continue
		}

		var end int
		switch {
		case i == 0 && p.start:
			end, ok = matchSegmentAt(s, 0, seg)
			if ok && i == last && p.end {
				ok = end == len(s)
			}
		case i == last && p.end:
			return matchSegmentSuffix(s, pos, seg)
		default:
			end, ok = findSegment(s, pos, seg)
		}

		if !ok {
			return false
		}

		pos = end
	}

	return true
}

// isSeparator returns true if c is a separator character, that is anything
// but a letter, a digit, or one of "_-.%".
func isSeparator(c byte) (ok bool) {
	switch {
	case
		c >= 'a' && c <= 'z',
		c >= 'A' && c <= 'Z',
		c >= '0' && c <= '9',
		c == '_', c == '-', c == '.', c == '%':
		return false
	default:
		return true
	}
}

// matchSegmentAt matches seg at s[i:] and returns the offset right after the
// match.  "^" matches a single separator character or the end of s.
func matchSegmentAt(s string, i int, seg string) (end int, ok bool) {
	for j := 0; j < len(seg); j++ {
		c := seg[j]
		if c == maskSeparator {
			if i == len(s) {
				continue
			}

			if !isSeparator(s[i]) {
				return 0, false
			}

			i++

			continue
		}

		if i == len(s) || s[i] != c {
			return 0, false
		}

		i++
	}

	return i, true
}

// findSegment finds the leftmost match of seg in s starting at from and
// returns the offset right after it.
func findSegment(s string, from int, seg string) (end int, ok bool) {
	if from > len(s) {
		return 0, false
	}

	if strings.IndexByte(seg, maskSeparator) == -1 {
		idx := strings.Index(s[from:], seg)
		if idx == -1 {
			return 0, false
		}

		return from + idx + len(seg), true
	}

	for i := from; i <= len(s); i++ {
		if end, ok = matchSegmentAt(s, i, seg); ok {
			return end, true
		}
	}

	return 0, false
}

// matchSegmentSuffix returns true if seg matches a suffix of s that starts at
// or after from.
func matchSegmentSuffix(s string, from int, seg string) (ok bool) {
	if strings.IndexByte(seg, maskSeparator) == -1 {
		return len(s)-len(seg) >= from && strings.HasSuffix(s, seg)
	}

	for i := from; i <= len(s); i++ {
		if end, matched := matchSegmentAt(s, i, seg); matched && end == len(s) {
			return true
		}
	}

	return false
}
