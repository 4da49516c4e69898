// Package filterlist contains the filter lists: named, ordered sets of
// filtering rules loaded from files, and collections of them.
package filterlist

import (
	"bufio"
	"io"
	"strings"

	"github.com/AdguardTeam/adblock/rules"
)

// titlePrefix is the prefix of the header comment with the list title.
const titlePrefix = "! Title:"

// FilterList is a named set of filtering rules split into buckets by kind.
// The order of the rules in each bucket is the order of the lines in the
// source.
//
// A FilterList must not be modified after it's been added to a
// [Collection], since collections are shared between goroutines.
type FilterList struct {
	// Name is the identifier of the list, usually the base name of the file
	// it's been loaded from.
	Name string

	// Title is the human-readable title from the "! Title:" header, if any.
	Title string

	// Patterns are the blocking network rules.
	Patterns []*rules.NetworkRule

	// Exceptions are the "@@" network rules.
	Exceptions []*rules.NetworkRule

	// CSSRules are the element hiding rules.
	CSSRules []*rules.CosmeticRule

	// CSSExceptions are the "#@#" element hiding exceptions.
	CSSExceptions []*rules.CosmeticRule

	// Skipped is the number of lines that were not comments but could not be
	// parsed.
	Skipped int
}

// New returns a new filter list with the rules from text.  Invalid lines are
// skipped.
func New(name, text string) (l *FilterList) {
	l = &FilterList{
		Name: name,
	}

	// Reading from a strings.Reader never fails.
	_ = l.read(strings.NewReader(text), nil)

	return l
}

// ParseLine parses line and adds the resulting rule to the corresponding
// bucket.  added is false if the line is empty, a comment, or an invalid
// rule.  err is the reason why a non-comment line was rejected.
func (l *FilterList) ParseLine(line string) (added bool, err error) {
	line = strings.TrimSpace(line)
	if l.Title == "" && strings.HasPrefix(line, titlePrefix) {
		l.Title = strings.TrimSpace(line[len(titlePrefix):])
	}

	r, err := rules.NewRule(line)
	if err != nil {
		l.Skipped++

		return false, err
	} else if r == nil {
		return false, nil
	}

	switch r := r.(type) {
	case *rules.NetworkRule:
		if r.Whitelist {
			l.Exceptions = append(l.Exceptions, r)
		} else {
			l.Patterns = append(l.Patterns, r)
		}
	case *rules.CosmeticRule:
		if r.Whitelist {
			l.CSSExceptions = append(l.CSSExceptions, r)
		} else {
			l.CSSRules = append(l.CSSRules, r)
		}
	}

	return true, nil
}

// Len returns the total number of rules in the list.
func (l *FilterList) Len() (n int) {
	return len(l.Patterns) + len(l.Exceptions) + len(l.CSSRules) + len(l.CSSExceptions)
}

// lineErrorFunc is called for every line that [FilterList.ParseLine]
// rejects.
type lineErrorFunc func(lineNum int, line string, err error)

// read parses all lines from r.  Lines of any length are supported.  It
// returns the first read error other than io.EOF, the rules read before it
// are kept.
func (l *FilterList) read(r io.Reader, onErr lineErrorFunc) (err error) {
	br := bufio.NewReader(r)
	for lineNum := 1; ; lineNum++ {
		var line string
		line, err = br.ReadString('\n')
		if line != "" {
			line = strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")

			_, lineErr := l.ParseLine(line)
			if lineErr != nil && onErr != nil {
				onErr(lineNum, line, lineErr)
			}
		}

		if err == io.EOF {
			return nil
		} else if err != nil {
			return err
		}
	}
}
