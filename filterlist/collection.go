package filterlist

// Collection is an ordered sequence of filter lists.  Evaluation visits the
// lists in order.  A Collection is immutable once built, so it's safe for
// concurrent use.
type Collection []*FilterList

// Stats is the number of rules of each kind in a [Collection].
type Stats struct {
	Patterns      int
	Exceptions    int
	CSSRules      int
	CSSExceptions int
	Skipped       int
}

// Total returns the total number of rules.
func (s Stats) Total() (n int) {
	return s.Patterns + s.Exceptions + s.CSSRules + s.CSSExceptions
}

// Stats returns the number of rules of each kind in c.
func (c Collection) Stats() (s Stats) {
	for _, l := range c {
		s.Patterns += len(l.Patterns)
		s.Exceptions += len(l.Exceptions)
		s.CSSRules += len(l.CSSRules)
		s.CSSExceptions += len(l.CSSExceptions)
		s.Skipped += l.Skipped
	}

	return s
}

// Find returns the first list with the given name or nil if there is none.
func (c Collection) Find(name string) (l *FilterList) {
	for _, l = range c {
		if l.Name == name {
			return l
		}
	}

	return nil
}
