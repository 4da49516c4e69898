package rules

import (
	"math/bits"
	"strings"
)

// Option is an enumerated set of the network rule modifiers which are not
// resource types.  The resource types are kept as [RequestType] sets.
type Option uint32

// Option enumeration.
const (
	OptionThirdParty Option = 1 << iota // $third-party modifier
	OptionMatchCase                     // $match-case modifier
	OptionImportant                     // $important modifier
	OptionCollapse                      // $collapse modifier
	OptionDoNotTrack                    // $donottrack modifier
	OptionPopup                         // $popup modifier

	// Exception-only modifiers.  Each of them disables a part of the
	// filtering on the pages they match.

	OptionElemhide     // $elemhide modifier
	OptionGenerichide  // $generichide modifier
	OptionGenericblock // $genericblock modifier

	// OptionNone is the empty set of options.
	OptionNone Option = 0

	// OptionExceptionOnly are the options which only make sense for
	// exception rules.
	OptionExceptionOnly = OptionElemhide | OptionGenerichide | OptionGenericblock
)

// optionNames maps options to their names in the filter syntax, in the order
// they are serialized.
var optionNames = []struct {
	name   string
	option Option
}{
	{name: "third-party", option: OptionThirdParty},
	{name: "match-case", option: OptionMatchCase},
	{name: "important", option: OptionImportant},
	{name: "collapse", option: OptionCollapse},
	{name: "donottrack", option: OptionDoNotTrack},
	{name: "popup", option: OptionPopup},
	{name: "elemhide", option: OptionElemhide},
	{name: "generichide", option: OptionGenerichide},
	{name: "genericblock", option: OptionGenericblock},
}

// requestTypeNames maps request types to their names in the filter syntax,
// in the order they are serialized.
var requestTypeNames = []struct {
	name string
	typ  RequestType
}{
	{name: "document", typ: TypeDocument},
	{name: "subdocument", typ: TypeSubdocument},
	{name: "script", typ: TypeScript},
	{name: "stylesheet", typ: TypeStylesheet},
	{name: "object", typ: TypeObject},
	{name: "object-subrequest", typ: TypeObjectSubrequest},
	{name: "image", typ: TypeImage},
	{name: "xmlhttprequest", typ: TypeXmlhttprequest},
	{name: "media", typ: TypeMedia},
	{name: "font", typ: TypeFont},
	{name: "websocket", typ: TypeWebsocket},
	{name: "ping", typ: TypePing},
	{name: "other", typ: TypeOther},
}

// unsupportedOptions are the modifiers which change the meaning of a rule in
// ways this engine cannot honor.  Rules with any of them are rejected.
var unsupportedOptions = map[string]struct{}{
	"csp":           {},
	"redirect":      {},
	"redirect-rule": {},
	"rewrite":       {},
	"replace":       {},
	"removeparam":   {},
	"cookie":        {},
	"header":        {},
	"permissions":   {},
	"sitekey":       {},
}

// Has returns true if all of the options in o2 are in o.
func (o Option) Has(o2 Option) (ok bool) {
	return o&o2 == o2
}

// Count returns the number of options in the set.
func (o Option) Count() (n int) {
	return bits.OnesCount32(uint32(o))
}

// String implements the fmt.Stringer interface for Option.  It returns the
// comma-separated modifier names.
func (o Option) String() (s string) {
	var names []string
	for _, on := range optionNames {
		if o.Has(on.option) {
			names = append(names, on.name)
		}
	}

	return strings.Join(names, ",")
}

// optionByName returns the option with the given modifier name.
func optionByName(name string) (o Option, ok bool) {
	for _, on := range optionNames {
		if on.name == name {
			return on.option, true
		}
	}

	return OptionNone, false
}

// requestTypeByName returns the request type with the given modifier name.
func requestTypeByName(name string) (t RequestType, ok bool) {
	for _, tn := range requestTypeNames {
		if tn.name == name {
			return tn.typ, true
		}
	}

	// Legacy aliases used by older lists.
	switch name {
	case "xhr":
		return TypeXmlhttprequest, true
	case "css":
		return TypeStylesheet, true
	case "frame":
		return TypeSubdocument, true
	}

	return TypeUnknown, false
}
