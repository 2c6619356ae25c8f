// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package enum

import "strings"

// Filter is a bitmask narrowing which packages a query considers.
type Filter uint32

// FilterNone matches every package.
const FilterNone Filter = 0

const (
	FilterInstalled Filter = 1 << iota
	FilterNotInstalled
	FilterDevel
	FilterNotDevel
	FilterGUI
	FilterNotGUI
	FilterFree
	FilterNotFree
	FilterVisible
	FilterNotVisible
	FilterSupported
	FilterNotSupported
	FilterBasename
	FilterNotBasename
	FilterNewest
	FilterNotNewest
)

// FilterUnknown is set when decoding met a token outside the table.
const FilterUnknown Filter = 1 << 31

const filterSeparator = ";"

var filterTokens = []struct {
	bit Filter
	tok string
}{
	{FilterInstalled, "installed"},
	{FilterNotInstalled, "~installed"},
	{FilterDevel, "devel"},
	{FilterNotDevel, "~devel"},
	{FilterGUI, "gui"},
	{FilterNotGUI, "~gui"},
	{FilterFree, "free"},
	{FilterNotFree, "~free"},
	{FilterVisible, "visible"},
	{FilterNotVisible, "~visible"},
	{FilterSupported, "supported"},
	{FilterNotSupported, "~supported"},
	{FilterBasename, "basename"},
	{FilterNotBasename, "~basename"},
	{FilterNewest, "newest"},
	{FilterNotNewest, "~newest"},
	{FilterUnknown, "unknown"},
}

// String renders the mask as the daemon expects it: tokens joined by ';' in
// bit order, or "none" for an empty mask.
func (f Filter) String() string {
	if f == FilterNone {
		return "none"
	}
	parts := make([]string, 0, 4)
	for _, t := range filterTokens {
		if f&t.bit != 0 {
			parts = append(parts, t.tok)
		}
	}
	return strings.Join(parts, filterSeparator)
}

// Has reports whether every bit of want is set.
func (f Filter) Has(want Filter) bool { return f&want == want }

// ParseFilter decodes a ';'-separated filter list. Unrecognised tokens set
// FilterUnknown rather than being dropped silently.
func ParseFilter(s string) Filter {
	s = strings.TrimSpace(s)
	if s == "" || s == "none" {
		return FilterNone
	}
	var f Filter
	for _, tok := range strings.Split(s, filterSeparator) {
		tok = strings.TrimSpace(tok)
		if tok == "" || tok == "none" {
			continue
		}
		f |= filterBit(tok)
	}
	return f
}

func filterBit(tok string) Filter {
	for _, t := range filterTokens {
		if t.tok == tok {
			return t.bit
		}
	}
	return FilterUnknown
}
