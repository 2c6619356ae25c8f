// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package enum maps the daemon's wire text tokens to typed enums.
//
// Every enum has exactly one table. Decoding is total: a token that is not in
// the table decodes to the enum's Unknown value instead of failing, so callers
// past the protocol boundary never inspect raw text.
package enum

import "fmt"

type table[T ~int] struct {
	name    string
	unknown T
	text    map[T]string
	value   map[string]T
	order   []T
}

func newTable[T ~int](name string, unknown T, entries []entry[T]) table[T] {
	t := table[T]{
		name:    name,
		unknown: unknown,
		text:    make(map[T]string, len(entries)),
		value:   make(map[string]T, len(entries)),
		order:   make([]T, 0, len(entries)),
	}
	for _, e := range entries {
		if _, dup := t.text[e.v]; dup {
			panic(fmt.Sprintf("enum %s: duplicate value %d", name, e.v))
		}
		if _, dup := t.value[e.s]; dup {
			panic(fmt.Sprintf("enum %s: duplicate token %q", name, e.s))
		}
		t.text[e.v] = e.s
		t.value[e.s] = e.v
		t.order = append(t.order, e.v)
	}
	if _, ok := t.text[unknown]; !ok {
		panic(fmt.Sprintf("enum %s: unknown sentinel has no token", name))
	}
	return t
}

type entry[T ~int] struct {
	v T
	s string
}

func (t table[T]) toText(v T) string {
	if s, ok := t.text[v]; ok {
		return s
	}
	return t.text[t.unknown]
}

func (t table[T]) fromText(s string) T {
	if v, ok := t.value[s]; ok {
		return v
	}
	return t.unknown
}

func (t table[T]) values() []T {
	return append([]T(nil), t.order...)
}
