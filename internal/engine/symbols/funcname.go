// Package symbols converts between selector names, mangled identifiers and
// squeezed short names.
package symbols

import (
	"strings"
)

// FuncPrefix marks a mangled function identifier.
const FuncPrefix = "N$f_"

// ReservedPrefix is claimed by generated code; user identifiers may not use it.
const ReservedPrefix = "N$"

// FuncName is a function base name plus its parameter labels. An empty
// label is written "_" in selector strings, so a literal "_" label cannot
// round trip; source labels spelled "_" are stored as the empty label.
type FuncName struct {
	Base   string
	Labels []string
}

// HasLabels reports whether any label is non-empty. Only labeled functions
// are mangled.
func (f FuncName) HasLabels() bool {
	for _, l := range f.Labels {
		if l != "" {
			return true
		}
	}
	return false
}

// Identifier is the name generated code uses for f.
func (f FuncName) Identifier() string {
	if !f.HasLabels() {
		return f.Base
	}
	return ToFuncIdentifier(f)
}

func (f FuncName) String() string {
	return ToFuncString(f)
}

func (f FuncName) Equal(o FuncName) bool {
	if f.Base != o.Base || len(f.Labels) != len(o.Labels) {
		return false
	}
	for i := range f.Labels {
		if f.Labels[i] != o.Labels[i] {
			return false
		}
	}
	return true
}

// ToFuncIdentifier mangles f into a JavaScript identifier:
// N$f_ + escaped base + ("_" + escaped label)*.
func ToFuncIdentifier(f FuncName) string {
	var b strings.Builder
	b.WriteString(FuncPrefix)
	writeEscaped(&b, f.Base)
	for _, l := range f.Labels {
		b.WriteByte('_')
		writeEscaped(&b, l)
	}
	return b.String()
}

// FromFuncIdentifier reverses ToFuncIdentifier.
func FromFuncIdentifier(s string) (FuncName, bool) {
	if !strings.HasPrefix(s, FuncPrefix) {
		return FuncName{}, false
	}
	rest := s[len(FuncPrefix):]

	var segments []string
	var cur strings.Builder
	for i := 0; i < len(rest); i++ {
		c := rest[i]
		switch c {
		case '$':
			if i+1 >= len(rest) {
				return FuncName{}, false
			}
			next := rest[i+1]
			if next != '$' && next != '_' {
				return FuncName{}, false
			}
			cur.WriteByte(next)
			i++
		case '_':
			segments = append(segments, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	segments = append(segments, cur.String())

	f := FuncName{Base: segments[0]}
	if len(segments) > 1 {
		f.Labels = segments[1:]
	}
	return f, true
}

// ToFuncString renders the human readable selector, e.g. move(to:_:).
// Labels "" and "_" render the same; FromFuncString returns "".
func ToFuncString(f FuncName) string {
	if len(f.Labels) == 0 {
		return f.Base
	}
	var b strings.Builder
	b.WriteString(f.Base)
	b.WriteByte('(')
	for _, l := range f.Labels {
		if l == "" {
			b.WriteByte('_')
		} else {
			b.WriteString(l)
		}
		b.WriteByte(':')
	}
	b.WriteByte(')')
	return b.String()
}

// FromFuncString parses a selector rendered by ToFuncString.
func FromFuncString(s string) (FuncName, bool) {
	open := strings.IndexByte(s, '(')
	if open < 0 {
		if s == "" || strings.ContainsAny(s, "):") {
			return FuncName{}, false
		}
		return FuncName{Base: s}, true
	}
	if !strings.HasSuffix(s, ")") || open == 0 {
		return FuncName{}, false
	}
	f := FuncName{Base: s[:open]}
	inner := s[open+1 : len(s)-1]
	if inner == "" || !strings.HasSuffix(inner, ":") {
		return FuncName{}, false
	}
	for _, part := range strings.Split(strings.TrimSuffix(inner, ":"), ":") {
		if part == "_" {
			part = ""
		}
		if strings.ContainsAny(part, "()") {
			return FuncName{}, false
		}
		f.Labels = append(f.Labels, part)
	}
	return f, true
}

// ReadableIdentifier maps a mangled identifier to its selector string and
// leaves anything else untouched.
func ReadableIdentifier(s string) string {
	if f, ok := FromFuncIdentifier(s); ok {
		return ToFuncString(f)
	}
	return s
}

func writeEscaped(b *strings.Builder, s string) {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '_':
			b.WriteString("$_")
		case '$':
			b.WriteString("$$")
		default:
			b.WriteByte(s[i])
		}
	}
}
