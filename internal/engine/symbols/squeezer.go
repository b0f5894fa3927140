package symbols

import (
	"regexp"
	"sort"
	"sync"

	cerrors "nilscript/internal/core/errors"
)

const alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// SqueezedPrefix starts every generated short name.
const SqueezedPrefix = ReservedPrefix

type Options struct {
	StartIndex int
	// EndIndex is the last usable counter value; zero means unbounded.
	EndIndex int
	// Builtins are never squeezed and never produced as short names.
	Builtins []string
}

// Squeezer maps long identifiers to short ones, bijectively, within itself
// and its parents. Parents are read-only.
type Squeezer struct {
	mu        sync.Mutex
	parents   []*Squeezer
	toShort   map[string]string
	fromShort map[string]string
	builtins  map[string]bool
	index     int
	end       int
}

func NewSqueezer(opts Options, parents ...*Squeezer) *Squeezer {
	s := &Squeezer{
		parents:   parents,
		toShort:   make(map[string]string),
		fromShort: make(map[string]string),
		builtins:  make(map[string]bool, len(opts.Builtins)),
		index:     opts.StartIndex,
		end:       opts.EndIndex,
	}
	for _, b := range opts.Builtins {
		s.builtins[b] = true
	}
	for _, p := range parents {
		if idx := p.Index(); idx > s.index {
			s.index = idx
		}
	}
	return s
}

// FromSymbols rebuilds a read-only squeezer from a short→original table,
// typically loaded from the symbol store, for use as a parent.
func FromSymbols(symbols map[string]string) *Squeezer {
	s := NewSqueezer(Options{})
	for short, long := range symbols {
		s.toShort[long] = short
		s.fromShort[short] = long
	}
	s.index = len(symbols)
	for short := range symbols {
		if n, ok := decode(short); ok && n+1 > s.index {
			s.index = n + 1
		}
	}
	return s
}

// Index is the next counter value this squeezer would try.
func (s *Squeezer) Index() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// Squeeze returns the short name for name, allocating one if needed.
func (s *Squeezer) Squeeze(name string) (string, error) {
	if short, ok := s.lookupInherited(name); ok {
		return short, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.builtins[name] {
		return name, nil
	}
	if short, ok := s.toShort[name]; ok {
		return short, nil
	}
	for {
		if s.end > 0 && s.index > s.end {
			return "", cerrors.NewSemanticIssue(cerrors.IssueSqueezerExhausted, 0, 0,
				"squeezer reached end index %d while squeezing %q", s.end, name)
		}
		short := SqueezedPrefix + encode(s.index)
		s.index++
		if s.builtins[short] || s.claimed(short) {
			continue
		}
		s.toShort[name] = short
		s.fromShort[short] = name
		return short, nil
	}
}

// Lookup returns an existing short name without allocating.
func (s *Squeezer) Lookup(name string) (string, bool) {
	if short, ok := s.lookupInherited(name); ok {
		return short, true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	short, ok := s.toShort[name]
	return short, ok
}

// Unsqueeze returns the long name for short.
func (s *Squeezer) Unsqueeze(short string) (string, bool) {
	s.mu.Lock()
	long, ok := s.fromShort[short]
	s.mu.Unlock()
	if ok {
		return long, true
	}
	for _, p := range s.parents {
		if long, ok := p.Unsqueeze(short); ok {
			return long, true
		}
	}
	return "", false
}

// Symbols returns the short→original pairs owned by this squeezer.
func (s *Squeezer) Symbols() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.fromShort))
	for k, v := range s.fromShort {
		out[k] = v
	}
	return out
}

// AllSymbols includes inherited pairs; local pairs win.
func (s *Squeezer) AllSymbols() map[string]string {
	out := make(map[string]string)
	for i := len(s.parents) - 1; i >= 0; i-- {
		for k, v := range s.parents[i].AllSymbols() {
			out[k] = v
		}
	}
	for k, v := range s.Symbols() {
		out[k] = v
	}
	return out
}

// Names lists the original names owned by this squeezer, sorted.
func (s *Squeezer) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.toShort))
	for k := range s.toShort {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

var generatedIdent = regexp.MustCompile(`N\$[A-Za-z0-9_$]+`)

// Symbolicate rewrites squeezed and mangled identifiers in text to their
// readable forms.
func (s *Squeezer) Symbolicate(text string) string {
	return generatedIdent.ReplaceAllStringFunc(text, func(m string) string {
		if s != nil {
			if long, ok := s.Unsqueeze(m); ok {
				m = long
			}
		}
		return ReadableIdentifier(m)
	})
}

// SymbolicateText rewrites mangled identifiers only.
func SymbolicateText(text string) string {
	var s *Squeezer
	return s.Symbolicate(text)
}

func (s *Squeezer) lookupInherited(name string) (string, bool) {
	for _, p := range s.parents {
		if short, ok := p.Lookup(name); ok {
			return short, true
		}
	}
	return "", false
}

// claimed must be called with s.mu held.
func (s *Squeezer) claimed(short string) bool {
	if _, ok := s.fromShort[short]; ok {
		return true
	}
	for _, p := range s.parents {
		if _, ok := p.Unsqueeze(short); ok {
			return true
		}
		if p.isBuiltin(short) {
			return true
		}
	}
	return false
}

func (s *Squeezer) isBuiltin(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.builtins[name]
}

func encode(n int) string {
	if n == 0 {
		return alphabet[:1]
	}
	var buf []byte
	for n > 0 {
		buf = append(buf, alphabet[n%len(alphabet)])
		n /= len(alphabet)
	}
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return string(buf)
}

func decode(short string) (int, bool) {
	if len(short) <= len(SqueezedPrefix) || short[:len(SqueezedPrefix)] != SqueezedPrefix {
		return 0, false
	}
	n := 0
	for _, c := range short[len(SqueezedPrefix):] {
		d := -1
		for i := 0; i < len(alphabet); i++ {
			if rune(alphabet[i]) == c {
				d = i
				break
			}
		}
		if d < 0 {
			return 0, false
		}
		n = n*len(alphabet) + d
	}
	return n, true
}
