// Package model holds the whole-program symbol table shared by every file of
// a compile.
package model

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	cerrors "nilscript/internal/core/errors"
)

type Kind int

const (
	KindClass Kind = iota
	KindEnum
	KindGlobalFunction
	KindGlobalConst
	KindType
	KindValue
)

func (k Kind) String() string {
	switch k {
	case KindClass:
		return "class"
	case KindEnum:
		return "enum"
	case KindGlobalFunction:
		return "global function"
	case KindGlobalConst:
		return "global const"
	case KindType:
		return "type"
	case KindValue:
		return "value"
	default:
		return "unknown"
	}
}

// IsValue reports whether entities of this kind exist at runtime.
func (k Kind) IsValue() bool {
	return k != KindType
}

// Location points at the declaring identifier.
type Location struct {
	Path   string
	Line   int
	Column int
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.Path, l.Line, l.Column)
}

// Entity is a named, globally visible declaration.
type Entity interface {
	EntityName() string
	EntityKind() Kind
	Loc() Location
	// fingerprint renders everything other files can observe about the
	// entity. Locations are excluded.
	fingerprint() string
}

// Model is one layer of declarations plus read-only parent layers. Lookups
// check the local layer first, then parents in registration order.
type Model struct {
	mu       sync.RWMutex
	parents  []*Model
	entities map[string]Entity
	order    []string
}

func New(parents ...*Model) *Model {
	return &Model{
		parents:  parents,
		entities: make(map[string]Entity),
	}
}

// Add registers e in the local layer. A name already present locally is a
// duplicate declaration.
func (m *Model) Add(e Entity) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := e.EntityName()
	if prev, ok := m.entities[name]; ok {
		loc := e.Loc()
		issue := cerrors.NewSemanticIssue(cerrors.IssueDuplicate, loc.Line, loc.Column,
			"duplicate declaration of %s %q (previously declared as %s at %s)", e.EntityKind(), name, prev.EntityKind(), prev.Loc())
		issue.File = loc.Path
		return issue
	}
	m.entities[name] = e
	m.order = append(m.order, name)
	return nil
}

// Merge adds every local entity of other, in declaration order. Duplicates
// are returned and skipped.
func (m *Model) Merge(other *Model) []error {
	var errs []error
	for _, e := range other.Entities() {
		if err := m.Add(e); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func (m *Model) Get(name string) (Entity, bool) {
	m.mu.RLock()
	e, ok := m.entities[name]
	m.mu.RUnlock()
	if ok {
		return e, true
	}
	for _, p := range m.parents {
		if e, ok := p.Get(name); ok {
			return e, true
		}
	}
	return nil, false
}

func (m *Model) Class(name string) (*Class, bool) {
	e, ok := m.Get(name)
	c, isClass := e.(*Class)
	return c, ok && isClass
}

func (m *Model) Enum(name string) (*Enum, bool) {
	e, ok := m.Get(name)
	en, isEnum := e.(*Enum)
	return en, ok && isEnum
}

func (m *Model) GlobalFunction(name string) (*GlobalFunction, bool) {
	e, ok := m.Get(name)
	fn, isFn := e.(*GlobalFunction)
	return fn, ok && isFn
}

func (m *Model) GlobalConst(name string) (*GlobalConst, bool) {
	e, ok := m.Get(name)
	c, isConst := e.(*GlobalConst)
	return c, ok && isConst
}

func (m *Model) Type(name string) (*Type, bool) {
	e, ok := m.Get(name)
	t, isType := e.(*Type)
	return t, ok && isType
}

// Entities returns the local layer in declaration order.
func (m *Model) Entities() []Entity {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Entity, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, m.entities[name])
	}
	return out
}

// Len counts local entities.
func (m *Model) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entities)
}

// Fingerprints maps every visible name, parents included, to its
// location-free description.
func (m *Model) Fingerprints() map[string]string {
	out := make(map[string]string)
	m.collect(out)
	return out
}

func (m *Model) collect(out map[string]string) {
	for i := len(m.parents) - 1; i >= 0; i-- {
		m.parents[i].collect(out)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for name, e := range m.entities {
		out[name] = e.fingerprint()
	}
}

// HasGlobalChanges reports whether anything other files can observe differs
// between m and other. It may report changes that do not matter; it never
// misses one that does.
func (m *Model) HasGlobalChanges(other *Model) bool {
	if other == nil {
		return true
	}
	a, b := m.Fingerprints(), other.Fingerprints()
	if len(a) != len(b) {
		return true
	}
	for name, fp := range a {
		if b[name] != fp {
			return true
		}
	}
	return false
}

// ChangedNames lists names whose fingerprints differ, sorted.
func (m *Model) ChangedNames(other *Model) []string {
	a := m.Fingerprints()
	var b map[string]string
	if other != nil {
		b = other.Fingerprints()
	}
	seen := make(map[string]bool)
	var out []string
	for name, fp := range a {
		seen[name] = true
		if b[name] != fp {
			out = append(out, name)
		}
	}
	for name := range b {
		if !seen[name] {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func joinFields(parts ...string) string {
	return strings.Join(parts, "|")
}
