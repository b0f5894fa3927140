// Package scope tracks lexical declarations in two namespaces, values and
// types, as a persisted tree keyed by syntax node ids.
package scope

import (
	"nilscript/internal/engine/syntax"
)

type Kind int

const (
	Local Kind = iota
	Param
	Class
	Enum
	TypeAlias
	GlobalFunction
	GlobalConst
	Builtin
	// Value is an exported binding contributed by another file.
	Value
)

// Namespaces reports which tables a declaration of kind k occupies.
func (k Kind) Namespaces() (value, typ bool) {
	switch k {
	case Class, Enum, Value:
		return true, true
	case TypeAlias:
		return false, true
	default:
		return true, false
	}
}

// IsLocal reports whether the binding shadows program-wide names.
func (k Kind) IsLocal() bool {
	return k == Local || k == Param
}

type Binding struct {
	Name string
	Kind Kind
	// Node is the declaring node, zero for builtins and imports.
	Node syntax.NodeID
	// Imported marks names resolved from another file.
	Imported bool
}

// Scope is one lexical level.
type Scope struct {
	Node     syntax.NodeID
	Parent   *Scope
	Children []*Scope
	// Function scopes receive hoisted var declarations.
	Function bool

	values map[string]*Binding
	types  map[string]*Binding

	effValues map[string]*Binding
	effTypes  map[string]*Binding
}

func newScope(node syntax.NodeID, parent *Scope, function bool) *Scope {
	s := &Scope{
		Node:     node,
		Parent:   parent,
		Function: function,
		values:   make(map[string]*Binding),
		types:    make(map[string]*Binding),
	}
	if parent != nil {
		parent.Children = append(parent.Children, s)
	}
	return s
}

// LocalValue looks only at declarations made directly in s.
func (s *Scope) LocalValue(name string) (*Binding, bool) {
	b, ok := s.values[name]
	return b, ok
}

func (s *Scope) LocalType(name string) (*Binding, bool) {
	b, ok := s.types[name]
	return b, ok
}

// Value resolves name in the value namespace.
func (s *Scope) Value(name string) *Binding {
	if s.effValues != nil {
		return s.effValues[name]
	}
	for cur := s; cur != nil; cur = cur.Parent {
		if b, ok := cur.values[name]; ok {
			return b
		}
	}
	return nil
}

// Type resolves name in the type namespace.
func (s *Scope) Type(name string) *Binding {
	if s.effTypes != nil {
		return s.effTypes[name]
	}
	for cur := s; cur != nil; cur = cur.Parent {
		if b, ok := cur.types[name]; ok {
			return b
		}
	}
	return nil
}

func (s *Scope) declare(b *Binding) {
	value, typ := b.Kind.Namespaces()
	if value {
		s.values[b.Name] = b
	}
	if typ {
		s.types[b.Name] = b
	}
}

// propagate computes effective tables as parent ∪ local, local winning.
func (s *Scope) propagate(parentValues, parentTypes map[string]*Binding) {
	s.effValues = union(parentValues, s.values)
	s.effTypes = union(parentTypes, s.types)
	for _, c := range s.Children {
		c.propagate(s.effValues, s.effTypes)
	}
}

func union(parent, local map[string]*Binding) map[string]*Binding {
	out := make(map[string]*Binding, len(parent)+len(local))
	for k, v := range parent {
		out[k] = v
	}
	for k, v := range local {
		out[k] = v
	}
	return out
}

// StartsScope reports whether n opens a lexical scope. Function bodies share
// the scope of their function.
func StartsScope(n syntax.Node) bool {
	switch x := n.(type) {
	case *syntax.Function:
		return true
	case *syntax.BlockStmt:
		return !x.FunctionBody
	case *syntax.ForStmt, *syntax.ForInStmt, *syntax.WhileStmt, *syntax.DoWhileStmt,
		*syntax.SwitchStmt, *syntax.CatchClause:
		return true
	}
	return false
}
