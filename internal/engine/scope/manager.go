package scope

import (
	"fmt"

	"nilscript/internal/engine/syntax"
)

// Manager owns the scope tree of one file. The build pass creates scopes
// with EnterNode; the generate pass replays them with Reset and ReenterNode.
type Manager struct {
	root     *Scope
	byNode   map[syntax.NodeID]*Scope
	stack    []*Scope
	finished bool
}

// NewManager creates a tree whose root holds the runtime builtins.
func NewManager(builtins []string) *Manager {
	root := newScope(0, nil, true)
	for _, name := range builtins {
		root.declare(&Binding{Name: name, Kind: Builtin})
	}
	return &Manager{
		root:   root,
		byNode: make(map[syntax.NodeID]*Scope),
		stack:  []*Scope{root},
	}
}

func (m *Manager) Root() *Scope {
	return m.root
}

func (m *Manager) Current() *Scope {
	return m.stack[len(m.stack)-1]
}

// Scope returns the scope opened by node id.
func (m *Manager) Scope(id syntax.NodeID) (*Scope, bool) {
	s, ok := m.byNode[id]
	return s, ok
}

// Len counts non-root scopes.
func (m *Manager) Len() int {
	return len(m.byNode)
}

// EnterNode opens a new scope when n starts one and reports whether it did.
func (m *Manager) EnterNode(n syntax.Node) bool {
	if !StartsScope(n) {
		return false
	}
	_, isFunc := n.(*syntax.Function)
	s := newScope(n.ID(), m.Current(), isFunc)
	m.byNode[n.ID()] = s
	m.stack = append(m.stack, s)
	return true
}

// ExitNode closes the scope opened for n, if any.
func (m *Manager) ExitNode(n syntax.Node) {
	if !StartsScope(n) {
		return
	}
	if len(m.stack) <= 1 || m.Current().Node != n.ID() {
		panic(fmt.Sprintf("scope: unbalanced exit for node %d", n.ID()))
	}
	m.stack = m.stack[:len(m.stack)-1]
}

// Declare adds a binding to the current scope.
func (m *Manager) Declare(name string, kind Kind, node syntax.NodeID) *Binding {
	b := &Binding{Name: name, Kind: kind, Node: node}
	m.Current().declare(b)
	return b
}

// DeclareVar adds a var binding to the nearest function scope.
func (m *Manager) DeclareVar(name string, node syntax.NodeID) *Binding {
	b := &Binding{Name: name, Kind: Local, Node: node}
	for i := len(m.stack) - 1; i >= 0; i-- {
		if m.stack[i].Function {
			m.stack[i].declare(b)
			return b
		}
	}
	m.root.declare(b)
	return b
}

// Finish merges resolved imports into the root, then computes and memoizes
// every scope's effective tables. Imports never shadow local declarations.
// Finish may be called again after a recompile resolves imports anew.
func (m *Manager) Finish(imports map[string]Kind) {
	for name, b := range m.root.values {
		if b.Imported {
			delete(m.root.values, name)
		}
	}
	for name, b := range m.root.types {
		if b.Imported {
			delete(m.root.types, name)
		}
	}
	for name, kind := range imports {
		b := &Binding{Name: name, Kind: kind, Imported: true}
		value, typ := kind.Namespaces()
		if existing, ok := m.root.values[name]; value && (!ok || existing.Imported) {
			m.root.values[name] = b
		}
		if existing, ok := m.root.types[name]; typ && (!ok || existing.Imported) {
			m.root.types[name] = b
		}
	}
	m.root.propagate(nil, nil)
	m.finished = true
}

// Finished reports whether effective tables are available.
func (m *Manager) Finished() bool {
	return m.finished
}

// Reset rewinds the stack to the root for another traversal.
func (m *Manager) Reset() {
	m.stack = m.stack[:1]
}

// ReenterNode pushes the scope recorded for n during the build pass.
func (m *Manager) ReenterNode(n syntax.Node) bool {
	if !StartsScope(n) {
		return false
	}
	s, ok := m.byNode[n.ID()]
	if !ok {
		panic(fmt.Sprintf("scope: node %d was not entered during build", n.ID()))
	}
	m.stack = append(m.stack, s)
	return true
}

// Value resolves name from the current scope.
func (m *Manager) Value(name string) *Binding {
	return m.Current().Value(name)
}

// Type resolves name in the type namespace from the current scope.
func (m *Manager) Type(name string) *Binding {
	return m.Current().Type(name)
}
