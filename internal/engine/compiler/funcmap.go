package compiler

import (
	"nilscript/internal/engine/builder"
	"nilscript/internal/engine/syntax"
)

type funcFrame struct {
	node syntax.Node
	// class is set for class frames, signature for named functions.
	class     string
	signature string
}

// funcMapper records, per line, which named function the source is in.
type funcMapper struct {
	lines   *syntax.LineIndex
	notes   *builder.Annotations
	frames  []funcFrame
	stack   []syntax.Node
	entries []FuncMapEntry
}

func functionMap(prog *syntax.Program, notes *builder.Annotations) []FuncMapEntry {
	m := &funcMapper{lines: prog.Lines, notes: notes}
	syntax.Walk(m, prog)
	return m.entries
}

func (m *funcMapper) Visit(n syntax.Node) syntax.Visitor {
	if n == nil {
		top := m.stack[len(m.stack)-1]
		m.stack = m.stack[:len(m.stack)-1]
		if len(m.frames) > 0 && m.frames[len(m.frames)-1].node == top {
			frame := m.frames[len(m.frames)-1]
			m.frames = m.frames[:len(m.frames)-1]
			if frame.signature != "" {
				m.mark(m.lines.Line(top.EndPos())+1, m.current())
			}
		}
		return nil
	}
	m.stack = append(m.stack, n)
	if frame, ok := m.frame(n); ok {
		m.frames = append(m.frames, frame)
		if frame.signature != "" {
			m.mark(m.lines.Line(n.Pos()), frame.signature)
		}
	}
	return m
}

func (m *funcMapper) frame(n syntax.Node) (funcFrame, bool) {
	switch x := n.(type) {
	case *syntax.Class:
		name := ""
		if x.Name != nil {
			name = x.Name.Name
		}
		return funcFrame{node: n, class: name}, true
	case *syntax.FuncMember:
		return funcFrame{node: n, signature: m.member(m.selector(x.Func))}, true
	case *syntax.InitMember:
		return funcFrame{node: n, signature: m.member(m.selector(x.Func))}, true
	case *syntax.MethodMember:
		if x.Kind == syntax.MethodConstructor {
			return funcFrame{node: n, signature: m.member("constructor")}, true
		}
		if id, ok := x.Key.(*syntax.Ident); ok && !x.Computed {
			return funcFrame{node: n, signature: m.member(id.Name)}, true
		}
	case *syntax.GlobalFuncDecl:
		return funcFrame{node: n, signature: m.selector(x.Func)}, true
	case *syntax.FuncDecl:
		if x.Func.Name != nil {
			return funcFrame{node: n, signature: x.Func.Name.Name}, true
		}
	}
	return funcFrame{}, false
}

func (m *funcMapper) selector(fn *syntax.Function) string {
	if name, ok := m.notes.Funcs[fn.ID()]; ok {
		return name.String()
	}
	if fn.Name != nil {
		return fn.Name.Name
	}
	return ""
}

func (m *funcMapper) member(name string) string {
	for i := len(m.frames) - 1; i >= 0; i-- {
		if f := m.frames[i]; f.signature == "" && f.node != nil {
			if _, ok := f.node.(*syntax.Class); ok {
				if f.class == "" {
					return name
				}
				return f.class + "." + name
			}
		}
	}
	return name
}

// current is the innermost enclosing signature, or nil at top level.
func (m *funcMapper) current() any {
	for i := len(m.frames) - 1; i >= 0; i-- {
		if s := m.frames[i].signature; s != "" {
			return s
		}
	}
	return nil
}

// mark records a signature change at line, replacing an earlier change on
// the same line.
func (m *funcMapper) mark(line int, signature any) {
	if n := len(m.entries); n > 0 && m.entries[n-1][0] == line {
		m.entries[n-1][1] = signature
		return
	}
	m.entries = append(m.entries, FuncMapEntry{line, signature})
}
