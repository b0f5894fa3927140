package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nilscript/internal/engine/syntax"
)

func TestKind_Namespaces(t *testing.T) {
	cases := []struct {
		kind       Kind
		value, typ bool
	}{
		{Class, true, true},
		{Enum, true, true},
		{Value, true, true},
		{TypeAlias, false, true},
		{Builtin, true, false},
		{Local, true, false},
		{GlobalFunction, true, false},
	}
	for _, c := range cases {
		v, ty := c.kind.Namespaces()
		assert.Equal(t, c.value, v, "value namespace for %d", c.kind)
		assert.Equal(t, c.typ, ty, "type namespace for %d", c.kind)
	}
}

// buildScopes declares every function name, parameter and variable the way
// the builder does.
func buildScopes(t *testing.T, src string) (*Manager, *syntax.Program) {
	t.Helper()
	prog, err := syntax.Parse("scope.ns", src)
	require.NoError(t, err)

	m := NewManager([]string{"console"})
	var stack []syntax.Node
	syntax.Inspect(prog, func(n syntax.Node) bool {
		if n == nil {
			m.ExitNode(stack[len(stack)-1])
			stack = stack[:len(stack)-1]
			return true
		}
		switch x := n.(type) {
		case *syntax.FuncDecl:
			m.Declare(x.Func.Name.Name, Local, x.ID())
		case *syntax.ClassDecl:
			m.Declare(x.Class.Name.Name, Class, x.ID())
		case *syntax.TypeAliasDecl:
			m.Declare(x.Name.Name, TypeAlias, x.ID())
		case *syntax.VarDecl:
			for _, d := range x.List {
				name := d.Target.(*syntax.Ident).Name
				if x.Kind == "var" {
					m.DeclareVar(name, d.ID())
				} else {
					m.Declare(name, Local, d.ID())
				}
			}
		}
		m.EnterNode(n)
		if fn, ok := n.(*syntax.Function); ok {
			for _, p := range fn.Params {
				m.Declare(p.Name.(*syntax.Ident).Name, Param, p.ID())
			}
		}
		stack = append(stack, n)
		return true
	})
	return m, prog
}

func TestManager_DeclarationsAndHoisting(t *testing.T) {
	src := `type Pair = [number, number];
class Pair2 {}
function outer(a) {
  if (a) {
    var hoisted = 1;
    let inner = 2;
  }
}`
	m, prog := buildScopes(t, src)
	m.Finish(nil)

	root := m.Root()
	assert.Nil(t, root.Value("Pair"), "type aliases live only in the type namespace")
	assert.NotNil(t, root.Type("Pair"))
	assert.NotNil(t, root.Value("Pair2"))
	assert.NotNil(t, root.Type("Pair2"))
	assert.Equal(t, Builtin, root.Value("console").Kind)

	fn := prog.Body[2].(*syntax.FuncDecl).Func
	fnScope, ok := m.Scope(fn.ID())
	require.True(t, ok)
	_, ok = fnScope.LocalValue("hoisted")
	assert.True(t, ok, "var hoists to the function scope")
	_, ok = fnScope.LocalValue("inner")
	assert.False(t, ok)
	assert.Equal(t, Param, fnScope.Value("a").Kind)
	assert.NotNil(t, fnScope.Value("outer"))

	block := fn.Body.Body[0].(*syntax.IfStmt).Then
	blockScope, ok := m.Scope(block.ID())
	require.True(t, ok)
	assert.NotNil(t, blockScope.Value("inner"))
	assert.NotNil(t, blockScope.Value("hoisted"))
	assert.Equal(t, 2, m.Len())
}

func TestManager_FinishMergesImportsWithoutShadowingLocals(t *testing.T) {
	m, _ := buildScopes(t, "let Shape = 1;\nfunction f() { let x; }")
	m.Finish(map[string]Kind{"Shape": Class, "Point": Class, "Pair": TypeAlias})

	root := m.Root()
	assert.False(t, root.Value("Shape").Imported, "local declaration wins")
	assert.True(t, root.Type("Shape").Imported, "only the free namespace is filled")
	assert.True(t, root.Value("Point").Imported)
	assert.Nil(t, root.Value("Pair"))
	assert.True(t, root.Type("Pair").Imported)

	// A later compile drops imports that are gone.
	m.Finish(map[string]Kind{"Pair": TypeAlias})
	assert.Nil(t, root.Value("Point"))
	assert.False(t, root.Value("Shape").Imported)
}

func TestManager_ReplayFindsMemoizedTables(t *testing.T) {
	src := "function f(p) { { let q = p; } }"
	m, prog := buildScopes(t, src)
	m.Finish(map[string]Kind{"Imported": Value})
	m.Reset()

	var seen []string
	var stack []syntax.Node
	syntax.Inspect(prog, func(n syntax.Node) bool {
		if n == nil {
			m.ExitNode(stack[len(stack)-1])
			stack = stack[:len(stack)-1]
			return true
		}
		m.ReenterNode(n)
		stack = append(stack, n)
		if id, ok := n.(*syntax.Ident); ok && id.Name == "p" {
			if b := m.Value("p"); b != nil {
				seen = append(seen, b.Name)
			}
			assert.True(t, m.Value("Imported").Imported)
		}
		return true
	})
	assert.Equal(t, []string{"p", "p"}, seen)
	assert.Same(t, m.Root(), m.Current())
}

func TestManager_UnbalancedExitPanics(t *testing.T) {
	prog, err := syntax.Parse("x.ns", "while (x) {}")
	require.NoError(t, err)
	m := NewManager(nil)
	assert.Panics(t, func() { m.ExitNode(prog.Body[0]) })
}
