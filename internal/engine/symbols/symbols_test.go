package symbols

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "nilscript/internal/core/errors"
)

func TestFuncIdentifier_RoundTrip(t *testing.T) {
	names := []FuncName{
		{Base: "move", Labels: []string{"to"}},
		{Base: "move", Labels: []string{"to", ""}},
		{Base: "draw_rect", Labels: []string{"in_frame", "$color"}},
		{Base: "$", Labels: []string{"_", "$$"}},
		{Base: "init", Labels: []string{"", "", "name"}},
		{Base: "plain"},
		{Base: "trailing", Labels: []string{""}},
	}
	for _, f := range names {
		t.Run(f.Base, func(t *testing.T) {
			id := ToFuncIdentifier(f)
			got, ok := FromFuncIdentifier(id)
			require.True(t, ok, "identifier %q did not parse", id)
			assert.True(t, f.Equal(got), "round trip of %q gave %#v", id, got)
		})
	}
}

func TestFuncIdentifier_Format(t *testing.T) {
	assert.Equal(t, "N$f_move_to_", ToFuncIdentifier(FuncName{Base: "move", Labels: []string{"to", ""}}))
	assert.Equal(t, "N$f_a$_b_c$$", ToFuncIdentifier(FuncName{Base: "a_b", Labels: []string{"c$"}}))

	_, ok := FromFuncIdentifier("move")
	assert.False(t, ok)
	_, ok = FromFuncIdentifier("N$f_bad$")
	assert.False(t, ok)
}

func TestFuncName_Identifier(t *testing.T) {
	assert.Equal(t, "add", FuncName{Base: "add", Labels: []string{"", ""}}.Identifier())
	assert.Equal(t, "N$f_add__to", FuncName{Base: "add", Labels: []string{"", "to"}}.Identifier())
}

func TestFuncString_RoundTrip(t *testing.T) {
	names := []FuncName{
		{Base: "move", Labels: []string{"to", ""}},
		{Base: "reset"},
		{Base: "init", Labels: []string{"name", "age"}},
		{Base: "x", Labels: []string{""}},
	}
	for _, f := range names {
		s := ToFuncString(f)
		got, ok := FromFuncString(s)
		require.True(t, ok, "selector %q did not parse", s)
		assert.True(t, f.Equal(got), "round trip of %q gave %#v", s, got)
	}

	assert.Equal(t, "move(to:_:)", ToFuncString(FuncName{Base: "move", Labels: []string{"to", ""}}))

	underscore, ok := FromFuncString(ToFuncString(FuncName{Base: "pad", Labels: []string{"_"}}))
	require.True(t, ok)
	assert.Equal(t, []string{""}, underscore.Labels)

	for _, bad := range []string{"", "(a:)", "a(b)", "a(b:"} {
		_, ok := FromFuncString(bad)
		assert.False(t, ok, "expected %q to be rejected", bad)
	}
}

func TestSqueezer_Bijective(t *testing.T) {
	s := NewSqueezer(Options{})
	seen := make(map[string]string)
	for i := 0; i < 500; i++ {
		name := fmt.Sprintf("symbol%d", i)
		short, err := s.Squeeze(name)
		require.NoError(t, err)
		if prev, ok := seen[short]; ok {
			t.Fatalf("short name %q reused for %q and %q", short, prev, name)
		}
		seen[short] = name

		again, err := s.Squeeze(name)
		require.NoError(t, err)
		assert.Equal(t, short, again)

		long, ok := s.Unsqueeze(short)
		require.True(t, ok)
		assert.Equal(t, name, long)
	}
}

func TestSqueezer_SkipsBuiltinsAndParents(t *testing.T) {
	parent := NewSqueezer(Options{})
	p0, err := parent.Squeeze("fromParent")
	require.NoError(t, err)
	assert.Equal(t, "N$0", p0)

	child := NewSqueezer(Options{Builtins: []string{"N$1", "keepMe"}}, parent)

	inherited, err := child.Squeeze("fromParent")
	require.NoError(t, err)
	assert.Equal(t, p0, inherited)

	kept, err := child.Squeeze("keepMe")
	require.NoError(t, err)
	assert.Equal(t, "keepMe", kept)

	fresh, err := child.Squeeze("other")
	require.NoError(t, err)
	assert.Equal(t, "N$2", fresh, "N$0 is claimed by the parent and N$1 is a builtin")

	assert.NotContains(t, parent.Symbols(), fresh)
	assert.Contains(t, child.AllSymbols(), p0)
}

func TestSqueezer_Exhaustion(t *testing.T) {
	s := NewSqueezer(Options{StartIndex: 5, EndIndex: 6})
	_, err := s.Squeeze("a")
	require.NoError(t, err)
	_, err = s.Squeeze("b")
	require.NoError(t, err)
	_, err = s.Squeeze("c")
	require.Error(t, err)
	issue, ok := cerrors.AsIssue(err)
	require.True(t, ok)
	assert.Equal(t, cerrors.IssueSqueezerExhausted, issue.Code)
}

func TestSqueezer_FromSymbolsContinuesCounter(t *testing.T) {
	seed := FromSymbols(map[string]string{"N$0": "alpha", "N$a": "beta"})
	child := NewSqueezer(Options{}, seed)

	short, err := child.Squeeze("beta")
	require.NoError(t, err)
	assert.Equal(t, "N$a", short)

	next, err := child.Squeeze("gamma")
	require.NoError(t, err)
	assert.Equal(t, "N$b", next)
}

func TestSqueezer_Symbolicate(t *testing.T) {
	s := NewSqueezer(Options{})
	short, err := s.Squeeze("N$f_move_to")
	require.NoError(t, err)

	text := fmt.Sprintf("Property '%s' does not exist on N$$_ or N$f_add__to", short)
	assert.Equal(t, "Property 'move(to:)' does not exist on N$$_ or add(_:to:)", s.Symbolicate(text))
	assert.Equal(t, "call add(_:to:)", SymbolicateText("call N$f_add__to"))
}
