package model

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "nilscript/internal/core/errors"
	"nilscript/internal/engine/symbols"
)

func TestModel_AddRejectsDuplicates(t *testing.T) {
	m := New()
	require.NoError(t, m.Add(&Class{Name: "Shape", Location: Location{Path: "a.ns", Line: 1, Column: 7}}))

	err := m.Add(&Enum{Name: "Shape", Location: Location{Path: "b.ns", Line: 4, Column: 6}})
	require.Error(t, err)
	issue, ok := cerrors.AsIssue(err)
	require.True(t, ok)
	assert.Equal(t, cerrors.IssueDuplicate, issue.Code)
	assert.Equal(t, cerrors.KindSemantic, issue.Kind)
	assert.Equal(t, "b.ns", issue.File)
	assert.Equal(t, 4, issue.Line)
	assert.Contains(t, issue.Message, "a.ns:1:7")
}

func TestModel_LayeredLookup(t *testing.T) {
	base := New()
	require.NoError(t, base.Add(&Enum{Name: "Color", Members: []EnumMember{{Name: "Red", Raw: "0", Numeric: true}}}))
	require.NoError(t, base.Add(&GlobalConst{Name: "LIMIT", Raw: "10"}))

	other := New()
	require.NoError(t, other.Add(&GlobalConst{Name: "LIMIT", Raw: "20"}))

	child := New(base, other)
	// A local name may shadow a parent's.
	require.NoError(t, child.Add(&Class{Name: "Color"}))

	_, isClass := child.Class("Color")
	assert.True(t, isClass)
	_, isEnum := child.Enum("Color")
	assert.False(t, isEnum)

	limit, ok := child.GlobalConst("LIMIT")
	require.True(t, ok)
	assert.Equal(t, "10", limit.Raw, "parents are consulted in registration order")

	_, ok = child.Get("missing")
	assert.False(t, ok)
	assert.Equal(t, 1, child.Len())
	assert.Equal(t, 2, base.Len(), "parents are never written")
}

func TestModel_MergeKeepsOrderAndReportsDuplicates(t *testing.T) {
	a := New()
	require.NoError(t, a.Add(&Class{Name: "A"}))
	require.NoError(t, a.Add(&Type{Name: "Pair"}))

	b := New()
	require.NoError(t, b.Add(&Class{Name: "B"}))
	require.NoError(t, b.Add(&Type{Name: "Pair", Location: Location{Path: "b.ns", Line: 2, Column: 6}}))

	whole := New()
	assert.Empty(t, whole.Merge(a))
	errs := whole.Merge(b)
	require.Len(t, errs, 1)

	var names []string
	for _, e := range whole.Entities() {
		names = append(names, e.EntityName())
	}
	if diff := cmp.Diff([]string{"A", "Pair", "B"}, names); diff != "" {
		t.Errorf("entity order mismatch (-want +got):\n%s", diff)
	}
}

func TestModel_HasGlobalChanges(t *testing.T) {
	build := func(redValue string, line int) *Model {
		m := New()
		_ = m.Add(&Enum{Name: "Color", Members: []EnumMember{{Name: "Red", Raw: redValue, Numeric: true}}, Location: Location{Path: "c.ns", Line: line}})
		_ = m.Add(&Class{
			Name:  "Point",
			Props: []Prop{{Name: "x", Type: "number"}},
			Funcs: []symbols.FuncName{{Base: "move", Labels: []string{"to"}}},
		})
		return m
	}

	assert.False(t, build("0", 1).HasGlobalChanges(build("0", 1)))
	assert.False(t, build("0", 1).HasGlobalChanges(build("0", 9)), "locations are not globally visible")
	assert.True(t, build("0", 1).HasGlobalChanges(build("1", 1)))
	assert.True(t, build("0", 1).HasGlobalChanges(nil))

	grown := build("0", 1)
	require.NoError(t, grown.Add(&GlobalConst{Name: "DEBUG", Raw: "true"}))
	assert.True(t, build("0", 1).HasGlobalChanges(grown))
	assert.Equal(t, []string{"DEBUG"}, build("0", 1).ChangedNames(grown))

	renamed := New()
	_ = renamed.Add(&Enum{Name: "Color", Members: []EnumMember{{Name: "Red", Raw: "0", Numeric: true}}})
	_ = renamed.Add(&Class{Name: "Point", Props: []Prop{{Name: "x", Type: "number", Readonly: true}}, Funcs: []symbols.FuncName{{Base: "move", Labels: []string{"to"}}}})
	assert.True(t, build("0", 1).HasGlobalChanges(renamed), "modifier changes alter generated accessors")
}

func TestClass_Helpers(t *testing.T) {
	c := &Class{
		Name:    "Point",
		Props:   []Prop{{Name: "x"}, {Name: "cache", Private: true}},
		Getters: []string{"x"},
	}
	assert.True(t, c.NeedsConstructor())
	assert.True(t, c.HasGetter("x"))
	assert.False(t, c.HasSetter("x"))

	p, ok := c.PropByBacking("_cache")
	require.True(t, ok)
	assert.True(t, p.Private)
	_, ok = c.PropByBacking("cache")
	assert.False(t, ok)

	c.HasConstructor = true
	assert.False(t, c.NeedsConstructor())
	assert.False(t, (&Class{Name: "Empty"}).NeedsConstructor())

	fn := &GlobalFunction{Name: "clamp", Params: []Param{{Label: "value", Name: "v"}, {Name: "lo"}}}
	assert.Equal(t, "N$f_clamp_value_", fn.Identifier())
	assert.Equal(t, "noop", (&GlobalFunction{Name: "noop"}).Identifier())
}
