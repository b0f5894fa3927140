package model

import (
	"sort"
	"strconv"
	"strings"

	"nilscript/internal/engine/symbols"
)

// Prop is a declared "prop" member.
type Prop struct {
	Name     string
	Type     string
	Private  bool
	Readonly bool
	Observed bool
}

// Backing is the field that stores the property value.
func (p Prop) Backing() string {
	return "_" + p.Name
}

type Class struct {
	Name     string
	Super    string
	Exported bool
	Props    []Prop
	Getters  []string
	Setters  []string
	// Funcs holds the selectors of "func" members.
	Funcs []symbols.FuncName
	Inits []symbols.FuncName
	// HasConstructor is set when the class defines constructor() itself
	// rather than relying on init dispatch.
	HasConstructor bool
	Location       Location
}

func (c *Class) EntityName() string { return c.Name }
func (c *Class) EntityKind() Kind   { return KindClass }
func (c *Class) Loc() Location      { return c.Location }

func (c *Class) Prop(name string) (Prop, bool) {
	for _, p := range c.Props {
		if p.Name == name {
			return p, true
		}
	}
	return Prop{}, false
}

// PropByBacking finds the property stored in the given backing field.
func (c *Class) PropByBacking(field string) (Prop, bool) {
	if !strings.HasPrefix(field, "_") {
		return Prop{}, false
	}
	return c.Prop(field[1:])
}

func (c *Class) HasGetter(name string) bool { return contains(c.Getters, name) }
func (c *Class) HasSetter(name string) bool { return contains(c.Setters, name) }

// NeedsConstructor reports whether a constructor must be synthesized.
func (c *Class) NeedsConstructor() bool {
	return !c.HasConstructor && (len(c.Props) > 0 || len(c.Funcs) > 0 || len(c.Inits) > 0)
}

func (c *Class) fingerprint() string {
	parts := []string{"class", c.Name, c.Super, strconv.FormatBool(c.Exported), strconv.FormatBool(c.HasConstructor)}
	for _, p := range c.Props {
		parts = append(parts, "prop:"+p.Name+":"+p.Type+":"+flags(p.Private, p.Readonly, p.Observed))
	}
	parts = append(parts, "get:"+strings.Join(sortedCopy(c.Getters), ","), "set:"+strings.Join(sortedCopy(c.Setters), ","))
	for _, f := range c.Funcs {
		parts = append(parts, "func:"+f.String())
	}
	for _, f := range c.Inits {
		parts = append(parts, "init:"+f.String())
	}
	return joinFields(parts...)
}

// EnumMember is one member with its literal value.
type EnumMember struct {
	Name string
	// Raw is the literal emitted for the member.
	Raw     string
	Numeric bool
}

type Enum struct {
	Name     string
	Exported bool
	Members  []EnumMember
	Location Location
}

func (e *Enum) EntityName() string { return e.Name }
func (e *Enum) EntityKind() Kind   { return KindEnum }
func (e *Enum) Loc() Location      { return e.Location }

func (e *Enum) Member(name string) (EnumMember, bool) {
	for _, m := range e.Members {
		if m.Name == name {
			return m, true
		}
	}
	return EnumMember{}, false
}

func (e *Enum) fingerprint() string {
	parts := []string{"enum", e.Name, strconv.FormatBool(e.Exported)}
	for _, m := range e.Members {
		parts = append(parts, m.Name+"="+m.Raw)
	}
	return joinFields(parts...)
}

// Param is a global function parameter.
type Param struct {
	Label string
	Name  string
	Type  string
}

type GlobalFunction struct {
	Name     string
	Params   []Param
	Return   string
	Location Location
}

func (f *GlobalFunction) EntityName() string { return f.Name }
func (f *GlobalFunction) EntityKind() Kind   { return KindGlobalFunction }
func (f *GlobalFunction) Loc() Location      { return f.Location }

func (f *GlobalFunction) FuncName() symbols.FuncName {
	fn := symbols.FuncName{Base: f.Name}
	for _, p := range f.Params {
		fn.Labels = append(fn.Labels, p.Label)
	}
	return fn
}

// Identifier is the runtime name of the function.
func (f *GlobalFunction) Identifier() string {
	return f.FuncName().Identifier()
}

func (f *GlobalFunction) fingerprint() string {
	parts := []string{"global function", f.FuncName().String(), f.Return}
	for _, p := range f.Params {
		parts = append(parts, p.Name+":"+p.Type)
	}
	return joinFields(parts...)
}

type GlobalConst struct {
	Name string
	// Raw is the literal source text inlined at every reference.
	Raw      string
	Type     string
	Location Location
}

func (c *GlobalConst) EntityName() string { return c.Name }
func (c *GlobalConst) EntityKind() Kind   { return KindGlobalConst }
func (c *GlobalConst) Loc() Location      { return c.Location }

func (c *GlobalConst) fingerprint() string {
	return joinFields("global const", c.Name, c.Raw, c.Type)
}

type Type struct {
	Name     string
	Exported bool
	// Target is the aliased type text; empty for opaque types.
	Target   string
	Location Location
}

func (t *Type) EntityName() string { return t.Name }
func (t *Type) EntityKind() Kind   { return KindType }
func (t *Type) Loc() Location      { return t.Location }

func (t *Type) fingerprint() string {
	return joinFields("type", t.Name, strconv.FormatBool(t.Exported), t.Target)
}

// Value is an exported plain binding such as "export const x".
type Value struct {
	Name     string
	Location Location
}

func (v *Value) EntityName() string { return v.Name }
func (v *Value) EntityKind() Kind   { return KindValue }
func (v *Value) Loc() Location      { return v.Location }

func (v *Value) fingerprint() string {
	return joinFields("value", v.Name)
}

// IsExported reports whether e can be named by an import.
func IsExported(e Entity) bool {
	switch x := e.(type) {
	case *Class:
		return x.Exported
	case *Enum:
		return x.Exported
	case *Type:
		return x.Exported
	case *Value:
		return true
	}
	return false
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

func sortedCopy(list []string) []string {
	out := append([]string(nil), list...)
	sort.Strings(out)
	return out
}

func flags(bs ...bool) string {
	var b strings.Builder
	for _, v := range bs {
		if v {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}
