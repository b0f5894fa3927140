package generator

import (
	"fmt"
	"strings"

	cerrors "nilscript/internal/core/errors"
	"nilscript/internal/engine/builder"
	"nilscript/internal/engine/scope"
	"nilscript/internal/engine/syntax"
)

func (g *generator) genImport(decl *syntax.ImportDecl) {
	if !g.plain() {
		g.mod.Blank(decl.Start, decl.End)
		return
	}
	var defs []string
	for _, id := range decl.Names {
		link, ok := g.in.Links[id.Name]
		if !ok || !link.Past || !link.Kind.IsValue() {
			continue
		}
		defs = append(defs, fmt.Sprintf("%s = %s%s", id.Name, exportsRef, id.Name))
	}
	if len(defs) == 0 {
		g.mod.Blank(decl.Start, decl.End)
		return
	}
	g.mod.ReplaceKeepingLines(decl.Start, decl.End, "const "+strings.Join(defs, ", ")+";")
}

func (g *generator) genExport(decl *syntax.ExportDecl) {
	if decl.Decl == nil {
		return
	}
	g.mod.Remove(decl.Keyword.Start, decl.Decl.Pos())
	if !g.plain() {
		return
	}

	var names []string
	needsSemicolon := false
	switch d := decl.Decl.(type) {
	case *syntax.ClassDecl:
		if d.Class.Name != nil {
			names = append(names, d.Class.Name.Name)
		}
	case *syntax.EnumDecl:
		names = append(names, d.Name.Name)
	case *syntax.FuncDecl:
		if d.Func.Name != nil {
			names = append(names, d.Func.Name.Name)
		}
	case *syntax.VarDecl:
		for _, v := range d.List {
			for _, id := range builder.BindingNames(v.Target) {
				names = append(names, id.Name)
			}
		}
		needsSemicolon = !strings.HasSuffix(g.text(d), ";")
	}
	if len(names) == 0 {
		return
	}

	var b strings.Builder
	if needsSemicolon {
		b.WriteString(";")
	}
	for _, name := range names {
		fmt.Fprintf(&b, " %s%s = %s;", exportsRef, name, name)
	}
	g.mod.Insert(decl.Decl.EndPos(), b.String())
}

func (g *generator) genEnum(decl *syntax.EnumDecl) {
	var members []string
	for _, m := range decl.Members {
		if m.Kind == syntax.EnumInvalid {
			continue
		}
		if g.plain() {
			members = append(members, m.Name.Name+": "+m.Raw)
		} else {
			members = append(members, m.Name.Name+" = "+m.Raw)
		}
	}
	name := decl.Name.Name
	var text string
	if g.plain() {
		text = fmt.Sprintf("const %s = Object.freeze({%s});", name, strings.Join(members, ", "))
	} else {
		text = fmt.Sprintf("enum %s { %s }", name, strings.Join(members, ", "))
	}
	g.mod.ReplaceKeepingLines(decl.Start, decl.End, text)
}

func (g *generator) genGlobalFunc(decl *syntax.GlobalFuncDecl) {
	fn := decl.Func
	if fn.Name == nil {
		return
	}
	g.skip[fn.Name.ID()] = true
	id := g.identifier(fn.Name, g.notes.Funcs[fn.ID()])
	if g.plain() {
		g.mod.Replace(decl.Keyword.Start, fn.Name.End, fmt.Sprintf("%s%s = function %s", globalsRef, id, fn.Name.Name))
		g.mod.Insert(decl.End, ";")
		return
	}
	g.mod.Replace(decl.Keyword.Start, fn.Name.End, "function "+id)
}

func (g *generator) enterClass(class *syntax.Class) {
	entity := g.notes.Classes[class.ID()]
	g.classes = append(g.classes, classContext{node: class, entity: entity})
	if class.Name != nil {
		g.skip[class.Name.ID()] = true
	}
	if class.TypeParams != nil && g.plain() {
		g.mod.Blank(class.TypeParams.Start, class.TypeParams.End)
	}
	if entity == nil || !entity.NeedsConstructor() {
		return
	}

	var b strings.Builder
	if g.plain() {
		fmt.Fprintf(&b, " constructor(...%s) { ", argsName)
	} else {
		fmt.Fprintf(&b, " constructor(...%s: any[]) { ", argsName)
	}
	if class.Super != nil {
		fmt.Fprintf(&b, "super(...%s); ", argsName)
	}
	if g.plain() {
		if class.Name != nil {
			fmt.Fprintf(&b, "if (new.target === %s) ", class.Name.Name)
		}
		fmt.Fprintf(&b, "%s(this, %s); ", initFn, argsName)
	}
	b.WriteString("}")
	g.mod.Insert(class.Body.Start+1, b.String())
}

func (g *generator) genProp(prop *syntax.PropMember) {
	name := prop.Name.Name
	backing := "_" + name
	g.skip[prop.Name.ID()] = true

	private := prop.HasModifier("private")
	readonly := prop.HasModifier("readonly")
	observed := prop.HasModifier("observed")
	userGetter, userSetter := false, false
	if cls := g.currentClass(); cls != nil && cls.entity != nil {
		userGetter = cls.entity.HasGetter(name)
		userSetter = cls.entity.HasSetter(name)
	}

	if !g.plain() {
		switch {
		case private:
			g.mod.Replace(prop.Start, prop.Name.End, "private "+backing)
			return
		case userGetter || userSetter:
			g.mod.Replace(prop.Start, prop.Name.End, backing)
			return
		}
		head := "declare "
		if readonly {
			head += "readonly "
		}
		head += name
		if prop.Annot != nil {
			head += g.text(prop.Annot)
		}
		g.mod.Replace(prop.Start, prop.Name.End, head+"; "+backing)
		return
	}

	g.mod.Replace(prop.Start, prop.Name.End, backing)

	var b strings.Builder
	if !private && !userGetter {
		fmt.Fprintf(&b, " get %s() { return this.%s; }", name, backing)
	}
	if !private && !readonly && !userSetter {
		if observed {
			fmt.Fprintf(&b, " set %s(%s) { var %s = this.%s; if (%s !== %s) { this.%s = %s; this.observeValueChange(%q, %s, %s); } }",
				name, valueName, oldName, backing, oldName, valueName, backing, valueName, name, oldName, valueName)
		} else {
			fmt.Fprintf(&b, " set %s(%s) { this.%s = %s; }", name, valueName, backing, valueName)
		}
	}
	if b.Len() == 0 {
		return
	}
	accessors := b.String()
	if !strings.HasSuffix(g.text(prop), ";") {
		accessors = ";" + accessors
	}
	g.mod.Insert(prop.End, accessors)
}

func (g *generator) genCall(call *syntax.CallExpr) {
	sel, ok := g.notes.Calls[call.ID()]
	if !ok {
		return
	}
	switch callee := call.Callee.(type) {
	case *syntax.MemberExpr:
		g.mod.Replace(callee.Name.Start, callee.Name.End, g.identifier(callee.Name, sel))
		g.skip[callee.Name.ID()] = true
	case *syntax.Ident:
		fn, found := g.model.GlobalFunction(callee.Name)
		if b := g.scopes.Value(callee.Name); b != nil && b.Kind != scope.GlobalFunction {
			found = false
		}
		if !found || !fn.FuncName().Equal(sel) {
			g.warnf(call, cerrors.IssueUnknownSelector, "no global function matches %s", sel)
		}
	}
}

func (g *generator) genNew(expr *syntax.NewExpr) {
	sel, ok := g.notes.Calls[expr.ID()]
	if !ok || !expr.HasArgs {
		return
	}
	text := fmt.Sprintf("%s(%q)", selectorFn, g.identifier(expr, sel))
	if len(expr.Args) > 0 {
		text += ", "
	}
	g.mod.Insert(expr.Lparen+1, text)
}

// inlineEnumMember replaces E.A with the member's literal when E names an
// enum of the program.
func (g *generator) inlineEnumMember(x *syntax.MemberExpr) bool {
	if !g.plain() {
		return false
	}
	base, ok := x.X.(*syntax.Ident)
	if !ok || g.skip[base.ID()] {
		return false
	}
	if b := g.scopes.Value(base.Name); b != nil && b.Kind != scope.Enum && !b.Imported {
		return false
	}
	enum, ok := g.model.Enum(base.Name)
	if !ok {
		return false
	}
	member, ok := enum.Member(x.Name.Name)
	if !ok {
		return false
	}
	g.mod.Replace(x.Start, x.End, member.Raw)
	return true
}

func (g *generator) genProperty(p *syntax.Property) bool {
	key, ok := p.Key.(*syntax.Ident)
	if !ok || p.Computed {
		return true
	}
	if p.Kind == syntax.PropShorthand {
		if value, ok := p.Value.(*syntax.Ident); ok {
			if text, rewrite := g.rewriteReference(value); rewrite {
				g.mod.Replace(key.Start, key.End, key.Name+": "+text)
				return false
			}
		}
	}
	g.skip[key.ID()] = true
	return true
}
