package builder

import (
	cerrors "nilscript/internal/core/errors"
	"nilscript/internal/engine/model"
	"nilscript/internal/engine/scope"
	"nilscript/internal/engine/symbols"
	"nilscript/internal/engine/syntax"
)

func (b *builder) visitImport(decl *syntax.ImportDecl) {
	if decl.Form != syntax.ImportNamed {
		b.errorf(decl, cerrors.IssueUnsupportedImport, "unsupported import form; use import { Name }")
		return
	}
	if !b.requireTopLevel(decl, "import") {
		return
	}
	for _, id := range decl.Names {
		line, col := b.prog.Lines.Position(id.Start)
		b.res.Imports = append(b.res.Imports, Import{Name: id.Name, Node: id.ID(), Line: line, Column: col})
	}
}

func (b *builder) visitExport(decl *syntax.ExportDecl) {
	if decl.Form != syntax.ExportDeclaration {
		b.errorf(decl, cerrors.IssueUnsupportedExport, "unsupported export form; export a declaration instead")
		return
	}
	if !b.requireTopLevel(decl, "export") {
		return
	}
	switch decl.Decl.(type) {
	case *syntax.ClassDecl, *syntax.EnumDecl, *syntax.TypeAliasDecl, *syntax.VarDecl, *syntax.FuncDecl:
		b.exported[decl.Decl.ID()] = true
	default:
		b.errorf(decl, cerrors.IssueUnsupportedExport, "only classes, enums, types, functions and variables can be exported")
	}
}

func (b *builder) exportValue(id *syntax.Ident) {
	b.add(&model.Value{Name: id.Name, Location: b.loc(id)})
	b.res.Exports = append(b.res.Exports, Export{Name: id.Name, Kind: model.KindValue})
}

func (b *builder) visitVarDecl(decl *syntax.VarDecl) {
	for _, d := range decl.List {
		for _, id := range BindingNames(d.Target) {
			if decl.Kind == "var" {
				b.scopes.DeclareVar(id.Name, d.ID())
			} else {
				b.scopes.Declare(id.Name, scope.Local, d.ID())
			}
			if b.exported[decl.ID()] {
				b.exportValue(id)
			}
		}
	}
}

func (b *builder) enterClass(class *syntax.Class, parent syntax.Node) {
	entity := &model.Class{Location: b.loc(class)}
	if class.Name != nil {
		entity.Name = class.Name.Name
		entity.Location = b.loc(class.Name)
	}
	switch super := class.Super.(type) {
	case nil:
	case *syntax.Ident:
		entity.Super = super.Name
	default:
		entity.Super = b.text(super)
	}
	b.notes.Classes[class.ID()] = entity
	b.classes = append(b.classes, entity)

	decl, isDecl := parent.(*syntax.ClassDecl)
	if !isDecl || class.Name == nil || !b.topLevel[decl.ID()] {
		return
	}
	if b.exported[decl.ID()] {
		entity.Exported = true
		b.res.Exports = append(b.res.Exports, Export{Name: entity.Name, Kind: model.KindClass})
	}
	b.add(entity)
}

func (b *builder) currentClass() *model.Class {
	if len(b.classes) == 0 {
		return nil
	}
	return b.classes[len(b.classes)-1]
}

func (b *builder) visitProp(prop *syntax.PropMember) {
	class := b.currentClass()
	if class == nil {
		return
	}
	name := prop.Name.Name
	if _, dup := class.Prop(name); dup {
		b.errorf(prop.Name, cerrors.IssueDuplicate, "duplicate property %q in class %s", name, class.Name)
		return
	}
	p := model.Prop{
		Name:     name,
		Private:  prop.HasModifier("private"),
		Readonly: prop.HasModifier("readonly"),
		Observed: prop.HasModifier("observed"),
	}
	if prop.Annot != nil {
		p.Type = b.text(prop.Annot.Type)
	} else if b.opts.WarnMissingTypes {
		b.warnf(prop.Name, cerrors.IssueMissingType, "property %q has no type annotation", name)
	}
	if p.Private && p.Observed {
		b.warnf(prop, cerrors.IssueInvalidConstruction, "private property %q has no setter to observe", name)
	}
	class.Props = append(class.Props, p)
}

func (b *builder) visitFuncMember(member *syntax.FuncMember) {
	class := b.currentClass()
	fn := member.Func
	name := symbols.FuncName{Base: fn.Name.Name, Labels: fn.Labels()}
	b.notes.Funcs[fn.ID()] = name
	if class == nil {
		return
	}
	for _, existing := range class.Funcs {
		if existing.Equal(name) {
			b.errorf(fn.Name, cerrors.IssueDuplicate, "duplicate func %s in class %s", name, class.Name)
			return
		}
	}
	if fn.ReturnType == nil && b.opts.WarnMissingTypes {
		b.warnf(fn.Name, cerrors.IssueMissingType, "func %s has no return type annotation", name)
	}
	class.Funcs = append(class.Funcs, name)
}

func (b *builder) visitInitMember(member *syntax.InitMember) {
	class := b.currentClass()
	fn := member.Func
	name := symbols.FuncName{Base: "init", Labels: fn.Labels()}
	b.notes.Funcs[fn.ID()] = name
	if class == nil {
		return
	}
	for _, existing := range class.Inits {
		if existing.Equal(name) {
			b.errorf(member, cerrors.IssueDuplicate, "duplicate initializer %s in class %s", name, class.Name)
			return
		}
	}
	class.Inits = append(class.Inits, name)
}

func (b *builder) visitMethod(m *syntax.MethodMember) {
	class := b.currentClass()
	if class == nil {
		return
	}
	key, ok := m.Key.(*syntax.Ident)
	if !ok || m.Computed {
		return
	}
	switch m.Kind {
	case syntax.MethodConstructor:
		class.HasConstructor = true
	case syntax.MethodGet:
		class.Getters = append(class.Getters, key.Name)
	case syntax.MethodSet:
		class.Setters = append(class.Setters, key.Name)
	}
}

func (b *builder) visitEnum(decl *syntax.EnumDecl) {
	b.scopes.Declare(decl.Name.Name, scope.Enum, decl.ID())
	entity := &model.Enum{Name: decl.Name.Name, Location: b.loc(decl.Name)}
	for _, m := range decl.Members {
		switch m.Kind {
		case syntax.EnumInvalid:
			b.errorf(m, cerrors.IssueNonLiteral, "enum member %s.%s must be initialized with a number or string literal", decl.Name.Name, m.Name.Name)
			continue
		case syntax.EnumNumber:
			entity.Members = append(entity.Members, model.EnumMember{Name: m.Name.Name, Raw: m.Raw, Numeric: true})
		case syntax.EnumString:
			entity.Members = append(entity.Members, model.EnumMember{Name: m.Name.Name, Raw: m.Raw})
		}
	}
	if !b.topLevel[decl.ID()] {
		return
	}
	if b.exported[decl.ID()] {
		entity.Exported = true
		b.res.Exports = append(b.res.Exports, Export{Name: entity.Name, Kind: model.KindEnum})
	}
	b.add(entity)
}

func (b *builder) visitGlobalFunc(decl *syntax.GlobalFuncDecl) {
	fn := decl.Func
	if !b.requireTopLevel(decl, "global function") {
		return
	}
	entity := &model.GlobalFunction{Name: fn.Name.Name, Location: b.loc(fn.Name)}
	for _, p := range fn.Params {
		param := model.Param{Label: p.LabelText()}
		if id, ok := p.Name.(*syntax.Ident); ok {
			param.Name = id.Name
		}
		if p.Annot != nil {
			param.Type = b.text(p.Annot.Type)
		}
		entity.Params = append(entity.Params, param)
	}
	if fn.ReturnType != nil {
		entity.Return = b.text(fn.ReturnType.Type)
	} else if b.opts.WarnMissingTypes {
		b.warnf(fn.Name, cerrors.IssueMissingType, "global function %s has no return type annotation", fn.Name.Name)
	}
	b.notes.Funcs[fn.ID()] = entity.FuncName()
	b.scopes.Declare(entity.Name, scope.GlobalFunction, decl.ID())
	b.add(entity)
}

func (b *builder) visitGlobalConst(decl *syntax.GlobalConstDecl) {
	if !b.requireTopLevel(decl, "global const") {
		return
	}
	raw, ok := literalText(decl.Init)
	if !ok {
		b.errorf(decl.Init, cerrors.IssueNonLiteral, "global const %s must be initialized with a literal", decl.Name.Name)
		return
	}
	entity := &model.GlobalConst{Name: decl.Name.Name, Raw: raw, Location: b.loc(decl.Name)}
	if decl.Annot != nil {
		entity.Type = b.text(decl.Annot.Type)
	}
	b.scopes.Declare(entity.Name, scope.GlobalConst, decl.ID())
	b.add(entity)
}

func (b *builder) visitTypeAlias(decl *syntax.TypeAliasDecl) {
	b.scopes.Declare(decl.Name.Name, scope.TypeAlias, decl.ID())
	if !b.topLevel[decl.ID()] {
		return
	}
	entity := &model.Type{Name: decl.Name.Name, Target: b.text(decl.Type), Location: b.loc(decl.Name)}
	if b.exported[decl.ID()] {
		entity.Exported = true
		b.res.Exports = append(b.res.Exports, Export{Name: entity.Name, Kind: model.KindType})
	}
	b.add(entity)
}

// visitCall records the selector of a call with named arguments. A nil
// callee means a "new" expression, which dispatches to an initializer.
func (b *builder) visitCall(call syntax.Expr, callee syntax.Expr, args []syntax.Expr) {
	named := false
	for _, arg := range args {
		if _, ok := arg.(*syntax.NamedArg); ok {
			named = true
			break
		}
	}
	if !named {
		return
	}

	name := symbols.FuncName{Base: "init"}
	if callee != nil {
		switch c := callee.(type) {
		case *syntax.Ident:
			name.Base = c.Name
		case *syntax.MemberExpr:
			name.Base = c.Name.Name
		default:
			b.errorf(call, cerrors.IssueLabelAmbiguity, "named arguments need a function or method name as the call target")
			return
		}
	}
	for _, arg := range args {
		switch a := arg.(type) {
		case *syntax.NamedArg:
			label := a.Label.Name
			if label == "_" {
				label = ""
			}
			name.Labels = append(name.Labels, label)
		case *syntax.SpreadExpr:
			b.errorf(a, cerrors.IssueLabelAmbiguity, "spread arguments cannot be combined with named arguments")
			return
		default:
			name.Labels = append(name.Labels, "")
		}
	}
	b.notes.Calls[call.ID()] = name
}

// literalText returns the source text of a literal usable for inlining.
func literalText(x syntax.Expr) (string, bool) {
	switch v := x.(type) {
	case *syntax.Literal:
		if v.Kind == syntax.LitRegex {
			return "", false
		}
		return v.Raw, true
	case *syntax.UnaryExpr:
		if v.Op != "-" && v.Op != "+" {
			return "", false
		}
		lit, ok := v.X.(*syntax.Literal)
		if !ok || lit.Kind != syntax.LitNumber {
			return "", false
		}
		if v.Op == "-" {
			return "-" + lit.Raw, true
		}
		return lit.Raw, true
	case *syntax.ParenExpr:
		return literalText(v.X)
	}
	return "", false
}

// BindingNames collects the identifiers bound by a declaration target,
// including destructuring patterns.
func BindingNames(target syntax.Expr) []*syntax.Ident {
	var out []*syntax.Ident
	var visit func(x syntax.Expr)
	visit = func(x syntax.Expr) {
		switch v := x.(type) {
		case *syntax.Ident:
			out = append(out, v)
		case *syntax.ArrayLit:
			for _, e := range v.Elems {
				if e != nil {
					visit(e)
				}
			}
		case *syntax.ObjectLit:
			for _, p := range v.Props {
				if p.Value != nil {
					visit(p.Value)
				}
			}
		case *syntax.AssignExpr:
			visit(v.Target)
		case *syntax.SpreadExpr:
			visit(v.X)
		}
	}
	visit(target)
	return out
}
