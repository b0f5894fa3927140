// Package builder walks a parsed file once, collecting its model entities,
// imports, exports and scope declarations.
package builder

import (
	"strings"

	cerrors "nilscript/internal/core/errors"
	"nilscript/internal/engine/model"
	"nilscript/internal/engine/scope"
	"nilscript/internal/engine/symbols"
	"nilscript/internal/engine/syntax"
)

// DefaultBuiltins are runtime globals every file may reference.
var DefaultBuiltins = []string{
	"Array", "Boolean", "Date", "Error", "Function", "JSON", "Map", "Math", "Number",
	"Object", "Promise", "Reflect", "RegExp", "Set", "String", "Symbol", "TypeError",
	"WeakMap", "WeakSet", "console", "document", "globalThis", "isFinite", "isNaN",
	"parseFloat", "parseInt", "undefined", "window", "NaN", "Infinity",
}

type Options struct {
	Builtins         []string
	WarnMissingTypes bool
}

// Annotations is the side table of facts the generator needs, keyed by node
// id so the AST itself is never mutated.
type Annotations struct {
	// Funcs maps a *syntax.Function of a func, init or global function to
	// its selector.
	Funcs map[syntax.NodeID]symbols.FuncName
	// Calls maps a *syntax.CallExpr or *syntax.NewExpr with named
	// arguments to the selector it invokes.
	Calls map[syntax.NodeID]symbols.FuncName
	// Classes maps a *syntax.Class to its entity.
	Classes map[syntax.NodeID]*model.Class
}

func newAnnotations() *Annotations {
	return &Annotations{
		Funcs:   make(map[syntax.NodeID]symbols.FuncName),
		Calls:   make(map[syntax.NodeID]symbols.FuncName),
		Classes: make(map[syntax.NodeID]*model.Class),
	}
}

// Import is one name of an "import { ... }" declaration.
type Import struct {
	Name   string
	Node   syntax.NodeID
	Line   int
	Column int
}

// Export is one name made importable by this file.
type Export struct {
	Name string
	Kind model.Kind
}

type Result struct {
	Path        string
	Model       *model.Model
	Scope       *scope.Manager
	Annotations *Annotations
	Imports     []Import
	Exports     []Export
	Errors      []*cerrors.Issue
	Warnings    []*cerrors.Issue
}

// Failed reports whether the file has semantic errors.
func (r *Result) Failed() bool {
	return len(r.Errors) > 0
}

type builder struct {
	prog     *syntax.Program
	opts     Options
	res      *Result
	scopes   *scope.Manager
	notes    *Annotations
	topLevel map[syntax.NodeID]bool
	exported map[syntax.NodeID]bool
	stack    []syntax.Node
	classes  []*model.Class
}

// Build collects prog's declarations. Semantic problems are reported in the
// result; Build itself never fails.
func Build(prog *syntax.Program, opts Options) *Result {
	if opts.Builtins == nil {
		opts.Builtins = DefaultBuiltins
	}
	b := &builder{
		prog:     prog,
		opts:     opts,
		scopes:   scope.NewManager(opts.Builtins),
		notes:    newAnnotations(),
		topLevel: make(map[syntax.NodeID]bool),
		exported: make(map[syntax.NodeID]bool),
	}
	b.res = &Result{
		Path:        prog.Path,
		Model:       model.New(),
		Scope:       b.scopes,
		Annotations: b.notes,
	}
	for _, stmt := range prog.Body {
		b.topLevel[stmt.ID()] = true
		if exp, ok := stmt.(*syntax.ExportDecl); ok && exp.Decl != nil {
			b.topLevel[exp.Decl.ID()] = true
		}
	}
	syntax.Walk(b, prog)
	return b.res
}

func (b *builder) Visit(n syntax.Node) syntax.Visitor {
	if n == nil {
		b.leave()
		return nil
	}
	b.enter(n)
	b.stack = append(b.stack, n)
	return b
}

func (b *builder) parent() syntax.Node {
	if len(b.stack) == 0 {
		return nil
	}
	return b.stack[len(b.stack)-1]
}

func (b *builder) enter(n syntax.Node) {
	parent := b.parent()

	// Declarations that bind in the enclosing scope come before the node's
	// own scope opens.
	switch x := n.(type) {
	case *syntax.Ident:
		if strings.HasPrefix(x.Name, symbols.ReservedPrefix) {
			b.errorf(x, cerrors.IssueReservedIdentifier, "identifier %q uses the reserved prefix %q", x.Name, symbols.ReservedPrefix)
		}
	case *syntax.ImportDecl:
		b.visitImport(x)
	case *syntax.ExportDecl:
		b.visitExport(x)
	case *syntax.VarDecl:
		b.visitVarDecl(x)
	case *syntax.FuncDecl:
		if x.Func.Name != nil {
			b.scopes.Declare(x.Func.Name.Name, scope.Local, x.ID())
		}
		if b.exported[x.ID()] && x.Func.Name != nil {
			b.exportValue(x.Func.Name)
		}
	case *syntax.ClassDecl:
		if x.Class.Name != nil {
			b.scopes.Declare(x.Class.Name.Name, scope.Class, x.ID())
		}
	case *syntax.Class:
		b.enterClass(x, parent)
	case *syntax.EnumDecl:
		b.visitEnum(x)
	case *syntax.GlobalFuncDecl:
		b.visitGlobalFunc(x)
	case *syntax.GlobalConstDecl:
		b.visitGlobalConst(x)
	case *syntax.TypeAliasDecl:
		b.visitTypeAlias(x)
	case *syntax.PropMember:
		b.visitProp(x)
	case *syntax.FuncMember:
		b.visitFuncMember(x)
	case *syntax.InitMember:
		b.visitInitMember(x)
	case *syntax.MethodMember:
		b.visitMethod(x)
	case *syntax.CallExpr:
		b.visitCall(x, x.Callee, x.Args)
	case *syntax.NewExpr:
		b.visitCall(x, nil, x.Args)
	}

	if !b.scopes.EnterNode(n) {
		return
	}

	// Bindings that live inside the new scope.
	switch x := n.(type) {
	case *syntax.Function:
		if _, isExpr := parent.(*syntax.FuncExpr); isExpr && x.Name != nil {
			b.scopes.Declare(x.Name.Name, scope.Local, x.ID())
		}
		for _, p := range x.Params {
			for _, id := range BindingNames(p.Name) {
				b.scopes.Declare(id.Name, scope.Param, p.ID())
			}
		}
	case *syntax.CatchClause:
		if x.Param != nil {
			for _, id := range BindingNames(x.Param) {
				b.scopes.Declare(id.Name, scope.Local, x.ID())
			}
		}
	}
}

func (b *builder) leave() {
	n := b.stack[len(b.stack)-1]
	b.stack = b.stack[:len(b.stack)-1]
	b.scopes.ExitNode(n)
	if _, ok := n.(*syntax.Class); ok {
		b.classes = b.classes[:len(b.classes)-1]
	}
}

func (b *builder) loc(n syntax.Node) model.Location {
	line, col := b.prog.Lines.Position(n.Pos())
	return model.Location{Path: b.prog.Path, Line: line, Column: col}
}

func (b *builder) text(n syntax.Node) string {
	if n == nil {
		return ""
	}
	return b.prog.Source[n.Pos():n.EndPos()]
}

func (b *builder) errorf(n syntax.Node, code cerrors.IssueCode, format string, args ...interface{}) {
	line, col := b.prog.Lines.Position(n.Pos())
	issue := cerrors.NewSemanticIssue(code, line, col, format, args...)
	issue.File = b.prog.Path
	b.res.Errors = append(b.res.Errors, issue)
}

func (b *builder) warnf(n syntax.Node, code cerrors.IssueCode, format string, args ...interface{}) {
	line, col := b.prog.Lines.Position(n.Pos())
	issue := cerrors.NewWarning(code, line, col, format, args...)
	issue.File = b.prog.Path
	b.res.Warnings = append(b.res.Warnings, issue)
}

func (b *builder) add(e model.Entity) {
	if err := b.res.Model.Add(e); err != nil {
		if issue, ok := cerrors.AsIssue(err); ok {
			b.res.Errors = append(b.res.Errors, issue)
		}
	}
}

func (b *builder) requireTopLevel(n syntax.Node, what string) bool {
	if b.topLevel[n.ID()] {
		return true
	}
	b.errorf(n, cerrors.IssueInvalidConstruction, "%s must be declared at the top level", what)
	return false
}
