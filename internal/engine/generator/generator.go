// Package generator lowers a built file to output text by queueing edits
// against its original source.
package generator

import (
	"fmt"
	"strings"

	cerrors "nilscript/internal/core/errors"
	"nilscript/internal/engine/builder"
	"nilscript/internal/engine/model"
	"nilscript/internal/engine/modifier"
	"nilscript/internal/engine/scope"
	"nilscript/internal/engine/symbols"
	"nilscript/internal/engine/syntax"
)

type Mode int

const (
	ModePlain Mode = iota
	ModeTypecheck
	ModeNone
)

func (m Mode) String() string {
	switch m {
	case ModePlain:
		return "plain"
	case ModeTypecheck:
		return "typecheck"
	case ModeNone:
		return "none"
	default:
		return "unknown"
	}
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "plain":
		return ModePlain, nil
	case "typecheck":
		return ModeTypecheck, nil
	case "none":
		return ModeNone, nil
	}
	return ModePlain, fmt.Errorf("unknown output language %q", s)
}

// Link is a resolved import.
type Link struct {
	Name string
	Kind model.Kind
	// Past is set when the defining file is emitted before the importer.
	Past bool
	// File is the defining file.
	File string
}

type Input struct {
	Program *syntax.Program
	Build   *builder.Result
	// Model is the whole-program model.
	Model *model.Model
	Links map[string]Link
}

type Options struct {
	Mode Mode
	// Squeezer shortens mangled names in plain output when set.
	Squeezer *symbols.Squeezer
}

type Output struct {
	Lines    []string
	Warnings []*cerrors.Issue
}

type classContext struct {
	node   *syntax.Class
	entity *model.Class
}

type generator struct {
	in     Input
	opts   Options
	prog   *syntax.Program
	src    string
	mod    *modifier.Modifier
	scopes *scope.Manager
	notes  *builder.Annotations
	model  *model.Model

	skip     map[syntax.NodeID]bool
	stack    []syntax.Node
	classes  []classContext
	warnings []*cerrors.Issue
	err      error
}

// Generate produces the output lines for one file. The scope manager of
// in.Build must have been finished.
func Generate(in Input, opts Options) (*Output, error) {
	if opts.Mode == ModeNone {
		return &Output{}, nil
	}
	g := &generator{
		in:     in,
		opts:   opts,
		prog:   in.Program,
		src:    in.Program.Source,
		mod:    modifier.New(in.Program.Source),
		scopes: in.Build.Scope,
		notes:  in.Build.Annotations,
		model:  in.Model,
		skip:   make(map[syntax.NodeID]bool),
	}
	if g.model == nil {
		g.model = in.Build.Model
	}

	g.scopes.Reset()
	syntax.Walk(g, g.prog)
	if g.err != nil {
		return nil, g.err
	}

	if opts.Mode == ModePlain {
		g.mod.Insert(0, filePrelude)
		g.mod.Insert(len(g.src), "\n"+fileClosing)
	}
	text := g.mod.Finish()
	return &Output{
		Lines:    strings.Split(text, "\n"),
		Warnings: g.warnings,
	}, nil
}

func (g *generator) plain() bool {
	return g.opts.Mode == ModePlain
}

func (g *generator) Visit(n syntax.Node) syntax.Visitor {
	if n == nil {
		g.leave()
		return nil
	}
	if !g.enter(n) {
		return nil
	}
	g.scopes.ReenterNode(n)
	g.stack = append(g.stack, n)
	return g
}

func (g *generator) leave() {
	n := g.stack[len(g.stack)-1]
	g.stack = g.stack[:len(g.stack)-1]
	g.scopes.ExitNode(n)
	if _, ok := n.(*syntax.Class); ok {
		g.classes = g.classes[:len(g.classes)-1]
	}
}

func (g *generator) text(n syntax.Node) string {
	return g.src[n.Pos():n.EndPos()]
}

func (g *generator) warnf(n syntax.Node, code cerrors.IssueCode, format string, args ...interface{}) {
	line, col := g.prog.Lines.Position(n.Pos())
	issue := cerrors.NewWarning(code, line, col, format, args...)
	issue.File = g.prog.Path
	g.warnings = append(g.warnings, issue)
}

// identifier returns the runtime name of a selector, squeezed when enabled.
func (g *generator) identifier(n syntax.Node, name symbols.FuncName) string {
	id := name.Identifier()
	if !g.plain() || g.opts.Squeezer == nil || !name.HasLabels() {
		return id
	}
	short, err := g.opts.Squeezer.Squeeze(id)
	if err != nil {
		if g.err == nil {
			line, col := g.prog.Lines.Position(n.Pos())
			if issue, ok := cerrors.AsIssue(err); ok {
				g.err = issue.At(g.prog.Path, line, col)
			} else {
				g.err = err
			}
		}
		return id
	}
	return short
}

// enter handles one node before its children. It returns false when the
// node's text has been fully rewritten and its children must not be visited.
func (g *generator) enter(n syntax.Node) bool {
	switch x := n.(type) {
	case *syntax.ImportDecl:
		g.genImport(x)
		return false
	case *syntax.ExportDecl:
		g.genExport(x)
	case *syntax.EnumDecl:
		g.genEnum(x)
		return false
	case *syntax.GlobalConstDecl:
		g.mod.Blank(x.Start, x.End)
		return false
	case *syntax.TypeAliasDecl:
		if g.plain() {
			g.mod.Blank(x.Start, x.End)
		}
		return false
	case *syntax.GlobalFuncDecl:
		g.genGlobalFunc(x)

	case *syntax.Class:
		g.enterClass(x)
	case *syntax.PropMember:
		g.genProp(x)
	case *syntax.FuncMember:
		id := g.identifier(x.Func.Name, g.notes.Funcs[x.Func.ID()])
		g.mod.Replace(x.Keyword.Start, x.Func.Name.End, id)
		g.skip[x.Func.Name.ID()] = true
	case *syntax.InitMember:
		id := g.identifier(x.Func.Name, g.notes.Funcs[x.Func.ID()])
		g.mod.Replace(x.Func.Name.Start, x.Func.Name.End, id)
		g.skip[x.Func.Name.ID()] = true
	case *syntax.MethodMember:
		g.skipKey(x.Key, x.Computed)
	case *syntax.FieldMember:
		g.skipKey(x.Key, x.Computed)
		if x.Question >= 0 && g.plain() {
			g.mod.Remove(x.Question, x.Question+1)
		}

	case *syntax.Function:
		if x.Name != nil {
			g.skip[x.Name.ID()] = true
		}
		if x.TypeParams != nil && g.plain() {
			g.mod.Blank(x.TypeParams.Start, x.TypeParams.End)
		}
	case *syntax.Param:
		if x.Label != nil {
			g.mod.Remove(x.Label.Start, x.Name.Pos())
			g.skip[x.Label.ID()] = true
		}
		if x.Question >= 0 && g.plain() {
			g.mod.Remove(x.Question, x.Question+1)
		}

	case *syntax.TypeAnnot, *syntax.TypeArgs, *syntax.TypeParams, *syntax.Implements:
		if g.plain() {
			g.mod.Blank(n.Pos(), n.EndPos())
		}
		return false
	case syntax.TypeNode:
		return false
	case *syntax.CastExpr:
		if g.plain() {
			g.mod.Blank(x.X.EndPos(), x.End)
		}

	case *syntax.CallExpr:
		g.genCall(x)
	case *syntax.NewExpr:
		g.genNew(x)
	case *syntax.NamedArg:
		g.mod.Remove(x.Label.Start, x.Value.Pos())
		g.skip[x.Label.ID()] = true
	case *syntax.MemberExpr:
		renamed := g.skip[x.Name.ID()]
		g.skip[x.Name.ID()] = true
		if !renamed && g.inlineEnumMember(x) {
			return false
		}
	case *syntax.Property:
		return g.genProperty(x)

	case *syntax.LabeledStmt:
		g.skip[x.Label.ID()] = true
	case *syntax.BreakStmt:
		if x.Label != nil {
			g.skip[x.Label.ID()] = true
		}
	case *syntax.ContinueStmt:
		if x.Label != nil {
			g.skip[x.Label.ID()] = true
		}

	case *syntax.Ident:
		if g.skip[x.ID()] {
			return false
		}
		if text, ok := g.rewriteReference(x); ok {
			g.mod.Replace(x.Start, x.End, text)
		}
		return false
	}
	return true
}

func (g *generator) skipKey(key syntax.Expr, computed bool) {
	if id, ok := key.(*syntax.Ident); ok && !computed {
		g.skip[id.ID()] = true
	}
}

func (g *generator) currentClass() *classContext {
	if len(g.classes) == 0 {
		return nil
	}
	return &g.classes[len(g.classes)-1]
}

// rewriteReference decides how an identifier in expression position is
// emitted: global function, future import, backing field, inlined literal,
// or unchanged.
func (g *generator) rewriteReference(id *syntax.Ident) (string, bool) {
	name := id.Name
	b := g.scopes.Value(name)
	if b != nil && b.Kind.IsLocal() {
		return "", false
	}

	if fn, ok := g.model.GlobalFunction(name); ok && (b == nil || b.Kind == scope.GlobalFunction) {
		return g.globalFunctionRef(id, fn), true
	}

	if b != nil && b.Imported && g.plain() {
		if link, ok := g.in.Links[name]; ok && !link.Past && link.Kind.IsValue() {
			return exportsRef + name, true
		}
	}

	if b == nil {
		if cls := g.currentClass(); cls != nil && cls.entity != nil {
			if _, ok := cls.entity.PropByBacking(name); ok {
				return "this." + name, true
			}
		}
	}

	if c, ok := g.model.GlobalConst(name); ok && (b == nil || b.Kind == scope.GlobalConst) {
		return c.Raw, true
	}
	return "", false
}

func (g *generator) globalFunctionRef(n syntax.Node, fn *model.GlobalFunction) string {
	id := g.identifier(n, fn.FuncName())
	if g.plain() {
		return globalsRef + id
	}
	return id
}
