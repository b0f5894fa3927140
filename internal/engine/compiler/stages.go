package compiler

import (
	"context"
	"sort"
	"strings"

	cerrors "nilscript/internal/core/errors"
	"nilscript/internal/engine/builder"
	"nilscript/internal/engine/checker"
	"nilscript/internal/engine/generator"
	"nilscript/internal/engine/model"
	"nilscript/internal/engine/scope"
	"nilscript/internal/engine/symbols"
	"nilscript/internal/engine/syntax"
	"nilscript/internal/engine/verify"
)

// typecheckDefsName is the unit name of the runtime declarations sent with
// every checker request.
const typecheckDefsName = "N$$_.d.ts"

func hookFailure(hook string, err error) *cerrors.Issue {
	if issue, ok := cerrors.AsIssue(err); ok {
		return issue
	}
	return cerrors.NewSemanticIssue(cerrors.IssueHook, 0, 0, "%s hook failed: %v", hook, err)
}

func (c *Compiler) preprocess(ctx context.Context, opts *Options, f *sourceFile) error {
	if opts.BeforeCompile == nil {
		f.text = f.contents
		f.state = needsParse
		return nil
	}
	hf := &HookFile{Path: f.path, Lines: strings.Split(f.contents, "\n")}
	if err := opts.BeforeCompile(ctx, hf); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		f.fail(needsPreprocess, hookFailure("before-compile", err))
		return nil
	}
	f.text = strings.Join(hf.Lines, "\n")
	f.hookWarnings = f.hookIssues("before-compile", hf.Warnings)
	f.state = needsParse
	return nil
}

func (c *Compiler) parse(ctx context.Context, f *sourceFile) error {
	prog, err := syntax.Parse(f.path, f.text)
	if err != nil {
		issue, ok := cerrors.AsIssue(err)
		if !ok {
			return cerrors.AddContext(cerrors.Wrap(err, cerrors.CodeInternal, "parse"), cerrors.CtxPath, f.path)
		}
		f.fail(needsParse, issue)
		return nil
	}
	f.prog = prog
	f.state = needsBuild
	return nil
}

func (c *Compiler) build(opts *Options, f *sourceFile) error {
	res := builder.Build(f.prog, builder.Options{
		Builtins:         opts.Builtins,
		WarnMissingTypes: opts.WarnMissingTypes,
	})
	f.build = res
	if res.Failed() {
		f.fail(needsBuild, res.Errors...)
		return nil
	}
	f.state = needsGenerate
	return nil
}

func scopeKind(k model.Kind) scope.Kind {
	switch k {
	case model.KindClass:
		return scope.Class
	case model.KindEnum:
		return scope.Enum
	case model.KindType:
		return scope.TypeAlias
	case model.KindGlobalFunction:
		return scope.GlobalFunction
	case model.KindGlobalConst:
		return scope.GlobalConst
	default:
		return scope.Value
	}
}

// link resolves every file's imports against the exports of the final
// order and finishes its scopes. It returns the export table.
func (c *Compiler) link(ordered []*sourceFile) map[string]generator.Link {
	type exportRef struct {
		index int
		link  generator.Link
	}
	table := make(map[string]exportRef)
	for i, f := range ordered {
		if !f.built() {
			continue
		}
		for _, exp := range f.build.Exports {
			if _, ok := table[exp.Name]; ok {
				continue
			}
			table[exp.Name] = exportRef{index: i, link: generator.Link{Name: exp.Name, Kind: exp.Kind, File: f.path}}
		}
	}

	exports := make(map[string]generator.Link, len(table))
	for name, ref := range table {
		exports[name] = ref.link
	}

	for i, f := range ordered {
		if !f.built() {
			continue
		}
		links := make(map[string]generator.Link, len(f.build.Imports))
		kinds := make(map[string]scope.Kind, len(f.build.Imports))
		for _, imp := range f.build.Imports {
			var link generator.Link
			if ref, ok := table[imp.Name]; ok {
				link = ref.link
				link.Past = ref.index <= i
			} else if inherited, ok := c.inheritedExport(imp.Name); ok {
				link = inherited
				link.Past = true
			} else {
				f.linkWarnings = append(f.linkWarnings, cerrors.NewWarning(cerrors.IssueUnknownImport,
					imp.Line, imp.Column, "unknown import %q", imp.Name).At(f.path, 0, 0))
				continue
			}
			links[imp.Name] = link
			kinds[imp.Name] = scopeKind(link.Kind)
		}
		f.build.Scope.Finish(kinds)
		if f.setLinks(links) {
			f.reset(needsGenerate)
		}
	}
	return exports
}

func (c *Compiler) inheritedExport(name string) (generator.Link, bool) {
	for p := c.parent; p != nil; p = p.parent {
		if link, ok := p.exported(name); ok {
			return link, true
		}
	}
	return generator.Link{}, false
}

// typecheck sends the typecheck rendering of every usable file to the
// checker pool and turns its diagnostics into warnings.
func (c *Compiler) typecheck(ctx context.Context, opts *Options, ordered []*sourceFile, m *model.Model) ([]*cerrors.Issue, error) {
	pool, err := c.checkerPool(opts.Checker)
	if err != nil {
		return nil, err
	}

	err = c.runStage(ctx, "typecheck", ordered, needsGenerate, func(ctx context.Context, f *sourceFile) error {
		if len(f.linkErrors) > 0 {
			return nil
		}
		out, err := generator.Generate(generator.Input{
			Program: f.prog,
			Build:   f.build,
			Model:   m,
			Links:   f.links,
		}, generator.Options{Mode: generator.ModeTypecheck})
		if err != nil {
			issue, ok := cerrors.AsIssue(err)
			if !ok {
				return cerrors.AddContext(err, cerrors.CtxPath, f.path)
			}
			f.fail(needsGenerate, issue)
			return nil
		}
		f.checkText = strings.Join(out.Lines, "\n")
		return nil
	})
	if err != nil {
		return nil, err
	}

	var units []checker.Unit
	for _, f := range ordered {
		if f.failed() || len(f.linkErrors) > 0 || f.checkText == "" {
			continue
		}
		units = append(units, checker.Unit{Name: f.path, Text: f.checkText})
	}
	diags, err := pool.Check(ctx, checker.Unit{Name: typecheckDefsName, Text: generator.TypecheckDefs}, units)
	if err != nil {
		return nil, cerrors.AddContext(err, cerrors.CtxStage, "typecheck")
	}

	warnings := make([]*cerrors.Issue, 0, len(diags))
	for _, d := range diags {
		issue := cerrors.NewWarning(cerrors.IssueTypecheck, d.Line, d.Column, "TS%d: %s", d.Code, c.squeezer.Symbolicate(d.Reason))
		issue.File = d.FileName
		warnings = append(warnings, issue)
	}
	return warnings, nil
}

func (c *Compiler) checkerPool(opts CheckerOptions) (*checker.Pool, error) {
	if opts.Pool != nil {
		return opts.Pool, nil
	}
	key := opts.key()
	if c.pool != nil && c.poolKey == key {
		return c.pool, nil
	}
	if opts.Command == "" {
		return nil, cerrors.New(cerrors.CodeValidationError, "type checking needs a checker command")
	}
	if c.pool != nil {
		_ = c.pool.Close()
		c.pool, c.poolKey = nil, ""
	}

	n := opts.Workers
	if n < 1 {
		n = 1
	}
	workers := make([]checker.Worker, 0, n)
	for i := 0; i < n; i++ {
		w, err := checker.NewProcessWorker(opts.Command, opts.Args, nil)
		if err != nil {
			for _, started := range workers {
				_ = started.Close()
			}
			return nil, err
		}
		workers = append(workers, w)
	}
	c.pool = checker.NewPool(workers...)
	c.poolKey = key
	return c.pool, nil
}

// presqueeze assigns short names in file order before generation fans out,
// so the assignment does not depend on goroutine scheduling.
func (c *Compiler) presqueeze(ordered []*sourceFile) {
	if c.squeezer == nil {
		return
	}
	for _, f := range ordered {
		if !f.ready(needsGenerate) {
			continue
		}
		for _, name := range selectors(f.build.Annotations) {
			if _, err := c.squeezer.Squeeze(name.Identifier()); err != nil {
				// The generator reports exhaustion with a location.
				return
			}
		}
	}
}

// selectors lists the labeled selectors a file defines or calls, in node
// order.
func selectors(notes *builder.Annotations) []symbols.FuncName {
	ids := make([]syntax.NodeID, 0, len(notes.Funcs)+len(notes.Calls))
	names := make(map[syntax.NodeID]symbols.FuncName, cap(ids))
	for id, name := range notes.Funcs {
		ids = append(ids, id)
		names[id] = name
	}
	for id, name := range notes.Calls {
		ids = append(ids, id)
		names[id] = name
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })

	out := make([]symbols.FuncName, 0, len(ids))
	for _, id := range ids {
		if name := names[id]; name.HasLabels() {
			out = append(out, name)
		}
	}
	return out
}

func (c *Compiler) generate(ctx context.Context, opts *Options, m *model.Model, f *sourceFile) error {
	if len(f.linkErrors) > 0 {
		return nil
	}
	out, err := generator.Generate(generator.Input{
		Program: f.prog,
		Build:   f.build,
		Model:   m,
		Links:   f.links,
	}, generator.Options{Mode: opts.OutputLanguage, Squeezer: c.squeezer})
	if err != nil {
		issue, ok := cerrors.AsIssue(err)
		if !ok {
			return cerrors.AddContext(err, cerrors.CtxPath, f.path)
		}
		f.fail(needsGenerate, issue)
		return nil
	}

	lines, warnings := out.Lines, out.Warnings
	if opts.AfterCompile != nil && opts.OutputLanguage != generator.ModeNone {
		hf := &HookFile{Path: f.path, Lines: lines}
		if err := opts.AfterCompile(ctx, hf); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f.fail(needsGenerate, hookFailure("after-compile", err))
			return nil
		}
		lines = hf.Lines
		warnings = append(warnings, f.hookIssues("after-compile", hf.Warnings)...)
	}

	f.output = lines
	f.genWarnings = warnings
	f.verifyWarnings = nil
	if opts.VerifyOutput && len(lines) > 0 {
		dialect := verify.JavaScript
		if opts.OutputLanguage == generator.ModeTypecheck {
			dialect = verify.TypeScript
		}
		f.verifyWarnings = c.verifier.Check(f.path, lines, dialect)
	}
	f.generated++
	f.state = done
	return nil
}
