// Package compiler runs the per-file stages over a set of inputs and keeps
// their results between calls so unchanged files are not reprocessed.
package compiler

import (
	"context"
	"os"
	"runtime"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	cerrors "nilscript/internal/core/errors"
	"nilscript/internal/engine/checker"
	"nilscript/internal/engine/generator"
	"nilscript/internal/engine/model"
	"nilscript/internal/engine/symbols"
	"nilscript/internal/engine/verify"
	"nilscript/internal/shared/ctxlog"
	"nilscript/internal/shared/observability"
)

// Compiler is long-lived: each Compile call reuses what earlier calls
// produced for files whose contents did not change. A Compiler is safe for
// concurrent use; calls are serialized.
type Compiler struct {
	parent *Compiler

	mu       sync.Mutex
	files    map[string]*sourceFile
	model    *model.Model
	exports  map[string]generator.Link
	buildKey string
	genKey   string

	squeezer   *symbols.Squeezer
	squeezeKey string

	pool    *checker.Pool
	poolKey string

	verifier *verify.Verifier
}

// New returns a compiler. With a parent, the parent's model, exports and
// squeezer are visible to every file, and the runtime bootstrap is left
// out of the output.
func New(parent *Compiler) *Compiler {
	return &Compiler{
		parent: parent,
		files:  make(map[string]*sourceFile),
	}
}

// Model returns the model of the last successful compile.
func (c *Compiler) Model() *model.Model {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.model
}

// Squeezer returns the squeezer in use, or nil when squeezing is off.
func (c *Compiler) Squeezer() *symbols.Squeezer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.squeezer
}

func (c *Compiler) exported(name string) (generator.Link, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	link, ok := c.exports[name]
	return link, ok
}

// Close stops checker processes started by the compiler.
func (c *Compiler) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pool == nil {
		return nil
	}
	err := c.pool.Close()
	c.pool, c.poolKey = nil, ""
	return err
}

// Compile brings every file in opts up to date and assembles the output.
// Per-file problems are reported in the result; the returned error is set
// only for failures that abort the whole compile.
func (c *Compiler) Compile(ctx context.Context, opts Options) (*Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	ctx, span := observability.Tracer.Start(ctx, "compiler.Compile",
		trace.WithAttributes(attribute.Int("files", len(opts.Files))))
	defer span.End()
	logger := ctxlog.FromContext(ctx)

	res, err := c.compile(ctx, &opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("compile failed", "error", err)
		return nil, err
	}
	observability.CompileDuration.Observe(time.Since(start).Seconds())
	for _, issue := range res.Errors {
		observability.IssuesTotal.WithLabelValues(issue.Kind.String()).Inc()
	}
	for _, issue := range res.Warnings {
		observability.IssuesTotal.WithLabelValues(issue.Kind.String()).Inc()
	}
	logger.Debug("compile finished",
		"files", len(opts.Files),
		"errors", len(res.Errors),
		"warnings", len(res.Warnings),
		"duration", time.Since(start))
	return res, nil
}

func (c *Compiler) compile(ctx context.Context, opts *Options) (*Result, error) {
	logger := ctxlog.FromContext(ctx)

	files, err := c.reconcile(opts)
	if err != nil {
		return nil, err
	}
	c.applyOptions(opts, files)

	if err := c.runStage(ctx, "preprocess", files, needsPreprocess, func(ctx context.Context, f *sourceFile) error {
		return c.preprocess(ctx, opts, f)
	}); err != nil {
		return nil, err
	}
	if err := c.runStage(ctx, "parse", files, needsParse, c.parse); err != nil {
		return nil, err
	}
	if err := c.runStage(ctx, "build", files, needsBuild, func(ctx context.Context, f *sourceFile) error {
		return c.build(opts, f)
	}); err != nil {
		return nil, err
	}

	m, err := c.merge(files)
	if err != nil {
		return nil, err
	}
	ordered := reorder(files)
	exports := c.link(ordered)

	if m.HasGlobalChanges(c.model) {
		if c.model != nil {
			logger.Debug("model changed, regenerating all files", "names", m.ChangedNames(c.model))
		}
		for _, f := range files {
			f.reset(needsGenerate)
		}
	}

	var checkWarnings []*cerrors.Issue
	if opts.CheckTypes && opts.OutputLanguage != generator.ModeNone {
		if checkWarnings, err = c.typecheck(ctx, opts, ordered, m); err != nil {
			return nil, err
		}
	}

	if opts.VerifyOutput && c.verifier == nil {
		c.verifier = verify.New()
	}
	c.presqueeze(ordered)
	if err := c.runStage(ctx, "generate", ordered, needsGenerate, func(ctx context.Context, f *sourceFile) error {
		return c.generate(ctx, opts, m, f)
	}); err != nil {
		return nil, err
	}

	res, err := c.assemble(opts, ordered)
	if err != nil {
		return nil, err
	}
	res.Warnings = cerrors.SortIssues(append(res.Warnings, checkWarnings...))

	c.model = m
	c.exports = exports
	observability.ModelEntities.Set(float64(m.Len()))
	if c.squeezer != nil {
		observability.SqueezedSymbols.Set(float64(len(c.squeezer.Symbols())))
	}
	return res, nil
}

// reconcile matches the inputs against cached files by path. Files no
// longer listed are forgotten.
func (c *Compiler) reconcile(opts *Options) ([]*sourceFile, error) {
	seen := make(map[string]bool, len(opts.Files))
	files := make([]*sourceFile, 0, len(opts.Files))
	for _, in := range opts.Files {
		if seen[in.Path] {
			return nil, cerrors.AddContext(cerrors.New(cerrors.CodeConflict, "input listed more than once"), cerrors.CtxPath, in.Path)
		}
		seen[in.Path] = true

		contents, mtime := in.Contents, in.Time
		if contents == "" && mtime.IsZero() {
			data, err := os.ReadFile(in.Path)
			if err != nil {
				return nil, cerrors.AddContext(cerrors.Wrap(err, cerrors.CodeNotFound, "read input"), cerrors.CtxPath, in.Path)
			}
			if info, err := os.Stat(in.Path); err == nil {
				mtime = info.ModTime()
			}
			contents = string(data)
		}

		f, ok := c.files[in.Path]
		if !ok {
			f = newSourceFile(in.Path)
			c.files[in.Path] = f
		}
		f.update(contents, mtime)
		files = append(files, f)
	}
	for path := range c.files {
		if !seen[path] {
			delete(c.files, path)
		}
	}
	return files, nil
}

// applyOptions invalidates cached stages when options that shaped them
// changed since the previous compile.
func (c *Compiler) applyOptions(opts *Options, files []*sourceFile) {
	if key := opts.buildKey(); key != c.buildKey {
		for _, f := range files {
			f.reset(needsBuild)
		}
		c.buildKey = key
	}
	if key := opts.generationKey(); key != c.genKey {
		for _, f := range files {
			f.reset(needsGenerate)
		}
		c.genKey = key
	}

	key := opts.squeezeKey()
	switch {
	case !opts.Squeeze:
		c.squeezer = nil
	case c.squeezer == nil || key != c.squeezeKey:
		var parents []*symbols.Squeezer
		if c.parent != nil {
			if p := c.parent.Squeezer(); p != nil {
				parents = append(parents, p)
			}
		}
		if len(opts.SqueezeSeed) > 0 {
			parents = append(parents, symbols.FromSymbols(opts.SqueezeSeed))
		}
		c.squeezer = symbols.NewSqueezer(symbols.Options{
			StartIndex: opts.SqueezeStartIndex,
			EndIndex:   opts.SqueezeEndIndex,
			Builtins:   opts.SqueezeBuiltins,
		}, parents...)
	}
	c.squeezeKey = key
}

// runStage runs fn for every file waiting on stage s. Per-file problems are
// recorded on the file; an error from fn aborts the compile.
func (c *Compiler) runStage(ctx context.Context, name string, files []*sourceFile, s state, fn func(context.Context, *sourceFile) error) error {
	var todo []*sourceFile
	for _, f := range files {
		if f.ready(s) {
			todo = append(todo, f)
		}
	}
	if len(todo) == 0 {
		return nil
	}

	ctx, span := observability.Tracer.Start(ctx, "compiler."+name,
		trace.WithAttributes(attribute.Int("files", len(todo))))
	defer span.End()
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, f := range todo {
		f := f
		g.Go(func() error {
			if err := fn(gctx, f); err != nil {
				return cerrors.AddContext(err, cerrors.CtxStage, name)
			}
			return nil
		})
	}
	err := g.Wait()

	elapsed := time.Since(start)
	observability.StageDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	observability.FilesProcessedTotal.WithLabelValues(name).Add(float64(len(todo)))
	ctxlog.FromContext(ctx).Debug("stage finished", "stage", name, "files", len(todo), "duration", elapsed)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// merge builds a fresh whole-program model from every built file in input
// order. A name declared by two files is an error of the later one.
func (c *Compiler) merge(files []*sourceFile) (*model.Model, error) {
	var parents []*model.Model
	if c.parent != nil {
		if pm := c.parent.Model(); pm != nil {
			parents = append(parents, pm)
		}
	}
	m := model.New(parents...)
	for _, f := range files {
		f.linkErrors, f.linkWarnings = nil, nil
		if !f.built() {
			continue
		}
		for _, err := range m.Merge(f.build.Model) {
			issue, ok := cerrors.AsIssue(err)
			if !ok {
				return nil, err
			}
			f.linkErrors = append(f.linkErrors, issue.At(f.path, 0, 0))
		}
	}
	return m, nil
}
