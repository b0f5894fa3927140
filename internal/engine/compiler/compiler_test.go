package compiler

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "nilscript/internal/core/errors"
	"nilscript/internal/engine/checker"
	"nilscript/internal/engine/generator"
	"nilscript/internal/engine/sourcemap"
)

func files(pairs ...string) []File {
	out := make([]File, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, File{Path: pairs[i], Contents: pairs[i+1]})
	}
	return out
}

func compile(t *testing.T, c *Compiler, opts Options) *Result {
	t.Helper()
	res, err := c.Compile(context.Background(), opts)
	require.NoError(t, err)
	return res
}

// counter records how often a hook ran per path.
type counter struct {
	mu    sync.Mutex
	calls map[string]int
}

func newCounter() *counter {
	return &counter{calls: make(map[string]int)}
}

func (c *counter) hook(ctx context.Context, f *HookFile) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[f.Path]++
	return nil
}

func (c *counter) take() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.calls
	c.calls = make(map[string]int)
	return out
}

func TestCompile_SubclassFollowsSuperclassFile(t *testing.T) {
	c := New(nil)
	res := compile(t, c, Options{Files: files(
		"sub.ns", "import { Base };\nclass Sub extends Base { func area(): number { return 1; } }",
		"base.ns", "export class Base { prop x: number = 1; }",
	)})
	require.Empty(t, res.Errors)

	code := res.Code
	assert.True(t, strings.HasPrefix(code, "var N$$_ = (function() {"))
	base := strings.Index(code, "class Base")
	sub := strings.Index(code, "class Sub")
	require.True(t, base >= 0 && sub >= 0)
	assert.Less(t, base, sub)
	assert.Contains(t, code, "const Base = N$$_.x.Base;")
	assert.Contains(t, code, "N$$_.x.Base = Base;")
}

func TestCompile_ReorderFollowsChains(t *testing.T) {
	c := New(nil)
	res := compile(t, c, Options{Files: files(
		"c.ns", "import { B };\nclass C extends B { }",
		"b.ns", "import { A };\nexport class B extends A { }",
		"a.ns", "export class A { }",
		"d.ns", "let d = 1;",
	)})
	require.Empty(t, res.Errors)

	var order []int
	for _, marker := range []string{"class A", "class B", "class C", "let d"} {
		i := strings.Index(res.Code, marker)
		require.GreaterOrEqual(t, i, 0, marker)
		order = append(order, i)
	}
	assert.Less(t, order[0], order[1])
	assert.Less(t, order[1], order[2])
	assert.Less(t, order[2], order[3])
}

func TestCompile_UnrelatedFilesKeepInputOrder(t *testing.T) {
	c := New(nil)
	res := compile(t, c, Options{Files: files(
		"z.ns", "let z = 1;",
		"a.ns", "let a = 2;",
		"m.ns", "let m = 3;",
	)})
	z, a, m := strings.Index(res.Code, "let z"), strings.Index(res.Code, "let a"), strings.Index(res.Code, "let m")
	assert.Less(t, z, a)
	assert.Less(t, a, m)
}

func TestCompile_FutureImportsUseRegistry(t *testing.T) {
	c := New(nil)
	res := compile(t, c, Options{Files: files(
		"a.ns", "import { Later };\nlet l = new Later();",
		"b.ns", "export class Later { }",
	)})
	require.Empty(t, res.Errors)
	assert.Contains(t, res.Code, "let l = new N$$_.x.Later();")
	assert.NotContains(t, res.Code, "const Later")
}

func TestCompile_UnknownImportWarns(t *testing.T) {
	c := New(nil)
	res := compile(t, c, Options{Files: files("a.ns", "import { Missing };\nlet x = 1;")})
	require.Empty(t, res.Errors)
	require.Len(t, res.Warnings, 1)
	w := res.Warnings[0]
	assert.Equal(t, cerrors.IssueUnknownImport, w.Code)
	assert.Equal(t, "a.ns", w.File)
	assert.Equal(t, 1, w.Line)
}

func TestCompile_ReusesUnchangedFiles(t *testing.T) {
	before, after := newCounter(), newCounter()
	c := New(nil)
	opts := func(pairs ...string) Options {
		return Options{Files: files(pairs...), BeforeCompile: before.hook, AfterCompile: after.hook}
	}

	first := compile(t, c, opts("a.ns", "let m = Mode.B;", "b.ns", "enum Mode { A, B }\nlet y = 1;"))
	require.Empty(t, first.Errors)
	assert.Contains(t, first.Code, "let m = 1;")
	assert.Equal(t, map[string]int{"a.ns": 1, "b.ns": 1}, before.take())
	assert.Equal(t, map[string]int{"a.ns": 1, "b.ns": 1}, after.take())
	prog := c.files["a.ns"].prog
	generated := c.files["a.ns"].generated
	assert.Equal(t, 1, generated)

	second := compile(t, c, opts("a.ns", "let m = Mode.B;", "b.ns", "enum Mode { A, B }\nlet y = 1;"))
	assert.Equal(t, first.Code, second.Code)
	assert.Empty(t, before.take())
	assert.Empty(t, after.take())

	// A body-only change regenerates just that file.
	third := compile(t, c, opts("a.ns", "let m = Mode.B;", "b.ns", "enum Mode { A, B }\nlet y = 2;"))
	assert.Contains(t, third.Code, "let y = 2;")
	assert.Equal(t, map[string]int{"b.ns": 1}, before.take())
	assert.Equal(t, map[string]int{"b.ns": 1}, after.take())
	assert.Equal(t, generated, c.files["a.ns"].generated)

	// A changed enum value regenerates dependents without reparsing them.
	fourth := compile(t, c, opts("a.ns", "let m = Mode.B;", "b.ns", "enum Mode { A, B = 5 }\nlet y = 2;"))
	assert.Contains(t, fourth.Code, "let m = 5;")
	assert.Equal(t, map[string]int{"b.ns": 1}, before.take())
	assert.Equal(t, map[string]int{"a.ns": 1, "b.ns": 1}, after.take())
	assert.Same(t, prog, c.files["a.ns"].prog)
	assert.Equal(t, 1, c.files["a.ns"].version)
	assert.Greater(t, c.files["a.ns"].generated, generated)
}

func TestCompile_ForgetsRemovedFiles(t *testing.T) {
	c := New(nil)
	compile(t, c, Options{Files: files("a.ns", "let a = 1;", "b.ns", "let b = 2;")})
	res := compile(t, c, Options{Files: files("a.ns", "let a = 1;")})
	assert.NotContains(t, res.Code, "let b")
	assert.Len(t, c.files, 1)
}

func TestCompile_ParseErrorIsIsolated(t *testing.T) {
	before := newCounter()
	c := New(nil)
	res := compile(t, c, Options{
		Files:         files("a.ns", "let a = (;", "b.ns", "let b = 2;"),
		BeforeCompile: before.hook,
	})
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "a.ns", res.Errors[0].File)
	assert.Equal(t, cerrors.KindParse, res.Errors[0].Kind)
	assert.Contains(t, res.Code, "let b = 2;")
	before.take()

	again := compile(t, c, Options{
		Files:         files("a.ns", "let a = (;", "b.ns", "let b = 2;"),
		BeforeCompile: before.hook,
	})
	assert.Len(t, again.Errors, 1)
	assert.Empty(t, before.take())

	fixed := compile(t, c, Options{
		Files:         files("a.ns", "let a = 1;", "b.ns", "let b = 2;"),
		BeforeCompile: before.hook,
	})
	assert.Empty(t, fixed.Errors)
	assert.Contains(t, fixed.Code, "let a = 1;")
}

func TestCompile_DuplicateBelongsToLaterFile(t *testing.T) {
	c := New(nil)
	res := compile(t, c, Options{Files: files(
		"a.ns", "class A { func first() { } }",
		"b.ns", "class A { func second() { } }",
	)})
	require.Len(t, res.Errors, 1)
	assert.Equal(t, cerrors.IssueDuplicate, res.Errors[0].Code)
	assert.Equal(t, "b.ns", res.Errors[0].File)
	assert.Contains(t, res.Code, "first()")
	assert.NotContains(t, res.Code, "second()")

	res = compile(t, c, Options{Files: files(
		"a.ns", "class A { func first() { } }",
		"b.ns", "class B { func second() { } }",
	)})
	assert.Empty(t, res.Errors)
	assert.Contains(t, res.Code, "second()")
}

func TestCompile_Hooks(t *testing.T) {
	c := New(nil)
	res := compile(t, c, Options{
		Files: files("a.ns", "let v = VERSION;", "b.ns", "let b = 1;", "c.ns", "let c = 1;"),
		BeforeCompile: func(ctx context.Context, f *HookFile) error {
			if f.Path == "c.ns" {
				return errors.New("refused")
			}
			for i, line := range f.Lines {
				f.Lines[i] = strings.ReplaceAll(line, "VERSION", `"1.0"`)
			}
			if f.Path == "a.ns" {
				f.Warnings = append(f.Warnings, "version inlined")
			}
			return nil
		},
		AfterCompile: func(ctx context.Context, f *HookFile) error {
			f.Lines = append(f.Lines, "// "+f.Path)
			return nil
		},
	})
	require.Len(t, res.Errors, 1)
	assert.Equal(t, cerrors.IssueHook, res.Errors[0].Code)
	assert.Equal(t, "c.ns", res.Errors[0].File)

	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "a.ns", res.Warnings[0].File)
	assert.Contains(t, res.Warnings[0].Message, "version inlined")

	assert.Contains(t, res.Code, `let v = "1.0";`)
	assert.Contains(t, res.Code, "// a.ns")
	assert.Contains(t, res.Code, "// b.ns")
	assert.NotContains(t, res.Code, "let c")
}

func TestCompile_SqueezeIsDeterministic(t *testing.T) {
	opts := Options{
		Files: files(
			"a.ns", "class A { func jump(to x: number) { } }",
			"b.ns", "class B { func run(fast y: number) { } }\nnew B().run(fast: 1);",
		),
		Squeeze:        true,
		IncludeSymbols: true,
	}
	want := map[string]string{"N$0": "N$f_jump_to", "N$1": "N$f_run_fast"}
	for i := 0; i < 3; i++ {
		res := compile(t, New(nil), opts)
		require.Empty(t, res.Errors)
		if diff := cmp.Diff(want, res.Symbols); diff != "" {
			t.Fatalf("symbols mismatch (-want +got):\n%s", diff)
		}
		assert.Contains(t, res.Code, "new B().N$1(1);")
	}
}

func TestCompile_SqueezeSeedKeepsNames(t *testing.T) {
	c := New(nil)
	res := compile(t, c, Options{
		Files:          files("a.ns", "class A { func jump(to x: number) { } }"),
		Squeeze:        true,
		SqueezeSeed:    map[string]string{"N$7": "N$f_jump_to"},
		IncludeSymbols: true,
	})
	assert.Contains(t, res.Code, "N$7(x)")
	assert.Equal(t, "N$f_jump_to", res.Symbols["N$7"])
}

func TestCompile_SqueezeExhaustionFailsFile(t *testing.T) {
	c := New(nil)
	res := compile(t, c, Options{
		Files:             files("a.ns", "class A { func a(x: number) { } func b(y: number) { } }", "b.ns", "let b = 1;"),
		Squeeze:           true,
		SqueezeStartIndex: 3,
		SqueezeEndIndex:   3,
	})
	require.Len(t, res.Errors, 1)
	assert.Equal(t, cerrors.IssueSqueezerExhausted, res.Errors[0].Code)
	assert.Equal(t, "a.ns", res.Errors[0].File)
	assert.Contains(t, res.Code, "let b = 1;")
}

func TestCompile_TypecheckDiagnostics(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	pool := checker.NewPool(checker.WorkerFunc(func(ctx context.Context, req checker.Request) ([]checker.Diagnostic, error) {
		mu.Lock()
		defer mu.Unlock()
		var out []checker.Diagnostic
		for _, u := range req.Units {
			seen = append(seen, u.Name)
			if strings.Contains(u.Text, "x: number") {
				out = append(out, checker.Diagnostic{FileName: u.Name, Line: 1, Column: 11, Code: 2339,
					Reason: "Property 'N$f_jump_to' does not exist on type 'B'."})
			}
		}
		return out, nil
	}))

	c := New(nil)
	res := compile(t, c, Options{
		Files:      files("a.ns", "class A { func jump(to x: number) { } }", "b.ns", "let b = 1;"),
		CheckTypes: true,
		Checker:    CheckerOptions{Pool: pool},
	})
	require.Len(t, res.Warnings, 1)
	w := res.Warnings[0]
	assert.Equal(t, cerrors.IssueTypecheck, w.Code)
	assert.Equal(t, "a.ns", w.File)
	assert.Equal(t, "TS2339: Property 'jump(to:)' does not exist on type 'B'.", w.Message)
	assert.ElementsMatch(t, []string{typecheckDefsName, "a.ns", "b.ns"}, seen)
}

func TestCompile_TypecheckNeedsChecker(t *testing.T) {
	c := New(nil)
	_, err := c.Compile(context.Background(), Options{Files: files("a.ns", "let a = 1;"), CheckTypes: true})
	require.Error(t, err)
	assert.True(t, cerrors.IsCode(err, cerrors.CodeValidationError))
}

func TestCompile_SourceMapAndFunctionMap(t *testing.T) {
	src := `class Point {
  func moveTo(to p: Point) {
    return p;
  }
}
function helper() { }`
	c := New(nil)
	res := compile(t, c, Options{
		Files:              files("point.ns", src),
		OutputFile:         "out.js",
		IncludeMap:         true,
		IncludeFunctionMap: true,
	})
	require.Empty(t, res.Errors)

	var m sourcemap.Map
	require.NoError(t, json.Unmarshal(res.Map, &m))
	assert.Equal(t, 3, m.Version)
	assert.Equal(t, "out.js", m.File)
	assert.Equal(t, []string{"point.ns"}, m.Sources)
	assert.Equal(t, len(strings.Split(res.Code, "\n")), len(strings.Split(m.Mappings, ";")))

	want := []FuncMapEntry{
		{2, "Point.moveTo(to:)"},
		{5, nil},
		{6, "helper"},
		{7, nil},
	}
	if diff := cmp.Diff(want, res.FunctionMap["point.ns"]); diff != "" {
		t.Errorf("function map mismatch (-want +got):\n%s", diff)
	}

	renamed := compile(t, c, Options{
		Files:              files("point.ns", strings.Replace(src, "helper", "assist", 1)),
		OutputFile:         "out.js",
		IncludeFunctionMap: true,
	})
	require.Empty(t, renamed.Errors)
	assert.Equal(t, FuncMapEntry{6, "assist"}, renamed.FunctionMap["point.ns"][2])
}

func TestCompile_ParentProvidesModelAndExports(t *testing.T) {
	parent := New(nil)
	res := compile(t, parent, Options{Files: files("lib.ns", "export class Base { }\nglobal const LIMIT = 3;")})
	require.Empty(t, res.Errors)

	child := New(parent)
	res = compile(t, child, Options{Files: files("app.ns", "import { Base };\nclass Sub extends Base { }\nlet n = LIMIT;")})
	require.Empty(t, res.Errors)
	require.Empty(t, res.Warnings)
	assert.NotContains(t, res.Code, "var N$$_ =")
	assert.Contains(t, res.Code, "const Base = N$$_.x.Base;")
	assert.Contains(t, res.Code, "let n = 3;")
}

func TestCompile_OutputLanguages(t *testing.T) {
	src := files("a.ns", "enum E { A }\nlet x: number = E.A;")

	none := compile(t, New(nil), Options{Files: src, OutputLanguage: generator.ModeNone})
	assert.Empty(t, none.Code)
	assert.Empty(t, none.Errors)

	tc := compile(t, New(nil), Options{Files: src, OutputLanguage: generator.ModeTypecheck})
	assert.True(t, strings.HasPrefix(tc.Code, "declare const N$$_"))
	assert.Contains(t, tc.Code, "let x: number = E.A;")

	c := New(nil)
	plain := compile(t, c, Options{Files: src})
	assert.Contains(t, plain.Code, "let x = 0;")
	switched := compile(t, c, Options{Files: src, OutputLanguage: generator.ModeTypecheck})
	assert.Contains(t, switched.Code, "enum E { A = 0 }")
}

func TestCompile_VerifyOutputReportsBrokenText(t *testing.T) {
	c := New(nil)
	res := compile(t, c, Options{
		Files:        files("a.ns", "let a = 1;"),
		VerifyOutput: true,
		AfterCompile: func(ctx context.Context, f *HookFile) error {
			f.Lines = append(f.Lines, "let a = (;")
			return nil
		},
	})
	require.NotEmpty(t, res.Warnings)
	assert.Equal(t, cerrors.IssueOutputSyntax, res.Warnings[0].Code)
	assert.Equal(t, "a.ns", res.Warnings[0].File)
}

func TestCompile_ReadsFilesFromDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.ns")
	require.NoError(t, os.WriteFile(path, []byte("let a = 1;"), 0o644))

	res := compile(t, New(nil), Options{Files: []File{{Path: path}}})
	assert.Contains(t, res.Code, "let a = 1;")

	_, err := New(nil).Compile(context.Background(), Options{Files: []File{{Path: filepath.Join(dir, "missing.ns")}}})
	require.Error(t, err)
	assert.True(t, cerrors.IsCode(err, cerrors.CodeNotFound))
}

func TestCompile_RejectsRepeatedInput(t *testing.T) {
	_, err := New(nil).Compile(context.Background(), Options{Files: files("a.ns", "let a;", "a.ns", "let b;")})
	require.Error(t, err)
	assert.True(t, cerrors.IsCode(err, cerrors.CodeConflict))
}
