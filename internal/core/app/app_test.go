package app

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nilscript/internal/core/config"
	"nilscript/internal/data/symbolstore"
)

type project struct {
	dir  string
	path string
}

func newProject(t *testing.T, toml string, sources map[string]string) *project {
	t.Helper()
	p := &project{dir: t.TempDir()}
	p.path = filepath.Join(p.dir, config.DefaultFileName)
	require.NoError(t, os.WriteFile(p.path, []byte(toml), 0o644))
	for name, src := range sources {
		p.write(t, name, src)
	}
	return p
}

func (p *project) write(t *testing.T, name, src string) {
	t.Helper()
	path := filepath.Join(p.dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
}

func (p *project) read(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(p.dir, filepath.FromSlash(name)))
	require.NoError(t, err)
	return string(data)
}

func (p *project) app(t *testing.T) *App {
	t.Helper()
	cfg, err := config.Load(p.path)
	require.NoError(t, err)
	a, err := New(cfg, p.path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

const outputsConfig = `
[build]
root = "src"
prepend = ["header.js"]
output = "dist/app.js"
source_map = "dist/app.js.map"
symbols = "dist/symbols.json"
function_map = "dist/funcmap.json"

[squeeze]
enabled = true
`

var sources = map[string]string{
	"header.js": "// generated",
	"src/a.ns":  "class A { func jump(to x: number) { } }",
	"src/b.ns":  "class B { func run(fast y: number) { } }\nnew B().run(fast: 1);",
}

func TestBuild_WritesOutputs(t *testing.T) {
	p := newProject(t, outputsConfig, sources)
	a := p.app(t)

	summary, err := a.Build(context.Background())
	require.NoError(t, err)
	require.Empty(t, summary.Result.Errors)
	assert.Equal(t, 2, summary.Files)
	assert.Len(t, summary.Written, 4)

	code := p.read(t, "dist/app.js")
	assert.True(t, strings.HasPrefix(code, "// generated\n"))
	assert.Contains(t, code, "class A")
	assert.True(t, strings.HasSuffix(code, "//# sourceMappingURL=app.js.map\n"))

	var sm map[string]any
	require.NoError(t, json.Unmarshal([]byte(p.read(t, "dist/app.js.map")), &sm))
	assert.Equal(t, []any{"a.ns", "b.ns"}, sm["sources"])

	var table map[string]string
	require.NoError(t, json.Unmarshal([]byte(p.read(t, "dist/symbols.json")), &table))
	if diff := cmp.Diff(map[string]string{"N$0": "N$f_jump_to", "N$1": "N$f_run_fast"}, table); diff != "" {
		t.Fatalf("symbols mismatch (-want +got):\n%s", diff)
	}

	lines, err := a.FunctionLines("a.ns")
	require.NoError(t, err)
	require.NotEmpty(t, lines)
	assert.Equal(t, symbolstore.FunctionLine{Path: "a.ns", Line: 1, Signature: "A.jump(to:)"}, lines[0])

	abs, err := a.FunctionLines(filepath.Join(p.dir, "src", "a.ns"))
	require.NoError(t, err)
	assert.Equal(t, lines, abs)

	text, err := a.Symbolicate("TypeError: a.N$0 is not a function")
	require.NoError(t, err)
	assert.Equal(t, "TypeError: a.jump(to:) is not a function", text)
}

func TestBuild_FailedCompileKeepsOutputs(t *testing.T) {
	p := newProject(t, outputsConfig, sources)
	a := p.app(t)
	_, err := a.Build(context.Background())
	require.NoError(t, err)
	before := p.read(t, "dist/app.js")

	p.write(t, "src/b.ns", "let a = (;")
	summary, err := a.Build(context.Background())
	require.NoError(t, err)
	require.True(t, summary.Result.Failed())
	assert.Equal(t, "b.ns", summary.Result.Errors[0].File)
	assert.Empty(t, summary.Written)
	assert.Equal(t, before, p.read(t, "dist/app.js"))

	health := NewHealthService(a).Check(context.Background())
	assert.Equal(t, "degraded", health.Status)
	assert.Contains(t, health.Components["build"], "failing")
}

func TestBuild_PersistsSqueezeMapAcrossRuns(t *testing.T) {
	cfg := `
[build]
root = "src"
output = "out.js"

[squeeze]
enabled = true

[db]
enabled = true
project_key = "demo"
`
	p := newProject(t, cfg, map[string]string{"src/b.ns": sources["src/a.ns"]})
	first := p.app(t)
	summary, err := first.Build(context.Background())
	require.NoError(t, err)
	require.Empty(t, summary.Result.Errors)
	assert.NotEmpty(t, summary.BuildID)
	require.NoError(t, first.Close())

	// a.ns now sorts first and introduces a new selector.
	p.write(t, "src/a.ns", sources["src/b.ns"])
	second := p.app(t)
	_, err = second.Build(context.Background())
	require.NoError(t, err)

	table, err := second.Store().LoadSqueezeMap("demo")
	require.NoError(t, err)
	assert.Equal(t, "N$f_jump_to", table["N$0"])
	assert.Equal(t, "N$f_run_fast", table["N$1"])
	assert.Contains(t, p.read(t, "out.js"), "new B().N$1(1);")

	lines, err := second.FunctionLines("a.ns")
	require.NoError(t, err)
	require.NotEmpty(t, lines)
	assert.Equal(t, "B.run(fast:)", lines[0].Signature)
}

func TestHealth_PendingBeforeFirstBuild(t *testing.T) {
	p := newProject(t, "", nil)
	a := p.app(t)
	health := NewHealthService(a).Check(context.Background())
	assert.Equal(t, "up", health.Status)
	assert.Equal(t, "pending", health.Components["build"])
}

func TestFunctionLines_NeedsSource(t *testing.T) {
	p := newProject(t, "", nil)
	_, err := p.app(t).FunctionLines("a.ns")
	require.Error(t, err)
}

func TestWatch_RebuildsOnChange(t *testing.T) {
	cfg := `
[build]
root = "src"
output = "out.js"

[watch]
debounce = "20ms"
reload_config = false
`
	p := newProject(t, cfg, map[string]string{"src/a.ns": "let a = 1;"})
	a := p.app(t)

	builds := make(chan Summary, 8)
	a.OnBuild(func(s Summary) { builds <- s })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Watch(ctx) }()
	defer func() {
		cancel()
		require.NoError(t, <-done)
	}()

	select {
	case <-builds:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for initial build")
	}

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	p.write(t, "src/a.ns", "let a = 2;")

	deadline := time.After(5 * time.Second)
	for {
		select {
		case <-builds:
			if strings.Contains(p.read(t, "out.js"), "let a = 2;") {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for rebuild")
		}
	}
}
