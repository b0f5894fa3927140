package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	coreapp "nilscript/internal/core/app"
	cerrors "nilscript/internal/core/errors"
	"nilscript/internal/core/config"
	"nilscript/internal/data/symbolstore"
	"nilscript/internal/engine/compiler"
)

func TestParseOptions_Defaults(t *testing.T) {
	opts, err := parseOptions(nil, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	if opts.command != cmdBuild || opts.configPath != "./nilscript.toml" {
		t.Fatalf("unexpected defaults: %+v", opts)
	}
}

func TestParseOptions_Commands(t *testing.T) {
	opts, err := parseOptions([]string{"-verbose", "symbolicate", "at", "N$0"}, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	if opts.command != cmdSymbolicate || strings.Join(opts.args, " ") != "at N$0" || !opts.verbose {
		t.Fatalf("unexpected options: %+v", opts)
	}

	cases := map[string][]string{
		"unknown command":    {"deploy"},
		"funcmap argument":   {"funcmap"},
		"watch only build":   {"-watch", "funcmap", "a.ns"},
		"build has no files": {"build", "a.ns"},
	}
	for name, args := range cases {
		if _, err := parseOptions(args, io.Discard); err == nil {
			t.Fatalf("%s: expected error for %v", name, args)
		}
	}
}

func TestReporter_PlainSummary(t *testing.T) {
	var buf bytes.Buffer
	rep := newReporter(&buf, false)
	rep.Summary(coreapp.Summary{
		Files:    2,
		Duration: 1500 * time.Microsecond,
		Result: &compiler.Result{
			Errors: []*cerrors.Issue{
				cerrors.NewParseIssue(3, 7, "unexpected ';'").At("a.ns", 0, 0),
			},
			Warnings: []*cerrors.Issue{
				cerrors.NewWarning(cerrors.IssueUnknownImport, 1, 1, "unknown import %q", "Missing").At("b.ns", 0, 0),
			},
		},
	})
	got := buf.String()
	for _, want := range []string{
		"a.ns:3:7: error: unexpected ';' [SYNTAX]",
		"b.ns:1:1: warning: unknown import \"Missing\" [UNKNOWN_IMPORT]",
		"✗ build failed: 1 errors, 1 warnings in 2 files (2ms)",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in output:\n%s", want, got)
		}
	}
	if strings.Contains(got, "\x1b[") {
		t.Fatalf("expected no escape codes in plain output:\n%s", got)
	}
}

func TestReporter_FunctionLines(t *testing.T) {
	var buf bytes.Buffer
	newReporter(&buf, false).FunctionLines([]symbolstore.FunctionLine{
		{Path: "a.ns", Line: 1, Signature: "A.jump(to:)"},
		{Path: "a.ns", Line: 4},
	})
	if got := buf.String(); got != "1\tA.jump(to:)\n4\t-\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestColorEnabled_NonTerminal(t *testing.T) {
	if colorEnabled(&bytes.Buffer{}) {
		t.Fatal("expected no colour for a buffer")
	}
}

func writeProject(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	cfg := "[build]\nroot = \"src\"\noutput = \"out.js\"\nsymbols = \"symbols.json\"\nfunction_map = \"funcmap.json\"\n\n[squeeze]\nenabled = true\n"
	if err := os.WriteFile(filepath.Join(dir, config.DefaultFileName), []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "src"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "src", "a.ns"), []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	return filepath.Join(dir, config.DefaultFileName)
}

func TestRun_BuildSymbolicateFuncmap(t *testing.T) {
	cfgPath := writeProject(t, "class A { func jump(to x: number) { } }")

	var stdout, stderr bytes.Buffer
	if code := run([]string{"-config", cfgPath, "-no-color"}, nil, &stdout, &stderr); code != 0 {
		t.Fatalf("build exited %d: %s%s", code, stdout.String(), stderr.String())
	}
	if !strings.Contains(stdout.String(), "✓ built 1 files with") {
		t.Fatalf("unexpected build output: %s", stdout.String())
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(cfgPath), "out.js")); err != nil {
		t.Fatalf("expected output file: %v", err)
	}

	stdout.Reset()
	if code := run([]string{"-config", cfgPath, "symbolicate"}, strings.NewReader("x.N$0 is not a function\n"), &stdout, &stderr); code != 0 {
		t.Fatalf("symbolicate exited %d: %s", code, stderr.String())
	}
	if got := stdout.String(); got != "x.jump(to:) is not a function\n" {
		t.Fatalf("unexpected symbolicate output %q", got)
	}

	stdout.Reset()
	if code := run([]string{"-config", cfgPath, "funcmap", "a.ns"}, nil, &stdout, &stderr); code != 0 {
		t.Fatalf("funcmap exited %d: %s", code, stderr.String())
	}
	if !strings.HasPrefix(stdout.String(), "1\tA.jump(to:)\n") {
		t.Fatalf("unexpected funcmap output %q", stdout.String())
	}
}

func TestRun_FailedBuildExitsNonZero(t *testing.T) {
	cfgPath := writeProject(t, "let a = (;")
	var stdout, stderr bytes.Buffer
	if code := run([]string{"-config", cfgPath, "-no-color"}, nil, &stdout, &stderr); code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(stdout.String(), "a.ns:1:") {
		t.Fatalf("expected located diagnostic, got %s", stdout.String())
	}
}

func TestRun_Version(t *testing.T) {
	var stdout bytes.Buffer
	if code := run([]string{"-version"}, nil, &stdout, io.Discard); code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if stdout.String() != "nilscript v"+versionString+"\n" {
		t.Fatalf("unexpected version output %q", stdout.String())
	}
}

func TestObservabilityServer_Health(t *testing.T) {
	cfgPath := writeProject(t, "let a = 1;")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	a, err := coreapp.New(cfg, cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	if _, err := a.Build(context.Background()); err != nil {
		t.Fatal(err)
	}

	server := NewObservabilityServer("127.0.0.1:0", coreapp.NewHealthService(a))
	if err := server.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer server.Stop(context.Background())

	resp, err := http.Get("http://" + server.Addr() + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var status coreapp.HealthStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatal(err)
	}
	if status.Status != "up" || !strings.HasPrefix(status.Components["build"], "ok (1 files") {
		t.Fatalf("unexpected health: %+v", status)
	}

	metrics, err := http.Get("http://" + server.Addr() + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer metrics.Body.Close()
	body, err := io.ReadAll(metrics.Body)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(body), "nilscript_compile_seconds") {
		t.Fatal("expected compile metrics to be exported")
	}
}
