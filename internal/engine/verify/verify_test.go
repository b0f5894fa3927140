package verify

import (
	"sync"
	"testing"

	cerrors "nilscript/internal/core/errors"
)

func TestVerifier_AcceptsValidOutput(t *testing.T) {
	v := New()
	js := []string{`(function(){"use strict";class A { constructor(...N$args) { N$$_.i(this, N$args); } }`, `})();`}
	if issues := v.Check("a.ns", js, JavaScript); len(issues) != 0 {
		t.Fatalf("expected no issues for valid JavaScript, got %v", issues)
	}
	ts := []string{"enum Color { Red = 0 }", "let c: Color = Color.Red;"}
	if issues := v.Check("a.ns", ts, TypeScript); len(issues) != 0 {
		t.Fatalf("expected no issues for valid TypeScript, got %v", issues)
	}
}

func TestVerifier_ReportsSyntaxErrors(t *testing.T) {
	v := New()
	issues := v.Check("b.ns", []string{"let a = 1;", "let b = (;"}, JavaScript)
	if len(issues) == 0 {
		t.Fatal("expected a syntax issue")
	}
	first := issues[0]
	if first.Kind != cerrors.KindWarning || first.Code != cerrors.IssueOutputSyntax {
		t.Errorf("unexpected issue kind/code: %v %v", first.Kind, first.Code)
	}
	if first.File != "b.ns" || first.Line != 2 {
		t.Errorf("expected b.ns line 2, got %s line %d", first.File, first.Line)
	}
}

func TestVerifier_TypeScriptOnlySyntaxFailsAsJavaScript(t *testing.T) {
	v := New()
	src := []string{"let x: number = 1;"}
	if issues := v.Check("c.ns", src, TypeScript); len(issues) != 0 {
		t.Fatalf("expected valid TypeScript, got %v", issues)
	}
	if issues := v.Check("c.ns", src, JavaScript); len(issues) == 0 {
		t.Fatal("expected type annotation to be rejected as JavaScript")
	}
}

func TestParserPool_ConcurrentAccess(t *testing.T) {
	v := New()
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				v.Check("d.ns", []string{"var a = [1, 2, 3];"}, JavaScript)
			}
		}()
	}
	wg.Wait()
	if n := v.pools[JavaScript].Leased(); n != 0 {
		t.Fatalf("expected all parsers returned, %d still leased", n)
	}
	v.pools[JavaScript].Put(nil)
}
