package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainError(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		err := New(CodeNotFound, "resource not found")
		if err.Error() != "[NOT_FOUND] resource not found" {
			t.Errorf("expected [NOT_FOUND] resource not found, got %s", err.Error())
		}
	})

	t.Run("Wrap", func(t *testing.T) {
		original := errors.New("original error")
		err := Wrap(original, CodeInternal, "internal failure")
		expected := "[INTERNAL_ERROR] internal failure: original error"
		if err.Error() != expected {
			t.Errorf("expected %s, got %s", expected, err.Error())
		}
	})

	t.Run("IsCode", func(t *testing.T) {
		err := New(CodeValidationError, "invalid input")
		if !IsCode(err, CodeValidationError) {
			t.Error("expected IsCode to return true for CodeValidationError")
		}
		if IsCode(err, CodeNotFound) {
			t.Error("expected IsCode to return false for CodeNotFound")
		}
	})

	t.Run("AddContextPromotesPlainErrors", func(t *testing.T) {
		err := AddContext(errors.New("disk full"), CtxPath, "out.js")
		if !IsCode(err, CodeInternal) {
			t.Errorf("expected internal code, got %v", err)
		}
	})
}

func TestIssue(t *testing.T) {
	t.Run("Format", func(t *testing.T) {
		issue := NewParseIssue(3, 7, "unexpected token %q", "}").At("a.ns", 0, 0)
		if got, want := issue.Error(), `a.ns:3:7: unexpected token "}"`; got != want {
			t.Errorf("want %s, got %s", want, got)
		}
	})

	t.Run("AtKeepsExistingLocation", func(t *testing.T) {
		issue := NewSemanticIssue(IssueDuplicate, 2, 1, "dup").At("a.ns", 9, 9)
		if issue.Line != 2 || issue.Column != 1 {
			t.Errorf("location overwritten: %d:%d", issue.Line, issue.Column)
		}
	})

	t.Run("AsIssueThroughWrapping", func(t *testing.T) {
		err := fmt.Errorf("build: %w", NewSemanticIssue(IssueNonLiteral, 1, 1, "bad"))
		if !IsIssue(err) {
			t.Fatal("expected wrapped issue to be detected")
		}
		if IsIssue(New(CodeInternal, "boom")) {
			t.Error("domain errors are not issues")
		}
	})

	t.Run("SortIssuesDedupes", func(t *testing.T) {
		issues := SortIssues([]*Issue{
			{File: "b.ns", Line: 1, Message: "x"},
			{File: "a.ns", Line: 4, Message: "y"},
			{File: "a.ns", Line: 2, Message: "z"},
			{File: "a.ns", Line: 2, Message: "z"},
			nil,
		})
		if len(issues) != 3 {
			t.Fatalf("expected 3 issues, got %d", len(issues))
		}
		if issues[0].Line != 2 || issues[1].Line != 4 || issues[2].File != "b.ns" {
			t.Errorf("unexpected order: %v", issues)
		}
	})
}
