package errors

import (
	"errors"
	"fmt"
	"sort"
)

// IssueKind classifies compile diagnostics.
type IssueKind int

const (
	KindParse IssueKind = iota
	KindSemantic
	KindWarning
)

func (k IssueKind) String() string {
	switch k {
	case KindParse:
		return "parse"
	case KindSemantic:
		return "semantic"
	case KindWarning:
		return "warning"
	default:
		return "unknown"
	}
}

type IssueCode string

const (
	IssueSyntax              IssueCode = "SYNTAX"
	IssueDuplicate           IssueCode = "DUPLICATE_DECLARATION"
	IssueNonLiteral          IssueCode = "NON_LITERAL_INITIALIZER"
	IssueUnsupportedImport   IssueCode = "UNSUPPORTED_IMPORT"
	IssueUnsupportedExport   IssueCode = "UNSUPPORTED_EXPORT"
	IssueReservedIdentifier  IssueCode = "RESERVED_IDENTIFIER"
	IssueLabelAmbiguity      IssueCode = "LABEL_AMBIGUITY"
	IssueSqueezerExhausted   IssueCode = "SQUEEZER_EXHAUSTED"
	IssueUnknownImport       IssueCode = "UNKNOWN_IMPORT"
	IssueMissingType         IssueCode = "MISSING_TYPE"
	IssueUnknownSelector     IssueCode = "UNKNOWN_SELECTOR"
	IssueTypecheck           IssueCode = "TYPECHECK"
	IssueOutputSyntax        IssueCode = "OUTPUT_SYNTAX"
	IssueHook                IssueCode = "HOOK"
	IssueInvalidConstruction IssueCode = "INVALID_CONSTRUCTION"
)

// Issue is a user-facing compile diagnostic. Line and Column are 1-based;
// zero means unknown.
type Issue struct {
	Kind    IssueKind
	Code    IssueCode
	File    string
	Line    int
	Column  int
	Message string
}

func (i *Issue) Error() string {
	switch {
	case i.File != "" && i.Line > 0:
		return fmt.Sprintf("%s:%d:%d: %s", i.File, i.Line, i.Column, i.Message)
	case i.File != "":
		return fmt.Sprintf("%s: %s", i.File, i.Message)
	default:
		return i.Message
	}
}

// At fills in a location unless one is already set.
func (i *Issue) At(file string, line, column int) *Issue {
	if i.File == "" {
		i.File = file
	}
	if i.Line == 0 {
		i.Line = line
		i.Column = column
	}
	return i
}

func NewParseIssue(line, column int, format string, args ...interface{}) *Issue {
	return &Issue{Kind: KindParse, Code: IssueSyntax, Line: line, Column: column, Message: fmt.Sprintf(format, args...)}
}

func NewSemanticIssue(code IssueCode, line, column int, format string, args ...interface{}) *Issue {
	return &Issue{Kind: KindSemantic, Code: code, Line: line, Column: column, Message: fmt.Sprintf(format, args...)}
}

func NewWarning(code IssueCode, line, column int, format string, args ...interface{}) *Issue {
	return &Issue{Kind: KindWarning, Code: code, Line: line, Column: column, Message: fmt.Sprintf(format, args...)}
}

// AsIssue unwraps err to an *Issue.
func AsIssue(err error) (*Issue, bool) {
	var issue *Issue
	if errors.As(err, &issue) {
		return issue, true
	}
	return nil, false
}

// IsIssue reports whether err is a user-facing diagnostic rather than an
// internal failure.
func IsIssue(err error) bool {
	_, ok := AsIssue(err)
	return ok
}

// SortIssues orders issues by file, line, column and message, dropping exact
// duplicates.
func SortIssues(issues []*Issue) []*Issue {
	out := make([]*Issue, 0, len(issues))
	seen := make(map[string]bool, len(issues))
	for _, issue := range issues {
		if issue == nil {
			continue
		}
		key := fmt.Sprintf("%d|%s|%d|%d|%s", issue.Kind, issue.File, issue.Line, issue.Column, issue.Message)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, issue)
	}
	sort.SliceStable(out, func(a, b int) bool {
		x, y := out[a], out[b]
		if x.File != y.File {
			return x.File < y.File
		}
		if x.Line != y.Line {
			return x.Line < y.Line
		}
		if x.Column != y.Column {
			return x.Column < y.Column
		}
		return x.Message < y.Message
	})
	return out
}
