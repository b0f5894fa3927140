// Package verify re-parses generated output with tree-sitter and reports
// syntax errors as warnings.
package verify

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	cerrors "nilscript/internal/core/errors"
)

type Dialect int

const (
	JavaScript Dialect = iota
	TypeScript
)

// maxIssuesPerUnit caps reports for badly broken output.
const maxIssuesPerUnit = 5

type Verifier struct {
	pools map[Dialect]*ParserPool
}

func New() *Verifier {
	return &Verifier{pools: map[Dialect]*ParserPool{
		JavaScript: NewParserPool(sitter.NewLanguage(tree_sitter_javascript.Language())),
		TypeScript: NewParserPool(sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript())),
	}}
}

// Check parses lines as one unit of the dialect. Issue locations are the
// 1-based positions within lines, attributed to path.
func (v *Verifier) Check(path string, lines []string, dialect Dialect) []*cerrors.Issue {
	pool := v.pools[dialect]
	sp := pool.Get()
	defer pool.Put(sp)

	src := []byte(strings.Join(lines, "\n"))
	tree := sp.Parse(src, nil)
	if tree == nil {
		issue := cerrors.NewWarning(cerrors.IssueOutputSyntax, 0, 0, "generated output could not be parsed")
		issue.File = path
		return []*cerrors.Issue{issue}
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil || !root.HasError() {
		return nil
	}
	var issues []*cerrors.Issue
	collect(root, func(node *sitter.Node, missing bool) bool {
		pos := node.StartPosition()
		var issue *cerrors.Issue
		if missing {
			issue = cerrors.NewWarning(cerrors.IssueOutputSyntax, int(pos.Row)+1, int(pos.Column)+1,
				"generated output is missing %q", node.Kind())
		} else {
			issue = cerrors.NewWarning(cerrors.IssueOutputSyntax, int(pos.Row)+1, int(pos.Column)+1,
				"generated output has a syntax error near %q", snippet(src, node))
		}
		issue.File = path
		issues = append(issues, issue)
		return len(issues) < maxIssuesPerUnit
	})
	return issues
}

// collect walks the error and missing nodes below node. It stops once
// report returns false.
func collect(node *sitter.Node, report func(*sitter.Node, bool) bool) bool {
	if node.IsMissing() {
		return report(node, true)
	}
	if node.IsError() {
		return report(node, false)
	}
	if !node.HasError() {
		return true
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		if !collect(node.Child(i), report) {
			return false
		}
	}
	return true
}

func snippet(src []byte, node *sitter.Node) string {
	text := string(src[node.StartByte():node.EndByte()])
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	if len(text) > 40 {
		text = text[:40]
	}
	return text
}
