package compiler

import (
	"fmt"
	"sort"
	"strings"
	"time"

	cerrors "nilscript/internal/core/errors"
	"nilscript/internal/engine/builder"
	"nilscript/internal/engine/generator"
	"nilscript/internal/engine/syntax"
)

// state is the next stage a file needs. Later stages imply earlier ones
// are current.
type state int

const (
	needsPreprocess state = iota
	needsParse
	needsBuild
	needsGenerate
	done
)

func (s state) String() string {
	switch s {
	case needsPreprocess:
		return "preprocess"
	case needsParse:
		return "parse"
	case needsBuild:
		return "build"
	case needsGenerate:
		return "generate"
	case done:
		return "done"
	default:
		return "unknown"
	}
}

// sourceFile is the cached per-file compile state. Each stage only touches
// its own file, so stages can run files concurrently.
type sourceFile struct {
	path     string
	contents string
	time     time.Time
	// version counts content changes; generated counts successful
	// generations and always moves forward.
	version   int
	generated int

	// funcMap is cached for the generation in funcMapGen.
	funcMap    []FuncMapEntry
	funcMapGen int

	text  string
	prog  *syntax.Program
	build *builder.Result

	links   map[string]generator.Link
	linkKey string

	output    []string
	checkText string

	state state
	// failedAt is the stage whose errors put the file in the error state,
	// or -1 when healthy.
	failedAt state
	errors   []*cerrors.Issue

	hookWarnings   []*cerrors.Issue
	genWarnings    []*cerrors.Issue
	verifyWarnings []*cerrors.Issue
	// Link issues are recomputed on every compile.
	linkErrors   []*cerrors.Issue
	linkWarnings []*cerrors.Issue
}

func newSourceFile(path string) *sourceFile {
	return &sourceFile{path: path, failedAt: -1}
}

// update stores new contents and reports whether they changed. A change
// resets the file to needsPreprocess.
func (f *sourceFile) update(contents string, mtime time.Time) bool {
	f.time = mtime
	if f.version > 0 && contents == f.contents {
		return false
	}
	f.contents = contents
	f.version++
	f.reset(needsPreprocess)
	return true
}

// reset moves the file back to s, dropping everything later stages
// produced.
func (f *sourceFile) reset(s state) {
	if f.state < s {
		return
	}
	f.state = s
	if f.failedAt >= s {
		f.failedAt = -1
		f.errors = nil
	}
	if s <= needsPreprocess {
		f.text = ""
		f.hookWarnings = nil
	}
	if s <= needsParse {
		f.prog = nil
	}
	if s <= needsBuild {
		f.build = nil
		f.linkKey = ""
	}
	f.output = nil
	f.checkText = ""
	f.genWarnings = nil
	f.verifyWarnings = nil
}

// functionMap returns the file's function map, rebuilding it when the file
// was regenerated since the last call.
func (f *sourceFile) functionMap() []FuncMapEntry {
	if f.funcMap == nil || f.funcMapGen != f.generated {
		f.funcMap = functionMap(f.prog, f.build.Annotations)
		f.funcMapGen = f.generated
	}
	return f.funcMap
}

func (f *sourceFile) failed() bool {
	return f.failedAt >= 0
}

// fail puts the file in the error state for stage s.
func (f *sourceFile) fail(s state, issues ...*cerrors.Issue) {
	if !f.failed() || s < f.failedAt {
		f.failedAt = s
	}
	for _, issue := range issues {
		issue.At(f.path, 0, 0)
		f.errors = append(f.errors, issue)
	}
	f.output = nil
}

// ready reports whether the file should run stage s now.
func (f *sourceFile) ready(s state) bool {
	return !f.failed() && f.state == s
}

// built reports whether the file contributes declarations to the model.
// Files that failed only while generating still do.
func (f *sourceFile) built() bool {
	if f.build == nil || f.build.Failed() {
		return false
	}
	return !f.failed() || f.failedAt >= needsGenerate
}

// usable reports whether the file's output can be emitted.
func (f *sourceFile) usable() bool {
	return !f.failed() && len(f.linkErrors) == 0 && f.state == done
}

func (f *sourceFile) hookIssues(hook string, warnings []string) []*cerrors.Issue {
	out := make([]*cerrors.Issue, 0, len(warnings))
	for _, w := range warnings {
		out = append(out, cerrors.NewWarning(cerrors.IssueHook, 0, 0, "%s: %s", hook, w).At(f.path, 0, 0))
	}
	return out
}

func (f *sourceFile) setLinks(links map[string]generator.Link) bool {
	names := make([]string, 0, len(links))
	for name := range links {
		names = append(names, name)
	}
	sort.Strings(names)
	var b strings.Builder
	for _, name := range names {
		l := links[name]
		fmt.Fprintf(&b, "%s:%d:%t:%s;", name, l.Kind, l.Past, l.File)
	}
	f.links = links
	key := b.String()
	changed := key != f.linkKey
	f.linkKey = key
	return changed
}

func (f *sourceFile) issues() (errs, warnings []*cerrors.Issue) {
	errs = append(errs, f.errors...)
	errs = append(errs, f.linkErrors...)
	warnings = append(warnings, f.hookWarnings...)
	if f.build != nil {
		warnings = append(warnings, f.build.Warnings...)
	}
	warnings = append(warnings, f.linkWarnings...)
	warnings = append(warnings, f.genWarnings...)
	warnings = append(warnings, f.verifyWarnings...)
	return errs, warnings
}
