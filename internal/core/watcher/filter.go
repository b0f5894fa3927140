package watcher

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// skippedDirs are never descended into.
var skippedDirs = []string{".git", ".hg", ".svn", "node_modules"}

// Filter decides which files under Root are compiler inputs. Patterns match
// slash-separated paths relative to Root; "**" crosses directories.
type Filter struct {
	root    string
	include []glob.Glob
	exclude []glob.Glob
	skip    []glob.Glob
}

func NewFilter(root string, include, exclude []string) (*Filter, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	f := &Filter{root: abs}
	if f.include, err = compileAll(include); err != nil {
		return nil, err
	}
	if f.exclude, err = compileAll(exclude); err != nil {
		return nil, err
	}
	if f.skip, err = compileAll(skippedDirs); err != nil {
		return nil, err
	}
	return f, nil
}

func compileAll(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(filepath.ToSlash(pattern), '/')
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

func (f *Filter) Root() string {
	return f.root
}

func (f *Filter) rel(path string) (string, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(f.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// Match reports whether path is an input.
func (f *Filter) Match(path string) bool {
	rel, ok := f.rel(path)
	if !ok || rel == "." {
		return false
	}
	if matchAny(f.exclude, rel) {
		return false
	}
	return matchAny(f.include, rel)
}

// ExcludeDir reports whether the directory at path holds no inputs.
func (f *Filter) ExcludeDir(path string) bool {
	rel, ok := f.rel(path)
	if !ok {
		return true
	}
	if rel == "." {
		return false
	}
	if matchAny(f.skip, filepath.Base(path)) {
		return true
	}
	return matchAny(f.exclude, rel) || matchAny(f.exclude, rel+"/")
}

func matchAny(globs []glob.Glob, s string) bool {
	for _, g := range globs {
		if g.Match(s) {
			return true
		}
	}
	return false
}

// Discover walks Root and returns the matching files sorted by path.
func (f *Filter) Discover() ([]string, error) {
	var files []string
	err := filepath.Walk(f.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if f.ExcludeDir(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if f.Match(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
