package compiler

import (
	"nilscript/internal/engine/model"
)

// reorder moves every file that subclasses an imported class after the
// file exporting it. Files without such a relationship keep their input
// order. Cycles are broken at the first file visited.
func reorder(files []*sourceFile) []*sourceFile {
	exporters := make(map[string]*sourceFile)
	for _, f := range files {
		if f.build == nil {
			continue
		}
		for _, exp := range f.build.Exports {
			if exp.Kind != model.KindClass {
				continue
			}
			if _, ok := exporters[exp.Name]; !ok {
				exporters[exp.Name] = f
			}
		}
	}

	dependents := make(map[*sourceFile][]*sourceFile)
	for _, f := range files {
		if f.build == nil {
			continue
		}
		imported := make(map[string]bool, len(f.build.Imports))
		for _, imp := range f.build.Imports {
			imported[imp.Name] = true
		}
		seen := make(map[*sourceFile]bool)
		for _, e := range f.build.Model.Entities() {
			cls, ok := e.(*model.Class)
			if !ok || cls.Super == "" || !imported[cls.Super] {
				continue
			}
			dep, ok := exporters[cls.Super]
			if !ok || dep == f || seen[dep] {
				continue
			}
			seen[dep] = true
			dependents[dep] = append(dependents[dep], f)
		}
	}

	out := make([]*sourceFile, 0, len(files))
	visited := make(map[*sourceFile]bool, len(files))
	var visit func(f *sourceFile)
	visit = func(f *sourceFile) {
		if visited[f] {
			return
		}
		visited[f] = true
		deps := dependents[f]
		for i := len(deps) - 1; i >= 0; i-- {
			visit(deps[i])
		}
		out = append(out, f)
	}
	for i := len(files) - 1; i >= 0; i-- {
		visit(files[i])
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}
