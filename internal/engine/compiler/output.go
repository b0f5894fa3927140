package compiler

import (
	"strings"

	cerrors "nilscript/internal/core/errors"
	"nilscript/internal/engine/generator"
	"nilscript/internal/engine/sourcemap"
)

func splitText(text string) []string {
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}

// assemble concatenates the prepended lines, the runtime bootstrap, every
// usable file in order and the appended lines.
func (c *Compiler) assemble(opts *Options, ordered []*sourceFile) (*Result, error) {
	res := &Result{}

	var smap *sourcemap.Builder
	if opts.IncludeMap && opts.OutputLanguage == generator.ModePlain {
		smap = sourcemap.NewBuilder(opts.OutputFile)
	}
	var lines []string
	addUnmapped := func(ls []string) {
		lines = append(lines, ls...)
		if smap != nil {
			smap.Skip(len(ls))
		}
	}

	addUnmapped(opts.Prepend)
	if c.parent == nil {
		switch opts.OutputLanguage {
		case generator.ModePlain:
			addUnmapped(splitText(generator.Bootstrap))
		case generator.ModeTypecheck:
			addUnmapped(splitText(generator.TypecheckDefs))
		}
	}

	for _, f := range ordered {
		if !f.usable() {
			continue
		}
		if smap != nil {
			src := smap.AddSource(f.path)
			base := smap.Lines()
			sourceLines := f.prog.Lines.LineCount()
			for i := range f.output {
				if i < sourceLines {
					smap.MapLine(base+i, src, i)
				}
			}
			if pad := base + len(f.output) - smap.Lines(); pad > 0 {
				smap.Skip(pad)
			}
		}
		lines = append(lines, f.output...)

		if opts.IncludeFunctionMap {
			if res.FunctionMap == nil {
				res.FunctionMap = make(map[string][]FuncMapEntry)
			}
			res.FunctionMap[f.path] = f.functionMap()
		}
	}
	addUnmapped(opts.Append)

	res.Code = strings.Join(lines, "\n")
	if smap != nil {
		data, err := smap.Build().JSON()
		if err != nil {
			return nil, cerrors.Wrap(err, cerrors.CodeInternal, "encode source map")
		}
		res.Map = data
	}
	if opts.IncludeSymbols {
		res.Symbols = make(map[string]string)
		if c.squeezer != nil {
			res.Symbols = c.squeezer.AllSymbols()
		}
	}

	for _, f := range ordered {
		errs, warnings := f.issues()
		res.Errors = append(res.Errors, errs...)
		res.Warnings = append(res.Warnings, warnings...)
	}
	res.Errors = cerrors.SortIssues(res.Errors)
	res.Warnings = cerrors.SortIssues(res.Warnings)
	return res, nil
}
