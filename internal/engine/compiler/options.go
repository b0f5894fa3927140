package compiler

import (
	"context"
	"fmt"
	"strings"
	"time"

	cerrors "nilscript/internal/core/errors"
	"nilscript/internal/engine/checker"
	"nilscript/internal/engine/generator"
)

// File is one input. When Contents is empty and Time is zero the file is
// read from disk.
type File struct {
	Path     string
	Contents string
	Time     time.Time
}

// HookFile is what compile hooks see and may rewrite. Warnings appended by
// a hook are reported against Path.
type HookFile struct {
	Path     string
	Lines    []string
	Warnings []string
}

// Hook runs before parsing or after generating a file. An error marks only
// that file as failed.
type Hook func(ctx context.Context, file *HookFile) error

type CheckerOptions struct {
	// Workers is the number of checker processes, one when zero.
	Workers int
	Command string
	Args    []string
	// Pool overrides Command with an existing set of workers.
	Pool *checker.Pool
}

func (o CheckerOptions) key() string {
	if o.Pool != nil {
		return fmt.Sprintf("pool:%p", o.Pool)
	}
	return fmt.Sprintf("%d|%s|%s", o.Workers, o.Command, strings.Join(o.Args, "\x00"))
}

type Options struct {
	Files   []File
	Prepend []string
	Append  []string

	OutputLanguage generator.Mode
	// OutputFile names the generated file in the source map.
	OutputFile string

	Squeeze           bool
	SqueezeStartIndex int
	SqueezeEndIndex   int
	SqueezeBuiltins   []string
	// SqueezeSeed holds short→original pairs from an earlier run. They are
	// reused read-only so names stay stable across restarts.
	SqueezeSeed map[string]string

	CheckTypes bool
	Checker    CheckerOptions

	BeforeCompile Hook
	AfterCompile  Hook

	IncludeMap         bool
	IncludeSymbols     bool
	IncludeFunctionMap bool

	VerifyOutput     bool
	WarnMissingTypes bool

	// Builtins are the runtime globals visible to every file. Nil uses
	// builder.DefaultBuiltins.
	Builtins []string
}

// buildKey changes whenever an option affecting builder results does.
func (o *Options) buildKey() string {
	return fmt.Sprintf("%t|%s", o.WarnMissingTypes, strings.Join(o.Builtins, ","))
}

// generationKey changes whenever an option affecting generated text does.
func (o *Options) generationKey() string {
	return fmt.Sprintf("%s|%s|%t|%t",
		o.OutputLanguage, o.squeezeKey(), o.VerifyOutput, o.CheckTypes)
}

func (o *Options) squeezeKey() string {
	if !o.Squeeze {
		return "off"
	}
	return fmt.Sprintf("%d|%d|%s", o.SqueezeStartIndex, o.SqueezeEndIndex, strings.Join(o.SqueezeBuiltins, ","))
}

// FuncMapEntry marks the line where a signature starts. A nil signature
// means the line is outside any named function.
type FuncMapEntry [2]any

type Result struct {
	Code string
	// Map is a version 3 source map in JSON form.
	Map         []byte
	FunctionMap map[string][]FuncMapEntry
	// Symbols maps squeezed names to the names they replace.
	Symbols  map[string]string
	Errors   []*cerrors.Issue
	Warnings []*cerrors.Issue
}

// Failed reports whether any file has errors.
func (r *Result) Failed() bool {
	return len(r.Errors) > 0
}
