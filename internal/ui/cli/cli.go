package cli

import (
	"flag"
	"fmt"
	"io"

	"nilscript/internal/core/config"
)

const versionString = "0.1.0"

const (
	cmdBuild       = "build"
	cmdSymbolicate = "symbolicate"
	cmdFuncmap     = "funcmap"
)

type cliOptions struct {
	configPath string
	watch      bool
	verbose    bool
	version    bool
	noColor    bool
	command    string
	args       []string
}

func parseOptions(args []string, stderr io.Writer) (cliOptions, error) {
	var opts cliOptions
	fs := flag.NewFlagSet("nilscript", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: nilscript [flags] [build | symbolicate <text> | funcmap <file>]\n\n")
		fs.PrintDefaults()
	}

	fs.StringVar(&opts.configPath, "config", "./"+config.DefaultFileName, "Path to config file")
	fs.BoolVar(&opts.watch, "watch", false, "Rebuild when inputs change")
	fs.BoolVar(&opts.verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&opts.version, "version", false, "Print version and exit")
	fs.BoolVar(&opts.noColor, "no-color", false, "Disable coloured diagnostics")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, err
	}

	rest := fs.Args()
	opts.command = cmdBuild
	if len(rest) > 0 {
		opts.command, rest = rest[0], rest[1:]
	}
	opts.args = rest

	switch opts.command {
	case cmdBuild:
		if len(opts.args) > 0 {
			return cliOptions{}, fmt.Errorf("build takes no arguments, got %q", opts.args)
		}
	case cmdSymbolicate:
		if opts.watch {
			return cliOptions{}, fmt.Errorf("-watch only applies to build")
		}
	case cmdFuncmap:
		if opts.watch {
			return cliOptions{}, fmt.Errorf("-watch only applies to build")
		}
		if len(opts.args) != 1 {
			return cliOptions{}, fmt.Errorf("funcmap requires exactly one file argument")
		}
	default:
		return cliOptions{}, fmt.Errorf("unknown command %q", opts.command)
	}
	return opts, nil
}
