package main

import (
	"os"

	"nilscript/internal/ui/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
