// Command tinycc is a small ahead-of-time compiler: it preprocesses,
// lexes, and parses a C-like source file, checks it against a symbol
// table, and lowers it to x86-64 NASM assembly for a Linux ELF64 target.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(&buildCmd{}, "")
	subcommands.Register(&asmCmd{}, "")
	subcommands.Register(&astCmd{}, "")
	subcommands.Register(&replCmd{}, "")

	flag.Parse()
	ctx := context.Background()
	os.Exit(int(subcommands.Execute(ctx)))
}
