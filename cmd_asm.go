package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

// asmCmd runs the same pipeline as build but stops after writing the NASM
// source, skipping the nasm/ld invocation.
type asmCmd struct {
	outPath string
}

func (*asmCmd) Name() string     { return "asm" }
func (*asmCmd) Synopsis() string { return "Compile a source file to NASM assembly only" }
func (*asmCmd) Usage() string {
	return `asm <file>:
  Preprocess, parse, and lower <file> to NASM, writing the result without
  invoking nasm or ld.
`
}

func (cmd *asmCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&cmd.outPath, "o", "a.s", "path to write the generated NASM source to")
}

func (cmd *asmCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "💥 File not provided\n")
		return subcommands.ExitUsageError
	}

	result, err := compile(args[0])
	if err != nil {
		reportErr(err, result.source)
		return subcommands.ExitFailure
	}

	if err := os.WriteFile(cmd.outPath, []byte(result.asm), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "💥 Failed to write %s: %v\n", cmd.outPath, err)
		return subcommands.ExitFailure
	}

	return subcommands.ExitSuccess
}
