package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/subcommands"
)

// buildCmd runs the full pipeline (preprocess -> lex -> parse -> codegen),
// writes the result to a.s, then assembles and links it with nasm and ld.
type buildCmd struct {
	outPath string
}

func (*buildCmd) Name() string     { return "build" }
func (*buildCmd) Synopsis() string { return "Compile a source file to a native executable" }
func (*buildCmd) Usage() string {
	return `build <file>:
  Preprocess, parse, and lower <file> to NASM, then assemble and link it
  into a native ELF64 executable via nasm and ld.
`
}

func (cmd *buildCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&cmd.outPath, "o", "a.s", "path to write the generated NASM source to")
}

func (cmd *buildCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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

	objPath := strings.TrimSuffix(cmd.outPath, filepath.Ext(cmd.outPath)) + ".o"
	if out, err := exec.Command("nasm", "-felf64", cmd.outPath, "-o", objPath).CombinedOutput(); err != nil {
		fmt.Fprintf(os.Stderr, "💥 nasm failed:\n%s%v\n", out, err)
		return subcommands.ExitFailure
	}
	exePath := strings.TrimSuffix(objPath, ".o")
	if out, err := exec.Command("ld", objPath, "-o", exePath).CombinedOutput(); err != nil {
		fmt.Fprintf(os.Stderr, "💥 ld failed:\n%s%v\n", out, err)
		return subcommands.ExitFailure
	}
	if err := os.Remove(objPath); err != nil {
		fmt.Fprintf(os.Stderr, "💥 Failed to remove %s: %v\n", objPath, err)
		return subcommands.ExitFailure
	}

	return subcommands.ExitSuccess
}
