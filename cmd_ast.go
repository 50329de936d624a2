package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"tinycc/ast"
)

// astCmd runs the shared pipeline and dumps the parsed tree as JSON. A
// failure in code generation does not stop the dump; only a failure before
// a tree exists does.
type astCmd struct {
	outPath string
}

func (*astCmd) Name() string     { return "ast" }
func (*astCmd) Synopsis() string { return "Dump a source file's parsed AST as JSON" }
func (*astCmd) Usage() string {
	return `ast <file>:
  Preprocess, lex, and parse <file>, then print the resulting AST as JSON.
`
}

func (cmd *astCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&cmd.outPath, "o", "", "write the AST JSON to this path instead of stdout")
}

func (cmd *astCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "💥 File not provided\n")
		return subcommands.ExitUsageError
	}

	result, err := compile(args[0])
	if err != nil && result.root == nil {
		reportErr(err, result.source)
		return subcommands.ExitFailure
	}

	out, jsonErr := ast.PrintJSON(result.root)
	if jsonErr != nil {
		fmt.Fprintf(os.Stderr, "💥 Failed to render AST: %v\n", jsonErr)
		return subcommands.ExitFailure
	}

	if cmd.outPath == "" {
		fmt.Println(out)
		return subcommands.ExitSuccess
	}
	if err := os.WriteFile(cmd.outPath, []byte(out), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "💥 Failed to write %s: %v\n", cmd.outPath, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
