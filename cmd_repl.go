package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/google/subcommands"

	"tinycc/ast"
	"tinycc/cerr"
	"tinycc/lexer"
	"tinycc/parser"
	"tinycc/scope"
	"tinycc/token"
)

// replCmd is an incremental checker, not an interpreter: this is an
// ahead-of-time compiler with no runtime to execute snippets against, so
// each line is lexed, parsed, and walked against a session-long *scope.Scope
// for its declarations/type errors, echoing back what got bound or what
// failed — there is nothing to "run".
type replCmd struct{}

func (*replCmd) Name() string     { return "repl" }
func (*replCmd) Synopsis() string { return "Start an incremental lex/parse/typecheck session" }
func (*replCmd) Usage() string {
	return `repl:
  Start an interactive session that lexes, parses, and type-checks one
  top-level declaration or statement at a time against a persistent scope.
`
}
func (r *replCmd) SetFlags(f *flag.FlagSet) {}

func (r *replCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	rl, err := readline.New(">>> ")
	if err != nil {
		fmt.Println(color.New(color.FgHiRed).Sprintf("💥 %v", err))
		return subcommands.ExitFailure
	}
	defer rl.Close()

	sc := scope.New()
	var buffer strings.Builder

	for {
		prompt := ">>> "
		if buffer.Len() > 0 {
			prompt = "... "
		}
		rl.SetPrompt(prompt)

		line, err := rl.Readline()
		if err == io.EOF || err == readline.ErrInterrupt {
			return subcommands.ExitSuccess
		}
		if err != nil {
			fmt.Println(color.New(color.FgHiRed).Sprintf("💥 %v", err))
			return subcommands.ExitFailure
		}
		if strings.TrimSpace(line) == "exit" && buffer.Len() == 0 {
			return subcommands.ExitSuccess
		}

		if buffer.Len() > 0 {
			buffer.WriteString("\n")
		}
		buffer.WriteString(line)
		source := buffer.String()

		toks, err := lexer.New(source).Scan()
		if err != nil {
			printReplErr(err, source)
			buffer.Reset()
			continue
		}
		if !braceBalanced(toks) {
			continue
		}

		root, err := parser.Parse(toks)
		if err != nil {
			printReplErr(err, source)
			buffer.Reset()
			continue
		}
		buffer.Reset()

		checkTopLevel(sc, root)
	}
}

// braceBalanced reports whether toks contains no unmatched '{', so the REPL
// keeps prompting for more lines ("... ") until a brace-delimited block
// (an if/while/for/fdef/struct body) is actually complete.
func braceBalanced(toks []token.Token) bool {
	depth := 0
	for _, tok := range toks {
		switch tok.Kind {
		case token.LBRACE:
			depth++
		case token.RBRACE:
			depth--
		}
	}
	return depth <= 0
}

func printReplErr(err error, source string) {
	if ce, ok := err.(*cerr.Error); ok {
		fmt.Print(cerr.Render(ce, source))
		return
	}
	fmt.Println(color.New(color.FgHiRed).Sprintf("💥 %v", err))
}

// checkTopLevel walks each top-level child of root, binding declarations
// into sc and reporting either the binding that resulted or a type error.
func checkTopLevel(sc *scope.Scope, root ast.Node) {
	cpd, ok := root.(*ast.Cpd)
	if !ok {
		return
	}
	for _, child := range cpd.Children {
		switch n := child.(type) {
		case *ast.Vardef:
			if _, isNoop := n.Init.(*ast.Noop); !isNoop {
				if _, err := sc.DtypeOf(n.Init); err != nil {
					printReplErr(err, "")
					continue
				}
			}
			if err := sc.PushVardef(n); err != nil {
				printReplErr(err, "")
				continue
			}
			fmt.Printf("%s %s\n", n.Dtype.String(), n.Name.Name)
		case *ast.Fdef:
			if err := sc.PushFdef(n); err != nil {
				printReplErr(err, "")
				continue
			}
			fmt.Printf("%s %s(%d params)\n", n.ReturnDtype.String(), n.Name, len(n.Params))
		case *ast.Struct:
			if err := sc.PushStruct(n); err != nil {
				printReplErr(err, "")
				continue
			}
			fmt.Printf("struct %s { %d fields }\n", n.Name, len(n.Fields))
		default:
			dt, err := sc.DtypeOf(n)
			if err != nil {
				printReplErr(err, "")
				continue
			}
			fmt.Printf(": %s\n", dt.String())
		}
	}
}
