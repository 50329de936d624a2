package main

import (
	"fmt"
	"os"
	"path/filepath"

	"tinycc/ast"
	"tinycc/cerr"
	"tinycc/codegen"
	"tinycc/lexer"
	"tinycc/parser"
	"tinycc/preprocess"
)

// compileResult is everything a subcommand might want out of a single run
// of the pipeline: the parsed tree (for `ast`), the emitted NASM text (for
// `build`/`asm`), and the preprocessed source (for rendering a *cerr.Error
// with its three lines of context).
type compileResult struct {
	source string
	root   ast.Node
	asm    string
}

// compile reads path, preprocesses it, lexes, parses, and lowers it to
// NASM, stopping at the first stage that fails. It's the single pipeline
// shared by the build, asm, and ast subcommands; each runs every stage and
// uses the parts of the result it needs.
func compile(path string) (*compileResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return &compileResult{}, fmt.Errorf("reading %s: %w", path, err)
	}

	pp := preprocess.New(filepath.Dir(path))
	source, err := pp.Run(string(data))
	if err != nil {
		return &compileResult{}, err
	}
	result := &compileResult{source: source}

	toks, err := lexer.New(source).Scan()
	if err != nil {
		return result, err
	}

	root, err := parser.Parse(toks)
	if err != nil {
		return result, err
	}
	result.root = root

	asm, err := codegen.Emit(root)
	if err != nil {
		return result, err
	}
	result.asm = asm

	return result, nil
}

// reportErr prints err to stderr, rendering the three lines of source
// context around it when it's a *cerr.Error and the source is available.
func reportErr(err error, source string) {
	if ce, ok := err.(*cerr.Error); ok && source != "" {
		fmt.Fprint(os.Stderr, cerr.Render(ce, source))
		return
	}
	fmt.Fprintf(os.Stderr, "💥 %v\n", err)
}
